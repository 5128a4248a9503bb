package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"todoey/internal/model"
	"todoey/internal/repository"
)

type titleInput struct {
	Title string `validate:"notblank,max=1024"`
}

type queryInput struct {
	Query string `validate:"notblank"`
}

// ItemService wraps item-related business logic. Every operation is scoped
// to the category the caller selected.
type ItemService struct {
	repo repository.Items
	log  *zap.Logger
}

func NewItemService(repo repository.Items, log *zap.Logger) *ItemService {
	return &ItemService{repo: repo, log: log.Named("items")}
}

func (s *ItemService) AddItem(ctx context.Context, categoryID, title string) (*model.Item, error) {
	if err := checkInput(titleInput{Title: title}); err != nil {
		return nil, err
	}

	item := model.Item{
		CategoryID: categoryID,
		Title:      strings.TrimSpace(title),
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		s.log.Warn("add item failed", zap.String("category", categoryID), zap.Error(err))
		return nil, err
	}
	s.log.Info("item added", zap.String("id", item.ID), zap.String("category", categoryID))
	return &item, nil
}

func (s *ItemService) RenameItem(ctx context.Context, id, newTitle string) error {
	if err := checkInput(titleInput{Title: newTitle}); err != nil {
		return err
	}
	_, err := s.repo.Update(ctx, id, func(it *model.Item) error {
		it.Title = strings.TrimSpace(newTitle)
		return nil
	})
	if err != nil {
		s.log.Warn("rename item failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ToggleDone flips the done flag and returns the stored item.
func (s *ItemService) ToggleDone(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.repo.Update(ctx, id, func(it *model.Item) error {
		it.Done = !it.Done
		return nil
	})
	if err != nil {
		s.log.Warn("toggle item failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.log.Debug("item toggled", zap.String("id", id), zap.Bool("done", item.Done))
	return &item, nil
}

func (s *ItemService) DeleteItem(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn("delete item failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.log.Info("item deleted", zap.String("id", id))
	return nil
}

func (s *ItemService) GetItem(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *ItemService) ListItems(ctx context.Context, categoryID string) ([]model.Item, error) {
	return s.repo.FetchAll(ctx, categoryID)
}

// SearchItems returns the category's items whose title contains query,
// ignoring case. A blank query is rejected.
func (s *ItemService) SearchItems(ctx context.Context, categoryID, query string) ([]model.Item, error) {
	if err := checkInput(queryInput{Query: query}); err != nil {
		return nil, err
	}
	return s.repo.FetchFiltered(ctx, categoryID, strings.TrimSpace(query))
}
