package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"todoey/internal/color"
	"todoey/internal/model"
	"todoey/internal/repository"
)

// CategoryInput represents data required to create a category.
// An empty Color picks a random light shade.
type CategoryInput struct {
	Name  string `validate:"notblank,max=255"`
	Color string `validate:"omitempty,hexcolor,len=7"`
}

type renameInput struct {
	Name string `validate:"notblank,max=255"`
}

// CategoryService wraps category-related business logic.
type CategoryService struct {
	repo repository.Categories
	log  *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCategoryService(repo repository.Categories, log *zap.Logger) *CategoryService {
	return &CategoryService{
		repo: repo,
		log:  log.Named("categories"),
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the colour picker's source.
func (s *CategoryService) WithRand(r *rand.Rand) *CategoryService {
	s.mu.Lock()
	s.rnd = r
	s.mu.Unlock()
	return s
}

func (s *CategoryService) AddCategory(ctx context.Context, input CategoryInput) (*model.Category, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}

	category := model.Category{
		Name:  strings.TrimSpace(input.Name),
		Color: strings.ToUpper(input.Color),
	}
	if category.Color == "" {
		s.mu.Lock()
		category.Color = color.RandomLight(s.rnd)
		s.mu.Unlock()
	}

	if err := s.repo.Create(ctx, &category); err != nil {
		s.log.Warn("add category failed", zap.Error(err))
		return nil, err
	}
	s.log.Info("category added", zap.String("id", category.ID), zap.String("color", category.Color))
	return &category, nil
}

func (s *CategoryService) RenameCategory(ctx context.Context, id, newName string) error {
	if err := checkInput(renameInput{Name: newName}); err != nil {
		return err
	}
	_, err := s.repo.Update(ctx, id, func(c *model.Category) error {
		c.Name = strings.TrimSpace(newName)
		return nil
	})
	if err != nil {
		s.log.Warn("rename category failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.log.Info("category renamed", zap.String("id", id))
	return nil
}

// DeleteCategory removes the category together with all of its items.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn("delete category failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.log.Info("category deleted", zap.String("id", id))
	return nil
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.FetchAll(ctx, "")
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &category, nil
}
