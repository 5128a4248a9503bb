package service

import (
	"context"
	"errors"

	"todoey/internal/model"
	"todoey/internal/repository"
)

// CategoryDigest lists the open items of one category.
type CategoryDigest struct {
	Category model.Category
	Pending  []model.Item
	Total    int
}

// SummaryService builds the digest sent to the owner every day.
type SummaryService struct {
	categories repository.Categories
	items      repository.Items
}

func NewSummaryService(categories repository.Categories, items repository.Items) *SummaryService {
	return &SummaryService{categories: categories, items: items}
}

// Pending returns, per category in name order, the items not yet done.
// Categories without open items are left out. A category removed while the
// digest is assembled is skipped.
func (s *SummaryService) Pending(ctx context.Context) ([]CategoryDigest, error) {
	categories, err := s.categories.FetchAll(ctx, "")
	if err != nil {
		return nil, err
	}

	var digest []CategoryDigest
	for _, cat := range categories {
		items, err := s.items.FetchAll(ctx, cat.ID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		entry := CategoryDigest{Category: cat, Total: len(items)}
		for _, it := range items {
			if !it.Done {
				entry.Pending = append(entry.Pending, it)
			}
		}
		if len(entry.Pending) > 0 {
			digest = append(digest, entry)
		}
	}
	return digest, nil
}
