package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todoey/internal/model"
)

// ItemRepository handles CRUD for items.
type ItemRepository struct {
	db *gorm.DB
}

var _ Items = (*ItemRepository)(nil)

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts the item after checking, in the same transaction, that its
// category still exists.
func (r *ItemRepository) Create(ctx context.Context, item *model.Item) error {
	candidate := *item
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := idFree(tx, &model.Item{}, candidate.ID); err != nil {
			return err
		}
		if err := categoryExists(tx, candidate.CategoryID); err != nil {
			return err
		}
		return tx.Create(&candidate).Error
	})
	if err != nil {
		return storeErr("create item", "item", candidate.ID, err)
	}
	*item = candidate
	return nil
}

func (r *ItemRepository) Get(ctx context.Context, id string) (model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return model.Item{}, storeErr("get item", "item", id, err)
	}
	return item, nil
}

func (r *ItemRepository) FetchAll(ctx context.Context, categoryID string) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := categoryExists(tx, categoryID); err != nil {
			return err
		}
		return tx.Where("category_id = ?", categoryID).Find(&items).Error
	})
	if err != nil {
		return nil, storeErr("list items", "category", categoryID, err)
	}
	// Ordering is decided in Go so every backend agrees.
	model.SortItems(items)
	return items, nil
}

func (r *ItemRepository) FetchFiltered(ctx context.Context, categoryID, query string) ([]model.Item, error) {
	if !model.IsValidName(query) {
		return nil, model.BlankQuery()
	}
	items, err := r.FetchAll(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return model.FilterItems(items, query), nil
}

func (r *ItemRepository) Update(ctx context.Context, id string, mutate func(*model.Item) error) (model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&item).Error; err != nil {
			return err
		}
		parent, created := item.CategoryID, item.CreatedAt
		if err := mutate(&item); err != nil {
			return err
		}
		item.ID, item.CategoryID, item.CreatedAt = id, parent, created
		if err := item.Validate(); err != nil {
			return err
		}
		return tx.Save(&item).Error
	})
	if err != nil {
		return model.Item{}, storeErr("update item", "item", id, err)
	}
	return item, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Item{})
	if res.Error != nil {
		return model.Persistence("delete item", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.NotFound("item", id)
	}
	return nil
}
