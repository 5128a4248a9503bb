package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todoey/internal/model"
)

// CategoryRepository stores categories in SQL.
type CategoryRepository struct {
	db *gorm.DB
}

var _ Categories = (*CategoryRepository)(nil)

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	candidate := *category
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := idFree(tx, &model.Category{}, candidate.ID); err != nil {
			return err
		}
		return tx.Create(&candidate).Error
	})
	if err != nil {
		return storeErr("create category", "category", candidate.ID, err)
	}
	*category = candidate
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&category).Error; err != nil {
		return model.Category{}, storeErr("get category", "category", id, err)
	}
	return category, nil
}

func (r *CategoryRepository) FetchAll(ctx context.Context, _ string) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Find(&categories).Error; err != nil {
		return nil, model.Persistence("list categories", err)
	}
	// Ordering is decided in Go so every backend agrees.
	model.SortCategories(categories)
	return categories, nil
}

func (r *CategoryRepository) FetchFiltered(ctx context.Context, parentID, query string) ([]model.Category, error) {
	if !model.IsValidName(query) {
		return nil, model.BlankQuery()
	}
	categories, err := r.FetchAll(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return model.FilterCategories(categories, query), nil
}

func (r *CategoryRepository) Update(ctx context.Context, id string, mutate func(*model.Category) error) (model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&category).Error; err != nil {
			return err
		}
		created := category.CreatedAt
		if err := mutate(&category); err != nil {
			return err
		}
		category.ID, category.CreatedAt = id, created
		if err := category.Validate(); err != nil {
			return err
		}
		return tx.Save(&category).Error
	})
	if err != nil {
		return model.Category{}, storeErr("update category", "category", id, err)
	}
	return category, nil
}

// Delete removes the category and all of its items in one transaction.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&model.Item{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return storeErr("delete category", "category", id, err)
}
