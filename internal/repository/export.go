package repository

import (
	"context"

	"gorm.io/gorm"

	"todoey/internal/model"
	"todoey/internal/snapshot"
)

// SQLExporter dumps the relational store ordered by creation time.
type SQLExporter struct {
	db *gorm.DB
}

func NewSQLExporter(db *gorm.DB) *SQLExporter {
	return &SQLExporter{db: db}
}

func (e *SQLExporter) Snapshot(ctx context.Context) (snapshot.Snapshot, error) {
	var (
		categories []model.Category
		items      []model.Item
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("created_at ASC, id ASC").Find(&categories).Error; err != nil {
			return err
		}
		return tx.Order("created_at ASC, id ASC").Find(&items).Error
	})
	if err != nil {
		return snapshot.Snapshot{}, model.Persistence("export store", err)
	}

	byCategory := make(map[string][]model.Item, len(categories))
	for _, it := range items {
		byCategory[it.CategoryID] = append(byCategory[it.CategoryID], it)
	}

	snap := snapshot.Snapshot{Version: snapshot.Version, Categories: make([]snapshot.CategoryRecord, 0, len(categories))}
	for _, c := range categories {
		snap.Categories = append(snap.Categories, snapshot.FromCategory(c, byCategory[c.ID]))
	}
	return snap, nil
}
