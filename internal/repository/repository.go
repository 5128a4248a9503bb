package repository

import (
	"context"

	"todoey/internal/model"
	"todoey/internal/snapshot"
)

// Repository is the storage contract shared by every backend.
//
// FetchAll and FetchFiltered return detached copies ordered by name/title.
// parentID scopes items to a category and is ignored for categories.
// Update runs mutate on a copy of the stored entity, re-validates it and
// persists it in one atomic step. Failed writes leave the store unchanged.
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	Get(ctx context.Context, id string) (T, error)
	FetchAll(ctx context.Context, parentID string) ([]T, error)
	FetchFiltered(ctx context.Context, parentID, query string) ([]T, error)
	Update(ctx context.Context, id string, mutate func(*T) error) (T, error)
	Delete(ctx context.Context, id string) error
}

type (
	Categories = Repository[model.Category]
	Items      = Repository[model.Item]
)

// Exporter dumps the store with items in insertion order.
type Exporter interface {
	Snapshot(ctx context.Context) (snapshot.Snapshot, error)
}
