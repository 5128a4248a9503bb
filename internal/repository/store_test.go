package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todoey/internal/model"
)

type listing struct {
	ID, Name, Color string
	Items           []listedItem
}

type listedItem struct {
	ID, Title string
	Done      bool
}

func seed(t *testing.T, cats Categories, items Items, n, m int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		c := model.Category{Name: fmt.Sprintf("Category %d", n-i), Color: "#89C4F4"}
		require.NoError(t, cats.Create(ctx, &c))
		for j := 0; j < m; j++ {
			it := model.Item{CategoryID: c.ID, Title: fmt.Sprintf("item %d", m-j)}
			require.NoError(t, items.Create(ctx, &it))
			if j%2 == 0 {
				_, err := items.Update(ctx, it.ID, func(i *model.Item) error {
					i.Done = true
					return nil
				})
				require.NoError(t, err)
			}
		}
	}
}

func list(t *testing.T, cats Categories, items Items) []listing {
	t.Helper()
	ctx := context.Background()
	all, err := cats.FetchAll(ctx, "")
	require.NoError(t, err)
	out := make([]listing, 0, len(all))
	for _, c := range all {
		entry := listing{ID: c.ID, Name: c.Name, Color: c.Color}
		its, err := items.FetchAll(ctx, c.ID)
		require.NoError(t, err)
		for _, it := range its {
			entry.Items = append(entry.Items, listedItem{ID: it.ID, Title: it.Title, Done: it.Done})
		}
		out = append(out, entry)
	}
	return out
}

func TestPlistStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Items.plist")

	first, err := NewPlistStore(path)
	require.NoError(t, err)
	seed(t, first.Categories(), first.Items(), 3, 4)
	before := list(t, first.Categories(), first.Items())

	second, err := NewPlistStore(path)
	require.NoError(t, err)
	after := list(t, second.Categories(), second.Items())

	require.Len(t, after, 3)
	assert.Equal(t, before, after)

	snapBefore, err := first.Snapshot(context.Background())
	require.NoError(t, err)
	snapAfter, err := second.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapBefore, snapAfter, "insertion order survives the reload")
}

func TestSQLiteStoreSurvivesRestart(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "todoey.db")

	db, err := NewDB(dsn, zap.NewNop())
	require.NoError(t, err)
	seed(t, NewCategoryRepository(db), NewItemRepository(db), 3, 4)
	before := list(t, NewCategoryRepository(db), NewItemRepository(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	reopened, err := NewDB(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := reopened.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	after := list(t, NewCategoryRepository(reopened), NewItemRepository(reopened))

	require.Len(t, after, 3)
	assert.Equal(t, before, after)
}

func TestMemoryStoreFailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cats, items := store.Categories(), store.Items()

	home := model.Category{Name: "Home"}
	require.NoError(t, cats.Create(ctx, &home))
	milk := model.Item{CategoryID: home.ID, Title: "Buy milk"}
	require.NoError(t, items.Create(ctx, &milk))

	store.persist = func(memState) error { return errors.New("disk full") }

	work := model.Category{Name: "Work"}
	err := cats.Create(ctx, &work)
	require.ErrorIs(t, err, model.ErrPersistence)
	assert.Empty(t, work.ID, "caller's value must not look stored")

	_, err = items.Update(ctx, milk.ID, func(i *model.Item) error {
		i.Title = "Buy oat milk"
		return nil
	})
	require.ErrorIs(t, err, model.ErrPersistence)

	require.ErrorIs(t, cats.Delete(ctx, home.ID), model.ErrPersistence)

	got, err := cats.FetchAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	stored, err := items.Get(ctx, milk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", stored.Title)
}

func TestSQLiteFailureIsPersistenceError(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "todoey.db"), zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	c := model.Category{Name: "Home"}
	err = NewCategoryRepository(db).Create(context.Background(), &c)
	require.ErrorIs(t, err, model.ErrPersistence)

	_, err = NewItemRepository(db).FetchAll(context.Background(), "any")
	require.ErrorIs(t, err, model.ErrPersistence)
}

func TestSQLExporterOrdersByCreation(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "todoey.db"), zap.NewNop())
	require.NoError(t, err)
	seed(t, NewCategoryRepository(db), NewItemRepository(db), 2, 3)

	snap, err := NewSQLExporter(db).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Categories, 2)
	for _, rec := range snap.Categories {
		assert.Len(t, rec.Items, 3)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "realm"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenMemoryBackend(t *testing.T) {
	store, err := Open(context.Background(), Options{Backend: BackendMemory}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	c := model.Category{Name: "Home"}
	require.NoError(t, store.Categories.Create(context.Background(), &c))
	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Categories, 1)
}

func TestMemorySnapshotIgnoresRejectedDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	home := model.Category{Name: "Home"}
	require.NoError(t, store.Categories().Create(ctx, &home))
	milk := model.Item{CategoryID: home.ID, Title: "Buy milk"}
	require.NoError(t, store.Items().Create(ctx, &milk))

	dup := model.Category{ID: home.ID, Name: "Home again"}
	require.ErrorIs(t, store.Categories().Create(ctx, &dup), model.ErrValidation)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Categories[0].Items, 1)
}
