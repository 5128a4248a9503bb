package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"todoey/internal/model"
	"todoey/internal/snapshot"
)

// MemoryStore keeps categories and items in maps guarded by one lock, so a
// cascade delete is atomic and readers always see a consistent state.
//
// When persist is set every mutation is applied to a copy of the state,
// handed to persist, and only swapped in once persist succeeds.
type MemoryStore struct {
	mu      sync.RWMutex
	state   memState
	persist func(memState) error
	now     func() time.Time
}

type memState struct {
	categories map[string]model.Category
	items      map[string]model.Item
	catOrder   []string
	itemOrder  map[string][]string
}

var _ Exporter = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: defaultNow}
}

func newMemState() memState {
	return memState{
		categories: make(map[string]model.Category),
		items:      make(map[string]model.Item),
		itemOrder:  make(map[string][]string),
	}
}

// Timestamps are kept at second precision so they survive a plist round trip.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func (st memState) clone() memState {
	next := memState{
		categories: make(map[string]model.Category, len(st.categories)),
		items:      make(map[string]model.Item, len(st.items)),
		catOrder:   slices.Clone(st.catOrder),
		itemOrder:  make(map[string][]string, len(st.itemOrder)),
	}
	for k, v := range st.categories {
		next.categories[k] = v
	}
	for k, v := range st.items {
		next.items[k] = v
	}
	for k, v := range st.itemOrder {
		next.itemOrder[k] = slices.Clone(v)
	}
	return next
}

func (st memState) snapshot() snapshot.Snapshot {
	snap := snapshot.Snapshot{Version: snapshot.Version, Categories: make([]snapshot.CategoryRecord, 0, len(st.catOrder))}
	for _, id := range st.catOrder {
		ids := st.itemOrder[id]
		items := make([]model.Item, 0, len(ids))
		for _, itemID := range ids {
			items = append(items, st.items[itemID])
		}
		snap.Categories = append(snap.Categories, snapshot.FromCategory(st.categories[id], items))
	}
	return snap
}

func stateFromSnapshot(snap snapshot.Snapshot) memState {
	st := newMemState()
	for _, rec := range snap.Categories {
		st.categories[rec.ID] = rec.Category()
		st.catOrder = append(st.catOrder, rec.ID)
		ids := make([]string, 0, len(rec.Items))
		for _, it := range rec.ModelItems() {
			st.items[it.ID] = it
			ids = append(ids, it.ID)
		}
		st.itemOrder[rec.ID] = ids
	}
	return st
}

func (s *MemoryStore) mutate(op string, apply func(*memState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := apply(&next); err != nil {
		return err
	}
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			return model.Persistence(op, err)
		}
	}
	s.state = next
	return nil
}

func (s *MemoryStore) Categories() Categories { return memCategories{s} }

func (s *MemoryStore) Items() Items { return memItems{s} }

func (s *MemoryStore) Snapshot(context.Context) (snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot(), nil
}

type memCategories struct{ s *MemoryStore }

func (m memCategories) Create(_ context.Context, category *model.Category) error {
	candidate := *category
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	now := m.s.now()
	candidate.CreatedAt, candidate.UpdatedAt = now, now

	err := m.s.mutate("create category", func(st *memState) error {
		if _, taken := st.categories[candidate.ID]; taken {
			return model.IDTaken(candidate.ID)
		}
		st.categories[candidate.ID] = candidate
		st.catOrder = append(st.catOrder, candidate.ID)
		st.itemOrder[candidate.ID] = nil
		return nil
	})
	if err != nil {
		return err
	}
	*category = candidate
	return nil
}

func (m memCategories) Get(_ context.Context, id string) (model.Category, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	c, ok := m.s.state.categories[id]
	if !ok {
		return model.Category{}, model.NotFound("category", id)
	}
	return c, nil
}

func (m memCategories) FetchAll(context.Context, string) ([]model.Category, error) {
	m.s.mu.RLock()
	out := make([]model.Category, 0, len(m.s.state.categories))
	for _, c := range m.s.state.categories {
		out = append(out, c)
	}
	m.s.mu.RUnlock()

	model.SortCategories(out)
	return out, nil
}

func (m memCategories) FetchFiltered(ctx context.Context, parentID, query string) ([]model.Category, error) {
	if !model.IsValidName(query) {
		return nil, model.BlankQuery()
	}
	all, err := m.FetchAll(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return model.FilterCategories(all, query), nil
}

func (m memCategories) Update(_ context.Context, id string, mutate func(*model.Category) error) (model.Category, error) {
	var out model.Category
	err := m.s.mutate("update category", func(st *memState) error {
		current, ok := st.categories[id]
		if !ok {
			return model.NotFound("category", id)
		}
		next := current
		if err := mutate(&next); err != nil {
			return err
		}
		next.ID, next.CreatedAt = current.ID, current.CreatedAt
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = m.s.now()
		st.categories[id] = next
		out = next
		return nil
	})
	if err != nil {
		return model.Category{}, err
	}
	return out, nil
}

func (m memCategories) Delete(_ context.Context, id string) error {
	return m.s.mutate("delete category", func(st *memState) error {
		if _, ok := st.categories[id]; !ok {
			return model.NotFound("category", id)
		}
		for _, itemID := range st.itemOrder[id] {
			delete(st.items, itemID)
		}
		delete(st.itemOrder, id)
		delete(st.categories, id)
		st.catOrder = slices.DeleteFunc(st.catOrder, func(v string) bool { return v == id })
		return nil
	})
}

type memItems struct{ s *MemoryStore }

func (m memItems) Create(_ context.Context, item *model.Item) error {
	candidate := *item
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	now := m.s.now()
	candidate.CreatedAt, candidate.UpdatedAt = now, now

	err := m.s.mutate("create item", func(st *memState) error {
		if _, taken := st.items[candidate.ID]; taken {
			return model.IDTaken(candidate.ID)
		}
		if _, ok := st.categories[candidate.CategoryID]; !ok {
			return model.NotFound("category", candidate.CategoryID)
		}
		st.items[candidate.ID] = candidate
		st.itemOrder[candidate.CategoryID] = append(st.itemOrder[candidate.CategoryID], candidate.ID)
		return nil
	})
	if err != nil {
		return err
	}
	*item = candidate
	return nil
}

func (m memItems) Get(_ context.Context, id string) (model.Item, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	it, ok := m.s.state.items[id]
	if !ok {
		return model.Item{}, model.NotFound("item", id)
	}
	return it, nil
}

func (m memItems) FetchAll(_ context.Context, categoryID string) ([]model.Item, error) {
	m.s.mu.RLock()
	if _, ok := m.s.state.categories[categoryID]; !ok {
		m.s.mu.RUnlock()
		return nil, model.NotFound("category", categoryID)
	}
	ids := m.s.state.itemOrder[categoryID]
	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.s.state.items[id])
	}
	m.s.mu.RUnlock()

	model.SortItems(out)
	return out, nil
}

func (m memItems) FetchFiltered(ctx context.Context, categoryID, query string) ([]model.Item, error) {
	if !model.IsValidName(query) {
		return nil, model.BlankQuery()
	}
	all, err := m.FetchAll(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return model.FilterItems(all, query), nil
}

func (m memItems) Update(_ context.Context, id string, mutate func(*model.Item) error) (model.Item, error) {
	var out model.Item
	err := m.s.mutate("update item", func(st *memState) error {
		current, ok := st.items[id]
		if !ok {
			return model.NotFound("item", id)
		}
		next := current
		if err := mutate(&next); err != nil {
			return err
		}
		next.ID, next.CategoryID, next.CreatedAt = current.ID, current.CategoryID, current.CreatedAt
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = m.s.now()
		st.items[id] = next
		out = next
		return nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return out, nil
}

func (m memItems) Delete(_ context.Context, id string) error {
	return m.s.mutate("delete item", func(st *memState) error {
		it, ok := st.items[id]
		if !ok {
			return model.NotFound("item", id)
		}
		delete(st.items, id)
		st.itemOrder[it.CategoryID] = slices.DeleteFunc(st.itemOrder[it.CategoryID], func(v string) bool { return v == id })
		return nil
	})
}
