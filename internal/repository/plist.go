package repository

import (
	"fmt"

	"todoey/internal/snapshot"
)

// NewPlistStore loads path (if present) and returns a memory store that
// rewrites the property-list file after every mutation.
func NewPlistStore(path string) (*MemoryStore, error) {
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load plist store: %w", err)
	}
	store := NewMemoryStore()
	store.state = stateFromSnapshot(snap)
	store.persist = func(st memState) error {
		return snapshot.WriteFile(path, st.snapshot())
	}
	return store, nil
}
