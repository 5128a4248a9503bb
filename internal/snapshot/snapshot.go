// Package snapshot encodes the whole store as a property list. The plist
// backend persists through it and the backup job exports with it.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"howett.net/plist"

	"todoey/internal/model"
)

// Version is bumped whenever the record layout changes.
const Version = 1

type Snapshot struct {
	Version    int              `plist:"version"`
	Categories []CategoryRecord `plist:"categories"`
}

// CategoryRecord keeps its items in insertion order.
type CategoryRecord struct {
	ID        string       `plist:"id"`
	Name      string       `plist:"name"`
	Color     string       `plist:"color,omitempty"`
	CreatedAt time.Time    `plist:"createdAt"`
	UpdatedAt time.Time    `plist:"updatedAt"`
	Items     []ItemRecord `plist:"items"`
}

type ItemRecord struct {
	ID        string    `plist:"id"`
	Title     string    `plist:"title"`
	Done      bool      `plist:"done"`
	CreatedAt time.Time `plist:"createdAt"`
	UpdatedAt time.Time `plist:"updatedAt"`
}

// FromCategory builds a record for c holding items in the given order.
func FromCategory(c model.Category, items []model.Item) CategoryRecord {
	rec := CategoryRecord{
		ID:        c.ID,
		Name:      c.Name,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Items:     make([]ItemRecord, 0, len(items)),
	}
	for _, it := range items {
		rec.Items = append(rec.Items, ItemRecord{
			ID:        it.ID,
			Title:     it.Title,
			Done:      it.Done,
			CreatedAt: it.CreatedAt,
			UpdatedAt: it.UpdatedAt,
		})
	}
	return rec
}

// Category converts the record back to the model form.
func (r CategoryRecord) Category() model.Category {
	return model.Category{
		ID:        r.ID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ModelItems converts the nested records, preserving order.
func (r CategoryRecord) ModelItems() []model.Item {
	items := make([]model.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, model.Item{
			ID:         it.ID,
			CategoryID: r.ID,
			Title:      it.Title,
			Done:       it.Done,
			CreatedAt:  it.CreatedAt,
			UpdatedAt:  it.UpdatedAt,
		})
	}
	return items
}

func Encode(w io.Writer, s Snapshot) error {
	if s.Version == 0 {
		s.Version = Version
	}
	if s.Categories == nil {
		s.Categories = []CategoryRecord{}
	}
	enc := plist.NewEncoderForFormat(w, plist.XMLFormat)
	enc.Indent("\t")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func Decode(r io.ReadSeeker) (Snapshot, error) {
	var s Snapshot
	if err := plist.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version > Version {
		return Snapshot{}, fmt.Errorf("decode snapshot: unsupported version %d", s.Version)
	}
	return s, nil
}

// ReadFile loads a snapshot. A missing file is an empty store.
func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{Version: Version}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile replaces path atomically: the snapshot is written to a temporary
// sibling, synced, then renamed over the target.
func WriteFile(path string, s Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
