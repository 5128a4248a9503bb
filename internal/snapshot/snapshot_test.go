package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoey/internal/model"
)

func sample() Snapshot {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	cat := model.Category{ID: "c1", Name: "Groceries", Color: "#A2DED0", CreatedAt: created, UpdatedAt: created}
	items := []model.Item{
		{ID: "i2", CategoryID: "c1", Title: "Milk", CreatedAt: created, UpdatedAt: created},
		{ID: "i1", CategoryID: "c1", Title: "Bread", Done: true, CreatedAt: created, UpdatedAt: created},
	}
	return Snapshot{Version: Version, Categories: []CategoryRecord{FromCategory(cat, items)}}
}

func TestEncodeDecodeKeepsInsertionOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sample()))
	assert.Contains(t, buf.String(), "<plist")

	got, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)

	rec := got.Categories[0]
	assert.Equal(t, "Groceries", rec.Name)
	assert.Equal(t, "#A2DED0", rec.Color)

	items := rec.ModelItems()
	require.Len(t, items, 2)
	assert.Equal(t, "i2", items[0].ID)
	assert.Equal(t, "c1", items[0].CategoryID)
	assert.Equal(t, "i1", items[1].ID)
	assert.True(t, items[1].Done)
	assert.True(t, rec.Category().CreatedAt.Equal(sample().Categories[0].CreatedAt))
}

func TestReadFileMissingIsEmpty(t *testing.T) {
	s, err := ReadFile(filepath.Join(t.TempDir(), "absent.plist"))
	require.NoError(t, err)
	assert.Empty(t, s.Categories)
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "Items.plist")
	require.NoError(t, WriteFile(path, sample()))
	require.NoError(t, WriteFile(path, Snapshot{}))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestDecodeRejectsFutureVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Snapshot{Version: Version + 1}))
	_, err := Decode(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}
