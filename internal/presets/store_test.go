package presets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "presets.json")
	s := NewStore(path)
	require.NoError(t, s.Load())

	filters := map[string]string{"amount": ">=10"}
	require.NoError(t, s.Put(Preset{Name: " big-orders ", Topic: "orders", Filters: filters, Search: "alice"}))
	filters["amount"] = "changed"

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	p, ok := reloaded.Get("big-orders")
	require.True(t, ok)
	assert.Equal(t, "orders", p.Topic)
	assert.Equal(t, map[string]string{"amount": ">=10"}, p.Filters)
	assert.Equal(t, "alice", p.Search)
}

func TestStorePutKeepsCreatedAt(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "presets.json"))
	clock := time.Unix(100, 0)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Put(Preset{Name: "a", Topic: "orders"}))
	clock = time.Unix(200, 0)
	require.NoError(t, s.Put(Preset{Name: "a", Topic: "users"}))

	p, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(100), p.CreatedAt)
	assert.Equal(t, int64(200), p.UpdatedAt)
	assert.Equal(t, "users", p.Topic)
}

func TestStoreListAndDelete(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "presets.json"))
	require.NoError(t, s.Put(Preset{Name: "b"}))
	require.NoError(t, s.Put(Preset{Name: "a"}))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	require.NoError(t, s.Delete("a"))
	assert.ErrorIs(t, s.Delete("a"), ErrNotFound)
	assert.Len(t, s.List(), 1)
}

func TestStoreErrors(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "presets.json"))
	assert.ErrorIs(t, s.Put(Preset{Name: "  "}), ErrInvalidName)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	assert.Error(t, NewStore(path).Load())

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.NoError(t, NewStore(empty).Load())
}
