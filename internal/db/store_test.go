package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, MaintenanceKey)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should not contain the key")

	require.NoError(t, store.Set(ctx, MaintenanceKey, []byte(`[]`)))
	require.NoError(t, store.Set(ctx, MaintenanceKey, []byte(`[{"id":"a"}]`)))

	got, ok, err := store.Get(ctx, MaintenanceKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))

	_, ok, err = store.Get(ctx, WarrantyKey)
	require.NoError(t, err)
	assert.False(t, ok, "keys are independent")

	require.NoError(t, store.Delete(ctx, MaintenanceKey))
	require.NoError(t, store.Delete(ctx, MaintenanceKey), "deleting twice is fine")
	_, ok, err = store.Get(ctx, MaintenanceKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Close(ctx))
	assert.ErrorIs(t, store.Set(ctx, WarrantyKey, []byte(`[]`)), ErrClosed)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	value := []byte(`[1]`)
	require.NoError(t, store.Set(ctx, "k", value))
	value[1] = '2'

	got, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, WarrantyKey, []byte(`[{"id":"w1"}]`)))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	got, ok, err := second.Get(ctx, WarrantyKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"w1"}]`, string(got))

	_, err = os.Stat(filepath.Join(dir, WarrantyKey+".json"))
	assert.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary files should be renamed away")
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	err = store.Set(context.Background(), "../escape", []byte(`x`))
	assert.Error(t, err)
}

func TestFileStore_CancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Set(ctx, MaintenanceKey, []byte(`[]`)), context.Canceled)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Options{Driver: "redis"})
	assert.Error(t, err)
}
