package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpen(t *testing.T) {
	ctx := context.Background()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "snapshots/cat.bow", []byte("hello world")))

	blob, err := store.Open(ctx, "snapshots/cat.bow")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(11), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))
}

func TestLocalStore_OpenNotFound(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_MappableZeroCopy(t *testing.T) {
	ctx := context.Background()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "blob", []byte("mapped")))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)

	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(data))
}

func TestLocalStore_CreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	w, err := store.Create(ctx, "staged")
	require.NoError(t, err)

	_, err = w.Write([]byte("data"))
	require.NoError(t, err)

	// Not visible until Close.
	_, err = store.Open(ctx, "staged")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "staged")
	require.NoError(t, err)
	defer blob.Close()

	data, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "staged", entries[0].Name())
}

func TestLocalStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "catalogs/a", []byte("a")))
	require.NoError(t, store.Put(ctx, "catalogs/b", []byte("b")))
	require.NoError(t, store.Put(ctx, "other/c", []byte("c")))

	names, err := store.List(ctx, "catalogs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"catalogs/a", "catalogs/b"}, names)

	require.NoError(t, store.Delete(ctx, "catalogs/a"))
	require.NoError(t, store.Delete(ctx, "catalogs/a")) // already gone

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"catalogs/b", "other/c"}, names)
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewLocalStore(filepath.Join(dir, "root"))
	require.NoError(t, err)

	err = store.Put(ctx, "../escape", []byte("x"))
	require.Error(t, err)
}
