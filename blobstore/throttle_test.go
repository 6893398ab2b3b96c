package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledStore_Passthrough(t *testing.T) {
	ctx := context.Background()

	inner := NewMemoryStore()
	store := NewThrottledStore(inner, 1<<20)

	require.NoError(t, store.Put(ctx, "blob", []byte("hello world")))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(11), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"blob"}, names)
}

func TestThrottledStore_Disabled(t *testing.T) {
	ctx := context.Background()

	store := NewThrottledStore(NewMemoryStore(), 0)

	// No limiter: even a large write completes immediately.
	require.NoError(t, store.Put(ctx, "big", make([]byte, 1<<20)))
}

func TestThrottledStore_LimitsThroughput(t *testing.T) {
	ctx := context.Background()

	// 1KB burst at 1KB/s: a 1.5KB write is split into a full burst plus a
	// chunk that has to wait for refill.
	inner := NewMemoryStore()
	store := NewThrottledStore(inner, 1024)

	data := make([]byte, 1536)
	for i := range data {
		data[i] = byte(i)
	}

	start := time.Now()
	require.NoError(t, store.Put(ctx, "big", data))
	assert.Greater(t, time.Since(start), 250*time.Millisecond)

	// Read back through the unthrottled inner store.
	blob, err := inner.Open(ctx, "big")
	require.NoError(t, err)
	defer blob.Close()

	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestThrottledStore_ContextCancel(t *testing.T) {
	store := NewThrottledStore(NewMemoryStore(), 1024)

	// Drain the burst so the next write must wait, then cancel.
	require.NoError(t, store.Put(context.Background(), "first", make([]byte, 1024)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, "second", make([]byte, 1024))
	require.Error(t, err)
}
