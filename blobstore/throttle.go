package blobstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// ThrottledStore wraps a BlobStore and limits aggregate read and write
// throughput in bytes per second. Useful to keep snapshot transfers from
// saturating shared links.
type ThrottledStore struct {
	inner   BlobStore
	limiter *rate.Limiter
}

// NewThrottledStore creates a ThrottledStore. bytesPerSec <= 0 disables
// throttling.
func NewThrottledStore(inner BlobStore, bytesPerSec int64) *ThrottledStore {
	var limiter *rate.Limiter
	if bytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))
	}
	return &ThrottledStore{
		inner:   inner,
		limiter: limiter,
	}
}

// wait reserves n bytes of bandwidth, blocking until available. Requests
// larger than the limiter's burst are split.
func (s *ThrottledStore) wait(ctx context.Context, n int) error {
	if s.limiter == nil || n <= 0 {
		return nil
	}

	burst := s.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := s.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func (s *ThrottledStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{inner: b, store: s}, nil
}

func (s *ThrottledStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledWritableBlob{inner: w, store: s, ctx: ctx}, nil
}

func (s *ThrottledStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.wait(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

func (s *ThrottledStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

func (s *ThrottledStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type throttledBlob struct {
	inner Blob
	store *ThrottledStore
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.store.wait(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.inner.ReadAt(ctx, p, off)
}

func (b *throttledBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	rc, err := b.inner.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return &throttledReadCloser{inner: rc, store: b.store, ctx: ctx}, nil
}

func (b *throttledBlob) Size() int64 {
	return b.inner.Size()
}

func (b *throttledBlob) Close() error {
	return b.inner.Close()
}

type throttledReadCloser struct {
	inner io.ReadCloser
	store *ThrottledStore
	ctx   context.Context
}

func (r *throttledReadCloser) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		if waitErr := r.store.wait(r.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

func (r *throttledReadCloser) Close() error {
	return r.inner.Close()
}

type throttledWritableBlob struct {
	inner WritableBlob
	store *ThrottledStore
	ctx   context.Context
}

func (w *throttledWritableBlob) Write(p []byte) (int, error) {
	if err := w.store.wait(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.inner.Write(p)
}

func (w *throttledWritableBlob) Sync() error {
	return w.inner.Sync()
}

func (w *throttledWritableBlob) Close() error {
	return w.inner.Close()
}
