package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
)

const defaultCacheBlockSize = 64 * 1024

// CachingStore wraps a BlobStore and caches fixed-size blocks of blob
// data. Snapshot blobs are immutable once written, so Put and Delete
// invalidate all cached blocks of the affected blob.
type CachingStore struct {
	inner     BlobStore
	cache     BlockCache
	blockSize int64
}

// NewCachingStore creates a CachingStore. blockSize defaults to 64KB
// if <= 0.
func NewCachingStore(inner BlobStore, cache BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = defaultCacheBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache,
		blockSize: blockSize,
	}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key blockKey) bool {
		return key.name == name
	})
}

// CachingBlob serves reads from the block cache, fetching missing
// blocks from the inner blob.
type CachingBlob struct {
	inner     Blob
	cache     BlockCache
	name      string
	blockSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(p)) - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	totalRead := 0

	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize

		// Intersection of this block with the requested range.
		intersectStart := max(blkStart, off)
		intersectEnd := min(blkStart+b.blockSize, off+int64(len(p)))
		if intersectEnd <= intersectStart {
			continue
		}

		blockData, err := b.fetchBlock(ctx, blk)
		if err != nil {
			return totalRead, err
		}

		srcOffset := intersectStart - blkStart
		if srcOffset >= int64(len(blockData)) {
			break
		}

		copySize := intersectEnd - intersectStart
		if srcOffset+copySize > int64(len(blockData)) {
			copySize = int64(len(blockData)) - srcOffset
		}

		dstOffset := intersectStart - off
		totalRead += copy(p[dstOffset:dstOffset+copySize], blockData[srcOffset:])
	}

	if totalRead < len(p) {
		return totalRead, io.EOF
	}
	return totalRead, nil
}

func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(&contextSectionReader{blob: b, ctx: ctx, off: off, limit: off + length}), nil
}

// fillCache fetches all missing blocks in [startBlock, endBlock],
// coalescing contiguous missing runs into single backend reads.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type run struct {
		start, count int64
	}

	var missing []run
	runStart := int64(-1)
	runCount := int64(0)

	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(blockKey{name: b.name, block: blk}); ok {
			if runStart != -1 {
				missing = append(missing, run{runStart, runCount})
				runStart = -1
			}
			continue
		}
		if runStart == -1 {
			runStart = blk
			runCount = 1
		} else {
			runCount++
		}
	}
	if runStart != -1 {
		missing = append(missing, run{runStart, runCount})
	}

	if len(missing) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, r := range missing {
		g.Go(func() error {
			byteStart := r.start * b.blockSize
			byteSize := r.count * b.blockSize

			fileSize := b.Size()
			if byteStart >= fileSize {
				return nil
			}
			if byteStart+byteSize > fileSize {
				byteSize = fileSize - byteStart
			}

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(ctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if n == 0 {
				return nil
			}

			valid := buf[:n]

			for i := int64(0); i < r.count; i++ {
				offsetInRun := i * b.blockSize
				if offsetInRun >= int64(len(valid)) {
					break
				}

				endInRun := min(offsetInRun+b.blockSize, int64(len(valid)))

				// Copy so the cache does not pin the full run buffer.
				block := make([]byte, endInRun-offsetInRun)
				copy(block, valid[offsetInRun:endInRun])

				b.cache.Set(blockKey{name: b.name, block: r.start + i}, block)
			}
			return nil
		})
	}

	return g.Wait()
}

func (b *CachingBlob) fetchBlock(ctx context.Context, blk int64) ([]byte, error) {
	key := blockKey{name: b.name, block: blk}

	if data, ok := b.cache.Get(key); ok {
		return data, nil
	}

	buf := make([]byte, b.blockSize)
	n, err := b.inner.ReadAt(ctx, buf, blk*b.blockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	valid := buf[:n]
	if n > 0 {
		b.cache.Set(key, valid)
	}
	return valid, nil
}

// contextSectionReader adapts a CachingBlob to io.Reader over a range,
// threading the caller's context through each read.
type contextSectionReader struct {
	blob  *CachingBlob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *contextSectionReader) Read(p []byte) (n int, err error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err = r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return
}
