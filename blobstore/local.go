package blobstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/bowgo/internal/mmap"
)

// LocalStore implements BlobStore on a local directory. Reads are
// memory-mapped; writes publish atomically via temp-file-then-rename.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at the given directory,
// creating it if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

// path resolves a blob name inside the root, rejecting escapes.
func (s *LocalStore) path(name string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(name))
	if rel, err := filepath.Rel(s.root, p); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("blob name escapes store root: %q", name)
	}
	return p, nil
}

// Open opens a blob for reading via mmap.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	m, err := mmap.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// Create creates a writable blob. Data goes to a temp file in the target
// directory; Close syncs and renames it into place.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p)+".tmp-*")
	if err != nil {
		return nil, err
	}
	_ = tmp.Chmod(0644)

	return &localWritableBlob{f: tmp, target: p}, nil
}

// Put writes a complete blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Delete removes a blob. Deleting an absent blob is not an error.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns all blob names with the given prefix, sorted, using
// slash-separated names regardless of platform.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// localBlob implements Blob over a memory mapping.
type localBlob struct {
	m *mmap.File
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	size := int64(len(b.m.Data))
	if off >= size {
		return io.NopCloser(strings.NewReader("")), nil
	}
	end := off + length
	if end > size {
		end = size
	}
	return io.NopCloser(io.NewSectionReader(b.m, off, end-off)), nil
}

func (b *localBlob) Size() int64 {
	return int64(len(b.m.Data))
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

// Bytes implements Mappable: a zero-copy view valid until Close.
func (b *localBlob) Bytes() ([]byte, error) {
	return b.m.Data, nil
}

// localWritableBlob stages writes in a temp file and publishes on Close.
type localWritableBlob struct {
	f      *os.File
	target string
	failed bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		w.failed = true
	}
	return n, err
}

func (w *localWritableBlob) Sync() error {
	return w.f.Sync()
}

func (w *localWritableBlob) Close() error {
	tmpName := w.f.Name()

	if w.failed {
		_ = w.f.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("blob write failed; %q not published", w.target)
	}

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, w.target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(filepath.Dir(w.target)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}
