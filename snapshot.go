package bowgo

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/hupe1980/bowgo/blobstore"
	"github.com/hupe1980/bowgo/persistence"
	"github.com/hupe1980/bowgo/vocab"
)

// snapshot captures the catalog state under the read lock. The returned
// snapshot shares slices with the catalog; vocabulary and stored TF
// vectors are immutable after insertion, so it stays valid while the
// caller serializes it.
func (c *Catalog) snapshot() *persistence.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := &persistence.Snapshot{
		Words:      c.vocabulary.Words(),
		Dim:        c.vocabulary.Dim(),
		Vocabulary: c.vocabulary.Flat(),
		Documents:  make([]persistence.Document, c.docs.len()),
	}

	if c.grid != nil {
		snap.HasGrid = true
		snap.GridRadius = c.grid.Radius
		snap.GridStep = c.grid.Step
	}

	for i := range snap.Documents {
		key, tf := c.docs.at(i)
		snap.Documents[i] = persistence.Document{Key: key, TF: tf}
	}

	return snap
}

// SaveToWriter serializes the catalog to w using the catalog's configured
// compression codec.
func (c *Catalog) SaveToWriter(w io.Writer) error {
	return persistence.Write(w, c.snapshot(), c.compression)
}

// SaveToFile persists the catalog to a file. The write is atomic: data
// goes to a temp file that is renamed into place after a successful sync.
func (c *Catalog) SaveToFile(filename string) error {
	start := time.Now()

	err := persistence.SaveToFile(filename, c.snapshot(), c.compression)

	c.metrics.RecordSnapshot(time.Since(start), err)
	c.logger.LogSnapshot(context.Background(), filename, err)

	return err
}

// SaveToBlob persists the catalog to a blob store under name. The data
// streams through the store's writable blob, so remote stores upload
// without buffering the whole snapshot.
func (c *Catalog) SaveToBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()

	err := c.saveToBlob(ctx, store, name)

	c.metrics.RecordSnapshot(time.Since(start), err)
	c.logger.LogSnapshot(ctx, name, err)

	return err
}

func (c *Catalog) saveToBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}

	if err := persistence.Write(w, c.snapshot(), c.compression); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// Load reads a catalog snapshot from r. Corpus statistics are rebuilt by
// replaying the stored documents, so IDF after a load reflects exactly
// the persisted corpus.
func Load(r io.Reader, optFns ...Option) (*Catalog, error) {
	snap, err := persistence.Read(r)
	if err != nil {
		return nil, err
	}

	return fromSnapshot(snap, optFns)
}

// LoadFromFile reads a catalog snapshot from a file.
func LoadFromFile(filename string, optFns ...Option) (*Catalog, error) {
	snap, err := persistence.LoadFromFile(filename)
	if err != nil {
		return nil, err
	}

	return fromSnapshot(snap, optFns)
}

// LoadFromBlob reads a catalog snapshot from a blob store. Memory-mapped
// local blobs decode without an extra copy of the raw bytes.
func LoadFromBlob(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Catalog, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return nil, err
	}

	snap, err := persistence.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return fromSnapshot(snap, optFns)
}

func fromSnapshot(snap *persistence.Snapshot, optFns []Option) (*Catalog, error) {
	v, err := vocab.FromFlat(snap.Vocabulary, snap.Dim)
	if err != nil {
		return nil, translateError(err)
	}

	c, err := New(v, optFns...)
	if err != nil {
		return nil, err
	}

	for _, doc := range snap.Documents {
		if err := c.addTF(doc.Key, doc.TF); err != nil {
			return nil, err
		}
	}

	if snap.HasGrid {
		c.grid = &GridParams{Radius: snap.GridRadius, Step: snap.GridStep}
	}

	return c, nil
}
