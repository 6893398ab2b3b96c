package bowgo

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bowgo/persistence"
	"github.com/hupe1980/bowgo/rank"
	"github.com/hupe1980/bowgo/tfidf"
	"github.com/hupe1980/bowgo/vocab"
)

// Reserved keys of the snapshot layout. Documents cannot use them.
const (
	reservedKeyVocabulary = "vocabulary"
	reservedKeyGridRadius = "grid_radius"
	reservedKeyGridStep   = "grid_step"
)

func isReservedKey(key string) bool {
	switch key {
	case reservedKeyVocabulary, reservedKeyGridRadius, reservedKeyGridStep:
		return true
	}
	return false
}

// GridParams are opaque grid-sampling parameters carried alongside a catalog
// so query-side extraction can replicate the sampling the corpus was built
// with. The catalog never interprets them.
type GridParams struct {
	Radius float64
	Step   float64
}

// Catalog is a bag-of-visual-words retrieval catalog: documents are stored
// as term-frequency vectors over a fixed vocabulary and ranked by TF-IDF
// distance at query time.
//
// Mutations take an exclusive lock; queries share a read lock and may run
// fully parallel against a quiescent catalog.
type Catalog struct {
	mu          sync.RWMutex
	vocabulary  *vocab.Vocabulary
	quantizer   vocab.Quantizer
	stats       *tfidf.Stats
	docs        *docStore
	grid        *GridParams
	metric      rank.Metric
	parallelism int
	compression persistence.CompressionType
	source      DescriptorSource
	cache       DescriptorCache
	metrics     MetricsCollector
	logger      *Logger
}

// New creates a catalog over the given vocabulary. The vocabulary is
// immutable for the catalog's lifetime; growing or retraining it means
// building a new catalog.
func New(v *vocab.Vocabulary, optFns ...Option) (*Catalog, error) {
	opts := applyOptions(optFns)

	if v == nil {
		return nil, ErrEmptyVocabulary
	}

	quantizer, err := vocab.New(v, opts.quantizerOptions...)
	if err != nil {
		return nil, translateError(err)
	}

	return &Catalog{
		vocabulary:  v,
		quantizer:   quantizer,
		stats:       tfidf.NewStats(v.Words()),
		docs:        newDocStore(),
		metric:      opts.metric,
		parallelism: opts.parallelism,
		compression: opts.compression,
		source:      opts.source,
		cache:       opts.cache,
		metrics:     opts.metricsCollector,
		logger:      opts.logger,
	}, nil
}

// Add quantizes the descriptors and stores the resulting term-frequency
// vector under key. The key must be new and must not collide with a reserved
// key of the snapshot layout.
func (c *Catalog) Add(ctx context.Context, key string, descriptors [][]float32) error {
	start := time.Now()

	err := c.add(key, descriptors)

	duration := time.Since(start)
	c.metrics.RecordAdd(duration, err)
	c.logger.LogAdd(ctx, key, len(descriptors), err)

	return err
}

// AddTF stores a pre-quantized term-frequency vector under key. The vector
// is copied; the caller keeps ownership of the input.
func (c *Catalog) AddTF(ctx context.Context, key string, tf []float32) error {
	start := time.Now()

	var err error
	if len(tf) != c.quantizer.Words() {
		err = &ErrDimensionMismatch{Expected: c.quantizer.Words(), Actual: len(tf)}
	} else {
		err = c.addTF(key, append([]float32(nil), tf...))
	}

	duration := time.Since(start)
	c.metrics.RecordAdd(duration, err)
	c.logger.LogAdd(ctx, key, 0, err)

	return err
}

// add quantizes outside the write lock; the quantizer is immutable.
func (c *Catalog) add(key string, descriptors [][]float32) error {
	if isReservedKey(key) {
		return &ErrReservedKey{Key: key}
	}

	tf, err := c.quantizer.Quantize(descriptors)
	if err != nil {
		return translateError(err)
	}

	return c.addTF(key, tf)
}

// addTF takes ownership of tf and inserts it under the write lock.
func (c *Catalog) addTF(key string, tf []float32) error {
	if isReservedKey(key) {
		return &ErrReservedKey{Key: key}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docs.has(key) {
		return &ErrDuplicateKey{Key: key}
	}

	if err := c.stats.Observe(tf); err != nil {
		return translateError(err)
	}
	c.docs.put(key, tf)

	return nil
}

// Entry is one document for batch ingestion. Descriptors are quantized
// unless a pre-quantized TF vector is given; TF wins when both are set.
type Entry struct {
	Key         string
	Descriptors [][]float32
	TF          []float32
}

// BatchAddResult represents the result of a batch add.
type BatchAddResult struct {
	Added  []string // Keys of successfully added documents, in input order
	Errors []error  // Errors for failed documents (nil for successful)
}

// BatchAdd adds multiple documents. Quantization runs in parallel across
// entries; insertion is sequential in input order so statistics and
// tie-breaking stay deterministic. Failures are reported per entry.
func (c *Catalog) BatchAdd(ctx context.Context, entries []Entry) BatchAddResult {
	start := time.Now()

	result := BatchAddResult{
		Added:  make([]string, 0, len(entries)),
		Errors: make([]error, len(entries)),
	}

	vectors := make([][]float32, len(entries))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, entry := range entries {
		g.Go(func() error {
			if isReservedKey(entry.Key) {
				result.Errors[i] = &ErrReservedKey{Key: entry.Key}
				return nil
			}

			if entry.TF != nil {
				if len(entry.TF) != c.quantizer.Words() {
					result.Errors[i] = &ErrDimensionMismatch{Expected: c.quantizer.Words(), Actual: len(entry.TF)}
					return nil
				}
				vectors[i] = append([]float32(nil), entry.TF...)
				return nil
			}

			tf, err := c.quantizer.Quantize(entry.Descriptors)
			if err != nil {
				result.Errors[i] = translateError(err)
				return nil
			}
			vectors[i] = tf

			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	for i, entry := range entries {
		if result.Errors[i] != nil {
			continue
		}

		if c.docs.has(entry.Key) {
			result.Errors[i] = &ErrDuplicateKey{Key: entry.Key}
			continue
		}

		if err := c.stats.Observe(vectors[i]); err != nil {
			result.Errors[i] = translateError(err)
			continue
		}
		c.docs.put(entry.Key, vectors[i])
		result.Added = append(result.Added, entry.Key)
	}
	c.mu.Unlock()

	failed := len(entries) - len(result.Added)
	duration := time.Since(start)
	c.metrics.RecordBatchAdd(len(entries), failed, duration)
	c.logger.LogBatchAdd(ctx, len(entries), failed)

	return result
}

// Remove deletes the document stored under key.
//
// Corpus statistics are not rolled back: the removed document's contribution
// to document counts and IDF remains until the catalog is rebuilt or
// reloaded from a snapshot. Rankings stay well-defined, the weighting just
// reflects a corpus the document was once part of.
func (c *Catalog) Remove(ctx context.Context, key string) error {
	start := time.Now()

	var err error

	c.mu.Lock()
	if !c.docs.delete(key) {
		err = &ErrKeyNotFound{Key: key}
	}
	c.mu.Unlock()

	duration := time.Since(start)
	c.metrics.RecordRemove(duration, err)
	c.logger.LogRemove(ctx, key, err)

	return err
}

// Len returns the number of stored documents.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.docs.len()
}

// Has reports whether a document is stored under key.
func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.docs.has(key)
}

// Keys returns the stored document keys in insertion order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.docs.keyList()
}

// TF returns a copy of the term-frequency vector stored under key.
func (c *Catalog) TF(key string) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tf, ok := c.docs.get(key)
	if !ok {
		return nil, &ErrKeyNotFound{Key: key}
	}

	return append([]float32(nil), tf...), nil
}

// IDF returns the current IDF vector. Callers must not mutate the returned
// slice; it is shared with concurrent queries.
func (c *Catalog) IDF() []float32 {
	return c.stats.IDF()
}

// NumDocs returns the number of documents observed by the corpus statistics.
// Removed documents stay counted; see Remove.
func (c *Catalog) NumDocs() int {
	return c.stats.NumDocs()
}

// Vocabulary returns the catalog's vocabulary.
func (c *Catalog) Vocabulary() *vocab.Vocabulary {
	return c.vocabulary
}

// Metric returns the catalog's default distance metric.
func (c *Catalog) Metric() rank.Metric {
	return c.metric
}

// SetGridParams attaches grid-sampling parameters to the catalog. They are
// persisted with snapshots under the reserved keys.
func (c *Catalog) SetGridParams(p GridParams) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.grid = &p
}

// GridParams returns the attached grid-sampling parameters, if any.
func (c *Catalog) GridParams() (GridParams, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.grid == nil {
		return GridParams{}, false
	}
	return *c.grid, true
}
