package bowgo

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bowgo/rank"
)

// MultiCatalog composes independently built catalogs, one per descriptor
// modality, into a single queryable unit. Each query ranks every modality
// and fuses the rankings by the min rule, so a document matching strongly
// in one modality ranks well overall.
//
// Fusion requires the attached catalogs to hold the same document keys;
// queries against diverged catalogs fail with ErrKeySetMismatch.
type MultiCatalog struct {
	mu       sync.RWMutex
	names    []string // attachment order, for deterministic fan-out
	catalogs map[string]*Catalog
}

// NewMultiCatalog creates an empty multi-modality catalog.
func NewMultiCatalog() *MultiCatalog {
	return &MultiCatalog{
		catalogs: make(map[string]*Catalog),
	}
}

// Attach adds a catalog under a modality name. Attaching a name twice is an
// error.
func (mc *MultiCatalog) Attach(name string, c *Catalog) error {
	if c == nil {
		return ErrEmptyVocabulary
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.catalogs[name]; ok {
		return &ErrDuplicateKey{Key: name}
	}
	mc.names = append(mc.names, name)
	mc.catalogs[name] = c

	return nil
}

// Catalog returns the catalog attached under name.
func (mc *MultiCatalog) Catalog(name string) (*Catalog, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	c, ok := mc.catalogs[name]
	return c, ok
}

// Names returns the attached modality names in attachment order.
func (mc *MultiCatalog) Names() []string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]string(nil), mc.names...)
}

// Add inserts one document into every attached catalog, one descriptor
// batch per modality. The input names must exactly match the attached
// modalities; nothing is inserted on a mismatch. Per-catalog failures are
// returned as soon as they occur, so callers should treat a failed Add as a
// catalog set needing repair.
func (mc *MultiCatalog) Add(ctx context.Context, key string, descriptors map[string][][]float32) error {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if err := checkModalityNames(mc.names, mc.catalogs, descriptors); err != nil {
		return err
	}

	for _, name := range mc.names {
		if err := mc.catalogs[name].Add(ctx, key, descriptors[name]); err != nil {
			return err
		}
	}

	return nil
}

// Query ranks every modality with its own descriptor batch and fuses the
// rankings by the min rule. The input names must exactly match the attached
// modalities. All rankings share one metric so the fused distances are
// comparable: the metric the attached catalogs were configured with, or
// cosine when their configurations diverge; QueryOptions overrides it.
// Limit applies to the fused ranking; every per-modality ranking is
// computed in full because fusion needs complete key coverage.
func (mc *MultiCatalog) Query(ctx context.Context, descriptors map[string][][]float32, optFns ...func(o *QueryOptions)) ([]rank.Match, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if err := checkModalityNames(mc.names, mc.catalogs, descriptors); err != nil {
		return nil, err
	}

	return mc.fusedQuery(ctx, optFns, func(ctx context.Context, name string, opts QueryOptions) ([]rank.Match, error) {
		return mc.catalogs[name].Query(ctx, descriptors[name], func(o *QueryOptions) {
			o.Metric = opts.Metric
		})
	})
}

// QueryTF is Query for pre-quantized term-frequency vectors, one per
// modality.
func (mc *MultiCatalog) QueryTF(ctx context.Context, tfs map[string][]float32, optFns ...func(o *QueryOptions)) ([]rank.Match, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if err := checkModalityNames(mc.names, mc.catalogs, tfs); err != nil {
		return nil, err
	}

	return mc.fusedQuery(ctx, optFns, func(ctx context.Context, name string, opts QueryOptions) ([]rank.Match, error) {
		return mc.catalogs[name].QueryTF(ctx, tfs[name], func(o *QueryOptions) {
			o.Metric = opts.Metric
		})
	})
}

// fusedQuery fans out one full ranking per modality in attachment order and
// min-fuses them. Callers hold the read lock.
func (mc *MultiCatalog) fusedQuery(ctx context.Context, optFns []func(o *QueryOptions), queryOne func(ctx context.Context, name string, opts QueryOptions) ([]rank.Match, error)) ([]rank.Match, error) {
	opts := QueryOptions{Metric: mc.fusedMetric()}
	for _, fn := range optFns {
		fn(&opts)
	}

	rankings := make([][]rank.Match, len(mc.names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range mc.names {
		g.Go(func() error {
			// Full per-modality rankings; the fused Limit is applied after.
			matches, err := queryOne(gctx, name, opts)
			if err != nil {
				return err
			}
			rankings[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused, err := rank.Fuse(rankings...)
	if err != nil {
		return nil, translateError(err)
	}

	if opts.Limit > 0 && opts.Limit < len(fused) {
		fused = fused[:opts.Limit]
	}

	return fused, nil
}

// fusedMetric is the default metric of a fused query: the metric every
// attached catalog was configured with, falling back to cosine when the
// configurations diverge. Callers hold the read lock.
func (mc *MultiCatalog) fusedMetric() rank.Metric {
	if len(mc.names) == 0 {
		return rank.MetricCosine
	}

	m := mc.catalogs[mc.names[0]].Metric()
	for _, name := range mc.names[1:] {
		if mc.catalogs[name].Metric() != m {
			return rank.MetricCosine
		}
	}

	return m
}

// checkModalityNames verifies that the input map covers exactly the
// attached modality names. Callers hold the read lock.
func checkModalityNames[V any](names []string, catalogs map[string]*Catalog, inputs map[string]V) error {
	var missing, extra []string

	for _, name := range names {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range inputs {
		if _, ok := catalogs[name]; !ok {
			extra = append(extra, name)
		}
	}

	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)

		return &ErrKeySetMismatch{Missing: missing, Extra: extra}
	}

	return nil
}
