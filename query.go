package bowgo

import (
	"context"
	"iter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bowgo/rank"
	"github.com/hupe1980/bowgo/tfidf"
)

// parallelRankThreshold is the catalog size above which the distance fan-out
// runs across goroutines. Below it the per-goroutine overhead dominates.
const parallelRankThreshold = 256

// QueryOptions contains per-query options.
type QueryOptions struct {
	// Metric overrides the catalog's default distance metric.
	Metric rank.Metric

	// Limit caps the number of returned matches. Zero means the full
	// ranking.
	Limit int
}

// Query quantizes the descriptors and ranks every stored document against
// them, ascending by distance. Ties keep insertion order. An empty catalog
// returns an empty ranking.
func (c *Catalog) Query(ctx context.Context, descriptors [][]float32, optFns ...func(o *QueryOptions)) ([]rank.Match, error) {
	opts := c.queryOptions(optFns)

	start := time.Now()

	matches, err := c.query(ctx, descriptors, nil, opts)

	duration := time.Since(start)
	c.metrics.RecordQuery(opts.Limit, duration, err)
	c.logger.LogQuery(ctx, opts.Metric.String(), opts.Limit, len(matches), err)

	return matches, err
}

// QueryTF ranks every stored document against a pre-quantized
// term-frequency vector.
func (c *Catalog) QueryTF(ctx context.Context, tf []float32, optFns ...func(o *QueryOptions)) ([]rank.Match, error) {
	opts := c.queryOptions(optFns)

	start := time.Now()

	matches, err := c.query(ctx, nil, tf, opts)

	duration := time.Since(start)
	c.metrics.RecordQuery(opts.Limit, duration, err)
	c.logger.LogQuery(ctx, opts.Metric.String(), opts.Limit, len(matches), err)

	return matches, err
}

// QueryPath resolves descriptors for an image path through the descriptor
// cache (filtered to the ROI) or the descriptor source, then ranks. A nil
// roi queries the whole image.
func (c *Catalog) QueryPath(ctx context.Context, path string, roi *ROI, optFns ...func(o *QueryOptions)) ([]rank.Match, error) {
	opts := c.queryOptions(optFns)

	start := time.Now()

	var matches []rank.Match

	descriptors, err := c.loadDescriptors(ctx, path, roi)
	if err == nil {
		matches, err = c.query(ctx, descriptors, nil, opts)
	}

	duration := time.Since(start)
	c.metrics.RecordQuery(opts.Limit, duration, err)
	c.logger.LogQuery(ctx, opts.Metric.String(), opts.Limit, len(matches), err)

	return matches, err
}

// QueryStream returns an iterator over the ranked matches, nearest first.
// Stop iterating to terminate early; the ranking itself is computed up
// front, so early termination saves delivery, not distance work.
func (c *Catalog) QueryStream(ctx context.Context, descriptors [][]float32, optFns ...func(o *QueryOptions)) iter.Seq2[rank.Match, error] {
	return func(yield func(rank.Match, error) bool) {
		matches, err := c.Query(ctx, descriptors, optFns...)
		if err != nil {
			yield(rank.Match{}, err)
			return
		}

		for _, m := range matches {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (c *Catalog) queryOptions(optFns []func(o *QueryOptions)) QueryOptions {
	opts := QueryOptions{
		Metric: c.metric,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}

// query ranks either a descriptor batch or a raw TF vector. Exactly one of
// descriptors/queryTF is set.
func (c *Catalog) query(ctx context.Context, descriptors [][]float32, queryTF []float32, opts QueryOptions) ([]rank.Match, error) {
	distance, err := rank.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	if queryTF == nil {
		// Quantization runs outside the read lock; the quantizer is
		// immutable.
		if queryTF, err = c.quantizer.Quantize(descriptors); err != nil {
			return nil, translateError(err)
		}
	} else if len(queryTF) != c.quantizer.Words() {
		return nil, &ErrDimensionMismatch{Expected: c.quantizer.Words(), Actual: len(queryTF)}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.docs.len() == 0 {
		return []rank.Match{}, nil
	}

	// One IDF snapshot for the whole ranking. Published IDF slices are
	// immutable, so every candidate is weighted against the same corpus
	// state even if a writer sneaks in behind the RLock.
	idf := c.stats.IDF()
	weighted := tfidf.Weigh(queryTF, idf)

	matches := make([]rank.Match, c.docs.len())

	if c.docs.len() < parallelRankThreshold || c.parallelism <= 1 {
		scratch := make([]float32, len(idf))
		for i := range matches {
			key, tf := c.docs.at(i)
			matches[i] = rank.Match{
				Key:      key,
				Distance: distance(weighted, tfidf.WeighInto(scratch, tf, idf)),
			}
		}
	} else {
		// Fan out across contiguous chunks; each worker writes its own
		// index range, so the insertion-ordered result needs no merge.
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(c.parallelism)

		chunk := (c.docs.len() + c.parallelism - 1) / c.parallelism
		for lo := 0; lo < c.docs.len(); lo += chunk {
			hi := min(lo+chunk, c.docs.len())

			g.Go(func() error {
				scratch := make([]float32, len(idf))
				for i := lo; i < hi; i++ {
					key, tf := c.docs.at(i)
					matches[i] = rank.Match{
						Key:      key,
						Distance: distance(weighted, tfidf.WeighInto(scratch, tf, idf)),
					}
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return rank.SelectK(matches, opts.Limit), nil
}
