package bowgo

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/bowgo/persistence"
	"github.com/hupe1980/bowgo/rank"
	"github.com/hupe1980/bowgo/vocab"
)

type options struct {
	quantizerOptions []func(*vocab.Options)
	metric           rank.Metric
	parallelism      int
	compression      persistence.CompressionType
	source           DescriptorSource
	cache            DescriptorCache
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures catalog constructor/load behavior.
type Option func(*options)

// WithQuantizerOptions configures the quantizer backing the catalog
// (exact-scan threshold, forest shape, seed).
//
// Example:
//
//	catalog, _ := bowgo.New(v, bowgo.WithQuantizerOptions(func(o *vocab.Options) {
//	    o.NumTrees = 10
//	}))
func WithQuantizerOptions(optFns ...func(*vocab.Options)) Option {
	return func(o *options) {
		o.quantizerOptions = append(o.quantizerOptions, optFns...)
	}
}

// WithMetric configures the default distance metric for queries.
// Individual queries can still override it per call.
func WithMetric(m rank.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithParallelism caps the number of goroutines used for parallel
// quantization and query fan-out. Values below 1 fall back to GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithCompression configures the block compression codec used when the
// catalog is saved. Loading is self-describing and ignores this setting.
func WithCompression(ct persistence.CompressionType) Option {
	return func(o *options) {
		o.compression = ct
	}
}

// WithDescriptorSource configures the extractor QueryPath falls back to when
// no cached descriptor file exists for an image.
func WithDescriptorSource(s DescriptorSource) Option {
	return func(o *options) {
		o.source = s
	}
}

// WithDescriptorCache configures the cache QueryPath consults before
// extracting descriptors from the image itself.
func WithDescriptorCache(c DescriptorCache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bowgo.BasicMetricsCollector{}
//	catalog, _ := bowgo.New(v, bowgo.WithMetricsCollector(metrics))
//	// ... use catalog ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bowgo.NewJSONLogger(slog.LevelInfo)
//	catalog, _ := bowgo.New(v, bowgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metric:           rank.MetricCosine,
		parallelism:      runtime.GOMAXPROCS(0),
		compression:      persistence.CompressionNone,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.parallelism < 1 {
		o.parallelism = runtime.GOMAXPROCS(0)
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}

	return o
}
