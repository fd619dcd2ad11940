package kmerdb

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/kmerdb/codec"
	"github.com/hupe1980/kmerdb/internal/format"
	"github.com/hupe1980/kmerdb/internal/store"
	"github.com/hupe1980/kmerdb/resource"
)

// Compression selects how Save encodes the record stream.
type Compression = format.Compression

const (
	CompressionNone = format.CompressionNone
	CompressionLZ4  = format.CompressionLZ4
	CompressionZstd = format.CompressionZstd
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	c, err := format.ParseCompression(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return c, nil
}

// ColorInfo is the per-sample metadata a graph file may carry.
type ColorInfo = format.ColorInfo

type options struct {
	expectedKmerSize int
	expectedColors   int
	colors           []int
	capacity         uint64
	loadFactor       float64
	metricsCollector MetricsCollector
	logger           *Logger
	rc               *resource.Controller
	source           string
	waitForMemory    bool
	size             int64 // input length in bytes, -1 if unknown
}

// Option configures Open, OpenBlob and Load.
type Option func(*options)

// WithExpectedKmerSize rejects files whose kmer size differs from k with a
// ParameterMismatchError. Zero accepts any kmer size.
func WithExpectedKmerSize(k int) Option {
	return func(o *options) {
		o.expectedKmerSize = k
	}
}

// WithExpectedColors rejects files whose colour count differs from n with a
// ParameterMismatchError. The check applies to the file, before any colour
// filter. Zero accepts any count.
func WithExpectedColors(n int) Option {
	return func(o *options) {
		o.expectedColors = n
	}
}

// WithColors loads only the listed file colours, renumbered in the given
// order: file colour colors[i] becomes graph colour i. Nodes present in none
// of the selected colours are dropped.
//
// A selected colour keeps its own edge colour when the file has one for it
// and has no edges otherwise. A single merged edge colour is shared by every
// selected colour.
func WithColors(colors ...int) Option {
	return func(o *options) {
		o.colors = append(make([]int, 0, len(colors)), colors...)
	}
}

// WithCapacity fixes the number of table slots instead of deriving it from
// the record count. Loads fail with ErrCapacityExceeded when the file does
// not fit.
func WithCapacity(capacity uint64) Option {
	return func(o *options) {
		o.capacity = capacity
	}
}

// WithLoadFactor sets the maximum fill ratio used to size the table
// (default 0.75). Ignored when WithCapacity is given.
func WithLoadFactor(f float64) Option {
	return func(o *options) {
		o.loadFactor = f
	}
}

// WithMetricsCollector configures a metrics collector for loads and queries.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &kmerdb.BasicMetricsCollector{}
//	g, _ := kmerdb.Open(ctx, "sample.kdbg", kmerdb.WithMetricsCollector(metrics))
//	// ... query g ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for loads and healthchecks.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := kmerdb.NewJSONLogger(slog.LevelInfo)
//	g, _ := kmerdb.Open(ctx, "sample.kdbg", kmerdb.WithLogger(logger))
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

// WithResourceController charges the table memory of the graph against rc,
// throttles reads by its IO limit and bounds concurrent loads. The memory is
// released by Graph.Close.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithWaitForMemory makes a load whose table does not fit the resource
// controller's memory budget wait until enough memory is released, or ctx is
// done, instead of failing with ErrMemoryLimitExceeded. Tables larger than
// the whole budget still fail at once.
func WithWaitForMemory() Option {
	return func(o *options) {
		o.waitForMemory = true
	}
}

// WithReadRateLimit throttles file reads to bytesPerSec. It installs a
// private resource controller unless WithResourceController is also given.
func WithReadRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		if o.rc == nil {
			o.rc = resource.NewController(resource.Config{IOLimitBytesPerSec: bytesPerSec})
		}
	}
}

// WithSource names the data being loaded in logs and LoadStats. Open and
// OpenBlob set it automatically.
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// withInputSize records the byte length of the input.
func withInputSize(n int64) Option {
	return func(o *options) {
		o.size = n
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := &options{
		loadFactor:       store.DefaultLoadFactor,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		size:             -1,
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}

	if o.expectedKmerSize < 0 {
		return nil, fmt.Errorf("%w: expected kmer size %d", ErrInvalidOption, o.expectedKmerSize)
	}
	if o.expectedColors < 0 {
		return nil, fmt.Errorf("%w: expected colours %d", ErrInvalidOption, o.expectedColors)
	}
	if o.loadFactor <= 0 || o.loadFactor > 1 {
		return nil, fmt.Errorf("%w: load factor %v not in (0,1]", ErrInvalidOption, o.loadFactor)
	}
	if o.capacity > store.MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalidOption, o.capacity, uint64(store.MaxCapacity))
	}
	if o.colors != nil && len(o.colors) == 0 {
		return nil, fmt.Errorf("%w: empty colour selection", ErrInvalidOption)
	}
	seen := make(map[int]struct{}, len(o.colors))
	for _, c := range o.colors {
		if c < 0 {
			return nil, fmt.Errorf("%w: colour %d", ErrInvalidOption, c)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: colour %d selected twice", ErrInvalidOption, c)
		}
		seen[c] = struct{}{}
	}
	return o, nil
}

type saveOptions struct {
	compression Compression
	codec       codec.Codec
	colors      []ColorInfo
	logger      *Logger
	rc          *resource.Controller
}

// SaveOption configures Save, SaveFile and SaveBlob.
type SaveOption func(*saveOptions)

// WithCompression selects the record stream encoding. Default: none.
func WithCompression(c Compression) SaveOption {
	return func(o *saveOptions) {
		o.compression = c
	}
}

// WithInfoCodec selects the codec for the colour info block.
// If nil is passed, codec.Default is used.
func WithInfoCodec(c codec.Codec) SaveOption {
	return func(o *saveOptions) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithColorInfo replaces the colour metadata written to the file. It must
// be empty or hold one entry per graph colour.
func WithColorInfo(colors ...ColorInfo) SaveOption {
	return func(o *saveOptions) {
		o.colors = append([]ColorInfo(nil), colors...)
	}
}

// WithSaveLogger configures structured logging for saves.
func WithSaveLogger(logger *Logger) SaveOption {
	return func(o *saveOptions) {
		o.logger = logger
	}
}

// WithWriteResourceController throttles writes by the IO limit of rc.
func WithWriteResourceController(rc *resource.Controller) SaveOption {
	return func(o *saveOptions) {
		o.rc = rc
	}
}
