package ftstore

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/ftstore/internal/fs"
	"github.com/hupe1980/ftstore/internal/resource"
	"github.com/hupe1980/ftstore/pagecache"
	"github.com/hupe1980/ftstore/skiplist"
)

// DefaultMagicWord identifies index files written by this package.
const DefaultMagicWord = "ftstore-v1"

type options struct {
	magic           string
	pageSize        int
	poolSize        int
	cacheOptions    []pagecache.Option
	readHint        pagecache.Hint
	metrics         pagecache.MetricsCollector
	queryMetrics    QueryMetricsCollector
	logger          *Logger
	memoryLimit     int64
	prefetchIOLimit int64
	fsys            fs.FileSystem
}

// Option configures Open, OpenBlob and Build.
type Option func(*options)

func newOptions(optFns []Option) (options, error) {
	o := options{
		magic:    DefaultMagicWord,
		pageSize: pagecache.DefaultPageSize,
		poolSize: pagecache.DefaultPoolSize,
		fsys:     fs.Default,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.queryMetrics == nil {
		o.queryMetrics = NoopQueryMetricsCollector{}
	}

	switch {
	case o.pageSize < skiplist.BlockSize || o.pageSize&(o.pageSize-1) != 0:
		return o, fmt.Errorf("ftstore: page size %d is not a power of two of at least %d", o.pageSize, skiplist.BlockSize)
	case len(o.magic) > skiplist.MaxMagicLength:
		return o, fmt.Errorf("%w: %d bytes", skiplist.ErrMagicTooLong, len(o.magic))
	}
	return o, nil
}

// WithMagicWord sets the word written into and expected in the footer.
func WithMagicWord(magic string) Option {
	return func(o *options) {
		o.magic = magic
	}
}

// WithPageSize sets the cache page size. Build pads files to it, so an
// index must be opened with the page size it was built with, or a smaller
// one.
func WithPageSize(size int) Option {
	return func(o *options) {
		o.pageSize = size
	}
}

// WithPoolSize sets the number of cached pages.
func WithPoolSize(pages int) Option {
	return func(o *options) {
		o.poolSize = pages
	}
}

// WithCacheOptions passes options through to the page cache. They are
// applied after the options derived from this package's settings.
func WithCacheOptions(opts ...pagecache.Option) Option {
	return func(o *options) {
		o.cacheOptions = append(o.cacheOptions, opts...)
	}
}

// WithReadHint sets the page cache hint that readers from Index.Reader,
// Lookup, Retain and Reject fetch blocks with.
func WithReadHint(hint pagecache.Hint) Option {
	return func(o *options) {
		o.readHint = hint
	}
}

// WithMetrics sets the page cache metrics collector.
func WithMetrics(mc pagecache.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithQueryMetrics sets the collector for Lookup, Retain and Reject.
func WithQueryMetrics(mc QueryMetricsCollector) Option {
	return func(o *options) {
		o.queryMetrics = mc
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMemoryLimit caps the memory of the page arena in bytes. Opening an
// index whose pool does not fit fails.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithPrefetchIOLimit caps prefetch reads at bytesPerSec.
func WithPrefetchIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.prefetchIOLimit = bytesPerSec
	}
}

func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

func (o *options) cache() []pagecache.Option {
	opts := []pagecache.Option{
		pagecache.WithPageSize(o.pageSize),
		pagecache.WithPoolSize(o.poolSize),
		pagecache.WithLogger(o.logger.Logger),
	}
	if o.metrics != nil {
		opts = append(opts, pagecache.WithMetrics(o.metrics))
	}
	if o.memoryLimit > 0 || o.prefetchIOLimit > 0 {
		opts = append(opts, pagecache.WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:   o.memoryLimit,
			IOLimitBytesPerSec: o.prefetchIOLimit,
		})))
	}
	return append(opts, o.cacheOptions...)
}
