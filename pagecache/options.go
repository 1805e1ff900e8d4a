package pagecache

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/ftstore/internal/resource"
)

const (
	// DefaultPageSize matches the skip-list block size.
	DefaultPageSize = 512
	// DefaultPoolSize is the number of pages in the arena.
	DefaultPoolSize = 64
	// DefaultAlignment is the boundary every requested address must sit on.
	DefaultAlignment = 512
	// DefaultPrefetchWorkers is the number of prefetch goroutines.
	DefaultPrefetchWorkers = 2
	// DefaultPrefetchQueue is the capacity of the prefetch hint queue.
	DefaultPrefetchQueue = 16
	// DefaultMonitorInterval is how often cache statistics are logged.
	DefaultMonitorInterval = 30 * time.Second
	// DefaultCloseTimeout bounds how long Close waits for pinned pages.
	DefaultCloseTimeout = 30 * time.Second
)

type options struct {
	pageSize        int
	poolSize        int
	alignment       int
	prefetchWorkers int
	prefetchQueue   int
	monitorInterval time.Duration
	closeTimeout    time.Duration
	synchronous     bool
	logger          *slog.Logger
	metrics         MetricsCollector
	rc              *resource.Controller
}

// Option configures a Cache.
type Option func(*options)

func defaultOptions() options {
	return options{
		pageSize:        DefaultPageSize,
		poolSize:        DefaultPoolSize,
		alignment:       DefaultAlignment,
		prefetchWorkers: DefaultPrefetchWorkers,
		prefetchQueue:   DefaultPrefetchQueue,
		monitorInterval: DefaultMonitorInterval,
		closeTimeout:    DefaultCloseTimeout,
	}
}

// WithPageSize sets the page size in bytes. It must be a power of two and a
// multiple of the alignment.
func WithPageSize(size int) Option {
	return func(o *options) {
		o.pageSize = size
	}
}

// WithPoolSize sets the number of pages held in memory.
func WithPoolSize(pages int) Option {
	return func(o *options) {
		o.poolSize = pages
	}
}

// WithAlignment sets the boundary requested addresses must be aligned to.
func WithAlignment(alignment int) Option {
	return func(o *options) {
		o.alignment = alignment
	}
}

// WithPrefetchWorkers sets the number of prefetch goroutines.
// Zero disables prefetching; hints are then dropped.
func WithPrefetchWorkers(n int) Option {
	return func(o *options) {
		o.prefetchWorkers = n
	}
}

// WithPrefetchQueue sets the capacity of the prefetch hint queue.
func WithPrefetchQueue(n int) Option {
	return func(o *options) {
		o.prefetchQueue = n
	}
}

// WithMonitorInterval sets how often statistics are logged. Zero disables
// the monitor.
func WithMonitorInterval(d time.Duration) Option {
	return func(o *options) {
		o.monitorInterval = d
	}
}

// WithCloseTimeout bounds how long Close waits for callers to release
// their pages. Zero waits indefinitely.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) {
		o.closeTimeout = d
	}
}

// WithSynchronousReclaim runs eviction inline on the miss path instead of in
// a background goroutine. A miss then only evicts when the free queue is
// empty, which suits single-threaded tools and deterministic tests.
func WithSynchronousReclaim() Option {
	return func(o *options) {
		o.synchronous = true
	}
}

// WithLogger sets the logger. Nil discards log output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithResourceController charges the arena to rc and paces prefetch reads
// with its background and IO limits.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func (o *options) validate() error {
	switch {
	case o.alignment <= 0 || o.alignment&(o.alignment-1) != 0:
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidConfig, o.alignment)
	case o.pageSize <= 0 || o.pageSize&(o.pageSize-1) != 0:
		return fmt.Errorf("%w: page size %d is not a power of two", ErrInvalidConfig, o.pageSize)
	case o.pageSize%o.alignment != 0:
		return fmt.Errorf("%w: page size %d is not a multiple of alignment %d", ErrInvalidConfig, o.pageSize, o.alignment)
	case o.poolSize <= 0:
		return fmt.Errorf("%w: pool size %d", ErrInvalidConfig, o.poolSize)
	case o.prefetchWorkers < 0 || o.prefetchQueue < 0:
		return fmt.Errorf("%w: negative prefetch settings", ErrInvalidConfig)
	case o.closeTimeout < 0:
		return fmt.Errorf("%w: close timeout %v", ErrInvalidConfig, o.closeTimeout)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	return nil
}
