package ftstore

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/ftstore/pagecache"
)

// Logger wraps slog.Logger with ftstore-specific fields and operation
// helpers, so every component logs with the same keys.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler writing to stderr at Info is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithPath adds the index file path.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// WithAddress adds a list or page address.
func (l *Logger) WithAddress(address int64) *Logger {
	return &Logger{Logger: l.Logger.With("address", address)}
}

// LogOpen logs opening an index.
func (l *Logger) LogOpen(ctx context.Context, size int64, pageSize int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed", "error", err)
		return
	}
	l.InfoContext(ctx, "index opened",
		"size", size,
		"page_size", pageSize,
	)
}

// LogSwap logs replacing the file behind an open index.
func (l *Logger) LogSwap(ctx context.Context, from, to string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "swap failed",
			"from", from,
			"to", to,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index swapped",
		"from", from,
		"to", to,
	)
}

// LogBuild logs the outcome of an index build.
func (l *Logger) LogBuild(ctx context.Context, lists int, records int64, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"lists", lists,
			"records", records,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index built",
		"lists", lists,
		"records", records,
		"size", size,
	)
}

// LogClose logs closing an index with its final cache statistics.
func (l *Logger) LogClose(ctx context.Context, stats pagecache.Stats, err error) {
	attrs := []any{
		"disk_reads", stats.DiskReads,
		"cache_reads", stats.CacheReads,
		"evictions", stats.Evictions,
	}
	if err != nil {
		l.ErrorContext(ctx, "close failed", append(attrs, "error", err)...)
		return
	}
	l.DebugContext(ctx, "index closed", attrs...)
}
