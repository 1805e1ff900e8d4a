package ftstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/ftstore/blobstore"
	"github.com/hupe1980/ftstore/internal/mmap"
	"github.com/hupe1980/ftstore/pagecache"
	"github.com/hupe1980/ftstore/skiplist"
)

// Index is an open index file: a page cache over a validated file holding
// skip lists. Lists are addressed by the offsets Builder.Add returned.
//
// An Index is safe for concurrent use. Readers it hands out are not; use
// one reader per goroutine.
type Index struct {
	opts   options
	logger *Logger
	cache  *pagecache.Cache

	mu     sync.Mutex // serializes Swap and Close
	name   string
	closed bool
}

// Open validates the footer of the index file at path and opens it behind
// a page cache.
func Open(ctx context.Context, path string, optFns ...Option) (*Index, error) {
	opts, err := newOptions(optFns)
	if err != nil {
		return nil, err
	}
	logger := opts.logger.WithPath(path)

	src, err := openFileSource(ctx, path, &opts)
	if err != nil {
		logger.LogOpen(ctx, 0, opts.pageSize, err)
		return nil, err
	}
	return newIndex(ctx, path, src, opts, logger)
}

// OpenBlob opens the index stored as name in store. Pages are read with
// ctx, so cancelling it fails every later cache miss.
func OpenBlob(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Index, error) {
	opts, err := newOptions(optFns)
	if err != nil {
		return nil, err
	}
	logger := opts.logger.WithPath(name)

	src, err := openBlobSource(ctx, store, name, &opts)
	if err != nil {
		logger.LogOpen(ctx, 0, opts.pageSize, err)
		return nil, err
	}
	return newIndex(ctx, name, src, opts, logger)
}

func newIndex(ctx context.Context, name string, src pagecache.Source, opts options, logger *Logger) (*Index, error) {
	cache, err := pagecache.New(src, opts.cache()...)
	if err != nil {
		_ = src.Close()
		logger.LogOpen(ctx, src.Size(), opts.pageSize, err)
		return nil, err
	}

	logger.LogOpen(ctx, src.Size(), opts.pageSize, nil)
	return &Index{
		opts:   opts,
		logger: logger,
		cache:  cache,
		name:   name,
	}, nil
}

func openFileSource(ctx context.Context, path string, opts *options) (pagecache.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := pagecache.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ftstore: open %s: %w", path, err)
	}
	if err := checkSource(path, src, opts); err != nil {
		_ = src.Close()
		return nil, err
	}
	return src, nil
}

func openBlobSource(ctx context.Context, store blobstore.BlobStore, name string, opts *options) (pagecache.Source, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ftstore: open blob %s: %w", name, err)
	}

	src := pagecache.NewBlobSource(ctx, blob)
	if err := checkSource(name, src, opts); err != nil {
		_ = src.Close()
		return nil, err
	}
	return src, nil
}

// checkSource validates the footer through the source itself, so a file
// opened for direct I/O is read with page-aligned requests only.
func checkSource(name string, src pagecache.Source, opts *options) error {
	size := src.Size()
	if size%int64(opts.pageSize) != 0 {
		return fmt.Errorf("%w: %s: size %d is not a multiple of page size %d", ErrBadFooter, name, size, opts.pageSize)
	}

	// Direct I/O needs an aligned buffer; the arena provides one.
	arena, err := mmap.NewArena(1, opts.pageSize)
	if err != nil {
		return fmt.Errorf("ftstore: map footer buffer: %w", err)
	}
	defer arena.Close()

	if err := skiplist.ValidateFooter(sourceReaderAt{src: src, page: arena.Slot(0)}, size, opts.magic); err != nil {
		return fmt.Errorf("ftstore: %s: %w", name, err)
	}
	return nil
}

// sourceReaderAt reads a source one whole page at a time.
type sourceReaderAt struct {
	src  pagecache.Source
	page []byte
}

func (r sourceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	page := r.page
	ps := int64(len(page))

	n := 0
	for n < len(p) {
		at := off + int64(n)
		base := at &^ (ps - 1)
		if base+ps > r.src.Size() {
			return n, io.ErrUnexpectedEOF
		}
		if err := r.src.ReadPage(page, base); err != nil {
			return n, err
		}
		n += copy(p[n:], page[at-base:])
	}
	return n, nil
}

// Name returns the path or blob name of the current index file.
func (ix *Index) Name() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.name
}

// PageSize returns the cache page size.
func (ix *Index) PageSize() int { return ix.cache.PageSize() }

// Reader returns a cursor over the list at offset.
func (ix *Index) Reader(offset int64) *skiplist.Reader {
	r := skiplist.NewReader(ix.cache, offset)
	r.SetHint(ix.opts.readHint)
	return r
}

// Lookup returns the values stored under ascending keys in the list at
// offset, with 0 for absent keys.
func (ix *Index) Lookup(ctx context.Context, offset int64, keys []uint64) ([]uint64, error) {
	start := time.Now()
	values, err := ix.Reader(offset).GetValues(ctx, keys)
	err = translateError(err)
	ix.opts.queryMetrics.RecordLookup(len(keys), time.Since(start), err)
	return values, err
}

// Retain filters buf down to the values the list at offset contains. buf
// must be ascending. If the pass stops early, buf keeps only the values
// retained before the error.
func (ix *Index) Retain(ctx context.Context, offset int64, buf *skiplist.QueryBuffer) error {
	return ix.filter(ctx, buf, ix.Reader(offset).RetainData)
}

// Reject filters out of buf the values the list at offset contains.
func (ix *Index) Reject(ctx context.Context, offset int64, buf *skiplist.QueryBuffer) error {
	return ix.filter(ctx, buf, ix.Reader(offset).RejectData)
}

func (ix *Index) filter(ctx context.Context, buf *skiplist.QueryBuffer, pass func(context.Context, *skiplist.QueryBuffer) error) error {
	start := time.Now()
	candidates := buf.Size()

	err := translateError(pass(ctx, buf))
	buf.FinalizeFiltering()

	ix.opts.queryMetrics.RecordFilter(candidates, buf.Size(), time.Since(start), err)
	return err
}

// Prefetch hints that the list at offset will be read soon.
func (ix *Index) Prefetch(offset int64) {
	ix.cache.Prefetch(offset &^ int64(ix.cache.PageSize()-1))
}

// Swap validates the index file at path and replaces the open file with
// it. Readers created before the swap must not be used afterwards; the
// offsets they hold belong to the old file.
func (ix *Index) Swap(ctx context.Context, path string) error {
	src, err := openFileSource(ctx, path, &ix.opts)
	if err != nil {
		ix.logger.LogSwap(ctx, ix.Name(), path, err)
		return err
	}
	return ix.swap(ctx, path, src)
}

// SwapBlob is Swap for an index stored in a blob store.
func (ix *Index) SwapBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	src, err := openBlobSource(ctx, store, name, &ix.opts)
	if err != nil {
		ix.logger.LogSwap(ctx, ix.Name(), name, err)
		return err
	}
	return ix.swap(ctx, name, src)
}

func (ix *Index) swap(ctx context.Context, name string, src pagecache.Source) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	from := ix.name
	if ix.closed {
		_ = src.Close()
		return ErrClosed
	}

	err := ix.cache.SwapSource(src)
	if err != nil && !errors.Is(err, pagecache.ErrSourceClose) {
		ix.logger.LogSwap(ctx, from, name, err)
		return translateError(err)
	}

	// The new file serves reads even when the old one failed to close.
	ix.name = name
	ix.logger.LogSwap(ctx, from, name, nil)
	if err != nil {
		ix.logger.WarnContext(ctx, "closing previous index failed", "path", from, "error", err)
	}
	return err
}

// Stats returns the page cache counters.
func (ix *Index) Stats() pagecache.Stats {
	return ix.cache.Stats()
}

// Close releases the cache and the file. Operations running concurrently
// either finish or fail with ErrClosed; Close returns once none of them
// holds a page any more. Closing twice is a no-op.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return nil
	}
	ix.closed = true

	stats := ix.cache.Stats()
	err := ix.cache.Close()
	ix.logger.LogClose(context.Background(), stats, err)
	return err
}
