package pagecache

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/ftstore/internal/mmap"
)

// Cache is a fixed-size page cache over a Source.
//
// Get returns pinned pages; everything else (eviction, prefetching,
// statistics) runs on background goroutines. All methods are safe for
// concurrent use.
type Cache struct {
	opts  options
	arena *mmap.Arena
	pages []*Page

	// mu is held shared by Get and prefetch population and exclusively by
	// Reset, SwapSource and Close, which replace the policy or source.
	mu       sync.RWMutex
	src      Source
	policy   *policy
	prefetch *prefetcher

	// published mirrors policy for readers that must not take mu.
	published atomic.Pointer[policy]

	last   atomic.Pointer[Page]
	closed atomic.Bool

	diskReads       atomic.Uint64
	cacheReads      atomic.Uint64
	prefetchFetches atomic.Uint64
	prefetchDropped atomic.Uint64
	evictions       atomic.Uint64

	monitor *monitor
}

// New creates a cache over src. The cache owns src and closes it on Close.
func New(src Source, optFns ...Option) (*Cache, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	arenaBytes := int64(opts.poolSize) * int64(opts.pageSize)
	if err := opts.rc.AcquireMemory(arenaBytes); err != nil {
		return nil, fmt.Errorf("pagecache: reserve %d byte arena: %w", arenaBytes, err)
	}

	arena, err := mmap.NewArena(opts.poolSize, opts.pageSize)
	if err != nil {
		opts.rc.ReleaseMemory(arenaBytes)
		return nil, fmt.Errorf("pagecache: map arena: %w", err)
	}
	_ = arena.Advise(mmap.AccessRandom)

	c := &Cache{
		opts:  opts,
		arena: arena,
		pages: make([]*Page, opts.poolSize),
		src:   src,
	}
	for i := range c.pages {
		c.pages[i] = newPage(i, arena.Slot(i))
	}

	c.setPolicy(c.newPolicy())
	c.prefetch = c.startPrefetch()
	c.monitor = c.startMonitor()

	opts.logger.Debug("page cache created",
		"pages", opts.poolSize,
		"page_size", opts.pageSize,
		"prefetch_workers", opts.prefetchWorkers,
		"synchronous_reclaim", opts.synchronous,
	)
	return c, nil
}

func (c *Cache) newPolicy() *policy {
	return newPolicy(c.pages, c.opts.synchronous, c.opts.logger, func() {
		c.evictions.Add(1)
		c.opts.metrics.RecordEviction()
	})
}

// setPolicy installs pol. Callers hold mu exclusively or own c outright.
func (c *Cache) setPolicy(pol *policy) {
	c.policy = pol
	c.published.Store(pol)
}

// PageSize returns the size of each page in bytes.
func (c *Cache) PageSize() int { return c.opts.pageSize }

// Len returns the number of pages in the arena.
func (c *Cache) Len() int { return len(c.pages) }

// Get returns the page mirroring the file region starting at address, pinned
// for reading. The caller must call Release on it.
//
// Misaligned and out-of-range addresses fail immediately. A failed disk read
// is returned as *IOError.
func (c *Cache) Get(address int64) (*Page, error) {
	return c.get(address, true)
}

// Readahead is how many pages following the requested one GetWithHint
// queues for prefetching.
type Readahead int

const (
	ReadaheadNone       Readahead = 0
	ReadaheadSmall      Readahead = 1
	ReadaheadMedium     Readahead = 3
	ReadaheadAggressive Readahead = 7
)

// Hint shapes a single Get.
type Hint struct {
	Readahead Readahead
	// ReadOnce keeps the page out of the last-accessed slot, so a one-off
	// read does not displace the page a scan keeps coming back to.
	ReadOnce bool
}

// GetWithHint is Get followed by prefetch hints for the hint.Readahead
// pages after address. Pages past the end of the source are not hinted.
func (c *Cache) GetWithHint(address int64, hint Hint) (*Page, error) {
	page, err := c.get(address, !hint.ReadOnce)
	if err != nil {
		return nil, err
	}
	if hint.Readahead > 0 {
		c.readahead(address, int(hint.Readahead))
	}
	return page, nil
}

func (c *Cache) readahead(address int64, n int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed.Load() {
		return
	}
	step := int64(c.opts.pageSize)
	for i := 1; i <= n; i++ {
		next := address + int64(i)*step
		if c.checkAddress(next) != nil {
			return
		}
		if c.policy.contains(next) {
			continue
		}
		if !c.prefetch.offer(next) {
			c.prefetchDropped.Add(1)
			c.opts.metrics.RecordPrefetch(false)
		}
	}
}

// get implements Get. remember controls whether the page becomes the
// last-accessed fast path.
func (c *Cache) get(address int64, remember bool) (*Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := c.checkAddress(address); err != nil {
		return nil, err
	}

	if last := c.last.Load(); last != nil && last.acquireAsReader(address) {
		last.increaseClock(1)
		c.hit()
		return last, nil
	}

	pol := c.policy
	for {
		if page := pol.get(address); page != nil {
			if page.acquireAsReader(address) {
				if remember {
					c.last.Store(page)
				}
				c.hit()
				return page, nil
			}
			if page.Dirty() {
				page.waitPopulated(address)
			} else {
				runtime.Gosched()
			}
			continue
		}

		page, err := c.populate(pol, address, 1)
		if err != nil {
			return nil, err
		}
		if page != nil {
			if remember {
				c.last.Store(page)
			}
			return page, nil
		}
	}
}

func (c *Cache) hit() {
	c.cacheReads.Add(1)
	c.opts.metrics.RecordHit()
}

func (c *Cache) checkAddress(address int64) error {
	if address < 0 {
		return fmt.Errorf("%w: %d", ErrOutOfRange, address)
	}
	if address%int64(c.opts.alignment) != 0 {
		return fmt.Errorf("%w: %d is not a multiple of %d", ErrMisaligned, address, c.opts.alignment)
	}
	if end := address + int64(c.opts.pageSize); end > c.src.Size() {
		return fmt.Errorf("%w: page [%d, %d) exceeds size %d", ErrOutOfRange, address, end, c.src.Size())
	}
	return nil
}

// populate reads address into a free page and registers it. The page ends
// up with the given number of reader pins. A nil page with a nil error
// means another goroutine claimed the address first.
func (c *Cache) populate(pol *policy, address int64, readers int32) (*Page, error) {
	var page *Page
	for {
		page = pol.getFree()
		if page == nil {
			return nil, ErrClosed
		}
		if page.acquireForWriting(address) {
			break
		}
		// A stale reader is still rolling back its pin on this slot.
		pol.recycle(page)
		runtime.Gosched()
	}

	if _, ok := pol.register(page); !ok {
		page.abandonWrite()
		pol.recycle(page)
		return nil, nil
	}

	start := time.Now()
	err := c.src.ReadPage(page.data, address)
	c.opts.metrics.RecordMiss(time.Since(start), err)

	if err != nil {
		pol.deregister(page, address)
		page.abandonWrite()
		pol.recycle(page)
		return nil, &IOError{Address: address, Err: err}
	}

	c.diskReads.Add(1)
	page.finishWrite(readers)
	return page, nil
}

// Prefetch asks a background worker to load address. It never blocks and
// never fails: hints that are invalid, redundant or do not fit in the queue
// are dropped.
func (c *Cache) Prefetch(address int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed.Load() || c.checkAddress(address) != nil || !c.prefetch.offer(address) {
		c.prefetchDropped.Add(1)
		c.opts.metrics.RecordPrefetch(false)
	}
}

// Resident reports whether address is currently cached.
func (c *Cache) Resident(address int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed.Load() && c.policy.contains(address)
}

// Reset forgets every cached page so the next Get of any address reads the
// source again. Pages still pinned by callers stay readable until released.
func (c *Cache) Reset() error {
	return c.rebuild(nil)
}

// SwapSource replaces the backing source, closes the previous one and
// resets the cache. An error wrapping ErrSourceClose means the new source
// is in use and only closing the old one failed.
func (c *Cache) SwapSource(src Source) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}
	return c.rebuild(src)
}

func (c *Cache) rebuild(src Source) error {
	c.interruptPrefetch()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}

	// Workers only ever TryRLock, so they drain instead of blocking on us.
	c.prefetch.stop()
	c.policy.stop()

	for _, page := range c.pages {
		page.address.Store(Unassigned)
		page.clock.Store(0)
	}
	c.last.Store(nil)

	var err error
	if src != nil {
		if cerr := c.src.Close(); cerr != nil {
			err = fmt.Errorf("%w: %w", ErrSourceClose, cerr)
		}
		c.src = src
	}

	c.setPolicy(c.newPolicy())
	c.prefetch = c.startPrefetch()
	c.opts.metrics.RecordReset()
	c.opts.logger.Info("page cache reset", "source_replaced", src != nil)
	return err
}

// interruptPrefetch cancels in-flight prefetch rate-limit waits so workers
// holding the shared lock give it up promptly.
func (c *Cache) interruptPrefetch() {
	c.mu.RLock()
	pf := c.prefetch
	c.mu.RUnlock()
	pf.cancel()
}

// Close stops background goroutines, waits for callers to release the
// pages they hold, closes the source and unmaps the arena. Gets racing
// with Close fail with ErrClosed.
//
// If pages are still pinned once the close timeout expires, the arena is
// left mapped and Close returns ErrPagesPinned.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	// Stopping the policy first releases any Get parked on an empty free
	// queue, so the exclusive lock below cannot wait on it forever.
	c.published.Load().stop()
	c.interruptPrefetch()
	c.monitor.stop()

	// Once the lock is ours no Get or population is in flight, and every
	// later Get sees closed: pin counts can only fall from here on.
	c.mu.Lock()
	c.prefetch.stop()
	c.policy.stop()
	c.last.Store(nil)
	c.mu.Unlock()

	pinned := c.awaitUnpinned()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.logger.Debug("page cache closed", slog.Group("stats", c.statsAttrs(c.Stats())...))

	srcErr := c.src.Close()
	if pinned > 0 {
		c.opts.logger.Error("page cache closed with pinned pages; arena left mapped", "pinned", pinned)
		return errors.Join(fmt.Errorf("%w: %d pages", ErrPagesPinned, pinned), srcErr)
	}

	arenaErr := c.arena.Close()
	c.opts.rc.ReleaseMemory(int64(c.arena.Size()))

	if srcErr != nil {
		return srcErr
	}
	return arenaErr
}

// awaitUnpinned waits until no page is held, or the close timeout runs
// out, and returns how many pages are still pinned.
func (c *Cache) awaitUnpinned() int {
	var deadline time.Time
	if c.opts.closeTimeout > 0 {
		deadline = time.Now().Add(c.opts.closeTimeout)
	}

	wait := 50 * time.Microsecond
	for {
		pinned := 0
		for _, page := range c.pages {
			if page.PinCount() > pinFree {
				pinned++
			}
		}
		if pinned == 0 {
			return 0
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return pinned
		}

		time.Sleep(wait)
		wait = min(2*wait, 10*time.Millisecond)
	}
}
