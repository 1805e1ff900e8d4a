package pagecache

import (
	"context"
	"sync"
)

// prefetcher is a fixed set of goroutines draining a bounded hint queue.
type prefetcher struct {
	hints  chan int64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func (c *Cache) startPrefetch() *prefetcher {
	ctx, cancel := context.WithCancel(context.Background())
	pf := &prefetcher{
		hints:  make(chan int64, c.opts.prefetchQueue),
		ctx:    ctx,
		cancel: cancel,
	}

	if c.opts.prefetchQueue == 0 || c.opts.prefetchWorkers == 0 {
		pf.hints = nil
	}

	pf.wg.Add(c.opts.prefetchWorkers)
	for i := 0; i < c.opts.prefetchWorkers; i++ {
		go pf.worker(c)
	}
	return pf
}

// offer enqueues a hint without blocking.
func (pf *prefetcher) offer(address int64) bool {
	if pf.hints == nil {
		return false
	}
	select {
	case pf.hints <- address:
		return true
	default:
		return false
	}
}

func (pf *prefetcher) worker(c *Cache) {
	defer pf.wg.Done()

	for {
		select {
		case <-pf.ctx.Done():
			return
		case address := <-pf.hints:
			c.prefetchOne(pf.ctx, address)
		}
	}
}

func (pf *prefetcher) stop() {
	pf.once.Do(func() {
		pf.cancel()
		pf.wg.Wait()
	})
}

// prefetchOne loads address without pinning it for a reader.
func (c *Cache) prefetchOne(ctx context.Context, address int64) {
	// Reset holds the lock exclusively while it swaps the policy; a hint
	// arriving then is simply dropped.
	if !c.mu.TryRLock() {
		c.skipPrefetch()
		return
	}
	defer c.mu.RUnlock()

	pol := c.policy
	if c.closed.Load() || pol.contains(address) {
		c.skipPrefetch()
		return
	}

	rc := c.opts.rc
	if !rc.TryAcquireBackground() {
		c.skipPrefetch()
		return
	}
	defer rc.ReleaseBackground()

	if err := rc.AcquireIO(ctx, c.opts.pageSize); err != nil {
		c.skipPrefetch()
		return
	}

	page, err := c.populate(pol, address, 0)
	if err != nil {
		c.opts.logger.Debug("prefetch failed", "address", address, "error", err)
		c.skipPrefetch()
		return
	}
	if page == nil {
		c.skipPrefetch()
		return
	}

	c.prefetchFetches.Add(1)
	c.opts.metrics.RecordPrefetch(true)
}

func (c *Cache) skipPrefetch() {
	c.prefetchDropped.Add(1)
	c.opts.metrics.RecordPrefetch(false)
}
