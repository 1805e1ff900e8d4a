package pagecache

import (
	"log/slog"
	"sync"
	"time"
)

// Stats is a snapshot of cache counters.
type Stats struct {
	DiskReads       uint64
	CacheReads      uint64
	PrefetchFetches uint64
	PrefetchDropped uint64
	Evictions       uint64
	Resident        int
	Free            int
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		DiskReads:       c.diskReads.Load(),
		CacheReads:      c.cacheReads.Load(),
		PrefetchFetches: c.prefetchFetches.Load(),
		PrefetchDropped: c.prefetchDropped.Load(),
		Evictions:       c.evictions.Load(),
	}
	// The published policy is read without c.mu, so a Reset in progress
	// still reports the pages of the policy it is replacing.
	if pol := c.published.Load(); pol != nil {
		s.Resident = pol.resident()
		s.Free = pol.free.len()
	}
	return s
}

func (c *Cache) statsAttrs(s Stats) []any {
	return []any{
		"disk_reads", s.DiskReads,
		"cache_reads", s.CacheReads,
		"prefetch_fetches", s.PrefetchFetches,
		"prefetch_dropped", s.PrefetchDropped,
		"evictions", s.Evictions,
	}
}

// monitor logs statistics periodically while they keep changing.
type monitor struct {
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (c *Cache) startMonitor() *monitor {
	m := &monitor{stopCh: make(chan struct{}), done: make(chan struct{})}
	if c.opts.monitorInterval <= 0 {
		close(m.done)
		return m
	}

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(c.opts.monitorInterval)
		defer ticker.Stop()

		var last Stats
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				s := c.Stats()
				if s.DiskReads == last.DiskReads && s.CacheReads == last.CacheReads && s.PrefetchFetches == last.PrefetchFetches {
					continue
				}
				c.opts.logger.Info("page cache stats", slog.Group("stats", c.statsAttrs(s)...),
					"resident", s.Resident,
					"free", s.Free,
				)
				last = s
			}
		}
	}()
	return m
}

func (m *monitor) stop() {
	m.once.Do(func() { close(m.stopCh) })
	<-m.done
}
