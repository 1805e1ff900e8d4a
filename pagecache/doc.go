// Package pagecache implements a fixed-size, concurrent page cache over a
// block-aligned backing file.
//
// # Pages
//
// A Cache owns an off-heap arena of equally sized pages. A page is never
// freed; only its association with a file address changes. Ownership is
// expressed through an atomic pin count:
//
//	 0  free
//	-1  held by the goroutine populating it
//	 N  pinned by N readers
//
// Get returns a page pinned once for the caller, who must Release it:
//
//	page, err := cache.Get(addr)
//	if err != nil {
//	    return err
//	}
//	defer page.Release()
//	n := page.Uint8(0)
//
// # Eviction
//
// Resident pages are indexed by address. A reclaim goroutine sweeps the
// arena like a clock hand, ageing each page and returning unpinned pages
// whose clock ran out to a lock-free free queue. It idles while at least
// half of the arena is free and is woken when a miss finds the queue short.
// WithSynchronousReclaim moves the sweep onto the miss path instead.
//
// # Prefetch
//
// Prefetch hands an address to a small pool of workers through a bounded
// queue. Hints that do not fit are dropped; correctness never depends on
// them.
//
// # Reset
//
// Reset (and SwapSource, which also replaces the backing file) discards
// every address association and rebuilds the eviction policy and prefetch
// workers, so no page read before the reset is served after it.
package pagecache
