package pagecache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// freeWait bounds how long a miss waits for the reclaimer before retrying.
	freeWait = time.Millisecond
	// idleWait is how long the reclaimer sleeps after a sweep that freed nothing.
	idleWait = time.Millisecond
	// throttleWait is how long a throttled reclaimer sleeps without being woken.
	throttleWait = 50 * time.Millisecond
)

type entry struct {
	page *Page
	seq  uint64
}

// policy is the clock-style eviction policy. Every page is either in the
// free ring or registered in the index, except while it is being populated
// or evicted.
type policy struct {
	pages  []*Page
	logger *slog.Logger

	mu    sync.RWMutex
	index map[int64]entry
	seq   uint64

	free      *freeRing
	highWater int

	sweepMu sync.Mutex
	cursor  int

	wake  chan struct{} // consumer -> reclaimer: free ring is short
	freed chan struct{} // reclaimer -> consumer: a slot was pushed

	evictions atomic.Uint64
	onEvict   func()

	synchronous bool
	stopCh      chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
}

func newPolicy(pages []*Page, synchronous bool, logger *slog.Logger, onEvict func()) *policy {
	p := &policy{
		pages:       pages,
		logger:      logger,
		index:       make(map[int64]entry, len(pages)),
		free:        newFreeRing(len(pages)),
		highWater:   max(1, len(pages)/2),
		wake:        make(chan struct{}, 1),
		freed:       make(chan struct{}, 1),
		onEvict:     onEvict,
		synchronous: synchronous,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}

	for i := range pages {
		p.free.push(int32(i))
	}

	if synchronous {
		close(p.done)
	} else {
		go p.reclaimLoop()
	}
	return p
}

// get returns the page registered for address and bumps its clock.
func (p *policy) get(address int64) *Page {
	p.mu.RLock()
	e, ok := p.index[address]
	p.mu.RUnlock()
	if !ok {
		return nil
	}
	e.page.increaseClock(1)
	return e.page
}

// contains reports whether address is registered, without touching the clock.
func (p *policy) contains(address int64) bool {
	p.mu.RLock()
	_, ok := p.index[address]
	p.mu.RUnlock()
	return ok
}

func (p *policy) resident() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.index)
}

// register maps the page's current address to it and resets its clock.
// If another page already claimed the address, that page is returned with
// false and nothing changes; this is what keeps populations unique.
func (p *policy) register(page *Page) (*Page, bool) {
	address := page.Address()

	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.index[address]; ok && e.page != page {
		return e.page, false
	}

	p.seq++
	p.index[address] = entry{page: page, seq: p.seq}
	page.touchClock(initialClock)

	if len(p.index) > len(p.pages) {
		p.evictOldestLocked()
	}
	return page, true
}

// deregister removes address from the index if it still maps to page.
func (p *policy) deregister(page *Page, address int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.index[address]; ok && e.page == page {
		delete(p.index, address)
		return true
	}
	return false
}

// evictOldestLocked is the capacity safety net: it drops the earliest
// registered entry that nobody holds.
func (p *policy) evictOldestLocked() {
	var (
		victim  int64
		oldest  entry
		haveOne bool
	)
	for address, e := range p.index {
		if e.page.PinCount() != pinFree {
			continue
		}
		if !haveOne || e.seq < oldest.seq {
			victim, oldest, haveOne = address, e, true
		}
	}
	if !haveOne || !oldest.page.pin.CompareAndSwap(pinFree, pinWriting) {
		return
	}

	delete(p.index, victim)
	p.release(oldest.page)
	p.logger.Debug("page cache over capacity, evicted oldest entry", "address", victim)
}

// release returns a writer-held, deregistered page to the free ring.
func (p *policy) release(page *Page) {
	page.address.Store(Unassigned)
	page.clock.Store(0)
	page.pin.Store(pinFree)
	p.free.push(int32(page.slot))

	p.evictions.Add(1)
	if p.onEvict != nil {
		p.onEvict()
	}

	select {
	case p.freed <- struct{}{}:
	default:
	}
}

// recycle puts back a free page that was popped but not used.
func (p *policy) recycle(page *Page) {
	p.free.push(int32(page.slot))
}

// getFree pops a free page, waiting briefly for the reclaimer when the ring
// is empty. It returns nil only after stop.
func (p *policy) getFree() *Page {
	for {
		if idx, ok := p.free.pop(); ok {
			if p.free.len() < p.highWater {
				p.signal()
			}
			return p.pages[idx]
		}

		select {
		case <-p.stopCh:
			return nil
		default:
		}

		if p.synchronous {
			if p.sweep(len(p.pages) * int(maxClock+1)) {
				continue
			}
		} else {
			p.signal()
		}

		timer := time.NewTimer(freeWait)
		select {
		case <-p.freed:
		case <-timer.C:
		case <-p.stopCh:
			timer.Stop()
			return nil
		}
		timer.Stop()
	}
}

func (p *policy) signal() {
	if p.synchronous {
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *policy) reclaimLoop() {
	defer close(p.done)

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		if p.free.len() >= p.highWater {
			if !p.sleep(throttleWait) {
				return
			}
			continue
		}

		if !p.sweep(len(p.pages)) {
			if !p.sleep(idleWait) {
				return
			}
		}
	}
}

// sleep waits for a wake signal or d; it returns false once stopped.
func (p *policy) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.stopCh:
		return false
	case <-p.wake:
	case <-timer.C:
	}
	return true
}

// sweep visits up to steps pages round-robin and stops at the first
// eviction. It reports whether a page was freed.
func (p *policy) sweep(steps int) bool {
	for i := 0; i < steps; i++ {
		if p.reclaimOne() {
			return true
		}
	}
	return false
}

// reclaimOne ages the page under the clock hand and evicts it if its clock
// ran out and nobody holds it.
func (p *policy) reclaimOne() bool {
	p.sweepMu.Lock()
	page := p.pages[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.pages)
	p.sweepMu.Unlock()

	address := page.Address()
	if address == Unassigned {
		return false
	}
	if !page.decreaseClock() {
		return false
	}
	if !page.pin.CompareAndSwap(pinFree, pinWriting) {
		page.touchClock(initialClock)
		return false
	}
	if page.Address() != address || !p.deregister(page, address) {
		page.pin.Store(pinFree)
		return false
	}

	p.release(page)
	return true
}

// stop ends the reclaimer and wakes goroutines blocked in getFree.
func (p *policy) stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}
