package pagecache

import (
	"sync"
	"sync/atomic"
)

// Unassigned is the address of a page that mirrors no file region.
const Unassigned int64 = -1

const (
	pinFree    int32 = 0
	pinWriting int32 = -1

	initialClock int32 = 1
	maxClock     int32 = 4
)

// Page is one fixed-size slot of the cache arena.
//
// The pin count doubles as a reader/writer lock: 0 is free, -1 is held by the
// goroutine populating the slot, and N > 0 counts readers. A page returned by
// Cache.Get carries one reader pin; the caller must Release it exactly once.
// The bytes stay valid and unchanged for as long as the pin is held.
type Page struct {
	slot int
	data []byte

	address atomic.Int64
	pin     atomic.Int32
	dirty   atomic.Bool
	clock   atomic.Int32

	mu        sync.Mutex
	populated *sync.Cond
}

func newPage(slot int, data []byte) *Page {
	p := &Page{slot: slot, data: data}
	p.address.Store(Unassigned)
	p.populated = sync.NewCond(&p.mu)
	return p
}

// Address returns the file offset the page currently mirrors, or Unassigned.
func (p *Page) Address() int64 { return p.address.Load() }

// Slot returns the arena index of the page.
func (p *Page) Slot() int { return p.slot }

// Size returns the page size in bytes.
func (p *Page) Size() int { return len(p.data) }

// PinCount returns the raw pin state.
func (p *Page) PinCount() int32 { return p.pin.Load() }

// Dirty reports whether the page is being populated.
func (p *Page) Dirty() bool { return p.dirty.Load() }

// Release drops one reader pin.
func (p *Page) Release() {
	p.pin.Add(-1)
}

// acquireForWriting takes exclusive ownership of a free page for address.
func (p *Page) acquireForWriting(address int64) bool {
	if !p.pin.CompareAndSwap(pinFree, pinWriting) {
		return false
	}
	p.address.Store(address)
	p.dirty.Store(true)
	return true
}

// acquireAsReader adds a reader pin if the page is not writer-held and still
// mirrors expected. A slot reassigned between lookup and pin is rolled back.
func (p *Page) acquireAsReader(expected int64) bool {
	for {
		n := p.pin.Load()
		if n < pinFree {
			return false
		}
		if !p.pin.CompareAndSwap(n, n+1) {
			continue
		}
		if p.address.Load() == expected {
			return true
		}
		p.pin.Add(-1)
		return false
	}
}

// finishWrite marks a populated page clean, wakes waiters, then hands the
// writer pin over to readers (1 for a Get, 0 for a prefetch).
func (p *Page) finishWrite(readers int32) {
	p.mu.Lock()
	p.dirty.Store(false)
	p.populated.Broadcast()
	p.mu.Unlock()

	p.pin.CompareAndSwap(pinWriting, readers)
}

// abandonWrite gives up a writer-held page: the slot forgets its address,
// waiters are woken and the pin returns to free.
func (p *Page) abandonWrite() {
	p.mu.Lock()
	p.address.Store(Unassigned)
	p.dirty.Store(false)
	p.populated.Broadcast()
	p.mu.Unlock()

	p.pin.CompareAndSwap(pinWriting, pinFree)
}

// waitPopulated blocks while the page is being populated for address.
func (p *Page) waitPopulated(address int64) {
	p.mu.Lock()
	for p.dirty.Load() && p.address.Load() == address {
		p.populated.Wait()
	}
	p.mu.Unlock()
}

func (p *Page) touchClock(v int32) {
	p.clock.Store(v)
}

func (p *Page) increaseClock(v int32) {
	for {
		c := p.clock.Load()
		if c >= maxClock {
			return
		}
		if p.clock.CompareAndSwap(c, min(c+v, maxClock)) {
			return
		}
	}
}

// decreaseClock ages the page and reports whether its clock is now zero.
func (p *Page) decreaseClock() bool {
	for {
		c := p.clock.Load()
		if c <= 0 {
			return true
		}
		if p.clock.CompareAndSwap(c, c-1) {
			return c == 1
		}
	}
}

// Bytes returns the page memory. It must not be modified.
func (p *Page) Bytes() []byte { return p.data }

// Uint8 returns the byte at off.
func (p *Page) Uint8(off int) uint8 { return p.data[off] }

// Uint32 returns the little-endian uint32 at off.
func (p *Page) Uint32(off int) uint32 { return loadUint32(p.data, off) }

// Uint64 returns the little-endian uint64 at off.
func (p *Page) Uint64(off int) uint64 { return loadUint64(p.data, off) }

// ReadUint64s fills dst with consecutive uint64 values starting at off.
func (p *Page) ReadUint64s(dst []uint64, off int) {
	loadUint64s(dst, p.data, off)
}

// SearchUint64 treats the page as holding sorted uint64 values at
// base, base+8, ... and returns the smallest index i in [from, to) whose
// value is >= key, or to if there is none.
func (p *Page) SearchUint64(key uint64, base, from, to int) int {
	lo, hi := from, to
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if loadUint64(p.data, base+8*mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
