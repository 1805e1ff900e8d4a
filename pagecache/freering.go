package pagecache

import (
	"math/bits"
	"sync/atomic"
)

// freeRing is a bounded multi-producer multi-consumer queue of slot indices.
// Each cell carries a sequence number so the read and write cursors can be
// advanced independently with compare-and-swap.
type freeRing struct {
	cells []ringCell
	mask  uint64

	_    [56]byte
	head atomic.Uint64 // read cursor
	_    [56]byte
	tail atomic.Uint64 // write cursor
}

type ringCell struct {
	seq   atomic.Uint64
	index int32
}

func newFreeRing(capacity int) *freeRing {
	size := uint64(1)
	if capacity > 1 {
		size = 1 << bits.Len64(uint64(capacity-1))
	}

	r := &freeRing{cells: make([]ringCell, size), mask: size - 1}
	for i := range r.cells {
		r.cells[i].seq.Store(uint64(i))
	}
	return r
}

// push appends index and reports false if the ring is full.
func (r *freeRing) push(index int32) bool {
	pos := r.tail.Load()
	for {
		c := &r.cells[pos&r.mask]
		seq := c.seq.Load()
		switch dif := int64(seq) - int64(pos); {
		case dif == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				c.index = index
				c.seq.Store(pos + 1)
				return true
			}
			pos = r.tail.Load()
		case dif < 0:
			return false
		default:
			pos = r.tail.Load()
		}
	}
}

// pop removes the oldest index and reports false if the ring is empty.
func (r *freeRing) pop() (int32, bool) {
	pos := r.head.Load()
	for {
		c := &r.cells[pos&r.mask]
		seq := c.seq.Load()
		switch dif := int64(seq) - int64(pos+1); {
		case dif == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				index := c.index
				c.seq.Store(pos + r.mask + 1)
				return index, true
			}
			pos = r.head.Load()
		case dif < 0:
			return -1, false
		default:
			pos = r.head.Load()
		}
	}
}

// len is a snapshot of the number of queued indices.
func (r *freeRing) len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail <= head {
		return 0
	}
	return int(tail - head)
}
