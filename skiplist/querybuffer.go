package skiplist

import (
	"fmt"
	"slices"
)

// QueryBuffer holds candidate keys being filtered against skip lists.
//
// Filtering walks the buffer once with a read cursor; RetainAndAdvance
// keeps the current value by moving it down to the write cursor, while
// RejectAndAdvance drops it. FinalizeFiltering then shrinks the buffer to
// the retained values, in their original order, ready for the next filter.
type QueryBuffer struct {
	data  []uint64
	end   int
	read  int
	write int
}

// NewQueryBuffer returns an empty buffer that can hold capacity values.
// It panics if capacity is negative.
func NewQueryBuffer(capacity int) *QueryBuffer {
	if capacity < 0 {
		panic(fmt.Sprintf("skiplist: negative query buffer capacity %d", capacity))
	}
	return &QueryBuffer{data: make([]uint64, capacity)}
}

// NewQueryBufferFrom returns a full buffer holding a copy of values.
func NewQueryBufferFrom(values []uint64) *QueryBuffer {
	data := make([]uint64, len(values))
	copy(data, values)
	return &QueryBuffer{data: data, end: len(data)}
}

// CurrentValue returns the value under the read cursor. It must only be
// called while HasMore is true.
func (b *QueryBuffer) CurrentValue() uint64 { return b.data[b.read] }

// HasMore reports whether values remain to be classified.
func (b *QueryBuffer) HasMore() bool { return b.read < b.end }

// RetainAndAdvance keeps the current value and reports whether more remain.
func (b *QueryBuffer) RetainAndAdvance() bool {
	b.data[b.write] = b.data[b.read]
	b.write++
	b.read++
	return b.read < b.end
}

// RejectAndAdvance drops the current value and reports whether more remain.
func (b *QueryBuffer) RejectAndAdvance() bool {
	b.read++
	return b.read < b.end
}

// FinalizeFiltering ends a filtering pass. Retained values become the
// buffer contents; values never classified are dropped.
func (b *QueryBuffer) FinalizeFiltering() {
	b.end = b.write
	b.read = 0
	b.write = 0
}

// Data returns the current contents. The slice aliases the buffer.
func (b *QueryBuffer) Data() []uint64 { return b.data[:b.end] }

// Size returns the number of values held.
func (b *QueryBuffer) Size() int { return b.end }

// Cap returns the capacity.
func (b *QueryBuffer) Cap() int { return len(b.data) }

// FitsMore reports whether another value can be added.
func (b *QueryBuffer) FitsMore() bool { return b.end < len(b.data) }

// Add appends as many values as fit and returns how many were added.
func (b *QueryBuffer) Add(values ...uint64) int {
	n := copy(b.data[b.end:], values)
	b.end += n
	return n
}

// Reset empties the buffer, keeping its capacity.
func (b *QueryBuffer) Reset() {
	b.end, b.read, b.write = 0, 0, 0
}

// Zero empties the buffer and clears its memory.
func (b *QueryBuffer) Zero() {
	clear(b.data)
	b.Reset()
}

// IsAscending reports whether the contents are strictly ascending.
func (b *QueryBuffer) IsAscending() bool {
	for i := 1; i < b.end; i++ {
		if b.data[i-1] >= b.data[i] {
			return false
		}
	}
	return true
}

// pendingSorted reports whether the values not yet filtered are in
// non-decreasing order.
func (b *QueryBuffer) pendingSorted() bool {
	return slices.IsSorted(b.data[b.read:b.end])
}

// free returns the unused tail of the buffer.
func (b *QueryBuffer) free() []uint64 { return b.data[b.end:] }
