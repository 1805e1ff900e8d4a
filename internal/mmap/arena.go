package mmap

// Arena is a fixed anonymous mapping carved into equally sized slots.
//
// Slots are handed out by index and live as long as the arena; nothing is
// allocated or freed per slot. When slotSize is a multiple of the OS page size
// (or of the device block size) every slot inherits that alignment from the
// start of the mapping, which is what unbuffered reads require.
type Arena struct {
	m        *Mapping
	slotSize int
	slots    int
}

// NewArena maps slots*slotSize bytes of anonymous memory.
func NewArena(slots, slotSize int) (*Arena, error) {
	if slots <= 0 || slotSize <= 0 {
		return nil, ErrInvalidSize
	}

	m, err := MapAnon(slots * slotSize)
	if err != nil {
		return nil, err
	}

	return &Arena{m: m, slotSize: slotSize, slots: slots}, nil
}

// Slot returns the memory of slot i. The returned slice has its capacity
// clipped to the slot so appends can never spill into a neighbour.
func (a *Arena) Slot(i int) []byte {
	if i < 0 || i >= a.slots {
		return nil
	}
	data := a.m.Bytes()
	if data == nil {
		return nil
	}
	off := i * a.slotSize
	return data[off : off+a.slotSize : off+a.slotSize]
}

// Len returns the number of slots.
func (a *Arena) Len() int { return a.slots }

// SlotSize returns the size of each slot in bytes.
func (a *Arena) SlotSize() int { return a.slotSize }

// Size returns the total mapped size in bytes.
func (a *Arena) Size() int { return a.m.Size() }

// Advise applies an access hint to the whole arena.
func (a *Arena) Advise(pattern AccessPattern) error {
	return a.m.Advise(pattern)
}

// Close releases the mapping. Slices obtained from Slot become invalid.
func (a *Arena) Close() error {
	return a.m.Close()
}
