package skiplist

import (
	"context"
	"fmt"
)

// BlockView is a fully decoded block, for tools and tests.
type BlockView struct {
	Address  int64
	Header   Header
	Pointers []uint64
	Keys     []uint64
	Values   []uint64
}

// MaxKey returns the last key of the block, or 0 if it is empty.
func (v BlockView) MaxKey() uint64 {
	if len(v.Keys) == 0 {
		return 0
	}
	return v.Keys[len(v.Keys)-1]
}

// ParseBlock decodes the block whose header starts at off in b. off is
// taken relative to a BlockSize-aligned start of b.
func ParseBlock(b []byte, off int) (BlockView, error) {
	if off < 0 || off%8 != 0 || off+HeaderSize > len(b) {
		return BlockView{}, fmt.Errorf("%w: header offset %d", ErrCorruptBlock, off)
	}

	h := DecodeHeader(b[off:])
	if err := h.check(off % BlockSize); err != nil {
		return BlockView{}, err
	}
	if off+h.Size() > len(b) {
		return BlockView{}, fmt.Errorf("%w: block at %d truncated", ErrCorruptBlock, off)
	}

	read := func(at, n int) []uint64 {
		out := make([]uint64, n)
		for i := range out {
			out[i] = byteOrder.Uint64(b[at+8*i:])
		}
		return out
	}

	return BlockView{
		Address:  int64(off),
		Header:   h,
		Pointers: read(off+HeaderSize, h.ForwardCount),
		Keys:     read(off+h.keysOffset(), h.Records),
		Values:   read(off+h.valuesOffset(), h.Records),
	}, nil
}

// ParseBlocks decodes every block of the list starting at start, in file
// order, following the list block by block without skipping.
func ParseBlocks(ctx context.Context, pool PagePool, start int64) ([]BlockView, error) {
	r := NewReader(pool, start)

	var views []BlockView
	for !r.atEnd {
		if err := ctx.Err(); err != nil {
			return views, err
		}

		view, err := r.parseCurrent()
		if err != nil {
			return views, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *Reader) parseCurrent() (BlockView, error) {
	s, err := r.fetch()
	if err != nil {
		return BlockView{}, err
	}
	defer s.release()
	r.visited++

	block := s.page.Bytes()[s.base-r.offset : s.base-r.offset+BlockSize]
	view, err := ParseBlock(block, r.offset)
	if err != nil {
		return BlockView{}, err
	}
	view.Address = r.block + int64(r.offset)

	r.idx = s.h.Records
	r.finishBlock(&s, false, 0)
	return view, nil
}
