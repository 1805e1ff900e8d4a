package skiplist

import (
	"context"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/ftstore/pagecache"
)

// PagePool is the page cache a Reader fetches blocks through. Page sizes
// are powers of two no smaller than BlockSize, so a block never straddles
// two pages.
type PagePool interface {
	Get(address int64) (*pagecache.Page, error)
	PageSize() int
}

// HintedPagePool is a PagePool that can queue readahead along with a fetch.
type HintedPagePool interface {
	PagePool
	GetWithHint(address int64, hint pagecache.Hint) (*pagecache.Page, error)
}

var _ HintedPagePool = (*pagecache.Cache)(nil)

// Reader is a forward-only cursor over one skip list.
//
// A Reader is not safe for concurrent use; concurrent scans of the same
// list use separate readers sharing one pool. Every operation accepts a
// context whose cancellation, and whose Budget if one is attached, are
// checked before each block is visited. An operation stopped that way
// leaves the cursor on the next unvisited block and can be resumed.
type Reader struct {
	pool  PagePool
	start int64

	block  int64 // address of the current 512-byte block
	offset int   // header offset within the current block
	idx    int   // next unconsumed record
	atEnd  bool

	hint    pagecache.Hint
	visited int
}

// NewReader returns a reader for the list whose first block is at start,
// as returned by Writer.WriteList.
func NewReader(pool PagePool, start int64) *Reader {
	r := &Reader{pool: pool, start: start}
	r.Reset()
	return r
}

// Reset rewinds the cursor to the start of the list.
func (r *Reader) Reset() {
	r.block = r.start &^ (BlockSize - 1)
	r.offset = int(r.start & (BlockSize - 1))
	r.idx = 0
	r.atEnd = false
}

// SetHint sets the hint used for every block fetch. It only has an effect
// when the pool implements HintedPagePool.
func (r *Reader) SetHint(hint pagecache.Hint) { r.hint = hint }

// AtEnd reports whether every record has been consumed.
func (r *Reader) AtEnd() bool { return r.atEnd }

// BlocksVisited returns how many blocks this reader has decoded.
func (r *Reader) BlocksVisited() int { return r.visited }

// span is one pinned, decoded block.
type span struct {
	page   *pagecache.Page
	h      Header
	base   int // header offset within the page
	keys   int
	values int
}

func (s *span) key(i int) uint64     { return s.page.Uint64(s.keys + 8*i) }
func (s *span) value(i int) uint64   { return s.page.Uint64(s.values + 8*i) }
func (s *span) pointer(i int) uint64 { return s.page.Uint64(s.base + HeaderSize + 8*i) }

// search returns the first record at or after from whose key is >= key.
func (s *span) search(key uint64, from int) int {
	return s.page.SearchUint64(key, s.keys, from, s.h.Records)
}

func (s *span) release() { s.page.Release() }

// fetch pins the page holding the current block and decodes its header.
func (r *Reader) fetch() (span, error) {
	if r.offset%8 != 0 {
		return span{}, fmt.Errorf("%w: %d", ErrUnaligned, r.block+int64(r.offset))
	}

	pageSize := int64(r.pool.PageSize())
	pageAddr := r.block &^ (pageSize - 1)

	page, err := r.get(pageAddr)
	if err != nil {
		return span{}, err
	}

	base := int(r.block-pageAddr) + r.offset
	h := DecodeHeader(page.Bytes()[base:])
	if err := h.check(r.offset); err != nil {
		page.Release()
		return span{}, fmt.Errorf("block at %d: %w", r.block+int64(r.offset), err)
	}

	return span{
		page:   page,
		h:      h,
		base:   base,
		keys:   base + h.keysOffset(),
		values: base + h.valuesOffset(),
	}, nil
}

func (r *Reader) get(address int64) (*pagecache.Page, error) {
	if hp, ok := r.pool.(HintedPagePool); ok && r.hint != (pagecache.Hint{}) {
		return hp.GetWithHint(address, r.hint)
	}
	return r.pool.Get(address)
}

// visit is fetch guarded by cancellation and the budget.
func (r *Reader) visit(ctx context.Context, budget *Budget) (span, error) {
	if err := ctx.Err(); err != nil {
		return span{}, err
	}
	if err := budget.enterBlock(); err != nil {
		return span{}, err
	}
	s, err := r.fetch()
	if err != nil {
		return span{}, err
	}
	r.visited++
	return s, nil
}

// finishBlock moves past an exhausted block: it either marks the list
// consumed or steps to the following block, skipping ahead over blocks
// whose maximum key is below probe when skip is set.
func (r *Reader) finishBlock(s *span, skip bool, probe uint64) {
	if s.h.IsEnd() {
		r.atEnd = true
		return
	}

	next := r.block + BlockSize
	if skip {
		root := r.block == r.start&^(BlockSize-1)
		for i := 0; i < s.h.ForwardCount; i++ {
			if s.pointer(i) >= probe {
				break
			}
			jump := int64(1)<<i + 1
			// The root's last pointer may target the final block; land
			// on it rather than past it.
			if root && i == s.h.ForwardCount-1 {
				jump--
			}
			next = r.block + BlockSize*jump
		}
	}

	r.block = next
	r.offset = 0
	r.idx = 0
}

// GetData copies the keys of the next records into dst until it is full or
// the list is consumed, and returns how many were copied.
func (r *Reader) GetData(ctx context.Context, dst *QueryBuffer) (int, error) {
	budget := BudgetFromContext(ctx)

	total := 0
	for dst.FitsMore() && !r.atEnd {
		n, err := r.copyBlock(ctx, budget, dst.free(), nil)
		dst.end += n
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadRecords copies the next records into keys and values until either is
// full or the list is consumed, and returns how many were copied.
func (r *Reader) ReadRecords(ctx context.Context, keys, values []uint64) (int, error) {
	budget := BudgetFromContext(ctx)

	limit := min(len(keys), len(values))
	total := 0
	for total < limit && !r.atEnd {
		n, err := r.copyBlock(ctx, budget, keys[total:limit], values[total:limit])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Reader) copyBlock(ctx context.Context, budget *Budget, keys, values []uint64) (int, error) {
	s, err := r.visit(ctx, budget)
	if err != nil {
		return 0, err
	}
	defer s.release()

	n := min(s.h.Records-r.idx, len(keys))
	s.page.ReadUint64s(keys[:n], s.keys+8*r.idx)
	if values != nil {
		s.page.ReadUint64s(values[:n], s.values+8*r.idx)
	}
	r.idx += n

	if r.idx >= s.h.Records {
		r.finishBlock(&s, false, 0)
	}
	return n, nil
}

// GetValues looks up ascending probe keys and returns their values, with 0
// for keys the list does not contain. The cursor advances past every
// record below the last probe, so later calls must probe larger keys.
func (r *Reader) GetValues(ctx context.Context, probes []uint64) ([]uint64, error) {
	values := make([]uint64, len(probes))
	err := r.lookup(ctx, probes, func(pos int, value uint64) {
		values[pos] = value
	})
	return values, err
}

// PresentKeys returns the subset of ascending probe keys the list contains.
func (r *Reader) PresentKeys(ctx context.Context, probes []uint64) (*roaring64.Bitmap, error) {
	present := roaring64.New()
	err := r.lookup(ctx, probes, func(pos int, _ uint64) {
		present.Add(probes[pos])
	})
	return present, err
}

func (r *Reader) lookup(ctx context.Context, probes []uint64, found func(pos int, value uint64)) error {
	if !slices.IsSorted(probes) {
		return ErrUnsorted
	}
	budget := BudgetFromContext(ctx)

	pos := 0
	for pos < len(probes) && !r.atEnd {
		var err error
		if pos, err = r.lookupBlock(ctx, budget, probes, pos, found); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) lookupBlock(ctx context.Context, budget *Budget, probes []uint64, pos int, found func(int, uint64)) (int, error) {
	s, err := r.visit(ctx, budget)
	if err != nil {
		return pos, err
	}
	defer s.release()

	n := s.h.Records
	for pos < len(probes) && r.idx < n {
		probe := probes[pos]
		r.idx = s.search(probe, r.idx)
		if r.idx == n {
			break
		}
		if s.key(r.idx) == probe {
			found(pos, s.value(r.idx))
		}
		pos++
	}

	if r.idx == n {
		more := pos < len(probes)
		var probe uint64
		if more {
			probe = probes[pos]
		}
		r.finishBlock(&s, more, probe)
	}
	return pos, nil
}

// RetainData keeps the values of buf that the list contains and rejects
// the rest. The caller finishes the pass with buf.FinalizeFiltering. The
// unfiltered part of buf must be in ascending order, otherwise ErrUnsorted
// is returned and nothing is consumed. The reader is consumed up to the
// last value.
func (r *Reader) RetainData(ctx context.Context, buf *QueryBuffer) error {
	return r.filter(ctx, buf, true)
}

// RejectData rejects the values of buf that the list contains and keeps
// the rest; it is the complement of RetainData.
func (r *Reader) RejectData(ctx context.Context, buf *QueryBuffer) error {
	return r.filter(ctx, buf, false)
}

func (r *Reader) filter(ctx context.Context, buf *QueryBuffer, retainPresent bool) error {
	if !buf.pendingSorted() {
		return ErrUnsorted
	}
	budget := BudgetFromContext(ctx)

	for buf.HasMore() {
		if r.atEnd {
			// Nothing left on disk: every remaining candidate is absent.
			for buf.HasMore() {
				if retainPresent {
					buf.RejectAndAdvance()
				} else {
					buf.RetainAndAdvance()
				}
			}
			return nil
		}
		if err := r.filterBlock(ctx, budget, buf, retainPresent); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) filterBlock(ctx context.Context, budget *Budget, buf *QueryBuffer, retainPresent bool) error {
	s, err := r.visit(ctx, budget)
	if err != nil {
		return err
	}
	defer s.release()

	n := s.h.Records
	for buf.HasMore() && r.idx < n {
		v := buf.CurrentValue()
		r.idx = s.search(v, r.idx)
		if r.idx == n {
			break
		}
		if (s.key(r.idx) == v) == retainPresent {
			buf.RetainAndAdvance()
		} else {
			buf.RejectAndAdvance()
		}
	}

	if r.idx == n {
		more := buf.HasMore()
		var probe uint64
		if more {
			probe = buf.CurrentValue()
		}
		r.finishBlock(&s, more, probe)
	}
	return nil
}

// RemainingSize returns how many records are left to consume.
func (r *Reader) RemainingSize() (int, error) {
	if r.atEnd {
		return 0, nil
	}
	s, err := r.fetch()
	if err != nil {
		return 0, err
	}
	defer s.release()
	return int(s.h.Remaining) - r.idx, nil
}

// EstimateSize returns the total number of records in the list.
func (r *Reader) EstimateSize() (int, error) {
	probe := Reader{pool: r.pool, start: r.start}
	probe.Reset()

	s, err := probe.fetch()
	if err != nil {
		return 0, err
	}
	defer s.release()
	return int(s.h.Remaining), nil
}
