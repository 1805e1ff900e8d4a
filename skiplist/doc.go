// Package skiplist implements a write-once, block-structured skip list for
// sorted uint64 keys with uint64 values, the on-disk form of a postings
// list.
//
// # Format
//
// A file is a sequence of 512-byte blocks. Every integer is little-endian.
// A block starts with an 8-byte header
//
//	u8 records | u8 forward pointers | u8 flags | u8 reserved | u32 remaining
//
// followed by the forward pointers, the keys and the values, each an array
// of u64. Flag bit 0 marks the last block of a list, bit 1 a footer block.
//
// A list short enough to fit into what is left of the current block is
// written there as a single compact block. Otherwise the writer may pad to
// the next block boundary and then emits a root block followed by full
// blocks. Block i carries trailing_zeros(i) forward pointers; pointer j
// holds the largest key of block i+2^j, which lets a reader looking for a
// larger key jump over the blocks in between.
//
// # Reading
//
// A Reader walks one list through a page cache and supports sequential
// copies (GetData, ReadRecords), point lookups (GetValues, PresentKeys) and
// merge filtering of a QueryBuffer of candidate keys (RetainData,
// RejectData), which evaluate AND and AND NOT between postings lists.
//
// Readers check their context, and an optional Budget attached with
// WithBudget, before every block:
//
//	budget := skiplist.NewBudget(skiplist.BudgetConfig{MaxDuration: 20 * time.Millisecond})
//	ctx = skiplist.WithBudget(ctx, budget)
//	if err := r.RetainData(ctx, candidates); errors.Is(err, skiplist.ErrBudgetExhausted) {
//	    // candidates may be resumed later or discarded
//	}
package skiplist
