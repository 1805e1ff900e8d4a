package skiplist

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	// BlockSize is the on-disk block unit. Every list block except a
	// compact or terminal one is padded to a BlockSize boundary.
	BlockSize = 512
	// HeaderSize is the size of the block header.
	HeaderSize = 8
	// MaxRecordsPerBlock is the most records a block without forward
	// pointers can hold.
	MaxRecordsPerBlock = (BlockSize - HeaderSize) / recordSize

	recordSize = 16 // key + value
)

// Header flags.
const (
	FlagEndBlock    uint8 = 1 << 0
	FlagFooterBlock uint8 = 1 << 1
)

var byteOrder = binary.LittleEndian

// Header is the decoded 8-byte block header:
//
//	u8  records
//	u8  forward pointer count
//	u8  flags
//	u8  reserved
//	u32 records remaining in the list, counted from the first record of this block
type Header struct {
	Records      int
	ForwardCount int
	Flags        uint8
	Remaining    uint32
}

// IsEnd reports whether this is the terminal block of its list.
func (h Header) IsEnd() bool { return h.Flags&FlagEndBlock != 0 }

// IsFooter reports whether this is a file footer block.
func (h Header) IsFooter() bool { return h.Flags&FlagFooterBlock != 0 }

// Size returns the encoded size of the block in bytes, padding excluded.
func (h Header) Size() int {
	return HeaderSize + 8*(h.ForwardCount+2*h.Records)
}

func (h Header) keysOffset() int   { return HeaderSize + 8*h.ForwardCount }
func (h Header) valuesOffset() int { return HeaderSize + 8*(h.ForwardCount+h.Records) }

// check validates a header found offset bytes into its block.
func (h Header) check(offset int) error {
	switch {
	case h.IsFooter():
		return fmt.Errorf("%w: footer block where a list block was expected", ErrCorruptBlock)
	case h.Records > MaxRecordsPerBlock:
		return fmt.Errorf("%w: %d records", ErrCorruptBlock, h.Records)
	case offset+h.Size() > BlockSize:
		return fmt.Errorf("%w: %d records and %d pointers at offset %d overrun the block",
			ErrCorruptBlock, h.Records, h.ForwardCount, offset)
	}
	return nil
}

func putHeader(b []byte, h Header) {
	b[0] = uint8(h.Records)
	b[1] = uint8(h.ForwardCount)
	b[2] = h.Flags
	b[3] = 0
	byteOrder.PutUint32(b[4:], h.Remaining)
}

// DecodeHeader decodes the header at the start of b.
func DecodeHeader(b []byte) Header {
	return Header{
		Records:      int(b[0]),
		ForwardCount: int(b[1]),
		Flags:        b[2],
		Remaining:    byteOrder.Uint32(b[4:]),
	}
}

// estimateBlocks is the block count of n records at full capacity.
func estimateBlocks(n int) int {
	return (n + MaxRecordsPerBlock - 1) / MaxRecordsPerBlock
}

// rootPointerCount is the number of forward pointers in the root block of
// an n-record list: the trailing zero count of the estimated block count
// rounded up to a power of two.
func rootPointerCount(n int) int {
	est := estimateBlocks(n)
	if est <= 1 {
		return 0
	}
	return bits.Len(uint(est - 1))
}

// rootCapacity is the number of records the root block holds when
// available bytes remain in its disk block.
func rootCapacity(available, n int) int {
	return min(n, (available-HeaderSize-8*rootPointerCount(n))/recordSize)
}

// blockPointerCount is the forward pointer count of non-root block i
// before clamping to the list length.
func blockPointerCount(i int) int {
	return bits.TrailingZeros(uint(i))
}

// blockCapacity is the record capacity of non-root block i. It depends on
// the unclamped pointer count so readers and writers agree on it without
// knowing the list length.
func blockCapacity(i int) int {
	return (BlockSize - HeaderSize - 8*blockPointerCount(i)) / recordSize
}

// countBlocks returns how many blocks an n-record list occupies when its
// root starts with available bytes left in its disk block.
func countBlocks(available, n int) int {
	blocks := 1
	n -= rootCapacity(available, n)
	for i := 1; n > 0; i++ {
		n -= blockCapacity(i)
		blocks++
	}
	return blocks
}

// clampedPointerCount limits block i's pointers so that block i+2^fc is
// still part of an numBlocks-long list.
func clampedPointerCount(i, numBlocks int) int {
	fc := blockPointerCount(i)
	for fc > 0 && i+(1<<fc) >= numBlocks {
		fc--
	}
	return fc
}
