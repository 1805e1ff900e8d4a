package skiplist

import (
	"fmt"
	"os"
	"slices"

	"github.com/hupe1980/ftstore/internal/conv"
	"github.com/hupe1980/ftstore/internal/fs"
)

// Writer appends skip lists to a file. Lists are written once, in order,
// and never modified.
//
// A Writer is not safe for concurrent use. After any write error the
// writer is unusable and every further call returns that error.
type Writer struct {
	fsys      fs.FileSystem
	f         fs.File
	path      string
	alignment int

	pos     int64
	block   [BlockSize]byte
	maxKeys []uint64

	err    error
	closed bool
}

// Create truncates or creates path and returns a writer positioned at its
// start.
func Create(path string, optFns ...Option) (*Writer, error) {
	opts := writerOptions{fsys: fs.Default, alignment: DefaultFileAlignment}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.alignment <= 0 || opts.alignment%BlockSize != 0 {
		return nil, fmt.Errorf("skiplist: file alignment %d is not a multiple of %d", opts.alignment, BlockSize)
	}

	f, err := opts.fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("skiplist: create %s: %w", path, err)
	}

	return &Writer{
		fsys:      opts.fsys,
		f:         f,
		path:      path,
		alignment: opts.alignment,
	}, nil
}

// Position returns the offset the next list will be written at, before
// any padding the list itself needs.
func (w *Writer) Position() int64 { return w.pos }

// Pad writes n zero bytes.
func (w *Writer) Pad(n int) error {
	if err := w.usable(); err != nil {
		return err
	}
	return w.pad(n)
}

func (w *Writer) usable() error {
	if w.closed {
		return ErrClosed
	}
	return w.err
}

func (w *Writer) write(p []byte) error {
	if w.err != nil {
		return w.err
	}
	n, err := w.f.Write(p)
	w.pos += int64(n)
	if err != nil {
		w.err = fmt.Errorf("skiplist: write %s at %d: %w", w.path, w.pos, err)
	}
	return w.err
}

var zeros [BlockSize]byte

func (w *Writer) pad(n int) error {
	for n > 0 {
		chunk := min(n, len(zeros))
		if err := w.write(zeros[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// WritePairs writes count records taken from pairs starting at record
// offset, where pairs interleaves keys and values (k0, v0, k1, v1, ...).
func (w *Writer) WritePairs(pairs []uint64, offset, count int) (int64, error) {
	if offset < 0 || count < 0 || 2*(offset+count) > len(pairs) {
		return 0, fmt.Errorf("%w: %d records at %d in %d values", ErrLengthMismatch, count, offset, len(pairs))
	}

	keys := make([]uint64, count)
	values := make([]uint64, count)
	for i := range count {
		keys[i] = pairs[2*(offset+i)]
		values[i] = pairs[2*(offset+i)+1]
	}
	return w.WriteList(keys, values)
}

// WriteList writes one list of ascending keys and their values and returns
// the offset of its first block. The offset is what a Reader starts from.
func (w *Writer) WriteList(keys, values []uint64) (int64, error) {
	if err := w.usable(); err != nil {
		return 0, err
	}
	if len(keys) != len(values) {
		return 0, fmt.Errorf("%w: %d keys, %d values", ErrLengthMismatch, len(keys), len(values))
	}
	if !slices.IsSorted(keys) {
		return 0, ErrUnsorted
	}
	total, err := conv.IntToUint32(len(keys))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBlockOverflow, err)
	}

	start := w.pos
	if start%8 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnaligned, start)
	}

	n := len(keys)
	available := BlockSize - int(start%BlockSize)

	if available >= HeaderSize+recordSize*n {
		h := Header{Records: n, Flags: FlagEndBlock, Remaining: total}
		return start, w.writeBlock(h, nil, keys, values, 0)
	}

	if available < BlockSize/2 {
		// Too little left of this block to hold a useful root.
		if err := w.pad(available); err != nil {
			return 0, err
		}
		start = w.pos
		available = BlockSize
	}

	numBlocks := countBlocks(available, n)
	rootCap := rootCapacity(available, n)
	w.collectMaxKeys(keys[rootCap:], numBlocks)

	rootPtrs := rootPointerCount(n)
	pointers := make([]uint64, 0, 64)
	for pi := range rootPtrs {
		target := 1 << pi
		if target >= numBlocks {
			return 0, fmt.Errorf("%w: root pointer %d targets block %d of %d", ErrBlockOverflow, pi, target, numBlocks)
		}
		pointers = append(pointers, w.maxKeys[target])
	}

	root := Header{Records: rootCap, ForwardCount: rootPtrs, Remaining: total}
	padTo := available
	if numBlocks == 1 {
		root.Flags = FlagEndBlock
		padTo = 0
	}
	if err := w.writeBlock(root, pointers, keys[:rootCap], values[:rootCap], padTo); err != nil {
		return 0, err
	}

	written := rootCap
	for i := 1; i < numBlocks; i++ {
		size := min(n-written, blockCapacity(i))
		fc := clampedPointerCount(i, numBlocks)

		pointers = pointers[:0]
		for pi := range fc {
			pointers = append(pointers, w.maxKeys[i+(1<<pi)])
		}

		h := Header{Records: size, ForwardCount: fc, Remaining: total - uint32(written)}
		padTo = BlockSize
		if i == numBlocks-1 {
			h.Flags = FlagEndBlock
			padTo = 0
		}
		if err := w.writeBlock(h, pointers, keys[written:written+size], values[written:written+size], padTo); err != nil {
			return 0, err
		}
		written += size
	}

	return start, nil
}

// collectMaxKeys records the last key of every non-root block; index 0
// stands in for the root and is never referenced.
func (w *Writer) collectMaxKeys(keys []uint64, numBlocks int) {
	w.maxKeys = append(w.maxKeys[:0], 0)
	for i := 1; i < numBlocks; i++ {
		c := min(len(keys), blockCapacity(i))
		w.maxKeys = append(w.maxKeys, keys[c-1])
		keys = keys[c:]
	}
}

// writeBlock encodes one block and pads it with zeros to padTo bytes.
func (w *Writer) writeBlock(h Header, pointers, keys, values []uint64, padTo int) error {
	size := h.Size()
	if h.Records > MaxRecordsPerBlock || size > BlockSize || (padTo > 0 && size > padTo) {
		return fmt.Errorf("%w: %d records, %d pointers", ErrBlockOverflow, h.Records, h.ForwardCount)
	}

	b := w.block[:max(size, padTo)]
	clear(b)
	putHeader(b, h)

	off := HeaderSize
	for _, list := range [][]uint64{pointers, keys, values} {
		for _, v := range list {
			byteOrder.PutUint64(b[off:], v)
			off += 8
		}
	}
	return w.write(b)
}

// WriteFooter appends a footer block identifying the file. The footer is
// placed so that it ends on the file alignment, which makes it the last
// block of the file.
func (w *Writer) WriteFooter(magic string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := checkMagic(magic); err != nil {
		return err
	}

	// Align the end of the footer with the file alignment.
	end := alignUp(w.pos+BlockSize, int64(w.alignment))
	if err := w.pad(int(end - BlockSize - w.pos)); err != nil {
		return err
	}

	b := w.block[:]
	clear(b)
	putHeader(b, Header{Flags: FlagFooterBlock})

	trailer := BlockSize - len(magic) - footerTrailerSize
	copy(b[trailer:], magic)
	b[BlockSize-5] = uint8(len(magic))
	byteOrder.PutUint32(b[BlockSize-4:], BlockSize)
	return w.write(b)
}

// Close pads the file to the file alignment, flushes it to stable storage
// and closes it. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.err
	if err == nil {
		err = w.pad(int(alignUp(w.pos, int64(w.alignment)) - w.pos))
	}
	if err == nil {
		if serr := w.f.Sync(); serr != nil {
			err = fmt.Errorf("skiplist: sync %s: %w", w.path, serr)
		}
	}
	if cerr := w.f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("skiplist: close %s: %w", w.path, cerr)
	}
	return err
}

func alignUp(v, a int64) int64 {
	return (v + a - 1) / a * a
}
