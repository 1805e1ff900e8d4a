package skiplist

import "errors"

var (
	// ErrUnsorted is returned when keys are not in ascending order.
	ErrUnsorted = errors.New("skiplist: keys not sorted")

	// ErrLengthMismatch is returned when keys and values differ in length.
	ErrLengthMismatch = errors.New("skiplist: keys and values differ in length")

	// ErrBlockOverflow is returned when a block would exceed its capacity.
	ErrBlockOverflow = errors.New("skiplist: block capacity exceeded")

	// ErrUnaligned is returned when a list would start off an 8-byte boundary.
	ErrUnaligned = errors.New("skiplist: list start not 8-byte aligned")

	// ErrCorruptBlock is returned when a block header does not describe a valid block.
	ErrCorruptBlock = errors.New("skiplist: corrupt block")

	// ErrBudgetExhausted is returned when a read stops because its budget ran out.
	ErrBudgetExhausted = errors.New("skiplist: query budget exhausted")

	// ErrBadFooter is returned when the file footer is missing or has the wrong magic word.
	ErrBadFooter = errors.New("skiplist: invalid footer")

	// ErrBlockSizeMismatch is returned when a file was written with another block size.
	ErrBlockSizeMismatch = errors.New("skiplist: block size mismatch")

	// ErrMagicTooLong is returned when a magic word does not fit in a footer.
	ErrMagicTooLong = errors.New("skiplist: magic word too long")

	// ErrClosed is returned when writing to a closed writer.
	ErrClosed = errors.New("skiplist: writer closed")
)
