package pagecache

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when the cache has been closed.
	ErrClosed = errors.New("pagecache: closed")

	// ErrMisaligned is returned for addresses that are not a multiple of the alignment.
	ErrMisaligned = errors.New("pagecache: misaligned address")

	// ErrOutOfRange is returned for addresses whose page would extend past the end of the source.
	ErrOutOfRange = errors.New("pagecache: address out of range")

	// ErrInvalidConfig is returned for unusable options.
	ErrInvalidConfig = errors.New("pagecache: invalid configuration")

	// ErrShortRead is returned when a source ends inside a page.
	ErrShortRead = errors.New("pagecache: short read")

	// ErrPagesPinned is returned by Close when callers still held pages
	// after the close timeout. The arena then stays mapped so those pages
	// remain readable; its memory is not reclaimed.
	ErrPagesPinned = errors.New("pagecache: pages still pinned")

	// ErrSourceClose is returned by SwapSource when the new source was
	// installed but closing the previous one failed.
	ErrSourceClose = errors.New("pagecache: close replaced source")
)

// IOError reports a failed page population. The page slot has already been
// returned to the free queue when the caller sees it.
type IOError struct {
	Address int64
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("pagecache: read page at %d: %v", e.Address, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
