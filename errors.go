package ftstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ftstore/blobstore"
	"github.com/hupe1980/ftstore/pagecache"
	"github.com/hupe1980/ftstore/skiplist"
)

var (
	// ErrClosed is returned when using a closed Index or Builder.
	ErrClosed = errors.New("ftstore: closed")

	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = blobstore.ErrNotFound

	// ErrBadFooter is returned when a file is not an index written with the
	// expected magic word.
	ErrBadFooter = skiplist.ErrBadFooter

	// ErrCorruptBlock is returned when a list block cannot be decoded.
	ErrCorruptBlock = skiplist.ErrCorruptBlock

	// ErrUnsorted is returned for keys or probes that are not ascending.
	ErrUnsorted = skiplist.ErrUnsorted

	// ErrLengthMismatch is returned when keys and values differ in length.
	ErrLengthMismatch = skiplist.ErrLengthMismatch

	// ErrBudgetExhausted is returned when a read stops on its budget.
	ErrBudgetExhausted = skiplist.ErrBudgetExhausted

	// ErrMisaligned is returned for page addresses off the alignment.
	ErrMisaligned = pagecache.ErrMisaligned

	// ErrOutOfRange is returned for addresses past the end of the index.
	ErrOutOfRange = pagecache.ErrOutOfRange

	// ErrPagesPinned is returned by Close when a reader still held a page
	// after the cache's close timeout.
	ErrPagesPinned = pagecache.ErrPagesPinned

	// ErrSourceClose is returned by Swap when the new file is live but
	// closing the previous one failed.
	ErrSourceClose = pagecache.ErrSourceClose
)

// ErrInvalidList reports a list AddAll rejected before anything was written.
//
// The underlying validation error can be accessed via errors.Unwrap.
type ErrInvalidList struct {
	Index int
	cause error
}

func (e *ErrInvalidList) Error() string {
	return fmt.Sprintf("ftstore: list %d: %v", e.Index, e.cause)
}

func (e *ErrInvalidList) Unwrap() error { return e.cause }

// translateError maps closed errors of the layers below onto ErrClosed.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pagecache.ErrClosed) || errors.Is(err, skiplist.ErrClosed) {
		if errors.Is(err, ErrClosed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
