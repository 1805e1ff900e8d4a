package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist. It is os.ErrNotExist,
// so errors.Is works across local and remote stores alike.
var ErrNotFound = os.ErrNotExist

// BlobStore holds immutable index files by name.
//
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create starts writing a blob. The blob becomes visible under name
	// only once the returned writer is closed successfully.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a whole blob at once.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored index file.
type Blob interface {
	// ReadAt reads len(p) bytes at off. A read crossing the end of the blob
	// returns the bytes available together with io.EOF.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the blob length in bytes.
	Size() int64
	Close() error
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	Sync() error
}

// Mappable is implemented by blobs whose contents are already in memory.
// The slice is valid until the blob is closed.
type Mappable interface {
	Bytes() []byte
}

// Copy streams everything r yields into a new blob called name.
func Copy(ctx context.Context, store BlobStore, name string, r io.Reader) (int64, error) {
	w, err := store.Create(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("blobstore: create %s: %w", name, err)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		if a, ok := w.(interface{ Abort() error }); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return n, fmt.Errorf("blobstore: write %s: %w", name, err)
	}
	if err := w.Sync(); err != nil {
		_ = w.Close()
		return n, fmt.Errorf("blobstore: sync %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("blobstore: close %s: %w", name, err)
	}
	return n, nil
}

// readAt serves ReadAt from an in-memory image.
func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("blobstore: negative offset %d", off)
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
