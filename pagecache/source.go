package pagecache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/ftstore/internal/directio"
)

// Source is the backing store pages are populated from.
type Source interface {
	// ReadPage fills p with exactly len(p) bytes starting at off.
	ReadPage(p []byte, off int64) error
	// Size returns the size of the backing store in bytes.
	Size() int64
	// Close releases the underlying handle.
	Close() error
}

// FileSource reads pages from a local file, bypassing the OS page cache
// where the platform allows it.
type FileSource struct {
	f *directio.File
}

// OpenFile opens path for unbuffered page reads.
func OpenFile(path string) (*FileSource, error) {
	f, err := directio.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f}, nil
}

// ReadPage implements Source.
func (s *FileSource) ReadPage(p []byte, off int64) error {
	n, err := s.f.ReadAt(p, off)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return shortRead(n, len(p), off)
	}
	return err
}

// Size implements Source.
func (s *FileSource) Size() int64 { return s.f.Size() }

// Direct reports whether reads bypass the OS page cache.
func (s *FileSource) Direct() bool { return s.f.Direct() }

// Name returns the file path.
func (s *FileSource) Name() string { return s.f.Name() }

// Close implements Source.
func (s *FileSource) Close() error { return s.f.Close() }

// Blob is a context-aware random access reader, as provided by blobstore.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size() int64
	Close() error
}

// BlobSource adapts a Blob so index files in object storage can be paged
// like local files.
type BlobSource struct {
	ctx  context.Context
	blob Blob
}

// NewBlobSource wraps blob. Reads use ctx, so cancelling it fails every
// subsequent population.
func NewBlobSource(ctx context.Context, blob Blob) *BlobSource {
	return &BlobSource{ctx: ctx, blob: blob}
}

// ReadPage implements Source.
func (s *BlobSource) ReadPage(p []byte, off int64) error {
	n, err := s.blob.ReadAt(s.ctx, p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return shortRead(n, len(p), off)
	}
	return err
}

func shortRead(n, want int, off int64) error {
	return fmt.Errorf("%w: %d of %d bytes at %d: %w", ErrShortRead, n, want, off, io.ErrUnexpectedEOF)
}

// Size implements Source.
func (s *BlobSource) Size() int64 { return s.blob.Size() }

// Close implements Source.
func (s *BlobSource) Close() error { return s.blob.Close() }
