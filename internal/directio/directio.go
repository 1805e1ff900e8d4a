package directio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"
)

// BlockSize is the alignment unbuffered reads require of file offsets,
// transfer lengths and memory buffers.
const BlockSize = 512

var (
	// ErrUnaligned is returned when an offset, length or buffer violates BlockSize alignment.
	ErrUnaligned = errors.New("directio: unaligned read")
	// ErrClosed is returned when reading from a closed file.
	ErrClosed = errors.New("directio: file closed")
)

// File is a read-only handle that bypasses the OS page cache where the
// platform and file system allow it.
type File struct {
	f      *os.File
	size   int64
	direct bool
}

// Open opens path for unbuffered reads. If the file system refuses direct
// I/O (tmpfs, some overlay mounts) the file is opened buffered instead and
// Direct reports false.
func Open(path string) (*File, error) {
	f, direct, err := openFile(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{f: f, size: fi.Size(), direct: direct}, nil
}

// ReadAt fills p from absolute offset off. It reads exactly len(p) bytes or
// fails; hitting end of file early yields io.ErrUnexpectedEOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.f == nil {
		return 0, ErrClosed
	}
	if f.direct && !Aligned(p, off) {
		return 0, fmt.Errorf("%w: offset %d length %d", ErrUnaligned, off, len(p))
	}

	total := 0
	for total < len(p) {
		n, err := pread(f.f, p[total:], off+int64(total))
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, io.ErrUnexpectedEOF
			}
			return total, err
		}
		if n == 0 {
			return total, io.ErrUnexpectedEOF
		}
	}
	return total, nil
}

// Size returns the file size observed at open time.
func (f *File) Size() int64 { return f.size }

// Direct reports whether reads bypass the OS page cache.
func (f *File) Direct() bool { return f.direct }

// Name returns the path the file was opened with.
func (f *File) Name() string {
	if f.f == nil {
		return ""
	}
	return f.f.Name()
}

// Close releases the descriptor. It is idempotent.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}

// Aligned reports whether a read of p at off satisfies BlockSize alignment.
func Aligned(p []byte, off int64) bool {
	if off%BlockSize != 0 || len(p)%BlockSize != 0 {
		return false
	}
	if len(p) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&p[0]))%BlockSize == 0
}
