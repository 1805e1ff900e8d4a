package skiplist

import (
	"github.com/hupe1980/ftstore/internal/fs"
)

// DefaultFileAlignment is the boundary Close pads the file to.
const DefaultFileAlignment = BlockSize

type writerOptions struct {
	fsys      fs.FileSystem
	alignment int
}

// Option configures a Writer.
type Option func(*writerOptions)

// WithFileSystem sets the file system the writer creates its file on.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *writerOptions) {
		o.fsys = fsys
	}
}

// WithFileAlignment sets the boundary the finished file is padded to. It
// must be a multiple of BlockSize; a page cache with larger pages needs the
// file padded to its page size.
func WithFileAlignment(n int) Option {
	return func(o *writerOptions) {
		o.alignment = n
	}
}
