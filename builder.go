package ftstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/hupe1980/ftstore/blobstore"
	"github.com/hupe1980/ftstore/skiplist"
	"golang.org/x/sync/errgroup"
)

// List is one postings list: ascending keys and their values.
type List struct {
	Keys   []uint64
	Values []uint64
}

// Builder writes skip lists into a new index file. The file appears at its
// final path only once Close succeeds.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	opts   options
	logger *Logger
	path   string
	tmp    string
	w      *skiplist.Writer

	lists   int
	records int64
	done    bool
}

// Build starts writing an index to path. The file is padded to the page
// size so it can be opened with the same options.
func Build(path string, optFns ...Option) (*Builder, error) {
	opts, err := newOptions(optFns)
	if err != nil {
		return nil, err
	}

	tmp := path + ".tmp"
	w, err := skiplist.Create(tmp,
		skiplist.WithFileSystem(opts.fsys),
		skiplist.WithFileAlignment(opts.pageSize),
	)
	if err != nil {
		return nil, err
	}

	return &Builder{
		opts:   opts,
		logger: opts.logger.WithPath(path),
		path:   path,
		tmp:    tmp,
		w:      w,
	}, nil
}

// Add writes one list and returns the offset to read it from.
func (b *Builder) Add(keys, values []uint64) (int64, error) {
	if b.done {
		return 0, ErrClosed
	}
	off, err := b.w.WriteList(keys, values)
	if err != nil {
		return 0, err
	}
	b.lists++
	b.records += int64(len(keys))
	return off, nil
}

// AddPairs writes one list given as interleaved keys and values.
func (b *Builder) AddPairs(pairs []uint64) (int64, error) {
	if b.done {
		return 0, ErrClosed
	}
	if len(pairs)%2 != 0 {
		return 0, fmt.Errorf("%w: odd pair slice length %d", skiplist.ErrLengthMismatch, len(pairs))
	}
	off, err := b.w.WritePairs(pairs, 0, len(pairs)/2)
	if err != nil {
		return 0, err
	}
	b.lists++
	b.records += int64(len(pairs) / 2)
	return off, nil
}

// AddAll validates lists concurrently, then writes them in order and
// returns their offsets. Nothing is written if any list is invalid; the
// error is then an *ErrInvalidList.
func (b *Builder) AddAll(ctx context.Context, lists []List) ([]int64, error) {
	if b.done {
		return nil, ErrClosed
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, l := range lists {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := validateList(l); err != nil {
				return &ErrInvalidList{Index: i, cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	offsets := make([]int64, 0, len(lists))
	for _, l := range lists {
		if err := ctx.Err(); err != nil {
			return offsets, err
		}
		off, err := b.Add(l.Keys, l.Values)
		if err != nil {
			return offsets, err
		}
		offsets = append(offsets, off)
	}
	return offsets, nil
}

func validateList(l List) error {
	if len(l.Keys) != len(l.Values) {
		return fmt.Errorf("%w: %d keys, %d values", skiplist.ErrLengthMismatch, len(l.Keys), len(l.Values))
	}
	if !slices.IsSorted(l.Keys) {
		return skiplist.ErrUnsorted
	}
	return nil
}

// Lists returns how many lists were added.
func (b *Builder) Lists() int { return b.lists }

// Close writes the footer, syncs the file and moves it to its final path.
func (b *Builder) Close() error {
	if b.done {
		return nil
	}
	b.done = true

	size := b.w.Position()
	err := b.w.WriteFooter(b.opts.magic)
	if cerr := b.w.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = b.opts.fsys.Rename(b.tmp, b.path)
	}
	if err != nil {
		_ = b.opts.fsys.Remove(b.tmp)
	} else if fi, serr := b.opts.fsys.Stat(b.path); serr == nil {
		size = fi.Size()
	}

	b.logger.LogBuild(context.Background(), b.lists, b.records, size, err)
	return err
}

// Abort discards the partially written file.
func (b *Builder) Abort() error {
	if b.done {
		return nil
	}
	b.done = true

	err := b.w.Close()
	if rerr := b.opts.fsys.Remove(b.tmp); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
		err = rerr
	}
	return err
}

// Publish uploads the index file at path to store under name, so it can be
// served with OpenBlob. The upload is invisible to readers until complete.
func Publish(ctx context.Context, path string, store blobstore.BlobStore, name string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := blobstore.Copy(ctx, store, name, f)
	if err != nil {
		return n, fmt.Errorf("ftstore: publish %s as %s: %w", path, name, err)
	}
	return n, nil
}
