package blobstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ftfs "github.com/hupe1980/ftstore/internal/fs"
	"github.com/hupe1980/ftstore/internal/mmap"
)

// LocalStore keeps blobs as files under a root directory. Blobs are opened
// through read-only memory maps.
type LocalStore struct {
	root string
	fsys ftfs.FileSystem
}

var _ BlobStore = (*LocalStore)(nil)

// NewLocalStore returns a store rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, fsys: ftfs.Default}
}

// NewLocalStoreFS is NewLocalStore with an explicit file system for writes.
func NewLocalStoreFS(root string, fsys ftfs.FileSystem) *LocalStore {
	return &LocalStore{root: root, fsys: fsys}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open implements BlobStore.
func (s *LocalStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := mmap.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.AccessRandom)
	return &localBlob{m: m}, nil
}

// Create implements BlobStore. Bytes go to a temporary sibling file that is
// renamed into place on Close.
func (s *LocalStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := s.path(name)
	if err := s.fsys.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, err
	}

	tmp := final + ".tmp"
	f, err := s.fsys.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &localWriter{fsys: s.fsys, f: f, tmp: tmp, final: final}, nil
}

// Put implements BlobStore.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.(*localWriter).Abort()
		return err
	}
	if err := w.Sync(); err != nil {
		_ = w.(*localWriter).Abort()
		return err
	}
	return w.Close()
}

// Delete implements BlobStore.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := s.fsys.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List implements BlobStore. Temporary files of unfinished writes are skipped.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return readAt(b.m.Bytes(), p, off)
}

func (b *localBlob) Size() int64   { return int64(b.m.Size()) }
func (b *localBlob) Bytes() []byte { return b.m.Bytes() }
func (b *localBlob) Close() error  { return b.m.Close() }

type localWriter struct {
	fsys  ftfs.FileSystem
	f     ftfs.File
	tmp   string
	final string
	done  bool
}

func (w *localWriter) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *localWriter) Sync() error { return w.f.Sync() }

func (w *localWriter) Close() error {
	if w.done {
		return errWriterClosed
	}
	w.done = true

	if err := w.f.Close(); err != nil {
		_ = w.fsys.Remove(w.tmp)
		return err
	}
	return w.fsys.Rename(w.tmp, w.final)
}

// Abort discards the temporary file.
func (w *localWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	return w.fsys.Remove(w.tmp)
}
