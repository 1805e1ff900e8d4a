package pagecache

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/ftstore/blobstore"
	"github.com/stretchr/testify/require"
)

// patternData returns size bytes where every 8-byte word holds its own offset.
func patternData(size int) []byte {
	data := make([]byte, size)
	for off := 0; off+8 <= size; off += 8 {
		binary.LittleEndian.PutUint64(data[off:], uint64(off))
	}
	return data
}

func writePatternFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.dat")
	require.NoError(t, os.WriteFile(path, patternData(size), 0o644))
	return path
}

func memorySource(t *testing.T, size int) Source {
	t.Helper()
	ctx := context.Background()

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "pages.dat", patternData(size)))

	blob, err := store.Open(ctx, "pages.dat")
	require.NoError(t, err)
	return NewBlobSource(ctx, blob)
}

func requirePageContent(t *testing.T, page *Page, address int64) {
	t.Helper()
	require.Equal(t, address, page.Address())
	for off := 0; off < page.Size(); off += 8 {
		require.Equal(t, uint64(address)+uint64(off), page.Uint64(off))
	}
}

var errDisk = errors.New("disk read failed")

// failingSource fails reads at chosen addresses.
type failingSource struct {
	Source
	mu   sync.Mutex
	fail map[int64]bool
}

func newFailingSource(src Source, addresses ...int64) *failingSource {
	f := &failingSource{Source: src, fail: make(map[int64]bool)}
	for _, a := range addresses {
		f.fail[a] = true
	}
	return f
}

func (f *failingSource) ReadPage(p []byte, off int64) error {
	f.mu.Lock()
	bad := f.fail[off]
	f.mu.Unlock()
	if bad {
		return errDisk
	}
	return f.Source.ReadPage(p, off)
}

func (f *failingSource) heal(address int64) {
	f.mu.Lock()
	delete(f.fail, address)
	f.mu.Unlock()
}

var errCloseFailed = errors.New("close failed")

// closeFailingSource fails Close after closing the wrapped source.
type closeFailingSource struct {
	Source
}

func (s closeFailingSource) Close() error {
	_ = s.Source.Close()
	return errCloseFailed
}

// syncBuffer is a bytes.Buffer safe for a logger writing from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *syncBuffer) String() string {
	return string(b.Bytes())
}
