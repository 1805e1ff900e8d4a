package skiplist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/ftstore/pagecache"
	"github.com/stretchr/testify/require"
)

// sequence returns n ascending keys (7, 10, 13, ...) and values derived
// from them.
func sequence(n int) (keys, values []uint64) {
	keys = make([]uint64, n)
	values = make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(3*i + 7)
		values[i] = keys[i]*10 + 1
	}
	return keys, values
}

// writeLists writes each list after padding the file by the matching
// prefix and returns the file path and the start offsets.
func writeLists(t *testing.T, lists [][2][]uint64, opts ...Option) (string, []int64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postings.skl")

	w, err := Create(path, opts...)
	require.NoError(t, err)

	starts := make([]int64, 0, len(lists))
	for _, l := range lists {
		start, err := w.WriteList(l[0], l[1])
		require.NoError(t, err)
		starts = append(starts, start)
	}
	require.NoError(t, w.Close())
	return path, starts
}

func writeList(t *testing.T, keys, values []uint64) (string, int64) {
	t.Helper()
	path, starts := writeLists(t, [][2][]uint64{{keys, values}})
	return path, starts[0]
}

func openPool(t *testing.T, path string, opts ...pagecache.Option) *pagecache.Cache {
	t.Helper()
	src, err := pagecache.OpenFile(path)
	require.NoError(t, err)

	opts = append([]pagecache.Option{
		pagecache.WithPoolSize(16),
		pagecache.WithSynchronousReclaim(),
		pagecache.WithMonitorInterval(0),
	}, opts...)

	c, err := pagecache.New(src, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
