package ftstore_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/hupe1980/ftstore"
	"github.com/hupe1980/ftstore/blobstore"
	"github.com/hupe1980/ftstore/pagecache"
	"github.com/hupe1980/ftstore/skiplist"
	"github.com/hupe1980/ftstore/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// postings returns n ascending document ids starting at first, spaced by
// step, with values derived from them.
func postings(n int, first, step uint64) ftstore.List {
	l := ftstore.List{Keys: make([]uint64, n), Values: make([]uint64, n)}
	for i := range n {
		l.Keys[i] = first + uint64(i)*step
		l.Values[i] = l.Keys[i]<<8 | uint64(i%256)
	}
	return l
}

func buildIndex(t *testing.T, lists []ftstore.List, opts ...ftstore.Option) (string, []int64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terms.idx")

	b, err := ftstore.Build(path, opts...)
	require.NoError(t, err)
	offsets, err := b.AddAll(context.Background(), lists)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	return path, offsets
}

func openIndex(t *testing.T, path string, opts ...ftstore.Option) *ftstore.Index {
	t.Helper()
	ix, err := ftstore.Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func scan(t *testing.T, r *skiplist.Reader) []uint64 {
	t.Helper()
	buf := skiplist.NewQueryBuffer(64)
	var out []uint64
	for !r.AtEnd() {
		buf.Reset()
		_, err := r.GetData(context.Background(), buf)
		require.NoError(t, err)
		out = append(out, buf.Data()...)
	}
	return out
}

func TestIndex_BuildAndRead(t *testing.T) {
	lists := []ftstore.List{postings(3, 1, 1), postings(500, 10, 7), postings(0, 0, 0), postings(64, 2, 2)}
	path, offsets := buildIndex(t, lists)

	ix := openIndex(t, path)
	assert.Equal(t, path, ix.Name())
	assert.Equal(t, pagecache.DefaultPageSize, ix.PageSize())

	for i, l := range lists {
		got := scan(t, ix.Reader(offsets[i]))
		assert.Equal(t, len(l.Keys), len(got), "list %d", i)
		if len(l.Keys) > 0 {
			assert.Equal(t, l.Keys, got, "list %d", i)
		}
	}

	l := lists[1]
	values, err := ix.Lookup(context.Background(), offsets[1], []uint64{l.Keys[0], l.Keys[0] + 1, l.Keys[250], l.Keys[499]})
	require.NoError(t, err)
	assert.Equal(t, []uint64{l.Values[0], 0, l.Values[250], l.Values[499]}, values)

	assert.NotZero(t, ix.Stats().DiskReads)
}

func TestIndex_RandomPostings(t *testing.T) {
	rng := testutil.NewRNG(2024)

	lists := make([]ftstore.List, 24)
	for i := range lists {
		keys, values := rng.Postings(rng.IntN(3000), 1+uint64(rng.IntN(40)))
		lists[i] = ftstore.List{Keys: keys, Values: values}
	}
	path, offsets := buildIndex(t, lists)
	ix := openIndex(t, path, ftstore.WithPoolSize(16))
	ctx := context.Background()

	for i, l := range lists {
		stored := make(map[uint64]uint64, len(l.Keys))
		for j, k := range l.Keys {
			stored[k] = l.Values[j]
		}

		probes := rng.SortedProbes(l.Keys, 50, 0.5)
		values, err := ix.Lookup(ctx, offsets[i], probes)
		require.NoError(t, err)
		for j, p := range probes {
			assert.Equal(t, stored[p], values[j], "list %d probe %d", i, p)
		}

		buf := skiplist.NewQueryBufferFrom(probes)
		require.NoError(t, ix.Retain(ctx, offsets[i], buf))
		var want []uint64
		for _, p := range probes {
			if _, ok := stored[p]; ok {
				want = append(want, p)
			}
		}
		assert.Equal(t, len(want), buf.Size(), "list %d", i)
		if len(want) > 0 {
			assert.Equal(t, want, buf.Data(), "list %d", i)
		}
	}
}

func TestIndex_Filters(t *testing.T) {
	evens := postings(200, 0, 2)
	threes := postings(200, 0, 3)
	path, offsets := buildIndex(t, []ftstore.List{evens, threes})
	ix := openIndex(t, path)

	buf := skiplist.NewQueryBuffer(64)
	for i := range uint64(64) {
		buf.Add(i)
	}

	require.NoError(t, ix.Retain(context.Background(), offsets[0], buf))
	require.NoError(t, ix.Reject(context.Background(), offsets[1], buf))
	assert.Equal(t, []uint64{2, 4, 8, 10, 14, 16, 20, 22, 26, 28, 32, 34, 38, 40, 44, 46, 50, 52, 56, 58, 62}, buf.Data())
}

func TestIndex_Budget(t *testing.T) {
	l := postings(2000, 1, 1)
	path, offsets := buildIndex(t, []ftstore.List{l})
	ix := openIndex(t, path)

	budget := skiplist.NewBudget(skiplist.BudgetConfig{MaxBlocks: 3})
	ctx := skiplist.WithBudget(context.Background(), budget)

	buf := skiplist.NewQueryBufferFrom(l.Keys)
	err := ix.Retain(ctx, offsets[0], buf)
	require.ErrorIs(t, err, ftstore.ErrBudgetExhausted)
	assert.Less(t, buf.Size(), len(l.Keys))
	assert.True(t, budget.IsExhausted())
}

func TestIndex_FooterValidation(t *testing.T) {
	path, _ := buildIndex(t, []ftstore.List{postings(10, 1, 1)}, ftstore.WithMagicWord("terms-v2"))

	_, err := ftstore.Open(context.Background(), path)
	assert.ErrorIs(t, err, ftstore.ErrBadFooter)

	openIndex(t, path, ftstore.WithMagicWord("terms-v2"))

	junk := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(junk, make([]byte, 2048), 0o644))
	_, err = ftstore.Open(context.Background(), junk)
	assert.ErrorIs(t, err, ftstore.ErrBadFooter)

	_, err = ftstore.Open(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ftstore.Open(ctx, path, ftstore.WithMagicWord("terms-v2"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_PageSizes(t *testing.T) {
	lists := []ftstore.List{postings(50, 1, 3), postings(700, 5, 2)}

	path, offsets := buildIndex(t, lists, ftstore.WithPageSize(4096))
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, fi.Size()%4096)

	for _, size := range []int{512, 1024, 4096} {
		ix := openIndex(t, path, ftstore.WithPageSize(size), ftstore.WithPoolSize(8))
		assert.Equal(t, lists[1].Keys, scan(t, ix.Reader(offsets[1])), "page size %d", size)
	}

	small, _ := buildIndex(t, []ftstore.List{postings(3, 1, 1)})
	_, err = ftstore.Open(context.Background(), small, ftstore.WithPageSize(4096))
	assert.ErrorIs(t, err, ftstore.ErrBadFooter)

	_, err = ftstore.Build(filepath.Join(t.TempDir(), "x"), ftstore.WithPageSize(300))
	assert.Error(t, err)
}

func TestIndex_Swap(t *testing.T) {
	pathA, offsetsA := buildIndex(t, []ftstore.List{postings(100, 1, 1)})
	pathB, offsetsB := buildIndex(t, []ftstore.List{postings(5, 1000, 1), postings(100, 1, 5)})

	ix := openIndex(t, pathA)
	values, err := ix.Lookup(context.Background(), offsetsA[0], []uint64{50})
	require.NoError(t, err)
	assert.Equal(t, []uint64{50<<8 | 49}, values)

	require.NoError(t, ix.Swap(context.Background(), pathB))
	assert.Equal(t, pathB, ix.Name())

	values, err = ix.Lookup(context.Background(), offsetsB[1], []uint64{50, 51})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 51<<8 | 10}, values)

	// A rejected file leaves the current one in place.
	junk := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(junk, make([]byte, 1024), 0o644))
	assert.ErrorIs(t, ix.Swap(context.Background(), junk), ftstore.ErrBadFooter)
	assert.Equal(t, pathB, ix.Name())

	values, err = ix.Lookup(context.Background(), offsetsB[0], []uint64{1004})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1004<<8 | 4}, values)
}

func TestIndex_Blob(t *testing.T) {
	l := postings(300, 3, 3)
	path, offsets := buildIndex(t, []ftstore.List{l})

	store := blobstore.NewMemoryStore()
	n, err := ftstore.Publish(context.Background(), path, store, "segments/terms.idx")
	require.NoError(t, err)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fi.Size(), n)

	ix, err := ftstore.OpenBlob(context.Background(), store, "segments/terms.idx")
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, l.Keys, scan(t, ix.Reader(offsets[0])))

	_, err = ftstore.OpenBlob(context.Background(), store, "segments/missing.idx")
	assert.ErrorIs(t, err, ftstore.ErrNotFound)

	pathB, offsetsB := buildIndex(t, []ftstore.List{postings(10, 7, 1)})
	_, err = ftstore.Publish(context.Background(), pathB, store, "segments/next.idx")
	require.NoError(t, err)

	require.NoError(t, ix.SwapBlob(context.Background(), store, "segments/next.idx"))
	values, err := ix.Lookup(context.Background(), offsetsB[0], []uint64{7, 16})
	require.NoError(t, err)
	assert.Equal(t, []uint64{7 << 8, 16<<8 | 9}, values)
}

var errBlobClose = errors.New("blob close failed")

// closeFailingStore hands out blobs whose Close fails.
type closeFailingStore struct {
	blobstore.BlobStore
}

func (s closeFailingStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	blob, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return closeFailingBlob{blob}, nil
}

type closeFailingBlob struct {
	blobstore.Blob
}

func (b closeFailingBlob) Close() error {
	_ = b.Blob.Close()
	return errBlobClose
}

func TestIndex_SwapWhenOldFileFailsToClose(t *testing.T) {
	pathA, _ := buildIndex(t, []ftstore.List{postings(20, 1, 1)})
	pathB, offsetsB := buildIndex(t, []ftstore.List{postings(5, 1000, 1), postings(100, 1, 5)})

	store := blobstore.NewMemoryStore()
	_, err := ftstore.Publish(context.Background(), pathA, store, "a.idx")
	require.NoError(t, err)

	var logs bytes.Buffer
	ix, err := ftstore.OpenBlob(context.Background(), closeFailingStore{store}, "a.idx",
		ftstore.WithLogger(ftstore.NewLogger(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	defer ix.Close()

	err = ix.Swap(context.Background(), pathB)
	require.ErrorIs(t, err, ftstore.ErrSourceClose)
	assert.ErrorIs(t, err, errBlobClose)
	assert.Equal(t, pathB, ix.Name())
	assert.Contains(t, logs.String(), "index swapped")
	assert.Contains(t, logs.String(), "closing previous index failed")

	values, err := ix.Lookup(context.Background(), offsetsB[1], []uint64{50, 51})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 51<<8 | 10}, values)
}

func TestIndex_LocalBlobStore(t *testing.T) {
	l := postings(40, 1, 1)
	path, offsets := buildIndex(t, []ftstore.List{l})

	store := blobstore.NewLocalStore(t.TempDir())
	_, err := ftstore.Publish(context.Background(), path, store, "terms.idx")
	require.NoError(t, err)

	ix, err := ftstore.OpenBlob(context.Background(), store, "terms.idx")
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, l.Keys, scan(t, ix.Reader(offsets[0])))
}

func TestIndex_Close(t *testing.T) {
	path, offsets := buildIndex(t, []ftstore.List{postings(10, 1, 1)})

	ix, err := ftstore.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())

	_, err = ix.Lookup(context.Background(), offsets[0], []uint64{1})
	assert.ErrorIs(t, err, ftstore.ErrClosed)
	assert.ErrorIs(t, ix.Swap(context.Background(), path), ftstore.ErrClosed)
}

func TestIndex_CloseDuringLookups(t *testing.T) {
	l := postings(2000, 1, 1)
	path, offsets := buildIndex(t, []ftstore.List{l})

	ix, err := ftstore.Open(context.Background(), path, ftstore.WithPoolSize(8))
	require.NoError(t, err)

	keys := []uint64{1, 500, 1999}
	want := []uint64{l.Values[0], l.Values[499], l.Values[1998]}

	var g errgroup.Group
	started := make(chan struct{}, 8)
	for range 8 {
		g.Go(func() error {
			for i := 0; ; i++ {
				if i == 1 {
					started <- struct{}{}
				}
				values, err := ix.Lookup(context.Background(), offsets[0], keys)
				if errors.Is(err, ftstore.ErrClosed) {
					return nil
				}
				if err != nil {
					return err
				}
				if !slices.Equal(want, values) {
					return fmt.Errorf("lookup returned %v", values)
				}
			}
		})
	}
	for range 8 {
		<-started
	}

	require.NoError(t, ix.Close())
	require.NoError(t, g.Wait())
}

func TestIndex_ReadHint(t *testing.T) {
	l := postings(2000, 1, 1)
	path, offsets := buildIndex(t, []ftstore.List{l})
	ix := openIndex(t, path, ftstore.WithPoolSize(64),
		ftstore.WithReadHint(pagecache.Hint{Readahead: pagecache.ReadaheadAggressive}))

	assert.Equal(t, l.Keys, scan(t, ix.Reader(offsets[0])))
	require.Eventually(t, func() bool {
		return ix.Stats().PrefetchFetches > 0
	}, time.Second, time.Millisecond)
}

func TestIndex_MemoryLimit(t *testing.T) {
	path, _ := buildIndex(t, []ftstore.List{postings(10, 1, 1)})

	_, err := ftstore.Open(context.Background(), path, ftstore.WithPoolSize(64), ftstore.WithMemoryLimit(16*512))
	assert.Error(t, err)

	openIndex(t, path, ftstore.WithPoolSize(16), ftstore.WithMemoryLimit(16*512), ftstore.WithPrefetchIOLimit(1<<20))
}

func TestIndex_Prefetch(t *testing.T) {
	lists := []ftstore.List{postings(10, 1, 1), postings(300, 1, 1)}
	path, offsets := buildIndex(t, lists)

	metrics := &pagecache.BasicMetricsCollector{}
	ix := openIndex(t, path, ftstore.WithMetrics(metrics))

	ix.Prefetch(offsets[1])
	assert.Eventually(t, func() bool {
		return ix.Stats().PrefetchFetches == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), metrics.PrefetchFetched.Load())

	before := ix.Stats().DiskReads
	_, err := ix.Lookup(context.Background(), offsets[1], []uint64{lists[1].Keys[0]})
	require.NoError(t, err)
	assert.Equal(t, before, ix.Stats().DiskReads)
}

func TestIndex_QueryMetrics(t *testing.T) {
	path, offsets := buildIndex(t, []ftstore.List{postings(100, 1, 2)})

	metrics := &ftstore.BasicQueryMetricsCollector{}
	ix := openIndex(t, path, ftstore.WithQueryMetrics(metrics))

	_, err := ix.Lookup(context.Background(), offsets[0], []uint64{1, 2, 3})
	require.NoError(t, err)
	_, err = ix.Lookup(context.Background(), offsets[0], []uint64{3, 1})
	require.ErrorIs(t, err, ftstore.ErrUnsorted)

	buf := skiplist.NewQueryBufferFrom([]uint64{1, 2, 3, 4, 5})
	require.NoError(t, ix.Retain(context.Background(), offsets[0], buf))

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.LookupCount)
	assert.Equal(t, int64(5), stats.LookupKeys)
	assert.Equal(t, int64(1), stats.LookupErrors)
	assert.Equal(t, int64(1), stats.FilterCount)
	assert.Equal(t, int64(5), stats.FilterCandidates)
	assert.Equal(t, int64(3), stats.FilterKept)
}

func TestIndex_Logging(t *testing.T) {
	var out bytes.Buffer
	logger := ftstore.NewLogger(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	path, _ := buildIndex(t, []ftstore.List{postings(10, 1, 1)}, ftstore.WithLogger(logger))
	ix, err := ftstore.Open(context.Background(), path, ftstore.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	_, err = ftstore.Open(context.Background(), filepath.Join(t.TempDir(), "missing"), ftstore.WithLogger(logger))
	require.Error(t, err)

	logs := out.String()
	assert.Contains(t, logs, `"msg":"index built"`)
	assert.Contains(t, logs, `"msg":"index opened"`)
	assert.Contains(t, logs, `"msg":"index closed"`)
	assert.Contains(t, logs, `"msg":"open failed"`)
	assert.Contains(t, logs, `"path":"`+path+`"`)
}

func TestErrInvalidList(t *testing.T) {
	b, err := ftstore.Build(filepath.Join(t.TempDir(), "bad.idx"))
	require.NoError(t, err)
	defer b.Abort()

	lists := []ftstore.List{postings(3, 1, 1), postings(3, 1, 1), {Keys: []uint64{3, 2}, Values: []uint64{0, 0}}}
	_, err = b.AddAll(context.Background(), lists)

	var invalid *ftstore.ErrInvalidList
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 2, invalid.Index)
	assert.ErrorIs(t, err, ftstore.ErrUnsorted)
	assert.Zero(t, b.Lists())
}
