package benchmark_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/ftstore"
	"github.com/hupe1980/ftstore/pagecache"
	"github.com/hupe1980/ftstore/skiplist"
	"github.com/hupe1980/ftstore/testutil"
)

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{sizeSmall, sizeMedium} {
		b.Run(sizeName(n), func(b *testing.B) {
			b.ReportAllocs()

			keys, values := testutil.NewRNG(benchSeed).Postings(n, 16)
			dir := b.TempDir()

			b.SetBytes(int64(16 * n))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				builder, err := ftstore.Build(filepath.Join(dir, "bench.idx"))
				if err != nil {
					b.Fatal(err)
				}

				if _, err := builder.Add(keys, values); err != nil {
					b.Fatal(err)
				}

				if err := builder.Close(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLookup(b *testing.B) {
	for _, n := range []int{sizeSmall, sizeMedium, sizeLarge} {
		b.Run(sizeName(n), func(b *testing.B) {
			b.ReportAllocs()

			ix := newBenchIndex(b, n, ftstore.WithPoolSize(1024))
			probes := ix.rng.SortedProbes(ix.keys, 64, 0.5)
			ctx := context.Background()

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := ix.Lookup(ctx, ix.offset, probes); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLookup_Parallel(b *testing.B) {
	b.ReportAllocs()

	ix := newBenchIndex(b, sizeMedium, ftstore.WithPoolSize(1024))
	probes := ix.rng.SortedProbes(ix.keys, 64, 0.5)

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := ix.Lookup(ctx, ix.offset, probes); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func BenchmarkRetain(b *testing.B) {
	for _, bc := range []struct {
		name string
		rate float64
	}{
		{"sparse", 0.01},
		{"dense", 0.5},
	} {
		b.Run(bc.name, func(b *testing.B) {
			b.ReportAllocs()

			ix := newBenchIndex(b, sizeMedium, ftstore.WithPoolSize(1024))
			candidates := ix.rng.SortedProbes(ix.keys, int(float64(sizeMedium)*bc.rate), 0.5)
			ctx := context.Background()

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				buf := skiplist.NewQueryBufferFrom(candidates)
				if err := ix.Retain(ctx, ix.offset, buf); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkScan(b *testing.B) {
	b.ReportAllocs()

	ix := newBenchIndex(b, sizeMedium, ftstore.WithPoolSize(1024))
	buf := skiplist.NewQueryBuffer(4096)
	ctx := context.Background()

	b.SetBytes(int64(8 * sizeMedium))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		r := ix.Reader(ix.offset)
		for !r.AtEnd() {
			buf.Reset()
			if _, err := r.GetData(ctx, buf); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkCacheGet pins random pages with a pool smaller than the working
// set, so the clock hand keeps moving.
func BenchmarkCacheGet(b *testing.B) {
	ix := newBenchIndex(b, sizeLarge)

	src, err := pagecache.OpenFile(ix.path)
	if err != nil {
		b.Fatal(err)
	}

	cache, err := pagecache.New(src, pagecache.WithPoolSize(256), pagecache.WithMonitorInterval(0))
	if err != nil {
		_ = src.Close()
		b.Fatal(err)
	}
	defer cache.Close()

	pages := int(src.Size()) / cache.PageSize()

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		rng := testutil.NewRNG(ix.rng.Uint64())
		for pb.Next() {
			p, err := cache.Get(int64(rng.IntN(pages) * cache.PageSize()))
			if err != nil {
				b.Error(err)
				return
			}
			p.Release()
		}
	})
}
