package benchmark_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/ftstore"
	"github.com/hupe1980/ftstore/testutil"
)

// ============================================================================
// Benchmark Configuration
// ============================================================================

// Standard posting list lengths.
const (
	sizeSmall  = 1_000
	sizeMedium = 50_000
	sizeLarge  = 500_000
)

// Seed for deterministic benchmarks - enables reproducible comparisons.
const benchSeed = 42

// ============================================================================
// Benchmark Helpers
// ============================================================================

// benchIndex is a built and opened index holding a single list.
type benchIndex struct {
	*ftstore.Index
	path   string
	offset int64
	keys   []uint64
	values []uint64
	rng    *testutil.RNG
}

func newBenchIndex(b *testing.B, n int, opts ...ftstore.Option) *benchIndex {
	b.Helper()

	rng := testutil.NewRNG(benchSeed)
	keys, values := rng.Postings(n, 16)

	path := filepath.Join(b.TempDir(), "bench.idx")

	builder, err := ftstore.Build(path, opts...)
	if err != nil {
		b.Fatal(err)
	}

	offset, err := builder.Add(keys, values)
	if err != nil {
		b.Fatal(err)
	}

	if err := builder.Close(); err != nil {
		b.Fatal(err)
	}

	ix, err := ftstore.Open(context.Background(), path, opts...)
	if err != nil {
		b.Fatal(err)
	}

	b.Cleanup(func() { _ = ix.Close() })

	return &benchIndex{Index: ix, path: path, offset: offset, keys: keys, values: values, rng: rng}
}

func sizeName(n int) string {
	switch n {
	case sizeSmall:
		return "1K"
	case sizeMedium:
		return "50K"
	case sizeLarge:
		return "500K"
	default:
		return "custom"
	}
}
