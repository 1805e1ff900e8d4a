// Package testutil provides testing utilities for ftstore.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible postings and probe sets.
//
// # Postings
//
//	rng := testutil.NewRNG(seed)
//	keys, values := rng.Postings(1000, 16)
//
// # Probes
//
//	probes := rng.SortedProbes(keys, 64, 0.5)
package testutil
