package testutil

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed^0x9e3779b97f4a7c15))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a non-negative pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Postings returns n strictly increasing keys with gaps in [1,maxGap] and
// one random value per key.
func (r *RNG) Postings(n int, maxGap uint64) (keys, values []uint64) {
	if maxGap == 0 {
		maxGap = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys = make([]uint64, n)
	values = make([]uint64, n)

	var k uint64
	for i := range n {
		k += 1 + r.rand.Uint64N(maxGap)
		keys[i] = k
		values[i] = r.rand.Uint64()
	}

	return keys, values
}

// SortedProbes returns count sorted, distinct probe keys. Roughly hitRate of
// them are drawn from keys; the rest are misses in the key range.
func (r *RNG) SortedProbes(keys []uint64, count int, hitRate float64) []uint64 {
	if len(keys) == 0 || count <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hi := keys[len(keys)-1] + 1
	probes := make([]uint64, 0, count)

	for range count {
		if r.rand.Float64() < hitRate {
			probes = append(probes, keys[r.rand.IntN(len(keys))])
			continue
		}

		probes = append(probes, r.rand.Uint64N(hi+1))
	}

	slices.Sort(probes)

	return slices.Compact(probes)
}

// Subset returns a sorted sample of keys, each kept with probability rate.
func (r *RNG) Subset(keys []uint64, rate float64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, 0, int(float64(len(keys))*rate)+1)

	for _, k := range keys {
		if r.rand.Float64() < rate {
			out = append(out, k)
		}
	}

	return out
}
