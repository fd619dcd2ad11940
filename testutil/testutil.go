package testutil

import (
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/hupe1980/kmerdb/kmer"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Rand returns an independent *rand.Rand seeded from r, for APIs that take
// one and for use by a single goroutine.
func (r *RNG) Rand() *rand.Rand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rand.New(rand.NewSource(r.rand.Int63()))
}

// Sequence returns a random upper case DNA string of length n.
func (r *RNG) Sequence(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sequenceLocked(n)
}

func (r *RNG) sequenceLocked(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte("ACGT"[r.rand.Intn(4)])
	}
	return b.String()
}

// Kmers returns n distinct canonical k-mers of length k.
// n must not exceed the number of canonical k-mers of that length.
func (r *RNG) Kmers(k, n int) []string {
	c, err := kmer.NewCodec(k)
	if err != nil {
		panic(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[kmer.Key]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		key, err := c.Canonical(r.sequenceLocked(k))
		if err != nil {
			panic(err)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c.Decode(key))
	}
	return out
}

// MutateBase returns seq with the base at position i replaced by a different
// random base.
func (r *RNG) MutateBase(seq string, i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := []byte(seq)
	old := b[i]
	for b[i] == old {
		b[i] = "ACGT"[r.rand.Intn(4)]
	}
	return string(b)
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	// Compute normalization constant (harmonic number with exponent s)
	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Sample from uniform and use inverse transform
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// ColorSet draws a non-empty set of colours out of numColors. The set size
// follows a Zipf distribution with skew s, so most nodes sit in few colours,
// as in real multi-sample graphs.
func (r *RNG) ColorSet(numColors int, s float64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.zipfLocked(numColors, s) + 1
	perm := r.rand.Perm(numColors)[:size]
	// Ascending order keeps fixtures readable in failure output.
	for i := 1; i < len(perm); i++ {
		for j := i; j > 0 && perm[j] < perm[j-1]; j-- {
			perm[j], perm[j-1] = perm[j-1], perm[j]
		}
	}
	return perm
}
