package qosnet

// sample.go holds the random sampling used by the traffic generator and the links.
// Every component that needs randomness is given its own named rngstream, so that
// the stream consumed by (say) the generator does not shift the jitter samples drawn by a link.

import (
	"github.com/iti/rngstream"
)

// sampler is the source of randomness used during a tick
type sampler interface {
	// U01 returns a uniform sample on [0,1)
	U01() float64
}

// rngSampler draws its samples from an rngstream
type rngSampler struct {
	rngstrm *rngstream.RngStream
}

// createSampler is a constructor, the name identifies the stream
func createSampler(name string) *rngSampler {
	return &rngSampler{rngstrm: rngstream.New(name)}
}

func (rs *rngSampler) U01() float64 {
	return rs.rngstrm.RandU01()
}

// uniformRV returns a sample uniformly distributed on [lo,hi)
func uniformRV(rng sampler, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.U01()
}

// bernoulliRV returns true with probability p
func bernoulliRV(rng sampler, p float64) bool {
	return rng.U01() < p
}

// indexRV returns an index uniformly chosen from [0,n)
func indexRV(rng sampler, n int) int {
	if n <= 0 {
		return 0
	}
	idx := int(rng.U01() * float64(n))

	// guard against a U01 sample rounding up to 1.0
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// distinctIndices returns k distinct indices chosen uniformly from [0,n), or
// all of them (in random order) when k >= n
func distinctIndices(rng sampler, n, k int) []int {
	perm := make([]int, n)
	for idx := range perm {
		perm[idx] = idx
	}
	if k > n {
		k = n
	}
	// partial Fisher-Yates shuffle, only the first k positions are needed
	for idx := 0; idx < k; idx++ {
		jdx := idx + indexRV(rng, n-idx)
		perm[idx], perm[jdx] = perm[jdx], perm[idx]
	}
	return perm[:k]
}
