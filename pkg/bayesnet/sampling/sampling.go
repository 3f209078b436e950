package sampling

import (
	"math/rand/v2"
)

// NewRand returns a generator seeded with seed. A zero seed yields a
// generator seeded from the runtime's random source.
//
// Each inference call should own its generator; *rand.Rand is not safe for
// concurrent use.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Categorical draws an index with probability proportional to its weight
// using a single pass over the cumulative weights. Weights need not be
// normalized. If every weight is zero the draw is uniform.
func Categorical(r *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return r.IntN(len(weights))
	}

	target := r.Float64() * total
	cum := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if target < cum {
			return i
		}
	}
	// Rounding can leave target just above the final cumulative weight.
	return last
}
