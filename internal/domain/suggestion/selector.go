package suggestion

import (
	"math/rand"
)

// Selector draws meals from an eligible pool. Given the same seed and the
// same ordered pool it always returns the same picks, which is what makes
// random endpoints testable.
type Selector struct{}

// NewSelector creates a selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Select draws up to k candidates without replacement. The pool is never
// mutated. k larger than the pool returns every candidate; k <= 0 returns
// nothing.
func (s *Selector) Select(pool []Candidate, k int, mode SelectionMode, seed int64) []Candidate {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	rng := rand.New(rand.NewSource(seed))

	if mode == SelectionWeightedRandom {
		return s.weighted(pool, k, rng)
	}
	return s.uniform(pool, k, rng)
}

// uniform samples without replacement by shuffling a copy and taking the
// prefix.
func (s *Selector) uniform(pool []Candidate, k int, rng *rand.Rand) []Candidate {
	picked := make([]Candidate, len(pool))
	copy(picked, pool)
	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:k]
}

// weighted samples without replacement by cumulative-weight inversion: each
// draw picks the candidate whose cumulative weight interval contains a
// uniform variate, then removes it. Weights are availability scores; when
// every remaining weight is zero the draw falls back to uniform weights so
// zero-score pools still select.
func (s *Selector) weighted(pool []Candidate, k int, rng *rand.Rand) []Candidate {
	remaining := make([]Candidate, len(pool))
	copy(remaining, pool)
	weights := make([]float64, len(pool))

	total := 0.0
	for i, c := range remaining {
		weights[i] = c.Score
		total += c.Score
	}

	picked := make([]Candidate, 0, k)
	for len(picked) < k && len(remaining) > 0 {
		if total <= 0 {
			for i := range weights {
				weights[i] = 1
			}
			total = float64(len(remaining))
		}

		r := rng.Float64() * total
		idx := len(remaining) - 1
		cum := 0.0
		for i, w := range weights {
			cum += w
			if r < cum {
				idx = i
				break
			}
		}

		picked = append(picked, remaining[idx])
		total -= weights[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}

	return picked
}
