package core

import "math/rand/v2"

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// Bool returns a random boolean value.
func (r *RNG) Bool() bool {
	return r.r.IntN(2) == 1
}

// Chance reports whether a uniform draw in [0, 1) falls below p.
func (r *RNG) Chance(p float64) bool {
	return Chance(r.r, p)
}

// Chance is the Bernoulli trial used throughout the rule sets: one Float64
// draw compared against p. A p of 0 never succeeds.
func Chance(r *rand.Rand, p float64) bool {
	return r.Float64() < p
}

// Source exposes the underlying rand.Rand so it can be threaded through
// engine and rule calls.
func (r *RNG) Source() *rand.Rand { return r.r }
