package genome

import "math/rand/v2"

// Rates groups the three per-position mutation probabilities.
type Rates struct {
	Insertion    float64
	Deletion     float64
	Substitution float64
}

// Scale divides every rate by f. Non-positive factors leave the rates as is.
func (r Rates) Scale(f float64) Rates {
	if f <= 0 {
		return r
	}
	return Rates{
		Insertion:    r.Insertion / f,
		Deletion:     r.Deletion / f,
		Substitution: r.Substitution / f,
	}
}

// Mutate is MutateRates with the probabilities passed positionally.
func Mutate(g Genome, rng *rand.Rand, insertion, deletion, substitution float64) Genome {
	return MutateRates(g, rng, Rates{Insertion: insertion, Deletion: deletion, Substitution: substitution})
}

// MutateRates clones g with stochastic edits. For every original base, in
// order: an insertion trial that may emit a fresh random base, then a deletion
// trial, then (for a kept base) a substitution trial that may replace it with
// a fresh random base. One extra insertion trial follows the last base.
//
// The draw order is fixed so identically seeded sources give identical
// results. With all rates at 0 the result equals g. The result may be empty
// and never aliases g.
func MutateRates(g Genome, rng *rand.Rand, r Rates) Genome {
	out := make(Genome, 0, len(g)+1)
	for _, b := range g {
		if rng.Float64() < r.Insertion {
			out = append(out, RandomBase(rng))
		}
		if rng.Float64() < r.Deletion {
			continue
		}
		next := b
		if rng.Float64() < r.Substitution {
			next = RandomBase(rng)
		}
		out = append(out, next)
	}
	if rng.Float64() < r.Insertion {
		out = append(out, RandomBase(rng))
	}
	return out
}
