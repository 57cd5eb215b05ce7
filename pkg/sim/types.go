package sim

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"evolab/pkg/genome"
)

// Organism pairs a genome with the phenotype built from it at birth. The
// population owns every organism exclusively.
type Organism[P any] struct {
	Genes genome.Genome
	Body  P
}

// Environment is the exogenous state of a run. Advance is called exactly
// once per tick, after capacity control and before any Learn or Update.
type Environment interface {
	Advance(rng *rand.Rand)
}

// Static is an Environment with no state.
type Static struct{}

// Advance does nothing.
func (Static) Advance(*rand.Rand) {}

// Rules is the strategy bundle an experiment supplies. Death, Reproduce and
// Build are required; Update and Learn may be nil.
//
// Death and Reproduce must not mutate the organism or environment. Build is
// never called with an empty genome. Learn runs before Update on the same
// organism within a tick, and both may only change the phenotype.
type Rules[P any, E Environment] struct {
	Death     func(org *Organism[P], env E, rng *rand.Rand) bool
	Reproduce func(org *Organism[P], env E, rng *rand.Rand) []genome.Genome
	Build     func(g genome.Genome, rng *rand.Rand) P
	Update    func(org *Organism[P], env E, rng *rand.Rand)
	Learn     func(org *Organism[P], env E, rng *rand.Rand)
}

// ErrMissingRule is returned when a required rule is nil.
var ErrMissingRule = errors.New("sim: missing required rule")

func (r Rules[P, E]) validate() error {
	var missing []string
	if r.Death == nil {
		missing = append(missing, "Death")
	}
	if r.Reproduce == nil {
		missing = append(missing, "Reproduce")
	}
	if r.Build == nil {
		missing = append(missing, "Build")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRule, strings.Join(missing, ", "))
	}
	return nil
}

// MergePolicy selects how survivors and children are combined when the
// population would exceed capacity.
type MergePolicy string

const (
	// MergeTruncate keeps every survivor and admits children in generation
	// order until the capacity is reached.
	MergeTruncate MergePolicy = "truncate"
	// MergePool pools survivors and children and keeps a uniform random
	// sample of capacity organisms, so survivors may be evicted.
	MergePool MergePolicy = "pool"
)

// ParseMergePolicy maps a configuration string onto a policy. The empty
// string selects MergeTruncate.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeTruncate:
		return MergeTruncate, nil
	case MergePool, "sample":
		return MergePool, nil
	default:
		return "", fmt.Errorf("sim: unknown merge policy %q", s)
	}
}
