// Package sim is the generational population engine. It owns the
// population, the environment and the random source, and drives them through
// one tick at a time using a pluggable Rules bundle.
//
// Everything happens on the caller's goroutine. The sequence of random draws
// within a tick is fixed (selection pass, child builds, capacity sampling,
// environment advance, per-organism learn/update), so two simulations built
// from the same seed and rules follow identical trajectories.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"evolab/pkg/genome"
)

// Config holds the engine settings that are independent of the rule set.
type Config struct {
	// Capacity is the population cap N enforced after every tick.
	Capacity int
	// MaxTicks is the terminal tick for Run.
	MaxTicks int
	// Merge selects the capacity merge policy. Empty means MergeTruncate.
	Merge MergePolicy
	// Strict turns on invariant assertions that panic on violation.
	Strict bool
	// Logger receives genome dumps from Run. Nil uses slog.Default().
	Logger *slog.Logger
}

// Simulation runs a population of Organism[P] in environment E.
type Simulation[P any, E Environment] struct {
	rules     Rules[P, E]
	organisms []Organism[P]
	env       E
	rng       *rand.Rand

	capacity int
	t        int
	maxT     int
	merge    MergePolicy
	strict   bool
	log      *slog.Logger
}

// New builds a simulation seeded with the given organisms. The slice is
// copied; the caller keeps no reference into the population. rng becomes
// owned by the simulation.
func New[P any, E Environment](cfg Config, rules Rules[P, E], env E, rng *rand.Rand, seed []Organism[P]) (*Simulation[P, E], error) {
	if err := rules.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("sim: random source is required")
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("sim: capacity must be non-negative, got %d", cfg.Capacity)
	}
	merge, err := ParseMergePolicy(string(cfg.Merge))
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulation[P, E]{
		rules:     rules,
		organisms: append([]Organism[P](nil), seed...),
		env:       env,
		rng:       rng,
		capacity:  cfg.Capacity,
		maxT:      cfg.MaxTicks,
		merge:     merge,
		strict:    cfg.Strict,
		log:       logger,
	}, nil
}

// Spawn builds organisms from genomes with the Build rule, skipping empty
// genomes. It is how experiments create their initial population.
func Spawn[P any, E Environment](rules Rules[P, E], genomes []genome.Genome, rng *rand.Rand) []Organism[P] {
	out := make([]Organism[P], 0, len(genomes))
	for _, g := range genomes {
		if len(g) == 0 {
			continue
		}
		out = append(out, Organism[P]{Genes: g, Body: rules.Build(g, rng)})
	}
	return out
}

// SetLogger replaces the logger. Nil restores slog.Default().
func (s *Simulation[P, E]) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	s.log = l
}

// Tick returns the number of completed steps.
func (s *Simulation[P, E]) Tick() int { return s.t }

// MaxTick returns the terminal tick used by Run.
func (s *Simulation[P, E]) MaxTick() int { return s.maxT }

// Done reports whether Run would stop.
func (s *Simulation[P, E]) Done() bool { return s.t >= s.maxT }

// Len returns the current population size.
func (s *Simulation[P, E]) Len() int { return len(s.organisms) }

// Capacity returns the population cap.
func (s *Simulation[P, E]) Capacity() int { return s.capacity }

// Merge returns the active merge policy.
func (s *Simulation[P, E]) Merge() MergePolicy { return s.merge }

// Organisms exposes the live population. Callers must treat it as read-only;
// it is replaced on the next Step.
func (s *Simulation[P, E]) Organisms() []Organism[P] { return s.organisms }

// Environment returns the environment.
func (s *Simulation[P, E]) Environment() E { return s.env }

// Genomes returns the genomes of the current population.
func (s *Simulation[P, E]) Genomes() []genome.Genome {
	out := make([]genome.Genome, len(s.organisms))
	for i := range s.organisms {
		out[i] = s.organisms[i].Genes
	}
	return out
}

// Run steps until the terminal tick. With printEvery > 0 the population's
// genomes are logged whenever the tick counter is a multiple of it. Drivers
// that sample metrics between ticks call Step themselves instead.
func (s *Simulation[P, E]) Run(printEvery int) {
	for s.t < s.maxT {
		s.Step()
		if printEvery > 0 && s.t%printEvery == 0 {
			s.log.Info("population",
				"tick", s.t,
				"size", len(s.organisms),
				"genomes", genomeStrings(s.organisms),
			)
		}
	}
}

// Step advances the simulation by one tick.
func (s *Simulation[P, E]) Step() {
	survivors, offspring := s.selection()
	children := s.buildChildren(offspring)
	s.organisms = s.mergePopulation(survivors, children)
	s.log.Debug("step",
		"tick", s.t,
		"survivors", len(survivors),
		"children", len(children),
		"population", len(s.organisms),
	)

	s.env.Advance(s.rng)

	for i := range s.organisms {
		org := &s.organisms[i]
		if s.rules.Learn != nil {
			s.rules.Learn(org, s.env, s.rng)
		}
		if s.rules.Update != nil {
			s.rules.Update(org, s.env, s.rng)
		}
	}

	s.t++
	if s.strict && len(s.organisms) > s.capacity {
		panic(fmt.Sprintf("sim: population %d exceeds capacity %d after tick %d", len(s.organisms), s.capacity, s.t))
	}
}

// selection visits every organism once, back to front. Organisms that
// survive Death are kept and asked to Reproduce; empty child genomes are
// dropped here so Build never sees them.
func (s *Simulation[P, E]) selection() ([]Organism[P], []genome.Genome) {
	survivors := make([]Organism[P], 0, len(s.organisms))
	var offspring []genome.Genome
	for i := len(s.organisms) - 1; i >= 0; i-- {
		org := s.organisms[i]
		if s.rules.Death(&org, s.env, s.rng) {
			continue
		}
		for _, g := range s.rules.Reproduce(&org, s.env, s.rng) {
			if len(g) == 0 {
				continue
			}
			offspring = append(offspring, g)
		}
		survivors = append(survivors, org)
	}
	return survivors, offspring
}

func (s *Simulation[P, E]) buildChildren(offspring []genome.Genome) []Organism[P] {
	children := make([]Organism[P], 0, len(offspring))
	for _, g := range offspring {
		if s.strict && len(g) == 0 {
			panic("sim: Build invoked with an empty genome")
		}
		children = append(children, Organism[P]{Genes: g, Body: s.rules.Build(g, s.rng)})
	}
	return children
}

func (s *Simulation[P, E]) mergePopulation(survivors, children []Organism[P]) []Organism[P] {
	combined := survivors
	switch s.merge {
	case MergePool:
		combined = append(combined, children...)
	default:
		if room := s.capacity - len(survivors); room > 0 {
			combined = append(combined, children[:min(room, len(children))]...)
		}
	}
	if len(combined) > s.capacity {
		combined = s.downSample(combined, s.capacity)
	}
	return combined
}

// downSample keeps a uniform random subset of n organisms, drawn without
// replacement by a partial Fisher-Yates shuffle over indices.
func (s *Simulation[P, E]) downSample(pool []Organism[P], n int) []Organism[P] {
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	picked := idx[:n]
	if s.strict {
		seen := make([]bool, len(pool))
		for _, k := range picked {
			if k < 0 || k >= len(pool) || seen[k] {
				panic(fmt.Sprintf("sim: down-sample produced invalid index %d", k))
			}
			seen[k] = true
		}
	}
	out := make([]Organism[P], n)
	for i, k := range picked {
		out[i] = pool[k]
	}
	return out
}

func genomeStrings[P any](orgs []Organism[P]) []string {
	out := make([]string, len(orgs))
	for i := range orgs {
		out[i] = orgs[i].Genes.String()
	}
	return out
}
