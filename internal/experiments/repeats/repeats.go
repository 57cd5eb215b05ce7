// Package repeats rewards leading AT repeats: a genome that starts with k
// copies of AT (k >= 2) produces k children per tick. With the C shield
// enabled, every C in the genome divides the mutation rates of its children.
package repeats

import (
	"math/rand/v2"
	"strconv"

	"evolab/internal/core"
	"evolab/internal/experiments"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

// Body is empty.
type Body struct{}

// Config controls the repeats experiment.
type Config struct {
	Settings core.Settings

	MinRepeats  int
	DeathChance float64
	Rates       genome.Rates
	CShield     bool
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Settings:    core.DefaultSettings(),
		MinRepeats:  2,
		DeathChance: 0.5,
		Rates:       genome.Rates{Insertion: 0.01, Deletion: 0.01, Substitution: 0.05},
	}
}

// FromMap populates a Config from a string map.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	c.Settings = core.SettingsFromMap(cfg)
	if cfg == nil {
		return c
	}
	if v, ok := cfg["min_repeats"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 {
			c.MinRepeats = parsed
		}
	}
	c.DeathChance = core.FloatFromMap(cfg, "death_chance", c.DeathChance)
	c.CShield = core.BoolFromMap(cfg, "c_shield", c.CShield)
	c.Rates = experiments.RatesFromMap(cfg, c.Rates)
	return c
}

// CountATRepeats returns how many times AT repeats at the start of g. A
// trailing lone A is not counted, so the result never exceeds len(g)/2.
func CountATRepeats(g genome.Genome) int {
	k := 0
	for 2*k+1 < len(g) && g[2*k] == genome.A && g[2*k+1] == genome.T {
		k++
	}
	return k
}

// Repeats is the AT-repeat experiment.
type Repeats struct {
	experiments.Run[Body, sim.Static]
	cfg Config
}

// New returns a repeats experiment.
func New(cfg Config) *Repeats {
	r := &Repeats{cfg: cfg}
	r.Reset(1)
	return r
}

// Name returns the experiment identifier.
func (r *Repeats) Name() string { return "repeats" }

// Reset rebuilds the initial population from seed.
func (r *Repeats) Reset(seed int64) {
	r.Restart(r.cfg.Settings, r.Rules(), sim.Static{}, seed)
}

// Rules returns the strategy bundle.
func (r *Repeats) Rules() sim.Rules[Body, sim.Static] {
	cfg := r.cfg
	return sim.Rules[Body, sim.Static]{
		Death: func(_ *sim.Organism[Body], _ sim.Static, rng *rand.Rand) bool {
			return rng.Float64() < cfg.DeathChance
		},
		Reproduce: func(org *sim.Organism[Body], _ sim.Static, rng *rand.Rand) []genome.Genome {
			k := CountATRepeats(org.Genes)
			if k < cfg.MinRepeats {
				return nil
			}
			rates := cfg.childRates(org.Genes)
			children := make([]genome.Genome, k)
			for i := range children {
				children[i] = genome.MutateRates(org.Genes, rng, rates)
			}
			return children
		},
		Build: func(genome.Genome, *rand.Rand) Body { return Body{} },
	}
}

func (c Config) childRates(g genome.Genome) genome.Rates {
	if !c.CShield {
		return c.Rates
	}
	return c.Rates.Scale(float64(g.Count(genome.C)))
}

// Metrics reports population, genome length, mean AT repeats and mean C
// count.
func (r *Repeats) Metrics() []core.Metric {
	genomes := r.Genomes()
	ms := []core.Metric{experiments.PopulationMetric(len(genomes))}
	ms = append(ms, experiments.GenomeLengthMetrics(genomes)...)
	var reps, cs float64
	for _, g := range genomes {
		reps += float64(CountATRepeats(g))
		cs += float64(g.Count(genome.C))
	}
	if n := float64(len(genomes)); n > 0 {
		reps /= n
		cs /= n
	}
	return append(ms,
		core.Metric{Name: "at_repeats_mean", Value: reps},
		core.Metric{Name: "c_count_mean", Value: cs},
	)
}

// Parameters describes the configuration.
func (r *Repeats) Parameters() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		r.cfg.Settings.Group(),
		{
			Name: "Replication",
			Params: []core.Parameter{
				core.IntParam("min_repeats", "Minimum AT repeats", r.cfg.MinRepeats),
				core.FloatParam("death_chance", "Death chance", r.cfg.DeathChance),
				core.BoolParam("c_shield", "C shield", r.cfg.CShield),
			},
		},
		experiments.RatesGroup(r.cfg.Rates),
	}}
}

func init() {
	core.Register("repeats", func(cfg map[string]string) core.Experiment {
		return New(FromMap(cfg))
	})
}
