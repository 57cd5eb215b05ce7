// Package aging adds a phenotype with state: organisms carry an age that
// grows every tick, and only organisms older than MatureAge can die.
// Reproduction is the ATAT prefix rule.
package aging

import (
	"math/rand/v2"
	"strconv"

	"evolab/internal/core"
	"evolab/internal/experiments"
	"evolab/internal/stats"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

// Body is the aging phenotype.
type Body struct {
	Age int
}

// Config controls the aging experiment.
type Config struct {
	Settings core.Settings

	Prefix      genome.Genome
	Children    int
	MatureAge   int
	DeathChance float64
	Rates       genome.Rates
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Settings:    core.DefaultSettings(),
		Prefix:      genome.MustParse("ATAT"),
		Children:    2,
		MatureAge:   2,
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
	c.Prefix = experiments.GenomeFromMap(cfg, "prefix", c.Prefix)
	if v, ok := cfg["children"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Children = parsed
		}
	}
	if v, ok := cfg["mature_age"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.MatureAge = parsed
		}
	}
	c.DeathChance = core.FloatFromMap(cfg, "death_chance", c.DeathChance)
	c.Rates = experiments.RatesFromMap(cfg, c.Rates)
	return c
}

// Aging is the age-gated death experiment.
type Aging struct {
	experiments.Run[Body, sim.Static]
	cfg Config
}

// New returns an aging experiment.
func New(cfg Config) *Aging {
	a := &Aging{cfg: cfg}
	a.Reset(1)
	return a
}

// Name returns the experiment identifier.
func (a *Aging) Name() string { return "aging" }

// Reset rebuilds the initial population from seed.
func (a *Aging) Reset(seed int64) {
	a.Restart(a.cfg.Settings, a.Rules(), sim.Static{}, seed)
}

// Rules returns the strategy bundle.
func (a *Aging) Rules() sim.Rules[Body, sim.Static] {
	cfg := a.cfg
	return sim.Rules[Body, sim.Static]{
		Death: func(org *sim.Organism[Body], _ sim.Static, rng *rand.Rand) bool {
			// Short-circuit: young organisms consume no draw.
			return org.Body.Age > cfg.MatureAge && rng.Float64() < cfg.DeathChance
		},
		Reproduce: func(org *sim.Organism[Body], _ sim.Static, rng *rand.Rand) []genome.Genome {
			if !org.Genes.HasPrefix(cfg.Prefix) {
				return nil
			}
			children := make([]genome.Genome, cfg.Children)
			for i := range children {
				children[i] = genome.MutateRates(org.Genes, rng, cfg.Rates)
			}
			return children
		},
		Build: func(genome.Genome, *rand.Rand) Body { return Body{} },
		Update: func(org *sim.Organism[Body], _ sim.Static, _ *rand.Rand) {
			org.Body.Age++
		},
	}
}

// Ages returns the age of every organism.
func (a *Aging) Ages() []float64 {
	orgs := a.Sim.Organisms()
	out := make([]float64, len(orgs))
	for i := range orgs {
		out[i] = float64(orgs[i].Body.Age)
	}
	return out
}

// Metrics reports population, genome length and the age distribution.
func (a *Aging) Metrics() []core.Metric {
	ms := []core.Metric{experiments.PopulationMetric(a.Population())}
	ms = append(ms, experiments.GenomeLengthMetrics(a.Genomes())...)
	summary := stats.Summarize(a.Ages())
	ms = append(ms, summary.Metrics("age")...)
	return append(ms, core.Metric{Name: "age_max", Value: summary.Max})
}

// Parameters describes the configuration.
func (a *Aging) Parameters() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		a.cfg.Settings.Group(),
		{
			Name: "Lifecycle",
			Params: []core.Parameter{
				core.StringParam("prefix", "Prefix", a.cfg.Prefix.String()),
				core.IntParam("children", "Children", a.cfg.Children),
				core.IntParam("mature_age", "Mature age", a.cfg.MatureAge),
				core.FloatParam("death_chance", "Death chance", a.cfg.DeathChance),
			},
		},
		experiments.RatesGroup(a.cfg.Rates),
	}}
}

func init() {
	core.Register("aging", func(cfg map[string]string) core.Experiment {
		return New(FromMap(cfg))
	})
}
