// Package prefix registers the replication-by-prefix experiments. A genome
// reproduces only when it starts with a fixed motif, so nothing grows until
// mutation happens to produce that motif.
//
// "prefix" requires ATAT. "fastprefix" also rewards the longer ATATAT motif:
// carriers always reproduce while plain ATAT carriers only do so half the
// time.
package prefix

import (
	"math/rand/v2"
	"strconv"

	"evolab/internal/core"
	"evolab/internal/experiments"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

// Body is empty: these rule sets act on the genome alone.
type Body struct{}

// Config controls the prefix experiments.
type Config struct {
	Settings core.Settings

	Prefix      genome.Genome
	FastPrefix  genome.Genome
	Children    int
	DeathChance float64
	Rates       genome.Rates
}

// DefaultConfig returns the plain prefix rule set.
func DefaultConfig() Config {
	return Config{
		Settings:    core.DefaultSettings(),
		Prefix:      genome.MustParse("ATAT"),
		Children:    2,
		DeathChance: 0.5,
		Rates:       genome.Rates{Insertion: 0.01, Deletion: 0.01, Substitution: 0.05},
	}
}

// DefaultFastConfig returns the two-tier rule set.
func DefaultFastConfig() Config {
	c := DefaultConfig()
	c.FastPrefix = genome.MustParse("ATATAT")
	c.DeathChance = 0.33
	return c
}

// FromMap populates a Config from a string map, starting at base.
func FromMap(base Config, cfg map[string]string) Config {
	c := base
	c.Settings = core.SettingsFromMap(cfg)
	if cfg == nil {
		return c
	}
	c.Prefix = experiments.GenomeFromMap(cfg, "prefix", c.Prefix)
	c.FastPrefix = experiments.GenomeFromMap(cfg, "fast_prefix", c.FastPrefix)
	if v, ok := cfg["children"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Children = parsed
		}
	}
	c.DeathChance = core.FloatFromMap(cfg, "death_chance", c.DeathChance)
	c.Rates = experiments.RatesFromMap(cfg, c.Rates)
	return c
}

// Prefix is a prefix-gated replication experiment.
type Prefix struct {
	experiments.Run[Body, sim.Static]
	name string
	cfg  Config
}

// New returns a prefix experiment seeded with 1; drivers call Reset with
// their own seed.
func New(name string, cfg Config) *Prefix {
	p := &Prefix{name: name, cfg: cfg}
	p.Reset(1)
	return p
}

// Name returns the experiment identifier.
func (p *Prefix) Name() string { return p.name }

// Reset rebuilds the initial population from seed.
func (p *Prefix) Reset(seed int64) {
	p.Restart(p.cfg.Settings, p.Rules(), sim.Static{}, seed)
}

// Rules returns the strategy bundle.
func (p *Prefix) Rules() sim.Rules[Body, sim.Static] {
	cfg := p.cfg
	return sim.Rules[Body, sim.Static]{
		Death: func(_ *sim.Organism[Body], _ sim.Static, rng *rand.Rand) bool {
			return rng.Float64() < cfg.DeathChance
		},
		Reproduce: func(org *sim.Organism[Body], _ sim.Static, rng *rand.Rand) []genome.Genome {
			if !cfg.fertile(org.Genes, rng) {
				return nil
			}
			children := make([]genome.Genome, cfg.Children)
			for i := range children {
				children[i] = genome.MutateRates(org.Genes, rng, cfg.Rates)
			}
			return children
		},
		Build: func(genome.Genome, *rand.Rand) Body { return Body{} },
	}
}

// fertile draws the coin only for plain-prefix carriers when a fast prefix
// is configured.
func (c Config) fertile(g genome.Genome, rng *rand.Rand) bool {
	if len(c.FastPrefix) == 0 {
		return g.HasPrefix(c.Prefix)
	}
	if g.HasPrefix(c.FastPrefix) {
		return true
	}
	return rng.IntN(2) == 0 && g.HasPrefix(c.Prefix)
}

// Metrics reports population size, mean genome length and motif carriers.
func (p *Prefix) Metrics() []core.Metric {
	genomes := p.Genomes()
	carriers := 0
	for _, g := range genomes {
		if g.HasPrefix(p.cfg.Prefix) {
			carriers++
		}
	}
	ms := []core.Metric{experiments.PopulationMetric(len(genomes))}
	ms = append(ms, experiments.GenomeLengthMetrics(genomes)...)
	return append(ms, core.Metric{Name: "prefix_carriers", Value: float64(carriers)})
}

// Parameters describes the configuration.
func (p *Prefix) Parameters() core.ParameterSnapshot {
	rules := core.ParameterGroup{
		Name: "Replication",
		Params: []core.Parameter{
			core.StringParam("prefix", "Prefix", p.cfg.Prefix.String()),
			core.StringParam("fast_prefix", "Fast prefix", p.cfg.FastPrefix.String()),
			core.IntParam("children", "Children", p.cfg.Children),
			core.FloatParam("death_chance", "Death chance", p.cfg.DeathChance),
		},
	}
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		p.cfg.Settings.Group(),
		rules,
		experiments.RatesGroup(p.cfg.Rates),
	}}
}

func init() {
	core.Register("prefix", func(cfg map[string]string) core.Experiment {
		return New("prefix", FromMap(DefaultConfig(), cfg))
	})
	core.Register("fastprefix", func(cfg map[string]string) core.Experiment {
		return New("fastprefix", FromMap(DefaultFastConfig(), cfg))
	})
}
