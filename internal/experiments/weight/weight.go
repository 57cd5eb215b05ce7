// Package weight selects on a decoded phenotype. The first four bases of a
// genome encode a weight in [0, 1); organisms with a middling weight almost
// always die, so the population splits toward the light and heavy extremes.
package weight

import (
	"math/rand/v2"
	"strconv"

	"evolab/internal/core"
	"evolab/internal/experiments"
	"evolab/internal/stats"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

// Body is the decoded weight.
type Body struct {
	Weight float64
}

// Config controls the weight experiment.
type Config struct {
	Settings core.Settings

	Low         float64
	High        float64
	DeathChance float64
	Children    int
	Rates       genome.Rates
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Settings:    core.DefaultSettings(),
		Low:         0.1,
		High:        0.9,
		DeathChance: 0.9,
		Children:    2,
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
	c.Low = core.FloatFromMap(cfg, "low", c.Low)
	c.High = core.FloatFromMap(cfg, "high", c.High)
	c.DeathChance = core.FloatFromMap(cfg, "death_chance", c.DeathChance)
	if v, ok := cfg["children"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Children = parsed
		}
	}
	c.Rates = experiments.RatesFromMap(cfg, c.Rates)
	return c
}

// Decode maps the first four bases onto [0, 1), first base least significant.
func Decode(g genome.Genome) float64 {
	return genome.ToUnit(genome.ReadByteLE(g))
}

// Weight is the disruptive-selection experiment.
type Weight struct {
	experiments.Run[Body, sim.Static]
	cfg Config
}

// New returns a weight experiment.
func New(cfg Config) *Weight {
	w := &Weight{cfg: cfg}
	w.Reset(1)
	return w
}

// Name returns the experiment identifier.
func (w *Weight) Name() string { return "weight" }

// Reset rebuilds the initial population from seed.
func (w *Weight) Reset(seed int64) {
	w.Restart(w.cfg.Settings, w.Rules(), sim.Static{}, seed)
}

// Rules returns the strategy bundle.
func (w *Weight) Rules() sim.Rules[Body, sim.Static] {
	cfg := w.cfg
	return sim.Rules[Body, sim.Static]{
		Death: func(org *sim.Organism[Body], _ sim.Static, rng *rand.Rand) bool {
			return cfg.middling(org.Body.Weight) && rng.Float64() < cfg.DeathChance
		},
		Reproduce: func(org *sim.Organism[Body], _ sim.Static, rng *rand.Rand) []genome.Genome {
			children := make([]genome.Genome, cfg.Children)
			for i := range children {
				children[i] = genome.MutateRates(org.Genes, rng, cfg.Rates)
			}
			return children
		},
		Build: func(g genome.Genome, _ *rand.Rand) Body {
			return Body{Weight: Decode(g)}
		},
	}
}

func (c Config) middling(w float64) bool {
	return w > c.Low && w < c.High
}

// Weights returns the weight of every organism.
func (w *Weight) Weights() []float64 {
	orgs := w.Sim.Organisms()
	out := make([]float64, len(orgs))
	for i := range orgs {
		out[i] = orgs[i].Body.Weight
	}
	return out
}

// Metrics reports the weight distribution and how many organisms sit at
// each extreme.
func (w *Weight) Metrics() []core.Metric {
	weights := w.Weights()
	var light, heavy int
	for _, v := range weights {
		switch {
		case v <= w.cfg.Low:
			light++
		case v >= w.cfg.High:
			heavy++
		}
	}
	ms := []core.Metric{experiments.PopulationMetric(len(weights))}
	ms = append(ms, stats.Summarize(weights).Metrics("weight")...)
	return append(ms,
		core.Metric{Name: "light", Value: float64(light)},
		core.Metric{Name: "heavy", Value: float64(heavy)},
	)
}

// Parameters describes the configuration.
func (w *Weight) Parameters() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		w.cfg.Settings.Group(),
		{
			Name: "Selection",
			Params: []core.Parameter{
				core.FloatParam("low", "Low weight", w.cfg.Low),
				core.FloatParam("high", "High weight", w.cfg.High),
				core.FloatParam("death_chance", "Death chance", w.cfg.DeathChance),
				core.IntParam("children", "Children", w.cfg.Children),
			},
		},
		experiments.RatesGroup(w.cfg.Rates),
	}}
}

func init() {
	core.Register("weight", func(cfg map[string]string) core.Experiment {
		return New(FromMap(cfg))
	})
}
