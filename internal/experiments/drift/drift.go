// Package drift evolves a movement response to a moving safe zone. The zone
// slides along feature space every tick; each organism's genome encodes a
// starting position and a fixed step it takes each tick. Organisms whose
// step keeps pace with the zone survive.
package drift

import (
	"math/rand/v2"
	"strconv"

	"evolab/internal/core"
	"evolab/internal/experiments"
	"evolab/internal/experiments/zone"
	"evolab/internal/stats"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

// Body is a position in feature space and the step taken every tick.
type Body struct {
	Position float64
	Response float64
}

// Config controls the drift experiment.
type Config struct {
	Settings core.Settings

	Zone         zone.Zone
	Speed        float64
	OutsideDeath float64
	RandomDeath  float64
	Children     int
	Rates        genome.Rates
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Settings:     core.DefaultSettings(),
		Zone:         zone.Zone{Low: 0.6, High: 0.8},
		Speed:        0.3,
		OutsideDeath: 0.99,
		RandomDeath:  0.001,
		Children:     1,
		Rates:        genome.Rates{Substitution: 0.06},
	}
}

// FromMap populates a Config from a string map.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	c.Settings = core.SettingsFromMap(cfg)
	if cfg == nil {
		return c
	}
	c.Zone.Low = core.FloatFromMap(cfg, "zone_low", c.Zone.Low)
	c.Zone.High = core.FloatFromMap(cfg, "zone_high", c.Zone.High)
	c.Speed = core.FloatFromMap(cfg, "speed", c.Speed)
	c.OutsideDeath = core.FloatFromMap(cfg, "outside_death", c.OutsideDeath)
	c.RandomDeath = core.FloatFromMap(cfg, "random_death", c.RandomDeath)
	if v, ok := cfg["children"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Children = parsed
		}
	}
	c.Rates = experiments.RatesFromMap(cfg, c.Rates)
	return c
}

// Build decodes the first byte as the position and the second as the
// response.
func Build(g genome.Genome, _ *rand.Rand) Body {
	return Body{
		Position: genome.ToFeature(genome.ReadByte(g, 0)),
		Response: genome.ToFeature(genome.ReadByte(g, genome.BasesPerByte)),
	}
}

// Drift is the moving-zone experiment.
type Drift struct {
	experiments.Run[Body, *zone.Moving]
	cfg Config
}

// New returns a drift experiment.
func New(cfg Config) *Drift {
	d := &Drift{cfg: cfg}
	d.Reset(1)
	return d
}

// Name returns the experiment identifier.
func (d *Drift) Name() string { return "drift" }

// Reset rebuilds the initial population and zone from seed.
func (d *Drift) Reset(seed int64) {
	env := &zone.Moving{Zone: d.cfg.Zone, Speed: d.cfg.Speed}
	d.Restart(d.cfg.Settings, d.Rules(), env, seed)
}

// Rules returns the strategy bundle.
func (d *Drift) Rules() sim.Rules[Body, *zone.Moving] {
	cfg := d.cfg
	return sim.Rules[Body, *zone.Moving]{
		Death: func(org *sim.Organism[Body], env *zone.Moving, rng *rand.Rand) bool {
			outside := !env.Zone.Contains(org.Body.Position)
			return (outside && rng.Float64() < cfg.OutsideDeath) != (rng.Float64() < cfg.RandomDeath)
		},
		Reproduce: func(org *sim.Organism[Body], _ *zone.Moving, rng *rand.Rand) []genome.Genome {
			children := make([]genome.Genome, cfg.Children)
			for i := range children {
				children[i] = genome.MutateRates(org.Genes, rng, cfg.Rates)
			}
			return children
		},
		Build: Build,
		Update: func(org *sim.Organism[Body], _ *zone.Moving, _ *rand.Rand) {
			org.Body.Position = zone.WrapAdd(org.Body.Position, org.Body.Response)
		},
	}
}

// Zone returns the current safe zone.
func (d *Drift) Zone() zone.Zone { return d.Sim.Environment().Current() }

// Track returns positions and the safe zone for rendering.
func (d *Drift) Track() core.Track {
	z := d.Zone()
	return core.Track{Positions: d.positions(), ZoneLow: z.Low, ZoneHigh: z.High, HasZone: true}
}

func (d *Drift) positions() []float64 {
	orgs := d.Sim.Organisms()
	out := make([]float64, len(orgs))
	for i := range orgs {
		out[i] = orgs[i].Body.Position
	}
	return out
}

func (d *Drift) responses() []float64 {
	orgs := d.Sim.Organisms()
	out := make([]float64, len(orgs))
	for i := range orgs {
		out[i] = orgs[i].Body.Response
	}
	return out
}

// Metrics reports positions, responses and the in-zone count.
func (d *Drift) Metrics() []core.Metric {
	positions := d.positions()
	z := d.Zone()
	ms := []core.Metric{experiments.PopulationMetric(len(positions))}
	ms = append(ms, stats.Summarize(positions).Metrics("position")...)
	ms = append(ms, stats.Summarize(d.responses()).Metrics("response")...)
	return append(ms,
		core.Metric{Name: "in_zone", Value: float64(z.Count(positions))},
		core.Metric{Name: "zone_low", Value: z.Low},
		core.Metric{Name: "zone_high", Value: z.High},
	)
}

// Parameters describes the configuration.
func (d *Drift) Parameters() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		d.cfg.Settings.Group(),
		{
			Name: "Safe zone",
			Params: []core.Parameter{
				core.FloatParam("zone_low", "Initial low", d.cfg.Zone.Low),
				core.FloatParam("zone_high", "Initial high", d.cfg.Zone.High),
				core.FloatParam("speed", "Speed", d.cfg.Speed),
				core.FloatParam("outside_death", "Death outside", d.cfg.OutsideDeath),
				core.FloatParam("random_death", "Random death", d.cfg.RandomDeath),
				core.IntParam("children", "Children", d.cfg.Children),
			},
		},
		experiments.RatesGroup(d.cfg.Rates),
	}}
}

func init() {
	core.Register("drift", func(cfg map[string]string) core.Experiment {
		return New(FromMap(cfg))
	})
}
