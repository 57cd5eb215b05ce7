// Package stimulus evolves a response to a perceived stimulus. Every tick the
// safe zone jumps to a random place; each organism perceives the zone centre
// through a fixed, distorting reception function and moves to the product of
// that reception with each of its two response factors.
//
// In "stimulus" both factors are genetic. In "learner" only the first is;
// the second is recomputed every tick by a Learn rule that corrects the
// reception distortion exactly.
package stimulus

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"evolab/internal/core"
	"evolab/internal/experiments"
	"evolab/internal/experiments/zone"
	"evolab/internal/stats"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

// Body is a position and the response vector applied to the received
// stimulus.
type Body struct {
	Position float64
	Response [2]float64
}

// Sum returns the sum of the response factors.
func (b Body) Sum() float64 { return b.Response[0] + b.Response[1] }

// Reception maps a stimulus onto what the organism perceives.
type Reception func(stimulus float64) float64

// Receptions lists the supported reception functions by name.
var Receptions = map[string]Reception{
	"sqrt":   func(s float64) float64 { return math.Sqrt(s) * 3 },
	"linear": func(s float64) float64 { return s * 4 },
}

// Config controls the stimulus experiments.
type Config struct {
	Settings core.Settings

	Zone         zone.Zone
	Span         float64
	Width        float64
	Reception    string
	OutsideDeath float64
	RandomDeath  float64
	Children     int
	Rates        genome.Rates
	Learn        bool
}

// DefaultConfig returns the evolved-response rule set.
func DefaultConfig() Config {
	return Config{
		Settings:     core.DefaultSettings(),
		Zone:         zone.Zone{Low: 0.6, High: 0.8},
		Span:         0.8,
		Width:        0.2,
		Reception:    "sqrt",
		OutsideDeath: 0.5,
		RandomDeath:  0.001,
		Children:     2,
		Rates:        genome.Rates{Substitution: 0.06},
	}
}

// DefaultLearnerConfig returns the learned-response rule set.
func DefaultLearnerConfig() Config {
	c := DefaultConfig()
	c.Learn = true
	return c
}

// FromMap populates a Config from a string map, starting at base.
func FromMap(base Config, cfg map[string]string) Config {
	c := base
	c.Settings = core.SettingsFromMap(cfg)
	if cfg == nil {
		return c
	}
	c.Zone.Low = core.FloatFromMap(cfg, "zone_low", c.Zone.Low)
	c.Zone.High = core.FloatFromMap(cfg, "zone_high", c.Zone.High)
	c.Span = core.FloatFromMap(cfg, "span", c.Span)
	c.Width = core.FloatFromMap(cfg, "width", c.Width)
	if v, ok := cfg["reception"]; ok {
		if _, known := Receptions[v]; known {
			c.Reception = v
		}
	}
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

func (c Config) reception() Reception {
	if r, ok := Receptions[c.Reception]; ok {
		return r
	}
	return Receptions["sqrt"]
}

// Respond is the position reached for a received stimulus: the product of
// reception*r over the response vector.
func Respond(reception float64, response [2]float64) float64 {
	out := 1.0
	for _, r := range response {
		out *= reception * r
	}
	return out
}

// Correct returns the second response factor that cancels the sqrt
// reception distortion for a given first factor. A zero first factor cannot
// be corrected and yields zero.
func Correct(first float64) float64 {
	if first == 0 {
		return 0
	}
	return 1 / (9 * first)
}

// Stimulus is the jumping-zone experiment.
type Stimulus struct {
	experiments.Run[Body, *zone.Jumping]
	name string
	cfg  Config
}

// New returns a stimulus experiment.
func New(name string, cfg Config) *Stimulus {
	s := &Stimulus{name: name, cfg: cfg}
	s.Reset(1)
	return s
}

// Name returns the experiment identifier.
func (s *Stimulus) Name() string { return s.name }

// Reset rebuilds the initial population and zone from seed.
func (s *Stimulus) Reset(seed int64) {
	env := &zone.Jumping{Zone: s.cfg.Zone, Span: s.cfg.Span, Width: s.cfg.Width}
	s.Restart(s.cfg.Settings, s.Rules(), env, seed)
}

// Rules returns the strategy bundle.
func (s *Stimulus) Rules() sim.Rules[Body, *zone.Jumping] {
	cfg := s.cfg
	receive := cfg.reception()
	rules := sim.Rules[Body, *zone.Jumping]{
		Death: func(org *sim.Organism[Body], env *zone.Jumping, rng *rand.Rand) bool {
			outside := !env.Zone.Contains(org.Body.Position)
			return (outside && rng.Float64() < cfg.OutsideDeath) != (rng.Float64() < cfg.RandomDeath)
		},
		Reproduce: func(org *sim.Organism[Body], env *zone.Jumping, rng *rand.Rand) []genome.Genome {
			if !env.Zone.Contains(org.Body.Position) {
				return nil
			}
			children := make([]genome.Genome, cfg.Children)
			for i := range children {
				children[i] = genome.MutateRates(org.Genes, rng, cfg.Rates)
			}
			return children
		},
		Build: func(g genome.Genome, _ *rand.Rand) Body {
			var b Body
			b.Response[0] = genome.ToFeature(genome.ReadByte(g, 0))
			if !cfg.Learn {
				b.Response[1] = genome.ToFeature(genome.ReadByte(g, genome.BasesPerByte))
			}
			return b
		},
		Update: func(org *sim.Organism[Body], env *zone.Jumping, _ *rand.Rand) {
			org.Body.Position = Respond(receive(env.Zone.Mid()), org.Body.Response)
		},
	}
	if cfg.Learn {
		rules.Learn = func(org *sim.Organism[Body], _ *zone.Jumping, _ *rand.Rand) {
			org.Body.Response[1] = Correct(org.Body.Response[0])
		}
	}
	return rules
}

// Zone returns the current safe zone.
func (s *Stimulus) Zone() zone.Zone { return s.Sim.Environment().Current() }

// Track returns positions and the safe zone for rendering.
func (s *Stimulus) Track() core.Track {
	z := s.Zone()
	orgs := s.Sim.Organisms()
	positions := make([]float64, len(orgs))
	for i := range orgs {
		positions[i] = orgs[i].Body.Position
	}
	return core.Track{Positions: positions, ZoneLow: z.Low, ZoneHigh: z.High, HasZone: true}
}

// Metrics reports positions, the response vector and the in-zone count.
func (s *Stimulus) Metrics() []core.Metric {
	orgs := s.Sim.Organisms()
	positions := make([]float64, len(orgs))
	sums := make([]float64, len(orgs))
	var r [2][]float64
	for i := range r {
		r[i] = make([]float64, len(orgs))
	}
	for i := range orgs {
		positions[i] = orgs[i].Body.Position
		sums[i] = orgs[i].Body.Sum()
		r[0][i] = orgs[i].Body.Response[0]
		r[1][i] = orgs[i].Body.Response[1]
	}
	z := s.Zone()
	ms := []core.Metric{experiments.PopulationMetric(len(orgs))}
	ms = append(ms, stats.Summarize(positions).Metrics("position")...)
	for i := range r {
		ms = append(ms, core.Metric{
			Name:  fmt.Sprintf("response%d_mean", i),
			Value: stats.Summarize(r[i]).Mean,
		})
	}
	ms = append(ms, stats.Summarize(sums).Metrics("response_sum")...)
	return append(ms,
		core.Metric{Name: "in_zone", Value: float64(z.Count(positions))},
		core.Metric{Name: "zone_low", Value: z.Low},
		core.Metric{Name: "zone_high", Value: z.High},
	)
}

// Parameters describes the configuration.
func (s *Stimulus) Parameters() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		s.cfg.Settings.Group(),
		{
			Name: "Stimulus",
			Params: []core.Parameter{
				core.FloatParam("zone_low", "Initial low", s.cfg.Zone.Low),
				core.FloatParam("zone_high", "Initial high", s.cfg.Zone.High),
				core.FloatParam("span", "Zone span", s.cfg.Span),
				core.FloatParam("width", "Zone width", s.cfg.Width),
				core.StringParam("reception", "Reception", s.cfg.Reception),
				core.FloatParam("outside_death", "Death outside", s.cfg.OutsideDeath),
				core.FloatParam("random_death", "Random death", s.cfg.RandomDeath),
				core.IntParam("children", "Children", s.cfg.Children),
				core.BoolParam("learn", "Learned response", s.cfg.Learn),
			},
		},
		experiments.RatesGroup(s.cfg.Rates),
	}}
}

func init() {
	core.Register("stimulus", func(cfg map[string]string) core.Experiment {
		return New("stimulus", FromMap(DefaultConfig(), cfg))
	})
	core.Register("learner", func(cfg map[string]string) core.Experiment {
		return New("learner", FromMap(DefaultLearnerConfig(), cfg))
	})
}
