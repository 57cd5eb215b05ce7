// Package experiments holds the plumbing shared by the registered rule sets.
// Each rule set lives in its own sub-package and registers itself with
// internal/core from init.
package experiments

import (
	"fmt"
	"log/slog"

	"evolab/internal/core"
	rngcore "evolab/pkg/core"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

// Run embeds a simulation and provides the Experiment methods that only
// delegate to it.
type Run[P any, E sim.Environment] struct {
	Sim *sim.Simulation[P, E]

	logger *slog.Logger
}

// SetLogger sets the engine logger for the current and every later run.
func (r *Run[P, E]) SetLogger(l *slog.Logger) {
	r.logger = l
	if r.Sim != nil {
		r.Sim.SetLogger(l)
	}
}

// Restart replaces the simulation with a fresh one from Start. A logger
// set with SetLogger is kept when settings carry none.
func (r *Run[P, E]) Restart(settings core.Settings, rules sim.Rules[P, E], env E, seed int64) {
	if settings.Logger == nil {
		settings.Logger = r.logger
	}
	*r = Start(settings, rules, env, seed)
}

// Step advances the simulation by one tick.
func (r *Run[P, E]) Step() { r.Sim.Step() }

// Tick returns the number of completed ticks.
func (r *Run[P, E]) Tick() int { return r.Sim.Tick() }

// MaxTick returns the terminal tick.
func (r *Run[P, E]) MaxTick() int { return r.Sim.MaxTick() }

// Population returns the current population size.
func (r *Run[P, E]) Population() int { return r.Sim.Len() }

// Genomes returns the current genomes.
func (r *Run[P, E]) Genomes() []genome.Genome { return r.Sim.Genomes() }

// Start seeds a fresh simulation: the random source comes from seed, and the
// initial population is settings.Population random genomes of
// settings.GenomeLength bases, drawn from that same source.
func Start[P any, E sim.Environment](settings core.Settings, rules sim.Rules[P, E], env E, seed int64) Run[P, E] {
	rng := rngcore.NewRNG(seed).Source()
	genomes := make([]genome.Genome, settings.Population)
	for i := range genomes {
		genomes[i] = genome.Random(rng, settings.GenomeLength)
	}
	s, err := sim.New(settings.SimConfig(), rules, env, rng, sim.Spawn(rules, genomes, rng))
	if err != nil {
		panic(fmt.Sprintf("experiments: invalid rule set: %v", err))
	}
	return Run[P, E]{Sim: s, logger: settings.Logger}
}

// PopulationMetric is the metric every experiment reports first.
func PopulationMetric(n int) core.Metric {
	return core.Metric{Name: "population", Value: float64(n)}
}

// GenomeLengthMetrics summarises genome lengths.
func GenomeLengthMetrics(genomes []genome.Genome) []core.Metric {
	if len(genomes) == 0 {
		return []core.Metric{{Name: "genome_len_mean", Value: 0}}
	}
	total := 0
	for _, g := range genomes {
		total += len(g)
	}
	return []core.Metric{{Name: "genome_len_mean", Value: float64(total) / float64(len(genomes))}}
}

// RatesGroup describes mutation rates as a parameter group.
func RatesGroup(r genome.Rates) core.ParameterGroup {
	return core.ParameterGroup{
		Name: "Mutation",
		Params: []core.Parameter{
			core.FloatParam("insertion", "Insertion rate", r.Insertion),
			core.FloatParam("deletion", "Deletion rate", r.Deletion),
			core.FloatParam("substitution", "Substitution rate", r.Substitution),
		},
	}
}

// RatesFromMap overrides mutation rates from flag-style key/value pairs.
func RatesFromMap(cfg map[string]string, r genome.Rates) genome.Rates {
	r.Insertion = core.FloatFromMap(cfg, "insertion", r.Insertion)
	r.Deletion = core.FloatFromMap(cfg, "deletion", r.Deletion)
	r.Substitution = core.FloatFromMap(cfg, "substitution", r.Substitution)
	return r
}

// GenomeFromMap parses a genome-valued key, keeping def when absent or invalid.
func GenomeFromMap(cfg map[string]string, key string, def genome.Genome) genome.Genome {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	g, err := genome.Parse(v)
	if err != nil {
		return def
	}
	return g
}
