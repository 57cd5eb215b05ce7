package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"evolab/pkg/genome"
)

// Experiment defines the contract a registered rule set exposes to drivers.
type Experiment interface {
	Name() string
	Reset(seed int64)
	Step()
	Tick() int
	MaxTick() int
	Population() int
	Genomes() []genome.Genome
	Metrics() []Metric
}

// Metric is a named scalar observation of the current population.
type Metric struct {
	Name  string
	Value float64
}

// Track is the display view of one tick: organism positions in [-1, 1] and
// the safe zone, when the experiment has one.
type Track struct {
	Positions []float64
	ZoneLow   float64
	ZoneHigh  float64
	HasZone   bool
}

// Tracker is implemented by experiments whose organisms have a position.
type Tracker interface {
	Track() Track
}

// LoggerSetter is implemented by experiments whose engine can log. The
// logger survives later calls to Reset.
type LoggerSetter interface {
	SetLogger(l *slog.Logger)
}

// Factory constructs an Experiment using an optional configuration map.
type Factory func(cfg map[string]string) Experiment

// ErrUnknownExperiment is returned by Lookup for unregistered names.
var ErrUnknownExperiment = errors.New("unknown experiment")

var experiments = map[string]Factory{}

// Register adds an experiment factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	experiments[name] = f
}

// Experiments exposes the registry of available experiment factories.
func Experiments() map[string]Factory {
	return experiments
}

// Names returns the registered experiment names in sorted order.
func Names() []string {
	names := make([]string, 0, len(experiments))
	for name := range experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	f, ok := experiments[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownExperiment, name)
	}
	return f, nil
}

// MetricValue finds a metric by name.
func MetricValue(metrics []Metric, name string) (float64, bool) {
	for _, m := range metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}
