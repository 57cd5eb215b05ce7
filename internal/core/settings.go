package core

import (
	"log/slog"
	"strconv"

	"evolab/pkg/sim"
)

// Settings are the engine-level knobs every experiment accepts.
type Settings struct {
	Capacity     int
	MaxTicks     int
	Population   int
	GenomeLength int
	Merge        sim.MergePolicy
	Strict       bool

	// Logger is handed to the engine. It is never read from a map.
	Logger *slog.Logger
}

// DefaultSettings returns the standard run: 100 random 8-base genomes, a cap
// of 400 and 300 ticks.
func DefaultSettings() Settings {
	return Settings{
		Capacity:     400,
		MaxTicks:     300,
		Population:   100,
		GenomeLength: 8,
		Merge:        sim.MergeTruncate,
	}
}

// SettingsFromMap populates Settings from flag-style key/value pairs.
// Unparseable values keep their defaults.
func SettingsFromMap(cfg map[string]string) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	if v, ok := cfg["capacity"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			s.Capacity = parsed
		}
	}
	if v, ok := cfg["ticks"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			s.MaxTicks = parsed
		}
	}
	if v, ok := cfg["population"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			s.Population = parsed
		}
	}
	if v, ok := cfg["genome_len"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			s.GenomeLength = parsed
		}
	}
	if v, ok := cfg["merge"]; ok {
		if parsed, err := sim.ParseMergePolicy(v); err == nil {
			s.Merge = parsed
		}
	}
	if v, ok := cfg["strict"]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			s.Strict = parsed
		}
	}
	return s
}

// SimConfig converts the settings into an engine configuration.
func (s Settings) SimConfig() sim.Config {
	return sim.Config{
		Capacity: s.Capacity,
		MaxTicks: s.MaxTicks,
		Merge:    s.Merge,
		Strict:   s.Strict,
		Logger:   s.Logger,
	}
}

// Group describes the settings as a parameter group.
func (s Settings) Group() ParameterGroup {
	return ParameterGroup{
		Name: "Engine",
		Params: []Parameter{
			IntParam("capacity", "Capacity", s.Capacity),
			IntParam("ticks", "Ticks", s.MaxTicks),
			IntParam("population", "Initial population", s.Population),
			IntParam("genome_len", "Initial genome length", s.GenomeLength),
			StringParam("merge", "Merge policy", string(s.Merge)),
			BoolParam("strict", "Strict invariants", s.Strict),
		},
	}
}

// FloatFromMap reads a float key, keeping def when absent or invalid.
func FloatFromMap(cfg map[string]string, key string, def float64) float64 {
	if v, ok := cfg[key]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

// BoolFromMap reads a bool key, keeping def when absent or invalid.
func BoolFromMap(cfg map[string]string, key string, def bool) bool {
	if v, ok := cfg[key]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
