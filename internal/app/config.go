package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"evolab/internal/core"
	"evolab/internal/render"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// RunConfig holds the parameters of one run, for both the headless runner
// and the live viewer.
type RunConfig struct {
	Experiment string            `yaml:"experiment"`
	Seed       int64             `yaml:"seed"`
	Ticks      int               `yaml:"ticks"`
	Capacity   int               `yaml:"capacity"`
	Merge      string            `yaml:"merge"`
	Strict     bool              `yaml:"strict"`
	Params     map[string]string `yaml:"params"`

	StatsEvery    int      `yaml:"stats_every"`
	PrintEvery    int      `yaml:"print_every"`
	Image         string   `yaml:"image"`
	ImageWidth    int      `yaml:"image_width"`
	Plot          string   `yaml:"plot"`
	PlotMetrics   []string `yaml:"plot_metrics"`
	PopulationLog string   `yaml:"population_log"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Scale int `yaml:"scale"`
	TPS   int `yaml:"tps"`

	// Set holds repeated key=value overrides from the command line. They
	// are folded into Params by Resolve.
	Set []string `yaml:"-"`
}

// Default returns the standard run: the learner experiment, seed 1, stats
// every tick.
func Default() RunConfig {
	return RunConfig{
		Experiment: "learner",
		Seed:       1,
		StatsEvery: 1,
		LogLevel:   "info",
		LogFormat:  "text",
		Scale:      2,
		TPS:        30,
	}
}

// Load reads a YAML run file on top of the defaults.
func Load(path string) (RunConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("app: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("app: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Bind attaches the configuration to the provided FlagSet. Current field
// values become the flag defaults.
func (c *RunConfig) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Experiment, "experiment", "e", c.Experiment, "experiment to run")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.IntVar(&c.Ticks, "ticks", c.Ticks, "number of ticks (0 keeps the experiment default)")
	fs.IntVar(&c.Capacity, "capacity", c.Capacity, "population cap (0 keeps the experiment default)")
	fs.StringVar(&c.Merge, "merge", c.Merge, "capacity merge policy: truncate or pool")
	fs.BoolVar(&c.Strict, "strict", c.Strict, "panic on engine invariant violations")
	fs.IntVar(&c.StatsEvery, "stats-every", c.StatsEvery, "log metrics every N ticks (0 disables)")
	fs.IntVar(&c.PrintEvery, "print-every", c.PrintEvery, "log genomes at trace level every N ticks (0 disables)")
	fs.StringVar(&c.Image, "image", c.Image, "write the history raster to this file (.png, .bmp, .tiff)")
	fs.IntVar(&c.ImageWidth, "image-width", c.ImageWidth, "raster width in pixels (0 uses the capacity)")
	fs.StringVar(&c.Plot, "plot", c.Plot, "write a metrics plot to this file")
	fs.StringSliceVar(&c.PlotMetrics, "plot-metrics", c.PlotMetrics, "metrics to plot")
	fs.StringVar(&c.PopulationLog, "population-log", c.PopulationLog, "append per-tick population records to this JSONL file")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: trace, debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
	fs.IntVar(&c.Scale, "scale", c.Scale, "viewer pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "viewer ticks per second")
	fs.StringArrayVar(&c.Set, "set", c.Set, "experiment parameter override in key=value form (repeatable)")
}

// Overlay copies into c every field whose flag was set on fs, taking the
// value from flags. It is how command-line flags win over a config file.
func (c *RunConfig) Overlay(flags RunConfig, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "experiment":
			c.Experiment = flags.Experiment
		case "seed":
			c.Seed = flags.Seed
		case "ticks":
			c.Ticks = flags.Ticks
		case "capacity":
			c.Capacity = flags.Capacity
		case "merge":
			c.Merge = flags.Merge
		case "strict":
			c.Strict = flags.Strict
		case "stats-every":
			c.StatsEvery = flags.StatsEvery
		case "print-every":
			c.PrintEvery = flags.PrintEvery
		case "image":
			c.Image = flags.Image
		case "image-width":
			c.ImageWidth = flags.ImageWidth
		case "plot":
			c.Plot = flags.Plot
		case "plot-metrics":
			c.PlotMetrics = flags.PlotMetrics
		case "population-log":
			c.PopulationLog = flags.PopulationLog
		case "log-level":
			c.LogLevel = flags.LogLevel
		case "log-format":
			c.LogFormat = flags.LogFormat
		case "scale":
			c.Scale = flags.Scale
		case "tps":
			c.TPS = flags.TPS
		case "set":
			c.Set = append(c.Set, flags.Set...)
		}
	})
}

// FromFlags resolves the final configuration after fs has been parsed into
// flags. When configPath is set the file is loaded first and explicitly set
// flags are applied over it.
func FromFlags(flags RunConfig, fs *pflag.FlagSet, configPath string) (RunConfig, error) {
	if configPath == "" {
		return flags.Resolve()
	}
	cfg, err := Load(configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Overlay(flags, fs)
	return cfg.Resolve()
}

// Resolve folds the engine fields and Set overrides into Params and
// validates the result. Set entries win over Params from the file.
func (c RunConfig) Resolve() (RunConfig, error) {
	params := make(map[string]string, len(c.Params)+len(c.Set)+4)
	for k, v := range c.Params {
		params[k] = v
	}
	if c.Ticks > 0 {
		params["ticks"] = strconv.Itoa(c.Ticks)
	}
	if c.Capacity > 0 {
		params["capacity"] = strconv.Itoa(c.Capacity)
	}
	if c.Merge != "" {
		params["merge"] = c.Merge
	}
	if c.Strict {
		params["strict"] = "true"
	}
	for _, kv := range c.Set {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return c, fmt.Errorf("%w: override %q is not key=value", ErrInvalidConfig, kv)
		}
		params[key] = strings.TrimSpace(value)
	}
	c.Params = params
	c.Set = nil
	return c, c.Validate()
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid run config")

// plotFormats are the extensions gonum/plot can save.
var plotFormats = map[string]bool{
	".eps": true, ".jpg": true, ".jpeg": true, ".pdf": true,
	".png": true, ".svg": true, ".tex": true, ".tif": true, ".tiff": true,
}

// Validate reports the first problem with the configuration.
func (c RunConfig) Validate() error {
	var problems []string
	if _, err := core.Lookup(c.Experiment); err != nil {
		problems = append(problems, fmt.Sprintf("experiment %q is not registered (have %s)", c.Experiment, strings.Join(core.Names(), ", ")))
	}
	if c.Ticks < 0 {
		problems = append(problems, "ticks must be non-negative")
	}
	if c.Capacity < 0 {
		problems = append(problems, "capacity must be non-negative")
	}
	if c.StatsEvery < 0 {
		problems = append(problems, "stats_every must be non-negative")
	}
	if c.PrintEvery < 0 {
		problems = append(problems, "print_every must be non-negative")
	}
	if c.ImageWidth < 0 {
		problems = append(problems, "image_width must be non-negative")
	}
	if c.Image != "" {
		if _, err := render.FormatFromPath(c.Image); err != nil {
			problems = append(problems, fmt.Sprintf("image: %v", err))
		}
	}
	if c.Plot != "" && !plotFormats[strings.ToLower(filepath.Ext(c.Plot))] {
		problems = append(problems, fmt.Sprintf("plot: unsupported extension %q", filepath.Ext(c.Plot)))
	}
	if c.Scale <= 0 {
		problems = append(problems, "scale must be positive")
	}
	if c.TPS <= 0 {
		problems = append(problems, "tps must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// ParamKeys returns the Params keys in sorted order.
func (c RunConfig) ParamKeys() []string {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
