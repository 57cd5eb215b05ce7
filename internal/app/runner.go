// Package app wires registered experiments to the outside world: run
// configuration, the headless runner used by the CLI, and the ebiten viewer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"evolab/internal/core"
	"evolab/internal/logging"
	"evolab/internal/render"
	"evolab/internal/stats"
)

// TailTicks is the window of final ticks whose in-zone counts are summed
// into Result.InZoneTail.
const TailTicks = 5

// Result summarises a finished run.
type Result struct {
	Experiment string
	Seed       int64
	Ticks      int
	Population int
	HasZone    bool
	InZoneTail float64
	Series     stats.Series
	Final      []core.Metric
}

// Run executes one experiment to its terminal tick. Metrics are sampled
// before every step, so the series holds ticks 0 through MaxTick-1 and the
// final state is reported separately in Result.Final.
func Run(ctx context.Context, cfg RunConfig, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	factory, err := core.Lookup(cfg.Experiment)
	if err != nil {
		return Result{}, err
	}
	exp := factory(cfg.Params)
	logger = logger.With("experiment", exp.Name(), "seed", cfg.Seed)
	if ls, ok := exp.(core.LoggerSetter); ok {
		ls.SetLogger(logger.With("component", "engine"))
	}
	exp.Reset(cfg.Seed)

	logger.Info("run starting", "ticks", exp.MaxTick(), "population", exp.Population(), "params", paramAttrs(cfg))

	tracker, _ := exp.(core.Tracker)
	var history *render.History
	if cfg.Image != "" {
		if tracker == nil {
			logger.Warn("experiment has no positions; skipping image", "image", cfg.Image)
		} else {
			history = render.NewHistory(imageWidth(cfg, exp))
		}
	}

	var popLog *logging.PopulationLog
	if cfg.PopulationLog != "" {
		popLog, err = logging.OpenPopulationLog(cfg.PopulationLog)
		if err != nil {
			return Result{}, err
		}
		defer popLog.Close()
	}

	res := Result{Experiment: exp.Name(), Seed: cfg.Seed, HasZone: tracker != nil}
	for exp.Tick() < exp.MaxTick() {
		t := exp.Tick()
		sample := res.Series.Observe(exp)
		if history != nil {
			history.Record(tracker.Track())
		}
		if cfg.StatsEvery > 0 && t%cfg.StatsEvery == 0 {
			logger.Info("tick", metricAttrs(t, sample.Metrics)...)
		}
		if cfg.PrintEvery > 0 && t%cfg.PrintEvery == 0 {
			if err := dumpGenomes(ctx, logger, popLog, exp, cfg.Seed); err != nil {
				return res, err
			}
		}
		exp.Step()
	}

	res.Ticks = exp.Tick()
	res.Population = exp.Population()
	res.Final = exp.Metrics()
	if res.HasZone {
		res.InZoneTail = res.Series.TailSum("in_zone", TailTicks)
	}
	logger.Info("run finished", "ticks", res.Ticks, "population", res.Population, "in_zone_last5", res.InZoneTail)

	if history != nil {
		if err := history.Save(cfg.Image); err != nil {
			return res, err
		}
		logger.Info("wrote image", "path", cfg.Image, "rows", history.Len(), "width", history.Width())
	}
	if cfg.Plot != "" {
		metrics := cfg.PlotMetrics
		if len(metrics) == 0 {
			metrics = defaultPlotMetrics(res.HasZone)
		}
		title := fmt.Sprintf("%s (seed %d)", exp.Name(), cfg.Seed)
		switch err := res.Series.Plot(title, cfg.Plot, metrics...); {
		case errors.Is(err, stats.ErrNoData):
			logger.Warn("no samples; skipping plot", "path", cfg.Plot)
		case err != nil:
			return res, err
		default:
			logger.Info("wrote plot", "path", cfg.Plot, "metrics", metrics)
		}
	}
	return res, nil
}

func defaultPlotMetrics(hasZone bool) []string {
	if hasZone {
		return []string{"population", "in_zone"}
	}
	return []string{"population"}
}

// imageWidth prefers the configured width, then the experiment's capacity,
// then a fixed fallback.
func imageWidth(cfg RunConfig, exp core.Experiment) int {
	if cfg.ImageWidth > 0 {
		return cfg.ImageWidth
	}
	if p, ok := exp.(core.ParameterProvider); ok {
		for _, g := range p.Parameters().Groups {
			for _, param := range g.Params {
				if param.Key == "capacity" {
					if n, err := strconv.Atoi(param.Value); err == nil && n > 0 {
						return n
					}
				}
			}
		}
	}
	return core.DefaultSettings().Capacity
}

func dumpGenomes(ctx context.Context, logger *slog.Logger, popLog *logging.PopulationLog, exp core.Experiment, seed int64) error {
	genomes := exp.Genomes()
	strs := make([]string, len(genomes))
	for i, g := range genomes {
		strs[i] = g.String()
	}
	logger.Log(ctx, logging.LevelTrace, "genomes", "tick", exp.Tick(), "size", len(strs), "genomes", strs)
	return popLog.Write(logging.PopulationRecord{
		Experiment: exp.Name(),
		Seed:       seed,
		Tick:       exp.Tick(),
		Size:       len(strs),
		Genomes:    strs,
	})
}

func metricAttrs(tick int, metrics []core.Metric) []any {
	attrs := make([]any, 0, 2+2*len(metrics))
	attrs = append(attrs, "tick", tick)
	for _, m := range metrics {
		attrs = append(attrs, slog.Float64(m.Name, m.Value))
	}
	return attrs
}

func paramAttrs(cfg RunConfig) slog.Value {
	attrs := make([]slog.Attr, 0, len(cfg.Params))
	for _, k := range cfg.ParamKeys() {
		attrs = append(attrs, slog.String(k, cfg.Params[k]))
	}
	return slog.GroupValue(attrs...)
}

// Sweep runs cfg once per seed, one after another. Image, plot and
// population log outputs are disabled; only the results are collected.
func Sweep(ctx context.Context, cfg RunConfig, seeds []int64, logger *slog.Logger) ([]Result, error) {
	cfg.Image = ""
	cfg.Plot = ""
	cfg.PopulationLog = ""
	cfg.PrintEvery = 0
	results := make([]Result, 0, len(seeds))
	for _, seed := range seeds {
		cfg.Seed = seed
		res, err := Run(ctx, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("app: seed %d: %w", seed, err)
		}
		results = append(results, res)
	}
	return results, nil
}
