//go:build ebiten

package main

import (
	"errors"
	"log"
	"os"

	"evolab/internal/app"
	"evolab/internal/core"
	_ "evolab/internal/experiments/aging"
	_ "evolab/internal/experiments/drift"
	_ "evolab/internal/experiments/prefix"
	_ "evolab/internal/experiments/repeats"
	_ "evolab/internal/experiments/stimulus"
	_ "evolab/internal/experiments/weight"
	"evolab/internal/logging"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/pflag"
)

// historyRows is how many ticks the scrolling view keeps on screen.
const historyRows = 300

func main() {
	flags := app.Default()
	var configPath string
	pflag.StringVar(&configPath, "config", "", "YAML run file")
	flags.Bind(pflag.CommandLine)
	pflag.Parse()

	cfg, err := app.FromFlags(flags, pflag.CommandLine, configPath)
	if err != nil {
		log.Fatal(err)
	}

	factory, err := core.Lookup(cfg.Experiment)
	if err != nil {
		log.Fatal(err)
	}
	exp := factory(cfg.Params)
	if ls, ok := exp.(core.LoggerSetter); ok {
		ls.SetLogger(logging.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr).With("experiment", exp.Name()))
	}
	exp.Reset(cfg.Seed)

	width := cfg.ImageWidth
	if width <= 0 {
		width = core.SettingsFromMap(cfg.Params).Capacity
	}
	height := historyRows
	if exp.MaxTick() > 0 && exp.MaxTick()+1 < height {
		height = exp.MaxTick() + 1
	}

	game := app.New(exp, width, height, cfg.Scale, cfg.TPS, cfg.Seed)
	w, h := game.Layout(0, 0)

	ebiten.SetWindowTitle("evolab: " + exp.Name())
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
