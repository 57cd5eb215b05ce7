package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evolab/internal/core"
	_ "evolab/internal/experiments/drift"
	_ "evolab/internal/experiments/prefix"
	"evolab/internal/logging"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
experiment: drift
seed: 9
ticks: 20
stats_every: 5
image: out/drift.png
params:
  speed: "0.25"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Experiment != "drift" || cfg.Seed != 9 || cfg.Ticks != 20 || cfg.StatsEvery != 5 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Params["speed"] != "0.25" {
		t.Fatalf("params not loaded: %v", cfg.Params)
	}
	if cfg.TPS != Default().TPS || cfg.LogLevel != "info" {
		t.Fatalf("unset fields should keep defaults, got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := writeFile(t, "bad.yaml", "seed: [1, 2\n")
	if _, err := Load(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "run.yaml", `
experiment: drift
seed: 9
ticks: 20
params:
  speed: "0.25"
  children: "1"
`)
	flags := Default()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Bind(fs)
	if err := fs.Parse([]string{"--seed", "3", "--set", "speed=0.5", "--set", "outside_death=0.9"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := FromFlags(flags, fs, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Seed != 3 {
		t.Fatalf("flag seed should win, got %d", cfg.Seed)
	}
	if cfg.Experiment != "drift" {
		t.Fatalf("unset flag should keep file value, got %q", cfg.Experiment)
	}
	want := map[string]string{"speed": "0.5", "children": "1", "outside_death": "0.9", "ticks": "20"}
	for k, v := range want {
		if cfg.Params[k] != v {
			t.Errorf("param %s = %q, want %q", k, cfg.Params[k], v)
		}
	}
}

func TestResolveRejectsBadOverride(t *testing.T) {
	cfg := Default()
	cfg.Set = []string{"novalue"}
	if _, err := cfg.Resolve(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		want   string
	}{
		{"ok", func(c *RunConfig) { c.Experiment = "prefix" }, ""},
		{"unknown experiment", func(c *RunConfig) { c.Experiment = "nope" }, "not registered"},
		{"negative stats", func(c *RunConfig) { c.Experiment = "prefix"; c.StatsEvery = -1 }, "stats_every"},
		{"bad image", func(c *RunConfig) { c.Experiment = "prefix"; c.Image = "x.gif" }, "image"},
		{"bad plot", func(c *RunConfig) { c.Experiment = "prefix"; c.Plot = "x.doc" }, "plot"},
		{"zero scale", func(c *RunConfig) { c.Experiment = "prefix"; c.Scale = 0 }, "scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Experiment = "drift"
	cfg.Seed = 4
	cfg.Ticks = 12
	cfg.Capacity = 80
	cfg.Image = filepath.Join(dir, "history.bmp")
	cfg.Plot = filepath.Join(dir, "stats.png")
	cfg.PrintEvery = 4
	cfg.PopulationLog = filepath.Join(dir, "pop.jsonl")
	cfg, err := cfg.Resolve()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	res, err := Run(context.Background(), cfg, logging.NewLogger("info", "text", &buf))
	if err != nil {
		t.Fatal(err)
	}
	if res.Ticks != 12 || len(res.Series) != 12 {
		t.Fatalf("expected 12 ticks and samples, got %d and %d", res.Ticks, len(res.Series))
	}
	if !res.HasZone {
		t.Fatal("drift should report a zone")
	}
	if got := res.Series.TailSum("in_zone", TailTicks); got != res.InZoneTail {
		t.Fatalf("tail sum %v, result %v", got, res.InZoneTail)
	}
	for _, p := range []string{cfg.Image, cfg.Plot, cfg.PopulationLog} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Fatalf("expected non-empty %s: %v", p, err)
		}
	}
	if n := strings.Count(buf.String(), "msg=tick"); n != 12 {
		t.Fatalf("expected 12 tick log lines, got %d", n)
	}
	if !strings.Contains(buf.String(), "in_zone_last5") {
		t.Fatal("missing final summary line")
	}
}

func TestRunPassesLoggerToEngine(t *testing.T) {
	cfg := Default()
	cfg.Experiment = "prefix"
	cfg.Ticks = 2
	cfg.StatsEvery = 0
	cfg, err := cfg.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := Run(context.Background(), cfg, logging.NewLogger("debug", "text", &buf)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if n := strings.Count(out, "msg=step"); n != 2 {
		t.Fatalf("expected 2 engine step lines, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, "component=engine") || !strings.Contains(out, "experiment=prefix") {
		t.Fatalf("engine lines should carry run attributes:\n%s", out)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := Default()
	cfg.Experiment = "drift"
	cfg.Ticks = 15
	cfg, err := cfg.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	a, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Population != b.Population || a.InZoneTail != b.InZoneTail {
		t.Fatalf("same seed diverged: %+v vs %+v", a.Population, b.Population)
	}
	for i := range a.Series {
		pa, _ := a.Series[i].Value("position_mean")
		pb, _ := b.Series[i].Value("position_mean")
		if pa != pb {
			t.Fatalf("tick %d: position mean %v vs %v", i, pa, pb)
		}
	}
}

func TestRunWithoutTrackerSkipsImage(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Experiment = "prefix"
	cfg.Ticks = 3
	cfg.Image = filepath.Join(dir, "none.png")
	cfg, err := cfg.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.HasZone || res.InZoneTail != 0 {
		t.Fatalf("prefix has no zone, got %+v", res)
	}
	if _, err := os.Stat(cfg.Image); !os.IsNotExist(err) {
		t.Fatalf("no image should be written, stat err %v", err)
	}
}

func TestRunUnknownExperiment(t *testing.T) {
	cfg := Default()
	cfg.Experiment = "missing"
	if _, err := Run(context.Background(), cfg, nil); !errors.Is(err, core.ErrUnknownExperiment) {
		t.Fatalf("expected ErrUnknownExperiment, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	cfg := Default()
	cfg.Experiment = "drift"
	cfg.Ticks = 6
	cfg.Image = "ignored.png"
	cfg, err := cfg.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	results, err := Sweep(context.Background(), cfg, []int64{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[2].Seed != 3 {
		t.Fatalf("unexpected results %+v", results)
	}
	if _, err := os.Stat("ignored.png"); !os.IsNotExist(err) {
		t.Fatal("sweep must not write images")
	}
}
