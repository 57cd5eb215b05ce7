package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"evolab/internal/app"
	"evolab/internal/core"
	_ "evolab/internal/experiments/aging"
	_ "evolab/internal/experiments/drift"
	_ "evolab/internal/experiments/prefix"
	_ "evolab/internal/experiments/repeats"
	_ "evolab/internal/experiments/stimulus"
	_ "evolab/internal/experiments/weight"
	"evolab/internal/logging"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "evolab",
		Short: "Evolution experiments on mutating genomes",
		Long: `evolab runs population experiments in which organisms carry a genome
over the bases A, C, T and G. Each tick organisms die, reproduce with
mutation and act in their environment under a population cap.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newListCmd(),
		newRunCmd(),
		newSweepCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "evolab version %s\n", version)
			return nil
		},
	}
}

type experimentInfo struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered experiments and their default parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := listExperiments()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			out := cmd.OutOrStdout()
			for _, info := range infos {
				fmt.Fprintln(out, info.Name)
				keys := make([]string, 0, len(info.Parameters))
				for k := range info.Parameters {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %s=%s\n", k, info.Parameters[k])
				}
			}
			return nil
		},
	}
}

func listExperiments() []experimentInfo {
	names := core.Names()
	infos := make([]experimentInfo, 0, len(names))
	for _, name := range names {
		factory, _ := core.Lookup(name)
		info := experimentInfo{Name: name}
		if p, ok := factory(nil).(core.ParameterProvider); ok {
			info.Parameters = map[string]string{}
			for _, g := range p.Parameters().Groups {
				for _, param := range g.Params {
					info.Parameters[param.Key] = param.Value
				}
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func newRunCmd() *cobra.Command {
	flags := app.Default()
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one experiment to completion",
		Long: `Run builds an experiment from the registry and steps it to its final
tick, logging metrics along the way. Settings come from the defaults, then
the --config file, then explicitly set flags.`,
		Example: `  evolab run -e drift --seed 3 --image drift.png
  evolab run --config runs/learner.yaml --set reception=linear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.FromFlags(flags, cmd.Flags(), configPath)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			res, err := app.Run(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("run %s: %w", cfg.Experiment, err)
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			return printResults(cmd.OutOrStdout(), jsonOut, []app.Result{res})
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML run file")
	flags.Bind(cmd.Flags())
	return cmd
}

func newSweepCmd() *cobra.Command {
	flags := app.Default()
	flags.StatsEvery = 0
	var (
		configPath string
		seedSpec   string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one experiment over several seeds",
		Long: `Sweep runs the same configuration once per seed, one after another,
and prints the final population and the in-zone sum over the last ticks
for each seed. Image and plot outputs are ignored.`,
		Example: `  evolab sweep -e learner --seeds 1-10
  evolab sweep -e drift --seeds 1,5,9 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := parseSeeds(seedSpec)
			if err != nil {
				return err
			}
			cfg, err := app.FromFlags(flags, cmd.Flags(), configPath)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			results, err := app.Sweep(cmd.Context(), cfg, seeds, logger)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			return printResults(cmd.OutOrStdout(), jsonOut, results)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML run file")
	cmd.Flags().StringVar(&seedSpec, "seeds", "1-5", "seeds as a comma list or inclusive range, e.g. 1,4,7 or 1-10")
	flags.Bind(cmd.Flags())
	return cmd
}

// maxSeeds bounds how many seeds one sweep may expand to.
const maxSeeds = 10000

// parseSeeds accepts comma separated seeds and inclusive a-b ranges.
func parseSeeds(list string) ([]int64, error) {
	var seeds []int64
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok && lo != "" {
			a, errA := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
			b, errB := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
			if errA != nil || errB != nil || b < a {
				return nil, fmt.Errorf("invalid seed range %q", part)
			}
			if uint64(b-a) >= uint64(maxSeeds-len(seeds)) {
				return nil, fmt.Errorf("seed range %q exceeds the limit of %d seeds", part, maxSeeds)
			}
			for i := int64(0); i <= b-a; i++ {
				seeds = append(seeds, a+i)
			}
			continue
		}
		s, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q", part)
		}
		if len(seeds) >= maxSeeds {
			return nil, fmt.Errorf("more than %d seeds in %q", maxSeeds, list)
		}
		seeds = append(seeds, s)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds in %q", list)
	}
	return seeds, nil
}

type resultRow struct {
	Experiment string             `json:"experiment"`
	Seed       int64              `json:"seed"`
	Ticks      int                `json:"ticks"`
	Population int                `json:"population"`
	InZoneTail *float64           `json:"in_zone_tail,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

func printResults(w io.Writer, jsonOut bool, results []app.Result) error {
	if jsonOut {
		rows := make([]resultRow, len(results))
		for i, r := range results {
			rows[i] = resultRow{
				Experiment: r.Experiment,
				Seed:       r.Seed,
				Ticks:      r.Ticks,
				Population: r.Population,
				Metrics:    make(map[string]float64, len(r.Final)),
			}
			if r.HasZone {
				tail := r.InZoneTail
				rows[i].InZoneTail = &tail
			}
			for _, m := range r.Final {
				rows[i].Metrics[m.Name] = m.Value
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EXPERIMENT\tSEED\tTICKS\tPOPULATION\tIN_ZONE_LAST5")
	for _, r := range results {
		tail := "-"
		if r.HasZone {
			tail = strconv.FormatFloat(r.InZoneTail, 'f', -1, 64)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", r.Experiment, r.Seed, r.Ticks, r.Population, tail)
	}
	return tw.Flush()
}
