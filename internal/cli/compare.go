// internal/cli/compare.go
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/benchmark"
	"github.com/mwiater/tokbench/internal/report"
	"github.com/mwiater/tokbench/internal/suite"
)

var compareModels []string

// compareCmd runs the comparison suite across every configured model.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare tokens per second across models",
	Long: `Runs every test of the comparison suite against each configured model,
test by test. A failing model gets a zeroed row and the run continues. Prints
a per-test comparison with the fastest model and per-model averages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return runCompare(ctx, cmd.OutOrStdout(), currentConfig, compareModels)
	},
}

func init() {
	compareCmd.Flags().StringSliceVar(&compareModels, "models", nil, "subset of configured models (or model@host) to compare, in order")
	compareCmd.Flags().Int("parallel", 1, "maximum concurrent invocations (1 = strictly sequential)")
	_ = viper.BindPFlag("parallel", compareCmd.Flags().Lookup("parallel"))
	rootCmd.AddCommand(compareCmd)
}

// selectTargets resolves names against the config, or returns every target when names is empty.
func selectTargets(cfg *appconfig.Config, names []string) ([]appconfig.Target, error) {
	if len(names) == 0 {
		return cfg.Targets(), nil
	}
	targets := make([]appconfig.Target, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		t, err := cfg.FindTarget(name)
		if err != nil {
			return nil, err
		}
		if seen[t.Label] {
			return nil, fmt.Errorf("model %q listed more than once", t.Label)
		}
		seen[t.Label] = true
		targets = append(targets, t)
	}
	return targets, nil
}

func runCompare(ctx context.Context, out io.Writer, cfg *appconfig.Config, names []string) error {
	if cfg == nil {
		return fmt.Errorf("configuration is not initialized")
	}
	targets, err := selectTargets(cfg, names)
	if err != nil {
		return err
	}
	s, err := suite.Resolve(cfg.Suite, suite.ModeCompare)
	if err != nil {
		return err
	}

	env, err := newRunEnv(cfg, out, true)
	if err != nil {
		return err
	}
	defer env.Close()

	models := make([]string, len(targets))
	for i, t := range targets {
		models[i] = t.Label
	}
	meta := benchmark.NewRunMeta(benchmark.ModeCompare, s.Name, time.Now(), collectSystem())
	env.console.Header(meta, models)

	var store *benchmark.ResultsStore
	err = env.execute(ctx, "tokbench compare", len(s.Tests)*len(targets), func(ctx context.Context, obs benchmark.Observer) error {
		runner := benchmark.NewRunner(env.provider,
			benchmark.WithObserver(obs),
			benchmark.WithWarmup(cfg.Warmup),
			benchmark.WithParallel(cfg.ParallelLimit()),
		)
		var runErr error
		store, runErr = runner.RunComparison(ctx, targets, s)
		return runErr
	})
	if err != nil {
		return fmt.Errorf("comparison: %w", err)
	}
	meta.CompletedAt = time.Now()

	rep, err := benchmark.BuildComparisonReport(meta, store)
	if err != nil {
		return err
	}
	env.console.Comparison(rep)
	return env.export(meta, models, rep, func(path string) (string, error) {
		return report.WriteComparisonMarkdown(path, rep)
	})
}
