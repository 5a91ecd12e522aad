// internal/cli/bench.go
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/benchmark"
	"github.com/mwiater/tokbench/internal/report"
	"github.com/mwiater/tokbench/internal/suite"
)

var benchModel string

// benchCmd runs the single-model suite against one model and prints its summary.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark one model against the single-model suite",
	Long: `Runs every test of the single-model suite against one model, measuring
wall-clock time and generated tokens, then prints a summary table and the
average tokens per second. Any failed test aborts the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return runBench(ctx, cmd.OutOrStdout(), currentConfig, benchModel)
	},
}

func init() {
	benchCmd.Flags().StringVarP(&benchModel, "model", "m", "", "model (or model@host) to benchmark; defaults to the configured model")
	rootCmd.AddCommand(benchCmd)
}

func runBench(ctx context.Context, out io.Writer, cfg *appconfig.Config, model string) error {
	if cfg == nil {
		return fmt.Errorf("configuration is not initialized")
	}
	target, err := cfg.FindTarget(model)
	if err != nil {
		return err
	}
	s, err := suite.Resolve(cfg.Suite, suite.ModeSingle)
	if err != nil {
		return err
	}

	env, err := newRunEnv(cfg, out, false)
	if err != nil {
		return err
	}
	defer env.Close()

	models := []string{target.Label}
	meta := benchmark.NewRunMeta(benchmark.ModeSingle, s.Name, time.Now(), collectSystem())
	env.console.Header(meta, models)

	var store *benchmark.ResultsStore
	err = env.execute(ctx, "tokbench bench: "+target.Label, len(s.Tests), func(ctx context.Context, obs benchmark.Observer) error {
		runner := benchmark.NewRunner(env.provider,
			benchmark.WithObserver(obs),
			benchmark.WithWarmup(cfg.Warmup),
		)
		var runErr error
		store, runErr = runner.RunSingle(ctx, target, s)
		return runErr
	})
	if err != nil {
		return fmt.Errorf("benchmark %s: %w", target.Label, err)
	}
	meta.CompletedAt = time.Now()

	rep, err := benchmark.BuildSingleReport(meta, store)
	if err != nil {
		return err
	}
	env.console.Single(rep)
	return env.export(meta, models, rep, func(path string) (string, error) {
		return report.WriteSingleMarkdown(path, rep)
	})
}
