// internal/cli/run.go
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/benchmark"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/metrics"
	"github.com/mwiater/tokbench/internal/providerfactory"
	"github.com/mwiater/tokbench/internal/providers"
	"github.com/mwiater/tokbench/internal/report"
	"github.com/mwiater/tokbench/internal/sysinfo"
	"github.com/mwiater/tokbench/internal/tui"
)

// Swappable in tests.
var (
	newProvider   = providerfactory.NewChatProvider
	collectSystem = sysinfo.Collect
	tuiOptions    []tea.ProgramOption
)

// runEnv bundles what a benchmark command needs for one run.
type runEnv struct {
	cfg      *appconfig.Config
	out      io.Writer
	recorder *metrics.Recorder
	provider providers.ChatProvider
	console  *report.Console
}

func newRunEnv(cfg *appconfig.Config, out io.Writer, compare bool) (*runEnv, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is not initialized")
	}
	var recorder *metrics.Recorder
	if cfg.MetricsTextfile != "" {
		recorder = metrics.NewRecorder()
	}
	provider, err := newProvider(cfg, recorder)
	if err != nil {
		return nil, err
	}

	opts := []report.Option{
		report.WithResponses(cfg.ShowResponses && !cfg.TUI),
		report.WithMarkdown(cfg.RenderMarkdown),
	}
	if compare {
		opts = append(opts, report.WithComparisonLayout())
	}
	return &runEnv{
		cfg:      cfg,
		out:      out,
		recorder: recorder,
		provider: provider,
		console:  report.NewConsole(out, opts...),
	}, nil
}

func (e *runEnv) Close() error {
	return e.provider.Close()
}

// execute runs fn with the configured observers, under the progress view when enabled.
func (e *runEnv) execute(ctx context.Context, title string, invocations int, fn tui.RunFunc) error {
	var recorded benchmark.Observer
	if e.recorder != nil {
		recorded = metrics.NewObserver(e.recorder)
	}
	if e.cfg.TUI {
		return tui.Run(ctx, title, invocations, func(ctx context.Context, obs benchmark.Observer) error {
			return fn(ctx, benchmark.Observers(obs, recorded))
		}, tuiOptions...)
	}
	return fn(ctx, benchmark.Observers(e.console, recorded))
}

// export writes every configured output file for a finished run.
func (e *runEnv) export(meta benchmark.RunMeta, models []string, rep any, writeMarkdown func(path string) (string, error)) error {
	if path := e.cfg.ExportPath; path != "" {
		written, err := report.WriteJSON(path, meta, models, rep)
		if err != nil {
			return err
		}
		e.announce(written)
	}
	if path := e.cfg.ExportMarkdownPath; path != "" {
		written, err := writeMarkdown(path)
		if err != nil {
			return err
		}
		e.announce(written)
	}
	if path := e.cfg.MetricsTextfile; path != "" && e.recorder != nil {
		if err := e.recorder.WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
		e.announce(path)
	}
	return nil
}

func (e *runEnv) announce(path string) {
	logging.LogEvent("results written to %s", path)
	fmt.Fprintf(e.out, "Results written to %s\n", path)
}

// signalContext cancels on interrupt so an in-flight run stops between invocations.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
