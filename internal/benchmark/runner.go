// internal/benchmark/runner.go
package benchmark

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/providers"
	"github.com/mwiater/tokbench/internal/suite"
)

// Runner orchestrates suites against one or more models.
type Runner struct {
	provider providers.ChatProvider
	observer Observer
	now      Clock
	parallel int
	warmup   bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver sets the progress sink.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithClock replaces the clock used to time invocations.
func WithClock(now Clock) Option {
	return func(r *Runner) { r.now = now }
}

// WithParallel allows up to n concurrent invocations in comparison runs.
func WithParallel(n int) Option {
	return func(r *Runner) { r.parallel = n }
}

// WithWarmup loads each model before its first test.
func WithWarmup(enabled bool) Option {
	return func(r *Runner) { r.warmup = enabled }
}

// NewRunner returns a sequential Runner with a no-op observer unless options say otherwise.
func NewRunner(provider providers.ChatProvider, opts ...Option) *Runner {
	r := &Runner{provider: provider, observer: NopObserver{}, parallel: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) executor() *Executor {
	return NewExecutor(r.provider, r.now)
}

func targetLabel(t appconfig.Target) string {
	if t.Label != "" {
		return t.Label
	}
	return t.Model
}

// RunSingle runs every test in s against target in order.
// The first failed invocation aborts the run.
func (r *Runner) RunSingle(ctx context.Context, target appconfig.Target, s suite.Suite) (*ResultsStore, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(target.Model) == "" {
		return nil, ErrNoModels
	}
	label := targetLabel(target)
	store, err := NewResultsStore([]string{label}, s.Tests)
	if err != nil {
		return nil, err
	}

	if r.warmup {
		if err := r.provider.EnsureModelReady(ctx, target.Host, target.Model); err != nil {
			return nil, fmt.Errorf("warm up %s: %w", label, err)
		}
	}

	exec := r.executor()
	total := len(s.Tests)
	for i, tc := range s.Tests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.observer.TestStarted(i, total, tc)
		r.observer.InvocationStarted(label, tc)
		rec, resp, err := exec.Execute(ctx, target, tc)
		if err != nil {
			r.observer.InvocationFailed(label, tc, err)
			return nil, fmt.Errorf("test %q on %s: %w", tc.Label, label, err)
		}
		r.observer.InvocationFinished(label, rec, resp.Content)
		if err := store.Append(label, rec); err != nil {
			return nil, err
		}
		logging.LogEvent("%s | %s: %d tokens in %s (%.2f tok/s)", label, tc.Label, rec.TokenCount, rec.Elapsed, rec.TokensPerSecond)
	}
	return store, nil
}

// RunComparison runs each test against every target in configured order.
// A failed invocation becomes a degraded record and the run continues.
func (r *Runner) RunComparison(ctx context.Context, targets []appconfig.Target, s suite.Suite) (*ResultsStore, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoModels
	}
	labels := make([]string, len(targets))
	for i, t := range targets {
		if strings.TrimSpace(t.Model) == "" {
			return nil, ErrNoModels
		}
		labels[i] = targetLabel(t)
	}
	store, err := NewResultsStore(labels, s.Tests)
	if err != nil {
		return nil, err
	}

	if r.warmup {
		for i, t := range targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := r.provider.EnsureModelReady(ctx, t.Host, t.Model); err != nil {
				logging.LogError("warm up %s failed: %v", labels[i], err)
			}
		}
	}

	if r.parallel > 1 {
		return r.runComparisonParallel(ctx, targets, labels, s, store)
	}

	exec := r.executor()
	total := len(s.Tests)
	for i, tc := range s.Tests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.observer.TestStarted(i, total, tc)
		for j, t := range targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := r.invokeRecovering(ctx, exec, t, labels[j], tc)
			if err != nil {
				return nil, err
			}
			if err := store.Append(labels[j], rec); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}

// invokeRecovering runs one invocation and converts a failure into a degraded record.
// Only context cancellation is returned as an error.
func (r *Runner) invokeRecovering(ctx context.Context, exec *Executor, t appconfig.Target, label string, tc suite.TestCase) (ResultRecord, error) {
	r.observer.InvocationStarted(label, tc)
	rec, resp, err := exec.Execute(ctx, t, tc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ResultRecord{}, ctxErr
		}
		r.observer.InvocationFailed(label, tc, err)
		logging.LogError("%s | %s failed: %v", label, tc.Label, err)
		return DegradedRecord(tc.Category, tc.Label, err), nil
	}
	r.observer.InvocationFinished(label, rec, resp.Content)
	logging.LogEvent("%s | %s: %d tokens in %s (%.2f tok/s)", label, tc.Label, rec.TokenCount, rec.Elapsed, rec.TokensPerSecond)
	return rec, nil
}

// runComparisonParallel fills a (test, model) grid concurrently and appends it
// to the store in grid order once every invocation has finished.
func (r *Runner) runComparisonParallel(ctx context.Context, targets []appconfig.Target, labels []string, s suite.Suite, store *ResultsStore) (*ResultsStore, error) {
	grid := make([][]ResultRecord, len(s.Tests))
	for i := range grid {
		grid[i] = make([]ResultRecord, len(targets))
	}

	prev := r.observer
	r.observer = &lockedObserver{inner: prev}
	defer func() { r.observer = prev }()

	exec := r.executor()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)

	total := len(s.Tests)
	for i, tc := range s.Tests {
		r.observer.TestStarted(i, total, tc)
		for j, t := range targets {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec, err := r.invokeRecovering(gctx, exec, t, labels[j], tc)
				if err != nil {
					return err
				}
				grid[i][j] = rec
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range s.Tests {
		for j, label := range labels {
			if err := store.Append(label, grid[i][j]); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}
