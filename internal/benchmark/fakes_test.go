package benchmark

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/providers"
	"github.com/mwiater/tokbench/internal/suite"
)

// fakeClock advances only when the fake provider answers a call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// reply scripts one answer. A nil tokens pointer means the backend omitted the count.
type reply struct {
	elapsed time.Duration
	tokens  *int
	err     error
}

func replyOK(elapsed time.Duration, tokens int) reply {
	return reply{elapsed: elapsed, tokens: &tokens}
}

func replyErr(msg string) reply {
	return reply{err: errors.New(msg)}
}

type call struct {
	model  string
	prompt string
}

// scriptedProvider answers each model's calls from its own queue.
type scriptedProvider struct {
	mu      sync.Mutex
	clock   *fakeClock
	script  map[string][]reply
	calls   []call
	warmed  []string
	warmErr error
	block   chan struct{}
	// answer, when set, replaces the per-model queues.
	answer  func(model, prompt string) reply
}

func (p *scriptedProvider) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return providers.ChatResponse{}, ctx.Err()
		}
	}
	p.mu.Lock()
	p.calls = append(p.calls, call{model: req.Model, prompt: req.Messages[0].Content})
	queue := p.script[req.Model]
	var r reply
	if p.answer != nil {
		r = p.answer(req.Model, req.Messages[0].Content)
	} else if len(queue) > 0 {
		r = queue[0]
		p.script[req.Model] = queue[1:]
	} else {
		r = replyErr("no scripted reply")
	}
	p.mu.Unlock()

	if p.clock != nil {
		p.clock.Advance(r.elapsed)
	}
	if r.err != nil {
		return providers.ChatResponse{}, r.err
	}
	return providers.ChatResponse{Model: req.Model, Content: "answer to " + req.Messages[0].Content, EvalCount: r.tokens}, nil
}

func (p *scriptedProvider) LoadedModels(ctx context.Context, host appconfig.Host) ([]string, error) {
	return nil, nil
}

func (p *scriptedProvider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warmed = append(p.warmed, model)
	return p.warmErr
}

func (p *scriptedProvider) Close() error { return nil }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// recordingObserver keeps every event for assertions.
type recordingObserver struct {
	started  []string
	finished []string
	failed   []string
	contents []string
}

func (o *recordingObserver) TestStarted(index, total int, tc suite.TestCase) {
	o.started = append(o.started, tc.Label)
}

func (o *recordingObserver) InvocationStarted(model string, tc suite.TestCase) {}

func (o *recordingObserver) InvocationFinished(model string, rec ResultRecord, content string) {
	o.finished = append(o.finished, model+"/"+rec.Label)
	o.contents = append(o.contents, content)
}

func (o *recordingObserver) InvocationFailed(model string, tc suite.TestCase, err error) {
	o.failed = append(o.failed, model+"/"+tc.Label)
}

func targetFor(model string) appconfig.Target {
	return appconfig.Target{Host: appconfig.Host{Name: "local", URL: "http://localhost:11434"}, Model: model, Label: model}
}

func testSuite(categories ...string) suite.Suite {
	s := suite.Suite{Name: "test"}
	for _, c := range categories {
		s.Tests = append(s.Tests, suite.TestCase{Category: c, Label: c, Prompt: "prompt for " + c})
	}
	return s
}
