// internal/benchmark/executor.go
package benchmark

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/providers"
	"github.com/mwiater/tokbench/internal/suite"
)

// Clock returns the current time. Tests replace it to control elapsed time.
type Clock func() time.Time

// Executor runs a single test case against a single model.
type Executor struct {
	provider providers.ChatProvider
	now      Clock
}

// NewExecutor returns an Executor that times calls with now, or time.Now when nil.
func NewExecutor(provider providers.ChatProvider, now Clock) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{provider: provider, now: now}
}

// Execute sends tc's prompt as a single user message and measures the round trip.
// The returned response is for display only; the record carries the measurement.
func (e *Executor) Execute(ctx context.Context, target appconfig.Target, tc suite.TestCase) (ResultRecord, providers.ChatResponse, error) {
	if strings.TrimSpace(target.Model) == "" {
		return ResultRecord{}, providers.ChatResponse{}, ErrNoModels
	}
	if strings.TrimSpace(tc.Prompt) == "" {
		return ResultRecord{}, providers.ChatResponse{}, errors.New("prompt is empty")
	}

	req := providers.ChatRequest{
		Host:       target.Host,
		Model:      target.Model,
		Label:      targetLabel(target),
		Messages:   []providers.ChatMessage{providers.UserMessage(tc.Prompt)},
		Parameters: target.Host.Parameters,
	}

	start := e.now()
	resp, err := e.provider.Chat(ctx, req)
	if err != nil {
		return ResultRecord{}, providers.ChatResponse{}, err
	}
	elapsed := e.now().Sub(start)

	return NewResultRecord(tc.Category, tc.Label, elapsed, resp.TokenCount()), resp, nil
}
