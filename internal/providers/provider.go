// internal/providers/provider.go

// Package providers defines the interface the benchmark core uses to reach an
// inference backend. Implementations (Ollama, llama.cpp) translate a single
// non-streaming chat call into the backend's wire protocol.
package providers

import (
	"context"
	"time"

	"github.com/mwiater/tokbench/internal/appconfig"
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage wraps prompt as the single user turn of a request.
func UserMessage(prompt string) ChatMessage {
	return ChatMessage{Role: "user", Content: prompt}
}

// ChatRequest encapsulates one chat completion call.
// Label, when set, is the run's identifier for the target (model@host when a
// model is served by several hosts) and is what metrics are keyed by.
type ChatRequest struct {
	Host       appconfig.Host
	Model      string
	Label      string
	Messages   []ChatMessage
	Parameters appconfig.Parameters
}

// TargetLabel returns Label, falling back to Model.
func (r ChatRequest) TargetLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Model
}

// ChatResponse is the complete result of a chat call.
// EvalCount is nil when the backend did not report a generated-token count.
// The durations are the backend's own timings; zero means not reported.
type ChatResponse struct {
	Model           string
	Content         string
	EvalCount       *int
	PromptEvalCount int
	LoadDuration    time.Duration
	EvalDuration    time.Duration
}

// TokenCount returns the generated-token count, or 0 when it was not reported.
func (r ChatResponse) TokenCount() int {
	if r.EvalCount == nil || *r.EvalCount < 0 {
		return 0
	}
	return *r.EvalCount
}

// ChatProvider is the interface that all model providers must implement.
type ChatProvider interface {
	// Chat sends the request and waits for the full response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// LoadedModels returns the models currently loaded into memory on host.
	LoadedModels(ctx context.Context, host appconfig.Host) ([]string, error)
	// EnsureModelReady loads model on host if necessary.
	EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error
	// Close cleans up any resources used by the provider.
	Close() error
}
