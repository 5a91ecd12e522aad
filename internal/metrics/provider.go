// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/providers"
)

// Provider is a decorator that wraps a ChatProvider to record metrics.
type Provider struct {
	wrapped  providers.ChatProvider
	recorder *Recorder
	now      func() time.Time
}

// NewProvider creates a new metrics-enabled provider that wraps an existing ChatProvider.
func NewProvider(wrapped providers.ChatProvider, recorder *Recorder) *Provider {
	logging.LogEvent("[METRICS] Wrapping provider with metrics provider")
	return &Provider{wrapped: wrapped, recorder: recorder, now: time.Now}
}

// Chat times the wrapped call and records its outcome under the request's target label.
func (p *Provider) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	start := p.now()
	resp, err := p.wrapped.Chat(ctx, req)
	if p.recorder != nil {
		p.recorder.ObserveChat(req.TargetLabel(), p.now().Sub(start), resp, err)
	}
	return resp, err
}

// LoadedModels passes the call through to the wrapped provider.
func (p *Provider) LoadedModels(ctx context.Context, host appconfig.Host) ([]string, error) {
	return p.wrapped.LoadedModels(ctx, host)
}

// EnsureModelReady passes the call through to the wrapped provider.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	return p.wrapped.EnsureModelReady(ctx, host, model)
}

// Close passes the call through to the wrapped provider.
func (p *Provider) Close() error {
	return p.wrapped.Close()
}
