// internal/providers/ollama/provider.go
// Package ollama provides a ChatProvider backed by the official Ollama API client.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/providers"
)

// Provider implements the providers.ChatProvider interface using the Ollama API.
type Provider struct {
	httpClient *http.Client
	timeout    time.Duration

	mu      sync.Mutex
	clients map[string]*api.Client
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
		clients: make(map[string]*api.Client),
	}
}

// clientFor returns the cached API client for host, creating it on first use.
func (p *Provider) clientFor(host appconfig.Host) (*api.Client, error) {
	base := strings.TrimRight(strings.TrimSpace(host.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("ollama: host %q has no url", host.Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.clients[base]; ok {
		return client, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host url %q: %w", base, err)
	}
	client := api.NewClient(u, p.httpClient)
	p.clients[base] = client
	return client, nil
}

// Chat issues a non-streaming /api/chat call and returns the complete response.
func (p *Provider) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	client, err := p.clientFor(req.Host)
	if err != nil {
		return providers.ChatResponse{}, err
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: toAPIMessages(req.Messages),
		Stream:   &stream,
		Options:  buildOptions(req.Parameters),
	}
	hostID := hostIdentifier(req.Host)
	logging.LogRequest("out", hostID, req.Model, chatReq)

	var final api.ChatResponse
	var content strings.Builder
	err = client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return providers.ChatResponse{}, fmt.Errorf("ollama: chat %s on %s: %w", req.Model, hostID, err)
	}
	logging.LogRequest("in", hostID, req.Model, final)

	modelName := final.Model
	if modelName == "" {
		modelName = req.Model
	}
	evalCount := final.Metrics.EvalCount
	return providers.ChatResponse{
		Model:           modelName,
		Content:         content.String(),
		EvalCount:       &evalCount,
		PromptEvalCount: final.Metrics.PromptEvalCount,
		LoadDuration:    final.Metrics.LoadDuration,
		EvalDuration:    final.Metrics.EvalDuration,
	}, nil
}

// LoadedModels returns the models currently loaded in memory on the host.
func (p *Provider) LoadedModels(ctx context.Context, host appconfig.Host) ([]string, error) {
	client, err := p.clientFor(host)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	logging.LogRequest("out", hostIdentifier(host), "", map[string]string{"method": http.MethodGet, "path": "/api/ps"})
	ps, err := client.ListRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama: /api/ps: %w", err)
	}
	logging.LogRequest("in", hostIdentifier(host), "", ps)

	names := make([]string, len(ps.Models))
	for i, m := range ps.Models {
		names[i] = m.Name
	}
	return names, nil
}

// EnsureModelReady sends a chat request with no messages, which makes Ollama load the model.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	client, err := p.clientFor(host)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stream := false
	req := &api.ChatRequest{Model: model, Messages: []api.Message{}, Stream: &stream}
	logging.LogRequest("out", hostIdentifier(host), model, req)
	if err := client.Chat(ctx, req, func(api.ChatResponse) error { return nil }); err != nil {
		return fmt.Errorf("ollama: load %s on %s: %w", model, hostIdentifier(host), err)
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[string]*api.Client)
	p.httpClient.CloseIdleConnections()
	return nil
}

func toAPIMessages(messages []providers.ChatMessage) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func buildOptions(params appconfig.Parameters) map[string]any {
	options := map[string]any{}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		options["min_p"] = *params.MinP
	}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.RepeatPenalty != nil {
		options["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.Seed != nil {
		options["seed"] = *params.Seed
	}
	if params.NumPredict != nil {
		options["num_predict"] = *params.NumPredict
	}
	return options
}

// hostIdentifier returns a string that identifies the host, using the name if available, otherwise the URL.
func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	return host.URL
}
