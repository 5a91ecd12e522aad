// internal/providers/multiplex/provider.go
// Package multiplex routes provider calls based on host type.
package multiplex

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/providers"
)

// Provider delegates calls to an underlying provider based on host type.
type Provider struct {
	providers map[string]providers.ChatProvider
}

// New constructs a Provider from a map of host type to provider implementation.
func New(providerMap map[string]providers.ChatProvider) *Provider {
	normalized := make(map[string]providers.ChatProvider, len(providerMap))
	for key, provider := range providerMap {
		normalized[normalizeType(key)] = provider
	}
	return &Provider{providers: normalized}
}

// Chat routes the request to the provider registered for the request's host type.
func (p *Provider) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	provider, err := p.providerForHost(req.Host)
	if err != nil {
		return providers.ChatResponse{}, err
	}
	return provider.Chat(ctx, req)
}

// LoadedModels returns the models currently loaded in memory on the host.
func (p *Provider) LoadedModels(ctx context.Context, host appconfig.Host) ([]string, error) {
	provider, err := p.providerForHost(host)
	if err != nil {
		return nil, err
	}
	return provider.LoadedModels(ctx, host)
}

// EnsureModelReady checks if a model is ready to be used and loads it if necessary.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	provider, err := p.providerForHost(host)
	if err != nil {
		return err
	}
	return provider.EnsureModelReady(ctx, host, model)
}

// Close cleans up any resources used by the provider.
func (p *Provider) Close() error {
	var firstErr error
	seen := map[providers.ChatProvider]struct{}{}
	for _, provider := range p.providers {
		if _, ok := seen[provider]; ok {
			continue
		}
		seen[provider] = struct{}{}
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Provider) providerForHost(host appconfig.Host) (providers.ChatProvider, error) {
	if provider, ok := p.providers[normalizeType(host.Type)]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("no provider registered for host type %q", host.Type)
}

func normalizeType(hostType string) string {
	if normalized, err := appconfig.NormalizeHostType(hostType); err == nil {
		return normalized
	}
	return strings.ToLower(strings.TrimSpace(hostType))
}
