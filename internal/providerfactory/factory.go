// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/metrics"
	"github.com/mwiater/tokbench/internal/providers"
	"github.com/mwiater/tokbench/internal/providers/llamacpp"
	"github.com/mwiater/tokbench/internal/providers/multiplex"
	"github.com/mwiater/tokbench/internal/providers/ollama"
)

// NewChatProvider builds a provider for every host type in the configuration.
// A single host type gets its provider directly; mixed types are routed through
// a multiplex provider. A non-nil recorder wraps the result with metrics collection.
func NewChatProvider(cfg *appconfig.Config, recorder *metrics.Recorder) (providers.ChatProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	hostTypes, err := collectHostTypes(cfg)
	if err != nil {
		return nil, err
	}

	built := make(map[string]providers.ChatProvider, len(hostTypes))
	for hostType := range hostTypes {
		switch hostType {
		case appconfig.HostTypeLlamaCpp:
			built[hostType] = llamacpp.New(cfg)
		default:
			built[hostType] = ollama.New(cfg)
		}
		logging.LogEvent("provider ready: %s", hostType)
	}

	var provider providers.ChatProvider
	if len(built) == 1 {
		for _, p := range built {
			provider = p
		}
	} else {
		provider = multiplex.New(built)
	}

	if recorder != nil {
		provider = metrics.NewProvider(provider, recorder)
	}
	return provider, nil
}

// collectHostTypes returns the set of normalized host types in cfg.
// An empty host list still yields the default Ollama type.
func collectHostTypes(cfg *appconfig.Config) (map[string]bool, error) {
	types := map[string]bool{}
	for _, host := range cfg.Hosts {
		hostType, err := appconfig.NormalizeHostType(host.Type)
		if err != nil {
			return nil, fmt.Errorf("host %s: %w", host.Name, err)
		}
		types[hostType] = true
	}
	if len(types) == 0 {
		types[appconfig.HostTypeOllama] = true
	}
	return types, nil
}
