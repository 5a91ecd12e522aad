// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default timeout for HTTP requests.
	defaultRequestTimeout = 600 * time.Second
	// defaultOllamaURL is used when neither the config nor OLLAMA_HOST name a host.
	defaultOllamaURL = "http://localhost:11434"
	// defaultLogFile is the log destination when the config omits one.
	defaultLogFile = "tokbench.log"
)

// Host types understood by the provider factory.
const (
	HostTypeOllama   = "ollama"
	HostTypeLlamaCpp = "llama.cpp"
)

// fileOnlyKeys have no CLI flag. Registering them lets viper's AutomaticEnv
// reach Unmarshal when no config file sets them.
var fileOnlyKeys = []string{"model"}

// defaultModels are the models the harness compares when no config file exists.
var defaultModels = []string{"phi3:mini", "mistral:7b", "qwen2.5-coder:7b"}

// Config represents the top-level application configuration.
type Config struct {
	Hosts              []Host `json:"hosts" mapstructure:"hosts"`
	Model              string `json:"model,omitempty" mapstructure:"model"`
	Suite              string `json:"suite,omitempty" mapstructure:"suite"`
	Debug              bool   `json:"debug" mapstructure:"debug"`
	TimeoutSeconds     int    `json:"timeout,omitempty" mapstructure:"timeout"`
	LogFile            string `json:"logFile,omitempty" mapstructure:"logFile"`
	ExportPath         string `json:"export,omitempty" mapstructure:"export"`
	ExportMarkdownPath string `json:"exportMarkdown,omitempty" mapstructure:"exportMarkdown"`
	MetricsTextfile    string `json:"metricsTextfile,omitempty" mapstructure:"metricsTextfile"`
	ShowResponses      bool   `json:"showResponses" mapstructure:"showResponses"`
	RenderMarkdown     bool   `json:"renderMarkdown" mapstructure:"renderMarkdown"`
	Warmup             bool   `json:"warmup" mapstructure:"warmup"`
	Parallel           int    `json:"parallel,omitempty" mapstructure:"parallel"`
	TUI                bool   `json:"tui" mapstructure:"tui"`
	ConfigPath         string `json:"-" mapstructure:"-"`
}

// Host represents a single host that can serve language models.
type Host struct {
	Name       string     `json:"name" mapstructure:"name"`
	URL        string     `json:"url" mapstructure:"url"`
	Type       string     `json:"type" mapstructure:"type"`
	Models     []string   `json:"models" mapstructure:"models"`
	Parameters Parameters `json:"parameters" mapstructure:"parameters"`
}

// Parameters defines the set of parameters that can be used to control a language model's behavior.
type Parameters struct {
	TopK          *int     `json:"top_k,omitempty" mapstructure:"top_k"`
	TopP          *float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	MinP          *float64 `json:"min_p,omitempty" mapstructure:"min_p"`
	Temperature   *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty" mapstructure:"repeat_penalty"`
	Seed          *int     `json:"seed,omitempty" mapstructure:"seed"`
	NumPredict    *int     `json:"num_predict,omitempty" mapstructure:"num_predict"`
}

// Target is one (host, model) pair that a benchmark run addresses.
// Label is the canonical model identifier used throughout a run.
type Target struct {
	Host  Host
	Model string
	Label string
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return defaultLogFile
}

// ParallelLimit returns how many comparison invocations may be in flight at once.
func (c Config) ParallelLimit() int {
	if c.Parallel < 1 {
		return 1
	}
	return c.Parallel
}

// Targets flattens the configured hosts into (host, model) pairs in configuration order.
// A model served by more than one host is labelled model@host so identifiers stay unique.
func (c Config) Targets() []Target {
	counts := map[string]int{}
	for _, host := range c.Hosts {
		for _, model := range host.Models {
			counts[strings.TrimSpace(model)]++
		}
	}

	var targets []Target
	for _, host := range c.Hosts {
		for _, model := range host.Models {
			model = strings.TrimSpace(model)
			if model == "" {
				continue
			}
			label := model
			if counts[model] > 1 {
				label = fmt.Sprintf("%s@%s", model, host.Name)
			}
			targets = append(targets, Target{Host: host, Model: model, Label: label})
		}
	}
	return targets
}

// FindTarget resolves a model name or label to a configured target.
func (c Config) FindTarget(name string) (Target, error) {
	name = strings.TrimSpace(name)
	targets := c.Targets()
	if len(targets) == 0 {
		return Target{}, errors.New("no models configured")
	}
	if name == "" {
		if c.Model != "" {
			return c.FindTarget(c.Model)
		}
		return targets[0], nil
	}
	for _, t := range targets {
		if t.Label == name {
			return t, nil
		}
	}
	for _, t := range targets {
		if t.Model == name {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("model %q is not configured on any host", name)
}

// Validate checks the configuration for problems that would prevent a run.
func (c Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New("config must contain at least one host")
	}
	for i, host := range c.Hosts {
		if strings.TrimSpace(host.URL) == "" {
			return fmt.Errorf("host %d (%s) has no url", i, host.Name)
		}
		if _, err := NormalizeHostType(host.Type); err != nil {
			return fmt.Errorf("host %s: %w", host.Name, err)
		}
	}
	if len(c.Targets()) == 0 {
		return errors.New("config must list at least one model")
	}
	return nil
}

// NormalizeHostType maps the accepted spellings of a host type onto the canonical names.
func NormalizeHostType(hostType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(hostType)) {
	case "", "ollama":
		return HostTypeOllama, nil
	case "llama.cpp", "llamacpp", "llama-cpp":
		return HostTypeLlamaCpp, nil
	default:
		return "", fmt.Errorf("unsupported host type %q", hostType)
	}
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	url := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	if url == "" {
		url = defaultOllamaURL
	}
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	models := make([]string, len(defaultModels))
	copy(models, defaultModels)
	return Config{
		Hosts: []Host{{
			Name:   "local",
			URL:    url,
			Type:   HostTypeOllama,
			Models: models,
		}},
		Model:          defaultModels[0],
		TimeoutSeconds: int(defaultRequestTimeout.Seconds()),
		ShowResponses:  true,
	}
}

// Load reads the configuration at path using a fresh viper instance.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith reads the configuration through v so that flags and environment
// variables already bound to v take precedence over the file. A missing file is
// tolerated only for the default path, in which case Default supplies the hosts.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	usedFile := true
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if path != DefaultConfigPath {
				return Config{}, fmt.Errorf("no configuration file found at %q", path)
			}
			usedFile = false
		default:
			return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
		}
	}

	for _, key := range fileOnlyKeys {
		v.SetDefault(key, "")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if !usedFile || len(cfg.Hosts) == 0 {
		if usedFile {
			return Config{}, errors.New("config must contain at least one host")
		}
		def := Default()
		cfg.Hosts = def.Hosts
		if cfg.Model == "" {
			cfg.Model = def.Model
		}
	} else {
		cfg.ConfigPath = path
	}

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	for i := range cfg.Hosts {
		hostType, err := NormalizeHostType(cfg.Hosts[i].Type)
		if err != nil {
			return Config{}, fmt.Errorf("host %s: %w", cfg.Hosts[i].Name, err)
		}
		cfg.Hosts[i].Type = hostType
		cfg.Hosts[i].URL = strings.TrimRight(strings.TrimSpace(cfg.Hosts[i].URL), "/")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
