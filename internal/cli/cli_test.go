// internal/cli/cli_test.go
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/benchmark"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/providers"
	"github.com/mwiater/tokbench/internal/sysinfo"
)

// resetCommandState restores every flag to its default between tests.
func resetCommandState(t *testing.T) {
	t.Helper()
	sets := []*pflag.FlagSet{
		rootCmd.PersistentFlags(),
		benchCmd.Flags(),
		compareCmd.Flags(),
		showConfigCmd.Flags(),
		showSuiteCmd.Flags(),
	}
	for _, fs := range sets {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	currentConfig = nil

	prevSystem := collectSystem
	collectSystem = func() sysinfo.Info { return sysinfo.Info{OS: "linux", Arch: "amd64"} }
	t.Cleanup(func() {
		collectSystem = prevSystem
		rootCmd.SetArgs([]string{})
		_ = logging.Close()
	})
}

// fakeOllama serves /api/chat and /api/ps. Models named "broken" fail.
func fakeOllama(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var chats int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/ps":
			_, _ = w.Write([]byte(`{"models":[{"name":"phi3:mini","model":"phi3:mini"}]}`))
		case "/api/chat":
			atomic.AddInt64(&chats, 1)
			var req struct {
				Model string `json:"model"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode chat request: %v", err)
			}
			if req.Model == "broken" {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"model runner crashed"}`))
				return
			}
			fmt.Fprintf(w, `{"model":%q,"created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"**done**"},"done":true,"eval_count":40,"eval_duration":1000000}`, req.Model)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &chats
}

func writeConfig(t *testing.T, url string, models ...string) string {
	t.Helper()
	dir := t.TempDir()
	quoted := make([]string, len(models))
	for i, m := range models {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	content := fmt.Sprintf(`{
  "hosts": [{"name": "local", "url": %q, "type": "ollama", "models": [%s]}],
  "model": %q,
  "logFile": %q,
  "timeout": 5
}`, url, strings.Join(quoted, ", "), models[0], filepath.Join(dir, "tokbench.log"))
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return buf.String(), err
}

// TestRootCmd verifies running the root command with an invalid subcommand reports an error.
func TestRootCmd(t *testing.T) {
	resetCommandState(t)
	out, err := execute(t, "nonexistent")
	if err == nil {
		t.Error("Expected an error for a nonexistent command, but got none")
	}
	expected := "unknown command \"nonexistent\" for \"tokbench\""
	if !strings.Contains(out, expected) {
		t.Errorf("Expected output to contain '%s', but got '%s'", expected, out)
	}
}

func TestPersistentPreRunEUsesFlagValues(t *testing.T) {
	resetCommandState(t)
	configPath := writeConfig(t, "http://127.0.0.1:1", "phi3:mini")
	cfgFile = configPath

	_ = rootCmd.PersistentFlags().Set("debug", "true")
	_ = rootCmd.PersistentFlags().Set("timeout", "42")
	_ = rootCmd.PersistentFlags().Set("export", "out.json")
	_ = rootCmd.PersistentFlags().Set("tui", "true")

	if err := rootCmd.PersistentPreRunE(rootCmd, []string{}); err != nil {
		t.Fatalf("PersistentPreRunE error: %v", err)
	}
	if currentConfig == nil || currentConfig.ConfigPath != configPath {
		t.Fatalf("expected config loaded with path %s", configPath)
	}
	if !currentConfig.Debug || !currentConfig.TUI {
		t.Fatalf("expected flag values to flow into config: %+v", currentConfig)
	}
	if currentConfig.TimeoutSeconds != 42 || currentConfig.ExportPath != "out.json" {
		t.Fatalf("expected timeout and export from flags, got %d %q", currentConfig.TimeoutSeconds, currentConfig.ExportPath)
	}
	if !currentConfig.ShowResponses {
		t.Fatal("expected showResponses to default to true")
	}
}

func TestPersistentPreRunEMissingExplicitConfig(t *testing.T) {
	resetCommandState(t)
	cfgFile = filepath.Join(t.TempDir(), "missing.json")
	if err := rootCmd.PersistentPreRunE(rootCmd, []string{}); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestShowConfigCommandOutput(t *testing.T) {
	resetCommandState(t)
	configPath := writeConfig(t, "http://127.0.0.1:1", "phi3:mini", "mistral:7b")

	out, err := execute(t, "--config", configPath, "--debug", "show", "config")
	if err != nil {
		t.Fatalf("ExecuteC error: %v", err)
	}
	for _, want := range []string{"Config file: " + configPath, "Debug:            true", "local (ollama) http://127.0.0.1:1", "- mistral:7b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %s", want, out)
		}
	}
}

func TestShowConfigRaw(t *testing.T) {
	resetCommandState(t)
	configPath := writeConfig(t, "http://127.0.0.1:1", "qwen2.5-coder:7b")

	out, err := execute(t, "--config", configPath, "show", "config", "--raw")
	if err != nil {
		t.Fatalf("ExecuteC error: %v", err)
	}
	if !strings.Contains(out, "qwen2.5-coder:7b") {
		t.Fatalf("expected model in raw dump, got %s", out)
	}
}

func TestShowSuite(t *testing.T) {
	resetCommandState(t)
	configPath := writeConfig(t, "http://127.0.0.1:1", "phi3:mini")

	out, err := execute(t, "--config", configPath, "show", "suite", "--mode", "compare")
	if err != nil {
		t.Fatalf("ExecuteC error: %v", err)
	}
	if !strings.Contains(out, "Suite: compare (6 tests)") || !strings.Contains(out, "Sieve of Eratosthenes") {
		t.Fatalf("unexpected suite output: %s", out)
	}
}

func TestBenchCommandEndToEnd(t *testing.T) {
	resetCommandState(t)
	server, chats := fakeOllama(t)
	configPath := writeConfig(t, server.URL, "phi3:mini", "mistral:7b")
	exportDir := filepath.Join(t.TempDir(), "results") + string(os.PathSeparator)
	mdPath := filepath.Join(t.TempDir(), "bench.md")

	out, err := execute(t, "--config", configPath, "--export", exportDir, "--exportMarkdown", mdPath, "--showResponses=false", "bench", "--model", "mistral:7b")
	if err != nil {
		t.Fatalf("bench failed: %v\n%s", err, out)
	}
	if got := atomic.LoadInt64(chats); got != 7 {
		t.Fatalf("expected 7 chat calls, got %d", got)
	}
	if !strings.Contains(out, "Average Speed:") || !strings.Contains(out, "on mistral:7b") {
		t.Fatalf("expected average speed line, got %s", out)
	}

	matches, err := filepath.Glob(filepath.Join(exportDir, "single-mistral_7b-*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one JSON export, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var rep benchmark.SingleReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if rep.Model != "mistral:7b" || len(rep.Rows) != 7 || rep.TotalTokens != 280 {
		t.Fatalf("unexpected report: model=%s rows=%d tokens=%d", rep.Model, len(rep.Rows), rep.TotalTokens)
	}
	if rep.Meta.Mode != benchmark.ModeSingle || rep.Meta.ID == "" || rep.Meta.CompletedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", rep.Meta)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "| Chat / Q&A | Simple Fact |") {
		t.Fatalf("unexpected markdown: %s", md)
	}
}

func TestBenchCommandAbortsOnFailure(t *testing.T) {
	resetCommandState(t)
	server, chats := fakeOllama(t)
	configPath := writeConfig(t, server.URL, "broken")

	_, err := execute(t, "--config", configPath, "--showResponses=false", "bench")
	if err == nil || !strings.Contains(err.Error(), "benchmark broken") {
		t.Fatalf("expected benchmark error, got %v", err)
	}
	if got := atomic.LoadInt64(chats); got != 1 {
		t.Fatalf("expected run to stop after the first failure, got %d calls", got)
	}
}

func TestCompareCommandDegradesFailingModel(t *testing.T) {
	resetCommandState(t)
	server, chats := fakeOllama(t)
	configPath := writeConfig(t, server.URL, "phi3:mini", "broken")
	exportPath := filepath.Join(t.TempDir(), "compare.json")
	promPath := filepath.Join(t.TempDir(), "tokbench.prom")

	out, err := execute(t, "--config", configPath, "--export", exportPath, "--metricsTextfile", promPath, "compare")
	if err != nil {
		t.Fatalf("compare failed: %v\n%s", err, out)
	}
	if got := atomic.LoadInt64(chats); got != 12 {
		t.Fatalf("expected 12 chat calls, got %d", got)
	}
	for _, want := range []string{"Running: phi3:mini", "Error with broken", "Average Speed Summary:", "Comparison complete!"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var rep benchmark.ComparisonReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(rep.Rows) != 6 || len(rep.Models) != 2 {
		t.Fatalf("unexpected report shape: rows=%d models=%v", len(rep.Rows), rep.Models)
	}
	for _, row := range rep.Rows {
		if !row.Cells[1].Failed || row.Cells[1].TokensPerSecond != 0 {
			t.Fatalf("expected degraded cell for broken model: %+v", row.Cells[1])
		}
		if row.Fastest != "phi3:mini" {
			t.Fatalf("expected phi3:mini fastest, got %s", row.Fastest)
		}
	}
	if rep.Summaries[1].Failures != 6 {
		t.Fatalf("expected 6 failures for broken, got %d", rep.Summaries[1].Failures)
	}

	prom, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{`tokbench_request_failures_total{model="broken"} 6`, `tokbench_eval_tokens_total{model="phi3:mini"} 240`} {
		if !strings.Contains(string(prom), want) {
			t.Fatalf("expected %q in metrics:\n%s", want, prom)
		}
	}
}

func TestCompareCommandWithProgressView(t *testing.T) {
	resetCommandState(t)
	prevOpts := tuiOptions
	tuiOptions = []tea.ProgramOption{tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer(), tea.WithoutSignalHandler()}
	t.Cleanup(func() { tuiOptions = prevOpts })

	server, chats := fakeOllama(t)
	configPath := writeConfig(t, server.URL, "phi3:mini", "mistral:7b")

	out, err := execute(t, "--config", configPath, "--tui", "compare", "--models", "mistral:7b", "--parallel", "2")
	if err != nil {
		t.Fatalf("compare failed: %v\n%s", err, out)
	}
	if got := atomic.LoadInt64(chats); got != 6 {
		t.Fatalf("expected 6 chat calls, got %d", got)
	}
	if strings.Contains(out, "Running:") {
		t.Fatalf("expected no streaming output with the progress view:\n%s", out)
	}
	if !strings.Contains(out, "Final Comparison Summary") {
		t.Fatalf("expected comparison summary after the progress view:\n%s", out)
	}
}

func TestSelectTargets(t *testing.T) {
	cfg := &appconfig.Config{Hosts: []appconfig.Host{{Name: "a", URL: "http://a", Models: []string{"phi3:mini", "mistral:7b", "qwen2.5-coder:7b"}}}}

	all, err := selectTargets(cfg, nil)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all targets, got %v (%v)", all, err)
	}
	subset, err := selectTargets(cfg, []string{"qwen2.5-coder:7b", "phi3:mini"})
	if err != nil {
		t.Fatalf("selectTargets: %v", err)
	}
	if subset[0].Label != "qwen2.5-coder:7b" || subset[1].Label != "phi3:mini" {
		t.Fatalf("expected requested order, got %v", subset)
	}
	if _, err := selectTargets(cfg, []string{"phi3:mini", "phi3:mini"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := selectTargets(cfg, []string{"llama3:8b"}); err == nil {
		t.Fatal("expected unknown model error")
	}
}

type stubProvider struct{}

func (stubProvider) Chat(context.Context, providers.ChatRequest) (providers.ChatResponse, error) {
	return providers.ChatResponse{}, nil
}

func (stubProvider) LoadedModels(context.Context, appconfig.Host) ([]string, error) { return nil, nil }

func (stubProvider) EnsureModelReady(context.Context, appconfig.Host, string) error { return nil }

func (stubProvider) Close() error { return nil }

type loadedProvider struct {
	stubProvider
	loaded map[string][]string
	errs   map[string]error
}

func (p *loadedProvider) LoadedModels(_ context.Context, host appconfig.Host) ([]string, error) {
	return p.loaded[host.Name], p.errs[host.Name]
}

func TestListLoaded(t *testing.T) {
	cfg := &appconfig.Config{Hosts: []appconfig.Host{
		{Name: "gpu", URL: "http://gpu:11434", Type: "ollama"},
		{Name: "cpu", URL: "http://cpu:8080", Type: "llama.cpp"},
		{Name: "idle", URL: "http://idle:11434", Type: "ollama"},
	}}
	provider := &loadedProvider{
		loaded: map[string][]string{"gpu": {"phi3:mini", "mistral:7b"}},
		errs:   map[string]error{"cpu": errors.New("connection refused")},
	}

	var buf bytes.Buffer
	listLoaded(context.Background(), &buf, cfg, provider)
	out := buf.String()

	for _, want := range []string{"gpu (ollama) http://gpu:11434:", ">>> phi3:mini", ">>> mistral:7b", "Error: connection refused", "(no models loaded)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "gpu") > strings.Index(out, "cpu") {
		t.Fatalf("expected hosts in configuration order:\n%s", out)
	}
}
