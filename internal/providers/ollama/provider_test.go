// internal/providers/ollama/provider_test.go
package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/providers"
)

// TestProviderChat verifies that a non-streaming chat call is sent with the
// prompt and options and that the eval count is surfaced on the response.
func TestProviderChat(t *testing.T) {
	t.Parallel()

	var capturedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		capturedBody = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"phi3:mini","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"Canberra."},"done":true,"total_duration":2000000000,"eval_count":40,"eval_duration":1500000000,"load_duration":250000000,"prompt_eval_count":12}`))
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	defer provider.Close()

	temp := 0.2
	resp, err := provider.Chat(context.Background(), providers.ChatRequest{
		Host:       appconfig.Host{Name: "local", URL: server.URL},
		Model:      "phi3:mini",
		Messages:   []providers.ChatMessage{providers.UserMessage("What is the capital of Australia?")},
		Parameters: appconfig.Parameters{Temperature: &temp},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Content != "Canberra." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.TokenCount() != 40 {
		t.Fatalf("expected 40 tokens, got %d", resp.TokenCount())
	}
	if resp.PromptEvalCount != 12 {
		t.Fatalf("expected prompt eval count 12, got %d", resp.PromptEvalCount)
	}
	if resp.EvalDuration != 1500*time.Millisecond || resp.LoadDuration != 250*time.Millisecond {
		t.Fatalf("unexpected backend timings: eval=%s load=%s", resp.EvalDuration, resp.LoadDuration)
	}

	var payload map[string]any
	if err := json.Unmarshal(capturedBody, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if stream, ok := payload["stream"].(bool); !ok || stream {
		t.Fatalf("expected stream=false, got %v", payload["stream"])
	}
	messages, ok := payload["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("expected one message, got %v", payload["messages"])
	}
	msg := messages[0].(map[string]any)
	if msg["role"] != "user" || !strings.Contains(msg["content"].(string), "Australia") {
		t.Fatalf("unexpected message: %v", msg)
	}
	options, ok := payload["options"].(map[string]any)
	if !ok || options["temperature"] != 0.2 {
		t.Fatalf("expected temperature option, got %v", payload["options"])
	}
}

// TestProviderChatErrorStatus verifies that backend failures come back as errors.
func TestProviderChatErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}`))
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	_, err := provider.Chat(context.Background(), providers.ChatRequest{
		Host:     appconfig.Host{Name: "local", URL: server.URL},
		Model:    "missing",
		Messages: []providers.ChatMessage{providers.UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error for missing model")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected backend message in error, got %v", err)
	}
}

// TestProviderChatNoHostURL verifies that an unconfigured host fails fast.
func TestProviderChatNoHostURL(t *testing.T) {
	provider := New(&appconfig.Config{})
	_, err := provider.Chat(context.Background(), providers.ChatRequest{Host: appconfig.Host{Name: "empty"}, Model: "m"})
	if err == nil {
		t.Fatal("expected error for host without url")
	}
}

// TestLoadedModels verifies that /api/ps model names are returned in order.
func TestLoadedModels(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ps" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"phi3:mini","model":"phi3:mini"},{"name":"mistral:7b","model":"mistral:7b"}]}`))
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	models, err := provider.LoadedModels(context.Background(), appconfig.Host{Name: "local", URL: server.URL})
	if err != nil {
		t.Fatalf("LoadedModels returned error: %v", err)
	}
	if len(models) != 2 || models[0] != "phi3:mini" || models[1] != "mistral:7b" {
		t.Fatalf("unexpected models: %v", models)
	}
}

// TestEnsureModelReady verifies that warm-up sends an empty chat for the model.
func TestEnsureModelReady(t *testing.T) {
	t.Parallel()

	var gotModel string
	var gotMessages int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model    string            `json:"model"`
			Messages []json.RawMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		gotModel = payload.Model
		gotMessages = len(payload.Messages)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"mistral:7b","message":{"role":"assistant","content":""},"done_reason":"load","done":true}`))
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	if err := provider.EnsureModelReady(context.Background(), appconfig.Host{URL: server.URL}, "mistral:7b"); err != nil {
		t.Fatalf("EnsureModelReady returned error: %v", err)
	}
	if gotModel != "mistral:7b" || gotMessages != 0 {
		t.Fatalf("unexpected warm-up request: model=%q messages=%d", gotModel, gotMessages)
	}
}

func TestBuildOptionsOmitsUnset(t *testing.T) {
	seed := 7
	opts := buildOptions(appconfig.Parameters{Seed: &seed})
	if len(opts) != 1 || opts["seed"] != 7 {
		t.Fatalf("unexpected options: %v", opts)
	}
}

func TestClientForCachesPerHost(t *testing.T) {
	provider := New(&appconfig.Config{})
	a, err := provider.clientFor(appconfig.Host{URL: "http://127.0.0.1:11434/"})
	if err != nil {
		t.Fatalf("clientFor: %v", err)
	}
	b, err := provider.clientFor(appconfig.Host{URL: "http://127.0.0.1:11434"})
	if err != nil {
		t.Fatalf("clientFor: %v", err)
	}
	if a != b {
		t.Fatal("expected one client per host url")
	}
}
