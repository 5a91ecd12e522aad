// internal/providers/llamacpp/provider.go
// Package llamacpp provides a ChatProvider backed by llama.cpp's OpenAI-compatible HTTP API.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/tokbench/internal/appconfig"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/providers"
)

// Provider implements the providers.ChatProvider interface using llama.cpp HTTP APIs.
type Provider struct {
	client  *http.Client
	timeout time.Duration
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
	}
}

type modelsResponse struct {
	Data   []llamaModel `json:"data"`
	Models []llamaModel `json:"models"`
}

type llamaModel struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Model  string      `json:"model"`
	Path   string      `json:"path"`
	Status statusField `json:"status"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Timings *struct {
		PromptN     int     `json:"prompt_n"`
		PredictedN  int     `json:"predicted_n"`
		PredictedMS float64 `json:"predicted_ms"`
	} `json:"timings"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat issues a non-streaming /v1/chat/completions call.
func (p *Provider) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	hostID := hostIdentifier(req.Host)
	payload := map[string]any{
		"model":    req.Model,
		"messages": toOpenAIMessages(sanitizeMessages(req.Messages)),
		"stream":   false,
	}
	applyParameters(payload, req.Parameters)

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.ChatResponse{}, err
	}
	logging.LogRequest("out", hostID, req.Model, body)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := req.Host.URL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return providers.ChatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.ChatResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.ChatResponse{}, err
	}
	logging.LogRequest("in", hostID, req.Model, raw)

	if resp.StatusCode != http.StatusOK {
		return providers.ChatResponse{}, fmt.Errorf("llama.cpp: /v1/chat/completions returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return parseChatResponse(raw, req.Model)
}

func parseChatResponse(raw []byte, requested string) (providers.ChatResponse, error) {
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return providers.ChatResponse{}, fmt.Errorf("llama.cpp: decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return providers.ChatResponse{}, fmt.Errorf("llama.cpp: chat response contained no choices")
	}

	out := providers.ChatResponse{
		Model:   parsed.Model,
		Content: parsed.Choices[0].Message.Content,
	}
	if out.Model == "" {
		out.Model = requested
	}
	switch {
	case parsed.Usage != nil:
		n := parsed.Usage.CompletionTokens
		out.EvalCount = &n
		out.PromptEvalCount = parsed.Usage.PromptTokens
	case parsed.Timings != nil:
		n := parsed.Timings.PredictedN
		out.EvalCount = &n
		out.PromptEvalCount = parsed.Timings.PromptN
	}
	if parsed.Timings != nil {
		out.EvalDuration = msToDuration(parsed.Timings.PredictedMS)
	}
	return out, nil
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// LoadedModels returns the models currently loaded in memory on the host.
// Entries without a status come from a single-model server and are always loaded.
func (p *Provider) LoadedModels(ctx context.Context, host appconfig.Host) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	models, err := p.fetchModels(ctx, host, true)
	if err != nil {
		return nil, err
	}

	var loaded []string
	for _, model := range models {
		status := modelStatusValue(model)
		if status == "" || strings.EqualFold(status, "loaded") {
			if name := modelDisplayName(model); name != "" {
				loaded = append(loaded, name)
			}
		}
	}
	return loaded, nil
}

// EnsureModelReady triggers a load request when the router endpoints are available.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	body, err := json.Marshal(map[string]any{"model": model})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := host.URL + "/models/load"
	logging.LogRequest("out", hostIdentifier(host), model, body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logging.LogRequest("in", hostIdentifier(host), model, respBody)

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed {
		// No router: the server has a single model and it is already resident.
		return nil
	}
	if resp.StatusCode >= 400 && !isAlreadyLoadedError(resp.StatusCode, respBody) {
		return fmt.Errorf("llama.cpp: /models/load returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return p.waitForModelLoaded(ctx, host, model)
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func parseModels(body []byte) ([]llamaModel, error) {
	var wrapped modelsResponse
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if len(wrapped.Models) > 0 {
			return wrapped.Models, nil
		}
		if len(wrapped.Data) > 0 {
			return wrapped.Data, nil
		}
	}

	var direct []llamaModel
	if err := json.Unmarshal(body, &direct); err == nil && len(direct) > 0 {
		return direct, nil
	}

	var names struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(body, &names); err == nil && len(names.Models) > 0 {
		out := make([]llamaModel, 0, len(names.Models))
		for _, name := range names.Models {
			out = append(out, llamaModel{Name: name})
		}
		return out, nil
	}

	return nil, fmt.Errorf("llama.cpp: unrecognized /models response")
}

func modelDisplayName(model llamaModel) string {
	for _, v := range []string{model.ID, model.Name, model.Model, model.Path} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

type statusField struct {
	Value string
}

// UnmarshalJSON accepts both "loaded" and {"value":"loaded"}.
func (s *statusField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		s.Value = ""
		return nil
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(data, &s.Value)
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Value = obj.Value
	return nil
}

func modelStatusValue(model llamaModel) string {
	return strings.TrimSpace(model.Status.Value)
}

// fetchModels queries the router's /models listing, falling back to the
// OpenAI-compatible /v1/models on servers without a router.
func (p *Provider) fetchModels(ctx context.Context, host appconfig.Host, logIO bool) ([]llamaModel, error) {
	models, status, err := p.getModels(ctx, host, "/models", logIO)
	if status == http.StatusNotFound {
		models, _, err = p.getModels(ctx, host, "/v1/models", logIO)
	}
	return models, err
}

func (p *Provider) getModels(ctx context.Context, host appconfig.Host, path string, logIO bool) ([]llamaModel, int, error) {
	endpoint := host.URL + path
	if logIO {
		logging.LogRequest("out", hostIdentifier(host), "", map[string]string{"method": http.MethodGet, "url": endpoint})
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if logIO {
		logging.LogRequest("in", hostIdentifier(host), "", body)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("llama.cpp: %s returned %s", path, resp.Status)
	}
	models, err := parseModels(body)
	return models, resp.StatusCode, err
}

func (p *Provider) waitForModelLoaded(ctx context.Context, host appconfig.Host, model string) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		loaded, err := p.isModelLoaded(ctx, host, model)
		if err != nil {
			return err
		}
		if loaded {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("llama.cpp: model %s did not load before timeout", model)
		case <-ticker.C:
		}
	}
}

func (p *Provider) isModelLoaded(ctx context.Context, host appconfig.Host, model string) (bool, error) {
	models, err := p.fetchModels(ctx, host, false)
	if err != nil {
		return false, err
	}
	for _, item := range models {
		if strings.EqualFold(modelDisplayName(item), model) {
			status := strings.ToLower(modelStatusValue(item))
			return status == "" || status == "loaded", nil
		}
	}
	return false, nil
}

func isAlreadyLoadedError(statusCode int, body []byte) bool {
	if statusCode != http.StatusBadRequest {
		return false
	}
	if strings.Contains(strings.ToLower(string(body)), "already loaded") {
		return true
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		return strings.Contains(strings.ToLower(payload.Error.Message), "already loaded")
	}
	return false
}

func applyParameters(payload map[string]any, params appconfig.Parameters) {
	if params.TopK != nil {
		payload["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		payload["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		payload["min_p"] = *params.MinP
	}
	if params.Temperature != nil {
		payload["temperature"] = *params.Temperature
	}
	if params.RepeatPenalty != nil {
		payload["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.Seed != nil {
		payload["seed"] = *params.Seed
	}
	if params.NumPredict != nil {
		payload["max_tokens"] = *params.NumPredict
	}
}

func sanitizeMessages(messages []providers.ChatMessage) []providers.ChatMessage {
	sanitized := make([]providers.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		content := strings.TrimSpace(msg.Content)
		if role == "" {
			role = "user"
		}
		if role != "assistant" && content == "" {
			continue
		}
		sanitized = append(sanitized, providers.ChatMessage{Role: role, Content: content})
	}
	return sanitized
}

func toOpenAIMessages(messages []providers.ChatMessage) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openAIMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// hostIdentifier returns a string identifier for a given host, preferring the name over the URL.
func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	if url := strings.TrimSpace(host.URL); url != "" {
		return url
	}
	return "llama.cpp-host"
}
