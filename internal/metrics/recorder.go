// internal/metrics/recorder.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mwiater/tokbench/internal/providers"
)

const namespace = "tokbench"

// Recorder owns the Prometheus collectors for a single process.
// Collectors live on a private registry so tests and repeated runs never collide.
type Recorder struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	evalDuration    *prometheus.HistogramVec
	loadDuration    *prometheus.HistogramVec
	evalTokens      *prometheus.CounterVec
	promptTokens    *prometheus.CounterVec
	requests        *prometheus.CounterVec
	failures        *prometheus.CounterVec
	tokensPerSecond *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Wall-clock duration of chat requests",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		evalDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eval_duration_seconds",
			Help:      "Generation time reported by the backend",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		loadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Model load time reported by the backend",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"model"}),
		promptTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_tokens_total",
			Help:      "Prompt tokens evaluated by the backend",
		}, []string{"model"}),
		evalTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_tokens_total",
			Help:      "Generated tokens reported by the backend",
		}, []string{"model"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chat requests issued",
		}, []string{"model"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Chat requests that returned an error",
		}, []string{"model"}),
		tokensPerSecond: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokens_per_second",
			Help:      "Throughput of the most recent test per model and category",
		}, []string{"model", "category"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveChat records one chat call under model, which should be the same
// target label ObserveRecord receives.
func (r *Recorder) ObserveChat(model string, elapsed time.Duration, resp providers.ChatResponse, err error) {
	r.requests.WithLabelValues(model).Inc()
	if err != nil {
		r.failures.WithLabelValues(model).Inc()
		return
	}
	r.requestDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	if tokens := resp.TokenCount(); tokens > 0 {
		r.evalTokens.WithLabelValues(model).Add(float64(tokens))
	}
	if resp.PromptEvalCount > 0 {
		r.promptTokens.WithLabelValues(model).Add(float64(resp.PromptEvalCount))
	}
	if resp.EvalDuration > 0 {
		r.evalDuration.WithLabelValues(model).Observe(resp.EvalDuration.Seconds())
	}
	if resp.LoadDuration > 0 {
		r.loadDuration.WithLabelValues(model).Observe(resp.LoadDuration.Seconds())
	}
}

// ObserveRecord sets the throughput gauge for a finished test.
func (r *Recorder) ObserveRecord(model, category string, tokensPerSecond float64) {
	r.tokensPerSecond.WithLabelValues(model, category).Set(tokensPerSecond)
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
