// Package metrics exposes Prometheus collectors for itinerary generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/tripcraft/tripgen/pkg/models"
)

// Metrics groups the generation collectors. A nil *Metrics records nothing.
type Metrics struct {
	Generations *prometheus.CounterVec
	Denials     *prometheus.CounterVec
	Retries     *prometheus.CounterVec
	Cost        *prometheus.CounterVec
	Tokens      *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgen_generations_total",
				Help: "Itinerary generations by request type and outcome",
			},
			[]string{"request_type", "outcome"}, // outcome: completed|denied|failed|rejected|cancelled
		),
		Denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgen_denials_total",
				Help: "Generations denied at admission by kind",
			},
			[]string{"kind"}, // kind: budget_exceeded|rate_limited
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgen_provider_retries_total",
				Help: "Provider calls retried after a transient failure",
			},
			[]string{"provider", "model"},
		),
		Cost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgen_cost_total",
				Help: "Recorded AI spend by model",
			},
			[]string{"model"},
		),
		Tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgen_tokens_total",
				Help: "Tokens billed by model",
			},
			[]string{"model", "type"}, // type: prompt|completion
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripgen_generation_latency_seconds",
				Help:    "Provider latency for successful generations",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model"},
		),
	}
	reg.MustRegister(m.Generations, m.Denials, m.Retries, m.Cost, m.Tokens, m.Latency)
	return m
}

// Outcome counts a terminal state.
func (m *Metrics) Outcome(requestType, outcome string) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(requestType, outcome).Inc()
}

// Denied counts an admission denial.
func (m *Metrics) Denied(kind string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(kind).Inc()
}

// Retried counts a provider retry.
func (m *Metrics) Retried(provider, model string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(provider, model).Inc()
}

// Completed records cost, tokens and latency of a successful generation.
func (m *Metrics) Completed(model string, usage models.TokenUsage, cost decimal.Decimal, latency time.Duration) {
	if m == nil {
		return
	}
	m.Cost.WithLabelValues(model).Add(cost.InexactFloat64())
	m.Tokens.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	m.Tokens.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	m.Latency.WithLabelValues(model).Observe(latency.Seconds())
}

// Handler serves the given gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
