// Package metrics holds the Prometheus collectors for ingestion and answering.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "legal_rag"

// Answer outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeRefused   = "refused"
	OutcomeNoContext = "no_context"
	OutcomeError     = "error"
)

// Metrics groups the collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	ingestionRuns   *prometheus.CounterVec
	chunksCommitted prometheus.Counter
	answers         *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_runs_total",
			Help:      "Ingestion runs by final state.",
		}, []string{"result"}),
		chunksCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_committed_total",
			Help:      "Chunks written to the vector index.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Questions answered by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of ingestion and answering stages.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.ingestionRuns,
		m.chunksCommitted,
		m.answers,
		m.stageDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// IngestionFinished counts a completed run; result is the final state name.
func (m *Metrics) IngestionFinished(result string) {
	if m == nil {
		return
	}
	m.ingestionRuns.WithLabelValues(result).Inc()
}

// ChunksCommitted adds n to the committed chunk counter.
func (m *Metrics) ChunksCommitted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chunksCommitted.Add(float64(n))
}

// AnswerServed counts an answering call by outcome.
func (m *Metrics) AnswerServed(outcome string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
