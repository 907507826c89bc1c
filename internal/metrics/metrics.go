// Package metrics exposes Prometheus collectors for the assistant pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lifeone"

// AI call results.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultEmpty = "empty"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	aiCalls     *prometheus.CounterVec
	aiDuration  prometheus.Histogram
	aiTokens    *prometheus.CounterVec
	records     *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	deletions   prometheus.Counter
	saveErrors  prometheus.Counter
	trashPurged prometheus.Counter
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		aiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ai_calls_total",
			Help: "AI provider calls by result.",
		}, []string{"result"}),
		aiDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ai_call_duration_seconds",
			Help:    "AI provider call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		aiTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ai_tokens_total",
			Help: "Tokens reported by the AI provider.",
		}, []string{"kind"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reconciled_records_total",
			Help: "Records written by reconciliation, by operation.",
		}, []string{"op"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "conflicts_total",
			Help: "Duplicate proposals found by the conflict detector, by collection.",
		}, []string{"collection"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "conflict_decisions_total",
			Help: "Conflict resolutions by decision.",
		}, []string{"decision"}),
		deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unconfirmed_deletions_total",
			Help: "Deletion payloads dropped because the user had not confirmed them.",
		}),
		saveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "save_errors_total",
			Help: "Failed snapshot saves.",
		}),
		trashPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "trash_purged_total",
			Help: "Trash items removed after the retention period.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.aiCalls, m.aiDuration, m.aiTokens, m.records, m.conflicts,
		m.decisions, m.deletions, m.saveErrors, m.trashPurged,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveAICall records one provider call.
func (m *Metrics) ObserveAICall(result string, d time.Duration, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.aiCalls.WithLabelValues(result).Inc()
	if result == ResultEmpty {
		return
	}
	m.aiDuration.Observe(d.Seconds())
	m.aiTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	m.aiTokens.WithLabelValues("completion").Add(float64(completionTokens))
}

// ObserveRecords adds n records for op (inserted, replaced, updated, deleted, categories).
func (m *Metrics) ObserveRecords(op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(op).Add(float64(n))
}

// ObserveConflicts counts duplicates for collection.
func (m *Metrics) ObserveConflicts(collection string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.conflicts.WithLabelValues(collection).Add(float64(n))
}

// ObserveDecision counts a conflict resolution.
func (m *Metrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

// DeletionDropped counts an unconfirmed deletion payload.
func (m *Metrics) DeletionDropped() {
	if m == nil {
		return
	}
	m.deletions.Inc()
}

// SaveFailed counts a failed save.
func (m *Metrics) SaveFailed() {
	if m == nil {
		return
	}
	m.saveErrors.Inc()
}

// TrashPurged adds n purged trash items.
func (m *Metrics) TrashPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.trashPurged.Add(float64(n))
}
