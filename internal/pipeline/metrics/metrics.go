// Package metrics provides observability for the processing pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. All methods are nil-safe
// so callers can run without metrics wired.
type Metrics struct {
	// Per-stage latencies
	StageLatency *prometheus.HistogramVec

	// Final decisions by outcome and detected document type
	DecisionOutcome *prometheus.CounterVec

	// End-to-end processing latency per document
	ProcessLatency prometheus.Histogram

	// Model spend per document
	DocumentCost prometheus.Histogram
}

// New creates a Metrics instance with all pipeline collectors registered on
// the default registry.
func New() *Metrics {
	return &Metrics{
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veridoc_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}), // stage: "prevalidation", "ocr", "classification", "identity"

		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_pipeline_decisions_total",
			Help: "Total final decisions by outcome and document type",
		}, []string{"decision", "document_type"}),

		ProcessLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veridoc_pipeline_process_duration_seconds",
			Help:    "End-to-end duration of one document processing invocation",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		DocumentCost: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veridoc_pipeline_document_cost_usd",
			Help:    "Model token spend per processed document in USD",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

// ObserveStageLatency records the duration of one pipeline stage.
func (m *Metrics) ObserveStageLatency(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementDecision records a final decision.
func (m *Metrics) IncrementDecision(decision, documentType string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(decision, documentType).Inc()
	}
}

// ObserveProcessLatency records the total duration of one invocation.
func (m *Metrics) ObserveProcessLatency(d time.Duration) {
	if m != nil {
		m.ProcessLatency.Observe(d.Seconds())
	}
}

// ObserveDocumentCost records the model spend of one invocation.
func (m *Metrics) ObserveDocumentCost(costUSD float64) {
	if m != nil {
		m.DocumentCost.Observe(costUSD)
	}
}
