package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BatchesTotal       prometheus.Counter
	DocumentsGenerated prometheus.Counter
	DocumentsFailed    prometheus.Counter
	BatchDuration      prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		BatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certpass_pipeline_batches_total",
			Help: "Total number of generation batches run",
		}),
		DocumentsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certpass_pipeline_documents_generated_total",
			Help: "Total number of documents generated successfully",
		}),
		DocumentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certpass_pipeline_documents_failed_total",
			Help: "Total number of documents that failed to generate",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certpass_pipeline_batch_duration_seconds",
			Help:    "Wall-clock duration of generation batches",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveBatch(seconds float64) {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
	m.BatchDuration.Observe(seconds)
}

func (m *Metrics) IncrementGenerated() {
	if m == nil {
		return
	}
	m.DocumentsGenerated.Inc()
}

func (m *Metrics) IncrementFailed() {
	if m == nil {
		return
	}
	m.DocumentsFailed.Inc()
}
