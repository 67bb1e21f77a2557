package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Verifications       *prometheus.CounterVec
	IntegrityMismatches prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certpass_verify_requests_total",
			Help: "Total verification requests by outcome",
		}, []string{"outcome"}),
		IntegrityMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certpass_verify_integrity_mismatches_total",
			Help: "Recomputed fingerprints disagreeing with stored records; indicates store corruption or salt drift",
		}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementIntegrityMismatch() {
	if m == nil {
		return
	}
	m.IntegrityMismatches.Inc()
}
