package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	recommendations    *prometheus.CounterVec
	generationFailures prometheus.Counter
	generationDuration prometheus.Histogram
	receiptsUploaded   prometheus.Counter
	receiptsApproved   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sensiboost_recommendations_total",
				Help: "Recommendations served, by path and source",
			},
			[]string{"path", "source"},
		),
		generationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "sensiboost_generation_failures_total",
			Help: "Generation provider calls that returned an error",
		}),
		generationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sensiboost_generation_duration_seconds",
			Help:    "Latency of generation provider calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms .. 32s
		}),
		receiptsUploaded: f.NewCounter(prometheus.CounterOpts{
			Name: "sensiboost_receipts_uploaded_total",
			Help: "Payment receipts accepted for review",
		}),
		receiptsApproved: f.NewCounter(prometheus.CounterOpts{
			Name: "sensiboost_receipts_approved_total",
			Help: "Payment receipts moved from pending to approved",
		}),
	}
}

func (m *Metrics) Recommendation(path, source string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(path, source).Inc()
}

func (m *Metrics) GenerationFailure() {
	if m == nil {
		return
	}
	m.generationFailures.Inc()
}

func (m *Metrics) GenerationDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(d.Seconds())
}

func (m *Metrics) ReceiptUploaded() {
	if m == nil {
		return
	}
	m.receiptsUploaded.Inc()
}

func (m *Metrics) ReceiptApproved() {
	if m == nil {
		return
	}
	m.receiptsApproved.Inc()
}
