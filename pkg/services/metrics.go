package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

// Pair outcomes.
const (
	OutcomeScored = "scored"
	OutcomeFailed = "failed"
)

// Metrics holds the Prometheus metrics of an evaluation run.
type Metrics struct {
	Pairs               *prometheus.CounterVec
	CanonicalizeErrors  *prometheus.CounterVec
	PairDurationSeconds prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	pairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqleval_pairs_total",
		Help: "Gold/predicted pairs processed, by outcome",
	}, []string{"outcome"})

	canonicalizeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqleval_canonicalize_errors_total",
		Help: "Pairs that failed before scoring, by error kind",
	}, []string{"kind"})

	pairDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sqleval_pair_duration_seconds",
		Help:    "Time to canonicalize and score one pair",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	reg.MustRegister(pairs, canonicalizeErrors, pairDuration)

	return &Metrics{
		Pairs:               pairs,
		CanonicalizeErrors:  canonicalizeErrors,
		PairDurationSeconds: pairDuration,
	}
}

// observe records one finished pair. A nil receiver records nothing.
func (m *Metrics) observe(result *models.SampleResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PairDurationSeconds.Observe(elapsed.Seconds())
	if result.Failed() {
		m.Pairs.WithLabelValues(OutcomeFailed).Inc()
		m.CanonicalizeErrors.WithLabelValues(result.ErrorKind).Inc()
		return
	}
	m.Pairs.WithLabelValues(OutcomeScored).Inc()
}
