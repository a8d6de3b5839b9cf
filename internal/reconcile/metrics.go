package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeApplied   = "applied"
	outcomeConfirmed = "confirmed"
	outcomeFailed    = "failed"
)

// Metrics counts optimistic mutations by outcome. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Mutations           *prometheus.CounterVec
	Rollbacks           *prometheus.CounterVec
	ConfirmationSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decentratweet_optimistic_mutations_total",
				Help: "Optimistic mutations by entity, operation and outcome",
			},
			[]string{"entity", "op", "outcome"},
		),
		Rollbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decentratweet_rollbacks_total",
				Help: "Rollbacks of failed optimistic mutations by mode",
			},
			[]string{"entity", "op", "mode"},
		),
		ConfirmationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decentratweet_confirmation_duration_seconds",
				Help:    "Duration of confirmation requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Mutations, m.Rollbacks, m.ConfirmationSeconds)
	}
	return m
}

func (m *Metrics) outcome(entity, op, outcome string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(entity, op, outcome).Inc()
}

func (m *Metrics) rolledBack(entity, op string, mode RollbackMode) {
	if m == nil {
		return
	}
	m.Rollbacks.WithLabelValues(entity, op, string(mode)).Inc()
}

func (m *Metrics) observe(entity, op string, d time.Duration) {
	if m == nil {
		return
	}
	m.ConfirmationSeconds.WithLabelValues(entity, op).Observe(d.Seconds())
}
