// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeCompleted       = "completed"
	OutcomeProviderFailure = "provider_failure"
	OutcomeAborted         = "aborted"
	OutcomePersistFailed   = "persist_failed"
)

// Upload outcomes.
const (
	UploadStored   = "stored"
	UploadRejected = "rejected"
	UploadFailed   = "failed"
)

type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	Turns         *prometheus.CounterVec
	TurnFragments prometheus.Counter
	TurnDuration  prometheus.Histogram
	Uploads       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docchat_turns_total",
				Help: "Chat turns by outcome.",
			},
			[]string{"outcome"},
		),
		TurnFragments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docchat_turn_fragments_total",
			Help: "Completion fragments relayed to clients.",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docchat_turn_duration_seconds",
			Help:    "Time from the first provider call to the end of the relay.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		Uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docchat_uploads_total",
				Help: "Document uploads by outcome.",
			},
			[]string{"outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.HTTPRequests, m.Turns, m.TurnFragments, m.TurnDuration, m.Uploads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewNop returns collectors registered nowhere.
func NewNop() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}

func (m *Metrics) ObserveTurn(outcome string, started time.Time) {
	m.Turns.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(time.Since(started).Seconds())
}
