package auth

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for auth activity
type Metrics struct {
	Events         *prometheus.CounterVec
	SessionsIssued prometheus.Counter
	Rotations      prometheus.Counter
}

// NewMetrics creates and registers the auth collectors on reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Total number of auth activity events by type",
		}, []string{"event"}),
		SessionsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_issued_total",
			Help: "Total number of sessions created by login",
		}),
		Rotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Total number of successful refresh token rotations",
		}),
	}
}

// Record implements ActivitySink so metrics can be plugged next to audit sinks.
func (m *Metrics) Record(_ context.Context, event ActivityEvent) error {
	m.Events.WithLabelValues(string(event.EventType)).Inc()

	switch event.EventType {
	case ActivityEventLoginSuccess:
		m.SessionsIssued.Inc()
	case ActivityEventRefreshSuccess:
		m.Rotations.Inc()
	}
	return nil
}
