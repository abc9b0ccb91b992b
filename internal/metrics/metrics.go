// Package metrics exposes prometheus collectors for engine events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the engine's collectors over one registry so tests can
// run isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	ExchangesResolved *prometheus.CounterVec
	ForcedPassives    prometheus.Counter
	SessionsStarted   prometheus.Counter
	SessionsFinished  *prometheus.CounterVec
	MatchesMade       prometheus.Counter
	ShadowBattles     prometheus.Counter
	ActiveSessions    prometheus.Gauge
	ExchangeDuration  prometheus.Histogram
}

// New creates a Metrics bundle with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ExchangesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rbc_exchanges_resolved_total",
			Help: "Total resolved exchanges, partitioned by outcome.",
		}, []string{"outcome"}),
		ForcedPassives: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbc_forced_passives_total",
			Help: "Total exchanges resolved with a forced passive side.",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbc_sessions_started_total",
			Help: "Total combat sessions created.",
		}),
		SessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rbc_sessions_finished_total",
			Help: "Total combat sessions finalized, partitioned by mode.",
		}, []string{"mode"}),
		MatchesMade: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbc_matchmaking_matches_total",
			Help: "Total arena matches made between two players.",
		}),
		ShadowBattles: factory.NewCounter(prometheus.CounterOpts{
			Name: "rbc_shadow_battles_total",
			Help: "Total shadow battles created after matchmaking timeout.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rbc_active_sessions",
			Help: "Number of sessions with a running supervisor.",
		}),
		ExchangeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rbc_exchange_resolve_seconds",
			Help:    "Wall time spent resolving one exchange.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler returns the HTTP handler serving this bundle's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
