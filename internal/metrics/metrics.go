// Package metrics provides Prometheus instrumentation for the login and risk pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginDecisionsTotal counts terminal login outcomes.
	LoginDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskauth",
			Name:      "login_decisions_total",
			Help:      "Total login attempts by terminal outcome.",
		},
		[]string{"outcome"},
	)

	// RiskUpdatesTotal counts applied risk events by event type and resulting tier.
	RiskUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskauth",
			Name:      "risk_updates_total",
			Help:      "Total risk score updates by event type and resulting tier.",
		},
		[]string{"event", "tier"},
	)

	// RiskUpdateConflictsTotal counts compare-and-swap conflicts that forced a retry.
	RiskUpdateConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskauth",
			Name:      "risk_update_conflicts_total",
			Help:      "Total optimistic concurrency conflicts while updating risk profiles.",
		},
	)

	// AuditFailuresTotal counts security events that could not be persisted.
	AuditFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskauth",
			Name:      "audit_failures_total",
			Help:      "Total security events dropped because the audit sink failed.",
		},
	)

	// RateLimitedTotal counts requests rejected by the global limiter.
	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskauth",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the global rate limiter.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		LoginDecisionsTotal,
		RiskUpdatesTotal,
		RiskUpdateConflictsTotal,
		AuditFailuresTotal,
		RateLimitedTotal,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
