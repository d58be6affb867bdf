package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts tenant resolution attempts by outcome:
	// ok, not_found, not_active, ambiguous.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "tenant",
		Name:      "resolutions_total",
		Help:      "Tenant resolution attempts by outcome.",
	}, []string{"outcome"})

	ScopeBinds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "scope",
		Name:      "binds_total",
		Help:      "Connections bound to a tenant namespace.",
	})

	ScopeResetFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "scope",
		Name:      "reset_failures_total",
		Help:      "Failed search_path resets. Each one discards a connection.",
	})

	ConnsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "scope",
		Name:      "conns_discarded_total",
		Help:      "Connections removed from the pool because their scope could not be verified.",
	})

	// Migrations counts per-tenant migration applications by status:
	// applied, failed.
	Migrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "schema",
		Name:      "migrations_total",
		Help:      "Per-tenant migration applications by status.",
	}, []string{"status"})

	// Provisions counts provisioning runs by outcome: ok, failed.
	Provisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "schema",
		Name:      "provisions_total",
		Help:      "Tenant provisioning runs by outcome.",
	}, []string{"outcome"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crm",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and status.",
	}, []string{"method", "status"})
)
