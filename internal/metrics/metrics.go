package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the access engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	CompilesTotal        prometheus.Counter
	CompileDuration      prometheus.Histogram
	GrantsSkippedTotal   prometheus.Counter
	GuardDecisionsTotal  *prometheus.CounterVec
	PermissionLoadErrors prometheus.Counter
	GrantCacheTotal      *prometheus.CounterVec
	OverridesSweptTotal  prometheus.Counter
}

// NewMetrics creates and registers all collectors on registry. A nil registry
// gets a fresh one with the Go and process collectors attached.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: registry,
		CompilesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_compiles_total",
			Help: "Total number of permission matrix compilations",
		}),
		CompileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "access_compile_duration_seconds",
			Help:    "Permission matrix compilation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		GrantsSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_grants_skipped_total",
			Help: "Total number of malformed grant records skipped during compilation",
		}),
		GuardDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_guard_decisions_total",
			Help: "Total number of guard decisions",
		}, []string{"scope", "result"}),
		PermissionLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_permission_load_failures_total",
			Help: "Total number of failed permission loads",
		}),
		GrantCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_grant_cache_requests_total",
			Help: "Total number of grant cache lookups",
		}, []string{"result"}),
		OverridesSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_overrides_swept_total",
			Help: "Total number of expired overrides deactivated by the sweeper",
		}),
	}

	registry.MustRegister(
		m.CompilesTotal,
		m.CompileDuration,
		m.GrantsSkippedTotal,
		m.GuardDecisionsTotal,
		m.PermissionLoadErrors,
		m.GrantCacheTotal,
		m.OverridesSweptTotal,
	)

	return m
}

func (m *Metrics) ObserveCompile(duration time.Duration, _ int, skipped int) {
	m.CompilesTotal.Inc()
	m.CompileDuration.Observe(duration.Seconds())
	if skipped > 0 {
		m.GrantsSkippedTotal.Add(float64(skipped))
	}
}

func (m *Metrics) ObserveGuardDecision(scope string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.GuardDecisionsTotal.WithLabelValues(scope, result).Inc()
}

func (m *Metrics) ObservePermissionLoadFailure() {
	m.PermissionLoadErrors.Inc()
}

func (m *Metrics) ObserveGrantCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.GrantCacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveOverridesSwept(n int) {
	m.OverridesSweptTotal.Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
