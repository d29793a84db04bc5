package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	decisionsTotal  *prometheus.CounterVec
	snapshotLookups *prometheus.CounterVec
	roleFetch       prometheus.Histogram
	jobsTotal       *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aulanet_http_requests_total",
		Help: "Number of HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aulanet_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aulanet_authz_decisions_total",
		Help: "Authorization decisions by outcome and reason.",
	}, []string{"outcome", "reason"})
	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aulanet_authz_snapshot_lookups_total",
		Help: "Role snapshot cache lookups by result (hit, miss, bypass).",
	}, []string{"result"})
	roleFetch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aulanet_authz_role_fetch_duration_seconds",
		Help:    "Latency of role assignment reads from the store.",
		Buckets: prometheus.DefBuckets,
	})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aulanet_jobs_total",
		Help: "Background job executions by task type and status.",
	}, []string{"task", "status"})
	registry.MustRegister(requests, duration, decisions, snapshots, roleFetch, jobs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		decisionsTotal:  decisions,
		snapshotLookups: snapshots,
		roleFetch:       roleFetch,
		jobsTotal:       jobs,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveDecision counts one authorization decision.
func (m *Metrics) ObserveDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.decisionsTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveSnapshotLookup counts one snapshot cache lookup.
func (m *Metrics) ObserveSnapshotLookup(result string) {
	if m == nil {
		return
	}
	m.snapshotLookups.WithLabelValues(result).Inc()
}

// ObserveRoleFetch records the latency of one role store read.
func (m *Metrics) ObserveRoleFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.roleFetch.Observe(d.Seconds())
}

// ObserveJob counts one background job execution.
func (m *Metrics) ObserveJob(task, status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(task, status).Inc()
}

// Registerer exposes the registry for registering custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
