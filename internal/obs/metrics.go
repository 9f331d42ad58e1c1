package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by every endpoint.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Control-plane domain metrics. These stay registered even when a feature is
// disabled so dashboards never lose the series.
var (
	adminAuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_auth_failures_total",
			Help: "Failed admin verification attempts by reason.",
		},
		[]string{"reason"},
	)

	rateLimitDenials = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_denials_total",
		Help: "Requests denied by the fixed-window rate limiter.",
	})

	riskComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_score_computations_total",
			Help: "Completed risk score computations by resulting level.",
		},
		[]string{"level"},
	)

	overridesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kyc_overrides_total",
		Help: "Admin verification overrides recorded.",
	})
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		adminAuthFailures, rateLimitDenials, riskComputations, overridesTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncAuthFailure counts a failed admin verification attempt.
func IncAuthFailure(reason string) {
	adminAuthFailures.WithLabelValues(reason).Inc()
}

// IncRateLimitDenied counts a fixed-window rate limit denial.
func IncRateLimitDenied() {
	rateLimitDenials.Inc()
}

// IncRiskComputed counts a finished risk computation.
func IncRiskComputed(level string) {
	riskComputations.WithLabelValues(level).Inc()
}

// IncOverride counts a recorded verification override.
func IncOverride() {
	overridesTotal.Inc()
}

// Instrument wraps a handler with RPS, latency and in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses unknown paths so label cardinality stays bounded.
func CanonicalPath(path string) string {
	switch path {
	case "", "/":
		return "/"
	case "/healthz", "/readyz", "/metrics", "/v1/info",
		"/admin/kyc/report", "/admin/kyc/override", "/admin/kyc/details":
		return path
	}
	return "/other"
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
