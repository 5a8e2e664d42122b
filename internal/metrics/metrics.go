// Package metrics exposes Prometheus instrumentation for risk evaluations and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "riskdash"

// Metrics holds all collectors on a dedicated registry.
// It implements risk.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	evaluationDuration prometheus.Histogram
	evaluatedPositions prometheus.Histogram
	fetchFailures      *prometheus.CounterVec
	alertsRaised       *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

var _ risk.Recorder = (*Metrics)(nil)

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		evaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of risk evaluations including history fetches",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		evaluatedPositions: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "evaluated_positions",
			Help:      "Number of positions per risk evaluation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "fetch_failures_total",
			Help:      "History fetches that returned no usable data",
		}, []string{"asset_class"}),
		alertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "alerts_total",
			Help:      "Risk alerts raised by kind",
		}, []string{"kind"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
		}, []string{"method", "route"}),
	}
}

// ObserveEvaluation records one completed evaluation.
func (m *Metrics) ObserveEvaluation(d time.Duration, positions int) {
	m.evaluationDuration.Observe(d.Seconds())
	m.evaluatedPositions.Observe(float64(positions))
}

// FetchFailed counts a failed history fetch.
func (m *Metrics) FetchFailed(class domain.AssetClass) {
	m.fetchFailures.WithLabelValues(string(class)).Inc()
}

// AlertsRaised counts one alert of the given kind.
func (m *Metrics) AlertsRaised(kind risk.AlertKind) {
	m.alertsRaised.WithLabelValues(string(kind)).Inc()
}

// Registry returns the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
