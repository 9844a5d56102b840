// Package metrics exposes Prometheus collectors for the HTTP surface and checkout outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Checkouts *prometheus.CounterVec
	Emails    *prometheus.CounterVec
}

// NewServerMetrics registers the collectors on reg. Passing a fresh prometheus.NewRegistry
// keeps tests isolated from the default registry.
func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "azura",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "azura",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "azura",
		Subsystem: service,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by trigger and outcome.",
	}, []string{"trigger", "outcome"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "azura",
		Subsystem: service,
		Name:      "emails_total",
		Help:      "Emails handed to the dispatcher by kind and outcome.",
	}, []string{"kind", "outcome"})

	reg.MustRegister(requests, latency, checkouts, emails)
	return &ServerMetrics{Requests: requests, LatencyMS: latency, Checkouts: checkouts, Emails: emails}
}

// Middleware records one request count and latency sample per routed request.
// The handler label is the chi route pattern so path parameters don't explode cardinality.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		handler := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				handler = r.Method + " " + pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func (m *ServerMetrics) CheckoutOutcome(trigger, outcome string) {
	m.Checkouts.WithLabelValues(trigger, outcome).Inc()
}

func (m *ServerMetrics) EmailOutcome(kind string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.Emails.WithLabelValues(kind, outcome).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
