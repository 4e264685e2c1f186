package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API's Prometheus collectors. Each instance owns its
// registry so tests can build as many handlers as they like.
type Metrics struct {
	registry *prometheus.Registry

	BookingOutcomes      *prometheus.CounterVec
	AvailabilityDuration prometheus.Histogram
	AvailabilitySlots    prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotengine",
			Name:      "booking_outcomes_total",
			Help:      "Bookings placed through the API by outcome.",
		}, []string{"outcome"}),
		AvailabilityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotengine",
			Name:      "availability_query_seconds",
			Help:      "Time spent answering availability queries.",
			Buckets:   prometheus.DefBuckets,
		}),
		AvailabilitySlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotengine",
			Name:      "availability_slots_total",
			Help:      "Candidate slots evaluated by availability queries.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotengine",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.BookingOutcomes,
		m.AvailabilityDuration,
		m.AvailabilitySlots,
		m.RequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeOutcome(resourced bool) {
	outcome := "unresourceable"
	if resourced {
		outcome = "resourced"
	}
	m.BookingOutcomes.WithLabelValues(outcome).Inc()
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.status = code
		sw.written = true
		sw.ResponseWriter.WriteHeader(code)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}

// Middleware records request latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}
