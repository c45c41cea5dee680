package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	bookings      prometheus.Counter
	diagnoses     prometheus.Counter
	registrations *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medtrack",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medtrack",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medtrack",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medtrack",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Best-effort notifications by channel and outcome.",
		}, []string{"channel", "outcome"}),
		bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medtrack",
			Subsystem: "appointments",
			Name:      "booked_total",
			Help:      "Appointments booked.",
		}),
		diagnoses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medtrack",
			Subsystem: "appointments",
			Name:      "diagnoses_total",
			Help:      "Diagnoses submitted.",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medtrack",
			Subsystem: "users",
			Name:      "registrations_total",
			Help:      "Accounts registered by role.",
		}, []string{"role"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.notifications, m.bookings, m.diagnoses, m.registrations,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncInFlight() { m.httpInFlight.Inc() }
func (m *Metrics) DecInFlight() { m.httpInFlight.Dec() }

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Notification(channel, outcome string) {
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) Booked()                { m.bookings.Inc() }
func (m *Metrics) Diagnosed()             { m.diagnoses.Inc() }
func (m *Metrics) Registered(role string) { m.registrations.WithLabelValues(role).Inc() }

// Notifications exposes the counter for tests.
func (m *Metrics) Notifications() *prometheus.CounterVec { return m.notifications }
