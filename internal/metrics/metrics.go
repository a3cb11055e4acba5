package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a dedicated Prometheus registry for the API. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTPRequests counts requests by method, route pattern, and status
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration records request durations in seconds
	HTTPDuration *prometheus.HistogramVec
	// Estimates counts estimator runs by tier and outcome
	Estimates *prometheus.CounterVec
	// PaymentEvents counts payment lifecycle events by event and resulting status
	PaymentEvents *prometheus.CounterVec
}

// New builds the collectors and registers them, plus Go/process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
		Estimates: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "box_estimates_total", Help: "Box cost estimates by tier and outcome."},
			[]string{"tier", "outcome"},
		),
		PaymentEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "payment_events_total", Help: "Payment events by event and status."},
			[]string{"event", "status"},
		),
	}

	m.Registry.MustRegister(m.HTTPRequests)
	m.Registry.MustRegister(m.HTTPDuration)
	m.Registry.MustRegister(m.Estimates)
	m.Registry.MustRegister(m.PaymentEvents)
	m.Registry.MustRegister(collectors.NewGoCollector())
	m.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.HTTPRequests.WithLabelValues(method, path, code).Inc()
	m.HTTPDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

// ObserveEstimate records one estimator run. outcome is "ok" or "invalid".
func (m *Metrics) ObserveEstimate(tier int, outcome string) {
	if m == nil {
		return
	}
	m.Estimates.WithLabelValues(strconv.Itoa(tier), outcome).Inc()
}

// ObservePaymentEvent records a payment state change.
func (m *Metrics) ObservePaymentEvent(event, status string) {
	if m == nil {
		return
	}
	m.PaymentEvents.WithLabelValues(event, status).Inc()
}
