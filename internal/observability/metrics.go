package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/crm-service/internal/domain"
)

// Metrics holds the Prometheus collectors for HTTP traffic and CRM workflows.
// It implements service.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorTotal      *prometheus.CounterVec
	assignments     *prometheus.CounterVec
	conversions     *prometheus.CounterVec
	escalations     *prometheus.CounterVec
	mergedCases     prometheus.Counter
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses by error code",
		}, []string{"method", "path", "code"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_assignments_total",
			Help: "Owners picked by the assignment engine",
		}, []string{"record_type", "rule"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_lead_conversions_total",
			Help: "Lead conversion attempts by outcome",
		}, []string{"outcome"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_case_escalations_total",
			Help: "Escalated cases by trigger",
		}, []string{"trigger"}),
		mergedCases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crm_cases_merged_total",
			Help: "Cases closed by merges",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestTotal,
		m.requestDuration,
		m.errorTotal,
		m.assignments,
		m.conversions,
		m.escalations,
		m.mergedCases,
	)
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// RecordRequest counts one finished request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError counts one error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) RecordAssignment(kind domain.RecordKind, rule string) {
	m.assignments.WithLabelValues(string(kind), rule).Inc()
}

func (m *Metrics) RecordConversion(outcome string) {
	m.conversions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordEscalations(trigger string, count int) {
	if count <= 0 {
		return
	}
	m.escalations.WithLabelValues(trigger).Add(float64(count))
}

func (m *Metrics) RecordMerge(closed int) {
	if closed <= 0 {
		return
	}
	m.mergedCases.Add(float64(closed))
}
