package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
)

func TestWorkflowCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordAssignment(domain.RecordKindLead, "priority")
	m.RecordAssignment(domain.RecordKindLead, "priority")
	m.RecordConversion("converted")
	m.RecordEscalations("sla", 3)
	m.RecordEscalations("sla", 0)
	m.RecordMerge(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.assignments.WithLabelValues("lead", "priority")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("converted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.escalations.WithLabelValues("sla")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.mergedCases))
}

func TestNilMetricsIgnoresRequests(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/x", "GET", 200, time.Millisecond)
		m.RecordError("/x", "GET", "NOT_FOUND")
	})
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/api/leads/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/leads/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/api/leads/:id", "204")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
}
