package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/observability"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T) (*fiber.App, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, MiddlewareConfig{AllowedOrigins: "*", Timeout: time.Second})
	app.Get("/boom", func(c *fiber.Ctx) error { panic("kaboom") })
	app.Get("/leads/:id", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("lead", map[string]any{"id": c.Params("id")})
	})
	app.Get("/deadline", func(c *fiber.Ctx) error {
		if _, ok := c.UserContext().Deadline(); !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, metrics
}

func decodeError(t *testing.T, app *fiber.App, path string) (int, errorBody) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestErrorMiddlewareRendersDomainErrors(t *testing.T) {
	app, metrics := newTestApp(t)

	status, body := decodeError(t, app, "/leads/42")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, body.Error.Code)
	assert.Equal(t, "42", body.Error.Details["id"])
	count, err := testutil.GatherAndCount(metrics.Registry(), "http_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := decodeError(t, app, "/boom")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, body.Error.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := decodeError(t, app, "/nowhere")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, body.Error.Code)
}

func TestRequestIDAndTimeout(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/deadline", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}
