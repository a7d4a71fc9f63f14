package handler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/labstack/echo/v4"

	"persona-proxy/internal/client"
	"persona-proxy/internal/config"
	"persona-proxy/internal/metrics"
	"persona-proxy/internal/service"
)

type testHandlers struct {
	api     *APIHandler
	stream  *StreamHandler
	health  *HealthHandler
	metrics *metrics.Metrics
}

// newTestHandlers wires the handlers against baseURL the way main does.
func newTestHandlers(t *testing.T, baseURL string) *testHandlers {
	t.Helper()
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:         baseURL,
			IdleConnections: 10,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	b, err := service.NewBackend(cfg)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	bc := client.NewBackendClient(cfg, logger, m)

	return &testHandlers{
		api:     NewAPIHandler(service.NewForwardService(bc, b, logger, m), logger, m),
		stream:  NewStreamHandler(service.NewStreamService(bc, b, logger), logger, m),
		health:  NewHealthHandler(cfg, b, "test"),
		metrics: m,
	}
}

// router returns an Echo instance with all routes registered.
func (h *testHandlers) router() *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, h.api, h.stream, h.health)
	return e
}
