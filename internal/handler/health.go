package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"persona-proxy/internal/config"
	"persona-proxy/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	backend *service.Backend
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, b *service.Backend, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, backend: b, version: v}
}

// Healthz returns a simple OK response for liveness probes.
// It does not contact the backend.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusBody struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	BackendURL       string `json:"backend_url"`
	AllowCrossOrigin bool   `json:"allow_cross_origin"`
	MetricsEnabled   bool   `json:"metrics_enabled"`
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusBody{
		Status:           "ok",
		Version:          string(h.version),
		BackendURL:       h.backend.Origin(),
		AllowCrossOrigin: h.cfg.Server.AllowCrossOrigin,
		MetricsEnabled:   h.cfg.Metrics.Enabled,
	})
}
