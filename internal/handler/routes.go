package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// /api/stream/* is more specific than /api/* and wins for GET.
func RegisterRoutes(e *echo.Echo, api *APIHandler, stream *StreamHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	e.GET("/api/stream/*", stream.Handle)
	e.Match(allowedAPIMethods, "/api/*", api.Handle)
}
