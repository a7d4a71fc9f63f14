package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"persona-proxy/internal/metrics"
	"persona-proxy/internal/service"
)

var (
	// tokenPattern matches token query parameter values in URLs embedded in error messages.
	tokenPattern = regexp.MustCompile(`(?i)([?&]token=)[^&\s"]+`)
	// bearerPattern matches bearer credentials.
	bearerPattern = regexp.MustCompile(`(?i)(Bearer\s+)[a-zA-Z0-9\-._~+/]+=*`)
)

const (
	errBackendUnreachable = "Backend unreachable"
	errInvalidResponse    = "Invalid response from backend"
)

// errorBody is the JSON shape of every error the proxy produces itself.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status,omitempty"`
}

// mapError translates a service error into a response. Anything that is not a
// routing problem means the backend could not be reached.
func mapError(c echo.Context, logger *slog.Logger, m *metrics.Metrics, component string, err error) error {
	detail := sanitizeError(err)

	switch {
	case errors.Is(err, service.ErrEmptyPath):
		return c.JSON(http.StatusNotFound, errorBody{Error: "Not found"})
	case errors.Is(err, service.ErrMethodNotAllowed):
		return c.JSON(http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	}

	logger.Error("backend unreachable",
		"err", detail,
		"path", c.Request().URL.Path,
	)
	if m != nil {
		m.UpstreamUnreachable.WithLabelValues(component).Inc()
	}

	return c.JSON(http.StatusServiceUnavailable, errorBody{
		Error:  errBackendUnreachable,
		Detail: detail,
	})
}

// sanitizeError redacts tokens and bearer credentials from error messages.
func sanitizeError(err error) string {
	s := tokenPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
	return bearerPattern.ReplaceAllString(s, "${1}[REDACTED]")
}

// subPath returns the escaped request path below prefix.
func subPath(r *http.Request, prefix string) string {
	p := r.URL.EscapedPath()
	if len(p) < len(prefix) {
		return ""
	}
	return p[len(prefix):]
}
