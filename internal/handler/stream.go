package handler

import (
	"io"
	"log/slog"

	"github.com/labstack/echo/v4"

	"persona-proxy/internal/metrics"
	"persona-proxy/internal/model"
	"persona-proxy/internal/service"
)

const streamPrefix = "/api/stream/"

// StreamHandler serves seekable media to <video> and <audio> elements.
type StreamHandler struct {
	service *service.StreamService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStreamHandler creates a StreamHandler. m may be nil.
func NewStreamHandler(svc *service.StreamService, logger *slog.Logger, m *metrics.Metrics) *StreamHandler {
	return &StreamHandler{
		service: svc,
		logger:  logger.With("component", "stream_handler"),
		metrics: m,
	}
}

// Handle streams the backend resource to the client without buffering it.
func (h *StreamHandler) Handle(c echo.Context) error {
	req := c.Request()

	sr := &model.StreamRequest{
		Ctx:           req.Context(),
		Segments:      service.SplitPath(subPath(req, streamPrefix)),
		Range:         req.Header.Get("Range"),
		Authorization: service.ResolveAuthorization(req.Header, req.URL.Query()),
	}

	resp, err := h.service.Stream(sr)
	if err != nil {
		return mapError(c, h.logger, h.metrics, "stream", err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)

	// Players drop connections while seeking; a broken copy is routine.
	n, err := io.Copy(c.Response(), resp.Body)
	if h.metrics != nil {
		h.metrics.StreamedBytes.Add(float64(n))
	}
	if err != nil {
		h.logger.Debug("streaming response body",
			"err", err,
			"path", req.URL.Path,
			"bytes", n,
		)
	}

	return nil
}
