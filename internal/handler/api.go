package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"persona-proxy/internal/metrics"
	"persona-proxy/internal/model"
	"persona-proxy/internal/service"
)

const apiPrefix = "/api/"

// APIHandler relays ordinary API calls to the backend.
type APIHandler struct {
	service *service.ForwardService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAPIHandler creates an APIHandler. m may be nil.
func NewAPIHandler(svc *service.ForwardService, logger *slog.Logger, m *metrics.Metrics) *APIHandler {
	return &APIHandler{
		service: svc,
		logger:  logger.With("component", "api_handler"),
		metrics: m,
	}
}

// Handle forwards the request and writes back JSON, a media body, or an error.
func (h *APIHandler) Handle(c echo.Context) error {
	req := c.Request()

	fr := &model.ForwardRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Segments:      service.SplitPath(subPath(req, apiPrefix)),
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		ContentType:   req.Header.Get(echo.HeaderContentType),
		ContentLength: req.ContentLength,
		Body:          req.Body,
	}

	res, err := h.service.Forward(fr)
	if err != nil {
		return mapError(c, h.logger, h.metrics, "forward", err)
	}

	switch res.Kind {
	case model.ResultBinary:
		return h.writeBinary(c, res)
	case model.ResultJSON:
		return c.JSONBlob(res.StatusCode, res.JSON)
	default:
		return c.JSON(res.StatusCode, errorBody{
			Error:  errInvalidResponse,
			Status: res.StatusCode,
		})
	}
}

func (h *APIHandler) writeBinary(c echo.Context, res *model.ForwardResult) error {
	defer func() { _ = res.Body.Close() }()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, res.ContentType)
	header.Set(echo.HeaderContentDisposition, res.ContentDisposition)
	c.Response().WriteHeader(res.StatusCode)

	// Headers are already sent; a failed copy can only be logged.
	if _, err := io.Copy(c.Response(), res.Body); err != nil {
		h.logger.Error("relaying media body",
			"err", err,
			"path", c.Request().URL.Path,
		)
	}
	return nil
}

// allowedAPIMethods are the verbs routed to the forwarder.
var allowedAPIMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete}
