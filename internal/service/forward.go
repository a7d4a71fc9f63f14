package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"persona-proxy/internal/client"
	"persona-proxy/internal/metrics"
	"persona-proxy/internal/model"
)

// maxJSONBytes caps how much of a non-media backend response is buffered.
// Larger bodies fail JSON validation and are reported as invalid.
const maxJSONBytes = 64 << 20

// ForwardService relays API calls to the backend and classifies the answers.
type ForwardService struct {
	client  *client.BackendClient
	backend *Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewForwardService creates a ForwardService. m may be nil.
func NewForwardService(c *client.BackendClient, b *Backend, logger *slog.Logger, m *metrics.Metrics) *ForwardService {
	return &ForwardService{
		client:  c,
		backend: b,
		logger:  logger.With("component", "forward_service"),
		metrics: m,
	}
}

// Forward sends fr to the backend and returns the classified response.
//
// GET keeps the query string and gets no trailing slash. POST and DELETE
// always target <path>/ and drop the query. For a ResultBinary result the
// caller must close Body.
func (s *ForwardService) Forward(fr *model.ForwardRequest) (*model.ForwardResult, error) {
	if len(fr.Segments) == 0 {
		return nil, ErrEmptyPath
	}

	var target string
	switch fr.Method {
	case http.MethodGet:
		target = s.backend.URL(fr.Segments, false, fr.RawQuery)
	case http.MethodPost, http.MethodDelete:
		target = s.backend.URL(fr.Segments, true, "")
	default:
		return nil, fmt.Errorf("%s: %w", fr.Method, ErrMethodNotAllowed)
	}

	kind := fr.BodyKind()
	var body io.Reader
	if kind != model.BodyNone && fr.Body != nil {
		body = fr.Body
	}

	req, err := http.NewRequestWithContext(fr.Ctx, fr.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header = s.requestHeaders(fr, kind)
	if kind != model.BodyNone && fr.ContentLength > 0 {
		req.ContentLength = fr.ContentLength
	}

	s.logger.Debug("forwarding request",
		"method", fr.Method,
		"target", target,
		"body", kind.String(),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward to backend: %w", err)
	}

	res := s.classify(resp)
	if s.metrics != nil {
		s.metrics.ForwardResults.WithLabelValues(res.Kind.String()).Inc()
	}
	return res, nil
}

// requestHeaders builds the outbound header set. Nothing from the inbound
// request is copied except Authorization and, for multipart uploads, the
// Content-Type carrying the boundary.
func (s *ForwardService) requestHeaders(fr *model.ForwardRequest, kind model.BodyKind) http.Header {
	h := make(http.Header)
	switch {
	case kind == model.BodyMultipart:
		h.Set(headerContentType, fr.ContentType)
	case fr.Method == http.MethodGet, kind == model.BodyText:
		h.Set(headerContentType, contentTypeJSON)
	}
	if auth := ResolveAuthorization(fr.Header, nil); auth != "" {
		h.Set(headerAuthorization, auth)
	}
	h.Set("User-Agent", userAgent)
	return h
}

// classify turns a backend response into a ForwardResult. Media content types
// are never parsed; everything else must be JSON.
func (s *ForwardService) classify(resp *model.ProxyResponse) *model.ForwardResult {
	contentType := resp.Header.Get(headerContentType)

	if model.IsMediaType(contentType) {
		disposition := resp.Header.Get("Content-Disposition")
		if disposition == "" {
			disposition = "inline"
		}
		return &model.ForwardResult{
			Kind:               model.ResultBinary,
			StatusCode:         resp.StatusCode,
			Body:               resp.Body,
			ContentType:        contentType,
			ContentDisposition: disposition,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	invalid := &model.ForwardResult{Kind: model.ResultInvalid, StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBytes))
	if err != nil {
		s.logger.Warn("reading backend response", "err", err, "status", resp.StatusCode)
		return invalid
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		s.logger.Warn("backend response is not JSON",
			"status", resp.StatusCode,
			"content_type", contentType,
			"bytes", len(data),
		)
		return invalid
	}

	return &model.ForwardResult{
		Kind:       model.ResultJSON,
		StatusCode: resp.StatusCode,
		JSON:       json.RawMessage(buf.Bytes()),
	}
}
