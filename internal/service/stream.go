package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"persona-proxy/internal/client"
	"persona-proxy/internal/model"
)

// streamResponseHeaders are the only backend headers relayed to media elements.
// They are what a browser needs to seek with Range requests.
var streamResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
}

// StreamService relays seekable media from the backend.
type StreamService struct {
	client  *client.BackendClient
	backend *Backend
	logger  *slog.Logger
}

// NewStreamService creates a StreamService.
func NewStreamService(c *client.BackendClient, b *Backend, logger *slog.Logger) *StreamService {
	return &StreamService{
		client:  c,
		backend: b,
		logger:  logger.With("component", "stream_service"),
	}
}

// Stream requests sr from the backend. The backend status is returned as is
// (200, 206, 404, ...) with only the allow-listed headers kept. The caller is
// responsible for closing the response body.
func (s *StreamService) Stream(sr *model.StreamRequest) (*model.ProxyResponse, error) {
	if len(sr.Segments) == 0 {
		return nil, ErrEmptyPath
	}

	target := s.backend.URL(sr.Segments, false, "")

	header := make(http.Header)
	if sr.Range != "" {
		header.Set(headerRange, sr.Range)
	}
	if sr.Authorization != "" {
		header.Set(headerAuthorization, sr.Authorization)
	}
	header.Set("User-Agent", userAgent)

	s.logger.Debug("streaming",
		"target", target,
		"range", sr.Range,
		"authorized", sr.Authorization != "",
	)

	resp, err := s.client.DoStream(sr.Ctx, http.MethodGet, target, header, nil)
	if err != nil {
		return nil, fmt.Errorf("stream from backend: %w", err)
	}

	resp.Header = filterStreamHeaders(resp.Header)
	return resp, nil
}

func filterStreamHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(streamResponseHeaders))
	for _, key := range streamResponseHeaders {
		if v := src.Get(key); v != "" {
			dst.Set(key, v)
		}
	}
	return dst
}
