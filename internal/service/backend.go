// Package service implements the forwarding and streaming logic of the proxy.
package service

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"persona-proxy/internal/config"
)

// ErrEmptyPath is returned when a request names no resource below /api/.
var ErrEmptyPath = errors.New("empty resource path")

// ErrMethodNotAllowed is returned for verbs the forwarder does not relay.
var ErrMethodNotAllowed = errors.New("method not allowed")

const userAgent = "persona-proxy/1.0"

const (
	headerAuthorization = "Authorization"
	headerRange         = "Range"
	headerContentType   = "Content-Type"
	tokenQueryParam     = "token"
	contentTypeJSON     = "application/json"
)

// Backend builds URLs on the Persona backend origin.
type Backend struct {
	origin string
}

// NewBackend parses the configured backend origin.
func NewBackend(cfg *config.Config) (*Backend, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q is not an absolute URL", cfg.Upstream.BaseURL)
	}
	return &Backend{origin: strings.TrimRight(u.String(), "/")}, nil
}

// Origin returns the backend origin without a trailing slash.
func (b *Backend) Origin() string {
	return b.origin
}

// URL returns <origin>/api/<segments>[/][?rawQuery]. Segments are joined as
// given; they are already escaped and are not encoded again.
func (b *Backend) URL(segments []string, trailingSlash bool, rawQuery string) string {
	var sb strings.Builder
	sb.WriteString(b.origin)
	sb.WriteString("/api/")
	sb.WriteString(strings.Join(segments, "/"))
	if trailingSlash {
		sb.WriteByte('/')
	}
	if rawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(rawQuery)
	}
	return sb.String()
}

// SplitPath splits an escaped sub-path into segments. Empty and "." segments
// are dropped and ".." removes the previous segment, as a URL parser would;
// a path can never climb above /api/.
func SplitPath(escaped string) []string {
	var segments []string
	for _, s := range strings.Split(escaped, "/") {
		switch s {
		case "", ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, s)
		}
	}
	return segments
}

// ResolveAuthorization returns the Authorization value to send upstream.
// An Authorization header always wins; otherwise a token query parameter
// becomes a Bearer credential. Media elements cannot set headers, so they
// pass the token in the query string instead.
func ResolveAuthorization(header http.Header, query url.Values) string {
	if v := header.Get(headerAuthorization); v != "" {
		return v
	}
	if t := query.Get(tokenQueryParam); t != "" {
		return "Bearer " + t
	}
	return ""
}
