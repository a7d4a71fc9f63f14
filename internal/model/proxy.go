// Package model defines shared types for the proxy.
package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// BodyKind describes how an inbound request body is relayed upstream.
type BodyKind int

const (
	// BodyNone means no body is sent (GET, DELETE).
	BodyNone BodyKind = iota
	// BodyText is relayed verbatim and labelled application/json.
	BodyText
	// BodyMultipart is relayed verbatim with its original multipart Content-Type.
	BodyMultipart
)

func (k BodyKind) String() string {
	switch k {
	case BodyText:
		return "text"
	case BodyMultipart:
		return "multipart"
	default:
		return "none"
	}
}

// ForwardRequest represents a client API call to be relayed to the backend.
type ForwardRequest struct {
	Ctx           context.Context
	Method        string
	Segments      []string // escaped path segments below /api/
	RawQuery      string
	Header        http.Header
	ContentType   string
	ContentLength int64 // -1 or 0 when unknown
	Body          io.Reader
}

// BodyKind picks the body encoding from the method and inbound Content-Type.
func (r *ForwardRequest) BodyKind() BodyKind {
	if r.Method != http.MethodPost {
		return BodyNone
	}
	if strings.Contains(strings.ToLower(r.ContentType), "multipart/form-data") {
		return BodyMultipart
	}
	return BodyText
}

// ResultKind tags the variant held by a ForwardResult.
type ResultKind int

const (
	// ResultJSON holds a JSON document in ForwardResult.JSON.
	ResultJSON ResultKind = iota
	// ResultBinary holds an audio/video stream in ForwardResult.Body.
	ResultBinary
	// ResultInvalid means the backend answered with something that was neither.
	ResultInvalid
)

func (k ResultKind) String() string {
	switch k {
	case ResultJSON:
		return "json"
	case ResultBinary:
		return "binary"
	default:
		return "invalid"
	}
}

// ForwardResult is the backend response of a ForwardRequest.
// StatusCode is always the backend's status. For ResultBinary the caller
// owns Body and must close it.
type ForwardResult struct {
	Kind       ResultKind
	StatusCode int

	JSON json.RawMessage

	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
}

// IsMediaType reports whether a Content-Type names audio or video content.
func IsMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "video/") || strings.HasPrefix(contentType, "audio/")
}

// StreamRequest represents a media element fetching a playable byte range.
type StreamRequest struct {
	Ctx           context.Context
	Segments      []string
	Range         string
	Authorization string
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
