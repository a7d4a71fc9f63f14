package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// recordedRequest captures what the fake backend received.
type recordedRequest struct {
	Method      string
	RequestURI  string
	ContentType string
	Auth        string
	Body        []byte
}

// fakeBackend answers every request with the given status, content type and body.
func fakeBackend(t *testing.T, status int, contentType string, body []byte, got *recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			b, _ := io.ReadAll(r.Body)
			*got = recordedRequest{
				Method:      r.Method,
				RequestURI:  r.RequestURI,
				ContentType: r.Header.Get("Content-Type"),
				Auth:        r.Header.Get("Authorization"),
				Body:        b,
			}
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAPIHandler_GETForwardsPathAndQuery(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantURI string
	}{
		{"with query", "/api/media/?skip=0&limit=100", "/api/media?skip=0&limit=100"},
		{"nested", "/api/task-status/t1", "/api/task-status/t1"},
		{"escaped segment", "/api/search-media/caf%C3%A9", "/api/search-media/caf%C3%A9"},
		{"query verbatim", "/api/search-media?q=a+b%20c", "/api/search-media?q=a+b%20c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got recordedRequest
			backend := fakeBackend(t, http.StatusOK, "application/json", []byte(`[]`), &got)
			e := newTestHandlers(t, backend.URL).router()

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if got.RequestURI != tt.wantURI {
				t.Errorf("backend URI = %q, want %q", got.RequestURI, tt.wantURI)
			}
			if got.ContentType != "application/json" {
				t.Errorf("backend Content-Type = %q, want application/json", got.ContentType)
			}
		})
	}
}

func TestAPIHandler_POSTAndDELETEAppendTrailingSlash(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/enroll?ignored=1"},
		{http.MethodDelete, "/api/media/m1?ignored=1"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			var got recordedRequest
			backend := fakeBackend(t, http.StatusOK, "application/json", []byte(`{"success":true}`), &got)
			e := newTestHandlers(t, backend.URL).router()

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"a":1}`))
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if got.Method != tt.method {
				t.Errorf("backend method = %q, want %q", got.Method, tt.method)
			}
			if !strings.HasSuffix(got.RequestURI, "/") || strings.Contains(got.RequestURI, "?") {
				t.Errorf("backend URI = %q, want trailing slash and no query", got.RequestURI)
			}
		})
	}
}

func TestAPIHandler_POSTJSONBody(t *testing.T) {
	var got recordedRequest
	backend := fakeBackend(t, http.StatusOK, "application/json", []byte(`{"task_id":"t1"}`), &got)
	e := newTestHandlers(t, backend.URL).router()

	req := httptest.NewRequest(http.MethodPost, "/api/download-youtube", strings.NewReader(`{"url":"https://youtu.be/x"}`))
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	req.Header.Set("Authorization", "Bearer t0k")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.RequestURI != "/api/download-youtube/" {
		t.Errorf("backend URI = %q, want %q", got.RequestURI, "/api/download-youtube/")
	}
	if got.ContentType != "application/json" {
		t.Errorf("backend Content-Type = %q, want application/json", got.ContentType)
	}
	if got.Auth != "Bearer t0k" {
		t.Errorf("backend Authorization = %q, want %q", got.Auth, "Bearer t0k")
	}
	if string(got.Body) != `{"url":"https://youtu.be/x"}` {
		t.Errorf("backend body = %q", got.Body)
	}
}

func TestAPIHandler_MultipartUpload(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	fileContent := bytes.Repeat([]byte{0x00, 0xff, 0x10}, 1000)
	_, _ = fw.Write(fileContent)
	_ = mw.Close()
	raw := append([]byte(nil), buf.Bytes()...)

	var got recordedRequest
	backend := fakeBackend(t, http.StatusOK, "application/json",
		[]byte(`{"success":true,"media_file_id":"m1","task_id":"t1"}`), &got)
	e := newTestHandlers(t, backend.URL).router()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-media", bytes.NewReader(raw))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.RequestURI != "/api/upload-media/" {
		t.Errorf("backend URI = %q, want %q", got.RequestURI, "/api/upload-media/")
	}
	if got.ContentType != mw.FormDataContentType() {
		t.Errorf("backend Content-Type = %q, want %q", got.ContentType, mw.FormDataContentType())
	}
	if !bytes.Equal(got.Body, raw) {
		t.Error("multipart body was altered in transit")
	}
}

func TestAPIHandler_JSONPassthrough(t *testing.T) {
	backend := fakeBackend(t, http.StatusOK, "application/json", []byte(`{ "id": "m1" }`), nil)
	e := newTestHandlers(t, backend.URL).router()

	req := httptest.NewRequest(http.MethodGet, "/api/media/m1", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["id"] != "m1" || len(body) != 1 {
		t.Errorf("body = %v, want {id: m1}", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestAPIHandler_BackendErrorStatusPreserved(t *testing.T) {
	backend := fakeBackend(t, http.StatusNotFound, "application/json", []byte(`{"detail":"Media not found"}`), nil)
	e := newTestHandlers(t, backend.URL).router()

	req := httptest.NewRequest(http.MethodDelete, "/api/media/missing", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "Media not found") {
		t.Errorf("body = %q, want backend detail", rec.Body.String())
	}
}

func TestAPIHandler_BinaryResponse(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 0xff, '{'}

	tests := []struct {
		name            string
		contentType     string
		disposition     string
		wantDisposition string
	}{
		{"video defaults inline", "video/mp4", "", "inline"},
		{"audio keeps disposition", "audio/wav", `attachment; filename="a.wav"`, `attachment; filename="a.wav"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				if tt.disposition != "" {
					w.Header().Set("Content-Disposition", tt.disposition)
				}
				w.Header().Set("Cache-Control", "no-store")
				_, _ = w.Write(payload)
			}))
			defer backend.Close()
			e := newTestHandlers(t, backend.URL).router()

			req := httptest.NewRequest(http.MethodGet, "/api/media/m1/file", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if got := rec.Header().Get("Content-Disposition"); got != tt.wantDisposition {
				t.Errorf("Content-Disposition = %q, want %q", got, tt.wantDisposition)
			}
			if got := rec.Header().Get("Cache-Control"); got != "" {
				t.Errorf("Cache-Control = %q, want dropped", got)
			}
			if !bytes.Equal(rec.Body.Bytes(), payload) {
				t.Errorf("body = %v, want %v", rec.Body.Bytes(), payload)
			}
		})
	}
}

func TestAPIHandler_InvalidJSON(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"ok status", http.StatusOK},
		{"server error status", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := fakeBackend(t, tt.status, "text/plain", []byte("not json"), nil)
			e := newTestHandlers(t, backend.URL).router()

			req := httptest.NewRequest(http.MethodGet, "/api/x", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body struct {
				Error  string `json:"error"`
				Status int    `json:"status"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Error != "Invalid response from backend" {
				t.Errorf("error = %q, want %q", body.Error, "Invalid response from backend")
			}
			if body.Status != tt.status {
				t.Errorf("body.status = %d, want %d", body.Status, tt.status)
			}
		})
	}
}

func TestAPIHandler_BackendUnreachable(t *testing.T) {
	h := newTestHandlers(t, "http://127.0.0.1:1")
	e := h.router()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/media/m1", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body["error"] != "Backend unreachable" {
				t.Errorf("error = %q, want %q", body["error"], "Backend unreachable")
			}
			if body["detail"] == "" {
				t.Error("expected non-empty detail")
			}
		})
	}
}

func TestAPIHandler_EmptyPath(t *testing.T) {
	e := newTestHandlers(t, "http://127.0.0.1:1").router()

	req := httptest.NewRequest(http.MethodGet, "/api/", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
