// Package testutil provides a recording HTTP server and assertion helpers
// for testing declared endpoints against a real remote side.
// This package does not import restwire and can be used from any package.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

// RecordedRequest is a copy of a request received by a Server.
type RecordedRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Path returns the escaped request path.
func (r RecordedRequest) Path() string {
	return r.URL.EscapedPath()
}

// Server is an httptest.Server that records every request and counts the
// TCP connections it accepts.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	newConns atomic.Int64
}

// NewServer starts a recording server in front of handler. The server is
// closed when the test finishes.
func NewServer(t testing.TB, handler http.Handler) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			URL:    r.URL,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		handler.ServeHTTP(w, r)
	}))
	s.Server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			s.newConns.Add(1)
		}
	}
	s.Start()
	t.Cleanup(s.Close)
	return s
}

// Host returns the host the server listens on.
func (s *Server) Host() string {
	u, _ := url.Parse(s.URL)
	return u.Hostname()
}

// Port returns the port the server listens on.
func (s *Server) Port() string {
	u, _ := url.Parse(s.URL)
	return u.Port()
}

// Requests returns a snapshot of the recorded requests.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request. It fails the test if none
// was received.
func (s *Server) LastRequest(t testing.TB) RecordedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("expected at least one request")
	}
	return s.requests[len(s.requests)-1]
}

// NewConnections returns the number of TCP connections accepted so far.
func (s *Server) NewConnections() int64 {
	return s.newConns.Load()
}

// JSON returns a handler that writes v as a JSON body with status 200.
func JSON(v any) http.Handler {
	return Status(http.StatusOK, v)
}

// Status returns a handler that writes v as a JSON body with the given status.
func Status(code int, v any) http.Handler {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write(data)
	})
}

// Text returns a handler that writes body as text/plain with status 200.
func Text(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(body))
	})
}

// AssertMethod checks the HTTP method of a recorded request.
func AssertMethod(t testing.TB, r RecordedRequest, expected string) {
	t.Helper()
	if r.Method != expected {
		t.Errorf("expected method %s, got %s", expected, r.Method)
	}
}

// AssertPath checks the escaped path of a recorded request.
func AssertPath(t testing.TB, r RecordedRequest, expected string) {
	t.Helper()
	if r.Path() != expected {
		t.Errorf("expected path %s, got %s", expected, r.Path())
	}
}

// AssertHeader checks that a request header has exactly one value, equal
// to expectedValue.
func AssertHeader(t testing.TB, r RecordedRequest, key, expectedValue string) {
	t.Helper()
	values := r.Header.Values(key)
	if len(values) != 1 {
		t.Errorf("expected exactly one %s header, got %q", key, values)
		return
	}
	if values[0] != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, values[0])
	}
}

// AssertNoHeader checks that a request header is absent.
func AssertNoHeader(t testing.TB, r RecordedRequest, key string) {
	t.Helper()
	if values := r.Header.Values(key); len(values) != 0 {
		t.Errorf("expected no %s header, got %q", key, values)
	}
}

// AssertJSONBody compares the request body with expected as JSON,
// ignoring formatting differences.
func AssertJSONBody(t testing.TB, r RecordedRequest, expected any) {
	t.Helper()

	expectedJSON, _ := json.Marshal(expected)

	var expectedData, actualData any
	json.Unmarshal(expectedJSON, &expectedData)
	if err := json.Unmarshal(r.Body, &actualData); err != nil {
		t.Fatalf("request body is not JSON: %v\nBody: %s", err, r.Body)
	}

	expectedStr, _ := json.MarshalIndent(expectedData, "", "  ")
	actualStr, _ := json.MarshalIndent(actualData, "", "  ")

	if string(expectedStr) != string(actualStr) {
		t.Errorf("body mismatch:\nExpected:\n%s\nActual:\n%s", expectedStr, actualStr)
	}
}
