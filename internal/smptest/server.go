// Package smptest provides a fake SMP server, XML fixtures and a document
// signer for tests.
package smptest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type route struct {
	status   int
	body     string
	location string
}

// Server is an in-process SMP. Routes are keyed by the decoded request
// path; unknown paths answer 404.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]route
	requests []string
}

// NewServer starts a plain HTTP server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	return newServer(t, false)
}

// NewTLSServer starts an HTTPS server with a self-signed certificate.
func NewTLSServer(t testing.TB) *Server {
	return newServer(t, true)
}

func newServer(t testing.TB, tls bool) *Server {
	t.Helper()
	s := &Server{routes: map[string]route{}}
	if tls {
		s.Server = httptest.NewTLSServer(http.HandlerFunc(s.serve))
	} else {
		s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	}
	t.Cleanup(s.Close)
	return s
}

// Handle answers path with status and an XML body.
func (s *Server) Handle(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = route{status: status, body: body}
}

// Redirect answers path with an HTTP redirect.
func (s *Server) Redirect(path string, status int, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = route{status: status, location: location}
}

// Requests returns the escaped paths of all requests so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// RequestCount returns the number of requests so far.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.EscapedPath())
	rt, ok := s.routes[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if rt.location != "" {
		w.Header().Set("Location", rt.location)
	}
	if rt.body != "" {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	}
	w.WriteHeader(rt.status)
	_, _ = w.Write([]byte(rt.body))
}
