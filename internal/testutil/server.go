// Package testutil provides a local stand-in for the report API and other
// HTTP helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// Server is a local HTTP server bound to 127.0.0.1 that records the paths
// it was asked for.
type Server struct {
	URL string

	listener  net.Listener
	server    *http.Server
	closeOnce sync.Once

	mu    sync.Mutex
	paths []string
}

// Close shuts down the server.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.server != nil {
			_ = s.server.Close()
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// Paths returns the request paths seen so far, in arrival order.
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Hits counts the requests made for path.
func (s *Server) Hits(path string) int {
	n := 0
	for _, p := range s.Paths() {
		if p == path {
			n++
		}
	}
	return n
}

// NewIPv4Server starts handler on a tcp4 loopback listener. The test is
// skipped when the sandbox forbids binding local sockets.
func NewIPv4Server(t testing.TB, handler http.Handler) *Server {
	t.Helper()

	listener, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind local tcp4 listener: %v", err)
		return nil
	}

	s := &Server{
		URL:      fmt.Sprintf("http://%s", listener.Addr().String()),
		listener: listener,
	}
	s.server = &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.paths = append(s.paths, r.URL.Path)
			s.mu.Unlock()
			handler.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = s.server.Serve(listener)
	}()

	t.Cleanup(s.Close)
	return s
}

// JSONHandler answers every request with status and body as JSON
func JSONHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// Assessment and standard-report routes of the report API
const (
	AssessmentRoute     = "/api/assessment/"
	StandardReportRoute = "/api/standard-reports/"
)

// ReportAPI fakes the report API. Payloads are keyed by id and served on
// GET; unknown ids answer 404 with a JSON message.
type ReportAPI struct {
	Assessments     map[string]string
	StandardReports map[string]string
}

// ServeHTTP implements http.Handler
func (a ReportAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		JSONHandler(http.StatusMethodNotAllowed, `{"message":"method not allowed"}`).ServeHTTP(w, r)
		return
	}
	var (
		body string
		ok   bool
	)
	if id, found := strings.CutPrefix(r.URL.Path, AssessmentRoute); found {
		body, ok = a.Assessments[id]
	} else if id, found := strings.CutPrefix(r.URL.Path, StandardReportRoute); found {
		body, ok = a.StandardReports[id]
	}
	if !ok {
		JSONHandler(http.StatusNotFound, `{"message":"report not found"}`).ServeHTTP(w, r)
		return
	}
	JSONHandler(http.StatusOK, body).ServeHTTP(w, r)
}

// NewReportAPI starts a fake report API serving api
func NewReportAPI(t testing.TB, api ReportAPI) *Server {
	t.Helper()
	return NewIPv4Server(t, api)
}
