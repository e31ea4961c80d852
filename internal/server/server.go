// Package server renders reports on demand over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lamim/assessment-reports/internal/api"
	"github.com/lamim/assessment-reports/internal/archive"
	"github.com/lamim/assessment-reports/internal/config"
	"github.com/lamim/assessment-reports/internal/report"
	"github.com/lamim/assessment-reports/internal/runner"
)

const maxArchiveLimit = 500

// Builder fetches and shapes one report
type Builder interface {
	Build(ctx context.Context, kind, id string) (runner.Built, error)
}

// Archive lists and stores rendered snapshots
type Archive interface {
	Save(ctx context.Context, snap archive.Snapshot) (archive.Snapshot, error)
	List(ctx context.Context, limit int) ([]archive.Snapshot, error)
}

// Server serves the report routes
type Server struct {
	builder Builder
	archive Archive
	logger  *zap.Logger
	metrics *renderMetrics
	mux     *http.ServeMux
}

// New creates a server. store may be nil when archiving is off.
func New(builder Builder, store Archive, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		builder: builder,
		archive: store,
		logger:  logger,
		metrics: newRenderMetrics(),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.mux.HandleFunc("GET /reports/{kind}/{id}", s.withLogging(s.getReport))
	s.mux.HandleFunc("GET /reports/{kind}/{$}", s.withLogging(s.missingID))
	s.mux.HandleFunc("GET /reports/{kind}", s.withLogging(s.missingID))
	s.mux.HandleFunc("GET /archive", s.withLogging(s.listArchive))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
}

// ServeHTTP dispatches to the registered routes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) missingID(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !knownKind(kind) {
		s.errorResponse(w, http.StatusNotFound, fmt.Sprintf("unknown report kind %q", kind))
		return
	}
	s.errorResponse(w, http.StatusBadRequest, api.ErrMissingID.Error())
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(r.PathValue("kind"))
	id := strings.TrimSpace(r.PathValue("id"))
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = report.FormatHTML
	}

	if !knownKind(kind) {
		s.errorResponse(w, http.StatusNotFound, fmt.Sprintf("unknown report kind %q", kind))
		return
	}
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, api.ErrMissingID.Error())
		return
	}
	if !slices.Contains(report.Formats, format) {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	start := time.Now()
	built, err := s.builder.Build(r.Context(), kind, id)
	var body []byte
	if err == nil {
		body, err = report.Bytes(built.Document, format)
	}
	if err != nil {
		s.metrics.observe(kind, format, "error", time.Since(start))
		status := errorStatus(err)
		s.logger.Warn("report render failed",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Int("status", status),
			zap.Error(err))
		s.errorResponse(w, status, err.Error())
		return
	}
	s.metrics.observe(kind, format, "ok", time.Since(start))

	if len(built.Dropped) > 0 {
		w.Header().Set("X-Dropped-Metrics", strconv.Itoa(len(built.Dropped)))
	}
	if s.archive != nil {
		if _, err := s.archive.Save(r.Context(), archive.Snapshot{
			Kind:        kind,
			ReportID:    id,
			Format:      format,
			GeneratedAt: built.Document.GeneratedAt,
			Payload:     body,
		}); err != nil {
			s.logger.Warn("failed to archive report", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", report.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) listArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "archive is not configured")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxArchiveLimit)
	}
	snaps, err := s.archive.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list archive", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "failed to list archive")
		return
	}
	s.jsonResponse(w, http.StatusOK, snaps)
}

// errorStatus maps a build error to the answer the client sees. Upstream
// 404s stay 404; every other upstream failure is a bad gateway.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, runner.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, api.ErrMissingID):
		return http.StatusBadRequest
	case api.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// knownKind reports whether kind can be fetched from the API
func knownKind(kind string) bool {
	return kind != config.KindInvoice && slices.Contains(config.Kinds, kind)
}
