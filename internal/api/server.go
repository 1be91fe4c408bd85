// Package api exposes the assistance workflow to the staff dashboards.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"assistance-workflow/internal/common/database"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/common/metrics"
	"assistance-workflow/internal/workflow"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	headerStaffID   = "X-Staff-ID"
	headerStaffRole = "X-Staff-Role"

	defaultMaxBodyBytes = 4 << 20
)

// Options tune the HTTP layer.
type Options struct {
	MaxBodyBytes int64
}

// Server routes dashboard requests to the workflow service.
type Server struct {
	svc     *workflow.Service
	health  *database.Health
	logger  logger.Logger
	maxBody int64
}

func NewServer(svc *workflow.Service, health *database.Health, log logger.Logger, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if health == nil {
		health = database.NewHealth(2 * time.Second)
	}
	return &Server{
		svc:     svc,
		health:  health,
		logger:  logger.Component(log, "api"),
		maxBody: opts.MaxBodyBytes,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware, s.loggingMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/applications", s.handleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/applications/reference/{ref}", s.handleGetByReference).Methods(http.MethodGet)
	v1.HandleFunc("/applications/{id}", s.handleGet).Methods(http.MethodGet)
	v1.HandleFunc("/applications/{id}/transitions", s.handleTransition).Methods(http.MethodPost)
	v1.HandleFunc("/applications/{id}/signatures/{role}", s.handleAttachSignature).Methods(http.MethodPut)
	v1.HandleFunc("/applications/{id}/signatures/{role}", s.handleGetSignature).Methods(http.MethodGet)
	v1.HandleFunc("/applications/{id}/notify", s.handleNotify).Methods(http.MethodPost)
	v1.HandleFunc("/applications/{id}/history", s.handleHistory).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard/urgent", s.handleUrgent).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard/counts", s.handleCounts).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report, ok := s.health.Report(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{"ready": ok, "checks": report})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.status)).Inc()
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Debug("request handled", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"staffId":     r.Header.Get(headerStaffID),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
