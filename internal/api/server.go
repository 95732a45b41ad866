package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
	"github.com/jsteinberg1/cucm-phone-info/internal/metrics"
)

// JobControl is the scheduler surface the API needs.
type JobControl interface {
	TriggerManual(kind inventory.JobKind) bool
	Reschedule(cfg config.Config) error
	Running() bool
}

// Server wires HTTP handlers to the store and the scheduler.
type Server struct {
	router    chi.Router
	store     inventory.Store
	scheduler JobControl
	logger    *zap.Logger

	cfgMu sync.Mutex
	cfg   config.Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store inventory.Store, scheduler JobControl, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		store:     store,
		scheduler: scheduler,
		logger:    logger,
		cfg:       cfg,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey, logger))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/status", s.getJobStatuses)
			r.Post("/{kind}/trigger", s.triggerJob)
		})
		r.Post("/scheduler/reschedule", s.reschedule)
		r.Route("/phones", func(r chi.Router) {
			r.Get("/", s.getPhones)
			r.Get("/{devicename}/scrape", s.getScrape)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.scheduler.Running() {
		writeError(s.logger, w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getJobStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.store.GetJobStatuses(r.Context())
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to fetch job statuses")
		return
	}
	if statuses == nil {
		statuses = []inventory.JobStatus{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"jobs": statuses})
}

func (s *Server) triggerJob(w http.ResponseWriter, r *http.Request) {
	kind := inventory.JobKind(chi.URLParam(r, "kind"))
	if kind != inventory.JobClusterSync && kind != inventory.JobPhoneScrape {
		writeError(s.logger, w, http.StatusNotFound, "unknown job kind")
		return
	}
	if !s.scheduler.TriggerManual(kind) {
		writeError(s.logger, w, http.StatusConflict, "a job is already running")
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{"job": string(kind), "status": "triggered"})
}

type rescheduleRequest struct {
	SyncMinute    *int    `json:"sync_minute"`
	ScrapeDailyAt *string `json:"scrape_daily_at"`
}

func (s *Server) reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SyncMinute == nil && req.ScrapeDailyAt == nil {
		writeError(s.logger, w, http.StatusBadRequest, "nothing to reschedule")
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	cfg := s.cfg
	if req.SyncMinute != nil {
		cfg.Sync.Minute = *req.SyncMinute
	}
	if req.ScrapeDailyAt != nil {
		cfg.Scrape.DailyAt = *req.ScrapeDailyAt
	}
	if err := cfg.Validate(); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.scheduler.Reschedule(cfg); err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	s.cfg = cfg
	writeJSON(s.logger, w, http.StatusOK, map[string]string{
		"sync_spec":   cfg.SyncCronSpec(),
		"scrape_spec": cfg.ScrapeCronSpec(),
	})
}

func (s *Server) getPhones(w http.ResponseWriter, r *http.Request) {
	phones, err := s.store.GetPhones(r.Context(), r.URL.Query().Get("cluster"))
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to fetch phones")
		return
	}
	if phones == nil {
		phones = []inventory.Phone{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"phones": phones})
}

func (s *Server) getScrape(w http.ResponseWriter, r *http.Request) {
	deviceName := chi.URLParam(r, "devicename")
	scrape, ok, err := s.store.GetScrape(r.Context(), deviceName)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to fetch scrape record")
		return
	}
	if !ok {
		writeError(s.logger, w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, scrape)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(logger, w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(logger, w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
