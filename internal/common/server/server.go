// Package server exposes the operational endpoints and the query API over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clientatech-agent/internal/common/cache"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/models"
)

// QueryHandler answers one question. Errors must carry user-safe messages.
type QueryHandler interface {
	Handle(ctx context.Context, q models.Query) (*models.Response, error)
}

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

type Server struct {
	queries QueryHandler
	store   cache.Store
	checks  map[string]Check
	timeout time.Duration
	logger  logger.Logger
	server  *http.Server
}

// New builds a server. store may be nil, in which case cache purging is not
// routed. checks are run by /ready.
func New(queries QueryHandler, store cache.Store, checks map[string]Check, requestTimeout time.Duration, log logger.Logger) *Server {
	return &Server{
		queries: queries,
		store:   store,
		checks:  checks,
		timeout: requestTimeout,
		logger:  log.With(map[string]interface{}{"component": "http"}),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}
		r.Post("/query", s.handleQuery)
		if s.store != nil {
			r.Delete("/cache", s.handlePurge)
		}
	})
	return r
}

// Start blocks serving addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", map[string]interface{}{"addr": addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"requestId":   middleware.GetReqID(r.Context()),
		})
	})
}
