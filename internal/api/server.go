package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/copysmith/internal/analysis"
	"github.com/foxzi/copysmith/internal/auth"
	"github.com/foxzi/copysmith/internal/config"
	"github.com/foxzi/copysmith/internal/metrics"
	"github.com/foxzi/copysmith/internal/ratelimit"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	service    *analysis.Service
	verifier   *auth.Verifier
	limiter    *ratelimit.Limiter
	config     *config.APIConfig
	logger     *slog.Logger
	version    string
	startTime  time.Time
}

// Options holds the optional parts of a Server
type Options struct {
	// Limiter backs the usage endpoint. Nil when rate limiting is disabled.
	Limiter *ratelimit.Limiter
	Version string
}

// NewServer creates a new API server
func NewServer(svc *analysis.Service, verifier *auth.Verifier, cfg *config.APIConfig, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{
		router:    chi.NewRouter(),
		service:   svc,
		verifier:  verifier,
		limiter:   opts.Limiter,
		config:    cfg,
		logger:    logger.With("component", "api"),
		version:   opts.Version,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/analyze", s.handleAnalyze)
		r.Post("/regenerate", s.handleRegenerate)
		r.Get("/usage", s.handleUsage)
		r.Get("/analytics/summary", s.handleSummary)

		r.Route("/landing-pages", func(r chi.Router) {
			r.Get("/", s.handleLandingPageList)
			r.Get("/{id}", s.handleLandingPageGet)
			r.Delete("/{id}", s.handleLandingPageDelete)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleTemplateList)
			r.Post("/", s.handleTemplateCreate)
			r.Get("/{id}", s.handleTemplateGet)
			r.Put("/{id}", s.handleTemplateUpdate)
			r.Delete("/{id}", s.handleTemplateDelete)
			r.Post("/{id}/duplicate", s.handleTemplateDuplicate)
			r.Post("/{id}/preview", s.handleTemplatePreview)
		})
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
