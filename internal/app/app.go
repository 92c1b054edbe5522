package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/copysmith/internal/analysis"
	"github.com/foxzi/copysmith/internal/api"
	"github.com/foxzi/copysmith/internal/auth"
	"github.com/foxzi/copysmith/internal/config"
	"github.com/foxzi/copysmith/internal/db"
	"github.com/foxzi/copysmith/internal/events"
	"github.com/foxzi/copysmith/internal/extract"
	"github.com/foxzi/copysmith/internal/generate"
	"github.com/foxzi/copysmith/internal/lock"
	"github.com/foxzi/copysmith/internal/metrics"
	"github.com/foxzi/copysmith/internal/ratelimit"
	"github.com/foxzi/copysmith/internal/repository"
	"github.com/foxzi/copysmith/internal/source"
)

// App is the main application
type App struct {
	config        *config.Config
	db            *db.DB
	service       *analysis.Service
	apiServer     *api.Server
	metricsServer *metrics.Server
	collector     *metrics.Collector
	recorder      *events.Recorder
	limiterDB     *bolt.DB
	rateLimiter   *ratelimit.Limiter
	guard         *lock.RedisGuard
	logger        *slog.Logger
}

// Options tweaks how New builds the application
type Options struct {
	Version string
	// Logger overrides the logger built from config
	Logger *slog.Logger
}

// New creates a new application
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = SetupLogger(cfg.Logging)
	}

	a := &App{config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	store, err := db.Open(db.Options{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = store

	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)

		storagePath := ""
		if cfg.Database.Driver == db.DriverSQLite {
			storagePath = cfg.Database.Path
		}
		a.collector = metrics.NewCollector(m, storagePath, 15*time.Second)
		a.metricsServer = metrics.NewServer(m, metrics.ServerOptions{
			Addr:       cfg.Metrics.ListenAddr,
			Path:       cfg.Metrics.Path,
			AllowedIPs: cfg.Metrics.AllowedIPs,
		}, logger)
		logger.Info("metrics enabled", "addr", cfg.Metrics.ListenAddr)
	}

	contentSource, err := newContentSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}
	analyticsRepo := repository.NewAnalyticsRepository(store)
	a.recorder = events.NewRecorder(analyticsRepo, publisher, cfg.Events.Sink, logger)
	if publisher != nil {
		logger.Info("analytics fan-out enabled", "sink", cfg.Events.Sink)
	}

	deps := analysis.Deps{
		Pages:     repository.NewLandingPageRepository(store),
		Templates: repository.NewTemplateRepository(store),
		Events:    analyticsRepo,
		Recorder:  a.recorder,
		Source:    contentSource,
		Logger:    logger,
	}

	if cfg.RateLimit.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.RateLimit.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create rate limit directory: %w", err)
		}
		a.limiterDB, err = bolt.Open(cfg.RateLimit.Path, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open rate limit store: %w", err)
		}
		a.rateLimiter, err = ratelimit.NewLimiter(a.limiterDB, limiterConfig(cfg.RateLimit), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		deps.Limiter = a.rateLimiter
		logger.Info("rate limiting enabled",
			"per_hour", cfg.RateLimit.AnalysesPerHour,
			"per_day", cfg.RateLimit.AnalysesPerDay,
			"global_per_hour", cfg.RateLimit.GlobalAnalysesPerHour,
			"global_per_day", cfg.RateLimit.GlobalAnalysesPerDay,
		)
	}

	if cfg.Redis.Addr != "" {
		a.guard = lock.NewRedisGuard(lock.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		}, logger)
		deps.Guard = a.guard
		logger.Info("in-flight analysis lock enabled", "redis", cfg.Redis.Addr)
	}

	a.service = analysis.NewService(deps)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	a.apiServer = api.NewServer(a.service, verifier, &cfg.API, api.Options{
		Limiter: a.rateLimiter,
		Version: opts.Version,
	}, logger)

	ok = true
	return a, nil
}

// Service returns the analysis service
func (a *App) Service() *analysis.Service {
	return a.service
}

// newContentSource builds the fixture source or the live extraction and
// generation chain
func newContentSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (source.ContentSource, error) {
	if cfg.Source.Mode == "fixture" {
		logger.Info("using fixture content source")
		return source.NewFixture(), nil
	}

	var extractor extract.Extractor
	switch cfg.Extraction.Provider {
	case "direct":
		extractor = extract.NewDirectClient(cfg.Extraction.Timeout)
	default:
		extractor = extract.NewTavilyClient(extract.TavilyOptions{
			BaseURL:     cfg.Extraction.BaseURL,
			APIKey:      cfg.Extraction.APIKey,
			SearchDepth: cfg.Extraction.SearchDepth,
			MaxResults:  cfg.Extraction.MaxResults,
			Timeout:     cfg.Extraction.Timeout,
		})
	}

	model, err := generate.NewModel(ctx, generate.Options{
		Provider: cfg.Generation.Provider,
		APIKey:   cfg.Generation.APIKey,
		Model:    cfg.Generation.Model,
		BaseURL:  cfg.Generation.BaseURL,
		Timeout:  cfg.Generation.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation model: %w", err)
	}

	logger.Info("using live content source",
		"extraction", cfg.Extraction.Provider,
		"generation", cfg.Generation.Provider,
		"model", cfg.Generation.Model,
	)
	return source.NewLive(extractor, generate.NewWriter(model), logger), nil
}

func limiterConfig(rl config.RateLimitConfig) *ratelimit.Config {
	cfg := &ratelimit.Config{FlushInterval: rl.FlushInterval}
	if rl.HasUserLimit() {
		cfg.PerUser = &ratelimit.LimitConfig{
			AnalysesPerHour: rl.AnalysesPerHour,
			AnalysesPerDay:  rl.AnalysesPerDay,
		}
	}
	if rl.HasGlobalLimit() {
		cfg.Global = &ratelimit.LimitConfig{
			AnalysesPerHour: rl.GlobalAnalysesPerHour,
			AnalysesPerDay:  rl.GlobalAnalysesPerDay,
		}
	}
	return cfg
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Sink {
	case "amqp":
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
		}
		return p, nil
	case "kafka":
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	default:
		return nil, nil
	}
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting copysmith",
		"api_addr", a.config.API.ListenAddr,
		"source", a.config.Source.Mode,
		"database", a.config.Database.Driver,
	)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)

	if a.collector != nil {
		a.collector.Start(ctx)
	}
	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop accepting requests before closing what they use
	if a.apiServer != nil {
		if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("api server shutdown error", "error", err)
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	a.close()
	a.logger.Info("shutdown complete")
	return nil
}

// close releases storage and broker connections
func (a *App) close() {
	if a.collector != nil {
		a.collector.Stop()
		a.collector = nil
	}

	// Stop rate limiter (persists counters)
	if a.rateLimiter != nil {
		if err := a.rateLimiter.Stop(); err != nil {
			a.logger.Error("rate limiter stop error", "error", err)
		}
		a.rateLimiter = nil
	}
	if a.limiterDB != nil {
		if err := a.limiterDB.Close(); err != nil {
			a.logger.Error("rate limit store close error", "error", err)
		}
		a.limiterDB = nil
	}

	if a.guard != nil {
		if err := a.guard.Close(); err != nil {
			a.logger.Error("redis close error", "error", err)
		}
		a.guard = nil
	}

	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.Error("event publisher close error", "error", err)
		}
		a.recorder = nil
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("database close error", "error", err)
		}
		a.db = nil
	}
}

// SetupLogger creates a logger based on configuration
func SetupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
