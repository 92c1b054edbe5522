package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/foxzi/copysmith/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Auth:     config.AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef"},
		Source:   config.SourceConfig{Mode: "fixture"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "copysmith.db")},
		RateLimit: config.RateLimitConfig{
			Enabled:         true,
			Path:            filepath.Join(dir, "ratelimit.db"),
			AnalysesPerHour: 1,
		},
	}
	cfg.API.ListenAddr = "127.0.0.1:0"
	return cfg
}

func TestNewWithFixtureSource(t *testing.T) {
	cfg := testConfig(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, Options{Logger: logger, Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	res, err := a.Service().Analyze(ctx, "U", "https://example.com/webinar", false)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Page.AnalyzedData.Tone == "" {
		t.Error("fixture analysis has no tone")
	}

	// the second fresh analysis exceeds the hourly limit of one
	if _, err := a.Service().Analyze(ctx, "U", "https://example.com/product", false); err == nil {
		t.Error("expected rate limit error")
	}

	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestNewFailsOnBadDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(context.Background(), cfg, Options{Logger: logger}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		logger := SetupLogger(config.LoggingConfig{Level: tt.level, Format: "json"})
		if !logger.Enabled(context.Background(), tt.want) {
			t.Errorf("level %s: %v not enabled", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-4) {
			t.Errorf("level %s: lower level enabled", tt.level)
		}
	}
}

func TestLimiterConfig(t *testing.T) {
	got := limiterConfig(config.RateLimitConfig{AnalysesPerDay: 5})
	if got.PerUser == nil || got.PerUser.AnalysesPerDay != 5 {
		t.Errorf("PerUser = %+v, want 5/day", got.PerUser)
	}
	if got.Global != nil {
		t.Errorf("Global = %+v, want nil", got.Global)
	}

	got = limiterConfig(config.RateLimitConfig{GlobalAnalysesPerHour: 50})
	if got.PerUser != nil {
		t.Errorf("PerUser = %+v, want nil", got.PerUser)
	}
	if got.Global == nil || got.Global.AnalysesPerHour != 50 {
		t.Errorf("Global = %+v, want 50/hour", got.Global)
	}
}

func TestNewWithGlobalLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.AnalysesPerHour = 0
	cfg.RateLimit.GlobalAnalysesPerHour = 1

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, Options{Logger: logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Shutdown(context.Background())

	ctx := context.Background()
	if _, err := a.Service().Analyze(ctx, "U1", "https://example.com", false); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	// the global window is shared, so another user is refused too
	if _, err := a.Service().Analyze(ctx, "U2", "https://example.com", false); err == nil {
		t.Error("expected global rate limit error")
	}
}
