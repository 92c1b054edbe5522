package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Source     SourceConfig     `yaml:"source"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Generation GenerationConfig `yaml:"generation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"` // Per-user analysis limits
	Redis      RedisConfig      `yaml:"redis"`      // In-flight analysis lock
	Events     EventsConfig     `yaml:"events"`     // Analytics fan-out
	Metrics    MetricsConfig    `yaml:"metrics"`    // Prometheus metrics configuration
	Logging    LoggingConfig    `yaml:"logging"`
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"` // Max HTTP header size (default: 1MB)
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // HTTP read timeout (default: 30s)
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // HTTP write timeout (default: 120s, analyses are slow)
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // HTTP idle timeout (default: 60s)
}

// AuthConfig contains bearer token settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`    // Optional, checked when set
	TokenTTL  time.Duration `yaml:"token_ttl"` // Lifetime of tokens minted by the CLI
}

// DatabaseConfig contains datastore settings
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite or postgres
	Path         string `yaml:"path"`   // sqlite file path
	DSN          string `yaml:"dsn"`    // postgres connection string
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// SourceConfig selects how landing pages are turned into content records
type SourceConfig struct {
	Mode string `yaml:"mode"` // live or fixture
}

// ExtractionConfig contains content extraction service settings
type ExtractionConfig struct {
	Provider    string        `yaml:"provider"` // tavily or direct
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	SearchDepth string        `yaml:"search_depth"`
	MaxResults  int           `yaml:"max_results"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GenerationConfig contains text generation service settings
type GenerationConfig struct {
	Provider string        `yaml:"provider"` // openai, gemini or ollama
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RateLimitConfig contains analysis limits. Zero disables a window.
type RateLimitConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Path            string `yaml:"path"` // bbolt file with persisted counters
	AnalysesPerHour int    `yaml:"analyses_per_hour"`
	AnalysesPerDay  int    `yaml:"analyses_per_day"`

	// Shared by all users
	GlobalAnalysesPerHour int `yaml:"global_analyses_per_hour"`
	GlobalAnalysesPerDay  int `yaml:"global_analyses_per_day"`

	FlushInterval time.Duration `yaml:"flush_interval"`
}

// HasUserLimit reports whether any per-user window is set
func (r RateLimitConfig) HasUserLimit() bool {
	return r.AnalysesPerHour > 0 || r.AnalysesPerDay > 0
}

// HasGlobalLimit reports whether any global window is set
func (r RateLimitConfig) HasGlobalLimit() bool {
	return r.GlobalAnalysesPerHour > 0 || r.GlobalAnalysesPerDay > 0
}

// RedisConfig contains Redis settings. Empty Addr disables the lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// EventsConfig contains analytics fan-out settings
type EventsConfig struct {
	Sink  string      `yaml:"sink"` // none, amqp or kafka
	AMQP  AMQPConfig  `yaml:"amqp"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// AMQPConfig contains RabbitMQ settings
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// KafkaConfig contains Kafka settings
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"` // Default: :9090
	Path       string   `yaml:"path"`        // Default: /metrics
	AllowedIPs []string `yaml:"allowed_ips"` // IP addresses/CIDRs allowed to access metrics
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv fills secrets from the environment when the file leaves them empty
func (c *Config) applyEnv() {
	envs := []struct {
		key string
		dst *string
	}{
		{"COPYSMITH_JWT_SECRET", &c.Auth.JWTSecret},
		{"TAVILY_API_KEY", &c.Extraction.APIKey},
		{"DATABASE_DSN", &c.Database.DSN},
		{"REDIS_ADDR", &c.Redis.Addr},
		{"REDIS_PASSWORD", &c.Redis.Password},
		{"AMQP_URL", &c.Events.AMQP.URL},
	}
	for _, e := range envs {
		if *e.dst != "" {
			continue
		}
		if v := os.Getenv(e.key); v != "" {
			*e.dst = v
		}
	}

	if c.Generation.APIKey == "" {
		switch c.Generation.Provider {
		case "gemini":
			c.Generation.APIKey = os.Getenv("GEMINI_API_KEY")
		case "ollama":
		default:
			c.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.MaxHeaderBytes == 0 {
		c.API.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 120 * time.Second
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "/var/lib/copysmith/copysmith.db"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}

	if c.Source.Mode == "" {
		c.Source.Mode = "live"
	}

	if c.Extraction.Provider == "" {
		c.Extraction.Provider = "tavily"
	}
	if c.Extraction.BaseURL == "" {
		c.Extraction.BaseURL = "https://api.tavily.com"
	}
	if c.Extraction.SearchDepth == "" {
		c.Extraction.SearchDepth = "advanced"
	}
	if c.Extraction.MaxResults == 0 {
		c.Extraction.MaxResults = 5
	}
	if c.Extraction.Timeout == 0 {
		c.Extraction.Timeout = 60 * time.Second
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = "openai"
	}
	if c.Generation.Model == "" {
		switch c.Generation.Provider {
		case "gemini":
			c.Generation.Model = "gemini-2.0-flash"
		case "ollama":
			c.Generation.Model = "llama3.1"
		default:
			c.Generation.Model = "gpt-3.5-turbo"
		}
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 60 * time.Second
	}

	if c.RateLimit.Path == "" {
		c.RateLimit.Path = "/var/lib/copysmith/ratelimit.db"
	}
	if c.RateLimit.FlushInterval == 0 {
		c.RateLimit.FlushInterval = 10 * time.Second
	}

	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 2 * time.Minute
	}

	if c.Events.Sink == "" {
		c.Events.Sink = "none"
	}
	if c.Events.AMQP.Exchange == "" {
		c.Events.AMQP.Exchange = "copysmith.events"
	}
	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = "copysmith.analytics"
	}

	// Metrics defaults
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("invalid database.driver: %s (must be sqlite or postgres)", c.Database.Driver)
	}

	switch c.Source.Mode {
	case "fixture":
	case "live":
		if err := c.validateLive(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid source.mode: %s (must be live or fixture)", c.Source.Mode)
	}

	if c.RateLimit.Enabled && !c.RateLimit.HasUserLimit() && !c.RateLimit.HasGlobalLimit() {
		return fmt.Errorf("rate_limit requires a per-user or global limit when enabled")
	}

	switch c.Events.Sink {
	case "none":
	case "amqp":
		if c.Events.AMQP.URL == "" {
			return fmt.Errorf("events.amqp.url is required when sink is amqp")
		}
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			return fmt.Errorf("events.kafka.brokers must not be empty when sink is kafka")
		}
	default:
		return fmt.Errorf("invalid events.sink: %s (must be none, amqp or kafka)", c.Events.Sink)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// validateLive validates external service settings used by the live source
func (c *Config) validateLive() error {
	switch c.Extraction.Provider {
	case "tavily":
		if c.Extraction.APIKey == "" {
			return fmt.Errorf("extraction.api_key is required for tavily (or set TAVILY_API_KEY)")
		}
	case "direct":
	default:
		return fmt.Errorf("invalid extraction.provider: %s (must be tavily or direct)", c.Extraction.Provider)
	}

	switch c.Generation.Provider {
	case "openai", "gemini":
		if c.Generation.APIKey == "" {
			return fmt.Errorf("generation.api_key is required for %s", c.Generation.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("invalid generation.provider: %s (must be openai, gemini or ollama)", c.Generation.Provider)
	}

	return nil
}
