package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-reliability.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis backs the rate limiter counters. Empty host falls back to in-process counters.
	Redis RedisConfig `yaml:"redis"`

	Reliability ReliabilityConfig `yaml:"reliability"`

	// Upstream model used for improvement suggestions during provisional scoring.
	AI AIConfig `yaml:"ai"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_reliability"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as required by golang-migrate.
func (c *DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisConfig holds Redis connection configuration.
// An empty Host keeps rate limit counters in process memory.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// OpTimeout bounds each counter read or write.
	OpTimeout time.Duration `yaml:"op_timeout" env:"REDIS_OP_TIMEOUT" env-default:"250ms"`
	PoolSize  int           `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"10"`
}

// Addr returns host:port for the Redis client.
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReliabilityConfig holds the settings that govern scoring and the AI suggestion path.
type ReliabilityConfig struct {
	// HourlyLimit caps suggestion calls per service per hour. 0 means unlimited.
	HourlyLimit int `yaml:"hourly_limit" env:"RELIABILITY_HOURLY_LIMIT" env-default:"100"`
	// DailyCostLimit caps estimated suggestion spend per day. 0 means unlimited.
	DailyCostLimit float64 `yaml:"daily_cost_limit" env:"RELIABILITY_DAILY_COST_LIMIT" env-default:"0"`
	// CostPerSuggestion is the estimated spend recorded for each upstream call.
	CostPerSuggestion float64 `yaml:"cost_per_suggestion" env:"RELIABILITY_COST_PER_SUGGESTION" env-default:"0.002"`
	// EnableMetrics turns on prometheus collection and hourly limit enforcement.
	EnableMetrics bool `yaml:"enable_metrics" env:"RELIABILITY_ENABLE_METRICS" env-default:"true"`
	// SuggestionTimeout bounds each upstream suggestion call.
	SuggestionTimeout time.Duration `yaml:"suggestion_timeout" env:"RELIABILITY_SUGGESTION_TIMEOUT" env-default:"5s"`
	// ProfilesPath optionally points at a YAML file of model scoring profiles.
	ProfilesPath string `yaml:"profiles_path" env:"RELIABILITY_PROFILES_PATH" env-default:""`
}

// AIConfig selects and configures the suggestion provider.
type AIConfig struct {
	// Provider is one of "none", "openai" or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"none"`
	BaseURL  string `yaml:"base_url" env:"AI_BASE_URL" env-default:""` // Empty uses the provider default
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	// MaxTokens is used by providers that require an explicit output budget.
	MaxTokens int `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"512"`
	// BreakerThreshold is the consecutive failure count that opens the circuit.
	BreakerThreshold int `yaml:"breaker_threshold" env:"AI_BREAKER_THRESHOLD" env-default:"5"`
	// BreakerResetAfter is how long an open circuit waits before a trial call.
	BreakerResetAfter time.Duration `yaml:"breaker_reset_after" env:"AI_BREAKER_RESET_AFTER" env-default:"30s"`
}

// IsEnabled returns true if a suggestion provider is configured.
func (c *AIConfig) IsEnabled() bool {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	return p != "" && p != "none"
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; defaults and environment variables apply.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.resolveDockerHosts()

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.validateReliability(); err != nil {
		return nil, fmt.Errorf("invalid reliability configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

func (c *Config) validateReliability() error {
	r := c.Reliability
	if r.HourlyLimit < 0 {
		return fmt.Errorf("hourly_limit must be >= 0, got %d", r.HourlyLimit)
	}
	if r.DailyCostLimit < 0 {
		return fmt.Errorf("daily_cost_limit must be >= 0, got %v", r.DailyCostLimit)
	}
	if r.CostPerSuggestion < 0 {
		return fmt.Errorf("cost_per_suggestion must be >= 0, got %v", r.CostPerSuggestion)
	}

	switch strings.ToLower(strings.TrimSpace(c.AI.Provider)) {
	case "", "none", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	return nil
}
