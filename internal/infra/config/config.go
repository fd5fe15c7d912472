package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// encPrefix marks a config value as encrypted at rest. Encrypted values are
// decrypted with the passphrase from MORIUS_CONFIG_KEY during Load.
const encPrefix = "enc:"

// Config is the top-level application configuration.
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Limits  LimitsConfig  `yaml:"limits"`
	Breaker BreakerConfig `yaml:"breaker"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// ClientConfig holds connection settings for the generation service.
type ClientConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// PoolConfig holds HTTP connection pool settings.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// LimitsConfig holds client-side throttling settings.
type LimitsConfig struct {
	// RequestsPerMin caps generation calls per minute; 0 disables the limiter.
	RequestsPerMin float64 `yaml:"requests_per_min"`
	BurstSize      int     `yaml:"burst_size"`
	// PromptTokenBudget rejects requests whose estimated prompt size exceeds
	// the budget before any network call; 0 disables the check.
	PromptTokenBudget int    `yaml:"prompt_token_budget"`
	TokenEncoding     string `yaml:"token_encoding"`
}

// BreakerConfig configures the circuit breaker around stream initiation.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with all defaults applied.
func Defaults() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:     "http://localhost:8000",
			ConnTimeout: 10 * time.Second,
			RespTimeout: 300 * time.Second,
		},
		Limits: LimitsConfig{
			BurstSize:     1,
			TokenEncoding: "cl100k_base",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads, expands, decrypts, and validates the config at path.
// A missing file is not an error: defaults plus env overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// ${VAR} references are expanded before parsing so tokens can live in
	// the environment instead of the file.
	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if passphrase := os.Getenv("MORIUS_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides maps MORIUS_* env vars to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MORIUS_BASE_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("MORIUS_TOKEN"); v != "" {
		cfg.Client.Token = v
	}
	if v := os.Getenv("MORIUS_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("MORIUS_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("MORIUS_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("MORIUS_REQUESTS_PER_MIN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limits.RequestsPerMin = f
		}
	}
}

// decryptSecrets decrypts all enc:-prefixed values in place.
func decryptSecrets(cfg *Config, passphrase string) error {
	if strings.HasPrefix(cfg.Client.Token, encPrefix) {
		plain, err := DecryptValue(strings.TrimPrefix(cfg.Client.Token, encPrefix), passphrase)
		if err != nil {
			return fmt.Errorf("client token: %w", err)
		}
		cfg.Client.Token = plain
	}
	return nil
}

// Validate checks the configuration for invalid combinations.
func Validate(cfg *Config) error {
	if cfg.Client.BaseURL == "" {
		return fmt.Errorf("client.base_url must not be empty")
	}
	if !strings.HasPrefix(cfg.Client.BaseURL, "http://") && !strings.HasPrefix(cfg.Client.BaseURL, "https://") {
		return fmt.Errorf("client.base_url must start with http:// or https://: %q", cfg.Client.BaseURL)
	}
	if strings.HasPrefix(cfg.Client.Token, encPrefix) {
		return fmt.Errorf("client.token is encrypted but MORIUS_CONFIG_KEY is not set")
	}
	if cfg.Limits.RequestsPerMin < 0 {
		return fmt.Errorf("limits.requests_per_min must not be negative")
	}
	if cfg.Limits.RequestsPerMin > 0 && cfg.Limits.BurstSize < 1 {
		return fmt.Errorf("limits.burst_size must be at least 1 when rate limiting is enabled")
	}
	if cfg.Limits.PromptTokenBudget < 0 {
		return fmt.Errorf("limits.prompt_token_budget must not be negative")
	}
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logger.level %q is not a valid level", cfg.Logger.Level)
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
	return nil
}
