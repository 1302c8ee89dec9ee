// Package config loads and validates the service configuration at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
//
// Sources, lowest precedence first:
//  1. defaults (Default())
//  2. a YAML file, when SCORING_CONFIG names one
//  3. environment variables with the SCORING_ prefix (SCORING_BATCH_WORKERS → batch_workers)
//
// A .env file in the working directory is read into the environment first,
// without overriding variables that are already set.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SCORING_"
	envFileVar = "SCORING_CONFIG"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Env  string `koanf:"env"`  // "development" | "staging" | "production"
	Port string `koanf:"port"` // default "8080"

	// ── Database ──────────────────────────────────────────────────────────────
	DatabaseURL string `koanf:"database_url"`
	AutoMigrate bool   `koanf:"auto_migrate"`

	// ── Anthropic ─────────────────────────────────────────────────────────────
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	AnthropicModel  string `koanf:"anthropic_model"`

	// ── DeepSeek ──────────────────────────────────────────────────────────────
	// Optional. With both keys set, DeepSeek is the fallback when the
	// Anthropic call fails. With neither, enrichment is disabled.
	DeepSeekAPIKey  string `koanf:"deepseek_api_key"`
	DeepSeekModel   string `koanf:"deepseek_model"`
	DeepSeekBaseURL string `koanf:"deepseek_base_url"`

	// ── Enrichment ────────────────────────────────────────────────────────────
	EnrichTimeout       time.Duration `koanf:"enrich_timeout"`
	EnrichRatePerSecond float64       `koanf:"enrich_rate_per_second"`
	EnrichBurst         int           `koanf:"enrich_burst"`

	// ── Batch runs ────────────────────────────────────────────────────────────
	BatchChunkSize     int           `koanf:"batch_chunk_size"`
	BatchErrorLogLimit int           `koanf:"batch_error_log_limit"`
	BatchWorkers       int           `koanf:"batch_workers"`
	BatchQueueSize     int           `koanf:"batch_queue_size"`
	BatchMaxRetries    int           `koanf:"batch_max_retries"`
	BatchRetryBackoff  time.Duration `koanf:"batch_retry_backoff"`
	ReapInterval       time.Duration `koanf:"reap_interval"`
	StaleJobAfter      time.Duration `koanf:"stale_job_after"`
}

// Default returns the configuration used when nothing overrides it.
// DATABASE_URL seeds database_url so the conventional variable works too.
func Default() Config {
	return Config{
		Env:                 "development",
		Port:                "8080",
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		AnthropicModel:      "claude-sonnet-4-5",
		DeepSeekModel:       "deepseek-chat",
		DeepSeekBaseURL:     "https://api.deepseek.com",
		EnrichTimeout:       20 * time.Second,
		EnrichRatePerSecond: 2,
		EnrichBurst:         4,
		BatchChunkSize:      50,
		BatchErrorLogLimit:  50,
		BatchWorkers:        2,
		BatchQueueSize:      8,
		BatchMaxRetries:     3,
		BatchRetryBackoff:   time.Second,
		ReapInterval:        5 * time.Minute,
		StaleJobAfter:       time.Hour,
	}
}

// Load layers defaults, the optional YAML file and the environment, and
// returns a validated Config.
func Load() (*Config, error) {
	loadDotEnv(".env")

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// Flat keys: SCORING_BATCH_CHUNK_SIZE → batch_chunk_size.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, cfg.validate()
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("missing required setting: database_url"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}

	positive := map[string]int{
		"batch_chunk_size":      c.BatchChunkSize,
		"batch_error_log_limit": c.BatchErrorLogLimit,
		"batch_workers":         c.BatchWorkers,
		"batch_queue_size":      c.BatchQueueSize,
		"batch_max_retries":     c.BatchMaxRetries,
		"enrich_burst":          c.EnrichBurst,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	durations := map[string]time.Duration{
		"enrich_timeout":      c.EnrichTimeout,
		"reap_interval":       c.ReapInterval,
		"stale_job_after":     c.StaleJobAfter,
		"batch_retry_backoff": c.BatchRetryBackoff,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if c.EnrichRatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("enrich_rate_per_second must not be negative, got %g", c.EnrichRatePerSecond))
	}
	if c.AnthropicAPIKey != "" && c.AnthropicModel == "" {
		errs = append(errs, errors.New("anthropic_model is required when anthropic_api_key is set"))
	}
	if c.DeepSeekAPIKey != "" && c.DeepSeekModel == "" {
		errs = append(errs, errors.New("deepseek_model is required when deepseek_api_key is set"))
	}

	return errors.Join(errs...)
}

// ─── DOT-ENV LOADER ──────────────────────────────────────────────────────────

// loadDotEnv reads key=value pairs from path and sets them in the environment,
// but only for keys that are not already set, so real env vars always win.
// Missing file, blank lines, and #-comments are all silently ignored.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		// Strip optional surrounding quotes: KEY="value" or KEY='value'
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, value)
		}
	}
}
