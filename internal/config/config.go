// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // non-generate routes
	GenerateTimeout time.Duration `yaml:"generate_timeout"` // synchronous /generate
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AIConfig struct {
	GeminiKey       string            `yaml:"gemini_key"`
	GeminiURL       string            `yaml:"gemini_url"`
	OpenAIKey       string            `yaml:"openai_key"`
	OpenAIBaseURL   string            `yaml:"openai_base_url"`
	DefaultModel    string            `yaml:"default_model"`
	ModelProviders  map[string]string `yaml:"model_providers"` // model -> provider
	ConcurrentLimit int               `yaml:"concurrent_limit"`
	MaxOutputTokens int32             `yaml:"max_output_tokens"`
	RetryAttempts   int               `yaml:"retry_attempts"`
}

type GenerationConfig struct {
	BatchSize         int     `yaml:"batch_size"`
	ScoringBatchSize  int     `yaml:"scoring_batch_size"`
	OverGenerateRatio float64 `yaml:"over_generate_ratio"`
	Temperature       float32 `yaml:"temperature"`
}

type JobsConfig struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	MaxAge          time.Duration `yaml:"max_age"`
	MaxJobs         int           `yaml:"max_jobs"`
	SubmitLimit     int           `yaml:"submit_limit"` // per client per window, 0 disables
	SubmitWindow    time.Duration `yaml:"submit_window"`
}

type SERankingConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AdminConfig struct {
	APIKey string `yaml:"api_key"`
}

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	AI         AIConfig         `yaml:"ai"`
	Generation GenerationConfig `yaml:"generation"`
	Jobs       JobsConfig       `yaml:"jobs"`
	SERanking  SERankingConfig  `yaml:"seranking"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Admin      AdminConfig      `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path. A missing file is not an error:
// the service can run from defaults and environment variables alone.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	env := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	env(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	env(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	env(&cfg.SERanking.APIKey, "SERANKING_API_KEY")
	env(&cfg.Database.URL, "DATABASE_URL")
	env(&cfg.Redis.URL, "REDIS_URL")
	env(&cfg.Admin.APIKey, "ADMIN_API_KEY")
	env(&cfg.HTTP.Addr, "HTTP_ADDR")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8000"
	}
	cfg.HTTP.RequestTimeout = orDuration(cfg.HTTP.RequestTimeout, 30*time.Second)
	cfg.HTTP.GenerateTimeout = orDuration(cfg.HTTP.GenerateTimeout, 5*time.Minute)
	cfg.HTTP.ShutdownTimeout = orDuration(cfg.HTTP.ShutdownTimeout, 15*time.Second)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gemini-2.5-flash"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 8192
	}
	if cfg.AI.RetryAttempts <= 0 {
		cfg.AI.RetryAttempts = 3
	}
	if cfg.AI.OpenAIBaseURL == "" {
		cfg.AI.OpenAIBaseURL = "https://api.openai.com/v1"
	}

	if cfg.Generation.BatchSize <= 0 {
		cfg.Generation.BatchSize = 15
	}
	if cfg.Generation.ScoringBatchSize <= 0 {
		cfg.Generation.ScoringBatchSize = 25
	}
	if cfg.Generation.OverGenerateRatio <= 1 {
		cfg.Generation.OverGenerateRatio = 2.5
	}
	if cfg.Generation.Temperature <= 0 {
		cfg.Generation.Temperature = 0.7
	}

	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.QueueSize <= 0 {
		cfg.Jobs.QueueSize = cfg.Jobs.Workers * 4
	}
	cfg.Jobs.CleanupInterval = orDuration(cfg.Jobs.CleanupInterval, time.Hour)
	cfg.Jobs.MaxAge = orDuration(cfg.Jobs.MaxAge, 24*time.Hour)
	if cfg.Jobs.MaxJobs <= 0 {
		cfg.Jobs.MaxJobs = 1000
	}
	cfg.Jobs.SubmitWindow = orDuration(cfg.Jobs.SubmitWindow, time.Minute)
}

// Validate performs minimal sanity checks. Providers are optional at load
// time; requests fail with ErrNoAIProvider when none is configured.
func (c *Config) Validate() error {
	if c.Jobs.SubmitLimit < 0 {
		return errors.New("jobs.submit_limit must not be negative")
	}
	if c.Jobs.SubmitLimit > 0 && c.Redis.URL == "" {
		return errors.New("jobs.submit_limit requires redis.url")
	}
	return nil
}

// HasAIProvider reports whether at least one model provider has a key.
func (c *Config) HasAIProvider() bool {
	return c.AI.GeminiKey != "" || c.AI.OpenAIKey != ""
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
