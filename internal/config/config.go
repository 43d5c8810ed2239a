package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"sunto-go/internal/ingest"
)

// Config represents runtime configuration for the service.
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`

	AssemblyAI ProviderConfig `yaml:"assemblyai"`
	OpenAI     ProviderConfig `yaml:"openai"`

	Polling PollingConfig `yaml:"polling"`

	// ProviderRetries bounds retries of upload and job creation.
	// Zero means a single attempt.
	ProviderRetries uint64        `yaml:"provider_retries"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	// UploadTimeout bounds a whole media upload. Zero means only the
	// request context bounds it.
	UploadTimeout time.Duration `yaml:"upload_timeout"`

	Limits ingest.Limits `yaml:"limits"`
}

type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model,omitempty"`
}

type PollingConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		Environment: "local",
		LogLevel:    "info",
		AssemblyAI: ProviderConfig{
			BaseURL: "https://api.assemblyai.com/v2",
		},
		OpenAI: ProviderConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Polling: PollingConfig{
			Interval:    5 * time.Second,
			MaxAttempts: 60,
		},
		HTTPTimeout:   60 * time.Second,
		UploadTimeout: 30 * time.Minute,
		Limits:        ingest.DefaultLimits(),
	}
}

// Load reads .env (when present), then the optional YAML file named by
// CONFIG_FILE, then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Port, "PORT")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFile, "LOG_FILE")
	setString(&c.AssemblyAI.APIKey, "ASSEMBLYAI_API_KEY")
	setString(&c.AssemblyAI.BaseURL, "ASSEMBLYAI_BASE_URL")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")

	if v := getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		c.Polling.Interval = d
	}
	if v := getenv("POLL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_MAX_ATTEMPTS: %w", err)
		}
		c.Polling.MaxAttempts = n
	}
	if v := getenv("PROVIDER_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PROVIDER_RETRIES: %w", err)
		}
		c.ProviderRetries = n
	}
	if v := getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := getenv("UPLOAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid UPLOAD_TIMEOUT: %w", err)
		}
		c.UploadTimeout = d
	}
	return nil
}

// Validate checks settings that have no sane fallback. Missing API keys
// are not an error here; each endpoint reports them when called.
func (c Config) Validate() error {
	if c.Polling.Interval < 0 {
		return errors.New("polling interval must not be negative")
	}
	if c.Polling.MaxAttempts <= 0 {
		return errors.New("polling max attempts must be positive")
	}
	for mode, max := range c.Limits {
		if _, err := ingest.ParseMode(string(mode)); err != nil {
			return fmt.Errorf("limits: %w", err)
		}
		if max <= 0 {
			return fmt.Errorf("limits: %s ceiling must be positive", mode)
		}
	}
	return nil
}
