// Package config provides unified configuration loading for the OCR service.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakamer71/owl-ocr/internal/jobs"
)

// Config holds all configuration for the OCR service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Jobs          JobsConfig          `yaml:"jobs"`
	Extract       ExtractConfig       `yaml:"extract"`
	Security      SecurityConfig      `yaml:"security"`
	Observability ObservabilityConfig `yaml:"observability"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// StoreConfig holds job store settings.
type StoreConfig struct {
	Driver    string        `yaml:"driver"` // redis or memory
	Retention time.Duration `yaml:"retention"`
	Redis     RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// JobsConfig holds upload and artifact settings.
type JobsConfig struct {
	UploadDir    string            `yaml:"upload_dir"`
	OutputDir    string            `yaml:"output_dir"`
	OutputFormat jobs.OutputFormat `yaml:"output_format"`
}

// ExtractConfig holds the external extractor commands, one argv per
// category. The first element is the binary, the rest fixed arguments.
type ExtractConfig struct {
	ImageCommand []string `yaml:"image_command"`
	PDFCommand   []string `yaml:"pdf_command"`
	PPTXCommand  []string `yaml:"pptx_command"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitEnabled     bool          `yaml:"rate_limit_enabled"`
	RateLimitWindow      time.Duration `yaml:"rate_limit_window"`
	RateLimitMaxRequests int           `yaml:"rate_limit_max_requests"`
	CORSOrigins          []string      `yaml:"cors_origins"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:    "memory",
			Retention: 24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Jobs: JobsConfig{
			UploadDir:    "./uploads",
			OutputDir:    "./parsed_docs",
			OutputFormat: jobs.OutputFormatJSON,
		},
		Extract: ExtractConfig{
			ImageCommand: []string{"owl-extract-image"},
			PDFCommand:   []string{"owl-extract-pdf"},
			PPTXCommand:  []string{"owl-extract-pptx"},
		},
		Security: SecurityConfig{
			RateLimitEnabled:     true,
			RateLimitWindow:      60 * time.Second,
			RateLimitMaxRequests: 100,
			CORSOrigins:          []string{"*"},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Store.Driver != "redis" && c.Store.Driver != "memory" {
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	if c.Store.Retention <= 0 {
		return fmt.Errorf("retention must be positive")
	}

	if c.Jobs.OutputFormat != jobs.OutputFormatJSON && c.Jobs.OutputFormat != jobs.OutputFormatFiles {
		return fmt.Errorf("invalid output format: %s", c.Jobs.OutputFormat)
	}

	if c.Security.RateLimitEnabled {
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.Security.RateLimitMaxRequests < 1 {
			return fmt.Errorf("rate limit max requests must be at least 1")
		}
	}

	if len(c.Extract.ImageCommand) == 0 || len(c.Extract.PDFCommand) == 0 || len(c.Extract.PPTXCommand) == 0 {
		return fmt.Errorf("extract commands must not be empty")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Store.Driver = "redis"
		// Parse redis://host:port format
		addr := strings.TrimPrefix(v, "redis://")
		cfg.Store.Redis.Addr = addr
	}

	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}

	if v := os.Getenv("JOB_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Store.Retention = d
		}
	}

	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Jobs.UploadDir = v
	}

	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Jobs.OutputDir = v
	}

	if v := os.Getenv("OUTPUT_FORMAT"); v != "" {
		cfg.Jobs.OutputFormat = jobs.OutputFormat(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		cfg.Security.RateLimitEnabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		var seconds int
		if _, err := fmt.Sscanf(v, "%d", &seconds); err == nil && seconds > 0 {
			cfg.Security.RateLimitWindow = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); v != "" {
		var max int
		if _, err := fmt.Sscanf(v, "%d", &max); err == nil && max > 0 {
			cfg.Security.RateLimitMaxRequests = max
		}
	}
}
