package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analyzer service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Logging    LoggingConfig    `yaml:"logging"`
	Runbook    RunbookConfig    `yaml:"runbook"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ModelConfig configures the upstream model endpoint.
type ModelConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// EnrichmentConfig configures the external context search endpoint.
type EnrichmentConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RunbookConfig controls rule-pack loading for runbook steps.
type RunbookConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Redis-backed caching of enrichment lookups.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INCIDENT_ANALYZER_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			ReadTimeout:     30 * time.Second,
			GracefulTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			BaseURL: "http://localhost:8081",
			Model:   "incident-analyst",
			Timeout: 60 * time.Second,
		},
		Enrichment: EnrichmentConfig{
			Timeout: 5 * time.Second,
			TTL:     10 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Runbook: RunbookConfig{Path: "configs/runbook/default.yaml"},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INCIDENT_ANALYZER_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_MODEL_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_MODEL_NAME"); v != "" {
		cfg.Model.Model = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.Timeout = d
		}
	}
	if v := os.Getenv("INCIDENT_ANALYZER_ENRICHMENT_ENDPOINT"); v != "" {
		cfg.Enrichment.Endpoint = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_ENRICHMENT_API_KEY"); v != "" {
		cfg.Enrichment.APIKey = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("INCIDENT_ANALYZER_RUNBOOK_PATH"); v != "" {
		cfg.Runbook.Path = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("INCIDENT_ANALYZER_ENRICHMENT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Enrichment.TTL = d
		}
	}
}
