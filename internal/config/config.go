// Package config assembles runtime settings. Environment variables override
// the optional YAML file; a .env file only fills variables that are unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/expensesync/internal/api"
	"github.com/tanq16/expensesync/internal/storage"
)

const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultListen      = ":8080"
	DefaultLogLevel    = "info"
	// DefaultStorageBase is used for direct receipt links when S3_BASE is unset.
	DefaultStorageBase = "https://your-s3-bucket.s3.amazonaws.com"
)

type Config struct {
	// APIBase is the REST backend root. Empty selects mock mode.
	APIBase string `yaml:"apiBase"`
	// StorageBase is the public object-storage prefix used for direct
	// receipt links.
	StorageBase string               `yaml:"storageBase"`
	UseMock     bool                 `yaml:"useMock"`
	Storage     storage.SystemConfig `yaml:"storage"`
	LogLevel    string               `yaml:"logLevel"`
	HTTPTimeout time.Duration        `yaml:"httpTimeout"`

	// serve command
	Listen   string `yaml:"listen"`
	Envelope string `yaml:"envelope"`
}

// Load reads envFile (skipped when missing), then the YAML file at path if
// non-empty, then applies environment overrides and defaults.
func Load(envFile, path string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if env := os.Getenv("API_BASE"); env != "" {
		c.APIBase = env
	}
	if env := os.Getenv("S3_BASE"); env != "" {
		c.StorageBase = env
	}
	if env := os.Getenv("USE_MOCK"); env != "" {
		mock, err := strconv.ParseBool(env)
		if err != nil {
			return fmt.Errorf("invalid USE_MOCK %q: %w", env, err)
		}
		c.UseMock = mock
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		c.LogLevel = env
	}
	if env := os.Getenv("HTTP_TIMEOUT"); env != "" {
		d, err := time.ParseDuration(env)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", env, err)
		}
		c.HTTPTimeout = d
	}
	c.Storage.SetStorageConfig()
	return nil
}

func (c *Config) applyDefaults() {
	c.APIBase = strings.TrimRight(strings.TrimSpace(c.APIBase), "/")
	if c.APIBase == "" {
		c.UseMock = true
	}
	c.StorageBase = strings.TrimRight(strings.TrimSpace(c.StorageBase), "/")
	if c.StorageBase == "" {
		c.StorageBase = DefaultStorageBase
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Envelope == "" {
		c.Envelope = string(api.ShapeArray)
	}
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	if _, ok := api.ParseShape(c.Envelope); !ok {
		return fmt.Errorf("unsupported envelope %q (use array, items, expenses or typed)", c.Envelope)
	}
	if u, err := url.Parse(c.StorageBase); err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid storage base %q: must be an absolute URL", c.StorageBase)
	}
	switch c.Storage.StorageType {
	case storage.BackendTypeMemory, storage.BackendTypePostgres:
	default:
		return fmt.Errorf("unsupported storage type: %q (set STORAGE_TYPE=memory or STORAGE_TYPE=postgres)", c.Storage.StorageType)
	}
	return nil
}
