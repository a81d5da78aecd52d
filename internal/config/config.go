// Package config loads client settings from ~/.pushenable/config.yaml, a .env
// file in the working directory, and PUSHENABLE_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/naveenspark/pushenable/internal/enablement"
	"github.com/naveenspark/pushenable/internal/platform/autopush"
)

// Config holds resolved settings.
type Config struct {
	// PublicKey is the VAPID application server key, URL-safe Base64.
	// Empty means fetch it from APIURL, or fall back to the built-in key.
	PublicKey      string        `yaml:"public_key,omitempty"`
	APIURL         string        `yaml:"api_url,omitempty"`
	Token          string        `yaml:"token,omitempty"`
	PushServiceURL string        `yaml:"push_service_url,omitempty"`
	WorkerScript   string        `yaml:"worker_script,omitempty"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout,omitempty"`
	LogPath        string        `yaml:"log_path,omitempty"`
	Debug          bool          `yaml:"debug,omitempty"`
}

// Dir returns ~/.pushenable.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".pushenable"), nil
}

// DefaultPath returns ~/.pushenable/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the file at path (a missing file is fine), applies .env and
// environment overrides, then fills defaults.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: read .env: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses a YAML config file without defaults or overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config.LoadFile: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.LoadFile: parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PUSHENABLE_PUBLIC_KEY", &c.PublicKey)
	str("PUSHENABLE_API_URL", &c.APIURL)
	str("PUSHENABLE_TOKEN", &c.Token)
	str("PUSHENABLE_PUSH_SERVICE_URL", &c.PushServiceURL)
	str("PUSHENABLE_WORKER_SCRIPT", &c.WorkerScript)
	str("PUSHENABLE_LOG_PATH", &c.LogPath)

	if v := getenv("PUSHENABLE_READY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: PUSHENABLE_READY_TIMEOUT: %w", err)
		}
		c.ReadyTimeout = d
	}
	if v := getenv("PUSHENABLE_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: PUSHENABLE_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

func (c *Config) setDefaults() error {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.PushServiceURL == "" {
		c.PushServiceURL = autopush.DefaultServiceURL
	}
	if c.WorkerScript == "" {
		c.WorkerScript = enablement.DefaultWorkerScript
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = enablement.DefaultReadyTimeout
	}
	if c.ReadyTimeout < 0 {
		return fmt.Errorf("config: ready_timeout must be positive, got %s", c.ReadyTimeout)
	}
	if c.LogPath == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.LogPath = filepath.Join(dir, "pushenable.log")
	}
	return nil
}
