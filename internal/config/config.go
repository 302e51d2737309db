package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the client settings.
type Config struct {
	APIURL         string        `koanf:"api_url"`
	DataDir        string        `koanf:"data_dir"`
	LogFile        string        `koanf:"log_file"`
	LogLevel       string        `koanf:"log_level"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	RateLimit      float64       `koanf:"rate_limit"`
	RateBurst      int           `koanf:"rate_burst"`
	// MetricsAddr serves the cache metrics at /metrics when set, e.g. "127.0.0.1:9464".
	MetricsAddr    string        `koanf:"metrics_addr"`
}

const (
	defaultConfigPath     = "~/.config/repeater/config.toml"
	defaultDataDir        = "~/.local/share/repeater"
	defaultAPIURL         = "http://127.0.0.1:8000"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 10 * time.Second
	defaultPollInterval   = 30 * time.Second
	defaultRateLimit      = 20
	defaultRateBurst      = 10

	envPrefix         = "REPEATER_"
	maxConfigFileSize = 1 << 20
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the TOML config at path (or the default path), applies
// REPEATER_* environment overrides, and fills defaults. A missing file is
// not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	k := koanf.New(".")

	content, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), tomlParser{}); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	// REPEATER_API_URL -> api_url
	transform := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(io.LimitReader(file, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(bytes) > maxConfigFileSize {
		return nil, fmt.Errorf("read config: %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return bytes, nil
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}

	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	c.DataDir = mustExpand(c.DataDir)

	c.LogFile = strings.TrimSpace(c.LogFile)
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "repeater.log")
	}
	c.LogFile = mustExpand(c.LogFile)

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", c.LogLevel)
	}

	switch {
	case c.RequestTimeout == 0:
		c.RequestTimeout = defaultRequestTimeout
	case c.RequestTimeout < 0:
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	switch {
	case c.PollInterval == 0:
		c.PollInterval = defaultPollInterval
	case c.PollInterval < time.Second:
		return fmt.Errorf("poll_interval must be at least 1s, got %s", c.PollInterval)
	}

	if c.RateLimit == 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = defaultRateBurst
	}

	c.MetricsAddr = strings.TrimSpace(c.MetricsAddr)
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics_addr %q: %w", c.MetricsAddr, err)
		}
	}
	return nil
}

// SessionPath returns the session database location.
func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// ExportDir returns where exported decks are written by default.
func (c Config) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// tomlParser adapts go-toml to koanf's Parser interface.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(m map[string]any) ([]byte, error) {
	return toml.Marshal(m)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
