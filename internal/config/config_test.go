package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}

	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
	if cfg.LogFile != filepath.Join(wantDataDir, "repeater.log") {
		t.Fatalf("LogFile = %q", cfg.LogFile)
	}
	if cfg.SessionPath() != filepath.Join(wantDataDir, "session.db") {
		t.Fatalf("SessionPath = %q", cfg.SessionPath())
	}
	if cfg.RequestTimeout != 10*time.Second || cfg.PollInterval != 30*time.Second {
		t.Fatalf("timeouts = %s/%s, want 10s/30s", cfg.RequestTimeout, cfg.PollInterval)
	}
	if cfg.RateLimit != 20 || cfg.RateBurst != 10 || cfg.LogLevel != "info" {
		t.Fatalf("cfg = %+v, want default rate limits and info level", cfg)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
api_url = "  https://repeater.example.com/api/  "
data_dir = "  ~/.repeater  "
log_level = " DEBUG "
request_timeout = "3s"
poll_interval = "1m"
rate_limit = 2.5
rate_burst = 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://repeater.example.com/api" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if !strings.HasPrefix(cfg.DataDir, home) {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.DataDir, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 3*time.Second || cfg.PollInterval != time.Minute {
		t.Fatalf("durations = %s/%s, want 3s/1m", cfg.RequestTimeout, cfg.PollInterval)
	}
	if cfg.RateLimit != 2.5 || cfg.RateBurst != 4 {
		t.Fatalf("rate = %v/%d, want 2.5/4", cfg.RateLimit, cfg.RateBurst)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REPEATER_API_URL", "http://10.0.0.5:9000")
	t.Setenv("REPEATER_REQUEST_TIMEOUT", "2s")
	t.Setenv("REPEATER_RATE_BURST", "7")
	t.Setenv("REPEATER_METRICS_ADDR", " 127.0.0.1:9464 ")

	path := writeConfig(t, `api_url = "http://ignored"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:9000" {
		t.Fatalf("APIURL = %q, want env override", cfg.APIURL)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("RequestTimeout = %s, want 2s", cfg.RequestTimeout)
	}
	if cfg.RateBurst != 7 {
		t.Fatalf("RateBurst = %d, want 7", cfg.RateBurst)
	}
	if cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Fatalf("MetricsAddr = %q, want trimmed env override", cfg.MetricsAddr)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := map[string]string{
		"bad toml":      `api_url = `,
		"bad level":     `log_level = "loud"`,
		"bad duration":  `request_timeout = "soon"`,
		"fast polling":  `poll_interval = "10ms"`,
		"negative wait": `request_timeout = "-1s"`,
		"metrics addr":  `metrics_addr = "no-port"`,
	}
	for name, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: Load should fail", name)
		}
	}
}

func TestLoad_ExpandsHomeInPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "repeater")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`log_level = "warn"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn from default path", cfg.LogLevel)
	}
}
