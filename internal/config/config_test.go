package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "klinechart-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL", "UPSTREAM_BASE_URL", "SERVER_PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/klinechart/data"
  sqlite_path: "/tmp/klinechart/klinechart.db"
server:
  host: "0.0.0.0"
  port: 8080
logging:
  level: "debug"
  format: "json"
  file: "/tmp/klinechart/server.log"
source:
  kind: "http"
  base_url: "http://upstream:8000/api"
  timeout: 5s
  max_attempts: 4
  retry_delay: 250ms
  rate_limit_per_min: 120
chart:
  trailing_window: 60
  page_size: 20
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/klinechart/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/klinechart/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/klinechart/klinechart.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/klinechart/klinechart.db")
	}

	// -- Server --
	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %q, want %q", got, "0.0.0.0:8080")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
	if cfg.Logging.File != "/tmp/klinechart/server.log" {
		t.Errorf("Logging.File = %q", cfg.Logging.File)
	}

	// -- Source --
	if cfg.Source.Kind != SourceHTTP {
		t.Errorf("Source.Kind = %q, want %q", cfg.Source.Kind, SourceHTTP)
	}
	if cfg.Source.Timeout != 5*time.Second {
		t.Errorf("Source.Timeout = %v, want 5s", cfg.Source.Timeout)
	}
	if cfg.Source.MaxAttempts != 4 {
		t.Errorf("Source.MaxAttempts = %d, want 4", cfg.Source.MaxAttempts)
	}
	if cfg.Source.RetryDelay != 250*time.Millisecond {
		t.Errorf("Source.RetryDelay = %v, want 250ms", cfg.Source.RetryDelay)
	}
	if cfg.Source.RateLimitPerMin != 120 {
		t.Errorf("Source.RateLimitPerMin = %d, want 120", cfg.Source.RateLimitPerMin)
	}

	// -- Chart --
	if cfg.Chart.TrailingWindow != 60 || cfg.Chart.PageSize != 20 {
		t.Errorf("Chart = %+v, want window 60 and page size 20", cfg.Chart)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "server:\n  host: \"127.0.0.1\"\n"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Source.Kind != SourceParquet {
		t.Errorf("Source.Kind = %q, want %q", cfg.Source.Kind, SourceParquet)
	}
	if cfg.Source.MaxAttempts != 3 {
		t.Errorf("Source.MaxAttempts = %d, want 3", cfg.Source.MaxAttempts)
	}
	if cfg.Chart.TrailingWindow != 120 {
		t.Errorf("Chart.TrailingWindow = %d, want 120", cfg.Chart.TrailingWindow)
	}
	if cfg.Chart.PageSize != 10 {
		t.Errorf("Chart.PageSize = %d, want 10", cfg.Chart.PageSize)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/original/data"
server:
  port: 8080
logging:
  level: "info"
`)

	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("UPSTREAM_BASE_URL", "http://env-upstream/api")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q (env override)", cfg.Logging.Level, "warn")
	}
	// A base URL without an explicit kind selects the HTTP source.
	if cfg.Source.Kind != SourceHTTP || cfg.Source.BaseURL != "http://env-upstream/api" {
		t.Errorf("Source = %+v, want http source from env", cfg.Source)
	}
}

func TestLoadInvalidSource(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeConfig(t, "source:\n  kind: \"ftp\"\n")); err == nil {
		t.Error("Load() accepted an unknown source kind")
	}
	if _, err := Load(writeConfig(t, "source:\n  kind: \"http\"\n")); err == nil {
		t.Error("Load() accepted an http source without base_url")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("KLINECHART_CONFIG", "")
	if got := Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}
	t.Setenv("KLINECHART_CONFIG", "/etc/klinechart.yaml")
	if got := Path(); got != "/etc/klinechart.yaml" {
		t.Errorf("Path() = %q, want %q", got, "/etc/klinechart.yaml")
	}
}
