package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
logging:
  level: debug
  format: text
database:
  url: postgres://localhost:5432/conveyor
redis:
  addr: localhost:6379
pipelines:
  - name: orders
    topic: order-events
    poll_interval_ms: 500
    retry_timeout_ms: 2000
    max_delay_ms: 10000
    tolerance: all
    transforms:
      - type: mask_field
        key: ssn
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Database.URL != "postgres://localhost:5432/conveyor" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}

	if len(cfg.Pipelines) != 1 {
		t.Fatalf("got %d pipelines, want 1", len(cfg.Pipelines))
	}
	p := cfg.Pipelines[0]
	if p.Name != "orders" || p.Topic != "order-events" {
		t.Errorf("pipeline = %q/%q", p.Name, p.Topic)
	}
	if p.PollIntervalMs != 500 || p.RetryTimeoutMs != 2000 || p.MaxDelayMs != 10000 {
		t.Errorf("pipeline timings = %d/%d/%d", p.PollIntervalMs, p.RetryTimeoutMs, p.MaxDelayMs)
	}
	if p.Tolerance != "all" {
		t.Errorf("tolerance = %q, want all", p.Tolerance)
	}
	if len(p.Transforms) != 1 || p.Transforms[0].Type != "mask_field" || p.Transforms[0].Key != "ssn" {
		t.Errorf("transforms = %+v", p.Transforms)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
pipelines:
  - name: orders
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	p := cfg.Pipelines[0]
	if p.PollIntervalMs != 1000 {
		t.Errorf("default poll interval = %d, want 1000", p.PollIntervalMs)
	}
	if p.MaxDelayMs != 60000 {
		t.Errorf("default max delay = %d, want 60000", p.MaxDelayMs)
	}
	if p.RetryTimeoutMs != 0 {
		t.Errorf("default retry timeout = %d, want 0", p.RetryTimeoutMs)
	}
	if p.Tolerance != "none" {
		t.Errorf("default tolerance = %q, want none", p.Tolerance)
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/conveyor")
	t.Setenv("REDIS_ADDR", "redis:6379")

	path := writeConfig(t, `
database:
  url: ${DATABASE_URL}
redis:
  addr: ${REDIS_ADDR}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.URL != "postgres://db:5432/conveyor" {
		t.Errorf("database url = %q, env var not expanded", cfg.Database.URL)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis addr = %q, env var not expanded", cfg.Redis.Addr)
	}
}

func TestLoad_UnnamedPipeline(t *testing.T) {
	path := writeConfig(t, `
pipelines:
  - topic: order-events
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a pipeline without a name")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "pipelines: [\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for invalid YAML")
	}
}
