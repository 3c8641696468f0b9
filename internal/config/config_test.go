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
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.Board.Step != 10 {
		t.Errorf("expected step 10, got %d", cfg.Board.Step)
	}
	if cfg.Redis.URL != "" || cfg.Redis.TTL != 5*time.Minute {
		t.Errorf("unexpected redis defaults: %+v", cfg.Redis)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Addr())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: postgres
  url: postgres://localhost/taskboard?sslmode=disable
redis:
  url: redis://localhost:6379/0
  ttl: 30s
board:
  step: 100
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverPostgres || !strings.HasPrefix(cfg.Database.URL, "postgres://") {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Redis.TTL != 30*time.Second {
		t.Errorf("expected ttl 30s, got %v", cfg.Redis.TTL)
	}
	if cfg.Board.Step != 100 {
		t.Errorf("expected step 100, got %d", cfg.Board.Step)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "board:\n  step: 20\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Board.Step != 20 || cfg.Server.Port != 8080 || cfg.Database.URL == "" {
		t.Errorf("expected defaults around the override, got %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("TASKBOARD_PORT", "7070")
	t.Setenv("TASKBOARD_DB_DRIVER", "memory")
	t.Setenv("TASKBOARD_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("TASKBOARD_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Database.Driver)
	}
	if cfg.Redis.URL != "redis://cache:6379/1" {
		t.Errorf("unexpected redis url %s", cfg.Redis.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected warn, got %s", cfg.Log.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "malformed yaml", body: "server: [", want: "failed to parse config"},
		{name: "bad port env", env: map[string]string{"TASKBOARD_PORT": "eighty"}, want: "invalid TASKBOARD_PORT"},
		{name: "unknown driver", body: "database:\n  driver: mysql\n", want: "database.driver"},
		{name: "missing url", body: "database:\n  driver: postgres\n  url: \"\"\n", want: "database.url is required"},
		{name: "tiny step", body: "board:\n  step: 1\n", want: "board.step"},
		{name: "bad format", body: "log:\n  format: xml\n", want: "log.format"},
		{name: "port out of range", body: "server:\n  port: 70000\n", want: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.body)

			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
