package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Type != "postgres" {
		t.Errorf("expected database type postgres, got %s", cfg.Database.Type)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnectTimeout != 5*time.Second {
		t.Errorf("expected connect timeout 5s, got %v", cfg.Database.ConnectTimeout)
	}

	if cfg.UnitOfWork.DefaultTimeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.UnitOfWork.DefaultTimeout)
	}
	if cfg.UnitOfWork.DefaultMaxWait != 5*time.Second {
		t.Errorf("expected default max wait 5s, got %v", cfg.UnitOfWork.DefaultMaxWait)
	}
	if cfg.UnitOfWork.DefaultIsolation != "read_committed" {
		t.Errorf("expected default isolation read_committed, got %s", cfg.UnitOfWork.DefaultIsolation)
	}
	if !cfg.UnitOfWork.EnableSavepoints {
		t.Error("expected savepoints enabled by default")
	}

	if cfg.Logger.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logger.Level)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("expected log format 'json', got %s", cfg.Logger.Format)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled by default")
	}
}

func TestViperLoader_DefaultsRequireURL(t *testing.T) {
	loader := NewViperLoader("", "UOW")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected validation error without database.url")
	}
}

func TestViperLoader_LoadWithEnvOverride(t *testing.T) {
	os.Setenv("UOW_DATABASE_URL", "postgres://localhost:5432/app")
	os.Setenv("UOW_DATABASE_MAX_OPEN_CONNS", "50")
	os.Setenv("UOW_TX_DEFAULT_TIMEOUT", "10s")
	os.Setenv("UOW_TX_DEFAULT_ISOLATION", "serializable")
	os.Setenv("UOW_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("UOW_DATABASE_URL")
		os.Unsetenv("UOW_DATABASE_MAX_OPEN_CONNS")
		os.Unsetenv("UOW_TX_DEFAULT_TIMEOUT")
		os.Unsetenv("UOW_TX_DEFAULT_ISOLATION")
		os.Unsetenv("UOW_LOG_LEVEL")
	}()

	loader := NewViperLoader("", "UOW")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Database.URL != "postgres://localhost:5432/app" {
		t.Errorf("expected env URL to win, got %s", cfg.Database.URL)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("expected max open conns 50, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.UnitOfWork.DefaultTimeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", cfg.UnitOfWork.DefaultTimeout)
	}
	if cfg.UnitOfWork.DefaultIsolation != "serializable" {
		t.Errorf("expected isolation serializable, got %s", cfg.UnitOfWork.DefaultIsolation)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logger.Level)
	}
}

func TestViperLoader_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
database:
  type: mysql
  url: "user:pass@tcp(localhost:3306)/app"
  max_open_conns: 10
unit_of_work:
  default_timeout: 15s
  enable_savepoints: false
logger:
  level: warn
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := NewViperLoader(path, "UOW")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Database.Type != "mysql" {
		t.Errorf("expected mysql, got %s", cfg.Database.Type)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected max open conns 10, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.UnitOfWork.DefaultTimeout != 15*time.Second {
		t.Errorf("expected default timeout 15s, got %v", cfg.UnitOfWork.DefaultTimeout)
	}
	if cfg.UnitOfWork.EnableSavepoints {
		t.Error("expected savepoints disabled")
	}
	// Untouched sections keep their defaults.
	if cfg.UnitOfWork.DefaultMaxWait != 5*time.Second {
		t.Errorf("expected default max wait 5s, got %v", cfg.UnitOfWork.DefaultMaxWait)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("expected log format json, got %s", cfg.Logger.Format)
	}
}

func TestViperLoader_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
database:
  type: postgres
  url: "postgres://file-host:5432/app"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	os.Setenv("UOW_DATABASE_URL", "postgres://env-host:5432/app")
	defer os.Unsetenv("UOW_DATABASE_URL")

	loader := NewViperLoader(path, "UOW")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Database.URL != "postgres://env-host:5432/app" {
		t.Errorf("expected env to override file, got %s", cfg.Database.URL)
	}
}

func TestViperLoader_Validate(t *testing.T) {
	loader := NewViperLoader("", "UOW")
	base := DefaultConfig()
	base.Database.URL = "postgres://localhost:5432/app"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid postgres", func(c *Config) {}, false},
		{"valid mysql", func(c *Config) { c.Database.Type = "mysql" }, false},
		{"unknown type", func(c *Config) { c.Database.Type = "oracle" }, true},
		{"missing url", func(c *Config) { c.Database.URL = "" }, true},
		{"mongodb without database name", func(c *Config) {
			c.Database.Type = "mongodb"
			c.UnitOfWork.EnableSavepoints = false
		}, true},
		{"mongodb with savepoints", func(c *Config) {
			c.Database.Type = "mongodb"
			c.Database.DatabaseName = "app"
		}, true},
		{"valid mongodb", func(c *Config) {
			c.Database.Type = "mongodb"
			c.Database.DatabaseName = "app"
			c.UnitOfWork.EnableSavepoints = false
		}, false},
		{"bad isolation", func(c *Config) { c.UnitOfWork.DefaultIsolation = "chaos" }, true},
		{"negative timeout", func(c *Config) { c.UnitOfWork.DefaultTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := loader.Validate(&cfg)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
