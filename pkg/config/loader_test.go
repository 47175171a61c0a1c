package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Web.Port != 8089 {
		t.Errorf("expected web port 8089, got %d", cfg.Web.Port)
	}
	if cfg.MetaWeb.Port != 8090 {
		t.Errorf("expected metaweb port 8090, got %d", cfg.MetaWeb.Port)
	}
	if cfg.MetaWeb.Parallel != 10 {
		t.Errorf("expected metaweb.parallel 10, got %d", cfg.MetaWeb.Parallel)
	}
	if cfg.Collector.Expire != 1 {
		t.Errorf("expected collector.expire 1, got %d", cfg.Collector.Expire)
	}
	if !cfg.Collector.Bulk {
		t.Error("expected collector.bulk true by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  host: db.internal
  port: 5433
collector:
  expire: 3
  lb:
    alb1: public
    alb2: [ro-comm, rw-comm]
web:
  port: 9001
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader(WithConfigPaths(configPath))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected database.host 'db.internal', got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("expected database.port 5433, got %d", cfg.Database.Port)
	}
	if cfg.Collector.Expire != 3 {
		t.Errorf("expected collector.expire 3, got %d", cfg.Collector.Expire)
	}
	if cfg.Collector.LB["alb1"].RO != "public" || cfg.Collector.LB["alb1"].RW != "public" {
		t.Errorf("expected alb1 community 'public', got %+v", cfg.Collector.LB["alb1"])
	}
	if cfg.Collector.LB["alb2"].RO != "ro-comm" || cfg.Collector.LB["alb2"].RW != "rw-comm" {
		t.Errorf("expected alb2 ro/rw communities, got %+v", cfg.Collector.LB["alb2"])
	}
	if cfg.Web.Port != 9001 {
		t.Errorf("expected web.port 9001, got %d", cfg.Web.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	os.Setenv("QCSS_WEB_PORT", "9100")
	os.Setenv("QCSS_LOG_LEVEL", "warn")
	defer func() {
		os.Unsetenv("QCSS_WEB_PORT")
		os.Unsetenv("QCSS_LOG_LEVEL")
	}()

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Web.Port != 9100 {
		t.Errorf("expected web.port 9100, got %d", cfg.Web.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level 'warn', got %s", cfg.Log.Level)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
web:
  port: 9001
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("QCSS_WEB_PORT", "9200")
	defer os.Unsetenv("QCSS_WEB_PORT")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Web.Port != 9200 {
		t.Errorf("expected env override 9200, got %d", cfg.Web.Port)
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	os.Setenv("CUSTOM_WEB_PORT", "9300")
	defer os.Unsetenv("CUSTOM_WEB_PORT")

	cfg, err := NewLoader(WithEnvPrefix("CUSTOM_")).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Web.Port != 9300 {
		t.Errorf("expected 9300, got %d", cfg.Web.Port)
	}
}

func TestMustLoad_Success(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad should not panic with valid config")
		}
	}()

	cfg := MustLoad()
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoad_Simple(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom-config.yaml")

	configContent := `
metaweb:
  parallel: 4
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("CONFIG_PATH", configPath)
	defer os.Unsetenv("CONFIG_PATH")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.MetaWeb.Parallel != 4 {
		t.Errorf("expected metaweb.parallel 4, got %d", cfg.MetaWeb.Parallel)
	}
}
