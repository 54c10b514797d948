package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
    issuer: "test-issuer"
    audience: "test-audience"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Security.JWT.Issuer != "test-issuer" {
		t.Errorf("JWT.Issuer = %q, want %q", cfg.Security.JWT.Issuer, "test-issuer")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Security.JWT.AccessTokenTTL != 15 {
		t.Errorf("AccessTokenTTL = %d, want 15", cfg.Security.JWT.AccessTokenTTL)
	}
	if cfg.Security.JWT.RefreshTokenTTL != 30*24 {
		t.Errorf("RefreshTokenTTL = %d, want %d", cfg.Security.JWT.RefreshTokenTTL, 30*24)
	}
	if cfg.Security.JWT.Issuer != "inventory-app" {
		t.Errorf("Issuer = %q, want %q", cfg.Security.JWT.Issuer, "inventory-app")
	}
	if cfg.Security.JWT.Audience != "inventory-users" {
		t.Errorf("Audience = %q, want %q", cfg.Security.JWT.Audience, "inventory-users")
	}

	if got := cfg.Security.JWT.AccessTokenDuration(); got != 15*time.Minute {
		t.Errorf("AccessTokenDuration() = %v, want 15m", got)
	}
	if got := cfg.Security.JWT.RefreshTokenDuration(); got != 30*24*time.Hour {
		t.Errorf("RefreshTokenDuration() = %v, want 720h", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for missing JWT secret, got nil")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("error = %v, want mention of security.jwt.secret", err)
	}
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	configPath := writeConfig(t, `
security:
  jwt:
    secret: "too-short"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for short JWT secret, got nil")
	}
	if !strings.Contains(err.Error(), "at least 32 characters") {
		t.Errorf("error = %v, want mention of minimum length", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 8080
security:
  jwt:
    secret: "file-secret-that-is-long-enough-0123"
`)

	t.Setenv("INVENTORY_SERVER_PORT", "9999")
	t.Setenv("INVENTORY_JWT_SECRET", "env-secret-that-is-long-enough-45678")
	t.Setenv("INVENTORY_DATABASE_PATH", "/tmp/env-override.db")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Security.JWT.Secret != "env-secret-that-is-long-enough-45678" {
		t.Errorf("JWT.Secret = %q, want env override", cfg.Security.JWT.Secret)
	}
	if cfg.Database.Path != "/tmp/env-override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}

func TestValidate_PortRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = "test-secret-key-at-least-32-chars!"
	cfg.Server.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for port 0, got nil")
	}
}
