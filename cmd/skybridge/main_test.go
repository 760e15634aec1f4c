package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("SKYBRIDGE_CONFIG")
	defer os.Setenv("SKYBRIDGE_CONFIG", originalEnv)

	os.Setenv("SKYBRIDGE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_UnreachableKV verifies run fails when the session store is down.
func TestRun_UnreachableKV(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
api:
  host: "127.0.0.1"
  port: 18200
  timeouts:
    read: 30
    write: 60
    idle: 120

auth:
  secret: "test-secret-0123456789abcdef0123456789"
  access_token_ttl: 15
  refresh_token_ttl: 7

kv:
  host: "127.0.0.1"
  port: 16399

journal:
  enabled: false

history:
  enabled: false

media:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("SKYBRIDGE_CONFIG")
	defer os.Setenv("SKYBRIDGE_CONFIG", originalEnv)
	os.Setenv("SKYBRIDGE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with no KV store listening")
	}
}

// TestGetConfigPath_Default verifies the default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("SKYBRIDGE_CONFIG")
	defer os.Setenv("SKYBRIDGE_CONFIG", originalEnv)

	os.Unsetenv("SKYBRIDGE_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies the environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("SKYBRIDGE_CONFIG")
	defer os.Setenv("SKYBRIDGE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("SKYBRIDGE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
