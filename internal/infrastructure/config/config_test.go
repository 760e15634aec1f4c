package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
api:
  host: "0.0.0.0"
  port: 9090
auth:
  secret: "test-secret-key-at-least-32-chars!"
  access_token_ttl: 15
kv:
  host: "redis.local"
  port: 6380
upstream:
  api_base: "https://upstream.test/api"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	if cfg.Auth.AccessTokenTTL != 15 {
		t.Errorf("Auth.AccessTokenTTL = %d, want 15", cfg.Auth.AccessTokenTTL)
	}

	if cfg.KVAddr() != "redis.local:6380" {
		t.Errorf("KVAddr() = %q, want %q", cfg.KVAddr(), "redis.local:6380")
	}

	// Unset fields keep their defaults.
	if cfg.Upstream.AuthHost != "https://id.vivint.com" {
		t.Errorf("Upstream.AuthHost = %q, want default auth host", cfg.Upstream.AuthHost)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
api:
  port: 8080
auth:
  secret: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for missing auth.secret, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	validSecret := "test-secret-key-at-least-32-chars!"

	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Auth.Secret = validSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.Auth.Secret = "" },
			wantErr: true,
		},
		{
			name:    "secret too short",
			mutate:  func(c *Config) { c.Auth.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing kv host",
			mutate:  func(c *Config) { c.KV.Host = "" },
			wantErr: true,
		},
		{
			name:    "missing upstream base",
			mutate:  func(c *Config) { c.Upstream.APIBase = "" },
			wantErr: true,
		},
		{
			name:    "zero access token ttl",
			mutate:  func(c *Config) { c.Auth.AccessTokenTTL = 0 },
			wantErr: true,
		},
		{
			name: "history enabled without url",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Bucket = "states"
			},
			wantErr: true,
		},
		{
			name:    "journal enabled without path",
			mutate:  func(c *Config) { c.Journal.Path = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Lifetimes(t *testing.T) {
	cfg := &Config{
		Auth: AuthConfig{
			AccessTokenTTL:  30,
			RefreshTokenTTL: 7,
		},
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
	}

	if got := cfg.AccessTokenLifetime().Minutes(); got != 30 {
		t.Errorf("AccessTokenLifetime() = %v minutes, want 30", got)
	}

	if got := cfg.RefreshTokenLifetime().Hours(); got != 7*24 {
		t.Errorf("RefreshTokenLifetime() = %v hours, want %v", got, 7*24)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("SERVER_SECRET", "env-secret-key-at-least-32-chars!!")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "45")
	t.Setenv("REFRESH_TOKEN_EXPIRE_DAYS", "14")
	t.Setenv("KV_HOST", "redis.example.com")
	t.Setenv("KV_PORT", "6390")
	t.Setenv("KV_PASSWORD", "kvpass")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MEDIA_ROOT", "/srv/media")

	applyEnvOverrides(cfg)

	if cfg.Auth.Secret != "env-secret-key-at-least-32-chars!!" {
		t.Errorf("Auth.Secret = %q, want env value", cfg.Auth.Secret)
	}

	if cfg.Auth.AccessTokenTTL != 45 {
		t.Errorf("Auth.AccessTokenTTL = %d, want 45", cfg.Auth.AccessTokenTTL)
	}

	if cfg.Auth.RefreshTokenTTL != 14 {
		t.Errorf("Auth.RefreshTokenTTL = %d, want 14", cfg.Auth.RefreshTokenTTL)
	}

	if cfg.KV.Host != "redis.example.com" || cfg.KV.Port != 6390 {
		t.Errorf("KV = %s:%d, want redis.example.com:6390", cfg.KV.Host, cfg.KV.Port)
	}

	if cfg.KV.Password != "kvpass" {
		t.Errorf("KV.Password = %q, want %q", cfg.KV.Password, "kvpass")
	}

	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.API.CORS.AllowedOrigins) != 2 ||
		cfg.API.CORS.AllowedOrigins[0] != want[0] ||
		cfg.API.CORS.AllowedOrigins[1] != want[1] {
		t.Errorf("CORS.AllowedOrigins = %v, want %v", cfg.API.CORS.AllowedOrigins, want)
	}

	if cfg.Media.Root != "/srv/media" {
		t.Errorf("Media.Root = %q, want %q", cfg.Media.Root, "/srv/media")
	}
}

func TestApplyEnvOverrides_BadNumbersIgnored(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "not-a-number")
	t.Setenv("KV_PORT", "also-bad")

	applyEnvOverrides(cfg)

	if cfg.Auth.AccessTokenTTL != 30 {
		t.Errorf("Auth.AccessTokenTTL = %d, want default 30", cfg.Auth.AccessTokenTTL)
	}

	if cfg.KV.Port != 6379 {
		t.Errorf("KV.Port = %d, want default 6379", cfg.KV.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if cfg.KV.Port != 6379 {
		t.Errorf("defaultConfig KV.Port = %d, want 6379", cfg.KV.Port)
	}

	if cfg.Upstream.APIBase == "" {
		t.Error("defaultConfig should have non-empty Upstream.APIBase")
	}

	if cfg.Auth.AccessTokenTTL != 30 || cfg.Auth.RefreshTokenTTL != 7 {
		t.Errorf("defaultConfig token TTLs = %d/%d, want 30/7",
			cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	}
}
