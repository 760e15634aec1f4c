package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Skybridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	KV       KVConfig       `yaml:"kv"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Journal  JournalConfig  `yaml:"journal"`
	History  HistoryConfig  `yaml:"history"`
	Media    MediaConfig    `yaml:"media"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig contains local session token settings.
type AuthConfig struct {
	// Secret signs both local JWT flavours. Required, minimum 32 characters.
	Secret string `yaml:"secret"`

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime in days.
	RefreshTokenTTL int `yaml:"refresh_token_ttl"`
}

// KVConfig contains Redis connection settings for the session store.
type KVConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// UpstreamConfig contains Vivint Sky cloud endpoints. Defaults point at the
// production service; overridable for tests against a local stub.
type UpstreamConfig struct {
	APIBase      string `yaml:"api_base"`
	AuthHost     string `yaml:"auth_host"`
	GRPCEndpoint string `yaml:"grpc_endpoint"`

	// RequestTimeout bounds each upstream REST call, in seconds.
	RequestTimeout int `yaml:"request_timeout"`
}

// JournalConfig contains SQLite event journal settings.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// Retention is how many days of events to keep. 0 keeps everything.
	Retention int `yaml:"retention"`
}

// HistoryConfig contains InfluxDB state-history settings.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MediaConfig contains doorbell capture settings.
type MediaConfig struct {
	Enabled bool   `yaml:"enabled"`
	Root    string `yaml:"root"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Deployment-facing settings use the bare names the service has always been
// deployed with (SERVER_SECRET, KV_HOST, ...); everything else follows the
// SKYBRIDGE_SECTION_KEY pattern.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Auth: AuthConfig{
			AccessTokenTTL:  30,
			RefreshTokenTTL: 7,
		},
		KV: KVConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
		},
		Upstream: UpstreamConfig{
			APIBase:        "https://www.vivintsky.com/api",
			AuthHost:       "https://id.vivint.com",
			GRPCEndpoint:   "grpc.vivintsky.com:50051",
			RequestTimeout: 30,
		},
		Journal: JournalConfig{
			Enabled:     true,
			Path:        "./data/skybridge.db",
			WALMode:     true,
			BusyTimeout: 5,
			Retention:   30,
		},
		Media: MediaConfig{
			Root: "media",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Deployment-facing names.
	if v := os.Getenv("SERVER_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.AccessTokenTTL = n
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_EXPIRE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.RefreshTokenTTL = n
		}
	}
	if v := os.Getenv("KV_HOST"); v != "" {
		cfg.KV.Host = v
	}
	if v := os.Getenv("KV_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.KV.Port = n
		}
	}
	if v := os.Getenv("KV_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.KV.DB = n
		}
	}
	if v := os.Getenv("KV_PASSWORD"); v != "" {
		cfg.KV.Password = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.API.CORS.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("MEDIA_ROOT"); v != "" {
		cfg.Media.Root = v
	}

	// Service-internal names.
	if v := os.Getenv("SKYBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SKYBRIDGE_API_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = n
		}
	}
	if v := os.Getenv("SKYBRIDGE_UPSTREAM_API_BASE"); v != "" {
		cfg.Upstream.APIBase = v
	}
	if v := os.Getenv("SKYBRIDGE_UPSTREAM_AUTH_HOST"); v != "" {
		cfg.Upstream.AuthHost = v
	}
	if v := os.Getenv("SKYBRIDGE_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
	if v := os.Getenv("SKYBRIDGE_HISTORY_TOKEN"); v != "" {
		cfg.History.Token = v
	}
	if v := os.Getenv("SKYBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Weak secrets would let an attacker forge session tokens that control
	// physical security devices, so length is enforced, not just presence.
	const minSecretLength = 32
	if c.Auth.Secret == "" {
		errs = append(errs, "auth.secret is required (set SERVER_SECRET environment variable)")
	} else if len(c.Auth.Secret) < minSecretLength {
		errs = append(errs, "auth.secret must be at least 32 characters")
	}

	if c.Auth.AccessTokenTTL < 1 {
		errs = append(errs, "auth.access_token_ttl must be at least 1 minute")
	}
	if c.Auth.RefreshTokenTTL < 1 {
		errs = append(errs, "auth.refresh_token_ttl must be at least 1 day")
	}

	if c.KV.Host == "" {
		errs = append(errs, "kv.host is required")
	}
	if c.KV.Port < 1 || c.KV.Port > 65535 {
		errs = append(errs, "kv.port must be between 1 and 65535")
	}

	if c.Upstream.APIBase == "" {
		errs = append(errs, "upstream.api_base is required")
	}
	if c.Upstream.AuthHost == "" {
		errs = append(errs, "upstream.auth_host is required")
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when journal is enabled")
	}

	if c.History.Enabled {
		if c.History.URL == "" {
			errs = append(errs, "history.url is required when history is enabled")
		}
		if c.History.Bucket == "" {
			errs = append(errs, "history.bucket is required when history is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// KVAddr returns the Redis address in host:port form.
func (c *Config) KVAddr() string {
	return fmt.Sprintf("%s:%d", c.KV.Host, c.KV.Port)
}

// AccessTokenLifetime returns the access token TTL as a Duration.
func (c *Config) AccessTokenLifetime() time.Duration {
	return time.Duration(c.Auth.AccessTokenTTL) * time.Minute
}

// RefreshTokenLifetime returns the refresh token TTL as a Duration.
func (c *Config) RefreshTokenLifetime() time.Duration {
	return time.Duration(c.Auth.RefreshTokenTTL) * 24 * time.Hour
}

// UpstreamTimeout returns the upstream request timeout as a Duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.RequestTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
