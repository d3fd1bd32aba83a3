package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "KINDADMIN"

// Config holds the application configuration
type Config struct {
	// Server bind address (host:port)
	ServerAddr string

	// Public URL the browser uses; decides whether cookies are marked Secure
	PublicURL string

	// Enable debug logging
	Debug bool

	Log LogConfig

	API APIConfig

	Session SessionConfig

	// Database connection string for persistent sessions; empty keeps sessions in memory
	DatabaseURL string

	// Page sizes offered by the dashboard selector
	PageSizes []int

	// Expose Prometheus metrics on /metrics
	MetricsEnabled bool

	// Origins allowed to call /api/session
	CORSOrigins []string
}

// LogConfig selects logrus level and formatter.
type LogConfig struct {
	Level  string
	Format string // text or json
}

// APIConfig points at the upstream be kind network API.
type APIConfig struct {
	BaseURL string
	AuthURL string
	Timeout time.Duration
	// StrictContract rejects list responses that do not match the published envelope
	StrictContract bool
}

// SessionConfig controls the session cookie and server-side storage.
type SessionConfig struct {
	// HashKey signs the session and flash cookies (32 or 64 bytes recommended)
	HashKey string
	// BlockKey optionally encrypts cookies (16, 24 or 32 bytes)
	BlockKey string
	// IdleTTL evicts sessions not touched for this long
	IdleTTL time.Duration
	// MaxEntries caps the in-memory store
	MaxEntries int
	// SweepSchedule is the cron spec of the expiry sweep
	SweepSchedule string
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	u, err := url.Parse(c.PublicURL)
	return err == nil && u.Scheme == "https"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("api.base_url", "https://dev.api.bekindnetwork.com")
	v.SetDefault("api.auth_url", "https://dev.apinetbo.bekindnetwork.com")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.strict_contract", false)
	v.SetDefault("session.hash_key", "")
	v.SetDefault("session.block_key", "")
	v.SetDefault("session.idle_ttl", "12h")
	v.SetDefault("session.max_entries", 10000)
	v.SetDefault("session.sweep_schedule", "@every 5m")
	v.SetDefault("database_url", "")
	v.SetDefault("page_sizes", []int{10, 20, 50, 100})
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
}

// Load reads configuration from the global viper instance, KINDADMIN_
// prefixed environment variables and an optional .env file.
// Environment variables take precedence over the config file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.GetViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	pageSizes, err := intList(v, "page_sizes")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerAddr: v.GetString("server_addr"),
		PublicURL:  v.GetString("public_url"),
		Debug:      v.GetBool("debug"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		API: APIConfig{
			BaseURL:        v.GetString("api.base_url"),
			AuthURL:        v.GetString("api.auth_url"),
			Timeout:        v.GetDuration("api.timeout"),
			StrictContract: v.GetBool("api.strict_contract"),
		},
		Session: SessionConfig{
			HashKey:       v.GetString("session.hash_key"),
			BlockKey:      v.GetString("session.block_key"),
			IdleTTL:       v.GetDuration("session.idle_ttl"),
			MaxEntries:    v.GetInt("session.max_entries"),
			SweepSchedule: v.GetString("session.sweep_schedule"),
		},
		DatabaseURL:    v.GetString("database_url"),
		PageSizes:      pageSizes,
		MetricsEnabled: v.GetBool("metrics_enabled"),
		CORSOrigins:    stringList(v, "cors_origins"),
	}

	if cfg.Debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	for name, raw := range map[string]string{"API_BASE_URL": c.API.BaseURL, "API_AUTH_URL": c.API.AuthURL, "PUBLIC_URL": c.PublicURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.Session.IdleTTL < 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must not be negative")
	}
	if c.Session.MaxEntries <= 0 {
		return fmt.Errorf("SESSION_MAX_ENTRIES must be positive")
	}
	if len(c.PageSizes) == 0 {
		return fmt.Errorf("PAGE_SIZES must list at least one size")
	}
	for _, size := range c.PageSizes {
		if size < 1 {
			return fmt.Errorf("PAGE_SIZES entries must be positive, got %d", size)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// intList accepts either a YAML list or a comma separated env value.
func intList(v *viper.Viper, key string) ([]int, error) {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetIntSlice(key), nil
	}
	var out []int
	for _, field := range splitList(raw) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", strings.ToUpper(key), field)
		}
		out = append(out, n)
	}
	return out, nil
}

func stringList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return splitList(raw)
	}
	return v.GetStringSlice(key)
}

func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
}
