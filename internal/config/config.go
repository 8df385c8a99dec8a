package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fleetdesk/fleetdesk/internal/application/invoice"
)

// Config holds service configuration. Environment variables override the
// optional YAML file (FLEETDESK_CONFIG).
type Config struct {
	DatabaseURL         string        `yaml:"database_url"`
	ServerAddr          string        `yaml:"server_addr"`
	SessionTTL          time.Duration `yaml:"session_ttl"`
	SessionCookieName   string        `yaml:"session_cookie_name"`
	SessionCookieSecure bool          `yaml:"session_cookie_secure"`
	RedisAddr           string        `yaml:"redis_addr"`
	SnapshotCacheTTL    time.Duration `yaml:"snapshot_cache_ttl"`
	DivergenceRule      string        `yaml:"invoice_divergence_rule"`
}

// Load reads configuration from the optional YAML file, then environment.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:        "0.0.0.0:8080",
		SessionTTL:        24 * time.Hour,
		SessionCookieName: "fleetdesk_session",
		SnapshotCacheTTL:  30 * time.Second,
		DivergenceRule:    invoice.DefaultDivergenceRule,
	}

	if path := os.Getenv("FLEETDESK_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	if cfg.DatabaseURL == "" {
		user := getenv("POSTGRES_USER", "fleetdesk")
		pass := getenv("POSTGRES_PASSWORD", "fleetdesk_pass")
		db := getenv("POSTGRES_DB", "fleetdesk")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	cfg.ServerAddr = getenv("SERVER_ADDR", cfg.ServerAddr)
	cfg.SessionTTL = parseDuration(os.Getenv("SESSION_TTL"), cfg.SessionTTL)
	cfg.SessionCookieName = getenv("SESSION_COOKIE_NAME", cfg.SessionCookieName)
	cfg.SessionCookieSecure = parseBool(os.Getenv("SESSION_COOKIE_SECURE"), cfg.SessionCookieSecure)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.SnapshotCacheTTL = parseDuration(os.Getenv("SNAPSHOT_CACHE_TTL"), cfg.SnapshotCacheTTL)
	cfg.DivergenceRule = getenv("INVOICE_DIVERGENCE_RULE", cfg.DivergenceRule)

	return cfg, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
