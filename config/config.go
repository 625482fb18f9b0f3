package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds the read/write passcodes. An empty passcode disables the
// check for that class of request.
type AuthConfig struct {
	ReadPasscode  string `yaml:"read_passcode"`
	WritePasscode string `yaml:"write_passcode"`
}

// VisibilityConfig describes the local time-of-day window during which room
// status is public. Times are "HH:MM" in the configured timezone.
type VisibilityConfig struct {
	Timezone     string `yaml:"timezone"`
	OpensAt      string `yaml:"opens_at"`
	ClosesAt     string `yaml:"closes_at"`
	GraceMinutes int    `yaml:"grace_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Visibility.Timezone == "" {
		cfg.Visibility.Timezone = "UTC"
	}
	if cfg.Visibility.OpensAt == "" {
		cfg.Visibility.OpensAt = "00:00"
	}
	if cfg.Visibility.ClosesAt == "" {
		cfg.Visibility.ClosesAt = "23:59"
	}
	if cfg.Visibility.GraceMinutes <= 0 {
		cfg.Visibility.GraceMinutes = 30
	}
	if _, err := ParseTimeOfDay(cfg.Visibility.OpensAt); err != nil {
		return nil, fmt.Errorf("invalid visibility.opens_at: %w", err)
	}
	if _, err := ParseTimeOfDay(cfg.Visibility.ClosesAt); err != nil {
		return nil, fmt.Errorf("invalid visibility.closes_at: %w", err)
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

// ParseTimeOfDay parses an "HH:MM" string into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	if !strings.Contains(s, ":") {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
