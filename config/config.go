// Package config defines the runtime configuration for the resource
// server. Values come from a JSON file overlaid with environment
// variables; defaults cover everything else.
//
// Precedence order (highest wins):
//  1. CLI flags (handled by cmd/resource-server)
//  2. Environment variables (RESOURCED_ prefix)
//  3. JSON config file
//  4. Defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for every tuneable, kept together so they are easy to audit.
const (
	// DefaultHTTPAddr binds the download service on all interfaces.
	DefaultHTTPAddr = ":8781"

	// DefaultGameAddr binds the game session listener on all interfaces.
	DefaultGameAddr = ":27015"

	// DefaultPublicDir is where content packs are published.
	DefaultPublicDir = "public"

	// DefaultLogLevel is the minimum log level emitted.
	DefaultLogLevel = "info"
)

// Config holds every tuneable for one resource server process.
type Config struct {
	// HTTPAddr is the download service listen address.
	HTTPAddr string `json:"http_addr"`

	// GameAddr is the game session listener address.
	GameAddr string `json:"game_addr"`

	// PublicDir is the directory content packs are served from.
	PublicDir string `json:"public_dir"`

	// TokenTTLSeconds bounds how long an issued token stays valid.
	// Zero means tokens never expire and must be revoked explicitly.
	TokenTTLSeconds int `json:"token_ttl_seconds"`

	// RedisAddr selects the redis-backed token registry when non-empty;
	// empty selects the in-memory registry.
	RedisAddr string `json:"redis_addr"`

	// WebhookURL, when non-empty, receives server lifecycle announcements.
	WebhookURL string `json:"webhook_url"`

	// LogDir enables daily-rotated file logging when non-empty.
	LogDir string `json:"log_dir"`

	// LogLevel is the minimum log level: debug, info, warn, or error.
	LogLevel string `json:"log_level"`
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		HTTPAddr:  DefaultHTTPAddr,
		GameAddr:  DefaultGameAddr,
		PublicDir: DefaultPublicDir,
		LogLevel:  DefaultLogLevel,
	}
}

// TokenTTL returns the token TTL as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// Load reads the JSON config file at path over the defaults. A missing
// file is not an error; the defaults are returned unchanged.
//
// Parameters:
//   - path: Config file location; "" skips file loading entirely
//
// Returns:
//   - The merged Config, or an error if the file exists but cannot be parsed
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv overlays environment variables onto cfg. Only set, non-empty
// variables override the existing value. Call before CLI flag parsing so
// flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("RESOURCED_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("RESOURCED_GAME_ADDR"); v != "" {
		cfg.GameAddr = v
	}
	if v := os.Getenv("RESOURCED_PUBLIC_DIR"); v != "" {
		cfg.PublicDir = v
	}
	if v := envInt("RESOURCED_TOKEN_TTL_SECONDS"); v > 0 {
		cfg.TokenTTLSeconds = v
	}
	if v := os.Getenv("RESOURCED_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("RESOURCED_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("RESOURCED_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("RESOURCED_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate reports the first problem that would prevent the process from
// starting.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.GameAddr == "" {
		return fmt.Errorf("game_addr must not be empty")
	}
	if c.PublicDir == "" {
		return fmt.Errorf("public_dir must not be empty")
	}
	if c.TokenTTLSeconds < 0 {
		return fmt.Errorf("token_ttl_seconds must not be negative")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	return nil
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}

	return n
}
