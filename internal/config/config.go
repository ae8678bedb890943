// Package config loads application configuration from a config file and
// environment variables. Environment variables take precedence, using the
// TRANSITDESK_ prefix (e.g., TRANSITDESK_DATABASE_DSN).
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Runner   RunnerConfig   `mapstructure:"runner"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      int      `mapstructure:"rate_limit"` // requests per hour per principal, 0 disables
}

// DatabaseConfig selects the SQL driver and DSN.
// Driver is one of "sqlite3", "mysql", "postgres".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig controls agent JWT issuance.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// ChatConfig controls routing and session behavior.
type ChatConfig struct {
	DefaultMaxSessions int           `mapstructure:"default_max_sessions"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
}

// RunnerConfig controls background tasks.
type RunnerConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

var (
	mu      sync.RWMutex
	current *Config
)

// Load reads configuration from the given file path (optional) plus
// environment, applies defaults, and installs the result as the global
// config returned by Get.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "transitdesk.db")
	// Registered so AutomaticEnv can override it; viper only unmarshals
	// keys it knows about.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("chat.default_max_sessions", 5)
	v.SetDefault("chat.idle_timeout", 30*time.Minute)
	v.SetDefault("runner.cleanup_interval", 5*time.Minute)

	v.SetEnvPrefix("TRANSITDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	current = cfg
	mu.Unlock()
	return cfg, nil
}

// Get returns the last loaded config, or nil if Load was never called.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set installs a config directly. Used by tests.
func Set(cfg *Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}
