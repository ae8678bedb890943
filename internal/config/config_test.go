package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, ":3001", cfg.Server.Addr)
		assert.Equal(t, "sqlite3", cfg.Database.Driver)
		assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, 5, cfg.Chat.DefaultMaxSessions)
		assert.Equal(t, 30*time.Minute, cfg.Chat.IdleTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Runner.CleanupInterval)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("TRANSITDESK_DATABASE_DSN", "env.db")
		t.Setenv("TRANSITDESK_SERVER_ADDR", ":9000")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "env.db", cfg.Database.DSN)
		assert.Equal(t, ":9000", cfg.Server.Addr)
	})

	// The secret has no meaningful default, so it must still be
	// reachable from the environment alone.
	t.Run("JWTSecretFromEnvOnly", func(t *testing.T) {
		t.Setenv("TRANSITDESK_AUTH_JWT_SECRET", "supersecret")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "supersecret", cfg.Auth.JWTSecret)
	})

	t.Run("InstallsGlobal", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Same(t, cfg, Get())
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yaml")
		assert.Error(t, err)
	})
}
