package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults apply when only the database URL is set", func(t *testing.T) {
		t.Setenv("TASKAPP_DATABASE_URL", "postgres://localhost:5432/tracker")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Server.LogLevel)
		assert.Equal(t, "postgres://localhost:5432/tracker", cfg.Database.URL)
		assert.Equal(t, 2, cfg.Dispatch.WorkerCount)
		assert.Equal(t, 100, cfg.Dispatch.QueueSize)
		assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
		assert.Equal(t, 60*time.Second, cfg.Dispatch.BaseDelay)
		assert.Equal(t, 600*time.Second, cfg.Dispatch.MaxDelay)
		assert.Equal(t, 30, cfg.Jobs.CleanupRetentionDays)
		assert.Equal(t, 90, cfg.Jobs.ArchivalStalenessDays)
		assert.Equal(t, "Task Management System", cfg.Email.SiteName)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		t.Setenv("TASKAPP_DATABASE_URL", "postgres://localhost:5432/tracker")
		t.Setenv("TASKAPP_SERVER_PORT", "9090")
		t.Setenv("TASKAPP_SERVER_LOG_LEVEL", "debug")
		t.Setenv("TASKAPP_DISPATCH_WORKER_COUNT", "8")
		t.Setenv("TASKAPP_JOBS_CLEANUP_RETENTION_DAYS", "14")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Server.LogLevel)
		assert.Equal(t, 8, cfg.Dispatch.WorkerCount)
		assert.Equal(t, 14, cfg.Jobs.CleanupRetentionDays)
	})

	t.Run("missing database URL fails validation", func(t *testing.T) {
		t.Setenv("TASKAPP_DATABASE_URL", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Database")
	})

	t.Run("invalid log level fails validation", func(t *testing.T) {
		t.Setenv("TASKAPP_DATABASE_URL", "postgres://localhost:5432/tracker")
		t.Setenv("TASKAPP_SERVER_LOG_LEVEL", "loud")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LogLevel")
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080, LogLevel: "info"},
			Database: DatabaseConfig{URL: "postgres://localhost/db"},
		}
	}

	t.Run("accepts a minimal valid config", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, Validate(valid()))
	})

	t.Run("rejects an out-of-range port", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Server.Port = 70000
		require.Error(t, Validate(cfg))
	})

	t.Run("rejects a malformed from address", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Email.FromAddress = "not-an-email"
		require.Error(t, Validate(cfg))
	})
}
