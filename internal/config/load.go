package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values applied before any config file or environment variable is
// read.
const (
	defaultPort                  = 8080
	defaultLogLevel              = "info"
	defaultWorkerCount           = 2
	defaultQueueSize             = 100
	defaultMaxRetries            = 3
	defaultBaseDelay             = 60 * time.Second
	defaultMaxDelay              = 600 * time.Second
	defaultExecTimeout           = 30 * time.Second
	defaultStuckTaskAge          = 30 * time.Minute
	defaultCleanupRetentionDays  = 30
	defaultArchivalStalenessDays = 90
)

// Load reads configuration from config.yaml (if present) and environment
// variables with the TASKAPP_ prefix, environment taking precedence.
// Returns a populated, validated Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.log_level", defaultLogLevel)
	v.SetDefault("dispatch.worker_count", defaultWorkerCount)
	v.SetDefault("dispatch.queue_size", defaultQueueSize)
	v.SetDefault("dispatch.max_retries", defaultMaxRetries)
	v.SetDefault("dispatch.base_delay", defaultBaseDelay)
	v.SetDefault("dispatch.max_delay", defaultMaxDelay)
	v.SetDefault("dispatch.exec_timeout", defaultExecTimeout)
	v.SetDefault("dispatch.stuck_task_age", defaultStuckTaskAge)
	v.SetDefault("jobs.cleanup_retention_days", defaultCleanupRetentionDays)
	v.SetDefault("jobs.archival_staleness_days", defaultArchivalStalenessDays)
	v.SetDefault("email.site_name", "Task Management System")
	v.SetDefault("email.frontend_url", "http://localhost:3000")

	// Zero-value defaults so environment-only keys survive Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 0)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from_address", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TASKAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything. Any other read error is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the config against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				fields = append(fields, fieldErr.Namespace())
			}
			return fmt.Errorf("config validation failed for fields: %s",
				strings.Join(fields, ", "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
