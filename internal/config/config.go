package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Email    EmailConfig    `mapstructure:"email"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// EmailConfig contains the SMTP transport and sender identity settings.
type EmailConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port" validate:"omitempty,gt=0,lt=65536"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address" validate:"omitempty,email"`
	SiteName    string `mapstructure:"site_name"`
	FrontendURL string `mapstructure:"frontend_url" validate:"omitempty,url"`
}

// DispatchConfig tunes the async dispatcher: worker pool size, queue buffer
// and the retry/backoff policy applied to failed tasks.
type DispatchConfig struct {
	WorkerCount  int           `mapstructure:"worker_count" validate:"omitempty,gt=0"`
	QueueSize    int           `mapstructure:"queue_size" validate:"omitempty,gt=0"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"omitempty,gte=0"`
	BaseDelay    time.Duration `mapstructure:"base_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	ExecTimeout  time.Duration `mapstructure:"exec_timeout"`
	StuckTaskAge time.Duration `mapstructure:"stuck_task_age"`
}

// JobsConfig holds the windows for the scheduled batch jobs.
type JobsConfig struct {
	// CleanupRetentionDays is how old a read notification must be before the
	// cleanup job deletes it.
	CleanupRetentionDays int `mapstructure:"cleanup_retention_days" validate:"omitempty,gt=0"`

	// ArchivalStalenessDays is how long a completed project must sit
	// untouched before the archival job considers it.
	ArchivalStalenessDays int `mapstructure:"archival_staleness_days" validate:"omitempty,gt=0"`
}
