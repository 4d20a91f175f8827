package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// SchedulerConfig holds configuration for the batch scheduler loop.
type SchedulerConfig struct {
	// PollIntervalSeconds is the fixed interval between due-batch polls.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// RetryConfig holds the sub-step retry configuration.
type RetryConfig struct {
	// MaxAttempts is the maximum number of automatic retries per sub-step.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialInterval is the initial backoff interval in milliseconds.
	InitialInterval int `yaml:"initial_interval"`
	// MaxInterval is the backoff cap in milliseconds.
	MaxInterval int `yaml:"max_interval"`
	// RetryableExceptions is a list of retryable error names (string).
	RetryableExceptions []string `yaml:"retryable_exceptions"`
}

// AutomationConfig holds settings for the listing automation backend.
type AutomationConfig struct {
	// Endpoint is the base URL of the automation backend.
	Endpoint string `yaml:"endpoint"`
	// APIKey authenticates requests to the automation backend.
	APIKey string `yaml:"api_key"`
	// TimeoutSeconds bounds a single modify or re-advertise call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig holds the prometheus exposition settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// StorageConfig holds configuration for a result-export storage connection.
type StorageConfig struct {
	// Type of storage ("local" or "gcs").
	Type string `yaml:"type" mapstructure:"type"`
	// BucketName is the target bucket for GCS uploads.
	BucketName string `yaml:"bucket_name" mapstructure:"bucket_name"`
	// CredentialsFile is the service account key path for GCS.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	// BaseDir is the base directory for local file system storage.
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
}

// ExportConfig holds the terminal-batch result export settings.
type ExportConfig struct {
	Enabled bool `yaml:"enabled"`
	// Storage is the storage connection used for report uploads.
	Storage StorageConfig `yaml:"storage"`
	// Properties are exporter-specific settings (outputBaseDir, compressionType).
	Properties map[string]interface{} `yaml:"properties"`
}

// RelistConfig holds all configuration under the "relist" top-level key.
type RelistConfig struct {
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Retry      RetryConfig      `yaml:"retry"`
	Automation AutomationConfig `yaml:"automation"`
	System     SystemConfig     `yaml:"system"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Export     ExportConfig     `yaml:"export"`
	// Database holds the connection settings, decoded by the database adapter
	// (type, dsn, pool limits).
	Database map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Relist RelistConfig `yaml:"relist"`
}

// NewConfig returns a Config populated with defaults. YAML and environment
// overrides are merged on top by the loader.
func NewConfig() *Config {
	return &Config{
		Relist: RelistConfig{
			Scheduler: SchedulerConfig{
				PollIntervalSeconds: 60,
			},
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 500,
				MaxInterval:     5000,
			},
			Automation: AutomationConfig{
				TimeoutSeconds: 30,
			},
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO"},
			},
			Metrics: MetricsConfig{
				Enabled:    true,
				ListenAddr: ":9464",
			},
		},
	}
}
