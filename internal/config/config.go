// Package config loads settle configuration from settle.yaml, SETTLE_*
// environment variables and command-line flags into one explicit Config
// value. Nothing in the core packages reads process-global configuration;
// callers pass the decoded values down.
package config

import (
	"strings"
	"time"

	"github.com/schmitthub/settle/pkg/logger"
)

// Config is the complete settle configuration.
type Config struct {
	Docker  DockerConfig  `mapstructure:"docker" yaml:"docker"`
	Cluster ClusterConfig `mapstructure:"cluster" yaml:"cluster"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Debug   bool          `mapstructure:"debug" yaml:"debug"`
}

// DockerConfig configures the container runtime client.
type DockerConfig struct {
	// Host overrides DOCKER_HOST, e.g. "unix:///var/run/docker.sock".
	Host string `mapstructure:"host" yaml:"host"`
	// Platform is the default image platform, e.g. "linux/amd64".
	Platform    string        `mapstructure:"platform" yaml:"platform"`
	LabelPrefix string        `mapstructure:"label_prefix" yaml:"label_prefix"`
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

// ClusterConfig configures test clusters.
type ClusterConfig struct {
	NetworkPrefix string `mapstructure:"network_prefix" yaml:"network_prefix"`
	// Subnet is the default network subnet in CIDR notation. Empty lets the
	// daemon choose.
	Subnet        string        `mapstructure:"subnet" yaml:"subnet"`
	PortRangeFrom int           `mapstructure:"port_range_from" yaml:"port_range_from"`
	PortRangeTo   int           `mapstructure:"port_range_to" yaml:"port_range_to"`
	StartAttempts int           `mapstructure:"start_attempts" yaml:"start_attempts"`
	StartTimeout  time.Duration `mapstructure:"start_timeout" yaml:"start_timeout"`
}

// PollConfig configures the polling engine.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// ErrorLimit makes that many consecutive evaluation errors fatal. Zero
	// counts errors as "not satisfied" until the timeout.
	ErrorLimit int `mapstructure:"error_limit" yaml:"error_limit"`
}

// RetryConfig configures the retry decorator.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	FileEnabled *bool  `mapstructure:"file_enabled" yaml:"file_enabled,omitempty"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays  int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	Dir         string `mapstructure:"dir" yaml:"dir"`
}

// Logger converts the logging section for logger.InitWithFile.
func (c LoggingConfig) Logger() *logger.LoggingConfig {
	return &logger.LoggingConfig{
		FileEnabled: c.FileEnabled,
		MaxSizeMB:   c.MaxSizeMB,
		MaxAgeDays:  c.MaxAgeDays,
		MaxBackups:  c.MaxBackups,
	}
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// MultiValidationError collects every invalid setting found by Validate.
type MultiValidationError struct {
	Errors []error
}

func (e *MultiValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "configuration is invalid:\n  " + strings.Join(msgs, "\n  ")
}

func (e *MultiValidationError) Unwrap() []error {
	return e.Errors
}
