package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/schmitthub/settle/pkg/logger"
)

// Validate checks the configuration and returns a *MultiValidationError
// listing every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, message string, value any) {
		errs = append(errs, &ValidationError{Field: field, Message: message, Value: value})
	}

	if c.Poll.Interval <= 0 {
		add("poll.interval", "must be positive", c.Poll.Interval)
	}
	if c.Poll.Timeout <= 0 {
		add("poll.timeout", "must be positive", c.Poll.Timeout)
	}
	if c.Poll.ErrorLimit < 0 {
		add("poll.error_limit", "must not be negative", c.Poll.ErrorLimit)
	}
	if c.Poll.Interval > c.Poll.Timeout && c.Poll.Timeout > 0 {
		logger.Warn().
			Dur("interval", c.Poll.Interval).
			Dur("timeout", c.Poll.Timeout).
			Msg("poll interval exceeds timeout; predicates are evaluated at most twice")
	}

	if c.Retry.Attempts < 1 {
		add("retry.attempts", "must be at least 1", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		add("retry.delay", "must not be negative", c.Retry.Delay)
	}

	if c.Docker.LabelPrefix == "" || strings.ContainsAny(c.Docker.LabelPrefix, " =") {
		add("docker.label_prefix", "must be a non-empty label key prefix", c.Docker.LabelPrefix)
	}
	if c.Docker.Platform != "" && !strings.Contains(c.Docker.Platform, "/") {
		add("docker.platform", "must look like os/arch", c.Docker.Platform)
	}
	if c.Docker.StopTimeout < 0 {
		add("docker.stop_timeout", "must not be negative", c.Docker.StopTimeout)
	}

	if c.Cluster.NetworkPrefix == "" {
		add("cluster.network_prefix", "is required", nil)
	}
	if c.Cluster.Subnet != "" {
		if _, _, err := net.ParseCIDR(c.Cluster.Subnet); err != nil {
			add("cluster.subnet", "must be CIDR notation", c.Cluster.Subnet)
		}
	}
	from, to := c.Cluster.PortRangeFrom, c.Cluster.PortRangeTo
	if from < 1024 || to > 65535 || from > to {
		add("cluster.port_range", fmt.Sprintf("must satisfy 1024 <= from <= to <= 65535, got %d-%d", from, to), nil)
	}
	if c.Cluster.StartAttempts < 1 {
		add("cluster.start_attempts", "must be at least 1", c.Cluster.StartAttempts)
	}
	if c.Cluster.StartTimeout <= 0 {
		add("cluster.start_timeout", "must be positive", c.Cluster.StartTimeout)
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxAgeDays < 0 || c.Logging.MaxBackups < 0 {
		add("logging", "rotation limits must not be negative", nil)
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}
