package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// FileName is the configuration file searched for in the working
	// directory and the settle config directory.
	FileName = "settle.yaml"

	// EnvPrefix prefixes every environment override, e.g. SETTLE_POLL_INTERVAL.
	EnvPrefix = "SETTLE"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("docker.host", "")
	v.SetDefault("docker.platform", "")
	v.SetDefault("docker.label_prefix", "dev.settle")
	v.SetDefault("docker.stop_timeout", 10*time.Second)

	v.SetDefault("cluster.network_prefix", "settle")
	v.SetDefault("cluster.subnet", "")
	v.SetDefault("cluster.port_range_from", 20000)
	v.SetDefault("cluster.port_range_to", 20999)
	v.SetDefault("cluster.start_attempts", 4)
	v.SetDefault("cluster.start_timeout", 2*time.Minute)

	v.SetDefault("poll.interval", 50*time.Millisecond)
	v.SetDefault("poll.timeout", 5*time.Minute)
	v.SetDefault("poll.error_limit", 0)

	v.SetDefault("retry.attempts", 4)
	v.SetDefault("retry.delay", 250*time.Millisecond)

	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_age_days", 7)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.dir", "")
}

// Default returns the configuration used when no file, environment variable
// or flag overrides anything.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// Defaults are static; a decode failure is a programming error.
		panic("config: decoding defaults: " + err.Error())
	}
	return cfg
}
