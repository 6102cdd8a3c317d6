package config

import (
	"os"
	"path/filepath"
)

const (
	// ConfigDirEnv overrides the settle config directory.
	ConfigDirEnv = "SETTLE_CONFIG_DIR"
	// StateDirEnv overrides the settle state directory (logs, port locks).
	StateDirEnv = "SETTLE_STATE_DIR"
)

// ConfigDir returns $SETTLE_CONFIG_DIR, or settle under the user config directory.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "settle"), nil
}

// StateDir returns $SETTLE_STATE_DIR, $XDG_STATE_HOME/settle, or ~/.local/state/settle.
func StateDir() (string, error) {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "settle"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "settle"), nil
}

// LogsDir returns the configured log directory, defaulting to StateDir()/logs.
func (c *Config) LogsDir() (string, error) {
	if c.Logging.Dir != "" {
		return c.Logging.Dir, nil
	}
	state, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "logs"), nil
}

// PortLockDir is where host port reservations are recorded.
func PortLockDir() (string, error) {
	state, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "ports"), nil
}
