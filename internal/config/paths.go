package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	ConfigFileName = "config.toml"

	appDirName       = "daybook"
	darwinAppDirName = "Daybook"
)

// resolver answers directory questions against an optional environment
// override, falling back to the process environment.
type resolver struct {
	env map[string]string
}

func newResolver(env map[string]string) resolver {
	return resolver{env: env}
}

func (r resolver) lookup(key string) (string, bool) {
	if r.env != nil {
		value, ok := r.env[key]
		return value, ok
	}
	return os.LookupEnv(key)
}

// dataDir is DAYBOOK_HOME when set, otherwise the per-user application data
// directory.
func (r resolver) dataDir() (string, error) {
	if value, ok := r.lookup(EnvPrefix + "HOME"); ok && value != "" {
		return filepath.Clean(value), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", darwinAppDirName), nil
	}

	dataHome := filepath.Join(home, ".local", "share")
	if xdg, ok := r.lookup("XDG_DATA_HOME"); ok && xdg != "" {
		dataHome = xdg
	}
	return filepath.Join(dataHome, appDirName), nil
}

// configDir is DAYBOOK_HOME when set, otherwise the per-user configuration
// directory. The key file lives here.
func (r resolver) configDir() (string, error) {
	if value, ok := r.lookup(EnvPrefix + "HOME"); ok && value != "" {
		return filepath.Clean(value), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", darwinAppDirName), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdg, ok := r.lookup("XDG_CONFIG_HOME"); ok && xdg != "" {
		configHome = xdg
	}
	return filepath.Join(configHome, appDirName), nil
}
