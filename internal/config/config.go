package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	EnvPrefix = "DAYBOOK_"

	defaultBackupRetain = 10
	defaultLogLevel     = "info"
	defaultLogMaxSizeMB = 10
	defaultLogMaxFiles  = 5
	backupDirName       = "backups"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Keys    KeysConfig    `toml:"keys" envPrefix:"KEYS_"`
	Backup  BackupConfig  `toml:"backup" envPrefix:"BACKUP_"`
	Logging LoggingConfig `toml:"logging" envPrefix:"LOG_"`
}

type StorageConfig struct {
	// DataDir holds the store file and, unless overridden, the backups.
	DataDir string `toml:"data_dir" env:"DATA_DIR"`
}

type KeysConfig struct {
	ConfigDir string `toml:"config_dir" env:"CONFIG_DIR"`
}

type BackupConfig struct {
	Dir    string `toml:"dir" env:"DIR"`
	Retain int    `toml:"retain" env:"RETAIN"`
	Verify bool   `toml:"verify" env:"VERIFY"`
}

type LoggingConfig struct {
	Level     string `toml:"level" env:"LEVEL"`
	File      string `toml:"file" env:"FILE"`
	MaxSizeMB int    `toml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxFiles  int    `toml:"max_files" env:"MAX_FILES"`
}

type LoadOptions struct {
	ConfigPath string
	// Env replaces the process environment when non-nil.
	Env   map[string]string
	Flags FlagOverrides
}

type FlagOverrides struct {
	DataDir   *string
	ConfigDir *string
	LogLevel  *string
}

type LoadReport struct {
	// ConfigPath is the file that was read, empty when none existed.
	ConfigPath string
}

func DefaultConfig() Config {
	return Config{
		Backup: BackupConfig{
			Retain: defaultBackupRetain,
			Verify: true,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load layers defaults, the TOML file, DAYBOOK_* environment variables and
// flags, in that order, then fills unset directories from the platform
// defaults.
func Load(opts LoadOptions) (Config, LoadReport, error) {
	cfg := DefaultConfig()
	report := LoadReport{}
	paths := newResolver(opts.Env)

	configPath, err := resolveConfigPath(opts, paths)
	if err != nil {
		return Config{}, report, fmt.Errorf("resolve config path: %w", err)
	}
	found, err := loadFile(configPath, &cfg)
	if err != nil {
		return Config{}, report, err
	}
	if found {
		report.ConfigPath = configPath
	}

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, report, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if err := fillDirectories(&cfg, paths); err != nil {
		return Config{}, report, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, report, err
	}
	return cfg, report, nil
}

func loadFile(path string, cfg *Config) (bool, error) {
	if path == "" {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read config file %q: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return false, fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return true, nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	envOpts := env.Options{Prefix: EnvPrefix}
	if opts.Env != nil {
		envOpts.Environment = opts.Env
	}
	if err := env.ParseWithOptions(cfg, envOpts); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	if flags.DataDir != nil {
		cfg.Storage.DataDir = *flags.DataDir
	}
	if flags.ConfigDir != nil {
		cfg.Keys.ConfigDir = *flags.ConfigDir
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
}

func fillDirectories(cfg *Config, paths resolver) error {
	if cfg.Storage.DataDir == "" {
		dir, err := paths.dataDir()
		if err != nil {
			return err
		}
		cfg.Storage.DataDir = dir
	}
	if cfg.Keys.ConfigDir == "" {
		dir, err := paths.configDir()
		if err != nil {
			return err
		}
		cfg.Keys.ConfigDir = dir
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = filepath.Join(cfg.Storage.DataDir, backupDirName)
	}

	cfg.Storage.DataDir = filepath.Clean(cfg.Storage.DataDir)
	cfg.Keys.ConfigDir = filepath.Clean(cfg.Keys.ConfigDir)
	cfg.Backup.Dir = filepath.Clean(cfg.Backup.Dir)
	return nil
}

func validate(cfg Config) error {
	if cfg.Backup.Retain < 1 {
		return fmt.Errorf("%w: backup.retain must be >= 1", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging.max_size_mb and logging.max_files must not be negative", ErrInvalidConfig)
	}
	return nil
}

func resolveConfigPath(opts LoadOptions, paths resolver) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := paths.lookup(EnvPrefix + "CONFIG_PATH"); ok && value != "" {
		return value, nil
	}
	dir, err := paths.configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}
