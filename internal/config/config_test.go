package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigPrecedenceFlagOverEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[logging]
level = "warn"
`)

	flagLevel := "debug"
	cfg, _, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"DAYBOOK_HOME":      t.TempDir(),
			"DAYBOOK_LOG_LEVEL": "error",
		},
		Flags: FlagOverrides{
			LogLevel: &flagLevel,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigPrecedenceEnvOverFile(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[backup]
retain = 4
verify = true
`)

	cfg, _, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"DAYBOOK_HOME":          t.TempDir(),
			"DAYBOOK_BACKUP_RETAIN": "7",
			"DAYBOOK_BACKUP_VERIFY": "false",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Backup.Retain)
	require.False(t, cfg.Backup.Verify)
}

func TestLoadConfigPrecedenceFileOverDefault(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[backup]
retain = 3
`)

	cfg, report, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env:        map[string]string{"DAYBOOK_HOME": t.TempDir()},
	})
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Backup.Retain)
	require.True(t, cfg.Backup.Verify)
	require.Equal(t, defaultLogMaxFiles, cfg.Logging.MaxFiles)
	require.Equal(t, cfgPath, report.ConfigPath)
}

func TestLoadConfigFromTOMLParsesAllSupportedFields(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfgPath := writeConfigFile(t, `
[storage]
data_dir = "`+filepath.ToSlash(filepath.Join(root, "data"))+`"

[keys]
config_dir = "`+filepath.ToSlash(filepath.Join(root, "keys"))+`"

[backup]
dir = "`+filepath.ToSlash(filepath.Join(root, "snapshots"))+`"
retain = 12
verify = false

[logging]
level = "debug"
file = "/tmp/daybook.log"
max_size_mb = 42
max_files = 9
`)

	cfg, _, err := Load(LoadOptions{ConfigPath: cfgPath, Env: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "data"), cfg.Storage.DataDir)
	require.Equal(t, filepath.Join(root, "keys"), cfg.Keys.ConfigDir)
	require.Equal(t, filepath.Join(root, "snapshots"), cfg.Backup.Dir)
	require.Equal(t, 12, cfg.Backup.Retain)
	require.False(t, cfg.Backup.Verify)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "/tmp/daybook.log", cfg.Logging.File)
	require.Equal(t, 42, cfg.Logging.MaxSizeMB)
	require.Equal(t, 9, cfg.Logging.MaxFiles)
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[vault]
auto_lock_timeout = "10m"
`)
	_, _, err := Load(LoadOptions{ConfigPath: cfgPath, Env: map[string]string{"DAYBOOK_HOME": t.TempDir()}})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
	}{
		{name: "zero-retain", contents: "[backup]\nretain = 0\n"},
		{name: "unknown-level", contents: "[logging]\nlevel = \"loud\"\n"},
		{name: "negative-max-files", contents: "[logging]\nmax_files = -1\n"},
		{name: "malformed", contents: "[backup\nretain = 3\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfgPath := writeConfigFile(t, tt.contents)
			_, _, err := Load(LoadOptions{ConfigPath: cfgPath, Env: map[string]string{"DAYBOOK_HOME": t.TempDir()}})
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigRejectsMalformedEnv(t *testing.T) {
	t.Parallel()

	_, _, err := Load(LoadOptions{
		ConfigPath: filepath.Join(t.TempDir(), "absent.toml"),
		Env: map[string]string{
			"DAYBOOK_HOME":          t.TempDir(),
			"DAYBOOK_BACKUP_RETAIN": "ten",
		},
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMissingConfigFileUsesDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, report, err := Load(LoadOptions{Env: map[string]string{"DAYBOOK_HOME": home}})
	require.NoError(t, err)
	require.Empty(t, report.ConfigPath)

	require.Equal(t, home, cfg.Storage.DataDir)
	require.Equal(t, home, cfg.Keys.ConfigDir)
	require.Equal(t, filepath.Join(home, "backups"), cfg.Backup.Dir)
	require.Equal(t, defaultBackupRetain, cfg.Backup.Retain)
	require.Equal(t, defaultLogLevel, cfg.Logging.Level)
}

func TestConfigFileFoundUnderDaybookHome(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, ConfigFileName), []byte("[backup]\nretain = 2\n"), 0o600))

	cfg, report, err := Load(LoadOptions{Env: map[string]string{"DAYBOOK_HOME": home}})
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Backup.Retain)
	require.Equal(t, filepath.Join(home, ConfigFileName), report.ConfigPath)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, "[logging]\nlevel = \"warn\"\n")
	cfg, _, err := Load(LoadOptions{Env: map[string]string{
		"DAYBOOK_HOME":        t.TempDir(),
		"DAYBOOK_CONFIG_PATH": cfgPath,
	}})
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestXDGDirectoriesOnUnix(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG layout applies to linux and bsd")
	}

	root := t.TempDir()
	cfg, _, err := Load(LoadOptions{Env: map[string]string{
		"XDG_DATA_HOME":   filepath.Join(root, "share"),
		"XDG_CONFIG_HOME": filepath.Join(root, "config"),
	}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "share", "daybook"), cfg.Storage.DataDir)
	require.Equal(t, filepath.Join(root, "config", "daybook"), cfg.Keys.ConfigDir)
	require.Equal(t, filepath.Join(root, "share", "daybook", "backups"), cfg.Backup.Dir)
}

func TestFlagDirectoryOverrides(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dataDir := filepath.Join(root, "d")
	configDir := filepath.Join(root, "c")
	cfg, _, err := Load(LoadOptions{
		Env:   map[string]string{"DAYBOOK_HOME": root, "DAYBOOK_STORAGE_DATA_DIR": filepath.Join(root, "env")},
		Flags: FlagOverrides{DataDir: &dataDir, ConfigDir: &configDir},
	})
	require.NoError(t, err)
	require.Equal(t, dataDir, cfg.Storage.DataDir)
	require.Equal(t, configDir, cfg.Keys.ConfigDir)
	require.Equal(t, filepath.Join(dataDir, "backups"), cfg.Backup.Dir)
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}
