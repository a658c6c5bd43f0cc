package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jiajunhou/daybook/internal/app"
	"github.com/jiajunhou/daybook/internal/config"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newInitCommand(deps commandDeps) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the store and key if they do not exist",
		Long: "Create or migrate the store file, load or generate the encryption key, " +
			"and report where everything lives. Running init again is safe.",
		Example: "  daybook init\n" +
			"  daybook --data-dir ./data --config-dir ./cfg init --write-config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("init does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *app.Runtime) error {
				configPath := ""
				if writeConfig {
					path, err := writeDefaultConfig(deps, rt.Config())
					if err != nil {
						return err
					}
					configPath = path
				}

				paths := rt.Paths()
				if deps.asJSON() {
					return printJSON(deps.out, map[string]any{
						"paths":       paths,
						"fingerprint": rt.Key.Fingerprint(),
						"config_path": configPath,
					})
				}
				if deps.quiet() {
					return nil
				}
				_, err := fmt.Fprintf(deps.out, "initialized store=%s key=%s backups=%s\n", paths.StorePath, paths.KeyPath, paths.BackupDir)
				if err == nil && configPath != "" {
					_, err = fmt.Fprintf(deps.out, "wrote config=%s\n", configPath)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Write the effective config to config.toml if none exists")
	return cmd
}

// writeDefaultConfig persists cfg to the config file location. An existing
// file is never replaced.
func writeDefaultConfig(deps commandDeps, cfg config.Config) (string, error) {
	path := ""
	if deps.globals != nil {
		path = deps.globals.ConfigPath
	}
	if path == "" {
		path = filepath.Join(cfg.Keys.ConfigDir, config.ConfigFileName)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, nil
		}
		return "", fmt.Errorf("write config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write config: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
