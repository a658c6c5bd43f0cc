package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jiajunhou/daybook/internal/app"
	debugpkg "github.com/jiajunhou/daybook/internal/debug"
	logpkg "github.com/jiajunhou/daybook/internal/log"
	"github.com/spf13/cobra"
)

func newDebugCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "debug",
		Short:   "Diagnostics helpers",
		Example: "  daybook debug bundle --output ./daybook-debug.json",
	}
	cmd.AddCommand(newDebugBundleCommand(deps))
	return cmd
}

func newDebugBundleCommand(deps commandDeps) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Collect sanitized diagnostics into a JSON bundle",
		Long: "Write paths, row counts and health checks to a JSON file. " +
			"The bundle is written even when the store or key cannot be opened.",
		Example: "  daybook debug bundle --output ./daybook-debug.json\n" +
			"  daybook --json debug bundle --output ./daybook-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("debug bundle does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" {
				return usageErrorf("debug bundle requires --output")
			}

			bundle := debugpkg.NewBundle(time.Now())
			bundle.Version = map[string]any{
				"version":    deps.build.Version,
				"commit":     deps.build.Commit,
				"build_time": deps.build.BuildTime,
			}
			collectDebugInfo(cmd.Context(), deps, &bundle)

			if err := debugpkg.WriteBundle(outputPath, bundle); err != nil {
				return mapCommandError(err)
			}
			if deps.asJSON() {
				return mapCommandError(printJSON(deps.out, map[string]any{"output": outputPath}))
			}
			if deps.quiet() {
				return nil
			}
			_, err := fmt.Fprintf(deps.out, "debug bundle written: %s\n", outputPath)
			return mapCommandError(err)
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Output JSON bundle path")
	return cmd
}

// collectDebugInfo fills bundle from config and, when it starts, the runtime.
// Failures become failed checks instead of errors.
func collectDebugInfo(cmdCtx context.Context, deps commandDeps, bundle *debugpkg.Bundle) {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(cmdCtx, deps.timeout())
	defer cancel()

	cfg, report, err := loadConfig(deps)
	bundle.AddCheck("config", err)
	if err != nil {
		return
	}
	bundle.Paths = map[string]string{
		"config_file": report.ConfigPath,
		"data_dir":    cfg.Storage.DataDir,
		"config_dir":  cfg.Keys.ConfigDir,
		"backup_dir":  cfg.Backup.Dir,
		"log_file":    cfg.Logging.File,
	}
	if report.ConfigPath == "" {
		bundle.Notes = append(bundle.Notes, "no config file found; defaults and environment in effect")
	}

	logger, logCloser, err := logpkg.New(cfg.Logging, deps.errOut)
	if err != nil {
		bundle.AddCheck("logging", err)
		return
	}
	defer func() { _ = logCloser.Close() }()

	rt, err := app.Bootstrap(ctx, cfg, logger)
	bundle.AddCheck("runtime", err)
	if err != nil {
		return
	}
	defer func() { _ = rt.Close() }()

	if status, err := rt.Status.Report(ctx); err == nil {
		bundle.Counts = map[string]int{
			"diary_entries":  status.Stats.DiaryEntries,
			"todos":          status.Stats.Todos,
			"alarms":         status.Stats.Alarms,
			"focus_sessions": status.Stats.FocusSessions,
			"backups":        status.Backups,
			"retain":         status.Retain,
		}
	} else {
		bundle.AddCheck("status", err)
	}

	for _, check := range rt.Status.Doctor(ctx).Checks {
		bundle.Checks = append(bundle.Checks, debugpkg.Check{
			Name:    check.Name,
			OK:      check.Status != app.CheckFail,
			Message: strings.TrimSpace(string(check.Status) + " " + check.Detail),
		})
	}
}
