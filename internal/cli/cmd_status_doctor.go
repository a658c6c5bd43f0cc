package cli

import (
	"context"
	"fmt"

	"github.com/jiajunhou/daybook/internal/app"
	"github.com/spf13/cobra"
)

func newStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store, key and backup status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("status does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *app.Runtime) error {
				report, err := rt.Status.Report(ctx)
				if err != nil {
					return err
				}
				if deps.asJSON() {
					return printJSON(deps.out, report)
				}
				if deps.quiet() {
					return nil
				}

				latest := "none"
				if report.LatestBackup != nil {
					latest = report.LatestBackup.Name
				}
				_, err = fmt.Fprintf(
					deps.out,
					"store=%s key=%s fingerprint=%s\ndiary=%d todos=%d alarms=%d focus=%d\nbackups=%d/%d latest=%s\n",
					report.Paths.StorePath,
					report.Paths.KeyPath,
					report.Key.Fingerprint,
					report.Stats.DiaryEntries,
					report.Stats.Todos,
					report.Stats.Alarms,
					report.Stats.FocusSessions,
					report.Backups,
					report.Retain,
					latest,
				)
				return err
			})
		},
	}
}

func newDoctorCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check store integrity, key health and backup freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("doctor does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *app.Runtime) error {
				report := rt.Status.Doctor(ctx)

				if deps.asJSON() {
					if err := printJSON(deps.out, report); err != nil {
						return err
					}
				} else if !deps.quiet() {
					for _, check := range report.Checks {
						line := fmt.Sprintf("%s: %s", check.Name, check.Status)
						if check.Detail != "" {
							line += " (" + check.Detail + ")"
						}
						if _, err := fmt.Fprintln(deps.out, line); err != nil {
							return err
						}
					}
				}

				if !report.Healthy() {
					return asExitError(ExitCodeGeneric, fmt.Errorf("doctor: one or more checks failed"))
				}
				return nil
			})
		},
	}
}
