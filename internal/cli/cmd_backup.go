package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jiajunhou/daybook/internal/app"
	"github.com/spf13/cobra"
)

func newBackupCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup operations",
		Example: "  daybook backup create\n" +
			"  daybook backup ls",
	}
	cmd.AddCommand(
		newBackupCreateCommand(deps),
		newBackupListCommand(deps),
	)
	return cmd
}

func newBackupCreateCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Snapshot the store and prune old backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("backup create does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *app.Runtime) error {
				path, err := rt.Backups.Create(ctx)
				if err != nil {
					return err
				}
				if deps.asJSON() {
					return printJSON(deps.out, map[string]any{"path": path})
				}
				if deps.quiet() {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "backup created: %s\n", path)
				return err
			})
		},
	}
}

func newBackupListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List kept backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("backup ls does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *app.Runtime) error {
				entries, err := rt.Backups.List()
				if err != nil {
					return err
				}
				if deps.asJSON() {
					if entries == nil {
						return printJSON(deps.out, []any{})
					}
					return printJSON(deps.out, entries)
				}
				if deps.quiet() {
					return nil
				}
				for _, entry := range entries {
					if _, err := fmt.Fprintf(deps.out, "%s\t%d\t%s\n", entry.Name, entry.Size, entry.CreatedAt.Format(time.RFC3339)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
