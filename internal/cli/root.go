package cli

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultTimeout = 30 * time.Second

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type GlobalOptions struct {
	JSON       bool
	Quiet      bool
	ConfigPath string
	DataDir    string
	ConfigDir  string
	LogLevel   string
	Timeout    time.Duration
}

type commandDeps struct {
	out     io.Writer
	errOut  io.Writer
	build   BuildInfo
	globals *GlobalOptions
	// env replaces the process environment for config loading when non-nil.
	env map[string]string
}

// NewRootCommand builds the CLI. Command output goes to out; log records go
// to stderr unless a log file is configured.
func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	return newRootCommand(out, os.Stderr, build, nil)
}

func newRootCommand(out, errOut io.Writer, build BuildInfo, env map[string]string) *cobra.Command {
	globals := &GlobalOptions{}
	deps := commandDeps{
		out:     out,
		errOut:  errOut,
		build:   build,
		globals: globals,
		env:     env,
	}

	cmd := &cobra.Command{
		Use:           "daybook",
		Short:         "Local store, key and backups for the Daybook productivity app",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON")
	flags.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress non-error output")
	flags.StringVar(&globals.ConfigPath, "config", "", "Path to config.toml")
	flags.StringVar(&globals.DataDir, "data-dir", "", "Directory holding the store and backups")
	flags.StringVar(&globals.ConfigDir, "config-dir", "", "Directory holding the key file")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.DurationVar(&globals.Timeout, "timeout", defaultTimeout, "Timeout for store operations")

	cmd.AddCommand(
		newInitCommand(deps),
		newStatusCommand(deps),
		newDoctorCommand(deps),
		newBackupCommand(deps),
		newKeyCommand(deps),
		newDebugCommand(deps),
		newVersionCommand(deps),
	)
	cmd.InitDefaultCompletionCmd()
	return cmd
}
