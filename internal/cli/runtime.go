package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jiajunhou/daybook/internal/app"
	"github.com/jiajunhou/daybook/internal/config"
	logpkg "github.com/jiajunhou/daybook/internal/log"
)

var loadConfigFn = config.Load

func loadConfig(deps commandDeps) (config.Config, config.LoadReport, error) {
	opts := config.LoadOptions{Env: deps.env}
	if deps.globals != nil {
		opts.ConfigPath = strings.TrimSpace(deps.globals.ConfigPath)
		if v := strings.TrimSpace(deps.globals.DataDir); v != "" {
			opts.Flags.DataDir = &v
		}
		if v := strings.TrimSpace(deps.globals.ConfigDir); v != "" {
			opts.Flags.ConfigDir = &v
		}
		if v := strings.TrimSpace(deps.globals.LogLevel); v != "" {
			opts.Flags.LogLevel = &v
		}
	}
	cfg, report, err := loadConfigFn(opts)
	if err != nil {
		return config.Config{}, report, fmt.Errorf("load config: %w", err)
	}
	return cfg, report, nil
}

// withRuntime loads config, bootstraps the runtime and hands it to fn. The
// runtime is closed when fn returns.
func withRuntime(cmdCtx context.Context, deps commandDeps, fn func(context.Context, *app.Runtime) error) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(cmdCtx, deps.timeout())
	defer cancel()

	cfg, _, err := loadConfig(deps)
	if err != nil {
		return mapCommandError(err)
	}

	logger, logCloser, err := logpkg.New(cfg.Logging, deps.errOut)
	if err != nil {
		return mapCommandError(fmt.Errorf("%w: %v", config.ErrInvalidConfig, err))
	}
	defer func() { _ = logCloser.Close() }()

	rt, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return mapCommandError(err)
	}
	defer func() { _ = rt.Close() }()

	return mapCommandError(fn(ctx, rt))
}

func (d commandDeps) timeout() time.Duration {
	if d.globals != nil && d.globals.Timeout > 0 {
		return d.globals.Timeout
	}
	return defaultTimeout
}

func (d commandDeps) quiet() bool {
	return d.globals != nil && d.globals.Quiet
}

func (d commandDeps) asJSON() bool {
	return d.globals != nil && d.globals.JSON
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
