// Package log builds the process logger: slog text records, scrubbed of
// secrets, written to a rotating file or to a fallback writer.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jiajunhou/daybook/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. With no log file configured, records go to
// fallback. The returned closer releases the log file.
func New(cfg config.LoggingConfig, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out              = fallback
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		writer, err := openLogFile(cfg)
		if err != nil {
			return nil, nil, err
		}
		out, closer = writer, writer
	}
	if out == nil {
		out = io.Discard
	}

	base := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(base)), closer, nil
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}
