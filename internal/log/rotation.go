package log

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jiajunhou/daybook/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB = 10
	defaultMaxFiles  = 5
)

// openLogFile returns a size-rotated writer for cfg.File. Zero limits fall
// back to 10 MiB and five rotated files. The file is created 0600 up front
// so rotated copies inherit that mode.
func openLogFile(cfg config.LoggingConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("log file path must not be empty")
	}
	maxSize, maxFiles := cfg.MaxSizeMB, cfg.MaxFiles
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxFiles,
		LocalTime:  true,
	}, nil
}
