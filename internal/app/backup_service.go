package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jiajunhou/daybook/internal/backup"
	"github.com/jiajunhou/daybook/internal/storage"
)

type BackupService struct {
	store   *storage.Store
	rotator *backup.Rotator
	logger  *slog.Logger
}

func NewBackupService(store *storage.Store, rotator *backup.Rotator, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BackupService{store: store, rotator: rotator, logger: logger}
}

// Create folds the WAL into the main file and then snapshots it. A failed
// checkpoint is not fatal; the snapshot reads through the WAL anyway.
func (s *BackupService) Create(ctx context.Context) (string, error) {
	if s == nil || s.store == nil || s.rotator == nil {
		return "", fmt.Errorf("create backup: %w", ErrClosed)
	}
	if s.store.DB() == nil {
		return "", fmt.Errorf("create backup: %w", ErrClosed)
	}
	if err := s.store.Checkpoint(ctx); err != nil {
		s.logger.Warn("backup: wal checkpoint failed", "path", s.store.Path(), "error", err)
	}
	return s.rotator.Create(ctx, s.store.Path())
}

func (s *BackupService) List() ([]backup.Entry, error) {
	if s == nil || s.rotator == nil {
		return nil, fmt.Errorf("list backups: %w", ErrClosed)
	}
	return s.rotator.List()
}
