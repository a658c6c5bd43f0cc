package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/jiajunhou/daybook/internal/backup"
	"github.com/jiajunhou/daybook/internal/config"
	"github.com/jiajunhou/daybook/internal/crypto"
	"github.com/jiajunhou/daybook/internal/storage"
)

// Runtime owns the store, the key and the backup rotator for one process.
// It is built once at startup and passed to whatever needs it.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	Store   *storage.Store
	Key     *crypto.Key
	Rotator *backup.Rotator

	Backups *BackupService
	Keys    *KeyService
	Status  *StatusService

	closeOnce sync.Once
	closeErr  error
}

type Option func(*runtimeOptions)

type runtimeOptions struct {
	backupOpts []backup.Option
}

// WithBackupOptions passes extra options to the backup rotator, after the
// ones derived from config.
func WithBackupOptions(opts ...backup.Option) Option {
	return func(o *runtimeOptions) {
		o.backupOpts = append(o.backupOpts, opts...)
	}
}

// StorePath is where the store file lives for cfg.
func StorePath(cfg config.Config) string {
	return filepath.Join(cfg.Storage.DataDir, storage.StoreFileName)
}

// Bootstrap opens or creates the store, loads or creates the key, and
// prepares the backup rotator. Nothing is returned half built: on error every
// component already opened is released.
func Bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var options runtimeOptions
	for _, opt := range opts {
		opt(&options)
	}

	storePath := StorePath(cfg)
	store, err := storage.Open(ctx, storePath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Debug("store opened", "path", storePath)

	key, err := crypto.LoadOrCreateKey(cfg.Keys.ConfigDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Debug("key loaded", "path", key.Path(), "fingerprint", key.Fingerprint())

	backupOpts := append([]backup.Option{
		backup.WithRetain(cfg.Backup.Retain),
		backup.WithVerify(cfg.Backup.Verify),
		backup.WithExtension(filepath.Ext(storage.StoreFileName)),
		backup.WithLogger(logger),
	}, options.backupOpts...)
	rotator, err := backup.New(cfg.Backup.Dir, backupOpts...)
	if err != nil {
		key.Destroy()
		_ = store.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	rt := &Runtime{
		cfg:     cfg,
		logger:  logger,
		Store:   store,
		Key:     key,
		Rotator: rotator,
	}
	rt.Backups = NewBackupService(store, rotator, logger)
	rt.Keys = NewKeyService(key)
	rt.Status = NewStatusService(store, key, rotator)
	return rt, nil
}

func (r *Runtime) Config() config.Config {
	return r.cfg
}

func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

func (r *Runtime) Paths() Paths {
	return Paths{
		StorePath: r.Store.Path(),
		KeyPath:   r.Key.Path(),
		BackupDir: r.Rotator.Dir(),
	}
}

// Close releases the store and wipes the key. It is safe to call twice.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		var errs []error
		if r.Store != nil {
			if err := r.Store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
		}
		r.Key.Destroy()
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
