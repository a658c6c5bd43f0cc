// Package backup writes timestamped snapshots of the store file and keeps
// only the most recent ones.
package backup

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultRetain    = 10
	DefaultExtension = ".db"

	namePrefix      = "backup_"
	timestampLayout = "20060102_150405"
	tempPattern     = ".backup-*.tmp"
)

type Rotator struct {
	dir    string
	retain int
	ext    string
	verify bool
	now    func() time.Time
	logger *slog.Logger

	readDir func(string) ([]fs.DirEntry, error)
}

type Option func(*Rotator)

// WithRetain sets how many backups survive pruning.
func WithRetain(n int) Option {
	return func(r *Rotator) { r.retain = n }
}

// WithClock replaces time.Now for naming backups.
func WithClock(now func() time.Time) Option {
	return func(r *Rotator) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Rotator) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithVerify toggles the integrity check run on each snapshot before it is
// published.
func WithVerify(verify bool) Option {
	return func(r *Rotator) { r.verify = verify }
}

// WithExtension sets the extension backups are written with, listed by and
// pruned by. It should match the store file's own extension.
func WithExtension(ext string) Option {
	return func(r *Rotator) { r.ext = ext }
}

func New(dir string, opts ...Option) (*Rotator, error) {
	if dir == "" {
		return nil, fmt.Errorf("new backup rotator: dir is empty")
	}
	r := &Rotator{
		dir:    dir,
		retain: DefaultRetain,
		ext:    DefaultExtension,
		verify: true,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),

		readDir: os.ReadDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retain < 1 {
		return nil, fmt.Errorf("new backup rotator: retain must be at least 1, got %d", r.retain)
	}
	return r, nil
}

func (r *Rotator) Dir() string {
	return r.dir
}

func (r *Rotator) Retain() int {
	return r.retain
}

// Create snapshots the store at storePath into the backup directory and then
// prunes old backups. The returned path names the new backup. A backup
// taken in the same second as an earlier one replaces it.
func (r *Rotator) Create(ctx context.Context, storePath string) (string, error) {
	info, err := os.Stat(storePath)
	if err != nil {
		return "", &BackupIOError{Op: "stat store", Path: storePath, Err: err}
	}
	if info.IsDir() {
		return "", &BackupIOError{Op: "stat store", Path: storePath, Err: fmt.Errorf("is a directory")}
	}

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return "", &BackupIOError{Op: "create dir", Path: r.dir, Err: err}
	}

	tmp, err := reserveTemp(r.dir)
	if err != nil {
		return "", &BackupIOError{Op: "create temp", Path: r.dir, Err: err}
	}
	published := false
	defer func() {
		if !published {
			_ = os.Remove(tmp)
		}
	}()

	if err := snapshotSQLite(ctx, storePath, tmp); err != nil {
		return "", &BackupIOError{Op: "snapshot", Path: storePath, Err: err}
	}
	if r.verify {
		if err := verifySQLite(ctx, tmp); err != nil {
			return "", &BackupIOError{Op: "verify", Path: tmp, Err: err}
		}
	}

	now := r.now()
	target := filepath.Join(r.dir, backupName(now, r.ext))
	if err := os.Rename(tmp, target); err != nil {
		return "", &BackupIOError{Op: "publish", Path: target, Err: err}
	}
	published = true

	// Retention orders by file time, so keep it in step with the name.
	if err := os.Chtimes(target, now, now); err != nil {
		r.logger.Warn("backup: stamp file time", "path", target, "error", err)
	}
	r.logger.Info("backup created", "path", target)

	r.prune()
	return target, nil
}

// List returns the backups in the directory, newest first.
func (r *Rotator) List() ([]Entry, error) {
	entries, err := r.listEntries()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &BackupIOError{Op: "list", Path: r.dir, Err: err}
	}
	return entries, nil
}

func backupName(t time.Time, ext string) string {
	return namePrefix + t.Format(timestampLayout) + ext
}

func reserveTemp(dir string) (string, error) {
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
