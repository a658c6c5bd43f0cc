package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jiajunhou/daybook/internal/backup"
	"github.com/jiajunhou/daybook/internal/config"
	"github.com/jiajunhou/daybook/internal/crypto"
	"github.com/jiajunhou/daybook/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestBootstrapCreatesStoreAndKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	rt := newTestRuntime(t, cfg)

	paths := rt.Paths()
	require.Equal(t, filepath.Join(cfg.Storage.DataDir, storage.StoreFileName), paths.StorePath)
	require.Equal(t, crypto.KeyPath(cfg.Keys.ConfigDir), paths.KeyPath)
	require.Equal(t, cfg.Backup.Dir, paths.BackupDir)
	require.FileExists(t, paths.StorePath)
	require.FileExists(t, paths.KeyPath)
}

func TestBootstrapTwiceKeepsKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	first, err := Bootstrap(context.Background(), cfg, nil)
	require.NoError(t, err)
	fingerprint := first.Keys.Status().Fingerprint
	token, err := first.Keys.Encrypt([]byte("kept across restarts"))
	require.NoError(t, err)
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())

	second := newTestRuntime(t, cfg)
	require.Equal(t, fingerprint, second.Keys.Status().Fingerprint)
	got, err := second.Keys.Decrypt(token)
	require.NoError(t, err)
	require.Equal(t, []byte("kept across restarts"), got)
}

func TestBootstrapFailsOnCorruptKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Keys.ConfigDir, 0o700))
	require.NoError(t, os.WriteFile(crypto.KeyPath(cfg.Keys.ConfigDir), []byte("short"), 0o600))

	rt, err := Bootstrap(context.Background(), cfg, nil)
	require.Nil(t, rt)
	require.ErrorIs(t, err, crypto.ErrCorruptKey)
}

func TestBootstrapFailsOnUnusableDataDir(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.Storage.DataDir = blocker

	_, err := Bootstrap(context.Background(), cfg, nil)
	require.ErrorIs(t, err, storage.ErrStorageInit)
}

func TestBackupServiceCreatesAndLists(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Backup.Retain = 2
	at := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		at = at.Add(time.Second)
		return at
	}
	rt := newTestRuntime(t, cfg, WithBackupOptions(backup.WithClock(clock)))
	ctx := context.Background()

	require.NoError(t, rt.Store.Diary.Save(ctx, &storage.DiaryEntry{Date: "2024-09-01", Content: "backed up"}))
	for i := 0; i < 3; i++ {
		_, err := rt.Backups.Create(ctx)
		require.NoError(t, err)
	}

	entries, err := rt.Backups.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "backup_20240901_080003.db", entries[0].Name)
}

func TestBackupServiceLogsCheckpointFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	rt, err := Bootstrap(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rt.Backups.Create(ctx)
	require.Error(t, err)
	require.Contains(t, logs.String(), "backup: wal checkpoint failed")
	require.Contains(t, logs.String(), "context canceled")
}

func TestStatusReportAndDoctor(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	rt := newTestRuntime(t, cfg)
	ctx := context.Background()

	require.NoError(t, rt.Store.Todos.Create(ctx, &storage.Todo{Title: "one"}))

	report, err := rt.Status.Report(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Stats.Todos)
	require.Zero(t, report.Backups)
	require.Nil(t, report.LatestBackup)
	require.Equal(t, cfg.Backup.Retain, report.Retain)
	require.Len(t, report.Key.Fingerprint, 16)

	doctor := rt.Status.Doctor(ctx)
	require.True(t, doctor.Healthy())
	require.Equal(t, CheckWarn, findCheck(t, doctor, "backups").Status)

	_, err = rt.Backups.Create(ctx)
	require.NoError(t, err)
	doctor = rt.Status.Doctor(ctx)
	require.Equal(t, CheckOK, findCheck(t, doctor, "backups").Status)
	require.Equal(t, CheckOK, findCheck(t, doctor, "store integrity").Status)
	require.Equal(t, CheckOK, findCheck(t, doctor, "key").Status)
}

func TestKeyServiceRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t, testConfig(t))
	_, err := rt.Keys.Decrypt("   ")
	require.ErrorIs(t, err, ErrValidation)

	_, err = rt.Keys.Decrypt("bm90IGEgdG9rZW4=")
	require.ErrorIs(t, err, crypto.ErrDecryption)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(root, "data")
	cfg.Keys.ConfigDir = filepath.Join(root, "config")
	cfg.Backup.Dir = filepath.Join(root, "data", "backups")
	return cfg
}

func newTestRuntime(t *testing.T, cfg config.Config, opts ...Option) *Runtime {
	t.Helper()
	rt, err := Bootstrap(context.Background(), cfg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })
	return rt
}

func findCheck(t *testing.T, report DoctorReport, name string) DoctorCheck {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not found", name)
	return DoctorCheck{}
}
