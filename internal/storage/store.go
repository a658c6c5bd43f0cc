package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	StoreFileName = "productivity.db"

	driverName = "sqlite"
)

var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

type Store struct {
	// mu guards the pool reference, not the queries issued through it.
	mu   sync.Mutex
	db   *sql.DB
	path string

	Diary  DiaryRepository
	Todos  TodoRepository
	Alarms AlarmRepository
	Focus  FocusRepository
}

type Stats struct {
	DiaryEntries  int `json:"diary_entries"`
	Todos         int `json:"todos"`
	Alarms        int `json:"alarms"`
	FocusSessions int `json:"focus_sessions"`
}

// Open creates the store file if it is absent, opens the connection pool and
// migrates the schema. The returned Store is fully migrated; nothing outside
// this function can observe the pool before that.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, &StorageInitError{Path: path, Err: errors.New("empty path")}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &StorageInitError{Path: path, Err: fmt.Errorf("create parent dir: %w", err)}
	}

	db, err := sql.Open(driverName, DSN(path))
	if err != nil {
		return nil, &StorageInitError{Path: path, Err: err}
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &StorageInitError{Path: path, Err: fmt.Errorf("ping: %w", err)}
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, &StorageInitError{Path: path, Err: err}
	}

	if err := ensureDBPermissions(path); err != nil {
		_ = db.Close()
		return nil, &StorageInitError{Path: path, Err: err}
	}

	store := &Store{
		db:   db,
		path: path,
	}
	store.Diary = &diaryRepository{db: db}
	store.Todos = &todoRepository{db: db}
	store.Alarms = &alarmRepository{db: db}
	store.Focus = &focusRepository{db: db}
	return store, nil
}

// DSN builds the modernc.org/sqlite connection string for path. Pragmas are
// carried in the DSN so every pooled connection gets them, not just the
// first one.
func DSN(path string) string {
	q := url.Values{}
	for _, pragma := range sqlitePragmas {
		q.Add("_pragma", pragma)
	}
	return path + "?" + q.Encode()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Checkpoint folds the WAL back into the main database file.
func (s *Store) Checkpoint(ctx context.Context) error {
	db := s.DB()
	if db == nil {
		return fmt.Errorf("checkpoint: store is closed")
	}
	if _, err := db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// IntegrityCheck runs SQLite's integrity_check pragma and returns an error
// unless the engine reports "ok".
func (s *Store) IntegrityCheck(ctx context.Context) error {
	db := s.DB()
	if db == nil {
		return fmt.Errorf("integrity check: store is closed")
	}
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	db := s.DB()
	if db == nil {
		return Stats{}, fmt.Errorf("stats: store is closed")
	}

	var stats Stats
	counts := []struct {
		table  string
		target *int
	}{
		{table: diaryTable, target: &stats.DiaryEntries},
		{table: "todos", target: &stats.Todos},
		{table: "alarms", target: &stats.Alarms},
		{table: "focus_sessions", target: &stats.FocusSessions},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+c.table).Scan(c.target); err != nil {
			return Stats{}, fmt.Errorf("stats: count %s: %w", c.table, err)
		}
	}
	return stats, nil
}

func ensureDBPermissions(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Chmod(p, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set permissions on %q: %w", p, err)
		}
	}
	return nil
}
