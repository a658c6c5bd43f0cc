package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	diaryTable          = "diary_entries"
	diaryShadowTable    = "diary_entries_migrating"
	diaryDateIndex      = "idx_diary_entries_date"
	migrationStepTables = "declare tables"
	migrationStepDiary  = "upgrade diary shape"
	migrationStepDedupe = "dedupe diary dates"
)

// Migration is one idempotent schema step. Steps run in order inside a single
// transaction; SQLite DDL is transactional, so a failure leaves the file as
// it was before Migrate started.
type Migration struct {
	Name string
	Up   func(ctx context.Context, tx *sql.Tx) error
}

// legacyDiaryDateUnique matches the superseded diary shape that carried a
// column level UNIQUE on date. Uniqueness now lives in diaryDateIndex, which
// is only installed after duplicates have been removed.
var legacyDiaryDateUnique = regexp.MustCompile(`(?i)\bdate\s+DATE\s+NOT\s+NULL\s+UNIQUE\b|\bUNIQUE\s*\(\s*"?date"?\s*\)`)

func diaryTableDDL(name string) string {
	return `CREATE TABLE IF NOT EXISTS ` + name + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date DATE NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		mood INTEGER,
		images TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
}

var defaultMigrations = []Migration{
	{
		Name: migrationStepTables,
		Up: func(ctx context.Context, tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS focus_sessions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					start_time DATETIME NOT NULL,
					end_time DATETIME,
					duration INTEGER,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				diaryTableDDL(diaryTable),
				`CREATE TABLE IF NOT EXISTS todos (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					description TEXT,
					completed BOOLEAN DEFAULT FALSE,
					priority INTEGER DEFAULT 0,
					due_date DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS alarms (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					time TIME NOT NULL,
					days TEXT,
					enabled BOOLEAN DEFAULT TRUE,
					label TEXT,
					sound_path TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}
			for _, stmt := range statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("declare table: %w", err)
				}
			}
			return nil
		},
	},
	{
		Name: migrationStepDiary,
		Up:   upgradeLegacyDiaryShape,
	},
	{
		Name: migrationStepDedupe,
		Up:   enforceDiaryUniqueDate,
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// Migrate brings db to the current schema. It is safe to run on every
// startup against an already migrated store.
func Migrate(ctx context.Context, db *sql.DB) error {
	return RunMigrations(ctx, db, DefaultMigrations())
}

func RunMigrations(ctx context.Context, db *sql.DB, migrations []Migration) error {
	if db == nil {
		return &MigrationError{Step: "begin", Err: errors.New("db is nil")}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Step: "begin", Err: err}
	}

	for _, migration := range migrations {
		if err := migration.Up(ctx, tx); err != nil {
			_ = tx.Rollback()
			return &MigrationError{Step: migration.Name, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &MigrationError{Step: "commit", Err: err}
	}
	return nil
}

func upgradeLegacyDiaryShape(ctx context.Context, tx *sql.Tx) error {
	ddl, err := tableDefinition(ctx, tx, diaryTable)
	if err != nil {
		return err
	}
	if !legacyDiaryDateUnique.MatchString(ddl) {
		return nil
	}

	// A shadow left behind by an interrupted run is discarded and rebuilt.
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+diaryShadowTable); err != nil {
		return fmt.Errorf("drop stale shadow table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, diaryTableDDL(diaryShadowTable)); err != nil {
		return fmt.Errorf("create shadow table: %w", err)
	}

	legacyColumns, err := tableColumns(ctx, tx, diaryTable)
	if err != nil {
		return err
	}
	currentColumns, err := tableColumns(ctx, tx, diaryShadowTable)
	if err != nil {
		return err
	}
	shared := sharedColumns(currentColumns, legacyColumns)
	if len(shared) == 0 {
		return fmt.Errorf("legacy %s has no columns in common with current shape", diaryTable)
	}

	columnList := strings.Join(shared, ", ")
	copyStmt := `INSERT INTO ` + diaryShadowTable + ` (` + columnList + `) SELECT ` + columnList + ` FROM ` + diaryTable + ` ORDER BY rowid`
	if _, err := tx.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("copy diary rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE `+diaryTable); err != nil {
		return fmt.Errorf("drop legacy diary table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE `+diaryShadowTable+` RENAME TO `+diaryTable); err != nil {
		return fmt.Errorf("rename shadow table: %w", err)
	}
	return nil
}

// enforceDiaryUniqueDate keeps one row per date and then installs the unique
// index. The survivor is the row with the greatest updated_at; equal
// updated_at values fall back to the highest id.
func enforceDiaryUniqueDate(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM diary_entries
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY date
					ORDER BY updated_at DESC, id DESC
				) AS rank_in_date
				FROM diary_entries
			)
			WHERE rank_in_date = 1
		)
	`); err != nil {
		return fmt.Errorf("delete duplicate diary dates: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS `+diaryDateIndex+` ON `+diaryTable+`(date)`); err != nil {
		return fmt.Errorf("create diary date index: %w", err)
	}
	return nil
}

func tableDefinition(ctx context.Context, tx *sql.Tx, table string) (string, error) {
	var ddl sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&ddl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("read definition of %s: %w", table, err)
	}
	return ddl.String, nil
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `PRAGMA table_info(`+table+`)`)
	if err != nil {
		return nil, fmt.Errorf("query table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dfltVal sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dfltVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	return columns, nil
}

func sharedColumns(current, legacy []string) []string {
	present := make(map[string]struct{}, len(legacy))
	for _, name := range legacy {
		present[strings.ToLower(name)] = struct{}{}
	}
	out := make([]string, 0, len(current))
	for _, name := range current {
		if _, ok := present[strings.ToLower(name)]; ok {
			out = append(out, name)
		}
	}
	return out
}
