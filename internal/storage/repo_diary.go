package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"

	diarySelectColumns = `id, CAST(date AS TEXT), title, content, mood, images, CAST(created_at AS TEXT), CAST(updated_at AS TEXT)`
)

type diaryRepository struct {
	db *sql.DB
}

// Save writes the entry for entry.Date, replacing the content of an existing
// entry for that date. The id and created_at of a replaced entry are kept.
func (r *diaryRepository) Save(ctx context.Context, entry *DiaryEntry) error {
	if entry == nil {
		return fmt.Errorf("save diary entry: entry is nil")
	}
	if err := validateDate(entry.Date); err != nil {
		return fmt.Errorf("save diary entry: %w", err)
	}

	images, err := encodeList(entry.Images)
	if err != nil {
		return fmt.Errorf("save diary entry: %w", err)
	}
	mood := sql.NullInt64{}
	if entry.Mood != nil {
		mood = sql.NullInt64{Int64: int64(*entry.Mood), Valid: true}
	}

	now := nowUTC()
	var createdAt sql.NullString
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO diary_entries(date, title, content, mood, images, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			mood = excluded.mood,
			images = excluded.images,
			updated_at = excluded.updated_at
		RETURNING id, CAST(created_at AS TEXT)
	`, entry.Date, nullableString(entry.Title), entry.Content, mood, images, fmtTime(now), fmtTime(now)).Scan(&entry.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("save diary entry: %w", err)
	}

	entry.UpdatedAt = now
	entry.CreatedAt = now
	if createdAt.Valid {
		if parsed, err := parseTime(createdAt.String); err == nil {
			entry.CreatedAt = parsed
		}
	}
	return nil
}

func (r *diaryRepository) Get(ctx context.Context, date string) (*DiaryEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+diarySelectColumns+` FROM diary_entries WHERE date = ?`, date)
	entry, err := scanDiaryEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get diary entry: %w", err)
	}
	return entry, nil
}

func (r *diaryRepository) GetByID(ctx context.Context, id int64) (*DiaryEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+diarySelectColumns+` FROM diary_entries WHERE id = ?`, id)
	entry, err := scanDiaryEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get diary entry %d: %w", id, err)
	}
	return entry, nil
}

func (r *diaryRepository) List(ctx context.Context) ([]DiaryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+diarySelectColumns+` FROM diary_entries ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list diary entries: %w", err)
	}
	return collectDiaryEntries(rows)
}

func (r *diaryRepository) ListByMonth(ctx context.Context, year int, month time.Month) ([]DiaryEntry, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("list diary entries: invalid month %d", month)
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+diarySelectColumns+`
		FROM diary_entries
		WHERE date >= ? AND date < ?
		ORDER BY date DESC
	`, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list diary entries for %04d-%02d: %w", year, int(month), err)
	}
	return collectDiaryEntries(rows)
}

func (r *diaryRepository) Update(ctx context.Context, update DiaryUpdate) error {
	set := assignments{}
	set.set("updated_at", fmtTime(nowUTC()))
	if update.Title != nil {
		set.set("title", *update.Title)
	}
	if update.Content != nil {
		set.set("content", *update.Content)
	}
	if update.Mood != nil {
		set.set("mood", *update.Mood)
	}
	if update.Images != nil {
		images, err := encodeList(update.Images)
		if err != nil {
			return fmt.Errorf("update diary entry: %w", err)
		}
		set.set("images", images)
	}

	args := append(set.args, update.ID)
	result, err := r.db.ExecContext(ctx, `UPDATE diary_entries SET `+set.clause()+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update diary entry: %w", err)
	}
	return checkAffected("update diary entry", result)
}

func (r *diaryRepository) Delete(ctx context.Context, date string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM diary_entries WHERE date = ?`, date)
	if err != nil {
		return fmt.Errorf("delete diary entry: %w", err)
	}
	return checkAffected("delete diary entry", result)
}

func (r *diaryRepository) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM diary_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete diary entry %d: %w", id, err)
	}
	return checkAffected("delete diary entry", result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiaryEntry(row rowScanner) (*DiaryEntry, error) {
	var (
		entry     DiaryEntry
		title     sql.NullString
		mood      sql.NullInt64
		images    sql.NullString
		createdAt sql.NullString
		updatedAt sql.NullString
	)
	if err := row.Scan(&entry.ID, &entry.Date, &title, &entry.Content, &mood, &images, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	entry.Title = stringPtr(title)
	if mood.Valid {
		m := int(mood.Int64)
		entry.Mood = &m
	}

	var err error
	if entry.Images, err = decodeList(images); err != nil {
		return nil, err
	}
	if created, err := parseNullableTime(createdAt); err != nil {
		return nil, err
	} else if created != nil {
		entry.CreatedAt = *created
	}
	if updated, err := parseNullableTime(updatedAt); err != nil {
		return nil, err
	} else if updated != nil {
		entry.UpdatedAt = *updated
	}
	return &entry, nil
}

func collectDiaryEntries(rows *sql.Rows) ([]DiaryEntry, error) {
	defer rows.Close()

	var out []DiaryEntry
	for rows.Next() {
		entry, err := scanDiaryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diary entry: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diary entries: %w", err)
	}
	return out, nil
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("date %q must be YYYY-MM-DD", date)
	}
	return nil
}
