package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const focusSelectColumns = `id, CAST(start_time AS TEXT), CAST(end_time AS TEXT), duration`

type focusRepository struct {
	db *sql.DB
}

func (r *focusRepository) Start(ctx context.Context) (*FocusSession, error) {
	session := &FocusSession{StartTime: nowUTC()}
	result, err := r.db.ExecContext(ctx, `INSERT INTO focus_sessions(start_time, created_at) VALUES(?, ?)`, fmtTime(session.StartTime), fmtTime(session.StartTime))
	if err != nil {
		return nil, fmt.Errorf("start focus session: %w", err)
	}
	if session.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("start focus session: last insert id: %w", err)
	}
	return session, nil
}

// End stamps the session end and its duration in whole seconds.
func (r *focusRepository) End(ctx context.Context, id int64) (*FocusSession, error) {
	session, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}

	end := nowUTC()
	duration := int64(end.Sub(session.StartTime).Seconds())
	if _, err := r.db.ExecContext(ctx, `UPDATE focus_sessions SET end_time = ?, duration = ? WHERE id = ?`, fmtTime(end), duration, id); err != nil {
		return nil, fmt.Errorf("end focus session: %w", err)
	}
	session.EndTime = &end
	session.Duration = &duration
	return session, nil
}

func (r *focusRepository) List(ctx context.Context, filter FocusFilter) ([]FocusSession, error) {
	query := `SELECT ` + focusSelectColumns + ` FROM focus_sessions WHERE 1=1`
	args := []any{}
	if filter.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, fmtTime(*filter.From))
	}
	if filter.To != nil {
		query += ` AND start_time <= ?`
		args = append(args, fmtTime(*filter.To))
	}
	query += ` ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	var out []FocusSession
	for rows.Next() {
		session, err := scanFocusSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan focus session: %w", err)
		}
		out = append(out, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate focus sessions: %w", err)
	}
	return out, nil
}

func (r *focusRepository) get(ctx context.Context, id int64) (*FocusSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+focusSelectColumns+` FROM focus_sessions WHERE id = ?`, id)
	session, err := scanFocusSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get focus session %d: %w", id, err)
	}
	return session, nil
}

func scanFocusSession(row rowScanner) (*FocusSession, error) {
	var (
		session  FocusSession
		start    string
		end      sql.NullString
		duration sql.NullInt64
	)
	if err := row.Scan(&session.ID, &start, &end, &duration); err != nil {
		return nil, err
	}
	var err error
	if session.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if session.EndTime, err = parseNullableTime(end); err != nil {
		return nil, err
	}
	if duration.Valid {
		d := duration.Int64
		session.Duration = &d
	}
	return &session, nil
}
