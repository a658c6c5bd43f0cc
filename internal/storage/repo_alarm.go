package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const alarmSelectColumns = `id, CAST(time AS TEXT), days, enabled, label, sound_path, CAST(created_at AS TEXT)`

type alarmRepository struct {
	db *sql.DB
}

func (r *alarmRepository) Create(ctx context.Context, alarm *Alarm) error {
	if alarm == nil {
		return fmt.Errorf("create alarm: alarm is nil")
	}
	if err := validateTimeOfDay(alarm.Time); err != nil {
		return fmt.Errorf("create alarm: %w", err)
	}
	days, err := encodeList(alarm.Days)
	if err != nil {
		return fmt.Errorf("create alarm: %w", err)
	}

	// New alarms always start enabled.
	alarm.Enabled = true
	alarm.CreatedAt = nowUTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms(time, days, enabled, label, sound_path, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
	`, alarm.Time, days, alarm.Enabled, nullableString(alarm.Label), nullableString(alarm.SoundPath), fmtTime(alarm.CreatedAt))
	if err != nil {
		return fmt.Errorf("create alarm: %w", err)
	}
	if alarm.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("create alarm: last insert id: %w", err)
	}
	return nil
}

func (r *alarmRepository) List(ctx context.Context) ([]Alarm, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+alarmSelectColumns+` FROM alarms ORDER BY time ASC`)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var out []Alarm
	for rows.Next() {
		var (
			alarm     Alarm
			days      sql.NullString
			label     sql.NullString
			soundPath sql.NullString
			createdAt sql.NullString
		)
		if err := rows.Scan(&alarm.ID, &alarm.Time, &days, &alarm.Enabled, &label, &soundPath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		if alarm.Days, err = decodeList(days); err != nil {
			return nil, err
		}
		alarm.Label = stringPtr(label)
		alarm.SoundPath = stringPtr(soundPath)
		if created, err := parseNullableTime(createdAt); err != nil {
			return nil, err
		} else if created != nil {
			alarm.CreatedAt = *created
		}
		out = append(out, alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}
	return out, nil
}

func (r *alarmRepository) Update(ctx context.Context, update AlarmUpdate) error {
	set := assignments{}
	if update.Time != nil {
		if err := validateTimeOfDay(*update.Time); err != nil {
			return fmt.Errorf("update alarm: %w", err)
		}
		set.set("time", *update.Time)
	}
	if update.Days != nil {
		days, err := encodeList(update.Days)
		if err != nil {
			return fmt.Errorf("update alarm: %w", err)
		}
		set.set("days", days)
	}
	if update.Enabled != nil {
		set.set("enabled", *update.Enabled)
	}
	if update.Label != nil {
		set.set("label", *update.Label)
	}
	if update.SoundPath != nil {
		set.set("sound_path", *update.SoundPath)
	}
	if set.empty() {
		return fmt.Errorf("update alarm: nothing to update")
	}

	args := append(set.args, update.ID)
	result, err := r.db.ExecContext(ctx, `UPDATE alarms SET `+set.clause()+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update alarm: %w", err)
	}
	return checkAffected("update alarm", result)
}

func (r *alarmRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}
	return checkAffected("delete alarm", result)
}

func validateTimeOfDay(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("time %q must be HH:MM", value)
	}
	return nil
}
