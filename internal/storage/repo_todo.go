package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const todoSelectColumns = `id, title, description, completed, priority, CAST(due_date AS TEXT), CAST(created_at AS TEXT), CAST(updated_at AS TEXT)`

type todoRepository struct {
	db *sql.DB
}

func (r *todoRepository) Create(ctx context.Context, todo *Todo) error {
	if todo == nil {
		return fmt.Errorf("create todo: todo is nil")
	}
	if strings.TrimSpace(todo.Title) == "" {
		return fmt.Errorf("create todo: title is required")
	}

	now := nowUTC()
	todo.CreatedAt = now
	todo.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO todos(title, description, completed, priority, due_date, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, todo.Title, nullableString(todo.Description), todo.Completed, todo.Priority, nullableTime(todo.DueDate), fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	if todo.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("create todo: last insert id: %w", err)
	}
	return nil
}

func (r *todoRepository) List(ctx context.Context, filter TodoFilter) ([]Todo, error) {
	query := `SELECT ` + todoSelectColumns + ` FROM todos`
	args := []any{}
	if filter.Completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, *filter.Completed)
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		var (
			todo        Todo
			description sql.NullString
			dueDate     sql.NullString
			createdAt   sql.NullString
			updatedAt   sql.NullString
		)
		if err := rows.Scan(&todo.ID, &todo.Title, &description, &todo.Completed, &todo.Priority, &dueDate, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todo.Description = stringPtr(description)
		if todo.DueDate, err = parseNullableTime(dueDate); err != nil {
			return nil, err
		}
		if created, err := parseNullableTime(createdAt); err != nil {
			return nil, err
		} else if created != nil {
			todo.CreatedAt = *created
		}
		if updated, err := parseNullableTime(updatedAt); err != nil {
			return nil, err
		} else if updated != nil {
			todo.UpdatedAt = *updated
		}
		out = append(out, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return out, nil
}

func (r *todoRepository) Update(ctx context.Context, update TodoUpdate) error {
	set := assignments{}
	set.set("updated_at", fmtTime(nowUTC()))
	if update.Title != nil {
		set.set("title", *update.Title)
	}
	if update.Description != nil {
		set.set("description", *update.Description)
	}
	if update.Completed != nil {
		set.set("completed", *update.Completed)
	}
	if update.Priority != nil {
		set.set("priority", *update.Priority)
	}
	if update.DueDate != nil {
		set.set("due_date", fmtTime(*update.DueDate))
	}

	args := append(set.args, update.ID)
	result, err := r.db.ExecContext(ctx, `UPDATE todos SET `+set.clause()+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return checkAffected("update todo", result)
}

func (r *todoRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return checkAffected("delete todo", result)
}
