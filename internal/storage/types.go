package storage

import (
	"context"
	"time"
)

type FocusSession struct {
	ID        int64
	StartTime time.Time
	EndTime   *time.Time
	// Duration is whole seconds between start and end, set when the session ends.
	Duration *int64
}

type DiaryEntry struct {
	ID int64
	// Date is the calendar day in YYYY-MM-DD form.
	Date      string
	Title     *string
	Content   string
	Mood      *int
	Images    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DiaryUpdate struct {
	ID      int64
	Title   *string
	Content *string
	Mood    *int
	Images  []string
}

type Todo struct {
	ID          int64
	Title       string
	Description *string
	Completed   bool
	Priority    int
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TodoFilter struct {
	Completed *bool
}

type TodoUpdate struct {
	ID          int64
	Title       *string
	Description *string
	Completed   *bool
	Priority    *int
	DueDate     *time.Time
}

type Alarm struct {
	ID int64
	// Time is the time of day, HH:MM.
	Time      string
	Days      []string
	Enabled   bool
	Label     *string
	SoundPath *string
	CreatedAt time.Time
}

type AlarmUpdate struct {
	ID        int64
	Time      *string
	Days      []string
	Enabled   *bool
	Label     *string
	SoundPath *string
}

type FocusFilter struct {
	From *time.Time
	To   *time.Time
}

type DiaryRepository interface {
	Save(ctx context.Context, entry *DiaryEntry) error
	Get(ctx context.Context, date string) (*DiaryEntry, error)
	GetByID(ctx context.Context, id int64) (*DiaryEntry, error)
	List(ctx context.Context) ([]DiaryEntry, error)
	ListByMonth(ctx context.Context, year int, month time.Month) ([]DiaryEntry, error)
	Update(ctx context.Context, update DiaryUpdate) error
	Delete(ctx context.Context, date string) error
	DeleteByID(ctx context.Context, id int64) error
}

type TodoRepository interface {
	Create(ctx context.Context, todo *Todo) error
	List(ctx context.Context, filter TodoFilter) ([]Todo, error)
	Update(ctx context.Context, update TodoUpdate) error
	Delete(ctx context.Context, id int64) error
}

type AlarmRepository interface {
	Create(ctx context.Context, alarm *Alarm) error
	List(ctx context.Context) ([]Alarm, error)
	Update(ctx context.Context, update AlarmUpdate) error
	Delete(ctx context.Context, id int64) error
}

type FocusRepository interface {
	Start(ctx context.Context) (*FocusSession, error)
	End(ctx context.Context, id int64) (*FocusSession, error)
	List(ctx context.Context, filter FocusFilter) ([]FocusSession, error)
}
