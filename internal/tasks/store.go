// Package tasks persists tasks attached to events.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sauravv193/event-collab-task-management/internal/db"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidStatus = errors.New("invalid task status")
)

// Status is the task workflow state.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func validStatus(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task belongs to exactly one event.
type Task struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"event_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Store manages tasks in the shared database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(sqldb *sql.DB) *Store {
	return &Store{db: sqldb, now: time.Now}
}

const taskColumns = `id, event_id, name, description, status, assigned_to, deadline, created_at, updated_at`

// Create inserts a task under the given event.
func (s *Store) Create(ctx context.Context, t *Task) (*Task, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("task name required")
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if !validStatus(t.Status) {
		return nil, ErrInvalidStatus
	}

	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	var deadline any
	if t.Deadline != nil {
		deadline = t.Deadline.UTC().Format(time.RFC3339Nano)
	}

	query := db.Rebind(`INSERT INTO tasks (event_id, name, description, status, assigned_to, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []any{
		t.EventID, t.Name, t.Description, string(t.Status), t.AssignedTo, deadline,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	}

	var err error
	if db.IsPostgres() {
		err = s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&t.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			t.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Get fetches a task by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	return scanTask(row)
}

// ListByEvent returns the event's tasks, oldest first.
func (s *Store) ListByEvent(ctx context.Context, eventID int64) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE event_id = ? ORDER BY id ASC`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks rows: %w", err)
	}
	return out, nil
}

// Update rewrites the task's mutable fields and bumps updated_at.
func (s *Store) Update(ctx context.Context, t *Task) (*Task, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("task name required")
	}
	if !validStatus(t.Status) {
		return nil, ErrInvalidStatus
	}

	now := s.now().UTC()
	var deadline any
	if t.Deadline != nil {
		deadline = t.Deadline.UTC().Format(time.RFC3339Nano)
	}

	res, err := s.db.ExecContext(ctx,
		db.Rebind(`UPDATE tasks SET name = ?, description = ?, status = ?, assigned_to = ?, deadline = ?, updated_at = ? WHERE id = ?`),
		t.Name, t.Description, string(t.Status), t.AssignedTo, deadline, now.Format(time.RFC3339Nano), t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrTaskNotFound
	}

	return s.Get(ctx, t.ID)
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteByEvent removes every task under the event.
func (s *Store) DeleteByEvent(ctx context.Context, eventID int64) error {
	if _, err := s.db.ExecContext(ctx, db.Rebind(`DELETE FROM tasks WHERE event_id = ?`), eventID); err != nil {
		return fmt.Errorf("delete event tasks: %w", err)
	}
	return nil
}

// OwningEvent resolves a task to the event it belongs to.
func (s *Store) OwningEvent(ctx context.Context, taskID int64) (int64, error) {
	var eventID int64
	err := s.db.QueryRowContext(ctx,
		db.Rebind(`SELECT event_id FROM tasks WHERE id = ?`), taskID,
	).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTaskNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("owning event query: %w", err)
	}
	return eventID, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var (
		t                                 Task
		description, assignedTo, deadline sql.NullString
		status, createdAt, updatedAt      string
	)
	err := sc.Scan(&t.ID, &t.EventID, &t.Name, &description, &status, &assignedTo, &deadline, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Description = description.String
	t.Status = Status(status)
	t.AssignedTo = assignedTo.String
	if deadline.Valid {
		d, err := time.Parse(time.RFC3339Nano, deadline.String)
		if err != nil {
			return nil, fmt.Errorf("parse deadline: %w", err)
		}
		t.Deadline = &d
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &t, nil
}
