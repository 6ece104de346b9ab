// Package events persists events and their membership rolls.
package events

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
	ErrEventNotFound = errors.New("event not found")
	ErrEventExpired  = errors.New("event has already taken place")
	ErrEventFull     = errors.New("event is full")
	ErrAlreadyMember = errors.New("already a member")
	ErrNotMember     = errors.New("not a member")
)

// Event is a collaborative event with a membership roll.
type Event struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location,omitempty"`
	Category        string    `json:"category,omitempty"`
	MaxParticipants int       `json:"max_participants,omitempty"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// Member is one entry on an event's roll.
type Member struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// ListFilter narrows and pages the event listing.
type ListFilter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// Store manages events in the shared database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(sqldb *sql.DB) *Store {
	return &Store{db: sqldb, now: time.Now}
}

const eventColumns = `id, name, description, event_date, location, category, max_participants, created_by, created_at`

// Create inserts the event and enrolls the creator as its first member.
func (s *Store) Create(ctx context.Context, e *Event, creatorUsername string) (*Event, error) {
	if strings.TrimSpace(e.Name) == "" {
		return nil, fmt.Errorf("event name required")
	}
	e.CreatedAt = s.now().UTC()

	query := db.Rebind(`INSERT INTO events (name, description, event_date, location, category, max_participants, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []any{
		e.Name, e.Description, e.Date.UTC().Format(time.RFC3339Nano),
		e.Location, e.Category, e.MaxParticipants, e.CreatedBy,
		e.CreatedAt.Format(time.RFC3339Nano),
	}

	var err error
	if db.IsPostgres() {
		err = s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&e.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			e.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		db.Rebind(`INSERT INTO event_members (event_id, user_id, username) VALUES (?, ?, ?)`),
		e.ID, e.CreatedBy, creatorUsername,
	); err != nil {
		return nil, fmt.Errorf("enroll creator: %w", err)
	}

	return e, nil
}

// Get fetches an event by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		db.Rebind(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id)
	return scanEvent(row)
}

// List returns events newest first, optionally filtered by category or a
// name/description substring.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var (
		clauses []string
		args    []any
	)
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		clauses = append(clauses, "(name LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	return s.queryEvents(ctx, query, args...)
}

// ListByMember returns the events the named user belongs to, newest first.
func (s *Store) ListByMember(ctx context.Context, username string) ([]Event, error) {
	query := `SELECT ` + prefixColumns("e", eventColumns) + `
		FROM events e
		JOIN event_members m ON m.event_id = e.id
		WHERE m.username = ?
		ORDER BY e.created_at DESC, e.id DESC`
	return s.queryEvents(ctx, query, username)
}

// Delete removes the event; membership, tasks and chat cascade (postgres)
// or are cleaned by the caller's stores (sqlite has no FK enforcement here).
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, db.Rebind(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	_, _ = s.db.ExecContext(ctx, db.Rebind(`DELETE FROM event_members WHERE event_id = ?`), id)
	return nil
}

// Join enrolls the user. Past-dated and full events reject the join.
func (s *Store) Join(ctx context.Context, eventID, userID int64, username string) error {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if e.Date.Before(s.now().UTC()) {
		return ErrEventExpired
	}

	member, err := s.IsMember(ctx, eventID, username)
	if err != nil {
		return err
	}
	if member {
		return ErrAlreadyMember
	}

	if e.MaxParticipants > 0 {
		var count int
		if err := s.db.QueryRowContext(ctx,
			db.Rebind(`SELECT COUNT(*) FROM event_members WHERE event_id = ?`), eventID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if count >= e.MaxParticipants {
			return ErrEventFull
		}
	}

	if _, err := s.db.ExecContext(ctx,
		db.Rebind(`INSERT INTO event_members (event_id, user_id, username) VALUES (?, ?, ?)`),
		eventID, userID, username,
	); err != nil {
		return fmt.Errorf("join event: %w", err)
	}
	return nil
}

// RemoveMember drops a user from the event's roll.
func (s *Store) RemoveMember(ctx context.Context, eventID, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		db.Rebind(`DELETE FROM event_members WHERE event_id = ? AND user_id = ?`),
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotMember
	}
	return nil
}

// IsMember reports membership with an existence query.
func (s *Store) IsMember(ctx context.Context, eventID int64, username string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		db.Rebind(`SELECT 1 FROM event_members WHERE event_id = ? AND username = ?`),
		eventID, username,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("membership query: %w", err)
	}
	return true, nil
}

// CreatorID returns the numeric id of the event's creator.
func (s *Store) CreatorID(ctx context.Context, eventID int64) (int64, error) {
	var creator int64
	err := s.db.QueryRowContext(ctx,
		db.Rebind(`SELECT created_by FROM events WHERE id = ?`), eventID,
	).Scan(&creator)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEventNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("creator query: %w", err)
	}
	return creator, nil
}

// MembersOf returns the event's roll.
func (s *Store) MembersOf(ctx context.Context, eventID int64) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx,
		db.Rebind(`SELECT user_id, username FROM event_members WHERE event_id = ? ORDER BY username`),
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members rows: %w", err)
	}
	return members, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		e                               Event
		description, location, category sql.NullString
		maxParticipants                 sql.NullInt64
		date, createdAt                 string
	)
	err := sc.Scan(&e.ID, &e.Name, &description, &date, &location, &category, &maxParticipants, &e.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	e.Description = description.String
	e.Location = location.String
	e.Category = category.String
	e.MaxParticipants = int(maxParticipants.Int64)
	if e.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
		return nil, fmt.Errorf("parse event_date: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &e, nil
}

func prefixColumns(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
