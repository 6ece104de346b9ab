// Package chat persists per-event chat messages.
package chat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Sauravv193/event-collab-task-management/internal/db"
)

// Message is one chat line in an event's room.
type Message struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store manages chat messages in the shared database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(sqldb *sql.DB) *Store {
	return &Store{db: sqldb, now: time.Now}
}

// Save appends a message to the event's room.
func (s *Store) Save(ctx context.Context, eventID int64, sender, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content required")
	}

	m := &Message{
		EventID:   eventID,
		Sender:    sender,
		Content:   content,
		Timestamp: s.now().UTC(),
	}

	query := db.Rebind(`INSERT INTO chat_messages (event_id, sender, content, sent_at) VALUES (?, ?, ?, ?)`)
	args := []any{m.EventID, m.Sender, m.Content, m.Timestamp.Format(time.RFC3339Nano)}

	var err error
	if db.IsPostgres() {
		err = s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&m.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			m.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return m, nil
}

// History returns the event's messages ordered by timestamp.
func (s *Store) History(ctx context.Context, eventID int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		db.Rebind(`SELECT id, event_id, sender, content, sent_at FROM chat_messages WHERE event_id = ? ORDER BY sent_at ASC, id ASC`),
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var (
			m      Message
			sentAt string
		)
		if err := rows.Scan(&m.ID, &m.EventID, &m.Sender, &m.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.Timestamp, err = time.Parse(time.RFC3339Nano, sentAt); err != nil {
			return nil, fmt.Errorf("parse sent_at: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat history rows: %w", err)
	}
	return out, nil
}

// DeleteByEvent purges the event's room.
func (s *Store) DeleteByEvent(ctx context.Context, eventID int64) error {
	if _, err := s.db.ExecContext(ctx, db.Rebind(`DELETE FROM chat_messages WHERE event_id = ?`), eventID); err != nil {
		return fmt.Errorf("delete event messages: %w", err)
	}
	return nil
}
