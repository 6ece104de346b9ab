package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema needed for users, events, tasks and chat.
// Statements are idempotent so startup always runs them.
func Migrate(ctx context.Context, sqldb *sql.DB) error {
	var stmts []string
	if IsPostgres() {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            BIGSERIAL PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				email         TEXT,
				full_name     TEXT,
				roles         TEXT NOT NULL DEFAULT 'ROLE_MEMBER',
				created_at    TEXT NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS events (
				id               BIGSERIAL PRIMARY KEY,
				name             TEXT NOT NULL,
				description      TEXT,
				event_date       TEXT NOT NULL,
				location         TEXT,
				category         TEXT,
				max_participants INTEGER,
				created_by       BIGINT NOT NULL REFERENCES users(id),
				created_at       TEXT NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS event_members (
				event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
				user_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				username TEXT NOT NULL,
				PRIMARY KEY (event_id, user_id)
			);`,
			`CREATE INDEX IF NOT EXISTS idx_event_members_username ON event_members(event_id, username);`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id          BIGSERIAL PRIMARY KEY,
				event_id    BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				description TEXT,
				status      TEXT NOT NULL DEFAULT 'TODO',
				assigned_to TEXT,
				deadline    TEXT,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_event ON tasks(event_id);`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				id       BIGSERIAL PRIMARY KEY,
				event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
				sender   TEXT NOT NULL,
				content  TEXT NOT NULL,
				sent_at  TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_chat_event_time ON chat_messages(event_id, sent_at);`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				email         TEXT,
				full_name     TEXT,
				roles         TEXT NOT NULL DEFAULT 'ROLE_MEMBER',
				created_at    TEXT NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS events (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				name             TEXT NOT NULL,
				description      TEXT,
				event_date       TEXT NOT NULL,
				location         TEXT,
				category         TEXT,
				max_participants INTEGER,
				created_by       INTEGER NOT NULL,
				created_at       TEXT NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS event_members (
				event_id INTEGER NOT NULL,
				user_id  INTEGER NOT NULL,
				username TEXT NOT NULL,
				PRIMARY KEY (event_id, user_id)
			);`,
			`CREATE INDEX IF NOT EXISTS idx_event_members_username ON event_members(event_id, username);`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				event_id    INTEGER NOT NULL,
				name        TEXT NOT NULL,
				description TEXT,
				status      TEXT NOT NULL DEFAULT 'TODO',
				assigned_to TEXT,
				deadline    TEXT,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_event ON tasks(event_id);`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				id       INTEGER PRIMARY KEY AUTOINCREMENT,
				event_id INTEGER NOT NULL,
				sender   TEXT NOT NULL,
				content  TEXT NOT NULL,
				sent_at  TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_chat_event_time ON chat_messages(event_id, sent_at);`,
		}
	}

	for _, stmt := range stmts {
		if _, err := sqldb.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
