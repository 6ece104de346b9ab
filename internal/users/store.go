package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Sauravv193/event-collab-task-management/internal/db"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUsernameAlreadyUsed = errors.New("username already exists")
)

// DefaultRole is assigned to every self-registered account.
const DefaultRole = "ROLE_MEMBER"

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store manages user accounts in the shared database.
type Store struct {
	db *sql.DB
}

func NewStore(sqldb *sql.DB) *Store {
	return &Store{db: sqldb}
}

// Create registers a new account with a bcrypt password hash and the
// default member role.
func (s *Store) Create(ctx context.Context, username, password, email, fullName string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username required")
	}
	if password == "" {
		return nil, fmt.Errorf("password required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &User{
		Username:     username,
		PasswordHash: string(hash),
		Email:        email,
		FullName:     fullName,
		Roles:        []string{DefaultRole},
		CreatedAt:    now,
	}

	query := db.Rebind(`INSERT INTO users (username, password_hash, email, full_name, roles, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	args := []any{u.Username, u.PasswordHash, u.Email, u.FullName, strings.Join(u.Roles, ","), now.Format(time.RFC3339Nano)}

	if db.IsPostgres() {
		err = s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&u.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			u.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameAlreadyUsed
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// Get fetches a user by ID.
func (s *Store) Get(ctx context.Context, id int64) (*User, error) {
	return s.queryOne(ctx, `SELECT id, username, password_hash, email, full_name, roles, created_at FROM users WHERE id = ?`, id)
}

// GetByUsername fetches a user by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.queryOne(ctx, `SELECT id, username, password_hash, email, full_name, roles, created_at FROM users WHERE username = ?`, username)
}

// Authenticate checks username/password.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// Count returns the total number of accounts.
func (s *Store) Count(ctx context.Context) int {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0
	}
	return count
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (*User, error) {
	row := s.db.QueryRowContext(ctx, db.Rebind(query), args...)

	var (
		u               User
		email, fullName sql.NullString
		roles           string
		createdAt       string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &email, &fullName, &roles, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Email = email.String
	u.FullName = fullName.String
	if roles != "" {
		u.Roles = strings.Split(roles, ",")
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	u.CreatedAt = t

	return &u, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}
