package ws

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
)

// Session is one realtime connection. The identity slot starts empty and
// can be bound exactly once, at handshake time; after that the record is
// immutable, so concurrent frame handlers read it without locks.
type Session struct {
	ID        string
	CreatedAt time.Time

	identity atomic.Pointer[auth.Identity]
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Bind attaches the identity to the session. Only the first bind wins;
// later attempts report false and leave the session unchanged.
func (s *Session) Bind(ident *auth.Identity) bool {
	if ident == nil {
		return false
	}
	return s.identity.CompareAndSwap(nil, ident)
}

// Identity returns the bound identity, or nil for an anonymous session.
func (s *Session) Identity() *auth.Identity {
	return s.identity.Load()
}

// Authenticated reports whether an identity is bound.
func (s *Session) Authenticated() bool {
	return s.identity.Load() != nil
}
