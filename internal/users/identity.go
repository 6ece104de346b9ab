package users

import (
	"context"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
)

// Identities exposes the user store as an identity lookup for token
// verification and permission checks.
type Identities struct {
	store *Store
}

func NewIdentities(store *Store) *Identities {
	return &Identities{store: store}
}

func (i *Identities) FindByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	u, err := i.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return toIdentity(u), nil
}

func (i *Identities) FindByID(ctx context.Context, id int64) (*auth.Identity, error) {
	u, err := i.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toIdentity(u), nil
}

func toIdentity(u *User) *auth.Identity {
	return &auth.Identity{
		ID:       u.ID,
		Username: u.Username,
		Roles:    u.Roles,
	}
}
