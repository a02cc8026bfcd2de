package ports

import (
	"context"

	"github.com/aretw0/funil/pkg/domain"
)

// SessionStore persists one Session per contact.
// A Set is all-or-nothing; concurrent cycles on the same contact are
// serialized by session.Manager, not by the store.
type SessionStore interface {
	// Get returns domain.ErrSessionNotFound if the contact has no session.
	Get(ctx context.Context, contactID string) (*domain.Session, error)

	// Set replaces the session of a contact.
	Set(ctx context.Context, contactID string, session *domain.Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, contactID string) error

	// List returns the ids of the stored sessions.
	List(ctx context.Context) ([]string, error)
}
