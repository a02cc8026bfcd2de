package ports

import (
	"context"

	"github.com/aretw0/funil/pkg/domain"
)

// Messenger delivers outbound messages on the messaging platform.
type Messenger interface {
	Send(ctx context.Context, to domain.Recipient, msg domain.OutboundMessage) error

	// TransferToAgent hands the contact's ticket over to a human department.
	TransferToAgent(ctx context.Context, contactID string) error
}

// Contact is the messaging platform's view of a contact.
type Contact struct {
	ID      string
	Name    string
	IsGroup bool
}

// ContactDirectory answers questions the webhook needs before dispatching.
type ContactDirectory interface {
	GetContact(ctx context.Context, contactID string) (*Contact, error)

	// HasAttendedTicket reports whether an open ticket is assigned to a human.
	HasAttendedTicket(ctx context.Context, contactID string) (bool, error)
}
