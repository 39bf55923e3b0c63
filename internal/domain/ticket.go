package domain

import (
	"context"
	"time"
)

// TicketTTL is how long a ticket remains valid after issue. Validity is
// strict: a ticket aged exactly TicketTTL is expired.
const TicketTTL = 30 * time.Minute

// Ticket records a user's last successful authentication. It is not
// renewed by use; only a fresh login moves IssuedAt forward.
type Ticket struct {
	Username string
	IssuedAt time.Time
}

type TicketRepository interface {
	// Put inserts or replaces the ticket for ticket.Username.
	Put(ctx context.Context, ticket *Ticket) error
	Get(ctx context.Context, username string) (*Ticket, error)
	// Delete is idempotent.
	Delete(ctx context.Context, username string) error
}
