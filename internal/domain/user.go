package domain

import (
	"context"
	"time"
)

// Message is one mailbox entry. Entries are append-only except for the
// unread flag, which is cleared when the mailbox is drained.
type Message struct {
	ID        int64
	Owner     string
	Body      string
	Unread    bool
	CreatedAt time.Time
}

// UserRepository defines persistence operations for user records and
// their mailboxes. Users are keyed by name; a user's group memberships
// live on the group side and are derived on read.
type UserRepository interface {
	Create(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)

	AppendMessage(ctx context.Context, name, body string) error
	// DrainUnread returns unread message bodies in insertion order and
	// marks them read in the same transaction.
	DrainUnread(ctx context.Context, name string) ([]string, error)
	ListMessages(ctx context.Context, name string) ([]Message, error)
}
