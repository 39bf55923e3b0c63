package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JosuaGoecking/Messenger/internal/domain"
)

// TicketRepository implements domain.TicketRepository using SQLite.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new SQLite-backed TicketRepository.
func NewTicketRepository(db *DB) *TicketRepository {
	return &TicketRepository{db: db.SqlDB}
}

func (r *TicketRepository) Put(ctx context.Context, ticket *domain.Ticket) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (username, issued_at) VALUES (?, ?)
		 ON CONFLICT (username) DO UPDATE SET issued_at = excluded.issued_at`,
		ticket.Username, ticket.IssuedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) Get(ctx context.Context, username string) (*domain.Ticket, error) {
	ticket := &domain.Ticket{}
	err := r.db.QueryRowContext(ctx,
		"SELECT username, issued_at FROM tickets WHERE username = ?", username,
	).Scan(&ticket.Username, &ticket.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query ticket: %w", err)
	}
	return ticket, nil
}

// Delete is idempotent; revoking an absent ticket succeeds.
func (r *TicketRepository) Delete(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tickets WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}
