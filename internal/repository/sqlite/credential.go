package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JosuaGoecking/Messenger/internal/domain"
)

// CredentialRepository implements domain.CredentialRepository using SQLite.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new SQLite-backed CredentialRepository.
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db.SqlDB}
}

func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (username, hash, salt, iterations, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		cred.Username, cred.Hash, cred.Salt, cred.Iterations, now,
	)
	if err != nil {
		if isConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	cred.UpdatedAt = now
	return nil
}

func (r *CredentialRepository) Get(ctx context.Context, username string) (*domain.Credential, error) {
	cred := &domain.Credential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT username, hash, salt, iterations, updated_at
		 FROM credentials WHERE username = ?`, username,
	).Scan(&cred.Username, &cred.Hash, &cred.Salt, &cred.Iterations, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}
	return cred, nil
}

// Delete is idempotent; removing an absent credential succeeds.
func (r *CredentialRepository) Delete(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
