package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JosuaGoecking/Messenger/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite. The
// mailbox lives in the messages table; rowid order is insertion order.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB}
}

func (r *UserRepository) Create(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, created_at) VALUES (?, ?)",
		name, time.Now().UTC(),
	)
	if err != nil {
		if isConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Exists(ctx context.Context, name string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return true, nil
}

func (r *UserRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *UserRepository) AppendMessage(ctx context.Context, name, body string) error {
	exists, err := r.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO messages (username, body, unread, created_at) VALUES (?, ?, 1, ?)",
		name, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// DrainUnread returns the unread message bodies in insertion order and
// marks them read. Reading and marking happen in one transaction so a
// message cannot be returned twice.
func (r *UserRepository) DrainUnread(ctx context.Context, name string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE name = ?", name).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT body FROM messages WHERE username = ? AND unread = 1 ORDER BY id", name)
	if err != nil {
		return nil, fmt.Errorf("query unread messages: %w", err)
	}

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan message: %w", err)
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx,
		"UPDATE messages SET unread = 0 WHERE username = ? AND unread = 1", name); err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return bodies, nil
}

func (r *UserRepository) ListMessages(ctx context.Context, name string) ([]domain.Message, error) {
	exists, err := r.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, username, body, unread, created_at FROM messages WHERE username = ? ORDER BY id", name)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Owner, &m.Body, &m.Unread, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
