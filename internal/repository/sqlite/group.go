package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JosuaGoecking/Messenger/internal/domain"
)

// GroupRepository implements domain.GroupRepository using SQLite. The
// memberships table is the single source of truth for user<->group
// membership; per-user group lists are derived by query.
type GroupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new SQLite-backed GroupRepository.
func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db.SqlDB}
}

func (r *GroupRepository) Create(ctx context.Context, name string, members []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO "groups" (name, created_at) VALUES (?, ?)`,
		name, time.Now().UTC(),
	); err != nil {
		if isConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert group: %w", err)
	}

	for _, member := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (group_name, username) VALUES (?, ?)
			 ON CONFLICT (group_name, username) DO NOTHING`,
			name, member,
		); err != nil {
			return fmt.Errorf("insert membership %s: %w", member, err)
		}
	}

	return tx.Commit()
}

// Delete removes every membership and then the group row.
func (r *GroupRepository) Delete(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM memberships WHERE group_name = ?", name); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM "groups" WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

func (r *GroupRepository) Exists(ctx context.Context, name string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM "groups" WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query group: %w", err)
	}
	return true, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM "groups" ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *GroupRepository) AddMember(ctx context.Context, group, user string) error {
	exists, err := r.Exists(ctx, group)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO memberships (group_name, username) VALUES (?, ?)
		 ON CONFLICT (group_name, username) DO NOTHING`,
		group, user,
	)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// RemoveMember removes the membership if it exists. A non-reserved
// group that becomes empty is deleted in the same transaction.
func (r *GroupRepository) RemoveMember(ctx context.Context, group, user string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM memberships WHERE group_name = ? AND username = ?", group, user)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		// Group absent or user not a member; both are no-ops.
		return nil
	}

	if group != domain.ReservedGroup {
		var remaining int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM memberships WHERE group_name = ?", group).Scan(&remaining); err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM "groups" WHERE name = ?`, group); err != nil {
				return fmt.Errorf("delete empty group: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (r *GroupRepository) IsMember(ctx context.Context, group, user string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM memberships WHERE group_name = ? AND username = ?", group, user).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}

func (r *GroupRepository) Members(ctx context.Context, group string) ([]string, error) {
	exists, err := r.Exists(ctx, group)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT username FROM memberships WHERE group_name = ? ORDER BY username", group)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *GroupRepository) GroupsOf(ctx context.Context, user string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT group_name FROM memberships WHERE username = ? ORDER BY group_name", user)
	if err != nil {
		return nil, fmt.Errorf("list groups of user: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}
