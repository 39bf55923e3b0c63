package domain

import "context"

// ReservedGroup always exists once any user does, contains every user,
// and cannot be deleted.
const ReservedGroup = "all"

// GroupRepository defines persistence operations for groups and their
// member sets. The memberships table is the sole source of truth for
// user<->group membership. A non-reserved group that loses its last
// member is deleted in the same transaction as the removal.
type GroupRepository interface {
	// Create stores the group with the given members. The caller is
	// responsible for filtering members to existing users.
	Create(ctx context.Context, name string, members []string) error
	// Delete removes every membership and then the group row.
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)

	AddMember(ctx context.Context, group, user string) error
	// RemoveMember is a no-op when the group is absent or the user is
	// not a member.
	RemoveMember(ctx context.Context, group, user string) error
	IsMember(ctx context.Context, group, user string) (bool, error)
	Members(ctx context.Context, group string) ([]string, error)
	GroupsOf(ctx context.Context, user string) ([]string, error)
}
