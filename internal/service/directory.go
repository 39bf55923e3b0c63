package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode"

	"github.com/JosuaGoecking/Messenger/internal/domain"
)

// MemberStatus is the per-member outcome of a bulk group operation.
// Unknown users and duplicates are skipped, not fatal.
type MemberStatus int

const (
	MemberAdded MemberStatus = iota
	MemberUnknownUser
	MemberAlreadyPresent
)

// MemberOutcome reports what happened to one member during CreateGroup
// or AddMembers.
type MemberOutcome struct {
	Name   string
	Status MemberStatus
}

// DirectoryService implements create/delete/query operations over users
// and groups, keeping identity, credential, and membership records
// consistent across every mutation. Multi-step mutations run under a
// single mutex so cascades never interleave.
type DirectoryService struct {
	mu     sync.Mutex
	users  domain.UserRepository
	groups domain.GroupRepository
	auth   *AuthService
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(users domain.UserRepository, groups domain.GroupRepository, auth *AuthService) *DirectoryService {
	return &DirectoryService{users: users, groups: groups, auth: auth}
}

// CreateUser creates the user record and its credential together, then
// makes sure the reserved group exists and contains the user. If the
// credential cannot be stored the user record is removed again, so the
// pair is all-or-nothing from the caller's view.
func (s *DirectoryService) CreateUser(ctx context.Context, name, password string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.users.Create(ctx, name); err != nil {
		return err
	}
	if err := s.auth.CreateCredential(ctx, name, password); err != nil {
		if delErr := s.users.Delete(ctx, name); delErr != nil {
			slog.Error("cleanup after failed credential create", "user", name, "error", delErr)
		}
		return err
	}

	exists, err := s.groups.Exists(ctx, domain.ReservedGroup)
	if err != nil {
		return err
	}
	if !exists {
		return s.groups.Create(ctx, domain.ReservedGroup, []string{name})
	}
	return s.groups.AddMember(ctx, domain.ReservedGroup, name)
}

// DeleteUser removes the user after verifying its password. Membership
// cleanup runs first, so no group ever holds a dangling member; empty
// non-reserved groups are reaped by the removal cascade.
func (s *DirectoryService) DeleteUser(ctx context.Context, name, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.users.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	ok, err := s.auth.Verify(ctx, name, password)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}

	groups, err := s.groups.GroupsOf(ctx, name)
	if err != nil {
		return err
	}
	for _, group := range groups {
		if err := s.groups.RemoveMember(ctx, group, name); err != nil {
			return fmt.Errorf("remove %s from %s: %w", name, group, err)
		}
	}

	if err := s.auth.RemoveCredential(ctx, name); err != nil {
		return err
	}
	if err := s.auth.RevokeTicket(ctx, name); err != nil {
		return err
	}
	return s.users.Delete(ctx, name)
}

// CreateGroup creates the group with the existing subset of members and
// reports a per-member outcome; unknown users are skipped.
func (s *DirectoryService) CreateGroup(ctx context.Context, name string, members []string) ([]MemberOutcome, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make([]MemberOutcome, 0, len(members))
	var valid []string
	for _, member := range members {
		exists, err := s.users.Exists(ctx, member)
		if err != nil {
			return nil, err
		}
		if !exists {
			outcomes = append(outcomes, MemberOutcome{Name: member, Status: MemberUnknownUser})
			continue
		}
		outcomes = append(outcomes, MemberOutcome{Name: member, Status: MemberAdded})
		valid = append(valid, member)
	}

	if err := s.groups.Create(ctx, name, valid); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// AddMembers adds each existing, not-yet-member user to the group and
// reports a per-member outcome. Returns domain.ErrNotFound if the group
// is absent.
func (s *DirectoryService) AddMembers(ctx context.Context, group string, members []string) ([]MemberOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.groups.Exists(ctx, group)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	outcomes := make([]MemberOutcome, 0, len(members))
	for _, member := range members {
		userExists, err := s.users.Exists(ctx, member)
		if err != nil {
			return nil, err
		}
		if !userExists {
			outcomes = append(outcomes, MemberOutcome{Name: member, Status: MemberUnknownUser})
			continue
		}

		isMember, err := s.groups.IsMember(ctx, group, member)
		if err != nil {
			return nil, err
		}
		if isMember {
			outcomes = append(outcomes, MemberOutcome{Name: member, Status: MemberAlreadyPresent})
			continue
		}

		if err := s.groups.AddMember(ctx, group, member); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, MemberOutcome{Name: member, Status: MemberAdded})
	}
	return outcomes, nil
}

// RemoveMember removes the user from the group. No-op when the group is
// absent or the user is not a member; a non-reserved group emptied by
// the removal is deleted.
func (s *DirectoryService) RemoveMember(ctx context.Context, group, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups.RemoveMember(ctx, group, member)
}

// DeleteGroup deletes the group on behalf of requester. Any current
// member may delete a non-reserved group.
func (s *DirectoryService) DeleteGroup(ctx context.Context, group, requester string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.groups.Exists(ctx, group)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	if group == domain.ReservedGroup {
		return domain.ErrUnauthorized
	}

	isMember, err := s.groups.IsMember(ctx, group, requester)
	if err != nil {
		return err
	}
	if !isMember {
		return domain.ErrUnauthorized
	}

	return s.groups.Delete(ctx, group)
}

// Users lists all user names.
func (s *DirectoryService) Users(ctx context.Context) ([]string, error) {
	return s.users.List(ctx)
}

// Groups lists all group names.
func (s *DirectoryService) Groups(ctx context.Context) ([]string, error) {
	return s.groups.List(ctx)
}

// Members lists the members of a group; domain.ErrNotFound if absent.
func (s *DirectoryService) Members(ctx context.Context, group string) ([]string, error) {
	return s.groups.Members(ctx, group)
}

// GroupsOf lists the groups a user belongs to. An unknown user yields
// an empty list; callers that must distinguish use UserExists.
func (s *DirectoryService) GroupsOf(ctx context.Context, user string) ([]string, error) {
	return s.groups.GroupsOf(ctx, user)
}

func (s *DirectoryService) UserExists(ctx context.Context, user string) (bool, error) {
	return s.users.Exists(ctx, user)
}

func (s *DirectoryService) GroupExists(ctx context.Context, group string) (bool, error) {
	return s.groups.Exists(ctx, group)
}

// validateName rejects empty, overlong, and unmanageable identifiers.
// ':' is the command separator and '/' and '\' stay out of names that
// may end up in file paths.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
	}
	if len(name) > 64 {
		return fmt.Errorf("%w: name longer than 64 characters", domain.ErrInvalidInput)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == ':' || r == '/' || r == '\\' {
			return fmt.Errorf("%w: name contains %q", domain.ErrInvalidInput, r)
		}
	}
	return nil
}
