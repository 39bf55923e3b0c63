package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JosuaGoecking/Messenger/internal/domain"
	"github.com/JosuaGoecking/Messenger/internal/service"
)

func TestDirectoryService_CreateUser_PopulatesReservedGroup(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()

	createTestUser(t, directory, "alice", "p1")

	members, err := directory.Members(ctx, domain.ReservedGroup)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 || members[0] != "alice" {
		t.Fatalf("expected [alice], got %v", members)
	}

	createTestUser(t, directory, "bob", "p2")
	members, err = directory.Members(ctx, domain.ReservedGroup)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members of %q, got %v", domain.ReservedGroup, members)
	}
}

func TestDirectoryService_CreateUser_Duplicate(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()
	createTestUser(t, directory, "alice", "p1")

	err := directory.CreateUser(ctx, "alice", "other")
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDirectoryService_CreateUser_InvalidNames(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user string
	}{
		{"empty", ""},
		{"whitespace", "al ice"},
		{"colon", "a:b"},
		{"slash", "a/b"},
		{"backslash", `a\b`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := directory.CreateUser(ctx, tc.user, "pw")
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestDirectoryService_DeleteUser(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()
	createTestUser(t, directory, "alice", "p1")

	if err := directory.DeleteUser(ctx, "alice", "p1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	exists, err := directory.UserExists(ctx, "alice")
	if err != nil {
		t.Fatalf("UserExists: %v", err)
	}
	if exists {
		t.Fatal("expected alice to be gone")
	}

	// alice was the only member, so even the reserved group's membership
	// list is empty now; the group itself survives.
	members, err := directory.Members(ctx, domain.ReservedGroup)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members left in %q, got %v", domain.ReservedGroup, members)
	}
}

func TestDirectoryService_DeleteUser_WrongPassword(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()
	createTestUser(t, directory, "alice", "p1")

	err := directory.DeleteUser(ctx, "alice", "wrong")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	exists, err := directory.UserExists(ctx, "alice")
	if err != nil {
		t.Fatalf("UserExists: %v", err)
	}
	if !exists {
		t.Fatal("expected alice to survive a failed deletion")
	}
}

func TestDirectoryService_DeleteUser_NotFound(t *testing.T) {
	_, directory, _, _ := newTestServices(t)

	err := directory.DeleteUser(context.Background(), "ghost", "pw")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectoryService_CreateGroup_FiltersUnknownMembers(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()
	createTestUser(t, directory, "alice", "p1")

	outcomes, err := directory.CreateGroup(ctx, "team", []string{"alice", "ghost"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Name != "alice" || outcomes[0].Status != service.MemberAdded {
		t.Fatalf("expected alice added, got %+v", outcomes[0])
	}
	if outcomes[1].Name != "ghost" || outcomes[1].Status != service.MemberUnknownUser {
		t.Fatalf("expected ghost unknown, got %+v", outcomes[1])
	}

	members, err := directory.Members(ctx, "team")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 || members[0] != "alice" {
		t.Fatalf("expected [alice], got %v", members)
	}
}

func TestDirectoryService_AddMembers_Outcomes(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()
	createTestUser(t, directory, "alice", "p1")
	createTestUser(t, directory, "bob", "p2")

	if _, err := directory.CreateGroup(ctx, "team", []string{"alice"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	outcomes, err := directory.AddMembers(ctx, "team", []string{"bob", "alice", "ghost"})
	if err != nil {
		t.Fatalf("AddMembers: %v", err)
	}

	want := []service.MemberOutcome{
		{Name: "bob", Status: service.MemberAdded},
		{Name: "alice", Status: service.MemberAlreadyPresent},
		{Name: "ghost", Status: service.MemberUnknownUser},
	}
	if len(outcomes) != len(want) {
		t.Fatalf("expected %d outcomes, got %d", len(want), len(outcomes))
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("outcome %d: expected %+v, got %+v", i, want[i], outcomes[i])
		}
	}
}

func TestDirectoryService_AddMembers_UnknownGroup(t *testing.T) {
	_, directory, _, _ := newTestServices(t)

	_, err := directory.AddMembers(context.Background(), "nothere", []string{"alice"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectoryService_DeleteGroup_Authorization(t *testing.T) {
	_, directory, _, _ := newTestServices(t)
	ctx := context.Background()
	createTestUser(t, directory, "alice", "p1")
	createTestUser(t, directory, "bob", "p2")

	if _, err := directory.CreateGroup(ctx, "team", []string{"alice"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	// Non-member may not delete.
	err := directory.DeleteGroup(ctx, "team", "bob")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-member, got %v", err)
	}

	// The reserved group may not be deleted by anyone.
	err = directory.DeleteGroup(ctx, domain.ReservedGroup, "alice")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for reserved group, got %v", err)
	}

	// A member may delete.
	if err := directory.DeleteGroup(ctx, "team", "alice"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	exists, err := directory.GroupExists(ctx, "team")
	if err != nil {
		t.Fatalf("GroupExists: %v", err)
	}
	if exists {
		t.Fatal("expected team to be gone")
	}
}

func TestDirectoryService_DeleteGroup_NotFound(t *testing.T) {
	_, directory, _, _ := newTestServices(t)

	err := directory.DeleteGroup(context.Background(), "nothere", "alice")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectoryService_GroupsOf_UnknownUserIsEmpty(t *testing.T) {
	_, directory, _, _ := newTestServices(t)

	groups, err := directory.GroupsOf(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GroupsOf: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %v", groups)
	}
}

// TestDirectoryService_FullScenario walks the end-to-end sequence:
// users alice and bob, group team, a group send, membership removal,
// and the cascade when alice is deleted.
func TestDirectoryService_FullScenario(t *testing.T) {
	_, directory, messaging, db := newTestServices(t)
	ctx := context.Background()

	createTestUser(t, directory, "alice", "p1")

	members, err := directory.Members(ctx, domain.ReservedGroup)
	if err != nil {
		t.Fatalf("Members(all): %v", err)
	}
	if len(members) != 1 || members[0] != "alice" {
		t.Fatalf("expected all = [alice], got %v", members)
	}

	createTestUser(t, directory, "bob", "p2")

	if _, err := directory.CreateGroup(ctx, "team", []string{"alice", "bob"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	members, err = directory.Members(ctx, "team")
	if err != nil {
		t.Fatalf("Members(team): %v", err)
	}
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Fatalf("expected team = [alice bob], got %v", members)
	}

	if err := messaging.Send(ctx, "alice", "team", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	bobUnread, err := db.Users().DrainUnread(ctx, "bob")
	if err != nil {
		t.Fatalf("DrainUnread(bob): %v", err)
	}
	if len(bobUnread) != 1 || bobUnread[0] != "From alice: hi (sent to team)" {
		t.Fatalf("unexpected bob mailbox: %v", bobUnread)
	}
	aliceAll, err := db.Users().ListMessages(ctx, "alice")
	if err != nil {
		t.Fatalf("ListMessages(alice): %v", err)
	}
	if len(aliceAll) != 1 {
		t.Fatalf("expected alice to receive her own group message, got %v", aliceAll)
	}

	if err := directory.RemoveMember(ctx, "team", "bob"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	members, err = directory.Members(ctx, "team")
	if err != nil {
		t.Fatalf("Members(team): %v", err)
	}
	if len(members) != 1 || members[0] != "alice" {
		t.Fatalf("expected team = [alice], got %v", members)
	}
	bobGroups, err := directory.GroupsOf(ctx, "bob")
	if err != nil {
		t.Fatalf("GroupsOf(bob): %v", err)
	}
	for _, g := range bobGroups {
		if g == "team" {
			t.Fatal("expected bob to be out of team")
		}
	}

	if err := directory.DeleteUser(ctx, "alice", "p1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	// alice was team's last member, so team is reaped.
	exists, err := directory.GroupExists(ctx, "team")
	if err != nil {
		t.Fatalf("GroupExists: %v", err)
	}
	if exists {
		t.Fatal("expected team to be deleted with its last member")
	}

	members, err = directory.Members(ctx, domain.ReservedGroup)
	if err != nil {
		t.Fatalf("Members(all): %v", err)
	}
	if len(members) != 1 || members[0] != "bob" {
		t.Fatalf("expected all = [bob], got %v", members)
	}
}
