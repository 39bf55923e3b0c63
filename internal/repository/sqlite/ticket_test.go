package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JosuaGoecking/Messenger/internal/domain"
	"github.com/JosuaGoecking/Messenger/internal/repository/sqlite"
)

func TestTicketRepository_PutAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewTicketRepository(db)
	ctx := context.Background()
	createUsers(t, db, "alice")

	issued := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	if err := repo.Put(ctx, &domain.Ticket{Username: "alice", IssuedAt: issued}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IssuedAt.Equal(issued) {
		t.Fatalf("expected issued at %v, got %v", issued, got.IssuedAt)
	}
}

func TestTicketRepository_Put_ReplacesExisting(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewTicketRepository(db)
	ctx := context.Background()
	createUsers(t, db, "alice")

	first := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	second := first.Add(10 * time.Minute)
	if err := repo.Put(ctx, &domain.Ticket{Username: "alice", IssuedAt: first}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := repo.Put(ctx, &domain.Ticket{Username: "alice", IssuedAt: second}); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IssuedAt.Equal(second) {
		t.Fatalf("expected issued at %v, got %v", second, got.IssuedAt)
	}
}

func TestTicketRepository_Get_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewTicketRepository(db)

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTicketRepository_Delete_Idempotent(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewTicketRepository(db)
	ctx := context.Background()
	createUsers(t, db, "alice")

	if err := repo.Put(ctx, &domain.Ticket{Username: "alice", IssuedAt: time.Now()}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}
