package sqlite_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/JosuaGoecking/Messenger/internal/domain"
	"github.com/JosuaGoecking/Messenger/internal/repository/sqlite"
)

func TestCredentialRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewCredentialRepository(db)
	ctx := context.Background()
	createUsers(t, db, "alice")

	cred := &domain.Credential{
		Username:   "alice",
		Hash:       []byte("hash-bytes"),
		Salt:       []byte("salt-bytes"),
		Iterations: 100000,
	}
	if err := repo.Create(ctx, cred); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got.Hash, cred.Hash) || !bytes.Equal(got.Salt, cred.Salt) {
		t.Fatal("stored hash or salt does not round-trip")
	}
	if got.Iterations != 100000 {
		t.Fatalf("expected 100000 iterations, got %d", got.Iterations)
	}
}

func TestCredentialRepository_Create_Duplicate(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewCredentialRepository(db)
	ctx := context.Background()
	createUsers(t, db, "alice")

	cred := &domain.Credential{Username: "alice", Hash: []byte("h"), Salt: []byte("s"), Iterations: 1}
	if err := repo.Create(ctx, cred); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := repo.Create(ctx, &domain.Credential{Username: "alice", Hash: []byte("h2"), Salt: []byte("s2"), Iterations: 1})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCredentialRepository_Get_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewCredentialRepository(db)

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCredentialRepository_Delete_Idempotent(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewCredentialRepository(db)
	ctx := context.Background()
	createUsers(t, db, "alice")

	cred := &domain.Credential{Username: "alice", Hash: []byte("h"), Salt: []byte("s"), Iterations: 1}
	if err := repo.Create(ctx, cred); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}

	_, err := repo.Get(ctx, "alice")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
