package domain

import (
	"context"
	"time"
)

// Credential is a salted password hash for one user. Iterations records
// the KDF cost the hash was derived with, so verification keeps working
// after the default cost changes.
type Credential struct {
	Username   string
	Hash       []byte
	Salt       []byte
	Iterations int
	UpdatedAt  time.Time
}

type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	Get(ctx context.Context, username string) (*Credential, error)
	// Delete is idempotent.
	Delete(ctx context.Context, username string) error
}
