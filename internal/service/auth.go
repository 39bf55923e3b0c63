package service

import (
	"context"
	"crypto/rand"
	"errors"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/JosuaGoecking/Messenger/internal/domain"
)

const (
	// DefaultIterations is the PBKDF2-HMAC-SHA256 cost used for new
	// credentials. Stored per credential, so existing hashes keep
	// verifying if the default ever changes.
	DefaultIterations = 100_000

	saltLength = 32
	keyLength  = 32
)

// AuthService owns password credentials and login tickets. A ticket is
// a stored last-authentication timestamp, valid for domain.TicketTTL;
// logout revokes it by deleting the row.
type AuthService struct {
	creds      domain.CredentialRepository
	tickets    domain.TicketRepository
	iterations int
	now        func() time.Time
}

// NewAuthService creates a new AuthService. iterations <= 0 selects
// DefaultIterations; tests pass a small value to stay fast.
func NewAuthService(creds domain.CredentialRepository, tickets domain.TicketRepository, iterations int) *AuthService {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &AuthService{
		creds:      creds,
		tickets:    tickets,
		iterations: iterations,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Used by tests to control ticket
// expiry.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateCredential stores a new salted PBKDF2 hash for the user.
func (s *AuthService) CreateCredential(ctx context.Context, username, password string) error {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	cred := &domain.Credential{
		Username:   username,
		Hash:       s.deriveKey(password, salt, s.iterations),
		Salt:       salt,
		Iterations: s.iterations,
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

// Verify recomputes the hash with the stored salt and iteration count
// and compares in constant time. Returns domain.ErrNotFound if no
// credential exists for the user.
func (s *AuthService) Verify(ctx context.Context, username, password string) (bool, error) {
	cred, err := s.creds.Get(ctx, username)
	if err != nil {
		return false, err
	}
	derived := s.deriveKey(password, cred.Salt, cred.Iterations)
	return subtle.ConstantTimeCompare(derived, cred.Hash) == 1, nil
}

// RemoveCredential is idempotent.
func (s *AuthService) RemoveCredential(ctx context.Context, username string) error {
	return s.creds.Delete(ctx, username)
}

// Login verifies the password and, on success, issues a fresh ticket.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	ok, err := s.Verify(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return s.IssueTicket(ctx, username)
}

// Logout revokes the user's ticket; idempotent.
func (s *AuthService) Logout(ctx context.Context, username string) error {
	return s.RevokeTicket(ctx, username)
}

// IssueTicket records the current time as the user's last successful
// authentication.
func (s *AuthService) IssueTicket(ctx context.Context, username string) error {
	return s.tickets.Put(ctx, &domain.Ticket{Username: username, IssuedAt: s.now()})
}

// TicketValid reports whether the user holds a ticket younger than
// domain.TicketTTL. A ticket aged exactly TicketTTL is expired. The
// ticket is not renewed by this check.
func (s *AuthService) TicketValid(ctx context.Context, username string) (bool, error) {
	ticket, err := s.tickets.Get(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.now().Sub(ticket.IssuedAt) < domain.TicketTTL, nil
}

// RevokeTicket deletes the user's ticket; idempotent.
func (s *AuthService) RevokeTicket(ctx context.Context, username string) error {
	return s.tickets.Delete(ctx, username)
}

func (s *AuthService) deriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
}
