// Package store persists accounts, profiles and the token denylist.
// Two implementations exist: a gorm/Postgres one for production and an
// in-memory one for tests and local development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/verifly/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("record already exists")
)

// UserFilter narrows List results. Non-empty fields match as
// case-insensitive substrings.
type UserFilter struct {
	PhoneNumber string
	Email       string
}

// Accounts is the credential store for user records.
//
// Mutate runs fn on a freshly loaded row under a row-level lock and persists
// the result only when fn returns nil. All OTP transitions go through it so
// concurrent requests for the same account serialize instead of racing the
// attempt counter.
type Accounts interface {
	Create(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ByPhone(ctx context.Context, phone string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByVerificationToken(ctx context.Context, token string) (*models.User, error)
	List(ctx context.Context, filter UserFilter, limit, offset int) ([]models.User, int64, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(*models.User) error) (*models.User, error)
}

// Profiles stores the one-to-one profile extension of an account.
type Profiles interface {
	ByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
}

// RevokedTokens is the JWT denylist used by logout and refresh rotation.
// Revoke is insert-first and returns ErrConflict when the jti is already
// denylisted, so a token can be atomically spent exactly once.
type RevokedTokens interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Store bundles the persistence interfaces handlers depend on.
type Store struct {
	Accounts Accounts
	Profiles Profiles
	Tokens   RevokedTokens
}
