package repository

import (
	"context"
	"errors"
	"time"

	"github.com/m0hi1/voyageiq/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail and ErrDuplicateUsername surface unique-constraint
	// violations so callers can retry username generation or report a 409.
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
)

// UserRepository defines persistence for the identity domain. All durable
// state lives here; the service keeps no in-process session state.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error

	// LinkGoogleID atomically sets google_id on a user that has none
	// (compare-and-set on the linking field). avatarURL is applied only
	// if the user has no avatar yet. It returns false with no error when
	// the user already had a google_id, leaving the row untouched; the
	// caller re-reads and decides between already-linked and conflict.
	LinkGoogleID(ctx context.Context, userID, googleID, avatarURL string) (bool, error)

	// SetResetToken stores the one-way hash of an outstanding reset token
	// plus its expiry, superseding any prior token.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error

	// GetByResetTokenHash finds the user holding an unexpired reset token
	// with the given hash; expired or unknown hashes both return ErrNotFound.
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error)

	// UpdatePasswordAndClearReset sets the new password hash and clears
	// both reset fields in one statement, making the token single-use.
	UpdatePasswordAndClearReset(ctx context.Context, userID, passwordHash string) error

	// RecordLogin is the explicit last-login bookkeeping call made at the
	// end of each successful login path.
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}
