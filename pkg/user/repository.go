package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when creating a user with an email that is already registered
	ErrEmailExists = errors.New("email is already registered")

	// ErrTokenNotFound is returned when no refresh token matches the lookup
	ErrTokenNotFound = errors.New("refresh token not found")
)

// UserRepository is the store contract the auth core needs from persistence:
// point lookups, insert-if-absent, and atomic single-document field updates.
type UserRepository interface {
	// Create inserts the user, failing with ErrEmailExists when the email is taken.
	// The store's unique index is the authoritative guard against duplicate
	// registrations; any earlier existence check is best-effort.
	Create(ctx context.Context, u User) error

	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// GetByEmailAndPassword looks up a user by exact {email, password_hash}
	// match, returning ErrUserNotFound whether the email is unknown or the
	// hash differs
	GetByEmailAndPassword(ctx context.Context, email, passwordHash string) (User, error)

	// SetVerified atomically clears the email verify token, flips the status
	// to Verified and bumps updated_at in a single document update
	SetVerified(ctx context.Context, id uuid.UUID) error

	// SetEmailVerifyToken atomically replaces the pending email verify token
	SetEmailVerifyToken(ctx context.Context, id uuid.UUID, token string) error

	// SetForgotPasswordToken atomically replaces the pending reset token
	SetForgotPasswordToken(ctx context.Context, id uuid.UUID, token string) error

	// ResetPassword atomically replaces the password hash and clears the
	// forgot password token in a single document update, so the consumed
	// token can never authenticate against the new credential
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// RefreshTokenRepository stores refresh tokens for revocation checks
type RefreshTokenRepository interface {
	Create(ctx context.Context, rt RefreshToken) error

	// GetByToken returns the record matching the token value, or ErrTokenNotFound
	GetByToken(ctx context.Context, token string) (RefreshToken, error)

	// DeleteByToken removes the record matching the token value. Deleting a
	// token that does not exist is not an error.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteOlderThan removes records created before the cutoff and returns
	// how many were deleted. Used by the session sweep; the signature expiry
	// claim is otherwise the only enforcement of refresh token lifetime.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
