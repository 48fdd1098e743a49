package user

import (
	"time"

	"github.com/google/uuid"
)

// VerifyStatus represents the verification state of a user account
type VerifyStatus int

const (
	VerifyStatusUnverified VerifyStatus = iota
	VerifyStatusVerified
	VerifyStatusBanned
)

// User is the identity record. VerifyStatus is the canonical verified
// signal; EmailVerifyToken is kept in sync with it at every mutation site
// (empty exactly when the status is Verified).
type User struct {
	ID                  uuid.UUID
	Email               string
	PasswordHash        string
	Name                string
	DateOfBirth         time.Time
	EmailVerifyToken    string
	ForgotPasswordToken string
	VerifyStatus        VerifyStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Verified reports whether the user's email address has been verified
func (u User) Verified() bool {
	return u.VerifyStatus == VerifyStatusVerified
}

// RefreshToken is a revocable session handle. A user may hold many
// concurrent refresh tokens, one per session.
type RefreshToken struct {
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
}
