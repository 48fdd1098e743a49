package auth

import "errors"

var (
	// ErrInvalidCredentials is returned on login failure. It is deliberately
	// identical whether the email is unknown or the password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when a user id no longer resolves to a record
	ErrUserNotFound = errors.New("user not found")
)
