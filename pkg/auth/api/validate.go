package api

import (
	"net/mail"
	"time"
	"unicode"
)

// fieldErrors accumulates per-field validation messages for the 422 payload
type fieldErrors map[string]string

func (e fieldErrors) ok() bool {
	return len(e) == 0
}

func validateEmail(errs fieldErrors, email string) {
	if email == "" {
		errs["email"] = "Email is required"
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "Email must be in a valid format"
	}
}

func validatePassword(errs fieldErrors, field, password string) {
	if password == "" {
		errs[field] = "Password is required"
		return
	}
	if len(password) < 6 || len(password) > 50 {
		errs[field] = "Password must be from 6 to 50 characters"
		return
	}
	if !isStrongPassword(password) {
		errs[field] = "Password must contain an uppercase letter, a lowercase letter, a number and a symbol"
	}
}

func validateConfirmPassword(errs fieldErrors, password, confirm string) {
	if confirm == "" {
		errs["confirm_password"] = "Password confirmation is required"
		return
	}
	if confirm != password {
		errs["confirm_password"] = "Password confirmation does not match"
	}
}

func validateName(errs fieldErrors, name string) {
	if name == "" {
		errs["name"] = "Name is required"
		return
	}
	if len(name) > 255 {
		errs["name"] = "Name must be from 1 to 255 characters"
	}
}

// validateDateOfBirth requires an ISO8601 timestamp and returns the parsed value
func validateDateOfBirth(errs fieldErrors, value string) time.Time {
	if value == "" {
		errs["date_of_birth"] = "Date of birth is required"
		return time.Time{}
	}
	dob, err := time.Parse(time.RFC3339, value)
	if err != nil {
		errs["date_of_birth"] = "Date of birth must be in a valid format"
		return time.Time{}
	}
	return dob
}

// isStrongPassword is the password strength predicate: at least one
// uppercase letter, one lowercase letter, one digit and one symbol
func isStrongPassword(password string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
