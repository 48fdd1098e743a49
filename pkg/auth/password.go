package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// PasswordHasher turns a plaintext password into its stored hash
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Default PBKDF2 parameters
const (
	DefaultIterations = 100_000
	DefaultKeyLength  = 32
)

// Pbkdf2Hasher implements password hashing using PBKDF2-SHA256 with a single
// secret salt. The hash is deterministic on purpose: the store authenticates
// logins with an exact {email, password_hash} lookup, so two hashes of the
// same password must be equal. Per-user salts would break that contract.
type Pbkdf2Hasher struct {
	Salt       string
	Iterations int
	KeyLength  int
}

// NewPbkdf2Hasher creates a hasher with the given secret salt and default parameters
func NewPbkdf2Hasher(salt string) *Pbkdf2Hasher {
	return &Pbkdf2Hasher{
		Salt:       salt,
		Iterations: DefaultIterations,
		KeyLength:  DefaultKeyLength,
	}
}

// Hash generates the hex-encoded PBKDF2 hash of the password
func (h *Pbkdf2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if h.Salt == "" {
		return "", errors.New("password salt is not configured")
	}

	key := pbkdf2.Key([]byte(password), []byte(h.Salt), h.Iterations, h.KeyLength, sha256.New)
	return hex.EncodeToString(key), nil
}
