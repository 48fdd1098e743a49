package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserRepository implements UserRepository using in-memory storage.
// Useful for quick development environments and as a test double.
type InMemoryUserRepository struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]User
	usersByEmail map[string]uuid.UUID
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:        make(map[uuid.UUID]User),
		usersByEmail: make(map[string]uuid.UUID),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[u.Email]; exists {
		return ErrEmailExists
	}
	r.users[u.ID] = u
	r.usersByEmail[u.Email] = u.ID
	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usersByEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *InMemoryUserRepository) GetByEmailAndPassword(ctx context.Context, email, passwordHash string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usersByEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	u := r.users[id]
	if u.PasswordHash != passwordHash {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// update applies fn to the user under the write lock, keeping the
// multi-field mutation atomic the way a single document update is
func (r *InMemoryUserRepository) update(id uuid.UUID, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *InMemoryUserRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(u *User) {
		u.EmailVerifyToken = ""
		u.VerifyStatus = VerifyStatusVerified
	})
}

func (r *InMemoryUserRepository) SetEmailVerifyToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.update(id, func(u *User) {
		u.EmailVerifyToken = token
	})
}

func (r *InMemoryUserRepository) SetForgotPasswordToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.update(id, func(u *User) {
		u.ForgotPasswordToken = token
	})
}

func (r *InMemoryUserRepository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(id, func(u *User) {
		u.PasswordHash = passwordHash
		u.ForgotPasswordToken = ""
	})
}

// InMemoryRefreshTokenRepository implements RefreshTokenRepository using in-memory storage
type InMemoryRefreshTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]RefreshToken
}

// NewInMemoryRefreshTokenRepository creates a new in-memory refresh token repository
func NewInMemoryRefreshTokenRepository() *InMemoryRefreshTokenRepository {
	return &InMemoryRefreshTokenRepository{
		tokens: make(map[string]RefreshToken),
	}
}

func (r *InMemoryRefreshTokenRepository) Create(ctx context.Context, rt RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[rt.Token] = rt
	return nil
}

func (r *InMemoryRefreshTokenRepository) GetByToken(ctx context.Context, token string) (RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return RefreshToken{}, ErrTokenNotFound
	}
	return rt, nil
}

func (r *InMemoryRefreshTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
	return nil
}

func (r *InMemoryRefreshTokenRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for token, rt := range r.tokens {
		if rt.CreatedAt.Before(cutoff) {
			delete(r.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}
