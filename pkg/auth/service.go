package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/token"
	"github.com/tendant/simple-auth/pkg/user"
)

// AuthService orchestrates the credential workflows: registration, login,
// logout, email verification and password recovery. All multi-field user
// mutations go through single atomic store updates so no reader observes a
// half-updated record.
type AuthService struct {
	users    user.UserRepository
	tokens   *token.TokenService
	hasher   PasswordHasher
	notifier notification.Notifier
	baseURL  string
}

// AuthServiceOption is a function that configures an AuthService
type AuthServiceOption func(*AuthService)

// WithNotifier sets the outbound notifier used for verification and reset emails
func WithNotifier(n notification.Notifier) AuthServiceOption {
	return func(s *AuthService) {
		s.notifier = n
	}
}

// WithBaseURL sets the base URL embedded in verification and reset links
func WithBaseURL(baseURL string) AuthServiceOption {
	return func(s *AuthService) {
		s.baseURL = baseURL
	}
}

// NewAuthService creates a new AuthService
func NewAuthService(users user.UserRepository, tokens *token.TokenService, hasher PasswordHasher, opts ...AuthServiceOption) *AuthService {
	s := &AuthService{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		baseURL: "http://localhost:8888",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams holds the validated registration input
type RegisterParams struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth time.Time
}

// Register creates a new unverified user with a freshly minted email verify
// token and issues a session for it. The store's unique email index is the
// authoritative duplicate guard; a mint that succeeds before a failed insert
// leaves only a harmless unused token behind.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user.User, token.TokenPair, error) {
	userID := uuid.New()

	verifyToken, err := s.tokens.IssueEmailVerifyToken(userID)
	if err != nil {
		return user.User{}, token.TokenPair{}, err
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return user.User{}, token.TokenPair{}, err
	}

	now := time.Now().UTC()
	u := user.User{
		ID:               userID,
		Email:            params.Email,
		PasswordHash:     passwordHash,
		Name:             params.Name,
		DateOfBirth:      params.DateOfBirth,
		EmailVerifyToken: verifyToken,
		VerifyStatus:     user.VerifyStatusUnverified,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.users.Create(ctx, u); err != nil {
		return user.User{}, token.TokenPair{}, err
	}

	pair, err := s.tokens.IssueSession(ctx, userID)
	if err != nil {
		return user.User{}, token.TokenPair{}, err
	}

	s.notify(notification.EmailVerification, notification.NotificationData{
		To: u.Email,
		Data: map[string]string{
			"Name":             u.Name,
			"VerificationLink": fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, verifyToken),
		},
	})

	slog.Info("User registered", "user_id", userID)
	return u, pair, nil
}

// Login authenticates by exact {email, password_hash} lookup and issues a
// session. The error never reveals whether the email or the password was
// wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (token.TokenPair, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return token.TokenPair{}, err
	}

	u, err := s.users.GetByEmailAndPassword(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return token.TokenPair{}, ErrInvalidCredentials
		}
		return token.TokenPair{}, err
	}

	pair, err := s.tokens.IssueSession(ctx, u.ID)
	if err != nil {
		return token.TokenPair{}, err
	}

	slog.Info("User logged in", "user_id", u.ID)
	return pair, nil
}

// Logout revokes the refresh token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.RevokeSession(ctx, refreshToken)
}

// VerifyEmailResult is the outcome of a VerifyEmail call
type VerifyEmailResult struct {
	// AlreadyVerified is set when the user was verified before this call;
	// no new tokens are issued in that case
	AlreadyVerified bool
	Tokens          token.TokenPair
}

// VerifyEmail consumes an email verify token: it flips the user to Verified,
// clears the pending token and issues a fresh session. Verifying twice is
// not an error; the second call short-circuits without issuing anything.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenStr string) (VerifyEmailResult, error) {
	userID, err := s.tokens.AuthenticateEmailVerify(tokenStr)
	if err != nil {
		return VerifyEmailResult{}, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return VerifyEmailResult{}, ErrUserNotFound
		}
		return VerifyEmailResult{}, err
	}

	if u.Verified() {
		return VerifyEmailResult{AlreadyVerified: true}, nil
	}

	// Session issue and the status flip have no ordering dependency
	var pair token.TokenPair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pair, err = s.tokens.IssueSession(gctx, userID)
		return err
	})
	g.Go(func() error {
		return s.users.SetVerified(gctx, userID)
	})
	if err := g.Wait(); err != nil {
		return VerifyEmailResult{}, err
	}

	slog.Info("Email verified", "user_id", userID)
	return VerifyEmailResult{Tokens: pair}, nil
}

// ResendVerifyEmail rotates the user's email verify token and hands it to
// the notifier. When the user is already verified it short-circuits without
// minting a new token.
func (s *AuthService) ResendVerifyEmail(ctx context.Context, userID uuid.UUID) (alreadyVerified bool, err error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	if u.Verified() {
		return true, nil
	}

	verifyToken, err := s.tokens.IssueEmailVerifyToken(userID)
	if err != nil {
		return false, err
	}
	if err := s.users.SetEmailVerifyToken(ctx, userID, verifyToken); err != nil {
		return false, err
	}

	s.notify(notification.EmailVerification, notification.NotificationData{
		To: u.Email,
		Data: map[string]string{
			"Name":             u.Name,
			"VerificationLink": fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, verifyToken),
		},
	})

	slog.Info("Verification email resent", "user_id", userID)
	return false, nil
}

// ForgotPassword mints a reset token, writes it onto the user record and
// hands it to the notifier. Requesting a new reset invalidates any earlier
// pending token.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	resetToken, err := s.tokens.IssueForgotPasswordToken(u.ID)
	if err != nil {
		return err
	}
	if err := s.users.SetForgotPasswordToken(ctx, u.ID, resetToken); err != nil {
		return err
	}

	s.notify(notification.PasswordReset, notification.NotificationData{
		To: u.Email,
		Data: map[string]string{
			"Name":      u.Name,
			"ResetLink": fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, resetToken),
		},
	})

	slog.Info("Password reset requested", "user_id", u.ID)
	return nil
}

// VerifyForgotPasswordToken checks that a reset token is still live without
// changing any state. Lets a client confirm a reset link before showing the
// reset form.
func (s *AuthService) VerifyForgotPasswordToken(ctx context.Context, tokenStr string) error {
	_, err := s.tokens.AuthenticateForgotPassword(ctx, tokenStr)
	return err
}

// ResetPassword replaces the password hash and clears the reset token in one
// atomic document update, so the consumed token can never authenticate again.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	userID, err := s.tokens.AuthenticateForgotPassword(ctx, tokenStr)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.ResetPassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	slog.Info("Password reset", "user_id", userID)
	return nil
}

// Profile is the user projection returned to clients. Credential and token
// fields never leave the service.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Verified    bool      `json:"verified"`
}

// GetProfile loads the user and projects away the sensitive fields
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, err
	}

	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		DateOfBirth: u.DateOfBirth,
		Verified:    u.Verified(),
	}, nil
}

// notify delivers a notification best-effort. Send failures are logged and
// never surfaced to the caller.
func (s *AuthService) notify(notificationType notification.NotificationType, data notification.NotificationData) {
	if s.notifier == nil {
		slog.Warn("Notifier not configured, skipping send", "type", notificationType)
		return
	}
	if err := s.notifier.Send(notificationType, data); err != nil {
		slog.Error("Failed to send notification", "type", notificationType, "to", data.To, "err", err)
	}
}
