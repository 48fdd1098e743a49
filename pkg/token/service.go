package token

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/user"
)

var (
	// ErrUnauthenticated is returned when the Authorization header is missing or malformed
	ErrUnauthenticated = errors.New("authorization token is missing")

	// ErrTokenNotFound is returned when a token verifies but no store record
	// matches it, which covers revoked and rotated tokens
	ErrTokenNotFound = errors.New("token does not exist in the store")
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry         = 15 * time.Minute
	DefaultRefreshTokenExpiry        = 7 * 24 * time.Hour
	DefaultEmailVerifyTokenExpiry    = 7 * 24 * time.Hour
	DefaultForgotPasswordTokenExpiry = 15 * time.Minute
)

// TokenPair is an access/refresh token pair issued for one session
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Generators bundles the four kind-specific token generators. Every kind has
// its own secret so rotating or leaking one does not invalidate the others.
type Generators struct {
	Access         *tokengenerator.JwtTokenGenerator
	Refresh        *tokengenerator.JwtTokenGenerator
	EmailVerify    *tokengenerator.JwtTokenGenerator
	ForgotPassword *tokengenerator.JwtTokenGenerator
}

// TokenService mints and validates tokens and tracks refresh tokens in the
// store for revocation
type TokenService struct {
	generators  Generators
	refreshRepo user.RefreshTokenRepository
	users       user.UserRepository

	accessTokenExpiry         time.Duration
	refreshTokenExpiry        time.Duration
	emailVerifyTokenExpiry    time.Duration
	forgotPasswordTokenExpiry time.Duration
}

// TokenServiceOption is a function that configures a TokenService
type TokenServiceOption func(*TokenService)

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.accessTokenExpiry = expiry
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
func WithRefreshTokenExpiry(expiry time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.refreshTokenExpiry = expiry
	}
}

// WithEmailVerifyTokenExpiry sets the email verify token expiry duration
func WithEmailVerifyTokenExpiry(expiry time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.emailVerifyTokenExpiry = expiry
	}
}

// WithForgotPasswordTokenExpiry sets the forgot password token expiry duration
func WithForgotPasswordTokenExpiry(expiry time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.forgotPasswordTokenExpiry = expiry
	}
}

// NewTokenService creates a new TokenService
func NewTokenService(generators Generators, refreshRepo user.RefreshTokenRepository, users user.UserRepository, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		generators:                generators,
		refreshRepo:               refreshRepo,
		users:                     users,
		accessTokenExpiry:         DefaultAccessTokenExpiry,
		refreshTokenExpiry:        DefaultRefreshTokenExpiry,
		emailVerifyTokenExpiry:    DefaultEmailVerifyTokenExpiry,
		forgotPasswordTokenExpiry: DefaultForgotPasswordTokenExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueSession mints an access/refresh token pair for the user and persists
// the refresh token for later revocation checks. The two signing calls run
// concurrently; the store write happens only after both succeed.
func (s *TokenService) IssueSession(ctx context.Context, userID uuid.UUID) (TokenPair, error) {
	subject := userID.String()

	var accessToken, refreshToken string
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accessToken, _, err = s.generators.Access.GenerateToken(subject, s.accessTokenExpiry)
		return err
	})
	g.Go(func() error {
		var err error
		refreshToken, _, err = s.generators.Refresh.GenerateToken(subject, s.refreshTokenExpiry)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("Failed to mint session tokens", "user_id", userID, "err", err)
		return TokenPair{}, err
	}

	err := s.refreshRepo.Create(ctx, user.RefreshToken{
		UserID:    userID,
		Token:     refreshToken,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// IssueEmailVerifyToken mints an email verify token for the user. The caller
// is responsible for writing it onto the user record.
func (s *TokenService) IssueEmailVerifyToken(userID uuid.UUID) (string, error) {
	tokenStr, _, err := s.generators.EmailVerify.GenerateToken(userID.String(), s.emailVerifyTokenExpiry)
	return tokenStr, err
}

// IssueForgotPasswordToken mints a password reset token for the user. The
// caller is responsible for writing it onto the user record.
func (s *TokenService) IssueForgotPasswordToken(userID uuid.UUID) (string, error) {
	tokenStr, _, err := s.generators.ForgotPassword.GenerateToken(userID.String(), s.forgotPasswordTokenExpiry)
	return tokenStr, err
}

// RevokeSession deletes the refresh token record matching the given value.
// Revoking a token that does not exist is not an error.
func (s *TokenService) RevokeSession(ctx context.Context, refreshToken string) error {
	return s.refreshRepo.DeleteByToken(ctx, refreshToken)
}

// AuthenticateAccess validates the Authorization header value and returns
// the subject user id. This is a stateless check: the store is never
// consulted, so an access token stays valid until its expiry even if the
// user is deleted or banned in the meantime.
func (s *TokenService) AuthenticateAccess(headerValue string) (uuid.UUID, error) {
	if headerValue == "" {
		return uuid.Nil, ErrUnauthenticated
	}
	tokenStr, ok := strings.CutPrefix(headerValue, "Bearer ")
	if !ok || tokenStr == "" {
		return uuid.Nil, ErrUnauthenticated
	}

	claims, err := s.generators.Access.ParseToken(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	return parseSubject(claims.Subject)
}

// AuthenticateRefresh validates the token signature and requires a matching
// record in the refresh token store. Both checks run concurrently and the
// first failure wins.
func (s *TokenService) AuthenticateRefresh(ctx context.Context, tokenStr string) (uuid.UUID, error) {
	var subject string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		claims, err := s.generators.Refresh.ParseToken(tokenStr)
		if err != nil {
			return err
		}
		subject = claims.Subject
		return nil
	})
	g.Go(func() error {
		_, err := s.refreshRepo.GetByToken(gctx, tokenStr)
		if errors.Is(err, user.ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return uuid.Nil, err
	}
	return parseSubject(subject)
}

// AuthenticateEmailVerify validates an email verify token. There is no store
// cross-check: the token lives on the user record and is consumed exactly
// once by clearing it there.
func (s *TokenService) AuthenticateEmailVerify(tokenStr string) (uuid.UUID, error) {
	claims, err := s.generators.EmailVerify.ParseToken(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	return parseSubject(claims.Subject)
}

// AuthenticateForgotPassword validates a password reset token. After the
// signature check the user record must still carry exactly this token value,
// which makes the token single-use: requesting a new reset or completing one
// invalidates it even though the signature would still verify.
func (s *TokenService) AuthenticateForgotPassword(ctx context.Context, tokenStr string) (uuid.UUID, error) {
	claims, err := s.generators.ForgotPassword.ParseToken(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return uuid.Nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return uuid.Nil, ErrTokenNotFound
		}
		return uuid.Nil, err
	}
	if u.ForgotPasswordToken != tokenStr {
		slog.Warn("Forgot password token no longer bound to user", "user_id", userID)
		return uuid.Nil, ErrTokenNotFound
	}
	return userID, nil
}

// PurgeExpiredSessions deletes refresh token records older than the refresh
// token expiry. The signature expiry claim is the primary enforcement; this
// sweep keeps the store from accumulating rows for sessions that can no
// longer authenticate.
func (s *TokenService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.refreshTokenExpiry)
	deleted, err := s.refreshRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("Purged expired refresh tokens", "deleted", deleted)
	}
	return deleted, nil
}

func parseSubject(subject string) (uuid.UUID, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		slog.Error("Token subject is not a valid user id", "err", err)
		return uuid.Nil, tokengenerator.ErrTokenInvalid
	}
	return userID, nil
}
