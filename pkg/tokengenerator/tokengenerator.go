package tokengenerator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind identifies the purpose a token was minted for. Each kind is
// signed with its own secret, so a token replayed against a generator of a
// different kind fails the signature check. The kind claim is additionally
// cross-checked at parse time.
type TokenKind string

const (
	AccessToken         TokenKind = "access"
	RefreshToken        TokenKind = "refresh"
	EmailVerifyToken    TokenKind = "email_verify"
	ForgotPasswordToken TokenKind = "forgot_password"
)

var (
	// ErrMissingSecret is returned when a generator has no signing secret configured
	ErrMissingSecret = errors.New("signing secret is not configured")

	// ErrTokenInvalid is returned on a bad signature, malformed structure or kind mismatch
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired is returned when the embedded expiry has passed
	ErrTokenExpired = errors.New("token has expired")
)

// Claims carries the token kind alongside the registered JWT claims.
// Subject holds the user id.
type Claims struct {
	TokenKind TokenKind `json:"token_kind"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator mints and verifies HS256 tokens of a single kind
type JwtTokenGenerator struct {
	Secret string
	Issuer string
	Kind   TokenKind
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator for the given kind
func NewJwtTokenGenerator(secret, issuer string, kind TokenKind) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret: secret,
		Issuer: issuer,
		Kind:   kind,
	}
}

// GenerateToken creates a signed token with the given subject and expiry
func (g *JwtTokenGenerator) GenerateToken(subject string, expiry time.Duration) (string, time.Time, error) {
	if g.Secret == "" {
		slog.Error("Refusing to sign token without a secret", "kind", g.Kind)
		return "", time.Time{}, ErrMissingSecret
	}

	now := time.Now().UTC()
	claims := Claims{
		TokenKind: g.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed sign JWT Claim string!", "kind", g.Kind, "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a token string. The token must verify
// against this generator's secret and carry this generator's kind.
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(g.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		slog.Error("Failed parse JWT string!", "kind", g.Kind, "err", err)
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	// The kind claim alone is advisory; rejecting a mismatch here closes the
	// cross-kind replay window left open when two kinds share a secret.
	if claims.TokenKind != g.Kind {
		slog.Warn("Token kind mismatch", "want", g.Kind, "got", claims.TokenKind)
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
