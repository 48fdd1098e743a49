package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET_ACCESS_TOKEN", "access-secret")
	t.Setenv("JWT_SECRET_REFRESH_TOKEN", "refresh-secret")
	t.Setenv("JWT_SECRET_EMAIL_VERIFY_TOKEN", "email-secret")
	t.Setenv("JWT_SECRET_FORGOT_PASSWORD_TOKEN", "forgot-secret")
	t.Setenv("PASSWORD_SALT", "salt")
}

func TestLoad(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8888", cfg.Server.Addr())
	assert.Equal(t, "users", cfg.Mongo.UsersCollection)
	assert.Equal(t, "simple-auth", cfg.JWT.Issuer)

	expiry, err := cfg.JWT.ParseAccessTokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, expiry)
}

func TestLoad_MissingSecretIsFatal(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("JWT_SECRET_EMAIL_VERIFY_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_EMAIL_VERIFY_TOKEN")
}

func TestLoad_MissingPasswordSalt(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("PASSWORD_SALT", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASSWORD_SALT")
}

func TestLoad_InvalidExpiry(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("REFRESH_TOKEN_EXPIRY", "seven days")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_EXPIRY")
}
