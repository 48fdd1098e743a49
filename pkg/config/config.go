// Package config loads and validates the service configuration from
// environment variables. Missing signing secrets are a fatal startup
// condition, never a per-request error.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host string `env:"HOST" env-default:"localhost"`
	Port uint16 `env:"PORT" env-default:"8888"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MongoConfig holds the document store connection settings
type MongoConfig struct {
	URI                     string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database                string `env:"MONGO_DATABASE" env-default:"simple_auth"`
	UsersCollection         string `env:"USERS_COLLECTION_NAME" env-default:"users"`
	RefreshTokensCollection string `env:"REFRESH_TOKENS_COLLECTION_NAME" env-default:"refresh_tokens"`
}

// JWTConfig holds the four independent signing secrets and TTLs, one per
// token kind
type JWTConfig struct {
	Issuer                    string `env:"JWT_ISSUER" env-default:"simple-auth"`
	AccessTokenSecret         string `env:"JWT_SECRET_ACCESS_TOKEN"`
	RefreshTokenSecret        string `env:"JWT_SECRET_REFRESH_TOKEN"`
	EmailVerifyTokenSecret    string `env:"JWT_SECRET_EMAIL_VERIFY_TOKEN"`
	ForgotPasswordTokenSecret string `env:"JWT_SECRET_FORGOT_PASSWORD_TOKEN"`
	AccessTokenExpiry         string `env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshTokenExpiry        string `env:"REFRESH_TOKEN_EXPIRY" env-default:"168h"`
	EmailVerifyTokenExpiry    string `env:"EMAIL_VERIFY_TOKEN_EXPIRY" env-default:"168h"`
	ForgotPasswordTokenExpiry string `env:"FORGOT_PASSWORD_TOKEN_EXPIRY" env-default:"15m"`
}

// ParseAccessTokenExpiry parses the access token expiry duration
func (j JWTConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.AccessTokenExpiry)
}

// ParseRefreshTokenExpiry parses the refresh token expiry duration
func (j JWTConfig) ParseRefreshTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.RefreshTokenExpiry)
}

// ParseEmailVerifyTokenExpiry parses the email verify token expiry duration
func (j JWTConfig) ParseEmailVerifyTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.EmailVerifyTokenExpiry)
}

// ParseForgotPasswordTokenExpiry parses the forgot password token expiry duration
func (j JWTConfig) ParseForgotPasswordTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.ForgotPasswordTokenExpiry)
}

// Validate checks that every signing secret is configured
func (j JWTConfig) Validate() error {
	for name, secret := range map[string]string{
		"JWT_SECRET_ACCESS_TOKEN":          j.AccessTokenSecret,
		"JWT_SECRET_REFRESH_TOKEN":         j.RefreshTokenSecret,
		"JWT_SECRET_EMAIL_VERIFY_TOKEN":    j.EmailVerifyTokenSecret,
		"JWT_SECRET_FORGOT_PASSWORD_TOKEN": j.ForgotPasswordTokenSecret,
	} {
		if secret == "" {
			return fmt.Errorf("required signing secret %s is not set", name)
		}
	}
	return nil
}

// PasswordConfig holds the secret salt for the deterministic password hash
type PasswordConfig struct {
	Salt string `env:"PASSWORD_SALT"`
}

// EmailConfig holds SMTP settings for the outbound notifier. An empty Host
// disables outbound email.
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:""`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	// BaseURL is embedded in verification and reset links
	BaseURL string `env:"APP_BASE_URL" env-default:"http://localhost:8888"`

	// RefreshTokenSweepInterval controls the stale-session sweep; zero disables it
	RefreshTokenSweepInterval time.Duration `env:"REFRESH_TOKEN_SWEEP_INTERVAL" env-default:"0s"`
}

// Config is the full service configuration
type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	Password PasswordConfig
	Email    EmailConfig
	App      AppConfig
}

// Load reads the configuration from environment variables and validates it
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the service cannot start without
func (c Config) Validate() error {
	if err := c.JWT.Validate(); err != nil {
		return err
	}
	if c.Password.Salt == "" {
		return fmt.Errorf("required secret PASSWORD_SALT is not set")
	}
	if _, err := c.JWT.ParseAccessTokenExpiry(); err != nil {
		return fmt.Errorf("invalid ACCESS_TOKEN_EXPIRY: %w", err)
	}
	if _, err := c.JWT.ParseRefreshTokenExpiry(); err != nil {
		return fmt.Errorf("invalid REFRESH_TOKEN_EXPIRY: %w", err)
	}
	if _, err := c.JWT.ParseEmailVerifyTokenExpiry(); err != nil {
		return fmt.Errorf("invalid EMAIL_VERIFY_TOKEN_EXPIRY: %w", err)
	}
	if _, err := c.JWT.ParseForgotPasswordTokenExpiry(); err != nil {
		return fmt.Errorf("invalid FORGOT_PASSWORD_TOKEN_EXPIRY: %w", err)
	}
	return nil
}
