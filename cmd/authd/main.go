package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tendant/simple-auth/pkg/auth"
	authapi "github.com/tendant/simple-auth/pkg/auth/api"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/token"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/user"
)

func main() {
	inmem := flag.Bool("inmem", false, "use in-memory repositories instead of MongoDB (data is lost on exit)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		users       user.UserRepository
		refreshRepo user.RefreshTokenRepository
	)
	if *inmem {
		slog.Info("Using in-memory repositories, data is lost on exit")
		users = user.NewInMemoryUserRepository()
		refreshRepo = user.NewInMemoryRefreshTokenRepository()
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "err", err)
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())

		if err := client.Ping(connectCtx, nil); err != nil {
			slog.Error("Failed to ping MongoDB", "uri", cfg.Mongo.URI, "err", err)
			os.Exit(1)
		}
		slog.Info("Connected to MongoDB", "database", cfg.Mongo.Database)

		db := client.Database(cfg.Mongo.Database)
		userRepo := user.NewMongoUserRepository(db, cfg.Mongo.UsersCollection)
		if err := userRepo.EnsureIndexes(connectCtx); err != nil {
			slog.Error("Failed to create user indexes", "err", err)
			os.Exit(1)
		}
		tokenRepo := user.NewMongoRefreshTokenRepository(db, cfg.Mongo.RefreshTokensCollection)
		if err := tokenRepo.EnsureIndexes(connectCtx); err != nil {
			slog.Error("Failed to create refresh token indexes", "err", err)
			os.Exit(1)
		}
		users = userRepo
		refreshRepo = tokenRepo
	}

	// Expiries were validated at config load
	accessExpiry, _ := cfg.JWT.ParseAccessTokenExpiry()
	refreshExpiry, _ := cfg.JWT.ParseRefreshTokenExpiry()
	emailVerifyExpiry, _ := cfg.JWT.ParseEmailVerifyTokenExpiry()
	forgotPasswordExpiry, _ := cfg.JWT.ParseForgotPasswordTokenExpiry()

	generators := token.Generators{
		Access:         tokengenerator.NewJwtTokenGenerator(cfg.JWT.AccessTokenSecret, cfg.JWT.Issuer, tokengenerator.AccessToken),
		Refresh:        tokengenerator.NewJwtTokenGenerator(cfg.JWT.RefreshTokenSecret, cfg.JWT.Issuer, tokengenerator.RefreshToken),
		EmailVerify:    tokengenerator.NewJwtTokenGenerator(cfg.JWT.EmailVerifyTokenSecret, cfg.JWT.Issuer, tokengenerator.EmailVerifyToken),
		ForgotPassword: tokengenerator.NewJwtTokenGenerator(cfg.JWT.ForgotPasswordTokenSecret, cfg.JWT.Issuer, tokengenerator.ForgotPasswordToken),
	}
	tokenService := token.NewTokenService(generators, refreshRepo, users,
		token.WithAccessTokenExpiry(accessExpiry),
		token.WithRefreshTokenExpiry(refreshExpiry),
		token.WithEmailVerifyTokenExpiry(emailVerifyExpiry),
		token.WithForgotPasswordTokenExpiry(forgotPasswordExpiry),
	)

	authOpts := []auth.AuthServiceOption{auth.WithBaseURL(cfg.App.BaseURL)}
	if cfg.Email.Host != "" {
		notifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			TLS:      cfg.Email.TLS,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		if err != nil {
			slog.Error("Failed to create email notifier", "err", err)
			os.Exit(1)
		}
		authOpts = append(authOpts, auth.WithNotifier(notifier))
	} else {
		slog.Warn("EMAIL_HOST not set, outbound email is disabled")
	}

	authService := auth.NewAuthService(users, tokenService, auth.NewPbkdf2Hasher(cfg.Password.Salt), authOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Route("/users", authapi.NewHandle(authService, tokenService).Routes)

	if cfg.App.RefreshTokenSweepInterval > 0 {
		go runSessionSweep(ctx, tokenService, cfg.App.RefreshTokenSweepInterval)
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	go func() {
		slog.Info("Listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "err", err)
	}
}

// runSessionSweep periodically deletes refresh token records that are past
// the refresh token expiry and can no longer authenticate
func runSessionSweep(ctx context.Context, tokenService *token.TokenService, interval time.Duration) {
	slog.Info("Refresh token sweep enabled", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := tokenService.PurgeExpiredSessions(ctx); err != nil {
				slog.Error("Refresh token sweep failed", "err", err)
			}
		}
	}
}
