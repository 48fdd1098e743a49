package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-auth/pkg/auth"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/token"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/user"
)

func setupTestServer(t *testing.T) (*httptest.Server, *user.InMemoryUserRepository) {
	t.Helper()

	users := user.NewInMemoryUserRepository()
	refreshRepo := user.NewInMemoryRefreshTokenRepository()
	generators := token.Generators{
		Access:         tokengenerator.NewJwtTokenGenerator("access-secret", "simple-auth", tokengenerator.AccessToken),
		Refresh:        tokengenerator.NewJwtTokenGenerator("refresh-secret", "simple-auth", tokengenerator.RefreshToken),
		EmailVerify:    tokengenerator.NewJwtTokenGenerator("email-secret", "simple-auth", tokengenerator.EmailVerifyToken),
		ForgotPassword: tokengenerator.NewJwtTokenGenerator("forgot-secret", "simple-auth", tokengenerator.ForgotPasswordToken),
	}
	tokenService := token.NewTokenService(generators, refreshRepo, users)
	authService := auth.NewAuthService(users, tokenService, auth.NewPbkdf2Hasher("test-salt"),
		auth.WithNotifier(notification.NewMockNotifier()))

	r := chi.NewRouter()
	r.Route("/users", NewHandle(authService, tokenService).Routes)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, users
}

func postJSON(t *testing.T, url string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func registerBody(email string) RegisterRequest {
	return RegisterRequest{
		Name:            "Test User",
		Email:           email,
		Password:        "Abc123!",
		ConfirmPassword: "Abc123!",
		DateOfBirth:     "2000-01-01T00:00:00Z",
	}
}

func tokensFromResponse(t *testing.T, decoded map[string]interface{}) (accessToken, refreshToken string) {
	t.Helper()

	data, ok := decoded["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", decoded)
	accessToken, _ = data["access_token"].(string)
	refreshToken, _ = data["refresh_token"].(string)
	return accessToken, refreshToken
}

func TestRegisterEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, decoded := postJSON(t, server.URL+"/users/register", registerBody("a@b.com"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, MsgRegisterSuccess, decoded["message"])

	accessToken, refreshToken := tokensFromResponse(t, decoded)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)

	t.Run("DuplicateEmail", func(t *testing.T) {
		resp, decoded := postJSON(t, server.URL+"/users/register", registerBody("a@b.com"), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		errs, _ := decoded["errors"].(map[string]interface{})
		assert.Equal(t, MsgEmailAlreadyExists, errs["email"])
	})

	t.Run("ValidationErrors", func(t *testing.T) {
		body := registerBody("not-an-email")
		body.Password = "weak"
		body.ConfirmPassword = "different"
		resp, decoded := postJSON(t, server.URL+"/users/register", body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, MsgValidationError, decoded["message"])

		errs, _ := decoded["errors"].(map[string]interface{})
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "password")
		assert.Contains(t, errs, "confirm_password")
	})
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := postJSON(t, server.URL+"/users/register", registerBody("a@b.com"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("Success", func(t *testing.T) {
		resp, decoded := postJSON(t, server.URL+"/users/login", LoginRequest{Email: "a@b.com", Password: "Abc123!"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, MsgLoginSuccess, decoded["message"])

		accessToken, refreshToken := tokensFromResponse(t, decoded)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
	})

	// No information leak: both failures return byte-identical payloads
	t.Run("WrongPasswordAndUnknownEmailIdentical", func(t *testing.T) {
		respWrong, decodedWrong := postJSON(t, server.URL+"/users/login", LoginRequest{Email: "a@b.com", Password: "nope"}, nil)
		respUnknown, decodedUnknown := postJSON(t, server.URL+"/users/login", LoginRequest{Email: "x@y.com", Password: "Abc123!"}, nil)

		assert.Equal(t, http.StatusUnauthorized, respWrong.StatusCode)
		assert.Equal(t, http.StatusUnauthorized, respUnknown.StatusCode)
		assert.Equal(t, decodedWrong, decodedUnknown)
	})

	t.Run("MissingFields", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/users/login", LoginRequest{Email: "a@b.com"}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	_, decoded := postJSON(t, server.URL+"/users/register", registerBody("a@b.com"), nil)
	accessToken, refreshToken := tokensFromResponse(t, decoded)

	authHeader := map[string]string{"Authorization": "Bearer " + accessToken}

	resp, decoded := postJSON(t, server.URL+"/users/logout", LogoutRequest{RefreshToken: refreshToken}, authHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, MsgLogoutSuccess, decoded["message"])

	t.Run("Idempotent", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/users/logout", LogoutRequest{RefreshToken: refreshToken}, authHeader)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("MissingAccessToken", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/users/logout", LogoutRequest{RefreshToken: refreshToken}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	server, users := setupTestServer(t)

	_, decoded := postJSON(t, server.URL+"/users/register", registerBody("a@b.com"), nil)
	_, _ = tokensFromResponse(t, decoded)

	stored, err := users.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	verifyToken := stored.EmailVerifyToken

	resp, decoded := postJSON(t, server.URL+"/users/verify-email", VerifyEmailRequest{EmailVerifyToken: verifyToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, MsgEmailVerified, decoded["message"])

	accessToken, refreshToken := tokensFromResponse(t, decoded)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)

	t.Run("SecondCallIsSuccessWithoutTokens", func(t *testing.T) {
		resp, decoded := postJSON(t, server.URL+"/users/verify-email", VerifyEmailRequest{EmailVerifyToken: verifyToken}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, MsgEmailAlreadyVerified, decoded["message"])
		assert.NotContains(t, decoded, "data")
	})

	t.Run("TamperedToken", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/users/verify-email", VerifyEmailRequest{EmailVerifyToken: verifyToken + "x"}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestPasswordRecoveryEndpoints(t *testing.T) {
	server, users := setupTestServer(t)

	_, _ = postJSON(t, server.URL+"/users/register", registerBody("a@b.com"), nil)

	resp, decoded := postJSON(t, server.URL+"/users/forgot-password", ForgotPasswordRequest{Email: "a@b.com"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, MsgForgotPassword, decoded["message"])

	stored, err := users.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	resetToken := stored.ForgotPasswordToken
	require.NotEmpty(t, resetToken)

	t.Run("VerifyToken", func(t *testing.T) {
		resp, decoded := postJSON(t, server.URL+"/users/verify-forgot-password-token",
			VerifyForgotPasswordTokenRequest{ForgotPasswordToken: resetToken}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, MsgVerifyForgotPasswordTokenSuccess, decoded["message"])
	})

	t.Run("VerifyTamperedToken", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/users/verify-forgot-password-token",
			VerifyForgotPasswordTokenRequest{ForgotPasswordToken: resetToken + "x"}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("ResetPassword", func(t *testing.T) {
		resp, decoded := postJSON(t, server.URL+"/users/reset-password", ResetPasswordRequest{
			ForgotPasswordToken: resetToken,
			Password:            "NewPass1!",
			ConfirmPassword:     "NewPass1!",
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, MsgResetPasswordSuccess, decoded["message"])

		// New credential works
		resp, _ = postJSON(t, server.URL+"/users/login", LoginRequest{Email: "a@b.com", Password: "NewPass1!"}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ResetTokenSingleUse", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/users/reset-password", ResetPasswordRequest{
			ForgotPasswordToken: resetToken,
			Password:            "Another1!",
			ConfirmPassword:     "Another1!",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/users/forgot-password", ForgotPasswordRequest{Email: "nobody@b.com"}, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestMeEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	_, decoded := postJSON(t, server.URL+"/users/register", registerBody("a@b.com"), nil)
	accessToken, _ := tokensFromResponse(t, decoded)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/users/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a@b.com", data["email"])
	assert.Equal(t, "Test User", data["name"])

	// Credential and token fields are projected away
	assert.NotContains(t, data, "password_hash")
	assert.NotContains(t, data, "email_verify_token")
	assert.NotContains(t, data, "forgot_password_token")

	t.Run("MissingToken", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/users/me")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
