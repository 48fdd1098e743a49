package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-auth/pkg/auth"
	"github.com/tendant/simple-auth/pkg/token"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/user"
)

// Handle implements the HTTP surface of the auth service
type Handle struct {
	authService  *auth.AuthService
	tokenService *token.TokenService
}

// NewHandle creates a new Handle
func NewHandle(authService *auth.AuthService, tokenService *token.TokenService) *Handle {
	return &Handle{
		authService:  authService,
		tokenService: tokenService,
	}
}

// Routes mounts the auth endpoints on the router
func (h *Handle) Routes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/register", h.Register)
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/verify-forgot-password-token", h.VerifyForgotPasswordToken)
	r.Post("/reset-password", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAccessToken)
		r.Post("/logout", h.Logout)
		r.Post("/resend-verify-email", h.ResendVerifyEmail)
		r.Get("/me", h.Me)
	})
}

// Login handles POST /login
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r)
		return
	}

	if req.Email == "" || req.Password == "" {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{
			Message: MsgValidationError,
			Errors:  map[string]string{"email": "Email or password is missing"},
		})
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgLoginSuccess, Data: pair})
}

// Register handles POST /register
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r)
		return
	}

	errs := fieldErrors{}
	validateName(errs, req.Name)
	validateEmail(errs, req.Email)
	validatePassword(errs, "password", req.Password)
	validateConfirmPassword(errs, req.Password, req.ConfirmPassword)
	dob := validateDateOfBirth(errs, req.DateOfBirth)
	if !errs.ok() {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Message: MsgValidationError, Errors: errs})
		return
	}

	_, pair, err := h.authService.Register(r.Context(), auth.RegisterParams{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: dob,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgRegisterSuccess, Data: pair})
}

// Logout handles POST /logout
func (h *Handle) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r)
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgLogoutSuccess})
}

// VerifyEmail handles POST /verify-email
func (h *Handle) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r)
		return
	}

	result, err := h.authService.VerifyEmail(r.Context(), req.EmailVerifyToken)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if result.AlreadyVerified {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, Response{Message: MsgEmailAlreadyVerified})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgEmailVerified, Data: result.Tokens})
}

// ResendVerifyEmail handles POST /resend-verify-email
func (h *Handle) ResendVerifyEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := AuthenticatedUserID(r.Context())
	if !ok {
		renderUnauthorized(w, r, MsgTokenMissing)
		return
	}

	alreadyVerified, err := h.authService.ResendVerifyEmail(r.Context(), userID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	message := MsgVerificationEmailSent
	if alreadyVerified {
		message = MsgEmailAlreadyVerified
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: message})
}

// ForgotPassword handles POST /forgot-password
func (h *Handle) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r)
		return
	}

	errs := fieldErrors{}
	validateEmail(errs, req.Email)
	if !errs.ok() {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Message: MsgValidationError, Errors: errs})
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgForgotPassword})
}

// VerifyForgotPasswordToken handles POST /verify-forgot-password-token.
// Pure validation, no state change.
func (h *Handle) VerifyForgotPasswordToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyForgotPasswordTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r)
		return
	}

	if err := h.authService.VerifyForgotPasswordToken(r.Context(), req.ForgotPasswordToken); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgVerifyForgotPasswordTokenSuccess})
}

// ResetPassword handles POST /reset-password
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r)
		return
	}

	errs := fieldErrors{}
	validatePassword(errs, "password", req.Password)
	validateConfirmPassword(errs, req.Password, req.ConfirmPassword)
	if !errs.ok() {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Message: MsgValidationError, Errors: errs})
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.ForgotPasswordToken, req.Password); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgResetPasswordSuccess})
}

// Me handles GET /me
func (h *Handle) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := AuthenticatedUserID(r.Context())
	if !ok {
		renderUnauthorized(w, r, MsgTokenMissing)
		return
	}

	profile, err := h.authService.GetProfile(r.Context(), userID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Message: MsgGetProfileSuccess, Data: profile})
}

// renderError maps service errors onto the HTTP taxonomy
func (h *Handle) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		renderUnauthorized(w, r, MsgInvalidCredentials)
	case errors.Is(err, token.ErrUnauthenticated):
		renderUnauthorized(w, r, MsgTokenMissing)
	case errors.Is(err, tokengenerator.ErrTokenExpired):
		renderUnauthorized(w, r, MsgTokenExpired)
	case errors.Is(err, tokengenerator.ErrTokenInvalid):
		renderUnauthorized(w, r, MsgTokenInvalid)
	case errors.Is(err, token.ErrTokenNotFound):
		renderUnauthorized(w, r, MsgTokenNotFound)
	case errors.Is(err, user.ErrEmailExists):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{
			Message: MsgValidationError,
			Errors:  map[string]string{"email": MsgEmailAlreadyExists},
		})
	case errors.Is(err, auth.ErrUserNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Message: MsgUserNotFound})
	default:
		slog.Error("Unexpected error handling request", "path", r.URL.Path, "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Message: MsgServerError})
	}
}

func renderBadRequest(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Message: "Invalid request body"})
}

func renderUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorResponse{Message: message})
}
