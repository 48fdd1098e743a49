package api

// Response messages
const (
	MsgLoginSuccess                     = "Login successful"
	MsgLogoutSuccess                    = "Logout successful"
	MsgRegisterSuccess                  = "Registration successful"
	MsgEmailVerified                    = "Email verified successfully"
	MsgEmailAlreadyVerified             = "Email already verified"
	MsgVerificationEmailSent            = "Verification email sent"
	MsgForgotPassword                   = "Check your email for the password reset link"
	MsgVerifyForgotPasswordTokenSuccess = "Reset token is valid"
	MsgResetPasswordSuccess             = "Password reset successfully"
	MsgGetProfileSuccess                = "Profile retrieved successfully"
)

// Error messages
const (
	MsgValidationError    = "Validation error"
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailAlreadyExists = "Email is already registered"
	MsgTokenMissing       = "Authorization token is missing"
	MsgTokenInvalid       = "Token is invalid"
	MsgTokenExpired       = "Token has expired"
	MsgTokenNotFound      = "Token does not exist"
	MsgUserNotFound       = "User not found"
	MsgServerError        = "Internal server error"
)

// Response is the success envelope for all endpoints
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the error payload. Errors carries per-field validation
// messages when present.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DateOfBirth     string `json:"date_of_birth"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type VerifyEmailRequest struct {
	EmailVerifyToken string `json:"email_verify_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyForgotPasswordTokenRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
}

type ResetPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
	Password            string `json:"password"`
	ConfirmPassword     string `json:"confirm_password"`
}
