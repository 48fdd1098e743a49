package notification

// NotificationType represents a type of notification (e.g., "email_verification", "password_reset")
type NotificationType string

const (
	EmailVerification NotificationType = "email_verification"
	PasswordReset     NotificationType = "password_reset"
)

// NotificationData carries the recipient and template data for one send
type NotificationData struct {
	To      string            // Recipient email address
	Subject string            // Optional subject override
	Data    map[string]string // Template data (e.g., Name, VerificationLink)
}

// Notifier sends notifications. Callers treat sends as fire-and-forget:
// failures are logged, never surfaced to the request.
type Notifier interface {
	Send(notificationType NotificationType, notification NotificationData) error
}
