package notification

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

type emailTemplate struct {
	Subject string
	Html    string
}

var emailTemplates = map[NotificationType]emailTemplate{
	EmailVerification: {
		Subject: "Verify your email address",
		Html: `<p>Hi {{.Name}},</p>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="{{.VerificationLink}}">Verify email</a></p>
<p>If you did not create an account, you can ignore this message.</p>`,
	},
	PasswordReset: {
		Subject: "Reset your password",
		Html: `<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="{{.ResetLink}}">Reset password</a></p>
<p>If you did not request a reset, you can ignore this message.</p>`,
	},
}

// EmailNotifier sends notifications over SMTP
type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

// NewEmailNotifier creates a new EmailNotifier
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	slog.Info("Creating mail client", "Host", config.Host, "Port", config.Port)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

// Send renders the template for the notification type and delivers it over SMTP
func (e *EmailNotifier) Send(notificationType NotificationType, notification NotificationData) error {
	if notification.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}

	tpl, ok := emailTemplates[notificationType]
	if !ok {
		return fmt.Errorf("no email template registered for notification type: %s", notificationType)
	}

	tmpl, err := template.New(string(notificationType)).Parse(tpl.Html)
	if err != nil {
		slog.Error("Failed to parse email template", "type", notificationType, "err", err)
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, notification.Data); err != nil {
		slog.Error("Failed to execute email template", "type", notificationType, "err", err)
		return err
	}

	subject := notification.Subject
	if subject == "" {
		subject = tpl.Subject
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		slog.Error("Failed to set from address", "err", err)
		return err
	}
	if err := msg.To(notification.To); err != nil {
		slog.Error("Failed to set to address", "err", err)
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, buf.String())

	if err := e.client.DialAndSend(msg); err != nil {
		slog.Error("Failed to send email", "type", notificationType, "to", notification.To, "err", err)
		return err
	}

	slog.Info("Email sent", "type", notificationType, "to", notification.To)
	return nil
}
