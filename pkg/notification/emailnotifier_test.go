package notification

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveSMTP speaks just enough SMTP to let one message through: banner,
// EHLO, MAIL/RCPT/DATA, QUIT. Anything it does not recognize gets a 250.
func serveSMTP(ln net.Listener) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	br := bufio.NewReader(conn)
	write := func(line string) {
		fmt.Fprintf(conn, "%s\r\n", line)
	}

	write("220 127.0.0.1 ESMTP ready")
	inData := false
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if inData {
			if line == "." {
				inData = false
				write("250 2.0.0 OK: queued")
			}
			continue
		}
		switch cmd := strings.ToUpper(line); {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			write("250-127.0.0.1")
			write("250 OK")
		case strings.HasPrefix(cmd, "DATA"):
			inData = true
			write("354 End data with <CR><LF>.<CR><LF>")
		case strings.HasPrefix(cmd, "QUIT"):
			write("221 2.0.0 Bye")
			return
		default:
			write("250 OK")
		}
	}
}

// The dial must reach a responding server well within the connection
// timeout; a mistyped timeout value surfaces here as an instant i/o
// timeout on an otherwise live listener.
func TestEmailNotifier_Send(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go serveSMTP(ln)

	notifier, err := NewEmailNotifier(SMTPConfig{
		Host: "127.0.0.1",
		Port: ln.Addr().(*net.TCPAddr).Port,
		From: "noreply@example.com",
	})
	require.NoError(t, err)

	err = notifier.Send(EmailVerification, NotificationData{
		To: "user@example.com",
		Data: map[string]string{
			"Name":             "Test User",
			"VerificationLink": "http://localhost:8888/verify-email?token=abc",
		},
	})
	assert.NoError(t, err)
}

func TestEmailNotifier_SendValidation(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@example.com"})
	require.NoError(t, err)

	t.Run("MissingTo", func(t *testing.T) {
		err := notifier.Send(EmailVerification, NotificationData{})
		assert.Error(t, err)
	})

	t.Run("UnknownType", func(t *testing.T) {
		err := notifier.Send(NotificationType("carrier_pigeon"), NotificationData{To: "user@example.com"})
		assert.Error(t, err)
	})
}
