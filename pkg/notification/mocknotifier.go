package notification

import (
	"sync"
)

// SentNotification records one Send call on the MockNotifier
type SentNotification struct {
	Type NotificationType
	Data NotificationData
}

// MockNotifier captures sends in memory for tests
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotification

	// FailWith, when set, is returned from every Send
	FailWith error
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(notificationType NotificationType, notification NotificationData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.sent = append(m.sent, SentNotification{Type: notificationType, Data: notification})
	return nil
}

// Sent returns a copy of the recorded sends
func (m *MockNotifier) Sent() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentNotification, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastTo returns the recipient of the most recent send, or empty
func (m *MockNotifier) LastTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Data.To
}
