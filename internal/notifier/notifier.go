// Package notifier delivers trade and error notifications.
package notifier

// Notifier sends operator-facing notifications (e.g. Telegram).
type Notifier interface {
	Send(msg string) error
	SendWithRetry(msg string) error
}

// Noop discards every message. Used when no notification channel is
// configured.
type Noop struct{}

func (Noop) Send(string) error          { return nil }
func (Noop) SendWithRetry(string) error { return nil }
