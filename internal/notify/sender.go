// Package notify delivers transactional emails.
package notify

import (
	"context"
	"log/slog"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	// Kind names the template, e.g. "order_status_changed".
	Kind string
}

// Sender delivers messages through one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// LogSender writes messages to the log instead of delivering them. The mail
// provider is wired outside this service.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name implements Sender.
func (s *LogSender) Name() string { return "log" }

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "email queued",
		slog.String("kind", msg.Kind),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
