// Package mail sends plain-text notices to staff users.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/stockitup/backend/internal/infrastructure/config"
)

// ErrNoRecipients is returned when a message has no valid recipient
var ErrNoRecipients = errors.New("mail: no recipients")

// Message is a plain-text email
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the mailer selected by cfg.Backend
func New(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Backend == config.EmailBackendSMTP {
		return NewSMTPMailer(cfg, logger)
	}
	return NewConsoleMailer(cfg.From, logger)
}

// ConsoleMailer writes messages to the log instead of sending them
type ConsoleMailer struct {
	from   string
	logger *zap.Logger
}

// NewConsoleMailer creates a console mailer
func NewConsoleMailer(from string, logger *zap.Logger) *ConsoleMailer {
	return &ConsoleMailer{from: from, logger: logger.Named("mail")}
}

// Send implements Mailer
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	m.logger.Info("Email",
		zap.String("from", m.from),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// compose builds msg as a UTF-8 plain-text message. Recipients that do not
// parse are skipped.
func compose(from string, msg Message, now time.Time) (*gomail.Msg, []string, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, nil, fmt.Errorf("mail: invalid sender %q: %w", from, err)
	}
	for _, to := range msg.To {
		_ = m.AddTo(to)
	}
	rcpts, err := m.GetRecipients()
	if err != nil || len(rcpts) == 0 {
		return nil, nil, ErrNoRecipients
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now)
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, strings.ReplaceAll(msg.Body, "\r\n", "\n"))
	return m, rcpts, nil
}
