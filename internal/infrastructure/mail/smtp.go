package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/stockitup/backend/internal/infrastructure/config"
)

const dialTimeout = 10 * time.Second

// SMTPMailer sends mail through an SMTP relay, upgrading with STARTTLS when UseTLS is set
type SMTPMailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(cfg config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger.Named("mail"), now: time.Now}
}

// Send implements Mailer
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	composed, rcpts, err := compose(m.cfg.From, msg, m.now())
	if err != nil {
		return err
	}
	client, err := m.client()
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := client.DialAndSendWithContext(ctx, composed); err != nil {
		return fmt.Errorf("mail: sending through %s failed: %w", addr, err)
	}
	m.logger.Info("Email sent", zap.Strings("to", rcpts), zap.String("subject", msg.Subject))
	return nil
}

func (m *SMTPMailer) client() (*gomail.Client, error) {
	policy := gomail.NoTLS
	if m.cfg.UseTLS {
		policy = gomail.TLSMandatory
	}
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(dialTimeout),
		gomail.WithTLSPolicy(policy),
		gomail.WithTLSConfig(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.User),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid smtp settings: %w", err)
	}
	return client, nil
}
