package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Sender   string
	Password string
}

// SMTPMailer sends plain-text mail through an authenticated STARTTLS relay.
// When disabled it only logs what it would have sent.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
	log    logrus.FieldLogger
}

func NewSMTPMailer(cfg SMTPConfig, log logrus.FieldLogger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Sender, cfg.Password),
		log:    log,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		m.log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email skipped")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.Sender)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	// gomail has no context support; run the dial in the background and
	// stop waiting once ctx is done.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		m.log.WithField("to", msg.To).Info("email sent")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
