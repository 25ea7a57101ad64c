package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"regexp"

	"asapshop-backend/internal/config"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

var recipientShape = regexp.MustCompile(`.+@.+\..+`)

type Mail struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	ReplyTo  string
	FromName string
}

// MailSender delivers e-mail. Implementations skip messages they cannot deliver instead of
// failing the caller.
type MailSender interface {
	Send(ctx context.Context, m Mail) error
}

type smtpMailSenderImpl struct {
	cfg    config.SMTP
	log    *zap.Logger
	dialer *gomail.Dialer
}

func NewMailSender(cfg config.SMTP, log *zap.Logger) MailSender {
	s := &smtpMailSenderImpl{cfg: cfg, log: log}
	if cfg.Host != "" {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
		d.SSL = cfg.Secure || cfg.Port == 465
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
		s.dialer = d
	}
	return s
}

// ValidRecipient reports whether addr looks deliverable.
func ValidRecipient(addr string) bool {
	return recipientShape.MatchString(addr)
}

func (s *smtpMailSenderImpl) Send(ctx context.Context, m Mail) error {
	if s.dialer == nil {
		s.log.Warn("smtp not configured, mail skipped", zap.String("subject", m.Subject))
		return nil
	}
	if !ValidRecipient(m.To) {
		s.log.Warn("invalid mail recipient, mail skipped", zap.String("to", m.To))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	if m.FromName != "" {
		msg.SetAddressHeader("From", s.cfg.Sender(), m.FromName)
	} else {
		msg.SetHeader("From", s.cfg.Sender())
	}
	msg.SetHeader("To", m.To)
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	msg.SetHeader("Subject", m.Subject)
	switch {
	case m.HTML != "" && m.Text != "":
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	case m.HTML != "":
		msg.SetBody("text/html", m.HTML)
	default:
		msg.SetBody("text/plain", m.Text)
	}

	s.log.Info("sending mail", zap.String("to", m.To), zap.String("subject", m.Subject))
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	return nil
}
