// Package mailer delivers notification messages by e-mail.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/notification"
	"activity_tracker/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

func addresses(to []user.Recipient) []string {
	out := make([]string, 0, len(to))
	for _, r := range to {
		if r.Email != "" {
			out = append(out, r.Email)
		}
	}
	return out
}

// ConsoleSender writes messages to the log instead of delivering them.
// It is the default driver for development.
type ConsoleSender struct {
	logger *logrus.Entry
}

var _ notification.Sender = (*ConsoleSender)(nil)

func NewConsoleSender(logger *logrus.Entry) *ConsoleSender {
	return &ConsoleSender{logger: logger.WithField("mail_driver", "console")}
}

func (s *ConsoleSender) Send(ctx context.Context, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"to":      strings.Join(addresses(msg.To), ", "),
		"subject": msg.Subject,
	}).Infof("EMAIL SENT: %s", msg.Body)
	return nil
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers messages through an SMTP relay, one message per job
// with every recipient on the To header.
type SMTPSender struct {
	dialer dialer
	from   string
	logger *logrus.Entry
}

var _ notification.Sender = (*SMTPSender)(nil)

func NewSMTPSender(host string, port int, username, password, from string, logger *logrus.Entry) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: logger.WithField("mail_driver", "smtp"),
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := addresses(msg.To)
	if len(to) == 0 {
		s.logger.WithField("subject", msg.Subject).Warn("Message has no e-mail recipients, skipping")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: smtp: %w", apperr.ErrDelivery, err)
	}
	s.logger.WithFields(logrus.Fields{"to_count": len(to), "subject": msg.Subject}).Info("E-mail delivered")
	return nil
}
