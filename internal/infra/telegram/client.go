// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"errors"
	"fmt"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// messenger is the part of *telebot.Bot used for outgoing messages.
type messenger interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier delivers notification messages to recipients with a linked
// Telegram account. Recipients without one are skipped. A partial failure
// is logged; the send fails only when no linked recipient could be reached.
type Notifier struct {
	bot    messenger
	logger *logrus.Entry
}

var _ notification.Sender = (*Notifier)(nil)

func NewNotifier(b messenger, logger *logrus.Entry) *Notifier {
	return &Notifier{bot: b, logger: logger.WithField("channel", "telegram")}
}

func (n *Notifier) Send(ctx context.Context, msg notification.Message) error {
	text := fmt.Sprintf("%s\n\n%s", msg.Subject, msg.Body)

	attempted := 0
	var errs []error
	for _, r := range msg.To {
		if r.TelegramID == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		attempted++
		if _, err := n.bot.Send(&telebot.User{ID: r.TelegramID}, text); err != nil {
			n.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":     r.ID,
				"telegram_id": r.TelegramID,
			}).Warn("Failed to deliver Telegram message")
			errs = append(errs, err)
		}
	}
	if attempted > 0 && len(errs) == attempted {
		return fmt.Errorf("%w: telegram: %w", apperr.ErrDelivery, errors.Join(errs...))
	}
	return nil
}
