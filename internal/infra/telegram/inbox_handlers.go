package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const readCallbackPrefix = "read_"

func (h *Handlers) registerInboxHandlers(b registrar) {
	b.Handle("/notifications", func(c telebot.Context) error {
		ctx, cancel := commandContext()
		defer cancel()
		text, markup := h.inbox(ctx, c.Sender().ID)
		if markup == nil {
			return c.Send(text)
		}
		return c.Send(text, markup)
	})

	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := c.Callback().Data
		if !strings.HasPrefix(data, readCallbackPrefix) {
			c.Bot().OnError(fmt.Errorf("unhandled callback data: %s", data), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
		}
		ctx, cancel := commandContext()
		defer cancel()
		return c.Respond(&telebot.CallbackResponse{Text: h.markRead(ctx, c.Sender().ID, strings.TrimPrefix(data, readCallbackPrefix))})
	})
}

// inbox lists the sender's notifications with one mark-read button each.
func (h *Handlers) inbox(ctx context.Context, senderID int64) (string, *telebot.ReplyMarkup) {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/notifications", "sender_id": senderID})

	u, err := h.identify(ctx, senderID)
	if err != nil {
		logCtx.WithError(err).Error("Error checking user for /notifications command")
		return "Something went wrong. Please try again later.", nil
	}
	if u == nil || !u.IsActive {
		return unknownUserText, nil
	}

	items, err := h.notifications.ListInstant(ctx, u.ID, "")
	if err != nil {
		logCtx.WithError(err).Error("Failed to list notifications")
		return "Could not load your notifications. Please try again later.", nil
	}
	if len(items) == 0 {
		return "You have no notifications.", nil
	}

	var text strings.Builder
	markup := &telebot.ReplyMarkup{}
	for i, n := range items {
		fmt.Fprintf(&text, "%d. [%s] %s", i+1, n.Type, n.Timestamp.Format("2006-01-02 15:04"))
		if msg, ok := n.Data["message"].(string); ok && msg != "" {
			fmt.Fprintf(&text, " %s", msg)
		}
		text.WriteString("\n")
		markup.InlineKeyboard = append(markup.InlineKeyboard, []telebot.InlineButton{{
			Text: fmt.Sprintf("Mark %d as read", i+1),
			Data: readCallbackPrefix + n.ID,
		}})
	}
	return text.String(), markup
}

func (h *Handlers) markRead(ctx context.Context, senderID int64, notificationID string) string {
	logCtx := h.logger.WithFields(logrus.Fields{"callback": "read", "sender_id": senderID, "notification_id": notificationID})

	u, err := h.identify(ctx, senderID)
	if err != nil || u == nil || !u.IsActive {
		logCtx.WithError(err).Warn("Mark-read from unknown or inactive account")
		return "Your account is not linked."
	}
	if err := h.notifications.MarkRead(ctx, u.ID, []string{notificationID}); err != nil {
		logCtx.WithError(err).Error("Failed to mark notification as read")
		return "Something went wrong."
	}
	return "Marked as read."
}
