// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strings"

	"activity_tracker/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const unknownUserText = "Hello! I deliver activity tracker reminders. Ask an administrator to link your Telegram account to your tracker user."

func (h *Handlers) registerBotCommands(b registrar) {
	b.Handle("/start", func(c telebot.Context) error {
		ctx, cancel := commandContext()
		defer cancel()
		return c.Send(h.startText(ctx, c.Sender()))
	})

	b.Handle("/help", func(c telebot.Context) error {
		ctx, cancel := commandContext()
		defer cancel()
		return c.Send(h.helpText(ctx, c.Sender().ID))
	})
}

func (h *Handlers) startText(ctx context.Context, sender *telebot.User) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "sender_id": sender.ID})
	logCtx.Info("Processing /start command")

	u, err := h.identify(ctx, sender.ID)
	if err != nil {
		logCtx.WithError(err).Error("Error checking user for /start command")
		return "Something went wrong while checking your account. Please try again later."
	}
	if u == nil {
		logCtx.Info("User is unknown")
		return unknownUserText
	}
	if !u.IsActive {
		logCtx.WithField("user_id", u.ID).Info("User identified as inactive")
		return "Your tracker account is inactive. Please contact an administrator."
	}
	logCtx.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("User identified")
	return fmt.Sprintf("Hello, %s! You will receive activity tracker notifications here. Use /help for the list of commands.", u.Name)
}

func (h *Handlers) helpText(ctx context.Context, senderID int64) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/help", "sender_id": senderID})

	u, err := h.identify(ctx, senderID)
	if err != nil {
		logCtx.WithError(err).Error("Error checking user for /help command")
		return "Something went wrong while checking your account. Please try again later."
	}
	if u == nil {
		return unknownUserText
	}
	if !u.IsActive {
		return "Your tracker account is inactive. Please contact an administrator."
	}

	var help strings.Builder
	help.WriteString("Available commands:\n\n")
	help.WriteString("/notifications - show your unread notifications\n")
	if u.Role == user.RoleManager || u.Role == user.RoleAdmin {
		help.WriteString("/schedule_reminders <week> <YYYY-MM-DDTHH:MM> - queue deadline reminders\n")
	}
	if u.Role == user.RoleAdmin {
		help.WriteString("/queue_stats - show notification queue counts\n")
		help.WriteString("/link_user <email> <TelegramID> - link a Telegram account to a user\n")
	}
	help.WriteString("/help - show this message")
	return help.String()
}
