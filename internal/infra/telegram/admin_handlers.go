package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const deadlineLayout = "2006-01-02T15:04"

func (h *Handlers) registerAdminHandlers(b registrar) {
	b.Handle("/queue_stats", func(c telebot.Context) error {
		ctx, cancel := commandContext()
		defer cancel()
		return c.Send(h.queueStats(ctx, c.Sender().ID))
	})

	b.Handle("/schedule_reminders", func(c telebot.Context) error {
		ctx, cancel := commandContext()
		defer cancel()
		return c.Send(h.scheduleReminders(ctx, c.Sender().ID, c.Args()))
	})

	b.Handle("/link_user", func(c telebot.Context) error {
		ctx, cancel := commandContext()
		defer cancel()
		return c.Send(h.linkUser(ctx, c.Sender().ID, c.Args()))
	})
}

const notAuthorizedText = "Error: you are not allowed to run this command."

// staff resolves the sender to an active user holding one of roles.
func (h *Handlers) staff(ctx context.Context, logCtx *logrus.Entry, senderID int64, roles ...user.Role) (*user.User, bool) {
	u, err := h.identify(ctx, senderID)
	if err != nil {
		logCtx.WithError(err).Error("Error checking sender")
		return nil, false
	}
	if u == nil || !u.IsActive {
		logCtx.Warn("Unauthorized access attempt")
		return nil, false
	}
	for _, r := range roles {
		if u.Role == r {
			return u, true
		}
	}
	logCtx.WithField("role", u.Role).Warn("Unauthorized access attempt")
	return nil, false
}

func (h *Handlers) queueStats(ctx context.Context, senderID int64) string {
	logCtx := h.logger.WithFields(logrus.Fields{"handler": "/queue_stats", "sender_id": senderID})
	if _, ok := h.staff(ctx, logCtx, senderID, user.RoleAdmin); !ok {
		return notAuthorizedText
	}

	stats, err := h.notifications.Stats(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to read queue stats")
		return fmt.Sprintf("Could not read queue stats: %s", err.Error())
	}
	line := "%s: waiting %d, active %d, delayed %d, completed %d, failed %d\n"
	e, r := stats.EmailQueue, stats.ReminderQueue
	return fmt.Sprintf(line, "Email queue", e.Waiting, e.Active, e.Delayed, e.Completed, e.Failed) +
		fmt.Sprintf(line, "Reminder queue", r.Waiting, r.Active, r.Delayed, r.Completed, r.Failed)
}

func (h *Handlers) scheduleReminders(ctx context.Context, senderID int64, args []string) string {
	logCtx := h.logger.WithFields(logrus.Fields{"handler": "/schedule_reminders", "sender_id": senderID})
	if _, ok := h.staff(ctx, logCtx, senderID, user.RoleManager, user.RoleAdmin); !ok {
		return notAuthorizedText
	}

	usage := "Usage: /schedule_reminders <week> <YYYY-MM-DDTHH:MM>"
	if len(args) != 2 {
		return usage
	}
	week, err := strconv.Atoi(args[0])
	if err != nil {
		return "Error: week must be a number.\n" + usage
	}
	deadline, err := time.ParseInLocation(deadlineLayout, args[1], time.Local)
	if err != nil {
		return "Error: deadline must look like 2025-03-14T17:00.\n" + usage
	}

	n, err := h.notifications.ScheduleReminders(ctx, week, deadline)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to schedule reminders")
		return fmt.Sprintf("Error: %s", err.Error())
	}
	logCtx.WithFields(logrus.Fields{"week": week, "scheduled": n}).Info("Reminders scheduled from Telegram")
	return fmt.Sprintf("Scheduled %d reminder(s) for week %d.", n, week)
}

func (h *Handlers) linkUser(ctx context.Context, senderID int64, args []string) string {
	logCtx := h.logger.WithFields(logrus.Fields{"handler": "/link_user", "sender_id": senderID})
	admin, ok := h.staff(ctx, logCtx, senderID, user.RoleAdmin)
	if !ok {
		return notAuthorizedText
	}

	if len(args) != 2 {
		return "Usage: /link_user <email> <TelegramID>"
	}
	telegramID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || telegramID <= 0 {
		return "Error: Telegram ID must be a positive number."
	}

	linked, err := h.admin.LinkTelegram(ctx, user.Caller{ID: admin.ID, Role: admin.Role}, args[0], telegramID)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("No user with e-mail %s.", args[0])
	case errors.Is(err, apperr.ErrConflict):
		return fmt.Sprintf("Telegram ID %d is already linked to another user.", telegramID)
	case errors.Is(err, app.ErrAdminNotAuthorized):
		return notAuthorizedText
	default:
		logCtx.WithError(err).Error("Failed to link Telegram account")
		return fmt.Sprintf("Could not link the account: %s", err.Error())
	}
	logCtx.WithFields(logrus.Fields{"user_id": linked.ID, "telegram_id": telegramID}).Info("Telegram account linked")
	return fmt.Sprintf("%s (%s) is now linked to Telegram ID %d.", linked.Name, linked.Email, telegramID)
}
