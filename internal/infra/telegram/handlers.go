package telegram

import (
	"context"
	"errors"
	"time"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const handlerTimeout = 10 * time.Second

// registrar is the part of *telebot.Bot used to route updates.
type registrar interface {
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
}

// Handlers answers bot commands on behalf of tracker users. Telegram
// accounts are matched to users through their linked Telegram ID.
type Handlers struct {
	users         user.Repository
	admin         *app.AdminService
	notifications *app.NotificationService
	logger        *logrus.Entry
}

func NewHandlers(users user.Repository, admin *app.AdminService, notifications *app.NotificationService, logger *logrus.Entry) *Handlers {
	return &Handlers{
		users:         users,
		admin:         admin,
		notifications: notifications,
		logger:        logger,
	}
}

// Register routes every command of the bot.
func (h *Handlers) Register(b registrar) {
	h.registerBotCommands(b)
	h.registerInboxHandlers(b)
	h.registerAdminHandlers(b)
}

// identify returns the active user linked to telegramID, or nil when there
// is none.
func (h *Handlers) identify(ctx context.Context, telegramID int64) (*user.User, error) {
	u, err := h.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}
