package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/notification"
	"activity_tracker/internal/infra/cache"
	"activity_tracker/internal/infra/config"
	idb "activity_tracker/internal/infra/database"
	"activity_tracker/internal/infra/httpserver"
	"activity_tracker/internal/infra/logger"
	"activity_tracker/internal/infra/mailer"
	"activity_tracker/internal/infra/queue"
	"activity_tracker/internal/infra/scheduler"
	"activity_tracker/internal/infra/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	if err := idb.Migrate(context.Background(), db); err != nil {
		mainLogger.Fatalf("Could not apply database schema: %v", err)
	}
	mainLogger.Info("Database connection established")

	rdb, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		mainLogger.Fatalf("Could not connect to Redis: %v", err)
	}
	defer rdb.Close()
	mainLogger.WithField("addr", cfg.RedisAddr).Info("Redis connection established")

	// Initialize Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	courseRepo := idb.NewPostgresCourseRepository(db)
	activityRepo := idb.NewPostgresActivityRepository(db)

	// Queues
	var broker queue.Broker = queue.NewRedisBroker(rdb)
	if cfg.QueueBackend == "memory" {
		broker = queue.NewMemoryBroker()
		mainLogger.Warn("Using the in-memory queue broker; queued notifications are lost on restart")
	}
	emailQueue := queue.New(notification.EmailQueueName, broker, logger.Component("queue"),
		queue.WithPollInterval(cfg.QueuePollInterval))
	reminderQueue := queue.New(notification.ReminderQueueName, broker, logger.Component("queue"),
		queue.WithPollInterval(cfg.QueuePollInterval))

	// Delivery channels
	var mail notification.Sender = mailer.NewConsoleSender(logger.Component("mailer"))
	if cfg.MailDriver == "smtp" {
		mail = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, logger.Component("mailer"))
	}
	senders := notification.Senders{mail}

	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		botLogger := logger.Component("telegram")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.Fatalf("Could not create Telegram bot: %v", err)
		}
		senders = append(senders, telegram.NewNotifier(bot, botLogger))
	}

	// Services
	store := cache.NewRedisNotificationStore(rdb)
	notificationService := app.NewNotificationService(userRepo, emailQueue, reminderQueue, store, senders, logger.Component("app"))
	emailQueue.Handle(notification.JobCompletionNotification, notificationService.HandleCompletion)
	reminderQueue.Handle(notification.JobDeadlineReminder, notificationService.HandleReminder)

	authService := app.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiresIn, logger.Component("app"))
	adminService := app.NewAdminService(userRepo, logger.Component("app"))
	activityService := app.NewActivityService(activityRepo, courseRepo, notificationService, logger.Component("app"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range []*queue.Queue{emailQueue, reminderQueue} {
		q := q
		g.Go(func() error {
			q.Run(gctx)
			return nil
		})
	}

	notifScheduler := scheduler.NewNotificationScheduler(
		notificationService,
		[]scheduler.Pruner{emailQueue, reminderQueue},
		scheduler.Calendar{
			SemesterStart:   cfg.SemesterStart,
			DeadlineWeekday: cfg.DeadlineWeekday,
			DeadlineHour:    cfg.DeadlineHour,
		},
		cfg.QueueRetention,
		logger.Component("scheduler"),
		cfg.CronSpecWeeklyReminders,
		cfg.CronSpecQueuePrune,
	)
	if err := notifScheduler.Start(); err != nil {
		mainLogger.Fatalf("Could not start scheduler: %v", err)
	}

	if bot != nil {
		telegram.NewHandlers(userRepo, adminService, notificationService, logger.Component("telegram")).Register(bot)
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Auth:          authService,
		Admin:         adminService,
		Activities:    activityService,
		Notifications: notificationService,
		HealthChecks: map[string]httpserver.HealthCheck{
			"database": db.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger.Component("http"),
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		mainLogger.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "environment": cfg.Environment}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	<-gctx.Done()
	mainLogger.Info("Shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	if bot != nil {
		bot.Stop()
	}
	notifScheduler.Stop()
	if err := g.Wait(); err != nil {
		mainLogger.WithError(err).Error("Application stopped with an error")
		return
	}
	mainLogger.Info("Application shut down gracefully")
}
