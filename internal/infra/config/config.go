package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	HTTPAddr    string
	DatabaseURL string
	CORSOrigins []string

	JWTSecret    string
	JWTExpiresIn time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueueBackend      string // "redis" or "memory"
	QueuePollInterval time.Duration
	QueueRetention    time.Duration

	MailDriver   string // "console" or "smtp"
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	TelegramToken string // Optional; the bot is disabled when empty

	CronSpecWeeklyReminders string
	CronSpecQueuePrune      string
	SemesterStart           time.Time // Zero when unset; weekly reminders are then skipped
	DeadlineWeekday         time.Weekday
	DeadlineHour            int

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":3001")
	if origins := os.Getenv("CORS_ORIGIN"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if cfg.JWTExpiresIn, err = durationEnv("JWT_EXPIRES_IN", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.RedisAddr = envOr("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.QueueBackend = strings.ToLower(envOr("QUEUE_BACKEND", "redis"))
	if cfg.QueueBackend != "redis" && cfg.QueueBackend != "memory" {
		return nil, fmt.Errorf("invalid QUEUE_BACKEND %q: must be redis or memory", cfg.QueueBackend)
	}
	if cfg.QueuePollInterval, err = durationEnv("QUEUE_POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.QueueRetention, err = durationEnv("QUEUE_RETENTION", 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.MailDriver = strings.ToLower(envOr("MAIL_DRIVER", "console"))
	switch cfg.MailDriver {
	case "console":
	case "smtp":
		cfg.SMTPHost = os.Getenv("SMTP_HOST")
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is not set")
		}
		if cfg.SMTPPort, err = intEnv("SMTP_PORT", 587); err != nil {
			return nil, err
		}
		cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
		cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	default:
		return nil, fmt.Errorf("invalid MAIL_DRIVER %q: must be console or smtp", cfg.MailDriver)
	}
	cfg.MailFrom = envOr("MAIL_FROM", "noreply@activity-tracker.local")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	cfg.CronSpecWeeklyReminders = envOr("CRON_SPEC_WEEKLY_REMINDERS", "0 8 * * MON") // Monday 08:00
	cfg.CronSpecQueuePrune = envOr("CRON_SPEC_QUEUE_PRUNE", "0 3 * * *")              // 03:00 daily

	if raw := os.Getenv("SEMESTER_START_DATE"); raw != "" {
		cfg.SemesterStart, err = time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid SEMESTER_START_DATE: %w", err)
		}
	}
	if cfg.DeadlineWeekday, err = parseWeekday(envOr("REMINDER_DEADLINE_WEEKDAY", "friday")); err != nil {
		return nil, err
	}
	if cfg.DeadlineHour, err = intEnv("REMINDER_DEADLINE_HOUR", 17); err != nil {
		return nil, err
	}
	if cfg.DeadlineHour < 0 || cfg.DeadlineHour > 23 {
		return nil, fmt.Errorf("invalid REMINDER_DEADLINE_HOUR %d: must be 0-23", cfg.DeadlineHour)
	}

	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid REMINDER_DEADLINE_WEEKDAY %q", s)
}
