package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tracker")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, "console", cfg.MailDriver)
	assert.Equal(t, time.Friday, cfg.DeadlineWeekday)
	assert.Equal(t, 17, cfg.DeadlineHour)
	assert.True(t, cfg.SemesterStart.IsZero())
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tracker")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is not set")
}

func TestLoadParsesOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGIN", "http://a.test, http://b.test")
	t.Setenv("QUEUE_BACKEND", "MEMORY")
	t.Setenv("QUEUE_POLL_INTERVAL", "250ms")
	t.Setenv("SEMESTER_START_DATE", "2025-02-03")
	t.Setenv("REMINDER_DEADLINE_WEEKDAY", "Sunday")
	t.Setenv("REMINDER_DEADLINE_HOUR", "23")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.QueuePollInterval)
	assert.Equal(t, "2025-02-03", cfg.SemesterStart.Format("2006-01-02"))
	assert.Equal(t, time.Sunday, cfg.DeadlineWeekday)
	assert.Equal(t, 23, cfg.DeadlineHour)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"QUEUE_BACKEND":             "kafka",
		"MAIL_DRIVER":               "pigeon",
		"JWT_EXPIRES_IN":            "1 day",
		"REMINDER_DEADLINE_WEEKDAY": "someday",
		"REMINDER_DEADLINE_HOUR":    "24",
		"SEMESTER_START_DATE":       "03/02/2025",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadSMTPNeedsHost(t *testing.T) {
	setRequired(t)
	t.Setenv("MAIL_DRIVER", "smtp")
	t.Setenv("SMTP_HOST", "")

	_, err := Load()
	assert.EqualError(t, err, "SMTP_HOST is not set")
}
