package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffAfter(t *testing.T) {
	exp := CompletionJobOptions.Backoff
	assert.Equal(t, 2*time.Second, exp.After(1))
	assert.Equal(t, 4*time.Second, exp.After(2))
	assert.Equal(t, 8*time.Second, exp.After(3))

	fixed := ReminderJobOptions.Backoff
	assert.Equal(t, 30*time.Second, fixed.After(1))
	assert.Equal(t, 30*time.Second, fixed.After(2))
}

func TestJobPolicies(t *testing.T) {
	assert.Equal(t, 3, CompletionJobOptions.Attempts)
	assert.Equal(t, 2, ReminderJobOptions.Attempts)
	assert.Equal(t, []time.Duration{24 * time.Hour, 2 * time.Hour}, ReminderOffsets)
}
