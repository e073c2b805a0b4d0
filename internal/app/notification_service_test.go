package app

import (
	"context"
	"testing"
	"time"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/notification"
	"activity_tracker/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRemindersSkipsPastOffsets(t *testing.T) {
	cases := []struct {
		name     string
		in       time.Duration
		expected int
	}{
		{"both offsets ahead", 30 * time.Hour, 2},
		{"only the two hour offset ahead", 10 * time.Hour, 1},
		{"both offsets passed", time.Hour, 0},
		{"two hour offset exactly now", 2 * time.Hour, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.addUser(t, "fiona", user.RoleFacilitator, true)

			n, err := f.notifications.ScheduleReminders(ctx, 5, f.clock.Now().Add(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, n)

			stats, err := f.notifications.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(tc.expected), stats.ReminderQueue.Delayed)
			assert.Zero(t, stats.ReminderQueue.Waiting)
		})
	}
}

func TestScheduleRemindersWithoutFacilitators(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "inactive", user.RoleFacilitator, false)

	n, err := f.notifications.ScheduleReminders(ctx, 5, f.clock.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScheduleRemindersValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.notifications.ScheduleReminders(context.Background(), 0, f.clock.Now().Add(48*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.notifications.ScheduleReminders(context.Background(), 3, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReminderFiresAtOffsetAndDelivers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "fiona", user.RoleFacilitator, true)
	deadline := f.clock.Now().Add(30 * time.Hour)

	_, err := f.notifications.ScheduleReminders(ctx, 5, deadline)
	require.NoError(t, err)

	processed, err := f.reminderQueue.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed, "nothing is due yet")

	f.clock.Advance(6 * time.Hour)
	processed, err = f.reminderQueue.ProcessNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "Activity Deadline Reminder - Week 5", f.sender.sent[0].Subject)
	assert.Contains(t, f.sender.sent[0].Body, "Week 5 activities are due on Tue Mar 11 2025")

	f.clock.Advance(22 * time.Hour)
	processed, err = f.reminderQueue.ProcessNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	stats, err := f.notifications.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ReminderQueue.Completed)
}

func TestFailedDeliveryIsRetriedThenVisibleInStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "mark", user.RoleManager, true)
	fac := f.addUser(t, "fiona", user.RoleFacilitator, true)
	o := f.addOffering(t, fac.ID)
	f.sender.err = errSMTPDown

	_, err := f.activities.Upsert(ctx, callerOf(fac), o.ID, 8, allDone())
	require.NoError(t, err, "delivery outcome never reaches the writer")

	for _, wait := range []time.Duration{0, 2 * time.Second, 4 * time.Second} {
		f.clock.Advance(wait)
		processed, err := f.emailQueue.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, processed)
	}

	stats, err := f.notifications.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.Counts{Failed: 1}, stats.EmailQueue)
}

func TestInstantNotificationsUseCallerID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.notifications.SendInstant(ctx, "", map[string]any{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.notifications.SendInstant(ctx, "alert", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	n, err := f.notifications.SendInstant(ctx, "alert", map[string]any{"userId": "7"})
	require.NoError(t, err)
	assert.Equal(t, "alert", n.Type)

	_, err = f.notifications.ListInstant(ctx, 7, "")
	require.NoError(t, err)
	require.NoError(t, f.notifications.MarkRead(ctx, 7, []string{n.ID}))

	assert.Equal(t, []string{"7"}, f.store.listed)
	assert.Equal(t, []string{n.ID}, f.store.read["7"])
}
