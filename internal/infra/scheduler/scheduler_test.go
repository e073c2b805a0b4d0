package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestCalendarWeekOf(t *testing.T) {
	cal := Calendar{
		SemesterStart:   date(2025, time.February, 3, 0), // Monday
		DeadlineWeekday: time.Friday,
		DeadlineHour:    17,
	}

	tests := []struct {
		name     string
		now      time.Time
		week     int
		deadline time.Time
		ok       bool
	}{
		{"first day", date(2025, time.February, 3, 8), 1, date(2025, time.February, 7, 17), true},
		{"third week", date(2025, time.February, 17, 8), 3, date(2025, time.February, 21, 17), true},
		{"sunday closes the week", date(2025, time.February, 23, 22), 3, date(2025, time.February, 21, 17), true},
		{"last week", date(2025, time.May, 19, 8), 16, date(2025, time.May, 23, 17), true},
		{"after the semester", date(2025, time.May, 26, 8), 0, time.Time{}, false},
		{"before the semester", date(2025, time.January, 31, 8), 0, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week, deadline, ok := cal.WeekOf(tt.now)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.week, week)
			assert.True(t, tt.deadline.Equal(deadline), "deadline %s", deadline)
		})
	}
}

func TestCalendarDeadlineWrapsIntoWeek(t *testing.T) {
	cal := Calendar{
		SemesterStart:   date(2025, time.February, 5, 0), // Wednesday
		DeadlineWeekday: time.Monday,
		DeadlineHour:    9,
	}
	week, deadline, ok := cal.WeekOf(date(2025, time.February, 6, 8))
	require.True(t, ok)
	assert.Equal(t, 1, week)
	assert.Equal(t, date(2025, time.February, 10, 9), deadline)
}

func TestCalendarWeekOfAcrossDSTChange(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	cal := Calendar{
		SemesterStart:   time.Date(2025, time.March, 3, 0, 0, 0, 0, london), // Monday
		DeadlineWeekday: time.Friday,
		DeadlineHour:    17,
	}

	// Clocks go forward on 30 March, so only 167 hours separate these two
	// Monday midnights.
	week, deadline, ok := cal.WeekOf(time.Date(2025, time.March, 31, 0, 30, 0, 0, london))
	require.True(t, ok)
	assert.Equal(t, 5, week)
	assert.Equal(t, time.Date(2025, time.April, 4, 17, 0, 0, 0, london), deadline)

	week, _, ok = cal.WeekOf(time.Date(2025, time.March, 30, 23, 30, 0, 0, london))
	require.True(t, ok)
	assert.Equal(t, 4, week)
}

func TestCalendarWithoutStart(t *testing.T) {
	_, _, ok := Calendar{}.WeekOf(time.Now())
	assert.False(t, ok)
}

type fakeReminders struct {
	week     int
	deadline time.Time
	calls    int
	err      error
}

func (f *fakeReminders) ScheduleReminders(_ context.Context, week int, deadline time.Time) (int, error) {
	f.calls++
	f.week, f.deadline = week, deadline
	return 2, f.err
}

type fakePruner struct {
	name   string
	before time.Time
	err    error
}

func (p *fakePruner) Name() string { return p.name }

func (p *fakePruner) Prune(_ context.Context, before time.Time) (int, error) {
	p.before = before
	return 3, p.err
}

func newTestScheduler(r ReminderScheduler, pruners []Pruner, now time.Time) (*NotificationScheduler, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetOutput(io.Discard)
	s := NewNotificationScheduler(r, pruners, Calendar{
		SemesterStart:   date(2025, time.February, 3, 0),
		DeadlineWeekday: time.Friday,
		DeadlineHour:    17,
	}, 24*time.Hour, logrus.NewEntry(l), "0 8 * * MON", "0 3 * * *")
	s.now = func() time.Time { return now }
	return s, hook
}

func TestRunWeeklyReminders(t *testing.T) {
	r := &fakeReminders{}
	s, _ := newTestScheduler(r, nil, date(2025, time.February, 10, 8))

	s.RunWeeklyReminders(context.Background())
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 2, r.week)
	assert.Equal(t, date(2025, time.February, 14, 17), r.deadline)
}

func TestRunWeeklyRemindersOutsideSemester(t *testing.T) {
	r := &fakeReminders{}
	s, _ := newTestScheduler(r, nil, date(2025, time.August, 4, 8))

	s.RunWeeklyReminders(context.Background())
	assert.Zero(t, r.calls)
}

func TestPruneQueuesContinuesAfterFailure(t *testing.T) {
	now := date(2025, time.February, 10, 3)
	broken := &fakePruner{name: "email-notifications", err: errors.New("redis down")}
	ok := &fakePruner{name: "deadline-reminders"}
	s, hook := newTestScheduler(&fakeReminders{}, []Pruner{broken, ok}, now)

	s.PruneQueues(context.Background())
	assert.Equal(t, now.Add(-24*time.Hour), ok.before)
	assert.Equal(t, now.Add(-24*time.Hour), broken.before)

	var levels []logrus.Level
	for _, e := range hook.AllEntries() {
		levels = append(levels, e.Level)
	}
	assert.Contains(t, levels, logrus.ErrorLevel)
	assert.Contains(t, levels, logrus.InfoLevel)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, _ := newTestScheduler(&fakeReminders{}, nil, time.Now())
	s.cronSpecWeekly = "every monday"
	assert.Error(t, s.Start())
}
