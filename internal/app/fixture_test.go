package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"activity_tracker/internal/domain/course"
	"activity_tracker/internal/domain/notification"
	"activity_tracker/internal/domain/user"
	"activity_tracker/internal/infra/memory"
	"activity_tracker/internal/infra/queue"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var errSMTPDown = errors.New("smtp down")

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeStore struct {
	sent   []map[string]any
	listed []string
	read   map[string][]string
}

func (f *fakeStore) Send(_ context.Context, notifType string, data map[string]any) (*notification.Instant, error) {
	f.sent = append(f.sent, data)
	return &notification.Instant{ID: "notification_1", Type: notifType, Data: data}, nil
}

func (f *fakeStore) List(_ context.Context, recipientID string, _ string) ([]*notification.Instant, error) {
	f.listed = append(f.listed, recipientID)
	return []*notification.Instant{}, nil
}

func (f *fakeStore) MarkRead(_ context.Context, recipientID string, ids []string) error {
	if f.read == nil {
		f.read = make(map[string][]string)
	}
	f.read[recipientID] = append(f.read[recipientID], ids...)
	return nil
}

// fixture wires the services over the in-memory repositories and broker.
type fixture struct {
	clock         *clock
	db            *memory.DB
	users         *memory.UserRepository
	courses       *memory.CourseRepository
	emailQueue    *queue.Queue
	reminderQueue *queue.Queue
	sender        *recordingSender
	store         *fakeStore
	notifications *NotificationService
	activities    *ActivityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:  &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		db:     memory.Open(),
		sender: &recordingSender{},
		store:  &fakeStore{},
	}
	f.users = memory.NewUserRepository(f.db)
	f.courses = memory.NewCourseRepository(f.db)

	broker := queue.NewMemoryBroker()
	f.emailQueue = queue.New(notification.EmailQueueName, broker, quietLogger(), queue.WithClock(f.clock.Now))
	f.reminderQueue = queue.New(notification.ReminderQueueName, broker, quietLogger(), queue.WithClock(f.clock.Now))

	f.notifications = NewNotificationService(f.users, f.emailQueue, f.reminderQueue, f.store, f.sender, quietLogger())
	f.notifications.now = f.clock.Now
	f.emailQueue.Handle(notification.JobCompletionNotification, f.notifications.HandleCompletion)
	f.reminderQueue.Handle(notification.JobDeadlineReminder, f.notifications.HandleReminder)

	f.activities = NewActivityService(memory.NewActivityRepository(f.db), f.courses, f.notifications, quietLogger())
	f.activities.now = f.clock.Now
	return f
}

func (f *fixture) addUser(t *testing.T, name string, role user.Role, active bool) *user.User {
	t.Helper()
	u := &user.User{Name: name, Email: name + "@example.com", Role: role, IsActive: active}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) addOffering(t *testing.T, facilitatorID int64) *course.Offering {
	t.Helper()
	o := &course.Offering{
		CourseName:    "Algorithms",
		CourseCode:    "CS301",
		FacilitatorID: facilitatorID,
		Semester:      "Spring",
		Year:          2025,
		TotalWeeks:    16,
		IsActive:      true,
	}
	require.NoError(t, f.courses.Create(context.Background(), o))
	return o
}
