package notification

import (
	"context"
	"errors"

	"activity_tracker/internal/domain/user"
)

// Message is one rendered notification addressed to a set of users.
type Message struct {
	To      []user.Recipient
	Subject string
	Body    string
}

// Sender delivers rendered messages over one channel (e-mail, Telegram...).
// A returned error makes the queue retry the job per its policy.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Senders fans a message out to every channel. Each channel is attempted
// even when an earlier one fails; the failures are joined.
type Senders []Sender

func (s Senders) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, sender := range s {
		if err := sender.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
