// internal/domain/notification/repository.go
package notification

import (
	"context"
)

// Queue accepts jobs for asynchronous delivery.
type Queue interface {
	Name() string
	// Add enqueues data (JSON encoded) under the job name. It returns once
	// the job is stored; delivery happens later on a worker.
	Add(ctx context.Context, name JobName, data any, opts JobOptions) (*Job, error)
	Counts(ctx context.Context) (Counts, error)
}

// InstantStore keeps per-recipient instant notifications with a TTL.
type InstantStore interface {
	// Send stores a notification for data["userId"], or for every user
	// when the field is absent.
	Send(ctx context.Context, notifType string, data map[string]any) (*Instant, error)
	// List returns recipient and broadcast notifications, newest first.
	// An empty notifType matches every type.
	List(ctx context.Context, recipientID string, notifType string) ([]*Instant, error)
	// MarkRead drops the given ids from the recipient's own lists. Broadcast
	// lists are left alone.
	MarkRead(ctx context.Context, recipientID string, ids []string) error
}
