package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"activity_tracker/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = time.Second
	settleTimeout       = 5 * time.Second
)

// DefaultLease is how long a reserved job may stay active before the next
// Reserve hands it out again.
const DefaultLease = 5 * time.Minute

// Broker stores jobs and moves them between states. Implementations must
// make every transition atomic for a single job.
type Broker interface {
	// Add assigns job.ID and stores the job as delayed or waiting depending
	// on job.ProcessAt relative to now.
	Add(ctx context.Context, job *notification.Job, now time.Time) error
	// Reserve requeues active jobs whose lease expired, promotes due delayed
	// jobs, then leases the oldest waiting job, counts the attempt and returns
	// it. It returns nil when nothing is waiting.
	Reserve(ctx context.Context, queue string, now time.Time) (*notification.Job, error)
	Complete(ctx context.Context, job *notification.Job) error
	// Retry moves an active job back to delayed until job.ProcessAt.
	Retry(ctx context.Context, job *notification.Job) error
	Fail(ctx context.Context, job *notification.Job) error
	Counts(ctx context.Context, queue string) (notification.Counts, error)
	// Prune drops completed and failed jobs finished before the cutoff.
	Prune(ctx context.Context, queue string, before time.Time) (int, error)
}

// Handler delivers one job. A non-nil error schedules a retry while
// attempts remain.
type Handler func(ctx context.Context, job *notification.Job) error

// Queue is a named FIFO with delayed jobs and per-job retry policy.
type Queue struct {
	name         string
	broker       Broker
	logger       *logrus.Entry
	now          func() time.Time
	pollInterval time.Duration
	handlers     map[notification.JobName]Handler
}

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func WithPollInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.pollInterval = d
		}
	}
}

func New(name string, broker Broker, logger *logrus.Entry, opts ...Option) *Queue {
	q := &Queue{
		name:         name,
		broker:       broker,
		logger:       logger.WithField("queue", name),
		now:          time.Now,
		pollInterval: defaultPollInterval,
		handlers:     make(map[notification.JobName]Handler),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Name() string { return q.name }

// Handle registers the handler of a job name. Must be called before Run.
func (q *Queue) Handle(name notification.JobName, h Handler) {
	q.handlers[name] = h
}

func (q *Queue) Add(ctx context.Context, name notification.JobName, data any, opts notification.JobOptions) (*notification.Job, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s job: %w", name, err)
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	now := q.now()
	job := &notification.Job{
		Queue:     q.name,
		Name:      name,
		Data:      raw,
		Opts:      opts,
		CreatedAt: now,
		ProcessAt: now.Add(opts.Delay),
	}
	if err := q.broker.Add(ctx, job, now); err != nil {
		return nil, fmt.Errorf("add %s job to %q: %w", name, q.name, err)
	}
	return job, nil
}

func (q *Queue) Counts(ctx context.Context) (notification.Counts, error) {
	return q.broker.Counts(ctx, q.name)
}

func (q *Queue) Prune(ctx context.Context, before time.Time) (int, error) {
	return q.broker.Prune(ctx, q.name, before)
}

// Run processes jobs until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	q.logger.Info("Queue worker started")
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()
	for {
		for {
			processed, err := q.ProcessNext(ctx)
			if err != nil {
				q.logger.WithError(err).Error("Queue worker iteration failed")
				break
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			q.logger.Info("Queue worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessNext runs at most one due job. It reports whether a job was taken.
// Handler failures are absorbed into the retry policy and never returned.
func (q *Queue) ProcessNext(ctx context.Context) (bool, error) {
	job, err := q.broker.Reserve(ctx, q.name, q.now())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	jobLogger := q.logger.WithFields(logrus.Fields{"job_id": job.ID, "job_name": job.Name})

	// Settling must outlive a shutdown that cancels ctx mid-delivery.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if job.AttemptsMade > job.Opts.Attempts {
		job.FailedReason = "attempts exhausted by interrupted runs"
		job.FinishedAt = q.now()
		jobLogger.WithField("attempts_made", job.AttemptsMade).Error("Stalled job has no attempts left; failing")
		return true, q.broker.Fail(settleCtx, job)
	}

	handler, ok := q.handlers[job.Name]
	if !ok {
		job.FailedReason = fmt.Sprintf("no handler for job %q", job.Name)
		job.FinishedAt = q.now()
		jobLogger.Error("Job has no handler; failing")
		return true, q.broker.Fail(settleCtx, job)
	}

	if err := q.invoke(ctx, handler, job); err != nil {
		job.FailedReason = err.Error()
		if job.AttemptsMade < job.Opts.Attempts {
			wait := job.Opts.Backoff.After(job.AttemptsMade)
			job.ProcessAt = q.now().Add(wait)
			jobLogger.WithError(err).WithFields(logrus.Fields{
				"attempts_made": job.AttemptsMade,
				"retry_in":      wait.String(),
			}).Warn("Job failed; retry scheduled")
			return true, q.broker.Retry(settleCtx, job)
		}
		job.FinishedAt = q.now()
		jobLogger.WithError(err).WithField("attempts_made", job.AttemptsMade).Error("Job failed; attempts exhausted")
		return true, q.broker.Fail(settleCtx, job)
	}

	job.FailedReason = ""
	job.FinishedAt = q.now()
	jobLogger.Info("Job completed")
	return true, q.broker.Complete(settleCtx, job)
}

// invoke shields the worker from handler panics.
func (q *Queue) invoke(ctx context.Context, h Handler, job *notification.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprint("handler panic: ", r))
		}
	}()
	return h(ctx, job)
}
