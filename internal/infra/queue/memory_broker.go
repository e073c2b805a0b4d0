package queue

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"activity_tracker/internal/domain/notification"
)

// MemoryBroker keeps jobs in process memory. Jobs do not survive a restart;
// it backs tests and local runs without Redis.
type MemoryBroker struct {
	mu     sync.Mutex
	lease  time.Duration
	queues map[string]*memoryQueue
}

type memoryQueue struct {
	nextID    int64
	jobs      map[string]*notification.Job
	waiting   []string
	delayed   map[string]struct{}
	active    map[string]time.Time // lease expiry
	completed map[string]struct{}
	failed    map[string]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{lease: DefaultLease, queues: make(map[string]*memoryQueue)}
}

func (b *MemoryBroker) queue(name string) *memoryQueue {
	q, ok := b.queues[name]
	if !ok {
		q = &memoryQueue{
			jobs:      make(map[string]*notification.Job),
			delayed:   make(map[string]struct{}),
			active:    make(map[string]time.Time),
			completed: make(map[string]struct{}),
			failed:    make(map[string]struct{}),
		}
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBroker) Add(_ context.Context, job *notification.Job, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(job.Queue)
	q.nextID++
	job.ID = strconv.FormatInt(q.nextID, 10)
	if job.ProcessAt.After(now) {
		job.State = notification.StateDelayed
		q.delayed[job.ID] = struct{}{}
	} else {
		job.State = notification.StateWaiting
		q.waiting = append(q.waiting, job.ID)
	}
	stored := *job
	q.jobs[job.ID] = &stored
	return nil
}

func (b *MemoryBroker) Reserve(_ context.Context, name string, now time.Time) (*notification.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(name)

	stalled := make([]string, 0)
	for id, until := range q.active {
		if !until.After(now) {
			stalled = append(stalled, id)
		}
	}
	sort.Slice(stalled, func(i, k int) bool { return q.active[stalled[i]].Before(q.active[stalled[k]]) })
	for _, id := range stalled {
		delete(q.active, id)
		q.jobs[id].State = notification.StateWaiting
	}
	q.waiting = append(stalled, q.waiting...)

	due := make([]*notification.Job, 0)
	for id := range q.delayed {
		if j := q.jobs[id]; !j.ProcessAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool {
		if due[i].ProcessAt.Equal(due[k].ProcessAt) {
			return due[i].CreatedAt.Before(due[k].CreatedAt)
		}
		return due[i].ProcessAt.Before(due[k].ProcessAt)
	})
	for _, j := range due {
		delete(q.delayed, j.ID)
		j.State = notification.StateWaiting
		q.waiting = append(q.waiting, j.ID)
	}

	if len(q.waiting) == 0 {
		return nil, nil
	}
	id := q.waiting[0]
	q.waiting = q.waiting[1:]
	q.active[id] = now.Add(b.lease)
	j := q.jobs[id]
	j.State = notification.StateActive
	j.AttemptsMade++
	out := *j
	return &out, nil
}

func (b *MemoryBroker) settle(job *notification.Job, state notification.JobState) {
	q := b.queue(job.Queue)
	delete(q.active, job.ID)
	job.State = state
	switch state {
	case notification.StateCompleted:
		q.completed[job.ID] = struct{}{}
	case notification.StateFailed:
		q.failed[job.ID] = struct{}{}
	case notification.StateDelayed:
		q.delayed[job.ID] = struct{}{}
	}
	stored := *job
	q.jobs[job.ID] = &stored
}

func (b *MemoryBroker) Complete(_ context.Context, job *notification.Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settle(job, notification.StateCompleted)
	return nil
}

func (b *MemoryBroker) Retry(_ context.Context, job *notification.Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settle(job, notification.StateDelayed)
	return nil
}

func (b *MemoryBroker) Fail(_ context.Context, job *notification.Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settle(job, notification.StateFailed)
	return nil
}

func (b *MemoryBroker) Counts(_ context.Context, name string) (notification.Counts, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(name)
	return notification.Counts{
		Waiting:   int64(len(q.waiting)),
		Active:    int64(len(q.active)),
		Completed: int64(len(q.completed)),
		Failed:    int64(len(q.failed)),
		Delayed:   int64(len(q.delayed)),
	}, nil
}

func (b *MemoryBroker) Prune(_ context.Context, name string, before time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(name)
	removed := 0
	for _, set := range []map[string]struct{}{q.completed, q.failed} {
		for id := range set {
			if q.jobs[id].FinishedAt.Before(before) {
				delete(set, id)
				delete(q.jobs, id)
				removed++
			}
		}
	}
	return removed, nil
}

// Job returns a copy of a stored job, for inspection.
func (b *MemoryBroker) Job(queue, id string) (*notification.Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.queue(queue).jobs[id]
	if !ok {
		return nil, false
	}
	out := *j
	return &out, true
}
