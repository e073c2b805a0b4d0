package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"activity_tracker/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

// reserveScript returns expired leases to the head of the waiting list,
// promotes due delayed ids to its tail in score order, then pops the head and
// leases it until ARGV[2]. KEYS[1] delayed zset, KEYS[2] waiting list,
// KEYS[3] active zset, ARGV[1] now (ms).
var reserveScript = redis.NewScript(`
local stalled = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
for i = #stalled, 1, -1 do
  redis.call('ZREM', KEYS[3], stalled[i])
  redis.call('LPUSH', KEYS[2], stalled[i])
end
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('RPUSH', KEYS[2], id)
end
local id = redis.call('LPOP', KEYS[2])
if not id then
  return false
end
redis.call('ZADD', KEYS[3], ARGV[2], id)
return id
`)

// RedisBroker stores jobs in Redis so queued work survives restarts.
//
// Layout per queue:
//
//	queue:<name>:id         counter
//	queue:<name>:job:<id>   JSON job body
//	queue:<name>:waiting    list of ids (FIFO)
//	queue:<name>:active     zset of ids scored by lease expiry (unix ms)
//	queue:<name>:delayed    zset of ids scored by next attempt (unix ms)
//	queue:<name>:completed  zset of ids scored by finish time
//	queue:<name>:failed     zset of ids scored by finish time
//
// A reserved job whose lease runs out before it is settled goes back to the
// head of the waiting list on the next Reserve.
type RedisBroker struct {
	rdb   *redis.Client
	lease time.Duration
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, lease: DefaultLease}
}

func key(queue, suffix string) string {
	return "queue:" + queue + ":" + suffix
}

func jobKey(queue, id string) string {
	return key(queue, "job:"+id)
}

func (b *RedisBroker) Add(ctx context.Context, job *notification.Job, now time.Time) error {
	id, err := b.rdb.Incr(ctx, key(job.Queue, "id")).Result()
	if err != nil {
		return fmt.Errorf("allocate job id: %w", err)
	}
	job.ID = strconv.FormatInt(id, 10)

	delayed := job.ProcessAt.After(now)
	if delayed {
		job.State = notification.StateDelayed
	} else {
		job.State = notification.StateWaiting
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(job.Queue, job.ID), raw, 0)
		if delayed {
			pipe.ZAdd(ctx, key(job.Queue, "delayed"), redis.Z{Score: float64(job.ProcessAt.UnixMilli()), Member: job.ID})
		} else {
			pipe.RPush(ctx, key(job.Queue, "waiting"), job.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func (b *RedisBroker) Reserve(ctx context.Context, queue string, now time.Time) (*notification.Job, error) {
	keys := []string{key(queue, "delayed"), key(queue, "waiting"), key(queue, "active")}
	id, err := reserveScript.Run(ctx, b.rdb, keys, now.UnixMilli(), now.Add(b.lease).UnixMilli()).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reserve job: %w", err)
	}

	raw, err := b.rdb.Get(ctx, jobKey(queue, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		b.rdb.ZRem(ctx, key(queue, "active"), id)
		return nil, fmt.Errorf("load job %s: body is missing", id)
	}
	if err != nil {
		// The lease brings the id back once it expires.
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	job := &notification.Job{}
	if err := json.Unmarshal(raw, job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	job.State = notification.StateActive
	job.AttemptsMade++
	if raw, err = json.Marshal(job); err != nil {
		return nil, fmt.Errorf("encode job %s: %w", id, err)
	}
	if err := b.rdb.Set(ctx, jobKey(queue, id), raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("count attempt of job %s: %w", id, err)
	}
	return job, nil
}

// settle moves an active job to its next state and rewrites its body in one
// transaction.
func (b *RedisBroker) settle(ctx context.Context, job *notification.Job, state notification.JobState, score time.Time) error {
	job.State = state
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	target := key(job.Queue, string(state))
	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, key(job.Queue, "active"), job.ID)
		pipe.ZAdd(ctx, target, redis.Z{Score: float64(score.UnixMilli()), Member: job.ID})
		pipe.Set(ctx, jobKey(job.Queue, job.ID), raw, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("move job %s to %s: %w", job.ID, state, err)
	}
	return nil
}

func (b *RedisBroker) Complete(ctx context.Context, job *notification.Job) error {
	return b.settle(ctx, job, notification.StateCompleted, job.FinishedAt)
}

func (b *RedisBroker) Retry(ctx context.Context, job *notification.Job) error {
	return b.settle(ctx, job, notification.StateDelayed, job.ProcessAt)
}

func (b *RedisBroker) Fail(ctx context.Context, job *notification.Job) error {
	return b.settle(ctx, job, notification.StateFailed, job.FinishedAt)
}

func (b *RedisBroker) Counts(ctx context.Context, queue string) (notification.Counts, error) {
	var waiting, active, completed, failed, delayed *redis.IntCmd
	_, err := b.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		waiting = pipe.LLen(ctx, key(queue, "waiting"))
		active = pipe.ZCard(ctx, key(queue, "active"))
		completed = pipe.ZCard(ctx, key(queue, "completed"))
		failed = pipe.ZCard(ctx, key(queue, "failed"))
		delayed = pipe.ZCard(ctx, key(queue, "delayed"))
		return nil
	})
	if err != nil {
		return notification.Counts{}, fmt.Errorf("count jobs of %q: %w", queue, err)
	}
	return notification.Counts{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Delayed:   delayed.Val(),
	}, nil
}

func (b *RedisBroker) Prune(ctx context.Context, queue string, before time.Time) (int, error) {
	cutoff := strconv.FormatInt(before.UnixMilli()-1, 10)
	removed := 0
	for _, state := range []notification.JobState{notification.StateCompleted, notification.StateFailed} {
		setKey := key(queue, string(state))
		ids, err := b.rdb.ZRangeByScore(ctx, setKey, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
		if err != nil {
			return removed, fmt.Errorf("list %s jobs of %q: %w", state, queue, err)
		}
		if len(ids) == 0 {
			continue
		}
		_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range ids {
				pipe.Del(ctx, jobKey(queue, id))
				pipe.ZRem(ctx, setKey, id)
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("prune %s jobs of %q: %w", state, queue, err)
		}
		removed += len(ids)
	}
	return removed, nil
}
