package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NotificationTTL is how long a notification list lives after its last write.
const NotificationTTL = 24 * time.Hour

const keyPrefix = "notifications:"

func listKey(notifType, recipient string) string {
	return keyPrefix + notifType + ":" + recipient
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// escapeGlob quotes the SCAN MATCH metacharacters of s.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// RedisNotificationStore keeps instant notifications in one Redis list per
// (type, recipient), newest first.
type RedisNotificationStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisNotificationStore(rdb *redis.Client) *RedisNotificationStore {
	return &RedisNotificationStore{rdb: rdb, now: time.Now}
}

// recipientOf reads data["userId"]; numbers and strings are accepted.
func recipientOf(data map[string]any) string {
	v, ok := data["userId"]
	if !ok || v == nil {
		return notification.BroadcastRecipient
	}
	switch id := v.(type) {
	case string:
		if id == "" {
			return notification.BroadcastRecipient
		}
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}

func (s *RedisNotificationStore) Send(ctx context.Context, notifType string, data map[string]any) (*notification.Instant, error) {
	n := &notification.Instant{
		ID:        "notification_" + uuid.NewString(),
		Type:      notifType,
		Data:      data,
		Timestamp: s.now().UTC(),
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, apperr.Dependency("encode notification", err)
	}

	key := listKey(notifType, recipientOf(data))
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.Expire(ctx, key, NotificationTTL)
		return nil
	})
	if err != nil {
		return nil, apperr.Dependency("store notification", err)
	}
	return n, nil
}

func (s *RedisNotificationStore) List(ctx context.Context, recipientID string, notifType string) ([]*notification.Instant, error) {
	typePattern := "*"
	if notifType != "" {
		typePattern = escapeGlob(notifType)
	}
	patterns := []string{
		listKey(typePattern, escapeGlob(recipientID)),
		listKey(typePattern, notification.BroadcastRecipient),
	}

	out := make([]*notification.Instant, 0)
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		keys, err := s.scan(ctx, pattern)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items, err := s.rdb.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return nil, apperr.Dependency("read notifications", err)
			}
			for _, item := range items {
				n := &notification.Instant{}
				if err := json.Unmarshal([]byte(item), n); err != nil {
					return nil, apperr.Dependency("decode notification", err)
				}
				out = append(out, n)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// MarkRead removes each matching entry with LREM by its exact stored value
// and refreshes the TTL in the same transaction. A concurrent Send is never
// lost; an id that is not present is a no-op.
func (s *RedisNotificationStore) MarkRead(ctx context.Context, recipientID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	keys, err := s.scan(ctx, listKey("*", escapeGlob(recipientID)))
	if err != nil {
		return err
	}
	for _, key := range keys {
		items, err := s.rdb.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return apperr.Dependency("read notifications", err)
		}
		var drop []string
		for _, item := range items {
			var n notification.Instant
			if err := json.Unmarshal([]byte(item), &n); err != nil {
				return apperr.Dependency("decode notification", err)
			}
			if _, ok := wanted[n.ID]; ok {
				drop = append(drop, item)
			}
		}
		if len(drop) == 0 {
			continue
		}
		_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, item := range drop {
				pipe.LRem(ctx, key, 1, item)
			}
			pipe.Expire(ctx, key, NotificationTTL)
			return nil
		})
		if err != nil {
			return apperr.Dependency("remove notifications", err)
		}
	}
	return nil
}

func (s *RedisNotificationStore) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, apperr.Dependency("scan notification keys", err)
	}
	return keys, nil
}
