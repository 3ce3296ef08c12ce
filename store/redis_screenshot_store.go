package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// RedisScreenshotStore persists ScreenshotEntry records the same way
// RedisLogStore does: one Redis list per task, JSON-encoded members.
type RedisScreenshotStore struct {
	client *RedisClient
}

func NewRedisScreenshotStore(client *RedisClient) *RedisScreenshotStore {
	return &RedisScreenshotStore{client: client}
}

func (s *RedisScreenshotStore) Append(ctx context.Context, entry ScreenshotEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := s.client.key("screenshots", entry.TaskID.String())
	return s.client.client.RPush(ctx, key, data).Err()
}

func (s *RedisScreenshotStore) ForTask(ctx context.Context, taskID uuid.UUID) ([]ScreenshotEntry, error) {
	key := s.client.key("screenshots", taskID.String())
	raw, err := s.client.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ScreenshotEntry, 0, len(raw))
	for _, r := range raw {
		var e ScreenshotEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
