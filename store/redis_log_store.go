package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// RedisLogStore persists LogEntry records in a per-task Redis list, mirroring
// the teacher's append-only registry convention (RPush + LRange, namespaced
// keys). Adapted from orchestration/redis_execution_store.go's pattern of
// JSON-encoding each record and scoping it under the entity's id.
type RedisLogStore struct {
	client *RedisClient
}

func NewRedisLogStore(client *RedisClient) *RedisLogStore {
	return &RedisLogStore{client: client}
}

func (s *RedisLogStore) Append(ctx context.Context, entry LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := s.client.key("logs", entry.TaskID.String())
	return s.client.client.RPush(ctx, key, data).Err()
}

func (s *RedisLogStore) ForTask(ctx context.Context, taskID uuid.UUID) ([]LogEntry, error) {
	key := s.client.key("logs", taskID.String())
	raw, err := s.client.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(raw))
	for _, r := range raw {
		var e LogEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}
