package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T) *RedisClient {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(RedisClientOptions{
		RedisURL:  "redis://" + mr.Addr(),
		Namespace: "agentctl:test",
	})
	require.NoError(t, err)
	return client
}

func TestRedisLogStore_AppendAndSortByTimestamp(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewRedisLogStore(client)
	taskID := uuid.New()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, LogEntry{TaskID: taskID, Timestamp: "2024-01-01T00:00:02", Message: "second"}))
	require.NoError(t, store.Append(ctx, LogEntry{TaskID: taskID, Timestamp: "2024-01-01T00:00:01", Message: "first"}))

	entries, err := store.ForTask(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "first", entries[0].Message)
	require.Equal(t, "second", entries[1].Message)
}

func TestRedisScreenshotStore_AppendAndRetrieve(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewRedisScreenshotStore(client)
	taskID := uuid.New()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Append(ctx, ScreenshotEntry{
		TaskID: taskID, NumPriorActions: 0, Type: ScreenshotInitial, Timestamp: now, PNGBase64: "abc",
	}))

	entries, err := store.ForTask(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ScreenshotInitial, entries[0].Type)
}
