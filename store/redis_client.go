// Package store implements the two append-only, shared-across-the-
// extension persistence stores spec.md §5 and §6 describe: the Screenshot
// Coordinator's backing store and the Log Store, each with a Redis-backed
// and an in-memory implementation. Action records are not stored here; they
// live on core.Task. Adapted from the teacher's core/redis_client.go: a
// namespaced go-redis wrapper with connection health-checking, here
// specialized to per-task list append/read plus a single-key Get/Set (used
// by configstore.RedisBackend) instead of a general KV surface.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/agentctl/core"
)

// RedisClient wraps a go-redis client with a namespace prefix, matching the
// teacher's DB-isolation-plus-namespacing convention.
type RedisClient struct {
	client    *redis.Client
	namespace string
	logger    core.Logger
}

// RedisClientOptions configures a RedisClient.
type RedisClientOptions struct {
	RedisURL  string
	Namespace string
	Logger    core.Logger
}

// NewRedisClient dials Redis and verifies the connection with a bounded
// Ping, per the teacher's "test connection" step.
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", core.ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", core.ErrInvalidConfiguration)
	}
	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("redis connection failed: %v", err)
	}

	return &RedisClient{client: client, namespace: opts.Namespace, logger: logger}, nil
}

func (r *RedisClient) key(parts ...string) string {
	key := r.namespace
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Get reads a namespaced string value, returning "" with no error if the key
// is unset (configstore.RedisBackend relies on this to distinguish "never
// saved" from an empty blob).
func (r *RedisClient) Get(ctx context.Context, name string) (string, error) {
	val, err := r.client.Get(ctx, r.key(name)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Set writes a namespaced string value with no expiry.
func (r *RedisClient) Set(ctx context.Context, name, value string) error {
	return r.client.Set(ctx, r.key(name), value, 0).Err()
}

// Close releases the underlying connection pool.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
