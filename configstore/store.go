package configstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/store"
)

// Backend is the key/value persistence contract configstore reads from and
// writes to. Per spec.md §1 configuration storage is an out-of-scope
// collaborator; Backend is the Go-native seam for it.
type Backend interface {
	Load(ctx context.Context) (Config, bool, error)
	Save(ctx context.Context, cfg Config) error
}

// Store owns the live Config snapshot and polls Backend for external edits
// (spec.md §6: "Changes are observed and re-validated live"). Adapted from
// the teacher's RedisDiscovery.StartHeartbeat ticker-driven goroutine
// pattern (core/discovery.go).
type Store struct {
	backend Backend
	logger  core.Logger

	mu  sync.RWMutex
	cur Config

	pollInterval time.Duration
	onChange     func(prev, next Config)
}

// NewStore loads the initial snapshot from backend, falling back to
// DefaultConfig() if nothing has been persisted yet.
func NewStore(ctx context.Context, backend Backend, logger core.Logger) (*Store, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	cfg, ok, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		cfg = DefaultConfig()
	}
	return &Store{backend: backend, logger: logger, cur: cfg, pollInterval: 5 * time.Second}, nil
}

// Current returns a deep copy of the live config.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// OnChange registers a callback invoked after every successfully applied
// update, with the previous and next snapshots (used by cmd/agentctl wiring
// to detect an AI-provider change and reconstruct the engine per spec.md
// §4.2).
func (s *Store) OnChange(fn func(prev, next Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// ApplyUpdate validates and merges update into the live config, persists it,
// and fires OnChange.
func (s *Store) ApplyUpdate(ctx context.Context, update Update) error {
	s.mu.Lock()
	prev := s.cur
	next := Apply(s.logger, s.cur, update)
	s.cur = next
	onChange := s.onChange
	s.mu.Unlock()

	if err := s.backend.Save(ctx, next); err != nil {
		return err
	}
	if onChange != nil {
		onChange(prev, next)
	}
	return nil
}

// Watch starts a background poll loop that reloads Backend every
// pollInterval, applying any out-of-band edits (e.g. a panel settings page
// writing directly to the backend) until ctx is canceled.
func (s *Store) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reload(ctx)
			}
		}
	}()
}

func (s *Store) reload(ctx context.Context) {
	loaded, ok, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Warn("configstore reload failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	prev := s.cur
	// Re-validate the out-of-band edit field by field; any invalid field
	// keeps its prior value, exactly as ApplyUpdate does.
	threshold := loaded.AutoMonitorThreshold.String()
	provider := string(loaded.AIProviderType)
	next := Apply(s.logger, prev, Update{
		MaxOps: &loaded.MaxOps, MaxNoops: &loaded.MaxNoops, MaxFailures: &loaded.MaxFailures,
		MaxFailureOrNoopStreak: &loaded.MaxFailureOrNoopStreak, MonitorMode: &loaded.MonitorMode,
		AutoMonitorThreshold: &threshold, AIProviderType: &provider, EULAAccepted: &loaded.EULAAccepted,
	})
	next.APIKeys = loaded.Clone().APIKeys
	if configsEqual(prev, next) {
		s.mu.Unlock()
		return
	}
	s.cur = next
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(prev, next)
	}
}

func configsEqual(a, b Config) bool {
	aj, err1 := json.Marshal(a)
	bj, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(aj) == string(bj)
}

// RedisBackend persists Config as a single JSON blob under a namespaced key,
// following the same client wrapper the rest of store/ uses.
type RedisBackend struct {
	client *store.RedisClient
	key    string
}

func NewRedisBackend(client *store.RedisClient) *RedisBackend {
	return &RedisBackend{client: client, key: "config"}
}

func (b *RedisBackend) Load(ctx context.Context) (Config, bool, error) {
	raw, err := b.client.Get(ctx, b.key)
	if err != nil {
		return Config{}, false, err
	}
	if raw == "" {
		return Config{}, false, nil
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}

func (b *RedisBackend) Save(ctx context.Context, cfg Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key, string(data))
}

// InMemoryBackend is a process-local Backend, used in tests. (cmd/agentctl
// uses FileBackend when no Redis URL is configured.)
type InMemoryBackend struct {
	mu  sync.Mutex
	cfg Config
	set bool
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{}
}

func (b *InMemoryBackend) Load(context.Context) (Config, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.set {
		return Config{}, false, nil
	}
	return b.cfg.Clone(), true, nil
}

func (b *InMemoryBackend) Save(_ context.Context, cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg.Clone()
	b.set = true
	return nil
}
