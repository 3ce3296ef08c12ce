package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryLogStore is a process-local LogStore, used in tests and whenever
// no Redis URL is configured. Adapted from the teacher's
// core/memory_store.go in-memory-with-mutex shape.
type InMemoryLogStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewInMemoryLogStore() *InMemoryLogStore {
	return &InMemoryLogStore{}
}

func (s *InMemoryLogStore) Append(_ context.Context, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryLogStore) ForTask(_ context.Context, taskID uuid.UUID) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LogEntry
	for _, e := range s.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// InMemoryScreenshotStore is a process-local ScreenshotStore.
type InMemoryScreenshotStore struct {
	mu      sync.Mutex
	entries []ScreenshotEntry
}

func NewInMemoryScreenshotStore() *InMemoryScreenshotStore {
	return &InMemoryScreenshotStore{}
}

func (s *InMemoryScreenshotStore) Append(_ context.Context, entry ScreenshotEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryScreenshotStore) ForTask(_ context.Context, taskID uuid.UUID) ([]ScreenshotEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScreenshotEntry
	for _, e := range s.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
