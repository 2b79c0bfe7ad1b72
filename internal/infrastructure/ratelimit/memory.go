package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count    int64
	windowAt time.Time // 窗口起点
}

// MemoryStore 进程内限流计数，仅适用于单实例部署
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	e, ok := s.entries[key]
	if !ok || now.Sub(e.windowAt) >= window {
		// 新窗口
		s.entries[key] = &memoryEntry{count: 1, windowAt: now}
		return 1, nil
	}

	e.count++
	return e.count, nil
}
