package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryItem struct {
	value   []byte
	expires time.Time // нулевое значение - без истечения
}

// MemoryCache реализация Repo в памяти процесса для одиночного узла и тестов.
type MemoryCache struct {
	mu          sync.RWMutex
	items       map[string]memoryItem
	invalidator Invalidator
	now         func() time.Time
	*stats
}

// NewMemoryCache создаёт кеш в памяти. invalidator может быть nil.
func NewMemoryCache(invalidator Invalidator) *MemoryCache {
	return &MemoryCache{
		items:       make(map[string]memoryItem),
		invalidator: invalidator,
		now:         time.Now,
		stats:       newStats(),
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || m.expired(item) {
		m.miss()
		return nil, ErrCacheMiss
	}
	m.hit()
	return slices.Clone(item.value), nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: slices.Clone(value)}
	if ttl > 0 {
		item.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	return ok && !m.expired(item), nil
}

func (m *MemoryCache) Invalidate(ctx context.Context, key string) error {
	_ = m.Delete(ctx, key)
	return publish(ctx, m.invalidator, key)
}

func (m *MemoryCache) Close() error { return nil }

func (m *MemoryCache) expired(item memoryItem) bool {
	return !item.expires.IsZero() && !m.now().Before(item.expires)
}
