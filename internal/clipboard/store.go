package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/blockedit/internal/cache"
)

// ErrEmpty у оператора нет буфера обмена
var ErrEmpty = errors.New("буфер обмена пуст")

// Store хранилище буферов обмена по оператору
type Store interface {
	Save(ctx context.Context, operator string, c *Clipboard) error
	// Load возвращает ErrEmpty, если буфера нет
	Load(ctx context.Context, operator string) (*Clipboard, error)
	Delete(ctx context.Context, operator string) error
}

// MemoryStore хранит копии буферов в памяти процесса
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Clipboard
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Clipboard)}
}

func (s *MemoryStore) Save(_ context.Context, operator string, c *Clipboard) error {
	s.mu.Lock()
	s.items[operator] = c.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, operator string) (*Clipboard, error) {
	s.mu.RLock()
	c, ok := s.items[operator]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrEmpty
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, operator string) error {
	s.mu.Lock()
	delete(s.items, operator)
	s.mu.Unlock()
	return nil
}

// CacheStore хранит сжатые буферы в cache.Repo (Redis в кластере editd),
// поэтому буфер переживает истечение сессии и доступен с любого узла.
type CacheStore struct {
	repo cache.Repo
	ttl  time.Duration
}

// NewCacheStore создаёт хранилище. ttl = 0 берёт TTL кеша по умолчанию.
func NewCacheStore(repo cache.Repo, ttl time.Duration) *CacheStore {
	return &CacheStore{repo: repo, ttl: ttl}
}

// Key ключ буфера оператора в кеше
func Key(operator string) string { return "clipboard:" + operator }

func (s *CacheStore) Save(ctx context.Context, operator string, c *Clipboard) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ctx, Key(operator), data, s.ttl); err != nil {
		return fmt.Errorf("ошибка сохранения буфера обмена %s: %w", operator, err)
	}
	return nil
}

func (s *CacheStore) Load(ctx context.Context, operator string) (*Clipboard, error) {
	data, err := s.repo.Get(ctx, Key(operator))
	if cache.IsCacheMiss(err) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки буфера обмена %s: %w", operator, err)
	}
	return Unmarshal(data)
}

// Delete удаляет буфер и рассылает инвалидацию другим узлам
func (s *CacheStore) Delete(ctx context.Context, operator string) error {
	if err := s.repo.Invalidate(ctx, Key(operator)); err != nil {
		return fmt.Errorf("ошибка удаления буфера обмена %s: %w", operator, err)
	}
	return nil
}
