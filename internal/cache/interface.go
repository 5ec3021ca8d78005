package cache

import (
	"context"
	"errors"
	"time"
)

// Repo определяет интерфейс горячего кеша для данных, которые должны
// пережить истечение сессии оператора (буфер обмена, настройки).
//
// Использование:
//
//	repo := NewMemoryCache()
//	data, err := repo.Get(ctx, "clipboard:alice")
//	err = repo.Set(ctx, "clipboard:alice", data, 30*time.Minute)
//	err = repo.Invalidate(ctx, "clipboard:alice")
type Repo interface {
	// Get получает значение по ключу.
	// Возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL.
	// TTL = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ.
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа.
	Exists(ctx context.Context, key string) (bool, error)

	// Invalidate удаляет ключ и рассылает уведомление другим узлам.
	Invalidate(ctx context.Context, key string) error

	// Close закрывает соединение.
	Close() error

	// GetMetrics возвращает метрики кеша.
	GetMetrics() *Metrics
}

// Invalidator рассылает уведомления об инвалидации между узлами editd.
type Invalidator interface {
	// PublishInvalidation отправляет уведомление об инвалидации.
	PublishInvalidation(ctx context.Context, key string) error

	// SubscribeInvalidations подписывается на уведомления других узлов.
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error

	Close() error
}

// InvalidationHandler обрабатывает уведомление об инвалидации.
type InvalidationHandler func(key string) error

// Metrics метрики кеша.
type Metrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	LastUpdate time.Time `json:"last_update"`
}

// Config конфигурация кеша.
type Config struct {
	RedisURL      string `yaml:"redis_url" env:"BLOCKEDIT_REDIS_URL"`
	RedisPassword string `yaml:"redis_password" env:"BLOCKEDIT_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"BLOCKEDIT_REDIS_DB"`

	// TTL настройки
	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxTTL     time.Duration `yaml:"max_ttl"`

	MaxConnections int           `yaml:"max_connections"`
	PoolTimeout    time.Duration `yaml:"pool_timeout"`
}

// ErrCacheMiss ключ не найден
var ErrCacheMiss = errors.New("ключ не найден в кеше")

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
