package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/blockedit/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisCache реализует Repo поверх Redis.
//
// Особенности:
// - Автоматические метрики (hit ratio, latency)
// - Рассылка инвалидаций через Invalidator при удалении
type RedisCache struct {
	client      *redis.Client
	config      *Config
	invalidator Invalidator
	*stats
}

// NewRedisCache создаёт Redis кеш.
//
// Параметры:
//
//	config - конфигурация Redis
//	invalidator - опциональный invalidator для Pub/Sub (может быть nil)
func NewRedisCache(config *Config, invalidator Invalidator) (*RedisCache, error) {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 30 * time.Minute
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = 24 * time.Hour
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}

	logging.Info("🗄️ Redis кеш подключён: %s", config.RedisURL)
	return &RedisCache{
		client:      rdb,
		config:      config,
		invalidator: invalidator,
		stats:       newStats(),
	}, nil
}

// Get получает значение по ключу.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer r.recordLatency(start)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		r.hit()
		return val, nil
	}
	r.miss()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	logging.Error("Ошибка Redis Get для ключа %s: %v", key, err)
	return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
}

// Set сохраняет значение. TTL больше MaxTTL обрезается.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer r.recordLatency(start)

	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}
	if ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logging.Error("Ошибка Redis Set для ключа %s: %v", key, err)
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	return nil
}

// Delete удаляет ключ.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer r.recordLatency(start)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		logging.Error("Ошибка Redis Delete для ключа %s: %v", key, err)
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}
	return nil
}

// Exists проверяет существование ключа.
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки ключа в Redis: %w", err)
	}
	return count > 0, nil
}

// Invalidate удаляет ключ и уведомляет другие узлы.
func (r *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := r.Delete(ctx, key); err != nil {
		return err
	}
	return publish(ctx, r.invalidator, key)
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		logging.Error("Ошибка закрытия Redis: %v", err)
		return err
	}
	logging.Info("Redis кеш закрыт")
	return nil
}

func publish(ctx context.Context, inv Invalidator, key string) error {
	if inv == nil {
		return nil
	}
	if err := inv.PublishInvalidation(ctx, key); err != nil {
		logging.Error("Не удалось разослать инвалидацию ключа %s: %v", key, err)
		return err
	}
	return nil
}

// stats счётчики попаданий и задержек, общие для реализаций Repo
type stats struct {
	requests, hits, misses int64

	latencySum   int64 // в наносекундах
	latencyCount int64
	maxLatency   int64

	mu      sync.Mutex
	metrics Metrics
}

func newStats() *stats {
	return &stats{metrics: Metrics{LastUpdate: time.Now()}}
}

func (s *stats) hit() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.hits, 1)
}

func (s *stats) miss() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.misses, 1)
}

// recordLatency записывает latency метрику.
func (s *stats) recordLatency(start time.Time) {
	latency := time.Since(start).Nanoseconds()
	atomic.AddInt64(&s.latencySum, latency)
	atomic.AddInt64(&s.latencyCount, 1)
	for {
		current := atomic.LoadInt64(&s.maxLatency)
		if latency <= current || atomic.CompareAndSwapInt64(&s.maxLatency, current, latency) {
			break
		}
	}
}

// GetMetrics возвращает снимок метрик.
func (s *stats) GetMetrics() *Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalRequests = atomic.LoadInt64(&s.requests)
	s.metrics.CacheHits = atomic.LoadInt64(&s.hits)
	s.metrics.CacheMisses = atomic.LoadInt64(&s.misses)
	if total := s.metrics.CacheHits + s.metrics.CacheMisses; total > 0 {
		s.metrics.HitRatio = float64(s.metrics.CacheHits) / float64(total)
	}
	if count := atomic.LoadInt64(&s.latencyCount); count > 0 {
		s.metrics.AvgLatencyMs = float64(atomic.LoadInt64(&s.latencySum)) / float64(count) / 1e6
	}
	s.metrics.MaxLatencyMs = float64(atomic.LoadInt64(&s.maxLatency)) / 1e6
	s.metrics.LastUpdate = time.Now()

	m := s.metrics
	return &m
}
