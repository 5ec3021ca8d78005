package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/blockedit/internal/selector"
	"github.com/annel0/blockedit/internal/session"
)

// Config корневая структура конфигурации editd
type Config struct {
	Edit      EditConfig      `yaml:"edit"`
	History   HistoryConfig   `yaml:"history"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Cache     CacheConfig     `yaml:"cache"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
}

// EditConfig ограничения правки. -1 означает "без ограничения".
type EditConfig struct {
	DefaultChangeLimit    int `yaml:"default_change_limit"`
	MaxChangeLimit        int `yaml:"max_change_limit"`
	MaxRadius             int `yaml:"max_radius"`
	MaxBrushRadius        int `yaml:"max_brush_radius"`
	MaxPolygonVertices    int `yaml:"max_polygon_vertices"`
	MaxPolyhedronVertices int `yaml:"max_polyhedron_vertices"`
	SessionIdleMinutes    int `yaml:"session_idle_minutes"`
}

type HistoryConfig struct {
	JournalDepth int  `yaml:"journal_depth"`
	Persist      bool `yaml:"persist"` // сохранять журналы в BadgerDB
}

type SchedulerConfig struct {
	SliceBudget int `yaml:"slice_budget"` // блоков за один срез
	TickMillis  int `yaml:"tick_ms"`
	// Операции меньшего объёма выполняются сразу, без очереди
	InlineVolume int `yaml:"inline_volume"`
}

type StorageConfig struct {
	DataPath        string `yaml:"data_path"`
	World           string `yaml:"world"`
	SnapshotDir     string `yaml:"snapshot_dir"`
	MinY            int    `yaml:"min_y"`
	MaxY            int    `yaml:"max_y"`
	Seed            int64  `yaml:"seed"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

type EventBusConfig struct {
	Driver    string `yaml:"driver"` // memory | jetstream
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type CacheConfig struct {
	Driver        string `yaml:"driver"` // memory | redis
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLMinutes    int    `yaml:"ttl_minutes"`
	// Инвалидация локальных копий буферов между узлами через NATS
	InvalidationURL     string `yaml:"invalidation_url"`
	InvalidationSubject string `yaml:"invalidation_subject"`
}

type ArchiveConfig struct {
	Driver          string `yaml:"driver"` // none | memory | maria | mongo
	DSN             string `yaml:"dsn"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

type ServerConfig struct {
	NodeID   string `yaml:"node_id"`
	RESTPort int    `yaml:"rest_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type AuthConfig struct {
	JWTSecret       string            `yaml:"jwt_secret"`
	TokenTTLMinutes int               `yaml:"token_ttl_minutes"`
	Operators       map[string]string `yaml:"operators"` // оператор -> ключ доступа
}

// Default конфигурация для локального запуска без внешних сервисов
func Default() *Config {
	return &Config{
		Edit: EditConfig{
			DefaultChangeLimit:    -1,
			MaxChangeLimit:        -1,
			MaxRadius:             -1,
			MaxBrushRadius:        6,
			MaxPolygonVertices:    -1,
			MaxPolyhedronVertices: -1,
			SessionIdleMinutes:    30,
		},
		History:   HistoryConfig{JournalDepth: 15, Persist: true},
		Scheduler: SchedulerConfig{SliceBudget: 10_000, TickMillis: 50, InlineVolume: 32_768},
		Storage: StorageConfig{
			DataPath:        "data",
			World:           "world",
			SnapshotDir:     "snapshots",
			MinY:            0,
			MaxY:            255,
			AutosaveSeconds: 60,
		},
		EventBus: EventBusConfig{Driver: "memory", Stream: "BLOCKEDIT", Retention: 24, Buffer: 1024},
		Cache:    CacheConfig{Driver: "memory", TTLMinutes: 30},
		Archive:  ArchiveConfig{Driver: "memory"},
		Telemetry: TelemetryConfig{
			ServiceName: "blockedit",
		},
		Auth: AuthConfig{TokenTTLMinutes: 24 * 60},
	}
}

// Load читает YAML поверх Default.
// Если path == "", пытается прочитать из ENV BLOCKEDIT_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BLOCKEDIT_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан, используем дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault как Load, но без файла возвращает Default
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default()
	}
	return cfg, nil
}

// SessionLimits ограничения сессий операторов
func (c *Config) SessionLimits() session.Limits {
	return session.Limits{
		DefaultChangeLimit: c.Edit.DefaultChangeLimit,
		MaxChangeLimit:     c.Edit.MaxChangeLimit,
		JournalDepth:       c.History.JournalDepth,
		Selection: selector.Limits{
			MaxPolygonVertices:    c.Edit.MaxPolygonVertices,
			MaxPolyhedronVertices: c.Edit.MaxPolyhedronVertices,
		},
	}
}

// SessionIdle время бездействия, после которого сессия закрывается
func (e *EditConfig) SessionIdle() time.Duration {
	return time.Duration(getIntWithEnvFallback(e.SessionIdleMinutes, "BLOCKEDIT_SESSION_IDLE_MINUTES", 30)) * time.Minute
}

// CheckRadius проверяет радиус против MaxRadius
func (e *EditConfig) CheckRadius(r float64) error {
	if e.MaxRadius >= 0 && r > float64(e.MaxRadius) {
		return fmt.Errorf("радиус %.1f превышает максимум %d", r, e.MaxRadius)
	}
	return nil
}

// GetNodeID возвращает имя узла: config -> env -> hostname
func (s *ServerConfig) GetNodeID() string {
	if s.NodeID != "" {
		return s.NodeID
	}
	if v := os.Getenv("BLOCKEDIT_NODE_ID"); v != "" {
		return v
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "editd"
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BLOCKEDIT_REST_PORT", 8088)
}

// GetURL адрес NATS: config -> env -> локальный сервер
func (e *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(e.URL, "BLOCKEDIT_NATS_URL", "nats://127.0.0.1:4222")
}

func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(getIntWithEnvFallback(e.Retention, "BLOCKEDIT_EVENTS_RETENTION_HOURS", 24)) * time.Hour
}

// GetRedisURL адрес Redis: config -> env -> локальный сервер
func (c *CacheConfig) GetRedisURL() string {
	return getStringWithEnvFallback(c.RedisURL, "BLOCKEDIT_REDIS_URL", "localhost:6379")
}

func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(getIntWithEnvFallback(c.TTLMinutes, "BLOCKEDIT_CLIPBOARD_TTL_MINUTES", 30)) * time.Minute
}

// GetJWTSecret секрет подписи токенов: config -> env
func (a *AuthConfig) GetJWTSecret() string {
	return getStringWithEnvFallback(a.JWTSecret, "BLOCKEDIT_JWT_SECRET", "")
}

func (a *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(getIntWithEnvFallback(a.TokenTTLMinutes, "BLOCKEDIT_TOKEN_TTL_MINUTES", 24*60)) * time.Minute
}

func (s *SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(getIntWithEnvFallback(s.TickMillis, "BLOCKEDIT_TICK_MS", 50)) * time.Millisecond
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	return getIntWithEnvFallback(configPort, envVar, defaultPort)
}

// getIntWithEnvFallback положительное значение из конфига, иначе из env, иначе default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

func getStringWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultValue
}
