package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/blockedit/internal/api"
	"github.com/annel0/blockedit/internal/auth"
	"github.com/annel0/blockedit/internal/cache"
	"github.com/annel0/blockedit/internal/clipboard"
	"github.com/annel0/blockedit/internal/config"
	"github.com/annel0/blockedit/internal/eventbus"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/metrics"
	"github.com/annel0/blockedit/internal/observability"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/storage"
	"github.com/annel0/blockedit/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или BLOCKEDIT_CONFIG)")
	flag.Parse()

	if err := logging.InitDefaultLogger("editd"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	nodeID := cfg.Server.GetNodeID()
	logging.Info("🧱 Запуск редактора блоков blockedit (узел %s)", nodeID)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, nodeID, cfg.Telemetry.Enabled)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// === Хранилище мира ===
	ws, err := storage.NewWorldStorage(cfg.Storage.DataPath)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}
	w, err := storage.NewBadgerWorld(cfg.Storage.World, ws,
		world.WithHeight(cfg.Storage.MinY, cfg.Storage.MaxY),
		world.WithGenerator(world.NewGenerator(cfg.Storage.Seed)),
	)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия мира: %v", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// === Шина событий ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start(10 * time.Second)
	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("Журналирование событий недоступно: %v", err)
	}

	// === Буферы обмена ===
	var invalidator cache.Invalidator
	if cfg.Cache.InvalidationURL != "" {
		inv, err := cache.NewNATSInvalidator(&cache.InvalidatorConfig{
			NATSURL: cfg.Cache.InvalidationURL,
			Subject: cfg.Cache.InvalidationSubject,
		}, nodeID)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		invalidator = inv
	}
	repo, err := openCache(cfg.Cache, invalidator)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// === Архив транзакций ===
	archive, err := openArchive(cfg.Archive)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	svc := session.Services{
		NodeID:     nodeID,
		Bus:        bus,
		Metrics:    m,
		Clipboards: clipboard.NewCacheStore(repo, cfg.Cache.TTL()),
		Archive:    archive,
		Limits:     cfg.SessionLimits(),
	}
	if cfg.History.Persist {
		svc.Journals = ws
	}
	sessions := session.NewManager(svc)
	if invalidator != nil {
		if err := invalidator.SubscribeInvalidations(ctx, sessions.HandleClipboardInvalidation); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	// === Планировщик и сервисы ===
	scheduler := operation.NewScheduler(cfg.Scheduler.SliceBudget, m)
	scheduler.SetLogger(logging.GetSchedulerLogger())
	go scheduler.Start(ctx, cfg.Scheduler.TickInterval())

	idle := cfg.Edit.SessionIdle()
	go sessions.RunExpiry(ctx, time.Minute, idle)
	go autosave(ctx, w, time.Duration(cfg.Storage.AutosaveSeconds)*time.Second)

	issuer, err := auth.NewTokenIssuer(cfg.Auth.GetJWTSecret(), cfg.Auth.TokenTTL())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	operators, err := auth.NewOperatorRegistry(cfg.Auth.Operators)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(operators.Operators()) == 0 {
		logging.Warn("⚠️ Не задано ни одного оператора, получить токен невозможно")
	}

	rest := api.NewRestServer(api.Config{
		Port:        fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		World:       w,
		Sessions:    sessions,
		Scheduler:   scheduler,
		Issuer:      issuer,
		Operators:   operators,
		Bus:         bus,
		Registry:    reg,
		Edit:        cfg.Edit,
		Scheduling:  cfg.Scheduler,
		SnapshotDir: filepath.Clean(cfg.Storage.SnapshotDir),
		Seed:        cfg.Storage.Seed,
		Archive:     archive,
		NodeID:      nodeID,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- rest.Start(ctx) }()

	logging.Info("✅ Редактор готов: мир %s, REST :%d, шина %s, кеш %s, архив %s",
		w.Name(), cfg.Server.GetRESTPort(), cfg.EventBus.Driver, cfg.Cache.Driver, cfg.Archive.Driver)

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ %v", err)
		}
		cancel()
	}

	// === GRACEFUL SHUTDOWN ===
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()

	if err := rest.Stop(stopCtx); err != nil {
		logging.Error("❌ %v", err)
	}
	if err := sessions.SaveAll(); err != nil {
		logging.Error("❌ Ошибка сохранения журналов: %v", err)
	}
	if n, err := w.Save(); err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	} else {
		logging.Info("💾 Мир сохранён: %d секций", n)
	}
	busMetrics.Stop()
	closeAll(
		namedCloser{"шина событий", bus.Close},
		namedCloser{"кеш", repo.Close},
		namedCloser{"архив", func() error {
			if archive == nil {
				return nil
			}
			return archive.Close()
		}},
		namedCloser{"инвалидация", func() error {
			if invalidator == nil {
				return nil
			}
			return invalidator.Close()
		}},
		namedCloser{"хранилище", ws.Close},
	)
	if err := shutdownTelemetry(stopCtx); err != nil {
		logging.Warn("Ошибка остановки телеметрии: %v", err)
	}
	logging.Info("👋 Редактор остановлен")
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	switch cfg.Driver {
	case "", "memory":
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	case "jetstream":
		return eventbus.NewJetStreamBus(cfg.GetURL(), cfg.Stream, cfg.RetentionDuration())
	default:
		return nil, fmt.Errorf("неизвестный драйвер шины событий %q", cfg.Driver)
	}
}

func openCache(cfg config.CacheConfig, inv cache.Invalidator) (cache.Repo, error) {
	switch cfg.Driver {
	case "", "memory":
		return cache.NewMemoryCache(inv), nil
	case "redis":
		return cache.NewRedisCache(&cache.Config{
			RedisURL:      cfg.GetRedisURL(),
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			DefaultTTL:    cfg.TTL(),
		}, inv)
	default:
		return nil, fmt.Errorf("неизвестный драйвер кеша %q", cfg.Driver)
	}
}

// openArchive возвращает nil, если архив отключён
func openArchive(cfg config.ArchiveConfig) (storage.HistoryArchive, error) {
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "", "memory":
		return storage.NewMemoryArchive(), nil
	case "maria":
		return storage.NewMariaHistoryArchive(cfg.DSN)
	case "mongo":
		return storage.NewMongoHistoryArchive(storage.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		return nil, fmt.Errorf("неизвестный драйвер архива %q", cfg.Driver)
	}
}

// autosave периодически сбрасывает изменённые секции на диск
func autosave(ctx context.Context, w *storage.BadgerWorld, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Save(); err != nil {
				logging.GetStorageLogger().Error("❌ Ошибка автосохранения: %v", err)
			}
		}
	}
}

type namedCloser struct {
	name  string
	close func() error
}

func closeAll(closers ...namedCloser) {
	for _, c := range closers {
		if err := c.close(); err != nil {
			logging.Warn("Ошибка закрытия (%s): %v", c.name, err)
		}
	}
}
