package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockedit/internal/auth"
	"github.com/annel0/blockedit/internal/config"
	"github.com/annel0/blockedit/internal/eventbus"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/middleware"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/storage"
	"github.com/annel0/blockedit/internal/world"
)

// RestServer представляет REST API редактора
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server

	world     world.World
	sessions  *session.Manager
	scheduler *operation.Scheduler
	issuer    *auth.TokenIssuer
	operators *auth.OperatorRegistry
	entities  world.EntityRegistry
	archive   storage.HistoryArchive
	bus       eventbus.EventBus
	webhooks  *WebhookForwarder

	edit         config.EditConfig
	inlineVolume int64
	snapshotDir  string
	seed         int64
	nodeID       string

	metrics *ServerMetrics
}

// Config содержит зависимости REST сервера
type Config struct {
	Port        string // адрес для запуска сервера, например ":8088"
	World       world.World
	Sessions    *session.Manager
	Scheduler   *operation.Scheduler
	Issuer      *auth.TokenIssuer
	Operators   *auth.OperatorRegistry
	Entities    world.EntityRegistry   // nil - стандартный регистр
	Archive     storage.HistoryArchive // nil - история недоступна
	Bus         eventbus.EventBus      // nil - без исходящих webhook'ов
	Registry    *prometheus.Registry   // реестр метрик для /metrics
	Edit        config.EditConfig
	Scheduling  config.SchedulerConfig
	SnapshotDir string
	Seed        int64
	NodeID      string
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == "" {
		cfg.Port = ":8088"
	}
	if cfg.Entities == nil {
		cfg.Entities = world.NewDefaultEntityRegistry()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())
	router.Use(otelgin.Middleware("blockedit_api"))

	promMw := middleware.NewPrometheusMiddleware("blockedit_api", cfg.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	rs := &RestServer{
		router:       router,
		world:        cfg.World,
		sessions:     cfg.Sessions,
		scheduler:    cfg.Scheduler,
		issuer:       cfg.Issuer,
		operators:    cfg.Operators,
		entities:     cfg.Entities,
		archive:      cfg.Archive,
		bus:          cfg.Bus,
		edit:         cfg.Edit,
		inlineVolume: int64(cfg.Scheduling.InlineVolume),
		snapshotDir:  cfg.SnapshotDir,
		seed:         cfg.Seed,
		nodeID:       cfg.NodeID,
		metrics:      NewServerMetrics(),
	}
	if cfg.Bus != nil {
		rs.webhooks = NewWebhookForwarder(cfg.NodeID)
	}
	rs.httpServer = &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler { return rs.router }

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.POST("/token", rs.handleToken)

	// Защищенные эндпоинты (требуют токен оператора)
	protected := api.Group("/")
	protected.Use(middleware.RequireOperator(rs.issuer))
	{
		protected.GET("/stats", rs.handleStats)
		protected.POST("/settings", rs.handleSettings)
		protected.GET("/count", rs.handleCount)
		protected.GET("/distr", rs.handleDistribution)
		protected.POST("/calc", rs.handleCalc)
		protected.GET("/biomes", rs.handleBiomeList)
		protected.GET("/biome", rs.handleBiomeInfo)

		sel := protected.Group("/selection")
		sel.GET("", rs.handleSelectionInfo)
		sel.POST("/pos1", rs.handlePos1)
		sel.POST("/pos2", rs.handlePos2)
		sel.POST("/chunk", rs.handleSelectChunk)
		sel.POST("/clear", rs.handleSelectionClear)
		sel.POST("/type", rs.handleSelectionType)
		sel.POST("/expand", rs.handleExpand)
		sel.POST("/contract", rs.handleContract)
		sel.POST("/shift", rs.handleShift)
		sel.POST("/outset", rs.handleOutset)
		sel.POST("/inset", rs.handleInset)

		editGroup := protected.Group("/edit")
		for name, build := range editCommands {
			editGroup.POST("/"+name, rs.editHandler(name, build))
		}

		cb := protected.Group("/clipboard")
		cb.POST("/copy", rs.handleCopy)
		cb.POST("/cut", rs.handleCut)
		cb.POST("/paste", rs.handlePaste)
		cb.POST("/rotate", rs.handleRotate)
		cb.POST("/flip", rs.handleFlip)
		cb.POST("/clear", rs.handleClipboardClear)

		hist := protected.Group("/history")
		hist.GET("", rs.handleHistoryList)
		hist.POST("/undo", rs.handleUndo)
		hist.POST("/redo", rs.handleRedo)
		hist.POST("/clear", rs.handleHistoryClear)

		ops := protected.Group("/operations")
		ops.GET("/:id", rs.handleGetOperation)
		ops.DELETE("/:id", rs.handleCancelOperation)
		ops.DELETE("", rs.handleCancelAll)

		protected.GET("/snapshots", rs.handleListSnapshots)
		protected.POST("/snapshots", rs.handleTakeSnapshot)

		if rs.webhooks != nil {
			hooks := protected.Group("/webhooks")
			hooks.GET("", rs.handleGetWebhooks)
			hooks.POST("", rs.handleCreateWebhook)
			hooks.DELETE("/:id", rs.handleDeleteWebhook)
		}
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: data})
}

// TokenRequest запрос токена оператора
type TokenRequest struct {
	Operator string `json:"operator" binding:"required"`
	Key      string `json:"key" binding:"required"`
}

// TokenResponse выданный токен
type TokenResponse struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleToken обменивает ключ оператора на JWT
func (rs *RestServer) handleToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	operator, err := rs.operators.Authenticate(req.Operator, req.Key)
	if err != nil {
		logging.GetAPILogger().Warn("Неудачный вход оператора %q с %s", req.Operator, c.ClientIP())
		renderError(c, err, nil)
		return
	}
	token, exp, err := rs.issuer.GenerateOperatorToken(operator)
	if err != nil {
		renderError(c, fmt.Errorf("ошибка выдачи токена: %w", err), nil)
		return
	}
	respond(c, TokenResponse{Token: token, Operator: operator, ExpiresAt: exp})
}

// handleStats возвращает состояние процесса и редактора
func (rs *RestServer) handleStats(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, err := rs.metrics.GetCPUUsage()
	if err != nil {
		cpuPercent = -1
	}

	stats := gin.H{
		"node":         rs.nodeID,
		"uptime":       rs.metrics.GetUptime(),
		"memory_mb":    memoryMB,
		"cpu_percent":  cpuPercent,
		"memory":       rs.metrics.GetDetailedMemoryStats(),
		"sessions":     rs.sessions.Len(),
		"operators":    rs.sessions.Operators(),
		"queued_jobs":  rs.scheduler.Pending(),
		"slice_budget": rs.scheduler.SliceBudget(),
		"world":        rs.world.Name(),
	}
	if rs.bus != nil {
		stats["eventbus"] = rs.bus.Metrics()
	}
	respond(c, stats)
}

// handleHealth проверка живости
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// session возвращает сессию оператора запроса
func (rs *RestServer) session(c *gin.Context) (*session.LocalSession, bool) {
	operator := c.GetString(middleware.OperatorKey)
	sess, err := rs.sessions.GetOrCreate(operator)
	if err != nil {
		renderError(c, err, nil)
		return nil, false
	}
	sess.Touch()
	return sess, true
}

// Start запускает REST сервер и подписывает webhook'и на шину событий.
// Блокирует до остановки сервера.
func (rs *RestServer) Start(ctx context.Context) error {
	if rs.webhooks != nil {
		if err := rs.webhooks.Attach(ctx, rs.bus); err != nil {
			return err
		}
	}
	logging.GetAPILogger().Info("🌐 REST API запущен на %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка REST сервера: %w", err)
	}
	return nil
}

// Stop останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.webhooks != nil {
		rs.webhooks.Close()
	}
	if err := rs.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка остановки REST сервера: %w", err)
	}
	logging.GetAPILogger().Info("🛑 REST API остановлен")
	return nil
}
