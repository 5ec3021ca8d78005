package api

import (
	"bytes"
	"cmp"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockedit/internal/eventbus"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/middleware"
)

// Webhook исходящий webhook, получающий события редактора
type Webhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Secret       string     `json:"-"`
	Events       []string   `json:"events"` // типы событий, "*" - все
	Active       bool       `json:"active"`
	Timeout      int        `json:"timeout"` // таймаут в секундах
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

// WebhookRequest запрос на регистрацию webhook'а
type WebhookRequest struct {
	Name       string   `json:"name" binding:"required"`
	URL        string   `json:"url" binding:"required,url"`
	Secret     string   `json:"secret"`
	Events     []string `json:"events" binding:"required"`
	Timeout    int      `json:"timeout"`
	RetryCount int      `json:"retry_count"`
}

// WebhookEvent тело запроса к webhook'у
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Timestamp int64           `json:"timestamp"`
	ServerID  string          `json:"server_id"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// WebhookForwarder пересылает события шины во внешние webhook'и
type WebhookForwarder struct {
	webhooks   map[uint64]*Webhook
	eventQueue chan WebhookEvent
	mu         sync.RWMutex
	nextID     uint64
	httpClient *http.Client
	serverID   string

	sub       eventbus.Subscription
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewWebhookForwarder создает пересылку событий и запускает её воркер
func NewWebhookForwarder(serverID string) *WebhookForwarder {
	f := &WebhookForwarder{
		webhooks:   make(map[uint64]*Webhook),
		eventQueue: make(chan WebhookEvent, 1000),
		nextID:     1,
		serverID:   serverID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		done:       make(chan struct{}),
	}
	go f.eventWorker()
	return f
}

// Attach подписывает пересылку на все события шины
func (f *WebhookForwarder) Attach(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		f.Enqueue(WebhookEvent{
			ID:        ev.ID,
			EventType: ev.EventType,
			Timestamp: ev.Timestamp.Unix(),
			ServerID:  f.serverID,
			Source:    ev.Source,
			Data:      json.RawMessage(ev.Payload),
		})
	})
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sub = sub
	f.mu.Unlock()
	logging.GetAPILogger().Info("🔗 Пересылка событий в webhook'и активирована")
	return nil
}

// Close отписывается от шины и дожидается отправки очереди
func (f *WebhookForwarder) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		if f.sub != nil {
			f.sub.Unsubscribe()
		}
		f.closed = true
		close(f.eventQueue)
		f.mu.Unlock()
		<-f.done
	})
}

// Add регистрирует webhook
func (f *WebhookForwarder) Add(req WebhookRequest) *Webhook {
	f.mu.Lock()
	defer f.mu.Unlock()

	wh := &Webhook{
		ID:         f.nextID,
		Name:       req.Name,
		URL:        req.URL,
		Secret:     req.Secret,
		Events:     req.Events,
		Active:     true,
		Timeout:    req.Timeout,
		RetryCount: req.RetryCount,
		CreatedAt:  time.Now(),
	}
	f.nextID++
	if wh.Timeout <= 0 {
		wh.Timeout = 30
	}
	if wh.RetryCount <= 0 {
		wh.RetryCount = 3
	}
	f.webhooks[wh.ID] = wh
	return wh
}

// List возвращает копии зарегистрированных webhook'ов по возрастанию ID
func (f *WebhookForwarder) List() []Webhook {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Webhook, 0, len(f.webhooks))
	for _, wh := range f.webhooks {
		out = append(out, *wh)
	}
	slices.SortFunc(out, func(a, b Webhook) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Delete удаляет webhook
func (f *WebhookForwarder) Delete(id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.webhooks[id]; !exists {
		return false
	}
	delete(f.webhooks, id)
	return true
}

// Enqueue ставит событие в очередь отправки. Переполненная очередь теряет событие.
func (f *WebhookForwarder) Enqueue(ev WebhookEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.eventQueue <- ev:
	default:
		logging.GetAPILogger().Warn("⚠️ Очередь webhook'ов переполнена, событие %s пропущено", ev.EventType)
	}
}

func (f *WebhookForwarder) eventWorker() {
	defer close(f.done)
	for ev := range f.eventQueue {
		f.processEvent(ev)
	}
}

func (f *WebhookForwarder) processEvent(ev WebhookEvent) {
	f.mu.RLock()
	var targets []*Webhook
	for _, wh := range f.webhooks {
		if wh.Active && subscribed(wh, ev.EventType) {
			targets = append(targets, wh)
		}
	}
	f.mu.RUnlock()

	var wg sync.WaitGroup
	for _, wh := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.send(wh, ev)
		}()
	}
	wg.Wait()
}

func subscribed(wh *Webhook, eventType string) bool {
	return slices.Contains(wh.Events, "*") || slices.Contains(wh.Events, eventType)
}

// send отправляет событие одному webhook'у с повторами
func (f *WebhookForwarder) send(wh *Webhook, ev WebhookEvent) {
	log := logging.GetAPILogger()
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("❌ Ошибка маршалинга события для webhook %s: %v", wh.Name, err)
		return
	}

	success := false
	for attempt := 0; attempt <= wh.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
		status, err := f.post(wh, ev, body)
		if err != nil {
			log.Warn("⚠️ Попытка %d/%d для webhook %s: %v", attempt+1, wh.RetryCount+1, wh.Name, err)
			continue
		}
		if status >= 200 && status < 300 {
			success = true
			log.Debug("Событие %s отправлено в webhook %s", ev.EventType, wh.Name)
			break
		}
		log.Warn("⚠️ Webhook %s вернул статус %d на попытке %d", wh.Name, status, attempt+1)
	}

	f.mu.Lock()
	now := time.Now()
	wh.LastUsed = &now
	if !success {
		wh.FailureCount++
	}
	f.mu.Unlock()
}

func (f *WebhookForwarder) post(wh *Webhook, ev WebhookEvent, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(wh.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "blockedit/1.0")
	req.Header.Set("X-Event-Type", ev.EventType)
	req.Header.Set("X-Server-ID", ev.ServerID)
	if wh.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Signature(body, wh.Secret))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Signature HMAC-SHA256 подпись тела запроса в формате "sha256=<hex>"
func Signature(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// EventTypes типы событий, на которые можно подписаться
func EventTypes() []string {
	return []string{
		eventbus.TypeSelectionChanged,
		eventbus.TypeTransactionCommitted,
		eventbus.TypeHistoryUndo,
		eventbus.TypeHistoryRedo,
		eventbus.TypeHistoryCleared,
		eventbus.TypeClipboardCopied,
		eventbus.TypeClipboardCleared,
		eventbus.TypeOperationFinished,
		eventbus.TypeSessionExpired,
	}
}

// === Обработчики webhook'ов ===

func (rs *RestServer) handleGetWebhooks(c *gin.Context) {
	hooks := rs.webhooks.List()
	respond(c, gin.H{"webhooks": hooks, "total": len(hooks), "event_types": EventTypes()})
}

func (rs *RestServer) handleCreateWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса: "+err.Error()), nil)
		return
	}
	for _, e := range req.Events {
		if e != "*" && !slices.Contains(EventTypes(), e) {
			renderError(c, badRequest("неизвестный тип события: "+e), nil)
			return
		}
	}
	wh := rs.webhooks.Add(req)
	logging.GetAPILogger().Info("🔗 Webhook %s (%s) зарегистрирован оператором %s", wh.Name, wh.URL, c.GetString(middleware.OperatorKey))
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Data: wh})
}

func (rs *RestServer) handleDeleteWebhook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		renderError(c, badRequest("неверный ID webhook'а"), nil)
		return
	}
	if !rs.webhooks.Delete(id) {
		c.AbortWithStatusJSON(http.StatusNotFound, GenericResponse{Success: false, Message: "webhook не найден"})
		return
	}
	respond(c, gin.H{"deleted": id})
}
