package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/annel0/blockedit/internal/clipboard"
	"github.com/annel0/blockedit/internal/eventbus"
	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/logging"
)

// Manager владеет сессиями всех операторов узла
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*LocalSession
	svc      *Services
}

// NewManager создаёт менеджер сессий
func NewManager(svc Services) *Manager {
	return &Manager{
		sessions: make(map[string]*LocalSession),
		svc:      &svc,
	}
}

// Get возвращает существующую сессию оператора
func (m *Manager) Get(operator string) (*LocalSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[operator]
	return s, ok
}

// GetOrCreate возвращает сессию, при создании восстанавливая сохранённый журнал
func (m *Manager) GetOrCreate(operator string) (*LocalSession, error) {
	if s, ok := m.Get(operator); ok {
		s.Touch()
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[operator]; ok {
		return s, nil
	}

	journal := history.NewJournal(m.svc.Limits.JournalDepth)
	if m.svc.Journals != nil {
		state, ok, err := m.svc.Journals.LoadJournal(operator)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки журнала %s: %w", operator, err)
		}
		if ok {
			state.MaxDepth = m.svc.Limits.JournalDepth
			journal = history.NewJournalFromState(state)
		}
	}

	s := newLocalSession(operator, m.svc, journal)
	m.sessions[operator] = s
	logging.GetSessionLogger().Info("👤 Сессия оператора %s создана (журнал: %d)", operator, journal.Len())
	return s, nil
}

// Remove закрывает сессию, сохраняя журнал оператора
func (m *Manager) Remove(operator string) error {
	m.mu.Lock()
	s, ok := m.sessions[operator]
	delete(m.sessions, operator)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.persist(s)
}

func (m *Manager) persist(s *LocalSession) error {
	if m.svc.Journals == nil {
		return nil
	}
	if err := m.svc.Journals.SaveJournal(s.operator, s.journal.State()); err != nil {
		return fmt.Errorf("ошибка сохранения журнала %s: %w", s.operator, err)
	}
	return nil
}

// Operators возвращает отсортированный список активных операторов
func (m *Manager) Operators() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for op := range m.sessions {
		out = append(out, op)
	}
	slices.Sort(out)
	return out
}

// Len число активных сессий
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire закрывает сессии, неактивные дольше idle. Возвращает закрытых операторов.
func (m *Manager) Expire(ctx context.Context, idle time.Duration) []string {
	deadline := time.Now().Add(-idle)

	m.mu.Lock()
	var expired []*LocalSession
	for op, s := range m.sessions {
		if s.LastActive().Before(deadline) {
			expired = append(expired, s)
			delete(m.sessions, op)
		}
	}
	m.mu.Unlock()

	names := make([]string, 0, len(expired))
	for _, s := range expired {
		if err := m.persist(s); err != nil {
			logging.GetSessionLogger().Warn("%v", err)
		}
		s.publish(ctx, eventbus.TypeSessionExpired, eventbus.HistoryReplayed{Operator: s.operator})
		names = append(names, s.operator)
	}
	slices.Sort(names)
	if len(names) > 0 {
		logging.GetSessionLogger().Info("⌛ Закрыто неактивных сессий: %d", len(names))
	}
	return names
}

// RunExpiry периодически закрывает неактивные сессии до отмены ctx
func (m *Manager) RunExpiry(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Expire(ctx, idle)
		}
	}
}

// SaveAll сохраняет журналы всех сессий. Используется при остановке узла.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	sessions := make([]*LocalSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, s := range sessions {
		if err := m.persist(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HandleClipboardInvalidation сбрасывает локальную копию буфера, когда
// другой узел изменил буфер оператора. Подходит как cache.InvalidationHandler.
func (m *Manager) HandleClipboardInvalidation(key string) error {
	operator, ok := strings.CutPrefix(key, clipboard.Key(""))
	if !ok {
		return nil
	}
	if s, found := m.Get(operator); found {
		s.DropClipboard()
		logging.GetSessionLogger().Debug("Буфер обмена %s сброшен по инвалидации", operator)
	}
	return nil
}
