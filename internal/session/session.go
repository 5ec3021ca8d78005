// Package session хранит состояние оператора между командами: выделения
// по мирам, журнал отмены, буфер обмена и настройки правки.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/blockedit/internal/clipboard"
	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/eventbus"
	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/metrics"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/selector"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

// Limits ограничения сессий оператора
type Limits struct {
	DefaultChangeLimit int             // -1 без ограничения
	MaxChangeLimit     int             // -1 без ограничения
	JournalDepth       int             // <= 0 без ограничения
	Selection          selector.Limits // лимиты вершин выделений
}

// DefaultLimits ограничения по умолчанию
func DefaultLimits() Limits {
	return Limits{DefaultChangeLimit: -1, MaxChangeLimit: -1, JournalDepth: 15}
}

// Archive аудит зафиксированных транзакций
type Archive interface {
	Record(ctx context.Context, rec history.Record) error
}

// JournalStore сохраняет журналы операторов между сессиями
type JournalStore interface {
	SaveJournal(operator string, s history.State) error
	// LoadJournal возвращает ok = false, если журнала нет
	LoadJournal(operator string) (s history.State, ok bool, err error)
}

// Services внешние зависимости сессий. Любое поле может быть nil.
type Services struct {
	NodeID     string
	Bus        eventbus.EventBus
	Metrics    *metrics.Metrics
	Clipboards clipboard.Store
	Archive    Archive
	Journals   JournalStore
	Limits     Limits
}

// ErrLimitTooHigh запрошенный лимит выше разрешённого
type ErrLimitTooHigh struct {
	Requested, Max int
}

func (e *ErrLimitTooHigh) Error() string {
	return fmt.Sprintf("лимит изменений %d превышает максимум %d", e.Requested, e.Max)
}

// LocalSession состояние одного оператора
type LocalSession struct {
	mu       sync.Mutex
	operator string
	svc      *Services

	selectors map[string]selector.Selector // по имени мира
	journal   *history.Journal
	clipboard *clipboard.Clipboard

	mask        mask.Mask
	limit       int
	fast        bool
	bag         edit.BlockBag
	placeAtPos1 bool
	lastActive  time.Time
}

func newLocalSession(operator string, svc *Services, journal *history.Journal) *LocalSession {
	return &LocalSession{
		operator:    operator,
		svc:         svc,
		selectors:   make(map[string]selector.Selector),
		journal:     journal,
		limit:       svc.Limits.DefaultChangeLimit,
		placeAtPos1: true,
		lastActive:  time.Now(),
	}
}

func (s *LocalSession) Operator() string { return s.operator }

// Journal журнал отмены оператора
func (s *LocalSession) Journal() *history.Journal { return s.journal }

// Touch отмечает активность оператора
func (s *LocalSession) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *LocalSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *LocalSession) publish(ctx context.Context, eventType string, payload any) {
	if s.svc.Bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventType, s.svc.NodeID, payload)
	if err == nil {
		err = s.svc.Bus.Publish(ctx, ev)
	}
	if err != nil {
		logging.GetSessionLogger().Warn("Не удалось опубликовать %s для %s: %v", eventType, s.operator, err)
	}
}

// ---------------- Настройки ----------------

func (s *LocalSession) Mask() mask.Mask { s.mu.Lock(); defer s.mu.Unlock(); return s.mask }

// SetMask задаёт глобальную маску. nil снимает маску.
func (s *LocalSession) SetMask(m mask.Mask) { s.mu.Lock(); s.mask = m; s.mu.Unlock() }

func (s *LocalSession) BlockChangeLimit() int { s.mu.Lock(); defer s.mu.Unlock(); return s.limit }

// SetBlockChangeLimit задаёт лимит изменений. Отрицательное значение снимает лимит,
// если максимум не задан.
func (s *LocalSession) SetBlockChangeLimit(n int) error {
	if n < 0 {
		n = edit.NoLimit
	}
	maxLimit := s.svc.Limits.MaxChangeLimit
	if maxLimit >= 0 && (n == edit.NoLimit || n > maxLimit) {
		return &ErrLimitTooHigh{Requested: n, Max: maxLimit}
	}
	s.mu.Lock()
	s.limit = n
	s.mu.Unlock()
	return nil
}

func (s *LocalSession) FastMode() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.fast }

func (s *LocalSession) SetFastMode(fast bool) { s.mu.Lock(); s.fast = fast; s.mu.Unlock() }

// SetBlockBag задаёт мешок блоков для следующих правок. nil - бесконечный запас.
func (s *LocalSession) SetBlockBag(b edit.BlockBag) { s.mu.Lock(); s.bag = b; s.mu.Unlock() }

// TogglePlacement переключает точку вставки между pos1 и центром выделения
func (s *LocalSession) TogglePlacement() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeAtPos1 = !s.placeAtPos1
	return s.placeAtPos1
}

// PlaceAtPos1 true, если буфер привязывается к pos1, а не к центру выделения
func (s *LocalSession) PlaceAtPos1() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.placeAtPos1 }

func (s *LocalSession) SetPlaceAtPos1(v bool) { s.mu.Lock(); s.placeAtPos1 = v; s.mu.Unlock() }

// ---------------- Правка и история ----------------

// CreateEditSession создаёт сессию правки с настройками оператора
func (s *LocalSession) CreateEditSession(w world.World, label string) *edit.EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return edit.New(w, s.operator,
		edit.WithMask(s.mask),
		edit.WithLimit(s.limit),
		edit.WithFastMode(s.fast),
		edit.WithBlockBag(s.bag),
		edit.WithMetrics(s.svc.Metrics),
		edit.WithLabel(label),
	)
}

// Remember применяет очередь сессии и фиксирует её транзакцию в журнале.
// Транзакция фиксируется и при ошибке Flush: применённые записи должны быть отменяемы.
func (s *LocalSession) Remember(ctx context.Context, es *edit.EditSession) (bool, error) {
	flushErr := es.Flush()
	tx := es.Transaction()
	if !s.journal.Commit(tx) {
		return false, flushErr
	}
	s.svc.Metrics.TransactionCommitted(tx.Partial)

	worldName := es.World().Name()
	s.publish(ctx, eventbus.TypeTransactionCommitted, eventbus.TransactionCommitted{
		ID:        tx.ID.String(),
		Operator:  s.operator,
		World:     worldName,
		Label:     tx.Label,
		Changes:   tx.Len(),
		Partial:   tx.Partial,
		CreatedAt: tx.CreatedAt,
	})
	if s.svc.Archive != nil {
		if err := s.svc.Archive.Record(ctx, history.NewRecord(tx, worldName)); err != nil {
			logging.GetSessionLogger().Warn("Не удалось записать транзакцию %s в архив: %v", tx.ID, err)
		}
	}
	logging.GetSessionLogger().Debug("Транзакция %s (%s) оператора %s: %d изменений", tx.ID, tx.Label, s.operator, tx.Len())
	return true, flushErr
}

// Undo отменяет до times транзакций. Возвращает число отменённых.
// Пустой журнал не является ошибкой, если отменена хотя бы одна транзакция.
func (s *LocalSession) Undo(ctx context.Context, times int, w world.World) (int, error) {
	return s.replay(ctx, times, w, true)
}

// Redo повторяет до times транзакций
func (s *LocalSession) Redo(ctx context.Context, times int, w world.World) (int, error) {
	return s.replay(ctx, times, w, false)
}

func (s *LocalSession) replay(ctx context.Context, times int, w world.World, undo bool) (int, error) {
	times = max(times, 1)
	es := s.CreateEditSession(w, "replay")
	eventType := eventbus.TypeHistoryRedo
	step := es.Redo
	if undo {
		eventType, step = eventbus.TypeHistoryUndo, es.Undo
	}

	done := 0
	for done < times {
		tx, err := step(s.journal)
		if errors.Is(err, history.ErrNothingToUndo) || errors.Is(err, history.ErrNothingToRedo) {
			if done == 0 {
				return 0, err
			}
			break
		}
		if err != nil {
			return done, err
		}
		done++
		s.publish(ctx, eventType, eventbus.HistoryReplayed{
			Operator:      s.operator,
			World:         w.Name(),
			TransactionID: tx.ID.String(),
			Changes:       tx.Len(),
		})
	}
	return done, nil
}

// ClearHistory очищает журнал
func (s *LocalSession) ClearHistory(ctx context.Context) {
	s.journal.Clear()
	s.publish(ctx, eventbus.TypeHistoryCleared, eventbus.HistoryReplayed{Operator: s.operator})
}

// ---------------- Буфер обмена ----------------

// Clipboard возвращает буфер оператора. Если локальной копии нет,
// буфер загружается из общего хранилища.
func (s *LocalSession) Clipboard(ctx context.Context) (*clipboard.Clipboard, error) {
	s.mu.Lock()
	cb := s.clipboard
	s.mu.Unlock()
	if cb != nil {
		return cb, nil
	}
	if s.svc.Clipboards == nil {
		return nil, clipboard.ErrEmpty
	}
	cb, err := s.svc.Clipboards.Load(ctx, s.operator)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.clipboard = cb
	s.mu.Unlock()
	return cb, nil
}

// SetClipboard заменяет буфер и сохраняет его в общее хранилище
func (s *LocalSession) SetClipboard(ctx context.Context, cb *clipboard.Clipboard) error {
	s.mu.Lock()
	s.clipboard = cb
	s.mu.Unlock()
	if err := s.SaveClipboard(ctx); err != nil {
		return err
	}
	s.publish(ctx, eventbus.TypeClipboardCopied, eventbus.ClipboardChanged{Operator: s.operator, Dimensions: cb.Dimensions()})
	return nil
}

// SaveClipboard переносит текущий буфер (например, после поворота) в хранилище
func (s *LocalSession) SaveClipboard(ctx context.Context) error {
	s.mu.Lock()
	cb := s.clipboard
	s.mu.Unlock()
	if cb == nil || s.svc.Clipboards == nil {
		return nil
	}
	return s.svc.Clipboards.Save(ctx, s.operator, cb)
}

// ClearClipboard очищает буфер локально и в хранилище
func (s *LocalSession) ClearClipboard(ctx context.Context) error {
	s.DropClipboard()
	if s.svc.Clipboards != nil {
		if err := s.svc.Clipboards.Delete(ctx, s.operator); err != nil {
			return err
		}
	}
	s.publish(ctx, eventbus.TypeClipboardCleared, eventbus.ClipboardChanged{Operator: s.operator})
	return nil
}

// DropClipboard забывает локальную копию буфера без обращения к хранилищу
func (s *LocalSession) DropClipboard() {
	s.mu.Lock()
	s.clipboard = nil
	s.mu.Unlock()
}

// ---------------- Выделение ----------------

// Selector возвращает выделение оператора в мире, создавая кубоид при первом обращении
func (s *LocalSession) Selector(worldName string) selector.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectorLocked(worldName)
}

func (s *LocalSession) selectorLocked(worldName string) selector.Selector {
	sel, ok := s.selectors[worldName]
	if !ok {
		sel = selector.New(selector.KindCuboid)
		sel.SetObserver(s.observer(worldName))
		s.selectors[worldName] = sel
	}
	return sel
}

func (s *LocalSession) observer(worldName string) selector.Observer {
	return func(sel selector.Selector, ev selector.EventType) {
		payload := eventbus.SelectionChanged{
			Operator: s.operator,
			World:    worldName,
			Selector: sel.Kind().String(),
			Event:    ev.String(),
			Defined:  sel.IsDefined(),
		}
		if r, err := sel.Region(); err == nil {
			lo, hi := r.MinimumPoint(), r.MaximumPoint()
			payload.Min, payload.Max = &lo, &hi
		}
		s.publish(context.Background(), eventbus.TypeSelectionChanged, payload)
	}
}

// SetSelectorKind меняет тип выделения, перенося границы старого
func (s *LocalSession) SetSelectorKind(worldName string, kind selector.Kind) selector.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := selector.Convert(s.selectorLocked(worldName), kind, s.svc.Limits.Selection)
	sel.SetObserver(s.observer(worldName))
	s.selectors[worldName] = sel
	return sel
}

// SelectPrimary задаёт первую точку. false - точка уже выбрана.
func (s *LocalSession) SelectPrimary(worldName string, p vec.Vec3) bool {
	return s.Selector(worldName).SelectPrimary(p, s.svc.Limits.Selection)
}

// SelectSecondary задаёт следующую точку. false - точка повторяется или превышен лимит вершин.
func (s *LocalSession) SelectSecondary(worldName string, p vec.Vec3) bool {
	return s.Selector(worldName).SelectSecondary(p, s.svc.Limits.Selection)
}

func (s *LocalSession) ClearSelection(worldName string) {
	s.Selector(worldName).Clear()
}

// Selection возвращает выделенную область
func (s *LocalSession) Selection(worldName string) (region.Region, error) {
	return s.Selector(worldName).Region()
}

// SelectChunk выделяет секцию мира по горизонтали на всю высоту мира
func (s *LocalSession) SelectChunk(w world.World, p vec.Vec3) (region.Region, error) {
	c := p.ToVec2().ToChunkCoords()
	lo := vec.New(c.X*world.ChunkSize, w.MinimumPoint().Y, c.Z*world.ChunkSize)
	hi := vec.New(lo.X+world.ChunkSize-1, w.MaximumPoint().Y, lo.Z+world.ChunkSize-1)

	sel := s.SetSelectorKind(w.Name(), selector.KindCuboid)
	sel.SelectPrimary(lo, s.svc.Limits.Selection)
	sel.SelectSecondary(hi, s.svc.Limits.Selection)
	return sel.Region()
}

// adjust меняет область выделения и синхронизирует с ней точки выделения
func (s *LocalSession) adjust(worldName string, fn func(r region.Region) error) (region.Region, error) {
	sel := s.Selector(worldName)
	r, err := sel.Region()
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	sel.LearnChanges()
	return r, nil
}

// ExpandSelection расширяет выделение на векторы changes
func (s *LocalSession) ExpandSelection(worldName string, changes ...vec.Vec3) (region.Region, error) {
	return s.adjust(worldName, func(r region.Region) error { return r.Expand(changes...) })
}

// ExpandVert растягивает выделение на всю высоту мира
func (s *LocalSession) ExpandVert(w world.World) (region.Region, error) {
	return s.adjust(w.Name(), func(r region.Region) error {
		return r.Expand(
			vec.New(0, w.MaximumPoint().Y-r.MaximumPoint().Y, 0),
			vec.New(0, w.MinimumPoint().Y-r.MinimumPoint().Y, 0),
		)
	})
}

// ContractSelection сжимает выделение
func (s *LocalSession) ContractSelection(worldName string, changes ...vec.Vec3) (region.Region, error) {
	return s.adjust(worldName, func(r region.Region) error { return r.Contract(changes...) })
}

// ShiftSelection сдвигает выделение
func (s *LocalSession) ShiftSelection(worldName string, change vec.Vec3) (region.Region, error) {
	return s.adjust(worldName, func(r region.Region) error { return r.Shift(change) })
}

// outsetVectors векторы во все стороны; horizontal/vertical ограничивают оси
func outsetVectors(amount int, horizontal, vertical bool) []vec.Vec3 {
	var out []vec.Vec3
	if !vertical {
		out = append(out, vec.New(amount, 0, 0), vec.New(-amount, 0, 0), vec.New(0, 0, amount), vec.New(0, 0, -amount))
	}
	if !horizontal {
		out = append(out, vec.New(0, amount, 0), vec.New(0, -amount, 0))
	}
	return out
}

// OutsetSelection расширяет выделение во все стороны
func (s *LocalSession) OutsetSelection(worldName string, amount int, horizontal, vertical bool) (region.Region, error) {
	return s.ExpandSelection(worldName, outsetVectors(amount, horizontal, vertical)...)
}

// InsetSelection сжимает выделение со всех сторон
func (s *LocalSession) InsetSelection(worldName string, amount int, horizontal, vertical bool) (region.Region, error) {
	return s.ContractSelection(worldName, outsetVectors(amount, horizontal, vertical)...)
}

// PlacementPosition точка привязки буфера обмена: pos1 или центр выделения
func (s *LocalSession) PlacementPosition(worldName string) (vec.Vec3, error) {
	s.mu.Lock()
	atPos1 := s.placeAtPos1
	sel := s.selectorLocked(worldName)
	s.mu.Unlock()

	if atPos1 {
		if p, ok := sel.PrimaryPosition(); ok {
			return p, nil
		}
		return vec.Zero, &selector.IncompleteRegionError{Kind: sel.Kind()}
	}
	r, err := sel.Region()
	if err != nil {
		return vec.Zero, err
	}
	return r.Center().Floor(), nil
}

// SelectionInfo сводка выделения для команды size
type SelectionInfo struct {
	Kind       string         `json:"kind"`
	State      string         `json:"state"`
	Min        vec.Vec3       `json:"min"`
	Max        vec.Vec3       `json:"max"`
	Dimensions vec.Vec3       `json:"dimensions"`
	Volume     int64          `json:"volume"`
	Details    map[string]any `json:"details,omitempty"`
}

// Info описывает выделение оператора
func (s *LocalSession) Info(worldName string) (SelectionInfo, error) {
	sel := s.Selector(worldName)
	info := SelectionInfo{Kind: sel.Kind().String(), State: sel.State().String(), Details: sel.Describe()}
	r, err := sel.Region()
	if err != nil {
		return info, err
	}
	info.Min, info.Max = r.MinimumPoint(), r.MaximumPoint()
	info.Dimensions = vec.New(r.Width(), r.Height(), r.Length())
	info.Volume = r.Area()
	return info, nil
}
