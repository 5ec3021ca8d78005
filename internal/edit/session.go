// Package edit содержит EditSession: путь записи поверх мира с маской,
// лимитом изменений, мешком блоков и журналированием, и все массовые правки.
package edit

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/metrics"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// NoLimit лимит изменений не задан
const NoLimit = -1

// pending запись в очереди. Прежнее значение читается при постановке в очередь.
type pending struct {
	pos       vec.Vec3
	prev, cur block.Value
}

// EditSession путь записи одной команды оператора:
// маска -> чтение прежнего значения -> лимит -> мешок -> запись в мир -> журнал.
//
// Сессия не потокобезопасна: ею пользуется одна команда одного оператора.
type EditSession struct {
	world     world.World
	tx        *history.Transaction
	mask      mask.Mask
	limit     int
	changes   int
	fast      bool
	bag       BlockBag
	shortages map[block.BlockID]int
	metrics   *metrics.Metrics
	seed      int64

	queueOn  bool
	queue    []pending
	deferred []pending // прикреплённые блоки ставятся после остальных
	queued   map[vec.Vec3]block.Value
	late     map[vec.Vec3]bool

	replaying bool
}

// Option настройка сессии
type Option func(*EditSession)

func WithMask(m mask.Mask) Option           { return func(es *EditSession) { es.mask = m } }
func WithLimit(n int) Option                { return func(es *EditSession) { es.limit = n } }
func WithFastMode(fast bool) Option         { return func(es *EditSession) { es.fast = fast } }
func WithBlockBag(b BlockBag) Option        { return func(es *EditSession) { es.bag = b } }
func WithMetrics(m *metrics.Metrics) Option { return func(es *EditSession) { es.metrics = m } }
func WithQueue() Option                     { return func(es *EditSession) { es.queueOn = true } }
func WithSeed(seed int64) Option            { return func(es *EditSession) { es.seed = seed } }
func WithLabel(label string) Option         { return func(es *EditSession) { es.tx.Label = label } }

// New создаёт сессию правки мира от имени оператора
func New(w world.World, operator string, opts ...Option) *EditSession {
	es := &EditSession{
		world:     w,
		tx:        history.NewTransaction(operator, ""),
		limit:     NoLimit,
		shortages: make(map[block.BlockID]int),
		queued:    make(map[vec.Vec3]block.Value),
		late:      make(map[vec.Vec3]bool),
		seed:      time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(es)
	}
	return es
}

func (es *EditSession) World() world.World { return es.world }

func (es *EditSession) MinimumPoint() vec.Vec3 { return es.world.MinimumPoint() }
func (es *EditSession) MaximumPoint() vec.Vec3 { return es.world.MaximumPoint() }

// Transaction активная транзакция
func (es *EditSession) Transaction() *history.Transaction { return es.tx }

// Operator владелец сессии
func (es *EditSession) Operator() string { return es.tx.Operator }

// SetLabel задаёт имя команды в транзакции
func (es *EditSession) SetLabel(label string) { es.tx.Label = label }

func (es *EditSession) Mask() mask.Mask       { return es.mask }
func (es *EditSession) SetMask(m mask.Mask)   { es.mask = m }
func (es *EditSession) BlockChangeLimit() int { return es.limit }

// SetBlockChangeLimit задаёт лимит; отрицательное значение снимает его
func (es *EditSession) SetBlockChangeLimit(n int) {
	if n < 0 {
		n = NoLimit
	}
	es.limit = n
}

func (es *EditSession) FastMode() bool         { return es.fast }
func (es *EditSession) SetFastMode(fast bool)  { es.fast = fast }
func (es *EditSession) BlockBag() BlockBag     { return es.bag }
func (es *EditSession) SetBlockBag(b BlockBag) { es.bag = b }

// BlockBagShortages сколько блоков каждого типа не хватило
func (es *EditSession) BlockBagShortages() map[block.BlockID]int {
	return maps.Clone(es.shortages)
}

// ChangeCount число изменений, включая стоящие в очереди
func (es *EditSession) ChangeCount() int { return es.changes }

// MarkPartial помечает транзакцию как прерванную
func (es *EditSession) MarkPartial() { es.tx.Partial = true }

// EnableQueue включает очередь записи
func (es *EditSession) EnableQueue() { es.queueOn = true }

// DisableQueue сбрасывает очередь и выключает её
func (es *EditSession) DisableQueue() error {
	err := es.Flush()
	es.queueOn = false
	return err
}

func (es *EditSession) IsQueueEnabled() bool { return es.queueOn }

// BlockAt читает значение с учётом очереди
func (es *EditSession) BlockAt(p vec.Vec3) (block.Value, error) {
	if v, ok := es.queued[p]; ok {
		return v, nil
	}
	v, err := es.world.BlockAt(p)
	if err != nil {
		return block.Air, &WorldAccessError{Pos: p, Op: "read", Err: err}
	}
	return v, nil
}

// SetBlock записывает значение через путь записи.
// Возвращает false, если запись отфильтрована маской, значение не меняется,
// координата вне мира по высоте или в мешке не хватило блока.
func (es *EditSession) SetBlock(p vec.Vec3, v block.Value) (bool, error) {
	if !es.replaying && es.mask != nil && !es.mask.Test(p) {
		return false, nil
	}
	if !world.ClampY(es.world, p) {
		return false, nil
	}
	prev, err := es.BlockAt(p)
	if err != nil {
		return false, err
	}
	if prev.Equals(v) {
		return false, nil
	}
	if !es.replaying {
		if es.limit >= 0 && es.changes >= es.limit {
			es.metrics.LimitHit()
			return false, &MaxChangedBlocksError{Limit: es.limit}
		}
		if es.bag != nil {
			if !v.IsAir() {
				if err := es.bag.FetchPlaced(v); err != nil {
					if errors.Is(err, ErrOutOfBlocks) {
						es.shortages[v.ID]++
						return false, nil
					}
					return false, err
				}
			}
			if !prev.IsAir() {
				if err := es.bag.StoreDropped(prev); err != nil {
					return false, err
				}
			}
		}
	}

	w := pending{pos: p, prev: prev, cur: v.Clone()}
	es.changes++
	if es.queueOn && !es.replaying {
		es.enqueue(w)
		return true, nil
	}
	if err := es.apply(w); err != nil {
		es.changes--
		return false, err
	}
	return true, nil
}

func (es *EditSession) enqueue(w pending) {
	if block.ShouldPlaceLast(w.cur.ID) || es.late[w.pos] {
		// повторная запись в ячейку с отложенным блоком тоже откладывается, порядок для ячейки сохраняется
		es.late[w.pos] = true
		es.deferred = append(es.deferred, w)
	} else {
		es.queue = append(es.queue, w)
	}
	es.queued[w.pos] = w.cur
}

func (es *EditSession) apply(w pending) error {
	hint := world.PhysicsApply
	if es.fast {
		hint = world.PhysicsSkip
	}
	if _, err := es.world.WriteBlock(w.pos, w.cur, hint); err != nil {
		return &WorldAccessError{Pos: w.pos, Op: "write", Err: err}
	}
	es.tx.Add(history.Change{Pos: w.pos, Previous: w.prev, Current: w.cur})
	es.metrics.BlocksChanged(1)
	return nil
}

// Flush применяет очередь: сначала обычные блоки, затем прикреплённые.
// При отказе мира остаток очереди отбрасывается, применённое остаётся в транзакции.
func (es *EditSession) Flush() error {
	all := append(es.queue, es.deferred...)
	es.queue, es.deferred = nil, nil
	clear(es.queued)
	clear(es.late)

	var flushErr error
	for i, w := range all {
		if err := es.apply(w); err != nil {
			es.changes -= len(all) - i
			es.tx.Partial = true
			flushErr = err
			break
		}
	}
	if es.bag != nil {
		if err := es.bag.Flush(); err != nil && flushErr == nil {
			flushErr = err
		}
	}
	return flushErr
}

// BiomeAt читает биом колонки
func (es *EditSession) BiomeAt(v vec.Vec2) (world.BiomeType, error) {
	b, err := es.world.BiomeAt(v)
	if err != nil {
		return world.BiomePlains, &WorldAccessError{Pos: v.ToVec3(0), Op: "read", Err: err}
	}
	return b, nil
}

// SetBiome меняет биом колонки и заносит изменение в транзакцию.
// Маска блоков к колонкам не применяется: фильтрацию делает Mask2D обходчика.
func (es *EditSession) SetBiome(v vec.Vec2, b world.BiomeType) (bool, error) {
	prev, err := es.BiomeAt(v)
	if err != nil {
		return false, err
	}
	if prev == b {
		return false, nil
	}
	if _, err := es.world.SetBiome(v, b); err != nil {
		return false, &WorldAccessError{Pos: v.ToVec3(0), Op: "write", Err: err}
	}
	es.tx.AddBiome(history.BiomeChange{Column: v, Previous: prev, Current: b})
	return true, nil
}

// Undo отменяет последнюю транзакцию журнала. Маска, лимит и мешок при этом
// не действуют, чтобы отмена была полной.
func (es *EditSession) Undo(j *history.Journal) (*history.Transaction, error) {
	tx, err := es.replay(j.Undo)
	if err == nil {
		es.metrics.Undo()
	}
	return tx, err
}

// Redo повторяет отменённую транзакцию журнала
func (es *EditSession) Redo(j *history.Journal) (*history.Transaction, error) {
	tx, err := es.replay(j.Redo)
	if err == nil {
		es.metrics.Redo()
	}
	return tx, err
}

func (es *EditSession) replay(fn func(history.Target) (*history.Transaction, error)) (*history.Transaction, error) {
	if err := es.Flush(); err != nil {
		return nil, err
	}
	es.replaying = true
	defer func() { es.replaying = false }()
	return fn(es)
}

// Run выполняет операцию до конца и помечает транзакцию при прерывании.
// Если переданы счётчики, результатом считается их сумма, а не прогресс обхода.
func (es *EditSession) Run(ctx context.Context, op operation.Operation, counters ...function.Counted) (int, error) {
	p, err := operation.Run(ctx, op)
	if err != nil {
		es.tx.Partial = true
	}
	if len(counters) == 0 {
		return p.Affected, err
	}
	n := 0
	for _, c := range counters {
		n += c.Affected()
	}
	return n, err
}

// nextSeed выдаёт зерно для очередного генератора сессии
func (es *EditSession) nextSeed() int64 {
	es.seed++
	return es.seed
}
