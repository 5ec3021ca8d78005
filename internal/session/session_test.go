package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/clipboard"
	"github.com/annel0/blockedit/internal/eventbus"
	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/selector"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

var ctx = context.Background()

type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (l *eventLog) handle(_ context.Context, ev *eventbus.Envelope) {
	l.mu.Lock()
	l.types = append(l.types, ev.EventType)
	l.mu.Unlock()
}

func (l *eventLog) count(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.types {
		if t == eventType {
			n++
		}
	}
	return n
}

type memoryArchive struct {
	mu      sync.Mutex
	records []history.Record
}

func (a *memoryArchive) Record(_ context.Context, rec history.Record) error {
	a.mu.Lock()
	a.records = append(a.records, rec)
	a.mu.Unlock()
	return nil
}

type memoryJournals struct {
	states map[string]history.State
}

func (j *memoryJournals) SaveJournal(op string, s history.State) error {
	j.states[op] = s
	return nil
}

func (j *memoryJournals) LoadJournal(op string) (history.State, bool, error) {
	s, ok := j.states[op]
	return s, ok, nil
}

func newServices(t *testing.T) (Services, eventbus.EventBus, *eventLog) {
	t.Helper()
	bus := eventbus.NewMemoryBus(64)
	log := &eventLog{}
	_, err := bus.Subscribe(ctx, eventbus.Filter{}, log.handle)
	require.NoError(t, err)
	return Services{
		NodeID:     "node-test",
		Bus:        bus,
		Clipboards: clipboard.NewMemoryStore(),
		Archive:    &memoryArchive{},
		Journals:   &memoryJournals{states: make(map[string]history.State)},
		Limits:     DefaultLimits(),
	}, bus, log
}

func stone() pattern.Pattern { return pattern.Single(block.Of(block.StoneBlockID)) }

func TestSelectionPublishesEvents(t *testing.T) {
	svc, bus, log := newServices(t)
	s := NewManager(svc)
	sess, err := s.GetOrCreate("alice")
	require.NoError(t, err)

	assert.True(t, sess.SelectPrimary("w", vec.New(0, 0, 0)))
	assert.False(t, sess.SelectPrimary("w", vec.New(0, 0, 0)), "повторная точка ничего не меняет")
	assert.True(t, sess.SelectSecondary("w", vec.New(3, 4, 5)))

	r, err := sess.Selection("w")
	require.NoError(t, err)
	assert.EqualValues(t, 4*5*6, r.Area())

	_, err = sess.Selection("other")
	var incomplete *selector.IncompleteRegionError
	assert.ErrorAs(t, err, &incomplete, "выделения разных миров независимы")

	sess.ClearSelection("w")
	require.NoError(t, bus.Close())
	assert.Equal(t, 3, log.count(eventbus.TypeSelectionChanged))
}

func TestSelectionAdjustments(t *testing.T) {
	svc, _, _ := newServices(t)
	sess, err := NewManager(svc).GetOrCreate("alice")
	require.NoError(t, err)

	sess.SelectPrimary("w", vec.New(0, 10, 0))
	sess.SelectSecondary("w", vec.New(4, 14, 4))

	r, err := sess.OutsetSelection("w", 2, true, false)
	require.NoError(t, err)
	assert.Equal(t, vec.New(-2, 10, -2), r.MinimumPoint(), "horizontal не трогает Y")
	assert.Equal(t, vec.New(6, 14, 6), r.MaximumPoint())

	r, err = sess.InsetSelection("w", 1, false, false)
	require.NoError(t, err)
	assert.Equal(t, vec.New(-1, 11, -1), r.MinimumPoint())
	assert.Equal(t, vec.New(5, 13, 5), r.MaximumPoint())

	r, err = sess.ShiftSelection("w", vec.New(0, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, 16, r.MinimumPoint().Y)

	p, ok := sess.Selector("w").PrimaryPosition()
	require.True(t, ok)
	assert.Equal(t, r.MinimumPoint(), p, "точки выделения следуют за областью")

	info, err := sess.Info("w")
	require.NoError(t, err)
	assert.Equal(t, "cuboid", info.Kind)
	assert.Equal(t, vec.New(7, 3, 7), info.Dimensions)
}

func TestSelectChunkCoversWorldHeight(t *testing.T) {
	svc, _, _ := newServices(t)
	sess, err := NewManager(svc).GetOrCreate("alice")
	require.NoError(t, err)
	w := world.NewMemoryWorld("w", world.WithHeight(0, 255))

	sess.SetSelectorKind("w", selector.KindPolygon)
	r, err := sess.SelectChunk(w, vec.New(17, 40, -1))
	require.NoError(t, err)
	assert.Equal(t, selector.KindCuboid, sess.Selector("w").Kind())
	assert.Equal(t, vec.New(16, 0, -16), r.MinimumPoint())
	assert.Equal(t, vec.New(31, 255, -1), r.MaximumPoint())
}

func TestRememberUndoRedo(t *testing.T) {
	svc, bus, log := newServices(t)
	sess, err := NewManager(svc).GetOrCreate("alice")
	require.NoError(t, err)
	w := world.NewMemoryWorld("w")

	for y := range 3 {
		es := sess.CreateEditSession(w, "set")
		_, err := es.SetBlocks(ctx, region.NewCuboid(vec.New(0, y, 0), vec.New(1, y, 1)), stone())
		require.NoError(t, err)
		committed, err := sess.Remember(ctx, es)
		require.NoError(t, err)
		assert.True(t, committed)
	}

	empty := sess.CreateEditSession(w, "noop")
	committed, err := sess.Remember(ctx, empty)
	require.NoError(t, err)
	assert.False(t, committed, "пустая транзакция не попадает в журнал")
	assert.Equal(t, 3, sess.Journal().Len())

	n, err := sess.Undo(ctx, 5, w)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "отменяется не больше, чем есть")
	v, err := w.BlockAt(vec.New(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, v.IsAir())

	_, err = sess.Undo(ctx, 1, w)
	assert.ErrorIs(t, err, history.ErrNothingToUndo)

	n, err = sess.Redo(ctx, 2, w)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	v, err = w.BlockAt(vec.New(1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, block.StoneBlockID, v.ID)

	sess.ClearHistory(ctx)
	assert.False(t, sess.Journal().CanRedo())

	require.NoError(t, bus.Close())
	assert.Equal(t, 3, log.count(eventbus.TypeTransactionCommitted))
	assert.Equal(t, 3, log.count(eventbus.TypeHistoryUndo))
	assert.Equal(t, 2, log.count(eventbus.TypeHistoryRedo))
	assert.Equal(t, 1, log.count(eventbus.TypeHistoryCleared))
	assert.Len(t, svc.Archive.(*memoryArchive).records, 3)
	assert.Equal(t, "w", svc.Archive.(*memoryArchive).records[0].World)
}

func TestChangeLimitSettings(t *testing.T) {
	svc, _, _ := newServices(t)
	svc.Limits.DefaultChangeLimit = 4
	svc.Limits.MaxChangeLimit = 100
	sess, err := NewManager(svc).GetOrCreate("alice")
	require.NoError(t, err)

	assert.Equal(t, 4, sess.BlockChangeLimit())
	var tooHigh *ErrLimitTooHigh
	assert.ErrorAs(t, sess.SetBlockChangeLimit(500), &tooHigh)
	assert.ErrorAs(t, sess.SetBlockChangeLimit(-1), &tooHigh, "снять лимит нельзя при заданном максимуме")
	require.NoError(t, sess.SetBlockChangeLimit(50))

	es := sess.CreateEditSession(world.NewMemoryWorld("w"), "set")
	assert.Equal(t, 50, es.BlockChangeLimit())
}

func TestClipboardSharedThroughStore(t *testing.T) {
	svc, bus, log := newServices(t)
	m := NewManager(svc)
	sess, err := m.GetOrCreate("alice")
	require.NoError(t, err)

	_, err = sess.Clipboard(ctx)
	assert.ErrorIs(t, err, clipboard.ErrEmpty)

	cb := clipboard.New(region.NewCuboid(vec.New(0, 0, 0), vec.New(1, 1, 1)))
	require.NoError(t, sess.SetClipboard(ctx, cb))

	require.NoError(t, m.HandleClipboardInvalidation(clipboard.Key("alice")))
	got, err := sess.Clipboard(ctx)
	require.NoError(t, err, "после инвалидации буфер подгружается из хранилища")
	assert.Equal(t, cb.Dimensions(), got.Dimensions())
	assert.NotSame(t, cb, got)

	require.NoError(t, sess.ClearClipboard(ctx))
	_, err = sess.Clipboard(ctx)
	assert.ErrorIs(t, err, clipboard.ErrEmpty)

	require.NoError(t, bus.Close())
	assert.Equal(t, 1, log.count(eventbus.TypeClipboardCopied))
	assert.Equal(t, 1, log.count(eventbus.TypeClipboardCleared))
}

func TestPlacementPosition(t *testing.T) {
	svc, _, _ := newServices(t)
	sess, err := NewManager(svc).GetOrCreate("alice")
	require.NoError(t, err)

	_, err = sess.PlacementPosition("w")
	assert.Error(t, err)

	sess.SelectPrimary("w", vec.New(0, 0, 0))
	sess.SelectSecondary("w", vec.New(4, 4, 4))
	p, err := sess.PlacementPosition("w")
	require.NoError(t, err)
	assert.Equal(t, vec.New(0, 0, 0), p)

	assert.False(t, sess.TogglePlacement())
	p, err = sess.PlacementPosition("w")
	require.NoError(t, err)
	assert.Equal(t, vec.New(2, 2, 2), p)
}

func TestManagerPersistsJournals(t *testing.T) {
	svc, bus, log := newServices(t)
	m := NewManager(svc)
	w := world.NewMemoryWorld("w")

	sess, err := m.GetOrCreate("alice")
	require.NoError(t, err)
	es := sess.CreateEditSession(w, "set")
	_, err = es.SetBlocks(ctx, region.NewCuboid(vec.New(0, 0, 0), vec.New(2, 0, 0)), stone())
	require.NoError(t, err)
	_, err = sess.Remember(ctx, es)
	require.NoError(t, err)

	require.NoError(t, m.Remove("alice"))
	_, ok := m.Get("alice")
	assert.False(t, ok)

	restored, err := m.GetOrCreate("alice")
	require.NoError(t, err)
	require.Equal(t, 1, restored.Journal().Len(), "журнал восстановлен из хранилища")
	n, err := restored.Undo(ctx, 1, w)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = m.GetOrCreate("bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, m.Operators())

	bob, _ := m.Get("bob")
	bob.mu.Lock()
	bob.lastActive = time.Now().Add(-time.Hour)
	bob.mu.Unlock()

	expired := m.Expire(ctx, time.Minute)
	assert.Equal(t, []string{"bob"}, expired)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, bus.Close())
	assert.Equal(t, 1, log.count(eventbus.TypeSessionExpired))
}
