package operation

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/metrics"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

type mapTarget struct {
	blocks map[vec.Vec3]block.Value
}

func newMapTarget() *mapTarget { return &mapTarget{blocks: map[vec.Vec3]block.Value{}} }

func (m *mapTarget) BlockAt(p vec.Vec3) (block.Value, error) { return m.blocks[p], nil }
func (m *mapTarget) SetBlock(p vec.Vec3, v block.Value) (bool, error) {
	if m.blocks[p].Equals(v) {
		return false, nil
	}
	m.blocks[p] = v
	return true, nil
}
func (m *mapTarget) MinimumPoint() vec.Vec3 { return vec.New(-100, 0, -100) }
func (m *mapTarget) MaximumPoint() vec.Vec3 { return vec.New(100, 255, 100) }

// recorder запоминает порядок посещения
type recorder struct{ seen []vec.Vec3 }

func (r *recorder) Apply(p vec.Vec3) (bool, error) {
	r.seen = append(r.seen, p)
	return true, nil
}

func cube(n int) *region.Cuboid {
	return region.NewCuboid(vec.Zero, vec.New(n-1, n-1, n-1))
}

func TestRegionVisitorRunsToCompletion(t *testing.T) {
	counter := &function.Counter{}
	v := NewRegionVisitor(cube(10), counter)

	p, err := Run(context.Background(), v)
	require.NoError(t, err)
	assert.True(t, p.Done)
	assert.Equal(t, 1000, p.Affected)
	assert.Equal(t, 1000, p.Visited)
	assert.Equal(t, int64(0), p.Remaining)
	assert.Equal(t, StatusCompleted, v.Status())
}

func TestSlicedRunEqualsOneShot(t *testing.T) {
	oneShot := &recorder{}
	_, err := Run(context.Background(), NewRegionVisitor(cube(7), oneShot))
	require.NoError(t, err)

	sliced := &recorder{}
	v := NewRegionVisitor(cube(7), sliced)
	slices := 0
	for {
		p, err := v.Advance(context.Background(), 37)
		require.NoError(t, err)
		assert.LessOrEqual(t, p.Visited, 37, "срез не превышает бюджет")
		slices++
		if p.Done {
			break
		}
	}
	assert.Greater(t, slices, 1)
	assert.Equal(t, oneShot.seen, sliced.seen, "порядок и множество совпадают с однократным запуском")
}

func TestRemainingDecreases(t *testing.T) {
	v := NewRegionVisitor(cube(4), &function.Counter{})
	p, err := v.Advance(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(54), p.Remaining)
	assert.False(t, p.Done)
}

func TestCancelKeepsPartialWork(t *testing.T) {
	tgt := newMapTarget()
	fill := function.NewBlockReplace(tgt, patternOf(block.StoneBlockID))
	v := NewRegionVisitor(cube(10), fill)

	p, err := v.Advance(context.Background(), 250)
	require.NoError(t, err)
	assert.Equal(t, 250, p.Affected)

	v.Cancel()
	_, err = v.Advance(context.Background(), 250)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StatusCancelled, v.Status())
	assert.Len(t, tgt.blocks, 250, "применённые изменения остаются")

	_, err = v.Advance(context.Background(), 250)
	assert.ErrorIs(t, err, ErrCancelled, "повторный Advance тоже отменён")
}

func TestCompletionIsIdempotent(t *testing.T) {
	v := NewRegionVisitor(cube(2), &function.Counter{})
	_, err := Run(context.Background(), v)
	require.NoError(t, err)

	v.Cancel()
	p, err := v.Advance(context.Background(), 5)
	require.NoError(t, err, "отмена завершённой операции ни на что не влияет")
	assert.True(t, p.Done)
	assert.Equal(t, 0, p.Visited)
	assert.Equal(t, 8, p.Affected)
}

func TestFunctionErrorFailsOperation(t *testing.T) {
	boom := errors.New("мир недоступен")
	calls := 0
	fn := function.Func(func(p vec.Vec3) (bool, error) {
		calls++
		if calls == 5 {
			return false, boom
		}
		return true, nil
	})
	v := NewRegionVisitor(cube(3), fn)
	p, err := Run(context.Background(), v)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, p.Affected)
	assert.Equal(t, StatusFailed, v.Status())

	_, err = v.Advance(context.Background(), 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, calls, "после ошибки функция больше не вызывается")
}

func TestContextCancellationIsResumable(t *testing.T) {
	counter := &function.Counter{}
	v := NewRegionVisitor(cube(5), counter)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Advance(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusRunning, v.Status())

	p, err := Run(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 125, p.Affected)
}

func TestRegionVisitorMask(t *testing.T) {
	counter := &function.Counter{}
	v := NewRegionVisitor(cube(4), counter)
	v.Mask = mask.Func(func(p vec.Vec3) bool { return p.Y == 0 })
	p, err := Run(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 16, p.Affected)
	assert.Equal(t, 64, p.Visited, "маскированные координаты тоже расходуют бюджет")
}

func TestPointVisitor(t *testing.T) {
	pts := func(yield func(vec.Vec3) bool) {
		for i := 0; i < 5; i++ {
			if !yield(vec.New(i, 0, 0)) {
				return
			}
		}
	}
	rec := &recorder{}
	p, err := RunSliced(context.Background(), NewPointVisitor(pts, 5, rec), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Affected)
	assert.Len(t, rec.seen, 5)
}

type columnCounter struct{ n int }

func (c *columnCounter) Apply2D(vec.Vec2) (bool, error) {
	c.n++
	return true, nil
}

func TestFlatRegionVisitor(t *testing.T) {
	c := &columnCounter{}
	p, err := Run(context.Background(), NewFlatRegionVisitor(cube(6).AsFlatRegion(), c))
	require.NoError(t, err)
	assert.Equal(t, 36, c.n)
	assert.Equal(t, 36, p.Affected)
}

func TestLayerVisitorNaturalizes(t *testing.T) {
	tgt := newMapTarget()
	box := region.NewCuboid(vec.Zero, vec.New(1, 10, 1))
	for p := range box.Iterate() {
		tgt.blocks[p] = block.Of(block.StoneBlockID)
	}
	nat := function.NewNaturalizer(tgt)
	v := NewLayerVisitor(box.AsFlatRegion(), 0, 20, nat)

	p, err := Run(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Affected, "четыре колонки с поверхностью")

	assert.Equal(t, block.GrassBlockID, tgt.blocks[vec.New(0, 10, 0)].ID)
	for y := 7; y <= 9; y++ {
		assert.Equal(t, block.DirtBlockID, tgt.blocks[vec.New(1, y, 1)].ID, "y=%d", y)
	}
	assert.Equal(t, block.StoneBlockID, tgt.blocks[vec.New(0, 6, 0)].ID)
}

func TestLayerVisitorGroundFunctionOncePerColumn(t *testing.T) {
	tgt := newMapTarget()
	box := region.NewCuboid(vec.Zero, vec.New(2, 3, 2))
	for p := range box.Iterate() {
		tgt.blocks[p] = block.Of(block.DirtBlockID)
	}
	counter := &function.Counter{}
	ground := function.NewGroundFunction(&mask.ExistingBlockMask{Extent: tgt}, counter)
	_, err := Run(context.Background(), NewLayerVisitor(box.AsFlatRegion(), 0, 10, ground))
	require.NoError(t, err)
	assert.Equal(t, 9, counter.Count())
}

func TestEntityVisitor(t *testing.T) {
	w := world.NewMemoryWorld("test")
	for i := 0; i < 3; i++ {
		w.AddEntity(world.Entity{TypeName: "zombie", Kind: world.EntityKindHostile})
	}
	w.AddEntity(world.Entity{TypeName: "player", Kind: world.EntityKindPlayer})
	all, err := w.Entities(nil)
	require.NoError(t, err)

	remover := function.NewEntityRemover(w, world.NewDefaultEntityRegistry(), function.ButcherFlags())
	p, err := RunSliced(context.Background(), NewEntityVisitor(all, remover), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Affected)
	left, _ := w.Entities(nil)
	assert.Len(t, left, 1)
}

func TestChainRunsStagesInOrder(t *testing.T) {
	var order []string
	stage := func(name string, n int) Operation {
		return NewRegionVisitor(region.NewCuboid(vec.Zero, vec.New(n-1, 0, 0)), function.Func(func(vec.Vec3) (bool, error) {
			order = append(order, name)
			return true, nil
		}))
	}
	c := Chain(stage("a", 10), stage("b", 20))

	total := 0
	for {
		p, err := c.Advance(context.Background(), 7)
		require.NoError(t, err)
		assert.LessOrEqual(t, p.Visited, 7)
		total += p.Visited
		if p.Done {
			assert.Equal(t, 30, p.Affected)
			break
		}
	}
	assert.Equal(t, 30, total)
	require.Len(t, order, 30)
	assert.Equal(t, "a", order[9])
	assert.Equal(t, "b", order[10], "вторая стадия начинается после завершения первой")
}

func TestChainCancelStopsCurrentStage(t *testing.T) {
	first := NewRegionVisitor(cube(5), &function.Counter{})
	second := NewRegionVisitor(cube(5), &function.Counter{})
	c := Chain(first, second)
	_, err := c.Advance(context.Background(), 10)
	require.NoError(t, err)

	c.Cancel()
	_, err = c.Advance(context.Background(), 10)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StatusCancelled, first.Status())
	assert.Equal(t, StatusPending, second.Status(), "вторая стадия не начиналась")
}

func TestDelegateDynamicStages(t *testing.T) {
	counter := &function.Counter{}
	rounds := 0
	d := NewDelegate(nil, func(context.Context) (Operation, error) {
		if rounds == 3 {
			return nil, nil
		}
		rounds++
		return NewRegionVisitor(cube(2), counter), nil
	})
	p, err := Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 24, p.Affected)
	assert.Equal(t, 3, rounds)
}

func TestTask(t *testing.T) {
	task := NewTask(func(context.Context) (int, error) { return 7, nil })
	p, err := Run(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Affected)

	failing := NewTask(func(context.Context) (int, error) { return 0, errors.New("сбой") })
	_, err = Run(context.Background(), failing)
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, failing.Status())
}

func TestSchedulerRoundRobin(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := NewScheduler(300, m)

	var results []Progress
	onDone := func(p Progress, err error) {
		require.NoError(t, err)
		results = append(results, p)
	}
	big := s.Submit("alice", "set", NewRegionVisitor(cube(10), &function.Counter{}), onDone)
	small := s.Submit("bob", "set", NewRegionVisitor(cube(2), &function.Counter{}), onDone)
	assert.Equal(t, 2, s.Pending())

	assert.Equal(t, 2, s.Tick(context.Background()))
	assert.Equal(t, 1, s.Pending(), "маленькая операция завершена за один срез")
	info, ok := s.Job(small)
	require.True(t, ok)
	assert.Equal(t, "completed", info.Status)

	info, _ = s.Job(big)
	assert.Equal(t, "running", info.Status)
	assert.Equal(t, 300, info.Affected)

	for s.Pending() > 0 {
		s.Tick(context.Background())
	}
	info, _ = s.Job(big)
	assert.Equal(t, 1000, info.Affected)
	assert.Equal(t, 4, info.Slices)
	require.Len(t, results, 2)
}

func TestSchedulerSerializesOperatorJobs(t *testing.T) {
	s := NewScheduler(300, nil)

	var order []string
	done := func(label string) DoneFunc {
		return func(_ Progress, err error) {
			require.NoError(t, err)
			order = append(order, label)
		}
	}
	first := s.Submit("alice", "first", NewRegionVisitor(cube(10), &function.Counter{}), done("first"))
	second := s.Submit("alice", "second", NewRegionVisitor(cube(2), &function.Counter{}), done("second"))
	s.Submit("bob", "other", NewRegionVisitor(cube(2), &function.Counter{}), done("other"))

	assert.True(t, s.Busy("alice"))
	assert.True(t, s.Busy("bob"))
	assert.False(t, s.Busy("carol"))

	assert.Equal(t, 2, s.Tick(context.Background()), "за тик продвигается одно задание на оператора")
	info, _ := s.Job(second)
	assert.Equal(t, "pending", info.Status, "второе задание ждёт первое")
	assert.Equal(t, 0, info.Slices)
	assert.False(t, s.Busy("bob"))

	for s.Pending() > 0 {
		s.Tick(context.Background())
	}
	assert.Equal(t, []string{"other", "first", "second"}, order, "задания оператора завершаются в порядке постановки")
	info, _ = s.Job(first)
	assert.Equal(t, 4, info.Slices)
	assert.False(t, s.Busy("alice"))
}

func TestSchedulerCancelByOperator(t *testing.T) {
	s := NewScheduler(10, nil)
	var gotErr error
	id := s.Submit("alice", "fill", NewRegionVisitor(cube(10), &function.Counter{}), func(_ Progress, err error) {
		gotErr = err
	})
	s.Tick(context.Background())
	assert.Equal(t, 1, s.Cancel("alice"))
	assert.Equal(t, 0, s.Cancel("bob"))

	s.Tick(context.Background())
	assert.Equal(t, 0, s.Pending())
	assert.ErrorIs(t, gotErr, ErrCancelled)
	info, ok := s.Job(id)
	require.True(t, ok)
	assert.Equal(t, "cancelled", info.Status)
	assert.Equal(t, 10, info.Affected, "частичный результат сохраняется")
}

func TestSchedulerCancelJob(t *testing.T) {
	s := NewScheduler(10, nil)
	id := s.Submit("alice", "fill", NewRegionVisitor(cube(10), &function.Counter{}), nil)
	assert.True(t, s.CancelJob(id))
	s.Tick(context.Background())
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.CancelJob(id))
}

func TestRecursiveVisitorFloodsConnectedCells(t *testing.T) {
	tgt := newMapTarget()
	// две лужи воды, соединённые только через (2,0,0)
	for x := 0; x < 5; x++ {
		tgt.blocks[vec.New(x, 0, 0)] = block.Of(block.WaterBlockID)
	}
	tgt.blocks[vec.New(10, 0, 0)] = block.Of(block.WaterBlockID)

	water := mask.NewBlockMask(tgt, block.WaterBlockID)
	v := NewRecursiveVisitor(water, function.NewBlockReplace(tgt, patternOf(block.AirBlockID)))
	v.Visit(vec.New(2, 0, 0))
	p, err := RunSliced(context.Background(), v, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Affected)
	assert.Equal(t, block.WaterBlockID, tgt.blocks[vec.New(10, 0, 0)].ID, "несвязная лужа не затронута")
}

func TestDownwardVisitorDoesNotSpreadBelowBase(t *testing.T) {
	rec := &recorder{}
	box := region.NewCuboid(vec.New(-2, -2, -2), vec.New(2, 0, 2))
	v := NewDownwardVisitor(&mask.RegionMask{Region: box}, rec, 0)
	v.Visit(vec.Zero)
	_, err := Run(context.Background(), v)
	require.NoError(t, err)
	// на уровне 0 вся площадка 5x5, ниже только столбцы под ней по вертикали
	assert.Len(t, rec.seen, 75)
	for _, p := range rec.seen {
		assert.LessOrEqual(t, p.Y, 0)
	}
}
