package operation

import (
	"context"
	"iter"
	"slices"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

// walker общий обход последовательности с бюджетом
type walker[T any] struct {
	lifecycle
	cur       cursor[T]
	visit     func(T) (bool, error)
	estimate  func() int64
	started   bool
	remaining int64
	affected  int
}

func (w *walker[T]) progress(visited int) Progress {
	return Progress{
		Done:      w.Status() == StatusCompleted,
		Remaining: w.remaining,
		Affected:  w.affected,
		Visited:   visited,
	}
}

// Affected число затронутых единиц с начала обхода
func (w *walker[T]) Affected() int { return w.affected }

func (w *walker[T]) Advance(ctx context.Context, budget int) (Progress, error) {
	done, err := w.enter()
	if err != nil {
		w.cur.close()
		return w.progress(0), err
	}
	if done {
		return w.progress(0), nil
	}
	if !w.started {
		w.started = true
		w.remaining = -1
		if w.estimate != nil {
			w.remaining = w.estimate()
		}
	}

	visited := 0
	for budget <= 0 || visited < budget {
		if visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return w.progress(visited), err
			}
		}
		item, ok := w.cur.pull()
		if !ok {
			w.remaining = 0
			w.complete()
			return w.progress(visited), nil
		}
		visited++
		if w.remaining > 0 {
			w.remaining--
		}
		hit, err := w.visit(item)
		if err != nil {
			w.cur.close()
			w.fail(err)
			return w.progress(visited), err
		}
		if hit {
			w.affected++
		}
	}
	return w.progress(visited), nil
}

// RegionVisitor применяет функцию к каждой координате области
type RegionVisitor struct {
	walker[vec.Vec3]
	Region   region.Region
	Function function.Function
	Mask     mask.Mask // необязательна
}

// NewRegionVisitor создаёт обходчик области
func NewRegionVisitor(r region.Region, fn function.Function) *RegionVisitor {
	v := &RegionVisitor{Region: r, Function: fn}
	v.cur.seq = r.Iterate()
	v.estimate = r.Area
	v.visit = func(p vec.Vec3) (bool, error) {
		if v.Mask != nil && !v.Mask.Test(p) {
			return false, nil
		}
		return v.Function.Apply(p)
	}
	return v
}

// PointVisitor применяет функцию к произвольной последовательности координат
type PointVisitor struct {
	walker[vec.Vec3]
	Function function.Function
}

// NewPointVisitor создаёт обходчик последовательности. count < 0 если размер неизвестен.
func NewPointVisitor(points iter.Seq[vec.Vec3], count int64, fn function.Function) *PointVisitor {
	v := &PointVisitor{Function: fn}
	v.cur.seq = points
	v.estimate = func() int64 { return count }
	v.visit = func(p vec.Vec3) (bool, error) { return v.Function.Apply(p) }
	return v
}

// FlatRegionVisitor применяет функцию к каждой колонке плоской области
type FlatRegionVisitor struct {
	walker[vec.Vec2]
	Region   region.FlatRegion
	Function function.FlatFunction
}

// NewFlatRegionVisitor создаёт обходчик колонок
func NewFlatRegionVisitor(r region.FlatRegion, fn function.FlatFunction) *FlatRegionVisitor {
	v := &FlatRegionVisitor{Region: r, Function: fn}
	v.cur.seq = r.Iterate2D()
	v.visit = func(c vec.Vec2) (bool, error) { return v.Function.Apply2D(c) }
	return v
}

// LayerVisitor обходит колонки сверху вниз: ищет первую поверхность
// и передаёт функции слои под ней, пока она возвращает true.
// Единица бюджета здесь колонка; затронутой считается колонка с найденной поверхностью.
type LayerVisitor struct {
	walker[vec.Vec2]
	Region     region.FlatRegion
	MinY, MaxY int
	Function   function.LayerFunction
	Mask       mask.Mask2D // необязательна
}

// NewLayerVisitor создаёт послойный обходчик в диапазоне высот [minY, maxY]
func NewLayerVisitor(r region.FlatRegion, minY, maxY int, fn function.LayerFunction) *LayerVisitor {
	v := &LayerVisitor{Region: r, MinY: min(minY, maxY), MaxY: max(minY, maxY), Function: fn}
	v.cur.seq = r.Iterate2D()
	v.visit = v.column
	return v
}

func (v *LayerVisitor) column(c vec.Vec2) (bool, error) {
	if v.Mask != nil && !v.Mask.Test2D(c) {
		return false, nil
	}
	found := false
	groundY := 0
	for y := v.MaxY; y >= v.MinY; y-- {
		p := c.ToVec3(y)
		if !found {
			if !v.Function.IsGround(p) {
				continue
			}
			found = true
			groundY = y
		}
		more, err := v.Function.Apply(p, groundY-y)
		if err != nil {
			return false, err
		}
		if !more {
			break
		}
	}
	return found, nil
}

// EntityVisitor применяет функцию к списку сущностей
type EntityVisitor struct {
	walker[world.Entity]
	Function function.EntityFunction
}

// NewEntityVisitor создаёт обходчик сущностей. Список копируется.
func NewEntityVisitor(entities []world.Entity, fn function.EntityFunction) *EntityVisitor {
	list := slices.Clone(entities)
	v := &EntityVisitor{Function: fn}
	v.cur.seq = slices.Values(list)
	v.estimate = func() int64 { return int64(len(list)) }
	v.visit = func(e world.Entity) (bool, error) { return v.Function.ApplyEntity(e) }
	return v
}
