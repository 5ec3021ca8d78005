package edit

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// PrepareSetBlocks заполняет область шаблоном
func (es *EditSession) PrepareSetBlocks(r region.Region, p pattern.Pattern) operation.Operation {
	return operation.NewRegionVisitor(r, function.NewBlockReplace(es, p))
}

func (es *EditSession) SetBlocks(ctx context.Context, r region.Region, p pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareSetBlocks(r, p))
}

// PrepareReplaceBlocks заменяет блоки, прошедшие фильтр. nil означает любой непустой блок.
func (es *EditSession) PrepareReplaceBlocks(r region.Region, filter mask.Mask, p pattern.Pattern) operation.Operation {
	if filter == nil {
		filter = &mask.ExistingBlockMask{Extent: es}
	}
	v := operation.NewRegionVisitor(r, function.NewBlockReplace(es, p))
	v.Mask = filter
	return v
}

func (es *EditSession) ReplaceBlocks(ctx context.Context, r region.Region, filter mask.Mask, p pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareReplaceBlocks(r, filter, p))
}

// PrepareCenterBlocks ставит блоки в центр области: от одного до двух по каждой оси
func (es *EditSession) PrepareCenterBlocks(r region.Region, p pattern.Pattern) operation.Operation {
	c := r.Center()
	lo := vec.Vec3{X: int(math.Floor(c.X)), Y: int(math.Floor(c.Y)), Z: int(math.Floor(c.Z))}
	hi := vec.Vec3{X: int(math.Ceil(c.X)), Y: int(math.Ceil(c.Y)), Z: int(math.Ceil(c.Z))}
	return es.PrepareSetBlocks(region.NewCuboid(lo, hi), p)
}

func (es *EditSession) CenterBlocks(ctx context.Context, r region.Region, p pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareCenterBlocks(r, p))
}

var horizontalDirs = []vec.Vec3{vec.UnitX, vec.UnitX.Neg(), vec.UnitZ, vec.UnitZ.Neg()}

// boundary выбирает ячейки области, у которых хотя бы один сосед снаружи
func boundary(r region.Region, dirs []vec.Vec3) mask.Mask {
	return mask.Func(func(p vec.Vec3) bool {
		for _, d := range dirs {
			if !r.Contains(p.Add(d)) {
				return true
			}
		}
		return false
	})
}

// PrepareMakeWalls строит боковые стены области
func (es *EditSession) PrepareMakeWalls(r region.Region, p pattern.Pattern) operation.Operation {
	if c, ok := r.(*region.Cuboid); ok {
		return es.PrepareSetBlocks(c.Walls(), p)
	}
	v := operation.NewRegionVisitor(r, function.NewBlockReplace(es, p))
	v.Mask = boundary(r, horizontalDirs)
	return v
}

func (es *EditSession) MakeWalls(ctx context.Context, r region.Region, p pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareMakeWalls(r, p))
}

// PrepareMakeFaces строит все грани области, включая пол и потолок
func (es *EditSession) PrepareMakeFaces(r region.Region, p pattern.Pattern) operation.Operation {
	if c, ok := r.(*region.Cuboid); ok {
		return es.PrepareSetBlocks(c.Faces(), p)
	}
	v := operation.NewRegionVisitor(r, function.NewBlockReplace(es, p))
	v.Mask = boundary(r, operation.DirectionsAll)
	return v
}

func (es *EditSession) MakeFaces(ctx context.Context, r region.Region, p pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareMakeFaces(r, p))
}

// PrepareOverlayCuboidBlocks кладёт слой шаблона поверх верхнего непустого блока каждой колонки
func (es *EditSession) PrepareOverlayCuboidBlocks(r region.Region, p pattern.Pattern) (operation.Operation, *function.BlockReplace) {
	replace := function.NewBlockReplace(es, p)
	above := function.Func(func(pos vec.Vec3) (bool, error) {
		return replace.Apply(pos.Add(vec.UnitY))
	})
	ground := function.NewGroundFunction(&mask.ExistingBlockMask{Extent: es}, above)
	lo, hi := r.MinimumPoint(), r.MaximumPoint()
	return operation.NewLayerVisitor(r.AsFlatRegion(), lo.Y, hi.Y, ground), replace
}

func (es *EditSession) OverlayCuboidBlocks(ctx context.Context, r region.Region, p pattern.Pattern) (int, error) {
	op, replace := es.PrepareOverlayCuboidBlocks(r, p)
	return es.Run(ctx, op, replace)
}

// PrepareNaturalizeCuboidBlocks превращает грунт в траву, три слоя земли и камень
func (es *EditSession) PrepareNaturalizeCuboidBlocks(r region.Region) (operation.Operation, *function.Naturalizer) {
	nat := function.NewNaturalizer(es)
	lo, hi := r.MinimumPoint(), r.MaximumPoint()
	return operation.NewLayerVisitor(r.AsFlatRegion(), lo.Y, hi.Y, nat), nat
}

func (es *EditSession) NaturalizeCuboidBlocks(ctx context.Context, r region.Region) (int, error) {
	op, nat := es.PrepareNaturalizeCuboidBlocks(r)
	return es.Run(ctx, op, nat)
}

// PrepareStackCuboidRegion повторяет содержимое области count раз в направлении dir.
// Шаг равен размеру области вдоль направления.
func (es *EditSession) PrepareStackCuboidRegion(r region.Region, dir vec.Vec3, count int, copyAir bool) operation.Operation {
	size := vec.Vec3{X: r.Width(), Y: r.Height(), Z: r.Length()}
	step := dir.Mul(size)
	origin := r.MinimumPoint()

	stages := make([]operation.Operation, 0, max(count, 0))
	for i := 1; i <= count; i++ {
		cp := function.NewExtentBlockCopy(es, origin, es, origin.Add(step.MulScalar(i)))
		v := operation.NewRegionVisitor(r, cp)
		if !copyAir {
			v.Mask = &mask.ExistingBlockMask{Extent: es}
		}
		stages = append(stages, v)
	}
	return operation.Chain(stages...)
}

func (es *EditSession) StackCuboidRegion(ctx context.Context, r region.Region, dir vec.Vec3, count int, copyAir bool) (int, error) {
	return es.Run(ctx, es.PrepareStackCuboidRegion(r, dir, count, copyAir))
}

type cell struct {
	pos vec.Vec3
	val block.Value
}

// pointsOf последовательность координат буфера
func pointsOf(cells []cell, offset vec.Vec3) iter.Seq[vec.Vec3] {
	return func(yield func(vec.Vec3) bool) {
		for _, c := range cells {
			if !yield(c.pos.Add(offset)) {
				return
			}
		}
	}
}

// PrepareMoveRegion переносит содержимое области на distance блоков в направлении dir.
// Работа идёт в три стадии: снятие копии в буфер, заполнение источника
// шаблоном replacement (nil означает воздух) и вставка буфера со смещением.
func (es *EditSession) PrepareMoveRegion(r region.Region, dir vec.Vec3, distance int, copyAir bool, replacement pattern.Pattern) operation.Operation {
	if replacement == nil {
		replacement = pattern.Single(block.Air)
	}
	offset := dir.MulScalar(distance)
	var buffer []cell
	values := make(map[vec.Vec3]block.Value)

	capture := operation.NewRegionVisitor(r, function.Func(func(p vec.Vec3) (bool, error) {
		v, err := es.BlockAt(p)
		if err != nil {
			return false, err
		}
		if !copyAir && v.IsAir() {
			return false, nil
		}
		buffer = append(buffer, cell{pos: p, val: v})
		values[p.Add(offset)] = v
		return false, nil
	}))

	stage := 0
	return operation.NewDelegate(capture, func(context.Context) (operation.Operation, error) {
		stage++
		switch stage {
		case 1:
			return es.PrepareSetBlocks(r, replacement), nil
		case 2:
			paste := function.Func(func(p vec.Vec3) (bool, error) {
				return es.SetBlock(p, values[p])
			})
			return operation.NewPointVisitor(pointsOf(buffer, offset), int64(len(buffer)), paste), nil
		}
		return nil, nil
	})
}

func (es *EditSession) MoveRegion(ctx context.Context, r region.Region, dir vec.Vec3, distance int, copyAir bool, replacement pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareMoveRegion(r, dir, distance, copyAir, replacement))
}

// PrepareRegenerate заново генерирует ландшафт области. Маска сессии на время
// генерации снимается, изменения журналируются как обычно.
func (es *EditSession) PrepareRegenerate(r region.Region) operation.Operation {
	return operation.NewTask(func(ctx context.Context) (int, error) {
		saved := es.mask
		es.mask = nil
		defer func() { es.mask = saved }()

		before := es.changes
		if err := es.world.Regenerate(r, es); err != nil {
			return es.changes - before, fmt.Errorf("ошибка регенерации области: %w", err)
		}
		return es.changes - before, nil
	})
}

func (es *EditSession) Regenerate(ctx context.Context, r region.Region) (int, error) {
	return es.Run(ctx, es.PrepareRegenerate(r))
}

// PrepareRemoveEntities удаляет сущности области по флагам. nil-регистр означает стандартный.
// Удаление сущностей не журналируется.
func (es *EditSession) PrepareRemoveEntities(r region.Region, flags function.RemovalFlags, reg world.EntityRegistry) (operation.Operation, error) {
	if reg == nil {
		reg = world.NewDefaultEntityRegistry()
	}
	entities, err := es.world.Entities(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сущностей: %w", err)
	}
	return operation.NewEntityVisitor(entities, function.NewEntityRemover(es.world, reg, flags)), nil
}

func (es *EditSession) RemoveEntities(ctx context.Context, r region.Region, flags function.RemovalFlags, reg world.EntityRegistry) (int, error) {
	op, err := es.PrepareRemoveEntities(r, flags, reg)
	if err != nil {
		return 0, err
	}
	return es.Run(ctx, op)
}

// CountBlocks считает блоки области, прошедшие фильтр
func (es *EditSession) CountBlocks(ctx context.Context, r region.Region, filter mask.Mask) (int, error) {
	counter := &function.Counter{}
	v := operation.NewRegionVisitor(r, counter)
	v.Mask = filter
	_, err := operation.Run(ctx, v)
	return counter.Count(), err
}

// Countable число блоков одного вида
type Countable struct {
	Block  block.Value `json:"block"`
	Amount int         `json:"amount"`
}

// Distribution распределение блоков области по видам, по убыванию количества.
// Без separateData подтипы одного типа складываются.
func (es *EditSession) Distribution(ctx context.Context, r region.Region, separateData bool) ([]Countable, error) {
	type kind struct {
		id   block.BlockID
		data uint8
	}
	counts := make(map[kind]int)
	tally := function.Func(func(p vec.Vec3) (bool, error) {
		v, err := es.BlockAt(p)
		if err != nil {
			return false, err
		}
		key := kind{id: v.ID}
		if separateData {
			key.data = v.Data
		}
		counts[key]++
		return true, nil
	})
	if _, err := operation.Run(ctx, operation.NewRegionVisitor(r, tally)); err != nil {
		return nil, err
	}

	out := make([]Countable, 0, len(counts))
	for k, n := range counts {
		out = append(out, Countable{Block: block.NewValue(k.id, k.data), Amount: n})
	}
	slices.SortFunc(out, func(a, b Countable) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Block.ID, b.Block.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Block.Data, b.Block.Data)
	})
	return out, nil
}
