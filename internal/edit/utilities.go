package edit

import (
	"context"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/util"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// sphereMask пропускает точки шара радиуса radius с центром pos
func sphereMask(pos vec.Vec3, radius float64) mask.Mask {
	return &mask.RegionMask{Region: region.NewSphere(pos, radius)}
}

// cubeAround куб со стороной 2*apothem-1 с центром pos
func cubeAround(pos vec.Vec3, apothem int) *region.Cuboid {
	d := vec.Vec3{X: apothem - 1, Y: apothem - 1, Z: apothem - 1}
	return region.NewCuboid(pos.Sub(d), pos.Add(d))
}

// PrepareDrain убирает жидкость, связанную с точкой pos, в пределах радиуса
func (es *EditSession) PrepareDrain(pos vec.Vec3, radius float64) operation.Operation {
	liquid := mask.Func(func(p vec.Vec3) bool {
		v, err := es.BlockAt(p)
		return err == nil && block.IsLiquid(v.ID)
	})
	lo, hi := es.MinimumPoint(), es.MaximumPoint()
	m := mask.And(&mask.BoundedHeightMask{MinY: lo.Y, MaxY: hi.Y}, sphereMask(pos, radius), liquid)

	v := operation.NewRecursiveVisitor(m, function.NewBlockReplace(es, pattern.Single(block.Air)))
	for p := range cubeAround(pos, 2).Iterate() {
		if m.Test(p) {
			v.Visit(p)
		}
	}
	return v
}

func (es *EditSession) Drain(ctx context.Context, pos vec.Vec3, radius float64) (int, error) {
	return es.Run(ctx, es.PrepareDrain(pos, radius))
}

// PrepareFixLiquid заливает неподвижной жидкостью текущую жидкость и пустоты
// вокруг pos, не поднимаясь выше pos
func (es *EditSession) PrepareFixLiquid(pos vec.Vec3, radius float64, moving, stationary block.BlockID) operation.Operation {
	liquid := mask.NewBlockMask(es, moving, stationary)
	fillable := mask.Or(liquid, mask.NewBlockMask(es, block.AirBlockID))
	lo, hi := es.MinimumPoint(), es.MaximumPoint()
	m := mask.And(
		&mask.BoundedHeightMask{MinY: lo.Y, MaxY: min(pos.Y, hi.Y)},
		sphereMask(pos, radius),
		fillable,
	)

	v := operation.NewNonRisingVisitor(m, function.NewBlockReplace(es, pattern.Single(block.Of(stationary))))
	for p := range cubeAround(pos, 2).Iterate() {
		if liquid.Test(p) {
			v.Visit(p)
		}
	}
	return v
}

func (es *EditSession) FixLiquid(ctx context.Context, pos vec.Vec3, radius float64, moving, stationary block.BlockID) (int, error) {
	return es.Run(ctx, es.PrepareFixLiquid(pos, radius, moving, stationary))
}

// PrepareRemoveAbove очищает колонну над pos высотой height
func (es *EditSession) PrepareRemoveAbove(pos vec.Vec3, apothem, height int) operation.Operation {
	r := region.NewCuboid(
		pos.Add(vec.New(-apothem+1, 0, -apothem+1)),
		pos.Add(vec.New(apothem-1, height-1, apothem-1)),
	)
	return es.PrepareSetBlocks(r, pattern.Single(block.Air))
}

func (es *EditSession) RemoveAbove(ctx context.Context, pos vec.Vec3, apothem, height int) (int, error) {
	return es.Run(ctx, es.PrepareRemoveAbove(pos, apothem, height))
}

// PrepareRemoveBelow очищает колонну под pos глубиной height
func (es *EditSession) PrepareRemoveBelow(pos vec.Vec3, apothem, height int) operation.Operation {
	r := region.NewCuboid(
		pos.Add(vec.New(-apothem+1, 0, -apothem+1)),
		pos.Add(vec.New(apothem-1, -height+1, apothem-1)),
	)
	return es.PrepareSetBlocks(r, pattern.Single(block.Air))
}

func (es *EditSession) RemoveBelow(ctx context.Context, pos vec.Vec3, apothem, height int) (int, error) {
	return es.Run(ctx, es.PrepareRemoveBelow(pos, apothem, height))
}

// PrepareRemoveNear убирает блоки, прошедшие фильтр, в кубе вокруг pos
func (es *EditSession) PrepareRemoveNear(pos vec.Vec3, filter mask.Mask, apothem int) operation.Operation {
	return es.PrepareReplaceBlocks(cubeAround(pos, apothem), filter, pattern.Single(block.Air))
}

func (es *EditSession) RemoveNear(ctx context.Context, pos vec.Vec3, filter mask.Mask, apothem int) (int, error) {
	return es.Run(ctx, es.PrepareRemoveNear(pos, filter, apothem))
}

// PrepareReplaceNear заменяет блоки, прошедшие фильтр, в кубе вокруг pos
func (es *EditSession) PrepareReplaceNear(pos vec.Vec3, filter mask.Mask, apothem int, p pattern.Pattern) operation.Operation {
	return es.PrepareReplaceBlocks(cubeAround(pos, apothem), filter, p)
}

func (es *EditSession) ReplaceNear(ctx context.Context, pos vec.Vec3, filter mask.Mask, apothem int, p pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareReplaceNear(pos, filter, apothem, p))
}

// PrepareExtinguish тушит огонь вокруг pos
func (es *EditSession) PrepareExtinguish(pos vec.Vec3, radius int) operation.Operation {
	return es.PrepareRemoveNear(pos, mask.NewBlockMask(es, block.FireBlockID), radius)
}

func (es *EditSession) Extinguish(ctx context.Context, pos vec.Vec3, radius int) (int, error) {
	return es.Run(ctx, es.PrepareExtinguish(pos, radius))
}

// PrepareFillXZ заполняет пустоту вокруг pos не выше pos и не глубже depth.
// Без recursive заполнение растекается по горизонтали только на уровне pos
// и дальше идёт вниз.
func (es *EditSession) PrepareFillXZ(pos vec.Vec3, p pattern.Pattern, radius float64, depth int, recursive bool) operation.Operation {
	lo, hi := es.MinimumPoint(), es.MaximumPoint()
	m := mask.And(
		sphereMask(pos, radius),
		&mask.BoundedHeightMask{MinY: max(pos.Y-depth+1, lo.Y), MaxY: min(hi.Y, pos.Y)},
		mask.Not(&mask.ExistingBlockMask{Extent: es}),
	)
	replace := function.NewBlockReplace(es, p)
	var v *operation.RecursiveVisitor
	if recursive {
		v = operation.NewRecursiveVisitor(m, replace)
	} else {
		v = operation.NewDownwardVisitor(m, replace, pos.Y)
	}
	v.Visit(pos)
	return v
}

func (es *EditSession) FillXZ(ctx context.Context, pos vec.Vec3, p pattern.Pattern, radius float64, depth int, recursive bool) (int, error) {
	return es.Run(ctx, es.PrepareFillXZ(pos, p, radius, depth, recursive))
}

// columnScan обходит колонки круга радиуса radius вокруг pos сверху вниз:
// step получает каждую ячейку и решает, продолжать ли спуск.
func (es *EditSession) columnScan(pos vec.Vec3, radius float64, step func(p vec.Vec3, v block.Value) (changed, more bool, err error)) operation.Operation {
	lo, hi := es.MinimumPoint(), es.MaximumPoint()
	cyl := region.NewCylinder(pos.ToVec2(), vec.Vec2Float{X: radius, Z: radius}, lo.Y, hi.Y)
	column := function.FlatFunc(func(c vec.Vec2) (bool, error) {
		hit := false
		for y := hi.Y; y > lo.Y; y-- {
			p := c.ToVec3(y)
			v, err := es.BlockAt(p)
			if err != nil {
				return hit, err
			}
			changed, more, err := step(p, v)
			if err != nil {
				return hit, err
			}
			hit = hit || changed
			if !more {
				break
			}
		}
		return hit, nil
	})
	return operation.NewFlatRegionVisitor(cyl.AsFlatRegion(), column)
}

// PrepareSimulateSnow замораживает воду и укрывает снегом верхние блоки
func (es *EditSession) PrepareSimulateSnow(pos vec.Vec3, radius float64) operation.Operation {
	top := es.MaximumPoint().Y
	return es.columnScan(pos, radius, func(p vec.Vec3, v block.Value) (bool, bool, error) {
		switch {
		case v.IsAir():
			return false, true, nil
		case block.IsWater(v.ID):
			changed, err := es.SetBlock(p, block.Of(block.IceBlockID))
			return changed, false, err
		case block.IsTranslucent(v.ID), p.Y == top:
			return false, false, nil
		}
		changed, err := es.SetBlock(p.Add(vec.UnitY), block.Of(block.SnowBlockID))
		return changed, false, err
	})
}

func (es *EditSession) SimulateSnow(ctx context.Context, pos vec.Vec3, radius float64) (int, error) {
	return es.Run(ctx, es.PrepareSimulateSnow(pos, radius))
}

// PrepareThaw убирает снег и растапливает лёд
func (es *EditSession) PrepareThaw(pos vec.Vec3, radius float64) operation.Operation {
	return es.columnScan(pos, radius, func(p vec.Vec3, v block.Value) (bool, bool, error) {
		switch v.ID {
		case block.SnowBlockID:
			changed, err := es.SetBlock(p, block.Air)
			return changed, true, err
		case block.IceBlockID:
			changed, err := es.SetBlock(p, block.Of(block.StationaryWaterBlockID))
			return changed, false, err
		case block.AirBlockID:
			return false, true, nil
		}
		return false, false, nil
	})
}

func (es *EditSession) Thaw(ctx context.Context, pos vec.Vec3, radius float64) (int, error) {
	return es.Run(ctx, es.PrepareThaw(pos, radius))
}

// PrepareGreen превращает верхнюю землю в траву. С onlyNormalDirt
// подтипы земли не трогаются.
func (es *EditSession) PrepareGreen(pos vec.Vec3, radius float64, onlyNormalDirt bool) operation.Operation {
	return es.columnScan(pos, radius, func(p vec.Vec3, v block.Value) (bool, bool, error) {
		switch {
		case v.ID == block.DirtBlockID && (!onlyNormalDirt || v.Data == 0):
			changed, err := es.SetBlock(p, block.Of(block.GrassBlockID))
			return changed, false, err
		case block.IsLiquid(v.ID):
			return false, false, nil
		case block.CanPassThrough(v.ID):
			return false, true, nil
		}
		return false, false, nil
	})
}

func (es *EditSession) Green(ctx context.Context, pos vec.Vec3, radius float64, onlyNormalDirt bool) (int, error) {
	return es.Run(ctx, es.PrepareGreen(pos, radius, onlyNormalDirt))
}

// groundLayer применяет функцию к поверхности колонок области,
// отобранных случайным шумом с плотностью density
func (es *EditSession) groundLayer(r region.Region, density float64, fn function.Function) operation.Operation {
	ground := function.NewGroundFunction(&mask.ExistingBlockMask{Extent: es}, fn)
	lo, hi := r.MinimumPoint(), r.MaximumPoint()
	v := operation.NewLayerVisitor(r.AsFlatRegion(), lo.Y, hi.Y, ground)
	v.Mask = mask.NewNoiseFilter2D(util.NewRandomNoise(es.nextSeed()), density)
	return v
}

// PrepareMakeForest сажает деревья на поверхности области. density от 0 до 1.
func (es *EditSession) PrepareMakeForest(r region.Region, density float64, typ function.TreeType) (operation.Operation, *function.TreeGenerator) {
	gen := function.NewTreeGenerator(es, typ, es.nextSeed())
	return es.groundLayer(r, density, gen), gen
}

func (es *EditSession) MakeForest(ctx context.Context, r region.Region, density float64, typ function.TreeType) (int, error) {
	op, gen := es.PrepareMakeForest(r, density, typ)
	return es.Run(ctx, op, gen)
}

// PrepareMakeFlora сажает траву и цветы на траве, кактусы и сухие кусты на песке
func (es *EditSession) PrepareMakeFlora(r region.Region, density float64) (operation.Operation, *function.FloraGenerator) {
	gen := function.NewFloraGenerator(es, es.nextSeed())
	return es.groundLayer(r, density, gen), gen
}

func (es *EditSession) MakeFlora(ctx context.Context, r region.Region, density float64) (int, error) {
	op, gen := es.PrepareMakeFlora(r, density)
	return es.Run(ctx, op, gen)
}

// pumpkinDensity доля колонок, на которых появляется грядка
const pumpkinDensity = 0.02

// PrepareMakePumpkinPatches разбивает тыквенные грядки вокруг pos
func (es *EditSession) PrepareMakePumpkinPatches(pos vec.Vec3, apothem int) (operation.Operation, *function.PumpkinPatch) {
	r := region.NewCuboid(pos.Add(vec.New(-apothem, -5, -apothem)), pos.Add(vec.New(apothem, 10, apothem)))
	gen := function.NewPumpkinPatch(es, es.nextSeed())
	return es.groundLayer(r, pumpkinDensity, gen), gen
}

func (es *EditSession) MakePumpkinPatches(ctx context.Context, pos vec.Vec3, apothem int) (int, error) {
	op, gen := es.PrepareMakePumpkinPatches(pos, apothem)
	return es.Run(ctx, op, gen)
}
