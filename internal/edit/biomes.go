package edit

import (
	"context"

	"github.com/annel0/blockedit/internal/expression"
	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

var flatDirs = []vec.Vec2{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}

// columnMask проецирует маску сессии на колонки: колонка проходит,
// если маска пропускает хотя бы одну её ячейку внутри области
func columnMask(flat region.FlatRegion, m mask.Mask) mask.Mask2D {
	return mask.Func2D(func(v vec.Vec2) bool {
		lo, hi, ok := flat.ColumnRange(v)
		if !ok {
			return false
		}
		for y := lo; y <= hi; y++ {
			if m.Test(v.ToVec3(y)) {
				return true
			}
		}
		return false
	})
}

// biomeFunction оборачивает замену биома маской колонок, если у сессии есть маска
func (es *EditSession) biomeFunction(flat region.FlatRegion, replace *function.BiomeReplace) function.FlatFunction {
	if es.mask == nil {
		return replace
	}
	return &function.FlatRegionMaskingFilter{Mask: columnMask(flat, es.mask), Function: replace}
}

// PrepareSetBiomes ставит биом на все колонки проекции области
func (es *EditSession) PrepareSetBiomes(r region.Region, b world.BiomeType) (operation.Operation, *function.BiomeReplace) {
	flat := r.AsFlatRegion()
	replace := function.NewBiomeReplace(es, b)
	return operation.NewFlatRegionVisitor(flat, es.biomeFunction(flat, replace)), replace
}

func (es *EditSession) SetBiomes(ctx context.Context, r region.Region, b world.BiomeType) (int, error) {
	op, replace := es.PrepareSetBiomes(r, b)
	return es.Run(ctx, op, replace)
}

// PrepareMakeBiomeShape ставит биом на колонки, где формула от x, z положительна.
// Как и у PrepareMakeShape, все колонки вычисляются до первой записи.
// hollow оставляет только колонки на краю фигуры.
func (es *EditSession) PrepareMakeBiomeShape(r region.Region, zero, unit vec.Vec3Float, b world.BiomeType, expr string, hollow bool) (operation.Operation, *function.BiomeReplace, error) {
	prog, err := expression.Compile(expr, "x", "z")
	if err != nil {
		return nil, nil, err
	}

	flat := r.AsFlatRegion()
	shape := make(map[vec.Vec2]struct{})
	evaluate := operation.NewFlatRegionVisitor(flat, function.FlatFunc(func(c vec.Vec2) (bool, error) {
		x := (float64(c.X) - zero.X) / unit.X
		z := (float64(c.Z) - zero.Z) / unit.Z
		res, err := prog.Evaluate(x, z)
		if err != nil {
			return false, &ShapeEvaluationError{Pos: c.ToVec3(0), Err: err}
		}
		if res > 0 {
			shape[c] = struct{}{}
		}
		return false, nil
	}))

	replace := function.NewBiomeReplace(es, b)
	done := false
	return operation.NewDelegate(evaluate, func(context.Context) (operation.Operation, error) {
		if done {
			return nil, nil
		}
		done = true
		var columns []vec.Vec2
		for c := range flat.Iterate2D() {
			if _, ok := shape[c]; !ok {
				continue
			}
			if hollow && !columnOnEdge(c, shape) {
				continue
			}
			columns = append(columns, c)
		}
		fn := es.biomeFunction(flat, replace)
		seq := func(yield func(vec.Vec3) bool) {
			for _, c := range columns {
				if !yield(c.ToVec3(0)) {
					return
				}
			}
		}
		apply := function.Func(func(p vec.Vec3) (bool, error) {
			return fn.Apply2D(vec.Vec2{X: p.X, Z: p.Z})
		})
		return operation.NewPointVisitor(seq, int64(len(columns)), apply), nil
	}), replace, nil
}

func columnOnEdge(c vec.Vec2, shape map[vec.Vec2]struct{}) bool {
	for _, d := range flatDirs {
		if _, ok := shape[c.Add(d)]; !ok {
			return true
		}
	}
	return false
}

func (es *EditSession) MakeBiomeShape(ctx context.Context, r region.Region, zero, unit vec.Vec3Float, b world.BiomeType, expr string, hollow bool) (int, error) {
	op, replace, err := es.PrepareMakeBiomeShape(r, zero, unit, b, expr, hollow)
	if err != nil {
		return 0, err
	}
	return es.Run(ctx, op, replace)
}

// Biomes собирает различные биомы колонок области в порядке обхода
func (es *EditSession) Biomes(r region.Region) ([]world.BiomeType, error) {
	seen := make(map[world.BiomeType]bool)
	var out []world.BiomeType
	for c := range r.AsFlatRegion().Iterate2D() {
		b, err := es.BiomeAt(c)
		if err != nil {
			return nil, err
		}
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out, nil
}
