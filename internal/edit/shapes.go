package edit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/annel0/blockedit/internal/expression"
	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// pointSet множество координат с сохранением порядка добавления
type pointSet struct {
	order []vec.Vec3
	index map[vec.Vec3]struct{}
}

func newPointSet() *pointSet {
	return &pointSet{index: make(map[vec.Vec3]struct{})}
}

func (s *pointSet) add(p vec.Vec3) {
	if _, ok := s.index[p]; ok {
		return
	}
	s.index[p] = struct{}{}
	s.order = append(s.order, p)
}

func (s *pointSet) has(p vec.Vec3) bool {
	_, ok := s.index[p]
	return ok
}

// inflate заменяет каждую точку шаром радиуса r
func (s *pointSet) inflate(r float64) *pointSet {
	if r <= 0 {
		return s
	}
	ceil := int(math.Ceil(r))
	out := newPointSet()
	for _, p := range s.order {
		for x := -ceil; x <= ceil; x++ {
			for y := -ceil; y <= ceil; y++ {
				for z := -ceil; z <= ceil; z++ {
					if float64(x*x+y*y+z*z) <= r*r {
						out.add(p.Add(vec.Vec3{X: x, Y: y, Z: z}))
					}
				}
			}
		}
	}
	return out
}

// hollow оставляет только точки, у которых есть сосед вне множества
func (s *pointSet) hollow() *pointSet {
	out := newPointSet()
	for _, p := range s.order {
		for _, d := range operation.DirectionsAll {
			if !s.has(p.Add(d)) {
				out.add(p)
				break
			}
		}
	}
	return out
}

func (s *pointSet) visit(fn function.Function) operation.Operation {
	pts := s.order
	seq := func(yield func(vec.Vec3) bool) {
		for _, p := range pts {
			if !yield(p) {
				return
			}
		}
	}
	return operation.NewPointVisitor(seq, int64(len(pts)), fn)
}

func javaRound(v float64) int { return int(math.Floor(v + 0.5)) }

// linePoints отрезок по доминирующей оси: на каждом шаге по ней
// остальные координаты округляются.
func linePoints(a, b vec.Vec3, out *pointSet) {
	d := b.Sub(a)
	ad := d.Abs()
	if ad.X+ad.Y+ad.Z == 0 {
		out.add(a)
		return
	}
	sign := func(v int) int {
		if v > 0 {
			return 1
		}
		return -1
	}
	dMax := max(ad.X, ad.Y, ad.Z)
	for step := 0; step <= dMax; step++ {
		t := float64(step) / float64(dMax)
		p := vec.Vec3{
			X: a.X + javaRound(t*float64(ad.X))*sign(d.X),
			Y: a.Y + javaRound(t*float64(ad.Y))*sign(d.Y),
			Z: a.Z + javaRound(t*float64(ad.Z))*sign(d.Z),
		}
		out.add(p)
	}
}

// PrepareDrawLine рисует отрезок толщиной radius
func (es *EditSession) PrepareDrawLine(p pattern.Pattern, a, b vec.Vec3, radius float64, filled bool) operation.Operation {
	pts := newPointSet()
	linePoints(a, b, pts)
	pts = pts.inflate(radius)
	if !filled && radius > 0 {
		pts = pts.hollow()
	}
	return pts.visit(function.NewBlockReplace(es, p))
}

func (es *EditSession) DrawLine(ctx context.Context, p pattern.Pattern, a, b vec.Vec3, radius float64, filled bool) (int, error) {
	return es.Run(ctx, es.PrepareDrawLine(p, a, b, radius, filled))
}

// SplineParams параметры кривой Кочанека-Бартелса
type SplineParams struct {
	Tension    float64
	Bias       float64
	Continuity float64
	Quality    float64 // точек на блок длины
}

// kbSegment точка сегмента i..i+1 кривой Кочанека-Бартелса в параметре s
func kbSegment(nodes []vec.Vec3Float, i int, s float64, k SplineParams) vec.Vec3Float {
	at := func(j int) vec.Vec3Float { return nodes[max(0, min(len(nodes)-1, j))] }
	p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)

	t, b, c := k.Tension, k.Bias, k.Continuity
	out := p1.Sub(p0).MulScalar((1 - t) * (1 + b) * (1 + c) / 2).
		Add(p2.Sub(p1).MulScalar((1 - t) * (1 - b) * (1 - c) / 2))
	in := p2.Sub(p1).MulScalar((1 - t) * (1 + b) * (1 - c) / 2).
		Add(p3.Sub(p2).MulScalar((1 - t) * (1 - b) * (1 + c) / 2))

	s2, s3 := s*s, s*s*s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return p1.MulScalar(h00).Add(out.MulScalar(h10)).Add(p2.MulScalar(h01)).Add(in.MulScalar(h11))
}

// splinePoints проходит кривую по узлам с шагом, зависящим от длины сегмента
func splinePoints(nodes []vec.Vec3, k SplineParams, out *pointSet) {
	if len(nodes) == 0 {
		return
	}
	if len(nodes) == 1 {
		out.add(nodes[0])
		return
	}
	if k.Quality <= 0 {
		k.Quality = 10
	}
	fn := make([]vec.Vec3Float, len(nodes))
	for i, n := range nodes {
		fn[i] = n.ToFloat()
	}
	const arcSamples = 16
	for i := 0; i < len(fn)-1; i++ {
		length := 0.0
		prev := kbSegment(fn, i, 0, k)
		for j := 1; j <= arcSamples; j++ {
			cur := kbSegment(fn, i, float64(j)/arcSamples, k)
			length += cur.Sub(prev).Length()
			prev = cur
		}
		steps := max(1, int(math.Ceil(length*k.Quality)))
		for j := 0; j <= steps; j++ {
			out.add(kbSegment(fn, i, float64(j)/float64(steps), k).Round())
		}
	}
}

// PrepareDrawSpline рисует гладкую кривую через узлы
func (es *EditSession) PrepareDrawSpline(p pattern.Pattern, nodes []vec.Vec3, params SplineParams, radius float64, filled bool) operation.Operation {
	pts := newPointSet()
	splinePoints(nodes, params, pts)
	pts = pts.inflate(radius)
	if !filled && radius > 0 {
		pts = pts.hollow()
	}
	return pts.visit(function.NewBlockReplace(es, p))
}

func (es *EditSession) DrawSpline(ctx context.Context, p pattern.Pattern, nodes []vec.Vec3, params SplineParams, radius float64, filled bool) (int, error) {
	return es.Run(ctx, es.PrepareDrawSpline(p, nodes, params, radius, filled))
}

// regionShape заполняет область; без filled только ячейки с соседом по dirs снаружи
func (es *EditSession) regionShape(r region.Region, p pattern.Pattern, filled bool, dirs []vec.Vec3) operation.Operation {
	v := operation.NewRegionVisitor(r, function.NewBlockReplace(es, p))
	if !filled {
		v.Mask = boundary(r, dirs)
	}
	return v
}

// PrepareMakeSphere строит эллипсоид с радиусами rx, ry, rz
func (es *EditSession) PrepareMakeSphere(pos vec.Vec3, p pattern.Pattern, rx, ry, rz float64, filled bool) operation.Operation {
	e := region.NewEllipsoid(pos, vec.NewFloat(rx, ry, rz))
	return es.regionShape(e, p, filled, operation.DirectionsAll)
}

func (es *EditSession) MakeSphere(ctx context.Context, pos vec.Vec3, p pattern.Pattern, rx, ry, rz float64, filled bool) (int, error) {
	return es.Run(ctx, es.PrepareMakeSphere(pos, p, rx, ry, rz, filled))
}

// PrepareMakeCylinder строит цилиндр высотой height от pos вверх.
// Отрицательная высота строит цилиндр вниз, под pos.
func (es *EditSession) PrepareMakeCylinder(pos vec.Vec3, p pattern.Pattern, rx, rz float64, height int, filled bool) operation.Operation {
	if height < 0 {
		height = -height
		pos = pos.Sub(vec.Vec3{Y: height})
	}
	c := region.NewCylinder(pos.ToVec2(), vec.Vec2Float{X: rx, Z: rz}, pos.Y, pos.Y+height-1)
	return es.regionShape(c, p, filled, horizontalDirs)
}

func (es *EditSession) MakeCylinder(ctx context.Context, pos vec.Vec3, p pattern.Pattern, rx, rz float64, height int, filled bool) (int, error) {
	return es.Run(ctx, es.PrepareMakeCylinder(pos, p, rx, rz, height, filled))
}

// PrepareMakePyramid строит пирамиду со стороной основания 2*size-1
func (es *EditSession) PrepareMakePyramid(pos vec.Vec3, p pattern.Pattern, size int, filled bool) operation.Operation {
	pts := newPointSet()
	height := size
	for y := 0; y <= height; y++ {
		size--
		for x := 0; x <= size; x++ {
			for z := 0; z <= size; z++ {
				if filled || x == size || z == size {
					pts.add(pos.Add(vec.New(x, y, z)))
					pts.add(pos.Add(vec.New(-x, y, z)))
					pts.add(pos.Add(vec.New(x, y, -z)))
					pts.add(pos.Add(vec.New(-x, y, -z)))
				}
			}
		}
	}
	return pts.visit(function.NewBlockReplace(es, p))
}

func (es *EditSession) MakePyramid(ctx context.Context, pos vec.Vec3, p pattern.Pattern, size int, filled bool) (int, error) {
	return es.Run(ctx, es.PrepareMakePyramid(pos, p, size, filled))
}

// scaled переводит координату блока в систему формулы: (p - zero) / unit
func scaled(p vec.Vec3, zero, unit vec.Vec3Float) vec.Vec3Float {
	return p.ToFloat().Sub(zero).Div(unit)
}

// PrepareMakeShape строит фигуру по формуле с переменными x, y, z, type, data.
// Блок ставится там, где формула положительна; присваивание type или data
// заменяет блок шаблона. Все ячейки вычисляются до первой записи, поэтому
// ошибка вычисления прерывает команду без изменений мира.
func (es *EditSession) PrepareMakeShape(r region.Region, zero, unit vec.Vec3Float, p pattern.Pattern, expr string, hollow bool) (operation.Operation, error) {
	prog, err := expression.Compile(expr, "x", "y", "z", "type", "data")
	if err != nil {
		return nil, err
	}

	shape := make(map[vec.Vec3]block.Value)
	evaluate := operation.NewRegionVisitor(r, function.Func(func(pos vec.Vec3) (bool, error) {
		def := p.Apply(pos)
		s := scaled(pos, zero, unit)
		res, bound, err := prog.EvaluateBound(s.X, s.Y, s.Z, float64(def.ID), float64(def.Data))
		if err != nil {
			return false, &ShapeEvaluationError{Pos: pos, Err: err}
		}
		if res <= 0 {
			return false, nil
		}
		v, err := shapeBlock(expr, def, bound[3], bound[4])
		if err != nil {
			return false, &ShapeEvaluationError{Pos: pos, Err: err}
		}
		shape[pos] = v
		return false, nil
	}))

	done := false
	return operation.NewDelegate(evaluate, func(context.Context) (operation.Operation, error) {
		if done {
			return nil, nil
		}
		done = true
		pts := newPointSet()
		for pos := range r.Iterate() {
			if _, ok := shape[pos]; !ok {
				continue
			}
			if hollow && !hasOutsideNeighbour(pos, shape) {
				continue
			}
			pts.add(pos)
		}
		write := function.Func(func(pos vec.Vec3) (bool, error) {
			return es.SetBlock(pos, shape[pos])
		})
		return pts.visit(write), nil
	}), nil
}

// shapeBlock проверяет значения type и data после вычисления формулы:
// тип должен быть зарегистрированным целым, data целым в диапазоне 0..255.
func shapeBlock(expr string, def block.Value, typ, data float64) (block.Value, error) {
	if typ == float64(def.ID) && data == float64(def.Data) {
		return def, nil
	}
	if !isWhole(typ) || typ < 0 || typ > math.MaxUint16 || !block.IsValidBlockID(block.BlockID(typ)) {
		return block.Value{}, &expression.EvaluationError{
			Pos: max(strings.Index(expr, "type"), 0),
			Msg: fmt.Sprintf("недопустимый тип блока %v", typ),
		}
	}
	if !isWhole(data) || data < 0 || data > math.MaxUint8 {
		return block.Value{}, &expression.EvaluationError{
			Pos: max(strings.Index(expr, "data"), 0),
			Msg: fmt.Sprintf("недопустимое значение data %v", data),
		}
	}
	id, d := block.BlockID(typ), uint8(data)
	if id == def.ID && d == def.Data {
		return def, nil
	}
	return block.NewValue(id, d), nil
}

func isWhole(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
}

func hasOutsideNeighbour(p vec.Vec3, shape map[vec.Vec3]block.Value) bool {
	for _, d := range operation.DirectionsAll {
		if _, ok := shape[p.Add(d)]; !ok {
			return true
		}
	}
	return false
}

func (es *EditSession) MakeShape(ctx context.Context, r region.Region, zero, unit vec.Vec3Float, p pattern.Pattern, expr string, hollow bool) (int, error) {
	op, err := es.PrepareMakeShape(r, zero, unit, p, expr, hollow)
	if err != nil {
		return 0, err
	}
	return es.Run(ctx, op)
}

// PrepareDeform деформирует область формулой, переприсваивающей x, y, z:
// каждая ячейка получает блок из точки, в которую формула отобразила её координату.
// Источники читаются до первой записи.
func (es *EditSession) PrepareDeform(r region.Region, zero, unit vec.Vec3Float, expr string) (operation.Operation, error) {
	prog, err := expression.Compile(expr, "x", "y", "z")
	if err != nil {
		return nil, err
	}

	var moved []cell
	capture := operation.NewRegionVisitor(r, function.Func(func(pos vec.Vec3) (bool, error) {
		s := scaled(pos, zero, unit)
		_, bound, err := prog.EvaluateBound(s.X, s.Y, s.Z)
		if err != nil {
			return false, &ShapeEvaluationError{Pos: pos, Err: err}
		}
		src := vec.NewFloat(bound[0], bound[1], bound[2]).Mul(unit).Add(zero).Round()
		v, err := es.BlockAt(src)
		if err != nil {
			return false, err
		}
		moved = append(moved, cell{pos: pos, val: v})
		return false, nil
	}))

	done := false
	return operation.NewDelegate(capture, func(context.Context) (operation.Operation, error) {
		if done {
			return nil, nil
		}
		done = true
		values := make(map[vec.Vec3]block.Value, len(moved))
		for _, c := range moved {
			values[c.pos] = c.val
		}
		write := function.Func(func(pos vec.Vec3) (bool, error) {
			return es.SetBlock(pos, values[pos])
		})
		return operation.NewPointVisitor(pointsOf(moved, vec.Zero), int64(len(moved)), write), nil
	}), nil
}

func (es *EditSession) Deform(ctx context.Context, r region.Region, zero, unit vec.Vec3Float, expr string) (int, error) {
	op, err := es.PrepareDeform(r, zero, unit, expr)
	if err != nil {
		return 0, err
	}
	return es.Run(ctx, op)
}

// PrepareHollowOutRegion выдалбливает область, оставляя оболочку толщиной thickness.
// Снаружи считаются ячейки за пределами области и проходимые блоки,
// достижимые от граней области. Остальное, кроме оболочки, заполняется шаблоном.
func (es *EditSession) PrepareHollowOutRegion(r region.Region, thickness int, p pattern.Pattern) operation.Operation {
	outside := make(map[vec.Vec3]struct{})
	isOutside := func(pos vec.Vec3) bool {
		if !r.Contains(pos) {
			return true
		}
		_, ok := outside[pos]
		return ok
	}
	touchesOutside := func(pos vec.Vec3) bool {
		for _, d := range operation.DirectionsAll {
			if isOutside(pos.Add(d)) {
				return true
			}
		}
		return false
	}

	passable := mask.And(&mask.RegionMask{Region: r}, mask.Func(func(pos vec.Vec3) bool {
		v, err := es.BlockAt(pos)
		return err == nil && block.CanPassThrough(v.ID)
	}))
	record := function.Func(func(pos vec.Vec3) (bool, error) {
		outside[pos] = struct{}{}
		return false, nil
	})
	flood := operation.NewRecursiveVisitor(passable, record)
	faces := &region.Shell{Lo: r.MinimumPoint(), Hi: r.MaximumPoint(), WithCaps: true}
	for pos := range faces.Iterate() {
		if passable.Test(pos) {
			flood.Visit(pos)
		}
	}

	stage := 0
	return operation.NewDelegate(flood, func(context.Context) (operation.Operation, error) {
		stage++
		switch stage {
		case 1:
			return operation.NewTask(func(ctx context.Context) (int, error) {
				for i := 1; i < thickness; i++ {
					var layer []vec.Vec3
					for pos := range r.Iterate() {
						if !isOutside(pos) && touchesOutside(pos) {
							layer = append(layer, pos)
						}
					}
					for _, pos := range layer {
						outside[pos] = struct{}{}
					}
					if err := ctx.Err(); err != nil {
						return 0, err
					}
				}
				return 0, nil
			}), nil
		case 2:
			v := operation.NewRegionVisitor(r, function.NewBlockReplace(es, p))
			v.Mask = mask.Func(func(pos vec.Vec3) bool {
				return !isOutside(pos) && !touchesOutside(pos)
			})
			return v, nil
		}
		return nil, nil
	})
}

func (es *EditSession) HollowOutRegion(ctx context.Context, r region.Region, thickness int, p pattern.Pattern) (int, error) {
	return es.Run(ctx, es.PrepareHollowOutRegion(r, thickness, p))
}

// IsShapeError проверяет, что ошибка возникла при вычислении формулы фигуры
func IsShapeError(err error) bool {
	var se *ShapeEvaluationError
	return errors.As(err, &se)
}
