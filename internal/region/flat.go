package region

import (
	"iter"

	"github.com/annel0/blockedit/internal/vec"
)

// FlatRegion проекция области на плоскость XZ: множество колонок, которые она задевает.
// MinimumBlockY/MaximumBlockY ограничивают высоту колонок; ColumnRange уточняет
// вертикальный диапазон конкретной колонки.
type FlatRegion interface {
	Iterate2D() iter.Seq[vec.Vec2]
	Contains2D(v vec.Vec2) bool
	MinimumBlockY() int
	MaximumBlockY() int
	ColumnRange(v vec.Vec2) (lo, hi int, ok bool)
}

type cuboidFlat struct {
	lo, hi     vec.Vec2
	minY, maxY int
}

func (f *cuboidFlat) Iterate2D() iter.Seq[vec.Vec2] {
	return func(yield func(vec.Vec2) bool) {
		for z := f.lo.Z; z <= f.hi.Z; z++ {
			for x := f.lo.X; x <= f.hi.X; x++ {
				if !yield(vec.Vec2{X: x, Z: z}) {
					return
				}
			}
		}
	}
}

func (f *cuboidFlat) Contains2D(v vec.Vec2) bool {
	return v.X >= f.lo.X && v.X <= f.hi.X && v.Z >= f.lo.Z && v.Z <= f.hi.Z
}

func (f *cuboidFlat) MinimumBlockY() int { return f.minY }
func (f *cuboidFlat) MaximumBlockY() int { return f.maxY }

func (f *cuboidFlat) ColumnRange(v vec.Vec2) (int, int, bool) {
	return f.minY, f.maxY, f.Contains2D(v)
}

type cylinderFlat struct {
	cyl *Cylinder
}

func (f *cylinderFlat) Iterate2D() iter.Seq[vec.Vec2] {
	lo, hi := f.cyl.MinimumPoint(), f.cyl.MaximumPoint()
	return func(yield func(vec.Vec2) bool) {
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				if !f.cyl.containsColumn(x, z) {
					continue
				}
				if !yield(vec.Vec2{X: x, Z: z}) {
					return
				}
			}
		}
	}
}

func (f *cylinderFlat) Contains2D(v vec.Vec2) bool { return f.cyl.containsColumn(v.X, v.Z) }
func (f *cylinderFlat) MinimumBlockY() int         { return f.cyl.MinY }
func (f *cylinderFlat) MaximumBlockY() int         { return f.cyl.MaxY }

func (f *cylinderFlat) ColumnRange(v vec.Vec2) (int, int, bool) {
	return f.cyl.MinY, f.cyl.MaxY, f.Contains2D(v)
}

type polygonFlat struct {
	poly *Polygon2D
}

func (f *polygonFlat) Iterate2D() iter.Seq[vec.Vec2] {
	lo, hi := f.poly.bounds2D()
	return func(yield func(vec.Vec2) bool) {
		if len(f.poly.Points) < 3 {
			return
		}
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				if !f.poly.containsColumn(x, z) {
					continue
				}
				if !yield(vec.Vec2{X: x, Z: z}) {
					return
				}
			}
		}
	}
}

func (f *polygonFlat) Contains2D(v vec.Vec2) bool { return f.poly.containsColumn(v.X, v.Z) }
func (f *polygonFlat) MinimumBlockY() int         { return f.poly.MinY }
func (f *polygonFlat) MaximumBlockY() int         { return f.poly.MaxY }

func (f *polygonFlat) ColumnRange(v vec.Vec2) (int, int, bool) {
	return f.poly.MinY, f.poly.MaxY, f.Contains2D(v)
}

// projectedFlat общая проекция для форм без собственного плоского представления.
// Колонка входит в проекцию, если в ней есть хотя бы одна точка области.
type projectedFlat struct {
	r Region
}

func newProjectedFlat(r Region) FlatRegion {
	return &projectedFlat{r: r}
}

func (f *projectedFlat) Iterate2D() iter.Seq[vec.Vec2] {
	lo, hi := f.r.MinimumPoint(), f.r.MaximumPoint()
	return func(yield func(vec.Vec2) bool) {
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				v := vec.Vec2{X: x, Z: z}
				if _, _, ok := f.ColumnRange(v); !ok {
					continue
				}
				if !yield(v) {
					return
				}
			}
		}
	}
}

func (f *projectedFlat) Contains2D(v vec.Vec2) bool {
	_, _, ok := f.ColumnRange(v)
	return ok
}

func (f *projectedFlat) MinimumBlockY() int { return f.r.MinimumPoint().Y }
func (f *projectedFlat) MaximumBlockY() int { return f.r.MaximumPoint().Y }

func (f *projectedFlat) ColumnRange(v vec.Vec2) (int, int, bool) {
	lo, hi := f.r.MinimumPoint(), f.r.MaximumPoint()
	if v.X < lo.X || v.X > hi.X || v.Z < lo.Z || v.Z > hi.Z {
		return 0, 0, false
	}
	top, bottom := 0, 0
	found := false
	for y := lo.Y; y <= hi.Y; y++ {
		if !f.r.Contains(v.ToVec3(y)) {
			continue
		}
		if !found {
			bottom = y
			found = true
		}
		top = y
	}
	return bottom, top, found
}
