// Package region описывает геометрию областей мира: кубоид, цилиндр,
// эллипсоид, многоугольник по высоте и выпуклую оболочку.
// Области задаются параметрами формы и никогда не материализуются целиком.
package region

import (
	"iter"

	"github.com/annel0/blockedit/internal/vec"
)

// Kind тег варианта формы
type Kind int

const (
	KindCuboid Kind = iota
	KindCylinder
	KindEllipsoid
	KindPolygon2D
	KindConvex
	KindShell
	KindTransformed
)

// String возвращает имя формы
func (k Kind) String() string {
	switch k {
	case KindCuboid:
		return "cuboid"
	case KindCylinder:
		return "cylinder"
	case KindEllipsoid:
		return "ellipsoid"
	case KindPolygon2D:
		return "polygon2d"
	case KindConvex:
		return "convex"
	case KindShell:
		return "shell"
	case KindTransformed:
		return "transformed"
	default:
		return "unknown"
	}
}

// Region интенсиональное множество координат.
//
// Инварианты:
//   - MinimumPoint() <= MaximumPoint() покомпонентно для непустой области;
//   - каждая координата из Iterate() удовлетворяет Contains();
//   - Iterate() никогда не выдаёт координату вне ограничивающего параллелепипеда;
//   - повторный обход даёт то же множество.
//
// Expand/Contract/Shift либо изменяют параметры формы целиком,
// либо возвращают *OperationError и оставляют область нетронутой.
type Region interface {
	Kind() Kind
	MinimumPoint() vec.Vec3
	MaximumPoint() vec.Vec3
	Center() vec.Vec3Float
	Width() int
	Height() int
	Length() int
	Area() int64
	Contains(p vec.Vec3) bool
	Iterate() iter.Seq[vec.Vec3]
	Expand(changes ...vec.Vec3) error
	Contract(changes ...vec.Vec3) error
	Shift(change vec.Vec3) error
	Transform(t AffineTransform) (Region, error)
	AsFlatRegion() FlatRegion
	Polygonize(maxPoints int) []vec.Vec2
	Clone() Region
}

// Volume синоним Area для читаемости вызывающего кода
func Volume(r Region) int64 {
	return r.Area()
}

// IsEmpty проверяет, что область не содержит ни одной координаты
func IsEmpty(r Region) bool {
	for range r.Iterate() {
		return false
	}
	return true
}

// Collect материализует область в срез. Только для тестов и небольших областей.
func Collect(r Region) []vec.Vec3 {
	var out []vec.Vec3
	for p := range r.Iterate() {
		out = append(out, p)
	}
	return out
}

// ChunkColumns возвращает колонки чанков 16x16, которые задевает область
func ChunkColumns(r Region) []vec.Vec2 {
	lo := r.MinimumPoint().ToChunkCoords()
	hi := r.MaximumPoint().ToChunkCoords()
	if lo.X > hi.X || lo.Z > hi.Z {
		return nil
	}
	out := make([]vec.Vec2, 0, (hi.X-lo.X+1)*(hi.Z-lo.Z+1))
	for x := lo.X; x <= hi.X; x++ {
		for z := lo.Z; z <= hi.Z; z++ {
			out = append(out, vec.Vec2{X: x, Z: z})
		}
	}
	return out
}

// iterateBounded обходит параллелепипед [lo, hi] и отдаёт точки, проходящие contains.
// Порядок обхода: y по возрастанию, затем z, затем x.
func iterateBounded(lo, hi vec.Vec3, contains func(vec.Vec3) bool) iter.Seq[vec.Vec3] {
	return func(yield func(vec.Vec3) bool) {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for x := lo.X; x <= hi.X; x++ {
					p := vec.Vec3{X: x, Y: y, Z: z}
					if contains != nil && !contains(p) {
						continue
					}
					if !yield(p) {
						return
					}
				}
			}
		}
	}
}

func countSeq(seq iter.Seq[vec.Vec3]) int64 {
	var n int64
	for range seq {
		n++
	}
	return n
}

func boundingSize(lo, hi vec.Vec3) (w, h, l int) {
	if lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
		return 0, 0, 0
	}
	return hi.X - lo.X + 1, hi.Y - lo.Y + 1, hi.Z - lo.Z + 1
}

func centerOf(lo, hi vec.Vec3) vec.Vec3Float {
	return lo.ToFloat().Add(hi.ToFloat()).DivScalar(2)
}

func verticalOnly(op string, changes []vec.Vec3) error {
	for _, c := range changes {
		if c.X != 0 || c.Z != 0 {
			return &OperationError{Op: op, Reason: ReasonHorizontalUnsupported}
		}
	}
	return nil
}
