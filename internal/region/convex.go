package region

import (
	"iter"
	"math"
	"slices"

	"github.com/annel0/blockedit/internal/vec"
)

const hullEpsilon = 1e-9

// triangle грань оболочки. Нормаль не нормирована: координаты вершин целые,
// поэтому проверки полупространств точны.
type triangle struct {
	a, b, c vec.Vec3Float
	normal  vec.Vec3Float
	maxDot  float64
}

func newTriangle(a, b, c vec.Vec3Float) triangle {
	n := b.Sub(a).Cross(c.Sub(a))
	return triangle{a: a, b: b, c: c, normal: n, maxDot: n.Dot(a)}
}

// above точка строго снаружи грани
func (t triangle) above(p vec.Vec3Float) bool {
	return t.normal.Dot(p) > t.maxDot+hullEpsilon
}

type edge struct{ from, to vec.Vec3Float }

func (e edge) same(o edge) bool {
	return (e.from == o.from && e.to == o.to) || (e.from == o.to && e.to == o.from)
}

// ConvexPolyhedral выпуклая оболочка набора вершин.
// Оболочка обновляется инкрементально при добавлении вершины.
type ConvexPolyhedral struct {
	vertices  []vec.Vec3
	triangles []triangle
	planar    bool
	lo, hi    vec.Vec3
}

// NewConvexPolyhedral создаёт оболочку по списку вершин
func NewConvexPolyhedral(vertices ...vec.Vec3) *ConvexPolyhedral {
	c := &ConvexPolyhedral{}
	for _, v := range vertices {
		c.AddVertex(v)
	}
	return c
}

func (c *ConvexPolyhedral) Kind() Kind { return KindConvex }

// Vertices возвращает копию списка вершин
func (c *ConvexPolyhedral) Vertices() []vec.Vec3 { return slices.Clone(c.vertices) }

// IsDefined оболочка имеет хотя бы одну грань
func (c *ConvexPolyhedral) IsDefined() bool { return len(c.triangles) > 0 }

// AddVertex добавляет вершину. Повторная вершина не добавляется и даёт false.
func (c *ConvexPolyhedral) AddVertex(v vec.Vec3) bool {
	if slices.Contains(c.vertices, v) {
		return false
	}
	if len(c.vertices) == 0 {
		c.lo, c.hi = v, v
	} else {
		c.lo, c.hi = c.lo.Min(v), c.hi.Max(v)
	}
	c.vertices = append(c.vertices, v)

	if len(c.triangles) == 0 {
		c.seed()
		return true
	}
	p := v.ToFloat()
	if c.planar && c.coplanar(p) {
		// Плоская оболочка растёт внутри своей плоскости
		return true
	}
	wasPlanar := c.planar
	c.extend(p)
	if wasPlanar && !c.planar {
		c.reinsert()
	}
	return true
}

// reinsert повторно вставляет все вершины: при выходе оболочки из плоскости
// вершины, лежавшие в этой плоскости вне стартового треугольника, должны войти в неё.
func (c *ConvexPolyhedral) reinsert() {
	for _, v := range c.vertices {
		c.extend(v.ToFloat())
	}
}

// seed строит первую плоскую пару граней из первой неколлинеарной тройки вершин
// и достраивает оболочку остальными вершинами.
func (c *ConvexPolyhedral) seed() {
	n := len(c.vertices)
	if n < 3 {
		return
	}
	a := c.vertices[0].ToFloat()
	for i := 1; i < n; i++ {
		for j := i + 1; j < n; j++ {
			b, d := c.vertices[i].ToFloat(), c.vertices[j].ToFloat()
			if b.Sub(a).Cross(d.Sub(a)).LengthSq() == 0 {
				continue
			}
			c.triangles = []triangle{newTriangle(a, b, d), newTriangle(a, d, b)}
			c.planar = true
			for _, v := range c.vertices {
				p := v.ToFloat()
				if c.planar && c.coplanar(p) {
					continue
				}
				c.extend(p)
			}
			if !c.planar {
				c.reinsert()
			}
			return
		}
	}
}

// extend вставляет точку в оболочку: убирает видимые из неё грани
// и натягивает новые на их границу. Точка внутри оболочки ничего не меняет.
func (c *ConvexPolyhedral) extend(p vec.Vec3Float) {
	var border []edge
	kept := c.triangles[:0:0]
	for _, t := range c.triangles {
		if !t.above(p) {
			kept = append(kept, t)
			continue
		}
		for _, e := range []edge{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
			if idx := slices.IndexFunc(border, e.same); idx >= 0 {
				border = slices.Delete(border, idx, idx+1)
				continue
			}
			border = append(border, e)
		}
	}
	if len(border) == 0 {
		return
	}
	for _, e := range border {
		kept = append(kept, newTriangle(e.from, e.to, p))
	}
	c.triangles = kept
	c.planar = false
}

func (c *ConvexPolyhedral) coplanar(p vec.Vec3Float) bool {
	t := c.triangles[0]
	return math.Abs(t.normal.Dot(p)-t.maxDot) <= hullEpsilon
}

func (c *ConvexPolyhedral) MinimumPoint() vec.Vec3 { return c.lo }
func (c *ConvexPolyhedral) MaximumPoint() vec.Vec3 { return c.hi }

// Center центр масс вершин
func (c *ConvexPolyhedral) Center() vec.Vec3Float {
	if len(c.vertices) == 0 {
		return vec.Vec3Float{}
	}
	var sum vec.Vec3Float
	for _, v := range c.vertices {
		sum = sum.Add(v.ToFloat())
	}
	return sum.DivScalar(float64(len(c.vertices)))
}

func (c *ConvexPolyhedral) Width() int  { w, _, _ := boundingSize(c.lo, c.hi); return w }
func (c *ConvexPolyhedral) Height() int { _, h, _ := boundingSize(c.lo, c.hi); return h }
func (c *ConvexPolyhedral) Length() int { _, _, l := boundingSize(c.lo, c.hi); return l }

func (c *ConvexPolyhedral) Contains(p vec.Vec3) bool {
	if !c.IsDefined() || !p.ContainedWithin(c.lo, c.hi) {
		return false
	}
	pf := p.ToFloat()
	if c.planar {
		return c.coplanar(pf) && c.insidePlanar(pf)
	}
	for _, t := range c.triangles {
		if t.above(pf) {
			return false
		}
	}
	return true
}

// insidePlanar проверяет точку внутри выпуклого многоугольника вершин,
// спроецированного на плоскость с наибольшей компонентой нормали.
func (c *ConvexPolyhedral) insidePlanar(p vec.Vec3Float) bool {
	n := c.triangles[0].normal.Abs()
	project := func(v vec.Vec3Float) (float64, float64) {
		switch {
		case n.X >= n.Y && n.X >= n.Z:
			return v.Y, v.Z
		case n.Y >= n.Z:
			return v.X, v.Z
		default:
			return v.X, v.Y
		}
	}
	pts := make([][2]float64, 0, len(c.vertices))
	for _, v := range c.vertices {
		x, y := project(v.ToFloat())
		pts = append(pts, [2]float64{x, y})
	}
	hull := convexHull2D(pts)
	px, py := project(p)
	if len(hull) < 3 {
		return false
	}
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		cross := (b[0]-a[0])*(py-a[1]) - (b[1]-a[1])*(px-a[0])
		if cross < -hullEpsilon {
			return false
		}
	}
	return true
}

// convexHull2D монотонная цепочка Эндрю, обход против часовой стрелки
func convexHull2D(pts [][2]float64) [][2]float64 {
	slices.SortFunc(pts, func(a, b [2]float64) int {
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		switch {
		case a[1] < b[1]:
			return -1
		case a[1] > b[1]:
			return 1
		}
		return 0
	})
	pts = slices.Compact(pts)
	if len(pts) < 3 {
		return pts
	}
	cross := func(o, a, b [2]float64) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}
	hull := make([][2]float64, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func (c *ConvexPolyhedral) Iterate() iter.Seq[vec.Vec3] {
	if !c.IsDefined() {
		return func(func(vec.Vec3) bool) {}
	}
	return iterateBounded(c.lo, c.hi, c.Contains)
}

func (c *ConvexPolyhedral) Area() int64 { return countSeq(c.Iterate()) }

// Expand для выпуклой оболочки поддерживает только сдвиг целиком
func (c *ConvexPolyhedral) Expand(changes ...vec.Vec3) error {
	return &OperationError{Op: "expand", Reason: ReasonUnsupported}
}

func (c *ConvexPolyhedral) Contract(changes ...vec.Vec3) error {
	return &OperationError{Op: "contract", Reason: ReasonUnsupported}
}

func (c *ConvexPolyhedral) Shift(change vec.Vec3) error {
	shifted := make([]vec.Vec3, len(c.vertices))
	for i, v := range c.vertices {
		shifted[i] = v.Add(change)
	}
	*c = *NewConvexPolyhedral(shifted...)
	return nil
}

func (c *ConvexPolyhedral) Transform(t AffineTransform) (Region, error) {
	if t.IsAxisAligned() {
		moved := make([]vec.Vec3, len(c.vertices))
		for i, v := range c.vertices {
			moved[i] = t.ApplyVec3(v)
		}
		return NewConvexPolyhedral(moved...), nil
	}
	return NewTransformed(c.Clone(), t), nil
}

func (c *ConvexPolyhedral) AsFlatRegion() FlatRegion { return newProjectedFlat(c) }

func (c *ConvexPolyhedral) Polygonize(maxPoints int) []vec.Vec2 {
	pts := make([][2]float64, 0, len(c.vertices))
	for _, v := range c.vertices {
		pts = append(pts, [2]float64{float64(v.X), float64(v.Z)})
	}
	hull := convexHull2D(pts)
	out := make([]vec.Vec2, 0, len(hull))
	for _, h := range hull {
		out = append(out, vec.Vec2{X: int(h[0]), Z: int(h[1])})
	}
	return out
}

func (c *ConvexPolyhedral) Clone() Region {
	return NewConvexPolyhedral(c.vertices...)
}
