package region

import (
	"iter"

	"github.com/annel0/blockedit/internal/vec"
)

// Cuboid прямоугольный параллелепипед, заданный двумя углами
type Cuboid struct {
	Pos1 vec.Vec3 `json:"pos1"`
	Pos2 vec.Vec3 `json:"pos2"`
}

// NewCuboid создаёт кубоид по двум углам в любом порядке
func NewCuboid(pos1, pos2 vec.Vec3) *Cuboid {
	return &Cuboid{Pos1: pos1, Pos2: pos2}
}

func (c *Cuboid) Kind() Kind { return KindCuboid }

func (c *Cuboid) MinimumPoint() vec.Vec3 { return c.Pos1.Min(c.Pos2) }
func (c *Cuboid) MaximumPoint() vec.Vec3 { return c.Pos1.Max(c.Pos2) }

func (c *Cuboid) Center() vec.Vec3Float { return centerOf(c.MinimumPoint(), c.MaximumPoint()) }

func (c *Cuboid) Width() int  { w, _, _ := boundingSize(c.MinimumPoint(), c.MaximumPoint()); return w }
func (c *Cuboid) Height() int { _, h, _ := boundingSize(c.MinimumPoint(), c.MaximumPoint()); return h }
func (c *Cuboid) Length() int { _, _, l := boundingSize(c.MinimumPoint(), c.MaximumPoint()); return l }

// Area возвращает количество блоков (dx+1)*(dy+1)*(dz+1)
func (c *Cuboid) Area() int64 {
	w, h, l := boundingSize(c.MinimumPoint(), c.MaximumPoint())
	return int64(w) * int64(h) * int64(l)
}

func (c *Cuboid) Contains(p vec.Vec3) bool {
	return p.ContainedWithin(c.MinimumPoint(), c.MaximumPoint())
}

func (c *Cuboid) Iterate() iter.Seq[vec.Vec3] {
	return iterateBounded(c.MinimumPoint(), c.MaximumPoint(), nil)
}

// Expand сдвигает грань кубоида, обращённую в сторону каждого вектора
func (c *Cuboid) Expand(changes ...vec.Vec3) error {
	p1, p2 := c.Pos1, c.Pos2
	for _, ch := range changes {
		p1, p2 = expandAxis(p1, p2, ch, false)
	}
	c.Pos1, c.Pos2 = p1, p2
	return nil
}

// Contract сдвигает противоположную грань внутрь. Если грани пересекаются,
// возвращается ошибка и кубоид не меняется.
func (c *Cuboid) Contract(changes ...vec.Vec3) error {
	p1, p2 := c.Pos1, c.Pos2
	lo, hi := p1.Min(p2), p1.Max(p2)
	for _, ch := range changes {
		p1, p2 = expandAxis(p1, p2, ch, true)
	}
	nlo, nhi := p1.Min(p2), p1.Max(p2)
	// Грань не может перейти через противоположную
	if nlo.X < lo.X || nlo.Y < lo.Y || nlo.Z < lo.Z || nhi.X > hi.X || nhi.Y > hi.Y || nhi.Z > hi.Z {
		return &OperationError{Op: "contract", Reason: ReasonDegenerate}
	}
	c.Pos1, c.Pos2 = p1, p2
	return nil
}

// expandAxis двигает угол, отвечающий за грань в направлении ch.
// При contract двигается противоположная грань.
func expandAxis(p1, p2, ch vec.Vec3, contract bool) (vec.Vec3, vec.Vec3) {
	move := func(a1, a2, d int) (int, int) {
		if d == 0 {
			return a1, a2
		}
		towardMax := d > 0
		if contract {
			towardMax = !towardMax
		}
		if towardMax {
			if a1 >= a2 {
				return a1 + d, a2
			}
			return a1, a2 + d
		}
		if a1 <= a2 {
			return a1 + d, a2
		}
		return a1, a2 + d
	}
	p1.X, p2.X = move(p1.X, p2.X, ch.X)
	p1.Y, p2.Y = move(p1.Y, p2.Y, ch.Y)
	p1.Z, p2.Z = move(p1.Z, p2.Z, ch.Z)
	return p1, p2
}

func (c *Cuboid) Shift(change vec.Vec3) error {
	c.Pos1 = c.Pos1.Add(change)
	c.Pos2 = c.Pos2.Add(change)
	return nil
}

// Transform для поворотов на 90 градусов, отражений и целых сдвигов возвращает кубоид,
// для остальных преобразований возвращает Transformed.
func (c *Cuboid) Transform(t AffineTransform) (Region, error) {
	if t.IsAxisAligned() {
		return NewCuboid(t.ApplyVec3(c.Pos1), t.ApplyVec3(c.Pos2)), nil
	}
	return NewTransformed(c.Clone(), t), nil
}

func (c *Cuboid) AsFlatRegion() FlatRegion {
	lo, hi := c.MinimumPoint(), c.MaximumPoint()
	return &cuboidFlat{lo: lo.ToVec2(), hi: hi.ToVec2(), minY: lo.Y, maxY: hi.Y}
}

func (c *Cuboid) Polygonize(maxPoints int) []vec.Vec2 {
	return boxPolygon(c.MinimumPoint(), c.MaximumPoint())
}

func (c *Cuboid) Clone() Region {
	cp := *c
	return &cp
}

// Walls возвращает боковые стенки кубоида (без пола и потолка)
func (c *Cuboid) Walls() Region {
	return &Shell{Lo: c.MinimumPoint(), Hi: c.MaximumPoint(), WithCaps: false}
}

// Faces возвращает все шесть граней кубоида
func (c *Cuboid) Faces() Region {
	return &Shell{Lo: c.MinimumPoint(), Hi: c.MaximumPoint(), WithCaps: true}
}

func boxPolygon(lo, hi vec.Vec3) []vec.Vec2 {
	return []vec.Vec2{
		{X: lo.X, Z: lo.Z},
		{X: hi.X, Z: lo.Z},
		{X: hi.X, Z: hi.Z},
		{X: lo.X, Z: hi.Z},
	}
}

// Shell оболочка параллелепипеда: боковые стенки и, при WithCaps, пол с потолком.
// Обход идёт только по поверхности.
type Shell struct {
	Lo, Hi   vec.Vec3
	WithCaps bool
}

func (s *Shell) Kind() Kind               { return KindShell }
func (s *Shell) MinimumPoint() vec.Vec3   { return s.Lo }
func (s *Shell) MaximumPoint() vec.Vec3   { return s.Hi }
func (s *Shell) Center() vec.Vec3Float    { return centerOf(s.Lo, s.Hi) }
func (s *Shell) Width() int               { w, _, _ := boundingSize(s.Lo, s.Hi); return w }
func (s *Shell) Height() int              { _, h, _ := boundingSize(s.Lo, s.Hi); return h }
func (s *Shell) Length() int              { _, _, l := boundingSize(s.Lo, s.Hi); return l }
func (s *Shell) Area() int64              { return countSeq(s.Iterate()) }
func (s *Shell) AsFlatRegion() FlatRegion { return newProjectedFlat(s) }

func (s *Shell) Contains(p vec.Vec3) bool {
	if !p.ContainedWithin(s.Lo, s.Hi) {
		return false
	}
	if p.X == s.Lo.X || p.X == s.Hi.X || p.Z == s.Lo.Z || p.Z == s.Hi.Z {
		return true
	}
	return s.WithCaps && (p.Y == s.Lo.Y || p.Y == s.Hi.Y)
}

func (s *Shell) Iterate() iter.Seq[vec.Vec3] {
	return func(yield func(vec.Vec3) bool) {
		if s.Lo.X > s.Hi.X || s.Lo.Y > s.Hi.Y || s.Lo.Z > s.Hi.Z {
			return
		}
		for y := s.Lo.Y; y <= s.Hi.Y; y++ {
			cap := s.WithCaps && (y == s.Lo.Y || y == s.Hi.Y)
			for z := s.Lo.Z; z <= s.Hi.Z; z++ {
				if cap || z == s.Lo.Z || z == s.Hi.Z {
					for x := s.Lo.X; x <= s.Hi.X; x++ {
						if !yield(vec.Vec3{X: x, Y: y, Z: z}) {
							return
						}
					}
					continue
				}
				if !yield(vec.Vec3{X: s.Lo.X, Y: y, Z: z}) {
					return
				}
				if s.Hi.X != s.Lo.X && !yield(vec.Vec3{X: s.Hi.X, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}

func (s *Shell) Expand(changes ...vec.Vec3) error {
	return &OperationError{Op: "expand", Reason: ReasonUnsupported}
}

func (s *Shell) Contract(changes ...vec.Vec3) error {
	return &OperationError{Op: "contract", Reason: ReasonUnsupported}
}

func (s *Shell) Shift(change vec.Vec3) error {
	s.Lo, s.Hi = s.Lo.Add(change), s.Hi.Add(change)
	return nil
}

func (s *Shell) Transform(t AffineTransform) (Region, error) {
	if t.IsAxisAligned() && (s.WithCaps || t.PreservesVertical()) {
		a, b := t.ApplyVec3(s.Lo), t.ApplyVec3(s.Hi)
		return &Shell{Lo: a.Min(b), Hi: a.Max(b), WithCaps: s.WithCaps}, nil
	}
	return NewTransformed(s.Clone(), t), nil
}

func (s *Shell) Polygonize(maxPoints int) []vec.Vec2 { return boxPolygon(s.Lo, s.Hi) }

func (s *Shell) Clone() Region {
	cp := *s
	return &cp
}
