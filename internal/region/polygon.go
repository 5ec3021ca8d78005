package region

import (
	"iter"
	"slices"

	"github.com/annel0/blockedit/internal/vec"
)

// Polygon2D призма: многоугольник в плоскости XZ, вытянутый от MinY до MaxY
type Polygon2D struct {
	Points []vec.Vec2 `json:"points"`
	MinY   int        `json:"min_y"`
	MaxY   int        `json:"max_y"`
}

// NewPolygon2D создаёт призму. Точки копируются.
func NewPolygon2D(points []vec.Vec2, minY, maxY int) *Polygon2D {
	return &Polygon2D{Points: slices.Clone(points), MinY: min(minY, maxY), MaxY: max(minY, maxY)}
}

func (p *Polygon2D) Kind() Kind { return KindPolygon2D }

func (p *Polygon2D) bounds2D() (vec.Vec2, vec.Vec2) {
	if len(p.Points) == 0 {
		return vec.Vec2{}, vec.Vec2{}
	}
	lo, hi := p.Points[0], p.Points[0]
	for _, pt := range p.Points[1:] {
		lo, hi = lo.Min(pt), hi.Max(pt)
	}
	return lo, hi
}

func (p *Polygon2D) MinimumPoint() vec.Vec3 {
	lo, _ := p.bounds2D()
	return lo.ToVec3(p.MinY)
}

func (p *Polygon2D) MaximumPoint() vec.Vec3 {
	_, hi := p.bounds2D()
	return hi.ToVec3(p.MaxY)
}

func (p *Polygon2D) Center() vec.Vec3Float { return centerOf(p.MinimumPoint(), p.MaximumPoint()) }

func (p *Polygon2D) Width() int {
	w, _, _ := boundingSize(p.MinimumPoint(), p.MaximumPoint())
	return w
}
func (p *Polygon2D) Height() int {
	_, h, _ := boundingSize(p.MinimumPoint(), p.MaximumPoint())
	return h
}
func (p *Polygon2D) Length() int {
	_, _, l := boundingSize(p.MinimumPoint(), p.MaximumPoint())
	return l
}

// containsColumn проверка точки в многоугольнике методом пересечений,
// точки на рёбрах и в вершинах считаются внутренними.
func (p *Polygon2D) containsColumn(tx, tz int) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	inside := false
	prev := p.Points[n-1]
	for _, cur := range p.Points {
		if cur.X == tx && cur.Z == tz {
			return true
		}
		a, b := prev, cur
		if a.X > b.X {
			a, b = b, a
		}
		if a.X <= tx && tx <= b.X {
			cross := int64(tz-a.Z)*int64(b.X-a.X) - int64(b.Z-a.Z)*int64(tx-a.X)
			switch {
			case cross == 0:
				if (a.Z <= tz) == (tz <= b.Z) {
					return true
				}
			case cross < 0 && a.X != tx:
				inside = !inside
			}
		}
		prev = cur
	}
	return inside
}

func (p *Polygon2D) Contains(pt vec.Vec3) bool {
	if pt.Y < p.MinY || pt.Y > p.MaxY {
		return false
	}
	return p.containsColumn(pt.X, pt.Z)
}

func (p *Polygon2D) Iterate() iter.Seq[vec.Vec3] {
	if len(p.Points) < 3 {
		return func(func(vec.Vec3) bool) {}
	}
	return iterateBounded(p.MinimumPoint(), p.MaximumPoint(), p.Contains)
}

func (p *Polygon2D) Area() int64 {
	if len(p.Points) < 3 || p.MinY > p.MaxY {
		return 0
	}
	var columns int64
	for range p.AsFlatRegion().Iterate2D() {
		columns++
	}
	return columns * int64(p.MaxY-p.MinY+1)
}

// Expand меняет только высоту призмы
func (p *Polygon2D) Expand(changes ...vec.Vec3) error {
	if err := verticalOnly("expand", changes); err != nil {
		return err
	}
	for _, ch := range changes {
		if ch.Y > 0 {
			p.MaxY += ch.Y
		} else {
			p.MinY += ch.Y
		}
	}
	return nil
}

// Contract уменьшает высоту призмы
func (p *Polygon2D) Contract(changes ...vec.Vec3) error {
	if err := verticalOnly("contract", changes); err != nil {
		return err
	}
	minY, maxY := p.MinY, p.MaxY
	for _, ch := range changes {
		if ch.Y < 0 {
			maxY += ch.Y
		} else {
			minY += ch.Y
		}
	}
	if minY > maxY {
		return &OperationError{Op: "contract", Reason: ReasonDegenerate}
	}
	p.MinY, p.MaxY = minY, maxY
	return nil
}

func (p *Polygon2D) Shift(change vec.Vec3) error {
	d := change.ToVec2()
	for i := range p.Points {
		p.Points[i] = p.Points[i].Add(d)
	}
	p.MinY += change.Y
	p.MaxY += change.Y
	return nil
}

func (p *Polygon2D) Transform(t AffineTransform) (Region, error) {
	if t.IsAxisAligned() && t.PreservesVertical() {
		pts := make([]vec.Vec2, len(p.Points))
		for i, pt := range p.Points {
			pts[i] = t.ApplyVec3(pt.ToVec3(0)).ToVec2()
		}
		lo := t.ApplyVec3(vec.Vec3{Y: p.MinY}).Y
		hi := t.ApplyVec3(vec.Vec3{Y: p.MaxY}).Y
		return NewPolygon2D(pts, lo, hi), nil
	}
	return NewTransformed(p.Clone(), t), nil
}

func (p *Polygon2D) AsFlatRegion() FlatRegion { return &polygonFlat{poly: p} }

func (p *Polygon2D) Polygonize(maxPoints int) []vec.Vec2 { return slices.Clone(p.Points) }

// AddPoint добавляет вершину и расширяет высоту до её уровня
func (p *Polygon2D) AddPoint(pt vec.Vec3) {
	if len(p.Points) == 0 {
		p.MinY, p.MaxY = pt.Y, pt.Y
	}
	p.Points = append(p.Points, pt.ToVec2())
	p.MinY = min(p.MinY, pt.Y)
	p.MaxY = max(p.MaxY, pt.Y)
}

func (p *Polygon2D) Clone() Region {
	return NewPolygon2D(p.Points, p.MinY, p.MaxY)
}
