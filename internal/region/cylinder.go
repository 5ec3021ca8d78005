package region

import (
	"iter"
	"math"

	"github.com/annel0/blockedit/internal/vec"
)

// Cylinder вертикальный эллиптический цилиндр
type Cylinder struct {
	CenterXZ vec.Vec2      `json:"center"`
	Radius   vec.Vec2Float `json:"radius"`
	MinY     int           `json:"min_y"`
	MaxY     int           `json:"max_y"`
}

// NewCylinder создаёт цилиндр. Радиусы отрицательными быть не могут.
func NewCylinder(center vec.Vec2, radius vec.Vec2Float, minY, maxY int) *Cylinder {
	return &Cylinder{
		CenterXZ: center,
		Radius:   vec.Vec2Float{X: math.Max(0, radius.X), Z: math.Max(0, radius.Z)},
		MinY:     minY,
		MaxY:     maxY,
	}
}

func (c *Cylinder) Kind() Kind { return KindCylinder }

// effective радиусы с поправкой на полблока, чтобы радиус 0 давал один столбец
func (c *Cylinder) effective() (float64, float64) {
	return c.Radius.X + 0.5, c.Radius.Z + 0.5
}

func (c *Cylinder) extent() (int, int) {
	ex, ez := c.effective()
	return int(math.Floor(ex)), int(math.Floor(ez))
}

func (c *Cylinder) MinimumPoint() vec.Vec3 {
	rx, rz := c.extent()
	return vec.Vec3{X: c.CenterXZ.X - rx, Y: c.MinY, Z: c.CenterXZ.Z - rz}
}

func (c *Cylinder) MaximumPoint() vec.Vec3 {
	rx, rz := c.extent()
	return vec.Vec3{X: c.CenterXZ.X + rx, Y: c.MaxY, Z: c.CenterXZ.Z + rz}
}

func (c *Cylinder) Center() vec.Vec3Float {
	return vec.Vec3Float{X: float64(c.CenterXZ.X), Y: float64(c.MinY+c.MaxY) / 2, Z: float64(c.CenterXZ.Z)}
}

func (c *Cylinder) Width() int { w, _, _ := boundingSize(c.MinimumPoint(), c.MaximumPoint()); return w }
func (c *Cylinder) Height() int {
	_, h, _ := boundingSize(c.MinimumPoint(), c.MaximumPoint())
	return h
}
func (c *Cylinder) Length() int {
	_, _, l := boundingSize(c.MinimumPoint(), c.MaximumPoint())
	return l
}

func (c *Cylinder) containsColumn(x, z int) bool {
	ex, ez := c.effective()
	dx := float64(x-c.CenterXZ.X) / ex
	dz := float64(z-c.CenterXZ.Z) / ez
	return dx*dx+dz*dz <= 1
}

func (c *Cylinder) Contains(p vec.Vec3) bool {
	if p.Y < c.MinY || p.Y > c.MaxY {
		return false
	}
	return c.containsColumn(p.X, p.Z)
}

func (c *Cylinder) Iterate() iter.Seq[vec.Vec3] {
	return iterateBounded(c.MinimumPoint(), c.MaximumPoint(), c.Contains)
}

func (c *Cylinder) Area() int64 {
	if c.MinY > c.MaxY {
		return 0
	}
	var columns int64
	for range c.AsFlatRegion().Iterate2D() {
		columns++
	}
	return columns * int64(c.MaxY-c.MinY+1)
}

// Expand меняет только высоту цилиндра
func (c *Cylinder) Expand(changes ...vec.Vec3) error {
	if err := verticalOnly("expand", changes); err != nil {
		return err
	}
	for _, ch := range changes {
		if ch.Y > 0 {
			c.MaxY += ch.Y
		} else {
			c.MinY += ch.Y
		}
	}
	return nil
}

// Contract уменьшает высоту цилиндра
func (c *Cylinder) Contract(changes ...vec.Vec3) error {
	if err := verticalOnly("contract", changes); err != nil {
		return err
	}
	minY, maxY := c.MinY, c.MaxY
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
	c.MinY, c.MaxY = minY, maxY
	return nil
}

func (c *Cylinder) Shift(change vec.Vec3) error {
	c.CenterXZ = c.CenterXZ.Add(change.ToVec2())
	c.MinY += change.Y
	c.MaxY += change.Y
	return nil
}

func (c *Cylinder) Transform(t AffineTransform) (Region, error) {
	if t.IsAxisAligned() && t.PreservesVertical() {
		center := t.ApplyVec3(vec.Vec3{X: c.CenterXZ.X, Y: c.MinY, Z: c.CenterXZ.Z})
		top := t.ApplyVec3(vec.Vec3{X: c.CenterXZ.X, Y: c.MaxY, Z: c.CenterXZ.Z})
		r := t.ApplyDirection(vec.Vec3Float{X: c.Radius.X, Z: c.Radius.Z}).Abs()
		return NewCylinder(center.ToVec2(), vec.Vec2Float{X: r.X, Z: r.Z}, min(center.Y, top.Y), max(center.Y, top.Y)), nil
	}
	return NewTransformed(c.Clone(), t), nil
}

func (c *Cylinder) AsFlatRegion() FlatRegion {
	return &cylinderFlat{cyl: c}
}

// Polygonize аппроксимирует контур эллипса многоугольником
func (c *Cylinder) Polygonize(maxPoints int) []vec.Vec2 {
	ex, ez := c.effective()
	n := maxPoints
	if n <= 0 || n > 64 {
		n = 32
	}
	if n < 3 {
		n = 3
	}
	out := make([]vec.Vec2, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		out = append(out, vec.Vec2{
			X: c.CenterXZ.X + int(math.Round(math.Cos(a)*(ex-0.5))),
			Z: c.CenterXZ.Z + int(math.Round(math.Sin(a)*(ez-0.5))),
		})
	}
	return out
}

func (c *Cylinder) Clone() Region {
	cp := *c
	return &cp
}
