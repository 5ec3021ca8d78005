// Package clipboard хранит скопированный фрагмент мира оператора
// и вставляет его обратно через EditSession.
//
// Блоки лежат в плоском массиве ограничивающего параллелепипеда
// с индексом x + z*width + y*width*length относительно минимальной точки.
package clipboard

import (
	"math"
	"slices"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// Clipboard скопированная область. Transform накапливает повороты и отражения
// и применяется только при вставке: содержимое остаётся в исходной ориентации.
type Clipboard struct {
	Region    region.Region
	Origin    vec.Vec3
	Transform region.AffineTransform
	Entities  []world.Entity

	lo, hi        vec.Vec3
	width, length int
	blocks        []block.Value
	present       []bool // nil: принадлежность определяет Region
}

// New создаёт пустой буфер под область. Начало координат - минимальная точка.
func New(r region.Region) *Clipboard {
	lo, hi := r.MinimumPoint(), r.MaximumPoint()
	c := &Clipboard{Region: r.Clone(), Origin: lo, Transform: region.Identity(), lo: lo, hi: hi}
	d := hi.Sub(lo).Add(vec.One)
	if d.X > 0 && d.Y > 0 && d.Z > 0 {
		c.width, c.length = d.X, d.Z
		c.blocks = make([]block.Value, d.X*d.Y*d.Z)
	}
	return c
}

func (c *Clipboard) MinimumPoint() vec.Vec3 { return c.lo }
func (c *Clipboard) MaximumPoint() vec.Vec3 { return c.hi }

// Dimensions размер ограничивающего параллелепипеда без учёта поворота
func (c *Clipboard) Dimensions() vec.Vec3 {
	if c.blocks == nil {
		return vec.Zero
	}
	return c.hi.Sub(c.lo).Add(vec.One)
}

func (c *Clipboard) index(p vec.Vec3) (int, bool) {
	if c.blocks == nil || !p.ContainedWithin(c.lo, c.hi) {
		return 0, false
	}
	d := p.Sub(c.lo)
	return d.X + d.Z*c.width + d.Y*c.width*c.length, true
}

// Contains проверяет, что координата принадлежит скопированной области
func (c *Clipboard) Contains(p vec.Vec3) bool {
	i, ok := c.index(p)
	if !ok {
		return false
	}
	if c.present != nil {
		return c.present[i]
	}
	return c.Region.Contains(p)
}

// BlockAt возвращает сохранённый блок. Вне буфера - воздух.
func (c *Clipboard) BlockAt(p vec.Vec3) (block.Value, error) {
	i, ok := c.index(p)
	if !ok {
		return block.Air, nil
	}
	return c.blocks[i], nil
}

// SetBlock сохраняет блок в буфер. Координаты вне буфера игнорируются.
func (c *Clipboard) SetBlock(p vec.Vec3, v block.Value) (bool, error) {
	i, ok := c.index(p)
	if !ok {
		return false, nil
	}
	c.blocks[i] = v.Clone()
	return true, nil
}

// Volume число ячеек скопированной области
func (c *Clipboard) Volume() int64 {
	if c.present == nil {
		return c.Region.Area()
	}
	var n int64
	for _, ok := range c.present {
		if ok {
			n++
		}
	}
	return n
}

// Rotate добавляет поворот вокруг осей Y, X и Z. Положительный угол
// поворачивает по часовой стрелке. Углы должны быть кратны 90 градусам.
func (c *Clipboard) Rotate(y, x, z float64) error {
	for _, deg := range []float64{y, x, z} {
		if math.Abs(math.Mod(deg, 90)) > 0.001 {
			return &region.OperationError{Op: "rotate", Reason: region.ReasonNotAxisAligned}
		}
	}
	t := region.Identity().RotateY(-y).RotateX(-x).RotateZ(-z)
	c.Transform = c.Transform.Combine(t)
	return nil
}

// Flip добавляет отражение вдоль направления
func (c *Clipboard) Flip(dir vec.Vec3) {
	c.Transform = c.Transform.Combine(region.Flip(dir))
}

// ResetTransform сбрасывает накопленные повороты и отражения
func (c *Clipboard) ResetTransform() { c.Transform = region.Identity() }

// PastedRegion параллелепипед, который займёт вставка в точку to
func (c *Clipboard) PastedRegion(to vec.Vec3) *region.Cuboid {
	a := to.Add(c.Transform.ApplyVec3(c.lo.Sub(c.Origin)))
	b := a.Add(c.Transform.ApplyDirection(c.hi.Sub(c.lo).ToFloat()).Round())
	return region.NewCuboid(a, b)
}

// Clone создаёт независимую копию буфера
func (c *Clipboard) Clone() *Clipboard {
	out := *c
	out.Region = c.Region.Clone()
	out.Entities = slices.Clone(c.Entities)
	out.present = slices.Clone(c.present)
	out.blocks = make([]block.Value, len(c.blocks))
	for i, v := range c.blocks {
		out.blocks[i] = v.Clone()
	}
	return &out
}
