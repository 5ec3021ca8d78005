package function

import (
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

// ExtentBlockCopy копирует блок из источника в приёмник:
// dst = To + Transform(p - From)
type ExtentBlockCopy struct {
	Source      world.Extent
	From        vec.Vec3
	Destination Target
	To          vec.Vec3
	Transform   region.AffineTransform
	affected    int
}

// NewExtentBlockCopy создаёт функцию копирования без преобразования
func NewExtentBlockCopy(src world.Extent, from vec.Vec3, dst Target, to vec.Vec3) *ExtentBlockCopy {
	return &ExtentBlockCopy{Source: src, From: from, Destination: dst, To: to, Transform: region.Identity()}
}

func (c *ExtentBlockCopy) Apply(p vec.Vec3) (bool, error) {
	v, err := c.Source.BlockAt(p)
	if err != nil {
		return false, err
	}
	target := c.To.Add(c.Transform.ApplyVec3(p.Sub(c.From)))
	changed, err := c.Destination.SetBlock(target, v)
	if err != nil {
		return false, err
	}
	if changed {
		c.affected++
	}
	return changed, nil
}

func (c *ExtentBlockCopy) Affected() int { return c.affected }
