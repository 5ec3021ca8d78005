package function

import (
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// GroundFunction находит поверхность колонки и один раз применяет к ней функцию
type GroundFunction struct {
	Mask     mask.Mask // что считать землёй
	Function Function
	affected int
}

// NewGroundFunction создаёт функцию поверхности
func NewGroundFunction(m mask.Mask, fn Function) *GroundFunction {
	return &GroundFunction{Mask: m, Function: fn}
}

func (g *GroundFunction) IsGround(p vec.Vec3) bool { return g.Mask.Test(p) }

// Apply применяет функцию только к поверхности и завершает колонку
func (g *GroundFunction) Apply(p vec.Vec3, depth int) (bool, error) {
	if depth == 0 {
		ok, err := g.Function.Apply(p)
		if err != nil {
			return false, err
		}
		if ok {
			g.affected++
		}
	}
	return false, nil
}

func (g *GroundFunction) Affected() int { return g.affected }

// Naturalizer превращает естественный грунт в слои: трава, три слоя земли, камень
type Naturalizer struct {
	Target   Target
	affected int
}

// NewNaturalizer создаёт функцию натурализации
func NewNaturalizer(t Target) *Naturalizer {
	return &Naturalizer{Target: t}
}

func (n *Naturalizer) natural(p vec.Vec3) bool {
	v, err := n.Target.BlockAt(p)
	if err != nil {
		return false
	}
	return v.ID == block.GrassBlockID || v.ID == block.DirtBlockID || v.ID == block.StoneBlockID
}

func (n *Naturalizer) IsGround(p vec.Vec3) bool { return n.natural(p) }

func (n *Naturalizer) Apply(p vec.Vec3, depth int) (bool, error) {
	if !n.natural(p) {
		return false, nil
	}
	var v block.Value
	switch {
	case depth == 0:
		v = block.Of(block.GrassBlockID)
	case depth < 4:
		v = block.Of(block.DirtBlockID)
	default:
		v = block.Of(block.StoneBlockID)
	}
	changed, err := n.Target.SetBlock(p, v)
	if err != nil {
		return false, err
	}
	if changed {
		n.affected++
	}
	return true, nil
}

func (n *Naturalizer) Affected() int { return n.affected }
