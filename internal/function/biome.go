package function

import (
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

// BiomeReplace ставит один биом на каждую посещённую колонку
type BiomeReplace struct {
	Target   world.BiomeSetter
	Biome    world.BiomeType
	affected int
}

// NewBiomeReplace создаёт функцию замены биома
func NewBiomeReplace(t world.BiomeSetter, b world.BiomeType) *BiomeReplace {
	return &BiomeReplace{Target: t, Biome: b}
}

func (f *BiomeReplace) Apply2D(v vec.Vec2) (bool, error) {
	changed, err := f.Target.SetBiome(v, f.Biome)
	if err != nil {
		return false, err
	}
	if changed {
		f.affected++
	}
	return changed, nil
}

func (f *BiomeReplace) Affected() int { return f.affected }
