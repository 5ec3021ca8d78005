package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/util"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

func newWorld(t *testing.T) *world.MemoryWorld {
	t.Helper()
	w := world.NewMemoryWorld("mask")
	for _, c := range []struct {
		p vec.Vec3
		v block.Value
	}{
		{vec.New(0, 0, 0), block.Of(block.StoneBlockID)},
		{vec.New(1, 0, 0), block.NewValue(block.SandstoneBlockID, 2)},
		{vec.New(2, 0, 0), block.Of(block.WaterBlockID)},
	} {
		_, err := w.WriteBlock(c.p, c.v, world.PhysicsApply)
		require.NoError(t, err)
	}
	return w
}

func TestBlockMasks(t *testing.T) {
	w := newWorld(t)

	m := NewBlockMask(w, block.StoneBlockID, block.WaterBlockID)
	assert.True(t, m.Test(vec.New(0, 0, 0)))
	assert.False(t, m.Test(vec.New(1, 0, 0)))
	assert.True(t, m.Test(vec.New(2, 0, 0)))

	exact := NewExactBlockMask(w, block.NewValue(block.SandstoneBlockID, 1))
	assert.False(t, exact.Test(vec.New(1, 0, 0)), "данные блока не совпадают")

	existing := &ExistingBlockMask{Extent: w}
	assert.True(t, existing.Test(vec.New(0, 0, 0)))
	assert.False(t, existing.Test(vec.New(5, 0, 0)))

	solid := &SolidBlockMask{Extent: w}
	assert.True(t, solid.Test(vec.New(0, 0, 0)))
	assert.False(t, solid.Test(vec.New(2, 0, 0)), "вода не твёрдая")
}

func TestBooleanComposition(t *testing.T) {
	w := newWorld(t)
	stone := NewBlockMask(w, block.StoneBlockID)
	low := &BoundedHeightMask{MinY: 0, MaxY: 0}

	assert.True(t, And(stone, low).Test(vec.New(0, 0, 0)))
	assert.False(t, And(stone, low).Test(vec.New(2, 0, 0)))
	assert.True(t, Or(stone, low).Test(vec.New(2, 0, 0)))
	assert.False(t, Not(stone).Test(vec.New(0, 0, 0)))

	below := &OffsetMask{Mask: stone, Offset: vec.New(0, -1, 0)}
	assert.True(t, below.Test(vec.New(0, 1, 0)), "смещённая маска проверяет блок снизу")

	rm := &RegionMask{Region: region.NewCuboid(vec.Zero, vec.One)}
	assert.True(t, rm.Test(vec.One))
	assert.False(t, rm.Test(vec.New(2, 0, 0)))
}

func TestNoiseFilter_Density(t *testing.T) {
	f := NewNoiseFilter(util.NewRandomNoise(3), 0.25)
	passed := 0
	for x := 0; x < 4000; x++ {
		if f.Test(vec.New(x, 0, 0)) {
			passed++
		}
	}
	assert.InDelta(t, 1000, passed, 150, "проходит около четверти точек")

	f2 := NewNoiseFilter2D(util.NewRandomNoise(3), 1)
	for x := 0; x < 100; x++ {
		assert.True(t, f2.Test2D(vec.Vec2{X: x}), "плотность 1 пропускает все колонки")
	}
}

func TestExpressionMask(t *testing.T) {
	m, err := NewExpressionMask("y > 5")
	require.NoError(t, err)
	assert.True(t, m.Test(vec.New(0, 6, 0)))
	assert.False(t, m.Test(vec.New(0, 5, 0)))

	_, err = NewExpressionMask("y >")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	w := newWorld(t)
	m, err := Parse(w, "!stone,water #existing")
	require.NoError(t, err)
	assert.True(t, m.Test(vec.New(1, 0, 0)))
	assert.False(t, m.Test(vec.New(0, 0, 0)))
	assert.False(t, m.Test(vec.New(9, 0, 0)), "воздух не проходит #existing")

	m, err = Parse(w, "sandstone:2")
	require.NoError(t, err)
	assert.True(t, m.Test(vec.New(1, 0, 0)))

	_, err = Parse(w, "unobtainium")
	assert.Error(t, err)
}

func TestAsMask2D(t *testing.T) {
	w := newWorld(t)
	m2 := AsMask2D(NewBlockMask(w, block.StoneBlockID), 0)
	assert.True(t, m2.Test2D(vec.Vec2{X: 0, Z: 0}))
	assert.False(t, m2.Test2D(vec.Vec2{X: 1, Z: 0}))
}
