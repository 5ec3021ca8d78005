package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// mapTarget простой экстент на карте для тестов
type mapTarget struct {
	blocks map[vec.Vec3]block.Value
}

func newMapTarget() *mapTarget { return &mapTarget{blocks: map[vec.Vec3]block.Value{}} }

func (m *mapTarget) BlockAt(p vec.Vec3) (block.Value, error) {
	if v, ok := m.blocks[p]; ok {
		return v, nil
	}
	return block.Air, nil
}

func (m *mapTarget) SetBlock(p vec.Vec3, v block.Value) (bool, error) {
	old := m.blocks[p]
	if old.Equals(v) {
		return false, nil
	}
	m.blocks[p] = v
	return true, nil
}

func (m *mapTarget) MinimumPoint() vec.Vec3 { return vec.New(-1000, 0, -1000) }
func (m *mapTarget) MaximumPoint() vec.Vec3 { return vec.New(1000, 255, 1000) }

func (m *mapTarget) count(id block.BlockID) int {
	n := 0
	for _, v := range m.blocks {
		if v.ID == id {
			n++
		}
	}
	return n
}

func TestBlockReplaceCountsOnlyChanges(t *testing.T) {
	tgt := newMapTarget()
	tgt.blocks[vec.New(0, 0, 0)] = block.Of(block.StoneBlockID)

	fn := NewBlockReplace(tgt, pattern.Single(block.Of(block.StoneBlockID)))
	for p := range region.NewCuboid(vec.New(0, 0, 0), vec.New(1, 0, 1)).Iterate() {
		_, err := fn.Apply(p)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fn.Affected(), "уже каменный блок не должен считаться")
	assert.Equal(t, 4, tgt.count(block.StoneBlockID))
}

func TestRegionMaskingFilter(t *testing.T) {
	counter := &Counter{}
	f := &RegionMaskingFilter{Mask: mask.Func(func(p vec.Vec3) bool { return p.X%2 == 0 }), Function: counter}
	for x := 0; x < 10; x++ {
		_, err := f.Apply(vec.New(x, 0, 0))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, counter.Count())
}

func TestCombinedCountsCoordinateOnce(t *testing.T) {
	a, b := &Counter{}, &Counter{}
	c := Combine(a, b)
	for i := 0; i < 3; i++ {
		ok, err := c.Apply(vec.New(i, 0, 0))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 3, c.Affected())
	assert.Equal(t, 3, a.Count())
	assert.Equal(t, 3, b.Count())
}

func TestExtentBlockCopyWithTransform(t *testing.T) {
	src := newMapTarget()
	src.blocks[vec.New(1, 0, 0)] = block.Of(block.GlassBlockID)
	dst := newMapTarget()

	cp := NewExtentBlockCopy(src, vec.Zero, dst, vec.New(10, 0, 10))
	cp.Transform = region.Rotate(90)
	ok, err := cp.Apply(vec.New(1, 0, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	want := vec.New(10, 0, 10).Add(region.Rotate(90).ApplyVec3(vec.New(1, 0, 0)))
	v, _ := dst.BlockAt(want)
	assert.Equal(t, block.GlassBlockID, v.ID, "блок должен попасть в повёрнутую позицию")
}

func TestNaturalizerDepths(t *testing.T) {
	tgt := newMapTarget()
	n := NewNaturalizer(tgt)
	for depth := 0; depth < 6; depth++ {
		p := vec.New(0, 10-depth, 0)
		tgt.blocks[p] = block.Of(block.StoneBlockID)
		ok, err := n.Apply(p, depth)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	top, _ := tgt.BlockAt(vec.New(0, 10, 0))
	assert.Equal(t, block.GrassBlockID, top.ID)
	for y := 7; y <= 9; y++ {
		v, _ := tgt.BlockAt(vec.New(0, y, 0))
		assert.Equal(t, block.DirtBlockID, v.ID, "y=%d", y)
	}
	v, _ := tgt.BlockAt(vec.New(0, 6, 0))
	assert.Equal(t, block.StoneBlockID, v.ID)
}

func TestGroundFunctionAppliesOnlyAtSurface(t *testing.T) {
	counter := &Counter{}
	g := NewGroundFunction(mask.Always, counter)
	more, err := g.Apply(vec.New(0, 5, 0), 0)
	require.NoError(t, err)
	assert.False(t, more, "после поверхности колонка завершается")
	_, _ = g.Apply(vec.New(0, 4, 0), 1)
	assert.Equal(t, 1, counter.Count())
	assert.Equal(t, 1, g.Affected())
}

func TestTreeGeneratorPlantsOnGrassOnly(t *testing.T) {
	tgt := newMapTarget()
	tgt.blocks[vec.New(0, 10, 0)] = block.Of(block.GrassBlockID)
	tgt.blocks[vec.New(20, 10, 0)] = block.Of(block.StoneBlockID)

	g := NewTreeGenerator(tgt, TreeOak, 1)
	ok, err := g.Apply(vec.New(0, 10, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = g.Apply(vec.New(20, 10, 0))
	require.NoError(t, err)
	assert.False(t, ok, "на камне дерево не растёт")

	trunk, _ := tgt.BlockAt(vec.New(0, 11, 0))
	assert.Equal(t, block.LogBlockID, trunk.ID)
	assert.Positive(t, tgt.count(block.LeavesBlockID))
	assert.Equal(t, 1, g.Affected())
}

func TestTreeGeneratorClearsSnowLayer(t *testing.T) {
	tgt := newMapTarget()
	tgt.blocks[vec.New(0, 10, 0)] = block.Of(block.GrassBlockID)
	tgt.blocks[vec.New(0, 11, 0)] = block.Of(block.SnowBlockID)

	g := NewTreeGenerator(tgt, TreePine, 7)
	ok, err := g.Apply(vec.New(0, 11, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	v, _ := tgt.BlockAt(vec.New(0, 11, 0))
	assert.Equal(t, block.LogBlockID, v.ID, "снег заменён стволом")
}

func TestParseTreeType(t *testing.T) {
	typ, err := ParseTreeType("Birch")
	require.NoError(t, err)
	assert.Equal(t, TreeBirch, typ)
	_, err = ParseTreeType("palm")
	assert.Error(t, err)
}

func TestFloraGenerator(t *testing.T) {
	tgt := newMapTarget()
	for x := 0; x < 20; x++ {
		tgt.blocks[vec.New(x, 5, 0)] = block.Of(block.SandBlockID)
		tgt.blocks[vec.New(x, 5, 1)] = block.Of(block.GrassBlockID)
		tgt.blocks[vec.New(x, 5, 2)] = block.Of(block.StoneBlockID)
	}
	g := NewFloraGenerator(tgt, 3)
	for x := 0; x < 20; x++ {
		for z := 0; z < 3; z++ {
			_, err := g.Apply(vec.New(x, 5, z))
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 40, g.Affected())
	for x := 0; x < 20; x++ {
		desert, _ := tgt.BlockAt(vec.New(x, 6, 0))
		assert.Contains(t, []block.BlockID{block.DeadBushBlockID, block.CactusBlockID}, desert.ID)
		plain, _ := tgt.BlockAt(vec.New(x, 6, 1))
		assert.Contains(t, []block.BlockID{block.TallGrassBlockID, block.FlowerBlockID, block.RoseBlockID}, plain.ID)
		rock, _ := tgt.BlockAt(vec.New(x, 6, 2))
		assert.True(t, rock.IsAir(), "на камне ничего не растёт")
	}
}

func TestPumpkinPatch(t *testing.T) {
	tgt := newMapTarget()
	for x := -10; x <= 10; x++ {
		for z := -10; z <= 10; z++ {
			tgt.blocks[vec.New(x, 0, z)] = block.Of(block.GrassBlockID)
		}
	}
	g := NewPumpkinPatch(tgt, 11)
	ok, err := g.Apply(vec.New(0, 0, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	v, _ := tgt.BlockAt(vec.New(0, 1, 0))
	assert.Equal(t, block.PumpkinBlockID, v.ID)
}

func TestEntityRemoverFlags(t *testing.T) {
	w := world.NewMemoryWorld("test")
	reg := world.NewDefaultEntityRegistry()
	player := w.AddEntity(world.Entity{TypeName: "player", Kind: world.EntityKindPlayer})
	zombie := w.AddEntity(world.Entity{TypeName: "zombie", Kind: world.EntityKindHostile})
	wolf := w.AddEntity(world.Entity{TypeName: "wolf", Kind: world.EntityKindPassive, Tamed: true})
	cow := w.AddEntity(world.Entity{TypeName: "cow", Kind: world.EntityKindPassive})
	named := w.AddEntity(world.Entity{TypeName: "skeleton", Kind: world.EntityKindHostile, Named: true})

	r := NewEntityRemover(w, reg, RemovalFlags{Hostile: true, Passive: true})
	all, err := w.Entities(nil)
	require.NoError(t, err)
	for _, e := range all {
		_, err := r.ApplyEntity(e)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, r.Affected())

	left, _ := w.Entities(nil)
	ids := make([]uint64, 0, len(left))
	for _, e := range left {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []uint64{player, wolf, named}, ids)
	assert.NotContains(t, ids, zombie)
	assert.NotContains(t, ids, cow)
}

func TestEntityRemoverNeverRemovesPlayers(t *testing.T) {
	flags := RemovalFlags{Hostile: true, Passive: true, Ambient: true, Projectiles: true, Items: true,
		Golems: true, NPCs: true, Paintings: true, Tamed: true, Named: true}
	r := NewEntityRemover(nil, nil, flags)
	assert.False(t, r.Matches(world.Entity{Kind: world.EntityKindPlayer}))
	assert.True(t, r.Matches(world.Entity{Kind: world.EntityKindHostile, Named: true}))
}

func TestEntityRemoverResolvesUnknownKind(t *testing.T) {
	r := NewEntityRemover(nil, world.NewDefaultEntityRegistry(), ButcherFlags())
	assert.True(t, r.Matches(world.Entity{TypeName: "zombie"}))
	assert.False(t, r.Matches(world.Entity{TypeName: "cow"}))
}

// biomeMap приёмник биомов на карте
type biomeMap map[vec.Vec2]world.BiomeType

func (m biomeMap) SetBiome(v vec.Vec2, b world.BiomeType) (bool, error) {
	if m[v] == b {
		return false, nil
	}
	m[v] = b
	return true, nil
}

func TestBiomeReplaceCountsOnlyChanges(t *testing.T) {
	biomes := biomeMap{{X: 0, Z: 0}: world.BiomeDesert}
	fn := NewBiomeReplace(biomes, world.BiomeDesert)

	for x := 0; x < 3; x++ {
		_, err := fn.Apply2D(vec.Vec2{X: x, Z: 0})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fn.Affected(), "колонка с тем же биомом не считается")
	assert.Equal(t, world.BiomeDesert, biomes[vec.Vec2{X: 2, Z: 0}])
}

func TestFlatRegionMaskingFilterWithBiomes(t *testing.T) {
	biomes := biomeMap{}
	only := mask.Func2D(func(v vec.Vec2) bool { return v.X%2 == 0 })
	fn := &FlatRegionMaskingFilter{Mask: only, Function: NewBiomeReplace(biomes, world.BiomeTaiga)}

	for x := 0; x < 4; x++ {
		_, err := fn.Apply2D(vec.Vec2{X: x, Z: 1})
		require.NoError(t, err)
	}
	assert.Len(t, biomes, 2, "маска колонок пропускает только чётные x")
	_, skipped := biomes[vec.Vec2{X: 1, Z: 1}]
	assert.False(t, skipped)
}
