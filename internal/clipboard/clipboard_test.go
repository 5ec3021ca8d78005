package clipboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/cache"
	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

var ctx = context.Background()

func put(t *testing.T, w world.World, p vec.Vec3, v block.Value) {
	t.Helper()
	_, err := w.WriteBlock(p, v, world.PhysicsSkip)
	require.NoError(t, err)
}

func at(t *testing.T, w world.World, p vec.Vec3) block.Value {
	t.Helper()
	v, err := w.BlockAt(p)
	require.NoError(t, err)
	return v
}

// lineWorld мир с линией камень, земля, стекло вдоль X от (0,10,0)
func lineWorld(t *testing.T) (*world.MemoryWorld, region.Region) {
	w := world.NewMemoryWorld("test")
	put(t, w, vec.New(0, 10, 0), block.Of(block.StoneBlockID))
	put(t, w, vec.New(1, 10, 0), block.Of(block.DirtBlockID))
	put(t, w, vec.New(2, 10, 0), block.Of(block.GlassBlockID))
	return w, region.NewCuboid(vec.New(0, 10, 0), vec.New(2, 10, 0))
}

func TestCopyPasteTranslates(t *testing.T) {
	w, r := lineWorld(t)
	es := edit.New(w, "alice")

	cb, n, err := Copy(ctx, es, r, vec.New(0, 10, 0), CopyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, vec.New(3, 1, 1), cb.Dimensions())

	changed, err := cb.Paste(ctx, es, vec.New(10, 20, 5), false, false)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)
	assert.Equal(t, block.StoneBlockID, at(t, w, vec.New(10, 20, 5)).ID)
	assert.Equal(t, block.DirtBlockID, at(t, w, vec.New(11, 20, 5)).ID)
	assert.Equal(t, block.GlassBlockID, at(t, w, vec.New(12, 20, 5)).ID)

	t.Run("в исходную точку", func(t *testing.T) {
		put(t, w, vec.New(1, 10, 0), block.Air)
		changed, err := cb.Paste(ctx, es, vec.New(50, 50, 50), false, true)
		require.NoError(t, err)
		assert.Equal(t, 1, changed, "меняется только очищенная ячейка")
		assert.Equal(t, block.DirtBlockID, at(t, w, vec.New(1, 10, 0)).ID)
	})
}

func TestRotateQuarterTurn(t *testing.T) {
	w, r := lineWorld(t)
	es := edit.New(w, "alice")
	cb, _, err := Copy(ctx, es, r, vec.New(0, 10, 0), CopyOptions{})
	require.NoError(t, err)

	require.NoError(t, cb.Rotate(90, 0, 0))
	_, err = cb.Paste(ctx, es, vec.New(20, 10, 20), false, false)
	require.NoError(t, err)

	assert.Equal(t, block.StoneBlockID, at(t, w, vec.New(20, 10, 20)).ID)
	assert.Equal(t, block.DirtBlockID, at(t, w, vec.New(20, 10, 21)).ID)
	assert.Equal(t, block.GlassBlockID, at(t, w, vec.New(20, 10, 22)).ID)
	assert.True(t, at(t, w, vec.New(21, 10, 20)).IsAir(), "линия должна лечь вдоль Z")

	pasted := cb.PastedRegion(vec.New(20, 10, 20))
	assert.Equal(t, vec.New(20, 10, 20), pasted.MinimumPoint())
	assert.Equal(t, vec.New(20, 10, 22), pasted.MaximumPoint())

	t.Run("угол не кратен 90", func(t *testing.T) {
		before := cb.Transform
		err := cb.Rotate(45, 0, 0)
		var opErr *region.OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, region.ReasonNotAxisAligned, opErr.Reason)
		assert.Equal(t, before, cb.Transform, "преобразование не должно измениться")
	})
}

func TestFlipMirrorsAlongAxis(t *testing.T) {
	w, r := lineWorld(t)
	es := edit.New(w, "alice")
	cb, _, err := Copy(ctx, es, r, vec.New(0, 10, 0), CopyOptions{})
	require.NoError(t, err)

	cb.Flip(vec.UnitX)
	_, err = cb.Paste(ctx, es, vec.New(30, 10, 0), false, false)
	require.NoError(t, err)

	assert.Equal(t, block.StoneBlockID, at(t, w, vec.New(30, 10, 0)).ID)
	assert.Equal(t, block.DirtBlockID, at(t, w, vec.New(29, 10, 0)).ID)
	assert.Equal(t, block.GlassBlockID, at(t, w, vec.New(28, 10, 0)).ID)

	cb.Flip(vec.UnitX)
	assert.True(t, cb.Transform.IsIdentity(), "двойное отражение даёт тождество")
}

func TestCutLeavesPatternAndUndoes(t *testing.T) {
	w, r := lineWorld(t)
	es := edit.New(w, "alice")

	cb, n, err := Cut(ctx, es, r, vec.New(0, 10, 0), nil, CopyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for p := range r.Iterate() {
		assert.True(t, at(t, w, p).IsAir(), "после вырезания остаётся воздух в %v", p)
	}
	v, _ := cb.BlockAt(vec.New(1, 10, 0))
	assert.Equal(t, block.DirtBlockID, v.ID, "буфер хранит вырезанное")

	j := history.NewJournal(10)
	require.True(t, j.Commit(es.Transaction()))
	_, err = edit.New(w, "alice").Undo(j)
	require.NoError(t, err)
	assert.Equal(t, block.GlassBlockID, at(t, w, vec.New(2, 10, 0)).ID, "отмена возвращает блоки")
}

func TestPasteIgnoresAir(t *testing.T) {
	w, _ := lineWorld(t)
	es := edit.New(w, "alice")
	r := region.NewCuboid(vec.New(0, 10, 0), vec.New(3, 10, 0)) // последняя ячейка - воздух
	cb, _, err := Copy(ctx, es, r, vec.New(0, 10, 0), CopyOptions{})
	require.NoError(t, err)

	put(t, w, vec.New(13, 10, 0), block.Of(block.SandBlockID))
	changed, err := cb.Paste(ctx, es, vec.New(10, 10, 0), true, false)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)
	assert.Equal(t, block.SandBlockID, at(t, w, vec.New(13, 10, 0)).ID, "воздух буфера не затирает блок")
}

func TestCopyAndPasteEntities(t *testing.T) {
	w, r := lineWorld(t)
	w.AddEntity(world.Entity{TypeName: "cow", Kind: world.EntityKindPassive, Position: vec.NewFloat(1.5, 10, 0.5)})
	es := edit.New(w, "alice")

	cb, _, err := Copy(ctx, es, r, vec.New(0, 10, 0), CopyOptions{Entities: true})
	require.NoError(t, err)
	require.Len(t, cb.Entities, 1)

	_, err = cb.Paste(ctx, es, vec.New(0, 30, 0), false, false)
	require.NoError(t, err)
	all, err := w.Entities(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, vec.NewFloat(1.5, 30, 0.5), all[1].Position, "сущность сдвинута вместе с блоками")
}

func TestCodecKeepsShapeAndContent(t *testing.T) {
	w := world.NewMemoryWorld("test")
	sphere := region.NewSphere(vec.New(0, 20, 0), 2)
	for p := range sphere.Iterate() {
		put(t, w, p, block.Of(block.StoneBlockID))
	}
	chest := block.Value{ID: block.DirtBlockID, Data: 3, Attrs: block.Attributes{"label": "x"}}
	put(t, w, vec.New(0, 20, 0), chest)

	es := edit.New(w, "alice")
	cb, _, err := Copy(ctx, es, sphere, vec.New(0, 20, 0), CopyOptions{})
	require.NoError(t, err)
	require.NoError(t, cb.Rotate(180, 0, 0))

	data, err := Marshal(cb)
	require.NoError(t, err)
	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, cb.Volume(), decoded.Volume(), "число ячеек сохраняется")
	assert.Equal(t, cb.Origin, decoded.Origin)
	assert.Equal(t, cb.Transform, decoded.Transform)
	for p := range region.NewCuboid(cb.MinimumPoint(), cb.MaximumPoint()).Iterate() {
		assert.Equal(t, cb.Contains(p), decoded.Contains(p), "принадлежность %v", p)
	}
	v, _ := decoded.BlockAt(vec.New(0, 20, 0))
	assert.True(t, v.Equals(chest), "атрибуты блока сохраняются")

	// Вставка восстановленного буфера совпадает с вставкой исходного
	w1, w2 := world.NewMemoryWorld("a"), world.NewMemoryWorld("b")
	_, err = cb.Paste(ctx, edit.New(w1, "alice"), vec.New(5, 40, 5), false, false)
	require.NoError(t, err)
	_, err = decoded.Paste(ctx, edit.New(w2, "alice"), vec.New(5, 40, 5), false, false)
	require.NoError(t, err)
	for p := range region.NewCuboid(vec.New(2, 37, 2), vec.New(8, 43, 8)).Iterate() {
		assert.True(t, at(t, w1, p).Equals(at(t, w2, p)), "ячейка %v", p)
	}
}

func TestStores(t *testing.T) {
	w, r := lineWorld(t)
	cb, _, err := Copy(ctx, edit.New(w, "alice"), r, vec.New(0, 10, 0), CopyOptions{})
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"cache":  NewCacheStore(cache.NewMemoryCache(nil), 0),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "alice")
			assert.ErrorIs(t, err, ErrEmpty)

			require.NoError(t, s.Save(ctx, "alice", cb))
			got, err := s.Load(ctx, "alice")
			require.NoError(t, err)
			v, _ := got.BlockAt(vec.New(1, 10, 0))
			assert.Equal(t, block.DirtBlockID, v.ID)
			assert.Equal(t, cb.Dimensions(), got.Dimensions())

			require.NoError(t, s.Delete(ctx, "alice"))
			_, err = s.Load(ctx, "alice")
			assert.ErrorIs(t, err, ErrEmpty)
		})
	}
}
