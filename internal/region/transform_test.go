package region

import (
	"testing"

	"github.com/annel0/blockedit/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertRegionInvariants проверяет, что обход без повторов, согласован с Contains
// и границами, а Area равна числу клеток.
func assertRegionInvariants(t *testing.T, r Region) []vec.Vec3 {
	t.Helper()
	points := Collect(r)
	set := toSet(points)
	assert.Len(t, set, len(points), "Обход не должен выдавать повторы")
	assert.Equal(t, int64(len(points)), r.Area(), "Area должна совпадать с числом клеток")

	lo, hi := r.MinimumPoint(), r.MaximumPoint()
	for _, p := range points {
		assert.True(t, r.Contains(p), "Точка обхода %v должна содержаться", p)
		assert.True(t, p.ContainedWithin(lo, hi), "Точка %v вне границ %v-%v", p, lo, hi)
	}
	// каждая содержащаяся клетка с запасом вокруг границ встречается в обходе
	pad := vec.Vec3{X: 2, Y: 2, Z: 2}
	for x := lo.X - pad.X; x <= hi.X+pad.X; x++ {
		for y := lo.Y - pad.Y; y <= hi.Y+pad.Y; y++ {
			for z := lo.Z - pad.Z; z <= hi.Z+pad.Z; z++ {
				p := vec.Vec3{X: x, Y: y, Z: z}
				if r.Contains(p) {
					_, ok := set[p]
					assert.True(t, ok, "Клетка %v содержится, но пропущена обходом", p)
				}
			}
		}
	}
	return points
}

func TestTransformed_Rotate45(t *testing.T) {
	base := NewCuboid(vec.Vec3{}, vec.Vec3{X: 4, Y: 0, Z: 4})
	r, err := base.Transform(Rotate(45))
	require.NoError(t, err)
	require.Equal(t, KindTransformed, r.Kind())

	points := assertRegionInvariants(t, r)
	assert.NotEmpty(t, points)
	assert.True(t, r.Contains(vec.Vec3{}), "Начало координат остаётся на месте")
	for _, p := range points {
		assert.Equal(t, 0, p.Y, "Поворот вокруг Y не меняет высоту")
	}
}

func TestTransformed_ScaleDown(t *testing.T) {
	base := NewCuboid(vec.Vec3{}, vec.Vec3{X: 4, Y: 0, Z: 4})
	r, err := base.Transform(Identity().Scale(vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5}))
	require.NoError(t, err)

	points := assertRegionInvariants(t, r)
	assert.Len(t, points, 9, "Кубоид 5x1x5 при масштабе 0.5 занимает 3x1x3 клетки")
	assert.Equal(t, vec.Vec3{X: 2, Y: 0, Z: 2}, r.MaximumPoint())
}

func TestTransformed_ScaleUp(t *testing.T) {
	base := NewCuboid(vec.Vec3{}, vec.Vec3{X: 2, Y: 1, Z: 1})
	r, err := base.Transform(Identity().Scale(vec.Vec3Float{X: 2, Y: 2, Z: 2}))
	require.NoError(t, err)
	require.Equal(t, KindTransformed, r.Kind(), "Масштаб не сохраняет форму кубоида")

	points := assertRegionInvariants(t, r)
	assert.Len(t, points, 5*3*3, "Увеличенная область заполнена без дыр")
	assert.True(t, r.Contains(vec.Vec3{X: 1, Y: 0, Z: 0}), "Промежуточные клетки принадлежат области")
	assert.False(t, r.Contains(vec.Vec3{X: 5, Y: 0, Z: 0}))
	assert.Equal(t, vec.Vec3{}, r.MinimumPoint())
	assert.Equal(t, vec.Vec3{X: 4, Y: 2, Z: 2}, r.MaximumPoint())
	assert.Error(t, r.Expand(vec.Vec3{Y: 1}), "Преобразованную область нельзя расширять")
}

func TestTransformed_ShiftMovesBounds(t *testing.T) {
	base := NewCuboid(vec.Vec3{}, vec.Vec3{X: 4, Y: 0, Z: 4})
	r, err := base.Transform(Rotate(45))
	require.NoError(t, err)

	before := toSet(Collect(r))
	lo := r.MinimumPoint()
	require.NoError(t, r.Shift(vec.Vec3{X: 10, Y: 3}))

	assert.Equal(t, lo.Add(vec.Vec3{X: 10, Y: 3}), r.MinimumPoint(), "Границы пересчитываются после сдвига")
	after := toSet(Collect(r))
	assert.Len(t, after, len(before))
	for p := range before {
		_, ok := after[p.Add(vec.Vec3{X: 10, Y: 3})]
		assert.True(t, ok, "Сдвиг переносит каждую клетку %v", p)
	}
	assertRegionInvariants(t, r)
}
