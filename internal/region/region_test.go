package region

import (
	"testing"

	"github.com/annel0/blockedit/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toSet(points []vec.Vec3) map[vec.Vec3]struct{} {
	set := make(map[vec.Vec3]struct{}, len(points))
	for _, p := range points {
		set[p] = struct{}{}
	}
	return set
}

func TestCuboid_IterateCount(t *testing.T) {
	cases := []struct {
		a, b vec.Vec3
	}{
		{vec.Vec3{X: 0, Y: 0, Z: 0}, vec.Vec3{X: 2, Y: 2, Z: 2}},
		{vec.Vec3{X: 5, Y: -3, Z: 7}, vec.Vec3{X: -1, Y: 4, Z: 7}},
		{vec.Vec3{X: 1, Y: 1, Z: 1}, vec.Vec3{X: 1, Y: 1, Z: 1}},
	}
	for _, tc := range cases {
		c := NewCuboid(tc.a, tc.b)
		lo, hi := c.MinimumPoint(), c.MaximumPoint()
		want := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1) * (hi.Z - lo.Z + 1)

		points := Collect(c)
		assert.Len(t, points, want, "Количество точек кубоида %v-%v", tc.a, tc.b)
		assert.Len(t, toSet(points), want, "Все точки должны быть уникальны")
		assert.Equal(t, int64(want), c.Area())
		for _, p := range points {
			assert.True(t, c.Contains(p), "Каждая точка обхода должна содержаться в области")
		}
	}
}

func TestCuboid_ExpandContract(t *testing.T) {
	c := NewCuboid(vec.Vec3{X: 0, Y: 0, Z: 0}, vec.Vec3{X: 4, Y: 4, Z: 4})

	require.NoError(t, c.Expand(vec.Vec3{X: 2}, vec.Vec3{Y: -1}))
	assert.Equal(t, vec.Vec3{X: 0, Y: -1, Z: 0}, c.MinimumPoint())
	assert.Equal(t, vec.Vec3{X: 6, Y: 4, Z: 4}, c.MaximumPoint())

	require.NoError(t, c.Contract(vec.Vec3{X: 2}))
	assert.Equal(t, vec.Vec3{X: 2, Y: -1, Z: 0}, c.MinimumPoint(), "Contract по +X сдвигает минимальную грань")

	before := *c
	err := c.Contract(vec.Vec3{Z: 10})
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr, "Сжатие за пределы должно давать OperationError")
	assert.Equal(t, ReasonDegenerate, opErr.Reason)
	assert.Equal(t, before, *c, "При ошибке кубоид не должен меняться")
}

func TestTransform_Equivalence(t *testing.T) {
	regions := map[string]Region{
		"cuboid":    NewCuboid(vec.Vec3{X: 1, Y: 2, Z: 3}, vec.Vec3{X: 4, Y: 3, Z: 8}),
		"cylinder":  NewCylinder(vec.Vec2{X: 3, Z: -2}, vec.Vec2Float{X: 3, Z: 1}, 0, 2),
		"ellipsoid": NewEllipsoid(vec.Vec3{X: 2, Y: 5, Z: 1}, vec.Vec3Float{X: 2, Y: 1, Z: 3}),
		"polygon": NewPolygon2D([]vec.Vec2{
			{X: 0, Z: 0}, {X: 6, Z: 0}, {X: 6, Z: 2}, {X: 2, Z: 5},
		}, 1, 2),
		"convex": NewConvexPolyhedral(
			vec.Vec3{X: 0, Y: 0, Z: 0}, vec.Vec3{X: 4, Y: 0, Z: 0},
			vec.Vec3{X: 0, Y: 4, Z: 0}, vec.Vec3{X: 0, Y: 0, Z: 4},
		),
		"shell": NewCuboid(vec.Vec3{}, vec.Vec3{X: 3, Y: 2, Z: 4}).Walls(),
	}
	transforms := map[string]AffineTransform{
		"rotate90":  Rotate(90),
		"rotate270": Rotate(-90),
		"flipX":     Flip(vec.Vec3{X: 1}),
		"flipY":     Flip(vec.Vec3{Y: 1}),
		"shift":     Shift(vec.Vec3{X: 5, Y: -2, Z: 11}),
		"rotateX":   Identity().RotateX(90),
		"combined":  Rotate(90).Translate(vec.Vec3Float{X: 1, Y: 1, Z: 1}),
	}

	for rn, r := range regions {
		for tn, tr := range transforms {
			t.Run(rn+"/"+tn, func(t *testing.T) {
				want := make(map[vec.Vec3]struct{})
				for p := range r.Iterate() {
					want[tr.ApplyVec3(p)] = struct{}{}
				}

				transformed, err := r.Transform(tr)
				require.NoError(t, err)
				got := toSet(Collect(transformed))

				assert.Equal(t, want, got, "Преобразованная область должна совпадать с образом точек")
				for p := range got {
					assert.True(t, transformed.Contains(p), "Contains должен согласовываться с обходом")
				}
				lo, hi := transformed.MinimumPoint(), transformed.MaximumPoint()
				for p := range got {
					assert.True(t, p.ContainedWithin(lo, hi), "Точка %v вне ограничивающего параллелепипеда", p)
				}
			})
		}
	}
}

func TestCylinder(t *testing.T) {
	c := NewCylinder(vec.Vec2{X: 0, Z: 0}, vec.Vec2Float{X: 2, Z: 2}, 0, 3)

	assert.True(t, c.Contains(vec.Vec3{X: 2, Y: 0, Z: 0}))
	assert.False(t, c.Contains(vec.Vec3{X: 2, Y: 0, Z: 2}), "Угол квадрата вне круга")
	assert.False(t, c.Contains(vec.Vec3{X: 0, Y: 4, Z: 0}), "Выше цилиндра")
	assert.Equal(t, int64(len(Collect(c))), c.Area())

	err := c.Expand(vec.Vec3{X: 1})
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr, "Горизонтальное расширение цилиндра запрещено")
	assert.Equal(t, ReasonHorizontalUnsupported, opErr.Reason)

	require.NoError(t, c.Expand(vec.Vec3{Y: 2}, vec.Vec3{Y: -1}))
	assert.Equal(t, -1, c.MinY)
	assert.Equal(t, 5, c.MaxY)

	require.Error(t, c.Contract(vec.Vec3{Y: 20}))
	assert.Equal(t, -1, c.MinY, "При ошибке высота не меняется")
}

func TestDegenerateRegions(t *testing.T) {
	empty := []Region{
		NewPolygon2D([]vec.Vec2{{X: 0, Z: 0}, {X: 3, Z: 3}}, 0, 5),
		NewConvexPolyhedral(vec.Vec3{}, vec.Vec3{X: 1}),
		NewConvexPolyhedral(vec.Vec3{}, vec.Vec3{X: 1}, vec.Vec3{X: 2}),
		&Cylinder{CenterXZ: vec.Vec2{}, MinY: 5, MaxY: 1},
	}
	for _, r := range empty {
		assert.NotPanics(t, func() {
			assert.True(t, IsEmpty(r), "Вырожденная область %s должна быть пустой", r.Kind())
		})
	}
}

func TestPolygon2D_Contains(t *testing.T) {
	p := NewPolygon2D([]vec.Vec2{{X: 0, Z: 0}, {X: 4, Z: 0}, {X: 4, Z: 4}, {X: 0, Z: 4}}, 0, 0)

	assert.True(t, p.Contains(vec.Vec3{X: 2, Z: 2}), "Внутренняя точка")
	assert.True(t, p.Contains(vec.Vec3{X: 4, Z: 2}), "Точка на ребре")
	assert.True(t, p.Contains(vec.Vec3{X: 0, Z: 0}), "Вершина")
	assert.False(t, p.Contains(vec.Vec3{X: 5, Z: 2}))
	assert.Equal(t, int64(25), p.Area())

	require.NoError(t, p.Shift(vec.Vec3{X: 1, Y: 2}))
	assert.True(t, p.Contains(vec.Vec3{X: 5, Y: 2, Z: 2}))
}

func TestConvexPolyhedral(t *testing.T) {
	c := NewConvexPolyhedral()
	assert.True(t, c.AddVertex(vec.Vec3{X: 0, Y: 0, Z: 0}))
	assert.False(t, c.AddVertex(vec.Vec3{X: 0, Y: 0, Z: 0}), "Повторная вершина не добавляется")
	c.AddVertex(vec.Vec3{X: 4, Y: 0, Z: 0})
	c.AddVertex(vec.Vec3{X: 0, Y: 0, Z: 4})

	// Плоский треугольник
	assert.True(t, c.Contains(vec.Vec3{X: 1, Y: 0, Z: 1}))
	assert.False(t, c.Contains(vec.Vec3{X: 4, Y: 0, Z: 4}), "Точка вне треугольника в той же плоскости")

	c.AddVertex(vec.Vec3{X: 4, Y: 0, Z: 4})
	assert.True(t, c.Contains(vec.Vec3{X: 4, Y: 0, Z: 4}), "Квадрат после четвёртой вершины")

	c.AddVertex(vec.Vec3{X: 0, Y: 4, Z: 0})
	assert.True(t, c.Contains(vec.Vec3{X: 4, Y: 0, Z: 4}), "Вершины плоскости сохраняются после выхода в объём")
	assert.True(t, c.Contains(vec.Vec3{X: 1, Y: 1, Z: 1}))
	assert.False(t, c.Contains(vec.Vec3{X: 4, Y: 4, Z: 4}))

	for p := range c.Iterate() {
		assert.True(t, p.ContainedWithin(c.MinimumPoint(), c.MaximumPoint()))
	}
}

func TestShell_Iterate(t *testing.T) {
	c := NewCuboid(vec.Vec3{}, vec.Vec3{X: 4, Y: 2, Z: 4})

	walls := Collect(c.Walls())
	assert.Len(t, walls, 16*3, "Периметр 5x5 равен 16 на каждом из трёх уровней")
	assert.Len(t, toSet(walls), len(walls), "Стенки без повторов")

	faces := Collect(c.Faces())
	assert.Len(t, faces, 25*2+16, "Пол, потолок и средний пояс")
}

func TestFlatRegion(t *testing.T) {
	c := NewCuboid(vec.Vec3{X: 0, Y: 3, Z: 0}, vec.Vec3{X: 2, Y: 6, Z: 1})
	flat := c.AsFlatRegion()

	n := 0
	for range flat.Iterate2D() {
		n++
	}
	assert.Equal(t, 6, n)
	assert.Equal(t, 3, flat.MinimumBlockY())
	assert.Equal(t, 6, flat.MaximumBlockY())

	sphere := NewSphere(vec.Vec3{X: 0, Y: 10, Z: 0}, 2)
	lo, hi, ok := sphere.AsFlatRegion().ColumnRange(vec.Vec2{})
	require.True(t, ok)
	assert.Equal(t, 8, lo)
	assert.Equal(t, 12, hi)
	_, _, ok = sphere.AsFlatRegion().ColumnRange(vec.Vec2{X: 2, Z: 2})
	assert.False(t, ok, "Угловая колонка вне шара")
}

func TestChunkColumns(t *testing.T) {
	c := NewCuboid(vec.Vec3{X: -1, Y: 0, Z: 0}, vec.Vec3{X: 16, Y: 0, Z: 15})
	assert.ElementsMatch(t, []vec.Vec2{{X: -1, Z: 0}, {X: 0, Z: 0}, {X: 1, Z: 0}}, ChunkColumns(c))
}
