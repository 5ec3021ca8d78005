package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_Immutability(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := a.Add(Vec3{X: 10, Y: 10, Z: 10})

	assert.Equal(t, Vec3{X: 1, Y: 2, Z: 3}, a, "Исходный вектор не должен меняться")
	assert.Equal(t, Vec3{X: 11, Y: 12, Z: 13}, b, "Сумма должна быть посчитана покомпонентно")
}

func TestVec3_MinMax(t *testing.T) {
	a := Vec3{X: 5, Y: -1, Z: 3}
	b := Vec3{X: -2, Y: 4, Z: 3}

	assert.Equal(t, Vec3{X: -2, Y: -1, Z: 3}, a.Min(b))
	assert.Equal(t, Vec3{X: 5, Y: 4, Z: 3}, a.Max(b))
	assert.True(t, Vec3{X: 0, Y: 0, Z: 3}.ContainedWithin(a.Min(b), a.Max(b)), "Точка должна быть внутри")
}

func TestFloorDivMod(t *testing.T) {
	cases := []struct {
		a, b, div, mod int
	}{
		{17, 16, 1, 1},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.div, FloorDiv(tc.a, tc.b), "FloorDiv(%d,%d)", tc.a, tc.b)
		assert.Equal(t, tc.mod, FloorMod(tc.a, tc.b), "FloorMod(%d,%d)", tc.a, tc.b)
	}
}

func TestVec3Float_Floor(t *testing.T) {
	v := Vec3Float{X: -0.5, Y: 1.99, Z: 2}
	assert.Equal(t, Vec3{X: -1, Y: 1, Z: 2}, v.Floor(), "Floor должен округлять к минус бесконечности")
	assert.Equal(t, Vec3{X: -1, Y: 2, Z: 2}, v.Round())
}

func TestVec3_Chunks(t *testing.T) {
	p := Vec3{X: -1, Y: 17, Z: 32}
	assert.Equal(t, Vec3{X: -1, Y: 1, Z: 2}, p.ToChunkCoords())
	assert.Equal(t, Vec3{X: 15, Y: 1, Z: 0}, p.LocalInChunk())
	assert.Equal(t, Vec2{X: -1, Z: 32}, p.ToVec2())
}
