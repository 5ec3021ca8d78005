package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerlinNoise_RangeAndDeterminism(t *testing.T) {
	a := NewPerlinNoise(42)
	b := NewPerlinNoise(42)

	for i := 0; i < 50; i++ {
		x := float64(i) * 0.37
		v := a.Noise3D(x, x*0.5, -x)
		assert.GreaterOrEqual(t, v, 0.0, "Шум должен быть не меньше 0")
		assert.LessOrEqual(t, v, 1.0, "Шум должен быть не больше 1")
		assert.Equal(t, v, b.Noise3D(x, x*0.5, -x), "Одинаковый сид должен давать одинаковый шум")
	}
	assert.Equal(t, int64(42), a.Seed())
}

func TestRandomNoise_Range(t *testing.T) {
	n := NewRandomNoise(7)
	for i := 0; i < 100; i++ {
		v := n.Noise2D(0, 0)
		assert.True(t, v >= 0 && v < 1, "Значение должно быть в [0,1)")
	}
}

func TestNewRand_Deterministic(t *testing.T) {
	a, b := NewRand(5), NewRand(5)
	other := NewRand(6)
	same := true
	for i := 0; i < 20; i++ {
		x := a.Uint64()
		assert.Equal(t, x, b.Uint64(), "Один сид - одна последовательность")
		if x != other.Uint64() {
			same = false
		}
	}
	assert.False(t, same, "Разные сиды дают разные последовательности")
}
