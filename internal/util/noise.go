package util

import (
	"math/rand/v2"

	"github.com/aquilax/go-perlin"
)

// Параметры шума по умолчанию
const (
	defaultAlpha   = 2.0 // Сглаживание шума
	defaultBeta    = 2.0 // Частота шума
	defaultOctaves = 3   // Количество октав
)

// NewRand создаёт детерминированный генератор PCG: один сид даёт одну последовательность
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// NoiseGenerator источник шума в диапазоне [0, 1].
type NoiseGenerator interface {
	Noise2D(x, z float64) float64
	Noise3D(x, y, z float64) float64
}

// PerlinNoise генератор шума Перлина с фиксированным сидом.
// После создания только читается, поэтому безопасен для параллельного использования.
type PerlinNoise struct {
	p    *perlin.Perlin
	seed int64
}

// NewPerlinNoise создаёт генератор шума Перлина с указанным сидом
func NewPerlinNoise(seed int64) *PerlinNoise {
	return &PerlinNoise{
		p:    perlin.NewPerlin(defaultAlpha, defaultBeta, defaultOctaves, seed),
		seed: seed,
	}
}

// Seed возвращает сид генератора
func (n *PerlinNoise) Seed() int64 { return n.seed }

// Noise2D возвращает значение шума Перлина для колонки (от 0 до 1)
func (n *PerlinNoise) Noise2D(x, z float64) float64 {
	return toUnit(n.p.Noise2D(x, z))
}

// Noise3D возвращает значение шума Перлина для точки (от 0 до 1)
func (n *PerlinNoise) Noise3D(x, y, z float64) float64 {
	return toUnit(n.p.Noise3D(x, y, z))
}

// Raw3D возвращает исходное значение шума (от -1 до 1)
func (n *PerlinNoise) Raw3D(x, y, z float64) float64 {
	return n.p.Noise3D(x, y, z)
}

// RandomNoise равномерный шум без пространственной связности.
// Используется фильтрами плотности (лес, растения).
type RandomNoise struct {
	rng *rand.Rand
}

// NewRandomNoise создаёт равномерный шум с указанным сидом
func NewRandomNoise(seed int64) *RandomNoise {
	return &RandomNoise{rng: NewRand(seed)}
}

// Noise2D возвращает случайное значение в [0, 1)
func (n *RandomNoise) Noise2D(x, z float64) float64 {
	return n.rng.Float64()
}

// Noise3D возвращает случайное значение в [0, 1)
func (n *RandomNoise) Noise3D(x, y, z float64) float64 {
	return n.rng.Float64()
}

// Преобразуем значение из [-1, 1] в [0, 1]
func toUnit(v float64) float64 {
	u := (v + 1.0) / 2.0
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}
