package vec

import (
	"fmt"
	"math"
)

// Vec2 представляет колонку мира (x, z) для плоских операций
type Vec2 struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ToVec3 поднимает колонку на высоту y
func (v Vec2) ToVec3(y int) Vec3 {
	return Vec3{X: v.X, Y: y, Z: v.Z}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Z: v.Z - other.Z}
}

// Min возвращает покомпонентный минимум
func (v Vec2) Min(other Vec2) Vec2 {
	return Vec2{X: min(v.X, other.X), Z: min(v.Z, other.Z)}
}

// Max возвращает покомпонентный максимум
func (v Vec2) Max(other Vec2) Vec2 {
	return Vec2{X: max(v.X, other.X), Z: max(v.Z, other.Z)}
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> 4, Z: v.Z >> 4} // Деление на 16
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & 0xF, Z: v.Z & 0xF} // Модуль 16
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Z)
}

// Vec2Float представляет колонку с плавающей точкой (радиусы цилиндра и т.п.)
type Vec2Float struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Z: v.Z + other.Z}
}

// Max возвращает покомпонентный максимум
func (v Vec2Float) Max(other Vec2Float) Vec2Float {
	return Vec2Float{X: math.Max(v.X, other.X), Z: math.Max(v.Z, other.Z)}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Z*v.Z)
}
