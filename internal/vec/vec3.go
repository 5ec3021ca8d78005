package vec

import (
	"cmp"
	"fmt"
	"math"
)

// Vec3 представляет координату блока в мире: целочисленную тройку (x, y, z).
// Все операции возвращают новое значение и никогда не изменяют получателя.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Часто используемые векторы
var (
	Zero  = Vec3{}
	One   = Vec3{X: 1, Y: 1, Z: 1}
	UnitX = Vec3{X: 1}
	UnitY = Vec3{Y: 1}
	UnitZ = Vec3{Z: 1}
)

// New создаёт Vec3 из трёх компонент
func New(x, y, z int) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// ToVec2 проецирует координату на колонку (x, z)
func (v Vec3) ToVec2() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// DistanceTo возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Mul умножает покомпонентно
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{X: v.X * other.X, Y: v.Y * other.Y, Z: v.Z * other.Z}
}

// MulScalar умножает вектор на целое число
func (v Vec3) MulScalar(n int) Vec3 {
	return Vec3{X: v.X * n, Y: v.Y * n, Z: v.Z * n}
}

// DivScalar делит вектор на целое число с округлением вниз
func (v Vec3) DivScalar(n int) Vec3 {
	return Vec3{X: FloorDiv(v.X, n), Y: FloorDiv(v.Y, n), Z: FloorDiv(v.Z, n)}
}

// Neg возвращает противоположный вектор
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Abs возвращает вектор из модулей компонент
func (v Vec3) Abs() Vec3 {
	return Vec3{X: absInt(v.X), Y: absInt(v.Y), Z: absInt(v.Z)}
}

// Min возвращает покомпонентный минимум
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{X: min(v.X, other.X), Y: min(v.Y, other.Y), Z: min(v.Z, other.Z)}
}

// Max возвращает покомпонентный максимум
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{X: max(v.X, other.X), Y: max(v.Y, other.Y), Z: max(v.Z, other.Z)}
}

// WithX, WithY, WithZ заменяют одну компоненту
func (v Vec3) WithX(x int) Vec3 { return Vec3{X: x, Y: v.Y, Z: v.Z} }
func (v Vec3) WithY(y int) Vec3 { return Vec3{X: v.X, Y: y, Z: v.Z} }
func (v Vec3) WithZ(z int) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: z} }

// LengthSq возвращает квадрат длины
func (v Vec3) LengthSq() int {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length возвращает длину вектора
func (v Vec3) Length() float64 {
	return math.Sqrt(float64(v.LengthSq()))
}

// Dot скалярное произведение
func (v Vec3) Dot(other Vec3) int {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// ToFloat переводит координату в вещественный вектор
func (v Vec3) ToFloat() Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// ContainedWithin проверяет, лежит ли точка в параллелепипеде [min, max]
func (v Vec3) ContainedWithin(lo, hi Vec3) bool {
	return v.X >= lo.X && v.X <= hi.X &&
		v.Y >= lo.Y && v.Y <= hi.Y &&
		v.Z >= lo.Z && v.Z <= hi.Z
}

// ToChunkCoords возвращает координаты секции 16x16x16, содержащей блок
func (v Vec3) ToChunkCoords() Vec3 {
	return Vec3{X: v.X >> 4, Y: v.Y >> 4, Z: v.Z >> 4}
}

// LocalInChunk возвращает координаты внутри секции
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{X: v.X & 0xF, Y: v.Y & 0xF, Z: v.Z & 0xF}
}

// Compare упорядочивает векторы по Y, затем Z, затем X
func (v Vec3) Compare(other Vec3) int {
	if c := cmp.Compare(v.Y, other.Y); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Z, other.Z); c != 0 {
		return c
	}
	return cmp.Compare(v.X, other.X)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// FloorDiv делит с округлением к минус бесконечности
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает неотрицательный остаток для положительного b
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
