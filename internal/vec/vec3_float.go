package vec

import (
	"fmt"
	"math"
)

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewFloat создаёт Vec3Float из трёх компонент
func NewFloat(x, y, z float64) Vec3Float {
	return Vec3Float{X: x, Y: y, Z: z}
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3Float) Sub(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul умножает покомпонентно
func (v Vec3Float) Mul(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X * other.X, Y: v.Y * other.Y, Z: v.Z * other.Z}
}

// Div делит покомпонентно
func (v Vec3Float) Div(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X / other.X, Y: v.Y / other.Y, Z: v.Z / other.Z}
}

// MulScalar умножает вектор на скаляр
func (v Vec3Float) MulScalar(s float64) Vec3Float {
	return Vec3Float{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// DivScalar делит вектор на скаляр
func (v Vec3Float) DivScalar(s float64) Vec3Float {
	return Vec3Float{X: v.X / s, Y: v.Y / s, Z: v.Z / s}
}

// Dot скалярное произведение
func (v Vec3Float) Dot(other Vec3Float) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross векторное произведение
func (v Vec3Float) Cross(other Vec3Float) Vec3Float {
	return Vec3Float{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// LengthSq возвращает квадрат длины
func (v Vec3Float) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length возвращает длину вектора
func (v Vec3Float) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// Normalize возвращает вектор единичной длины (нулевой вектор остаётся нулевым)
func (v Vec3Float) Normalize() Vec3Float {
	l := v.Length()
	if l == 0 {
		return Vec3Float{}
	}
	return v.DivScalar(l)
}

// Floor округляет компоненты вниз до координаты блока
func (v Vec3Float) Floor() Vec3 {
	return Vec3{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y)), Z: int(math.Floor(v.Z))}
}

// Round округляет компоненты до ближайшего целого
func (v Vec3Float) Round() Vec3 {
	return Vec3{X: int(math.Round(v.X)), Y: int(math.Round(v.Y)), Z: int(math.Round(v.Z))}
}

// Abs возвращает вектор из модулей компонент
func (v Vec3Float) Abs() Vec3Float {
	return Vec3Float{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)}
}

func (v Vec3Float) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
