// Package mask содержит предикаты координат, которыми фильтруются записи и обход.
package mask

import (
	"github.com/annel0/blockedit/internal/expression"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/util"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// Mask предикат координаты
type Mask interface {
	Test(p vec.Vec3) bool
}

// Mask2D предикат колонки
type Mask2D interface {
	Test2D(v vec.Vec2) bool
}

// Func адаптер функции к Mask
type Func func(p vec.Vec3) bool

func (f Func) Test(p vec.Vec3) bool { return f(p) }

// Func2D адаптер функции к Mask2D
type Func2D func(v vec.Vec2) bool

func (f Func2D) Test2D(v vec.Vec2) bool { return f(v) }

// Always пропускает всё
var Always Mask = Func(func(vec.Vec3) bool { return true })

// Never не пропускает ничего
var Never Mask = Func(func(vec.Vec3) bool { return false })

// read читает блок; ошибка чтения трактуется как воздух
func read(e world.Extent, p vec.Vec3) block.Value {
	v, err := e.BlockAt(p)
	if err != nil {
		return block.Air
	}
	return v
}

// BlockMask пропускает блоки заданных типов. Значения из Exact
// сравниваются вместе с данными.
type BlockMask struct {
	Extent world.Extent
	types  map[block.BlockID]struct{}
	exact  []block.Value
}

// NewBlockMask создаёт маску по типам блоков
func NewBlockMask(e world.Extent, ids ...block.BlockID) *BlockMask {
	m := &BlockMask{Extent: e, types: make(map[block.BlockID]struct{})}
	for _, id := range ids {
		m.types[id] = struct{}{}
	}
	return m
}

// NewExactBlockMask создаёт маску по значениям с учётом данных
func NewExactBlockMask(e world.Extent, values ...block.Value) *BlockMask {
	m := NewBlockMask(e)
	m.exact = append(m.exact, values...)
	return m
}

// AddType добавляет тип в набор
func (m *BlockMask) AddType(id block.BlockID) { m.types[id] = struct{}{} }

func (m *BlockMask) Test(p vec.Vec3) bool {
	v := read(m.Extent, p)
	if _, ok := m.types[v.ID]; ok {
		return true
	}
	for _, e := range m.exact {
		if e.ID == v.ID && e.Data == v.Data {
			return true
		}
	}
	return false
}

// ExistingBlockMask пропускает всё, кроме воздуха
type ExistingBlockMask struct {
	Extent world.Extent
}

func (m *ExistingBlockMask) Test(p vec.Vec3) bool { return !read(m.Extent, p).IsAir() }

// SolidBlockMask пропускает твёрдые блоки
type SolidBlockMask struct {
	Extent world.Extent
}

func (m *SolidBlockMask) Test(p vec.Vec3) bool { return block.IsSolid(read(m.Extent, p).ID) }

// NoiseFilter пропускает точку, если шум в ней не больше плотности.
// При плотности 0.3 проходит примерно 30% точек случайного шума.
type NoiseFilter struct {
	Source  util.NoiseGenerator
	Density float64
	Scale   vec.Vec3Float
}

// NewNoiseFilter создаёт фильтр с единичным масштабом
func NewNoiseFilter(src util.NoiseGenerator, density float64) *NoiseFilter {
	return &NoiseFilter{Source: src, Density: density, Scale: vec.NewFloat(1, 1, 1)}
}

func (m *NoiseFilter) Test(p vec.Vec3) bool {
	s := p.ToFloat().Mul(m.Scale)
	return m.Source.Noise3D(s.X, s.Y, s.Z) <= m.Density
}

// NoiseFilter2D то же для колонок
type NoiseFilter2D struct {
	Source  util.NoiseGenerator
	Density float64
	Scale   float64
}

// NewNoiseFilter2D создаёт фильтр колонок
func NewNoiseFilter2D(src util.NoiseGenerator, density float64) *NoiseFilter2D {
	return &NoiseFilter2D{Source: src, Density: density, Scale: 1}
}

func (m *NoiseFilter2D) Test2D(v vec.Vec2) bool {
	return m.Source.Noise2D(float64(v.X)*m.Scale, float64(v.Z)*m.Scale) <= m.Density
}

type and []Mask

// And пропускает точку, если её пропускают все маски
func And(masks ...Mask) Mask { return and(masks) }

func (a and) Test(p vec.Vec3) bool {
	for _, m := range a {
		if !m.Test(p) {
			return false
		}
	}
	return true
}

type or []Mask

// Or пропускает точку, если её пропускает хотя бы одна маска
func Or(masks ...Mask) Mask { return or(masks) }

func (o or) Test(p vec.Vec3) bool {
	for _, m := range o {
		if m.Test(p) {
			return true
		}
	}
	return false
}

type not struct{ m Mask }

// Not инвертирует маску
func Not(m Mask) Mask { return not{m: m} }

func (n not) Test(p vec.Vec3) bool { return !n.m.Test(p) }

// OffsetMask проверяет соседнюю координату
type OffsetMask struct {
	Mask   Mask
	Offset vec.Vec3
}

func (m *OffsetMask) Test(p vec.Vec3) bool { return m.Mask.Test(p.Add(m.Offset)) }

// RegionMask пропускает координаты внутри области
type RegionMask struct {
	Region region.Region
}

func (m *RegionMask) Test(p vec.Vec3) bool { return m.Region.Contains(p) }

// BoundedHeightMask пропускает координаты в диапазоне высот
type BoundedHeightMask struct {
	MinY, MaxY int
}

func (m *BoundedHeightMask) Test(p vec.Vec3) bool { return p.Y >= m.MinY && p.Y <= m.MaxY }

// ExpressionMask пропускает точку, если формула от x, y, z больше нуля.
// Ошибка вычисления трактуется как отказ.
type ExpressionMask struct {
	Program *expression.Program
}

// NewExpressionMask компилирует формулу над переменными x, y, z
func NewExpressionMask(src string) (*ExpressionMask, error) {
	p, err := expression.Compile(src, "x", "y", "z")
	if err != nil {
		return nil, err
	}
	return &ExpressionMask{Program: p}, nil
}

func (m *ExpressionMask) Test(p vec.Vec3) bool {
	v, err := m.Program.Evaluate(float64(p.X), float64(p.Y), float64(p.Z))
	return err == nil && v > 0
}

// AsMask2D проецирует маску на колонки, проверяя её на высоте y
func AsMask2D(m Mask, y int) Mask2D {
	return Func2D(func(v vec.Vec2) bool { return m.Test(v.ToVec3(y)) })
}
