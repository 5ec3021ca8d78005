// Package function содержит единицы работы над одной координатой,
// которые обходчики из operation применяют к области.
package function

import (
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

// Target экстент, в который функции пишут блоки (обычно EditSession)
type Target interface {
	world.Extent
	world.BlockSetter
}

// Function работа над координатой. Возвращает true, если координата затронута.
// Ошибка возвращается только при отказе мира и прерывает обход.
type Function interface {
	Apply(p vec.Vec3) (bool, error)
}

// FlatFunction работа над колонкой
type FlatFunction interface {
	Apply2D(v vec.Vec2) (bool, error)
}

// LayerFunction работа над слоями колонки сверху вниз
type LayerFunction interface {
	// IsGround проверяет, является ли координата поверхностью
	IsGround(p vec.Vec3) bool
	// Apply вызывается для поверхности (depth 0) и слоёв под ней, пока возвращает true
	Apply(p vec.Vec3, depth int) (bool, error)
}

// EntityFunction работа над сущностью
type EntityFunction interface {
	ApplyEntity(e world.Entity) (bool, error)
}

// Counted функция, которая сама считает затронутые координаты
type Counted interface {
	Affected() int
}

// Func адаптер функции к Function
type Func func(p vec.Vec3) (bool, error)

func (f Func) Apply(p vec.Vec3) (bool, error) { return f(p) }

// FlatFunc адаптер функции к FlatFunction
type FlatFunc func(v vec.Vec2) (bool, error)

func (f FlatFunc) Apply2D(v vec.Vec2) (bool, error) { return f(v) }

// BlockReplace записывает блок из шаблона
type BlockReplace struct {
	Target   Target
	Pattern  pattern.Pattern
	affected int
}

// NewBlockReplace создаёт функцию замены
func NewBlockReplace(t Target, p pattern.Pattern) *BlockReplace {
	return &BlockReplace{Target: t, Pattern: p}
}

func (f *BlockReplace) Apply(p vec.Vec3) (bool, error) {
	changed, err := f.Target.SetBlock(p, f.Pattern.Apply(p))
	if err != nil {
		return false, err
	}
	if changed {
		f.affected++
	}
	return changed, nil
}

func (f *BlockReplace) Affected() int { return f.affected }

// RegionMaskingFilter применяет функцию только там, где проходит маска
type RegionMaskingFilter struct {
	Mask     mask.Mask
	Function Function
}

func (f *RegionMaskingFilter) Apply(p vec.Vec3) (bool, error) {
	if !f.Mask.Test(p) {
		return false, nil
	}
	return f.Function.Apply(p)
}

// FlatRegionMaskingFilter то же для колонок
type FlatRegionMaskingFilter struct {
	Mask     mask.Mask2D
	Function FlatFunction
}

func (f *FlatRegionMaskingFilter) Apply2D(v vec.Vec2) (bool, error) {
	if !f.Mask.Test2D(v) {
		return false, nil
	}
	return f.Function.Apply2D(v)
}

// Counter считает посещённые координаты
type Counter struct {
	count int
}

func (c *Counter) Apply(vec.Vec3) (bool, error) {
	c.count++
	return true, nil
}

// Count возвращает число посещений
func (c *Counter) Count() int { return c.count }

func (c *Counter) Affected() int { return c.count }

// Combined применяет все функции к координате. Координата считается
// один раз, если её затронула хотя бы одна функция.
type Combined struct {
	Functions []Function
	affected  int
}

// Combine объединяет функции
func Combine(fns ...Function) *Combined {
	return &Combined{Functions: fns}
}

func (c *Combined) Apply(p vec.Vec3) (bool, error) {
	hit := false
	for _, fn := range c.Functions {
		ok, err := fn.Apply(p)
		if err != nil {
			return hit, err
		}
		hit = hit || ok
	}
	if hit {
		c.affected++
	}
	return hit, nil
}

func (c *Combined) Affected() int { return c.affected }
