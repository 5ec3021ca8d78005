// Package pattern описывает источники блоков для заливки: координата → значение.
package pattern

import (
	"math/rand/v2"
	"sync"

	"github.com/annel0/blockedit/internal/util"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// Pattern возвращает блок для координаты
type Pattern interface {
	Apply(p vec.Vec3) block.Value
}

// Func адаптер функции к Pattern
type Func func(p vec.Vec3) block.Value

func (f Func) Apply(p vec.Vec3) block.Value { return f(p) }

// BlockPattern всегда возвращает один блок
type BlockPattern struct {
	Value block.Value
}

// Single создаёт шаблон из одного блока
func Single(v block.Value) *BlockPattern {
	return &BlockPattern{Value: v}
}

func (b *BlockPattern) Apply(vec.Vec3) block.Value { return b.Value }

type weighted struct {
	pattern Pattern
	weight  float64
}

// RandomPattern выбирает шаблон случайно с учётом весов.
// Генератор создаётся на экземпляр, поэтому один проход воспроизводим по сиду.
type RandomPattern struct {
	mu      sync.Mutex
	rng     *rand.Rand
	entries []weighted
	total   float64
}

// NewRandomPattern создаёт пустой случайный шаблон
func NewRandomPattern(seed int64) *RandomPattern {
	return &RandomPattern{rng: util.NewRand(seed)}
}

// Add добавляет шаблон с весом. Неположительный вес игнорируется.
func (r *RandomPattern) Add(p Pattern, weight float64) {
	if weight <= 0 {
		return
	}
	r.entries = append(r.entries, weighted{pattern: p, weight: weight})
	r.total += weight
}

// Len возвращает число вариантов
func (r *RandomPattern) Len() int { return len(r.entries) }

func (r *RandomPattern) Apply(p vec.Vec3) block.Value {
	if len(r.entries) == 0 {
		return block.Air
	}
	r.mu.Lock()
	x := r.rng.Float64() * r.total
	r.mu.Unlock()

	for _, e := range r.entries {
		if x < e.weight {
			return e.pattern.Apply(p)
		}
		x -= e.weight
	}
	return r.entries[len(r.entries)-1].pattern.Apply(p)
}

// ClipboardPattern повторяет содержимое буфера обмена по всему пространству
type ClipboardPattern struct {
	Source world.Extent
}

// NewClipboardPattern создаёт шаблон из экстента буфера обмена
func NewClipboardPattern(src world.Extent) *ClipboardPattern {
	return &ClipboardPattern{Source: src}
}

func (c *ClipboardPattern) Apply(p vec.Vec3) block.Value {
	lo, hi := c.Source.MinimumPoint(), c.Source.MaximumPoint()
	size := hi.Sub(lo).Add(vec.One)
	off := vec.Vec3{
		X: vec.FloorMod(p.X, size.X),
		Y: vec.FloorMod(p.Y, size.Y),
		Z: vec.FloorMod(p.Z, size.Z),
	}
	v, err := c.Source.BlockAt(lo.Add(off))
	if err != nil {
		return block.Air
	}
	return v
}

// TypeApplyingPattern меняет тип существующего блока, сохраняя данные
type TypeApplyingPattern struct {
	Extent world.Extent
	Type   block.BlockID
}

func (t *TypeApplyingPattern) Apply(p vec.Vec3) block.Value {
	v, err := t.Extent.BlockAt(p)
	if err != nil {
		return block.Of(t.Type)
	}
	return v.WithID(t.Type)
}

// DataApplyingPattern меняет данные существующего блока, сохраняя тип
type DataApplyingPattern struct {
	Extent world.Extent
	Data   uint8
}

func (d *DataApplyingPattern) Apply(p vec.Vec3) block.Value {
	v, err := d.Extent.BlockAt(p)
	if err != nil {
		return block.Air
	}
	return v.WithData(d.Data)
}
