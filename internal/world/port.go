package world

import (
	"errors"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// Вертикальные границы мира по умолчанию
const (
	DefaultMinY = 0
	DefaultMaxY = 255
)

// ErrOutOfBounds запись за вертикальными границами мира
var ErrOutOfBounds = errors.New("координата вне границ мира")

// PhysicsHint подсказка миру, нужно ли пересчитывать свет и физику после записи
type PhysicsHint uint8

const (
	PhysicsApply PhysicsHint = iota // обычная запись
	PhysicsSkip                     // быстрый режим
)

// Extent источник блоков только для чтения
type Extent interface {
	BlockAt(p vec.Vec3) (block.Value, error)
	MinimumPoint() vec.Vec3
	MaximumPoint() vec.Vec3
}

// BlockSetter приёмник записей. EditSession реализует его так,
// что каждая запись проходит через маску, лимит и журнал.
type BlockSetter interface {
	SetBlock(p vec.Vec3, v block.Value) (bool, error)
}

// World порт хранилища мира. Реализация должна сама сериализовать
// конкурентные записи: каждая отдельная запись атомарна.
type World interface {
	Extent
	Name() string
	// WriteBlock записывает значение. Возвращает false, если значение не изменилось.
	WriteBlock(p vec.Vec3, v block.Value, hint PhysicsHint) (bool, error)
	// Entities возвращает сущности внутри области (nil означает весь мир).
	Entities(r region.Region) ([]Entity, error)
	RemoveEntity(id uint64) error
	// Regenerate заново генерирует ландшафт области, записывая блоки через dst.
	Regenerate(r region.Region, dst BlockSetter) error
	// BiomeAt возвращает биом колонки
	BiomeAt(v vec.Vec2) (BiomeType, error)
	// SetBiome меняет биом колонки. Возвращает false, если биом уже такой.
	SetBiome(v vec.Vec2, b BiomeType) (bool, error)
}

// ClampY проверяет, что координата внутри вертикальных границ экстента
func ClampY(e Extent, p vec.Vec3) bool {
	return p.Y >= e.MinimumPoint().Y && p.Y <= e.MaximumPoint().Y
}
