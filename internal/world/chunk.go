package world

import (
	"maps"

	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// ChunkSize размер секции по каждой оси
const ChunkSize = 16

const chunkVolume = ChunkSize * ChunkSize * ChunkSize

// Chunk секция мира 16x16x16. Синхронизацию обеспечивает владелец (мир).
type Chunk struct {
	Coords vec.Vec3 // Координаты секции (в единицах по 16 блоков)

	IDs   [chunkVolume]block.BlockID
	Data  [chunkVolume]uint8
	Attrs map[int]block.Attributes // Расширенные атрибуты по индексу

	ChangeCounter int // Счетчик изменений с последнего сохранения
}

// NewChunk создаёт пустую (воздух) секцию
func NewChunk(coords vec.Vec3) *Chunk {
	return &Chunk{
		Coords: coords,
		Attrs:  make(map[int]block.Attributes),
	}
}

// Index возвращает индекс локальной координаты: x + z*16 + y*256
func Index(local vec.Vec3) int {
	return local.X + local.Z*ChunkSize + local.Y*ChunkSize*ChunkSize
}

// LocalFromIndex обратное преобразование индекса
func LocalFromIndex(i int) vec.Vec3 {
	return vec.Vec3{
		X: i % ChunkSize,
		Z: (i / ChunkSize) % ChunkSize,
		Y: i / (ChunkSize * ChunkSize),
	}
}

// Get возвращает значение по локальной координате
func (c *Chunk) Get(local vec.Vec3) block.Value {
	i := Index(local)
	v := block.Value{ID: c.IDs[i], Data: c.Data[i]}
	if attrs, ok := c.Attrs[i]; ok {
		v.Attrs = maps.Clone(attrs)
	}
	return v
}

// Set записывает значение и возвращает true, если оно изменилось
func (c *Chunk) Set(local vec.Vec3, v block.Value) bool {
	i := Index(local)
	if c.Get(local).Equals(v) {
		return false
	}
	c.IDs[i] = v.ID
	c.Data[i] = v.Data
	if len(v.Attrs) > 0 {
		c.Attrs[i] = maps.Clone(v.Attrs)
	} else {
		delete(c.Attrs, i)
	}
	c.ChangeCounter++
	return true
}

// IsEmpty проверяет, что секция состоит только из воздуха
func (c *Chunk) IsEmpty() bool {
	for _, id := range c.IDs {
		if id != block.AirBlockID {
			return false
		}
	}
	return true
}

// ClearChanges сбрасывает счетчик после сохранения
func (c *Chunk) ClearChanges() {
	c.ChangeCounter = 0
}

// Origin возвращает мировую координату угла секции
func (c *Chunk) Origin() vec.Vec3 {
	return c.Coords.MulScalar(ChunkSize)
}
