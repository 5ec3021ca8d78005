package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// ErrNoGenerator мир создан без генератора ландшафта
var ErrNoGenerator = errors.New("у мира нет генератора ландшафта")

// ErrEntityNotFound сущность не найдена
var ErrEntityNotFound = errors.New("сущность не найдена")

// ChunkStore постоянное хранилище секций
type ChunkStore interface {
	LoadChunk(coords vec.Vec3) (*Chunk, error) // nil, nil если секции нет
	SaveChunk(c *Chunk) error
}

// MemoryWorld мир в памяти с ленивой генерацией секций.
// Все методы безопасны для параллельного использования.
type MemoryWorld struct {
	name      string
	minY      int
	maxY      int
	generator *Generator
	store     ChunkStore

	mu       sync.RWMutex
	chunks   map[vec.Vec3]*Chunk
	entities map[uint64]Entity
	nextID   uint64
	writes   int64

	// переопределённые биомы колонок; остальные берутся из генератора
	biomes       map[vec.Vec2]BiomeType
	biomesLoaded bool
	biomesDirty  bool

	// FailOn позволяет симулировать отказ записи в конкретной точке
	FailOn func(p vec.Vec3) error
}

// WorldOption настройка мира
type WorldOption func(*MemoryWorld)

// WithGenerator подключает генератор ландшафта
func WithGenerator(g *Generator) WorldOption {
	return func(w *MemoryWorld) { w.generator = g }
}

// WithChunkStore подключает постоянное хранилище секций
func WithChunkStore(s ChunkStore) WorldOption {
	return func(w *MemoryWorld) { w.store = s }
}

// WithHeight задаёт вертикальные границы
func WithHeight(minY, maxY int) WorldOption {
	return func(w *MemoryWorld) {
		w.minY = minY
		w.maxY = maxY
	}
}

// NewMemoryWorld создаёт новый мир
func NewMemoryWorld(name string, opts ...WorldOption) *MemoryWorld {
	w := &MemoryWorld{
		name:     name,
		minY:     DefaultMinY,
		maxY:     DefaultMaxY,
		chunks:   make(map[vec.Vec3]*Chunk),
		entities: make(map[uint64]Entity),
		biomes:   make(map[vec.Vec2]BiomeType),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name возвращает имя мира
func (w *MemoryWorld) Name() string { return w.name }

// MinimumPoint нижняя граница мира
func (w *MemoryWorld) MinimumPoint() vec.Vec3 {
	return vec.Vec3{X: -30_000_000, Y: w.minY, Z: -30_000_000}
}

// MaximumPoint верхняя граница мира
func (w *MemoryWorld) MaximumPoint() vec.Vec3 {
	return vec.Vec3{X: 30_000_000, Y: w.maxY, Z: 30_000_000}
}

// Generator возвращает генератор мира (может быть nil)
func (w *MemoryWorld) Generator() *Generator { return w.generator }

// Writes возвращает число фактически изменённых блоков
func (w *MemoryWorld) Writes() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.writes
}

// chunkLocked возвращает секцию, загружая или генерируя её при необходимости.
// Вызывается под блокировкой на запись.
func (w *MemoryWorld) chunkLocked(coords vec.Vec3, create bool) (*Chunk, error) {
	if c, ok := w.chunks[coords]; ok {
		return c, nil
	}
	if w.store != nil {
		c, err := w.store.LoadChunk(coords)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки секции %v: %w", coords, err)
		}
		if c != nil {
			w.chunks[coords] = c
			return c, nil
		}
	}
	if w.generator != nil {
		c := w.generator.GenerateChunk(coords)
		w.chunks[coords] = c
		return c, nil
	}
	if !create {
		return nil, nil
	}
	c := NewChunk(coords)
	w.chunks[coords] = c
	return c, nil
}

// BlockAt возвращает блок в точке
func (w *MemoryWorld) BlockAt(p vec.Vec3) (block.Value, error) {
	if p.Y < w.minY || p.Y > w.maxY {
		return block.Air, nil
	}
	coords := p.ToChunkCoords()

	w.mu.RLock()
	if c, ok := w.chunks[coords]; ok {
		v := c.Get(p.LocalInChunk())
		w.mu.RUnlock()
		return v, nil
	}
	w.mu.RUnlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.chunkLocked(coords, false)
	if err != nil {
		return block.Air, err
	}
	if c == nil {
		return block.Air, nil
	}
	return c.Get(p.LocalInChunk()), nil
}

// WriteBlock записывает блок. Подсказка физики в памяти не используется.
func (w *MemoryWorld) WriteBlock(p vec.Vec3, v block.Value, _ PhysicsHint) (bool, error) {
	if p.Y < w.minY || p.Y > w.maxY {
		return false, fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	if w.FailOn != nil {
		if err := w.FailOn(p); err != nil {
			return false, err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.chunkLocked(p.ToChunkCoords(), true)
	if err != nil {
		return false, err
	}
	changed := c.Set(p.LocalInChunk(), v)
	if changed {
		w.writes++
	}
	return changed, nil
}

// Flush сохраняет изменённые секции (и биомы, если хранилище их поддерживает)
func (w *MemoryWorld) Flush() (int, error) {
	if w.store == nil {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if bs, ok := w.store.(BiomeStore); ok && w.biomesDirty {
		if err := bs.SaveBiomes(w.biomes); err != nil {
			return 0, fmt.Errorf("ошибка сохранения биомов: %w", err)
		}
		w.biomesDirty = false
	}

	saved := 0
	for _, c := range w.chunks {
		if c.ChangeCounter == 0 {
			continue
		}
		if err := w.store.SaveChunk(c); err != nil {
			return saved, fmt.Errorf("ошибка сохранения секции %v: %w", c.Coords, err)
		}
		c.ClearChanges()
		saved++
	}
	return saved, nil
}

// AddEntity добавляет сущность и возвращает её ID
func (w *MemoryWorld) AddEntity(e Entity) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	e.ID = w.nextID
	w.nextID++
	w.entities[e.ID] = e
	return e.ID
}

// PutEntity восстанавливает сущность с её сохранённым ID
func (w *MemoryWorld) PutEntity(e Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[e.ID] = e
	w.nextID = max(w.nextID, e.ID+1)
}

// Entities возвращает сущности внутри области, отсортированные по ID
func (w *MemoryWorld) Entities(r region.Region) ([]Entity, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]Entity, 0)
	for _, e := range w.entities {
		if r == nil || r.Contains(e.BlockPosition()) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// RemoveEntity удаляет сущность
func (w *MemoryWorld) RemoveEntity(id uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	delete(w.entities, id)
	return nil
}

// Regenerate записывает исходный ландшафт области через dst
func (w *MemoryWorld) Regenerate(r region.Region, dst BlockSetter) error {
	if w.generator == nil {
		return ErrNoGenerator
	}
	for p := range r.Iterate() {
		if p.Y < w.minY || p.Y > w.maxY {
			continue
		}
		if _, err := dst.SetBlock(p, w.generator.BlockAt(p)); err != nil {
			return err
		}
	}
	return nil
}

// ChunkCount возвращает число загруженных секций
func (w *MemoryWorld) ChunkCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

// loadBiomesLocked один раз подтягивает сохранённые биомы из хранилища
func (w *MemoryWorld) loadBiomesLocked() error {
	if w.biomesLoaded {
		return nil
	}
	if bs, ok := w.store.(BiomeStore); ok {
		saved, err := bs.LoadBiomes()
		if err != nil {
			return fmt.Errorf("ошибка загрузки биомов: %w", err)
		}
		for c, b := range saved {
			if _, ok := w.biomes[c]; !ok {
				w.biomes[c] = b
			}
		}
	}
	w.biomesLoaded = true
	return nil
}

func (w *MemoryWorld) biomeLocked(v vec.Vec2) BiomeType {
	if b, ok := w.biomes[v]; ok {
		return b
	}
	if w.generator != nil {
		return w.generator.Biome(v.X, v.Z)
	}
	return BiomePlains
}

// BiomeAt возвращает биом колонки: переопределённый или сгенерированный
func (w *MemoryWorld) BiomeAt(v vec.Vec2) (BiomeType, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.loadBiomesLocked(); err != nil {
		return BiomePlains, err
	}
	return w.biomeLocked(v), nil
}

// SetBiome переопределяет биом колонки
func (w *MemoryWorld) SetBiome(v vec.Vec2, b BiomeType) (bool, error) {
	if !b.IsKnown() {
		return false, fmt.Errorf("%w: %d", ErrUnknownBiome, int(b))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.loadBiomesLocked(); err != nil {
		return false, err
	}
	if w.biomeLocked(v) == b {
		return false, nil
	}
	w.biomes[v] = b
	w.biomesDirty = true
	return true, nil
}
