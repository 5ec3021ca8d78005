package edit

import (
	"fmt"
	"maps"
	"sync"

	"github.com/annel0/blockedit/internal/world/block"
)

// BlockBag конечный запас блоков, из которого берутся ставимые блоки
type BlockBag interface {
	// FetchPlaced забирает блок для установки; ErrOutOfBlocks если его нет
	FetchPlaced(v block.Value) error
	// StorePlaced возвращает ранее забранный блок
	StorePlaced(v block.Value) error
	// StoreDropped кладёт в мешок блок, выбитый правкой
	StoreDropped(v block.Value) error
	// Flush сохраняет состояние мешка у владельца
	Flush() error
}

// InventoryBag мешок на счётчиках по типам блоков
type InventoryBag struct {
	mu     sync.Mutex
	counts map[block.BlockID]int
	// Unlimited типы, которые не расходуются
	Unlimited map[block.BlockID]bool
}

// NewInventoryBag создаёт мешок с начальным запасом
func NewInventoryBag(initial map[block.BlockID]int) *InventoryBag {
	counts := make(map[block.BlockID]int, len(initial))
	maps.Copy(counts, initial)
	return &InventoryBag{counts: counts, Unlimited: map[block.BlockID]bool{}}
}

func (b *InventoryBag) FetchPlaced(v block.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Unlimited[v.ID] {
		return nil
	}
	if b.counts[v.ID] <= 0 {
		return fmt.Errorf("%w: %s", ErrOutOfBlocks, v.ID.Name())
	}
	b.counts[v.ID]--
	return nil
}

func (b *InventoryBag) StorePlaced(v block.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[v.ID]++
	return nil
}

func (b *InventoryBag) StoreDropped(v block.Value) error {
	if v.IsAir() || block.IsLiquid(v.ID) {
		return nil
	}
	return b.StorePlaced(v)
}

// Flush ничего не делает: запас живёт в памяти
func (b *InventoryBag) Flush() error { return nil }

// Count остаток блоков типа
func (b *InventoryBag) Count(id block.BlockID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[id]
}

// Contents снимок запаса
func (b *InventoryBag) Contents() map[block.BlockID]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.counts)
}
