// Package history хранит журнал транзакций оператора для отмены и повтора.
//
// Журнал, а не транзакция, является единицей согласованности: записи,
// применённые до ошибки или отмены, остаются в транзакции и отменяются вместе с ней.
package history

import (
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// Target приёмник воспроизведения. EditSession реализует его с отключённой маской.
type Target = world.BlockSetter

// Change одно изменение ячейки
type Change struct {
	Pos      vec.Vec3    `json:"pos"`
	Previous block.Value `json:"prev"`
	Current  block.Value `json:"cur"`
}

// BiomeChange одно изменение биома колонки
type BiomeChange struct {
	Column   vec.Vec2        `json:"column"`
	Previous world.BiomeType `json:"prev"`
	Current  world.BiomeType `json:"cur"`
}

// Transaction упорядоченный набор изменений одной команды
type Transaction struct {
	ID        uuid.UUID     `json:"id"`
	Operator  string        `json:"operator"`
	Label     string        `json:"label"`
	CreatedAt time.Time     `json:"created_at"`
	Partial   bool          `json:"partial,omitempty"` // команда прервана отменой, лимитом или ошибкой мира
	Changes   []Change      `json:"changes"`
	Biomes    []BiomeChange `json:"biomes,omitempty"`
}

// NewTransaction создаёт пустую транзакцию
func NewTransaction(operator, label string) *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		Operator:  operator,
		Label:     label,
		CreatedAt: time.Now(),
	}
}

// Add добавляет изменение в конец
func (t *Transaction) Add(c Change) {
	t.Changes = append(t.Changes, c)
}

// AddBiome добавляет изменение биома в конец
func (t *Transaction) AddBiome(c BiomeChange) {
	t.Biomes = append(t.Biomes, c)
}

// Len число изменений, включая биомы
func (t *Transaction) Len() int { return len(t.Changes) + len(t.Biomes) }

// IsEmpty транзакция без изменений
func (t *Transaction) IsEmpty() bool { return t.Len() == 0 }

// Forward обходит изменения в порядке записи
func (t *Transaction) Forward() iter.Seq[Change] {
	return func(yield func(Change) bool) {
		for _, c := range t.Changes {
			if !yield(c) {
				return
			}
		}
	}
}

// Backward обходит изменения в обратном порядке
func (t *Transaction) Backward() iter.Seq[Change] {
	return func(yield func(Change) bool) {
		for i := len(t.Changes) - 1; i >= 0; i-- {
			if !yield(t.Changes[i]) {
				return
			}
		}
	}
}

// Bounds ограничивающий параллелепипед затронутых ячеек
func (t *Transaction) Bounds() (lo, hi vec.Vec3, ok bool) {
	if len(t.Changes) == 0 {
		return vec.Vec3{}, vec.Vec3{}, false
	}
	lo, hi = t.Changes[0].Pos, t.Changes[0].Pos
	for _, c := range t.Changes[1:] {
		lo, hi = lo.Min(c.Pos), hi.Max(c.Pos)
	}
	return lo, hi, true
}

// biomeTarget проверяет, что приёмник умеет менять биомы, если они есть в транзакции
func (t *Transaction) biomeTarget(target Target) (world.BiomeSetter, error) {
	if len(t.Biomes) == 0 {
		return nil, nil
	}
	bs, ok := target.(world.BiomeSetter)
	if !ok {
		return nil, fmt.Errorf("транзакция %s меняет биомы, а приёмник их не поддерживает", t.ID)
	}
	return bs, nil
}

// Undo записывает прежние значения в обратном порядке: сначала биомы, затем блоки
func (t *Transaction) Undo(target Target) error {
	bs, err := t.biomeTarget(target)
	if err != nil {
		return err
	}
	n := 0
	for i := len(t.Biomes) - 1; i >= 0; i-- {
		c := t.Biomes[i]
		if _, err := bs.SetBiome(c.Column, c.Previous); err != nil {
			return fmt.Errorf("ошибка отмены биома %v в транзакции %s: %w", c.Column, t.ID, err)
		}
	}
	for c := range t.Backward() {
		if _, err := target.SetBlock(c.Pos, c.Previous); err != nil {
			return fmt.Errorf("ошибка отмены транзакции %s после %d из %d изменений: %w", t.ID, n, t.Len(), err)
		}
		n++
	}
	return nil
}

// Redo записывает новые значения в исходном порядке: сначала блоки, затем биомы
func (t *Transaction) Redo(target Target) error {
	bs, err := t.biomeTarget(target)
	if err != nil {
		return err
	}
	n := 0
	for c := range t.Forward() {
		if _, err := target.SetBlock(c.Pos, c.Current); err != nil {
			return fmt.Errorf("ошибка повтора транзакции %s после %d из %d изменений: %w", t.ID, n, t.Len(), err)
		}
		n++
	}
	for _, c := range t.Biomes {
		if _, err := bs.SetBiome(c.Column, c.Current); err != nil {
			return fmt.Errorf("ошибка повтора биома %v в транзакции %s: %w", c.Column, t.ID, err)
		}
	}
	return nil
}
