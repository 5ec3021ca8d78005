package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/annel0/blockedit/internal/vec"
)

// Record запись аудита о зафиксированной транзакции без самих изменений
type Record struct {
	ID        uuid.UUID `json:"id"`
	Operator  string    `json:"operator"`
	World     string    `json:"world"`
	Label     string    `json:"label"`
	Changes   int       `json:"changes"`
	Partial   bool      `json:"partial"`
	CreatedAt time.Time `json:"created_at"`
	Min       vec.Vec3  `json:"min"`
	Max       vec.Vec3  `json:"max"`
}

// NewRecord описывает транзакцию, применённую к миру worldName
func NewRecord(tx *Transaction, worldName string) Record {
	r := Record{
		ID:        tx.ID,
		Operator:  tx.Operator,
		World:     worldName,
		Label:     tx.Label,
		Changes:   tx.Len(),
		Partial:   tx.Partial,
		CreatedAt: tx.CreatedAt,
	}
	if lo, hi, ok := tx.Bounds(); ok {
		r.Min, r.Max = lo, hi
	}
	return r
}
