package edit

import (
	"errors"
	"fmt"

	"github.com/annel0/blockedit/internal/vec"
)

var (
	// ErrUnsupported операция не поддерживается для данной области
	ErrUnsupported = errors.New("операция не поддерживается")
	// ErrOutOfBlocks в мешке не хватило блока; запись пропускается
	ErrOutOfBlocks = errors.New("недостаточно блоков")
)

// MaxChangedBlocksError превышен лимит изменённых блоков.
// Изменения до лимита остаются применёнными.
type MaxChangedBlocksError struct {
	Limit int
}

func (e *MaxChangedBlocksError) Error() string {
	return fmt.Sprintf("превышен лимит изменённых блоков: %d", e.Limit)
}

// WorldAccessError отказ мира при чтении или записи
type WorldAccessError struct {
	Pos vec.Vec3
	Op  string // read или write
	Err error
}

func (e *WorldAccessError) Error() string {
	return fmt.Sprintf("ошибка доступа к миру (%s %v): %v", e.Op, e.Pos, e.Err)
}

func (e *WorldAccessError) Unwrap() error { return e.Err }

// ShapeEvaluationError ошибка вычисления формулы в конкретной координате
type ShapeEvaluationError struct {
	Pos vec.Vec3
	Err error
}

func (e *ShapeEvaluationError) Error() string {
	return fmt.Sprintf("ошибка вычисления формулы в %v: %v", e.Pos, e.Err)
}

func (e *ShapeEvaluationError) Unwrap() error { return e.Err }
