package history

import (
	"errors"
	"slices"
	"sync"
)

var (
	ErrNothingToUndo = errors.New("нечего отменять")
	ErrNothingToRedo = errors.New("нечего повторять")
)

// Journal стек транзакций оператора с курсором.
// Записи [0, cursor) можно отменить, записи [cursor, len) можно повторить.
type Journal struct {
	mu       sync.Mutex
	entries  []*Transaction
	cursor   int
	maxDepth int
}

// NewJournal создаёт журнал. maxDepth <= 0 означает без ограничения.
func NewJournal(maxDepth int) *Journal {
	return &Journal{maxDepth: maxDepth}
}

// State сериализуемое состояние журнала
type State struct {
	Entries  []*Transaction `json:"entries"`
	Cursor   int            `json:"cursor"`
	MaxDepth int            `json:"max_depth"`
}

// NewJournalFromState восстанавливает журнал из сохранённого состояния
func NewJournalFromState(s State) *Journal {
	j := &Journal{entries: slices.Clone(s.Entries), cursor: s.Cursor, maxDepth: s.MaxDepth}
	j.cursor = max(0, min(j.cursor, len(j.entries)))
	j.evictLocked()
	return j
}

// State снимок состояния для сохранения
func (j *Journal) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return State{Entries: slices.Clone(j.entries), Cursor: j.cursor, MaxDepth: j.maxDepth}
}

// Commit отбрасывает записи повтора и добавляет транзакцию.
// Пустые транзакции не фиксируются, тогда возвращается false.
func (j *Journal) Commit(tx *Transaction) bool {
	if tx == nil || tx.IsEmpty() {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries[:j.cursor], tx)
	j.cursor = len(j.entries)
	j.evictLocked()
	return true
}

// evictLocked вытесняет старейшие транзакции сверх maxDepth.
// Курсор сдвигается вместе с длиной.
func (j *Journal) evictLocked() {
	if j.maxDepth <= 0 || len(j.entries) <= j.maxDepth {
		return
	}
	excess := len(j.entries) - j.maxDepth
	if excess > j.cursor {
		// Вытеснение задевает записи повтора, без предшественников они не применимы
		clear(j.entries[j.cursor:])
		j.entries = j.entries[:j.cursor]
		excess = len(j.entries) - j.maxDepth
		if excess <= 0 {
			return
		}
	}
	clear(j.entries[:excess])
	j.entries = slices.Delete(j.entries, 0, excess)
	j.cursor -= excess
}

// Undo отменяет транзакцию перед курсором и возвращает её.
// При ошибке воспроизведения курсор не двигается, повторная отмена безопасна.
func (j *Journal) Undo(target Target) (*Transaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cursor == 0 {
		return nil, ErrNothingToUndo
	}
	tx := j.entries[j.cursor-1]
	if err := tx.Undo(target); err != nil {
		return nil, err
	}
	j.cursor--
	return tx, nil
}

// Redo повторяет транзакцию под курсором и возвращает её
func (j *Journal) Redo(target Target) (*Transaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cursor == len(j.entries) {
		return nil, ErrNothingToRedo
	}
	tx := j.entries[j.cursor]
	if err := tx.Redo(target); err != nil {
		return nil, err
	}
	j.cursor++
	return tx, nil
}

// Clear очищает журнал
func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
	j.cursor = 0
}

func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *Journal) Cursor() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor
}

func (j *Journal) CanUndo() bool { return j.Cursor() > 0 }

func (j *Journal) CanRedo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor < len(j.entries)
}

// Entries снимок списка транзакций
func (j *Journal) Entries() []*Transaction {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}

func (j *Journal) MaxDepth() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.maxDepth
}

// SetMaxDepth меняет глубину и сразу вытесняет лишнее
func (j *Journal) SetMaxDepth(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.maxDepth = n
	j.evictLocked()
}
