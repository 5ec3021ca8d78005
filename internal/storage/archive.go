package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/annel0/blockedit/internal/history"
)

// HistoryArchive аудит зафиксированных транзакций всех операторов.
// Журнал отмены ограничен по глубине, архив хранит записи без изменений блоков.
type HistoryArchive interface {
	Record(ctx context.Context, rec history.Record) error
	// List возвращает последние записи оператора, новые первыми.
	// Пустой operator - записи всех операторов.
	List(ctx context.Context, operator string, limit int) ([]history.Record, error)
	Close() error
}

// MemoryArchive архив в памяти процесса
type MemoryArchive struct {
	mu      sync.RWMutex
	records []history.Record
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

func (a *MemoryArchive) Record(_ context.Context, rec history.Record) error {
	a.mu.Lock()
	a.records = append(a.records, rec)
	a.mu.Unlock()
	return nil
}

func (a *MemoryArchive) List(_ context.Context, operator string, limit int) ([]history.Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []history.Record
	for _, rec := range slices.Backward(a.records) {
		if operator != "" && rec.Operator != operator {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (a *MemoryArchive) Close() error { return nil }
