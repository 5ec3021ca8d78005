package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

// ChunkFailure ошибка чтения одной секции снимка
type ChunkFailure interface {
	error
	ChunkCoords() vec.Vec3
}

// RestoreError секции снимка, которые не удалось прочитать при восстановлении.
// Остальная область восстановлена.
type RestoreError struct {
	Failures []error
}

func (e *RestoreError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("не удалось восстановить %d секций: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *RestoreError) Unwrap() []error { return e.Failures }

// restorer копирует блоки снимка, пропуская ячейки битых секций
type restorer struct {
	es       *EditSession
	snapshot world.Extent
	failed   map[vec.Vec3]struct{}
	failures []error
}

func (r *restorer) Apply(p vec.Vec3) (bool, error) {
	if _, ok := r.failed[p.ToChunkCoords()]; ok {
		return false, nil
	}
	v, err := r.snapshot.BlockAt(p)
	if err != nil {
		var cf ChunkFailure
		if errors.As(err, &cf) {
			r.failed[p.ToChunkCoords()] = struct{}{}
			r.failures = append(r.failures, cf)
			return false, nil
		}
		return false, err
	}
	return r.es.SetBlock(p, v)
}

// PrepareRestore копирует область из снимка через путь записи
func (es *EditSession) PrepareRestore(r region.Region, snapshot world.Extent) (operation.Operation, func() error) {
	rs := &restorer{es: es, snapshot: snapshot, failed: make(map[vec.Vec3]struct{})}
	report := func() error {
		if len(rs.failures) == 0 {
			return nil
		}
		return &RestoreError{Failures: rs.failures}
	}
	return operation.NewRegionVisitor(r, function.Function(rs)), report
}

// Restore восстанавливает область из снимка. Ошибки чтения секций собираются
// и возвращаются как RestoreError после восстановления остальной области.
func (es *EditSession) Restore(ctx context.Context, r region.Region, snapshot world.Extent) (int, error) {
	op, report := es.PrepareRestore(r, snapshot)
	n, err := es.Run(ctx, op)
	if err != nil {
		return n, err
	}
	return n, report()
}
