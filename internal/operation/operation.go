// Package operation исполняет правки порциями: обходчики областей,
// цепочки операций и планировщик срезов.
//
// Операция продвигается вызовами Advance(ctx, budget), каждый из которых
// обрабатывает не больше budget единиц работы (координат, колонок, сущностей).
// Между вызовами операцию можно отменить; уже применённые изменения остаются.
package operation

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrCancelled возвращается из Advance после Cancel
var ErrCancelled = errors.New("операция отменена")

// ctxCheckInterval как часто обходчик проверяет контекст внутри среза
const ctxCheckInterval = 1024

// Status состояние операции
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress результат среза
type Progress struct {
	Done      bool  `json:"done"`
	Remaining int64 `json:"remaining"` // оценка оставшихся единиц, -1 если неизвестно
	Affected  int   `json:"affected"`  // затронуто с начала операции
	Visited   int   `json:"visited"`   // обработано в этом срезе
}

// Operation возобновляемая единица работы
type Operation interface {
	// Advance обрабатывает не больше budget единиц; budget <= 0 означает без ограничения.
	Advance(ctx context.Context, budget int) (Progress, error)
	// Cancel помечает операцию отменённой; следующий Advance вернёт ErrCancelled.
	Cancel()
	Status() Status
}

// lifecycle общее состояние операций
type lifecycle struct {
	status    atomic.Int32
	cancelReq atomic.Bool
	failure   error
}

func (l *lifecycle) Status() Status { return Status(l.status.Load()) }

// Cancel на завершённую операцию не действует
func (l *lifecycle) Cancel() {
	if l.Status() != StatusCompleted {
		l.cancelReq.Store(true)
	}
}

// enter проверяет, можно ли продолжать. done=true для уже завершённой операции.
func (l *lifecycle) enter() (done bool, err error) {
	switch l.Status() {
	case StatusCompleted:
		return true, nil
	case StatusCancelled:
		return false, ErrCancelled
	case StatusFailed:
		return false, l.failure
	}
	if l.cancelReq.Load() {
		l.status.Store(int32(StatusCancelled))
		return false, ErrCancelled
	}
	l.status.Store(int32(StatusRunning))
	return false, nil
}

func (l *lifecycle) complete() { l.status.Store(int32(StatusCompleted)) }

func (l *lifecycle) fail(err error) {
	l.failure = err
	l.status.Store(int32(StatusFailed))
}

// cursor возобновляемый обход последовательности
type cursor[T any] struct {
	seq      iter.Seq[T]
	next     func() (T, bool)
	stop     func()
	finished bool
}

func (c *cursor[T]) pull() (T, bool) {
	var zero T
	if c.finished {
		return zero, false
	}
	if c.next == nil {
		c.next, c.stop = iter.Pull(c.seq)
	}
	v, ok := c.next()
	if !ok {
		c.close()
	}
	return v, ok
}

func (c *cursor[T]) close() {
	c.finished = true
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

var tracer = otel.Tracer("blockedit/operation")

// Step выполняет один срез в отдельном span
func Step(ctx context.Context, op Operation, budget int) (Progress, error) {
	ctx, span := tracer.Start(ctx, "operation.advance",
		trace.WithAttributes(attribute.Int("budget", budget)),
	)
	defer span.End()

	p, err := op.Advance(ctx, budget)
	span.SetAttributes(
		attribute.Int("affected", p.Affected),
		attribute.Int64("remaining", p.Remaining),
		attribute.Int("visited", p.Visited),
		attribute.Bool("done", p.Done),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return p, err
}

// Run выполняет операцию до конца одним срезом
func Run(ctx context.Context, op Operation) (Progress, error) {
	return RunSliced(ctx, op, 0)
}

// RunSliced выполняет операцию срезами по budget единиц.
// Visited в результате суммируется по всем срезам.
func RunSliced(ctx context.Context, op Operation, budget int) (Progress, error) {
	total := 0
	for {
		p, err := Step(ctx, op, budget)
		total += p.Visited
		p.Visited = total
		if err != nil || p.Done {
			return p, err
		}
		if err := ctx.Err(); err != nil {
			return p, err
		}
	}
}
