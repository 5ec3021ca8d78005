package operation

import (
	"context"
	"errors"
	"slices"
)

// Delegate выполняет текущую стадию, а по её завершении запрашивает у Next
// следующую. Next возвращает nil, когда стадий больше нет.
type Delegate struct {
	lifecycle
	current  Operation
	Next     func(ctx context.Context) (Operation, error)
	affected int // сумма по завершённым стадиям
}

// NewDelegate создаёт операцию с динамическими стадиями. first может быть nil.
func NewDelegate(first Operation, next func(ctx context.Context) (Operation, error)) *Delegate {
	return &Delegate{current: first, Next: next}
}

// Chain выполняет операции по очереди: следующая начинается после завершения предыдущей
func Chain(ops ...Operation) *Delegate {
	queue := slices.Clone(ops)
	return NewDelegate(nil, func(context.Context) (Operation, error) {
		if len(queue) == 0 {
			return nil, nil
		}
		op := queue[0]
		queue = queue[1:]
		return op, nil
	})
}

func (d *Delegate) progress(visited int, current Progress) Progress {
	return Progress{
		Done:      d.Status() == StatusCompleted,
		Remaining: current.Remaining,
		Affected:  d.affected + current.Affected,
		Visited:   visited,
	}
}

func (d *Delegate) Advance(ctx context.Context, budget int) (Progress, error) {
	done, err := d.enter()
	if err != nil {
		if errors.Is(err, ErrCancelled) && d.current != nil {
			// текущая стадия освобождает свой курсор
			d.current.Cancel()
			_, _ = d.current.Advance(ctx, 1)
			d.current = nil
		}
		return d.progress(0, Progress{}), err
	}
	if done {
		return d.progress(0, Progress{}), nil
	}

	visited := 0
	for {
		if d.current == nil {
			var next Operation
			if d.Next != nil {
				if next, err = d.Next(ctx); err != nil {
					d.fail(err)
					return d.progress(visited, Progress{}), err
				}
			}
			if next == nil {
				d.complete()
				return d.progress(visited, Progress{}), nil
			}
			d.current = next
		}

		left := 0
		if budget > 0 {
			left = budget - visited
			if left <= 0 {
				return d.progress(visited, Progress{Remaining: -1}), nil
			}
		}
		p, err := d.current.Advance(ctx, left)
		visited += p.Visited
		if err != nil {
			if ctx.Err() == nil {
				d.fail(err)
			}
			return d.progress(visited, p), err
		}
		if !p.Done {
			return d.progress(visited, p), nil
		}
		d.affected += p.Affected
		d.current = nil
	}
}

// Task одношаговая операция над функцией, возвращающей число затронутых единиц
type Task struct {
	lifecycle
	fn       func(ctx context.Context) (int, error)
	affected int
}

// NewTask создаёт одношаговую операцию
func NewTask(fn func(ctx context.Context) (int, error)) *Task {
	return &Task{fn: fn}
}

func (t *Task) Advance(ctx context.Context, budget int) (Progress, error) {
	done, err := t.enter()
	if err != nil || done {
		return Progress{Done: done, Affected: t.affected}, err
	}
	n, err := t.fn(ctx)
	t.affected += n
	if err != nil {
		t.fail(err)
		return Progress{Affected: t.affected, Visited: 1, Remaining: -1}, err
	}
	t.complete()
	return Progress{Done: true, Affected: t.affected, Visited: 1}, nil
}
