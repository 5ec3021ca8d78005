package operation

import (
	"context"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/vec"
)

var (
	// DirectionsAll шесть соседей по граням
	DirectionsAll = []vec.Vec3{vec.UnitX, vec.UnitX.Neg(), vec.UnitY, vec.UnitY.Neg(), vec.UnitZ, vec.UnitZ.Neg()}
	// DirectionsNonRising соседи по горизонтали и снизу
	DirectionsNonRising = []vec.Vec3{vec.UnitX, vec.UnitX.Neg(), vec.UnitZ, vec.UnitZ.Neg(), vec.UnitY.Neg()}
)

// RecursiveVisitor обход в ширину от затравочных точек через соседей,
// проходящих маску. Затравки посещаются без проверки маски.
type RecursiveVisitor struct {
	lifecycle
	Mask       mask.Mask
	Function   function.Function
	Directions []vec.Vec3
	// Allow дополнительно ограничивает переход from -> to (может быть nil)
	Allow func(from, to vec.Vec3) bool

	queue    []vec.Vec3
	head     int
	visited  map[vec.Vec3]struct{}
	affected int
}

// NewRecursiveVisitor создаёт обход по всем шести направлениям
func NewRecursiveVisitor(m mask.Mask, fn function.Function) *RecursiveVisitor {
	return &RecursiveVisitor{
		Mask:       m,
		Function:   fn,
		Directions: DirectionsAll,
		visited:    make(map[vec.Vec3]struct{}),
	}
}

// NewNonRisingVisitor создаёт обход, который никогда не поднимается вверх
func NewNonRisingVisitor(m mask.Mask, fn function.Function) *RecursiveVisitor {
	v := NewRecursiveVisitor(m, fn)
	v.Directions = DirectionsNonRising
	return v
}

// NewDownwardVisitor создаёт обход, который растекается по горизонтали
// только на уровне baseY и дальше идёт вниз
func NewDownwardVisitor(m mask.Mask, fn function.Function, baseY int) *RecursiveVisitor {
	v := NewNonRisingVisitor(m, fn)
	v.Allow = func(from, to vec.Vec3) bool {
		return to.Y < from.Y || from.Y == baseY
	}
	return v
}

// Visit добавляет затравочную точку
func (v *RecursiveVisitor) Visit(p vec.Vec3) {
	if _, ok := v.visited[p]; ok {
		return
	}
	v.visited[p] = struct{}{}
	v.queue = append(v.queue, p)
}

func (v *RecursiveVisitor) Affected() int { return v.affected }

func (v *RecursiveVisitor) progress(visited int) Progress {
	return Progress{
		Done:      v.Status() == StatusCompleted,
		Remaining: int64(len(v.queue) - v.head),
		Affected:  v.affected,
		Visited:   visited,
	}
}

func (v *RecursiveVisitor) Advance(ctx context.Context, budget int) (Progress, error) {
	done, err := v.enter()
	if err != nil {
		v.queue, v.head = nil, 0
		return v.progress(0), err
	}
	if done {
		return v.progress(0), nil
	}

	visited := 0
	for budget <= 0 || visited < budget {
		if visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return v.progress(visited), err
			}
		}
		if v.head == len(v.queue) {
			v.queue, v.head = nil, 0
			v.complete()
			return v.progress(visited), nil
		}
		p := v.queue[v.head]
		v.head++
		visited++

		hit, err := v.Function.Apply(p)
		if err != nil {
			v.fail(err)
			return v.progress(visited), err
		}
		if hit {
			v.affected++
		}
		for _, d := range v.Directions {
			next := p.Add(d)
			if _, seen := v.visited[next]; seen {
				continue
			}
			if v.Allow != nil && !v.Allow(p, next) {
				continue
			}
			if v.Mask != nil && !v.Mask.Test(next) {
				continue
			}
			v.visited[next] = struct{}{}
			v.queue = append(v.queue, next)
		}
		// Сжимаем очередь, когда обработанная часть становится большой
		if v.head > 4096 && v.head*2 > len(v.queue) {
			v.queue = append(v.queue[:0], v.queue[v.head:]...)
			v.head = 0
		}
	}
	return v.progress(visited), nil
}
