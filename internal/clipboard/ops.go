package clipboard

import (
	"context"
	"fmt"

	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// CopyOptions параметры копирования
type CopyOptions struct {
	Mask     mask.Mask // копируются только прошедшие маску блоки
	Entities bool      // копировать сущности области
}

// EntitySpawner мир, умеющий создавать сущности. Вставка сущностей
// выполняется только для таких миров и в журнал не попадает.
type EntitySpawner interface {
	AddEntity(e world.Entity) uint64
}

// PrepareCopy строит операцию копирования области в новый буфер
func PrepareCopy(es *edit.EditSession, r region.Region, origin vec.Vec3, opts CopyOptions) (operation.Operation, *Clipboard) {
	cb := New(r)
	cb.Origin = origin
	lo := r.MinimumPoint()
	v := operation.NewRegionVisitor(r, function.NewExtentBlockCopy(es, lo, cb, lo))
	v.Mask = opts.Mask
	return v, cb
}

// Copy копирует область в буфер. Возвращает число скопированных ячеек.
func Copy(ctx context.Context, es *edit.EditSession, r region.Region, origin vec.Vec3, opts CopyOptions) (*Clipboard, int, error) {
	op, cb := PrepareCopy(es, r, origin, opts)
	p, err := operation.Run(ctx, op)
	if err != nil {
		return nil, p.Affected, err
	}
	if opts.Entities {
		if cb.Entities, err = es.World().Entities(r); err != nil {
			return nil, p.Affected, fmt.Errorf("ошибка чтения сущностей: %w", err)
		}
	}
	return cb, p.Affected, nil
}

// PrepareCut копирует область и затем заполняет её шаблоном leave.
// Вторая стадия начинается только после завершения копирования.
func PrepareCut(es *edit.EditSession, r region.Region, origin vec.Vec3, leave pattern.Pattern, opts CopyOptions) (operation.Operation, *Clipboard, function.Counted) {
	if leave == nil {
		leave = pattern.Single(block.Air)
	}
	copyOp, cb := PrepareCopy(es, r, origin, opts)
	replace := function.NewBlockReplace(es, leave)
	clearOp := operation.NewRegionVisitor(r, replace)
	clearOp.Mask = opts.Mask
	return operation.Chain(copyOp, clearOp), cb, replace
}

// Cut вырезает область в буфер. Возвращает число изменённых в мире блоков.
// Вырезанные сущности удаляются из мира без записи в журнал.
func Cut(ctx context.Context, es *edit.EditSession, r region.Region, origin vec.Vec3, leave pattern.Pattern, opts CopyOptions) (*Clipboard, int, error) {
	op, cb, counter := PrepareCut(es, r, origin, leave, opts)
	n, err := es.Run(ctx, op, counter)
	if err != nil {
		return nil, n, err
	}
	if opts.Entities {
		if cb.Entities, err = es.World().Entities(r); err != nil {
			return cb, n, fmt.Errorf("ошибка чтения сущностей: %w", err)
		}
		for _, e := range cb.Entities {
			if err := es.World().RemoveEntity(e.ID); err != nil {
				return cb, n, fmt.Errorf("ошибка удаления сущности %d: %w", e.ID, err)
			}
		}
	}
	return cb, n, nil
}

// sourceMask маска ячеек буфера, участвующих во вставке
func (c *Clipboard) sourceMask(ignoreAir bool) mask.Mask {
	var masks []mask.Mask
	if c.present != nil {
		masks = append(masks, mask.Func(c.Contains))
	}
	if ignoreAir {
		masks = append(masks, &mask.ExistingBlockMask{Extent: c})
	}
	switch len(masks) {
	case 0:
		return nil
	case 1:
		return masks[0]
	}
	return mask.And(masks...)
}

// PreparePaste строит операцию вставки: ячейка p попадает в to + Transform(p - Origin)
func (c *Clipboard) PreparePaste(es *edit.EditSession, to vec.Vec3, ignoreAir bool) (operation.Operation, function.Counted) {
	fn := function.NewExtentBlockCopy(c, c.Origin, es, to)
	fn.Transform = c.Transform
	v := operation.NewRegionVisitor(c.Region, fn)
	v.Mask = c.sourceMask(ignoreAir)

	spawner, ok := es.World().(EntitySpawner)
	if !ok || len(c.Entities) == 0 {
		return v, fn
	}
	spawn := operation.NewTask(func(context.Context) (int, error) {
		for _, e := range c.Entities {
			off := e.Position.Sub(c.Origin.ToFloat())
			e.Position = to.ToFloat().Add(c.Transform.ApplyDirection(off))
			spawner.AddEntity(e)
		}
		return 0, nil
	})
	return operation.Chain(v, spawn), fn
}

// Paste вставляет буфер. atOrigin вставляет в исходную точку копирования.
// Возвращает число изменённых блоков.
func (c *Clipboard) Paste(ctx context.Context, es *edit.EditSession, to vec.Vec3, ignoreAir, atOrigin bool) (int, error) {
	if atOrigin {
		to = c.Origin
	}
	op, counter := c.PreparePaste(es, to, ignoreAir)
	return es.Run(ctx, op, counter)
}
