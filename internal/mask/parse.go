package mask

import (
	"fmt"
	"strings"

	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// Parse разбирает текстовую маску:
//
//	stone,dirt     блоки этих типов (stone:2 - с учётом данных)
//	!water         отрицание
//	#existing      любой не воздух
//	#solid         твёрдые блоки
//	=y>5           формула
//	a b            пересечение масок через пробел
func Parse(e world.Extent, s string) (Mask, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("пустая маска")
	}
	masks := make([]Mask, 0, len(parts))
	for _, part := range parts {
		m, err := parseOne(e, part)
		if err != nil {
			return nil, err
		}
		masks = append(masks, m)
	}
	if len(masks) == 1 {
		return masks[0], nil
	}
	return And(masks...), nil
}

func parseOne(e world.Extent, s string) (Mask, error) {
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		m, err := parseOne(e, rest)
		if err != nil {
			return nil, err
		}
		return Not(m), nil
	}
	switch s {
	case "#existing":
		return &ExistingBlockMask{Extent: e}, nil
	case "#solid":
		return &SolidBlockMask{Extent: e}, nil
	}
	if src, ok := strings.CutPrefix(s, "="); ok {
		return NewExpressionMask(src)
	}

	m := NewBlockMask(e)
	for _, item := range strings.Split(s, ",") {
		v, err := block.ParseValue(item)
		if err != nil {
			return nil, err
		}
		if strings.Contains(item, ":") {
			m.exact = append(m.exact, v)
		} else {
			m.AddType(v.ID)
		}
	}
	return m, nil
}
