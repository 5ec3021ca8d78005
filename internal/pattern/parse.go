package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/blockedit/internal/world/block"
)

// Parse разбирает текстовый шаблон: "stone", "stone:2" или "50%stone,50%dirt".
// Блоки без процента получают вес 1.
func Parse(s string, seed int64) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("пустой шаблон")
	}
	parts := strings.Split(s, ",")
	if len(parts) == 1 && !strings.Contains(s, "%") {
		v, err := block.ParseValue(s)
		if err != nil {
			return nil, err
		}
		return Single(v), nil
	}

	rp := NewRandomPattern(seed)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		weight := 1.0
		if i := strings.Index(part, "%"); i >= 0 {
			w, err := strconv.ParseFloat(part[:i], 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("неверный вес в шаблоне %q", part)
			}
			weight = w
			part = part[i+1:]
		}
		v, err := block.ParseValue(part)
		if err != nil {
			return nil, err
		}
		rp.Add(Single(v), weight)
	}
	return rp, nil
}
