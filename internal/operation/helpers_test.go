package operation

import (
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/world/block"
)

func patternOf(id block.BlockID) pattern.Pattern { return pattern.Single(block.Of(id)) }
