package selector

import (
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
)

// Cuboid выделение параллелепипеда по двум углам
type Cuboid struct {
	base
	pos1, pos2 vec.Vec3
	has1, has2 bool
	region     *region.Cuboid
}

// NewCuboid создаёт пустое выделение
func NewCuboid() *Cuboid {
	s := &Cuboid{region: region.NewCuboid(vec.Zero, vec.Zero)}
	s.self = s
	return s
}

func (s *Cuboid) Kind() Kind { return KindCuboid }

func (s *Cuboid) State() State {
	switch {
	case s.has1 && s.has2:
		return StateDefined
	case s.has1 || s.has2:
		return StatePrimarySet
	default:
		return StateUndefined
	}
}

func (s *Cuboid) setPositions(p1, p2 vec.Vec3) {
	s.pos1, s.pos2 = p1, p2
	s.has1, s.has2 = true, true
	s.recalculate()
}

func (s *Cuboid) recalculate() {
	switch {
	case s.has1 && s.has2:
		s.region.Pos1, s.region.Pos2 = s.pos1, s.pos2
	case s.has1:
		s.region.Pos1, s.region.Pos2 = s.pos1, s.pos1
	case s.has2:
		s.region.Pos1, s.region.Pos2 = s.pos2, s.pos2
	}
}

func (s *Cuboid) SelectPrimary(p vec.Vec3, _ Limits) bool {
	if s.has1 && s.pos1 == p {
		return false
	}
	s.pos1, s.has1 = p, true
	s.recalculate()
	s.notify(EventSelectionChanged)
	return true
}

func (s *Cuboid) SelectSecondary(p vec.Vec3, _ Limits) bool {
	if s.has2 && s.pos2 == p {
		return false
	}
	s.pos2, s.has2 = p, true
	s.recalculate()
	s.notify(EventSelectionChanged)
	return true
}

func (s *Cuboid) Clear() {
	s.has1, s.has2 = false, false
	s.region = region.NewCuboid(vec.Zero, vec.Zero)
	s.notify(EventCleared)
}

func (s *Cuboid) IsDefined() bool { return s.has1 && s.has2 }

func (s *Cuboid) Region() (region.Region, error) {
	if !s.IsDefined() {
		return nil, &IncompleteRegionError{Kind: KindCuboid}
	}
	return s.region, nil
}

func (s *Cuboid) IncompleteRegion() region.Region { return s.region }

func (s *Cuboid) LearnChanges() {
	if s.has1 {
		s.pos1 = s.region.Pos1
	}
	if s.has2 {
		s.pos2 = s.region.Pos2
	}
	s.notify(EventRegionAdjusted)
}

func (s *Cuboid) PrimaryPosition() (vec.Vec3, bool) { return s.pos1, s.has1 }

func (s *Cuboid) VertexCount() int {
	n := 0
	if s.has1 {
		n++
	}
	if s.has2 {
		n++
	}
	return n
}

func (s *Cuboid) Describe() map[string]any {
	d := map[string]any{"type": KindCuboid.String(), "state": s.State().String()}
	if s.has1 {
		d["pos1"] = s.pos1
	}
	if s.has2 {
		d["pos2"] = s.pos2
	}
	if s.IsDefined() {
		d["size"] = vec.Vec3{X: s.region.Width(), Y: s.region.Height(), Z: s.region.Length()}
		d["volume"] = s.region.Area()
	}
	return d
}

// Extending выделение, которое вторичной точкой расширяется до неё
type Extending struct {
	Cuboid
}

// NewExtending создаёт пустое расширяемое выделение
func NewExtending() *Extending {
	s := &Extending{Cuboid: Cuboid{region: region.NewCuboid(vec.Zero, vec.Zero)}}
	s.self = s
	return s
}

func (s *Extending) Kind() Kind { return KindExtending }

// SelectPrimary начинает новое выделение в одну точку
func (s *Extending) SelectPrimary(p vec.Vec3, _ Limits) bool {
	if s.has1 && s.has2 && s.pos1 == p && s.pos2 == p {
		return false
	}
	s.pos1, s.pos2 = p, p
	s.has1, s.has2 = true, true
	s.recalculate()
	s.notify(EventSelectionChanged)
	return true
}

// SelectSecondary растягивает параллелепипед, чтобы он включал точку
func (s *Extending) SelectSecondary(p vec.Vec3, limits Limits) bool {
	if !s.has1 || !s.has2 {
		return s.SelectPrimary(p, limits)
	}
	if s.region.Contains(p) {
		return false
	}
	lo := s.region.MinimumPoint().Min(p)
	hi := s.region.MaximumPoint().Max(p)
	s.pos1, s.pos2 = lo, hi
	s.recalculate()
	s.notify(EventSelectionChanged)
	return true
}

func (s *Extending) Region() (region.Region, error) {
	if !s.IsDefined() {
		return nil, &IncompleteRegionError{Kind: KindExtending}
	}
	return s.region, nil
}

func (s *Extending) Describe() map[string]any {
	d := s.Cuboid.Describe()
	d["type"] = KindExtending.String()
	return d
}
