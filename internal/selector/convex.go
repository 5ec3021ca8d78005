package selector

import (
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
)

// Convex выделение выпуклой оболочки по произвольному набору вершин
type Convex struct {
	base
	hull *region.ConvexPolyhedral
}

// NewConvex создаёт пустое выделение оболочки
func NewConvex() *Convex {
	s := &Convex{hull: region.NewConvexPolyhedral()}
	s.self = s
	return s
}

func (s *Convex) Kind() Kind { return KindConvex }

func (s *Convex) State() State {
	switch n := s.VertexCount(); {
	case n == 0:
		return StateUndefined
	case s.hull.IsDefined():
		return StateDefined
	case n == 1:
		return StatePrimarySet
	default:
		return StateAccumulating
	}
}

// SelectPrimary начинает оболочку заново с одной вершины
func (s *Convex) SelectPrimary(p vec.Vec3, _ Limits) bool {
	vs := s.hull.Vertices()
	if len(vs) == 1 && vs[0] == p {
		return false
	}
	s.hull = region.NewConvexPolyhedral(p)
	s.notify(EventSelectionChanged)
	return true
}

// SelectSecondary добавляет вершину; повтор и превышение лимита дают false
func (s *Convex) SelectSecondary(p vec.Vec3, limits Limits) bool {
	if s.VertexCount() == 0 {
		return s.SelectPrimary(p, limits)
	}
	if limits.MaxPolyhedronVertices > 0 && s.VertexCount() >= limits.MaxPolyhedronVertices {
		return false
	}
	if !s.hull.AddVertex(p) {
		return false
	}
	s.notify(EventSelectionChanged)
	return true
}

func (s *Convex) Clear() {
	s.hull = region.NewConvexPolyhedral()
	s.notify(EventCleared)
}

func (s *Convex) IsDefined() bool { return s.hull.IsDefined() }

func (s *Convex) Region() (region.Region, error) {
	if !s.IsDefined() {
		return nil, &IncompleteRegionError{Kind: KindConvex}
	}
	return s.hull, nil
}

func (s *Convex) IncompleteRegion() region.Region { return s.hull }

func (s *Convex) LearnChanges() { s.notify(EventRegionAdjusted) }

func (s *Convex) PrimaryPosition() (vec.Vec3, bool) {
	vs := s.hull.Vertices()
	if len(vs) == 0 {
		return vec.Vec3{}, false
	}
	return vs[0], true
}

func (s *Convex) VertexCount() int { return len(s.hull.Vertices()) }

func (s *Convex) Describe() map[string]any {
	d := map[string]any{
		"type":     KindConvex.String(),
		"state":    s.State().String(),
		"vertices": s.hull.Vertices(),
	}
	if s.IsDefined() {
		d["volume"] = s.hull.Area()
	}
	return d
}
