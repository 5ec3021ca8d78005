package selector

import (
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
)

// Polygon выделение многоугольника в плоскости XZ с высотой по кликам
type Polygon struct {
	base
	primary    vec.Vec3
	hasPrimary bool
	poly       *region.Polygon2D
}

// NewPolygon создаёт пустое выделение многоугольника
func NewPolygon() *Polygon {
	s := &Polygon{poly: region.NewPolygon2D(nil, 0, 0)}
	s.self = s
	return s
}

func (s *Polygon) Kind() Kind { return KindPolygon }

func (s *Polygon) State() State {
	switch n := len(s.poly.Points); {
	case n == 0:
		return StateUndefined
	case n == 1:
		return StatePrimarySet
	case n < 3:
		return StateAccumulating
	default:
		return StateDefined
	}
}

// SelectPrimary начинает многоугольник заново с одной вершины
func (s *Polygon) SelectPrimary(p vec.Vec3, _ Limits) bool {
	if s.hasPrimary && s.primary == p && len(s.poly.Points) == 1 {
		return false
	}
	s.primary, s.hasPrimary = p, true
	s.poly = region.NewPolygon2D(nil, p.Y, p.Y)
	s.poly.AddPoint(p)
	s.notify(EventSelectionChanged)
	return true
}

// SelectSecondary добавляет вершину. Повтор последней вершины и превышение лимита дают false.
func (s *Polygon) SelectSecondary(p vec.Vec3, limits Limits) bool {
	if len(s.poly.Points) == 0 {
		return s.SelectPrimary(p, limits)
	}
	last := s.poly.Points[len(s.poly.Points)-1]
	if last == p.ToVec2() && p.Y >= s.poly.MinY && p.Y <= s.poly.MaxY {
		return false
	}
	if limits.MaxPolygonVertices > 0 && len(s.poly.Points) >= limits.MaxPolygonVertices {
		return false
	}
	s.poly.AddPoint(p)
	s.notify(EventSelectionChanged)
	return true
}

func (s *Polygon) Clear() {
	s.hasPrimary = false
	s.poly = region.NewPolygon2D(nil, 0, 0)
	s.notify(EventCleared)
}

func (s *Polygon) IsDefined() bool { return len(s.poly.Points) >= 3 }

func (s *Polygon) Region() (region.Region, error) {
	if !s.IsDefined() {
		return nil, &IncompleteRegionError{Kind: KindPolygon}
	}
	return s.poly, nil
}

func (s *Polygon) IncompleteRegion() region.Region { return s.poly }

func (s *Polygon) LearnChanges() {
	if len(s.poly.Points) > 0 {
		s.primary = s.poly.Points[0].ToVec3(s.poly.MinY)
	}
	s.notify(EventRegionAdjusted)
}

func (s *Polygon) PrimaryPosition() (vec.Vec3, bool) { return s.primary, s.hasPrimary }

func (s *Polygon) VertexCount() int { return len(s.poly.Points) }

func (s *Polygon) Describe() map[string]any {
	d := map[string]any{
		"type":   KindPolygon.String(),
		"state":  s.State().String(),
		"points": append([]vec.Vec2(nil), s.poly.Points...),
		"min_y":  s.poly.MinY,
		"max_y":  s.poly.MaxY,
	}
	if s.IsDefined() {
		d["volume"] = s.poly.Area()
	}
	return d
}
