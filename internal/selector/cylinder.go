package selector

import (
	"math"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
)

// Cylinder выделение вертикального цилиндра: центр и высота первичной точкой,
// радиусы и высота растут вторичными точками.
type Cylinder struct {
	base
	started    bool
	lastSecond vec.Vec3
	hasSecond  bool
	region     *region.Cylinder
}

// NewCylinder создаёт пустое выделение цилиндра
func NewCylinder() *Cylinder {
	s := &Cylinder{region: region.NewCylinder(vec.Vec2{}, vec.Vec2Float{}, 0, 0)}
	s.self = s
	return s
}

func (s *Cylinder) Kind() Kind { return KindCylinder }

func (s *Cylinder) State() State {
	switch {
	case s.IsDefined():
		return StateDefined
	case s.started:
		return StatePrimarySet
	default:
		return StateUndefined
	}
}

func (s *Cylinder) SelectPrimary(p vec.Vec3, _ Limits) bool {
	if s.started && !s.hasSecond && s.region.CenterXZ == p.ToVec2() && s.region.MinY == p.Y {
		return false
	}
	s.region = region.NewCylinder(p.ToVec2(), vec.Vec2Float{}, p.Y, p.Y)
	s.started = true
	s.hasSecond = false
	s.notify(EventSelectionChanged)
	return true
}

func (s *Cylinder) SelectSecondary(p vec.Vec3, _ Limits) bool {
	if !s.started {
		return false
	}
	if s.hasSecond && s.lastSecond == p {
		return false
	}
	d := p.ToVec2().Sub(s.region.CenterXZ)
	s.region.Radius = vec.Vec2Float{
		X: math.Max(s.region.Radius.X, math.Abs(float64(d.X))),
		Z: math.Max(s.region.Radius.Z, math.Abs(float64(d.Z))),
	}
	s.region.MinY = min(s.region.MinY, p.Y)
	s.region.MaxY = max(s.region.MaxY, p.Y)
	s.lastSecond, s.hasSecond = p, true
	s.notify(EventSelectionChanged)
	return true
}

func (s *Cylinder) Clear() {
	s.started, s.hasSecond = false, false
	s.region = region.NewCylinder(vec.Vec2{}, vec.Vec2Float{}, 0, 0)
	s.notify(EventCleared)
}

func (s *Cylinder) IsDefined() bool {
	return s.started && s.hasSecond
}

func (s *Cylinder) Region() (region.Region, error) {
	if !s.IsDefined() {
		return nil, &IncompleteRegionError{Kind: KindCylinder}
	}
	return s.region, nil
}

func (s *Cylinder) IncompleteRegion() region.Region { return s.region }

func (s *Cylinder) LearnChanges() { s.notify(EventRegionAdjusted) }

func (s *Cylinder) PrimaryPosition() (vec.Vec3, bool) {
	return s.region.CenterXZ.ToVec3(s.region.MinY), s.started
}

func (s *Cylinder) VertexCount() int {
	if !s.started {
		return 0
	}
	if s.hasSecond {
		return 2
	}
	return 1
}

func (s *Cylinder) Describe() map[string]any {
	d := map[string]any{
		"type":   KindCylinder.String(),
		"state":  s.State().String(),
		"center": s.region.CenterXZ,
		"radius": s.region.Radius,
		"min_y":  s.region.MinY,
		"max_y":  s.region.MaxY,
	}
	if s.IsDefined() {
		d["volume"] = s.region.Area()
	}
	return d
}
