package selector

import (
	"math"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
)

// Ellipsoid выделение эллипсоида: центр первичной точкой, радиусы вторичными.
// В режиме шара радиус одинаков по всем осям.
type Ellipsoid struct {
	base
	started    bool
	uniform    bool
	lastSecond vec.Vec3
	hasSecond  bool
	region     *region.Ellipsoid
}

// NewEllipsoid создаёт пустое выделение эллипсоида
func NewEllipsoid() *Ellipsoid {
	s := &Ellipsoid{region: region.NewEllipsoid(vec.Zero, vec.Vec3Float{})}
	s.self = s
	return s
}

// NewSphere создаёт пустое выделение шара
func NewSphere() *Ellipsoid {
	s := NewEllipsoid()
	s.uniform = true
	return s
}

func (s *Ellipsoid) Kind() Kind {
	if s.uniform {
		return KindSphere
	}
	return KindEllipsoid
}

func (s *Ellipsoid) State() State {
	switch {
	case s.IsDefined():
		return StateDefined
	case s.started:
		return StatePrimarySet
	default:
		return StateUndefined
	}
}

func (s *Ellipsoid) SelectPrimary(p vec.Vec3, _ Limits) bool {
	if s.started && s.region.CenterPos == p && s.region.Radius.LengthSq() == 0 {
		return false
	}
	s.region = region.NewEllipsoid(p, vec.Vec3Float{})
	s.started = true
	s.hasSecond = false
	s.notify(EventSelectionChanged)
	return true
}

// SelectSecondary расширяет радиусы так, чтобы точка оказалась на границе
func (s *Ellipsoid) SelectSecondary(p vec.Vec3, _ Limits) bool {
	if !s.started {
		return false
	}
	if s.hasSecond && s.lastSecond == p {
		return false
	}
	diff := p.Sub(s.region.CenterPos).ToFloat().Abs()
	if s.uniform {
		r := math.Ceil(diff.Length())
		s.region.SetRadius(vec.Vec3Float{X: r, Y: r, Z: r})
	} else {
		cur := s.region.Radius
		s.region.SetRadius(vec.Vec3Float{
			X: math.Max(cur.X, diff.X),
			Y: math.Max(cur.Y, diff.Y),
			Z: math.Max(cur.Z, diff.Z),
		})
	}
	s.lastSecond, s.hasSecond = p, true
	s.notify(EventSelectionChanged)
	return true
}

func (s *Ellipsoid) Clear() {
	s.started, s.hasSecond = false, false
	s.region = region.NewEllipsoid(vec.Zero, vec.Vec3Float{})
	s.notify(EventCleared)
}

func (s *Ellipsoid) IsDefined() bool {
	return s.started && s.region.Radius.LengthSq() > 0
}

func (s *Ellipsoid) Region() (region.Region, error) {
	if !s.IsDefined() {
		return nil, &IncompleteRegionError{Kind: s.Kind()}
	}
	return s.region, nil
}

func (s *Ellipsoid) IncompleteRegion() region.Region { return s.region }

func (s *Ellipsoid) LearnChanges() { s.notify(EventRegionAdjusted) }

func (s *Ellipsoid) PrimaryPosition() (vec.Vec3, bool) { return s.region.CenterPos, s.started }

func (s *Ellipsoid) VertexCount() int {
	if !s.started {
		return 0
	}
	if s.hasSecond {
		return 2
	}
	return 1
}

func (s *Ellipsoid) Describe() map[string]any {
	d := map[string]any{
		"type":   s.Kind().String(),
		"state":  s.State().String(),
		"center": s.region.CenterPos,
		"radius": s.region.Radius,
	}
	if s.IsDefined() {
		d["volume"] = s.region.Area()
	}
	return d
}
