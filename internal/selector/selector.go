// Package selector хранит выделение оператора и превращает клики pos1/pos2
// в область мира. Каждый вариант выделения является конечным автоматом
// Undefined → PrimarySet → (Accumulating) → Defined.
package selector

import (
	"fmt"
	"strings"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
)

// Kind вариант выделения
type Kind int

const (
	KindCuboid Kind = iota
	KindExtending
	KindPolygon
	KindEllipsoid
	KindSphere
	KindCylinder
	KindConvex
)

var kindNames = map[Kind]string{
	KindCuboid:    "cuboid",
	KindExtending: "extend",
	KindPolygon:   "poly",
	KindEllipsoid: "ellipsoid",
	KindSphere:    "sphere",
	KindCylinder:  "cyl",
	KindConvex:    "convex",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseKind разбирает имя варианта выделения
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	switch s {
	case "polygon", "poly2d":
		return KindPolygon, nil
	case "cylinder":
		return KindCylinder, nil
	case "hull", "polyhedron":
		return KindConvex, nil
	}
	return 0, fmt.Errorf("неизвестный тип выделения: %q", s)
}

// State состояние автомата выделения
type State int

const (
	StateUndefined State = iota
	StatePrimarySet
	StateAccumulating
	StateDefined
)

func (s State) String() string {
	switch s {
	case StatePrimarySet:
		return "primary_set"
	case StateAccumulating:
		return "accumulating"
	case StateDefined:
		return "defined"
	default:
		return "undefined"
	}
}

// Limits ограничения на число вершин. Ноль или меньше - без ограничения.
type Limits struct {
	MaxPolygonVertices    int `yaml:"max_polygon_vertices" json:"max_polygon_vertices"`
	MaxPolyhedronVertices int `yaml:"max_polyhedron_vertices" json:"max_polyhedron_vertices"`
}

// IncompleteRegionError выделение ещё не задаёт область
type IncompleteRegionError struct {
	Kind Kind
}

func (e *IncompleteRegionError) Error() string {
	return fmt.Sprintf("выделение %s не завершено", e.Kind)
}

// EventType тип уведомления наблюдателя
type EventType int

const (
	EventSelectionChanged EventType = iota // изменились точки выделения
	EventRegionAdjusted                    // область изменена командой (expand, shift ...)
	EventCleared
)

func (t EventType) String() string {
	switch t {
	case EventRegionAdjusted:
		return "region_adjusted"
	case EventCleared:
		return "cleared"
	default:
		return "selection_changed"
	}
}

// Observer получает уведомление о каждом фактическом изменении
type Observer func(s Selector, ev EventType)

// Selector выделение одного оператора в одном мире
type Selector interface {
	Kind() Kind
	State() State
	// SelectPrimary задаёт первую точку. false - если ничего не изменилось.
	SelectPrimary(p vec.Vec3, limits Limits) bool
	// SelectSecondary задаёт следующую точку. false - если ничего не изменилось
	// или превышен лимит вершин.
	SelectSecondary(p vec.Vec3, limits Limits) bool
	Clear()
	IsDefined() bool
	// Region возвращает живую область выделения. Её можно менять
	// (Expand, Shift ...) и затем вызвать LearnChanges.
	Region() (region.Region, error)
	// IncompleteRegion возвращает область даже для незавершённого выделения
	IncompleteRegion() region.Region
	// LearnChanges синхронизирует точки выделения с изменённой областью
	LearnChanges()
	PrimaryPosition() (vec.Vec3, bool)
	VertexCount() int
	Describe() map[string]any
	SetObserver(o Observer)
}

// base общая часть всех вариантов
type base struct {
	observer Observer
	self     Selector
}

func (b *base) SetObserver(o Observer) { b.observer = o }

func (b *base) notify(ev EventType) {
	if b.observer != nil && b.self != nil {
		b.observer(b.self, ev)
	}
}

// New создаёт пустое выделение указанного типа
func New(kind Kind) Selector {
	switch kind {
	case KindExtending:
		return NewExtending()
	case KindPolygon:
		return NewPolygon()
	case KindEllipsoid:
		return NewEllipsoid()
	case KindSphere:
		return NewSphere()
	case KindCylinder:
		return NewCylinder()
	case KindConvex:
		return NewConvex()
	default:
		return NewCuboid()
	}
}

// Convert создаёт выделение нового типа, перенося границы старого,
// если это возможно. Наблюдатель сохраняется.
func Convert(old Selector, kind Kind, limits Limits) Selector {
	s := New(kind)
	if old == nil {
		return s
	}
	if obs := observerOf(old); obs != nil {
		s.SetObserver(obs)
	}
	r, err := old.Region()
	if err != nil {
		return s
	}
	lo, hi := r.MinimumPoint(), r.MaximumPoint()

	switch sel := s.(type) {
	case *Cuboid:
		sel.setPositions(lo, hi)
	case *Extending:
		sel.setPositions(lo, hi)
	case *Polygon:
		pts := r.Polygonize(limits.MaxPolygonVertices)
		if len(pts) == 0 {
			return s
		}
		sel.poly = region.NewPolygon2D(pts, lo.Y, hi.Y)
		sel.primary = pts[0].ToVec3(lo.Y)
		sel.hasPrimary = true
	case *Convex:
		for _, x := range []int{lo.X, hi.X} {
			for _, y := range []int{lo.Y, hi.Y} {
				for _, z := range []int{lo.Z, hi.Z} {
					sel.hull.AddVertex(vec.Vec3{X: x, Y: y, Z: z})
				}
			}
		}
	}
	return s
}

func observerOf(s Selector) Observer {
	switch sel := s.(type) {
	case *Cuboid:
		return sel.observer
	case *Extending:
		return sel.observer
	case *Polygon:
		return sel.observer
	case *Ellipsoid:
		return sel.observer
	case *Cylinder:
		return sel.observer
	case *Convex:
		return sel.observer
	}
	return nil
}
