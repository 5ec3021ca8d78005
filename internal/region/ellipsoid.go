package region

import (
	"iter"
	"math"

	"github.com/annel0/blockedit/internal/vec"
)

// Ellipsoid эллипсоид с центром в блоке и радиусами по трём осям
type Ellipsoid struct {
	CenterPos vec.Vec3      `json:"center"`
	Radius    vec.Vec3Float `json:"radius"`
}

// NewEllipsoid создаёт эллипсоид
func NewEllipsoid(center vec.Vec3, radius vec.Vec3Float) *Ellipsoid {
	return &Ellipsoid{CenterPos: center, Radius: radius.Abs()}
}

// NewSphere создаёт шар
func NewSphere(center vec.Vec3, radius float64) *Ellipsoid {
	return NewEllipsoid(center, vec.Vec3Float{X: radius, Y: radius, Z: radius})
}

func (e *Ellipsoid) Kind() Kind { return KindEllipsoid }

func (e *Ellipsoid) effective() vec.Vec3Float {
	return e.Radius.Add(vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5})
}

func (e *Ellipsoid) extent() vec.Vec3 {
	return e.effective().Floor()
}

func (e *Ellipsoid) MinimumPoint() vec.Vec3 { return e.CenterPos.Sub(e.extent()) }
func (e *Ellipsoid) MaximumPoint() vec.Vec3 { return e.CenterPos.Add(e.extent()) }
func (e *Ellipsoid) Center() vec.Vec3Float  { return e.CenterPos.ToFloat() }

func (e *Ellipsoid) Width() int  { return 2*e.extent().X + 1 }
func (e *Ellipsoid) Height() int { return 2*e.extent().Y + 1 }
func (e *Ellipsoid) Length() int { return 2*e.extent().Z + 1 }

func (e *Ellipsoid) Contains(p vec.Vec3) bool {
	r := e.effective()
	d := p.Sub(e.CenterPos).ToFloat().Div(r)
	return d.LengthSq() <= 1
}

func (e *Ellipsoid) Iterate() iter.Seq[vec.Vec3] {
	return iterateBounded(e.MinimumPoint(), e.MaximumPoint(), e.Contains)
}

func (e *Ellipsoid) Area() int64 { return countSeq(e.Iterate()) }

// Expand для эллипсоида не поддерживается
func (e *Ellipsoid) Expand(changes ...vec.Vec3) error {
	for _, ch := range changes {
		if ch != vec.Zero {
			return &OperationError{Op: "expand", Reason: ReasonUnsupported}
		}
	}
	return nil
}

// Contract для эллипсоида не поддерживается
func (e *Ellipsoid) Contract(changes ...vec.Vec3) error {
	for _, ch := range changes {
		if ch != vec.Zero {
			return &OperationError{Op: "contract", Reason: ReasonUnsupported}
		}
	}
	return nil
}

func (e *Ellipsoid) Shift(change vec.Vec3) error {
	e.CenterPos = e.CenterPos.Add(change)
	return nil
}

func (e *Ellipsoid) Transform(t AffineTransform) (Region, error) {
	if t.IsAxisAligned() {
		r := t.ApplyDirection(e.Radius).Abs()
		return NewEllipsoid(t.ApplyVec3(e.CenterPos), r), nil
	}
	return NewTransformed(e.Clone(), t), nil
}

func (e *Ellipsoid) AsFlatRegion() FlatRegion { return newProjectedFlat(e) }

func (e *Ellipsoid) Polygonize(maxPoints int) []vec.Vec2 {
	cyl := NewCylinder(e.CenterPos.ToVec2(), vec.Vec2Float{X: e.Radius.X, Z: e.Radius.Z}, e.CenterPos.Y, e.CenterPos.Y)
	return cyl.Polygonize(maxPoints)
}

// SetRadius задаёт радиусы, используется селектором
func (e *Ellipsoid) SetRadius(r vec.Vec3Float) {
	e.Radius = vec.Vec3Float{X: math.Abs(r.X), Y: math.Abs(r.Y), Z: math.Abs(r.Z)}
}

func (e *Ellipsoid) Clone() Region {
	cp := *e
	return &cp
}
