package region

import (
	"encoding/json"
	"iter"
	"math"

	"github.com/annel0/blockedit/internal/vec"
)

// AffineTransform аффинное преобразование 3x4: поворот/отражение/масштаб плюс сдвиг.
// Значение неизменяемо, все методы возвращают новое преобразование.
type AffineTransform struct {
	m [3][4]float64
}

// Identity тождественное преобразование
func Identity() AffineTransform {
	return AffineTransform{m: [3][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}}
}

// IsIdentity проверяет, что преобразование тождественно
func (t AffineTransform) IsIdentity() bool {
	return t == Identity() || t == AffineTransform{}
}

func (t AffineTransform) norm() AffineTransform {
	if t == (AffineTransform{}) {
		return Identity()
	}
	return t
}

// Combine возвращает преобразование «сначала t, затем other»
func (t AffineTransform) Combine(other AffineTransform) AffineTransform {
	a := other.norm().m
	b := t.norm().m
	var r AffineTransform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.m[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
		r.m[i][3] = a[i][0]*b[0][3] + a[i][1]*b[1][3] + a[i][2]*b[2][3] + a[i][3]
	}
	return r
}

// Translate добавляет сдвиг
func (t AffineTransform) Translate(d vec.Vec3Float) AffineTransform {
	s := Identity()
	s.m[0][3], s.m[1][3], s.m[2][3] = d.X, d.Y, d.Z
	return t.Combine(s)
}

// Scale добавляет масштабирование (отрицательные компоненты дают отражение)
func (t AffineTransform) Scale(f vec.Vec3Float) AffineTransform {
	s := Identity()
	s.m[0][0], s.m[1][1], s.m[2][2] = f.X, f.Y, f.Z
	return t.Combine(s)
}

// RotateX добавляет поворот вокруг оси X на угол в градусах
func (t AffineTransform) RotateX(deg float64) AffineTransform {
	c, s := cosSin(deg)
	r := Identity()
	r.m[1][1], r.m[1][2] = c, -s
	r.m[2][1], r.m[2][2] = s, c
	return t.Combine(r)
}

// RotateY добавляет поворот вокруг вертикальной оси на угол в градусах
func (t AffineTransform) RotateY(deg float64) AffineTransform {
	c, s := cosSin(deg)
	r := Identity()
	r.m[0][0], r.m[0][2] = c, s
	r.m[2][0], r.m[2][2] = -s, c
	return t.Combine(r)
}

// RotateZ добавляет поворот вокруг оси Z на угол в градусах
func (t AffineTransform) RotateZ(deg float64) AffineTransform {
	c, s := cosSin(deg)
	r := Identity()
	r.m[0][0], r.m[0][1] = c, -s
	r.m[1][0], r.m[1][1] = s, c
	return t.Combine(r)
}

// Determinant определитель линейной части
func (t AffineTransform) Determinant() float64 {
	m := t.norm().m
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse возвращает обратное преобразование. Для вырожденной матрицы ok = false.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	m := t.norm().m
	det := t.Determinant()
	if math.Abs(det) < 1e-12 {
		return AffineTransform{}, false
	}
	var r AffineTransform
	r.m[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / det
	r.m[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det
	r.m[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det
	r.m[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / det
	r.m[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det
	r.m[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det
	r.m[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / det
	r.m[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det
	r.m[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det
	for i := 0; i < 3; i++ {
		r.m[i][3] = -(r.m[i][0]*m[0][3] + r.m[i][1]*m[1][3] + r.m[i][2]*m[2][3])
	}
	return r, true
}

// Apply применяет преобразование к вещественной точке
func (t AffineTransform) Apply(p vec.Vec3Float) vec.Vec3Float {
	m := t.norm().m
	return vec.Vec3Float{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// ApplyVec3 применяет преобразование к координате блока с округлением
func (t AffineTransform) ApplyVec3(p vec.Vec3) vec.Vec3 {
	return t.Apply(p.ToFloat()).Round()
}

// ApplyDirection применяет только линейную часть (без сдвига)
func (t AffineTransform) ApplyDirection(p vec.Vec3Float) vec.Vec3Float {
	m := t.norm().m
	return vec.Vec3Float{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z,
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z,
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z,
	}
}

// IsAxisAligned проверяет, что линейная часть переставляет оси с коэффициентами ±1
// (повороты на 90 градусов и отражения) и сдвиг целочисленный.
func (t AffineTransform) IsAxisAligned() bool {
	m := t.norm().m
	for i := 0; i < 3; i++ {
		nonZero := 0
		for j := 0; j < 3; j++ {
			switch m[i][j] {
			case 0:
			case 1, -1:
				nonZero++
			default:
				return false
			}
		}
		if nonZero != 1 || m[i][3] != math.Trunc(m[i][3]) {
			return false
		}
	}
	return true
}

// PreservesVertical проверяет, что вертикальная ось переходит сама в себя
func (t AffineTransform) PreservesVertical() bool {
	m := t.norm().m
	return math.Abs(m[1][1]) == 1 && m[0][1] == 0 && m[2][1] == 0
}

// IsTranslationOnly проверяет, что преобразование является целочисленным сдвигом
func (t AffineTransform) IsTranslationOnly() (vec.Vec3, bool) {
	m := t.norm().m
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if m[i][j] != want {
				return vec.Vec3{}, false
			}
		}
		if m[i][3] != math.Trunc(m[i][3]) {
			return vec.Vec3{}, false
		}
	}
	return vec.Vec3{X: int(m[0][3]), Y: int(m[1][3]), Z: int(m[2][3])}, true
}

// cosSin возвращает точные значения для углов, кратных 90 градусам
func cosSin(deg float64) (float64, float64) {
	if math.Mod(deg, 90) == 0 {
		switch int(math.Mod(math.Mod(deg, 360)+360, 360)) {
		case 0:
			return 1, 0
		case 90:
			return 0, 1
		case 180:
			return -1, 0
		case 270:
			return 0, -1
		}
	}
	rad := deg * math.Pi / 180
	return math.Cos(rad), math.Sin(rad)
}

// Rotate возвращает поворот вокруг вертикальной оси
func Rotate(deg float64) AffineTransform { return Identity().RotateY(deg) }

// Flip возвращает отражение вдоль направления (по ненулевым компонентам dir)
func Flip(dir vec.Vec3) AffineTransform {
	f := vec.Vec3Float{X: 1, Y: 1, Z: 1}
	if dir.X != 0 {
		f.X = -1
	}
	if dir.Y != 0 {
		f.Y = -1
	}
	if dir.Z != 0 {
		f.Z = -1
	}
	return Identity().Scale(f)
}

// Shift возвращает целочисленный сдвиг
func Shift(d vec.Vec3) AffineTransform { return Identity().Translate(d.ToFloat()) }

// Transformed область, полученная применением преобразования к базовой.
// Клетка p принадлежит области, если round(T^-1(p)) лежит в базовой области;
// обход перебирает ограничивающий параллелепипед и оставляет только такие клетки,
// поэтому он не содержит повторов и всегда согласован с Contains.
type Transformed struct {
	Base    Region
	Matrix  AffineTransform
	inverse AffineTransform
	invOK   bool

	// точные границы считаются один раз и сбрасываются при Shift
	lo, hi   vec.Vec3
	boundsOK bool
}

// NewTransformed создаёт преобразованную область
func NewTransformed(base Region, t AffineTransform) *Transformed {
	inv, ok := t.Inverse()
	return &Transformed{Base: base, Matrix: t.norm(), inverse: inv, invOK: ok}
}

func (r *Transformed) Kind() Kind { return KindTransformed }

// searchBounds образ базового параллелепипеда, расширенного на полклетки:
// все клетки, чей прообраз округляется внутрь базы, попадают в него.
func (r *Transformed) searchBounds() (vec.Vec3, vec.Vec3) {
	lo, hi := r.Base.MinimumPoint().ToFloat(), r.Base.MaximumPoint().ToFloat()
	const pad = 0.5
	minF := vec.Vec3Float{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	maxF := vec.Vec3Float{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, x := range []float64{lo.X - pad, hi.X + pad} {
		for _, y := range []float64{lo.Y - pad, hi.Y + pad} {
			for _, z := range []float64{lo.Z - pad, hi.Z + pad} {
				p := r.Matrix.Apply(vec.Vec3Float{X: x, Y: y, Z: z})
				minF = vec.Vec3Float{X: math.Min(minF.X, p.X), Y: math.Min(minF.Y, p.Y), Z: math.Min(minF.Z, p.Z)}
				maxF = vec.Vec3Float{X: math.Max(maxF.X, p.X), Y: math.Max(maxF.Y, p.Y), Z: math.Max(maxF.Z, p.Z)}
			}
		}
	}
	const eps = 1e-9
	outLo := vec.Vec3{X: int(math.Ceil(minF.X - eps)), Y: int(math.Ceil(minF.Y - eps)), Z: int(math.Ceil(minF.Z - eps))}
	outHi := vec.Vec3{X: int(math.Floor(maxF.X + eps)), Y: int(math.Floor(maxF.Y + eps)), Z: int(math.Floor(maxF.Z + eps))}
	return outLo, outHi
}

// bounds точный ограничивающий параллелепипед клеток области
func (r *Transformed) bounds() (vec.Vec3, vec.Vec3) {
	if r.boundsOK {
		return r.lo, r.hi
	}
	lo, hi := r.searchBounds()
	first := true
	for p := range r.Iterate() {
		if first {
			lo, hi, first = p, p, false
			continue
		}
		lo, hi = lo.Min(p), hi.Max(p)
	}
	r.lo, r.hi, r.boundsOK = lo, hi, true
	return lo, hi
}

func (r *Transformed) MinimumPoint() vec.Vec3 { lo, _ := r.bounds(); return lo }
func (r *Transformed) MaximumPoint() vec.Vec3 { _, hi := r.bounds(); return hi }

func (r *Transformed) Center() vec.Vec3Float { return r.Matrix.Apply(r.Base.Center()) }

func (r *Transformed) Width() int  { w, _, _ := boundingSize(r.bounds()); return w }
func (r *Transformed) Height() int { _, h, _ := boundingSize(r.bounds()); return h }
func (r *Transformed) Length() int { _, _, l := boundingSize(r.bounds()); return l }

func (r *Transformed) Area() int64 { return countSeq(r.Iterate()) }

func (r *Transformed) Contains(p vec.Vec3) bool {
	if !r.invOK {
		return false
	}
	return r.Base.Contains(r.inverse.ApplyVec3(p))
}

func (r *Transformed) Iterate() iter.Seq[vec.Vec3] {
	return func(yield func(vec.Vec3) bool) {
		if !r.invOK {
			return
		}
		lo, hi := r.searchBounds()
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for x := lo.X; x <= hi.X; x++ {
					p := vec.Vec3{X: x, Y: y, Z: z}
					if r.Contains(p) && !yield(p) {
						return
					}
				}
			}
		}
	}
}

func (r *Transformed) Expand(changes ...vec.Vec3) error {
	return &OperationError{Op: "expand", Reason: ReasonUnsupported}
}

func (r *Transformed) Contract(changes ...vec.Vec3) error {
	return &OperationError{Op: "contract", Reason: ReasonUnsupported}
}

func (r *Transformed) Shift(change vec.Vec3) error {
	t := r.Matrix.Translate(change.ToFloat())
	inv, ok := t.Inverse()
	r.Matrix, r.inverse, r.invOK = t, inv, ok
	r.boundsOK = false
	return nil
}

func (r *Transformed) Transform(t AffineTransform) (Region, error) {
	return NewTransformed(r.Base.Clone(), r.Matrix.Combine(t)), nil
}

func (r *Transformed) AsFlatRegion() FlatRegion { return newProjectedFlat(r) }

func (r *Transformed) Polygonize(maxPoints int) []vec.Vec2 {
	return boxPolygon(r.MinimumPoint(), r.MaximumPoint())
}

func (r *Transformed) Clone() Region {
	return NewTransformed(r.Base.Clone(), r.Matrix)
}

// Matrix возвращает коэффициенты преобразования по строкам
func (t AffineTransform) Matrix() [3][4]float64 { return t.norm().m }

// FromMatrix создаёт преобразование из коэффициентов
func FromMatrix(m [3][4]float64) AffineTransform { return AffineTransform{m: m}.norm() }

func (t AffineTransform) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Matrix())
}

func (t *AffineTransform) UnmarshalJSON(data []byte) error {
	var m [3][4]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = FromMatrix(m)
	return nil
}
