package edit

import (
	"context"
	"math"

	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// Kernel квадратное ядро свёртки
type Kernel struct {
	Size   int
	Values []float64
}

// GaussianKernel нормированное гауссово ядро со стороной 2*radius+1
func GaussianKernel(radius int, sigma float64) Kernel {
	size := 2*radius + 1
	values := make([]float64, size*size)
	sum := 0.0
	for z := -radius; z <= radius; z++ {
		for x := -radius; x <= radius; x++ {
			v := math.Exp(-float64(x*x+z*z) / (2 * sigma * sigma))
			values[(z+radius)*size+x+radius] = v
			sum += v
		}
	}
	for i := range values {
		values[i] /= sum
	}
	return Kernel{Size: size, Values: values}
}

// HeightMap карта высот прямоугольной области: верхний непроходимый блок каждой колонки
type HeightMap struct {
	lo, hi        vec.Vec3
	width, length int
	data          []int
}

// NewHeightMap снимает карту высот ограничивающего параллелепипеда области.
// Колонка без непроходимых блоков получает высоту нижней границы.
func (es *EditSession) NewHeightMap(r region.Region) (*HeightMap, error) {
	lo, hi := r.MinimumPoint(), r.MaximumPoint()
	hm := &HeightMap{lo: lo, hi: hi, width: hi.X - lo.X + 1, length: hi.Z - lo.Z + 1}
	hm.data = make([]int, hm.width*hm.length)
	for z := 0; z < hm.length; z++ {
		for x := 0; x < hm.width; x++ {
			h := lo.Y
			for y := hi.Y; y >= lo.Y; y-- {
				v, err := es.BlockAt(vec.New(lo.X+x, y, lo.Z+z))
				if err != nil {
					return nil, err
				}
				if !block.CanPassThrough(v.ID) {
					h = y
					break
				}
			}
			hm.data[z*hm.width+x] = h
		}
	}
	return hm, nil
}

// Height высота колонки в абсолютных координатах
func (hm *HeightMap) Height(x, z int) int {
	return hm.data[(z-hm.lo.Z)*hm.width+x-hm.lo.X]
}

// Filter сворачивает карту с ядром iterations раз.
// За краем карты берутся значения ближайшей колонки.
func (hm *HeightMap) Filter(k Kernel, iterations int) []int {
	cur := append([]int(nil), hm.data...)
	off := k.Size / 2
	for range iterations {
		next := make([]int, len(cur))
		for z := 0; z < hm.length; z++ {
			for x := 0; x < hm.width; x++ {
				sum := 0.0
				for kz := 0; kz < k.Size; kz++ {
					sz := min(max(z+kz-off, 0), hm.length-1)
					for kx := 0; kx < k.Size; kx++ {
						sx := min(max(x+kx-off, 0), hm.width-1)
						sum += float64(cur[sz*hm.width+sx]) * k.Values[kz*k.Size+kx]
					}
				}
				next[z*hm.width+x] = int(math.Floor(sum + 0.5))
			}
		}
		cur = next
	}
	return cur
}

// applyColumn растягивает или сжимает колонку от нижней границы до новой высоты
func (es *EditSession) applyColumn(hm *HeightMap, x, z, cur, next int) (int, error) {
	next = min(next, hm.hi.Y)
	if cur == next {
		return 0, nil
	}
	origin := hm.lo.Y
	at := func(y int) vec.Vec3 { return vec.New(x, y, z) }
	changed := 0
	set := func(y int, v block.Value) error {
		ok, err := es.SetBlock(at(y), v)
		if ok {
			changed++
		}
		return err
	}

	if next > cur {
		top, err := es.BlockAt(at(cur))
		if err != nil {
			return changed, err
		}
		if block.IsLiquid(top.ID) {
			return 0, nil
		}
		if err := set(next, top); err != nil {
			return changed, err
		}
		scale := float64(cur-origin) / float64(next-origin)
		for y := next - 1 - origin; y >= 0; y-- {
			v, err := es.BlockAt(at(origin + int(math.Floor(float64(y)*scale))))
			if err != nil {
				return changed, err
			}
			if err := set(origin+y, v); err != nil {
				return changed, err
			}
		}
		return changed, nil
	}

	top, err := es.BlockAt(at(cur))
	if err != nil {
		return changed, err
	}
	if next > origin {
		scale := float64(cur-origin) / float64(next-origin)
		for y := 0; y < next-origin; y++ {
			v, err := es.BlockAt(at(origin + int(math.Floor(float64(y)*scale))))
			if err != nil {
				return changed, err
			}
			if err := set(origin+y, v); err != nil {
				return changed, err
			}
		}
	}
	if err := set(next, top); err != nil {
		return changed, err
	}
	for y := next + 1; y <= cur; y++ {
		if err := set(y, block.Air); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// smoothKernel ядро сглаживания рельефа
var smoothKernel = GaussianKernel(5, 1.0)

// PrepareSmooth сглаживает рельеф области. Сначала снимается и сворачивается
// карта высот, затем каждая колонка подгоняется под новую высоту.
func (es *EditSession) PrepareSmooth(r region.Region, iterations int) (operation.Operation, *SmoothCounter) {
	counter := &SmoothCounter{}
	var (
		hm      *HeightMap
		heights []int
	)
	prepare := operation.NewTask(func(context.Context) (int, error) {
		var err error
		hm, err = es.NewHeightMap(r)
		if err != nil {
			return 0, err
		}
		heights = hm.Filter(smoothKernel, iterations)
		return 0, nil
	})

	done := false
	return operation.NewDelegate(prepare, func(context.Context) (operation.Operation, error) {
		if done {
			return nil, nil
		}
		done = true
		lo, hi := r.MinimumPoint(), r.MaximumPoint()
		columns := region.NewCuboid(lo, hi.WithY(lo.Y)).AsFlatRegion()
		apply := function.FlatFunc(func(c vec.Vec2) (bool, error) {
			next := heights[(c.Z-lo.Z)*hm.width+c.X-lo.X]
			n, err := es.applyColumn(hm, c.X, c.Z, hm.Height(c.X, c.Z), next)
			counter.n += n
			return n > 0, err
		})
		return operation.NewFlatRegionVisitor(columns, apply), nil
	}), counter
}

// SmoothCounter число блоков, изменённых сглаживанием
type SmoothCounter struct{ n int }

func (c *SmoothCounter) Affected() int { return c.n }

func (es *EditSession) Smooth(ctx context.Context, r region.Region, iterations int) (int, error) {
	op, counter := es.PrepareSmooth(r, iterations)
	return es.Run(ctx, op, counter)
}
