package expression

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/annel0/blockedit/internal/util"
)

// builtin функция стандартной библиотеки формул
type builtin struct {
	name    string
	minArgs int
	maxArgs int // -1 - без ограничения
	fn      func(p *Program, args []float64) float64
}

func unary(f func(float64) float64) func(*Program, []float64) float64 {
	return func(_ *Program, a []float64) float64 { return f(a[0]) }
}

func binary(f func(float64, float64) float64) func(*Program, []float64) float64 {
	return func(_ *Program, a []float64) float64 { return f(a[0], a[1]) }
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

var builtins = map[string]builtin{}

func register(name string, minArgs, maxArgs int, fn func(*Program, []float64) float64) {
	builtins[name] = builtin{name: name, minArgs: minArgs, maxArgs: maxArgs, fn: fn}
}

func init() {
	register("sin", 1, 1, unary(math.Sin))
	register("cos", 1, 1, unary(math.Cos))
	register("tan", 1, 1, unary(math.Tan))
	register("asin", 1, 1, unary(math.Asin))
	register("acos", 1, 1, unary(math.Acos))
	register("atan", 1, 1, unary(math.Atan))
	register("atan2", 2, 2, binary(math.Atan2))
	register("sinh", 1, 1, unary(math.Sinh))
	register("cosh", 1, 1, unary(math.Cosh))
	register("tanh", 1, 1, unary(math.Tanh))
	register("sqrt", 1, 1, unary(math.Sqrt))
	register("cbrt", 1, 1, unary(math.Cbrt))
	register("abs", 1, 1, unary(math.Abs))
	register("floor", 1, 1, unary(math.Floor))
	register("ceil", 1, 1, unary(math.Ceil))
	register("round", 1, 1, unary(math.Round))
	register("rint", 1, 1, unary(math.RoundToEven))
	register("exp", 1, 1, unary(math.Exp))
	register("ln", 1, 1, unary(math.Log))
	register("log", 1, 1, unary(math.Log))
	register("log10", 1, 1, unary(math.Log10))
	register("pow", 2, 2, binary(math.Pow))
	register("hypot", 2, 2, binary(math.Hypot))
	register("sign", 1, 1, unary(sign))
	register("signum", 1, 1, unary(sign))
	register("min", 2, -1, func(_ *Program, a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	})
	register("max", 2, -1, func(_ *Program, a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	})
	register("clamp", 3, 3, func(_ *Program, a []float64) float64 {
		return math.Min(math.Max(a[0], a[1]), a[2])
	})
	register("lerp", 3, 3, func(_ *Program, a []float64) float64 {
		return a[0] + (a[1]-a[0])*a[2]
	})
	register("random", 0, 0, func(*Program, []float64) float64 {
		return rand.Float64()
	})
	register("randint", 1, 1, func(_ *Program, a []float64) float64 {
		n := int64(a[0])
		if n <= 0 {
			return 0
		}
		return float64(rand.Int64N(n))
	})
	// perlin(x, y, z[, seed]) шум Перлина в диапазоне [0, 1]
	register("perlin", 3, 4, func(p *Program, a []float64) float64 {
		var seed int64
		if len(a) == 4 {
			seed = int64(a[3])
		}
		return p.noise(seed).Noise3D(a[0], a[1], a[2])
	})
}

// noiseCache генераторы шума по сиду, общие для всех вычислений программы
type noiseCache struct {
	mu     sync.Mutex
	bySeed map[int64]*util.PerlinNoise
}

func (c *noiseCache) get(seed int64) *util.PerlinNoise {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bySeed == nil {
		c.bySeed = make(map[int64]*util.PerlinNoise)
	}
	n, ok := c.bySeed[seed]
	if !ok {
		n = util.NewPerlinNoise(seed)
		c.bySeed[seed] = n
	}
	return n
}
