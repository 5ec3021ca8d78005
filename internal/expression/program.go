// Package expression компилирует формулы процедурных команд (generate, deform)
// в постфиксный код и вычисляет их на стековой машине.
//
//	prog, err := expression.Compile("x*x + y*y + z*z < 1", "x", "y", "z")
//	v, err := prog.Evaluate(0.5, 0, 0)
//
// Программа неизменяема и безопасна для параллельного использования:
// каждое вычисление получает свой кадр переменных.
package expression

import (
	"fmt"
	"math"
)

// MaxLoopIterations предел итераций одного цикла while
const MaxLoopIterations = 256

// Program скомпилированная формула
type Program struct {
	src    string
	code   []instr
	names  []string // имена слотов: сначала связанные переменные, затем локальные
	bound  int      // число связанных переменных
	calls  []builtin
	loops  int
	noises noiseCache
}

// Compile разбирает и компилирует формулу. boundVars - имена переменных,
// значения которых передаются в Evaluate в том же порядке.
func Compile(src string, boundVars ...string) (*Program, error) {
	tree, err := parse(src)
	if err != nil {
		return nil, err
	}
	c := &compiler{src: src, slots: make(map[string]int)}
	for _, name := range boundVars {
		if _, ok := constants[name]; ok {
			return nil, syntaxErr(src, 0, "имя %q зарезервировано", name)
		}
		c.slot(name)
	}
	if err := c.collectLocals(tree); err != nil {
		return nil, err
	}
	if err := c.compile(tree); err != nil {
		return nil, err
	}
	return &Program{
		src:   src,
		code:  c.code,
		names: c.names,
		bound: len(boundVars),
		calls: c.calls,
		loops: c.loops,
	}, nil
}

// Source возвращает исходный текст
func (p *Program) Source() string { return p.src }

// Variables возвращает имена связанных переменных
func (p *Program) Variables() []string {
	return append([]string(nil), p.names[:p.bound]...)
}

func (p *Program) noise(seed int64) noiseGenerator { return p.noises.get(seed) }

type noiseGenerator interface {
	Noise3D(x, y, z float64) float64
}

// Evaluate вычисляет формулу для значений связанных переменных
func (p *Program) Evaluate(values ...float64) (float64, error) {
	res, _, err := p.run(values)
	return res, err
}

// EvaluateBound вычисляет формулу и возвращает значения связанных
// переменных после вычисления (deform переприсваивает x, y, z)
func (p *Program) EvaluateBound(values ...float64) (float64, []float64, error) {
	res, frame, err := p.run(values)
	if err != nil {
		return 0, nil, err
	}
	return res, frame[:p.bound], nil
}

func (p *Program) run(values []float64) (float64, []float64, error) {
	if len(values) != p.bound {
		return 0, nil, &EvaluationError{Msg: fmt.Sprintf("ожидалось %d значений переменных, получено %d", p.bound, len(values))}
	}
	frame := make([]float64, len(p.names))
	copy(frame, values)
	loops := make([]int, p.loops)
	stack := make([]float64, 0, 16)

	pop := func() float64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	truth := func(v float64) float64 {
		if v != 0 {
			return 1
		}
		return 0
	}

	for pc := 0; pc < len(p.code); pc++ {
		in := p.code[pc]
		switch in.op {
		case opConst:
			stack = append(stack, in.num)
		case opLoad:
			stack = append(stack, frame[in.arg])
		case opStore:
			frame[in.arg] = stack[len(stack)-1]
		case opPop:
			pop()
		case opNeg:
			stack[len(stack)-1] = -stack[len(stack)-1]
		case opNot:
			stack[len(stack)-1] = 1 - truth(stack[len(stack)-1])
		case opBitNot:
			stack[len(stack)-1] = float64(^int64(stack[len(stack)-1]))
		case opJump:
			pc = in.arg - 1
		case opJumpIfFalse:
			if pop() == 0 {
				pc = in.arg - 1
			}
		case opCall:
			args := make([]float64, in.n)
			copy(args, stack[len(stack)-in.n:])
			stack = stack[:len(stack)-in.n]
			stack = append(stack, p.calls[in.arg].fn(p, args))
		case opLoopReset:
			loops[in.arg] = 0
		case opLoopCheck:
			loops[in.arg]++
			if loops[in.arg] >= MaxLoopIterations {
				return 0, nil, &EvaluationError{Pos: in.pos, Msg: fmt.Sprintf("цикл превысил %d итераций", MaxLoopIterations)}
			}
		case opReturn:
			return p.finish(in.pos, pop(), frame)
		default:
			b := pop()
			a := pop()
			v, err := binaryOp(in, a, b)
			if err != nil {
				return 0, nil, err
			}
			stack = append(stack, v)
		}
	}
	if len(stack) == 0 {
		return p.finish(0, 0, frame)
	}
	return p.finish(0, stack[len(stack)-1], frame)
}

func (p *Program) finish(pos int, v float64, frame []float64) (float64, []float64, error) {
	if math.IsNaN(v) {
		return 0, nil, &EvaluationError{Pos: pos, Msg: "результат не является числом"}
	}
	return v, frame, nil
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func binaryOp(in instr, a, b float64) (float64, error) {
	switch in.op {
	case opAdd:
		return a + b, nil
	case opSub:
		return a - b, nil
	case opMul:
		return a * b, nil
	case opDiv:
		if b == 0 {
			return 0, &EvaluationError{Pos: in.pos, Msg: "деление на ноль"}
		}
		return a / b, nil
	case opMod:
		if b == 0 {
			return 0, &EvaluationError{Pos: in.pos, Msg: "остаток от деления на ноль"}
		}
		return math.Mod(a, b), nil
	case opPow:
		return math.Pow(a, b), nil
	case opLess:
		return boolf(a < b), nil
	case opLessEq:
		return boolf(a <= b), nil
	case opGreater:
		return boolf(a > b), nil
	case opGreaterEq:
		return boolf(a >= b), nil
	case opEq:
		return boolf(a == b), nil
	case opNotEq:
		return boolf(a != b), nil
	}
	return 0, &EvaluationError{Pos: in.pos, Msg: fmt.Sprintf("неизвестная операция %d", in.op)}
}
