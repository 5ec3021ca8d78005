package expression

import (
	"math"
)

type opcode uint8

const (
	opConst opcode = iota
	opLoad
	opStore
	opPop
	opNeg
	opNot
	opBitNot
	opAdd
	opSub
	opMul
	opDiv
	opMod
	opPow
	opLess
	opLessEq
	opGreater
	opGreaterEq
	opEq
	opNotEq
	opJump
	opJumpIfFalse
	opCall
	opLoopReset
	opLoopCheck
	opReturn
)

// instr одна инструкция постфиксной программы
type instr struct {
	op  opcode
	arg int     // слот, адрес перехода, индекс функции или счётчика цикла
	n   int     // число аргументов вызова
	num float64 // константа
	pos int     // позиция в исходнике для ошибок
}

var binaryOps = map[string]opcode{
	"+": opAdd, "-": opSub, "*": opMul, "/": opDiv, "%": opMod, "^": opPow,
	"<": opLess, "<=": opLessEq, ">": opGreater, ">=": opGreaterEq,
	"==": opEq, "!=": opNotEq,
}

var constants = map[string]float64{
	"pi":    math.Pi,
	"e":     math.E,
	"true":  1,
	"false": 0,
}

type compiler struct {
	src   string
	code  []instr
	slots map[string]int
	names []string
	calls []builtin
	loops int
}

func (c *compiler) emit(in instr) int {
	c.code = append(c.code, in)
	return len(c.code) - 1
}

func (c *compiler) slot(name string) int {
	if s, ok := c.slots[name]; ok {
		return s
	}
	s := len(c.names)
	c.slots[name] = s
	c.names = append(c.names, name)
	return s
}

// collectLocals заранее выделяет слоты всем присваиваемым переменным,
// чтобы чтение до присваивания внутри цикла было корректным
func (c *compiler) collectLocals(n node) error {
	switch n := n.(type) {
	case *assignNode:
		if _, ok := constants[n.name]; ok {
			return syntaxErr(c.src, n.pos, "нельзя присвоить значение константе %q", n.name)
		}
		c.slot(n.name)
		return c.collectLocals(n.value)
	case *unaryNode:
		return c.collectLocals(n.operand)
	case *binaryNode:
		if err := c.collectLocals(n.left); err != nil {
			return err
		}
		return c.collectLocals(n.right)
	case *ternaryNode:
		for _, ch := range []node{n.cond, n.ifTrue, n.ifFalse} {
			if err := c.collectLocals(ch); err != nil {
				return err
			}
		}
	case *callNode:
		for _, a := range n.args {
			if err := c.collectLocals(a); err != nil {
				return err
			}
		}
	case *sequenceNode:
		for _, it := range n.items {
			if err := c.collectLocals(it); err != nil {
				return err
			}
		}
	case *ifNode:
		for _, ch := range []node{n.cond, n.then, n.els} {
			if ch == nil {
				continue
			}
			if err := c.collectLocals(ch); err != nil {
				return err
			}
		}
	case *whileNode:
		if err := c.collectLocals(n.cond); err != nil {
			return err
		}
		return c.collectLocals(n.body)
	case *returnNode:
		return c.collectLocals(n.value)
	}
	return nil
}

// compile переводит дерево в постфиксный код. Каждый узел оставляет на стеке ровно одно значение.
func (c *compiler) compile(n node) error {
	switch n := n.(type) {
	case *numberNode:
		c.emit(instr{op: opConst, num: n.value, pos: n.pos})

	case *variableNode:
		if v, ok := constants[n.name]; ok {
			c.emit(instr{op: opConst, num: v, pos: n.pos})
			return nil
		}
		s, ok := c.slots[n.name]
		if !ok {
			return syntaxErr(c.src, n.pos, "неизвестная переменная %q", n.name)
		}
		c.emit(instr{op: opLoad, arg: s, pos: n.pos})

	case *unaryNode:
		if err := c.compile(n.operand); err != nil {
			return err
		}
		switch n.op {
		case "-":
			c.emit(instr{op: opNeg, pos: n.pos})
		case "!":
			c.emit(instr{op: opNot, pos: n.pos})
		case "~":
			c.emit(instr{op: opBitNot, pos: n.pos})
		}

	case *binaryNode:
		switch n.op {
		case "&&", "||":
			return c.logical(n)
		}
		if err := c.compile(n.left); err != nil {
			return err
		}
		if err := c.compile(n.right); err != nil {
			return err
		}
		c.emit(instr{op: binaryOps[n.op], pos: n.pos})

	case *ternaryNode:
		return c.branch(n.pos, n.cond, n.ifTrue, n.ifFalse)

	case *ifNode:
		return c.branch(n.pos, n.cond, n.then, n.els)

	case *assignNode:
		s := c.slot(n.name)
		if n.op != "=" {
			c.emit(instr{op: opLoad, arg: s, pos: n.pos})
		}
		if err := c.compile(n.value); err != nil {
			return err
		}
		if n.op != "=" {
			c.emit(instr{op: binaryOps[n.op[:1]], pos: n.pos})
		}
		c.emit(instr{op: opStore, arg: s, pos: n.pos})

	case *callNode:
		b, ok := builtins[n.name]
		if !ok {
			return syntaxErr(c.src, n.pos, "неизвестная функция %q", n.name)
		}
		if len(n.args) < b.minArgs || (b.maxArgs >= 0 && len(n.args) > b.maxArgs) {
			return syntaxErr(c.src, n.pos, "неверное число аргументов функции %s: %d", n.name, len(n.args))
		}
		for _, a := range n.args {
			if err := c.compile(a); err != nil {
				return err
			}
		}
		c.calls = append(c.calls, b)
		c.emit(instr{op: opCall, arg: len(c.calls) - 1, n: len(n.args), pos: n.pos})

	case *sequenceNode:
		if len(n.items) == 0 {
			c.emit(instr{op: opConst, pos: n.pos})
			return nil
		}
		for i, it := range n.items {
			if err := c.compile(it); err != nil {
				return err
			}
			if i < len(n.items)-1 {
				c.emit(instr{op: opPop, pos: it.position()})
			}
		}

	case *whileNode:
		loop := c.loops
		c.loops++
		c.emit(instr{op: opLoopReset, arg: loop, pos: n.pos})
		c.emit(instr{op: opConst, pos: n.pos}) // результат цикла по умолчанию
		start := len(c.code)
		if err := c.compile(n.cond); err != nil {
			return err
		}
		exit := c.emit(instr{op: opJumpIfFalse, pos: n.pos})
		c.emit(instr{op: opPop, pos: n.pos})
		if err := c.compile(n.body); err != nil {
			return err
		}
		c.emit(instr{op: opLoopCheck, arg: loop, pos: n.pos})
		c.emit(instr{op: opJump, arg: start, pos: n.pos})
		c.code[exit].arg = len(c.code)

	case *returnNode:
		if err := c.compile(n.value); err != nil {
			return err
		}
		c.emit(instr{op: opReturn, pos: n.pos})
	}
	return nil
}

// branch условие с двумя ветками; отсутствующая ветка даёт 0
func (c *compiler) branch(pos int, cond, ifTrue, ifFalse node) error {
	if err := c.compile(cond); err != nil {
		return err
	}
	toElse := c.emit(instr{op: opJumpIfFalse, pos: pos})
	if err := c.compile(ifTrue); err != nil {
		return err
	}
	toEnd := c.emit(instr{op: opJump, pos: pos})
	c.code[toElse].arg = len(c.code)
	if ifFalse != nil {
		if err := c.compile(ifFalse); err != nil {
			return err
		}
	} else {
		c.emit(instr{op: opConst, pos: pos})
	}
	c.code[toEnd].arg = len(c.code)
	return nil
}

// logical сокращённое вычисление && и ||, результат 0 или 1
func (c *compiler) logical(n *binaryNode) error {
	if n.op == "&&" {
		var a, b node = n.left, n.right
		return c.branch(n.pos, a, &ternaryNode{pos: n.pos, cond: b, ifTrue: &numberNode{value: 1}, ifFalse: &numberNode{value: 0}}, &numberNode{value: 0})
	}
	return c.branch(n.pos, n.left, &numberNode{value: 1}, &ternaryNode{pos: n.pos, cond: n.right, ifTrue: &numberNode{value: 1}, ifFalse: &numberNode{value: 0}})
}
