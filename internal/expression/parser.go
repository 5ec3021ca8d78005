package expression

// Силы связывания инфиксных операторов
const (
	bpAssign   = 10
	bpTernary  = 20
	bpOr       = 30
	bpAnd      = 40
	bpEquality = 50
	bpCompare  = 60
	bpAdd      = 70
	bpMul      = 80
	bpUnary    = 90
	bpPower    = 100
)

func lbp(t token) (int, bool) {
	if t.typ != tokOp {
		return 0, false
	}
	switch t.text {
	case "=", "+=", "-=", "*=", "/=", "%=", "^=":
		return bpAssign, true
	case "?":
		return bpTernary, true
	case "||":
		return bpOr, true
	case "&&":
		return bpAnd, true
	case "==", "!=":
		return bpEquality, true
	case "<", "<=", ">", ">=":
		return bpCompare, true
	case "+", "-":
		return bpAdd, true
	case "*", "/", "%":
		return bpMul, true
	case "^":
		return bpPower, true
	}
	return 0, false
}

func isRightAssoc(t token) bool {
	switch t.text {
	case "^", "=", "+=", "-=", "*=", "/=", "%=", "^=", "?":
		return true
	}
	return false
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.typ != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.typ == tokOp && t.text == text
}

func (p *parser) isKeyword(text string) bool {
	t := p.peek()
	return t.typ == tokKeyword && t.text == text
}

func (p *parser) need(text, msg string) (token, error) {
	if p.isOp(text) {
		return p.next(), nil
	}
	return token{}, syntaxErr(p.src, p.peek().pos, "%s", msg)
}

// parse разбирает всю программу: операторы через ';'
func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().typ == tokEOF {
		return nil, syntaxErr(src, 0, "пустое выражение")
	}
	prog, err := p.statements(tokEOF, "")
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokEOF {
		return nil, syntaxErr(src, p.peek().pos, "лишний токен %q", p.peek().text)
	}
	return prog, nil
}

// statements читает последовательность до закрывающего токена
func (p *parser) statements(stopType tokenType, stopText string) (node, error) {
	seq := &sequenceNode{pos: p.peek().pos}
	for {
		t := p.peek()
		if t.typ == tokEOF || (stopType == tokOp && t.typ == tokOp && t.text == stopText) {
			break
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		seq.items = append(seq.items, st)
		if p.isOp(";") {
			for p.isOp(";") {
				p.next()
			}
			continue
		}
		// Блоковые операторы не требуют ';' после себя
		if _, ok := st.(*ifNode); ok {
			continue
		}
		if _, ok := st.(*whileNode); ok {
			continue
		}
		if _, ok := st.(*sequenceNode); ok {
			continue
		}
		break
	}
	if len(seq.items) == 1 {
		return seq.items[0], nil
	}
	return seq, nil
}

func (p *parser) statement() (node, error) {
	t := p.peek()
	switch {
	case t.typ == tokKeyword && t.text == "if":
		p.next()
		return p.ifStatement(t.pos)
	case t.typ == tokKeyword && t.text == "while":
		p.next()
		if _, err := p.need("(", "ожидалась '(' после while"); err != nil {
			return nil, err
		}
		cond, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(")", "ожидалась ')'"); err != nil {
			return nil, err
		}
		body, err := p.statement()
		if err != nil {
			return nil, err
		}
		return &whileNode{pos: t.pos, cond: cond, body: body}, nil
	case t.typ == tokKeyword && t.text == "return":
		p.next()
		v, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &returnNode{pos: t.pos, value: v}, nil
	case t.typ == tokOp && t.text == "{":
		p.next()
		body, err := p.statements(tokOp, "}")
		if err != nil {
			return nil, err
		}
		if _, err := p.need("}", "ожидалась '}'"); err != nil {
			return nil, err
		}
		if seq, ok := body.(*sequenceNode); ok {
			return seq, nil
		}
		return &sequenceNode{pos: t.pos, items: []node{body}}, nil
	}
	return p.expr(0)
}

func (p *parser) ifStatement(pos int) (node, error) {
	if _, err := p.need("(", "ожидалась '(' после if"); err != nil {
		return nil, err
	}
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(")", "ожидалась ')'"); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	n := &ifNode{pos: pos, cond: cond, then: then}
	// "if (...) a; else b" тоже допустимо
	save := p.i
	for p.isOp(";") {
		p.next()
	}
	if p.isKeyword("else") {
		p.next()
		els, err := p.statement()
		if err != nil {
			return nil, err
		}
		n.els = els
	} else {
		p.i = save
	}
	return n, nil
}

// expr разбор выражения методом Пратта
func (p *parser) expr(minBP int) (node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek()
		bp, ok := lbp(op)
		if !ok || bp < minBP {
			break
		}
		p.next()
		nextBP := bp + 1
		if isRightAssoc(op) {
			nextBP = bp
		}

		switch op.text {
		case "?":
			ifTrue, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.need(":", "ожидалось ':' в условном выражении"); err != nil {
				return nil, err
			}
			// ложная ветвь допускает присваивание: c ? a = 1 : a = 2
			ifFalse, err := p.expr(bpAssign)
			if err != nil {
				return nil, err
			}
			left = &ternaryNode{pos: op.pos, cond: left, ifTrue: ifTrue, ifFalse: ifFalse}
		case "=", "+=", "-=", "*=", "/=", "%=", "^=":
			v, ok := left.(*variableNode)
			if !ok {
				return nil, syntaxErr(p.src, op.pos, "присваивать можно только переменной")
			}
			value, err := p.expr(nextBP)
			if err != nil {
				return nil, err
			}
			left = &assignNode{pos: op.pos, name: v.name, op: op.text, value: value}
		default:
			right, err := p.expr(nextBP)
			if err != nil {
				return nil, err
			}
			left = &binaryNode{pos: op.pos, op: op.text, left: left, right: right}
		}
	}
	return left, nil
}

func (p *parser) prefix() (node, error) {
	t := p.next()
	switch t.typ {
	case tokNumber:
		return &numberNode{pos: t.pos, value: t.num}, nil
	case tokIdent:
		if p.isOp("(") {
			return p.call(t)
		}
		return &variableNode{pos: t.pos, name: t.text}, nil
	case tokOp:
		switch t.text {
		case "-", "+", "!", "~":
			operand, err := p.expr(bpUnary)
			if err != nil {
				return nil, err
			}
			if t.text == "+" {
				return operand, nil
			}
			return &unaryNode{pos: t.pos, op: t.text, operand: operand}, nil
		case "(":
			inner, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.need(")", "ожидалась ')'"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	case tokEOF:
		return nil, syntaxErr(p.src, t.pos, "неожиданный конец выражения")
	}
	return nil, syntaxErr(p.src, t.pos, "неожиданный токен %q", t.text)
}

func (p *parser) call(name token) (node, error) {
	p.next() // '('
	c := &callNode{pos: name.pos, name: name.text}
	if p.isOp(")") {
		p.next()
		return c, nil
	}
	for {
		arg, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		c.args = append(c.args, arg)
		if p.isOp(",") {
			p.next()
			continue
		}
		if _, err := p.need(")", "ожидалась ')' или ',' в вызове функции"); err != nil {
			return nil, err
		}
		return c, nil
	}
}
