package expression

// node узел дерева разбора
type node interface {
	position() int
}

type numberNode struct {
	pos   int
	value float64
}

type variableNode struct {
	pos  int
	name string
}

type unaryNode struct {
	pos     int
	op      string
	operand node
}

type binaryNode struct {
	pos         int
	op          string
	left, right node
}

type ternaryNode struct {
	pos                   int
	cond, ifTrue, ifFalse node
}

type assignNode struct {
	pos   int
	name  string
	op    string // "=" или составной оператор ("+=" ...)
	value node
}

type callNode struct {
	pos  int
	name string
	args []node
}

type sequenceNode struct {
	pos   int
	items []node
}

type ifNode struct {
	pos             int
	cond, then, els node
}

type whileNode struct {
	pos        int
	cond, body node
}

type returnNode struct {
	pos   int
	value node
}

func (n *numberNode) position() int   { return n.pos }
func (n *variableNode) position() int { return n.pos }
func (n *unaryNode) position() int    { return n.pos }
func (n *binaryNode) position() int   { return n.pos }
func (n *ternaryNode) position() int  { return n.pos }
func (n *assignNode) position() int   { return n.pos }
func (n *callNode) position() int     { return n.pos }
func (n *sequenceNode) position() int { return n.pos }
func (n *ifNode) position() int       { return n.pos }
func (n *whileNode) position() int    { return n.pos }
func (n *returnNode) position() int   { return n.pos }
