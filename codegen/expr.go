package codegen

import (
	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/sema"
	"github.com/strager/pcc/types"
)

// visitExpression emits code that pushes the value of n.
func (g *Generator) visitExpression(n *ast.Node) {
	switch n.Kind {
	case ast.NodeConstantValue:
		g.visitConstant(n.Constant)
	case ast.NodeVariableReference:
		g.visitReference(n)
	case ast.NodeBinaryOperator:
		g.visitBinary(n)
	case ast.NodeUnaryOperator:
		g.visitUnary(n)
	case ast.NodeFunctionInvocation:
		g.visitCall(n)
	default:
		panic("Unsupported expression kind: " + string(n.Kind))
	}
}

func (g *Generator) visitConstant(c *ast.Constant) {
	switch {
	case c.Type.IsInteger():
		g.emit("li t0, %d", c.Integer)
	case c.Type.IsReal():
		g.emit("li t0, %d", realBits(c.Real))
	case c.Type.IsBool():
		g.emit("li t0, %s", boolWord(c.Bool))
	case c.Type.IsString():
		g.emit("la t0, %s", g.stringLiteral(c.String))
	default:
		panic("Unsupported constant type: " + c.Type.String())
	}
	g.push("t0")
}

// visitAddress emits code that pushes the address of the variable n refers
// to.
func (g *Generator) visitAddress(ref *ast.Node) {
	saved := g.addressMode
	g.addressMode = true
	g.visitReference(ref)
	g.addressMode = saved
}

// visitReference pushes the value of ref, or its address in address mode.
// A reference that leaves array dimensions unindexed always pushes the
// address of the subarray.
func (g *Generator) visitReference(ref *ast.Node) {
	entry := g.lookup(ref.Name)
	addressMode := g.addressMode

	if len(ref.Exprs) > 0 {
		g.addressMode = false
		g.emitElementOffset(entry, ref.Exprs)
		g.addressMode = addressMode
	}

	g.emitBaseAddress(entry)
	if len(ref.Exprs) > 0 {
		g.pop("t1")
		g.emit("add t0, t0, t1")
	}

	if !addressMode && ref.Type.IsScalar() {
		g.emit("lw t0, 0(t0)")
	}
	g.push("t0")
}

// emitBaseAddress loads the address of entry's storage into t0.
func (g *Generator) emitBaseAddress(entry *sema.SymbolEntry) {
	switch {
	case entry.IsGlobal():
		g.emit("la t0, %s", entry.Name)
	case entry.Kind == sema.KindParameter && entry.Type.Rank() > 0:
		// Array parameters hold the address of the caller's array.
		g.emit("lw t0, %d(s0)", entry.Offset)
	default:
		g.emit("addi t0, s0, %d", entry.Offset)
	}
}

// emitElementOffset pushes the byte offset of the element selected by
// indices within entry's array, in row-major order.
func (g *Generator) emitElementOffset(entry *sema.SymbolEntry, indices []*ast.Node) {
	dims := entry.Type.Dimensions()
	for i, index := range indices {
		g.visitExpression(index)
		if i == 0 {
			continue
		}
		g.pop("t1")
		g.pop("t0")
		g.emit("li t2, %d", dims[i])
		g.emit("mul t0, t0, t2")
		g.emit("add t0, t0, t1")
		g.push("t0")
	}

	stride := int64(wordSize)
	for _, dim := range dims[len(indices):] {
		stride *= dim
	}
	g.pop("t0")
	g.emit("li t2, %d", stride)
	g.emit("mul t0, t0, t2")
	g.push("t0")
}

var integerInstructions = map[ast.Operator]string{
	ast.OpPlus:     "add",
	ast.OpMinus:    "sub",
	ast.OpMultiply: "mul",
	ast.OpDivide:   "div",
	ast.OpMod:      "rem",
	ast.OpAnd:      "and",
	ast.OpOr:       "or",
}

var realInstructions = map[ast.Operator]string{
	ast.OpPlus:     "fadd.s",
	ast.OpMinus:    "fsub.s",
	ast.OpMultiply: "fmul.s",
	ast.OpDivide:   "fdiv.s",
}

func (g *Generator) visitBinary(n *ast.Node) {
	if n.X.Type.IsString() && n.Y.Type.IsString() {
		g.visitExpression(n.X)
		g.visitExpression(n.Y)
		g.pop("a1")
		g.pop("a0")
		g.emit("jal ra, concatString")
		g.push("a0")
		return
	}
	if n.X.Type.IsReal() || n.Y.Type.IsReal() {
		g.visitRealBinary(n)
		return
	}

	g.visitExpression(n.X)
	g.visitExpression(n.Y)
	g.pop("t1")
	g.pop("t0")
	if instr, ok := integerInstructions[n.Op]; ok {
		g.emit("%s t0, t0, t1", instr)
	} else {
		g.emitIntegerComparison(n.Op)
	}
	g.push("t0")
}

// emitIntegerComparison sets t0 to t0 op t1 as 0 or 1.
func (g *Generator) emitIntegerComparison(op ast.Operator) {
	switch op {
	case ast.OpLess:
		g.emit("slt t0, t0, t1")
	case ast.OpLessOrEqual:
		g.emit("slt t0, t1, t0")
		g.emit("xori t0, t0, 1")
	case ast.OpGreater:
		g.emit("slt t0, t1, t0")
	case ast.OpGreaterOrEqual:
		g.emit("slt t0, t0, t1")
		g.emit("xori t0, t0, 1")
	case ast.OpEqual:
		g.emit("sub t0, t0, t1")
		g.emit("seqz t0, t0")
	case ast.OpNotEqual:
		g.emit("sub t0, t0, t1")
		g.emit("snez t0, t0")
	default:
		panic("Unsupported binary operator: " + string(op))
	}
}

// visitRealBinary handles arithmetic and comparisons where at least one
// operand is real. Integer operands are converted first.
func (g *Generator) visitRealBinary(n *ast.Node) {
	g.visitExpression(n.X)
	if n.X.Type.IsInteger() {
		g.convert(n.X.Type, types.RealType)
	}
	g.visitExpression(n.Y)
	if n.Y.Type.IsInteger() {
		g.convert(n.Y.Type, types.RealType)
	}
	g.popFloat("ft1")
	g.popFloat("ft0")

	if instr, ok := realInstructions[n.Op]; ok {
		g.emit("%s ft0, ft0, ft1", instr)
		g.pushFloat("ft0")
		return
	}
	switch n.Op {
	case ast.OpLess:
		g.emit("flt.s t0, ft0, ft1")
	case ast.OpLessOrEqual:
		g.emit("fle.s t0, ft0, ft1")
	case ast.OpGreater:
		g.emit("flt.s t0, ft1, ft0")
	case ast.OpGreaterOrEqual:
		g.emit("fle.s t0, ft1, ft0")
	case ast.OpEqual:
		g.emit("feq.s t0, ft0, ft1")
	case ast.OpNotEqual:
		g.emit("feq.s t0, ft0, ft1")
		g.emit("xori t0, t0, 1")
	default:
		panic("Unsupported binary operator: " + string(n.Op))
	}
	g.push("t0")
}

func (g *Generator) visitUnary(n *ast.Node) {
	g.visitExpression(n.X)
	switch {
	case n.Op == ast.OpNeg && n.X.Type.IsReal():
		g.popFloat("ft0")
		g.emit("fneg.s ft0, ft0")
		g.pushFloat("ft0")
	case n.Op == ast.OpNeg:
		g.pop("t0")
		g.emit("neg t0, t0")
		g.push("t0")
	case n.Op == ast.OpNot:
		g.pop("t0")
		g.emit("xori t0, t0, 1")
		g.push("t0")
	default:
		panic("Unsupported unary operator: " + string(n.Op))
	}
}

// visitCall evaluates the arguments left to right, passes them in a0-a7
// and pushes the result unless the function is void.
//
// With more than eight arguments the rest stay where they were pushed. The
// callee finds argument i at 4*(n-1-i) above its frame base.
func (g *Generator) visitCall(n *ast.Node) {
	fn := g.lookup(n.Name)
	params := fn.Attribute.ParameterTypes()
	for i, arg := range n.Exprs {
		g.visitExpression(arg)
		g.convert(arg.Type, params[i])
	}

	count := len(n.Exprs)
	if count <= argumentRegisters {
		for i := count - 1; i >= 0; i-- {
			g.pop(argumentRegister(i))
		}
	} else {
		for i := 0; i < argumentRegisters; i++ {
			g.emit("lw %s, %d(sp)", argumentRegister(i), wordSize*(count-1-i))
		}
	}

	g.emit("jal ra, %s", n.Name)

	if count > argumentRegisters {
		g.emit("addi sp, sp, %d", wordSize*count)
	}
	if !fn.Type.IsVoid() {
		g.push("a0")
	}
}

func argumentRegister(i int) string {
	return "a" + string(rune('0'+i))
}
