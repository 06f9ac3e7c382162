package ast

import "github.com/strager/pcc/types"

// Builder creates nodes with unique IDs. A front end should build a whole
// tree with one Builder.
type Builder struct {
	nextID NodeID
}

func NewBuilder() *Builder {
	return &Builder{nextID: 1}
}

func (b *Builder) node(kind NodeKind, loc Location) *Node {
	n := &Node{ID: b.nextID, Kind: kind, Loc: loc}
	b.nextID++
	return n
}

// Program creates the root node. A program's return type is always void.
func (b *Builder) Program(loc Location, name string, decls, funcs []*Node, body *Node) *Node {
	n := b.node(NodeProgram, loc)
	n.Name = name
	n.DeclType = types.VoidType
	n.Decls = decls
	n.Funcs = funcs
	n.Body = body
	return n
}

func (b *Builder) Decl(loc Location, vars ...*Node) *Node {
	n := b.node(NodeDecl, loc)
	n.Vars = vars
	return n
}

// Variable creates a variable (or parameter, or loop variable) declaration.
func (b *Builder) Variable(loc Location, name string, typ *types.PType) *Node {
	n := b.node(NodeVariable, loc)
	n.Name = name
	n.DeclType = typ
	return n
}

// ConstantVariable creates a constant declaration initialized by value.
func (b *Builder) ConstantVariable(loc Location, name string, value *Node) *Node {
	n := b.node(NodeVariable, loc)
	n.Name = name
	n.DeclType = value.Constant.Type
	n.Value = value
	return n
}

func (b *Builder) ConstantValue(loc Location, c *Constant) *Node {
	n := b.node(NodeConstantValue, loc)
	n.Constant = c
	return n
}

// Function creates a function. body is nil for a declaration without a
// definition.
func (b *Builder) Function(loc Location, name string, params []*Node, ret *types.PType, body *Node) *Node {
	n := b.node(NodeFunction, loc)
	n.Name = name
	n.Decls = params
	n.DeclType = ret
	n.Body = body
	return n
}

func (b *Builder) Compound(loc Location, decls, stmts []*Node) *Node {
	n := b.node(NodeCompoundStatement, loc)
	n.Decls = decls
	n.Stmts = stmts
	return n
}

func (b *Builder) Print(loc Location, target *Node) *Node {
	n := b.node(NodePrint, loc)
	n.Target = target
	return n
}

func (b *Builder) Binary(loc Location, op Operator, x, y *Node) *Node {
	n := b.node(NodeBinaryOperator, loc)
	n.Op = op
	n.X = x
	n.Y = y
	return n
}

func (b *Builder) Unary(loc Location, op Operator, x *Node) *Node {
	n := b.node(NodeUnaryOperator, loc)
	n.Op = op
	n.X = x
	return n
}

func (b *Builder) Call(loc Location, name string, args ...*Node) *Node {
	n := b.node(NodeFunctionInvocation, loc)
	n.Name = name
	n.Exprs = args
	return n
}

func (b *Builder) Ref(loc Location, name string, indices ...*Node) *Node {
	n := b.node(NodeVariableReference, loc)
	n.Name = name
	n.Exprs = indices
	return n
}

func (b *Builder) Assign(loc Location, target, value *Node) *Node {
	n := b.node(NodeAssignment, loc)
	n.Target = target
	n.Value = value
	return n
}

func (b *Builder) Read(loc Location, target *Node) *Node {
	n := b.node(NodeRead, loc)
	n.Target = target
	return n
}

// If creates a conditional. elseBody may be nil.
func (b *Builder) If(loc Location, cond, body, elseBody *Node) *Node {
	n := b.node(NodeIf, loc)
	n.Cond = cond
	n.Body = body
	n.Else = elseBody
	return n
}

func (b *Builder) While(loc Location, cond, body *Node) *Node {
	n := b.node(NodeWhile, loc)
	n.Cond = cond
	n.Body = body
	return n
}

// For creates a counting loop. loopVar is the NodeDecl of the loop
// variable, init assigns the lower bound to it and upper is the
// (exclusive) upper bound.
func (b *Builder) For(loc Location, loopVar, init, upper, body *Node) *Node {
	n := b.node(NodeFor, loc)
	n.LoopVar = loopVar
	n.Init = init
	n.Cond = upper
	n.Body = body
	return n
}

// ForRange creates the loop variable declaration and init assignment for
// "for name := lower to upper do body", the way a P parser does.
func (b *Builder) ForRange(loc Location, name string, lower, upper, body *Node) *Node {
	loopVar := b.Decl(loc, b.Variable(loc, name, types.IntegerType))
	init := b.Assign(loc, b.Ref(loc, name), lower)
	return b.For(loc, loopVar, init, upper, body)
}

func (b *Builder) Return(loc Location, value *Node) *Node {
	n := b.node(NodeReturn, loc)
	n.Value = value
	return n
}
