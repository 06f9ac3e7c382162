package ast

import (
	"fmt"
	"strconv"

	"github.com/strager/pcc/types"
)

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeProgram            NodeKind = "NodeProgram"
	NodeDecl               NodeKind = "NodeDecl"
	NodeVariable           NodeKind = "NodeVariable"
	NodeConstantValue      NodeKind = "NodeConstantValue"
	NodeFunction           NodeKind = "NodeFunction"
	NodeCompoundStatement  NodeKind = "NodeCompoundStatement"
	NodePrint              NodeKind = "NodePrint"
	NodeBinaryOperator     NodeKind = "NodeBinaryOperator"
	NodeUnaryOperator      NodeKind = "NodeUnaryOperator"
	NodeFunctionInvocation NodeKind = "NodeFunctionInvocation"
	NodeVariableReference  NodeKind = "NodeVariableReference"
	NodeAssignment         NodeKind = "NodeAssignment"
	NodeRead               NodeKind = "NodeRead"
	NodeIf                 NodeKind = "NodeIf"
	NodeWhile              NodeKind = "NodeWhile"
	NodeFor                NodeKind = "NodeFor"
	NodeReturn             NodeKind = "NodeReturn"
)

// NodeID identifies a node within one tree. IDs are assigned by a Builder
// and are never reused, so they can key data computed by one pass and
// consumed by a later one.
type NodeID int

// Location is a position in the P source text. Lines and columns start at 1.
type Location struct {
	Line uint32
	Col  uint32
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Col)
}

// Operator is a binary or unary operator, spelled the way P spells it.
type Operator string

const (
	OpPlus           Operator = "+"
	OpMinus          Operator = "-"
	OpMultiply       Operator = "*"
	OpDivide         Operator = "/"
	OpMod            Operator = "mod"
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpEqual          Operator = "="
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpNotEqual       Operator = "<>"
	OpAnd            Operator = "and"
	OpOr             Operator = "or"

	OpNeg Operator = "neg"
	OpNot Operator = "not"
)

func (op Operator) String() string {
	return string(op)
}

// IsBinary reports whether op is one of the binary operators.
func (op Operator) IsBinary() bool {
	switch op {
	case OpPlus, OpMinus, OpMultiply, OpDivide, OpMod,
		OpLess, OpLessOrEqual, OpEqual, OpGreaterOrEqual, OpGreater, OpNotEqual,
		OpAnd, OpOr:
		return true
	default:
		return false
	}
}

// IsUnary reports whether op is one of the unary operators.
func (op Operator) IsUnary() bool {
	return op == OpNeg || op == OpNot
}

// Constant is a literal value together with its scalar type.
type Constant struct {
	Type *types.PType

	Integer int64   // types.Integer
	Real    float64 // types.Real
	Bool    bool    // types.Boolean
	String  string  // types.String
}

func IntegerConstant(v int64) *Constant { return &Constant{Type: types.IntegerType, Integer: v} }
func RealConstant(v float64) *Constant { return &Constant{Type: types.RealType, Real: v} }
func BoolConstant(v bool) *Constant { return &Constant{Type: types.BooleanType, Bool: v} }
func StringConstant(v string) *Constant { return &Constant{Type: types.StringType, String: v} }

// Text renders the value the way the symbol table dump shows it.
func (c *Constant) Text() string {
	switch c.Type.Kind() {
	case types.Integer:
		return strconv.FormatInt(c.Integer, 10)
	case types.Real:
		return fmt.Sprintf("%f", c.Real)
	case types.Boolean:
		if c.Bool {
			return "true"
		}
		return "false"
	case types.String:
		return c.String
	default:
		return ""
	}
}

// Node represents a node in the Abstract Syntax Tree.
//
// Which fields are meaningful depends on Kind; see the comments on each
// field. Child order for traversal is defined by Children.
type Node struct {
	ID   NodeID
	Kind NodeKind
	Loc  Location

	// NodeProgram, NodeFunction, NodeVariable, NodeFunctionInvocation,
	// NodeVariableReference:
	Name string

	// NodeProgram, NodeFunction: return type. NodeVariable: declared type.
	DeclType *types.PType

	// NodeConstantValue:
	Constant *Constant

	// NodeBinaryOperator, NodeUnaryOperator:
	Op Operator

	// NodeProgram: global declarations. NodeFunction: parameter groups.
	// NodeCompoundStatement: local declarations. Always NodeDecl.
	Decls []*Node
	// NodeProgram:
	Funcs []*Node
	// NodeDecl:
	Vars []*Node
	// NodeCompoundStatement:
	Stmts []*Node
	// NodeFunctionInvocation: arguments. NodeVariableReference: indices.
	Exprs []*Node

	// NodeBinaryOperator: X op Y. NodeUnaryOperator: op X.
	X, Y *Node

	// NodePrint, NodeRead: the printed expression or read variable.
	// NodeAssignment: the l-value (NodeVariableReference).
	Target *Node
	// NodeAssignment: the assigned expression. NodeReturn: the returned
	// expression. NodeVariable: the constant initializer, if any.
	Value *Node

	// NodeIf, NodeWhile: condition. NodeFor: upper bound.
	Cond *Node
	// NodeProgram, NodeFunction (nil for a declaration without a body),
	// NodeIf, NodeWhile, NodeFor: NodeCompoundStatement.
	Body *Node
	// NodeIf: optional else branch.
	Else *Node

	// NodeFor: the loop variable declaration and the assignment giving the
	// loop variable its initial value.
	LoopVar *Node
	Init    *Node

	// Type is the type of an expression node. It is set during semantic
	// analysis; nil before that.
	Type *types.PType
}

// IsExpression reports whether n produces a value.
func (n *Node) IsExpression() bool {
	switch n.Kind {
	case NodeConstantValue, NodeBinaryOperator, NodeUnaryOperator,
		NodeFunctionInvocation, NodeVariableReference:
		return true
	default:
		return false
	}
}

// IsStatement reports whether n may appear in a statement list.
func (n *Node) IsStatement() bool {
	switch n.Kind {
	case NodePrint, NodeRead, NodeAssignment, NodeIf, NodeWhile, NodeFor,
		NodeReturn, NodeFunctionInvocation, NodeCompoundStatement:
		return true
	default:
		return false
	}
}

// ParameterCount is the number of individual parameters of a NodeFunction.
func (n *Node) ParameterCount() int {
	count := 0
	for _, decl := range n.Decls {
		count += len(decl.Vars)
	}
	return count
}

// Parameters flattens the parameter groups of a NodeFunction.
func (n *Node) Parameters() []*Node {
	var params []*Node
	for _, decl := range n.Decls {
		params = append(params, decl.Vars...)
	}
	return params
}
