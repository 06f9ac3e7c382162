package sema

import (
	"io"

	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/types"
)

// scopeContext says what kind of construct encloses the declarations and
// statements being analyzed.
type scopeContext uint8

const (
	contextGlobal scopeContext = iota
	contextFunction
	contextForLoop
	contextLocal
)

// Result is the outcome of analyzing one program.
type Result struct {
	// Tables maps each scope-opening node (program, function, compound
	// statement other than a function body, for loop) to its symbols.
	Tables map[ast.NodeID]*SymbolTable
	Errors *ErrorCollection
}

func (r *Result) HasErrors() bool {
	return r.Errors.HasErrors()
}

// Analyzer checks a program, annotates its expressions with types and
// builds its symbol tables.
type Analyzer struct {
	dump io.Writer

	manager     *SymbolManager
	contexts    []scopeContext
	returnTypes []*types.PType
	tables      map[ast.NodeID]*SymbolTable
	errors      *ErrorCollection
	// invalid holds declarations already reported as broken. Uses of them
	// are not reported again.
	invalid map[*SymbolEntry]bool
}

// NewAnalyzer creates an analyzer. If dump is not nil, every symbol table
// is written to it as its scope closes.
func NewAnalyzer(dump io.Writer) *Analyzer {
	return &Analyzer{dump: dump}
}

// Analyze checks program, which must be a NodeProgram. The returned tables
// are only meaningful for code generation if the result has no errors.
func (a *Analyzer) Analyze(program *ast.Node) *Result {
	a.manager = NewSymbolManager()
	a.contexts = nil
	a.returnTypes = nil
	a.tables = make(map[ast.NodeID]*SymbolTable)
	a.errors = &ErrorCollection{}
	a.invalid = make(map[*SymbolEntry]bool)

	a.visit(program)

	return &Result{Tables: a.tables, Errors: a.errors}
}

func (a *Analyzer) report(err *Error) {
	a.errors.Add(err)
}

func (a *Analyzer) context() scopeContext {
	return a.contexts[len(a.contexts)-1]
}

func (a *Analyzer) pushContext(c scopeContext) {
	a.contexts = append(a.contexts, c)
}

func (a *Analyzer) popContext() {
	a.contexts = a.contexts[:len(a.contexts)-1]
}

// closeScope pops the current scope and files its table under n.
func (a *Analyzer) closeScope(n *ast.Node) {
	table := a.manager.PopScope()
	a.tables[n.ID] = table
	if a.dump != nil {
		table.Dump(a.dump)
	}
}

func (a *Analyzer) visitAll(nodes []*ast.Node) {
	for _, n := range nodes {
		a.visit(n)
	}
}

func (a *Analyzer) visit(n *ast.Node) {
	switch n.Kind {
	case ast.NodeProgram:
		a.visitProgram(n)
	case ast.NodeDecl:
		a.visitAll(n.Vars)
	case ast.NodeVariable:
		a.visitVariable(n)
	case ast.NodeConstantValue:
		n.Type = n.Constant.Type
	case ast.NodeFunction:
		a.visitFunction(n)
	case ast.NodeCompoundStatement:
		a.manager.PushScope()
		a.pushContext(contextLocal)
		a.visitAll(ast.Children(n))
		a.popContext()
		a.closeScope(n)
	case ast.NodePrint:
		a.visitPrint(n)
	case ast.NodeBinaryOperator:
		a.visitBinary(n)
	case ast.NodeUnaryOperator:
		a.visitUnary(n)
	case ast.NodeFunctionInvocation:
		a.visitCall(n)
	case ast.NodeVariableReference:
		a.visitReference(n)
	case ast.NodeAssignment:
		a.visitAssignment(n)
	case ast.NodeRead:
		a.visitRead(n)
	case ast.NodeIf, ast.NodeWhile:
		a.visitAll(ast.Children(n))
		a.checkCondition(n.Cond)
	case ast.NodeFor:
		a.visitFor(n)
	case ast.NodeReturn:
		a.visitReturn(n)
	default:
		panic("Unsupported node kind: " + string(n.Kind))
	}
}

func (a *Analyzer) visitProgram(n *ast.Node) {
	a.manager.PushScope()
	a.pushContext(contextGlobal)
	a.returnTypes = append(a.returnTypes, n.DeclType)

	if _, err := a.manager.AddSymbol(n.Name, KindProgram, n.DeclType, NoAttribute); err != nil {
		a.report(&Error{Kind: ErrRedeclared, Loc: n.Loc, Name: n.Name})
	}
	a.visitAll(n.Decls)
	a.visitAll(n.Funcs)
	// The main body has a frame of its own.
	a.manager.ResetLocalOffset()
	a.visit(n.Body)

	a.returnTypes = a.returnTypes[:len(a.returnTypes)-1]
	a.popContext()
	a.closeScope(n)
}

func (a *Analyzer) visitVariable(n *ast.Node) {
	var kind SymbolKind
	attr := NoAttribute
	switch {
	case a.context() == contextForLoop:
		kind = KindLoopVar
	case a.context() == contextFunction:
		kind = KindParameter
	case n.Value != nil:
		kind = KindConstant
	default:
		kind = KindVariable
	}
	if n.Value != nil {
		attr = ConstantAttribute(n.Value.Constant)
	}

	entry, err := a.manager.AddSymbol(n.Name, kind, n.DeclType, attr)
	if err != nil {
		a.report(&Error{Kind: ErrRedeclared, Loc: n.Loc, Name: n.Name})
	} else {
		for _, dim := range n.DeclType.Dimensions() {
			if dim <= 0 {
				a.report(&Error{Kind: ErrNonPositiveDimension, Loc: n.Loc, Name: n.Name})
				a.invalid[entry] = true
			}
		}
	}

	if n.Value != nil {
		a.visit(n.Value)
	}
}

func (a *Analyzer) visitFunction(n *ast.Node) {
	if _, err := a.manager.AddSymbol(n.Name, KindFunction, n.DeclType, ParametersAttribute(n.Decls)); err != nil {
		a.report(&Error{Kind: ErrRedeclared, Loc: n.Loc, Name: n.Name})
	}

	a.manager.PushScope()
	a.manager.ResetLocalOffset()
	a.pushContext(contextFunction)
	a.returnTypes = append(a.returnTypes, n.DeclType)

	a.visitAll(n.Decls)

	// Locals share the function's scope with the parameters.
	a.pushContext(contextLocal)
	if n.Body != nil {
		a.visitAll(n.Body.Decls)
		a.visitAll(n.Body.Stmts)
	}
	a.popContext()

	a.returnTypes = a.returnTypes[:len(a.returnTypes)-1]
	a.popContext()
	a.closeScope(n)
}

func (a *Analyzer) visitPrint(n *ast.Node) {
	a.visit(n.Target)
	t := n.Target.Type
	if t.IsError() {
		return
	}
	if !t.IsScalar() {
		a.report(&Error{Kind: ErrPrintNonScalar, Loc: n.Target.Loc})
	}
}

func (a *Analyzer) visitBinary(n *ast.Node) {
	a.visit(n.X)
	a.visit(n.Y)
	left, right := n.X.Type, n.Y.Type
	if left.IsError() || right.IsError() {
		n.Type = types.ErrorType
		return
	}
	result := binaryResultType(n.Op, left, right)
	if result == nil {
		a.report(&Error{Kind: ErrInvalidBinaryOperands, Loc: n.Loc, Op: n.Op, Types: []*types.PType{left, right}})
		n.Type = types.ErrorType
		return
	}
	n.Type = result
}

func isNumericKind(t *types.PType) bool {
	return t.Kind() == types.Integer || t.Kind() == types.Real
}

// binaryResultType returns the type of "left op right", or nil if the
// operands are invalid for op.
func binaryResultType(op ast.Operator, left, right *types.PType) *types.PType {
	if left.Rank() != right.Rank() {
		return nil
	}
	switch op {
	case ast.OpPlus, ast.OpMinus, ast.OpMultiply, ast.OpDivide:
		if op == ast.OpPlus && left.Kind() == types.String && right.Kind() == types.String {
			return types.StringType
		}
		if !isNumericKind(left) || !isNumericKind(right) {
			return nil
		}
		if left.Kind() == types.Real || right.Kind() == types.Real {
			return types.RealType
		}
		return types.IntegerType
	case ast.OpMod:
		if left.Kind() != types.Integer || right.Kind() != types.Integer {
			return nil
		}
		return types.IntegerType
	case ast.OpAnd, ast.OpOr:
		if left.Kind() != types.Boolean || right.Kind() != types.Boolean {
			return nil
		}
		return types.BooleanType
	case ast.OpLess, ast.OpLessOrEqual, ast.OpEqual, ast.OpGreaterOrEqual, ast.OpGreater, ast.OpNotEqual:
		if !isNumericKind(left) || !isNumericKind(right) {
			return nil
		}
		return types.BooleanType
	default:
		return nil
	}
}

func (a *Analyzer) visitUnary(n *ast.Node) {
	a.visit(n.X)
	operand := n.X.Type
	if operand.IsError() {
		n.Type = types.ErrorType
		return
	}
	switch {
	case n.Op == ast.OpNeg && operand.IsNumeric():
		n.Type = types.New(operand.Kind())
	case n.Op == ast.OpNot && operand.IsBool():
		n.Type = types.BooleanType
	default:
		a.report(&Error{Kind: ErrInvalidUnaryOperand, Loc: n.Loc, Op: n.Op, Types: []*types.PType{operand}})
		n.Type = types.ErrorType
	}
}

func (a *Analyzer) visitCall(n *ast.Node) {
	a.visitAll(n.Exprs)
	n.Type = types.ErrorType

	symbol := a.manager.Lookup(n.Name)
	if symbol == nil {
		a.report(&Error{Kind: ErrUndeclared, Loc: n.Loc, Name: n.Name})
		return
	}
	if symbol.Kind != KindFunction {
		a.report(&Error{Kind: ErrNonFunction, Loc: n.Loc, Name: n.Name})
		return
	}

	params := symbol.Attribute.ParameterTypes()
	if len(params) != len(n.Exprs) {
		a.report(&Error{Kind: ErrArgumentCount, Loc: n.Loc, Name: n.Name})
		return
	}
	for i, arg := range n.Exprs {
		if arg.Type.IsError() {
			return
		}
		// Arrays are passed by address, so their elements cannot be converted.
		if !arg.Type.CanCoerceTo(params[i]) || (!arg.Type.IsScalar() && !arg.Type.Equal(params[i])) {
			a.report(&Error{Kind: ErrArgumentType, Loc: arg.Loc, Types: []*types.PType{arg.Type, params[i]}})
			return
		}
	}

	n.Type = types.New(symbol.Type.Kind())
}

func (a *Analyzer) visitReference(n *ast.Node) {
	a.visitAll(n.Exprs)
	n.Type = types.ErrorType

	symbol := a.manager.Lookup(n.Name)
	if symbol == nil {
		a.report(&Error{Kind: ErrUndeclared, Loc: n.Loc, Name: n.Name})
		return
	}
	if !symbol.Kind.IsVariable() {
		a.report(&Error{Kind: ErrNonVariable, Loc: n.Loc, Name: n.Name})
		return
	}
	if a.invalid[symbol] {
		return
	}

	for _, index := range n.Exprs {
		if index.Type.IsError() {
			return
		}
		if !index.Type.IsInteger() {
			a.report(&Error{Kind: ErrNonIntegerIndex, Loc: index.Loc})
			return
		}
	}

	elem, ok := symbol.Type.ElementType(len(n.Exprs))
	if !ok {
		a.report(&Error{Kind: ErrOverSubscript, Loc: n.Loc, Name: n.Name})
		return
	}
	n.Type = elem
}

func (a *Analyzer) visitAssignment(n *ast.Node) {
	a.visit(n.Target)
	a.visit(n.Value)

	target := n.Target.Type
	if target.IsError() {
		return
	}
	if !target.IsScalar() {
		a.report(&Error{Kind: ErrAssignToArray, Loc: n.Target.Loc})
		return
	}

	symbol := a.manager.Lookup(n.Target.Name)
	if symbol.Kind == KindConstant {
		a.report(&Error{Kind: ErrAssignToConstant, Loc: n.Target.Loc, Name: n.Target.Name})
		return
	}
	// Only the loop's own initialization may assign its variable.
	if symbol.Kind == KindLoopVar && a.context() != contextForLoop {
		a.report(&Error{Kind: ErrAssignToLoopVar, Loc: n.Target.Loc})
		return
	}

	value := n.Value.Type
	if value.IsError() {
		return
	}
	if !value.IsScalar() {
		a.report(&Error{Kind: ErrAssignFromArray, Loc: n.Value.Loc})
		return
	}
	if !value.CanCoerceTo(target) {
		a.report(&Error{Kind: ErrIncompatibleAssignment, Loc: n.Loc, Types: []*types.PType{value, target}})
	}
}

func (a *Analyzer) visitRead(n *ast.Node) {
	a.visit(n.Target)
	t := n.Target.Type
	if t.IsError() {
		return
	}
	if !t.IsScalar() {
		a.report(&Error{Kind: ErrReadNonScalar, Loc: n.Target.Loc})
		return
	}
	symbol := a.manager.Lookup(n.Target.Name)
	if symbol.Kind == KindConstant || symbol.Kind == KindLoopVar {
		a.report(&Error{Kind: ErrReadConstantOrLoopVar, Loc: n.Target.Loc})
	}
}

func (a *Analyzer) checkCondition(cond *ast.Node) {
	if cond.Type.IsError() {
		return
	}
	if !cond.Type.IsBool() {
		a.report(&Error{Kind: ErrNonBooleanCondition, Loc: cond.Loc})
	}
}

func (a *Analyzer) visitFor(n *ast.Node) {
	a.manager.PushScope()
	a.pushContext(contextForLoop)

	a.visitAll(ast.Children(n))

	// The init assignment already reports lower bounds that do not coerce
	// to integer.
	if lower := n.Init.Value.Type; !lower.IsError() && lower.IsScalar() &&
		lower.CanCoerceTo(types.IntegerType) && !lower.IsInteger() {
		a.report(&Error{Kind: ErrNonIntegerLoopBound, Loc: n.Init.Value.Loc})
	}
	if upper := n.Cond.Type; !upper.IsError() && !upper.IsInteger() {
		a.report(&Error{Kind: ErrNonIntegerLoopBound, Loc: n.Cond.Loc})
	}

	lower, lowerKnown := a.constantInteger(n.Init.Value)
	upper, upperKnown := a.constantInteger(n.Cond)
	if lowerKnown && upperKnown && lower >= upper {
		a.report(&Error{Kind: ErrNonIncrementalLoop, Loc: n.Loc})
	}

	a.popContext()
	a.closeScope(n)
}

// constantInteger evaluates a loop bound at compile time. Only integer
// literals, negated integer literals and integer constants are known.
func (a *Analyzer) constantInteger(n *ast.Node) (int64, bool) {
	switch n.Kind {
	case ast.NodeConstantValue:
		if n.Constant.Type.IsInteger() {
			return n.Constant.Integer, true
		}
	case ast.NodeUnaryOperator:
		if n.Op == ast.OpNeg && n.X.Kind == ast.NodeConstantValue && n.X.Constant.Type.IsInteger() {
			return -n.X.Constant.Integer, true
		}
	case ast.NodeVariableReference:
		if len(n.Exprs) != 0 {
			return 0, false
		}
		symbol := a.manager.Lookup(n.Name)
		if symbol != nil && symbol.Kind == KindConstant {
			if c := symbol.Attribute.Constant(); c != nil && c.Type.IsInteger() {
				return c.Integer, true
			}
		}
	}
	return 0, false
}

func (a *Analyzer) visitReturn(n *ast.Node) {
	a.visit(n.Value)

	expected := a.returnTypes[len(a.returnTypes)-1]
	if expected.IsVoid() {
		a.report(&Error{Kind: ErrReturnFromVoid, Loc: n.Loc})
		return
	}
	value := n.Value.Type
	if value.IsError() {
		return
	}
	if !value.CanCoerceTo(expected) {
		a.report(&Error{Kind: ErrIncompatibleReturn, Loc: n.Value.Loc, Types: []*types.PType{value, expected}})
	}
}
