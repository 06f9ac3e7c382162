package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/strager/pcc/sexy"
	"github.com/strager/pcc/types"
)

// ToSExpr renders a tree as a Sexy expression without locations.
//
//	(program "p" (decl (var "x" integer)) (compound (assign (ref "x") 1)))
func ToSExpr(n *Node) string {
	return toSexy(n, nil).String()
}

// ToSExprWithLocations is like ToSExpr, but annotates every node whose
// location differs from its parent's with ^{line: L, col: C}. FromSExpr of
// the result has the same locations.
func ToSExprWithLocations(n *Node) string {
	return toSexy(n, &Location{}).String()
}

func toSexy(n *Node, parentLoc *Location) *sexy.Node {
	var items []*sexy.Node
	head := func(name string) {
		items = append(items, sexy.NewSymbol(name))
	}
	child := func(c *Node) {
		items = append(items, toSexy(c, locationFor(n, parentLoc)))
	}
	children := func(cs []*Node) {
		for _, c := range cs {
			child(c)
		}
	}

	switch n.Kind {
	case NodeProgram:
		head("program")
		items = append(items, sexy.NewString(n.Name))
		children(n.Decls)
		children(n.Funcs)
		child(n.Body)
	case NodeDecl:
		head("decl")
		children(n.Vars)
	case NodeVariable:
		if n.Value != nil {
			head("const")
			items = append(items, sexy.NewString(n.Name))
			child(n.Value)
		} else {
			head("var")
			items = append(items, sexy.NewString(n.Name), typeToSexy(n.DeclType))
		}
	case NodeConstantValue:
		return withLocation(constantToSexy(n.Constant), n, parentLoc)
	case NodeFunction:
		head("function")
		items = append(items, sexy.NewString(n.Name), typeToSexy(n.DeclType))
		children(n.Decls)
		if n.Body != nil {
			child(n.Body)
		}
	case NodeCompoundStatement:
		head("compound")
		children(n.Decls)
		children(n.Stmts)
	case NodePrint:
		head("print")
		child(n.Target)
	case NodeRead:
		head("read")
		child(n.Target)
	case NodeBinaryOperator:
		head("binary")
		items = append(items, sexy.NewString(string(n.Op)))
		child(n.X)
		child(n.Y)
	case NodeUnaryOperator:
		head("unary")
		items = append(items, sexy.NewString(string(n.Op)))
		child(n.X)
	case NodeFunctionInvocation:
		head("call")
		items = append(items, sexy.NewString(n.Name))
		children(n.Exprs)
	case NodeVariableReference:
		head("ref")
		items = append(items, sexy.NewString(n.Name))
		children(n.Exprs)
	case NodeAssignment:
		head("assign")
		child(n.Target)
		child(n.Value)
	case NodeIf:
		head("if")
		child(n.Cond)
		child(n.Body)
		if n.Else != nil {
			child(n.Else)
		}
	case NodeWhile:
		head("while")
		child(n.Cond)
		child(n.Body)
	case NodeFor:
		head("for")
		items = append(items, sexy.NewString(n.LoopVar.Vars[0].Name))
		child(n.Init.Value)
		child(n.Cond)
		child(n.Body)
	case NodeReturn:
		head("return")
		child(n.Value)
	default:
		panic("Unsupported node kind: " + string(n.Kind))
	}
	return withLocation(sexy.NewList(items), n, parentLoc)
}

// locationFor returns the location children of n inherit, or nil if
// locations are not being rendered.
func locationFor(n *Node, parentLoc *Location) *Location {
	if parentLoc == nil {
		return nil
	}
	loc := n.Loc
	return &loc
}

func withLocation(s *sexy.Node, n *Node, parentLoc *Location) *sexy.Node {
	if parentLoc == nil || n.Loc == *parentLoc {
		return s
	}
	meta := []string{"line", "col"}
	values := []*sexy.Node{
		sexy.NewInteger(strconv.FormatUint(uint64(n.Loc.Line), 10)),
		sexy.NewInteger(strconv.FormatUint(uint64(n.Loc.Col), 10)),
	}
	if s.Type != sexy.NodeList {
		// Atoms can't carry metadata, so wrap them.
		return sexy.NewListWithMeta([]*sexy.Node{sexy.NewSymbol("lit"), s}, meta, values)
	}
	s.MetaKeys = meta
	s.MetaItems = values
	return s
}

func constantToSexy(c *Constant) *sexy.Node {
	switch c.Type.Kind() {
	case types.Integer:
		return sexy.NewInteger(strconv.FormatInt(c.Integer, 10))
	case types.Real:
		text := strconv.FormatFloat(c.Real, 'f', -1, 64)
		if !strings.Contains(text, ".") {
			text += ".0"
		}
		return sexy.NewReal(text)
	case types.Boolean:
		if c.Bool {
			return sexy.NewSymbol("true")
		}
		return sexy.NewSymbol("false")
	case types.String:
		return sexy.NewString(c.String)
	default:
		panic("Unsupported constant type: " + c.Type.String())
	}
}

func typeToSexy(t *types.PType) *sexy.Node {
	if t.Rank() == 0 {
		return sexy.NewSymbol(t.Kind().String())
	}
	items := []*sexy.Node{sexy.NewSymbol("array"), sexy.NewSymbol(t.Kind().String())}
	for _, dim := range t.Dimensions() {
		items = append(items, sexy.NewInteger(strconv.FormatInt(dim, 10)))
	}
	return sexy.NewList(items)
}

// Parse parses a tree written in the form ToSExpr produces.
func Parse(input string) (*Node, error) {
	root, err := sexy.Parse(input)
	if err != nil {
		return nil, err
	}
	return FromSExpr(root)
}

// FromSExpr builds a tree from a Sexy expression. Nodes take their location
// from ^{line: L, col: C} metadata; nodes without it inherit the location
// of their parent. A literal may be given a location by wrapping it:
// (lit ^{line: 3, col: 9} 42).
func FromSExpr(root *sexy.Node) (*Node, error) {
	r := &reader{b: NewBuilder()}
	return r.node(root, Location{})
}

type reader struct {
	b *Builder
}

func (r *reader) node(s *sexy.Node, parentLoc Location) (*Node, error) {
	loc, err := location(s, parentLoc)
	if err != nil {
		return nil, err
	}

	if s.Type != sexy.NodeList {
		c, err := constant(s)
		if err != nil {
			return nil, err
		}
		return r.b.ConstantValue(loc, c), nil
	}
	if len(s.Items) == 0 || s.Items[0].Type != sexy.NodeSymbol {
		return nil, fmt.Errorf("%s: expected a list starting with a symbol: %s", loc, s)
	}

	form := s.Items[0].Text
	args := s.Items[1:]
	switch form {
	case "lit":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: lit takes one literal: %s", loc, s)
		}
		c, err := constant(args[0])
		if err != nil {
			return nil, err
		}
		return r.b.ConstantValue(loc, c), nil

	case "program":
		name, rest, err := nameArg(form, args, loc)
		if err != nil {
			return nil, err
		}
		var decls, funcs []*Node
		var body *Node
		for _, item := range rest {
			n, err := r.node(item, loc)
			if err != nil {
				return nil, err
			}
			switch {
			case n.Kind == NodeDecl && body == nil && len(funcs) == 0:
				decls = append(decls, n)
			case n.Kind == NodeFunction && body == nil:
				funcs = append(funcs, n)
			case n.Kind == NodeCompoundStatement && body == nil:
				body = n
			default:
				return nil, fmt.Errorf("%s: unexpected %s in program %q", n.Loc, n.Kind, name)
			}
		}
		if body == nil {
			return nil, fmt.Errorf("%s: program %q has no body", loc, name)
		}
		return r.b.Program(loc, name, decls, funcs, body), nil

	case "decl":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: empty decl", loc)
		}
		vars, err := r.nodes(args, loc)
		if err != nil {
			return nil, err
		}
		for _, v := range vars {
			if v.Kind != NodeVariable {
				return nil, fmt.Errorf("%s: decl expects var or const, got %s", v.Loc, v.Kind)
			}
		}
		return r.b.Decl(loc, vars...), nil

	case "var":
		name, rest, err := nameArg(form, args, loc)
		if err != nil {
			return nil, err
		}
		if len(rest) != 1 {
			return nil, fmt.Errorf("%s: var %q expects a type", loc, name)
		}
		typ, err := parseType(rest[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", loc, err)
		}
		return r.b.Variable(loc, name, typ), nil

	case "const":
		name, rest, err := nameArg(form, args, loc)
		if err != nil {
			return nil, err
		}
		if len(rest) != 1 {
			return nil, fmt.Errorf("%s: const %q expects a literal", loc, name)
		}
		value, err := r.node(rest[0], loc)
		if err != nil {
			return nil, err
		}
		if value.Kind != NodeConstantValue {
			return nil, fmt.Errorf("%s: const %q expects a literal", loc, name)
		}
		return r.b.ConstantVariable(loc, name, value), nil

	case "function":
		name, rest, err := nameArg(form, args, loc)
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			return nil, fmt.Errorf("%s: function %q expects a return type", loc, name)
		}
		ret, err := parseType(rest[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", loc, err)
		}
		var params []*Node
		var body *Node
		for _, item := range rest[1:] {
			n, err := r.node(item, loc)
			if err != nil {
				return nil, err
			}
			switch {
			case n.Kind == NodeDecl && body == nil:
				params = append(params, n)
			case n.Kind == NodeCompoundStatement && body == nil:
				body = n
			default:
				return nil, fmt.Errorf("%s: unexpected %s in function %q", n.Loc, n.Kind, name)
			}
		}
		return r.b.Function(loc, name, params, ret, body), nil

	case "compound":
		var decls, stmts []*Node
		for _, item := range args {
			n, err := r.node(item, loc)
			if err != nil {
				return nil, err
			}
			switch {
			case n.Kind == NodeDecl:
				if len(stmts) > 0 {
					return nil, fmt.Errorf("%s: declaration after statement", n.Loc)
				}
				decls = append(decls, n)
			case n.IsStatement():
				stmts = append(stmts, n)
			default:
				return nil, fmt.Errorf("%s: compound expects statements, got %s", n.Loc, n.Kind)
			}
		}
		return r.b.Compound(loc, decls, stmts), nil

	case "print", "read":
		operands, err := r.fixed(form, args, 1, loc)
		if err != nil {
			return nil, err
		}
		if form == "print" {
			return r.b.Print(loc, operands[0]), nil
		}
		if operands[0].Kind != NodeVariableReference {
			return nil, fmt.Errorf("%s: read expects a ref", loc)
		}
		return r.b.Read(loc, operands[0]), nil

	case "assign":
		operands, err := r.fixed(form, args, 2, loc)
		if err != nil {
			return nil, err
		}
		if operands[0].Kind != NodeVariableReference {
			return nil, fmt.Errorf("%s: assign expects a ref", loc)
		}
		return r.b.Assign(loc, operands[0], operands[1]), nil

	case "return":
		operands, err := r.fixed(form, args, 1, loc)
		if err != nil {
			return nil, err
		}
		return r.b.Return(loc, operands[0]), nil

	case "if":
		if len(args) != 2 && len(args) != 3 {
			return nil, fmt.Errorf("%s: if expects a condition, a body and an optional else", loc)
		}
		cond, err := r.expression(form, args[0], loc)
		if err != nil {
			return nil, err
		}
		body, err := r.body(form, args[1], loc)
		if err != nil {
			return nil, err
		}
		var elseBody *Node
		if len(args) == 3 {
			if elseBody, err = r.body(form, args[2], loc); err != nil {
				return nil, err
			}
		}
		return r.b.If(loc, cond, body, elseBody), nil

	case "while":
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: while expects 2 operands, got %d", loc, len(args))
		}
		cond, err := r.expression(form, args[0], loc)
		if err != nil {
			return nil, err
		}
		body, err := r.body(form, args[1], loc)
		if err != nil {
			return nil, err
		}
		return r.b.While(loc, cond, body), nil

	case "for":
		name, rest, err := nameArg(form, args, loc)
		if err != nil {
			return nil, err
		}
		if len(rest) != 3 {
			return nil, fmt.Errorf("%s: for expects 3 operands, got %d", loc, len(rest))
		}
		bounds, err := r.expressions(form, rest[:2], loc)
		if err != nil {
			return nil, err
		}
		body, err := r.body(form, rest[2], loc)
		if err != nil {
			return nil, err
		}
		return r.b.ForRange(loc, name, bounds[0], bounds[1], body), nil

	case "binary", "unary":
		if len(args) == 0 || args[0].Type != sexy.NodeString {
			return nil, fmt.Errorf("%s: %s expects an operator string", loc, form)
		}
		op := Operator(args[0].Text)
		if form == "binary" {
			if !op.IsBinary() {
				return nil, fmt.Errorf("%s: unknown binary operator %q", loc, op)
			}
			operands, err := r.fixed(form, args[1:], 2, loc)
			if err != nil {
				return nil, err
			}
			return r.b.Binary(loc, op, operands[0], operands[1]), nil
		}
		if !op.IsUnary() {
			return nil, fmt.Errorf("%s: unknown unary operator %q", loc, op)
		}
		operands, err := r.fixed(form, args[1:], 1, loc)
		if err != nil {
			return nil, err
		}
		return r.b.Unary(loc, op, operands[0]), nil

	case "call", "ref":
		name, rest, err := nameArg(form, args, loc)
		if err != nil {
			return nil, err
		}
		exprs, err := r.expressions(form, rest, loc)
		if err != nil {
			return nil, err
		}
		if form == "call" {
			return r.b.Call(loc, name, exprs...), nil
		}
		return r.b.Ref(loc, name, exprs...), nil

	default:
		return nil, fmt.Errorf("%s: unknown form %q", loc, form)
	}
}

func (r *reader) nodes(items []*sexy.Node, loc Location) ([]*Node, error) {
	var nodes []*Node
	for _, item := range items {
		n, err := r.node(item, loc)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// fixed reads exactly count expression operands.
func (r *reader) fixed(form string, items []*sexy.Node, count int, loc Location) ([]*Node, error) {
	if len(items) != count {
		return nil, fmt.Errorf("%s: %s expects %d operands, got %d", loc, form, count, len(items))
	}
	return r.expressions(form, items, loc)
}

func (r *reader) expressions(form string, items []*sexy.Node, loc Location) ([]*Node, error) {
	var exprs []*Node
	for _, item := range items {
		n, err := r.expression(form, item, loc)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, n)
	}
	return exprs, nil
}

func (r *reader) expression(form string, item *sexy.Node, loc Location) (*Node, error) {
	n, err := r.node(item, loc)
	if err != nil {
		return nil, err
	}
	if !n.IsExpression() {
		return nil, fmt.Errorf("%s: %s expects an expression, got %s", n.Loc, form, n.Kind)
	}
	return n, nil
}

func (r *reader) body(form string, item *sexy.Node, loc Location) (*Node, error) {
	n, err := r.node(item, loc)
	if err != nil {
		return nil, err
	}
	if n.Kind != NodeCompoundStatement {
		return nil, fmt.Errorf("%s: %s expects a compound body, got %s", n.Loc, form, n.Kind)
	}
	return n, nil
}

func nameArg(form string, args []*sexy.Node, loc Location) (string, []*sexy.Node, error) {
	if len(args) == 0 || args[0].Type != sexy.NodeString {
		return "", nil, fmt.Errorf("%s: %s expects a name string", loc, form)
	}
	return args[0].Text, args[1:], nil
}

func location(s *sexy.Node, parentLoc Location) (Location, error) {
	loc := parentLoc
	for key, dst := range map[string]*uint32{"line": &loc.Line, "col": &loc.Col} {
		value := s.Meta(key)
		if value == nil {
			continue
		}
		if value.Type != sexy.NodeInteger {
			return loc, fmt.Errorf("metadata %s must be an integer, got %s", key, value)
		}
		n, err := strconv.ParseUint(value.Text, 10, 32)
		if err != nil {
			return loc, fmt.Errorf("metadata %s: %w", key, err)
		}
		*dst = uint32(n)
	}
	return loc, nil
}

func constant(s *sexy.Node) (*Constant, error) {
	switch s.Type {
	case sexy.NodeInteger:
		v, err := strconv.ParseInt(s.Text, 10, 64)
		if err != nil {
			return nil, err
		}
		return IntegerConstant(v), nil
	case sexy.NodeReal:
		v, err := strconv.ParseFloat(s.Text, 64)
		if err != nil {
			return nil, err
		}
		return RealConstant(v), nil
	case sexy.NodeString:
		return StringConstant(s.Text), nil
	case sexy.NodeSymbol:
		switch s.Text {
		case "true":
			return BoolConstant(true), nil
		case "false":
			return BoolConstant(false), nil
		}
	}
	return nil, fmt.Errorf("expected a literal, got %s", s)
}

var primitiveTypes = map[string]types.PrimitiveKind{
	"void":    types.Void,
	"integer": types.Integer,
	"real":    types.Real,
	"boolean": types.Boolean,
	"string":  types.String,
}

func parseType(s *sexy.Node) (*types.PType, error) {
	if s.Type == sexy.NodeSymbol {
		kind, ok := primitiveTypes[s.Text]
		if !ok {
			return nil, fmt.Errorf("unknown type %s", s.Text)
		}
		return types.New(kind), nil
	}
	if s.Type != sexy.NodeList || len(s.Items) < 3 ||
		s.Items[0].Type != sexy.NodeSymbol || s.Items[0].Text != "array" ||
		s.Items[1].Type != sexy.NodeSymbol {
		return nil, fmt.Errorf("expected a type, got %s", s)
	}
	kind, ok := primitiveTypes[s.Items[1].Text]
	if !ok || kind == types.Void {
		return nil, fmt.Errorf("bad array element type %s", s.Items[1].Text)
	}
	var dims []int64
	for _, item := range s.Items[2:] {
		if item.Type != sexy.NodeInteger {
			return nil, fmt.Errorf("array dimension must be an integer, got %s", item)
		}
		dim, err := strconv.ParseInt(item.Text, 10, 64)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}
	return types.New(kind, dims...), nil
}
