package ast

// Children returns the children of n in traversal order. Every pass over
// the tree relies on this order: declarations before statements,
// parameters before bodies, conditions before bodies.
func Children(n *Node) []*Node {
	var children []*Node
	add := func(nodes ...*Node) {
		for _, child := range nodes {
			if child != nil {
				children = append(children, child)
			}
		}
	}

	switch n.Kind {
	case NodeProgram:
		add(n.Decls...)
		add(n.Funcs...)
		add(n.Body)
	case NodeDecl:
		add(n.Vars...)
	case NodeVariable:
		add(n.Value)
	case NodeConstantValue:
	case NodeFunction:
		add(n.Decls...)
		add(n.Body)
	case NodeCompoundStatement:
		add(n.Decls...)
		add(n.Stmts...)
	case NodePrint, NodeRead:
		add(n.Target)
	case NodeBinaryOperator:
		add(n.X, n.Y)
	case NodeUnaryOperator:
		add(n.X)
	case NodeFunctionInvocation, NodeVariableReference:
		add(n.Exprs...)
	case NodeAssignment:
		add(n.Target, n.Value)
	case NodeIf:
		add(n.Cond, n.Body, n.Else)
	case NodeWhile:
		add(n.Cond, n.Body)
	case NodeFor:
		add(n.LoopVar, n.Init, n.Cond, n.Body)
	case NodeReturn:
		add(n.Value)
	default:
		panic("Unsupported node kind: " + string(n.Kind))
	}
	return children
}

// Walk calls fn for n and then, if fn returns true, for each of n's
// children in traversal order.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// Find returns the first node in traversal order for which match returns
// true, or nil.
func Find(root *Node, match func(*Node) bool) *Node {
	var found *Node
	Walk(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}
