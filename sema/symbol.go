package sema

import (
	"strings"

	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/types"
)

type SymbolKind uint8

const (
	KindProgram SymbolKind = iota
	KindFunction
	KindParameter
	KindVariable
	KindLoopVar
	KindConstant
)

var symbolKindNames = [...]string{
	KindProgram:   "program",
	KindFunction:  "function",
	KindParameter: "parameter",
	KindVariable:  "variable",
	KindLoopVar:   "loop_var",
	KindConstant:  "constant",
}

func (k SymbolKind) String() string {
	return symbolKindNames[k]
}

// IsVariable reports whether a symbol of this kind may be referenced as a
// variable.
func (k SymbolKind) IsVariable() bool {
	switch k {
	case KindParameter, KindVariable, KindLoopVar, KindConstant:
		return true
	default:
		return false
	}
}

// Attribute is the extra information some symbols carry: the value of a
// constant, or the parameter groups of a function. At most one is set.
type Attribute struct {
	constant   *ast.Constant
	parameters []*ast.Node
}

// NoAttribute is the attribute of plain variables, parameters, loop
// variables and programs.
var NoAttribute = Attribute{}

func ConstantAttribute(c *ast.Constant) Attribute {
	return Attribute{constant: c}
}

// ParametersAttribute holds a function's parameter groups (NodeDecl nodes).
func ParametersAttribute(decls []*ast.Node) Attribute {
	return Attribute{parameters: decls}
}

// Constant returns the constant value, or nil.
func (a Attribute) Constant() *ast.Constant {
	return a.constant
}

// Parameters returns the function's parameter groups, or nil.
func (a Attribute) Parameters() []*ast.Node {
	return a.parameters
}

// ParameterTypes flattens the parameter groups into one type per parameter.
func (a Attribute) ParameterTypes() []*types.PType {
	var result []*types.PType
	for _, decl := range a.parameters {
		for _, v := range decl.Vars {
			result = append(result, v.DeclType)
		}
	}
	return result
}

// String renders the attribute column of the symbol table dump.
func (a Attribute) String() string {
	if a.constant != nil {
		return a.constant.Text()
	}
	if a.parameters == nil {
		return ""
	}
	var parts []string
	for _, t := range a.ParameterTypes() {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}

// SymbolEntry is what a name means in one scope.
type SymbolEntry struct {
	Name      string
	Kind      SymbolKind
	Level     int
	Type      *types.PType
	Attribute Attribute
	// Offset is the frame-relative address of a local (Level > 0) symbol
	// that has storage. Global symbols are addressed by name and have
	// offset 0.
	Offset int
}

// IsGlobal reports whether the symbol lives in static storage.
func (e *SymbolEntry) IsGlobal() bool {
	return e.Level == 0
}
