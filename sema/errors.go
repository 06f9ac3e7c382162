package sema

import (
	"fmt"
	"io"
	"strings"

	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/types"
)

// ErrorKind identifies a class of semantic error.
type ErrorKind uint8

const (
	ErrRedeclared ErrorKind = iota
	ErrUndeclared
	ErrNonVariable
	ErrNonFunction
	ErrArgumentCount
	ErrArgumentType
	ErrNonPositiveDimension
	ErrNonIntegerIndex
	ErrOverSubscript
	ErrPrintNonScalar
	ErrReadNonScalar
	ErrReadConstantOrLoopVar
	ErrInvalidBinaryOperands
	ErrInvalidUnaryOperand
	ErrAssignToArray
	ErrAssignFromArray
	ErrAssignToConstant
	ErrAssignToLoopVar
	ErrIncompatibleAssignment
	ErrNonBooleanCondition
	ErrNonIncrementalLoop
	ErrReturnFromVoid
	ErrIncompatibleReturn
	ErrNonIntegerLoopBound
)

// Error is one semantic error. Which of Name, Op and Types are set depends
// on Kind.
type Error struct {
	Kind ErrorKind
	Loc  ast.Location
	Name string
	Op   ast.Operator
	// Types holds the operand types of an operator error, the argument and
	// parameter types of an argument error, or the actual and expected types
	// of an assignment or return error.
	Types []*types.PType
}

func (e *Error) typeName(i int) string {
	if i < len(e.Types) && e.Types[i] != nil {
		return e.Types[i].String()
	}
	return ""
}

// Message is the description of the error without its location.
func (e *Error) Message() string {
	switch e.Kind {
	case ErrRedeclared:
		return fmt.Sprintf("symbol '%s' is redeclared", e.Name)
	case ErrUndeclared:
		return fmt.Sprintf("use of undeclared symbol '%s'", e.Name)
	case ErrNonVariable:
		return fmt.Sprintf("use of non-variable symbol '%s'", e.Name)
	case ErrNonFunction:
		return fmt.Sprintf("call of non-function symbol '%s'", e.Name)
	case ErrArgumentCount:
		return fmt.Sprintf("too few/much arguments provided for function '%s'", e.Name)
	case ErrArgumentType:
		return fmt.Sprintf("incompatible type passing '%s' to parameter of type '%s'", e.typeName(0), e.typeName(1))
	case ErrNonPositiveDimension:
		return fmt.Sprintf("'%s' declared as an array with an index that is not greater than 0", e.Name)
	case ErrNonIntegerIndex:
		return "index of array reference must be an integer"
	case ErrOverSubscript:
		return fmt.Sprintf("there is an over array subscript on '%s'", e.Name)
	case ErrPrintNonScalar:
		return "expression of print statement must be scalar type"
	case ErrReadNonScalar:
		return "variable reference of read statement must be scalar type"
	case ErrReadConstantOrLoopVar:
		return "variable reference of read statement cannot be a constant or loop variable"
	case ErrInvalidBinaryOperands:
		return fmt.Sprintf("invalid operands to binary operator '%s' ('%s' and '%s')", e.Op, e.typeName(0), e.typeName(1))
	case ErrInvalidUnaryOperand:
		return fmt.Sprintf("invalid operand to unary operator '%s' ('%s')", e.Op, e.typeName(0))
	case ErrAssignToArray, ErrAssignFromArray:
		return "array assignment is not allowed"
	case ErrAssignToConstant:
		return fmt.Sprintf("cannot assign to variable '%s' which is a constant", e.Name)
	case ErrAssignToLoopVar:
		return "the value of loop variable cannot be modified inside the loop body"
	case ErrIncompatibleAssignment:
		return fmt.Sprintf("assigning to '%s' from incompatible type '%s'", e.typeName(1), e.typeName(0))
	case ErrNonBooleanCondition:
		return "the expression of condition must be boolean type"
	case ErrNonIncrementalLoop:
		return "the lower bound and upper bound of iteration count must be in the incremental order"
	case ErrReturnFromVoid:
		return "program/procedure should not return a value"
	case ErrIncompatibleReturn:
		return fmt.Sprintf("return '%s' from a function with return type '%s'", e.typeName(0), e.typeName(1))
	case ErrNonIntegerLoopBound:
		return "the lower bound and upper bound of iteration count must be integer type"
	default:
		return fmt.Sprintf("semantic error %d", e.Kind)
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message())
}

// ErrorCollection accumulates semantic errors in the order they are found.
type ErrorCollection struct {
	errors []*Error
}

func (c *ErrorCollection) Add(err *Error) {
	c.errors = append(c.errors, err)
}

func (c *ErrorCollection) HasErrors() bool {
	return len(c.errors) > 0
}

func (c *ErrorCollection) Errors() []*Error {
	return c.errors
}

func (c *ErrorCollection) Len() int {
	return len(c.errors)
}

// String lists the errors one per line as "line:col: message".
func (c *ErrorCollection) String() string {
	var lines []string
	for _, err := range c.errors {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

// Render writes every error in the compiler's user-facing format. If
// sourceLines holds the program text (one element per line), the offending
// line is echoed with a caret under the error's column.
func (c *ErrorCollection) Render(w io.Writer, sourceLines []string) error {
	var sb strings.Builder
	for _, err := range c.errors {
		fmt.Fprintf(&sb, "<Error> Found in line %d, column %d: %s\n", err.Loc.Line, err.Loc.Col, err.Message())
		line := int(err.Loc.Line)
		if line < 1 || line > len(sourceLines) {
			continue
		}
		fmt.Fprintf(&sb, "    %s\n", sourceLines[line-1])
		caret := 0
		if err.Loc.Col > 1 {
			caret = int(err.Loc.Col) - 1
		}
		fmt.Fprintf(&sb, "    %s^\n", strings.Repeat(" ", caret))
	}
	_, werr := io.WriteString(w, sb.String())
	return werr
}
