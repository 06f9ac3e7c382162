package sema

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/pcc/ast"
)

func analyze(t *testing.T, source string) (*ast.Node, *Result) {
	t.Helper()
	program, err := ast.Parse(source)
	be.Err(t, err, nil)
	return program, NewAnalyzer(nil).Analyze(program)
}

func errorKinds(r *Result) []ErrorKind {
	var kinds []ErrorKind
	for _, err := range r.Errors.Errors() {
		kinds = append(kinds, err.Kind)
	}
	return kinds
}

func messages(r *Result) []string {
	var result []string
	for _, err := range r.Errors.Errors() {
		result = append(result, err.Error())
	}
	return result
}

func TestWellTypedProgramHasNoErrors(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var "i" integer) (var "r" real) (var "b" boolean) (var "s" string))
  (decl (const "limit" 10))
  (function "square" real (decl (var "x" real))
    (compound (return (binary "*" (ref "x") (ref "x")))))
  (compound
    (assign (ref "i") (binary "mod" (ref "limit") 3))
    (assign (ref "r") (call "square" (ref "i")))
    (assign (ref "b") (binary "and" (binary "<" (ref "i") (ref "r")) (unary "not" false)))
    (assign (ref "s") (binary "+" "a" "b"))
    (if (ref "b") (compound (print (ref "s"))) (compound (print (unary "neg" (ref "r")))))
    (while (binary "<>" (ref "i") 0) (compound (assign (ref "i") (binary "-" (ref "i") 1))))
    (for "k" 0 (ref "limit") (compound (print (ref "k"))))
    (read (ref "i"))))`)
	be.Equal(t, messages(result), []string(nil))
	be.True(t, !result.HasErrors())
}

func TestRedeclarationInSameScope(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var ^{line: 2, col: 5} "x" integer))
  (compound
    (decl (var ^{line: 4, col: 9} "y" integer))
    (decl (var ^{line: 5, col: 9} "y" real))))`)
	be.Equal(t, messages(result), []string{"5:9: symbol 'y' is redeclared"})
}

func TestShadowingInNestedBlock(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var "x" integer))
  (compound
    (decl (var "x" real))
    (compound
      (decl (var "x" boolean))
      (if (ref "x") (compound)))))`)
	be.True(t, !result.HasErrors())
}

func TestNestedBlockVisibility(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (function "f" void (decl (var "a" integer))
    (compound
      (decl (var "b" integer))
      (compound
        (decl (var "c" integer))
        (assign (ref "c") (binary "+" (ref "a") (ref "b"))))
      (assign ^{line: 9, col: 7} (ref "b") (ref "c"))))
  (compound))`)
	be.Equal(t, messages(result), []string{"9:7: use of undeclared symbol 'c'"})
}

func TestFunctionBodySharesParameterScope(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (function "f" void (decl (var "a" integer))
    (compound (decl (var "a" real))))
  (compound))`)
	be.Equal(t, errorKinds(result), []ErrorKind{ErrRedeclared})
}

func TestArrayIndexing(t *testing.T) {
	program, result := analyze(t, `
(program "p"
  (decl (var "m" (array integer 3 4)))
  (compound
    (print (ref "m" 1 2))
    (print (ref "m" 1))
    (print (ref "m" 1 2 3))))`)
	be.Equal(t, messages(result), []string{
		"0:0: expression of print statement must be scalar type",
		"0:0: there is an over array subscript on 'm'",
	})

	stmts := program.Body.Stmts
	be.Equal(t, stmts[0].Target.Type.String(), "integer")
	be.Equal(t, stmts[1].Target.Type.String(), "integer [4]")
	be.True(t, stmts[2].Target.Type.IsError())
}

func TestExpressionTypes(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected string
		message  string
	}{
		{name: "string concatenation", expr: `(binary "+" "a" "b")`, expected: "string"},
		{name: "integer plus real", expr: `(binary "+" 1 2.0)`, expected: "real"},
		{name: "integer plus integer", expr: `(binary "+" 1 2)`, expected: "integer"},
		{name: "real division", expr: `(binary "/" 1.5 2)`, expected: "real"},
		{name: "mod", expr: `(binary "mod" 7 2)`, expected: "integer"},
		{name: "relational", expr: `(binary "<" 1 2.5)`, expected: "boolean"},
		{name: "equality", expr: `(binary "=" 1 1)`, expected: "boolean"},
		{name: "logical", expr: `(binary "or" true false)`, expected: "boolean"},
		{name: "negate real", expr: `(unary "neg" 2.5)`, expected: "real"},
		{name: "negate integer", expr: `(unary "neg" 2)`, expected: "integer"},
		{name: "not", expr: `(unary "not" true)`, expected: "boolean"},
		{
			name:     "boolean plus boolean",
			expr:     `(binary "+" true false)`,
			expected: "<error>",
			message:  "invalid operands to binary operator '+' ('boolean' and 'boolean')",
		},
		{
			name:     "string minus string",
			expr:     `(binary "-" "a" "b")`,
			expected: "<error>",
			message:  "invalid operands to binary operator '-' ('string' and 'string')",
		},
		{
			name:     "real mod",
			expr:     `(binary "mod" 5 2.0)`,
			expected: "<error>",
			message:  "invalid operands to binary operator 'mod' ('integer' and 'real')",
		},
		{
			name:     "compare strings",
			expr:     `(binary "=" "a" "b")`,
			expected: "<error>",
			message:  "invalid operands to binary operator '=' ('string' and 'string')",
		},
		{
			name:     "and integers",
			expr:     `(binary "and" 1 0)`,
			expected: "<error>",
			message:  "invalid operands to binary operator 'and' ('integer' and 'integer')",
		},
		{
			name:     "not integer",
			expr:     `(unary "not" 1)`,
			expected: "<error>",
			message:  "invalid operand to unary operator 'not' ('integer')",
		},
		{
			name:     "negate string",
			expr:     `(unary "neg" "x")`,
			expected: "<error>",
			message:  "invalid operand to unary operator 'neg' ('string')",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			program, result := analyze(t, `(program "p" (compound (print `+test.expr+`)))`)
			be.Equal(t, program.Body.Stmts[0].Target.Type.String(), test.expected)
			if test.message == "" {
				be.True(t, !result.HasErrors())
			} else {
				be.Equal(t, result.Errors.Len(), 1)
				be.Equal(t, result.Errors.Errors()[0].Message(), test.message)
			}
		})
	}
}

func TestErrorTypeSuppressesCascade(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var "x" integer))
  (compound
    (print (binary "*" (binary "+" true 1) 2))
    (assign (ref "x") (unary "neg" (ref "missing")))
    (if (binary "<" (ref "missing") 1) (compound))))`)
	be.Equal(t, errorKinds(result), []ErrorKind{ErrInvalidBinaryOperands, ErrUndeclared, ErrUndeclared})
}

func TestReturnFromVoid(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (function "f" void (compound (return (ref "nope"))))
  (function "g" void (compound (return 1)))
  (compound (return 1)))`)
	be.Equal(t, errorKinds(result), []ErrorKind{ErrUndeclared, ErrReturnFromVoid, ErrReturnFromVoid, ErrReturnFromVoid})
	be.Equal(t, result.Errors.Errors()[1].Message(), "program/procedure should not return a value")
}

func TestIncompatibleReturn(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (function "f" integer (compound (return ^{line: 3, col: 12} "s")))
  (function "g" real (compound (return 1)))
  (compound))`)
	be.Equal(t, messages(result), []string{"3:12: return 'string' from a function with return type 'integer'"})
}

func TestFunctionCalls(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var "x" integer))
  (function "f" integer (decl (var "a" integer) (var "b" boolean)) (decl (var "c" string))
    (compound (return (ref "a"))))
  (compound
    (print (call "nope"))
    (print (call "x"))
    (print (call "f" 1 true))
    (print (call "f" (lit ^{line: 9, col: 14} "a") 1 2))
    (print (call "f" 1 true "s"))
    (print (ref "f"))))`)
	be.Equal(t, messages(result), []string{
		"0:0: use of undeclared symbol 'nope'",
		"0:0: call of non-function symbol 'x'",
		"0:0: too few/much arguments provided for function 'f'",
		"9:14: incompatible type passing 'string' to parameter of type 'integer'",
		"0:0: use of non-variable symbol 'f'",
	})
}

func TestCallResultType(t *testing.T) {
	program, result := analyze(t, `
(program "p"
  (decl (var "v" (array integer 3)))
  (function "avg" real (decl (var "a" (array integer 3)))
    (compound (return 1.0)))
  (compound (print (call "avg" (ref "v")))))`)
	be.True(t, !result.HasErrors())
	be.Equal(t, program.Body.Stmts[0].Target.Type.String(), "real")
}

func TestArrayArgumentsMustMatchExactly(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var "ints" (array integer 3)) (var "reals" (array real 3)))
  (function "sum" real (decl (var "a" (array real 3)))
    (compound (return 1.0)))
  (compound
    (print (call "sum" (ref "reals")))
    (print (call "sum" (ref "ints")))))`)
	be.Equal(t, messages(result), []string{
		"0:0: incompatible type passing 'integer [3]' to parameter of type 'real [3]'",
	})
}

func TestStatementErrors(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (const "c" 1) (var "a" (array integer 3)) (var "x" integer) (var "s" string))
  (compound
    (assign (ref "c") 2)
    (assign (ref "a") 1)
    (assign (ref "x") (ref "a"))
    (assign (ref "x") "str")
    (for "i" 0 3 (compound (assign (ref "i") 1) (read (ref "i"))))
    (read (ref "c"))
    (read (ref "a"))
    (if 1 (compound))
    (while (ref "s") (compound))
    (for "j" 5 2 (compound))
    (assign (ref "x") (ref "a" 1.5))))`)
	be.Equal(t, errorKinds(result), []ErrorKind{
		ErrAssignToConstant,
		ErrAssignToArray,
		ErrAssignFromArray,
		ErrIncompatibleAssignment,
		ErrAssignToLoopVar,
		ErrReadConstantOrLoopVar,
		ErrReadConstantOrLoopVar,
		ErrReadNonScalar,
		ErrNonBooleanCondition,
		ErrNonBooleanCondition,
		ErrNonIncrementalLoop,
		ErrNonIntegerIndex,
	})

	errs := result.Errors.Errors()
	be.Equal(t, errs[0].Message(), "cannot assign to variable 'c' which is a constant")
	be.Equal(t, errs[3].Message(), "assigning to 'integer' from incompatible type 'string'")
}

func TestNonPositiveDimensionsReportedEach(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var "z" (array integer 0 -1)))
  (compound
    (print (ref "z" 1 1))
    (assign (ref "z" 0 0) 1)))`)
	be.Equal(t, messages(result), []string{
		"0:0: 'z' declared as an array with an index that is not greater than 0",
		"0:0: 'z' declared as an array with an index that is not greater than 0",
	})
}

func TestLoopVariableRebinding(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (compound
    (for "i" 0 3 (compound (decl (var "i" integer))))
    (for "i" 0 3 (compound (for "i" 0 2 (compound))))
    (compound (decl (var "i" integer)))))`)
	be.Equal(t, errorKinds(result), []ErrorKind{ErrRedeclared, ErrRedeclared})
}

func TestLoopBounds(t *testing.T) {
	tests := []struct {
		name   string
		bounds string
		errors int
	}{
		{name: "increasing literals", bounds: `0 3`, errors: 0},
		{name: "equal literals", bounds: `3 3`, errors: 1},
		{name: "decreasing literals", bounds: `5 2`, errors: 1},
		{name: "negated lower bound", bounds: `(unary "neg" 2) 0`, errors: 0},
		{name: "negated upper bound", bounds: `0 (unary "neg" 2)`, errors: 1},
		{name: "constant upper bound", bounds: `5 (ref "n")`, errors: 1},
		{name: "constant lower bound", bounds: `(ref "n") 10`, errors: 0},
		{name: "variable bound", bounds: `10 (ref "x")`, errors: 0},
		{name: "string upper bound", bounds: `1 "end"`, errors: 1},
		{name: "boolean upper bound", bounds: `1 true`, errors: 1},
		{name: "real upper bound", bounds: `1 2.5`, errors: 1},
		{name: "array upper bound", bounds: `1 (ref "a")`, errors: 1},
		{name: "real lower bound", bounds: `1.5 10`, errors: 1},
		{name: "string lower bound", bounds: `"s" 10`, errors: 1},
		{name: "undeclared upper bound", bounds: `1 (ref "missing")`, errors: 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, result := analyze(t, `
(program "p"
  (decl (const "n" 3) (var "x" integer) (var "a" (array integer 3)))
  (compound (for "i" `+test.bounds+` (compound))))`)
			be.Equal(t, result.Errors.Len(), test.errors)
		})
	}
}

func TestNonIntegerLoopBounds(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (compound
    (for "i" 1.5 (lit ^{line: 2, col: 14} "end") (compound))))`)
	be.Equal(t, errorKinds(result), []ErrorKind{ErrNonIntegerLoopBound, ErrNonIntegerLoopBound})
	be.Equal(t, messages(result)[1], "2:14: the lower bound and upper bound of iteration count must be integer type")
}

func TestScopeTables(t *testing.T) {
	program, result := analyze(t, `
(program "p"
  (decl (var "g" integer))
  (function "f" void (decl (var "a" integer) (var "b" integer))
    (compound
      (decl (var "arr" (array integer 2 3)) (var "c" real))
      (compound (decl (var "d" integer)))))
  (compound
    (decl (var "m" integer))
    (for "i" 0 3 (compound))))`)
	be.True(t, !result.HasErrors())

	fn := program.Funcs[0]
	loop := program.Body.Stmts[0]
	inner := fn.Body.Stmts[0]

	be.Equal(t, len(result.Tables), 6)
	_, bodyHasTable := result.Tables[fn.Body.ID]
	be.True(t, !bodyHasTable)

	global := result.Tables[program.ID]
	be.Equal(t, len(global.Entries()), 3)
	be.Equal(t, global.Lookup("f").Kind, KindFunction)

	offsets := map[string]int{}
	for _, id := range []ast.NodeID{fn.ID, inner.ID, program.Body.ID, loop.ID} {
		for _, entry := range result.Tables[id].Entries() {
			offsets[entry.Name] = entry.Offset
		}
	}
	be.Equal(t, offsets, map[string]int{
		"a":   -12,
		"b":   -16,
		"arr": -40,
		"c":   -44,
		"d":   -48,
		"m":   -12,
		"i":   -16,
	})
	be.Equal(t, result.Tables[loop.ID].Lookup("i").Kind, KindLoopVar)
	be.Equal(t, result.Tables[fn.ID].Lookup("a").Kind, KindParameter)
}

func TestAnalyzerIsReusable(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	bad, err := ast.Parse(`(program "p" (decl (var "z" (array integer 0))) (compound (print (ref "z"))))`)
	be.Err(t, err, nil)
	be.Equal(t, analyzer.Analyze(bad).Errors.Len(), 1)

	good, err := ast.Parse(`(program "p" (decl (var "z" (array integer 2))) (compound (print (ref "z" 0))))`)
	be.Err(t, err, nil)
	be.True(t, !analyzer.Analyze(good).HasErrors())
}

func TestDump(t *testing.T) {
	program, err := ast.Parse(`
(program "test"
  (decl (var "a" integer) (var "b" real))
  (function "sum" integer (decl (var "x" integer) (var "y" integer))
    (compound (return (binary "+" (ref "x") (ref "y")))))
  (compound (assign (ref "a") (call "sum" 1 2))))`)
	be.Err(t, err, nil)

	var out bytes.Buffer
	result := NewAnalyzer(&out).Analyze(program)
	be.True(t, !result.HasErrors())

	expected := "" +
		"==============================================================================================================\n" +
		"Name                             Kind       Level      Type             Attribute  \n" +
		"--------------------------------------------------------------------------------------------------------------\n" +
		"x                                parameter  1(local)   integer                     \n" +
		"y                                parameter  1(local)   integer                     \n" +
		"--------------------------------------------------------------------------------------------------------------\n" +
		"==============================================================================================================\n" +
		"Name                             Kind       Level      Type             Attribute  \n" +
		"--------------------------------------------------------------------------------------------------------------\n" +
		"--------------------------------------------------------------------------------------------------------------\n" +
		"==============================================================================================================\n" +
		"Name                             Kind       Level      Type             Attribute  \n" +
		"--------------------------------------------------------------------------------------------------------------\n" +
		"test                             program    0(global)  void                        \n" +
		"a                                variable   0(global)  integer                     \n" +
		"b                                variable   0(global)  real                        \n" +
		"sum                              function   0(global)  integer          integer, integer\n" +
		"--------------------------------------------------------------------------------------------------------------\n"
	be.Equal(t, out.String(), expected)
}

func TestRender(t *testing.T) {
	_, result := analyze(t, `
(program "p"
  (decl (var "x" integer))
  (compound
    (assign ^{line: 3, col: 5} (ref "x") "s")
    (print ^{line: 9, col: 1} (ref "y"))))`)

	source := []string{"p;", "var x: integer;", "    x := \"s\";", "end"}

	var out strings.Builder
	be.Err(t, result.Errors.Render(&out, source), nil)
	be.Equal(t, out.String(), ""+
		"<Error> Found in line 3, column 5: assigning to 'integer' from incompatible type 'string'\n"+
		"        x := \"s\";\n"+
		"        ^\n"+
		"<Error> Found in line 9, column 1: use of undeclared symbol 'y'\n")
}
