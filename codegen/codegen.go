// Package codegen lowers an analyzed program to RV32 assembly.
//
// The generated code uses a stack evaluation model: every expression pushes
// exactly one 4-byte value and operators pop their operands into t0-t2 or
// ft0-ft1. Integers, booleans, single-precision reals and string addresses
// all fit in one slot.
package codegen

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/sema"
	"github.com/strager/pcc/types"
)

// Config controls where generated code goes.
type Config struct {
	// SourceName is the path of the P source file. It is recorded in the
	// .file directive and names the output file.
	SourceName string
	// OutDir is the directory the .S file is written to. Empty means ".".
	OutDir string
}

// OutputPath returns <OutDir>/<base name of SourceName without extension>.S.
func (c Config) OutputPath() string {
	dir := c.OutDir
	if dir == "" {
		dir = "."
	}
	base := filepath.Base(c.SourceName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".S")
}

// Generator emits assembly for one program. It consumes the symbol tables
// of a successful analysis of that program.
type Generator struct {
	cfg    Config
	tables map[ast.NodeID]*sema.SymbolTable

	manager *sema.SymbolManager
	buf     bytes.Buffer
	frame   int
	// addressMode makes variable references push their address instead of
	// their value. It is set while emitting assignment and read targets.
	addressMode bool
	// returnType is the declared return type of the function being emitted.
	returnType *types.PType
	nextString int
}

// New creates a generator. tables must come from analyzing the program that
// is passed to Generate; the generator takes ownership of them.
func New(tables map[ast.NodeID]*sema.SymbolTable, cfg Config) *Generator {
	return &Generator{
		cfg:     cfg,
		tables:  tables,
		manager: sema.NewSymbolManager(),
		frame:   frameSize(tables),
	}
}

// Generate writes the assembly for program to w.
func (g *Generator) Generate(w io.Writer, program *ast.Node) error {
	if program.Kind != ast.NodeProgram {
		return fmt.Errorf("expected a program, got %s", program.Kind)
	}
	if err := checkSymbolNames(program); err != nil {
		return err
	}
	g.buf.Reset()
	g.visitProgram(program)
	_, err := w.Write(g.buf.Bytes())
	return err
}

// assemblySymbols are defined by the generated entry point or the runtime
// library.
var assemblySymbols = map[string]bool{
	"main":         true,
	"printInt":     true,
	"printReal":    true,
	"printString":  true,
	"readInt":      true,
	"readReal":     true,
	"readString":   true,
	"concatString": true,
}

// checkSymbolNames rejects globals and function definitions whose assembly
// symbol would clash with one in assemblySymbols. A function without a body
// may name a runtime routine, since it defines nothing.
func checkSymbolNames(program *ast.Node) error {
	for _, decl := range program.Decls {
		for _, v := range decl.Vars {
			if assemblySymbols[v.Name] {
				return fmt.Errorf("%s: global '%s' conflicts with assembly symbol '%s'", v.Loc, v.Name, v.Name)
			}
		}
	}
	for _, fn := range program.Funcs {
		if fn.Body != nil && assemblySymbols[fn.Name] {
			return fmt.Errorf("%s: function '%s' conflicts with assembly symbol '%s'", fn.Loc, fn.Name, fn.Name)
		}
	}
	return nil
}

// GenerateFile writes the assembly for program to cfg.OutputPath() and
// returns that path.
func GenerateFile(program *ast.Node, tables map[ast.NodeID]*sema.SymbolTable, cfg Config) (path string, err error) {
	if err := checkSymbolNames(program); err != nil {
		return "", err
	}
	path = cfg.OutputPath()
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to write %s: %w", path, closeErr)
		}
	}()

	if err := New(tables, cfg).Generate(f, program); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// enterScope re-attaches the table the analyzer built for n.
func (g *Generator) enterScope(n *ast.Node) {
	table, ok := g.tables[n.ID]
	if !ok {
		panic(fmt.Sprintf("no symbol table for %s node %d", n.Kind, n.ID))
	}
	delete(g.tables, n.ID)
	g.manager.PushTable(table)
}

func (g *Generator) leaveScope() {
	g.manager.PopScope()
}

func (g *Generator) lookup(name string) *sema.SymbolEntry {
	entry := g.manager.Lookup(name)
	if entry == nil {
		panic("Undefined symbol: " + name)
	}
	return entry
}

func (g *Generator) visitProgram(n *ast.Node) {
	g.emit(".file \"%s\"", g.cfg.SourceName)
	g.emit(".option nopic")
	g.directive(".section    .text")
	g.emit(".align 2")

	g.enterScope(n)
	for _, decl := range n.Decls {
		for _, v := range decl.Vars {
			g.emitGlobal(g.lookup(v.Name))
		}
	}
	for _, fn := range n.Funcs {
		g.visitFunction(fn)
	}

	g.returnType = n.DeclType
	g.emitPrologue("main")
	g.visitCompound(n.Body)
	g.emitEpilogue("main")
	g.leaveScope()
}

// emitGlobal reserves storage for a level-0 variable or constant.
func (g *Generator) emitGlobal(entry *sema.SymbolEntry) {
	if entry.Kind != sema.KindConstant {
		size := wordSize * max(entry.Type.ElementCount(), 1)
		g.directive(".comm %s, %d, 4", entry.Name, size)
		return
	}

	c := entry.Attribute.Constant()
	var word string
	switch c.Type.Kind() {
	case types.Integer:
		word = fmt.Sprint(c.Integer)
	case types.Real:
		word = fmt.Sprint(realBits(c.Real))
	case types.Boolean:
		word = boolWord(c.Bool)
	case types.String:
		word = g.stringLiteral(c.String)
	default:
		panic("Unsupported constant type: " + c.Type.String())
	}
	g.directive(".section    .rodata")
	g.emit(".align 2")
	g.emit(".globl %s", entry.Name)
	g.emit(".type %s, @object", entry.Name)
	g.directive("%s:", entry.Name)
	g.emit(".word %s", word)
}

func boolWord(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (g *Generator) visitFunction(n *ast.Node) {
	g.enterScope(n)
	defer g.leaveScope()
	if n.Body == nil {
		// Declared only; defined elsewhere.
		return
	}

	g.returnType = n.DeclType
	g.emitPrologue(n.Name)

	params := n.Parameters()
	for i, p := range params {
		entry := g.lookup(p.Name)
		if i < argumentRegisters {
			g.emit("sw a%d, %d(s0)", i, entry.Offset)
			continue
		}
		// Arguments past the eighth are left in the caller's outgoing area,
		// which starts at our frame base.
		g.emit("lw t0, %d(s0)", wordSize*(len(params)-1-i))
		g.emit("sw t0, %d(s0)", entry.Offset)
	}

	// The body shares the function's scope.
	g.visitDecls(n.Body.Decls)
	g.visitStatements(n.Body.Stmts)
	g.emitEpilogue(n.Name)
}

func (g *Generator) visitCompound(n *ast.Node) {
	g.enterScope(n)
	g.visitDecls(n.Decls)
	g.visitStatements(n.Stmts)
	g.leaveScope()
}

// visitDecls stores the values of local constants into their slots.
func (g *Generator) visitDecls(decls []*ast.Node) {
	for _, decl := range decls {
		for _, v := range decl.Vars {
			if v.Value == nil {
				continue
			}
			entry := g.lookup(v.Name)
			g.visitExpression(v.Value)
			g.pop("t0")
			g.emit("sw t0, %d(s0)", entry.Offset)
		}
	}
}

func (g *Generator) visitStatements(stmts []*ast.Node) {
	for _, stmt := range stmts {
		g.visitStatement(stmt)
	}
}

func (g *Generator) visitStatement(n *ast.Node) {
	switch n.Kind {
	case ast.NodeCompoundStatement:
		g.visitCompound(n)
	case ast.NodePrint:
		g.visitPrint(n)
	case ast.NodeRead:
		g.visitRead(n)
	case ast.NodeAssignment:
		g.visitAssignment(n)
	case ast.NodeIf:
		g.visitIf(n)
	case ast.NodeWhile:
		g.visitWhile(n)
	case ast.NodeFor:
		g.visitFor(n)
	case ast.NodeReturn:
		g.visitReturn(n)
	case ast.NodeFunctionInvocation:
		g.visitCall(n)
		if !n.Type.IsVoid() {
			// Discard the unused result.
			g.emit("addi sp, sp, 4")
		}
	default:
		panic("Unsupported statement kind: " + string(n.Kind))
	}
}

func (g *Generator) visitPrint(n *ast.Node) {
	g.visitExpression(n.Target)
	switch {
	case n.Target.Type.IsReal():
		g.popFloat("fa0")
		g.emit("jal ra, printReal")
	case n.Target.Type.IsString():
		g.pop("a0")
		g.emit("jal ra, printString")
	default:
		g.pop("a0")
		g.emit("jal ra, printInt")
	}
}

func (g *Generator) visitRead(n *ast.Node) {
	g.visitAddress(n.Target)
	switch {
	case n.Target.Type.IsReal():
		g.emit("jal ra, readReal")
		g.pop("t0")
		g.emit("fsw fa0, 0(t0)")
	case n.Target.Type.IsString():
		g.emit("jal ra, readString")
		g.pop("t0")
		g.emit("sw a0, 0(t0)")
	default:
		g.emit("jal ra, readInt")
		g.pop("t0")
		g.emit("sw a0, 0(t0)")
	}
}

func (g *Generator) visitAssignment(n *ast.Node) {
	g.visitAddress(n.Target)
	g.visitExpression(n.Value)
	g.convert(n.Value.Type, n.Target.Type)
	g.pop("t0")
	g.pop("t1")
	g.emit("sw t0, 0(t1)")
}

func (g *Generator) visitIf(n *ast.Node) {
	elseLabel := g.manager.NewLabel()
	endLabel := g.manager.NewLabel()

	g.visitExpression(n.Cond)
	g.pop("t0")
	g.emit("beqz t0, .L%d", elseLabel)
	g.visitCompound(n.Body)
	g.emit("j .L%d", endLabel)
	g.label(elseLabel)
	if n.Else != nil {
		g.visitCompound(n.Else)
	}
	g.label(endLabel)
}

func (g *Generator) visitWhile(n *ast.Node) {
	condLabel := g.manager.NewLabel()
	endLabel := g.manager.NewLabel()

	g.label(condLabel)
	g.visitExpression(n.Cond)
	g.pop("t0")
	g.emit("beqz t0, .L%d", endLabel)
	g.visitCompound(n.Body)
	g.emit("j .L%d", condLabel)
	g.label(endLabel)
}

// visitFor runs the body while the loop variable is below the upper bound,
// incrementing it by one after each iteration.
func (g *Generator) visitFor(n *ast.Node) {
	g.enterScope(n)
	defer g.leaveScope()

	condLabel := g.manager.NewLabel()
	endLabel := g.manager.NewLabel()
	loopVar := g.lookup(n.LoopVar.Vars[0].Name)

	g.visitAssignment(n.Init)

	g.label(condLabel)
	g.emit("lw t0, %d(s0)", loopVar.Offset)
	g.push("t0")
	g.visitExpression(n.Cond)
	g.pop("t1")
	g.pop("t0")
	g.emit("slt t0, t0, t1")
	g.emit("beqz t0, .L%d", endLabel)

	g.visitCompound(n.Body)

	g.emit("lw t0, %d(s0)", loopVar.Offset)
	g.emit("addi t0, t0, 1")
	g.emit("sw t0, %d(s0)", loopVar.Offset)
	g.emit("j .L%d", condLabel)
	g.label(endLabel)
}

func (g *Generator) visitReturn(n *ast.Node) {
	g.visitExpression(n.Value)
	g.convert(n.Value.Type, g.returnType)
	g.pop("a0")
	g.emitReturn()
}
