package codegen

import (
	"fmt"
	"math"
	"strings"

	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/sema"
	"github.com/strager/pcc/types"
)

const (
	wordSize = 4
	// minFrameSize is the smallest stack frame any function gets.
	minFrameSize = 128
	// argumentRegisters is how many arguments travel in a0-a7.
	argumentRegisters = 8
)

// emit writes one instruction line.
func (g *Generator) emit(format string, args ...any) {
	g.buf.WriteString("    ")
	fmt.Fprintf(&g.buf, format, args...)
	g.buf.WriteByte('\n')
}

// directive writes an unindented line, such as a label or a section switch.
func (g *Generator) directive(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
	g.buf.WriteByte('\n')
}

func (g *Generator) label(l int) {
	g.directive(".L%d:", l)
}

// push moves reg onto the operand stack.
func (g *Generator) push(reg string) {
	g.emit("addi sp, sp, -4")
	g.emit("sw %s, 0(sp)", reg)
}

// pop moves the top of the operand stack into reg.
func (g *Generator) pop(reg string) {
	g.emit("lw %s, 0(sp)", reg)
	g.emit("addi sp, sp, 4")
}

func (g *Generator) pushFloat(reg string) {
	g.emit("addi sp, sp, -4")
	g.emit("fsw %s, 0(sp)", reg)
}

func (g *Generator) popFloat(reg string) {
	g.emit("flw %s, 0(sp)", reg)
	g.emit("addi sp, sp, 4")
}

// convert rewrites the value on top of the operand stack from type from to
// type to. Only integer and real differ in representation.
func (g *Generator) convert(from, to *types.PType) {
	switch {
	case from.IsInteger() && to.IsReal():
		g.pop("t0")
		g.emit("fcvt.s.w ft0, t0")
		g.pushFloat("ft0")
	case from.IsReal() && to.IsInteger():
		g.popFloat("ft0")
		g.emit("fcvt.w.s t0, ft0, rtz")
		g.push("t0")
	}
}

// realBits is the single-precision encoding of v as a signed word, suitable
// for li and .word.
func realBits(v float64) int32 {
	return int32(math.Float32bits(float32(v)))
}

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
)

// stringLiteral places s in .rodata and returns its label.
func (g *Generator) stringLiteral(s string) string {
	name := fmt.Sprintf(".LC%d", g.nextString)
	g.nextString++
	g.directive(".section    .rodata")
	g.emit(".align 2")
	g.directive("%s:", name)
	g.emit(".string \"%s\"", stringEscaper.Replace(s))
	g.directive(".section    .text")
	return name
}

// frameSize returns the frame size shared by every function: large enough
// for the deepest local of any scope, rounded up to 16 bytes.
func frameSize(tables map[ast.NodeID]*sema.SymbolTable) int {
	lowest := 0
	for _, table := range tables {
		for _, entry := range table.Entries() {
			if !entry.IsGlobal() && entry.Offset < lowest {
				lowest = entry.Offset
			}
		}
	}
	size := (-lowest + 15) &^ 15
	return max(size, minFrameSize)
}

func (g *Generator) emitPrologue(name string) {
	g.directive(".section    .text")
	g.emit(".align 2")
	g.emit(".globl %s", name)
	g.emit(".type %s, @function", name)
	g.directive("%s:", name)
	g.emit("addi sp, sp, -%d", g.frame)
	g.emit("sw ra, %d(sp)", g.frame-4)
	g.emit("sw s0, %d(sp)", g.frame-8)
	g.emit("addi s0, sp, %d", g.frame)
}

// emitReturn restores the caller's frame and returns. Statements leave the
// operand stack empty, so sp is at the bottom of the frame here.
func (g *Generator) emitReturn() {
	g.emit("lw ra, %d(sp)", g.frame-4)
	g.emit("lw s0, %d(sp)", g.frame-8)
	g.emit("addi sp, sp, %d", g.frame)
	g.emit("jr ra")
}

func (g *Generator) emitEpilogue(name string) {
	g.emitReturn()
	g.emit(".size %s, .-%s", name, name)
}
