package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/codegen"
	"github.com/strager/pcc/sema"
)

// loadProgram reads a syntax tree written by the front end.
func loadProgram(filename string) (*ast.Node, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filename, err)
	}
	program, err := ast.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("invalid syntax tree in %s: %w", filename, err)
	}
	if program.Kind != ast.NodeProgram {
		return nil, fmt.Errorf("invalid syntax tree in %s: expected a program, got %s", filename, program.Kind)
	}
	return program, nil
}

// loadSourceLines reads the P source text diagnostics quote from. An empty
// filename means there is no source text.
func loadSourceLines(filename string) ([]string, error) {
	if filename == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading source file %s: %w", filename, err)
	}
	return splitLines(string(data)), nil
}

func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// compilation holds the outputs of running the compiler over one program.
type compilation struct {
	Program *ast.Node
	Result  *sema.Result
}

// analyzeProgram checks program. The symbol tables are written to dump as
// each scope closes, if dump is not nil. Diagnostics are rendered to diag.
func analyzeProgram(program *ast.Node, dump io.Writer, diag io.Writer, sourceLines []string) (*compilation, error) {
	result := sema.NewAnalyzer(dump).Analyze(program)
	if result.HasErrors() {
		if err := result.Errors.Render(diag, sourceLines); err != nil {
			return nil, err
		}
	}
	return &compilation{Program: program, Result: result}, nil
}

// generate writes the assembly for an error-free compilation to w.
func (c *compilation) generate(w io.Writer, sourceName string) error {
	if c.Result.HasErrors() {
		return fmt.Errorf("cannot generate code for a program with %d semantic errors", c.Result.Errors.Len())
	}
	return codegen.New(c.Result.Tables, codegen.Config{SourceName: sourceName}).Generate(w, c.Program)
}
