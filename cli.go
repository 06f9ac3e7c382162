package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/strager/pcc/ast"
	"github.com/strager/pcc/codegen"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `pcc - Semantic checker and RISC-V code generator for P

Usage:
    pcc <command> [arguments]

Commands:
    check <file>    Type-check a P syntax tree (.past)
    build <file>    Check a P syntax tree and generate RISC-V assembly
    ast <file>      Print a P syntax tree in normalized form
    help            Show this help message

Examples:
    pcc check -source prime.p prime.past
    pcc build -o out -dump prime.past
    pcc build -o - prime.past
    pcc ast -l prime.past

Use "pcc <command> -h" for more information about a command.
`)
}

// compileFlags are the flags shared by check and build.
type compileFlags struct {
	dump    *bool
	source  *string
	verbose *bool
}

func addCompileFlags(fs *flag.FlagSet) compileFlags {
	return compileFlags{
		dump:    fs.Bool("dump", false, "Print each symbol table as its scope closes"),
		source:  fs.String("source", "", "P source file, quoted in error messages"),
		verbose: fs.Bool("v", false, "Show verbose compilation details"),
	}
}

// runAnalysis loads and checks filename, printing diagnostics to stderr.
// It exits if the program cannot be loaded or has semantic errors.
func runAnalysis(filename string, flags compileFlags) *compilation {
	if *flags.verbose {
		fmt.Printf("Checking %s...\n", filename)
	}

	program, err := loadProgram(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sourceLines, err := loadSourceLines(*flags.source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var dump io.Writer
	if *flags.dump {
		dump = os.Stdout
	}
	c, err := analyzeProgram(program, dump, os.Stderr, sourceLines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if c.Result.HasErrors() {
		fmt.Fprintf(os.Stderr, "%s: %d semantic errors\n", filename, c.Result.Errors.Len())
		os.Exit(1)
	}
	return c
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	flags := addCompileFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pcc check [-dump] [-source file.p] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Type-check a P syntax tree\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	runAnalysis(filename, flags)
	fmt.Printf("%s: no errors found\n", filename)
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	outDir := fs.String("o", ".", "Output directory, or - for standard output")
	flags := addCompileFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pcc build [-o outdir] [-dump] [-source file.p] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Check a P syntax tree and generate RISC-V assembly\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	c := runAnalysis(filename, flags)

	// The assembly names the P source when there is one.
	sourceName := filename
	if *flags.source != "" {
		sourceName = *flags.source
	}

	if *outDir == "-" {
		if err := c.generate(os.Stdout, sourceName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := codegen.Config{SourceName: sourceName, OutDir: *outDir}
	if *flags.verbose {
		fmt.Printf("Generating %s...\n", cfg.OutputPath())
	}
	path, err := codegen.GenerateFile(c.Program, c.Result.Tables, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", path)
}

func astCommand(args []string) {
	fs := flag.NewFlagSet("ast", flag.ExitOnError)
	locations := fs.Bool("l", false, "Include source locations")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pcc ast [-l] <file>\n")
		fmt.Fprintf(os.Stderr, "Print a P syntax tree in normalized form\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	program, err := loadProgram(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *locations {
		fmt.Println(ast.ToSExprWithLocations(program))
	} else {
		fmt.Println(ast.ToSExpr(program))
	}
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "check":
		checkCommand(args)
	case "build":
		buildCommand(args)
	case "ast":
		astCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
