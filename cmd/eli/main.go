// Command eli is the ELiLang driver. Without -repL it compiles one source
// file to LLVM assembly; with -repL it starts an interactive session.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/elilang/eli/internal/codegen"
	"github.com/elilang/eli/internal/diag"
	"github.com/elilang/eli/internal/repl"
	"github.com/elilang/eli/internal/session"
)

// Exit codes are part of the tool's contract: scripts distinguish stages of
// failure without parsing stderr.
const (
	exitOK       = 0
	exitUsage    = 2
	exitSyntax   = 3 // lex or parse errors
	exitSema     = 4 // resolution or type errors
	exitInternal = 5
	exitIO       = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("eli", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		replMode = fs.Bool("repL", false, "start an interactive session")
		outPath  = fs.String("o", "", "write LLVM assembly to `path` (default: source with .ll extension)")
		printIR  = fs.Bool("print-ir", false, "print the LLVM module to stdout instead of writing a file")
		overflow = fs.String("overflow", "wrap", "integer overflow `mode`: wrap or trap")
		version  = fs.Bool("version", false, "print version and exit")
	)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: eli [-repL] [-overflow mode] [-o out.ll | -print-ir] [file.eli]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *version {
		fmt.Println("eli " + session.Version)
		return exitOK
	}

	var mode codegen.OverflowMode
	switch *overflow {
	case "wrap":
		mode = codegen.Wrap
	case "trap":
		mode = codegen.Trap
	default:
		fmt.Fprintf(os.Stderr, "eli: unknown overflow mode %q (want wrap or trap)\n", *overflow)
		return exitUsage
	}

	if *replMode {
		r := repl.New(session.Options{Overflow: mode}, os.Stdout)
		if err := r.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "eli: %v\n", err)
			return exitIO
		}
		return exitOK
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	srcPath := fs.Arg(0)
	data, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eli: %v\n", err)
		return exitIO
	}

	sess := session.New(session.Options{Overflow: mode})
	res, diags, err := sess.Submit(srcPath, string(data))
	diag.Fprint(os.Stderr, diags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eli: %v\n", err)
		return exitInternal
	}
	if res == nil {
		return exitFor(diags)
	}

	// Only a fully accepted unit produces an artifact.
	asm := sess.IR()
	if *printIR {
		fmt.Print(asm)
		return exitOK
	}
	out := *outPath
	if out == "" {
		out = strings.TrimSuffix(srcPath, ".eli") + ".ll"
	}
	if err := os.WriteFile(out, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "eli: %v\n", err)
		return exitIO
	}
	return exitOK
}

func exitFor(diags []diag.Diagnostic) int {
	cat, ok := diag.WorstCategory(diags)
	if !ok {
		return exitInternal
	}
	switch cat {
	case diag.Lex, diag.Syntax:
		return exitSyntax
	case diag.Resolve, diag.Type:
		return exitSema
	default:
		return exitInternal
	}
}
