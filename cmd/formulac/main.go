// formulac is the interactive CLI over the formula compiler, grounded on
// _examples/launix-de-memcp/scm/prompt.go's Repl: chzyer/readline for
// line editing/history, an anti-panic recover wrapper around each
// evaluated line, and a colour-coded prompt/result split. The command's
// own flags use the standard library flag package, matching
// tools/jitgen/main.go's bare-flag CLI rather than a third-party flag
// library (AMBIENT STACK: "the teacher has no CLI flag library in its
// dependency graph").
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/chzyer/readline"

	"github.com/launix-de/formula-compiler/ast"
	"github.com/launix-de/formula-compiler/formula"
	"github.com/launix-de/formula-compiler/parser"
)

const (
	newPrompt    = "\033[32m>\033[0m "
	contPrompt   = "\033[32m.\033[0m "
	resultPrompt = "\033[31m=\033[0m "
)

func main() {
	var (
		extensions = flag.Bool("extensions", true, "recognise sectionised-mode extensions (string literals, true/false, section names)")
		allowAssign = flag.Bool("allow-builtin-assignment", false, "downgrade assignment to a builtin variable/function from an error to a warning")
		file       = flag.String("file", "", "evaluate the bailout section of a formula file instead of starting the REPL")
	)
	flag.Parse()

	opts := parser.Options{RecognizeExtensions: *extensions, AllowBuiltinAssignment: *allowAssign}

	if *file != "" {
		runFile(*file, opts)
		return
	}
	repl(opts)
}

func runFile(path string, opts parser.Options) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	p := parser.New(string(src), opts)
	sections := p.Parse()
	for _, w := range p.Warnings() {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if !p.Ok() {
		for _, e := range p.Errors() {
			fmt.Fprintln(os.Stderr, "error:", e)
		}
		os.Exit(1)
	}

	f := formula.New(sections)
	result, err := f.Interpret(ast.SectionBailout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(result)
}

// repl mirrors scm/prompt.go's Repl: one readline session, an oldline
// accumulator for multi-line continuations, and an anti-panic recover
// wrapper around every evaluated line.
func repl(opts parser.Options) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".formulac-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	oldline := ""
	for {
		line, err := l.Readline()
		line = oldline + line
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		if line == "" {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("panic:", r, string(debug.Stack()))
					oldline = ""
					l.SetPrompt(newPrompt)
				}
			}()
			p := parser.New(line, opts)
			sections := p.Parse()
			if !p.Ok() {
				oldline = line + "\n"
				l.SetPrompt(contPrompt)
				return
			}
			f := formula.New(sections)
			result, err := f.Interpret(ast.SectionBailout)
			if err != nil {
				fmt.Println(err)
			} else {
				fmt.Print(resultPrompt)
				fmt.Println(result)
			}
			oldline = ""
			l.SetPrompt(newPrompt)
		}()
	}
}
