// SPDX-License-Identifier: Apache-2.0

// Command gyrec compiles a single front/c source file down to an R1CS
// instance, the way the source project's kanso-cli parses a single kanso
// file down to an AST: read file, parse, report a caret-style syntax error
// on failure, otherwise print the result and a success banner.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"gyre/internal/check"
	"gyre/internal/field"
	"gyre/internal/front/c"
	"gyre/internal/lower"
	"gyre/internal/opt"
)

func main() {
	jsonOut := flag.Bool("json", false, "print the compiled R1CS as the JSON container form instead of the flat text form")
	trace := flag.Bool("trace", false, "print each optimization pass as it runs")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: gyrec [-json] [-trace] <file.c>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("Failed to read file: %s", err)
		os.Exit(1)
	}

	prog, err := c.Parse(path, string(source))
	if err != nil {
		reportParseError(string(source), err)
		os.Exit(1)
	}

	if err := check.Program(prog); err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	f := field.Default()
	comp, err := c.Build(f, prog)
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	pipeline := opt.NewPipeline()
	if *trace {
		pipeline.Trace = func(msg string) { fmt.Println(msg) }
	}
	comp, err = pipeline.Run(comp)
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	builder, err := lower.LowerComputation(f, comp)
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	if *jsonOut {
		out, err := builder.Encode()
		if err != nil {
			color.Red("❌ %s", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		fmt.Println()
	} else {
		fmt.Print(builder.Flat())
	}

	color.Green("✅ %s: %d constraints over %d variables", path, builder.NumConstraints(), builder.NumVars())
}

// reportParseError prints a friendly caret-style parse error message.
// c.Parse wraps the underlying participle.Error with fmt.Errorf, so this
// unwraps with errors.As rather than a direct type assertion.
func reportParseError(src string, err error) {
	var pe participle.Error
	if !errors.As(err, &pe) {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("❌ Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("→ %s\n", pe.Message())
}
