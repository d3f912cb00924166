// SPDX-License-Identifier: Apache-2.0

// Package repl is an interactive driver over the same pipeline cmd/gyrec
// runs on a file: read a whole program (terminated by a blank line, since
// front/c's grammar parses complete function declarations, not single
// expressions the way a line-at-a-time REPL usually works), parse it,
// check it, circify it, optimize it, lower it to R1CS, and print the
// result — or a colored error at whichever stage failed.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"gyre/internal/check"
	"gyre/internal/field"
	"gyre/internal/front/c"
	"gyre/internal/lower"
	"gyre/internal/opt"
)

const PROMPT = "gyre> "

// Start reads programs from in, one blank-line-terminated block at a time,
// and writes each block's compiled R1CS (or error) to out.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	f := field.Default()

	for {
		fmt.Fprint(out, PROMPT)
		block, ok := readBlock(scanner)
		if !ok {
			return
		}
		if strings.TrimSpace(block) == "" {
			continue
		}
		compileBlock(out, f, block)
	}
}

// readBlock accumulates lines until a blank line or EOF, returning false
// only once the scanner has nothing left at all (so a trailing block with
// no terminating blank line is still compiled).
func readBlock(scanner *bufio.Scanner) (string, bool) {
	var sb strings.Builder
	sawLine := false
	for scanner.Scan() {
		sawLine = true
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String(), sawLine
}

func compileBlock(out io.Writer, f *field.Field, src string) {
	prog, err := c.Parse("<repl>", src)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "parse error: %s\n", err)
		return
	}

	if err := check.Program(prog); err != nil {
		color.New(color.FgRed).Fprintf(out, "%s\n", err)
		return
	}

	comp, err := c.Build(f, prog)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "%s\n", err)
		return
	}

	comp, err = opt.NewPipeline().Run(comp)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "%s\n", err)
		return
	}

	builder, err := lower.LowerComputation(f, comp)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "%s\n", err)
		return
	}

	fmt.Fprint(out, builder.Flat())
	color.New(color.FgGreen).Fprintf(out, "%d constraints over %d variables\n", builder.NumConstraints(), builder.NumVars())
}
