// Copyright (c) 2025 The Dust Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/logutils"
	"gonum.org/v1/gonum/stat"

	"dust/bytecode"
	"dust/compile"
	"dust/lang"
	"dust/vm"
)

const (
	exitOk      = 0
	exitCompile = 1
	exitRuntime = 2
	exitUsage   = 64
)

type options struct {
	mode     string
	path     string
	command  string
	useStdin bool
	noOutput bool
	time     bool
	bench    int
	style    bool
	name     string
	logLevel string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, code := parseArgs(args)
	if code != exitOk {
		return code
	}
	setupLogging(opts.logLevel)

	source, name, code := readSource(opts)
	if code != exitOk {
		return code
	}
	if opts.name != "" {
		name = opts.name
	}

	switch opts.mode {
	case "tokenize":
		return tokenizeCommand(source, opts)
	case "disassemble":
		return disassembleCommand(source, name, opts)
	default:
		return runCommand(source, name, opts)
	}
}

func parseArgs(args []string) (options, int) {
	opts := options{mode: "run"}
	if len(args) > 0 {
		switch args[0] {
		case "run", "disassemble", "tokenize":
			opts.mode = args[0]
			args = args[1:]
		}
	}

	flags := flag.NewFlagSet("dust", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dust [run|disassemble|tokenize] [options] [file]")
		flags.PrintDefaults()
	}
	runMode := flags.Bool("r", false, "compile and run (default)")
	disassembleMode := flags.Bool("d", false, "compile and print the instruction listing")
	tokenizeMode := flags.Bool("t", false, "print the token stream")
	flags.StringVar(&opts.command, "c", "", "use the argument as the source text")
	flags.StringVar(&opts.command, "command", "", "use the argument as the source text")
	flags.BoolVar(&opts.useStdin, "stdin", false, "read the source from standard input")
	flags.BoolVar(&opts.noOutput, "no-output", false, "do not print the return value")
	flags.BoolVar(&opts.time, "time", false, "print compile, run and total elapsed time")
	flags.IntVar(&opts.bench, "bench", 0, "run the program N times and report run-time statistics")
	flags.BoolVar(&opts.style, "style", false, "colorize the output")
	flags.StringVar(&opts.name, "name", "", "override the displayed chunk name")
	flags.StringVar(&opts.logLevel, "l", "", "log level: TRACE, DEBUG, INFO, WARN or ERROR")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: TRACE, DEBUG, INFO, WARN or ERROR")
	if err := flags.Parse(args); err != nil {
		return opts, exitUsage
	}

	switch {
	case *disassembleMode:
		opts.mode = "disassemble"
	case *tokenizeMode:
		opts.mode = "tokenize"
	case *runMode:
		opts.mode = "run"
	}
	opts.path = flags.Arg(0)

	selected := 0
	if opts.path != "" {
		selected++
	}
	if opts.command != "" {
		selected++
	}
	if opts.useStdin {
		selected++
	}
	if selected != 1 {
		fmt.Fprintln(os.Stderr, "dust: exactly one of a file path, -c or --stdin is required")
		return opts, exitUsage
	}
	return opts, exitOk
}

// setupLogging wires the level filter in front of the standard logger. The
// flag wins over the DUST_LOG environment variable.
func setupLogging(level string) {
	if level == "" {
		level = os.Getenv("DUST_LOG")
	}
	level = strings.ToUpper(level)
	switch level {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		level = "WARN"
	}
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: logutils.LogLevel(level),
		Writer:   os.Stderr,
	}
	log.SetOutput(filter)
	log.SetFlags(0)
}

func readSource(opts options) ([]byte, string, int) {
	switch {
	case opts.command != "":
		return []byte(opts.command), "command", exitOk
	case opts.useStdin:
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dust: reading stdin: %v\n", err)
			return nil, "", exitUsage
		}
		return source, "stdin", exitOk
	default:
		source, err := os.ReadFile(opts.path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dust: %v\n", err)
			return nil, "", exitUsage
		}
		return source, opts.path, exitOk
	}
}

func runCommand(source []byte, name string, opts options) int {
	compileStart := time.Now()
	chunk, err := compile.CompileMain(name, source)
	compileElapsed := time.Since(compileStart)
	if err != nil {
		reportError(source, err, opts.style)
		return exitCompile
	}
	log.Printf("[DEBUG] compiled %s in %v", name, compileElapsed)

	if opts.bench > 0 {
		return benchCommand(chunk, opts)
	}

	runStart := time.Now()
	value, err := vm.NewThread(chunk).Run()
	runElapsed := time.Since(runStart)
	if err != nil {
		reportError(source, err, opts.style)
		return exitRuntime
	}
	log.Printf("[DEBUG] executed %s in %v", name, runElapsed)

	if !opts.noOutput && !value.IsNone() {
		fmt.Println(value.Display())
	}
	if opts.time {
		fmt.Fprintf(os.Stderr, "compile: %v  run: %v  total: %v\n",
			compileElapsed, runElapsed, compileElapsed+runElapsed)
	}
	return exitOk
}

// benchCommand runs the compiled program repeatedly and reports the mean and
// standard deviation of the run time.
func benchCommand(chunk *bytecode.Chunk, opts options) int {
	samples := make([]float64, 0, opts.bench)
	for i := 0; i < opts.bench; i++ {
		start := time.Now()
		if _, err := vm.NewThread(chunk).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "dust: %v\n", err)
			return exitRuntime
		}
		samples = append(samples, time.Since(start).Seconds())
	}
	mean := stat.Mean(samples, nil)
	deviation := stat.StdDev(samples, nil)
	fmt.Fprintf(os.Stderr, "runs: %d  mean: %.6fs  stddev: %.6fs\n",
		opts.bench, mean, deviation)
	return exitOk
}

func disassembleCommand(source []byte, name string, opts options) int {
	chunk, err := compile.CompileMain(name, source)
	if err != nil {
		reportError(source, err, opts.style)
		return exitCompile
	}
	chunk.Disassemble(os.Stdout, name)
	return exitOk
}

func tokenizeCommand(source []byte, opts options) int {
	tokens, err := lang.Tokenize(source)
	if err != nil {
		reportError(source, err, opts.style)
		return exitCompile
	}
	for _, token := range tokens {
		kind := token.Kind.String()
		if opts.style {
			kind = "\x1b[36m" + kind + "\x1b[0m"
		}
		fmt.Printf("%-28s | %-20s | %v\n", kind, token.Span.Text(source), token.Span)
	}
	return exitOk
}

// -----------------------------------------------------------------------------
// Error reports
//
// Each report prints the error's title and description, then the offending
// source line with a caret underline per snippet.

func reportError(source []byte, err error, style bool) {
	switch e := err.(type) {
	case *lang.LexError:
		printReport(source, e.Title(), e.Description(), []snippetLine{{"", e.Span}}, style)
	case *compile.Error:
		snippets := []snippetLine{{e.Message, e.Span}}
		for _, detail := range e.Details {
			snippets = append(snippets, snippetLine{detail.Message, detail.Span})
		}
		for _, help := range e.Help {
			snippets = append(snippets, snippetLine{"help: " + help.Message, help.Span})
		}
		printReport(source, e.Title(), e.Description(), snippets, style)
	case *vm.Error:
		printReport(source, e.Title(), e.Description(), []snippetLine{{e.Message, e.Span}}, style)
	default:
		fmt.Fprintf(os.Stderr, "dust: %v\n", err)
	}
}

type snippetLine struct {
	message string
	span    lang.Span
}

func printReport(source []byte, title, description string, snippets []snippetLine, style bool) {
	if style {
		title = "\x1b[1;31m" + title + "\x1b[0m"
	}
	fmt.Fprintf(os.Stderr, "error: %s\n  %s\n", title, description)
	for _, snippet := range snippets {
		line, text := lang.LineOf(source, snippet.span)
		fmt.Fprintf(os.Stderr, "  line %d: %s\n", line, text)
		underline := underlineFor(source, text, snippet.span)
		if snippet.message != "" {
			fmt.Fprintf(os.Stderr, "  %s %s\n", underline, snippet.message)
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", underline)
		}
	}
}

// underlineFor builds the caret underline aligned beneath the span within
// its line, accounting for the "line N: " prefix.
func underlineFor(source []byte, lineText string, span lang.Span) string {
	lineStart := span.Start
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	column := span.Start - lineStart
	width := span.Len()
	if width < 1 {
		width = 1
	}
	if width > len(lineText)-column {
		width = len(lineText) - column
		if width < 1 {
			width = 1
		}
	}
	line, _ := lang.LineOf(source, span)
	prefix := len(fmt.Sprintf("line %d: ", line))
	return strings.Repeat(" ", prefix+column) + strings.Repeat("^", width)
}
