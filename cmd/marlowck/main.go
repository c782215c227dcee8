package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/marlow-lang/marlow/internal/config"
	"github.com/marlow-lang/marlow/internal/diagnostics"
	"github.com/marlow-lang/marlow/internal/fixture"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/infer"
)

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// useColor decides whether diagnostics get ANSI colors.
func useColor() bool {
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <fixture.yaml> [fixture2.yaml ...]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "\nType-checks the procedures in each fixture file.")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	fmt.Fprintln(os.Stderr, "  -j N       check procedures with N workers (default: number of CPUs)")
	fmt.Fprintln(os.Stderr, "  -types     print the inferred type of every program variable")
	fmt.Fprintln(os.Stderr, "  -help      show this help")
}

func main() {
	if os.Getenv("MARLOW_TEST_MODE") == "1" {
		config.IsTestMode = true
	}

	workers := 0
	showTypes := false
	var files []string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-help" || arg == "--help" || arg == "help":
			printUsage()
			return
		case arg == "-types" || arg == "--types":
			showTypes = true
		case arg == "-j":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: -j requires a worker count")
				os.Exit(2)
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 0 {
				fmt.Fprintf(os.Stderr, "Error: invalid worker count %q\n", args[i])
				os.Exit(2)
			}
			workers = n
		case strings.HasPrefix(arg, "-j"):
			n, err := strconv.Atoi(arg[2:])
			if err != nil || n < 0 {
				fmt.Fprintf(os.Stderr, "Error: invalid worker count %q\n", arg[2:])
				os.Exit(2)
			}
			workers = n
		case strings.HasPrefix(arg, "-"):
			fmt.Fprintf(os.Stderr, "Error: unknown option %s\n", arg)
			printUsage()
			os.Exit(2)
		default:
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		printUsage()
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range files {
		if !checkFile(path, workers, showTypes) {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// checkFile loads one fixture and checks all its procedures. Returns
// false when any error-severity diagnostic was reported.
func checkFile(path string, workers int, showTypes bool) bool {
	table, procs, err := fixture.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return false
	}

	results, diags := infer.CheckAll(context.Background(), table, procs, workers)

	color := useColor()
	failed := false
	for _, d := range diags {
		if d.Severity == diagnostics.SeverityError {
			failed = true
		}
		fmt.Fprintf(os.Stderr, "- %s\n", renderDiagnostic(d, color))
	}

	if showTypes {
		for i, res := range results {
			printTypes(procs[i], res)
		}
	}
	return !failed
}

func renderDiagnostic(d *diagnostics.DiagnosticError, color bool) string {
	if !color {
		return d.Error()
	}
	c := colorRed
	if d.Severity == diagnostics.SeverityWarning {
		c = colorYellow
	}
	return c + d.Error() + colorReset
}

func printTypes(proc infer.Procedure, res *infer.Result) {
	name := "procedure"
	if proc.Decl != nil {
		name = proc.Decl.QualifiedName()
	}
	fmt.Printf("%s:\n", name)

	vars := make([]goal.ProgVar, 0, len(res.VarTypes))
	for pv := range res.VarTypes {
		vars = append(vars, pv)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	for _, pv := range vars {
		fmt.Printf("  V%d :: %s\n", pv, res.VarTypes[pv])
	}
}
