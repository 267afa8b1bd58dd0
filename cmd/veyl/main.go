// Command veyl parses, checks, and runs a single Veyl source file. It is
// deliberately thin: every real operation lives behind pkg/veyl, and this
// file only wires flags to that API and renders diagnostics on failure.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/veylang/veyl/internal/config"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/pkg/render"
	"github.com/veylang/veyl/pkg/veyl"
)

func main() {
	useVM := flag.Bool("vm", false, "run through the bytecode compiler and VM instead of the tree-walking evaluator")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: veyl [-vm] <file.vey>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	if err := run(path, *useVM); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string, useVM bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	strict, err := config.LoadProjectConfig(filepath.Join(filepath.Dir(path), "veyl.yaml"))
	if err != nil {
		return fmt.Errorf("loading veyl.yaml: %w", err)
	}
	if strict.RejectUnreachableArms {
		fmt.Fprintln(os.Stderr, "note: strict mode enabled (reject_unreachable_arms)")
	}

	prog, errs := veyl.Parse(string(src), path)
	if len(errs) > 0 {
		return reportAndFail(errs, path, string(src))
	}

	checked, errs := veyl.Check(prog)
	if len(errs) > 0 {
		return reportAndFail(errs, path, string(src))
	}

	start := time.Now()
	var (
		result interface{ Inspect() string }
	)

	if useVM {
		checked = veyl.Monomorphize(checked)
		chunk, compileErrs := veyl.Compile(checked)
		if len(compileErrs) > 0 {
			return reportAndFail(compileErrs, path, string(src))
		}
		val, rerr := veyl.Run(chunk, nil)
		if rerr != nil {
			return fmt.Errorf("%s: %s", rerr.Tag, rerr.Message)
		}
		result = val
	} else {
		val, rerr := veyl.Evaluate(checked, nil)
		if rerr != nil {
			return fmt.Errorf("%s: %s", rerr.Tag, rerr.Message)
		}
		result = val
	}

	fmt.Println(result.Inspect())
	fmt.Fprintf(os.Stderr, "finished %s\n", humanize.RelTime(start, time.Now(), "ago", "from now"))
	return nil
}

func reportAndFail(errs []diag.Diagnostic, path, src string) error {
	fmt.Fprint(os.Stderr, render.Diagnostics(errs, path, src))
	return fmt.Errorf("%s: %d error(s)", path, len(errs))
}
