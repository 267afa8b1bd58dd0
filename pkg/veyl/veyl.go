// Package veyl is the external entry point, spec.md §6: a small set of
// pipeline operations (Parse, Check, Monomorphize, Evaluate, Compile, Run) a host
// program composes instead of reaching into internal/.
package veyl

import (
	"github.com/veylang/veyl/internal/analyzer"
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/borrow"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/evaluator"
	"github.com/veylang/veyl/internal/lifetime"
	"github.com/veylang/veyl/internal/mono"
	"github.com/veylang/veyl/internal/parser"
	"github.com/veylang/veyl/internal/vm"
)

// Checked is a program that has passed every static phase: parsing,
// semantic analysis, borrow checking, and lifetime validation.
type Checked struct {
	Program  *ast.Program
	Typed    *analyzer.TypedProgram
	Monomorphized *mono.Result
}

// Parse lexes and parses src, producing an AST and any syntax diagnostics.
func Parse(src, filename string) (*ast.Program, []diag.Diagnostic) {
	return parser.ParseProgram(src, filename)
}

// Check runs the full static pipeline over prog: semantic analysis,
// Hindley-Milner type inference, borrow checking, and lifetime
// validation. It returns every diagnostic accumulated across all four
// passes (spec.md §7's accumulate-don't-stop-at-first-error policy) —
// the caller should treat a non-empty slice as rejection regardless of
// whether Checked is also populated.
func Check(prog *ast.Program) (*Checked, []diag.Diagnostic) {
	var all []diag.Diagnostic

	typed, errs := analyzer.Analyze(prog)
	all = append(all, errs...)

	all = append(all, borrow.Check(prog, typed.Types)...)
	all = append(all, lifetime.Check(prog)...)

	return &Checked{Program: prog, Typed: typed}, all
}

// Monomorphize expands every generic function, record, and variant
// definition in a checked program into concrete specializations, for
// backends (like internal/vm) that require monomorphic code. The
// tree-walking evaluator does not need this pass: it erases type
// arguments at runtime instead (spec.md §4.7).
func Monomorphize(c *Checked) *Checked {
	result := mono.Monomorphize(c.Program, c.Typed.Types)
	return &Checked{Program: result.Program, Typed: c.Typed, Monomorphized: result}
}

// Evaluate tree-walks a checked program to completion with the given
// native function table (evaluator.DefaultNatives() if nil) and returns
// its final value or a runtime error.
func Evaluate(c *Checked, natives map[string]*evaluator.Native) (evaluator.Value, *evaluator.RuntimeError) {
	if natives == nil {
		natives = evaluator.DefaultNatives()
	}
	ev := evaluator.New(c.Typed.Registry, natives)
	return ev.Eval(c.Program)
}

// Compile lowers a monomorphized, checked program into VM bytecode.
func Compile(c *Checked) (*vm.Chunk, []diag.Diagnostic) {
	return vm.Compile(c.Program, c.Typed.Registry)
}

// Run loads chunk into a fresh VM seeded with natives
// (evaluator.DefaultNatives() if nil) and executes it to completion.
func Run(chunk *vm.Chunk, natives map[string]*evaluator.Native) (evaluator.Value, *evaluator.RuntimeError) {
	if natives == nil {
		natives = evaluator.DefaultNatives()
	}
	machine := vm.New(chunk, natives)
	return machine.Run()
}
