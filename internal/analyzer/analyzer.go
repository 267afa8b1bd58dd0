// Package analyzer implements name resolution, scope management,
// declaration registration, pattern-exhaustiveness checking, and
// constraint-based Hindley-Milner type inference ("harmonize" +
// let-generalization), per spec.md §4.3-4.4.
package analyzer

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/symbols"
	"github.com/veylang/veyl/internal/typesystem"
)

// TypedProgram is the output of a successful (or best-effort) Analyze
// call: the original AST plus a side-table of elaborated types keyed by
// node identity, as Design Notes recommends (never mutate nodes in place).
type TypedProgram struct {
	Program  *ast.Program
	Types    map[ast.Node]typesystem.Type
	Registry *symbols.TypeRegistry
	Traits   *symbols.TraitRegistry
	// FuncReturnTypes records each named FunctionDef's materialized result
	// type (the whole return type, not only a failure payload). No other
	// pass reads it.
	FuncReturnTypes map[*ast.FunctionDef]typesystem.Type
}

// Analyzer threads the constraint solver, registries, and diagnostics
// across one Analyze call.
type Analyzer struct {
	fresh    *typesystem.Fresher
	uf       *typesystem.UnionFind
	env      *symbols.Env
	registry *symbols.TypeRegistry
	traits   *symbols.TraitRegistry
	types    map[ast.Node]typesystem.Type
	retTypes map[*ast.FunctionDef]typesystem.Type
	errors   []diag.Diagnostic

	// currentFailureType is non-nil while inferring the body of a function
	// whose return type is a failure-carrying variant; the try-postfix
	// operator is only legal in this context (spec.md §4.4).
	currentFailureType *typesystem.Variant
}

// New creates an Analyzer with a fresh environment seeded with the
// built-in prelude (see builtins.go).
func New() *Analyzer {
	a := &Analyzer{
		fresh:    typesystem.NewFresher(),
		uf:       typesystem.NewUnionFind(),
		env:      symbols.NewEnv(),
		registry: symbols.NewTypeRegistry(),
		traits:   symbols.NewTraitRegistry(),
		types:    make(map[ast.Node]typesystem.Type),
		retTypes: make(map[*ast.FunctionDef]typesystem.Type),
	}
	registerBuiltins(a)
	return a
}

func (a *Analyzer) errorf(tag diag.Tag, span diag.Span, msg string) {
	a.errors = append(a.errors, diag.New(tag, span, msg))
}

// Analyze runs name resolution, declaration registration, and type
// inference over prog, collecting every diagnostic rather than stopping
// at the first (spec.md §7 propagation policy).
func Analyze(prog *ast.Program) (*TypedProgram, []diag.Diagnostic) {
	a := New()

	// Pass 1: register every top-level record/variant/interface definition
	// before inferring any bodies, so forward references resolve.
	a.registerDeclarations(prog.Stmts)

	// Pass 2: infer every top-level statement in order, generalizing at
	// each let-binding boundary.
	for _, stmt := range prog.Stmts {
		a.inferStmt(stmt)
	}

	// Every entry recorded mid-inference may still hold unsolved inference
	// variables that were only pinned down by a later constraint; resolve
	// them all through the finished union-find once before handing the
	// side-table to downstream passes (borrow, lifetime, mono), which
	// assume TypeOf always returns a fully-substituted type.
	for n, t := range a.types {
		a.types[n] = typesystem.Materialize(t, a.uf)
	}

	return &TypedProgram{
		Program:         prog,
		Types:           a.types,
		Registry:        a.registry,
		Traits:          a.traits,
		FuncReturnTypes: a.retTypes,
	}, a.errors
}

// TypeOf returns the materialized (fully-substituted) type recorded for
// node, or Unknown if analysis never recorded one (e.g. a node downstream
// of an earlier error).
func (tp *TypedProgram) TypeOf(n ast.Node) typesystem.Type {
	if t, ok := tp.Types[n]; ok {
		return t
	}
	return typesystem.Unknown
}
