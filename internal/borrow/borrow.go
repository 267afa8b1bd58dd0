// Package borrow implements the variable-state automaton that enforces
// ownership and shared/exclusive-borrow discipline, spec.md §4.5.
//
// Borrow endpoints are modelled with a deliberately simple non-lexical
// approximation: a borrow created by an explicit `borrow`/`borrow-mut`
// expression lasts only for the statement that creates it, then the
// borrowed variable reverts to Owned. This holds for a borrow bound to a
// name too (`let r = borrow x`): x is Owned again once the binding
// statement ends, and later uses of r are not tracked as borrows of x.
// No liveness analysis over the control-flow graph is performed.
package borrow

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/typesystem"
)

// Kind is the four-way ownership state from spec.md §3.
type Kind int

const (
	Owned Kind = iota
	Moved
	BorrowedShared
	BorrowedMut
)

type state struct {
	kind        Kind
	moveSpan    diag.Span
	sharedSpans []diag.Span
	mutSpan     diag.Span
	copyType    bool
}

type scope struct {
	owners map[string]*state
	parent *scope
}

// Checker walks an AST (after type inference) threading the per-scope
// ownership map.
type Checker struct {
	top    *scope
	types  map[ast.Node]typesystem.Type
	errors []diag.Diagnostic
}

// Check runs the borrow checker over every top-level statement of prog,
// using the type side-table produced by internal/analyzer to tell
// Copy-classified bindings (Number, Truth, Nothing) from ones that move.
func Check(prog *ast.Program, types map[ast.Node]typesystem.Type) []diag.Diagnostic {
	c := &Checker{top: &scope{owners: make(map[string]*state)}, types: types}
	for _, stmt := range prog.Stmts {
		c.stmt(stmt)
	}
	return c.errors
}

func (c *Checker) push() { c.top = &scope{owners: make(map[string]*state), parent: c.top} }
func (c *Checker) pop()  { c.top = c.top.parent }

func (c *Checker) errorf(tag diag.Tag, span diag.Span, msg string) diag.Diagnostic {
	d := diag.New(tag, span, msg)
	c.errors = append(c.errors, d)
	return d
}

// relabel replaces the last-reported diagnostic (which must be d, just
// returned by errorf) with a copy carrying an extra secondary label.
func (c *Checker) relabel(d diag.Diagnostic, span diag.Span, msg string) {
	c.errors[len(c.errors)-1] = d.WithLabel(span, msg)
}

func (c *Checker) lookup(name string) *state {
	for s := c.top; s != nil; s = s.parent {
		if st, ok := s.owners[name]; ok {
			return st
		}
	}
	return nil
}

func isCopyType(t typesystem.Type) bool {
	switch p := t.(type) {
	case typesystem.Primitive:
		return p == typesystem.Number || p == typesystem.Truth || p == typesystem.Nothing
	}
	return false
}
