// Package lifetime implements elision and validation of reference-region
// annotations over a fully-typed AST, spec.md §4.6. It runs after
// internal/analyzer and internal/borrow: by this point every binding has a
// resolved type, and ownership/borrow legality has already been settled,
// so this pass only has to reason about *how long* a reference is allowed
// to live relative to its source.
package lifetime

import (
	"fmt"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
)

// sig is the elided lifetime signature of one function: every
// reference-typed parameter and the reference-typed return position, each
// resolved to a concrete lifetime name (user-written or freshly assigned).
type sig struct {
	paramLifetimes map[string]string // param name -> lifetime
	returnLifetime string            // "" if the return type isn't a reference
	declared       map[string]bool   // names in the function's own `<'a, 'b>` list
}

// Checker threads a fresh-lifetime counter across the whole program; names
// are scoped per function so collisions across functions are harmless.
type Checker struct {
	counter      int
	errors       []diag.Diagnostic
	recordFields map[string]map[string]ast.TypeExpr
}

// Check walks every top-level function definition (and impl method) in
// prog and returns the accumulated diagnostics.
func Check(prog *ast.Program) []diag.Diagnostic {
	c := &Checker{recordFields: collectRecordFields(prog)}
	for _, stmt := range prog.Stmts {
		c.topLevel(stmt)
	}
	return c.errors
}

// collectRecordFields indexes every record definition's field types by
// record name so checkRecordEscapes can tell a reference-typed field from
// an owning one without re-walking the whole program per call.
func collectRecordFields(prog *ast.Program) map[string]map[string]ast.TypeExpr {
	out := make(map[string]map[string]ast.TypeExpr)
	for _, stmt := range prog.Stmts {
		rd, ok := stmt.(*ast.RecordDef)
		if !ok {
			continue
		}
		fields := make(map[string]ast.TypeExpr, len(rd.Fields))
		for _, f := range rd.Fields {
			fields[f.Name.Name] = f.Type
		}
		out[rd.Name.Name] = fields
	}
	return out
}

func (c *Checker) topLevel(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.FunctionDef:
		c.checkFunction(n)
	case *ast.InterfaceImpl:
		for _, m := range n.Methods {
			c.checkFunction(m.Fn)
		}
	}
}

func (c *Checker) fresh() string {
	c.counter++
	return fmt.Sprintf("'_%d", c.counter)
}

func (c *Checker) errorf(tag diag.Tag, span diag.Span, format string, args ...any) {
	c.errors = append(c.errors, diag.New(tag, span, fmt.Sprintf(format, args...)))
}

// checkFunction performs elision (step 1), then walks the body collecting
// constraints and validating them (steps 2-3).
func (c *Checker) checkFunction(f *ast.FunctionDef) {
	if f == nil || f.Body == nil {
		return
	}
	declared := make(map[string]bool, len(f.Lifetimes))
	for _, l := range f.Lifetimes {
		declared[l] = true
	}

	s := &sig{paramLifetimes: make(map[string]string), declared: declared}

	// Validate explicit parameter lifetimes before eliding the rest, so an
	// UNDECLARED-LIFETIME on one parameter doesn't stop elision of others.
	var refParams []*ast.Param
	for _, p := range f.Params {
		rt, ok := p.Type.(*ast.ReferenceType)
		if !ok {
			continue
		}
		refParams = append(refParams, p)
		if rt.Lifetime != "" {
			if !declared[rt.Lifetime] {
				c.errorf(diag.UndeclaredLifetime, rt.Span, "lifetime %s is not declared on %s", rt.Lifetime, functionLabel(f))
			}
			s.paramLifetimes[p.Name.Name] = rt.Lifetime
		}
	}

	// Elision rule 1: every reference parameter without an explicit
	// lifetime gets its own fresh one.
	for _, p := range refParams {
		if _, ok := s.paramLifetimes[p.Name.Name]; !ok {
			s.paramLifetimes[p.Name.Name] = c.fresh()
		}
	}

	// Elision rules for the return type.
	if rt, ok := f.ReturnType.(*ast.ReferenceType); ok {
		switch {
		case rt.Lifetime != "":
			if !declared[rt.Lifetime] && !hasLifetime(s.paramLifetimes, rt.Lifetime) {
				c.errorf(diag.UndeclaredLifetime, rt.Span, "lifetime %s is not declared on %s", rt.Lifetime, functionLabel(f))
			}
			s.returnLifetime = rt.Lifetime
		case len(refParams) == 1:
			// Elision rule 2: exactly one input lifetime, it flows to the
			// output.
			s.returnLifetime = s.paramLifetimes[refParams[0].Name.Name]
		case receiverIsReference(f):
			// Elision rule 3: a receiver-style first parameter (named
			// "self" by convention) supplies the output lifetime.
			s.returnLifetime = s.paramLifetimes[f.Params[0].Name.Name]
		default:
			// No elision rule applies and the author wrote no lifetime:
			// every reference-typed output must be traceable to some
			// input below, so any escaping return is flagged at the
			// return site instead (no ambient lifetime to assign here).
		}
	}

	local := map[string]bool{} // names bound inside the body (owners, not references)
	for _, p := range f.Params {
		if _, isRef := p.Type.(*ast.ReferenceType); !isRef {
			local[p.Name.Name] = true
		}
	}

	c.checkBlock(f.Body, s, local)
}

// checkRecordEscapes looks for record-literal construction sites within a
// single statement (without descending into nested function bodies, which
// carry their own local set) and validates any reference-typed field
// against step 2 of elision: a reference stored in a record must not
// outlive the owner it borrows from.
func (c *Checker) checkRecordEscapes(stmt ast.Stmt, s *sig, local map[string]bool) {
	var expr ast.Expr
	switch n := stmt.(type) {
	case *ast.Binding:
		expr = n.Value
	case *ast.Assignment:
		expr = n.Value
	case *ast.ExprStmt:
		expr = n.X
	}
	if expr == nil {
		return
	}
	ast.Inspect(expr, func(node ast.Node) bool {
		if _, isFn := node.(*ast.FunctionDef); isFn {
			return false
		}
		rl, ok := node.(*ast.RecordLiteral)
		if !ok {
			return true
		}
		fields := c.recordFields[rl.TypeName.Name]
		for _, fi := range rl.Fields {
			rt, ok := fields[fi.Name.Name].(*ast.ReferenceType)
			if !ok {
				continue
			}
			c.checkFieldReference(rt, fi, s, local)
		}
		return true
	})
}

// checkFieldReference validates one reference-typed record field's stored
// value: a borrow of a name carrying a different declared lifetime than the
// field expects is a LIFETIME-CONFLICT; a borrow of a plain local owner
// (one that does not survive past this block) is an OUTLIVES-OWNER.
func (c *Checker) checkFieldReference(rt *ast.ReferenceType, fi *ast.FieldInit, s *sig, local map[string]bool) {
	borrowExpr, ok := fi.Value.(*ast.BorrowExpr)
	if !ok {
		return
	}
	ident, ok := borrowExpr.Value.(*ast.Identifier)
	if !ok {
		return
	}
	paramLifetime, isParamRef := s.paramLifetimes[ident.Name]
	switch {
	case rt.Lifetime != "" && isParamRef && paramLifetime != rt.Lifetime:
		c.errorf(diag.LifetimeConflict, fi.Value.GetSpan(),
			"field %s requires lifetime %s but %s carries %s", fi.Name.Name, rt.Lifetime, ident.Name, paramLifetime)
	case local[ident.Name]:
		c.errorf(diag.OutlivesOwner, fi.Value.GetSpan(),
			"stores a reference to %s, a local owner that does not outlive this record", ident.Name)
	}
}

func hasLifetime(m map[string]string, name string) bool {
	for _, v := range m {
		if v == name {
			return true
		}
	}
	return false
}

func receiverIsReference(f *ast.FunctionDef) bool {
	if len(f.Params) == 0 {
		return false
	}
	_, ok := f.Params[0].Type.(*ast.ReferenceType)
	return ok
}

func functionLabel(f *ast.FunctionDef) string {
	if f.Name != nil {
		return "function " + f.Name.Name
	}
	return "this lambda"
}

// checkBlock walks statements tracking which names are local owners
// (dropped at block exit) versus reference parameters, then validates the
// block's trailing expression (if any) as a return-position value.
func (c *Checker) checkBlock(b *ast.Block, s *sig, outerLocal map[string]bool) {
	local := make(map[string]bool, len(outerLocal))
	for k := range outerLocal {
		local[k] = true
	}
	for i, stmt := range b.Stmts {
		c.checkRecordEscapes(stmt, s, local)
		switch n := stmt.(type) {
		case *ast.Binding:
			if n.Name != nil {
				if _, ok := n.Value.(*ast.BorrowExpr); !ok {
					local[n.Name.Name] = true
				}
			}
		}
		if i == len(b.Stmts)-1 {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				c.checkReturnExpr(es.X, s, local)
			}
		}
	}
}

// checkReturnExpr validates that a value in return position which is
// reference-typed is derivable from an input reference (i.e. not borrowed
// from a binding local to this call), per step 2/3.
func (c *Checker) checkReturnExpr(e ast.Expr, s *sig, local map[string]bool) {
	switch n := e.(type) {
	case *ast.BorrowExpr:
		if ident, ok := n.Value.(*ast.Identifier); ok && local[ident.Name] {
			c.errorf(diag.ReturnsLocalReference, n.Span,
				"returns a reference to %s, which does not outlive the call", ident.Name)
		}
	case *ast.Identifier:
		if _, isParamRef := s.paramLifetimes[n.Name]; !isParamRef && local[n.Name] {
			// A bare local name in return position is a move of an owner,
			// not a reference; nothing to validate here. Kept as an
			// explicit branch so the zero-value default below doesn't
			// silently swallow a future reference-typed local case.
		}
	case *ast.Conditional:
		c.checkReturnBranch(n.Then, s, local)
		switch elseN := n.Else.(type) {
		case *ast.Block:
			c.checkReturnBranch(elseN, s, local)
		case *ast.Conditional:
			c.checkReturnExpr(elseN, s, local)
		}
	case *ast.Block:
		c.checkBlock(n, s, local)
	}
}

func (c *Checker) checkReturnBranch(b *ast.Block, s *sig, local map[string]bool) {
	if len(b.Stmts) == 0 {
		return
	}
	if es, ok := b.Stmts[len(b.Stmts)-1].(*ast.ExprStmt); ok {
		c.checkReturnExpr(es.X, s, local)
	}
}
