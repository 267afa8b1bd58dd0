package borrow

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
)

func (c *Checker) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Binding:
		c.bindingStmt(n)
	case *ast.Assignment:
		c.assignmentStmt(n)
	case *ast.ExprStmt:
		c.read(n.X)
		c.closeEphemeralBorrows(n.X)
	case *ast.FunctionDef:
		c.functionBody(n)
	case *ast.RecordDef, *ast.VariantDef, *ast.InterfaceDef, *ast.ImportDirective:
		// no ownership effects
	case *ast.InterfaceImpl:
		for _, m := range n.Methods {
			c.functionBody(m.Fn)
		}
	case *ast.Break, *ast.Continue:
	default:
		if e, ok := s.(ast.Expr); ok {
			c.read(e)
		}
	}
}

func (c *Checker) bindingStmt(b *ast.Binding) {
	if ident, ok := b.Value.(*ast.Identifier); ok {
		c.moveOwner(ident)
	} else {
		c.read(b.Value)
	}
	if b.Name != nil {
		copyT := isCopyType(c.types[b])
		c.top.owners[b.Name.Name] = &state{kind: Owned, copyType: copyT}
	}
	c.closeEphemeralBorrows(b.Value)
}

func (c *Checker) assignmentStmt(a *ast.Assignment) {
	if ident, ok := a.Value.(*ast.Identifier); ok {
		c.moveOwner(ident)
	} else {
		c.read(a.Value)
	}
	if target, ok := a.Target.(*ast.Identifier); ok {
		if st := c.lookup(target.Name); st != nil {
			switch st.kind {
			case BorrowedShared:
				c.errorf(diag.MutateWhileShared, a.Span, "cannot assign to "+target.Name+" while it is shared-borrowed")
			}
			st.kind = Owned
		}
	}
	c.closeEphemeralBorrows(a.Value)
}

// functionBody checks a function's body in its own nested scope, with
// parameters entering as Owned (borrowed-mode parameters are reference
// bindings and are not owner-tracked the same way an owning local is).
func (c *Checker) functionBody(f *ast.FunctionDef) {
	c.push()
	for _, p := range f.Params {
		if p.Mode == ast.Owned {
			c.top.owners[p.Name.Name] = &state{kind: Owned}
		}
	}
	for i, s := range f.Body.Stmts {
		if i == len(f.Body.Stmts)-1 {
			if es, ok := s.(*ast.ExprStmt); ok {
				if ident, ok := es.X.(*ast.Identifier); ok {
					c.moveOwner(ident)
					c.pop()
					return
				}
			}
		}
		c.stmt(s)
	}
	c.pop()
}

// read walks e looking for identifier uses that must currently be legal
// (Owned or BorrowedShared), plus nested borrow-creating expressions.
func (c *Checker) read(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Identifier:
		c.useOwner(n)
	case *ast.BorrowExpr:
		c.createBorrow(n)
	case *ast.BinaryExpr:
		c.read(n.Left)
		c.read(n.Right)
	case *ast.UnaryExpr:
		c.read(n.Value)
	case *ast.PipelineExpr:
		c.read(n.Left)
		c.read(n.Right)
	case *ast.Call:
		c.read(n.Callee)
		for _, arg := range n.Args {
			c.read(arg)
		}
	case *ast.FieldAccess:
		c.read(n.Receiver)
	case *ast.IndexAccess:
		c.read(n.Receiver)
		c.read(n.Index)
	case *ast.RecordLiteral:
		for _, fi := range n.Fields {
			c.read(fi.Value)
		}
	case *ast.VariantConstructorApp:
		for _, a := range n.Args {
			c.read(a)
		}
	case *ast.Conditional:
		c.read(n.Cond)
		c.block(n.Then)
		if blk, ok := n.Else.(*ast.Block); ok {
			c.block(blk)
		} else if cond, ok := n.Else.(*ast.Conditional); ok {
			c.read(cond)
		}
	case *ast.MatchExpr:
		c.read(n.Scrutinee)
		for _, arm := range n.Arms {
			c.push()
			c.read(arm.Body)
			c.pop()
		}
	case *ast.Block:
		c.block(n)
	case *ast.BoundedLoop:
		c.read(n.Iterable)
		c.block(n.Body)
	case *ast.UnboundedLoop:
		c.read(n.Cond)
		c.block(n.Body)
	case *ast.TryExpr:
		c.read(n.Value)
	case *ast.Assignment:
		c.assignmentStmt(n)
	}
}

func (c *Checker) block(b *ast.Block) {
	c.push()
	for _, s := range b.Stmts {
		c.stmt(s)
	}
	c.pop()
}

func (c *Checker) useOwner(id *ast.Identifier) {
	st := c.lookup(id.Name)
	if st == nil {
		return // not an owner-tracked binding (parameter borrow, function, etc.)
	}
	switch st.kind {
	case Moved:
		d := c.errorf(diag.UseAfterMove, id.Span, "use of "+id.Name+" after it was moved")
		c.relabel(d, st.moveSpan, "moved here")
	case BorrowedMut:
		d := c.errorf(diag.ReadWhileMutBorrow, id.Span, "cannot read "+id.Name+" while it is exclusively borrowed")
		c.relabel(d, st.mutSpan, "exclusive borrow created here")
	}
}

func (c *Checker) moveOwner(id *ast.Identifier) {
	st := c.lookup(id.Name)
	if st == nil {
		return
	}
	if st.copyType {
		return
	}
	switch st.kind {
	case Moved:
		d := c.errorf(diag.UseAfterMove, id.Span, "use of "+id.Name+" after it was moved")
		c.relabel(d, st.moveSpan, "moved here")
		return
	case BorrowedShared, BorrowedMut:
		c.errorf(diag.MoveWhileBorrowed, id.Span, "cannot move "+id.Name+" while it is borrowed")
		return
	}
	st.kind = Moved
	st.moveSpan = id.Span
}

func (c *Checker) createBorrow(b *ast.BorrowExpr) {
	ident, ok := b.Value.(*ast.Identifier)
	if !ok {
		c.read(b.Value)
		return
	}
	st := c.lookup(ident.Name)
	if st == nil {
		return
	}
	if b.Mode == ast.BorrowedMut {
		switch st.kind {
		case Moved:
			c.errorf(diag.UseAfterMove, ident.Span, "use of "+ident.Name+" after it was moved")
		case BorrowedShared, BorrowedMut:
			c.errorf(diag.MultipleMutBorrow, b.Span, "cannot exclusively borrow "+ident.Name+" while already borrowed")
		default:
			st.kind = BorrowedMut
			st.mutSpan = b.Span
		}
		return
	}
	switch st.kind {
	case Moved:
		c.errorf(diag.UseAfterMove, ident.Span, "use of "+ident.Name+" after it was moved")
	case BorrowedMut:
		c.errorf(diag.ReadWhileMutBorrow, b.Span, "cannot share-borrow "+ident.Name+" while it is exclusively borrowed")
	default:
		st.kind = BorrowedShared
		st.sharedSpans = append(st.sharedSpans, b.Span)
	}
}

// closeEphemeralBorrows reverts any borrow created by a bare (unbound)
// `borrow`/`borrow-mut` expression within valueExpr back to Owned, since
// its one syntactic use ends with this statement.
func (c *Checker) closeEphemeralBorrows(valueExpr ast.Expr) {
	ast.Inspect(valueExpr, func(n ast.Node) bool {
		if b, ok := n.(*ast.BorrowExpr); ok {
			if ident, ok := b.Value.(*ast.Identifier); ok {
				if st := c.lookup(ident.Name); st != nil && (st.kind == BorrowedShared || st.kind == BorrowedMut) {
					st.kind = Owned
					st.sharedSpans = nil
				}
			}
		}
		return true
	})
}
