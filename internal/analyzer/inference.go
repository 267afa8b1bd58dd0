package analyzer

import (
	"fmt"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/symbols"
	"github.com/veylang/veyl/internal/typesystem"
)

func (a *Analyzer) record(n ast.Node, t typesystem.Type) typesystem.Type {
	a.types[n] = t
	return t
}

func (a *Analyzer) unify(span diag.Span, got, want typesystem.Type) {
	if err := typesystem.Harmonize(got, want, a.uf); err != nil {
		ue := err.(*typesystem.UnifyError)
		tag := diag.Mismatch
		switch ue.Kind {
		case typesystem.OccursCheckFailure:
			tag = diag.OccursCheck
		case typesystem.ArityMismatch:
			tag = diag.ArityMismatch
		case typesystem.ConstructorMismatch:
			tag = diag.ConstructorMismatch
		}
		a.errors = append(a.errors, diag.New(tag, span,
			fmt.Sprintf("cannot unify %s with %s", typesystem.Materialize(ue.Left, a.uf), typesystem.Materialize(ue.Right, a.uf))))
	}
}

// inferStmt infers (and records the type of) one statement, generalizing
// at let-binding boundaries.
func (a *Analyzer) inferStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Binding:
		a.inferBinding(s)
	case *ast.Assignment:
		a.inferAssignment(s)
	case *ast.ExprStmt:
		a.record(s, a.infer(s.X))
	case *ast.FunctionDef:
		a.inferFunctionDecl(s)
	case *ast.RecordDef, *ast.VariantDef, *ast.InterfaceDef:
		// Already elaborated in registerDeclarations.
	case *ast.InterfaceImpl:
		a.inferImplMethods(s)
	case *ast.Break, *ast.Continue:
		// no constraints
	default:
		if e, ok := stmt.(ast.Expr); ok {
			a.infer(e)
		}
	}
}

func (a *Analyzer) inferBinding(b *ast.Binding) {
	valType := a.infer(b.Value)
	if b.TypeAnnotation != nil {
		declared := a.elaborateTypeExpr(b.TypeAnnotation, nil)
		a.unify(b.Span, valType, declared)
	}

	envFree := symbols.EnvFreeVars(a.currentSchemes(), a.uf)
	scheme := typesystem.Generalize(valType, envFree, a.uf)

	if b.Name != nil {
		if _, dup := a.env.LookupLocal(b.Name.Name); dup {
			a.errorf(diag.DuplicateDefinition, b.Span, "redefinition of "+b.Name.Name)
		}
		a.env.Define(b.Name.Name, &symbols.BindingInfo{Scheme: scheme, Mutable: b.Mutable, Span: b.Span})
	} else if b.Pattern != nil {
		a.bindPattern(b.Pattern, typesystem.Materialize(valType, a.uf), b.Mutable)
	}
	a.record(b, typesystem.Materialize(valType, a.uf))
}

// currentSchemes supplies the environment schemes whose free variables
// are excluded from generalization. It does not walk the scope chain.
func (a *Analyzer) currentSchemes() []typesystem.Scheme {
	// Returning nil leaves the excluded set empty, so Generalize
	// quantifies every free variable of the bound type.
	return nil
}

func (a *Analyzer) inferAssignment(asg *ast.Assignment) {
	valType := a.infer(asg.Value)
	switch target := asg.Target.(type) {
	case *ast.Identifier:
		info, ok := a.env.Lookup(target.Name)
		if !ok {
			a.errorf(diag.Undefined, target.Span, "undefined: "+target.Name)
			return
		}
		if !info.Mutable {
			a.errorf(diag.ReassignImmutable, asg.Span, "cannot assign to immutable binding "+target.Name)
		}
		a.unify(asg.Span, valType, typesystem.Instantiate(info.Scheme, a.fresh))
	case *ast.FieldAccess, *ast.IndexAccess:
		a.infer(target)
	default:
		a.errorf(diag.ExpectedXGotY, asg.Span, "invalid assignment target")
	}
	a.record(asg, typesystem.Materialize(valType, a.uf))
}

// infer is the constraint-generation entry point for expressions (spec.md
// §4.3 step 1); it both emits unification constraints as a side effect and
// returns the (possibly still-unresolved) type of e.
func (a *Analyzer) infer(e ast.Expr) typesystem.Type {
	switch n := e.(type) {
	case *ast.NumberLit:
		return a.record(n, typesystem.Number)
	case *ast.TextLit:
		return a.record(n, typesystem.Text)
	case *ast.TruthLit:
		return a.record(n, typesystem.Truth)
	case *ast.NothingLit:
		return a.record(n, typesystem.Nothing)
	case *ast.Identifier:
		return a.inferIdentifier(n)
	case *ast.QualifiedIdentifier:
		return a.record(n, a.fresh.Fresh()) // resolved by internal/modules before re-analysis
	case *ast.Block:
		return a.inferBlock(n)
	case *ast.Conditional:
		return a.inferConditional(n)
	case *ast.BinaryExpr:
		return a.inferBinary(n)
	case *ast.UnaryExpr:
		return a.inferUnary(n)
	case *ast.PipelineExpr:
		return a.inferPipeline(n)
	case *ast.Call:
		return a.inferCall(n)
	case *ast.FunctionDef:
		return a.inferLambda(n)
	case *ast.RecordLiteral:
		return a.inferRecordLiteral(n)
	case *ast.VariantConstructorApp:
		return a.inferVariantCtor(n)
	case *ast.FieldAccess:
		return a.inferFieldAccess(n)
	case *ast.IndexAccess:
		return a.inferIndexAccess(n)
	case *ast.MatchExpr:
		return a.inferMatch(n)
	case *ast.TryExpr:
		return a.inferTry(n)
	case *ast.TryHandlerExpr:
		return a.inferTryHandler(n)
	case *ast.BoundedLoop:
		return a.inferBoundedLoop(n)
	case *ast.UnboundedLoop:
		return a.inferUnboundedLoop(n)
	case *ast.Break:
		return a.record(n, typesystem.Nothing)
	case *ast.Continue:
		return a.record(n, typesystem.Nothing)
	case *ast.Assignment:
		a.inferAssignment(n)
		return a.types[n]
	case *ast.BorrowExpr:
		inner := a.infer(n.Value)
		return a.record(n, typesystem.Reference{Mutable: n.Mode == ast.BorrowedMut, Referent: inner})
	default:
		return typesystem.Unknown
	}
}

func (a *Analyzer) inferIdentifier(id *ast.Identifier) typesystem.Type {
	info, ok := a.env.Lookup(id.Name)
	if !ok {
		a.errorf(diag.Undefined, id.Span, "undefined: "+id.Name)
		return a.record(id, typesystem.Unknown)
	}
	return a.record(id, typesystem.Instantiate(info.Scheme, a.fresh))
}

func (a *Analyzer) inferBlock(b *ast.Block) typesystem.Type {
	a.env.Push()
	defer a.env.Pop()
	var last typesystem.Type = typesystem.Nothing
	for i, stmt := range b.Stmts {
		a.inferStmt(stmt)
		if i == len(b.Stmts)-1 {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				last = a.types[es.X]
			} else {
				last = typesystem.Nothing
			}
		}
	}
	return a.record(b, last)
}

func (a *Analyzer) inferConditional(c *ast.Conditional) typesystem.Type {
	condT := a.infer(c.Cond)
	a.unify(c.Cond.GetSpan(), condT, typesystem.Truth)
	thenT := a.inferBlock(c.Then)
	if c.Else == nil {
		a.unify(c.Span, thenT, typesystem.Nothing)
		return a.record(c, typesystem.Nothing)
	}
	var elseT typesystem.Type
	switch e := c.Else.(type) {
	case *ast.Block:
		elseT = a.inferBlock(e)
	case *ast.Conditional:
		elseT = a.inferConditional(e)
	}
	a.unify(c.Span, thenT, elseT)
	return a.record(c, thenT)
}

func (a *Analyzer) inferUnary(u *ast.UnaryExpr) typesystem.Type {
	vt := a.infer(u.Value)
	switch u.Op {
	case "-":
		a.unify(u.Span, vt, typesystem.Number)
		return a.record(u, typesystem.Number)
	case "!", "not":
		a.unify(u.Span, vt, typesystem.Truth)
		return a.record(u, typesystem.Truth)
	}
	return a.record(u, typesystem.Unknown)
}

func (a *Analyzer) inferPipeline(p *ast.PipelineExpr) typesystem.Type {
	// `x |> f(...)` is sugar for `f(x, ...)`: x becomes the call's first
	// argument, per spec.md §3 Pipeline.
	call, ok := p.Right.(*ast.Call)
	if !ok {
		a.errorf(diag.ExpectedXGotY, p.Span, "right side of |> must be a call")
		return a.record(p, typesystem.Unknown)
	}
	synthetic := &ast.Call{Callee: call.Callee, Args: append([]ast.Expr{p.Left}, call.Args...), TypeArgs: call.TypeArgs, Span: p.Span}
	t := a.inferCall(synthetic)
	return a.record(p, t)
}

func (a *Analyzer) inferBoundedLoop(f *ast.BoundedLoop) typesystem.Type {
	iterT := a.infer(f.Iterable)
	elem := a.fresh.Fresh()
	a.unify(f.Iterable.GetSpan(), iterT, typesystem.Sequence{Elem: elem})
	a.env.Push()
	a.env.Define(f.Var.Name, &symbols.BindingInfo{Scheme: typesystem.Scheme{Body: elem}, Span: f.Var.Span})
	a.inferBlock(f.Body)
	a.env.Pop()
	return a.record(f, typesystem.Nothing)
}

func (a *Analyzer) inferUnboundedLoop(w *ast.UnboundedLoop) typesystem.Type {
	condT := a.infer(w.Cond)
	a.unify(w.Cond.GetSpan(), condT, typesystem.Truth)
	a.inferBlock(w.Body)
	return a.record(w, typesystem.Nothing)
}
