package ast

// Inspect traverses n depth-first, calling fn(n) before visiting n's
// children. If fn returns false, n's children are skipped. Used by passes
// that need a blunt full-tree walk (internal/borrow's ephemeral-borrow
// sweep) rather than the precise per-construct recursion most passes do.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Program:
		for _, s := range v.Stmts {
			Inspect(s, fn)
		}
	case *Binding:
		Inspect(v.Value, fn)
	case *Assignment:
		Inspect(v.Target, fn)
		Inspect(v.Value, fn)
	case *ExprStmt:
		Inspect(v.X, fn)
	case *Block:
		for _, s := range v.Stmts {
			Inspect(s, fn)
		}
	case *Conditional:
		Inspect(v.Cond, fn)
		Inspect(v.Then, fn)
		if v.Else != nil {
			Inspect(v.Else, fn)
		}
	case *BoundedLoop:
		Inspect(v.Iterable, fn)
		Inspect(v.Body, fn)
	case *UnboundedLoop:
		Inspect(v.Cond, fn)
		Inspect(v.Body, fn)
	case *BinaryExpr:
		Inspect(v.Left, fn)
		Inspect(v.Right, fn)
	case *UnaryExpr:
		Inspect(v.Value, fn)
	case *PipelineExpr:
		Inspect(v.Left, fn)
		Inspect(v.Right, fn)
	case *BorrowExpr:
		Inspect(v.Value, fn)
	case *TryExpr:
		Inspect(v.Value, fn)
	case *TryHandlerExpr:
		Inspect(v.Body, fn)
		for _, h := range v.Handlers {
			Inspect(h.Body, fn)
		}
	case *Call:
		Inspect(v.Callee, fn)
		for _, a := range v.Args {
			Inspect(a, fn)
		}
	case *FunctionDef:
		Inspect(v.Body, fn)
	case *RecordLiteral:
		for _, f := range v.Fields {
			Inspect(f.Value, fn)
		}
	case *VariantConstructorApp:
		for _, a := range v.Args {
			Inspect(a, fn)
		}
	case *FieldAccess:
		Inspect(v.Receiver, fn)
	case *IndexAccess:
		Inspect(v.Receiver, fn)
		Inspect(v.Index, fn)
	case *MatchExpr:
		Inspect(v.Scrutinee, fn)
		for _, arm := range v.Arms {
			Inspect(arm.Body, fn)
		}
	}
}
