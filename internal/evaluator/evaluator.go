package evaluator

import (
	"fmt"

	"github.com/petermattis/goid"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/symbols"
)

// Evaluator threads the native-function table and declared variant/record
// registry across one Eval call. It asserts single-goroutine entry per
// spec.md §5: the evaluator is never safe to re-enter concurrently, so
// rather than documenting that as a caveat it is checked cheaply on every
// public call.
type Evaluator struct {
	registry   *symbols.TypeRegistry
	natives    map[string]*Native
	ownerGoID  int64
	hasOwner   bool
}

// New creates an Evaluator seeded with natives (host-registered functions,
// spec.md §6) and registry (the declared record/variant/interface tables
// produced by internal/analyzer, used to resolve a bare case name like
// Triumph back to its owning variant at construction time).
func New(registry *symbols.TypeRegistry, natives map[string]*Native) *Evaluator {
	return &Evaluator{registry: registry, natives: natives}
}

func (e *Evaluator) assertSingleGoroutine() {
	id := goid.Get()
	if !e.hasOwner {
		e.ownerGoID = id
		e.hasOwner = true
		return
	}
	if id != e.ownerGoID {
		panic(fmt.Sprintf("evaluator entered from goroutine %d, owned by %d", id, e.ownerGoID))
	}
}

// Eval runs every top-level statement of prog in a fresh root environment
// and returns the value of the last expression statement, or a
// RuntimeError if execution aborted.
func (e *Evaluator) Eval(prog *ast.Program) (Value, *RuntimeError) {
	e.assertSingleGoroutine()
	env := NewEnvironment()
	for name, n := range e.natives {
		env.Define(name, n, false)
	}
	var last Value = Nothing{}
	for _, stmt := range prog.Stmts {
		o := e.evalStmt(stmt, env)
		if o.Signal == signalPropagate {
			return o.Value, nil
		}
		if rerr, ok := o.Value.(*errValue); ok {
			return nil, rerr.err
		}
		last = o.Value
	}
	return last, nil
}

// errValue lets a RuntimeError travel through the same outcome channel as
// a normal Value without widening every signature to a second return.
type errValue struct{ err *RuntimeError }

func (errValue) Kind() ValueKind { return "" }
func (errValue) Inspect() string { return "<error>" }

func fail(tag diag.Tag, span diag.Span, format string, args ...any) outcome {
	return outcome{Value: &errValue{&RuntimeError{Tag: tag, Span: span, Message: fmt.Sprintf(format, args...)}}}
}

func isErr(o outcome) (*RuntimeError, bool) {
	if ev, ok := o.Value.(*errValue); ok {
		return ev.err, true
	}
	return nil, false
}

func (e *Evaluator) evalStmt(s ast.Stmt, env *Environment) outcome {
	switch n := s.(type) {
	case *ast.Binding:
		return e.evalBinding(n, env)
	case *ast.Assignment:
		return e.evalAssignment(n, env)
	case *ast.ExprStmt:
		return e.eval(n.X, env)
	case *ast.FunctionDef:
		if n.Name != nil {
			env.Define(n.Name.Name, &Closure{Def: n, Env: env}, false)
		}
		return plain(Nothing{})
	case *ast.RecordDef, *ast.VariantDef, *ast.InterfaceDef:
		return plain(Nothing{}) // declarations only; no runtime effect
	case *ast.InterfaceImpl:
		for _, m := range n.Methods {
			env.Define(implMethodName(n, m.Name.Name), &Closure{Def: m.Fn, Env: env}, false)
		}
		return plain(Nothing{})
	case *ast.Break:
		return outcome{Value: Nothing{}, Signal: signalBreak}
	case *ast.Continue:
		return outcome{Value: Nothing{}, Signal: signalContinue}
	default:
		if expr, ok := s.(ast.Expr); ok {
			return e.eval(expr, env)
		}
		return plain(Nothing{})
	}
}

func implMethodName(impl *ast.InterfaceImpl, method string) string {
	return impl.Target.String() + "." + method
}

func (e *Evaluator) evalBinding(b *ast.Binding, env *Environment) outcome {
	o := e.eval(b.Value, env)
	if o.isSignal() {
		return o
	}
	if _, bad := isErr(o); bad {
		return o
	}
	if b.Name != nil {
		env.Define(b.Name.Name, o.Value, b.Mutable)
	} else if b.Pattern != nil {
		bindings := map[string]Value{}
		if !matchPattern(b.Pattern, o.Value, bindings) {
			return fail(diag.MatchFailure, b.Span, "destructuring let pattern did not match")
		}
		for name, v := range bindings {
			env.Define(name, v, b.Mutable)
		}
	}
	return plain(Nothing{})
}

func (e *Evaluator) evalAssignment(a *ast.Assignment, env *Environment) outcome {
	o := e.eval(a.Value, env)
	if o.isSignal() {
		return o
	}
	if _, bad := isErr(o); bad {
		return o
	}
	switch target := a.Target.(type) {
	case *ast.Identifier:
		env.Assign(target.Name, o.Value)
	case *ast.FieldAccess:
		ro := e.eval(target.Receiver, env)
		if ro.isSignal() {
			return ro
		}
		rec, ok := derefRecord(ro.Value)
		if !ok {
			return fail(diag.MissingField, a.Span, "assignment target is not a record")
		}
		rec.Fields[target.Field.Name] = o.Value
	case *ast.IndexAccess:
		ro := e.eval(target.Receiver, env)
		if ro.isSignal() {
			return ro
		}
		io := e.eval(target.Index, env)
		if io.isSignal() {
			return io
		}
		seq, ok := derefSequence(ro.Value)
		if !ok {
			return fail(diag.IndexOutOfBounds, a.Span, "index assignment target is not a sequence")
		}
		idx, ok := io.Value.(Number)
		if !ok {
			return fail(diag.IndexOutOfBounds, a.Span, "index must be a number")
		}
		i := int(idx)
		slots := *seq.Slots
		if i < 0 || i >= len(slots) {
			return fail(diag.IndexOutOfBounds, a.Span, "index %d out of bounds (length %d)", i, len(slots))
		}
		slots[i] = o.Value
	}
	return plain(o.Value)
}

func derefRecord(v Value) (Record, bool) {
	if ref, ok := v.(Reference); ok {
		v = ref.Slot.Value
	}
	r, ok := v.(Record)
	return r, ok
}

func derefSequence(v Value) (Sequence, bool) {
	if ref, ok := v.(Reference); ok {
		v = ref.Slot.Value
	}
	s, ok := v.(Sequence)
	return s, ok
}
