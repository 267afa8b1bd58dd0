package evaluator

import (
	"math"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
)

// eval dispatches a single expression node. The returned outcome's Signal
// is non-zero whenever evaluation must short-circuit the enclosing
// statement list: a try-propagation, a loop break/continue, or a function
// return bubbling up from somewhere inside an argument or callee.
func (e *Evaluator) eval(expr ast.Expr, env *Environment) outcome {
	switch n := expr.(type) {
	case *ast.NumberLit:
		return plain(Number(n.Value))
	case *ast.TextLit:
		return plain(Text(n.Value))
	case *ast.TruthLit:
		return plain(Truth(n.Value))
	case *ast.NothingLit:
		return plain(Nothing{})
	case *ast.Identifier:
		v, ok := env.Get(n.Name)
		if !ok {
			return fail(diag.Undefined, n.Span, "undefined name %s", n.Name)
		}
		return plain(v)
	case *ast.QualifiedIdentifier:
		v, ok := env.Get(n.Module.Name + "." + n.Member.Name)
		if !ok {
			return fail(diag.Undefined, n.Span, "undefined name %s.%s", n.Module.Name, n.Member.Name)
		}
		return plain(v)
	case *ast.Block:
		return e.evalBlock(n, NewEnclosedEnvironment(env))
	case *ast.Conditional:
		return e.evalConditional(n, env)
	case *ast.BinaryExpr:
		return e.evalBinary(n, env)
	case *ast.UnaryExpr:
		return e.evalUnary(n, env)
	case *ast.PipelineExpr:
		return e.evalPipeline(n, env)
	case *ast.BorrowExpr:
		return e.evalBorrow(n, env)
	case *ast.TryExpr:
		return e.evalTry(n, env)
	case *ast.Call:
		return e.evalCall(n, env)
	case *ast.FunctionDef:
		return plain(&Closure{Def: n, Env: env})
	case *ast.RecordLiteral:
		return e.evalRecordLiteral(n, env)
	case *ast.VariantConstructorApp:
		return e.evalVariantCtor(n, env)
	case *ast.FieldAccess:
		return e.evalFieldAccess(n, env)
	case *ast.IndexAccess:
		return e.evalIndexAccess(n, env)
	case *ast.MatchExpr:
		return e.evalMatch(n, env)
	case *ast.BoundedLoop:
		return e.evalBoundedLoop(n, env)
	case *ast.UnboundedLoop:
		return e.evalUnboundedLoop(n, env)
	case *ast.Break:
		return outcome{Value: Nothing{}, Signal: signalBreak}
	case *ast.Continue:
		return outcome{Value: Nothing{}, Signal: signalContinue}
	case *ast.Assignment:
		return e.evalAssignment(n, env)
	default:
		return fail(diag.Undefined, expr.GetSpan(), "cannot evaluate %T", expr)
	}
}

// evalBlock threads signal propagation: a return/break/continue/propagate
// produced by any statement aborts the remaining statements in this block.
func (e *Evaluator) evalBlock(b *ast.Block, env *Environment) outcome {
	var last outcome = plain(Nothing{})
	for _, s := range b.Stmts {
		last = e.evalStmt(s, env)
		if last.isSignal() {
			return last
		}
		if _, bad := isErr(last); bad {
			return last
		}
	}
	return last
}

func (e *Evaluator) evalConditional(c *ast.Conditional, env *Environment) outcome {
	co := e.eval(c.Cond, env)
	if co.isSignal() {
		return co
	}
	if _, bad := isErr(co); bad {
		return co
	}
	truth, ok := co.Value.(Truth)
	if !ok {
		return fail(diag.Mismatch, c.Span, "condition did not evaluate to a Truth value")
	}
	if bool(truth) {
		return e.evalBlock(c.Then, NewEnclosedEnvironment(env))
	}
	switch elseNode := c.Else.(type) {
	case *ast.Block:
		return e.evalBlock(elseNode, NewEnclosedEnvironment(env))
	case *ast.Conditional:
		return e.evalConditional(elseNode, env)
	default:
		return plain(Nothing{})
	}
}

func (e *Evaluator) evalUnboundedLoop(w *ast.UnboundedLoop, env *Environment) outcome {
	for {
		co := e.eval(w.Cond, env)
		if co.isSignal() {
			return co
		}
		if _, bad := isErr(co); bad {
			return co
		}
		truth, ok := co.Value.(Truth)
		if !ok {
			return fail(diag.Mismatch, w.Span, "while condition did not evaluate to a Truth value")
		}
		if !bool(truth) {
			return plain(Nothing{})
		}
		bo := e.evalBlock(w.Body, NewEnclosedEnvironment(env))
		switch bo.Signal {
		case signalBreak:
			return plain(Nothing{})
		case signalContinue:
			continue
		case signalReturn, signalPropagate:
			return bo
		}
		if _, bad := isErr(bo); bad {
			return bo
		}
	}
}

func (e *Evaluator) evalBoundedLoop(f *ast.BoundedLoop, env *Environment) outcome {
	io := e.eval(f.Iterable, env)
	if io.isSignal() {
		return io
	}
	if _, bad := isErr(io); bad {
		return io
	}
	var it *Iterator
	switch v := io.Value.(type) {
	case Sequence:
		it = NewSequenceIterator(v)
	case *Iterator:
		it = v
	default:
		return fail(diag.Mismatch, f.Span, "for-loop source is not iterable")
	}
	for {
		item, ok := it.Next()
		if !ok {
			return plain(Nothing{})
		}
		loopEnv := NewEnclosedEnvironment(env)
		loopEnv.Define(f.Var.Name, item, false)
		bo := e.evalBlock(f.Body, loopEnv)
		switch bo.Signal {
		case signalBreak:
			return plain(Nothing{})
		case signalContinue:
			continue
		case signalReturn, signalPropagate:
			return bo
		}
		if _, bad := isErr(bo); bad {
			return bo
		}
	}
}

func (e *Evaluator) evalBorrow(b *ast.BorrowExpr, env *Environment) outcome {
	id, ok := b.Value.(*ast.Identifier)
	if !ok {
		// Borrowing a non-identifier expression (e.g. a field) evaluates
		// the value and wraps it in a fresh, unbacked slot.
		vo := e.eval(b.Value, env)
		if vo.isSignal() {
			return vo
		}
		if _, bad := isErr(vo); bad {
			return vo
		}
		slot := &Slot{Value: vo.Value, Mutable: b.Mode == ast.BorrowedMut}
		return plain(Reference{Slot: slot, Mutable: b.Mode == ast.BorrowedMut})
	}
	slot, ok := env.getSlot(id.Name)
	if !ok {
		return fail(diag.Undefined, b.Span, "undefined name %s", id.Name)
	}
	return plain(Reference{Slot: slot, Mutable: b.Mode == ast.BorrowedMut})
}

func (e *Evaluator) evalTry(t *ast.TryExpr, env *Environment) outcome {
	vo := e.eval(t.Value, env)
	if vo.isSignal() {
		return vo
	}
	if _, bad := isErr(vo); bad {
		return vo
	}
	variant, ok := vo.Value.(Variant)
	if !ok {
		return fail(diag.Mismatch, t.Span, "try operator applied to a non-Outcome value")
	}
	if variant.CaseName == "Triumph" {
		if len(variant.Payload) > 0 {
			return plain(variant.Payload[0])
		}
		return plain(Nothing{})
	}
	// Mishap (or any non-Triumph case) propagates to the nearest function
	// call boundary without evaluating the rest of this function's body.
	return outcome{Value: variant, Signal: signalPropagate}
}

func (e *Evaluator) evalRecordLiteral(r *ast.RecordLiteral, env *Environment) outcome {
	fields := make(map[string]Value, len(r.Fields))
	for _, init := range r.Fields {
		vo := e.eval(init.Value, env)
		if vo.isSignal() {
			return vo
		}
		if _, bad := isErr(vo); bad {
			return vo
		}
		fields[init.Name.Name] = vo.Value
	}
	return plain(Record{TypeName: r.TypeName.Name, Fields: fields})
}

func (e *Evaluator) evalVariantCtor(v *ast.VariantConstructorApp, env *Environment) outcome {
	owner := v.CaseName.Name
	if e.registry != nil {
		if o, ok := e.registry.CaseOwner[v.CaseName.Name]; ok {
			owner = o
		}
	}
	payload := make([]Value, len(v.Args))
	for i, arg := range v.Args {
		vo := e.eval(arg, env)
		if vo.isSignal() {
			return vo
		}
		if _, bad := isErr(vo); bad {
			return vo
		}
		payload[i] = vo.Value
	}
	return plain(Variant{Owner: owner, CaseName: v.CaseName.Name, Payload: payload})
}

func (e *Evaluator) evalFieldAccess(f *ast.FieldAccess, env *Environment) outcome {
	ro := e.eval(f.Receiver, env)
	if ro.isSignal() {
		return ro
	}
	if _, bad := isErr(ro); bad {
		return ro
	}
	rec, ok := derefRecord(ro.Value)
	if !ok {
		return fail(diag.MissingField, f.Span, "field access on a non-record value")
	}
	v, ok := rec.Fields[f.Field.Name]
	if !ok {
		return fail(diag.MissingField, f.Span, "record has no field %s", f.Field.Name)
	}
	return plain(v)
}

func (e *Evaluator) evalIndexAccess(i *ast.IndexAccess, env *Environment) outcome {
	ro := e.eval(i.Receiver, env)
	if ro.isSignal() {
		return ro
	}
	if _, bad := isErr(ro); bad {
		return ro
	}
	io := e.eval(i.Index, env)
	if io.isSignal() {
		return io
	}
	if _, bad := isErr(io); bad {
		return io
	}
	seq, ok := derefSequence(ro.Value)
	if !ok {
		return fail(diag.IndexOutOfBounds, i.Span, "index access on a non-sequence value")
	}
	idx, ok := io.Value.(Number)
	if !ok {
		return fail(diag.IndexOutOfBounds, i.Span, "index must be a number")
	}
	slots := *seq.Slots
	n := int(idx)
	if n < 0 || n >= len(slots) {
		return fail(diag.IndexOutOfBounds, i.Span, "index %d out of bounds (length %d)", n, len(slots))
	}
	return plain(slots[n])
}

func (e *Evaluator) evalPipeline(p *ast.PipelineExpr, env *Environment) outcome {
	call, ok := p.Right.(*ast.Call)
	if !ok {
		return fail(diag.Mismatch, p.Span, "pipeline target is not a call")
	}
	desugared := &ast.Call{Callee: call.Callee, Args: append([]ast.Expr{p.Left}, call.Args...), TypeArgs: call.TypeArgs, Span: p.Span}
	return e.evalCall(desugared, env)
}

func (e *Evaluator) evalCall(c *ast.Call, env *Environment) outcome {
	if id, ok := c.Callee.(*ast.Identifier); ok && id.Name == "__list__" {
		elems := make([]Value, len(c.Args))
		for i, a := range c.Args {
			ao := e.eval(a, env)
			if ao.isSignal() {
				return ao
			}
			if _, bad := isErr(ao); bad {
				return ao
			}
			elems[i] = ao.Value
		}
		return plain(NewSequence(elems))
	}
	co := e.eval(c.Callee, env)
	if co.isSignal() {
		return co
	}
	if _, bad := isErr(co); bad {
		return co
	}
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		ao := e.eval(a, env)
		if ao.isSignal() {
			return ao
		}
		if _, bad := isErr(ao); bad {
			return ao
		}
		args[i] = ao.Value
	}
	return e.apply(co.Value, args, c.Span)
}

// apply invokes a Closure or Native with already-evaluated arguments. A
// Closure's body runs to a return or propagate signal (or, absent either,
// the block's trailing value becomes the call's result); the evaluator
// catches those two signals here so they never escape past the call that
// produced them, per the function-call-boundary rule in the runtime model.
func (e *Evaluator) apply(fn Value, args []Value, span diag.Span) outcome {
	switch f := fn.(type) {
	case *Closure:
		callEnv := NewEnclosedEnvironment(f.Env)
		for i, p := range f.Def.Params {
			if p.Variadic {
				callEnv.Define(p.Name.Name, NewSequence(append([]Value{}, args[i:]...)), false)
				break
			}
			var v Value = Nothing{}
			if i < len(args) {
				v = args[i]
			}
			callEnv.Define(p.Name.Name, v, p.Mode != ast.Owned)
		}
		bo := e.evalBlock(f.Def.Body, callEnv)
		switch bo.Signal {
		case signalReturn, signalPropagate:
			return plain(bo.Value)
		case signalBreak, signalContinue:
			return fail(diag.NonLoopControl, span, "break/continue used outside a loop")
		}
		return bo
	case *Native:
		v, rerr := f.Fn(args)
		if rerr != nil {
			return outcome{Value: &errValue{rerr}}
		}
		return plain(v)
	default:
		return fail(diag.Mismatch, span, "value is not callable")
	}
}

func (e *Evaluator) evalMatch(m *ast.MatchExpr, env *Environment) outcome {
	so := e.eval(m.Scrutinee, env)
	if so.isSignal() {
		return so
	}
	if _, bad := isErr(so); bad {
		return so
	}
	for _, arm := range m.Arms {
		bindings := map[string]Value{}
		if matchPattern(arm.Pattern, so.Value, bindings) {
			armEnv := NewEnclosedEnvironment(env)
			for name, v := range bindings {
				armEnv.Define(name, v, false)
			}
			return e.eval(arm.Body, armEnv)
		}
	}
	return fail(diag.MatchFailure, m.Span, "no match arm matched the scrutinee")
}

func (e *Evaluator) evalBinary(b *ast.BinaryExpr, env *Environment) outcome {
	lo := e.eval(b.Left, env)
	if lo.isSignal() {
		return lo
	}
	if _, bad := isErr(lo); bad {
		return lo
	}
	// Short-circuit operators evaluate the right side conditionally.
	if b.Op == "and" || b.Op == "&&" {
		lt, ok := lo.Value.(Truth)
		if !ok {
			return fail(diag.Mismatch, b.Span, "left operand of `and` is not a Truth value")
		}
		if !bool(lt) {
			return plain(Truth(false))
		}
		return e.eval(b.Right, env)
	}
	if b.Op == "or" || b.Op == "||" {
		lt, ok := lo.Value.(Truth)
		if !ok {
			return fail(diag.Mismatch, b.Span, "left operand of `or` is not a Truth value")
		}
		if bool(lt) {
			return plain(Truth(true))
		}
		return e.eval(b.Right, env)
	}
	ro := e.eval(b.Right, env)
	if ro.isSignal() {
		return ro
	}
	if _, bad := isErr(ro); bad {
		return ro
	}
	return evalBinaryOp(b.Op, lo.Value, ro.Value, b.Span)
}

func evalBinaryOp(op string, l, r Value, span diag.Span) outcome {
	switch op {
	case "+":
		if ln, ok := l.(Number); ok {
			if rn, ok := r.(Number); ok {
				return plain(ln + rn)
			}
		}
		if lt, ok := l.(Text); ok {
			if rt, ok := r.(Text); ok {
				return plain(lt + rt)
			}
		}
		return fail(diag.Mismatch, span, "+ requires two Numbers or two Texts")
	case "-", "*", "/", "%":
		ln, ok := l.(Number)
		if !ok {
			return fail(diag.Mismatch, span, "%s requires Number operands", op)
		}
		rn, ok := r.(Number)
		if !ok {
			return fail(diag.Mismatch, span, "%s requires Number operands", op)
		}
		switch op {
		case "-":
			return plain(ln - rn)
		case "*":
			return plain(ln * rn)
		case "/":
			if rn == 0 {
				return fail(diag.DivisionByZero, span, "division by zero")
			}
			return plain(ln / rn)
		case "%":
			if rn == 0 {
				return fail(diag.DivisionByZero, span, "division by zero")
			}
			return plain(Number(math.Mod(float64(ln), float64(rn))))
		}
	case "==":
		return plain(Truth(valuesEqual(l, r)))
	case "!=":
		return plain(Truth(!valuesEqual(l, r)))
	case "<", "<=", ">", ">=":
		ln, ok := l.(Number)
		if !ok {
			return fail(diag.Mismatch, span, "%s requires Number operands", op)
		}
		rn, ok := r.(Number)
		if !ok {
			return fail(diag.Mismatch, span, "%s requires Number operands", op)
		}
		switch op {
		case "<":
			return plain(Truth(ln < rn))
		case "<=":
			return plain(Truth(ln <= rn))
		case ">":
			return plain(Truth(ln > rn))
		case ">=":
			return plain(Truth(ln >= rn))
		}
	}
	return fail(diag.Mismatch, span, "unknown operator %s", op)
}

func valuesEqual(l, r Value) bool {
	switch lv := l.(type) {
	case Number:
		rv, ok := r.(Number)
		return ok && lv == rv
	case Text:
		rv, ok := r.(Text)
		return ok && lv == rv
	case Truth:
		rv, ok := r.(Truth)
		return ok && lv == rv
	case Nothing:
		_, ok := r.(Nothing)
		return ok
	case Variant:
		rv, ok := r.(Variant)
		if !ok || lv.CaseName != rv.CaseName || len(lv.Payload) != len(rv.Payload) {
			return false
		}
		for i := range lv.Payload {
			if !valuesEqual(lv.Payload[i], rv.Payload[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (e *Evaluator) evalUnary(u *ast.UnaryExpr, env *Environment) outcome {
	vo := e.eval(u.Value, env)
	if vo.isSignal() {
		return vo
	}
	if _, bad := isErr(vo); bad {
		return vo
	}
	switch u.Op {
	case "-":
		n, ok := vo.Value.(Number)
		if !ok {
			return fail(diag.Mismatch, u.Span, "unary - requires a Number")
		}
		return plain(-n)
	case "not", "!":
		t, ok := vo.Value.(Truth)
		if !ok {
			return fail(diag.Mismatch, u.Span, "unary not requires a Truth value")
		}
		return plain(!t)
	default:
		return fail(diag.Mismatch, u.Span, "unknown unary operator %s", u.Op)
	}
}
