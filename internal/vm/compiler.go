package vm

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/evaluator"
	"github.com/veylang/veyl/internal/symbols"
)

// scope is one lexical block's name-to-register bindings within a single
// function compilation.
type scope struct {
	regs   map[string]int32
	parent *scope
}

// funcCompiler compiles one function body (or the top-level program,
// treated as a zero-parameter function) into a single Chunk. Nested
// lambdas get their own funcCompiler linked back through parent so free
// variables can be resolved as upvalues.
type funcCompiler struct {
	chunk    *Chunk
	scope    *scope
	parent   *funcCompiler
	registry *symbols.TypeRegistry
	errors   *[]diag.Diagnostic
	inLoop    bool
	breaks    []int // patch sites for break jumps in the innermost loop
	continues []int // patch sites for continue jumps in the innermost loop
}

// Compile lowers a monomorphized, checked program into a single entry
// chunk. Every top-level function definition is compiled as a named
// global closure constant; the program's remaining top-level statements
// become the entry chunk's body, matching a script's implicit main.
func Compile(prog *ast.Program, registry *symbols.TypeRegistry) (*Chunk, []diag.Diagnostic) {
	var errs []diag.Diagnostic
	fc := &funcCompiler{
		chunk:    newChunk("<main>"),
		scope:    &scope{regs: map[string]int32{}},
		registry: registry,
		errors:   &errs,
	}
	for _, s := range prog.Stmts {
		fc.compileStmt(s)
	}
	fc.emit(Instr{Op: OpHalt, Const: -1}, diag.Span{})
	return fc.chunk, errs
}

func (fc *funcCompiler) errorf(tag diag.Tag, span diag.Span, msg string) {
	*fc.errors = append(*fc.errors, diag.New(tag, span, msg))
}

func (fc *funcCompiler) emit(in Instr, span diag.Span) int {
	return fc.chunk.emit(in, span)
}

func (fc *funcCompiler) alloc() int32 {
	r := fc.chunk.NumRegisters
	fc.chunk.NumRegisters++
	return r
}

func (fc *funcCompiler) pushScope()  { fc.scope = &scope{regs: map[string]int32{}, parent: fc.scope} }
func (fc *funcCompiler) popScope()   { fc.scope = fc.scope.parent }

func (fc *funcCompiler) define(name string) int32 {
	r := fc.alloc()
	fc.scope.regs[name] = r
	return r
}

// resolveLocal walks this function's own scope chain only.
func (fc *funcCompiler) resolveLocal(name string) (int32, bool) {
	for s := fc.scope; s != nil; s = s.parent {
		if r, ok := s.regs[name]; ok {
			return r, true
		}
	}
	return 0, false
}

// resolveUpvalue finds name in an enclosing function, recording the
// capture chain as upvalue descriptors along the way, per spec.md
// §4.10.2's upvalue-descriptor scheme.
func (fc *funcCompiler) resolveUpvalue(name string) (int32, bool) {
	if fc.parent == nil {
		return 0, false
	}
	if r, ok := fc.parent.resolveLocal(name); ok {
		return fc.addUpvalue(UpvalueSource{FromParentLocal: true, Index: r}), true
	}
	if idx, ok := fc.parent.resolveUpvalue(name); ok {
		return fc.addUpvalue(UpvalueSource{FromParentLocal: false, Index: idx}), true
	}
	return 0, false
}

// boundElsewhere reports whether name resolves as a local or upvalue
// somewhere in the enclosing function chain, without registering an
// upvalue descriptor as resolveUpvalue would. Used to distinguish a call
// to a user-defined closure from a call to a host native, which the
// instruction set dispatches differently (OpCall vs OpNativeCall).
func (fc *funcCompiler) boundElsewhere(name string) bool {
	if _, ok := fc.resolveLocal(name); ok {
		return true
	}
	if fc.parent == nil {
		return false
	}
	return fc.parent.boundElsewhere(name)
}

func (fc *funcCompiler) addUpvalue(src UpvalueSource) int32 {
	for i, u := range fc.chunk.Upvalues {
		if u == src {
			return int32(i)
		}
	}
	fc.chunk.Upvalues = append(fc.chunk.Upvalues, src)
	return int32(len(fc.chunk.Upvalues) - 1)
}

func (fc *funcCompiler) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Binding:
		r := fc.compileExpr(n.Value)
		if n.Name != nil {
			dst := fc.define(n.Name.Name)
			fc.emit(Instr{Op: OpMove, A: dst, B: r}, n.Span)
		}
	case *ast.Assignment:
		fc.compileAssignment(n)
	case *ast.ExprStmt:
		fc.compileExpr(n.X)
	case *ast.FunctionDef:
		if n.Name != nil {
			r := fc.compileLambda(n)
			dst := fc.define(n.Name.Name)
			fc.emit(Instr{Op: OpMove, A: dst, B: r}, n.Span)
		}
	case *ast.RecordDef, *ast.VariantDef, *ast.InterfaceDef, *ast.ImportDirective:
		// declarations only; no instructions
	case *ast.InterfaceImpl:
		// methods are compiled lazily as ordinary closures at call sites
		// in this back-end; nothing to emit for the impl block itself.
	case *ast.Break:
		fc.breaks = append(fc.breaks, fc.emit(Instr{Op: OpJump}, n.Span))
	case *ast.Continue:
		fc.continues = append(fc.continues, fc.emit(Instr{Op: OpJump}, n.Span))
	default:
		if e, ok := s.(ast.Expr); ok {
			fc.compileExpr(e)
		}
	}
}

func (fc *funcCompiler) compileAssignment(a *ast.Assignment) {
	rhs := fc.compileExpr(a.Value)
	switch target := a.Target.(type) {
	case *ast.Identifier:
		if r, ok := fc.resolveLocal(target.Name); ok {
			fc.emit(Instr{Op: OpMove, A: r, B: rhs}, a.Span)
			return
		}
		if idx, ok := fc.resolveUpvalue(target.Name); ok {
			fc.emit(Instr{Op: OpSetUpvalue, A: rhs, B: idx}, a.Span)
			return
		}
		fc.errorf(diag.Undefined, a.Span, "undefined name "+target.Name)
	case *ast.FieldAccess:
		recv := fc.compileExpr(target.Receiver)
		nameConst := fc.chunk.addConstant(fieldMeta{Name: target.Field.Name})
		fc.emit(Instr{Op: OpFieldStore, A: recv, C: rhs, Const: nameConst}, a.Span)
	case *ast.IndexAccess:
		recv := fc.compileExpr(target.Receiver)
		idx := fc.compileExpr(target.Index)
		fc.emit(Instr{Op: OpIndexStore, A: recv, B: idx, C: rhs}, a.Span)
	}
}

// compileExpr compiles an expression and returns the register holding
// its value.
func (fc *funcCompiler) compileExpr(e ast.Expr) int32 {
	switch n := e.(type) {
	case *ast.NumberLit:
		return fc.loadConst(evaluator.Number(n.Value), n.Span)
	case *ast.TextLit:
		return fc.loadConst(evaluator.Text(n.Value), n.Span)
	case *ast.TruthLit:
		return fc.loadConst(evaluator.Truth(n.Value), n.Span)
	case *ast.NothingLit:
		return fc.loadConst(evaluator.Nothing{}, n.Span)
	case *ast.Identifier:
		if r, ok := fc.resolveLocal(n.Name); ok {
			return r
		}
		if idx, ok := fc.resolveUpvalue(n.Name); ok {
			dst := fc.alloc()
			fc.emit(Instr{Op: OpGetUpvalue, A: dst, B: idx}, n.Span)
			return dst
		}
		fc.errorf(diag.Undefined, n.Span, "undefined name "+n.Name)
		return fc.loadConst(evaluator.Nothing{}, n.Span)
	case *ast.Block:
		return fc.compileBlock(n)
	case *ast.Conditional:
		return fc.compileConditional(n)
	case *ast.BinaryExpr:
		return fc.compileBinary(n)
	case *ast.UnaryExpr:
		return fc.compileUnary(n)
	case *ast.PipelineExpr:
		call, ok := n.Right.(*ast.Call)
		if !ok {
			fc.errorf(diag.Mismatch, n.Span, "pipeline target is not a call")
			return fc.loadConst(evaluator.Nothing{}, n.Span)
		}
		return fc.compileCall(&ast.Call{Callee: call.Callee, Args: append([]ast.Expr{n.Left}, call.Args...), Span: n.Span}, false)
	case *ast.BorrowExpr:
		return fc.compileExpr(n.Value)
	case *ast.TryExpr:
		return fc.compileTry(n)
	case *ast.Call:
		return fc.compileCall(n, false)
	case *ast.FunctionDef:
		return fc.compileLambda(n)
	case *ast.RecordLiteral:
		return fc.compileRecordLiteral(n)
	case *ast.VariantConstructorApp:
		return fc.compileVariantCtor(n)
	case *ast.FieldAccess:
		recv := fc.compileExpr(n.Receiver)
		dst := fc.alloc()
		c := fc.chunk.addConstant(fieldMeta{Name: n.Field.Name})
		fc.emit(Instr{Op: OpFieldLoad, A: dst, B: recv, Const: c}, n.Span)
		return dst
	case *ast.IndexAccess:
		recv := fc.compileExpr(n.Receiver)
		idx := fc.compileExpr(n.Index)
		dst := fc.alloc()
		fc.emit(Instr{Op: OpIndexLoad, A: dst, B: recv, C: idx}, n.Span)
		return dst
	case *ast.MatchExpr:
		return fc.compileMatch(n)
	case *ast.BoundedLoop:
		return fc.compileBoundedLoop(n)
	case *ast.UnboundedLoop:
		return fc.compileUnboundedLoop(n)
	case *ast.Assignment:
		fc.compileAssignment(n)
		return fc.compileExpr(n.Target)
	default:
		fc.errorf(diag.Mismatch, e.GetSpan(), "unsupported expression in compiled code")
		return fc.loadConst(evaluator.Nothing{}, e.GetSpan())
	}
}

func (fc *funcCompiler) loadConst(v evaluator.Value, span diag.Span) int32 {
	dst := fc.alloc()
	c := fc.chunk.addConstant(v)
	fc.emit(Instr{Op: OpLoadConst, A: dst, Const: c}, span)
	return dst
}

func (fc *funcCompiler) compileBlock(b *ast.Block) int32 {
	return fc.compileBlockMaybeTail(b, false)
}

// compileBlockMaybeTail compiles b, compiling its trailing expression (if
// any) as a tail expression when tail is set — the only place a function
// body's final value can turn into a genuine tail call.
func (fc *funcCompiler) compileBlockMaybeTail(b *ast.Block, tail bool) int32 {
	fc.pushScope()
	defer fc.popScope()
	var last int32 = -1
	for i, s := range b.Stmts {
		if es, ok := s.(*ast.ExprStmt); ok {
			if tail && i == len(b.Stmts)-1 {
				last = fc.compileTailExpr(es.X)
			} else {
				last = fc.compileExpr(es.X)
			}
			continue
		}
		fc.compileStmt(s)
		last = -1
	}
	if last == -1 {
		return fc.loadConst(evaluator.Nothing{}, b.Span)
	}
	return last
}

// compileTailExpr compiles e knowing its value is returned directly by
// the enclosing function, without any further computation applied to it.
// A Call in this position compiles to OpTailCall instead of OpCall; the
// handful of control-flow forms that can still end in a call (Conditional,
// MatchExpr, a nested Block) propagate tail position into their branches.
func (fc *funcCompiler) compileTailExpr(e ast.Expr) int32 {
	switch n := e.(type) {
	case *ast.Call:
		return fc.compileCall(n, true)
	case *ast.Conditional:
		return fc.compileConditionalGen(n, true)
	case *ast.MatchExpr:
		return fc.compileMatchGen(n, true)
	case *ast.Block:
		return fc.compileBlockMaybeTail(n, true)
	case *ast.PipelineExpr:
		call, ok := n.Right.(*ast.Call)
		if !ok {
			return fc.compileExpr(e)
		}
		return fc.compileCall(&ast.Call{Callee: call.Callee, Args: append([]ast.Expr{n.Left}, call.Args...), Span: n.Span}, true)
	default:
		return fc.compileExpr(e)
	}
}

func (fc *funcCompiler) compileConditional(c *ast.Conditional) int32 {
	return fc.compileConditionalGen(c, false)
}

func (fc *funcCompiler) compileConditionalGen(c *ast.Conditional, tail bool) int32 {
	cond := fc.compileExpr(c.Cond)
	result := fc.alloc()
	jumpToElse := fc.emit(Instr{Op: OpJumpIfFalse, A: cond}, c.Span)
	thenReg := fc.compileBlockMaybeTail(c.Then, tail)
	fc.emit(Instr{Op: OpMove, A: result, B: thenReg}, c.Span)
	jumpToEnd := fc.emit(Instr{Op: OpJump}, c.Span)
	fc.patchJump(jumpToElse)
	switch elseNode := c.Else.(type) {
	case *ast.Block:
		elseReg := fc.compileBlockMaybeTail(elseNode, tail)
		fc.emit(Instr{Op: OpMove, A: result, B: elseReg}, c.Span)
	case *ast.Conditional:
		elseReg := fc.compileConditionalGen(elseNode, tail)
		fc.emit(Instr{Op: OpMove, A: result, B: elseReg}, c.Span)
	default:
		nothing := fc.loadConst(evaluator.Nothing{}, c.Span)
		fc.emit(Instr{Op: OpMove, A: result, B: nothing}, c.Span)
	}
	fc.patchJump(jumpToEnd)
	return result
}

// patchJump backfills a jump emitted at index idx so it lands on the
// instruction immediately following the current end of the chunk.
func (fc *funcCompiler) patchJump(idx int) {
	fc.patchJumpTo(idx, len(fc.chunk.Code))
}

// patchJumpTo backfills the jump at idx to land on instruction target,
// used when the landing point isn't simply "here" (a continue jump lands
// on the loop's re-test or increment step, not the jump site itself).
func (fc *funcCompiler) patchJumpTo(idx int, target int) {
	offset := int32(target) - int32(idx) - 1
	fc.chunk.Code[idx].B = offset
}

func (fc *funcCompiler) compileUnboundedLoop(w *ast.UnboundedLoop) int32 {
	savedBreaks, savedContinues := fc.breaks, fc.continues
	fc.breaks, fc.continues = nil, nil
	start := len(fc.chunk.Code)
	cond := fc.compileExpr(w.Cond)
	exitJump := fc.emit(Instr{Op: OpJumpIfFalse, A: cond}, w.Span)
	fc.compileBlock(w.Body)
	// continue re-checks the condition, same as falling off the body.
	for _, c := range fc.continues {
		fc.patchJumpTo(c, start)
	}
	backOffset := int32(start) - int32(len(fc.chunk.Code)) - 1
	fc.emit(Instr{Op: OpJump, B: backOffset}, w.Span)
	fc.patchJump(exitJump)
	for _, b := range fc.breaks {
		fc.patchJump(b)
	}
	fc.breaks, fc.continues = savedBreaks, savedContinues
	return fc.loadConst(evaluator.Nothing{}, w.Span)
}

// compileBoundedLoop lowers `for x in seq { ... }` using length/index
// rather than a runtime iterator object, since sequences are the only
// statically known iterable at this back-end's compile time.
func (fc *funcCompiler) compileBoundedLoop(lp *ast.BoundedLoop) int32 {
	savedBreaks, savedContinues := fc.breaks, fc.continues
	fc.breaks, fc.continues = nil, nil
	seq := fc.compileExpr(lp.Iterable)
	length := fc.alloc()
	fc.emit(Instr{Op: OpLength, A: length, B: seq}, lp.Span)
	idx := fc.loadConst(evaluator.Number(0), lp.Span)
	one := fc.loadConst(evaluator.Number(1), lp.Span)

	start := len(fc.chunk.Code)
	cmp := fc.alloc()
	fc.emit(Instr{Op: OpLt, A: cmp, B: idx, C: length}, lp.Span)
	exitJump := fc.emit(Instr{Op: OpJumpIfFalse, A: cmp}, lp.Span)

	fc.pushScope()
	item := fc.define(lp.Var.Name)
	fc.emit(Instr{Op: OpIndexLoad, A: item, B: seq, C: idx}, lp.Span)
	fc.compileBlock(lp.Body)
	fc.popScope()

	// continue jumps here: still increments the index before re-testing.
	incrAt := len(fc.chunk.Code)
	for _, c := range fc.continues {
		fc.patchJumpTo(c, incrAt)
	}
	fc.emit(Instr{Op: OpAdd, A: idx, B: idx, C: one}, lp.Span)
	backOffset := int32(start) - int32(len(fc.chunk.Code)) - 1
	fc.emit(Instr{Op: OpJump, B: backOffset}, lp.Span)
	fc.patchJump(exitJump)
	for _, b := range fc.breaks {
		fc.patchJump(b)
	}
	fc.breaks, fc.continues = savedBreaks, savedContinues
	return fc.loadConst(evaluator.Nothing{}, lp.Span)
}

func (fc *funcCompiler) compileBinary(b *ast.BinaryExpr) int32 {
	if b.Op == "and" || b.Op == "or" || b.Op == "&&" || b.Op == "||" {
		// Short-circuit: compile as a conditional rather than an
		// unconditional pair-evaluate, matching the evaluator's semantics.
		l := fc.compileExpr(b.Left)
		result := fc.alloc()
		fc.emit(Instr{Op: OpMove, A: result, B: l}, b.Span)
		var skip int
		if b.Op == "and" || b.Op == "&&" {
			skip = fc.emit(Instr{Op: OpJumpIfFalse, A: l}, b.Span)
		} else {
			notL := fc.alloc()
			fc.emit(Instr{Op: OpNot, A: notL, B: l}, b.Span)
			skip = fc.emit(Instr{Op: OpJumpIfFalse, A: notL}, b.Span)
		}
		r := fc.compileExpr(b.Right)
		fc.emit(Instr{Op: OpMove, A: result, B: r}, b.Span)
		fc.patchJump(skip)
		return result
	}
	l := fc.compileExpr(b.Left)
	r := fc.compileExpr(b.Right)
	dst := fc.alloc()
	op, ok := binOp[b.Op]
	if !ok {
		fc.errorf(diag.Mismatch, b.Span, "unknown operator "+b.Op)
		return dst
	}
	fc.emit(Instr{Op: op, A: dst, B: l, C: r}, b.Span)
	return dst
}

var binOp = map[string]Opcode{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv,
	"==": OpEq, "!=": OpNeq, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
}

func (fc *funcCompiler) compileUnary(u *ast.UnaryExpr) int32 {
	v := fc.compileExpr(u.Value)
	dst := fc.alloc()
	switch u.Op {
	case "-":
		fc.emit(Instr{Op: OpNeg, A: dst, B: v}, u.Span)
	case "not", "!":
		fc.emit(Instr{Op: OpNot, A: dst, B: v}, u.Span)
	default:
		fc.errorf(diag.Mismatch, u.Span, "unknown unary operator "+u.Op)
	}
	return dst
}

func (fc *funcCompiler) compileTry(t *ast.TryExpr) int32 {
	v := fc.compileExpr(t.Value)
	isTriumph := fc.alloc()
	c := fc.chunk.addConstant(variantMeta{Owner: "Outcome", CaseName: "Triumph"})
	fc.emit(Instr{Op: OpTagTest, A: isTriumph, B: v, Const: c}, t.Span)
	jumpIfTriumph := fc.emit(Instr{Op: OpJumpIfFalse, A: isTriumph}, t.Span)
	// Triumph: extract payload 0 and fall through past the early return.
	dst := fc.alloc()
	fc.emit(Instr{Op: OpPayloadExtract, A: dst, B: v, C: 0}, t.Span)
	skipReturn := fc.emit(Instr{Op: OpJump}, t.Span)
	fc.patchJump(jumpIfTriumph)
	fc.emit(Instr{Op: OpReturn, A: v}, t.Span)
	fc.patchJump(skipReturn)
	return dst
}

func (fc *funcCompiler) contiguous(regs []int32, span diag.Span) int32 {
	if len(regs) == 0 {
		return fc.alloc()
	}
	base := fc.alloc()
	fc.emit(Instr{Op: OpMove, A: base, B: regs[0]}, span)
	for _, r := range regs[1:] {
		slot := fc.alloc()
		fc.emit(Instr{Op: OpMove, A: slot, B: r}, span)
	}
	return base
}

func (fc *funcCompiler) compileRecordLiteral(r *ast.RecordLiteral) int32 {
	regs := make([]int32, len(r.Fields))
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		regs[i] = fc.compileExpr(f.Value)
		names[i] = f.Name.Name
	}
	base := fc.contiguous(regs, r.Span)
	dst := fc.alloc()
	c := fc.chunk.addConstant(recordMeta{TypeName: r.TypeName.Name, Fields: names})
	fc.emit(Instr{Op: OpMakeRecord, A: dst, B: base, C: int32(len(r.Fields)), Const: c}, r.Span)
	return dst
}

func (fc *funcCompiler) compileVariantCtor(v *ast.VariantConstructorApp) int32 {
	owner := v.CaseName.Name
	if fc.registry != nil {
		if o, ok := fc.registry.CaseOwner[v.CaseName.Name]; ok {
			owner = o
		}
	}
	regs := make([]int32, len(v.Args))
	for i, a := range v.Args {
		regs[i] = fc.compileExpr(a)
	}
	base := fc.contiguous(regs, v.Span)
	dst := fc.alloc()
	c := fc.chunk.addConstant(variantMeta{Owner: owner, CaseName: v.CaseName.Name})
	fc.emit(Instr{Op: OpMakeVariant, A: dst, B: base, C: int32(len(v.Args)), Const: c}, v.Span)
	return dst
}

func (fc *funcCompiler) compileMatch(m *ast.MatchExpr) int32 {
	return fc.compileMatchGen(m, false)
}

func (fc *funcCompiler) compileMatchGen(m *ast.MatchExpr, tail bool) int32 {
	scrutinee := fc.compileExpr(m.Scrutinee)
	result := fc.alloc()
	var endJumps []int
	for i, arm := range m.Arms {
		fc.pushScope()
		ok, bindings := fc.compilePatternTest(arm.Pattern, scrutinee, arm.Span)
		var failJump int
		hasFailJump := false
		if ok >= 0 {
			failJump = fc.emit(Instr{Op: OpJumpIfFalse, A: ok}, arm.Span)
			hasFailJump = true
		}
		for name, reg := range bindings {
			fc.scope.regs[name] = reg
		}
		var bodyReg int32
		if tail {
			bodyReg = fc.compileTailExpr(arm.Body)
		} else {
			bodyReg = fc.compileExpr(arm.Body)
		}
		fc.emit(Instr{Op: OpMove, A: result, B: bodyReg}, arm.Span)
		if i < len(m.Arms)-1 {
			endJumps = append(endJumps, fc.emit(Instr{Op: OpJump}, arm.Span))
		}
		if hasFailJump {
			fc.patchJump(failJump)
		}
		fc.popScope()
	}
	for _, j := range endJumps {
		fc.patchJump(j)
	}
	return result
}

// compilePatternTest emits the instructions testing whether scrutinee
// matches pat, returning the register holding the boolean test result
// (-1 for an irrefutable pattern) and any bindings the pattern introduces.
func (fc *funcCompiler) compilePatternTest(pat ast.Pattern, scrutinee int32, span diag.Span) (int32, map[string]int32) {
	bindings := map[string]int32{}
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return -1, bindings
	case *ast.BindingPattern:
		bindings[p.Name.Name] = scrutinee
		return -1, bindings
	case *ast.VariantPattern:
		owner := p.CaseName.Name
		if fc.registry != nil {
			if o, ok := fc.registry.CaseOwner[p.CaseName.Name]; ok {
				owner = o
			}
		}
		result := fc.alloc()
		c := fc.chunk.addConstant(variantMeta{Owner: owner, CaseName: p.CaseName.Name})
		fc.emit(Instr{Op: OpTagTest, A: result, B: scrutinee, Const: c}, span)
		for i, sub := range p.SubPats {
			payload := fc.alloc()
			fc.emit(Instr{Op: OpPayloadExtract, A: payload, B: scrutinee, C: int32(i)}, span)
			_, subBindings := fc.compilePatternTest(sub, payload, span)
			for k, v := range subBindings {
				bindings[k] = v
			}
		}
		return result, bindings
	case *ast.LiteralPattern:
		lit := fc.compileExpr(p.Value)
		result := fc.alloc()
		fc.emit(Instr{Op: OpEq, A: result, B: scrutinee, C: lit}, span)
		return result, bindings
	case *ast.RecordPattern:
		var tests []int32
		for _, f := range p.Fields {
			fieldReg := fc.alloc()
			c := fc.chunk.addConstant(fieldMeta{Name: f.Name.Name})
			fc.emit(Instr{Op: OpFieldLoad, A: fieldReg, B: scrutinee, Const: c}, span)
			test, subBindings := fc.compilePatternTest(f.SubPat, fieldReg, span)
			if test >= 0 {
				tests = append(tests, test)
			}
			for k, v := range subBindings {
				bindings[k] = v
			}
		}
		if len(tests) == 0 {
			return -1, bindings
		}
		return fc.andAll(tests, span), bindings
	default:
		fc.errorf(diag.Mismatch, span, "unsupported pattern in compiled code")
		return -1, bindings
	}
}

// andAll combines several already-computed boolean test registers into
// one conjunction register, used by RecordPattern (whose fields each
// produce their own sub-test) since no single instruction ANDs a
// variable number of registers together.
func (fc *funcCompiler) andAll(tests []int32, span diag.Span) int32 {
	result := fc.alloc()
	trueConst := fc.chunk.addConstant(evaluator.Truth(true))
	falseConst := fc.chunk.addConstant(evaluator.Truth(false))
	fc.emit(Instr{Op: OpLoadConst, A: result, Const: trueConst}, span)
	var failJumps []int
	for _, t := range tests {
		failJumps = append(failJumps, fc.emit(Instr{Op: OpJumpIfFalse, A: t}, span))
	}
	skip := fc.emit(Instr{Op: OpJump}, span)
	for _, j := range failJumps {
		fc.patchJump(j)
	}
	fc.emit(Instr{Op: OpLoadConst, A: result, Const: falseConst}, span)
	fc.patchJump(skip)
	return result
}

// compileLambda compiles f as its own chunk (a nested funcCompiler so
// free variables resolve as upvalues) and emits a make-closure capturing
// them, returning the register holding the resulting closure value.
func (fc *funcCompiler) compileLambda(f *ast.FunctionDef) int32 {
	name := "lambda"
	if f.Name != nil {
		name = f.Name.Name
	}
	inner := &funcCompiler{
		chunk:    newChunk(name),
		scope:    &scope{regs: map[string]int32{}},
		parent:   fc,
		registry: fc.registry,
		errors:   fc.errors,
	}
	for _, p := range f.Params {
		inner.define(p.Name.Name)
	}
	inner.chunk.NumParams = len(f.Params)
	if n := len(f.Params); n > 0 && f.Params[n-1].Variadic {
		inner.chunk.Variadic = true
	}
	bodyReg := inner.compileBlockMaybeTail(f.Body, true)
	inner.emit(Instr{Op: OpReturn, A: bodyReg}, f.Span)

	dst := fc.alloc()
	c := fc.chunk.addConstant(&chunkConstant{inner.chunk})
	fc.emit(Instr{Op: OpMakeClosure, A: dst, Const: c}, f.Span)
	return dst
}

// chunkConstant wraps a nested Chunk so it can sit in the enclosing
// chunk's Constants pool (typed []evaluator.Value) without widening that
// pool's element type.
type chunkConstant struct{ Chunk *Chunk }

func (chunkConstant) Kind() evaluator.ValueKind { return "" }
func (c *chunkConstant) Inspect() string        { return "chunk(" + c.Chunk.Name + ")" }

// compileCall evaluates the callee and every argument first (which may
// each use scratch registers of their own), then copies the results into
// a contiguous [callee, arg0, arg1, ...] block — the calling convention
// OpCall/OpTailCall require — since a linear-scan allocator gives no
// adjacency guarantee across independently compiled sub-expressions.
func (fc *funcCompiler) compileCall(call *ast.Call, tail bool) int32 {
	if id, ok := call.Callee.(*ast.Identifier); ok && !fc.boundElsewhere(id.Name) {
		return fc.compileNativeCall(id.Name, call.Args, call.Span)
	}
	calleeReg := fc.compileExpr(call.Callee)
	argRegs := make([]int32, len(call.Args))
	for i, a := range call.Args {
		argRegs[i] = fc.compileExpr(a)
	}
	base := fc.alloc()
	fc.emit(Instr{Op: OpMove, A: base, B: calleeReg}, call.Span)
	for _, r := range argRegs {
		slot := fc.alloc()
		fc.emit(Instr{Op: OpMove, A: slot, B: r}, call.Span)
	}
	dst := fc.alloc()
	op := OpCall
	if tail {
		op = OpTailCall
	}
	fc.emit(Instr{Op: op, A: dst, B: base, C: int32(len(call.Args))}, call.Span)
	return dst
}

func (fc *funcCompiler) compileNativeCall(name string, args []ast.Expr, span diag.Span) int32 {
	argRegs := make([]int32, len(args))
	for i, a := range args {
		argRegs[i] = fc.compileExpr(a)
	}
	base := fc.contiguous(argRegs, span)
	dst := fc.alloc()
	c := fc.chunk.addConstant(evaluator.Text(name))
	fc.emit(Instr{Op: OpNativeCall, A: dst, B: base, C: int32(len(args)), Const: c}, span)
	return dst
}
