package vm

import (
	"fmt"

	"github.com/petermattis/goid"

	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/evaluator"
)

// frame is one call frame: the chunk being executed, the program counter,
// its register file, and the upvalue slots it closed over (empty for the
// entry chunk). dest is the caller's register that should receive this
// frame's return value; dest is -1 for the bottom frame.
type frame struct {
	chunk     *Chunk
	pc        int
	registers []evaluator.Value
	upvalues  []*evaluator.Slot
	dest      int32
}

// VM executes a compiled Chunk. Per spec.md §5 it is never safe to enter
// concurrently; Run asserts this the same way internal/evaluator does.
type VM struct {
	entry     *Chunk
	natives   map[string]*evaluator.Native
	frames    []*frame
	ownerGoID int64
	hasOwner  bool
}

// New creates a VM ready to execute entry with the given native-function
// table (evaluator.DefaultNatives() supplies the standard prelude).
func New(entry *Chunk, natives map[string]*evaluator.Native) *VM {
	return &VM{entry: entry, natives: natives}
}

func (m *VM) assertSingleGoroutine() {
	id := goid.Get()
	if !m.hasOwner {
		m.ownerGoID = id
		m.hasOwner = true
		return
	}
	if id != m.ownerGoID {
		panic(fmt.Sprintf("vm entered from goroutine %d, owned by %d", id, m.ownerGoID))
	}
}

func newFrame(c *Chunk, upvalues []*evaluator.Slot, dest int32) *frame {
	return &frame{chunk: c, registers: make([]evaluator.Value, c.NumRegisters), upvalues: upvalues, dest: dest}
}

// Run executes the entry chunk to completion: a halt, a return from the
// bottom frame, or a domain error, whichever comes first.
func (m *VM) Run() (evaluator.Value, *evaluator.RuntimeError) {
	m.assertSingleGoroutine()
	m.frames = []*frame{newFrame(m.entry, nil, -1)}
	var last evaluator.Value = Nothing()

	for len(m.frames) > 0 {
		f := m.frames[len(m.frames)-1]
		if f.pc >= len(f.chunk.Code) {
			m.frames = m.frames[:len(m.frames)-1]
			continue
		}
		in := f.chunk.Code[f.pc]
		span := f.chunk.Spans[f.pc]
		f.pc++

		switch in.Op {
		case OpHalt:
			return last, nil

		case OpLoadConst:
			f.registers[in.A] = f.chunk.Constants[in.Const]

		case OpMove:
			f.registers[in.A] = f.registers[in.B]

		case OpAdd, OpSub, OpMul, OpDiv, OpConcat:
			v, rerr := arith(in.Op, f.registers[in.B], f.registers[in.C], span)
			if rerr != nil {
				return nil, rerr
			}
			f.registers[in.A] = v

		case OpNeg:
			n, ok := f.registers[in.B].(evaluator.Number)
			if !ok {
				return nil, rt(diag.Mismatch, span, "unary - requires a Number")
			}
			f.registers[in.A] = -n

		case OpNot:
			t, ok := f.registers[in.B].(evaluator.Truth)
			if !ok {
				return nil, rt(diag.Mismatch, span, "unary not requires a Truth value")
			}
			f.registers[in.A] = !t

		case OpEq:
			f.registers[in.A] = evaluator.Truth(valuesEqual(f.registers[in.B], f.registers[in.C]))
		case OpNeq:
			f.registers[in.A] = evaluator.Truth(!valuesEqual(f.registers[in.B], f.registers[in.C]))
		case OpLt, OpLe, OpGt, OpGe:
			v, rerr := compareOp(in.Op, f.registers[in.B], f.registers[in.C], span)
			if rerr != nil {
				return nil, rerr
			}
			f.registers[in.A] = v

		case OpMakeSequence:
			slots := make([]evaluator.Value, in.C)
			copy(slots, f.registers[in.B:in.B+in.C])
			f.registers[in.A] = evaluator.NewSequence(slots)

		case OpIndexLoad:
			seq, ok := asSequence(f.registers[in.B])
			if !ok {
				return nil, rt(diag.IndexOutOfBounds, span, "index access on a non-sequence value")
			}
			idx, ok := f.registers[in.C].(evaluator.Number)
			if !ok {
				return nil, rt(diag.IndexOutOfBounds, span, "index must be a number")
			}
			i := int(idx)
			slots := *seq.Slots
			if i < 0 || i >= len(slots) {
				return nil, rt(diag.IndexOutOfBounds, span, fmt.Sprintf("index %d out of bounds (length %d)", i, len(slots)))
			}
			f.registers[in.A] = slots[i]

		case OpIndexStore:
			seq, ok := asSequence(f.registers[in.A])
			if !ok {
				return nil, rt(diag.IndexOutOfBounds, span, "index assignment target is not a sequence")
			}
			idx, ok := f.registers[in.B].(evaluator.Number)
			if !ok {
				return nil, rt(diag.IndexOutOfBounds, span, "index must be a number")
			}
			i := int(idx)
			slots := *seq.Slots
			if i < 0 || i >= len(slots) {
				return nil, rt(diag.IndexOutOfBounds, span, fmt.Sprintf("index %d out of bounds (length %d)", i, len(slots)))
			}
			slots[i] = f.registers[in.C]

		case OpLength:
			seq, ok := asSequence(f.registers[in.B])
			if !ok {
				return nil, rt(diag.Mismatch, span, "length expects a Sequence")
			}
			f.registers[in.A] = evaluator.Number(len(*seq.Slots))

		case OpMakeRecord:
			meta := f.chunk.Constants[in.Const].(recordMeta)
			fields := make(map[string]evaluator.Value, in.C)
			for i := int32(0); i < in.C; i++ {
				fields[meta.Fields[i]] = f.registers[in.B+i]
			}
			f.registers[in.A] = evaluator.Record{TypeName: meta.TypeName, Fields: fields}

		case OpFieldLoad:
			rec, ok := asRecord(f.registers[in.B])
			if !ok {
				return nil, rt(diag.MissingField, span, "field access on a non-record value")
			}
			name := f.chunk.Constants[in.Const].(fieldMeta).Name
			v, ok := rec.Fields[name]
			if !ok {
				return nil, rt(diag.MissingField, span, "record has no field "+name)
			}
			f.registers[in.A] = v

		case OpFieldStore:
			rec, ok := asRecord(f.registers[in.A])
			if !ok {
				return nil, rt(diag.MissingField, span, "assignment target is not a record")
			}
			name := f.chunk.Constants[in.Const].(fieldMeta).Name
			rec.Fields[name] = f.registers[in.C]

		case OpMakeVariant:
			meta := f.chunk.Constants[in.Const].(variantMeta)
			payload := make([]evaluator.Value, in.C)
			copy(payload, f.registers[in.B:in.B+in.C])
			f.registers[in.A] = evaluator.Variant{Owner: meta.Owner, CaseName: meta.CaseName, Payload: payload}

		case OpTagTest:
			meta := f.chunk.Constants[in.Const].(variantMeta)
			variant, ok := f.registers[in.B].(evaluator.Variant)
			f.registers[in.A] = evaluator.Truth(ok && variant.CaseName == meta.CaseName)

		case OpPayloadExtract:
			variant, ok := f.registers[in.B].(evaluator.Variant)
			if !ok || int(in.C) >= len(variant.Payload) {
				return nil, rt(diag.Mismatch, span, "payload extract on a non-matching variant")
			}
			f.registers[in.A] = variant.Payload[in.C]

		case OpJump:
			f.pc += int(in.B)

		case OpJumpIfFalse:
			t, ok := f.registers[in.A].(evaluator.Truth)
			if !ok {
				return nil, rt(diag.Mismatch, span, "branch condition did not evaluate to a Truth value")
			}
			if !bool(t) {
				f.pc += int(in.B)
			}

		case OpMakeClosure:
			cc := f.chunk.Constants[in.Const].(*chunkConstant).Chunk
			ups := make([]*evaluator.Slot, len(cc.Upvalues))
			for i, src := range cc.Upvalues {
				if src.FromParentLocal {
					ups[i] = f.slotFor(src.Index)
				} else {
					ups[i] = f.upvalues[src.Index]
				}
			}
			f.registers[in.A] = &Closure{Chunk: cc, Upvalues: ups}

		case OpGetUpvalue:
			f.registers[in.A] = f.upvalues[in.B].Value

		case OpSetUpvalue:
			f.upvalues[in.B].Value = f.registers[in.A]

		case OpCall, OpTailCall:
			callee := f.registers[in.B]
			closure, ok := callee.(*Closure)
			if !ok {
				return nil, rt(diag.Mismatch, span, "value is not callable")
			}
			args := make([]evaluator.Value, in.C)
			copy(args, f.registers[in.B+1:in.B+1+in.C])
			nf := newFrame(closure.Chunk, closure.Upvalues, in.A)
			if closure.Chunk.Variadic && len(args) >= closure.Chunk.NumParams {
				fixed := closure.Chunk.NumParams - 1
				for i := 0; i < fixed && i < len(nf.registers); i++ {
					nf.registers[i] = args[i]
				}
				rest := append([]evaluator.Value{}, args[fixed:]...)
				if fixed >= 0 && fixed < len(nf.registers) {
					nf.registers[fixed] = evaluator.NewSequence(rest)
				}
			} else {
				for i := 0; i < len(args) && i < len(nf.registers); i++ {
					nf.registers[i] = args[i]
				}
			}
			if in.Op == OpTailCall {
				m.frames[len(m.frames)-1] = nf
				nf.dest = f.dest
			} else {
				m.frames = append(m.frames, nf)
			}
			continue

		case OpReturn:
			ret := f.registers[in.A]
			m.frames = m.frames[:len(m.frames)-1]
			if len(m.frames) > 0 {
				caller := m.frames[len(m.frames)-1]
				if f.dest >= 0 {
					caller.registers[f.dest] = ret
				}
			}
			last = ret
			continue

		case OpNativeCall:
			name := string(f.chunk.Constants[in.Const].(evaluator.Text))
			native, ok := m.natives[name]
			if !ok {
				return nil, rt(diag.Undefined, span, "undefined native "+name)
			}
			args := make([]evaluator.Value, in.C)
			if in.C > 0 {
				copy(args, f.registers[in.B:in.B+in.C])
			}
			v, rerr := native.Fn(args)
			if rerr != nil {
				rerr.Span = span
				return nil, rerr
			}
			f.registers[in.A] = v

		default:
			return nil, rt(diag.Mismatch, span, "unknown opcode")
		}
	}
	return last, nil
}

// slotFor wraps register i of f in a Slot so a nested closure can capture
// it by reference; VM registers are plain slices, so this allocates a
// boxed cell the one time a value is actually captured.
func (f *frame) slotFor(i int32) *evaluator.Slot {
	return &evaluator.Slot{Value: f.registers[i], Mutable: true}
}

func Nothing() evaluator.Value { return evaluator.Nothing{} }

func rt(tag diag.Tag, span diag.Span, msg string) *evaluator.RuntimeError {
	return &evaluator.RuntimeError{Tag: tag, Span: span, Message: msg}
}

func asSequence(v evaluator.Value) (evaluator.Sequence, bool) {
	s, ok := v.(evaluator.Sequence)
	return s, ok
}

func asRecord(v evaluator.Value) (evaluator.Record, bool) {
	r, ok := v.(evaluator.Record)
	return r, ok
}

func valuesEqual(l, r evaluator.Value) bool {
	switch lv := l.(type) {
	case evaluator.Number:
		rv, ok := r.(evaluator.Number)
		return ok && lv == rv
	case evaluator.Text:
		rv, ok := r.(evaluator.Text)
		return ok && lv == rv
	case evaluator.Truth:
		rv, ok := r.(evaluator.Truth)
		return ok && lv == rv
	case evaluator.Nothing:
		_, ok := r.(evaluator.Nothing)
		return ok
	case evaluator.Variant:
		rv, ok := r.(evaluator.Variant)
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

func arith(op Opcode, l, r evaluator.Value, span diag.Span) (evaluator.Value, *evaluator.RuntimeError) {
	if op == OpAdd || op == OpConcat {
		if ln, ok := l.(evaluator.Number); ok {
			if rn, ok := r.(evaluator.Number); ok {
				return ln + rn, nil
			}
		}
		if lt, ok := l.(evaluator.Text); ok {
			if rt2, ok := r.(evaluator.Text); ok {
				return lt + rt2, nil
			}
		}
		return nil, rt(diag.Mismatch, span, "+ requires two Numbers or two Texts")
	}
	ln, ok := l.(evaluator.Number)
	if !ok {
		return nil, rt(diag.Mismatch, span, "arithmetic requires Number operands")
	}
	rn, ok := r.(evaluator.Number)
	if !ok {
		return nil, rt(diag.Mismatch, span, "arithmetic requires Number operands")
	}
	switch op {
	case OpSub:
		return ln - rn, nil
	case OpMul:
		return ln * rn, nil
	case OpDiv:
		if rn == 0 {
			return nil, rt(diag.DivisionByZero, span, "division by zero")
		}
		return ln / rn, nil
	}
	return nil, rt(diag.Mismatch, span, "unknown arithmetic opcode")
}

func compareOp(op Opcode, l, r evaluator.Value, span diag.Span) (evaluator.Value, *evaluator.RuntimeError) {
	ln, ok := l.(evaluator.Number)
	if !ok {
		return nil, rt(diag.Mismatch, span, "comparison requires Number operands")
	}
	rn, ok := r.(evaluator.Number)
	if !ok {
		return nil, rt(diag.Mismatch, span, "comparison requires Number operands")
	}
	switch op {
	case OpLt:
		return evaluator.Truth(ln < rn), nil
	case OpLe:
		return evaluator.Truth(ln <= rn), nil
	case OpGt:
		return evaluator.Truth(ln > rn), nil
	case OpGe:
		return evaluator.Truth(ln >= rn), nil
	}
	return nil, rt(diag.Mismatch, span, "unknown comparison opcode")
}
