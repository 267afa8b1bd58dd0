// Package vm implements the register-based bytecode compiler and virtual
// machine back-end, spec.md §4.10: an alternative to the tree-walking
// evaluator that trades interpretive overhead for an explicit register
// file and a linear instruction stream.
package vm

import (
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/evaluator"
)

// Opcode identifies one VM instruction. Every instruction has the same
// fixed layout (three register operands plus a constant-pool index) so
// the dispatch loop never needs variable-length decoding.
type Opcode byte

const (
	OpLoadConst Opcode = iota // R[A] = Constants[Const]
	OpMove                    // R[A] = R[B]
	OpAdd                     // R[A] = R[B] + R[C]
	OpSub                     // R[A] = R[B] - R[C]
	OpMul                     // R[A] = R[B] * R[C]
	OpDiv                     // R[A] = R[B] / R[C]
	OpNeg                     // R[A] = -R[B]
	OpNot                     // R[A] = !R[B]
	OpConcat                  // R[A] = R[B] ++ R[C] (text concatenation)
	OpEq                      // R[A] = R[B] == R[C]
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe

	OpMakeSequence   // R[A] = sequence of R[B]..R[B+C-1]
	OpIndexLoad      // R[A] = R[B][R[C]]
	OpIndexStore     // R[A][R[B]] = R[C]
	OpLength         // R[A] = length(R[B])
	OpMakeRecord     // R[A] = record Constants[Const].(typeName) with C field regs starting at B, names in Constants
	OpFieldLoad      // R[A] = R[B].field, field name is Constants[Const]
	OpFieldStore     // R[A].field = R[C], field name is Constants[Const]
	OpMakeVariant    // R[A] = variant case Constants[Const] with C payload regs starting at B
	OpTagTest        // R[A] = (R[B] is case Constants[Const])
	OpPayloadExtract // R[A] = R[B].payload[C]

	OpJump        // pc += signed(B)
	OpJumpIfFalse // if !truthy(R[A]) { pc += signed(B) }

	OpCall        // R[A] = call R[B] with C args starting at B+1
	OpTailCall    // tail-call R[B] with C args starting at B+1, reusing this frame
	OpReturn      // return R[A]
	OpMakeClosure // R[A] = closure over chunk Constants[Const], capturing upvalue descriptors
	OpGetUpvalue  // R[A] = Upvalues[B]
	OpSetUpvalue  // Upvalues[B] = R[A]
	OpNativeCall  // R[A] = native Constants[Const] with C args starting at B
	OpHalt
)

// Instr is one fixed-layout instruction.
type Instr struct {
	Op    Opcode
	A, B, C int32
	Const int32 // constant-pool index, -1 if unused
}

// UpvalueSource describes where a closure's Nth upvalue comes from when
// the closure is created: either a register in the immediately enclosing
// frame, or an upvalue already captured by that enclosing frame.
type UpvalueSource struct {
	FromParentLocal bool
	Index           int32
}

// Chunk is one compiled function body: its instruction stream, constant
// pool, and the upvalue descriptors a make-closure instruction needs when
// this chunk itself is the closure body.
type Chunk struct {
	Name         string
	Code         []Instr
	Constants    []evaluator.Value
	Spans        []diag.Span // parallel to Code
	NumRegisters int32
	NumParams    int
	Variadic     bool // last param packs any extra trailing args into a Sequence
	Upvalues     []UpvalueSource
}

func newChunk(name string) *Chunk {
	return &Chunk{Name: name}
}

func (c *Chunk) emit(in Instr, span diag.Span) int {
	c.Code = append(c.Code, in)
	c.Spans = append(c.Spans, span)
	return len(c.Code) - 1
}

func (c *Chunk) addConstant(v evaluator.Value) int32 {
	c.Constants = append(c.Constants, v)
	return int32(len(c.Constants) - 1)
}
