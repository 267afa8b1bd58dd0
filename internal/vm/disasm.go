package vm

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

var opNames = map[Opcode]string{
	OpLoadConst: "LOAD_CONST", OpMove: "MOVE",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpNeg: "NEG", OpNot: "NOT", OpConcat: "CONCAT",
	OpEq: "EQ", OpNeq: "NEQ", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
	OpMakeSequence: "MAKE_SEQUENCE", OpIndexLoad: "INDEX_LOAD", OpIndexStore: "INDEX_STORE", OpLength: "LENGTH",
	OpMakeRecord: "MAKE_RECORD", OpFieldLoad: "FIELD_LOAD", OpFieldStore: "FIELD_STORE",
	OpMakeVariant: "MAKE_VARIANT", OpTagTest: "TAG_TEST", OpPayloadExtract: "PAYLOAD_EXTRACT",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE",
	OpCall: "CALL", OpTailCall: "TAIL_CALL", OpReturn: "RETURN",
	OpMakeClosure: "MAKE_CLOSURE", OpGetUpvalue: "GET_UPVALUE", OpSetUpvalue: "SET_UPVALUE",
	OpNativeCall: "NATIVE_CALL", OpHalt: "HALT",
}

// Disassemble renders chunk as human-readable text: one instruction per
// line plus a summary of its size, used by a host's debug/trace tooling
// rather than by the VM itself.
func Disassemble(c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "chunk %s (%s code, %d constant(s), %d register(s))\n",
		c.Name, humanize.Bytes(uint64(len(c.Code)*sizeofInstr)), len(c.Constants), c.NumRegisters)
	for i, in := range c.Code {
		name := opNames[in.Op]
		if name == "" {
			name = fmt.Sprintf("OP(%d)", in.Op)
		}
		fmt.Fprintf(&b, "%6d  %-16s A=%d B=%d C=%d", i, name, in.A, in.B, in.C)
		if in.Const >= 0 {
			fmt.Fprintf(&b, " const=%d", in.Const)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

const sizeofInstr = 20 // four int32 fields, for disassembly size reporting only
