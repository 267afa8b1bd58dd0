package vm

import "github.com/veylang/veyl/internal/evaluator"

// Closure is the VM's function value: a chunk plus the upvalue slots it
// closed over at creation time. It satisfies evaluator.Value so VM and
// tree-walking values can sit side by side in a shared native-function
// table (internal/backend).
type Closure struct {
	Chunk    *Chunk
	Upvalues []*evaluator.Slot
}

func (c *Closure) Kind() evaluator.ValueKind { return evaluator.ClosureKind }
func (c *Closure) Inspect() string           { return "function " + c.Chunk.Name }

// recordMeta and variantMeta live in a chunk's constant pool so
// OpMakeRecord/OpMakeVariant can carry a type name and ordered field/case
// names without widening the instruction layout.
type recordMeta struct {
	TypeName string
	Fields   []string
}

func (recordMeta) Kind() evaluator.ValueKind { return "" }
func (m recordMeta) Inspect() string         { return "record-meta(" + m.TypeName + ")" }

type variantMeta struct {
	Owner    string
	CaseName string
}

func (variantMeta) Kind() evaluator.ValueKind { return "" }
func (m variantMeta) Inspect() string         { return "variant-meta(" + m.CaseName + ")" }

type fieldMeta struct{ Name string }

func (fieldMeta) Kind() evaluator.ValueKind { return "" }
func (m fieldMeta) Inspect() string         { return "field-meta(" + m.Name + ")" }
