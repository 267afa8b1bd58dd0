// Package evaluator implements the tree-walking interpreter back-end,
// spec.md §4.9: recursive descent over a typed AST, environments chained
// by reference, and typed internal signals for try-propagation, break,
// continue, and return.
package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
)

// ValueKind tags the dynamic type of a runtime Value, checked against the
// statically inferred type by the type-preservation property (spec.md §8).
type ValueKind string

const (
	NumberKind     ValueKind = "Number"
	TextKind       ValueKind = "Text"
	TruthKind      ValueKind = "Truth"
	NothingKind    ValueKind = "Nothing"
	SequenceKind   ValueKind = "Sequence"
	MappingKind    ValueKind = "Mapping"
	RecordKind     ValueKind = "Record"
	VariantKind    ValueKind = "Variant"
	ClosureKind    ValueKind = "Closure"
	NativeKind     ValueKind = "Native"
	ReferenceKind  ValueKind = "Reference"
	CapabilityKind ValueKind = "Capability"
	IteratorKind   ValueKind = "Iterator"
)

// Value is the interface every runtime value implements.
type Value interface {
	Kind() ValueKind
	Inspect() string
}

type Number float64

func (n Number) Kind() ValueKind { return NumberKind }
func (n Number) Inspect() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }

type Text string

func (t Text) Kind() ValueKind { return TextKind }
func (t Text) Inspect() string { return string(t) }

type Truth bool

func (b Truth) Kind() ValueKind { return TruthKind }
func (b Truth) Inspect() string { return strconv.FormatBool(bool(b)) }

type Nothing struct{}

func (Nothing) Kind() ValueKind { return NothingKind }
func (Nothing) Inspect() string { return "nothing" }

// Sequence is a mutable-length ordered value; Slots is shared by reference
// across copies made via an owning move (the slice header is copied, the
// backing array is not), matching the borrow checker's ownership model.
type Sequence struct{ Slots *[]Value }

func NewSequence(vs []Value) Sequence { return Sequence{Slots: &vs} }
func (s Sequence) Kind() ValueKind    { return SequenceKind }
func (s Sequence) Inspect() string {
	parts := make([]string, len(*s.Slots))
	for i, v := range *s.Slots {
		parts[i] = v.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type Mapping struct{ Entries *map[Value]Value }

func (m Mapping) Kind() ValueKind { return MappingKind }
func (m Mapping) Inspect() string { return fmt.Sprintf("Map(%d entries)", len(*m.Entries)) }

// Record is a nominal struct value; Fields is shared by reference so
// moving a Record (re-binding it under a new owner) preserves field
// mutation visibility only through an explicit borrow, never implicitly.
type Record struct {
	TypeName string
	Fields   map[string]Value
}

func (r Record) Kind() ValueKind { return RecordKind }
func (r Record) Inspect() string {
	parts := make([]string, 0, len(r.Fields))
	for k, v := range r.Fields {
		parts = append(parts, k+": "+v.Inspect())
	}
	return r.TypeName + "{" + strings.Join(parts, ", ") + "}"
}

// Variant is a tagged-union value: one case name plus its ordered payload.
type Variant struct {
	Owner    string
	CaseName string
	Payload  []Value
}

func (v Variant) Kind() ValueKind { return VariantKind }
func (v Variant) Inspect() string {
	parts := make([]string, len(v.Payload))
	for i, p := range v.Payload {
		parts[i] = p.Inspect()
	}
	return v.CaseName + "(" + strings.Join(parts, ", ") + ")"
}

// Reference is a borrowed-reference runtime value: a pointer into the
// owner's environment slot, so writes through an exclusive borrow are
// visible to the owner. It carries no ownership semantics at runtime —
// those are enforced entirely at compile time by internal/borrow.
type Reference struct {
	Slot    *Slot
	Mutable bool
}

func (r Reference) Kind() ValueKind { return ReferenceKind }
func (r Reference) Inspect() string { return "&" + r.Slot.Value.Inspect() }

// Capability is an opaque unforgeable token minted by a native function
// and checked by CAPABILITY-DENIED-raising natives before granting access
// to a restricted resource (spec.md §3 Types, §7).
type Capability struct {
	ID    uuid.UUID
	Scope string
}

func (c Capability) Kind() ValueKind { return CapabilityKind }
func (c Capability) Inspect() string { return "capability(" + c.Scope + ")" }

func NewCapability(scope string) Capability {
	return Capability{ID: uuid.New(), Scope: scope}
}

// Iterator is mutable, single-owner, non-restartable state: once Next
// reports Done, every subsequent call also reports Done (spec.md §8 Open
// Questions).
type Iterator struct {
	next func() (Value, bool)
	done bool
}

func (it *Iterator) Kind() ValueKind { return IteratorKind }
func (it *Iterator) Inspect() string { return "iterator" }

// Next advances the iterator, returning (value, true) if one was produced
// or (Nothing{}, false) once exhausted.
func (it *Iterator) Next() (Value, bool) {
	if it.done {
		return Nothing{}, false
	}
	v, ok := it.next()
	if !ok {
		it.done = true
		return Nothing{}, false
	}
	return v, true
}

func NewSequenceIterator(seq Sequence) *Iterator {
	i := 0
	return &Iterator{next: func() (Value, bool) {
		slots := *seq.Slots
		if i >= len(slots) {
			return nil, false
		}
		v := slots[i]
		i++
		return v, true
	}}
}

// Closure is a function value: its definition plus the environment it was
// created in, captured by reference per spec.md §4.9.
type Closure struct {
	Def *ast.FunctionDef
	Env *Environment
}

func (c *Closure) Kind() ValueKind { return ClosureKind }
func (c *Closure) Inspect() string {
	if c.Def.Name != nil {
		return "function " + c.Def.Name.Name
	}
	return "lambda"
}

// Native is a host-provided function; natives receive already-evaluated
// arguments and return a value or a RuntimeError.
type Native struct {
	Name string
	Fn   func(args []Value) (Value, *RuntimeError)
}

func (n *Native) Kind() ValueKind { return NativeKind }
func (n *Native) Inspect() string { return "native " + n.Name }

// RuntimeError is a tagged runtime failure carrying the instruction/
// expression's source span; it aborts the current execution (spec.md §7
// propagation policy — runtime errors always abort).
type RuntimeError struct {
	Tag     diag.Tag
	Span    diag.Span
	Message string
}

func (e *RuntimeError) Error() string { return string(e.Tag) + ": " + e.Message }
