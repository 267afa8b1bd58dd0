package ast

import "github.com/veylang/veyl/internal/diag"

// TypeExpr is a syntactic type annotation, as written by the user. It is
// distinct from typesystem.Type, which is the inference engine's internal
// representation produced by elaborating a TypeExpr (or inferring one from
// scratch when absent).
type TypeExpr interface {
	Node
	typeExprNode()
}

// NamedType is a bare or generic-applied nominal type: `Number`,
// `List<T>`, `Outcome<T, E>`.
type NamedType struct {
	Name string
	Args []TypeExpr
	Span diag.Span
}

func (t *NamedType) GetSpan() diag.Span { return t.Span }
func (t *NamedType) String() string     { return t.Name }
func (t *NamedType) typeExprNode()      {}

// FunctionType is `(A, B) -> C`.
type FunctionType struct {
	Params []TypeExpr
	Result TypeExpr
	Span   diag.Span
}

func (t *FunctionType) GetSpan() diag.Span { return t.Span }
func (t *FunctionType) String() string     { return "(...) -> ..." }
func (t *FunctionType) typeExprNode()      {}

// ReferenceType is `borrow 'a T` or `borrow-mut T`.
type ReferenceType struct {
	Lifetime string // "" if elided
	Mutable  bool
	Referent TypeExpr
	Span     diag.Span
}

func (t *ReferenceType) GetSpan() diag.Span { return t.Span }
func (t *ReferenceType) String() string     { return "borrow " + t.Referent.String() }
func (t *ReferenceType) typeExprNode()      {}
