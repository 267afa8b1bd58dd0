// Package ast defines the immutable tree produced by the parser. Every
// node carries a span; nodes are never mutated in place once built —
// per-pass annotations (inferred types, ownership states, ...) live in
// side-tables keyed by node identity (see internal/analyzer, internal/borrow).
package ast

import (
	"fmt"

	"github.com/veylang/veyl/internal/diag"
)

// Node is the base interface for all AST nodes.
type Node interface {
	GetSpan() diag.Span
	String() string
}

// Expr is a Node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a Node used in a block's statement list.
type Stmt interface {
	Node
	stmtNode()
}

// BorrowMode classifies how a function parameter receives its argument.
type BorrowMode int

const (
	Owned BorrowMode = iota
	Borrowed
	BorrowedMut
)

func (b BorrowMode) String() string {
	switch b {
	case Borrowed:
		return "borrow"
	case BorrowedMut:
		return "borrow-mut"
	default:
		return "owned"
	}
}

// ---- Program ----

// Program is the root of a parsed file.
type Program struct {
	File    string
	Module  *ModuleDef // nil for a top-level script file
	Imports []*ImportDirective
	Stmts   []Stmt
	Span    diag.Span
}

func (p *Program) GetSpan() diag.Span { return p.Span }
func (p *Program) String() string     { return fmt.Sprintf("Program(%s)", p.File) }

// ---- Literals ----

type NumberLit struct {
	Value float64
	Span  diag.Span
}

func (n *NumberLit) GetSpan() diag.Span { return n.Span }
func (n *NumberLit) String() string     { return fmt.Sprintf("%g", n.Value) }
func (n *NumberLit) exprNode()          {}

type TextLit struct {
	Value string
	Span  diag.Span
}

func (t *TextLit) GetSpan() diag.Span { return t.Span }
func (t *TextLit) String() string     { return fmt.Sprintf("%q", t.Value) }
func (t *TextLit) exprNode()          {}

type TruthLit struct {
	Value bool
	Span  diag.Span
}

func (t *TruthLit) GetSpan() diag.Span { return t.Span }
func (t *TruthLit) String() string     { return fmt.Sprintf("%v", t.Value) }
func (t *TruthLit) exprNode()          {}

type NothingLit struct {
	Span diag.Span
}

func (n *NothingLit) GetSpan() diag.Span { return n.Span }
func (n *NothingLit) String() string     { return "nothing" }
func (n *NothingLit) exprNode()          {}

// ---- Identifiers ----

type Identifier struct {
	Name string
	Span diag.Span
}

func (i *Identifier) GetSpan() diag.Span { return i.Span }
func (i *Identifier) String() string     { return i.Name }
func (i *Identifier) exprNode()          {}

// QualifiedIdentifier is a Module.member access.
type QualifiedIdentifier struct {
	Module *Identifier
	Member *Identifier
	Span   diag.Span
}

func (q *QualifiedIdentifier) GetSpan() diag.Span { return q.Span }
func (q *QualifiedIdentifier) String() string     { return q.Module.Name + "." + q.Member.Name }
func (q *QualifiedIdentifier) exprNode()          {}

// ---- Bindings / assignment ----

type Binding struct {
	Name           *Identifier
	Mutable        bool
	Pattern        Pattern // non-nil for a destructuring let, mutually exclusive with Name
	TypeAnnotation TypeExpr
	Value          Expr
	Span           diag.Span
}

func (b *Binding) GetSpan() diag.Span { return b.Span }
func (b *Binding) String() string     { return "let " + b.Name.Name }
func (b *Binding) stmtNode()          {}

type Assignment struct {
	Target Expr // Identifier or field/index access
	Value  Expr
	Span   diag.Span
}

func (a *Assignment) GetSpan() diag.Span { return a.Span }
func (a *Assignment) String() string     { return a.Target.String() + " := " + a.Value.String() }
func (a *Assignment) stmtNode()          {}
func (a *Assignment) exprNode()          {}

// ExprStmt wraps an expression used for its side effect/value in a block.
type ExprStmt struct {
	X    Expr
	Span diag.Span
}

func (e *ExprStmt) GetSpan() diag.Span { return e.Span }
func (e *ExprStmt) String() string     { return e.X.String() }
func (e *ExprStmt) stmtNode()          {}

// ---- Block ----

// Block is an ordered statement sequence; its value is the value of its
// last expression statement (or Nothing if empty / the last statement is
// not an expression).
type Block struct {
	Stmts []Stmt
	Span  diag.Span
}

func (b *Block) GetSpan() diag.Span { return b.Span }
func (b *Block) String() string     { return "{ ... }" }
func (b *Block) exprNode()          {}

// ---- Control flow ----

type Conditional struct {
	Cond  Expr
	Then  *Block
	Else  Node // *Block or *Conditional (else-if chain), nil if absent
	Span  diag.Span
}

func (c *Conditional) GetSpan() diag.Span { return c.Span }
func (c *Conditional) String() string     { return "if " + c.Cond.String() }
func (c *Conditional) exprNode()          {}

// BoundedLoop iterates a binding name over an iterable expression.
type BoundedLoop struct {
	Var      *Identifier
	Iterable Expr
	Body     *Block
	Span     diag.Span
}

func (f *BoundedLoop) GetSpan() diag.Span { return f.Span }
func (f *BoundedLoop) String() string     { return "for " + f.Var.Name + " in ..." }
func (f *BoundedLoop) exprNode()          {}
func (f *BoundedLoop) stmtNode()          {}

// UnboundedLoop is a condition-guarded loop.
type UnboundedLoop struct {
	Cond Expr
	Body *Block
	Span diag.Span
}

func (w *UnboundedLoop) GetSpan() diag.Span { return w.Span }
func (w *UnboundedLoop) String() string     { return "while " + w.Cond.String() }
func (w *UnboundedLoop) exprNode()          {}
func (w *UnboundedLoop) stmtNode()          {}

type Break struct{ Span diag.Span }

func (b *Break) GetSpan() diag.Span { return b.Span }
func (b *Break) String() string     { return "break" }
func (b *Break) exprNode()          {}
func (b *Break) stmtNode()          {}

type Continue struct{ Span diag.Span }

func (c *Continue) GetSpan() diag.Span { return c.Span }
func (c *Continue) String() string     { return "continue" }
func (c *Continue) exprNode()          {}
func (c *Continue) stmtNode()          {}

// ---- Operators ----

type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Span  diag.Span
}

func (b *BinaryExpr) GetSpan() diag.Span { return b.Span }
func (b *BinaryExpr) String() string     { return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")" }
func (b *BinaryExpr) exprNode()          {}

type UnaryExpr struct {
	Op    string
	Value Expr
	Span  diag.Span
}

func (u *UnaryExpr) GetSpan() diag.Span { return u.Span }
func (u *UnaryExpr) String() string     { return u.Op + u.Value.String() }
func (u *UnaryExpr) exprNode()          {}

// PipelineExpr threads Left as the first argument of the call on Right.
type PipelineExpr struct {
	Left  Expr
	Right Expr // must resolve to a Call after desugaring
	Span  diag.Span
}

func (p *PipelineExpr) GetSpan() diag.Span { return p.Span }
func (p *PipelineExpr) String() string     { return p.Left.String() + " |> " + p.Right.String() }
func (p *PipelineExpr) exprNode()          {}

// BorrowExpr is the explicit `borrow x` / `borrow-mut x` expression form
// used at call sites to create a shared or exclusive borrow of an owner.
type BorrowExpr struct {
	Mode  BorrowMode
	Value Expr
	Span  diag.Span
}

func (b *BorrowExpr) GetSpan() diag.Span { return b.Span }
func (b *BorrowExpr) String() string     { return b.Mode.String() + " " + b.Value.String() }
func (b *BorrowExpr) exprNode()          {}

// TryExpr is the postfix `?` operator.
type TryExpr struct {
	Value Expr
	Span  diag.Span
}

func (t *TryExpr) GetSpan() diag.Span { return t.Span }
func (t *TryExpr) String() string     { return t.Value.String() + "?" }
func (t *TryExpr) exprNode()          {}

// TryHandlerExpr is a guarded body with failure-tag-selected handlers.
type TryHandlerExpr struct {
	Body     *Block
	Handlers []*Handler
	Span     diag.Span
}

type Handler struct {
	CaseName string // matched failure-variant case, "" for catch-all
	Pattern  Pattern
	Body     *Block
	Span     diag.Span
}

func (t *TryHandlerExpr) GetSpan() diag.Span { return t.Span }
func (t *TryHandlerExpr) String() string     { return "try { ... }" }
func (t *TryHandlerExpr) exprNode()          {}
