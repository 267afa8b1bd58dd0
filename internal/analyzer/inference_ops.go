package analyzer

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/typesystem"
)

// inferBinary implements spec.md §4.3's arithmetic/comparison/`+` rules.
// `+` is polymorphic over Number+Number->Number or Text+Text->Text: the
// two alternatives are disambiguated by whichever operand resolves first;
// implicit Number<->Text coercion is never performed (Design Notes §9).
func (a *Analyzer) inferBinary(b *ast.BinaryExpr) typesystem.Type {
	lt := a.infer(b.Left)
	rt := a.infer(b.Right)

	switch b.Op {
	case "+":
		lr := typesystem.Materialize(lt, a.uf)
		rr := typesystem.Materialize(rt, a.uf)
		if isPrimitive(lr, typesystem.Text) || isPrimitive(rr, typesystem.Text) {
			if isPrimitive(lr, typesystem.Number) || isPrimitive(rr, typesystem.Number) {
				a.errors = append(a.errors, diag.New(diag.Mismatch, b.Span, "+ cannot combine Number and Text").
					WithHint("convert one operand explicitly so both sides have the same type"))
				return a.record(b, typesystem.Unknown)
			}
			a.unify(b.Span, lt, typesystem.Text)
			a.unify(b.Span, rt, typesystem.Text)
			return a.record(b, typesystem.Text)
		}
		// Defaults to Number until either side resolves to Text; if both
		// sides later resolve to incompatible primitives, Harmonize raises
		// MISMATCH rather than silently coercing.
		a.unify(b.Span, lt, typesystem.Number)
		a.unify(b.Span, rt, typesystem.Number)
		return a.record(b, typesystem.Number)

	case "-", "*", "/", "%":
		a.unify(b.Span, lt, typesystem.Number)
		a.unify(b.Span, rt, typesystem.Number)
		return a.record(b, typesystem.Number)

	case "==", "!=":
		a.unify(b.Span, lt, rt)
		return a.record(b, typesystem.Truth)

	case "<", ">", "<=", ">=", "is", "is-not", "at-most", "at-least":
		a.unify(b.Span, lt, typesystem.Number)
		a.unify(b.Span, rt, typesystem.Number)
		return a.record(b, typesystem.Truth)

	case "&&", "||":
		a.unify(b.Span, lt, typesystem.Truth)
		a.unify(b.Span, rt, typesystem.Truth)
		return a.record(b, typesystem.Truth)
	}

	a.errorf(diag.Mismatch, b.Span, "unknown operator "+b.Op)
	return a.record(b, typesystem.Unknown)
}

func isPrimitive(t typesystem.Type, p typesystem.Primitive) bool {
	got, ok := t.(typesystem.Primitive)
	return ok && got == p
}

func (a *Analyzer) inferFieldAccess(f *ast.FieldAccess) typesystem.Type {
	recvT := typesystem.Materialize(a.infer(f.Receiver), a.uf)
	rec, ok := recvT.(typesystem.Record)
	if !ok {
		// Receiver type not yet resolved to a concrete record (still a
		// variable): return a fresh variable and let a later pass, or the
		// module resolver's qualified-access check, settle it.
		return a.record(f, a.fresh.Fresh())
	}
	ft, ok := rec.Fields[f.Field.Name]
	if !ok {
		a.errorf(diag.MissingField, f.Span, "no field "+f.Field.Name+" on "+rec.Name)
		return a.record(f, typesystem.Unknown)
	}
	return a.record(f, ft)
}

func (a *Analyzer) inferIndexAccess(idx *ast.IndexAccess) typesystem.Type {
	recvT := a.infer(idx.Receiver)
	indexT := a.infer(idx.Index)
	a.unify(idx.Index.GetSpan(), indexT, typesystem.Number)
	elem := a.fresh.Fresh()
	a.unify(idx.Span, recvT, typesystem.Sequence{Elem: elem})
	return a.record(idx, elem)
}
