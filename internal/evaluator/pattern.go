package evaluator

import "github.com/veylang/veyl/internal/ast"

// matchPattern tests whether pat matches v, accumulating any bindings it
// introduces into bindings. It never evaluates expressions itself beyond
// comparing already-evaluated literal patterns, since the scrutinee is
// always fully evaluated before matching begins.
func matchPattern(pat ast.Pattern, v Value, bindings map[string]Value) bool {
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return true
	case *ast.BindingPattern:
		bindings[p.Name.Name] = v
		return true
	case *ast.LiteralPattern:
		return matchLiteral(p.Value, v)
	case *ast.VariantPattern:
		variant, ok := v.(Variant)
		if !ok || variant.CaseName != p.CaseName.Name {
			return false
		}
		if len(p.SubPats) != len(variant.Payload) {
			return false
		}
		for i, sub := range p.SubPats {
			if !matchPattern(sub, variant.Payload[i], bindings) {
				return false
			}
		}
		return true
	case *ast.RecordPattern:
		rec, ok := derefRecord(v)
		if !ok {
			return false
		}
		if p.TypeName != nil && p.TypeName.Name != "" && rec.TypeName != p.TypeName.Name {
			return false
		}
		for _, f := range p.Fields {
			fv, ok := rec.Fields[f.Name.Name]
			if !ok {
				return false
			}
			if !matchPattern(f.SubPat, fv, bindings) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func matchLiteral(lit ast.Expr, v Value) bool {
	switch l := lit.(type) {
	case *ast.NumberLit:
		n, ok := v.(Number)
		return ok && float64(n) == l.Value
	case *ast.TextLit:
		t, ok := v.(Text)
		return ok && string(t) == l.Value
	case *ast.TruthLit:
		b, ok := v.(Truth)
		return ok && bool(b) == l.Value
	default:
		return false
	}
}
