package analyzer

import (
	"strings"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/typesystem"
)

// inferMatch infers a match expression and performs exhaustiveness /
// unreachable-arm checking per spec.md §4.4: the arm set is accepted iff
// every reachable value of the scrutinee's type is matched by some arm.
func (a *Analyzer) inferMatch(m *ast.MatchExpr) typesystem.Type {
	scrutType := a.infer(m.Scrutinee)
	resultType := a.fresh.Fresh()

	seenCases := map[string]bool{}
	catchAllSeen := false

	for _, arm := range m.Arms {
		if catchAllSeen {
			a.errorf(diag.UnreachableArm, arm.Span, "arm is unreachable: a previous catch-all arm already matches every remaining value")
		}
		a.env.Push()
		a.bindPattern(arm.Pattern, scrutType, false)
		a.constrainPatternAgainstScrutinee(arm.Pattern, scrutType)
		bodyT := a.infer(arm.Body)
		a.env.Pop()
		a.unify(arm.Span, bodyT, resultType)

		switch pat := arm.Pattern.(type) {
		case *ast.WildcardPattern, *ast.BindingPattern:
			catchAllSeen = true
		case *ast.VariantPattern:
			seenCases[pat.CaseName.Name] = true
		}
	}

	if !catchAllSeen {
		if variant, ok := typesystem.Materialize(scrutType, a.uf).(typesystem.Variant); ok {
			info, known := a.registry.Variants[variant.Name]
			if known {
				var missing []string
				for _, c := range info.CaseOrder {
					if !seenCases[c] {
						missing = append(missing, c)
					}
				}
				if len(missing) > 0 {
					a.errorf(diag.IncompleteMatch, m.Span,
						"match is not exhaustive: missing case(s) "+strings.Join(missing, ", "))
				}
			}
		}
	}

	return a.record(m, resultType)
}

// constrainPatternAgainstScrutinee unifies a literal pattern's type with
// the scrutinee, so e.g. matching a Number scrutinee against a Text
// literal pattern is a MISMATCH rather than silently accepted.
func (a *Analyzer) constrainPatternAgainstScrutinee(p ast.Pattern, scrutinee typesystem.Type) {
	if lp, ok := p.(*ast.LiteralPattern); ok {
		a.unify(lp.Span, a.infer(lp.Value), scrutinee)
	}
}

// inferTry implements the postfix try-propagation operator: legal only
// inside a function whose return type is a failure-carrying variant
// (spec.md §4.4); on the success case it unwraps to the Triumph payload.
func (a *Analyzer) inferTry(t *ast.TryExpr) typesystem.Type {
	valT := a.infer(t.Value)
	if a.currentFailureType == nil {
		a.errorf(diag.PropagatedFailure, t.Span, "try operator ? used outside a function returning a failure variant")
		return a.record(t, typesystem.Unknown)
	}
	fail := *a.currentFailureType
	a.unify(t.Span, valT, typesystem.Variant{Name: fail.Name, Args: fail.Args, Cases: fail.Cases})
	// The propagated failure payload must unify with the enclosing
	// function's own failure payload type (spec.md §4.4).
	enclosingMishap := fail.Cases["Mishap"]
	scrutMishap := fail.Cases["Mishap"]
	for i := range enclosingMishap {
		a.unify(t.Span, scrutMishap[i], enclosingMishap[i])
	}
	triumphPayloads := fail.Cases["Triumph"]
	if len(triumphPayloads) == 1 {
		return a.record(t, triumphPayloads[0])
	}
	return a.record(t, typesystem.Nothing)
}

// inferTryHandler infers a guarded body with error-tag-selected handlers.
func (a *Analyzer) inferTryHandler(th *ast.TryHandlerExpr) typesystem.Type {
	bodyT := a.inferBlock(th.Body)
	resultType := a.fresh.Fresh()
	a.unify(th.Span, bodyT, resultType)
	for _, h := range th.Handlers {
		a.env.Push()
		if h.Pattern != nil {
			a.bindPattern(h.Pattern, a.fresh.Fresh(), false)
		}
		handlerT := a.inferBlock(h.Body)
		a.env.Pop()
		a.unify(h.Span, handlerT, resultType)
	}
	return a.record(th, resultType)
}
