package analyzer

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/symbols"
	"github.com/veylang/veyl/internal/typesystem"
)

// inferFunctionDecl handles a named `function f(...) { ... }` statement:
// parameters become fresh variables (refined by annotations), the body is
// inferred in a fresh scope with self bound for recursion, and the
// return type is constrained to the body's type (spec.md §4.3).
func (a *Analyzer) inferFunctionDecl(f *ast.FunctionDef) typesystem.Type {
	fnType := a.inferFunctionShared(f)
	if f.Name != nil {
		envFree := symbols.EnvFreeVars(a.currentSchemes(), a.uf)
		scheme := typesystem.Generalize(fnType, envFree, a.uf)
		if _, dup := a.env.LookupLocal(f.Name.Name); dup {
			a.errorf(diag.DuplicateDefinition, f.Span, "redefinition of "+f.Name.Name)
		}
		a.env.Define(f.Name.Name, &symbols.BindingInfo{Scheme: scheme, Span: f.Span})
	}
	a.record(f, fnType)
	return fnType
}

// inferLambda handles an anonymous function used as an expression.
func (a *Analyzer) inferLambda(f *ast.FunctionDef) typesystem.Type {
	t := a.inferFunctionShared(f)
	return a.record(f, t)
}

func (a *Analyzer) inferFunctionShared(f *ast.FunctionDef) typesystem.Type {
	tparams := a.typeParamScope(f.TypeParams)

	a.env.Push()
	defer a.env.Pop()

	// Bind self for recursive calls before the body is inferred, using a
	// fresh variable that later unifies with the constructed function
	// type — this lets a self-recursive call's argument/return types
	// flow into the same inference variables as every other call site.
	selfType := a.fresh.Fresh()
	if f.Name != nil {
		a.env.Define(f.Name.Name, &symbols.BindingInfo{Scheme: typesystem.Scheme{Body: selfType}, Span: f.Span})
	}

	paramTypes := make([]typesystem.Type, len(f.Params))
	for i, p := range f.Params {
		var pt typesystem.Type
		if p.Type != nil {
			pt = a.elaborateTypeExpr(p.Type, tparams)
		} else {
			pt = a.fresh.Fresh()
		}
		if p.Mode != ast.Owned {
			pt = typesystem.Reference{Lifetime: p.Lifetime, Mutable: p.Mode == ast.BorrowedMut, Referent: pt}
		}
		paramTypes[i] = pt
		a.env.Define(p.Name.Name, &symbols.BindingInfo{Scheme: typesystem.Scheme{Body: pt}, Mutable: false, Mode: p.Mode, Span: p.Span})
	}

	// Try-propagation is only legal inside a function whose return type is
	// a failure-carrying variant (spec.md §4.4); push/pop that context.
	prevFailure := a.currentFailureType
	var declaredReturn typesystem.Type
	if f.ReturnType != nil {
		declaredReturn = a.elaborateTypeExpr(f.ReturnType, tparams)
		if v, ok := declaredReturn.(typesystem.Variant); ok && len(v.Cases) == 2 {
			if _, hasT := v.Cases["Triumph"]; hasT {
				if _, hasM := v.Cases["Mishap"]; hasM {
					a.currentFailureType = &v
				}
			}
		}
	}

	bodyType := a.inferBlock(f.Body)
	if declaredReturn != nil {
		a.unify(f.Span, bodyType, declaredReturn)
	}
	a.currentFailureType = prevFailure

	fnType := typesystem.Function{Params: paramTypes, Result: bodyType}
	a.unify(f.Span, selfType, fnType)
	if f.Name != nil {
		a.retTypes[f] = typesystem.Materialize(fnType.Result, a.uf)
	}
	return fnType
}

// bindPattern introduces every name a pattern captures into the current
// scope, given the (already-unified) scrutinee type.
func (a *Analyzer) bindPattern(p ast.Pattern, scrutinee typesystem.Type, mutable bool) {
	switch pat := p.(type) {
	case *ast.BindingPattern:
		a.env.Define(pat.Name.Name, &symbols.BindingInfo{Scheme: typesystem.Scheme{Body: scrutinee}, Mutable: mutable, Span: pat.Span})
	case *ast.WildcardPattern, *ast.LiteralPattern:
		// no bindings
	case *ast.VariantPattern:
		owner, ok := a.registry.CaseOwner[pat.CaseName.Name]
		if !ok {
			a.errorf(diag.Undefined, pat.Span, "undefined variant case "+pat.CaseName.Name)
			return
		}
		info := a.registry.Variants[owner]
		payloads := info.Cases[pat.CaseName.Name]
		variant, ok := typesystem.Materialize(scrutinee, a.uf).(typesystem.Variant)
		sub := typesystem.Subst{}
		if ok {
			for i, fv := range freeVarsOfCases(info.Cases) {
				if i < len(variant.Args) {
					sub[fv] = variant.Args[i]
				}
			}
		}
		for i, sp := range pat.SubPats {
			if i >= len(payloads) {
				continue
			}
			a.bindPattern(sp, payloads[i].Apply(sub), mutable)
		}
	case *ast.RecordPattern:
		rt, ok := typesystem.Materialize(scrutinee, a.uf).(typesystem.Record)
		for _, fp := range pat.Fields {
			var ft typesystem.Type = typesystem.Unknown
			if ok {
				if declared, found := rt.Fields[fp.Name.Name]; found {
					ft = declared
				}
			}
			a.bindPattern(fp.SubPat, ft, mutable)
		}
	}
}
