package analyzer

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/typesystem"
)

// inferCall implements spec.md §4.3's Call rule: the callee's type is
// constrained to `arg-types -> fresh-return`.
func (a *Analyzer) inferCall(c *ast.Call) typesystem.Type {
	if id, ok := c.Callee.(*ast.Identifier); ok && id.Name == "__list__" {
		return a.inferListLiteral(c)
	}
	if id, ok := c.Callee.(*ast.Identifier); ok {
		if owner, isCase := a.registry.CaseOwner[id.Name]; isCase {
			ctor := &ast.VariantConstructorApp{CaseName: id, Args: c.Args, Span: c.Span}
			_ = owner
			return a.inferVariantCtor(ctor)
		}
	}

	calleeT := a.infer(c.Callee)
	argTypes := make([]typesystem.Type, len(c.Args))
	for i, arg := range c.Args {
		argTypes[i] = a.infer(arg)
	}
	ret := a.fresh.Fresh()
	a.unify(c.Span, calleeT, typesystem.Function{Params: argTypes, Result: ret})
	return a.record(c, ret)
}

func (a *Analyzer) inferListLiteral(c *ast.Call) typesystem.Type {
	elem := a.fresh.Fresh()
	for _, arg := range c.Args {
		at := a.infer(arg)
		a.unify(arg.GetSpan(), at, elem)
	}
	return a.record(c, typesystem.Sequence{Elem: elem})
}

func (a *Analyzer) inferVariantCtor(v *ast.VariantConstructorApp) typesystem.Type {
	owner, ok := a.registry.CaseOwner[v.CaseName.Name]
	if !ok {
		a.errorf(diag.Undefined, v.Span, "undefined variant case "+v.CaseName.Name)
		return a.record(v, typesystem.Unknown)
	}
	info := a.registry.Variants[owner]
	payloads := info.Cases[v.CaseName.Name]
	if len(payloads) != len(v.Args) {
		a.errorf(diag.ArityMismatch, v.Span, "case "+v.CaseName.Name+" expects "+itoa(len(payloads))+" argument(s)")
	}
	// Fresh-instantiate the variant's own type parameters for this use,
	// the same instantiation mechanism as a let-bound scheme.
	sub := typesystem.Subst{}
	for _, fv := range freeVarsOfCases(info.Cases) {
		sub[fv] = a.fresh.Fresh()
	}
	for i, arg := range v.Args {
		if i >= len(payloads) {
			a.infer(arg)
			continue
		}
		at := a.infer(arg)
		a.unify(arg.GetSpan(), at, payloads[i].Apply(sub))
	}
	cases := make(map[string][]typesystem.Type, len(info.Cases))
	for k, ps := range info.Cases {
		np := make([]typesystem.Type, len(ps))
		for i, p := range ps {
			np[i] = p.Apply(sub)
		}
		cases[k] = np
	}
	args := []typesystem.Type{}
	seen := map[string]bool{}
	for _, fv := range freeVarsOfCases(info.Cases) {
		if !seen[fv] {
			seen[fv] = true
			args = append(args, sub[fv])
		}
	}
	return a.record(v, typesystem.Variant{Name: owner, Args: args, Cases: cases})
}

func freeVarsOfCases(cases map[string][]typesystem.Type) []string {
	seen := map[string]bool{}
	var out []string
	for _, payloads := range cases {
		for _, p := range payloads {
			for _, fv := range p.FreeVars() {
				if !seen[fv] {
					seen[fv] = true
					out = append(out, fv)
				}
			}
		}
	}
	return out
}

func (a *Analyzer) inferRecordLiteral(r *ast.RecordLiteral) typesystem.Type {
	rec, ok := a.registry.Records[r.TypeName.Name]
	if !ok {
		a.errorf(diag.Undefined, r.Span, "undefined record type "+r.TypeName.Name)
		return a.record(r, typesystem.Unknown)
	}
	for _, fi := range r.Fields {
		declared, ok := rec.Fields[fi.Name.Name]
		if !ok {
			a.errorf(diag.MissingField, r.Span, "no field "+fi.Name.Name+" on "+r.TypeName.Name)
			a.infer(fi.Value)
			continue
		}
		vt := a.infer(fi.Value)
		a.unify(fi.Value.GetSpan(), vt, declared)
	}
	return a.record(r, typesystem.Record{Name: r.TypeName.Name, Fields: rec.Fields})
}

func (a *Analyzer) inferImplMethods(impl *ast.InterfaceImpl) {
	for _, m := range impl.Methods {
		a.inferFunctionDecl(m.Fn)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
