package analyzer

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/symbols"
	"github.com/veylang/veyl/internal/typesystem"
)

// registerDeclarations does a shallow first pass over top-level
// statements, entering every record/variant/interface name into its
// registry so forward references (a function defined before a type it
// uses) resolve during the second, full inference pass.
func (a *Analyzer) registerDeclarations(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		switch d := stmt.(type) {
		case *ast.RecordDef:
			a.registerRecord(d)
		case *ast.VariantDef:
			a.registerVariant(d)
		case *ast.InterfaceDef:
			a.registerInterface(d)
		}
	}
	// impls and function defs reference the above, so they're elaborated
	// in a second sub-pass once every nominal name is known.
	for _, stmt := range stmts {
		if impl, ok := stmt.(*ast.InterfaceImpl); ok {
			a.registerImpl(impl)
		}
	}
}

func (a *Analyzer) typeParamScope(names []string) map[string]typesystem.TVar {
	scope := make(map[string]typesystem.TVar, len(names))
	for _, n := range names {
		scope[n] = typesystem.TVar{Name: "gen_" + n, Rigid: true}
	}
	return scope
}

func (a *Analyzer) registerRecord(d *ast.RecordDef) {
	if _, dup := a.registry.Records[d.Name.Name]; dup {
		a.errorf("DUPLICATE-DEFINITION", d.Span, "record "+d.Name.Name+" already defined")
		return
	}
	tparams := a.typeParamScope(d.TypeParams)
	fields := make(map[string]typesystem.Type, len(d.Fields))
	for _, f := range d.Fields {
		fields[f.Name.Name] = a.elaborateTypeExpr(f.Type, tparams)
	}
	a.registry.Records[d.Name.Name] = &symbols.RecordDefInfo{Def: d, Fields: fields}
}

func (a *Analyzer) registerVariant(d *ast.VariantDef) {
	if _, dup := a.registry.Variants[d.Name.Name]; dup {
		a.errorf("DUPLICATE-DEFINITION", d.Span, "variant "+d.Name.Name+" already defined")
		return
	}
	tparams := a.typeParamScope(d.TypeParams)
	cases := make(map[string][]typesystem.Type, len(d.Cases))
	var order []string
	for _, c := range d.Cases {
		payloads := make([]typesystem.Type, len(c.Payloads))
		for i, p := range c.Payloads {
			payloads[i] = a.elaborateTypeExpr(p, tparams)
		}
		cases[c.Name.Name] = payloads
		order = append(order, c.Name.Name)
		if owner, dup := a.registry.CaseOwner[c.Name.Name]; dup && owner != d.Name.Name {
			a.errorf("DUPLICATE-DEFINITION", c.Span, "case "+c.Name.Name+" already defined on "+owner)
		}
		a.registry.CaseOwner[c.Name.Name] = d.Name.Name
	}
	a.registry.Variants[d.Name.Name] = &symbols.VariantDefInfo{Def: d, Cases: cases, CaseOrder: order}
}

func (a *Analyzer) registerInterface(d *ast.InterfaceDef) {
	if _, dup := a.traits.Interfaces[d.Name.Name]; dup {
		a.errorf("DUPLICATE-DEFINITION", d.Span, "interface "+d.Name.Name+" already defined")
		return
	}
	methods := make(map[string]*ast.MethodSig, len(d.Methods))
	for _, m := range d.Methods {
		methods[m.Name.Name] = m
	}
	a.traits.Interfaces[d.Name.Name] = &symbols.InterfaceInfo{Def: d, Methods: methods}
}

func (a *Analyzer) registerImpl(impl *ast.InterfaceImpl) {
	iface, ok := a.traits.Interfaces[impl.InterfaceName.Name]
	if !ok {
		a.errorf("MISSING-METHOD", impl.Span, "unknown interface "+impl.InterfaceName.Name)
		return
	}
	receiverKey := impl.Target.String()
	for name := range iface.Methods {
		found := false
		for _, m := range impl.Methods {
			if m.Name.Name == name {
				found = true
				break
			}
		}
		if !found {
			a.errorf("MISSING-METHOD", impl.Span, "impl of "+impl.InterfaceName.Name+" for "+receiverKey+" is missing method "+name)
		}
	}
	a.traits.AddImpl(impl.InterfaceName.Name, receiverKey, impl)
}

// elaborateTypeExpr converts a syntactic ast.TypeExpr into a typesystem.Type,
// resolving generic-parameter names against tparams and nominal names
// against the record/variant registries.
func (a *Analyzer) elaborateTypeExpr(t ast.TypeExpr, tparams map[string]typesystem.TVar) typesystem.Type {
	if t == nil {
		return a.fresh.Fresh()
	}
	switch te := t.(type) {
	case *ast.NamedType:
		if tv, ok := tparams[te.Name]; ok {
			return tv
		}
		switch te.Name {
		case "Number":
			return typesystem.Number
		case "Text":
			return typesystem.Text
		case "Truth":
			return typesystem.Truth
		case "Nothing":
			return typesystem.Nothing
		case "Range":
			return typesystem.RangeType
		case "Capability":
			return typesystem.Capability
		case "List":
			if len(te.Args) == 1 {
				return typesystem.Sequence{Elem: a.elaborateTypeExpr(te.Args[0], tparams)}
			}
		case "Map":
			if len(te.Args) == 2 {
				return typesystem.Mapping{Key: a.elaborateTypeExpr(te.Args[0], tparams), Value: a.elaborateTypeExpr(te.Args[1], tparams)}
			}
		}
		if rec, ok := a.registry.Records[te.Name]; ok {
			args := make([]typesystem.Type, len(te.Args))
			for i, ta := range te.Args {
				args[i] = a.elaborateTypeExpr(ta, tparams)
			}
			return typesystem.Record{Name: te.Name, Args: args, Fields: rec.Fields}
		}
		if v, ok := a.registry.Variants[te.Name]; ok {
			args := make([]typesystem.Type, len(te.Args))
			for i, ta := range te.Args {
				args[i] = a.elaborateTypeExpr(ta, tparams)
			}
			return typesystem.Variant{Name: te.Name, Args: args, Cases: v.Cases}
		}
		// Forward reference to a not-yet-registered nominal type, or a
		// genuinely free-standing generic placeholder used without
		// declaration: treat as a rigid type variable named after it.
		return typesystem.TVar{Name: "gen_" + te.Name, Rigid: true}
	case *ast.FunctionType:
		params := make([]typesystem.Type, len(te.Params))
		for i, p := range te.Params {
			params[i] = a.elaborateTypeExpr(p, tparams)
		}
		return typesystem.Function{Params: params, Result: a.elaborateTypeExpr(te.Result, tparams)}
	case *ast.ReferenceType:
		return typesystem.Reference{Lifetime: te.Lifetime, Mutable: te.Mutable, Referent: a.elaborateTypeExpr(te.Referent, tparams)}
	}
	return typesystem.Unknown
}
