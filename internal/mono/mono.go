// Package mono implements the monomorphizer, the compiler-only pre-pass
// that eliminates generic parameters before bytecode compilation
// (spec.md §4.7). The tree-walking interpreter skips this pass entirely
// and erases type parameters at runtime instead.
package mono

import (
	"fmt"
	"strings"

	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/typesystem"
)

// Result is the specialized, generic-free program plus the mapping from
// original call sites to their chosen specialization, kept for tests and
// for the disassembler to label specialized names back to their origin.
type Result struct {
	Program      *ast.Program
	Specialized  []string // mangled names emitted, in dependency order
	Diagnostics  []diag.Diagnostic
}

type key struct {
	name string
	args string // joined, order-sensitive mangled type argument list; dedup + display only
}

// Monomorphize walks prog once to collect every generic function/record/
// variant definition, a second time to resolve each call/constructor
// site's concrete type arguments and rewrite it to a specialized name,
// then emits one specialized copy per unique (definition, type args) pair.
func Monomorphize(prog *ast.Program, types map[ast.Node]typesystem.Type) *Result {
	c := &collector{
		funcs:    map[string]*ast.FunctionDef{},
		records:  map[string]*ast.RecordDef{},
		variants: map[string]*ast.VariantDef{},
		types:    types,
		needed:   map[key]bool{},
		concrete: map[key][]string{},
		order:    nil,
	}
	for _, s := range prog.Stmts {
		c.collectDecl(s)
	}
	if len(c.funcs) == 0 && len(c.records) == 0 && len(c.variants) == 0 {
		// Nothing generic in the program: identity pass.
		return &Result{Program: prog}
	}

	newStmts := make([]ast.Stmt, 0, len(prog.Stmts))
	for _, s := range prog.Stmts {
		newStmts = append(newStmts, c.rewrite(s))
	}

	specialized := make([]ast.Stmt, 0, len(c.order))
	for _, k := range c.order {
		specialized = append(specialized, c.specialize(k))
	}

	out := &ast.Program{
		File:    prog.File,
		Module:  prog.Module,
		Imports: prog.Imports,
		Span:    prog.Span,
	}
	// Generic definitions are dropped from the output (they have no
	// runtime representation once specialized); everything else plus the
	// specializations, in dependency order, forms the emitted program.
	for _, s := range newStmts {
		if c.isGenericDecl(s) {
			continue
		}
		out.Stmts = append(out.Stmts, s)
	}
	out.Stmts = append(out.Stmts, specialized...)

	names := make([]string, len(c.order))
	for i, k := range c.order {
		names[i] = k.name + "$" + k.args
	}
	return &Result{Program: out, Specialized: names, Diagnostics: c.errors}
}

type collector struct {
	funcs    map[string]*ast.FunctionDef
	records  map[string]*ast.RecordDef
	variants map[string]*ast.VariantDef
	types    map[ast.Node]typesystem.Type
	needed   map[key]bool
	order    []key
	// concrete carries, per registered key, the per-type-parameter
	// concrete type name in declaration order — kept alongside the
	// dedup/display key instead of re-parsed out of its mangled string,
	// since the mangled join separator isn't distinguishable from
	// sanitize's own character substitutions.
	concrete map[key][]string
	errors   []diag.Diagnostic
}

func (c *collector) collectDecl(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.FunctionDef:
		if len(n.TypeParams) > 0 && n.Name != nil {
			c.funcs[n.Name.Name] = n
		}
	case *ast.RecordDef:
		if len(n.TypeParams) > 0 {
			c.records[n.Name.Name] = n
		}
	case *ast.VariantDef:
		if len(n.TypeParams) > 0 {
			c.variants[n.Name.Name] = n
		}
	}
}

func (c *collector) isGenericDecl(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.FunctionDef:
		return n.Name != nil && len(n.TypeParams) > 0
	case *ast.RecordDef:
		return len(n.TypeParams) > 0
	case *ast.VariantDef:
		return len(n.TypeParams) > 0
	}
	return false
}

// rewrite deep-walks s, replacing each call/constructor site that targets
// a generic definition with a reference to its mangled specialization and
// recording that specialization as needed.
func (c *collector) rewrite(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.Binding:
		n.Value = c.rewriteExpr(n.Value)
		return n
	case *ast.Assignment:
		n.Target = c.rewriteExpr(n.Target)
		n.Value = c.rewriteExpr(n.Value)
		return n
	case *ast.ExprStmt:
		n.X = c.rewriteExpr(n.X)
		return n
	case *ast.FunctionDef:
		c.rewriteBlock(n.Body)
		return n
	case *ast.InterfaceImpl:
		for _, m := range n.Methods {
			c.rewriteBlock(m.Fn.Body)
		}
		return n
	default:
		return s
	}
}

func (c *collector) rewriteBlock(b *ast.Block) {
	if b == nil {
		return
	}
	for i, s := range b.Stmts {
		b.Stmts[i] = c.rewrite(s)
	}
}

func (c *collector) rewriteExpr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Call:
		n.Callee = c.rewriteExpr(n.Callee)
		for i, a := range n.Args {
			n.Args[i] = c.rewriteExpr(a)
		}
		if id, ok := n.Callee.(*ast.Identifier); ok {
			if def, isGeneric := c.funcs[id.Name]; isGeneric {
				if mangled, ok := c.bindFunctionCall(def, n); ok {
					n.Callee = &ast.Identifier{Name: mangled, Span: id.Span}
					n.TypeArgs = nil
				}
			}
		}
		return n
	case *ast.VariantConstructorApp:
		for i, a := range n.Args {
			n.Args[i] = c.rewriteExpr(a)
		}
		if owner, def := c.variantOwning(n.CaseName.Name); def != nil {
			if mangled, ok := c.bindVariantCtor(owner, def, n); ok {
				n.CaseName = &ast.Identifier{Name: mangled + "::" + n.CaseName.Name, Span: n.CaseName.Span}
			}
		}
		return n
	case *ast.RecordLiteral:
		for _, fi := range n.Fields {
			fi.Value = c.rewriteExpr(fi.Value)
		}
		if def, isGeneric := c.records[n.TypeName.Name]; isGeneric {
			if mangled, ok := c.bindRecordLiteral(def, n); ok {
				n.TypeName = &ast.Identifier{Name: mangled, Span: n.TypeName.Span}
			}
		}
		return n
	case *ast.BinaryExpr:
		n.Left, n.Right = c.rewriteExpr(n.Left), c.rewriteExpr(n.Right)
		return n
	case *ast.UnaryExpr:
		n.Value = c.rewriteExpr(n.Value)
		return n
	case *ast.PipelineExpr:
		n.Left, n.Right = c.rewriteExpr(n.Left), c.rewriteExpr(n.Right)
		return n
	case *ast.FieldAccess:
		n.Receiver = c.rewriteExpr(n.Receiver)
		return n
	case *ast.IndexAccess:
		n.Receiver, n.Index = c.rewriteExpr(n.Receiver), c.rewriteExpr(n.Index)
		return n
	case *ast.Conditional:
		c.rewriteBlock(n.Then)
		switch el := n.Else.(type) {
		case *ast.Block:
			c.rewriteBlock(el)
		case *ast.Conditional:
			c.rewriteExpr(el)
		}
		n.Cond = c.rewriteExpr(n.Cond)
		return n
	case *ast.Block:
		c.rewriteBlock(n)
		return n
	case *ast.BoundedLoop:
		n.Iterable = c.rewriteExpr(n.Iterable)
		c.rewriteBlock(n.Body)
		return n
	case *ast.UnboundedLoop:
		n.Cond = c.rewriteExpr(n.Cond)
		c.rewriteBlock(n.Body)
		return n
	case *ast.MatchExpr:
		n.Scrutinee = c.rewriteExpr(n.Scrutinee)
		for _, arm := range n.Arms {
			arm.Body = c.rewriteExpr(arm.Body)
		}
		return n
	case *ast.TryExpr:
		n.Value = c.rewriteExpr(n.Value)
		return n
	case *ast.BorrowExpr:
		n.Value = c.rewriteExpr(n.Value)
		return n
	case *ast.FunctionDef:
		c.rewriteBlock(n.Body)
		return n
	default:
		return e
	}
}

func (c *collector) variantOwning(caseName string) (string, *ast.VariantDef) {
	for owner, def := range c.variants {
		for _, cs := range def.Cases {
			if cs.Name.Name == caseName {
				return owner, def
			}
		}
	}
	return "", nil
}

// bindFunctionCall resolves def's type parameters for this call site
// (explicit type args first, else structural matching of declared
// parameter types against the resolved argument types) and registers the
// resulting specialization as needed.
func (c *collector) bindFunctionCall(def *ast.FunctionDef, call *ast.Call) (string, bool) {
	bindings := map[string]typesystem.Type{}
	typeParams := toSet(def.TypeParams)

	if len(call.TypeArgs) == len(def.TypeParams) && len(call.TypeArgs) > 0 {
		for i, tp := range def.TypeParams {
			bindings[tp] = skeleton(call.TypeArgs[i], nil)
		}
	} else {
		for i, p := range def.Params {
			if i >= len(call.Args) {
				break
			}
			actual, ok := c.types[call.Args[i]]
			if !ok || p.Type == nil {
				continue
			}
			bindTypeParams(p.Type, actual, typeParams, bindings)
		}
	}
	if len(bindings) < len(def.TypeParams) {
		c.errors = append(c.errors, diag.New(diag.ArityMismatch, call.Span,
			fmt.Sprintf("could not infer all type arguments for generic call to %s", def.Name.Name)))
		return "", false
	}
	return c.registerFunc(def, bindings), true
}

func (c *collector) bindRecordLiteral(def *ast.RecordDef, lit *ast.RecordLiteral) (string, bool) {
	bindings := map[string]typesystem.Type{}
	typeParams := toSet(def.TypeParams)
	for _, fi := range def.Fields {
		actual, ok := c.types[findFieldInit(lit, fi.Name.Name)]
		if !ok || fi.Type == nil {
			continue
		}
		bindTypeParams(fi.Type, actual, typeParams, bindings)
	}
	if len(bindings) < len(def.TypeParams) {
		return "", false
	}
	return c.registerRecord(def, bindings), true
}

func findFieldInit(lit *ast.RecordLiteral, name string) ast.Expr {
	for _, fi := range lit.Fields {
		if fi.Name.Name == name {
			return fi.Value
		}
	}
	return nil
}

func (c *collector) bindVariantCtor(ownerName string, def *ast.VariantDef, app *ast.VariantConstructorApp) (string, bool) {
	bindings := map[string]typesystem.Type{}
	typeParams := toSet(def.TypeParams)
	for _, cs := range def.Cases {
		if cs.Name.Name != app.CaseName.Name {
			continue
		}
		for i, payloadType := range cs.Payloads {
			if i >= len(app.Args) {
				break
			}
			actual, ok := c.types[app.Args[i]]
			if !ok {
				continue
			}
			bindTypeParams(payloadType, actual, typeParams, bindings)
		}
	}
	if len(bindings) < len(def.TypeParams) {
		return "", false
	}
	return c.registerVariant(ownerName, def, bindings), true
}

func (c *collector) registerFunc(def *ast.FunctionDef, bindings map[string]typesystem.Type) string {
	k := key{name: def.Name.Name, args: mangleArgs(def.TypeParams, bindings)}
	if !c.needed[k] {
		c.needed[k] = true
		c.concrete[k] = concreteNames(def.TypeParams, bindings)
		c.order = append(c.order, k)
	}
	return k.name + "$" + k.args
}

func (c *collector) registerRecord(def *ast.RecordDef, bindings map[string]typesystem.Type) string {
	k := key{name: def.Name.Name, args: mangleArgs(def.TypeParams, bindings)}
	if !c.needed[k] {
		c.needed[k] = true
		c.concrete[k] = concreteNames(def.TypeParams, bindings)
		c.order = append(c.order, k)
	}
	return k.name + "$" + k.args
}

func (c *collector) registerVariant(ownerName string, def *ast.VariantDef, bindings map[string]typesystem.Type) string {
	k := key{name: ownerName, args: mangleArgs(def.TypeParams, bindings)}
	if !c.needed[k] {
		c.needed[k] = true
		c.concrete[k] = concreteNames(def.TypeParams, bindings)
		c.order = append(c.order, k)
	}
	return k.name + "$" + k.args
}

// concreteNames renders bindings in typeParams' declared order as raw
// (unsanitized) type-name strings, for substitution into the specialized
// copy's syntax tree.
func concreteNames(typeParams []string, bindings map[string]typesystem.Type) []string {
	names := make([]string, len(typeParams))
	for i, tp := range typeParams {
		if t, ok := bindings[tp]; ok {
			names[i] = t.String()
		} else {
			names[i] = "Unknown"
		}
	}
	return names
}

// specialize produces the specialized declaration for k, substituting
// every type-parameter occurrence in the original definition's signature
// (and, for records/variants, its field/payload types) with the concrete
// type recorded in k.
func (c *collector) specialize(k key) ast.Stmt {
	concrete := c.concrete[k]
	if def, ok := c.funcs[k.name]; ok {
		return specializeFunction(def, k.args, concrete)
	}
	if def, ok := c.records[k.name]; ok {
		return specializeRecord(def, k.args, concrete)
	}
	if def, ok := c.variants[k.name]; ok {
		return specializeVariant(def, k.args, concrete)
	}
	return nil
}

func specializeFunction(def *ast.FunctionDef, mangledArgs string, concrete []string) *ast.FunctionDef {
	sub := zip(def.TypeParams, concrete)
	cp := *def
	cp.Name = &ast.Identifier{Name: def.Name.Name + "$" + mangledArgs, Span: def.Name.Span}
	cp.TypeParams = nil
	cp.Params = make([]*ast.Param, len(def.Params))
	for i, p := range def.Params {
		pc := *p
		pc.Type = substituteTypeExpr(p.Type, sub)
		cp.Params[i] = &pc
	}
	cp.ReturnType = substituteTypeExpr(def.ReturnType, sub)
	return &cp
}

func specializeRecord(def *ast.RecordDef, mangledArgs string, concrete []string) *ast.RecordDef {
	sub := zip(def.TypeParams, concrete)
	cp := *def
	cp.Name = &ast.Identifier{Name: def.Name.Name + "$" + mangledArgs, Span: def.Name.Span}
	cp.TypeParams = nil
	cp.Fields = make([]*ast.FieldDef, len(def.Fields))
	for i, f := range def.Fields {
		fc := *f
		fc.Type = substituteTypeExpr(f.Type, sub)
		cp.Fields[i] = &fc
	}
	return &cp
}

func specializeVariant(def *ast.VariantDef, mangledArgs string, concrete []string) *ast.VariantDef {
	sub := zip(def.TypeParams, concrete)
	cp := *def
	cp.Name = &ast.Identifier{Name: def.Name.Name + "$" + mangledArgs, Span: def.Name.Span}
	cp.TypeParams = nil
	cp.Cases = make([]*ast.VariantCase, len(def.Cases))
	for i, vc := range def.Cases {
		vcc := *vc
		vcc.Payloads = make([]ast.TypeExpr, len(vc.Payloads))
		for j, p := range vc.Payloads {
			vcc.Payloads[j] = substituteTypeExpr(p, sub)
		}
		cp.Cases[i] = &vcc
	}
	return &cp
}

func substituteTypeExpr(te ast.TypeExpr, sub map[string]string) ast.TypeExpr {
	if te == nil {
		return nil
	}
	switch t := te.(type) {
	case *ast.NamedType:
		if concrete, ok := sub[t.Name]; ok {
			return &ast.NamedType{Name: concrete, Span: t.Span}
		}
		args := make([]ast.TypeExpr, len(t.Args))
		for i, a := range t.Args {
			args[i] = substituteTypeExpr(a, sub)
		}
		return &ast.NamedType{Name: t.Name, Args: args, Span: t.Span}
	case *ast.FunctionType:
		params := make([]ast.TypeExpr, len(t.Params))
		for i, p := range t.Params {
			params[i] = substituteTypeExpr(p, sub)
		}
		return &ast.FunctionType{Params: params, Result: substituteTypeExpr(t.Result, sub), Span: t.Span}
	case *ast.ReferenceType:
		return &ast.ReferenceType{Lifetime: t.Lifetime, Mutable: t.Mutable, Referent: substituteTypeExpr(t.Referent, sub), Span: t.Span}
	default:
		return te
	}
}

// skeleton elaborates a syntactic type expression into a typesystem.Type
// without consulting any registry; good enough to mangle an explicit
// type-argument list written at a call site.
func skeleton(te ast.TypeExpr, typeParams map[string]bool) typesystem.Type {
	switch t := te.(type) {
	case *ast.NamedType:
		switch t.Name {
		case "Number", "Text", "Truth", "Nothing", "Range", "Capability":
			return typesystem.Primitive(t.Name)
		case "List":
			if len(t.Args) == 1 {
				return typesystem.Sequence{Elem: skeleton(t.Args[0], typeParams)}
			}
		case "Map":
			if len(t.Args) == 2 {
				return typesystem.Mapping{Key: skeleton(t.Args[0], typeParams), Value: skeleton(t.Args[1], typeParams)}
			}
		}
		if typeParams[t.Name] {
			return typesystem.TVar{Name: t.Name, Rigid: true}
		}
		args := make([]typesystem.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = skeleton(a, typeParams)
		}
		return typesystem.Record{Name: t.Name, Args: args}
	case *ast.ReferenceType:
		return typesystem.Reference{Lifetime: t.Lifetime, Mutable: t.Mutable, Referent: skeleton(t.Referent, typeParams)}
	case *ast.FunctionType:
		params := make([]typesystem.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = skeleton(p, typeParams)
		}
		return typesystem.Function{Params: params, Result: skeleton(t.Result, typeParams)}
	default:
		return typesystem.Unknown
	}
}

// bindTypeParams structurally matches declared (a syntactic type possibly
// containing rigid names in typeParams) against actual (a resolved
// concrete type), filling bindings for every type-parameter name it
// reaches. Mismatched shapes are silently skipped: an incomplete bindings
// map is caught by the caller's length check.
func bindTypeParams(declared ast.TypeExpr, actual typesystem.Type, typeParams map[string]bool, bindings map[string]typesystem.Type) {
	named, ok := declared.(*ast.NamedType)
	if !ok {
		if rt, ok := declared.(*ast.ReferenceType); ok {
			if ref, ok := actual.(typesystem.Reference); ok {
				bindTypeParams(rt.Referent, ref.Referent, typeParams, bindings)
			}
		}
		return
	}
	if typeParams[named.Name] {
		if _, already := bindings[named.Name]; !already {
			bindings[named.Name] = actual
		}
		return
	}
	switch a := actual.(type) {
	case typesystem.Sequence:
		if len(named.Args) == 1 {
			bindTypeParams(named.Args[0], a.Elem, typeParams, bindings)
		}
	case typesystem.Mapping:
		if len(named.Args) == 2 {
			bindTypeParams(named.Args[0], a.Key, typeParams, bindings)
			bindTypeParams(named.Args[1], a.Value, typeParams, bindings)
		}
	case typesystem.Record:
		for i, arg := range named.Args {
			if i < len(a.Args) {
				bindTypeParams(arg, a.Args[i], typeParams, bindings)
			}
		}
	case typesystem.Variant:
		for i, arg := range named.Args {
			if i < len(a.Args) {
				bindTypeParams(arg, a.Args[i], typeParams, bindings)
			}
		}
	}
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// mangleArgs renders bindings in the definition's declared type-parameter
// order, joined by "_", with non-identifier characters flattened so the
// result is itself a valid identifier suffix.
func mangleArgs(typeParams []string, bindings map[string]typesystem.Type) string {
	parts := make([]string, len(typeParams))
	for i, tp := range typeParams {
		t, ok := bindings[tp]
		if !ok {
			parts[i] = "Unknown"
			continue
		}
		parts[i] = sanitize(t.String())
	}
	return strings.Join(parts, "_")
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// zip pairs each declared type parameter with its resolved concrete type
// name, in declaration order, for substitution into a specialized copy.
func zip(typeParams []string, concreteNames []string) map[string]string {
	sub := make(map[string]string, len(typeParams))
	for i, tp := range typeParams {
		if i < len(concreteNames) {
			sub[tp] = concreteNames[i]
		} else {
			sub[tp] = "Unknown"
		}
	}
	return sub
}
