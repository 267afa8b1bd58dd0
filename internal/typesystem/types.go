// Package typesystem implements the type representation, substitution, and
// unification ("harmonize") algorithm used by internal/analyzer's
// Hindley-Milner inference engine.
package typesystem

import (
	"fmt"
	"strings"

	"github.com/veylang/veyl/internal/config"
)

// Type is the interface implemented by every type, concrete or variable.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeVars() []string
}

// Subst maps inference-variable names to their solved type.
type Subst map[string]Type

// TVar is a compiler-internal inference variable, or (after generalization)
// a user-visible bound type parameter when Rigid is true.
type TVar struct {
	Name  string
	Rigid bool // true for a user-written generic parameter like T
}

func (t TVar) String() string {
	if config.IsTestMode && !t.Rigid && strings.HasPrefix(t.Name, "t") {
		return "t?"
	}
	return t.Name
}

func (t TVar) Apply(s Subst) Type {
	if repl, ok := s[t.Name]; ok {
		if rv, ok := repl.(TVar); ok && rv.Name == t.Name {
			return t
		}
		return repl.Apply(s)
	}
	return t
}

func (t TVar) FreeVars() []string { return []string{t.Name} }

// Primitive is one of the scalar/opaque base types.
type Primitive string

const (
	Number     Primitive = "Number"
	Text       Primitive = "Text"
	Truth      Primitive = "Truth"
	Nothing    Primitive = "Nothing"
	RangeType  Primitive = "Range"
	Capability Primitive = "Capability"
	Unknown    Primitive = "Unknown" // error-recovery sentinel
	Any        Primitive = "Any"     // error-recovery sentinel
)

func (p Primitive) String() string       { return string(p) }
func (p Primitive) Apply(Subst) Type     { return p }
func (p Primitive) FreeVars() []string   { return nil }

// Sequence is a homogeneous ordered container, `List<T>`.
type Sequence struct{ Elem Type }

func (s Sequence) String() string   { return "List<" + s.Elem.String() + ">" }
func (s Sequence) Apply(sub Subst) Type { return Sequence{Elem: s.Elem.Apply(sub)} }
func (s Sequence) FreeVars() []string   { return s.Elem.FreeVars() }

// Mapping is a key-value container, `Map<K, V>`.
type Mapping struct{ Key, Value Type }

func (m Mapping) String() string { return "Map<" + m.Key.String() + ", " + m.Value.String() + ">" }
func (m Mapping) Apply(sub Subst) Type {
	return Mapping{Key: m.Key.Apply(sub), Value: m.Value.Apply(sub)}
}
func (m Mapping) FreeVars() []string {
	return append(append([]string{}, m.Key.FreeVars()...), m.Value.FreeVars()...)
}

// Record is a nominal structural record type, identified by name.
type Record struct {
	Name   string
	Args   []Type
	Fields map[string]Type // field name -> type, for unification against literals
}

func (r Record) String() string {
	if len(r.Args) == 0 {
		return r.Name
	}
	return r.Name + "<" + joinTypes(r.Args) + ">"
}
func (r Record) Apply(sub Subst) Type {
	args := make([]Type, len(r.Args))
	for i, a := range r.Args {
		args[i] = a.Apply(sub)
	}
	fields := make(map[string]Type, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v.Apply(sub)
	}
	return Record{Name: r.Name, Args: args, Fields: fields}
}
func (r Record) FreeVars() []string {
	var out []string
	for _, a := range r.Args {
		out = append(out, a.FreeVars()...)
	}
	return out
}

// Variant is a nominal tagged-union type, identified by name.
type Variant struct {
	Name  string
	Args  []Type
	Cases map[string][]Type // case name -> ordered payload types
}

func (v Variant) String() string {
	if len(v.Args) == 0 {
		return v.Name
	}
	return v.Name + "<" + joinTypes(v.Args) + ">"
}
func (v Variant) Apply(sub Subst) Type {
	args := make([]Type, len(v.Args))
	for i, a := range v.Args {
		args[i] = a.Apply(sub)
	}
	cases := make(map[string][]Type, len(v.Cases))
	for k, payloads := range v.Cases {
		np := make([]Type, len(payloads))
		for i, p := range payloads {
			np[i] = p.Apply(sub)
		}
		cases[k] = np
	}
	return Variant{Name: v.Name, Args: args, Cases: cases}
}
func (v Variant) FreeVars() []string {
	var out []string
	for _, a := range v.Args {
		out = append(out, a.FreeVars()...)
	}
	return out
}

// Function is `(params...) -> result`.
type Function struct {
	Params []Type
	Result Type
}

func (f Function) String() string {
	return "(" + joinTypes(f.Params) + ") -> " + f.Result.String()
}
func (f Function) Apply(sub Subst) Type {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Apply(sub)
	}
	return Function{Params: params, Result: f.Result.Apply(sub)}
}
func (f Function) FreeVars() []string {
	var out []string
	for _, p := range f.Params {
		out = append(out, p.FreeVars()...)
	}
	return append(out, f.Result.FreeVars()...)
}

// Reference is a borrowed-reference type, `{lifetime?, mutable, referent}`.
type Reference struct {
	Lifetime string
	Mutable  bool
	Referent Type
}

func (r Reference) String() string {
	prefix := "borrow "
	if r.Mutable {
		prefix = "borrow-mut "
	}
	return prefix + r.Referent.String()
}
func (r Reference) Apply(sub Subst) Type {
	return Reference{Lifetime: r.Lifetime, Mutable: r.Mutable, Referent: r.Referent.Apply(sub)}
}
func (r Reference) FreeVars() []string { return r.Referent.FreeVars() }

// Scheme is a universally-quantified type, the result of let-generalization.
type Scheme struct {
	Vars []string
	Body Type
}

func (s Scheme) String() string {
	if len(s.Vars) == 0 {
		return s.Body.String()
	}
	return "forall " + strings.Join(s.Vars, " ") + ". " + s.Body.String()
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// fresh is a monotonically increasing counter used to mint inference
// variables. Kept on a Fresher so tests can reset it between runs.
type Fresher struct{ n int }

func NewFresher() *Fresher { return &Fresher{} }

func (f *Fresher) Fresh() TVar {
	f.n++
	return TVar{Name: fmt.Sprintf("t%d", f.n)}
}
