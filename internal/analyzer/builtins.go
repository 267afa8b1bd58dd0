package analyzer

import (
	"github.com/veylang/veyl/internal/symbols"
	"github.com/veylang/veyl/internal/typesystem"
)

// registerBuiltins seeds the root environment with native-function
// signatures the evaluator/VM provide at runtime (spec.md §6 native
// function registry). Only the core prelude used by the seed scenarios in
// spec.md §8 is declared here; a host may register additional natives.
func registerBuiltins(a *Analyzer) {
	num := typesystem.Number
	txt := typesystem.Text
	truth := typesystem.Truth

	def := func(name string, t typesystem.Type) {
		a.env.Define(name, &symbols.BindingInfo{Scheme: typesystem.Scheme{Body: t}})
	}

	def("add", typesystem.Function{Params: []typesystem.Type{num, num}, Result: num})
	def("length", typesystem.Function{Params: []typesystem.Type{typesystem.Sequence{Elem: typesystem.TVar{Name: "gen_t1"}}}, Result: num})
	def("read_file", typesystem.Function{Params: []typesystem.Type{txt}, Result: typesystem.Variant{
		Name:  "Outcome",
		Args:  []typesystem.Type{txt, txt},
		Cases: map[string][]typesystem.Type{"Triumph": {txt}, "Mishap": {txt}},
	}})
	def("parse_number", typesystem.Function{Params: []typesystem.Type{txt}, Result: typesystem.Variant{
		Name:  "Outcome",
		Args:  []typesystem.Type{num, txt},
		Cases: map[string][]typesystem.Type{"Triumph": {num}, "Mishap": {txt}},
	}})
	_ = truth

	// The Outcome variant itself is always in scope, since the try-
	// propagation operator and spec.md §8 scenario 4 depend on it
	// existing even in a program that doesn't declare it explicitly.
	a.registry.Variants["Outcome"] = &symbols.VariantDefInfo{
		Cases:     map[string][]typesystem.Type{"Triumph": {typesystem.TVar{Name: "gen_tT", Rigid: true}}, "Mishap": {typesystem.TVar{Name: "gen_tE", Rigid: true}}},
		CaseOrder: []string{"Triumph", "Mishap"},
	}
	a.registry.CaseOwner["Triumph"] = "Outcome"
	a.registry.CaseOwner["Mishap"] = "Outcome"
}
