// Package symbols holds the scope stack, trait registry, and
// variant/record registries shared by internal/analyzer, internal/borrow,
// and internal/lifetime.
package symbols

import (
	"github.com/veylang/veyl/internal/ast"
	"github.com/veylang/veyl/internal/diag"
	"github.com/veylang/veyl/internal/typesystem"
)

// BindingInfo is what the environment stores per name.
type BindingInfo struct {
	Scheme  typesystem.Scheme
	Mutable bool
	Mode    ast.BorrowMode
	Span    diag.Span
}

// Scope is one lexical level: block, function, module, match-arm, or
// for-loop binding.
type Scope struct {
	names  map[string]*BindingInfo
	parent *Scope
}

func newScope(parent *Scope) *Scope {
	return &Scope{names: make(map[string]*BindingInfo), parent: parent}
}

// Env is a stack of scopes; lookup walks from innermost outward.
type Env struct {
	top *Scope
}

// NewEnv creates the root (module-level) scope.
func NewEnv() *Env { return &Env{top: newScope(nil)} }

// Push enters a new nested scope.
func (e *Env) Push() { e.top = newScope(e.top) }

// Pop exits the current scope, returning to its parent.
func (e *Env) Pop() {
	if e.top.parent != nil {
		e.top = e.top.parent
	}
}

// Define introduces name in the current (innermost) scope.
func (e *Env) Define(name string, info *BindingInfo) {
	e.top.names[name] = info
}

// Lookup walks from the innermost scope outward.
func (e *Env) Lookup(name string) (*BindingInfo, bool) {
	for s := e.top; s != nil; s = s.parent {
		if info, ok := s.names[name]; ok {
			return info, true
		}
	}
	return nil, false
}

// LookupLocal only checks the innermost scope (used for DUPLICATE-DEFINITION
// and REASSIGN-IMMUTABLE checks scoped to the same block).
func (e *Env) LookupLocal(name string) (*BindingInfo, bool) {
	info, ok := e.top.names[name]
	return info, ok
}

// ---- Record / variant registry ----

type RecordDefInfo struct {
	Def    *ast.RecordDef
	Fields map[string]typesystem.Type
}

type VariantDefInfo struct {
	Def   *ast.VariantDef
	Cases map[string][]typesystem.Type
	// CaseOrder preserves declaration order for exhaustiveness messages.
	CaseOrder []string
}

// TypeRegistry maps declared record/variant names to their definitions.
type TypeRegistry struct {
	Records  map[string]*RecordDefInfo
	Variants map[string]*VariantDefInfo
	// CaseOwner maps a variant-case name back to its enclosing variant,
	// since constructor application and patterns reference bare case names.
	CaseOwner map[string]string
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		Records:   make(map[string]*RecordDefInfo),
		Variants:  make(map[string]*VariantDefInfo),
		CaseOwner: make(map[string]string),
	}
}

// ---- Trait (interface) registry ----

type InterfaceInfo struct {
	Def     *ast.InterfaceDef
	Methods map[string]*ast.MethodSig
}

// implKey identifies one (interface, receiver-type) implementation.
type implKey struct {
	Interface string
	Receiver  string
}

type TraitRegistry struct {
	Interfaces map[string]*InterfaceInfo
	Impls      map[implKey]*ast.InterfaceImpl
}

func NewTraitRegistry() *TraitRegistry {
	return &TraitRegistry{
		Interfaces: make(map[string]*InterfaceInfo),
		Impls:      make(map[implKey]*ast.InterfaceImpl),
	}
}

func (t *TraitRegistry) AddImpl(interfaceName, receiverKey string, impl *ast.InterfaceImpl) {
	t.Impls[implKey{Interface: interfaceName, Receiver: receiverKey}] = impl
}

func (t *TraitRegistry) FindImpl(interfaceName, receiverKey string) (*ast.InterfaceImpl, bool) {
	impl, ok := t.Impls[implKey{Interface: interfaceName, Receiver: receiverKey}]
	return impl, ok
}
