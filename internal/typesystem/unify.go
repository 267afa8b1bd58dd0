package typesystem

import "fmt"

// ErrorKind tags a unification failure with the distinct kinds spec.md §7
// lists under "Type".
type ErrorKind string

const (
	Mismatch            ErrorKind = "MISMATCH"
	OccursCheckFailure  ErrorKind = "OCCURS-CHECK"
	ArityMismatch       ErrorKind = "ARITY-MISMATCH"
	ConstructorMismatch ErrorKind = "CONSTRUCTOR-MISMATCH"
)

// UnifyError carries both conflicting sides so the caller can attach spans.
type UnifyError struct {
	Kind  ErrorKind
	Left  Type
	Right Type
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("%s: cannot unify %s with %s", e.Kind, e.Left, e.Right)
}

// UnionFind resolves chains of variable-to-variable bindings. Find follows
// the chain link by link on every call; paths are not compressed.
type UnionFind struct {
	parent map[string]Type
}

func NewUnionFind() *UnionFind { return &UnionFind{parent: make(map[string]Type)} }

// Find resolves t through the union-find table until it reaches a
// non-variable type or an unbound variable.
func (u *UnionFind) Find(t Type) Type {
	for {
		tv, ok := t.(TVar)
		if !ok {
			return t
		}
		next, bound := u.parent[tv.Name]
		if !bound {
			return tv
		}
		t = next
	}
}

// Bind records that variable name now resolves to t.
func (u *UnionFind) Bind(name string, t Type) { u.parent[name] = t }

// Subst snapshots the union-find table as a flat Subst for Apply/materialize.
func (u *UnionFind) Subst() Subst {
	out := make(Subst, len(u.parent))
	for k, v := range u.parent {
		out[k] = u.Find(v)
	}
	return out
}

func occursIn(name string, t Type, u *UnionFind) bool {
	t = u.Find(t)
	for _, fv := range t.FreeVars() {
		if fv == name {
			return true
		}
	}
	return false
}

// Harmonize is the unification procedure: given two types, it finds the
// most general substitution (recorded into u) making them equal, or
// returns a *UnifyError describing why none exists.
func Harmonize(a, b Type, u *UnionFind) error {
	a = u.Find(a)
	b = u.Find(b)

	if isErrorSentinel(a) || isErrorSentinel(b) {
		return nil
	}

	if av, ok := a.(TVar); ok {
		if bv, ok := b.(TVar); ok && av.Name == bv.Name {
			return nil
		}
		if av.Rigid {
			if bv, ok := b.(TVar); ok && !bv.Rigid {
				return bindVar(bv.Name, av, u)
			}
			return &UnifyError{Kind: Mismatch, Left: a, Right: b}
		}
		return bindVar(av.Name, b, u)
	}
	if bv, ok := b.(TVar); ok {
		if bv.Rigid {
			return &UnifyError{Kind: Mismatch, Left: a, Right: b}
		}
		return bindVar(bv.Name, a, u)
	}

	switch at := a.(type) {
	case Primitive:
		if bt, ok := b.(Primitive); ok && at == bt {
			return nil
		}
		return &UnifyError{Kind: Mismatch, Left: a, Right: b}

	case Sequence:
		bt, ok := b.(Sequence)
		if !ok {
			return &UnifyError{Kind: ConstructorMismatch, Left: a, Right: b}
		}
		return Harmonize(at.Elem, bt.Elem, u)

	case Mapping:
		bt, ok := b.(Mapping)
		if !ok {
			return &UnifyError{Kind: ConstructorMismatch, Left: a, Right: b}
		}
		if err := Harmonize(at.Key, bt.Key, u); err != nil {
			return err
		}
		return Harmonize(at.Value, bt.Value, u)

	case Function:
		bt, ok := b.(Function)
		if !ok {
			return &UnifyError{Kind: ConstructorMismatch, Left: a, Right: b}
		}
		if len(at.Params) != len(bt.Params) {
			return &UnifyError{Kind: ArityMismatch, Left: a, Right: b}
		}
		for i := range at.Params {
			if err := Harmonize(at.Params[i], bt.Params[i], u); err != nil {
				return err
			}
		}
		return Harmonize(at.Result, bt.Result, u)

	case Record:
		bt, ok := b.(Record)
		if !ok || at.Name != bt.Name {
			return &UnifyError{Kind: ConstructorMismatch, Left: a, Right: b}
		}
		if len(at.Args) != len(bt.Args) {
			return &UnifyError{Kind: ArityMismatch, Left: a, Right: b}
		}
		for i := range at.Args {
			if err := Harmonize(at.Args[i], bt.Args[i], u); err != nil {
				return err
			}
		}
		return nil

	case Variant:
		bt, ok := b.(Variant)
		if !ok || at.Name != bt.Name {
			return &UnifyError{Kind: ConstructorMismatch, Left: a, Right: b}
		}
		if len(at.Args) != len(bt.Args) {
			return &UnifyError{Kind: ArityMismatch, Left: a, Right: b}
		}
		for i := range at.Args {
			if err := Harmonize(at.Args[i], bt.Args[i], u); err != nil {
				return err
			}
		}
		return nil

	case Reference:
		bt, ok := b.(Reference)
		if !ok {
			return &UnifyError{Kind: ConstructorMismatch, Left: a, Right: b}
		}
		if at.Mutable != bt.Mutable {
			return &UnifyError{Kind: Mismatch, Left: a, Right: b}
		}
		return Harmonize(at.Referent, bt.Referent, u)
	}

	return &UnifyError{Kind: Mismatch, Left: a, Right: b}
}

func bindVar(name string, t Type, u *UnionFind) error {
	if tv, ok := t.(TVar); ok && tv.Name == name {
		return nil
	}
	if occursIn(name, t, u) {
		return &UnifyError{Kind: OccursCheckFailure, Left: TVar{Name: name}, Right: t}
	}
	u.Bind(name, t)
	return nil
}

func isErrorSentinel(t Type) bool {
	p, ok := t.(Primitive)
	return ok && (p == Unknown || p == Any)
}

// Materialize recursively replaces every bound variable in t with its
// solution from u.
func Materialize(t Type, u *UnionFind) Type {
	return t.Apply(u.Subst())
}
