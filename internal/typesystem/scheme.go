package typesystem

// Generalize ("abstract") quantifies every free variable of t that does
// not also appear free in the enclosing environment, producing the
// TypeScheme bound to a let-name.
func Generalize(t Type, envFree map[string]bool, u *UnionFind) Scheme {
	resolved := Materialize(t, u)
	seen := map[string]bool{}
	var vars []string
	for _, fv := range resolved.FreeVars() {
		if envFree[fv] || seen[fv] {
			continue
		}
		seen[fv] = true
		vars = append(vars, fv)
	}
	return Scheme{Vars: vars, Body: resolved}
}

// Instantiate ("specialize") replaces every bound variable in s with a
// fresh inference variable.
func Instantiate(s Scheme, f *Fresher) Type {
	if len(s.Vars) == 0 {
		return s.Body
	}
	sub := make(Subst, len(s.Vars))
	for _, v := range s.Vars {
		sub[v] = f.Fresh()
	}
	return s.Body.Apply(sub)
}

// EnvFreeVars collects the set of inference-variable names that occur
// free anywhere in the environment's stored types/schemes. A scheme's own
// quantified variables are not free (they're bound), so only its Body's
// free vars minus its Vars are counted.
func EnvFreeVars(schemes []Scheme, u *UnionFind) map[string]bool {
	out := map[string]bool{}
	for _, s := range schemes {
		bound := map[string]bool{}
		for _, v := range s.Vars {
			bound[v] = true
		}
		for _, fv := range Materialize(s.Body, u).FreeVars() {
			if !bound[fv] {
				out[fv] = true
			}
		}
	}
	return out
}
