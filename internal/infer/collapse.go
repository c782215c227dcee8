package infer

import (
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// collapseEqualities merges type variables related by explicit variable
// unifications when neither side has structural information of its own:
// domains that are still unconstrained, or a singleton holding a bare
// type variable. Each equivalence class is renamed to its lowest member,
// so `p(X, Y) :- X = Y` infers one shared type variable instead of two
// free ones. The substitution applied is returned so extraction can map
// collapsed variables to their representative.
func collapseEqualities(s *state, equalities [][2]typesystem.Var) typesystem.Subst {
	parent := map[typesystem.Var]typesystem.Var{}
	var find func(v typesystem.Var) typesystem.Var
	find = func(v typesystem.Var) typesystem.Var {
		p, ok := parent[v]
		if !ok || p == v {
			return v
		}
		root := find(p)
		parent[v] = root
		return root
	}
	union := func(a, b typesystem.Var) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Lowest id wins so the result is stable.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for _, eq := range equalities {
		if collapsible(s, eq[0]) && collapsible(s, eq[1]) {
			union(eq[0], eq[1])
		}
	}

	subst := typesystem.Subst{}
	for v := range parent {
		if root := find(v); root != v {
			subst[v] = typesystem.TVar{ID: root}
		}
	}
	if len(subst) == 0 {
		return subst
	}

	for _, v := range s.vars() {
		d := s.domain(v)
		if d.IsAny() {
			continue
		}
		entries := d.Entries()
		renamed := make([]typesystem.Type, len(entries))
		for i, t := range entries {
			renamed[i] = t.Apply(subst)
		}
		s.setDomain(v, typesystem.NewDomain(renamed...))
	}
	for from := range subst {
		delete(s.domains, from)
	}
	return subst
}

// collapsible reports whether a variable carries no structural
// information: its domain is unconstrained or a lone type variable.
func collapsible(s *state, v typesystem.Var) bool {
	d := s.domain(v)
	if d.IsAny() {
		return true
	}
	if t, ok := d.Singleton(); ok {
		_, isVar := t.(typesystem.TVar)
		return isVar
	}
	return false
}
