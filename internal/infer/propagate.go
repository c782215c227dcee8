package infer

import (
	"sort"

	"github.com/marlow-lang/marlow/internal/typesystem"
)

// state is one branch of the solve: the current domain of every type
// variable plus the set of conjuncts frozen as unsatisfiable on this
// branch. Labeling search clones it per guess, so freezing never needs to
// be undone.
type state struct {
	domains map[typesystem.Var]typesystem.Domain
	unsat   map[*ConjConstraint]bool
}

func newState() *state {
	return &state{
		domains: map[typesystem.Var]typesystem.Domain{},
		unsat:   map[*ConjConstraint]bool{},
	}
}

func (s *state) clone() *state {
	c := &state{
		domains: make(map[typesystem.Var]typesystem.Domain, len(s.domains)),
		unsat:   make(map[*ConjConstraint]bool, len(s.unsat)),
	}
	for k, v := range s.domains {
		c.domains[k] = v
	}
	for k, v := range s.unsat {
		c.unsat[k] = v
	}
	return c
}

// domain returns a variable's current domain; unseen variables are
// unconstrained.
func (s *state) domain(v typesystem.Var) typesystem.Domain {
	if d, ok := s.domains[v]; ok {
		return d
	}
	return typesystem.AnyDomain()
}

func (s *state) setDomain(v typesystem.Var, d typesystem.Domain) {
	s.domains[v] = d
}

// vars returns every variable with a recorded domain, in id order.
func (s *state) vars() []typesystem.Var {
	out := make([]typesystem.Var, 0, len(s.domains))
	for v := range s.domains {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *state) active(c *Constraint) []*ConjConstraint {
	var out []*ConjConstraint
	for _, d := range c.Disjuncts {
		if !s.unsat[d] {
			out = append(out, d)
		}
	}
	return out
}

// emptyVars returns every variable whose domain is the contradiction, in
// id order.
func (s *state) emptyVars() []typesystem.Var {
	var out []typesystem.Var
	for _, v := range s.vars() {
		if s.domain(v).IsEmpty() {
			out = append(out, v)
		}
	}
	return out
}

// substSingletons substitutes every type variable in t whose domain is
// already a singleton, transitively, so narrowing one variable sharpens
// the terms constraining its neighbours.
func (s *state) substSingletons(t typesystem.Type) typesystem.Type {
	subst := typesystem.Subst{}
	work := t.FreeTypeVars()
	seen := map[typesystem.Var]bool{}
	for len(work) > 0 {
		v := work[0]
		work = work[1:]
		if seen[v] {
			continue
		}
		seen[v] = true
		if st, ok := s.domain(v).Singleton(); ok {
			if tv, isVar := st.(typesystem.TVar); isVar && tv.ID == v {
				continue
			}
			subst[v] = st
			work = append(work, st.FreeTypeVars()...)
		}
	}
	if len(subst) == 0 {
		return t
	}
	return t.Apply(subst)
}

// propagator narrows domains to a fixpoint over the store. When subset is
// non-nil only those constraints participate; the minimal-unsatisfiable
// search uses that to test candidate subsets.
type propagator struct {
	store  *Store
	subset map[ConstraintID]bool
}

func (p *propagator) included(id ConstraintID) bool {
	return p.subset == nil || p.subset[id]
}

// run iterates to a fixpoint: each constraint is re-evaluated whenever
// the domain of a variable it mentions narrows. Domains only shrink and
// candidate sets are finite, so the loop is well-founded. Returns false
// as soon as some domain becomes empty.
func (p *propagator) run(s *state) bool {
	var queue []ConstraintID
	queued := map[ConstraintID]bool{}
	enqueue := func(id ConstraintID) {
		if !queued[id] && p.included(id) {
			queued[id] = true
			queue = append(queue, id)
		}
	}
	for _, id := range p.store.IDs() {
		enqueue(id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		changed, ok := p.apply(s, id)
		if !ok {
			return false
		}
		for _, v := range changed {
			for _, dep := range p.store.Mentioning(v) {
				enqueue(dep)
			}
		}
	}
	return true
}

// apply evaluates one constraint against the current domains. For a lone
// conjunction the narrowing lands directly; for a disjunction each active
// disjunct is evaluated against a snapshot, the branch domains are
// unioned, and the union is intersected into the outer map. A disjunct
// that empties some domain is frozen; since domains only shrink it can
// never succeed later.
func (p *propagator) apply(s *state, id ConstraintID) (changed []typesystem.Var, ok bool) {
	c := p.store.Get(id)
	active := s.active(c)

	if len(active) == 0 {
		return nil, p.fail(s, c)
	}

	if len(active) == 1 {
		conj := active[0]
		changed, ok := p.applyConj(s, conj)
		if !ok {
			s.unsat[conj] = true
			return changed, p.fail(s, c)
		}
		return changed, true
	}

	branches := make([]*state, 0, len(active))
	for _, conj := range active {
		branch := s.clone()
		if _, ok := p.applyConj(branch, conj); !ok {
			s.unsat[conj] = true
			continue
		}
		branches = append(branches, branch)
	}
	if len(branches) == 0 {
		return nil, p.fail(s, c)
	}

	for _, v := range c.constrainedVars() {
		union := typesystem.EmptyDomain()
		for _, branch := range branches {
			union = union.Union(branch.domain(v))
		}
		old := s.domain(v)
		next := old.Intersect(union)
		if next.Equal(old) {
			continue
		}
		s.setDomain(v, next)
		changed = append(changed, v)
		if next.IsEmpty() {
			return changed, false
		}
	}
	return changed, true
}

// applyConj intersects each simple constraint's type, with singleton
// variables substituted, into the named variable's domain.
func (p *propagator) applyConj(s *state, conj *ConjConstraint) (changed []typesystem.Var, ok bool) {
	for _, sc := range conj.Constraints {
		t := s.substSingletons(sc.Type)
		old := s.domain(sc.Var)
		next := old.Intersect(typesystem.SingletonDomain(t))
		if next.IsEmpty() {
			return changed, false
		}
		if !next.Equal(old) {
			s.setDomain(sc.Var, next)
			changed = append(changed, sc.Var)
		}
	}
	return changed, true
}

// fail records the contradiction left by a constraint with no remaining
// active disjuncts: every variable it constrains is emptied.
func (p *propagator) fail(s *state, c *Constraint) bool {
	for _, v := range c.constrainedVars() {
		s.setDomain(v, typesystem.EmptyDomain())
	}
	return false
}
