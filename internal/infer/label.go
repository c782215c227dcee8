package infer

import (
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// search runs backtracking labeling on top of propagation: pick an
// undecided variable, try each candidate in its domain on a cloned state,
// re-propagate, recurse. Every leaf where all domains are decided is a
// solution; the caller merges them.
type search struct {
	prop *propagator
}

// run assumes s has already been propagated to a fixpoint. It returns
// every consistent fully-labeled state, in candidate order.
func (sr *search) run(s *state) []*state {
	v, ok := sr.pick(s)
	if !ok {
		return []*state{s}
	}
	var solutions []*state
	for _, candidate := range s.domain(v).Entries() {
		branch := s.clone()
		branch.setDomain(v, typesystem.SingletonDomain(candidate))
		if !sr.prop.run(branch) {
			continue
		}
		solutions = append(solutions, sr.run(branch)...)
	}
	return solutions
}

// pick chooses the next variable to label: the smallest finite domain
// with more than one candidate, lowest variable id on ties. Variables
// still unconstrained stay free; guessing for them would be unsound.
func (sr *search) pick(s *state) (typesystem.Var, bool) {
	best := typesystem.Var(-1)
	bestSize := 0
	for _, v := range s.vars() {
		d := s.domain(v)
		if d.IsAny() {
			continue
		}
		size := d.Size()
		if size <= 1 {
			continue
		}
		if best < 0 || size < bestSize {
			best, bestSize = v, size
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
