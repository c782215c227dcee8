// Package infer is the constraint-based type inference engine. It turns a
// procedure's goal tree into constraints over type variables, solves them
// by domain propagation and, when ambiguity remains, labeling search, and
// reports ambiguity and unsatisfiability with located diagnostics.
package infer

import (
	"github.com/marlow-lang/marlow/internal/env"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/token"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// ConstraintID keys a constraint in the store.
type ConstraintID int

// SimpleConstraint states that a variable's type is a substitution
// instance of a type term.
type SimpleConstraint struct {
	Var  typesystem.Var
	Type typesystem.Type
}

// ConjConstraint is an ordered list of simple constraints that must hold
// together. GoalID and PredID are set only for call and construction
// candidates, for overload bookkeeping after solving.
//
// Unsatisfiable is the final activity flag, written once solving has
// finished; during propagation and search, activity is tracked per branch
// in the solver state so backtracking never has to undo it here.
type ConjConstraint struct {
	Constraints   []SimpleConstraint
	Token         token.Token
	GoalID        *goal.ID
	PredID        *env.PredID
	Unsatisfiable bool
}

// Constraint is one disjunction of candidate conjunctions; a single
// disjunct is a plain conjunction. Exactly one disjunct must hold.
type Constraint struct {
	Disjuncts []*ConjConstraint
}

// IsDisjunction reports whether more than one candidate was recorded.
func (c *Constraint) IsDisjunction() bool { return len(c.Disjuncts) > 1 }

// Active returns the disjuncts not flagged unsatisfiable, in candidate
// order.
func (c *Constraint) Active() []*ConjConstraint {
	var out []*ConjConstraint
	for _, d := range c.Disjuncts {
		if !d.Unsatisfiable {
			out = append(out, d)
		}
	}
	return out
}

// Resolved reports the unique remaining active disjunct, if exactly one
// survives. It is recomputed from the activity flags rather than cached,
// so it can never drift from them.
func (c *Constraint) Resolved() (*ConjConstraint, bool) {
	active := c.Active()
	if len(active) == 1 {
		return active[0], true
	}
	return nil, false
}

// constrainedVars are the variables named on the left of the disjuncts'
// simple constraints, deduplicated in first-mention order.
func (c *Constraint) constrainedVars() []typesystem.Var {
	var out []typesystem.Var
	seen := map[typesystem.Var]bool{}
	for _, d := range c.Disjuncts {
		for _, sc := range d.Constraints {
			if !seen[sc.Var] {
				seen[sc.Var] = true
				out = append(out, sc.Var)
			}
		}
	}
	return out
}

// mentionedVars additionally includes variables embedded in the
// right-hand type terms; the store's reverse index is built from these.
func (c *Constraint) mentionedVars() []typesystem.Var {
	var out []typesystem.Var
	seen := map[typesystem.Var]bool{}
	add := func(v typesystem.Var) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, d := range c.Disjuncts {
		for _, sc := range d.Constraints {
			add(sc.Var)
			for _, v := range sc.Type.FreeTypeVars() {
				add(v)
			}
		}
	}
	return out
}

// Store is the per-pass constraint map plus its reverse index from
// variables to the constraints mentioning them.
type Store struct {
	order       []ConstraintID
	constraints map[ConstraintID]*Constraint
	byVar       map[typesystem.Var][]ConstraintID
	vars        map[ConstraintID][]typesystem.Var
	next        ConstraintID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		constraints: map[ConstraintID]*Constraint{},
		byVar:       map[typesystem.Var][]ConstraintID{},
		vars:        map[ConstraintID][]typesystem.Var{},
	}
}

// Add registers a constraint and indexes it under every variable it
// mentions.
func (s *Store) Add(c *Constraint) ConstraintID {
	id := s.next
	s.next++
	s.constraints[id] = c
	s.order = append(s.order, id)
	vars := c.mentionedVars()
	s.vars[id] = vars
	for _, v := range vars {
		s.byVar[v] = append(s.byVar[v], id)
	}
	return id
}

// Get returns the constraint for an id.
func (s *Store) Get(id ConstraintID) *Constraint { return s.constraints[id] }

// IDs returns every constraint id in insertion order.
func (s *Store) IDs() []ConstraintID { return s.order }

// Mentioning returns the ids of constraints mentioning v, in insertion
// order.
func (s *Store) Mentioning(v typesystem.Var) []ConstraintID { return s.byVar[v] }

// VarsOf returns the variables a constraint mentions.
func (s *Store) VarsOf(id ConstraintID) []typesystem.Var { return s.vars[id] }
