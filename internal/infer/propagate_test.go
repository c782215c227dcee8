package infer

import (
	"testing"

	"github.com/marlow-lang/marlow/internal/typesystem"
)

func conj(pairs ...SimpleConstraint) *ConjConstraint {
	return &ConjConstraint{Constraints: pairs}
}

func single(v typesystem.Var, t typesystem.Type) *Constraint {
	return &Constraint{Disjuncts: []*ConjConstraint{conj(SimpleConstraint{Var: v, Type: t})}}
}

func TestPropagateDisjunctionUnionsBranches(t *testing.T) {
	const a typesystem.Var = 0
	store := NewStore()
	store.Add(&Constraint{Disjuncts: []*ConjConstraint{
		conj(SimpleConstraint{Var: a, Type: tInt}),
		conj(SimpleConstraint{Var: a, Type: tFloat}),
	}})

	s := newState()
	if ok := (&propagator{store: store}).run(s); !ok {
		t.Fatal("propagation should succeed")
	}
	d := s.domain(a)
	if d.IsAny() || d.Size() != 2 {
		t.Fatalf("want two candidates, got %v", d)
	}
}

func TestPropagateFreezesDeadDisjunct(t *testing.T) {
	const a typesystem.Var = 0
	store := NewStore()
	floatBranch := conj(SimpleConstraint{Var: a, Type: tFloat})
	store.Add(&Constraint{Disjuncts: []*ConjConstraint{
		conj(SimpleConstraint{Var: a, Type: tInt}),
		floatBranch,
	}})
	store.Add(single(a, tInt))

	s := newState()
	if ok := (&propagator{store: store}).run(s); !ok {
		t.Fatal("propagation should succeed")
	}
	if got, ok := s.domain(a).Singleton(); !ok || !typesystem.SameType(got, tInt) {
		t.Fatalf("want int, got %v", s.domain(a))
	}
	if !s.unsat[floatBranch] {
		t.Error("narrowing to int should freeze the float candidate")
	}
}

func TestPropagateChainsThroughSingletons(t *testing.T) {
	const (
		a typesystem.Var = 0
		b typesystem.Var = 1
	)
	store := NewStore()
	store.Add(single(b, typesystem.TVar{ID: a}))
	store.Add(single(a, tInt))

	s := newState()
	if ok := (&propagator{store: store}).run(s); !ok {
		t.Fatal("propagation should succeed")
	}
	if got, ok := s.domain(b).Singleton(); !ok || !typesystem.SameType(got, tInt) {
		t.Fatalf("narrowing a should propagate into b, got %v", s.domain(b))
	}
}

func TestPropagateDetectsContradiction(t *testing.T) {
	const a typesystem.Var = 0
	store := NewStore()
	store.Add(single(a, tInt))
	store.Add(single(a, tString))

	s := newState()
	if ok := (&propagator{store: store}).run(s); ok {
		t.Fatal("contradictory constraints must fail propagation")
	}
	if got := s.emptyVars(); len(got) != 1 || got[0] != a {
		t.Fatalf("want the contradicted variable reported, got %v", got)
	}
}

func TestPropagateStructuralNarrowing(t *testing.T) {
	const a typesystem.Var = 0
	store := NewStore()
	store.Add(single(a, listOf(typesystem.TVar{ID: 100})))
	store.Add(single(a, listOf(tInt)))

	s := newState()
	if ok := (&propagator{store: store}).run(s); !ok {
		t.Fatal("compatible structures must unify")
	}
	got, ok := s.domain(a).Singleton()
	if !ok {
		t.Fatalf("want a single merged candidate, got %v", s.domain(a))
	}
	d, isDefined := got.(typesystem.TDefined)
	if !isDefined || d.Name != "list" || !typesystem.SameType(d.Args[0], tInt) {
		t.Fatalf("want list(int), got %v", got)
	}
}
