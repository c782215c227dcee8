package env

import (
	"testing"

	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

var tInt = typesystem.TBuiltin{B: typesystem.BuiltinInt}

func TestPredicateLookupPreservesDeclarationOrder(t *testing.T) {
	table := NewTable()
	first := table.AddPredicate(&PredDecl{Name: "p", Module: "a", ArgTypes: []typesystem.Type{tInt}})
	second := table.AddPredicate(&PredDecl{Name: "p", Module: "b", ArgTypes: []typesystem.Type{tInt}})

	preds := table.Predicates("p", 1)
	if len(preds) != 2 {
		t.Fatalf("want 2 candidates, got %d", len(preds))
	}
	if preds[0].Module != "a" || preds[1].Module != "b" {
		t.Errorf("candidates out of declaration order: %s, %s", preds[0].Module, preds[1].Module)
	}
	if preds[0].ID != first || preds[1].ID != second {
		t.Errorf("ids not assigned in order: %d, %d", preds[0].ID, preds[1].ID)
	}
}

func TestPredicateByID(t *testing.T) {
	table := NewTable()
	id := table.AddPredicate(&PredDecl{Name: "q", ArgTypes: []typesystem.Type{tInt, tInt}})
	got, ok := table.Predicate(id)
	if !ok || got.Name != "q" {
		t.Fatalf("lookup by id failed: %v, %v", got, ok)
	}
	if _, ok := table.Predicate(id + 1); ok {
		t.Error("unknown id must not resolve")
	}
}

func TestPredicatesWithMinArity(t *testing.T) {
	table := NewTable()
	table.AddPredicate(&PredDecl{Name: "map", ArgTypes: []typesystem.Type{tInt}})
	table.AddPredicate(&PredDecl{Name: "map", ArgTypes: []typesystem.Type{tInt, tInt, tInt}})

	if got := table.PredicatesWithMinArity("map", 2); len(got) != 1 || got[0].Arity() != 3 {
		t.Errorf("want only map/3, got %v", got)
	}
	if got := table.PredicatesWithMinArity("map", 0); len(got) != 2 {
		t.Errorf("want both declarations, got %d", len(got))
	}
	if got := table.PredicatesWithMinArity("absent", 0); got != nil {
		t.Errorf("unknown name: want nil, got %v", got)
	}
}

func TestConstructorsKeyedByNameAndArity(t *testing.T) {
	table := NewTable()
	list := typesystem.TDefined{Name: "list", Args: []typesystem.Type{typesystem.TVar{ID: 1}}}
	table.AddConstructor(&ConsDecl{Functor: "nil", TypeName: "list", ResultType: list})
	table.AddConstructor(&ConsDecl{Functor: "nil", TypeName: "maybe", ResultType: typesystem.TDefined{Name: "maybe"}})

	if got := table.Constructors("nil", 0); len(got) != 2 {
		t.Errorf("both nil/0 definitions should be candidates, got %d", len(got))
	}
	if got := table.Constructors("nil", 1); got != nil {
		t.Errorf("arity mismatch must not resolve, got %v", got)
	}
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		decl PredDecl
		want string
	}{
		{PredDecl{Name: "len", Module: "list", ArgTypes: []typesystem.Type{tInt, tInt}}, "list.len/2"},
		{PredDecl{Name: "main", ArgTypes: nil}, "main/0"},
	}
	for _, tt := range tests {
		if got := tt.decl.QualifiedName(); got != tt.want {
			t.Errorf("want %s, got %s", tt.want, got)
		}
	}
}

func TestMethodAndEventLookup(t *testing.T) {
	table := NewTable()
	table.AddMethod(&MethodDecl{Class: "show", Index: 0, Name: "to_string", ArgTypes: []typesystem.Type{tInt}})
	table.AddEvent(&EventDecl{Name: "tick"})

	if m, ok := table.Method("show", 0); !ok || m.Name != "to_string" {
		t.Errorf("method lookup failed: %v, %v", m, ok)
	}
	if _, ok := table.Method("show", 1); ok {
		t.Error("unknown method index must not resolve")
	}
	if _, ok := table.Event("tick"); !ok {
		t.Error("event lookup failed")
	}
	if _, ok := table.Event("tock"); ok {
		t.Error("unknown event must not resolve")
	}
}

func TestFunctionResultIsLastArgType(t *testing.T) {
	table := NewTable()
	table.AddPredicate(&PredDecl{
		Name: "add", Kind: goal.Function,
		ArgTypes: []typesystem.Type{tInt, tInt, tInt},
	})
	preds := table.Predicates("add", 3)
	if len(preds) != 1 {
		t.Fatalf("want add/3, got %d candidates", len(preds))
	}
	if preds[0].Arity() != 3 {
		t.Errorf("a function's arity counts its result position, got %d", preds[0].Arity())
	}
}
