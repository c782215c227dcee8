package infer

import (
	"context"
	"strings"
	"testing"

	"github.com/marlow-lang/marlow/internal/diagnostics"
	"github.com/marlow-lang/marlow/internal/env"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/token"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

var (
	tInt    = typesystem.TBuiltin{B: typesystem.BuiltinInt}
	tFloat  = typesystem.TBuiltin{B: typesystem.BuiltinFloat}
	tString = typesystem.TBuiltin{B: typesystem.BuiltinString}
)

func tok(line, col int) token.Token {
	return token.Token{Line: line, Column: col}
}

func listOf(t typesystem.Type) typesystem.Type {
	return typesystem.TDefined{Name: "list", Args: []typesystem.Type{t}}
}

// listTable declares list(T) with nil/0 and cons/2.
func listTable() *env.Table {
	table := env.NewTable()
	elem := typesystem.TVar{ID: 1000}
	table.AddConstructor(&env.ConsDecl{
		Functor:    "nil",
		TypeName:   "list",
		Params:     []typesystem.Var{elem.ID},
		ResultType: listOf(elem),
		Token:      tok(1, 1),
	})
	table.AddConstructor(&env.ConsDecl{
		Functor:    "cons",
		TypeName:   "list",
		Params:     []typesystem.Var{elem.ID},
		ResultType: listOf(elem),
		ArgTypes:   []typesystem.Type{elem, listOf(elem)},
		Token:      tok(1, 1),
	})
	return table
}

func addForeign(table *env.Table, name string, args ...typesystem.Type) {
	table.AddPredicate(&env.PredDecl{
		Name:     name,
		Kind:     goal.Predicate,
		ArgTypes: args,
		Token:    tok(1, 1),
	})
}

func errorsWithCode(errs []*diagnostics.DiagnosticError, code diagnostics.ErrorCode) []*diagnostics.DiagnosticError {
	var out []*diagnostics.DiagnosticError
	for _, e := range errs {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

func TestSolveDeterministicBodyNeedsNoSearch(t *testing.T) {
	const (
		x goal.ProgVar = iota
		y
		e
	)
	body := &goal.Conj{Goals: []goal.Goal{
		&goal.UnifyFunctor{Token: tok(2, 5), Var: x, Functor: "nil", Goal: 1},
		&goal.UnifyFunctor{Token: tok(3, 5), Var: y, Functor: "cons", Args: []goal.ProgVar{e, x}, Goal: 2},
	}}

	res := Solve(listTable(), Procedure{Args: []goal.ProgVar{x, y}, Body: body})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	for _, pv := range []goal.ProgVar{x, y} {
		d, ok := res.VarTypes[pv].(typesystem.TDefined)
		if !ok || d.Name != "list" || len(d.Args) != 1 {
			t.Errorf("var %d: want list/1, got %v", pv, res.VarTypes[pv])
		}
	}
	if _, ok := res.VarTypes[e].(typesystem.TVar); !ok {
		t.Errorf("element: want free type variable, got %v", res.VarTypes[e])
	}

	for _, gid := range []goal.ID{1, 2} {
		b, ok := res.Bindings[gid]
		if !ok || !b.Resolved {
			t.Errorf("goal %d: want resolved constructor binding, got %+v", gid, b)
		}
		if b.Pred != nil {
			t.Errorf("goal %d: constructor binding should have no predicate", gid)
		}
	}
}

func TestOverloadResolvedByArgumentType(t *testing.T) {
	const (
		x goal.ProgVar = iota
		n
	)
	table := env.NewTable()
	addForeign(table, "mk_string", tString)
	table.AddPredicate(&env.PredDecl{
		Name: "parse", Module: "text", Kind: goal.Predicate,
		ArgTypes: []typesystem.Type{tString, tInt}, Token: tok(1, 1),
	})
	table.AddPredicate(&env.PredDecl{
		Name: "parse", Module: "math", Kind: goal.Predicate,
		ArgTypes: []typesystem.Type{tFloat, tInt}, Token: tok(1, 1),
	})

	body := &goal.Conj{Goals: []goal.Goal{
		&goal.ForeignCall{Token: tok(2, 5), Name: "mk_string", Args: []goal.ProgVar{x}, Goal: 1},
		&goal.Call{Token: tok(3, 5), Name: "parse", Args: []goal.ProgVar{x, n}, Goal: 2},
	}}

	res := Solve(table, Procedure{Args: []goal.ProgVar{x, n}, Body: body})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	b := res.Bindings[2]
	if !b.Resolved || b.Pred == nil {
		t.Fatalf("call should resolve to one candidate, got %+v", b)
	}
	if b.Pred.Module != "text" {
		t.Errorf("want text.parse/2, got %s", b.Pred.QualifiedName())
	}
	if !typesystem.SameType(res.VarTypes[x], tString) {
		t.Errorf("x: want string, got %v", res.VarTypes[x])
	}
	if !typesystem.SameType(res.VarTypes[n], tInt) {
		t.Errorf("n: want int, got %v", res.VarTypes[n])
	}
}

func TestAmbiguousOverloadReported(t *testing.T) {
	const (
		x goal.ProgVar = iota
		n
	)
	table := env.NewTable()
	table.AddPredicate(&env.PredDecl{
		Name: "parse", Module: "math", Kind: goal.Predicate,
		ArgTypes: []typesystem.Type{tInt, tInt}, Token: tok(1, 1),
	})
	table.AddPredicate(&env.PredDecl{
		Name: "parse", Module: "sci", Kind: goal.Predicate,
		ArgTypes: []typesystem.Type{tFloat, tInt}, Token: tok(1, 1),
	})

	body := &goal.Call{Token: tok(2, 5), Name: "parse", Args: []goal.ProgVar{x, n}, Goal: 1}
	res := Solve(table, Procedure{Args: []goal.ProgVar{x, n}, Body: body, Token: tok(2, 1)})

	ambiguousType := errorsWithCode(res.Errors, diagnostics.ErrT004)
	if len(ambiguousType) != 1 {
		t.Fatalf("want exactly one ambiguous-type report, got %v", res.Errors)
	}
	msg := ambiguousType[0].Message
	if !strings.Contains(msg, "int") || !strings.Contains(msg, "float") {
		t.Errorf("ambiguity should name both candidates, got %q", msg)
	}

	ambiguousCall := errorsWithCode(res.Errors, diagnostics.ErrT005)
	if len(ambiguousCall) != 1 {
		t.Fatalf("want exactly one ambiguous-call report, got %v", res.Errors)
	}
	callMsg := ambiguousCall[0].Message
	if !strings.Contains(callMsg, "math.parse/2") || !strings.Contains(callMsg, "sci.parse/2") {
		t.Errorf("ambiguous call should list candidates, got %q", callMsg)
	}

	// The ambiguous variable falls back to a free type variable; the
	// agreed-upon one keeps its type.
	if _, ok := res.VarTypes[x].(typesystem.TVar); !ok {
		t.Errorf("x: want free type variable, got %v", res.VarTypes[x])
	}
	if !typesystem.SameType(res.VarTypes[n], tInt) {
		t.Errorf("n: want int, got %v", res.VarTypes[n])
	}

	b := res.Bindings[1]
	if b.Resolved || len(b.Candidates) != 2 {
		t.Errorf("binding should stay open with both candidates, got %+v", b)
	}
}

func TestUnsatisfiableCitesMinimalConflict(t *testing.T) {
	const (
		x goal.ProgVar = iota
		y
	)
	table := listTable()
	addForeign(table, "mk_int", tInt)
	addForeign(table, "mk_string", tString)

	body := &goal.Conj{Goals: []goal.Goal{
		&goal.ForeignCall{Token: tok(2, 5), Name: "mk_int", Args: []goal.ProgVar{x}, Goal: 1},
		&goal.UnifyFunctor{Token: tok(3, 5), Var: y, Functor: "nil", Goal: 2},
		&goal.ForeignCall{Token: tok(4, 5), Name: "mk_string", Args: []goal.ProgVar{x}, Goal: 3},
	}}

	res := Solve(table, Procedure{Args: []goal.ProgVar{x, y}, Body: body})

	unsat := errorsWithCode(res.Errors, diagnostics.ErrT003)
	if len(unsat) != 1 {
		t.Fatalf("want exactly one unsatisfiability report, got %v", res.Errors)
	}
	e := unsat[0]
	if e.Token != tok(2, 5) {
		t.Errorf("report should anchor at the first conflicting goal, got %v", e.Token)
	}
	if !strings.Contains(e.Message, tok(4, 5).Pos()) {
		t.Errorf("report should cite the other conflict site, got %q", e.Message)
	}
	if strings.Contains(e.Message, tok(3, 5).Pos()) {
		t.Errorf("the satisfiable goal must not be blamed, got %q", e.Message)
	}
	if _, ok := res.VarTypes[x].(typesystem.TVar); !ok {
		t.Errorf("x: want free type variable after failure, got %v", res.VarTypes[x])
	}
}

func TestVariableEqualityCollapse(t *testing.T) {
	const (
		x goal.ProgVar = iota
		y
	)
	body := &goal.UnifyVars{Token: tok(2, 5), Left: x, Right: y}
	res := Solve(env.NewTable(), Procedure{Args: []goal.ProgVar{x, y}, Body: body})

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	xv, xok := res.VarTypes[x].(typesystem.TVar)
	yv, yok := res.VarTypes[y].(typesystem.TVar)
	if !xok || !yok {
		t.Fatalf("want free type variables, got %v and %v", res.VarTypes[x], res.VarTypes[y])
	}
	if xv.ID != yv.ID {
		t.Errorf("equated variables should share one type variable, got %v and %v", xv, yv)
	}
}

func TestDeclarationSeedsArgumentTypes(t *testing.T) {
	const (
		x goal.ProgVar = iota
		y
	)
	elem := typesystem.TVar{ID: 1000}
	decl := &env.PredDecl{
		Name: "p", Kind: goal.Predicate,
		ArgTypes: []typesystem.Type{tInt, listOf(elem)},
		Token:    tok(1, 1),
	}
	res := Solve(env.NewTable(), Procedure{
		Decl: decl,
		Args: []goal.ProgVar{x, y},
		Body: &goal.Conj{Token: tok(2, 1)},
	})

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if !typesystem.SameType(res.VarTypes[x], tInt) {
		t.Errorf("x: want int, got %v", res.VarTypes[x])
	}
	d, ok := res.VarTypes[y].(typesystem.TDefined)
	if !ok || d.Name != "list" {
		t.Errorf("y: want list type from declaration, got %v", res.VarTypes[y])
	}
}

func TestFunctorAsClosure(t *testing.T) {
	const (
		x goal.ProgVar = iota
		a
	)
	table := env.NewTable()
	table.AddPredicate(&env.PredDecl{
		Name: "add", Kind: goal.Function,
		ArgTypes: []typesystem.Type{tInt, tInt, tInt},
		Token:    tok(1, 1),
	})

	body := &goal.UnifyFunctor{Token: tok(2, 5), Var: x, Functor: "add", Args: []goal.ProgVar{a}, Goal: 1}
	res := Solve(table, Procedure{Args: []goal.ProgVar{x, a}, Body: body})

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	ho, ok := res.VarTypes[x].(typesystem.THigherOrder)
	if !ok {
		t.Fatalf("x: want higher-order type, got %v", res.VarTypes[x])
	}
	if len(ho.Args) != 1 || ho.Return == nil {
		t.Errorf("partial application of add/3 to one argument should leave func(int) = int, got %v", ho)
	}
	if !typesystem.SameType(res.VarTypes[a], tInt) {
		t.Errorf("a: want int, got %v", res.VarTypes[a])
	}
}

func TestUndefinedSymbols(t *testing.T) {
	const x goal.ProgVar = 0
	body := &goal.Conj{Goals: []goal.Goal{
		&goal.Call{Token: tok(2, 5), Name: "nope", Args: []goal.ProgVar{x}, Goal: 1},
		&goal.UnifyFunctor{Token: tok(3, 5), Var: x, Functor: "mystery", Goal: 2},
	}}
	res := Solve(env.NewTable(), Procedure{Args: []goal.ProgVar{x}, Body: body})

	undefined := errorsWithCode(res.Errors, diagnostics.ErrT001)
	if len(undefined) != 2 {
		t.Fatalf("want one undefined-symbol report per goal, got %v", res.Errors)
	}
	if _, ok := res.VarTypes[x].(typesystem.TVar); !ok {
		t.Errorf("x: want free type variable, got %v", res.VarTypes[x])
	}
}

func TestCheckAllDeterministicAcrossWorkerCounts(t *testing.T) {
	table := env.NewTable()
	table.AddPredicate(&env.PredDecl{
		Name: "parse", Module: "math", Kind: goal.Predicate,
		ArgTypes: []typesystem.Type{tInt, tInt}, Token: tok(1, 1),
	})
	table.AddPredicate(&env.PredDecl{
		Name: "parse", Module: "sci", Kind: goal.Predicate,
		ArgTypes: []typesystem.Type{tFloat, tInt}, Token: tok(1, 1),
	})
	addForeign(table, "mk_int", tInt)
	addForeign(table, "mk_string", tString)

	var procs []Procedure
	for i := 0; i < 8; i++ {
		procs = append(procs,
			Procedure{
				File:  "a.mw",
				Token: tok(10*i+1, 1),
				Args:  []goal.ProgVar{0, 1},
				Body:  &goal.Call{Token: tok(10*i+2, 5), Name: "parse", Args: []goal.ProgVar{0, 1}, Goal: 1},
			},
			Procedure{
				File: "b.mw",
				Args: []goal.ProgVar{0},
				Body: &goal.Conj{Goals: []goal.Goal{
					&goal.ForeignCall{Token: tok(10*i+3, 5), Name: "mk_int", Args: []goal.ProgVar{0}, Goal: 1},
					&goal.ForeignCall{Token: tok(10*i+4, 5), Name: "mk_string", Args: []goal.ProgVar{0}, Goal: 2},
				}},
			},
		)
	}

	render := func(errs []*diagnostics.DiagnosticError) []string {
		out := make([]string, len(errs))
		for i, e := range errs {
			out[i] = e.Error()
		}
		return out
	}

	_, serial := CheckAll(context.Background(), table, procs, 1)
	for _, workers := range []int{2, 4, 8} {
		_, parallel := CheckAll(context.Background(), table, procs, workers)
		a, b := render(serial), render(parallel)
		if len(a) != len(b) {
			t.Fatalf("workers=%d: diagnostic count differs: %d vs %d", workers, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("workers=%d: diagnostic %d differs: %q vs %q", workers, i, a[i], b[i])
			}
		}
	}
}
