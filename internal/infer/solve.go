package infer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marlow-lang/marlow/internal/diagnostics"
	"github.com/marlow-lang/marlow/internal/env"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/parallel"
	"github.com/marlow-lang/marlow/internal/token"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// Procedure is one clause body to check: an optional declared signature,
// the head variables in declaration order, and the body goal.
type Procedure struct {
	Decl  *env.PredDecl
	Args  []goal.ProgVar
	Body  goal.Goal
	File  string
	Token token.Token
}

// Binding records how an overloaded call or construction goal was
// resolved. Pred is nil when a constructor interpretation won. When the
// goal stays ambiguous, Candidates lists the predicates still in play.
type Binding struct {
	Resolved   bool
	Pred       *env.PredDecl
	Candidates []*env.PredDecl
}

// Result is everything inference learned about one procedure: the type
// assigned to each program variable, the resolution of each overloaded
// goal, and the diagnostics raised along the way. Variables the
// constraints never pin down keep a free type variable.
type Result struct {
	VarTypes map[goal.ProgVar]typesystem.Type
	Bindings map[goal.ID]Binding
	Errors   []*diagnostics.DiagnosticError
}

// Solve type-checks one procedure body against the symbol table. It
// generates constraints for the body, propagates them to a fixpoint,
// searches the remaining candidates, and merges all solutions into a
// single result. Solve never panics on bad input; problems surface as
// diagnostics on the result.
func Solve(table *env.Table, proc Procedure) *Result {
	ctx := newContext(table, proc.File)

	for _, pv := range proc.Args {
		ctx.varFor(pv)
	}
	if proc.Decl != nil {
		seedDeclaration(ctx, proc)
	}
	ctx.generate(proc.Body)

	prop := &propagator{store: ctx.store}
	s := newState()
	var solutions []*state
	var collapsed typesystem.Subst
	if prop.run(s) {
		collapsed = collapseEqualities(s, ctx.equalities)
		solutions = (&search{prop: prop}).run(s)
	}

	res := &Result{
		VarTypes: map[goal.ProgVar]typesystem.Type{},
		Bindings: map[goal.ID]Binding{},
	}

	if len(solutions) == 0 {
		diagnoseUnsatisfiable(ctx)
		for _, id := range ctx.store.IDs() {
			for _, conj := range ctx.store.Get(id).Disjuncts {
				conj.Unsatisfiable = true
			}
		}
		// Best-effort types from the partially narrowed domains, so later
		// passes can run in a degraded mode.
		for pv, v := range ctx.varMap {
			rv := representative(v, collapsed)
			if t, ok := s.domain(rv).Singleton(); ok {
				res.VarTypes[pv] = t
				continue
			}
			res.VarTypes[pv] = typesystem.TVar{ID: rv}
		}
		res.Errors = ctx.errors
		return res
	}

	writeBackActivity(ctx.store, solutions)
	extractTypes(ctx, res, solutions, collapsed, proc)
	resolveBindings(ctx, res, solutions)

	res.Errors = ctx.errors
	return res
}

// seedDeclaration constrains each head variable with the declared
// argument type, renamed apart so distinct procedures never share type
// variables.
func seedDeclaration(ctx *InferenceContext, proc Procedure) {
	ren := typesystem.NewRenaming(ctx.fresh)
	for i, pv := range proc.Args {
		if i >= len(proc.Decl.ArgTypes) {
			break
		}
		conj := &ConjConstraint{
			Token: proc.Decl.Token,
			Constraints: []SimpleConstraint{{
				Var:  ctx.varFor(pv),
				Type: ren.Rename(proc.Decl.ArgTypes[i]),
			}},
		}
		ctx.store.Add(&Constraint{Disjuncts: []*ConjConstraint{conj}})
	}
}

// representative follows the equality-collapse substitution from a
// variable to its class representative.
func representative(v typesystem.Var, collapsed typesystem.Subst) typesystem.Var {
	if collapsed == nil {
		return v
	}
	if t, ok := collapsed[v]; ok {
		if tv, isVar := t.(typesystem.TVar); isVar {
			return tv.ID
		}
	}
	return v
}

// writeBackActivity marks a disjunct unsatisfiable only when every
// solution rejected it; a candidate viable in any solution stays active.
func writeBackActivity(store *Store, solutions []*state) {
	for _, id := range store.IDs() {
		for _, conj := range store.Get(id).Disjuncts {
			dead := true
			for _, sol := range solutions {
				if !sol.unsat[conj] {
					dead = false
					break
				}
			}
			conj.Unsatisfiable = dead
		}
	}
}

// extractTypes merges the per-solution domains and assigns each program
// variable its final type: the merged singleton when the solutions
// agree, otherwise the variable's own free type variable plus an
// ambiguity report when finitely many types compete.
func extractTypes(ctx *InferenceContext, res *Result, solutions []*state, collapsed typesystem.Subst, proc Procedure) {
	vars := make([]goal.ProgVar, 0, len(ctx.varMap))
	for pv := range ctx.varMap {
		vars = append(vars, pv)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	for _, pv := range vars {
		rv := representative(ctx.varMap[pv], collapsed)
		merged := typesystem.EmptyDomain()
		for _, sol := range solutions {
			merged = merged.Union(sol.domain(rv))
		}
		if t, ok := merged.Singleton(); ok {
			res.VarTypes[pv] = t
			continue
		}
		res.VarTypes[pv] = typesystem.TVar{ID: rv}
		if !merged.IsAny() && merged.Size() > 1 {
			ctx.report(diagnostics.ErrT004, proc.Token,
				fmt.Sprintf("%s could be any of %s", typesystem.TVar{ID: rv}, merged))
		}
	}
}

// resolveBindings inspects each recorded call site after the merge. One
// surviving candidate resolves the overload; several surviving
// predicates is an ambiguous call.
func resolveBindings(ctx *InferenceContext, res *Result, solutions []*state) {
	for _, gid := range ctx.callOrder {
		c := ctx.store.Get(ctx.callSites[gid])
		var survivors []*ConjConstraint
		for _, conj := range c.Disjuncts {
			if !conj.Unsatisfiable {
				survivors = append(survivors, conj)
			}
		}
		switch len(survivors) {
		case 0:
			res.Bindings[gid] = Binding{}
		case 1:
			b := Binding{Resolved: true}
			if survivors[0].PredID != nil {
				if pred, ok := ctx.table.Predicate(*survivors[0].PredID); ok {
					b.Pred = pred
				}
			}
			res.Bindings[gid] = b
		default:
			b := Binding{}
			seen := map[env.PredID]bool{}
			var names []string
			for _, conj := range survivors {
				if conj.PredID == nil || seen[*conj.PredID] {
					continue
				}
				seen[*conj.PredID] = true
				pred, ok := ctx.table.Predicate(*conj.PredID)
				if !ok {
					continue
				}
				b.Candidates = append(b.Candidates, pred)
				names = append(names, pred.QualifiedName())
			}
			res.Bindings[gid] = b
			if len(b.Candidates) > 1 {
				ctx.report(diagnostics.ErrT005, survivors[0].Token, names...)
			}
		}
	}
}

// CheckAll solves every procedure, fanning the independent bodies out
// over a worker pool. Results come back in input order and the combined
// diagnostics are sorted, so output is identical for any worker count.
func CheckAll(ctx context.Context, table *env.Table, procs []Procedure, workers int) ([]*Result, []*diagnostics.DiagnosticError) {
	results := make([]*Result, len(procs))

	pool := parallel.NewWorkerPool(workers)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	for i := range procs {
		i := i
		wg.Add(1)
		err := pool.Submit(ctx, func() {
			defer wg.Done()
			results[i] = Solve(table, procs[i])
		})
		if err != nil {
			wg.Done()
		}
	}
	wg.Wait()

	var all []*diagnostics.DiagnosticError
	for i, r := range results {
		if r == nil {
			results[i] = &Result{
				VarTypes: map[goal.ProgVar]typesystem.Type{},
				Bindings: map[goal.ID]Binding{},
			}
			continue
		}
		all = append(all, r.Errors...)
	}
	diagnostics.Sort(all)
	return results, all
}
