package infer

import (
	"strconv"

	"github.com/marlow-lang/marlow/internal/diagnostics"
	"github.com/marlow-lang/marlow/internal/env"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// generate walks the goal tree once, emitting constraints per goal kind.
// Generation never aborts: a goal that cannot be constrained (unknown
// functor, unknown predicate) records a diagnostic and contributes
// nothing, so one run surfaces as many genuine errors as possible.
func (ctx *InferenceContext) generate(g goal.Goal) {
	switch g := g.(type) {
	case *goal.UnifyVars:
		l := ctx.varFor(g.Left)
		r := ctx.varFor(g.Right)
		ctx.equalities = append(ctx.equalities, [2]typesystem.Var{l, r})
		ctx.store.Add(&Constraint{Disjuncts: []*ConjConstraint{{
			Constraints: []SimpleConstraint{{Var: l, Type: typesystem.TVar{ID: r}}},
			Token:       g.Token,
		}}})

	case *goal.UnifyFunctor:
		ctx.generateFunctor(g)

	case *goal.UnifyLambda:
		v := ctx.varFor(g.Var)
		args := make([]typesystem.Type, len(g.Params))
		for i, p := range g.Params {
			args[i] = typesystem.TVar{ID: ctx.varFor(p)}
		}
		var ret typesystem.Type
		if g.Kind == goal.Function && g.Return != nil {
			ret = typesystem.TVar{ID: ctx.varFor(*g.Return)}
		}
		ho := typesystem.THigherOrder{Args: args, Return: ret, Purity: g.Purity}
		ctx.store.Add(&Constraint{Disjuncts: []*ConjConstraint{{
			Constraints: []SimpleConstraint{{Var: v, Type: ho}},
			Token:       g.Token,
		}}})
		ctx.generate(g.Body)

	case *goal.Call:
		preds := ctx.table.Predicates(g.Name, len(g.Args))
		if len(preds) == 0 {
			ctx.report(diagnostics.ErrT001, g.Token, g.Name+"/"+strconv.Itoa(len(g.Args)))
			return
		}
		var disjuncts []*ConjConstraint
		for _, pred := range preds {
			disjuncts = append(disjuncts, ctx.callCandidate(g, pred))
		}
		cid := ctx.store.Add(&Constraint{Disjuncts: disjuncts})
		ctx.recordCallSite(g.Goal, cid)

	case *goal.ForeignCall:
		// Foreign procedures have exactly one known signature, so the
		// constraint is emitted directly with no disjunction.
		preds := ctx.table.Predicates(g.Name, len(g.Args))
		if len(preds) == 0 {
			ctx.report(diagnostics.ErrT001, g.Token, g.Name+"/"+strconv.Itoa(len(g.Args)))
			return
		}
		pred := preds[0]
		conj := &ConjConstraint{Token: g.Token, GoalID: &g.Goal, PredID: &pred.ID}
		ren := typesystem.NewRenaming(ctx.fresh)
		for i, at := range pred.ArgTypes {
			conj.Constraints = append(conj.Constraints, SimpleConstraint{
				Var:  ctx.varFor(g.Args[i]),
				Type: ren.Rename(at),
			})
		}
		cid := ctx.store.Add(&Constraint{Disjuncts: []*ConjConstraint{conj}})
		ctx.recordCallSite(g.Goal, cid)

	case *goal.HigherOrderCall:
		cv := ctx.varFor(g.Closure)
		args := make([]typesystem.Type, len(g.Args))
		for i, a := range g.Args {
			args[i] = typesystem.TVar{ID: ctx.varFor(a)}
		}
		var ret typesystem.Type
		if g.Return != nil {
			ret = typesystem.TVar{ID: ctx.varFor(*g.Return)}
		}
		ho := typesystem.THigherOrder{Args: args, Return: ret, Purity: g.Purity}
		ctx.store.Add(&Constraint{Disjuncts: []*ConjConstraint{{
			Constraints: []SimpleConstraint{{Var: cv, Type: ho}},
			Token:       g.Token,
		}}})

	case *goal.MethodCall:
		m, ok := ctx.table.Method(g.Class, g.Method)
		if !ok || len(m.ArgTypes) != len(g.Args) {
			ctx.report(diagnostics.ErrT001, g.Token,
				"method "+g.Class+"#"+strconv.Itoa(g.Method))
			return
		}
		conj := &ConjConstraint{Token: g.Token}
		ren := typesystem.NewRenaming(ctx.fresh)
		for i, at := range m.ArgTypes {
			conj.Constraints = append(conj.Constraints, SimpleConstraint{
				Var:  ctx.varFor(g.Args[i]),
				Type: ren.Rename(at),
			})
		}
		ctx.store.Add(&Constraint{Disjuncts: []*ConjConstraint{conj}})

	case *goal.EventCall:
		if _, ok := ctx.table.Event(g.Name); !ok {
			ctx.report(diagnostics.ErrT001, g.Token, "event "+g.Name)
			return
		}
		// Known event, but event calls are not supported by the checker.
		ctx.report(diagnostics.ErrT002, g.Token, "event call "+g.Name)

	case *goal.Cast:
		// A cast is an unchecked type change; it relates the two
		// variables operationally but contributes no type constraint.
		ctx.varFor(g.From)
		ctx.varFor(g.To)

	case *goal.Conj:
		for _, sub := range g.Goals {
			ctx.generate(sub)
		}
	case *goal.Disj:
		for _, sub := range g.Goals {
			ctx.generate(sub)
		}
	case *goal.Negation:
		ctx.generate(g.Goal)
	case *goal.Scope:
		ctx.generate(g.Goal)
	case *goal.IfThenElse:
		ctx.generate(g.Cond)
		ctx.generate(g.Then)
		ctx.generate(g.Else)
	case *goal.Switch:
		for _, c := range g.Cases {
			ctx.generate(c.Arm)
		}
	case *goal.Atomic:
		ctx.generate(g.Main)
		for _, alt := range g.Alternatives {
			ctx.generate(alt)
		}
	case *goal.BiImplication:
		ctx.generate(g.Left)
		ctx.generate(g.Right)
	}
}

// generateFunctor emits the candidates for X = f(A1, ..., An): every
// constructor definition of f/n, plus a closure candidate for every
// predicate or function f taking at least n arguments. More than one
// candidate becomes a disjunction, deferring resolution to solving.
func (ctx *InferenceContext) generateFunctor(g *goal.UnifyFunctor) {
	v := ctx.varFor(g.Var)
	argVars := make([]typesystem.Var, len(g.Args))
	for i, a := range g.Args {
		argVars[i] = ctx.varFor(a)
	}

	var disjuncts []*ConjConstraint

	for _, cons := range ctx.table.Constructors(g.Functor, len(g.Args)) {
		ren := typesystem.NewRenaming(ctx.fresh)
		conj := &ConjConstraint{Token: g.Token, GoalID: &g.Goal}
		conj.Constraints = append(conj.Constraints, SimpleConstraint{
			Var:  v,
			Type: ren.Rename(cons.ResultType),
		})
		for i, at := range cons.ArgTypes {
			conj.Constraints = append(conj.Constraints, SimpleConstraint{
				Var:  argVars[i],
				Type: ren.Rename(at),
			})
		}
		disjuncts = append(disjuncts, conj)
	}

	for _, pred := range ctx.table.PredicatesWithMinArity(g.Functor, len(g.Args)) {
		if conj := ctx.closureCandidate(g, pred, v, argVars); conj != nil {
			disjuncts = append(disjuncts, conj)
		}
	}

	if len(disjuncts) == 0 {
		ctx.report(diagnostics.ErrT001, g.Token,
			g.Functor+"/"+strconv.Itoa(len(g.Args)))
		return
	}
	cid := ctx.store.Add(&Constraint{Disjuncts: disjuncts})
	ctx.recordCallSite(g.Goal, cid)
}

// callCandidate builds the conjunct for one predicate candidate of a
// direct call, recording (goal, predicate) for overload write-back.
func (ctx *InferenceContext) callCandidate(g *goal.Call, pred *env.PredDecl) *ConjConstraint {
	conj := &ConjConstraint{Token: g.Token, GoalID: &g.Goal, PredID: &pred.ID}
	ren := typesystem.NewRenaming(ctx.fresh)
	for i, at := range pred.ArgTypes {
		conj.Constraints = append(conj.Constraints, SimpleConstraint{
			Var:  ctx.varFor(g.Args[i]),
			Type: ren.Rename(at),
		})
	}
	return conj
}

// closureCandidate builds the conjunct for f taken as a closure: the
// first n declared argument types constrain the supplied arguments, and
// the left-hand variable gets the higher-order type of what remains. A
// function must keep its result position, so a function of arity m can
// be curried with at most m-1 arguments.
func (ctx *InferenceContext) closureCandidate(g *goal.UnifyFunctor, pred *env.PredDecl, v typesystem.Var, argVars []typesystem.Var) *ConjConstraint {
	n := len(argVars)
	var closureArgs []typesystem.Type
	var ret typesystem.Type

	ren := typesystem.NewRenaming(ctx.fresh)
	renamed := make([]typesystem.Type, len(pred.ArgTypes))
	for i, at := range pred.ArgTypes {
		renamed[i] = ren.Rename(at)
	}

	if pred.Kind == goal.Function {
		if len(renamed)-1 < n {
			return nil
		}
		closureArgs = renamed[n : len(renamed)-1]
		ret = renamed[len(renamed)-1]
	} else {
		closureArgs = renamed[n:]
	}

	conj := &ConjConstraint{Token: g.Token, GoalID: &g.Goal, PredID: &pred.ID}
	conj.Constraints = append(conj.Constraints, SimpleConstraint{
		Var:  v,
		Type: typesystem.THigherOrder{Args: closureArgs, Return: ret, Purity: pred.Purity},
	})
	for i := 0; i < n; i++ {
		conj.Constraints = append(conj.Constraints, SimpleConstraint{
			Var:  argVars[i],
			Type: renamed[i],
		})
	}
	return conj
}
