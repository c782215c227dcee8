package infer

import (
	"github.com/marlow-lang/marlow/internal/diagnostics"
	"github.com/marlow-lang/marlow/internal/env"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/token"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// InferenceContext owns all mutable state of one procedure's generation
// and solve pass: the program-variable mapping, the variable counter, the
// constraint store and the accumulated diagnostics. It is created fresh
// per procedure, never shared, and discarded once results are extracted.
type InferenceContext struct {
	table *env.Table
	file  string

	varMap map[goal.ProgVar]typesystem.Var
	next   typesystem.Var

	store *Store

	// equalities records every variable-to-variable unification emitted
	// during generation; the collapse step elects representatives from
	// them after solving.
	equalities [][2]typesystem.Var

	// callSites maps call and construction goals to their governing
	// constraint, in emission order, for overload write-back.
	callSites  map[goal.ID]ConstraintID
	callOrder  []goal.ID
	errors     []*diagnostics.DiagnosticError
}

func newContext(table *env.Table, file string) *InferenceContext {
	return &InferenceContext{
		table:     table,
		file:      file,
		varMap:    map[goal.ProgVar]typesystem.Var{},
		store:     NewStore(),
		callSites: map[goal.ID]ConstraintID{},
	}
}

// fresh allocates the next type variable of this pass.
func (ctx *InferenceContext) fresh() typesystem.Var {
	v := ctx.next
	ctx.next++
	return v
}

// varFor returns the type variable of a program variable, allocating it
// on first sight.
func (ctx *InferenceContext) varFor(pv goal.ProgVar) typesystem.Var {
	if v, ok := ctx.varMap[pv]; ok {
		return v
	}
	v := ctx.fresh()
	ctx.varMap[pv] = v
	return v
}

func (ctx *InferenceContext) report(code diagnostics.ErrorCode, tok token.Token, args ...string) {
	d := diagnostics.NewError(code, tok, args...)
	d.File = ctx.file
	ctx.errors = append(ctx.errors, d)
}

func (ctx *InferenceContext) recordCallSite(id goal.ID, cid ConstraintID) {
	if _, ok := ctx.callSites[id]; !ok {
		ctx.callOrder = append(ctx.callOrder, id)
	}
	ctx.callSites[id] = cid
}
