package infer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marlow-lang/marlow/internal/diagnostics"
	"github.com/marlow-lang/marlow/internal/token"
)

// satisfiable reports whether the given subset of constraints admits at
// least one fully-labeled solution, starting from unconstrained domains.
func satisfiable(store *Store, subset []ConstraintID) bool {
	include := make(map[ConstraintID]bool, len(subset))
	for _, id := range subset {
		include[id] = true
	}
	prop := &propagator{store: store, subset: include}
	s := newState()
	if !prop.run(s) {
		return false
	}
	return len((&search{prop: prop}).run(s)) > 0
}

// minimalUnsatisfiable enumerates the minimal unsatisfiable subsets of
// the store's constraints. Each branch drops or keeps the next constraint;
// a branch whose full candidate set is satisfiable cannot contain a
// conflict, and supersets of subsets already found are pruned. The store
// is per procedure, so the exponential worst case never bites in
// practice.
func minimalUnsatisfiable(store *Store) [][]ConstraintID {
	all := store.IDs()
	if satisfiable(store, all) {
		return nil
	}
	var found [][]ConstraintID
	var walk func(picked, deferred []ConstraintID)
	walk = func(picked, deferred []ConstraintID) {
		for _, f := range found {
			if containsAll(picked, f) {
				return
			}
		}
		if satisfiable(store, append(append([]ConstraintID{}, picked...), deferred...)) {
			return
		}
		if len(deferred) == 0 {
			found = append(found, append([]ConstraintID{}, picked...))
			return
		}
		rest := deferred[1:]
		walk(picked, rest)
		walk(append(append([]ConstraintID{}, picked...), deferred[0]), rest)
	}
	walk(nil, all)

	var minimal [][]ConstraintID
	for i, s := range found {
		redundant := false
		for j, other := range found {
			if i != j && len(other) < len(s) && containsAll(s, other) {
				redundant = true
				break
			}
		}
		if !redundant {
			minimal = append(minimal, s)
		}
	}
	return minimal
}

func containsAll(haystack, needles []ConstraintID) bool {
	set := make(map[ConstraintID]bool, len(haystack))
	for _, id := range haystack {
		set[id] = true
	}
	for _, id := range needles {
		if !set[id] {
			return false
		}
	}
	return true
}

// diagnoseUnsatisfiable turns each minimal conflicting subset into one
// report anchored at its earliest location and citing the others, so the
// user sees the program points that cannot agree rather than a bare
// failure.
func diagnoseUnsatisfiable(ctx *InferenceContext) {
	for _, subset := range minimalUnsatisfiable(ctx.store) {
		tokens := subsetTokens(ctx.store, subset)
		if len(tokens) == 0 {
			continue
		}
		anchor := tokens[0]
		var cites []string
		for _, t := range tokens[1:] {
			cites = append(cites, t.Pos())
		}
		if len(cites) == 0 {
			ctx.report(diagnostics.ErrT003, anchor)
			continue
		}
		ctx.report(diagnostics.ErrT003, anchor,
			fmt.Sprintf("conflicts with %s", strings.Join(cites, ", ")))
	}
}

// subsetTokens collects the distinct source locations of a constraint
// subset in position order.
func subsetTokens(store *Store, subset []ConstraintID) []token.Token {
	seen := map[token.Token]bool{}
	var out []token.Token
	for _, id := range subset {
		for _, conj := range store.Get(id).Disjuncts {
			if conj.Token == (token.Token{}) || seen[conj.Token] {
				continue
			}
			seen[conj.Token] = true
			out = append(out, conj.Token)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
