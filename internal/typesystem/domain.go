package typesystem

import "strings"

// Domain is the set of types currently possible for a type variable. It
// forms a lattice: the unconstrained domain (any) on top, finite candidate
// sets below it, and the empty set at the bottom. An empty domain is a
// contradiction and is terminal: no further narrowing of that variable is
// meaningful.
//
// Entries are kept sorted and deduplicated up to structural unification,
// so two candidates differing only in which embedded type variable they
// mention collapse into one entry.
type Domain struct {
	any     bool
	entries []Type
}

// AnyDomain is the unconstrained domain.
func AnyDomain() Domain { return Domain{any: true} }

// EmptyDomain is the contradictory domain.
func EmptyDomain() Domain { return Domain{} }

// SingletonDomain holds exactly one type.
func SingletonDomain(t Type) Domain {
	return Domain{entries: []Type{t}}
}

// NewDomain builds a finite domain from candidates, merging entries that
// structurally unify.
func NewDomain(ts ...Type) Domain {
	d := Domain{}
	for _, t := range ts {
		d.entries = insertMerge(d.entries, t)
	}
	sortTypes(d.entries)
	return d
}

func (d Domain) IsAny() bool   { return d.any }
func (d Domain) IsEmpty() bool { return !d.any && len(d.entries) == 0 }

// Size is the number of candidates in a finite domain. It is meaningless
// for the unconstrained domain; callers check IsAny first.
func (d Domain) Size() int { return len(d.entries) }

// Singleton returns the unique candidate if the domain holds exactly one.
func (d Domain) Singleton() (Type, bool) {
	if d.any || len(d.entries) != 1 {
		return nil, false
	}
	return d.entries[0], true
}

// Entries returns the candidate types in canonical order.
func (d Domain) Entries() []Type { return d.entries }

// Intersect narrows d by other. The unconstrained domain is the identity;
// finite sets are merged pairwise through structural unification, keeping
// the unified form of every compatible pair. Intersect never grows a
// finite domain's candidate set.
func (d Domain) Intersect(other Domain) Domain {
	if d.any {
		return other
	}
	if other.any {
		return d
	}
	out := Domain{}
	for _, x := range d.entries {
		for _, y := range other.entries {
			if u, ok := Unify(x, y); ok {
				out.entries = insertMerge(out.entries, u)
			}
		}
	}
	sortTypes(out.entries)
	return out
}

// Union widens d by other. The unconstrained domain absorbs everything;
// the empty domain is neutral. Entries that structurally unify are merged
// rather than duplicated.
func (d Domain) Union(other Domain) Domain {
	if d.any || other.any {
		return AnyDomain()
	}
	out := Domain{entries: append([]Type(nil), d.entries...)}
	for _, y := range other.entries {
		out.entries = insertMerge(out.entries, y)
	}
	sortTypes(out.entries)
	return out
}

// Equal reports whether two domains hold the same candidates.
func (d Domain) Equal(other Domain) bool {
	if d.any != other.any || len(d.entries) != len(other.entries) {
		return false
	}
	for i := range d.entries {
		if TypeKey(d.entries[i]) != TypeKey(other.entries[i]) {
			return false
		}
	}
	return true
}

func (d Domain) String() string {
	if d.any {
		return "any"
	}
	if len(d.entries) == 0 {
		return "{}"
	}
	parts := make([]string, len(d.entries))
	for i, t := range d.entries {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// insertMerge adds t to entries, folding every entry that structurally
// unifies with it into a single merged entry. One pass suffices because
// the accumulator absorbs each compatible entry as it goes.
func insertMerge(entries []Type, t Type) []Type {
	acc := t
	kept := entries[:0:0]
	for _, e := range entries {
		if u, ok := Unify(e, acc); ok {
			acc = u
			continue
		}
		kept = append(kept, e)
	}
	return append(kept, acc)
}
