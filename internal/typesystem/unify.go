package typesystem

// Unify merges two type terms structurally. It is a partial function: the
// second result is false when the terms cannot describe the same type.
//
// A type variable unifies with anything, keeping the other operand's
// structure. When both operands are variables the left one is kept, so
// Unify(list(V1), list(V2)) returns list(V1). Compound terms unify only
// with the same constructor and arity, recursing pairwise; builtins must
// match exactly; higher-order terms additionally require matching purity,
// call mechanism and presence of a return type.
//
// Unify does not bind variables. Variable-to-variable equalities are
// tracked by the constraint store and resolved by the collapse step after
// solving; here they only decide whether two candidate entries describe
// the same type shape.
func Unify(a, b Type) (Type, bool) {
	if ka, ok := a.(TKinded); ok {
		if kb, ok := b.(TKinded); ok {
			if !ka.KindVal.Equal(kb.KindVal) {
				return nil, false
			}
			inner, ok := Unify(ka.Type, kb.Type)
			if !ok {
				return nil, false
			}
			return TKinded{Type: inner, KindVal: ka.KindVal}, true
		}
		inner, ok := Unify(ka.Type, b)
		if !ok {
			return nil, false
		}
		return TKinded{Type: inner, KindVal: ka.KindVal}, true
	}
	if kb, ok := b.(TKinded); ok {
		inner, ok := Unify(a, kb.Type)
		if !ok {
			return nil, false
		}
		return TKinded{Type: inner, KindVal: kb.KindVal}, true
	}

	if _, ok := a.(TVar); ok {
		if _, ok := b.(TVar); ok {
			return a, true
		}
		return b, true
	}
	if _, ok := b.(TVar); ok {
		return a, true
	}

	switch a := a.(type) {
	case TBuiltin:
		if b, ok := b.(TBuiltin); ok && a.B == b.B {
			return a, true
		}
		return nil, false

	case TDefined:
		b, ok := b.(TDefined)
		if !ok || a.Name != b.Name || len(a.Args) != len(b.Args) {
			return nil, false
		}
		args, ok := unifyAll(a.Args, b.Args)
		if !ok {
			return nil, false
		}
		return TDefined{Name: a.Name, Args: args, KindVal: a.KindVal}, true

	case TTuple:
		b, ok := b.(TTuple)
		if !ok || len(a.Args) != len(b.Args) {
			return nil, false
		}
		args, ok := unifyAll(a.Args, b.Args)
		if !ok {
			return nil, false
		}
		return TTuple{Args: args}, true

	case THigherOrder:
		b, ok := b.(THigherOrder)
		if !ok || a.Purity != b.Purity || a.Eval != b.Eval {
			return nil, false
		}
		if len(a.Args) != len(b.Args) || (a.Return == nil) != (b.Return == nil) {
			return nil, false
		}
		args, ok := unifyAll(a.Args, b.Args)
		if !ok {
			return nil, false
		}
		var ret Type
		if a.Return != nil {
			ret, ok = Unify(a.Return, b.Return)
			if !ok {
				return nil, false
			}
		}
		return THigherOrder{Args: args, Return: ret, Purity: a.Purity, Eval: a.Eval}, true

	case TApply:
		switch b := b.(type) {
		case TApply:
			if len(a.Args) != len(b.Args) {
				return nil, false
			}
			args, ok := unifyAll(a.Args, b.Args)
			if !ok {
				return nil, false
			}
			return TApply{Head: a.Head, Args: args, KindVal: a.KindVal}, true
		case TDefined:
			return unifyApplyDefined(a, b)
		}
		return nil, false
	}

	if b, ok := b.(TApply); ok {
		if a, ok := a.(TDefined); ok {
			return unifyApplyDefined(b, a)
		}
	}

	return nil, false
}

// unifyApplyDefined merges a variable-headed application with a defined
// type: the application's arguments line up with the tail of the defined
// type's arguments and the head stands for the remaining prefix.
func unifyApplyDefined(a TApply, b TDefined) (Type, bool) {
	if len(a.Args) > len(b.Args) {
		return nil, false
	}
	split := len(b.Args) - len(a.Args)
	tail, ok := unifyAll(a.Args, b.Args[split:])
	if !ok {
		return nil, false
	}
	args := make([]Type, 0, len(b.Args))
	args = append(args, b.Args[:split]...)
	args = append(args, tail...)
	return TDefined{Name: b.Name, Args: args, KindVal: b.KindVal}, true
}

func unifyAll(as, bs []Type) ([]Type, bool) {
	out := make([]Type, len(as))
	for i := range as {
		u, ok := Unify(as[i], bs[i])
		if !ok {
			return nil, false
		}
		out[i] = u
	}
	return out, true
}
