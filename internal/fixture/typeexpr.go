package fixture

import (
	"fmt"
	"unicode"

	"github.com/marlow-lang/marlow/internal/config"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// typeScope parses type expressions, mapping capitalized names to type
// variables shared across one declaration. Grammar:
//
//	int | float | string | char
//	T                        type variable (capitalized)
//	name | name(T1, ..., Tn) defined type
//	{T1, ..., Tn}            tuple
//	pred(T1, ..., Tn)        predicate closure
//	func(T1, ..., Tn) = R    function closure
type typeScope struct {
	fresh func() typesystem.Var
	vars  map[string]typesystem.Var
	order []typesystem.Var
}

func newTypeScope(fresh func() typesystem.Var) *typeScope {
	return &typeScope{fresh: fresh, vars: map[string]typesystem.Var{}}
}

// declare introduces a named type parameter.
func (s *typeScope) declare(name string) (typesystem.Var, error) {
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		return 0, fmt.Errorf("type parameter %q must be capitalized", name)
	}
	if _, ok := s.vars[name]; ok {
		return 0, fmt.Errorf("duplicate type parameter %q", name)
	}
	v := s.fresh()
	s.vars[name] = v
	s.order = append(s.order, v)
	return v, nil
}

// params returns every variable the scope has seen, in first-use order.
func (s *typeScope) params() []typesystem.Var {
	return s.order
}

// parse parses one complete type expression.
func (s *typeScope) parse(expr string) (typesystem.Type, error) {
	p := &typeParser{scope: s, input: expr}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected %q in type %q", p.input[p.pos:], expr)
	}
	return t, nil
}

type typeParser struct {
	scope *typeScope
	input string
	pos   int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d in type %q", string(c), p.pos, p.input)
	}
	p.pos++
	return nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '.' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *typeParser) parseType() (typesystem.Type, error) {
	p.skipSpace()
	if p.peek() == '{' {
		return p.parseTuple()
	}

	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("expected type at offset %d in %q", p.pos, p.input)
	}

	switch name {
	case config.IntTypeName:
		return typesystem.TBuiltin{B: typesystem.BuiltinInt}, nil
	case config.FloatTypeName:
		return typesystem.TBuiltin{B: typesystem.BuiltinFloat}, nil
	case config.StringTypeName:
		return typesystem.TBuiltin{B: typesystem.BuiltinString}, nil
	case config.CharTypeName:
		return typesystem.TBuiltin{B: typesystem.BuiltinChar}, nil
	case config.PredTypeName:
		return p.parseHigherOrder(goal.Predicate)
	case config.FuncTypeName:
		return p.parseHigherOrder(goal.Function)
	}

	if unicode.IsUpper(rune(name[0])) {
		v, ok := p.scope.vars[name]
		if !ok {
			var err error
			if v, err = p.scope.declare(name); err != nil {
				return nil, err
			}
		}
		return typesystem.TVar{ID: v}, nil
	}

	if p.peek() != '(' {
		return typesystem.TDefined{Name: name}, nil
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return typesystem.TDefined{Name: name, Args: args}, nil
}

func (p *typeParser) parseTuple() (typesystem.Type, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	var args []typesystem.Type
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return typesystem.TTuple{Args: args}, nil
}

func (p *typeParser) parseHigherOrder(kind goal.PredOrFunc) (typesystem.Type, error) {
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	ho := typesystem.THigherOrder{Args: args, Purity: typesystem.Pure}
	if kind == goal.Function {
		if err := p.expect('='); err != nil {
			return nil, err
		}
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ho.Return = ret
	}
	return ho, nil
}

func (p *typeParser) parseArgs() ([]typesystem.Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var args []typesystem.Type
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return nil, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return args, nil
}
