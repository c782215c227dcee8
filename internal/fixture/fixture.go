// Package fixture loads type-checking scenarios from YAML: the symbol
// table (type constructors and predicate signatures) plus the procedure
// bodies to check. The front end proper produces the same structures from
// parsed source; fixtures let the checker run standalone on hand-written
// environments, for the command-line driver and for tests.
package fixture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marlow-lang/marlow/internal/env"
	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/infer"
	"github.com/marlow-lang/marlow/internal/token"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// File is the top-level fixture document.
type File struct {
	// Types lists the discriminated-union type definitions.
	Types []TypeDef `yaml:"types,omitempty"`

	// Predicates lists predicate and function signatures.
	Predicates []PredDef `yaml:"predicates,omitempty"`

	// Procedures lists the bodies to check.
	Procedures []ProcDef `yaml:"procedures,omitempty"`
}

// TypeDef defines one type and its data constructors.
type TypeDef struct {
	Name string `yaml:"name"`

	// Params names the type parameters; they are in scope in every
	// constructor argument expression.
	Params []string `yaml:"params,omitempty"`

	Constructors []ConsDef `yaml:"constructors"`
}

// ConsDef is one data constructor: Functor(Args) builds a value of the
// enclosing type applied to its parameters.
type ConsDef struct {
	Functor string   `yaml:"functor"`
	Args    []string `yaml:"args,omitempty"`
}

// PredDef is one predicate or function signature. For functions the last
// argument type is the result.
type PredDef struct {
	Name   string `yaml:"name"`
	Module string `yaml:"module,omitempty"`

	// Kind is "pred" (default) or "func".
	Kind string `yaml:"kind,omitempty"`

	Args []string `yaml:"args"`

	// Foreign marks the signature as a foreign or primitive procedure.
	Foreign bool `yaml:"foreign,omitempty"`
}

// ProcDef is one procedure to check. Args names the head variables; when
// Declared is set, the signature of that predicate seeds their types.
type ProcDef struct {
	Name     string   `yaml:"name"`
	Declared string   `yaml:"declared,omitempty"`
	Args     []string `yaml:"args,omitempty"`
	Body     GoalDef  `yaml:"body"`
}

// GoalDef is one body goal. Exactly one of the variant fields must be
// set; Line and Col locate the goal for diagnostics.
type GoalDef struct {
	Line int `yaml:"line,omitempty"`
	Col  int `yaml:"col,omitempty"`

	UnifyVars    *UnifyVarsDef    `yaml:"unify_vars,omitempty"`
	UnifyFunctor *UnifyFunctorDef `yaml:"unify_functor,omitempty"`
	Call         *CallDef         `yaml:"call,omitempty"`
	ForeignCall  *CallDef         `yaml:"foreign_call,omitempty"`
	Conj         []GoalDef        `yaml:"conj,omitempty"`
	Disj         []GoalDef        `yaml:"disj,omitempty"`
	Negation     *GoalDef         `yaml:"negation,omitempty"`
	IfThenElse   *IfThenElseDef   `yaml:"if_then_else,omitempty"`
}

// UnifyVarsDef is X = Y.
type UnifyVarsDef struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// UnifyFunctorDef is X = f(A1, ..., An).
type UnifyFunctorDef struct {
	Var     string   `yaml:"var"`
	Functor string   `yaml:"functor"`
	Args    []string `yaml:"args,omitempty"`
}

// CallDef is p(A1, ..., An).
type CallDef struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args,omitempty"`
}

// IfThenElseDef is ( Cond -> Then ; Else ).
type IfThenElseDef struct {
	Cond GoalDef `yaml:"cond"`
	Then GoalDef `yaml:"then"`
	Else GoalDef `yaml:"else"`
}

// Load reads and builds a fixture file.
func Load(path string) (*env.Table, []infer.Procedure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse builds the symbol table and procedures from fixture content.
// The path argument is used only for error messages and diagnostics.
func Parse(data []byte, path string) (*env.Table, []infer.Procedure, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	b := &builder{path: path, table: env.NewTable()}
	if err := b.addTypes(f.Types); err != nil {
		return nil, nil, err
	}
	if err := b.addPredicates(f.Predicates); err != nil {
		return nil, nil, err
	}
	procs, err := b.buildProcedures(f.Procedures)
	if err != nil {
		return nil, nil, err
	}
	return b.table, procs, nil
}

type builder struct {
	path    string
	table   *env.Table
	nextVar typesystem.Var

	// declared maps "name/arity" to the predicate declaration, for the
	// procedures' declared: field.
	declared map[string]*env.PredDecl

	foreign map[string]bool
}

func (b *builder) fresh() typesystem.Var {
	v := b.nextVar
	b.nextVar++
	return v
}

func (b *builder) addTypes(defs []TypeDef) error {
	for i, td := range defs {
		if td.Name == "" {
			return fmt.Errorf("%s: types[%d]: name is required", b.path, i)
		}
		scope := newTypeScope(b.fresh)
		resultArgs := make([]typesystem.Type, len(td.Params))
		params := make([]typesystem.Var, len(td.Params))
		for j, p := range td.Params {
			v, err := scope.declare(p)
			if err != nil {
				return fmt.Errorf("%s: types[%d] (%s): %w", b.path, i, td.Name, err)
			}
			params[j] = v
			resultArgs[j] = typesystem.TVar{ID: v}
		}
		result := typesystem.TDefined{Name: td.Name, Args: resultArgs}

		if len(td.Constructors) == 0 {
			return fmt.Errorf("%s: types[%d] (%s): at least one constructor is required", b.path, i, td.Name)
		}
		for j, cd := range td.Constructors {
			if cd.Functor == "" {
				return fmt.Errorf("%s: types[%d].constructors[%d]: functor is required", b.path, i, j)
			}
			argTypes := make([]typesystem.Type, len(cd.Args))
			for k, expr := range cd.Args {
				t, err := scope.parse(expr)
				if err != nil {
					return fmt.Errorf("%s: types[%d].constructors[%d] (%s): %w", b.path, i, j, cd.Functor, err)
				}
				argTypes[k] = t
			}
			b.table.AddConstructor(&env.ConsDecl{
				Functor:    cd.Functor,
				TypeName:   td.Name,
				Params:     params,
				ResultType: result,
				ArgTypes:   argTypes,
			})
		}
	}
	return nil
}

func (b *builder) addPredicates(defs []PredDef) error {
	b.declared = map[string]*env.PredDecl{}
	b.foreign = map[string]bool{}
	for i, pd := range defs {
		if pd.Name == "" {
			return fmt.Errorf("%s: predicates[%d]: name is required", b.path, i)
		}
		kind := goal.Predicate
		switch pd.Kind {
		case "", "pred":
		case "func":
			kind = goal.Function
		default:
			return fmt.Errorf("%s: predicates[%d] (%s): kind must be pred or func, got %q", b.path, i, pd.Name, pd.Kind)
		}

		scope := newTypeScope(b.fresh)
		argTypes := make([]typesystem.Type, len(pd.Args))
		for j, expr := range pd.Args {
			t, err := scope.parse(expr)
			if err != nil {
				return fmt.Errorf("%s: predicates[%d] (%s): %w", b.path, i, pd.Name, err)
			}
			argTypes[j] = t
		}

		decl := &env.PredDecl{
			Name:     pd.Name,
			Module:   pd.Module,
			Kind:     kind,
			Params:   scope.params(),
			ArgTypes: argTypes,
		}
		b.table.AddPredicate(decl)
		key := fmt.Sprintf("%s/%d", pd.Name, len(pd.Args))
		if _, ok := b.declared[key]; !ok {
			b.declared[key] = decl
		}
		if pd.Foreign {
			b.foreign[pd.Name] = true
		}
	}
	return nil
}

func (b *builder) buildProcedures(defs []ProcDef) ([]infer.Procedure, error) {
	var procs []infer.Procedure
	for i, pd := range defs {
		pb := &procBuilder{
			fixture: b,
			vars:    map[string]goal.ProgVar{},
		}
		args := make([]goal.ProgVar, len(pd.Args))
		for j, name := range pd.Args {
			args[j] = pb.progVar(name)
		}
		body, err := pb.buildGoal(pd.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: procedures[%d] (%s): %w", b.path, i, pd.Name, err)
		}
		proc := infer.Procedure{
			Args:  args,
			Body:  body,
			File:  b.path,
			Token: body.GetToken(),
		}
		if pd.Declared != "" {
			key := fmt.Sprintf("%s/%d", pd.Declared, len(pd.Args))
			decl, ok := b.declared[key]
			if !ok {
				return nil, fmt.Errorf("%s: procedures[%d] (%s): declared signature %s not found", b.path, i, pd.Name, key)
			}
			proc.Decl = decl
		}
		procs = append(procs, proc)
	}
	return procs, nil
}

// procBuilder tracks per-procedure program variables and goal numbering.
type procBuilder struct {
	fixture  *builder
	vars     map[string]goal.ProgVar
	nextGoal goal.ID
}

func (pb *procBuilder) progVar(name string) goal.ProgVar {
	if v, ok := pb.vars[name]; ok {
		return v
	}
	v := goal.ProgVar(len(pb.vars))
	pb.vars[name] = v
	return v
}

func (pb *procBuilder) progVars(names []string) []goal.ProgVar {
	out := make([]goal.ProgVar, len(names))
	for i, n := range names {
		out[i] = pb.progVar(n)
	}
	return out
}

func (pb *procBuilder) goalID() goal.ID {
	pb.nextGoal++
	return pb.nextGoal
}

func (pb *procBuilder) buildGoal(gd GoalDef) (goal.Goal, error) {
	tok := token.Token{Line: gd.Line, Column: gd.Col}

	var set []string
	if gd.UnifyVars != nil {
		set = append(set, "unify_vars")
	}
	if gd.UnifyFunctor != nil {
		set = append(set, "unify_functor")
	}
	if gd.Call != nil {
		set = append(set, "call")
	}
	if gd.ForeignCall != nil {
		set = append(set, "foreign_call")
	}
	if gd.Conj != nil {
		set = append(set, "conj")
	}
	if gd.Disj != nil {
		set = append(set, "disj")
	}
	if gd.Negation != nil {
		set = append(set, "negation")
	}
	if gd.IfThenElse != nil {
		set = append(set, "if_then_else")
	}
	if len(set) != 1 {
		return nil, fmt.Errorf("goal must have exactly one variant, got %v", set)
	}

	switch {
	case gd.UnifyVars != nil:
		return &goal.UnifyVars{
			Token: tok,
			Left:  pb.progVar(gd.UnifyVars.Left),
			Right: pb.progVar(gd.UnifyVars.Right),
		}, nil

	case gd.UnifyFunctor != nil:
		return &goal.UnifyFunctor{
			Token:   tok,
			Var:     pb.progVar(gd.UnifyFunctor.Var),
			Functor: gd.UnifyFunctor.Functor,
			Args:    pb.progVars(gd.UnifyFunctor.Args),
			Goal:    pb.goalID(),
		}, nil

	case gd.Call != nil:
		if pb.fixture.foreign[gd.Call.Name] {
			return &goal.ForeignCall{
				Token: tok,
				Name:  gd.Call.Name,
				Args:  pb.progVars(gd.Call.Args),
				Goal:  pb.goalID(),
			}, nil
		}
		return &goal.Call{
			Token: tok,
			Name:  gd.Call.Name,
			Args:  pb.progVars(gd.Call.Args),
			Goal:  pb.goalID(),
		}, nil

	case gd.ForeignCall != nil:
		return &goal.ForeignCall{
			Token: tok,
			Name:  gd.ForeignCall.Name,
			Args:  pb.progVars(gd.ForeignCall.Args),
			Goal:  pb.goalID(),
		}, nil

	case gd.Conj != nil:
		goals, err := pb.buildGoals(gd.Conj)
		if err != nil {
			return nil, err
		}
		return &goal.Conj{Token: tok, Goals: goals}, nil

	case gd.Disj != nil:
		goals, err := pb.buildGoals(gd.Disj)
		if err != nil {
			return nil, err
		}
		return &goal.Disj{Token: tok, Goals: goals}, nil

	case gd.Negation != nil:
		sub, err := pb.buildGoal(*gd.Negation)
		if err != nil {
			return nil, err
		}
		return &goal.Negation{Token: tok, Goal: sub}, nil

	default:
		cond, err := pb.buildGoal(gd.IfThenElse.Cond)
		if err != nil {
			return nil, err
		}
		then, err := pb.buildGoal(gd.IfThenElse.Then)
		if err != nil {
			return nil, err
		}
		els, err := pb.buildGoal(gd.IfThenElse.Else)
		if err != nil {
			return nil, err
		}
		return &goal.IfThenElse{Token: tok, Cond: cond, Then: then, Else: els}, nil
	}
}

func (pb *procBuilder) buildGoals(defs []GoalDef) ([]goal.Goal, error) {
	out := make([]goal.Goal, len(defs))
	for i, gd := range defs {
		g, err := pb.buildGoal(gd)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}
