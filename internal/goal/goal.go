// Package goal defines the procedure body representation consumed by the
// inference engine: a closed set of goal variants walked by type switch.
// The front end builds these trees; the engine only reads them.
package goal

import (
	"github.com/marlow-lang/marlow/internal/token"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// ProgVar identifies a program variable within one procedure.
type ProgVar int

// ID identifies a call or construction goal within one procedure, used to
// write resolved overloads back onto the goal after solving.
type ID int

// PredOrFunc distinguishes predicate and function declarations.
type PredOrFunc int

const (
	Predicate PredOrFunc = iota
	Function
)

func (pf PredOrFunc) String() string {
	if pf == Function {
		return "func"
	}
	return "pred"
}

// Goal is one node of a procedure body.
type Goal interface {
	GetToken() token.Token
	goalNode()
}

// UnifyVars equates two program variables (X = Y).
type UnifyVars struct {
	Token token.Token
	Left  ProgVar
	Right ProgVar
}

// UnifyFunctor binds a variable to a data constructor application
// (X = f(A1, ..., An)). The functor may also denote a closure of a
// predicate or function with at least n arguments.
type UnifyFunctor struct {
	Token   token.Token
	Var     ProgVar
	Functor string
	Args    []ProgVar
	Goal    ID
}

// UnifyLambda binds a variable to a lambda expression. Return is nil for
// predicate lambdas.
type UnifyLambda struct {
	Token  token.Token
	Var    ProgVar
	Purity typesystem.Purity
	Kind   PredOrFunc
	Params []ProgVar
	Return *ProgVar
	Body   Goal
}

// Call is a direct first-order call, possibly overloaded.
type Call struct {
	Token token.Token
	Name  string
	Args  []ProgVar
	Goal  ID
}

// ForeignCall invokes a foreign or primitive procedure; exactly one
// signature is known for it.
type ForeignCall struct {
	Token token.Token
	Name  string
	Args  []ProgVar
	Goal  ID
}

// HigherOrderCall applies a closure variable to arguments. Return is
// non-nil when the closure is a function application.
type HigherOrderCall struct {
	Token   token.Token
	Closure ProgVar
	Args    []ProgVar
	Return  *ProgVar
	Purity  typesystem.Purity
}

// MethodCall invokes a class method selected by class identifier and
// method index.
type MethodCall struct {
	Token  token.Token
	Class  string
	Method int
	Args   []ProgVar
	Goal   ID
}

// EventCall invokes an event handler. Recognized but not supported by the
// type checker.
type EventCall struct {
	Token token.Token
	Name  string
	Args  []ProgVar
}

// Cast reinterprets one variable as another type without checking.
type Cast struct {
	Token token.Token
	From  ProgVar
	To    ProgVar
}

// Conj is a conjunction of sub-goals.
type Conj struct {
	Token token.Token
	Goals []Goal
}

// Disj is a disjunction of sub-goals. Branches are typed independently.
type Disj struct {
	Token token.Token
	Goals []Goal
}

// Negation wraps a negated sub-goal.
type Negation struct {
	Token token.Token
	Goal  Goal
}

// Scope wraps a quantified or purity-scoped sub-goal.
type Scope struct {
	Token token.Token
	Goal  Goal
}

// IfThenElse is a conditional; all three branches contribute constraints.
type IfThenElse struct {
	Token token.Token
	Cond  Goal
	Then  Goal
	Else  Goal
}

// Switch discriminates on a variable's top functor. Each case arm is
// typed independently.
type Switch struct {
	Token token.Token
	Var   ProgVar
	Cases []SwitchCase
}

// SwitchCase is one arm of a switch.
type SwitchCase struct {
	Functor string
	Arm     Goal
}

// Atomic is an atomic or try compound goal: a main goal plus alternative
// recovery goals.
type Atomic struct {
	Token        token.Token
	Main         Goal
	Alternatives []Goal
}

// BiImplication relates two goals by logical equivalence.
type BiImplication struct {
	Token token.Token
	Left  Goal
	Right Goal
}

func (g *UnifyVars) GetToken() token.Token       { return g.Token }
func (g *UnifyFunctor) GetToken() token.Token    { return g.Token }
func (g *UnifyLambda) GetToken() token.Token     { return g.Token }
func (g *Call) GetToken() token.Token            { return g.Token }
func (g *ForeignCall) GetToken() token.Token     { return g.Token }
func (g *HigherOrderCall) GetToken() token.Token { return g.Token }
func (g *MethodCall) GetToken() token.Token      { return g.Token }
func (g *EventCall) GetToken() token.Token       { return g.Token }
func (g *Cast) GetToken() token.Token            { return g.Token }
func (g *Conj) GetToken() token.Token            { return g.Token }
func (g *Disj) GetToken() token.Token            { return g.Token }
func (g *Negation) GetToken() token.Token        { return g.Token }
func (g *Scope) GetToken() token.Token           { return g.Token }
func (g *IfThenElse) GetToken() token.Token      { return g.Token }
func (g *Switch) GetToken() token.Token          { return g.Token }
func (g *Atomic) GetToken() token.Token          { return g.Token }
func (g *BiImplication) GetToken() token.Token   { return g.Token }

func (g *UnifyVars) goalNode()       {}
func (g *UnifyFunctor) goalNode()    {}
func (g *UnifyLambda) goalNode()     {}
func (g *Call) goalNode()            {}
func (g *ForeignCall) goalNode()     {}
func (g *HigherOrderCall) goalNode() {}
func (g *MethodCall) goalNode()      {}
func (g *EventCall) goalNode()       {}
func (g *Cast) goalNode()            {}
func (g *Conj) goalNode()            {}
func (g *Disj) goalNode()            {}
func (g *Negation) goalNode()        {}
func (g *Scope) goalNode()           {}
func (g *IfThenElse) goalNode()      {}
func (g *Switch) goalNode()          {}
func (g *Atomic) goalNode()          {}
func (g *BiImplication) goalNode()   {}
