// Package env holds the read-only lookup tables the inference engine
// consults: predicate, constructor, class-method and event signatures.
// A Table is built once by the caller and shared, without mutation,
// across every procedure's solve pass.
package env

import (
	"fmt"

	"github.com/marlow-lang/marlow/internal/goal"
	"github.com/marlow-lang/marlow/internal/token"
	"github.com/marlow-lang/marlow/internal/typesystem"
)

// PredID identifies one predicate or function declaration.
type PredID int

// PredDecl is a predicate or function signature. For functions the result
// type is the last element of ArgTypes, matching the call convention
// where the result variable is the last call argument.
type PredDecl struct {
	ID     PredID
	Name   string
	Module string
	Kind   goal.PredOrFunc
	Params []typesystem.Var
	// ArgTypes has one entry per call argument; its length is the
	// declaration's arity.
	ArgTypes []typesystem.Type
	Purity   typesystem.Purity
	Token    token.Token
}

// Arity is the number of call arguments.
func (d *PredDecl) Arity() int { return len(d.ArgTypes) }

// QualifiedName renders "module.name/arity" for diagnostics.
func (d *PredDecl) QualifiedName() string {
	name := d.Name
	if d.Module != "" {
		name = d.Module + "." + name
	}
	return fmt.Sprintf("%s/%d", name, d.Arity())
}

// ConsDecl is one data constructor definition: f(ArgTypes) builds a value
// of ResultType. The same functor name and arity may have several
// definitions across types.
type ConsDecl struct {
	Functor    string
	TypeName   string
	Params     []typesystem.Var
	ResultType typesystem.Type
	ArgTypes   []typesystem.Type
	Token      token.Token
}

// MethodDecl is a class method signature addressed by (class, index).
type MethodDecl struct {
	Class    string
	Index    int
	Name     string
	Params   []typesystem.Var
	ArgTypes []typesystem.Type
	Token    token.Token
}

// EventDecl is an event signature. Events are recognized by the checker
// but not supported.
type EventDecl struct {
	Name     string
	ArgTypes []typesystem.Type
	Token    token.Token
}

type nameArity struct {
	name  string
	arity int
}

type classIndex struct {
	class string
	index int
}

// Table is the environment snapshot. Candidate lists preserve declaration
// order so overload diagnostics are reproducible across runs; lookups
// never mutate.
type Table struct {
	preds      map[nameArity][]*PredDecl
	predsByID  map[PredID]*PredDecl
	predsName  map[string][]*PredDecl
	cons       map[nameArity][]*ConsDecl
	methods    map[classIndex]*MethodDecl
	events     map[string]*EventDecl
	nextPredID PredID
}

// NewTable creates an empty environment.
func NewTable() *Table {
	return &Table{
		preds:     map[nameArity][]*PredDecl{},
		predsByID: map[PredID]*PredDecl{},
		predsName: map[string][]*PredDecl{},
		cons:      map[nameArity][]*ConsDecl{},
		methods:   map[classIndex]*MethodDecl{},
		events:    map[string]*EventDecl{},
	}
}

// AddPredicate registers a declaration and assigns its PredID.
func (t *Table) AddPredicate(d *PredDecl) PredID {
	d.ID = t.nextPredID
	t.nextPredID++
	key := nameArity{name: d.Name, arity: d.Arity()}
	t.preds[key] = append(t.preds[key], d)
	t.predsByID[d.ID] = d
	t.predsName[d.Name] = append(t.predsName[d.Name], d)
	return d.ID
}

// AddConstructor registers a data constructor definition.
func (t *Table) AddConstructor(d *ConsDecl) {
	key := nameArity{name: d.Functor, arity: len(d.ArgTypes)}
	t.cons[key] = append(t.cons[key], d)
}

// AddMethod registers a class method signature.
func (t *Table) AddMethod(d *MethodDecl) {
	t.methods[classIndex{class: d.Class, index: d.Index}] = d
}

// AddEvent registers an event signature.
func (t *Table) AddEvent(d *EventDecl) {
	t.events[d.Name] = d
}

// Predicates returns every declaration matching name and arity, in
// declaration order.
func (t *Table) Predicates(name string, arity int) []*PredDecl {
	return t.preds[nameArity{name: name, arity: arity}]
}

// PredicatesWithMinArity returns every declaration of name whose arity is
// at least min, in declaration order. Used for closure candidates, where
// a functor with n arguments may curry any predicate taking n or more.
func (t *Table) PredicatesWithMinArity(name string, min int) []*PredDecl {
	var out []*PredDecl
	for _, d := range t.predsName[name] {
		if d.Arity() >= min {
			out = append(out, d)
		}
	}
	return out
}

// Predicate resolves a PredID back to its declaration.
func (t *Table) Predicate(id PredID) (*PredDecl, bool) {
	d, ok := t.predsByID[id]
	return d, ok
}

// Constructors returns every constructor definition matching functor name
// and arity, in declaration order.
func (t *Table) Constructors(name string, arity int) []*ConsDecl {
	return t.cons[nameArity{name: name, arity: arity}]
}

// Method looks up a class method by class identifier and index.
func (t *Table) Method(class string, index int) (*MethodDecl, bool) {
	d, ok := t.methods[classIndex{class: class, index: index}]
	return d, ok
}

// Event looks up an event signature by name.
func (t *Table) Event(name string) (*EventDecl, bool) {
	d, ok := t.events[name]
	return d, ok
}
