// Package scope implements Whisper's lexical scope tree: component D of
// spec.md §4. A scope owns an insertion-ordered variable table, an ordered
// parameter list, a cache of monomorphizations (for Def-scopes), a list of
// synthesized helper functions, and participates in a tree rooted at the
// implicit main scope.
//
// This is grounded on the teacher's compiler/symbol_table.go: the same
// Outer-linked, insertion-ordered lookup structure, generalized from "global
// vs. local vs. free vs. builtin" symbol scoping to Whisper's "one concrete
// C function per distinct call-site type signature" monomorphization model.
package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PeBraz/whisper/ast"
	"github.com/PeBraz/whisper/types"
)

// Variable is a single entry in a scope's variable table.
type Variable struct {
	Name string
	Type types.T

	// InitValue is the C expression text that initializes this variable,
	// set when it is declared by Set (the arg-checker's back-patch keeps
	// the stored value). Empty for parameters awaiting their first
	// concrete use.
	InitValue string

	// ByteSize tracks the maximum observed length (in bytes, +1 for the
	// NUL terminator) of any string ever assigned to this variable.
	// Meaningful only when Type == types.STRING, per spec.md invariant 6.
	ByteSize int
}

// varTable is an insertion-ordered name -> *Variable map.
type varTable struct {
	order []string
	vars  map[string]*Variable
}

func newVarTable() *varTable {
	return &varTable{vars: make(map[string]*Variable)}
}

func (t *varTable) get(name string) (*Variable, bool) {
	v, ok := t.vars[name]
	return v, ok
}

func (t *varTable) set(v *Variable) {
	if _, exists := t.vars[v.Name]; !exists {
		t.order = append(t.order, v.Name)
	}
	t.vars[v.Name] = v
}

func (t *varTable) ordered() []*Variable {
	out := make([]*Variable, len(t.order))
	for i, name := range t.order {
		out[i] = t.vars[name]
	}
	return out
}

func (t *varTable) clone() *varTable {
	c := newVarTable()
	c.order = append([]string(nil), t.order...)
	for k, v := range t.vars {
		cp := *v
		c.vars[k] = &cp
	}
	return c
}

// Monomorphization is one concrete (parameter-types, return-type) instance
// of a user function: the glossary's "monomorphization", emitted as exactly
// one C function.
type Monomorphization struct {
	ParamTypes []types.T
	ReturnType types.T

	// Vars is this monomorphization's own cloned variable table, seeded
	// with concrete parameter types and caller-side value expressions.
	Vars *varTable

	// FuncName is the globally unique emitted C function name, e.g.
	// "inc_0".
	FuncName string

	// Body is the compiled C statement producing the return value; filled
	// in once the scope's body has been compiled under this binding.
	Body string
}

// HelperFunction is a synthesized, no-argument C function produced by
// lifting a compound expression (the glossary's "helper").
type HelperFunction struct {
	Name       string
	ReturnType types.T
	Body       string // C statements, not yet wrapped in a function signature
}

// Scope is one node of the lexical scope tree.
type Scope struct {
	Name  string
	Outer *Scope

	// Params holds the ordered parameter names for a Def-scope. A subset
	// of the variable table's entries, per spec.md §3.
	Params []string

	// Body is the Def-scope's unparsed body AST, re-entered once per
	// monomorphization.
	Body ast.Expr

	vars *varTable

	children   map[string]*Scope
	childOrder []string

	Monos   []*Monomorphization
	Helpers []*HelperFunction

	// protos is shared by every scope in the tree (it is propagated to
	// the root, per spec.md §3) so prototypes end up in one global,
	// emission-ordered list regardless of which scope synthesizes them.
	protos *[]string

	// counter is a shared, monotonically increasing source for globally
	// unique helper names (spec.md invariant 4).
	counter *int

	// activeStructName is the emitted struct name C code should qualify
	// this scope's variables with right now: "main" for the root, always;
	// for a Def-scope, the FuncName of whichever monomorphization is
	// currently entered (set by EnterMono, restored after). Empty outside
	// of an EnterMono/restore bracket, where no code should be resolving
	// variables against this scope anyway.
	activeStructName string
}

// NewRoot creates the implicit "main" scope at the root of the tree.
func NewRoot() *Scope {
	protos := []string{}
	counter := 0
	return &Scope{
		Name:             "main",
		vars:             newVarTable(),
		children:         make(map[string]*Scope),
		protos:           &protos,
		counter:          &counter,
		activeStructName: "main",
	}
}

// AddChild links a new child scope named name under s. A name collision
// with an existing child overwrites it, matching source behavior for
// redefined functions (spec.md §4.D).
func (s *Scope) AddChild(name string) *Scope {
	child := &Scope{
		Name:     name,
		Outer:    s,
		vars:     newVarTable(),
		children: make(map[string]*Scope),
		protos:   s.protos,
		counter:  s.counter,
	}
	if _, exists := s.children[name]; !exists {
		s.childOrder = append(s.childOrder, name)
	}
	s.children[name] = child
	return child
}

// ResolveVar walks up the scope chain's active variable tables looking for
// name, starting at s. Per spec.md invariant 1, a hit here is the
// resolution of a Var reference.
func (s *Scope) ResolveVar(name string) (*Variable, bool) {
	_, v, ok := s.ResolveVarOwner(name)
	return v, ok
}

// ResolveVarOwner is ResolveVar, additionally returning the scope the
// variable's table entry actually lives in. The compiler needs the owner
// to qualify emitted C (__<owner's struct name>.<name>) and to back-patch
// the right table when the arg-checker refines a NONE type.
func (s *Scope) ResolveVarOwner(name string) (*Scope, *Variable, bool) {
	for cur := s; cur != nil; cur = cur.Outer {
		if v, ok := cur.vars.get(name); ok {
			return cur, v, true
		}
	}
	return nil, nil, false
}

// StructName is the emitted struct name current code should qualify this
// scope's variables with (see activeStructName).
func (s *Scope) StructName() string {
	return s.activeStructName
}

// ResolveScope walks up the scope chain looking for a child scope named
// name, starting at s (and including s's own children, and s's ancestors'
// children).
func (s *Scope) ResolveScope(name string) (*Scope, bool) {
	for cur := s; cur != nil; cur = cur.Outer {
		if child, ok := cur.children[name]; ok {
			return child, true
		}
	}
	return nil, false
}

// DeclareVar creates name in s's active variable table if absent, or
// refines its type in place if it exists and is currently types.NONE, per
// spec.md invariant 2 (monotone NONE -> concrete, never concrete -> concrete').
// initValue, when non-empty, becomes (or replaces) the variable's C
// initializer expression. Reassigning an already-concrete variable to a
// different concrete type is a type-conflict error.
func (s *Scope) DeclareVar(name string, t types.T, initValue string) (*Variable, error) {
	existing, ok := s.vars.get(name)
	if !ok {
		v := &Variable{Name: name, Type: t, InitValue: initValue}
		s.vars.set(v)
		return v, nil
	}

	unified, err := types.Unify(existing.Type, t)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	existing.Type = unified
	if initValue != "" {
		existing.InitValue = initValue
	}
	return existing, nil
}

// DeclareParam appends name to s's parameter list with initial type
// types.NONE, to be back-patched by the arg-checker or by monomorphization.
func (s *Scope) DeclareParam(name string) *Variable {
	s.Params = append(s.Params, name)
	v := &Variable{Name: name, Type: types.NONE}
	s.vars.set(v)
	return v
}

// TrackStringLength updates name's observed maximum string byte size
// (spec.md invariant 6); n is len(value)+1 including the NUL terminator.
func (s *Scope) TrackStringLength(name string, n int) {
	if v, ok := s.vars.get(name); ok && n > v.ByteSize {
		v.ByteSize = n
	}
}

// Path returns the full underscore-joined scope path from the root to s, e.g.
// "main_inc" for a Def-scope named "inc" directly under main.
func (s *Scope) Path() string {
	if s.Outer == nil {
		return s.Name
	}
	return s.Outer.Path() + "_" + s.Name
}

func (s *Scope) nextID() int {
	*s.counter++
	return *s.counter
}

// NewHelper allocates a globally unique helper name, records its prototype
// in the shared prototype list, appends it to s's own helper list, and
// returns the name for use as a call-site expression (spec.md §4.D).
func (s *Scope) NewHelper(body string, retType types.T) string {
	name := "__fn_" + s.Path() + "_" + strconv.Itoa(s.nextID())
	*s.protos = append(*s.protos, fmt.Sprintf("%s %s();", types.CSpell(retType), name))
	s.Helpers = append(s.Helpers, &HelperFunction{Name: name, ReturnType: retType, Body: body})
	return name
}

// NewMonoName allocates a globally unique C function name for a new
// monomorphization of this Def-scope, e.g. "inc_0", and records its
// prototype.
func (s *Scope) NewMonoName(paramTypes []types.T, retType types.T) string {
	name := s.Name + "_" + strconv.Itoa(len(s.Monos))

	params := make([]string, len(paramTypes))
	for i, t := range paramTypes {
		params[i] = types.CSpell(t)
	}
	*s.protos = append(*s.protos, fmt.Sprintf("%s %s(%s);", types.CSpell(retType), name, strings.Join(params, ", ")))
	return name
}

// FindMono returns the first cached monomorphization whose parameter types
// match paramTypes position-wise, per spec.md §4.F step 3. Whisper
// monomorphizes on parameter types alone: a user function's return type is
// a pure function of its argument types (it is inferred from the body
// under that binding), so two calls with identical argument types always
// produce the same return type and must share one monomorphization.
func (s *Scope) FindMono(paramTypes []types.T) (*Monomorphization, bool) {
	for _, m := range s.Monos {
		if sameTypes(m.ParamTypes, paramTypes) {
			return m, true
		}
	}
	return nil, false
}

func sameTypes(a, b []types.T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EnterMono clones s's variable table, overwrites the parameter entries
// with concrete types and caller-side value expressions, and installs the
// clone as s's active table, returning a restore function the caller must
// defer. This implements spec.md §4.F step 4's "clone... install... later
// restore" sequence without ever reparenting the caller's own scope
// (resolving the "Call mutates self.scope" Open Question as non-mutating).
func (s *Scope) EnterMono(argTypes []types.T, argValues []string) (restore func()) {
	clone := s.vars.clone()
	for i, paramName := range s.Params {
		clone.set(&Variable{Name: paramName, Type: argTypes[i], InitValue: argValues[i]})
	}
	previousVars := s.vars
	previousStructName := s.activeStructName
	s.vars = clone
	s.activeStructName = s.Name + "_" + strconv.Itoa(len(s.Monos))
	return func() {
		s.vars = previousVars
		s.activeStructName = previousStructName
	}
}

// AddMono appends a finished monomorphization record to s's cache.
func (s *Scope) AddMono(m *Monomorphization) {
	s.Monos = append(s.Monos, m)
}

// SnapshotVars clones s's currently active variable table, for storing
// inside a Monomorphization record once its return type is known.
func (s *Scope) SnapshotVars() *varTable {
	return s.vars.clone()
}
