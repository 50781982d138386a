package interp

import (
	"fmt"
	"strings"

	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/types"
)

// cell is one variable binding slot. Reference-passing aliases the cell;
// clone-passing copies the value into a fresh one. This keeps the
// reference/clone distinction uniform without handing out raw pointers to
// callees.
type cell struct {
	typ types.Type
	val types.Value
}

// scope is a block-local binding environment. Variables die with their
// scope; flag-parameter scopes additionally die with their `if -flag`
// block.
type scope struct {
	parent *scope
	vars   map[string]*cell
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]*cell)}
}

func (s *scope) declare(name string, c *cell) error {
	if _, exists := s.vars[name]; exists {
		return fmt.Errorf("variable $%s already declared in this block", name)
	}
	s.vars[name] = c
	return nil
}

func (s *scope) lookup(name string) (*cell, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if c, ok := cur.vars[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// frame is one function invocation: its root scope, the growing stdout
// buffer, the materialized stdin, and the single-slot return value.
type frame struct {
	fn     string // function name, "" for the global scope
	stdin  string
	stdout strings.Builder
	ret    *types.Value // nil until a return executes
	scope  *scope

	// lastValue is the typed value of the most recent top-level single-stage
	// pipeline, kept as the candidate final expression.
	lastValue    types.Value
	hasLastValue bool

	// Flags supplied by the caller: name -> the flag's parameter cells,
	// bound lazily into scope when the matching `if -flag` block runs.
	flags map[string]map[string]*cell
}

func newFrame(fn, stdin string) *frame {
	return &frame{
		fn:    fn,
		stdin: stdin,
		scope: newScope(nil),
		flags: make(map[string]map[string]*cell),
	}
}

// control says how a block finished.
type control int

const (
	ctrlNone   control = iota // fell through
	ctrlReturn                // unwind to the function boundary
	ctrlBreak                 // unwind one loop
)

// RuntimeError is an evaluation failure. When Cause is a types.ParseError
// the failure is a RuntimeTypeError: an interpolation round-trip produced
// text the target type could not parse.
type RuntimeError struct {
	Pos   ast.Position
	Msg   string
	Cause error
}

func (e *RuntimeError) Error() string {
	kind := "RuntimeError"
	if _, ok := e.Cause.(*types.ParseError); ok {
		kind = "RuntimeTypeError"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s at %s", kind, e.Msg, e.Cause, e.Pos)
	}
	return fmt.Sprintf("%s: %s at %s", kind, e.Msg, e.Pos)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }
