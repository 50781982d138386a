package interp

import (
	"strings"

	"github.com/kh-lang/kh/core/ast"
	"github.com/kh-lang/kh/core/types"
)

// SignatureSource is what builtins may ask about the resolved world (the
// help command walks it). The resolver's table satisfies it.
type SignatureSource interface {
	Lookup(name string) (*types.Signature, bool)
	Names() []string
}

// Invocation is what a native builtin receives: bound arguments, supplied
// flags, materialized stdin, and the stdout buffer for this call. Builtins
// are synchronous; they return their typed value and the core appends Out
// to the caller per context rules.
type Invocation struct {
	Name  string
	Stdin string
	Pos   ast.Position
	Sigs  SignatureSource

	out   strings.Builder
	args  map[string]*cell
	flags map[string]map[string]*cell
}

// Print appends to this call's stdout.
func (inv *Invocation) Print(s string) { inv.out.WriteString(s) }

// Println appends a line to this call's stdout.
func (inv *Invocation) Println(s string) {
	inv.out.WriteString(s)
	inv.out.WriteByte('\n')
}

// HasArg reports whether the named (optional) parameter was supplied.
func (inv *Invocation) HasArg(name string) bool {
	_, ok := inv.args[name]
	return ok
}

// Arg returns the bound value of a parameter. Required parameters are
// always present; optional ones must be guarded with HasArg.
func (inv *Invocation) Arg(name string) types.Value {
	c, ok := inv.args[name]
	if !ok {
		panic("interp: builtin " + inv.Name + " read unbound parameter " + name)
	}
	return c.val
}

// SetArg writes through a mutable parameter's cell. Whether the caller
// observes the write depends on the analyzer's reference/clone verdict for
// the argument, not on anything the builtin does.
func (inv *Invocation) SetArg(name string, v types.Value) {
	c, ok := inv.args[name]
	if !ok {
		panic("interp: builtin " + inv.Name + " wrote unbound parameter " + name)
	}
	c.val = v
}

// Flag reports whether the caller supplied the named flag.
func (inv *Invocation) Flag(name string) bool {
	_, ok := inv.flags[name]
	return ok
}

// FlagArg returns a parameter bound under a supplied flag.
func (inv *Invocation) FlagArg(flag, name string) (types.Value, bool) {
	params, ok := inv.flags[flag]
	if !ok {
		return types.Value{}, false
	}
	c, ok := params[name]
	if !ok {
		return types.Value{}, false
	}
	return c.val, true
}

// Native is one builtin behavior. The table of natives is supplied to the
// interpreter from outside; the core calls a native exactly as it would a
// user-defined function.
type Native func(inv *Invocation) (types.Value, error)
