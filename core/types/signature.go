package types

import (
	"fmt"
	"strings"
)

// Binding says how a parameter absorbs call-site arguments.
type Binding int

const (
	Required Binding = iota
	Optional
	Variadic
)

func (b Binding) String() string {
	switch b {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Variadic:
		return "variadic"
	}
	return fmt.Sprintf("Binding(%d)", int(b))
}

// Parameter is one named slot in a signature or flag.
type Parameter struct {
	Name    string
	Type    Type
	Binding Binding
	Mutable bool
}

// Flag is a named call-site switch owning its own parameter list. Flag
// parameters are bound only when the caller supplies the flag and are
// visible only inside the callee's matching `if -name` block.
type Flag struct {
	Name   string
	Params []Parameter
}

// Signature describes one callable: user function or builtin. Signatures are
// immutable once the resolver has built its table.
type Signature struct {
	Name   string
	Params []Parameter
	Flags  []Flag
	Return Type   // UnitType when the function returns nothing
	Origin string // source file, or "builtin"
}

// Flag looks up a declared flag by name (without the leading dash).
func (s *Signature) Flag(name string) (*Flag, bool) {
	for i := range s.Flags {
		if s.Flags[i].Name == name {
			return &s.Flags[i], true
		}
	}
	return nil, false
}

// Arity summarizes a parameter list: number of required slots, number of
// optional slots, and whether a trailing variadic slot exists.
func Arity(params []Parameter) (required, optional int, variadic bool) {
	for _, p := range params {
		switch p.Binding {
		case Required:
			required++
		case Optional:
			optional++
		case Variadic:
			variadic = true
		}
	}
	return
}

// ValidateOrdering enforces the required* optional* variadic? rule on one
// parameter list. The same rule applies independently to a signature's main
// list and to each flag's list.
func ValidateOrdering(params []Parameter) error {
	seenOptional := false
	seenVariadic := false
	for _, p := range params {
		switch p.Binding {
		case Required:
			if seenOptional || seenVariadic {
				return fmt.Errorf("invalid parameter ordering: required parameter %q after optional or variadic", p.Name)
			}
		case Optional:
			if seenVariadic {
				return fmt.Errorf("invalid parameter ordering: optional parameter %q after variadic", p.Name)
			}
			seenOptional = true
		case Variadic:
			if seenVariadic {
				return fmt.Errorf("invalid parameter ordering: more than one variadic parameter (%q)", p.Name)
			}
			seenVariadic = true
		}
	}
	return nil
}

// Validate checks the ordering invariant on the main list and every flag
// list.
func (s *Signature) Validate() error {
	if err := ValidateOrdering(s.Params); err != nil {
		return fmt.Errorf("fn %s: %w", s.Name, err)
	}
	for _, f := range s.Flags {
		if err := ValidateOrdering(f.Params); err != nil {
			return fmt.Errorf("fn %s, flag -%s: %w", s.Name, f.Name, err)
		}
	}
	return nil
}

func formatParams(params []Parameter) string {
	var b strings.Builder
	group := func(binding Binding, sigil string) {
		var names []string
		for _, p := range params {
			if p.Binding != binding {
				continue
			}
			name := p.Name
			if p.Mutable {
				name = "mut " + name
			}
			names = append(names, fmt.Sprintf("%s: %s", name, p.Type))
		}
		if len(names) > 0 {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(sigil)
			b.WriteByte('(')
			b.WriteString(strings.Join(names, ", "))
			b.WriteByte(')')
		}
	}
	group(Required, "!")
	group(Optional, "?")
	group(Variadic, "*")
	return b.String()
}

// String renders the signature the way it would be written in a .kh header.
func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString("fn ")
	b.WriteString(s.Name)
	if ps := formatParams(s.Params); ps != "" {
		b.WriteByte(' ')
		b.WriteString(ps)
	}
	for _, f := range s.Flags {
		b.WriteString(" -")
		b.WriteString(f.Name)
		if ps := formatParams(f.Params); ps != "" {
			b.WriteByte(' ')
			b.WriteString(ps)
		}
	}
	if s.Return.IsValid() && s.Return.Kind != Unit {
		b.WriteString(": ")
		b.WriteString(s.Return.String())
	}
	return b.String()
}
