package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Every KH type must round-trip through text: values cross the stdout/stdin
// boundary as strings and re-enter typed code through parse. The two
// operations form a capability contract - a primitive without both cannot be
// registered.

// ParseError reports a failed parse of text into a target type.
type ParseError struct {
	Target Type
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s: %s", e.Input, e.Target, e.Reason)
}

// Codec supplies both halves of the textual capability for one primitive.
type Codec struct {
	Parse  func(s string) (Value, error)
	Format func(v Value) string
}

var primCodecs = map[Kind]Codec{}

// RegisterPrimitive installs the codec for a primitive kind. Both operations
// must be supplied together; a partial codec is a programming error.
func RegisterPrimitive(k Kind, c Codec) {
	if c.Parse == nil || c.Format == nil {
		panic(fmt.Sprintf("types: incomplete codec for %s", k))
	}
	if _, dup := primCodecs[k]; dup {
		panic(fmt.Sprintf("types: duplicate codec for %s", k))
	}
	primCodecs[k] = c
}

func init() {
	RegisterPrimitive(String, Codec{
		Parse:  func(s string) (Value, error) { return Str(s), nil },
		Format: func(v Value) string { return v.Text() },
	})
	RegisterPrimitive(Int, Codec{
		Parse: func(s string) (Value, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return Value{}, &ParseError{Target: IntType, Input: s, Reason: "not an integer"}
			}
			return IntOf(n), nil
		},
		Format: func(v Value) string { return strconv.FormatInt(v.Int(), 10) },
	})
	RegisterPrimitive(Bool, Codec{
		Parse: func(s string) (Value, error) {
			switch strings.TrimSpace(s) {
			case "true":
				return BoolOf(true), nil
			case "false":
				return BoolOf(false), nil
			}
			return Value{}, &ParseError{Target: BoolType, Input: s, Reason: "want true or false"}
		},
		Format: func(v Value) string { return strconv.FormatBool(v.Bool()) },
	})
	RegisterPrimitive(Path, Codec{
		Parse:  func(s string) (Value, error) { return PathOf(s), nil },
		Format: func(v Value) string { return v.Text() },
	})
	RegisterPrimitive(File, Codec{
		Parse:  func(s string) (Value, error) { return FileOf(s), nil },
		Format: func(v Value) string { return v.Text() },
	})
	RegisterPrimitive(Dir, Codec{
		Parse:  func(s string) (Value, error) { return DirOf(s), nil },
		Format: func(v Value) string { return v.Text() },
	})
	RegisterPrimitive(Unit, Codec{
		Parse: func(s string) (Value, error) {
			if strings.TrimSpace(s) != "" {
				return Value{}, &ParseError{Target: UnitType, Input: s, Reason: "Unit has no textual form"}
			}
			return UnitValue, nil
		},
		Format: func(Value) string { return "" },
	})
}

// Format renders v as the text that would appear on a stream. Compound
// values render compositionally: list elements one per line, tuple fields
// tab-separated, options as their payload or the empty string.
func Format(v Value) string {
	t := v.Type()
	switch t.Kind {
	case List:
		items := v.Items()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Format(it)
		}
		return strings.Join(parts, "\n")
	case Tuple:
		items := v.Items()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Format(it)
		}
		return strings.Join(parts, "\t")
	case Option:
		if inner, ok := v.Unwrap(); ok {
			return Format(inner)
		}
		return ""
	default:
		c, ok := primCodecs[t.Kind]
		if !ok {
			panic(fmt.Sprintf("types: no codec for %s", t))
		}
		return c.Format(v)
	}
}

// Parse reads text into a value of the target type, inverting Format for
// types whose codecs are exact inverses.
func Parse(target Type, s string) (Value, error) {
	switch target.Kind {
	case List:
		if s == "" {
			return ListOfValues(target.Elem()), nil
		}
		lines := strings.Split(s, "\n")
		items := make([]Value, 0, len(lines))
		for _, line := range lines {
			it, err := Parse(target.Elem(), line)
			if err != nil {
				return Value{}, &ParseError{Target: target, Input: s, Reason: err.Error()}
			}
			items = append(items, it)
		}
		return ListOfValues(target.Elem(), items...), nil
	case Tuple:
		parts := strings.Split(s, "\t")
		if len(parts) != len(target.Elems) {
			return Value{}, &ParseError{
				Target: target,
				Input:  s,
				Reason: fmt.Sprintf("want %d fields, got %d", len(target.Elems), len(parts)),
			}
		}
		items := make([]Value, len(parts))
		for i, part := range parts {
			it, err := Parse(target.Elems[i], part)
			if err != nil {
				return Value{}, &ParseError{Target: target, Input: s, Reason: err.Error()}
			}
			items[i] = it
		}
		return TupleOfValues(items...), nil
	case Option:
		if s == "" {
			return None(target.Elem()), nil
		}
		inner, err := Parse(target.Elem(), s)
		if err != nil {
			return Value{}, &ParseError{Target: target, Input: s, Reason: err.Error()}
		}
		return Some(inner), nil
	default:
		c, ok := primCodecs[target.Kind]
		if !ok {
			return Value{}, &ParseError{Target: target, Input: s, Reason: "no codec registered"}
		}
		return c.Parse(s)
	}
}

// Interpolate adapts v to the target type. Identical types pass the value
// through untouched; anything else round-trips through Format and Parse.
// The fast path must not change observable results for exact-inverse codecs.
func Interpolate(v Value, target Type) (Value, error) {
	if v.Type().Equal(target) {
		return v, nil
	}
	return Parse(target, Format(v))
}
