package types

import "fmt"

// Value is a runtime KH value: a type tag plus the payload for that type.
// Values are copied by Clone; sharing happens only through the evaluator's
// binding cells, never through interior pointers (Option payloads are the
// one pointer and Clone copies them).
type Value struct {
	typ   Type
	str   string  // String, Path, File, Dir
	num   int64   // Int
	truth bool    // Bool
	items []Value // List elements, Tuple fields
	some  *Value  // Option payload, nil means none
}

// Constructors.

func Str(s string) Value  { return Value{typ: StringType, str: s} }
func IntOf(n int64) Value { return Value{typ: IntType, num: n} }
func BoolOf(b bool) Value { return Value{typ: BoolType, truth: b} }
func PathOf(p string) Value {
	return Value{typ: PathType, str: p}
}
func FileOf(p string) Value { return Value{typ: FileType, str: p} }
func DirOf(p string) Value  { return Value{typ: DirType, str: p} }

// UnitValue is the sole inhabitant of Unit.
var UnitValue = Value{typ: UnitType}

// ListOfValues builds a List[elem] value. The element type must be given
// explicitly so empty lists stay typed.
func ListOfValues(elem Type, items ...Value) Value {
	for _, it := range items {
		if !it.Type().Equal(elem) {
			panic(fmt.Sprintf("types: %s element in List[%s]", it.Type(), elem))
		}
	}
	return Value{typ: ListOf(elem), items: items}
}

// Some wraps v in Option[T].
func Some(v Value) Value {
	inner := v
	return Value{typ: OptionOf(v.Type()), some: &inner}
}

// None is the empty Option[elem].
func None(elem Type) Value {
	return Value{typ: OptionOf(elem)}
}

// TupleOfValues builds a tuple value from its fields.
func TupleOfValues(items ...Value) Value {
	elems := make([]Type, len(items))
	for i, it := range items {
		elems[i] = it.Type()
	}
	return Value{typ: TupleOf(elems...), items: items}
}

// Accessors. Each panics when the value has the wrong type tag; callers are
// expected to have checked types statically or via Type().

func (v Value) Type() Type { return v.typ }

// Text returns the raw string payload of String/Path/File/Dir values.
func (v Value) Text() string {
	switch v.typ.Kind {
	case String, Path, File, Dir:
		return v.str
	}
	panic(fmt.Sprintf("types: Text on %s", v.typ))
}

func (v Value) Int() int64 {
	if v.typ.Kind != Int {
		panic(fmt.Sprintf("types: Int on %s", v.typ))
	}
	return v.num
}

func (v Value) Bool() bool {
	if v.typ.Kind != Bool {
		panic(fmt.Sprintf("types: Bool on %s", v.typ))
	}
	return v.truth
}

// Items returns list elements or tuple fields. The returned slice is the
// value's backing store; callers that hold a Reference-tagged binding may
// mutate through it deliberately.
func (v Value) Items() []Value {
	switch v.typ.Kind {
	case List, Tuple:
		return v.items
	}
	panic(fmt.Sprintf("types: Items on %s", v.typ))
}

// WithItems returns a copy of a List/Tuple value carrying items instead of
// its current elements.
func (v Value) WithItems(items []Value) Value {
	switch v.typ.Kind {
	case List, Tuple:
		w := v
		w.items = items
		return w
	}
	panic(fmt.Sprintf("types: WithItems on %s", v.typ))
}

// Unwrap returns the Option payload and whether it is present.
func (v Value) Unwrap() (Value, bool) {
	if v.typ.Kind != Option {
		panic(fmt.Sprintf("types: Unwrap on %s", v.typ))
	}
	if v.some == nil {
		return Value{}, false
	}
	return *v.some, true
}

// Clone deep-copies v. Primitive payloads are value types already; lists,
// tuples, and option payloads are copied element by element.
func (v Value) Clone() Value {
	w := v
	if v.items != nil {
		w.items = make([]Value, len(v.items))
		for i, it := range v.items {
			w.items[i] = it.Clone()
		}
	}
	if v.some != nil {
		inner := v.some.Clone()
		w.some = &inner
	}
	return w
}

// Equal reports deep structural equality of two values, including their
// types.
func (v Value) Equal(u Value) bool {
	if !v.typ.Equal(u.typ) {
		return false
	}
	switch v.typ.Kind {
	case String, Path, File, Dir:
		return v.str == u.str
	case Int:
		return v.num == u.num
	case Bool:
		return v.truth == u.truth
	case Unit:
		return true
	case List, Tuple:
		if len(v.items) != len(u.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(u.items[i]) {
				return false
			}
		}
		return true
	case Option:
		if (v.some == nil) != (u.some == nil) {
			return false
		}
		return v.some == nil || v.some.Equal(*u.some)
	}
	return false
}

func (v Value) String() string { return Format(v) }
