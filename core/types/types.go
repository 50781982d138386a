// Package types defines the KH type system and runtime values.
//
// KH types are structural: two List[Int] types compare equal regardless of
// where they were written. The set is closed - seven primitives plus the
// List, Option, and Tuple constructors - and there are no user-defined types.
package types

import (
	"fmt"
	"strings"
)

// Kind describes the head constructor of a Type.
type Kind int

const (
	Invalid Kind = iota

	// Primitives
	String
	Int
	Bool
	Path
	File
	Dir
	Unit

	// Compound constructors
	List   // List[T]
	Option // Option[T]
	Tuple  // Tuple[T, ...], arity >= 1
)

var kindNames = [...]string{
	Invalid: "Invalid",
	String:  "String",
	Int:     "Int",
	Bool:    "Bool",
	Path:    "Path",
	File:    "File",
	Dir:     "Dir",
	Unit:    "Unit",
	List:    "List",
	Option:  "Option",
	Tuple:   "Tuple",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Type is a KH type. The zero value is the invalid type.
type Type struct {
	Kind  Kind
	Elems []Type // List/Option: exactly one; Tuple: arity >= 1; else nil
}

// Predeclared primitive types.
var (
	StringType = Type{Kind: String}
	IntType    = Type{Kind: Int}
	BoolType   = Type{Kind: Bool}
	PathType   = Type{Kind: Path}
	FileType   = Type{Kind: File}
	DirType    = Type{Kind: Dir}
	UnitType   = Type{Kind: Unit}
)

// PrimitiveByName maps a type name as written in source to its primitive
// type. Returns the invalid type for unknown names (List/Option/Tuple are
// constructors, not primitives).
func PrimitiveByName(name string) (Type, bool) {
	switch name {
	case "String":
		return StringType, true
	case "Int":
		return IntType, true
	case "Bool":
		return BoolType, true
	case "Path":
		return PathType, true
	case "File":
		return FileType, true
	case "Dir":
		return DirType, true
	case "Unit":
		return UnitType, true
	}
	return Type{}, false
}

// ListOf returns List[elem].
func ListOf(elem Type) Type {
	return Type{Kind: List, Elems: []Type{elem}}
}

// OptionOf returns Option[elem].
func OptionOf(elem Type) Type {
	return Type{Kind: Option, Elems: []Type{elem}}
}

// TupleOf returns Tuple[elems...]. Tuple arity must be at least one; the
// one-element tuple Tuple[T] is a distinct type from T.
func TupleOf(elems ...Type) Type {
	if len(elems) == 0 {
		panic("types: tuple arity must be >= 1")
	}
	return Type{Kind: Tuple, Elems: elems}
}

// Elem returns the element type of a List or Option.
func (t Type) Elem() Type {
	if t.Kind != List && t.Kind != Option {
		panic(fmt.Sprintf("types: Elem on %s", t))
	}
	return t.Elems[0]
}

// IsValid reports whether t is a usable type.
func (t Type) IsValid() bool { return t.Kind != Invalid }

// IsPrimitive reports whether t is one of the seven primitive types.
func (t Type) IsPrimitive() bool {
	return t.Kind >= String && t.Kind <= Unit
}

// Equal reports structural equality.
func (t Type) Equal(u Type) bool {
	if t.Kind != u.Kind || len(t.Elems) != len(u.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(u.Elems[i]) {
			return false
		}
	}
	return true
}

// String renders the type as written in source, e.g. "List[Option[Int]]".
func (t Type) String() string {
	switch t.Kind {
	case List, Option, Tuple:
		var b strings.Builder
		b.WriteString(t.Kind.String())
		b.WriteByte('[')
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return t.Kind.String()
	}
}
