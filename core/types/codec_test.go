package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFormatCompound(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"int", IntOf(-42), "-42"},
		{"bool", BoolOf(true), "true"},
		{"unit is empty", UnitValue, ""},
		{
			"list joins with newlines",
			ListOfValues(IntType, IntOf(1), IntOf(2), IntOf(3)),
			"1\n2\n3",
		},
		{"empty list", ListOfValues(StringType), ""},
		{
			"tuple joins with tabs",
			TupleOfValues(Str("a"), IntOf(7)),
			"a\t7",
		},
		{"some renders payload", Some(IntOf(9)), "9"},
		{"none renders empty", None(IntType), ""},
		{
			"nested list of tuples",
			ListOfValues(TupleOf(StringType, IntType),
				TupleOfValues(Str("x"), IntOf(1)),
				TupleOfValues(Str("y"), IntOf(2))),
			"x\t1\ny\t2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.v); got != tt.want {
				t.Errorf("Format = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseInvertsFormat(t *testing.T) {
	values := []Value{
		IntOf(0),
		IntOf(-9000),
		BoolOf(false),
		Str("plain text"),
		PathOf("/tmp/x"),
		ListOfValues(IntType, IntOf(1), IntOf(2)),
		TupleOfValues(IntOf(1), BoolOf(true)),
		Some(Str("inner")),
		UnitValue,
	}
	for _, v := range values {
		got, err := Parse(v.Type(), Format(v))
		if err != nil {
			t.Errorf("Parse(%s, Format) failed: %v", v.Type(), err)
			continue
		}
		if !got.Equal(v) {
			t.Errorf("round trip of %s changed %v to %v", v.Type(), v, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		target Type
		input  string
	}{
		{IntType, "twelve"},
		{IntType, "1.5"},
		{BoolType, "yes"},
		{UnitType, "anything"},
		{ListOf(IntType), "1\ntwo"},
		{TupleOf(IntType, IntType), "1"},
	}
	for _, tt := range tests {
		if _, err := Parse(tt.target, tt.input); err == nil {
			t.Errorf("Parse(%s, %q) succeeded, want error", tt.target, tt.input)
		}
	}
}

func TestParseWhitespaceTolerance(t *testing.T) {
	v, err := Parse(IntType, "  41\t")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v.Int() != 41 {
		t.Errorf("Parse = %d, want 41", v.Int())
	}
}

func TestInterpolate(t *testing.T) {
	t.Run("identical type passes value through", func(t *testing.T) {
		orig := ListOfValues(StringType, Str("has\ttab"))
		got, err := Interpolate(orig, ListOf(StringType))
		if err != nil {
			t.Fatalf("Interpolate failed: %v", err)
		}
		if diff := cmp.Diff(Format(orig), Format(got)); diff != "" {
			t.Errorf("pass-through changed value (-want +got):\n%s", diff)
		}
	})

	t.Run("int reaches string as text", func(t *testing.T) {
		got, err := Interpolate(IntOf(42), StringType)
		if err != nil {
			t.Fatalf("Interpolate failed: %v", err)
		}
		if got.Text() != "42" {
			t.Errorf("got %q, want %q", got.Text(), "42")
		}
	})

	t.Run("string to int round trip", func(t *testing.T) {
		got, err := Interpolate(Str("7"), IntType)
		if err != nil {
			t.Fatalf("Interpolate failed: %v", err)
		}
		if got.Int() != 7 {
			t.Errorf("got %d, want 7", got.Int())
		}
	})

	t.Run("failed round trip is a parse error", func(t *testing.T) {
		_, err := Interpolate(Str("not a number"), IntType)
		if err == nil {
			t.Fatal("Interpolate succeeded, want error")
		}
		if _, ok := err.(*ParseError); !ok {
			t.Errorf("error type %T, want *ParseError", err)
		}
	})
}

func TestClone(t *testing.T) {
	orig := ListOfValues(StringType, Str("a"), Str("b"))
	copied := orig.Clone()
	copied.Items()[0] = Str("mutated")
	if orig.Items()[0].Text() != "a" {
		t.Error("Clone shares backing storage with the original")
	}
}
