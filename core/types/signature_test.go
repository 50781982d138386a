package types

import (
	"strings"
	"testing"
)

func TestValidateOrdering(t *testing.T) {
	req := func(name string) Parameter { return Parameter{Name: name, Type: IntType, Binding: Required} }
	opt := func(name string) Parameter { return Parameter{Name: name, Type: IntType, Binding: Optional} }
	vrd := func(name string) Parameter { return Parameter{Name: name, Type: IntType, Binding: Variadic} }

	tests := []struct {
		name    string
		params  []Parameter
		wantErr bool
	}{
		{"empty", nil, false},
		{"required only", []Parameter{req("a"), req("b")}, false},
		{"full ordering", []Parameter{req("a"), opt("b"), vrd("c")}, false},
		{"required after optional", []Parameter{opt("a"), req("b")}, true},
		{"required after variadic", []Parameter{vrd("a"), req("b")}, true},
		{"optional after variadic", []Parameter{vrd("a"), opt("b")}, true},
		{"two variadics", []Parameter{vrd("a"), vrd("b")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrdering(tt.params)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOrdering = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "invalid parameter ordering") {
				t.Errorf("error %q lacks ordering prefix", err)
			}
		})
	}
}

func TestSignatureValidateChecksFlags(t *testing.T) {
	sig := &Signature{
		Name: "demo",
		Flags: []Flag{{
			Name: "bad",
			Params: []Parameter{
				{Name: "a", Type: IntType, Binding: Optional},
				{Name: "b", Type: IntType, Binding: Required},
			},
		}},
		Return: UnitType,
	}
	if err := sig.Validate(); err == nil {
		t.Fatal("Validate accepted a flag with required after optional")
	}
}

func TestArity(t *testing.T) {
	params := []Parameter{
		{Name: "a", Binding: Required},
		{Name: "b", Binding: Required},
		{Name: "c", Binding: Optional},
		{Name: "d", Binding: Variadic},
	}
	required, optional, variadic := Arity(params)
	if required != 2 || optional != 1 || !variadic {
		t.Errorf("Arity = (%d, %d, %v), want (2, 1, true)", required, optional, variadic)
	}
}

func TestSignatureString(t *testing.T) {
	sig := &Signature{
		Name: "copy",
		Params: []Parameter{
			{Name: "src", Type: FileType, Binding: Required},
			{Name: "dst", Type: FileType, Binding: Required, Mutable: true},
			{Name: "mode", Type: StringType, Binding: Optional},
		},
		Flags: []Flag{{
			Name:   "depth",
			Params: []Parameter{{Name: "n", Type: IntType, Binding: Required}},
		}},
		Return: BoolType,
	}
	want := "fn copy !(src: File, mut dst: File) ?(mode: String) -depth !(n: Int): Bool"
	if got := sig.String(); got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestSignatureStringUnitReturn(t *testing.T) {
	sig := &Signature{Name: "noop", Return: UnitType}
	if got := sig.String(); got != "fn noop" {
		t.Errorf("String = %q, want %q", got, "fn noop")
	}
}
