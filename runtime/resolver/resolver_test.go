package resolver

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kh-lang/kh/core/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoSig() *types.Signature {
	return &types.Signature{
		Name:   "echo",
		Params: []types.Parameter{{Name: "parts", Type: types.StringType, Binding: types.Variadic}},
		Return: types.UnitType,
		Origin: "builtin",
	}
}

func addSig() *types.Signature {
	return &types.Signature{
		Name: "add",
		Params: []types.Parameter{
			{Name: "a", Type: types.IntType, Binding: types.Required},
			{Name: "b", Type: types.IntType, Binding: types.Required},
		},
		Return: types.IntType,
		Origin: "builtin",
	}
}

func lsSig() *types.Signature {
	return &types.Signature{
		Name:   "ls",
		Params: []types.Parameter{{Name: "path", Type: types.DirType, Binding: types.Optional}},
		Flags:  []types.Flag{{Name: "a"}},
		Return: types.ListOf(types.StringType),
		Origin: "builtin",
	}
}

func testBuiltins() []*types.Signature {
	return []*types.Signature{echoSig(), addSig(), lsSig()}
}

func TestLastLoadedWins(t *testing.T) {
	table := NewTable(nil)
	table.SetLogger(quietLogger())

	first := &types.Signature{Name: "greet", Return: types.UnitType, Origin: "lib/a.kh"}
	second := &types.Signature{
		Name:   "greet",
		Params: []types.Parameter{{Name: "who", Type: types.StringType, Binding: types.Required}},
		Return: types.UnitType,
		Origin: "main.kh",
	}
	table.Declare(first)
	table.Declare(second)

	got, ok := table.Lookup("greet")
	require.True(t, ok)
	require.Equal(t, "main.kh", got.Origin)
	require.Len(t, got.Params, 1)
}

func TestBuiltinShadowedByUserFunction(t *testing.T) {
	set, err := LoadSource("fn echo { }\necho", testBuiltins(), quietLogger())
	require.NoError(t, err)

	sig, ok := set.Table.Lookup("echo")
	require.True(t, ok)
	require.NotEqual(t, "builtin", sig.Origin, "user definition shadows the builtin")
	_, ok = set.Table.Function("echo")
	require.True(t, ok)
}

func TestUnknownFunctionSuggestion(t *testing.T) {
	_, err := LoadSource("ech hello", testBuiltins(), quietLogger())
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown function "ech"`)
	require.Contains(t, err.Error(), `did you mean "echo"?`)
	require.Contains(t, err.Error(), "SyntaxError")
}

func TestRequiredArity(t *testing.T) {
	// Arity failures inside expressions surface from the parser; at
	// command level the resolver reports them.
	_, err := LoadSource("add 1", testBuiltins(), quietLogger())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fn add requires 2 argument(s), got 1")
}

func TestSurplusArgumentsAreAccepted(t *testing.T) {
	_, err := LoadSource("echo a b c d e", testBuiltins(), quietLogger())
	require.NoError(t, err)

	_, err = LoadSource("add 1 2 3", testBuiltins(), quietLogger())
	require.NoError(t, err, "surplus positional args are discarded, not rejected")
}

func TestUnknownFlag(t *testing.T) {
	_, err := LoadSource("ls -q", testBuiltins(), quietLogger())
	require.Error(t, err)
	require.Contains(t, err.Error(), "UnknownFlag: fn ls has no flag -q")

	_, err = LoadSource("ls -all", testBuiltins(), quietLogger())
	require.Error(t, err)
	require.Contains(t, err.Error(), "did you mean -a?")
}

func TestReturnContract(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			"explicit return satisfies",
			"fn f: Int { return 1 }",
			"",
		},
		{
			"final expression satisfies",
			"fn f (x: Int): Int { add $x 1 }",
			"",
		},
		{
			"return inside branch satisfies",
			"fn f: Int { if true { return 1 } else { return 2 } }",
			"",
		},
		{
			"unit function needs nothing",
			"fn f { echo hi }",
			"",
		},
		{
			"empty non-unit body",
			"fn f: Int { }",
			"has neither a return statement nor a final expression",
		},
		{
			"trailing binding is not a final expression",
			"fn f: Int { $x: Int = 1 }",
			"has neither a return statement nor a final expression",
		},
		{
			"trailing multi-stage pipeline is not a final expression",
			"fn f: Int { echo a | echo }",
			"has neither a return statement nor a final expression",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSource(tt.src, testBuiltins(), quietLogger())
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNamesSorted(t *testing.T) {
	table := NewTable(testBuiltins())
	names := table.Names()
	require.Equal(t, []string{"add", "echo", "ls"}, names)
}

func TestSuggestEmptyTable(t *testing.T) {
	table := NewTable(nil)
	require.Equal(t, "", table.Suggest("anything"))
}
