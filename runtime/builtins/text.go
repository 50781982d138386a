package builtins

import (
	"strconv"
	"strings"

	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/interp"
)

// textOrStdin resolves the String commands' optional argument: the supplied
// value, or the call's materialized stdin when absent. This is what lets
// them sit in the middle of a pipeline without repeating themselves.
func textOrStdin(inv *interp.Invocation, name string) string {
	if inv.HasArg(name) {
		return inv.Arg(name).Text()
	}
	return inv.Stdin
}

func init() {
	register("concat", func(inv *interp.Invocation) (types.Value, error) {
		var b strings.Builder
		for _, part := range inv.Arg("parts").Items() {
			b.WriteString(part.Text())
		}
		return types.Str(b.String()), nil
	})
	register("upper", func(inv *interp.Invocation) (types.Value, error) {
		return types.Str(strings.ToUpper(textOrStdin(inv, "s"))), nil
	})
	register("lower", func(inv *interp.Invocation) (types.Value, error) {
		return types.Str(strings.ToLower(textOrStdin(inv, "s"))), nil
	})
	register("trim", func(inv *interp.Invocation) (types.Value, error) {
		return types.Str(strings.TrimSpace(textOrStdin(inv, "s"))), nil
	})
	register("len", func(inv *interp.Invocation) (types.Value, error) {
		return types.IntOf(int64(len(inv.Arg("s").Text()))), nil
	})
	register("split", func(inv *interp.Invocation) (types.Value, error) {
		parts := strings.Split(inv.Arg("s").Text(), inv.Arg("sep").Text())
		return stringList(parts), nil
	})
	register("join", func(inv *interp.Invocation) (types.Value, error) {
		items := inv.Arg("xs").Items()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.Text()
		}
		return types.Str(strings.Join(parts, inv.Arg("sep").Text())), nil
	})
	register("lines", func(inv *interp.Invocation) (types.Value, error) {
		s := textOrStdin(inv, "s")
		if s == "" {
			return types.ListOfValues(types.StringType), nil
		}
		s = strings.TrimSuffix(s, "\n")
		return stringList(strings.Split(s, "\n")), nil
	})
	// The String parameter does the work: any argument reaches the native
	// already formatted through the codec.
	register("to-string", func(inv *interp.Invocation) (types.Value, error) {
		return types.Str(inv.Arg("x").Text()), nil
	})
	register("parse-int", func(inv *interp.Invocation) (types.Value, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(inv.Arg("s").Text()), 10, 64)
		if err != nil {
			return types.Value{}, &types.ParseError{
				Target: types.IntType,
				Input:  inv.Arg("s").Text(),
				Reason: "not a decimal integer",
			}
		}
		return types.IntOf(n), nil
	})
}

func stringList(parts []string) types.Value {
	items := make([]types.Value, len(parts))
	for i, p := range parts {
		items[i] = types.Str(p)
	}
	return types.ListOfValues(types.StringType, items...)
}
