package builtins

import (
	"strings"

	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/interp"
)

func joinParts(inv *interp.Invocation) string {
	items := inv.Arg("parts").Items()
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Text()
	}
	return strings.Join(parts, " ")
}

func init() {
	register("echo", func(inv *interp.Invocation) (types.Value, error) {
		inv.Println(joinParts(inv))
		return types.UnitValue, nil
	})
	register("print", func(inv *interp.Invocation) (types.Value, error) {
		inv.Print(joinParts(inv))
		return types.UnitValue, nil
	})
	register("read-stdin", func(inv *interp.Invocation) (types.Value, error) {
		return types.Str(inv.Stdin), nil
	})
}
