package builtins

import (
	"fmt"

	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/interp"
)

func init() {
	register("help", func(inv *interp.Invocation) (types.Value, error) {
		verbose := inv.Flag("v")

		if inv.HasArg("command") {
			name := inv.Arg("command").Text()
			sig, ok := inv.Sigs.Lookup(name)
			if !ok {
				return types.Value{}, fmt.Errorf("no such command %q", name)
			}
			inv.Println(sig.String())
			if s, ok := Synopsis(name); ok {
				inv.Println("  " + s)
			}
			if verbose {
				inv.Println("  defined in " + sig.Origin)
			}
			return types.UnitValue, nil
		}

		for _, name := range inv.Sigs.Names() {
			sig, ok := inv.Sigs.Lookup(name)
			if !ok {
				continue
			}
			line := sig.String()
			if s, ok := Synopsis(name); ok {
				line += "  # " + s
			}
			if verbose {
				line += " (" + sig.Origin + ")"
			}
			inv.Println(line)
		}
		return types.UnitValue, nil
	})
}
