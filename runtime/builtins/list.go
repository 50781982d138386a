package builtins

import (
	"errors"
	"fmt"

	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/interp"
)

func init() {
	register("list-len", func(inv *interp.Invocation) (types.Value, error) {
		return types.IntOf(int64(len(inv.Arg("xs").Items()))), nil
	})
	register("nth", func(inv *interp.Invocation) (types.Value, error) {
		items := inv.Arg("xs").Items()
		i := inv.Arg("i").Int()
		if i < 0 || i >= int64(len(items)) {
			return types.Value{}, fmt.Errorf("index %d out of range for list of %d", i, len(items))
		}
		return items[i], nil
	})
	register("append", func(inv *interp.Invocation) (types.Value, error) {
		items := inv.Arg("xs").Items()
		out := make([]types.Value, 0, len(items)+1)
		out = append(out, items...)
		out = append(out, inv.Arg("x"))
		return inv.Arg("xs").WithItems(out), nil
	})
	register("push", func(inv *interp.Invocation) (types.Value, error) {
		xs := inv.Arg("xs")
		items := xs.Items()
		out := make([]types.Value, 0, len(items)+1)
		out = append(out, items...)
		out = append(out, inv.Arg("x"))
		inv.SetArg("xs", xs.WithItems(out))
		return types.UnitValue, nil
	})
	register("pop", func(inv *interp.Invocation) (types.Value, error) {
		xs := inv.Arg("xs")
		items := xs.Items()
		if len(items) == 0 {
			return types.Value{}, errors.New("pop from empty list")
		}
		last := items[len(items)-1]
		inv.SetArg("xs", xs.WithItems(items[:len(items)-1]))
		return last, nil
	})
	register("reverse", func(inv *interp.Invocation) (types.Value, error) {
		items := inv.Arg("xs").Items()
		out := make([]types.Value, len(items))
		for i, it := range items {
			out[len(items)-1-i] = it
		}
		return inv.Arg("xs").WithItems(out), nil
	})
	register("range", func(inv *interp.Invocation) (types.Value, error) {
		from, to := inv.Arg("from").Int(), inv.Arg("to").Int()
		var items []types.Value
		for i := from; i < to; i++ {
			items = append(items, types.IntOf(i))
		}
		return types.ListOfValues(types.IntType, items...), nil
	})
}
