package builtins

import (
	"errors"

	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/interp"
)

func init() {
	register("add", func(inv *interp.Invocation) (types.Value, error) {
		return types.IntOf(inv.Arg("a").Int() + inv.Arg("b").Int()), nil
	})
	register("sub", func(inv *interp.Invocation) (types.Value, error) {
		return types.IntOf(inv.Arg("a").Int() - inv.Arg("b").Int()), nil
	})
	register("mul", func(inv *interp.Invocation) (types.Value, error) {
		return types.IntOf(inv.Arg("a").Int() * inv.Arg("b").Int()), nil
	})
	register("div", func(inv *interp.Invocation) (types.Value, error) {
		b := inv.Arg("b").Int()
		if b == 0 {
			return types.Value{}, errors.New("division by zero")
		}
		return types.IntOf(inv.Arg("a").Int() / b), nil
	})
	register("mod", func(inv *interp.Invocation) (types.Value, error) {
		b := inv.Arg("b").Int()
		if b == 0 {
			return types.Value{}, errors.New("division by zero")
		}
		return types.IntOf(inv.Arg("a").Int() % b), nil
	})
	register("neg", func(inv *interp.Invocation) (types.Value, error) {
		return types.IntOf(-inv.Arg("a").Int()), nil
	})

	register("eq", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Text() == inv.Arg("b").Text()), nil
	})
	register("ne", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Text() != inv.Arg("b").Text()), nil
	})
	register("lt", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Int() < inv.Arg("b").Int()), nil
	})
	register("le", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Int() <= inv.Arg("b").Int()), nil
	})
	register("gt", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Int() > inv.Arg("b").Int()), nil
	})
	register("ge", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Int() >= inv.Arg("b").Int()), nil
	})

	register("and", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Bool() && inv.Arg("b").Bool()), nil
	})
	register("or", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(inv.Arg("a").Bool() || inv.Arg("b").Bool()), nil
	})
	register("not", func(inv *interp.Invocation) (types.Value, error) {
		return types.BoolOf(!inv.Arg("a").Bool()), nil
	})
}
