package builtins

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/interp"
)

func init() {
	register("pwd", func(inv *interp.Invocation) (types.Value, error) {
		wd, err := os.Getwd()
		if err != nil {
			return types.Value{}, err
		}
		inv.Println(wd)
		return types.DirOf(wd), nil
	})

	register("ls", func(inv *interp.Invocation) (types.Value, error) {
		dir := "."
		if inv.HasArg("path") {
			dir = inv.Arg("path").Text()
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return types.Value{}, err
		}
		all := inv.Flag("a")
		var names []string
		for _, e := range entries {
			if !all && strings.HasPrefix(e.Name(), ".") {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			inv.Println(name)
		}
		return stringList(names), nil
	})

	register("cat", func(inv *interp.Invocation) (types.Value, error) {
		data, err := os.ReadFile(inv.Arg("file").Text())
		if err != nil {
			return types.Value{}, err
		}
		inv.Print(string(data))
		return types.Str(string(data)), nil
	})

	register("mkdir", func(inv *interp.Invocation) (types.Value, error) {
		if err := os.MkdirAll(inv.Arg("path").Text(), 0o755); err != nil {
			return types.Value{}, err
		}
		return types.UnitValue, nil
	})

	register("touch", func(inv *interp.Invocation) (types.Value, error) {
		f, err := os.OpenFile(inv.Arg("path").Text(), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return types.Value{}, err
		}
		return types.UnitValue, f.Close()
	})

	register("rm", func(inv *interp.Invocation) (types.Value, error) {
		path := inv.Arg("path").Text()
		if inv.Flag("r") {
			return types.UnitValue, os.RemoveAll(path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return types.Value{}, err
		}
		if info.IsDir() {
			return types.Value{}, fmt.Errorf("%s is a directory (use -r)", path)
		}
		return types.UnitValue, os.Remove(path)
	})

	register("write-file", func(inv *interp.Invocation) (types.Value, error) {
		err := os.WriteFile(inv.Arg("file").Text(), []byte(inv.Arg("content").Text()), 0o644)
		if err != nil {
			return types.Value{}, err
		}
		return types.UnitValue, nil
	})
}
