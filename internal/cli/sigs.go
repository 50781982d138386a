package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kh-lang/kh/runtime/builtins"
	"github.com/kh-lang/kh/runtime/resolver"
)

func newSigsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sigs <script.kh>",
		Short: "Print the resolved signature table for a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := workspaceConfig()
			if err != nil {
				return err
			}
			logger := newLogger()
			set, err := resolver.Load(cfg.SearchPath, args[0], builtins.Signatures(), cfg.SigCache, logger)
			if err != nil {
				return err
			}
			for _, name := range set.Table.Names() {
				sig, ok := set.Table.Lookup(name)
				if !ok {
					continue
				}
				if sig.Origin == "builtin" && !all {
					continue
				}
				fmt.Fprintf(os.Stdout, "%s\t%s\n", sig, sig.Origin)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include builtin signatures")

	return cmd
}
