package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kh-lang/kh/runtime/builtins"
	"github.com/kh-lang/kh/runtime/resolver"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <script.kh>",
		Short: "Load and resolve a script without executing it",
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
			fmt.Fprintf(os.Stdout, "ok: %d file(s), %d function(s)\n", len(set.Files), len(set.Script.Functions))
			return nil
		},
	}
}
