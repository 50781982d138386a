package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kh-lang/kh/runtime/lexer"
)

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <script.kh>",
		Short: "Dump the token stream of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tokens, err := lexer.NewFromString(string(data)).Tokenize()
			if err != nil {
				return err
			}
			for _, tok := range tokens {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%q\n", tok.Pos, tok.Type, tok.Text)
			}
			return nil
		},
	}
}
