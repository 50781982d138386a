// Package cli is the kh command-line front end: thin cobra wiring around the
// loader and the interpreter. All language behavior lives in runtime/; the
// CLI only parses arguments, resolves the workspace config, and routes I/O.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagSearchPath []string
	flagSigCache   string
	flagProfile    string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kh",
		Short:         "kh runs KH scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringSliceVar(&flagSearchPath, "search-path", nil, "directories scanned for .kh files (overrides kh.yaml)")
	root.PersistentFlags().StringVar(&flagSigCache, "sig-cache", "", "signature cache file (overrides kh.yaml)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newTokensCmd())
	root.AddCommand(newSigsCmd())

	return root
}

// Execute is the process entry point behind cmd/kh.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// newLogger builds the CLI's stderr logger in the same shape the runtime
// packages use, so interleaved warnings read uniformly.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("KH_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// workspaceConfig resolves kh.yaml in the working directory and applies flag
// overrides.
func workspaceConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(wd)
	if err != nil {
		return nil, err
	}
	cfg.merge(flagSearchPath, flagSigCache, flagProfile)
	return cfg, nil
}
