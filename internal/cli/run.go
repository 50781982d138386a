package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/kh-lang/kh/runtime/builtins"
	"github.com/kh-lang/kh/runtime/interp"
	"github.com/kh-lang/kh/runtime/resolver"
)

func newRunCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <script.kh>",
		Short: "Load the workspace and execute a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := workspaceConfig()
			if err != nil {
				return err
			}
			if stop := startProfile(cfg.Profile); stop != nil {
				defer stop()
			}
			if watch {
				return watchAndRun(cfg, args[0])
			}
			return runScript(cfg, args[0])
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "re-run the script when any loaded file changes")
	cmd.Flags().StringVar(&flagProfile, "profile", "", "write a cpu or mem profile for this run")

	return cmd
}

func runScript(cfg *Config, script string) error {
	logger := newLogger()
	set, err := resolver.Load(cfg.SearchPath, script, builtins.Signatures(), cfg.SigCache, logger)
	if err != nil {
		return err
	}

	in := interp.New(set.Table, builtins.Natives())
	out, err := in.RunScript(set.Script)
	// Stdout produced before a failure is still script output.
	os.Stdout.WriteString(out)
	return err
}

// watchAndRun executes the script, then re-executes it whenever any loaded
// source file changes. Watching is directory-level so newly created .kh
// files are picked up too.
func watchAndRun(cfg *Config, script string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := map[string]bool{}
	for _, d := range cfg.SearchPath {
		dirs[d] = true
	}
	dirs[filepath.Dir(script)] = true
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}

	rerun := func() {
		if err := runScript(cfg, script); err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
		}
	}
	rerun()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".kh" {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				rerun()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			os.Stderr.WriteString("watch: " + err.Error() + "\n")
		}
	}
}

// startProfile starts profiling for the selected mode and returns its stop
// hook, or nil when profiling is off.
func startProfile(mode string) func() {
	var p interface{ Stop() }
	switch mode {
	case "":
		return nil
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
	case "mem":
		p = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q (want cpu or mem)\n", mode)
		return nil
	}
	return p.Stop
}
