package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/buildplan/buildplan/pkg/engine"
)

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// globalOptions holds the persistent flags of one command tree.
type globalOptions struct {
	configPath string
	catalog    string
	keystores  string
	policies   []string
	history    string
	metricsOut string
	traceOut   string
	verbose    bool
	jsonOutput bool

	info BuildInfo
}

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, info BuildInfo) int {
	rootCmd := newRootCommand(info)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return engine.ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil && ee.code == engine.ExitFatal {
			log.Debug().Err(ee.err).Msg("Command failed")
		}
		return ee.code
	}

	// Flag and argument errors, or failures loading settings and catalogs.
	fmt.Fprintln(stderr, "Error:", err)
	return engine.ExitFatal
}

func newRootCommand(info BuildInfo) *cobra.Command {
	opts := &globalOptions{info: info}

	rootCmd := &cobra.Command{
		Use:   "buildplan",
		Short: "Resolve mobile build descriptors into validated build plans",
		Long: `buildplan merges plugin defaults, module settings and per-variant overrides
from a build descriptor into one validated build plan per variant.

Layers, weakest first:
  - toolchain defaults from the plugin catalog
  - plugin defaults, in declaration order (later plugins win)
  - module settings
  - variant overrides

Variants with error diagnostics are left out of the plan; the others are
still emitted.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "settings file path")
	flags.StringVar(&opts.catalog, "catalog", "", "plugin catalog file (default: built-in catalog)")
	flags.StringVar(&opts.keystores, "keystores", "", "signing identity inventory file")
	flags.StringArrayVar(&opts.policies, "policy", nil, "Rego policy file or directory (repeatable)")
	flags.StringVar(&opts.history, "history", "", "SQLite run history database")
	flags.StringVar(&opts.metricsOut, "metrics-out", "", "write Prometheus metrics to this file when done")
	flags.StringVar(&opts.traceOut, "trace-out", "", "write trace spans as JSON to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print diagnostics and listings as JSON")

	rootCmd.AddCommand(newResolveCommand(opts))
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newPluginsCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))

	return rootCmd
}
