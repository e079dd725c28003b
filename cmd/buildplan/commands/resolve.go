package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/buildplan/buildplan/pkg/engine"
	"github.com/buildplan/buildplan/pkg/plan"
)

type resolveOptions struct {
	variants []string
	output   string
	format   string
}

func newResolveCommand(opts *globalOptions) *cobra.Command {
	ro := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <descriptor>",
		Short: "Resolve a descriptor and emit the build plan",
		Long: `Resolve merges the layers of every variant declared in the descriptor,
validates the results and emits a plan holding the variants without errors.

The plan goes to stdout unless --out is given. Diagnostics go to stderr.

Exit codes:
  0  every variant was emitted
  1  some variants had errors and were left out of the plan
  2  the descriptor, catalog or output could not be processed`,
		Example: `  buildplan resolve build.hcl
  buildplan resolve build.hcl --variant release --out plan.json
  buildplan resolve module.cue --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ctx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			req := engine.Request{
				Path:     args[0],
				Variants: ro.variants,
				Format:   plan.Format(ro.format),
				Output:   ro.output,
			}
			if ro.output == "" {
				req.Writer = cmd.OutOrStdout()
			}
			return runPipeline(ctx, env, req, cmd.ErrOrStderr(), opts.jsonOutput)
		},
	}

	cmd.Flags().StringArrayVar(&ro.variants, "variant", nil, "resolve only this variant (repeatable)")
	cmd.Flags().StringVarP(&ro.output, "out", "o", "", "write the plan to this file")
	cmd.Flags().StringVarP(&ro.format, "format", "f", "", "plan format: json or yaml (default from settings, else json)")

	return cmd
}

// runPipeline runs one request and reports its outcome on report. The
// returned error carries the run's exit code.
func runPipeline(ctx context.Context, env *environment, req engine.Request, report io.Writer, jsonOutput bool) error {
	if req.Format == "" {
		req.Format = plan.Format(env.settings.Format)
	}

	p, err := env.pipeline()
	if err != nil {
		return err
	}

	rep, runErr := p.Run(ctx, req)
	if jsonOutput {
		if err := printReportJSON(report, rep); err != nil {
			return err
		}
	} else {
		printDiagnostics(report, rep.Diagnostics())
		if rep.ExitCode == engine.ExitFatal {
			fmt.Fprintln(report, errorStyle.Render("Error:"), runErr)
		}
	}

	if rep.ExitCode != engine.ExitOK {
		return &exitError{code: rep.ExitCode, err: runErr}
	}
	return nil
}
