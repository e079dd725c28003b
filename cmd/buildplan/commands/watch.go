package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildplan/buildplan/pkg/engine"
	"github.com/buildplan/buildplan/pkg/plan"
	"github.com/buildplan/buildplan/pkg/telemetry"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var (
		ro       resolveOptions
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <descriptor>",
		Short: "Re-resolve the descriptor whenever it or the catalog changes",
		Long: `Watch resolves the descriptor once, then again every time the descriptor,
the plugin catalog or the signing identity inventory is saved. It runs until
interrupted. Failed runs are reported and watching continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ctx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			logger := telemetry.FromContext(ctx).NewComponentLogger("watch")
			stderr := cmd.ErrOrStderr()

			resolveOnce := func(ctx context.Context) {
				if err := env.loadInputs(); err != nil {
					fmt.Fprintln(stderr, errorStyle.Render("Error:"), err)
					return
				}
				req := engine.Request{
					Path:     args[0],
					Variants: ro.variants,
					Format:   plan.Format(ro.format),
					Output:   ro.output,
				}
				if ro.output == "" {
					req.Writer = cmd.OutOrStdout()
				}
				err := runPipeline(ctx, env, req, stderr, opts.jsonOutput)
				if err != nil {
					logger.WithError(err).Debug("Run did not succeed")
				}
				if !opts.jsonOutput {
					fmt.Fprintln(stderr, dimStyle.Render(fmt.Sprintf("[%s] waiting for changes", time.Now().Format(time.TimeOnly))))
				}
			}

			resolveOnce(ctx)

			files := append([]string{args[0]}, env.inputFiles()...)
			logger.WithField("files", files).Info("Watching for changes")
			return engine.Watch(ctx, files, debounce, resolveOnce)
		},
	}

	cmd.Flags().StringArrayVar(&ro.variants, "variant", nil, "resolve only this variant (repeatable)")
	cmd.Flags().StringVarP(&ro.output, "out", "o", "", "write the plan to this file")
	cmd.Flags().StringVarP(&ro.format, "format", "f", "", "plan format: json or yaml")
	cmd.Flags().DurationVar(&debounce, "debounce", engine.DefaultDebounce, "quiet period before re-running")

	return cmd
}
