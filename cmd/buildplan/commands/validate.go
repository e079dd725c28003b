package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/buildplan/buildplan/pkg/engine"
	"github.com/buildplan/buildplan/pkg/resolver"
)

type validateOptions struct {
	variants []string
	explain  bool
}

func newValidateCommand(opts *globalOptions) *cobra.Command {
	vo := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <descriptor>",
		Short: "Resolve and validate a descriptor without emitting a plan",
		Long: `Validate runs the same stages as resolve but writes no plan. Use --explain
to see which layer supplied every resolved setting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ctx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			p, err := env.pipeline()
			if err != nil {
				return err
			}

			report, runErr := p.Run(ctx, engine.Request{
				Path:     args[0],
				Variants: vo.variants,
				DryRun:   true,
			})

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				if err := printReportJSON(out, report); err != nil {
					return err
				}
			} else {
				printDiagnostics(cmd.ErrOrStderr(), report.Diagnostics())
				if report.ExitCode == engine.ExitFatal {
					fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Error:"), runErr)
				} else {
					if vo.explain {
						for _, v := range report.Variants {
							explain(out, v)
						}
					}
					printSummary(out, report)
				}
			}

			if report.ExitCode != engine.ExitOK {
				return &exitError{code: report.ExitCode, err: runErr}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vo.variants, "variant", nil, "validate only this variant (repeatable)")
	cmd.Flags().BoolVar(&vo.explain, "explain", false, "print each resolved setting with the layer that supplied it")

	return cmd
}

// explain prints the resolved settings of one variant with their origin.
func explain(w io.Writer, v engine.VariantReport) {
	status := "emitted"
	if !v.Emitted {
		status = errorStyle.Render("omitted")
	}
	fmt.Fprintf(w, "%s (%s)\n", headerStyle.Render(v.Name), status)
	if v.Config == nil {
		return
	}

	settings := v.Config.Settings()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		origin := "-"
		if o, ok := v.Config.Origin(k); ok {
			origin = originLabel(o)
		}
		rows = append(rows, []string{k, fmt.Sprint(settings[k]), origin})
	}
	fmt.Fprintln(w, renderTable([]string{"KEY", "VALUE", "ORIGIN"}, rows))
}

func originLabel(o resolver.Origin) string {
	if o.Pos != nil {
		if loc := o.Pos.String(); loc != "" {
			return o.Source + " " + dimStyle.Render(loc)
		}
	}
	return o.Source
}
