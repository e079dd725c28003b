package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildplan/buildplan/pkg/diag"
	"github.com/buildplan/buildplan/pkg/stores"
)

var errNoHistory = errors.New("no run history configured (set --history or history: in the settings file)")

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, ctx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close(ctx)
			if env.store == nil {
				return errNoHistory
			}

			runs, err := env.store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				if runs == nil {
					runs = []*stores.Run{}
				}
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					string(r.Status),
					fmt.Sprint(r.ExitCode),
					r.Descriptor,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "STARTED", "STATUS", "EXIT", "DESCRIPTOR"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")

	cmd.AddCommand(newHistoryShowCommand(opts))
	cmd.AddCommand(newHistoryDeleteCommand(opts))
	return cmd
}

func newHistoryShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and the outcome of its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ctx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close(ctx)
			if env.store == nil {
				return errNoHistory
			}

			run, err := env.store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			results, err := env.store.ListVariantResults(ctx, run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				if results == nil {
					results = []*stores.VariantResult{}
				}
				return writeJSON(out, struct {
					*stores.Run
					Variants []*stores.VariantResult `json:"variant_results"`
				}{run, results})
			}

			fmt.Fprintf(out, "Run:        %s\n", run.ID)
			fmt.Fprintf(out, "Descriptor: %s\n", run.Descriptor)
			fmt.Fprintf(out, "Status:     %s (exit %d)\n", run.Status, run.ExitCode)
			fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format(time.DateTime))
			if run.CompletedAt != nil {
				fmt.Fprintf(out, "Duration:   %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
			}
			if run.Checksum != "" {
				fmt.Fprintf(out, "Checksum:   %s\n", run.Checksum)
			}
			if run.Error != nil {
				fmt.Fprintf(out, "Error:      %s\n", *run.Error)
			}
			if len(results) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(results))
			var all diag.Diagnostics
			for _, r := range results {
				status := "emitted"
				if !r.Emitted {
					status = "omitted"
				}
				rows = append(rows, []string{r.Variant, status, fmt.Sprint(r.Errors), fmt.Sprint(r.Warnings)})

				var ds diag.Diagnostics
				if err := json.Unmarshal([]byte(r.Diagnostics), &ds); err != nil {
					return fmt.Errorf("run %s variant %s: bad diagnostics record: %w", run.ID, r.Variant, err)
				}
				all = append(all, ds...)
			}
			fmt.Fprintln(out, renderTable([]string{"VARIANT", "STATUS", "ERRORS", "WARNINGS"}, rows))
			printDiagnostics(out, all)
			return nil
		},
	}
}

func newHistoryDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ctx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close(ctx)
			if env.store == nil {
				return errNoHistory
			}

			if err := env.store.DeleteRun(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
