package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildplan/buildplan/pkg/catalog"
)

type pluginView struct {
	ID          string               `json:"id"`
	Aliases     []string             `json:"aliases,omitempty"`
	Description string               `json:"description,omitempty"`
	Defaults    map[string]any       `json:"defaults,omitempty"`
	Constraints []catalog.Constraint `json:"constraints,omitempty"`
}

func viewOf(p catalog.PluginDefault) pluginView {
	v := pluginView{ID: p.ID, Aliases: p.Aliases, Description: p.Description, Constraints: p.Constraints}
	if len(p.Defaults) > 0 {
		v.Defaults = make(map[string]any, len(p.Defaults))
		for k, d := range p.Defaults {
			v.Defaults[k] = d.Interface()
		}
	}
	return v
}

func newPluginsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins [id]",
		Short: "List the plugin catalog or show one plugin's defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ctx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				p, err := env.registry.Lookup(args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(out, viewOf(p))
				}

				fmt.Fprintf(out, "%s\n", headerStyle.Render(p.ID))
				if p.Description != "" {
					fmt.Fprintf(out, "  %s\n", p.Description)
				}
				if len(p.Aliases) > 0 {
					fmt.Fprintf(out, "  aliases: %s\n", strings.Join(p.Aliases, ", "))
				}
				rows := make([][]string, 0, len(p.Defaults))
				for _, k := range p.Keys() {
					rows = append(rows, []string{k, p.Defaults[k].String()})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable([]string{"KEY", "DEFAULT"}, rows))
				}
				for _, c := range p.Constraints {
					fmt.Fprintf(out, "  %s %s: %s\n", severityLabel(c.EffectiveSeverity()), c.Expr, c.Message)
				}
				return nil
			}

			ids := env.registry.IDs()
			if opts.jsonOutput {
				views := make([]pluginView, 0, len(ids))
				for _, id := range ids {
					p, err := env.registry.Lookup(id)
					if err != nil {
						return err
					}
					views = append(views, viewOf(p))
				}
				return writeJSON(out, views)
			}

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				p, err := env.registry.Lookup(id)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					p.ID,
					strings.Join(p.Aliases, ", "),
					fmt.Sprint(len(p.Defaults)),
					fmt.Sprint(len(p.Constraints)),
					p.Description,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "ALIASES", "DEFAULTS", "CONSTRAINTS", "DESCRIPTION"}, rows))
			return nil
		},
	}
}
