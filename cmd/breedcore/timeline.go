package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"breedcore/internal/core"
	"breedcore/internal/dates"
)

func newTimelineCmd(opts *rootOptions) *cobra.Command {
	var (
		plans  []string
		export string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Render the breeding timeline for the selected plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctx := cmd.Context()
				if ids := splitIDs(plans); len(ids) > 0 {
					a.timelines.Selection().Set(ids)
				}
				tl, err := a.timelines.Build(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(tl); err != nil {
						return err
					}
				} else {
					printTimeline(out, tl)
				}
				if export != "" {
					info, err := a.exporter.Export(ctx, export, tl)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s (%d bytes)\n", info.Key, info.Size)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&plans, "plan", nil, "plan ids to show, in display order (default all)")
	cmd.Flags().StringVar(&export, "export", "", "also store the timeline under this export name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the timeline as JSON")
	return cmd
}

func newExportsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exports",
		Short: "List exported timelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				names, err := a.exporter.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, core.ExportKey(name))
				}
				return nil
			})
		},
	}
}

func printTimeline(out io.Writer, tl core.Timeline) {
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(out, "%s %s .. %s\n", bold("Horizon"), dates.Format(&tl.Horizon.Start), dates.Format(&tl.Horizon.End))
	for _, id := range tl.Selected {
		fmt.Fprintf(out, "  %s %s\n", id, gray(fmt.Sprintf("%s %s", tl.Statuses[id], tl.Colors[id])))
	}
	for _, row := range tl.Rows {
		fmt.Fprintf(out, "%s\n", bold(row.Label))
		if len(row.Bars) == 0 {
			fmt.Fprintf(out, "  %s\n", gray("(empty)"))
			continue
		}
		for _, bar := range row.Bars {
			if bar.Point != nil {
				fmt.Fprintf(out, "  %-8s %-10s %s\n", bar.Kind, bar.PlanID, dates.Format(bar.Point))
				continue
			}
			fmt.Fprintf(out, "  %-8s %-10s %s .. %s\n", bar.Kind, bar.PlanID, dates.Format(bar.Start), dates.Format(bar.End))
		}
	}
}
