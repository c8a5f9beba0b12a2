package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

func newLockCmd(opts *rootOptions) *cobra.Command {
	var history []string
	cmd := &cobra.Command{
		Use:   "lock <plan-id> [cycle-start]",
		Short: "Lock a plan's cycle start and persist its projected milestones",
		Long: "Lock a plan's cycle start. Without an explicit date the next candidate is\n" +
			"projected from the dam's recorded cycle starts given with --cycle.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID := args[0]
			var candidate *time.Time
			if len(args) == 2 {
				d, ok := dates.ParseDay(args[1])
				if !ok {
					return fmt.Errorf("invalid date %q", args[1])
				}
				candidate = &d
			}
			if candidate == nil && len(history) == 0 {
				return errors.New("a cycle start date or at least one --cycle is required")
			}
			return withApp(cmd, opts, func(a *app) error {
				ctx := cmd.Context()
				if _, err := a.locks.Refresh(ctx); err != nil {
					return err
				}
				if candidate == nil {
					plan, err := a.service.GetPlan(ctx, planID)
					if err != nil {
						return err
					}
					h := domain.ReproductiveHistory{Species: plan.Species}
					if plan.DamID != nil {
						h.FemaleID = *plan.DamID
					}
					for _, raw := range history {
						d, ok := dates.ParseDay(raw)
						if !ok {
							return fmt.Errorf("invalid cycle date %q", raw)
						}
						h.CycleStarts = append(h.CycleStarts, d)
					}
					candidate, err = a.locks.ProposeCandidate(ctx, planID, h)
					if err != nil {
						return err
					}
					if candidate == nil {
						return fmt.Errorf("no upcoming cycle candidate for plan %s", planID)
					}
				}
				tr, err := a.locks.Lock(ctx, planID, candidate)
				if err != nil {
					return err
				}
				green := color.New(color.FgGreen, color.Bold).SprintFunc()
				fmt.Fprintf(cmd.OutOrStdout(), "%s plan %s at %s\n", green("Locked"), planID, dates.Format(candidate))
				printExpected(cmd.OutOrStdout(), tr.Expected)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&history, "cycle", nil, "recorded cycle start of the dam (repeatable)")
	return cmd
}

func newUnlockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <plan-id>",
		Short: "Clear a plan's locked cycle start and projected milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctx := cmd.Context()
				if _, err := a.locks.Refresh(ctx); err != nil {
					return err
				}
				if _, err := a.locks.Unlock(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s plan %s\n", color.New(color.FgYellow, color.Bold).Sprint("Unlocked"), args[0])
				return nil
			})
		},
	}
}
