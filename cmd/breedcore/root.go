package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"breedcore/internal/core"
	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "breedcore",
		Short:         "Plan breeding cycles and project their milestones",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default breedcore.yaml in . or ./config)")

	root.AddCommand(
		newPlansCmd(opts),
		newCreateCmd(opts),
		newCancelCmd(opts),
		newDeleteCmd(opts),
		newActualCmd(opts),
		newEventsCmd(opts),
		newLockCmd(opts),
		newUnlockCmd(opts),
		newTimelineCmd(opts),
		newExportsCmd(opts),
		newSpeciesCmd(opts),
	)
	return root
}

// withApp opens the wired application for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(cmd.Context(), opts.configFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func statusColor(s domain.LifecycleStatus) func(a ...any) string {
	switch s {
	case domain.StatusCanceled:
		return color.New(color.FgRed).SprintFunc()
	case domain.StatusComplete:
		return color.New(color.FgHiBlack).SprintFunc()
	case domain.StatusPlanning:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}

func newPlansCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List breeding plans with their derived status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				plans, err := a.service.ListPlans(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(plans) == 0 {
					fmt.Fprintln(out, color.New(color.FgHiBlack).Sprint("No breeding plans"))
					return nil
				}
				for _, p := range plans {
					status := core.DeriveStatus(p)
					locked := "-"
					if p.LockedCycleStart != nil {
						locked = dates.Format(p.LockedCycleStart)
					}
					fmt.Fprintf(out, "%-36s  %-20s  %-6s  %-16s  %s\n", p.ID, p.Name, p.Species, statusColor(status)(status), locked)
				}
				return nil
			})
		},
	}
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var plan domain.BreedingPlan
	var dam, sire string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a breeding plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dam != "" {
				plan.DamID = &dam
			}
			if sire != "" {
				plan.SireID = &sire
			}
			return withApp(cmd, opts, func(a *app) error {
				created, res, err := a.service.CreatePlan(cmd.Context(), plan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created plan %s (%s)\n", created.ID, core.DeriveStatus(created))
				printViolations(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&plan.ID, "id", "", "plan id (generated when empty)")
	cmd.Flags().StringVar(&plan.Name, "name", "", "plan name")
	cmd.Flags().StringVar(&plan.Species, "species", "", "species, e.g. DOG")
	cmd.Flags().StringVar(&dam, "dam", "", "dam id")
	cmd.Flags().StringVar(&sire, "sire", "", "sire id")
	cmd.Flags().StringVar(&plan.Notes, "notes", "", "free-form notes")
	return cmd
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <plan-id>",
		Short: "Mark a plan canceled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				plan, res, err := a.service.CancelPlan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Plan %s is %s\n", plan.ID, core.DeriveStatus(plan))
				printViolations(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a plan and its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				if _, err := a.service.DeletePlan(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan %s\n", args[0])
				return nil
			})
		},
	}
}

// actualSetters maps the milestone names accepted by the actual command.
var actualSetters = map[string]func(*domain.ActualDates, *time.Time){
	"cycle":              func(a *domain.ActualDates, d *time.Time) { a.CycleStart = d },
	"testing":            func(a *domain.ActualDates, d *time.Time) { a.TestingStart = d },
	"breeding":           func(a *domain.ActualDates, d *time.Time) { a.Breeding = d },
	"birth":              func(a *domain.ActualDates, d *time.Time) { a.Birth = d },
	"weaned":             func(a *domain.ActualDates, d *time.Time) { a.Weaned = d },
	"placementStart":     func(a *domain.ActualDates, d *time.Time) { a.PlacementStart = d },
	"placementCompleted": func(a *domain.ActualDates, d *time.Time) { a.PlacementCompleted = d },
	"completed":          func(a *domain.ActualDates, d *time.Time) { a.PlanCompleted = d },
}

func newActualCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "actual <plan-id> <milestone> [date]",
		Short: "Record or clear the actual date of a milestone",
		Long: "Record the real-world date of a milestone. Omitting the date clears it.\n" +
			"Milestones: cycle, testing, breeding, birth, weaned, placementStart, placementCompleted, completed.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := actualSetters[args[1]]
			if !ok {
				return fmt.Errorf("unknown milestone %q", args[1])
			}
			var at *time.Time
			if len(args) == 3 {
				d, ok := dates.ParseDay(args[2])
				if !ok {
					return fmt.Errorf("invalid date %q", args[2])
				}
				at = &d
			}
			return withApp(cmd, opts, func(a *app) error {
				plan, res, err := a.service.UpdatePlanDetails(cmd.Context(), args[0], func(p *domain.BreedingPlan) error {
					set(&p.Actual, at)
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Plan %s is %s\n", plan.ID, core.DeriveStatus(plan))
				printViolations(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events <plan-id>",
		Short: "Show a plan's audit events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				events, err := a.service.ListEvents(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				gray := color.New(color.FgHiBlack).SprintFunc()
				for _, e := range events {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-15s  %s\n", gray(e.OccurredAt.Format(time.RFC3339)), e.Type, e.Label)
				}
				return nil
			})
		},
	}
}

func newSpeciesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "species",
		Short: "List the species known to the forecaster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				for _, name := range a.forecaster.Species() {
					p, _ := a.forecaster.Profile(name)
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s cycle every %d days, gestation %d days\n", name, p.CycleIntervalDays, p.GestationDays)
				}
				return nil
			})
		},
	}
}

func printViolations(out io.Writer, res core.Result) {
	yellow := color.New(color.FgYellow).SprintFunc()
	for _, v := range res.Violations {
		fmt.Fprintf(out, "%s %s\n", yellow("warning:"), v.Message)
	}
}

func printExpected(out io.Writer, expected domain.ExpectedDates) {
	cyan := color.New(color.FgCyan).SprintFunc()
	for _, m := range domain.Milestones {
		if v := expected.Get(m); v != nil {
			fmt.Fprintf(out, "  %-22s %s\n", core.MilestoneLabel(m), cyan(dates.Format(v)))
		}
	}
}

func splitIDs(values []string) []string {
	var out []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
