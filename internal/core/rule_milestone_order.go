package core

import (
	"context"
	"fmt"
	"time"

	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

// MilestoneOrderRule warns when recorded actual milestones are out of
// chronological order. It never blocks: late data entry is common.
func MilestoneOrderRule() domain.Rule {
	return milestoneOrderRule{}
}

type milestoneOrderRule struct{}

func (milestoneOrderRule) Name() string { return "milestone_order" }

type namedDay struct {
	name string
	at   *time.Time
}

func (r milestoneOrderRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, plan := range changedPlans(changes) {
		a := plan.Actual
		sequence := []namedDay{
			{"cycle start", a.CycleStart},
			{"testing start", a.TestingStart},
			{"breeding", a.Breeding},
			{"birth", a.Birth},
			{"weaned", a.Weaned},
			{"placement start", a.PlacementStart},
			{"placement completed", a.PlacementCompleted},
			{"plan completed", a.PlanCompleted},
		}
		var prev *namedDay
		for i := range sequence {
			cur := &sequence[i]
			if cur.at == nil {
				continue
			}
			if prev != nil && dates.Day(*cur.at).Before(dates.Day(*prev.at)) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message: fmt.Sprintf("plan %s: %s (%s) precedes %s (%s)", plan.ID,
						cur.name, cur.at.Format(dates.DayLayout), prev.name, prev.at.Format(dates.DayLayout)),
					Entity:   domain.EntityPlan,
					EntityID: plan.ID,
				})
			}
			prev = cur
		}
	}
	return res, nil
}
