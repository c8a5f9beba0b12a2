package core

import (
	"context"
	"fmt"

	"breedcore/pkg/domain"
)

// LockConsistencyRule blocks any write that leaves expected dates or locked
// anchors on a plan without a locked cycle start.
func LockConsistencyRule() domain.Rule {
	return lockConsistencyRule{}
}

type lockConsistencyRule struct{}

func (lockConsistencyRule) Name() string { return "lock_consistency" }

func (r lockConsistencyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, plan := range changedPlans(changes) {
		if plan.Locked() {
			continue
		}
		if !plan.Expected.IsZero() || !plan.Anchors.IsZero() {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("plan %s has projected dates without a locked cycle start", plan.ID),
				Entity:   domain.EntityPlan,
				EntityID: plan.ID,
			})
		}
	}
	return res, nil
}

// CanceledPlanLockRule blocks locking a plan that carries the CANCELED override.
func CanceledPlanLockRule() domain.Rule {
	return canceledPlanLockRule{}
}

type canceledPlanLockRule struct{}

func (canceledPlanLockRule) Name() string { return "canceled_plan_lock" }

func (r canceledPlanLockRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityPlan || change.Action == domain.ActionDelete {
			continue
		}
		after, ok := change.After.(domain.BreedingPlan)
		if !ok || !after.Locked() || DeriveStatus(after) != domain.StatusCanceled {
			continue
		}
		if before, ok := change.Before.(domain.BreedingPlan); ok && before.Locked() &&
			before.LockedCycleStart.Equal(*after.LockedCycleStart) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("plan %s is canceled and cannot be locked", after.ID),
			Entity:   domain.EntityPlan,
			EntityID: after.ID,
		})
	}
	return res, nil
}
