package core

import (
	"strings"

	"breedcore/pkg/domain"
)

// DeriveStatus maps a plan's recorded milestones to its lifecycle status.
// Rules are evaluated top-down and the first match wins; an explicit CANCELED
// override beats everything, and any recorded actual milestone forces the
// status to at least that stage regardless of what was declared.
func DeriveStatus(plan domain.BreedingPlan) domain.LifecycleStatus {
	if plan.Status != nil && strings.EqualFold(string(*plan.Status), string(domain.StatusCanceled)) {
		return domain.StatusCanceled
	}
	a := plan.Actual
	switch {
	case a.PlanCompleted != nil:
		return domain.StatusComplete
	case a.PlacementCompleted != nil, a.PlacementStart != nil:
		return domain.StatusHomingStarted
	case a.Weaned != nil:
		return domain.StatusWeaned
	case a.Birth != nil:
		return domain.StatusBirthed
	case a.Breeding != nil:
		return domain.StatusBred
	case committed(plan):
		return domain.StatusCommitted
	default:
		return domain.StatusPlanning
	}
}

func committed(plan domain.BreedingPlan) bool {
	return strings.TrimSpace(plan.Name) != "" &&
		strings.TrimSpace(plan.Species) != "" &&
		nonEmpty(plan.DamID) &&
		nonEmpty(plan.SireID) &&
		plan.LockedCycleStart != nil
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
