package core

import (
	"breedcore/pkg/domain"
)

type (
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Result aliases domain.Result.
	Result = domain.Result
	// Change aliases domain.Change.
	Change = domain.Change
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in plan policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LockConsistencyRule())
	engine.Register(CanceledPlanLockRule())
	engine.Register(MilestoneOrderRule())
	return engine
}

func changedPlans(changes []domain.Change) []domain.BreedingPlan {
	var out []domain.BreedingPlan
	for _, change := range changes {
		if change.Entity != domain.EntityPlan || change.Action == domain.ActionDelete {
			continue
		}
		if plan, ok := change.After.(domain.BreedingPlan); ok {
			out = append(out, plan)
		}
	}
	return out
}
