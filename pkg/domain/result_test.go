package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// planView serves a fixed set of plans to rules.
type planView map[string]BreedingPlan

func (v planView) ListPlans() []BreedingPlan {
	out := make([]BreedingPlan, 0, len(v))
	for _, p := range v {
		out = append(out, p)
	}
	return out
}

func (v planView) FindPlan(id string) (BreedingPlan, bool) {
	p, ok := v[id]
	return p, ok
}

// unlockedExpectationsRule blocks plans that carry expected dates without a lock.
type unlockedExpectationsRule struct{}

func (unlockedExpectationsRule) Name() string { return "unlocked_expectations" }

func (r unlockedExpectationsRule) Evaluate(_ context.Context, _ RuleView, changes []Change) (Result, error) {
	var res Result
	for _, c := range changes {
		plan, ok := c.After.(BreedingPlan)
		if !ok || plan.Locked() || plan.Expected.IsZero() {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Rule: r.Name(), Severity: SeverityBlock, Entity: EntityPlan, EntityID: plan.ID,
			Message: "expected dates without a locked cycle",
		})
	}
	return res, nil
}

// damLookupRule warns when a plan's dam is also dam of another plan in the view.
type damLookupRule struct{}

func (damLookupRule) Name() string { return "shared_dam" }

func (r damLookupRule) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	var res Result
	for _, c := range changes {
		plan, ok := c.After.(BreedingPlan)
		if !ok || plan.DamID == nil {
			continue
		}
		for _, other := range view.ListPlans() {
			if other.ID != plan.ID && other.DamID != nil && *other.DamID == *plan.DamID {
				res.Violations = append(res.Violations, Violation{
					Rule: r.Name(), Severity: SeverityWarn, Entity: EntityPlan, EntityID: plan.ID,
					Message: "dam already planned in " + other.ID,
				})
			}
		}
	}
	return res, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, errors.New("rule backend unavailable")
}

func TestRulesEngineBlocksExpectedDatesOnUnlockedPlan(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(unlockedExpectationsRule{})
	birth := time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC)
	limbo := BreedingPlan{Base: Base{ID: "p1"}, Expected: ExpectedDates{Birth: &birth}}

	res, err := engine.Evaluate(context.Background(), planView{}, []Change{{Entity: EntityPlan, Action: ActionUpdate, After: limbo}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected a blocking violation, got %+v", res)
	}
	verr := RuleViolationError{Result: res}
	if !strings.Contains(verr.Error(), "unlocked_expectations") {
		t.Fatalf("error should name the rule: %q", verr.Error())
	}

	locked := limbo.Clone()
	cycle := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	locked.LockedCycleStart = &cycle
	res, err = engine.Evaluate(context.Background(), planView{}, []Change{{Entity: EntityPlan, Action: ActionUpdate, After: locked}})
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("locked plan should pass, got %+v %v", res, err)
	}
}

func TestRulesEngineMergesWarningsAcrossRules(t *testing.T) {
	dam := "dam-1"
	existing := BreedingPlan{Base: Base{ID: "p1"}, DamID: &dam}
	incoming := BreedingPlan{Base: Base{ID: "p2"}, DamID: &dam}
	view := planView{"p1": existing, "p2": incoming}

	engine := NewRulesEngine()
	engine.Register(unlockedExpectationsRule{})
	engine.Register(damLookupRule{})
	res, err := engine.Evaluate(context.Background(), view, []Change{{Entity: EntityPlan, Action: ActionCreate, After: incoming}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.HasBlocking() || len(res.Violations) != 1 || res.Violations[0].Rule != "shared_dam" {
		t.Fatalf("expected a single shared-dam warning, got %+v", res.Violations)
	}

	var merged Result
	merged.Merge(Result{})
	merged.Merge(res)
	if len(merged.Violations) != 1 {
		t.Fatalf("merging an empty result should keep prior violations, got %+v", merged.Violations)
	}
}

func TestRulesEngineStopsOnRuleError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	engine.Register(damLookupRule{})
	if _, err := engine.Evaluate(context.Background(), planView{}, nil); err == nil {
		t.Fatalf("expected evaluation error")
	}
	if got := len(engine.Rules()); got != 2 {
		t.Fatalf("expected both rules registered, got %d", got)
	}
}
