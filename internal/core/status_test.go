package core

import (
	"testing"
	"time"

	"breedcore/pkg/domain"
)

func TestDeriveStatusPlanningUntilCommitted(t *testing.T) {
	plan := committedPlan("p1")
	if got := DeriveStatus(plan); got != domain.StatusPlanning {
		t.Fatalf("unlocked plan should be PLANNING, got %s", got)
	}
	plan.LockedCycleStart = dayPtr(t, "2026-03-01")
	if got := DeriveStatus(plan); got != domain.StatusCommitted {
		t.Fatalf("locked complete plan should be COMMITTED, got %s", got)
	}

	missing := []func(*domain.BreedingPlan){
		func(p *domain.BreedingPlan) { p.Name = "  " },
		func(p *domain.BreedingPlan) { p.Species = "" },
		func(p *domain.BreedingPlan) { p.DamID = nil },
		func(p *domain.BreedingPlan) { p.SireID = strPtr("") },
	}
	for i, strip := range missing {
		p := plan.Clone()
		strip(&p)
		if got := DeriveStatus(p); got != domain.StatusPlanning {
			t.Fatalf("case %d: incomplete plan should be PLANNING, got %s", i, got)
		}
	}
}

func TestDeriveStatusMonotonicInActuals(t *testing.T) {
	plan := committedPlan("p1")
	plan.LockedCycleStart = dayPtr(t, "2026-03-01")

	steps := []struct {
		set  func(a *domain.ActualDates, d *time.Time)
		want domain.LifecycleStatus
	}{
		{func(a *domain.ActualDates, d *time.Time) { a.CycleStart = d }, domain.StatusCommitted},
		{func(a *domain.ActualDates, d *time.Time) { a.TestingStart = d }, domain.StatusCommitted},
		{func(a *domain.ActualDates, d *time.Time) { a.Breeding = d }, domain.StatusBred},
		{func(a *domain.ActualDates, d *time.Time) { a.Birth = d }, domain.StatusBirthed},
		{func(a *domain.ActualDates, d *time.Time) { a.Weaned = d }, domain.StatusWeaned},
		{func(a *domain.ActualDates, d *time.Time) { a.PlacementStart = d }, domain.StatusHomingStarted},
		{func(a *domain.ActualDates, d *time.Time) { a.PlacementCompleted = d }, domain.StatusHomingStarted},
		{func(a *domain.ActualDates, d *time.Time) { a.PlanCompleted = d }, domain.StatusComplete},
	}
	prev := DeriveStatus(plan).Rank()
	for i, step := range steps {
		step.set(&plan.Actual, dayPtr(t, "2026-04-01"))
		got := DeriveStatus(plan)
		if got != step.want {
			t.Fatalf("step %d: expected %s, got %s", i, step.want, got)
		}
		if got.Rank() < prev {
			t.Fatalf("step %d: status regressed from rank %d to %s", i, prev, got)
		}
		prev = got.Rank()
	}
}

func TestDeriveStatusActualsOverrideMissingCommitment(t *testing.T) {
	plan := domain.BreedingPlan{Base: domain.Base{ID: "p1"}}
	plan.Actual.Birth = dayPtr(t, "2026-05-01")
	if got := DeriveStatus(plan); got != domain.StatusBirthed {
		t.Fatalf("recorded birth should force BIRTHED, got %s", got)
	}
	plan.Actual = domain.ActualDates{PlacementCompleted: dayPtr(t, "2026-07-01")}
	if got := DeriveStatus(plan); got != domain.StatusHomingStarted {
		t.Fatalf("placement completed alone should be HOMING_STARTED, got %s", got)
	}
}

func TestDeriveStatusCancelDominates(t *testing.T) {
	plan := committedPlan("p1")
	plan.LockedCycleStart = dayPtr(t, "2026-03-01")
	plan.Actual.PlanCompleted = dayPtr(t, "2026-09-01")
	canceled := domain.LifecycleStatus("canceled")
	plan.Status = &canceled
	if got := DeriveStatus(plan); got != domain.StatusCanceled {
		t.Fatalf("cancel override should win, got %s", got)
	}

	other := domain.StatusBred
	plan.Status = &other
	if got := DeriveStatus(plan); got != domain.StatusComplete {
		t.Fatalf("non-cancel stored status must be ignored, got %s", got)
	}
}
