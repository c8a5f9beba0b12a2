package core

import (
	"testing"
	"time"

	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dates.DayLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func dayPtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d := day(t, s)
	return &d
}

func strPtr(s string) *string { return &s }

func assertDay(t *testing.T, label string, got *time.Time, want string) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Fatalf("%s: expected absent, got %s", label, got.Format(dates.DayLayout))
		}
		return
	}
	if got == nil {
		t.Fatalf("%s: expected %s, got absent", label, want)
	}
	if s := got.Format(dates.DayLayout); s != want {
		t.Fatalf("%s: expected %s, got %s", label, want, s)
	}
}

func assertSameExpected(t *testing.T, got, want domain.ExpectedDates) {
	t.Helper()
	for _, m := range domain.Milestones {
		if !dates.Equal(got.Get(m), want.Get(m)) {
			t.Fatalf("%s: expected %s, got %s", m, dates.Format(want.Get(m)), dates.Format(got.Get(m)))
		}
	}
}

func committedPlan(id string) domain.BreedingPlan {
	return domain.BreedingPlan{
		Base:    domain.Base{ID: id},
		Name:    "Plan " + id,
		Species: "DOG",
		DamID:   strPtr("dam-" + id),
		SireID:  strPtr("sire-" + id),
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
