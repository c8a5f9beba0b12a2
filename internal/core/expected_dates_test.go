package core

import (
	"testing"

	"breedcore/pkg/domain"
)

func TestResolveExpectedDatesWithoutLockIsEmpty(t *testing.T) {
	got := ResolveExpectedDates(nil, domain.PreviewBag{"dueDate": "2026-05-01"})
	if !got.IsZero() {
		t.Fatalf("unlocked resolution should be empty, got %+v", got)
	}
}

func TestResolveExpectedDatesTestingFallback(t *testing.T) {
	got := ResolveExpectedDates(dayPtr(t, "2026-03-01"), domain.PreviewBag{})
	assertDay(t, "cycle", got.Cycle, "2026-03-01")
	assertDay(t, "testing", got.Testing, "2026-03-08")
	assertDay(t, "breeding", got.Breeding, "")
	assertDay(t, "birth", got.Birth, "")
	assertDay(t, "placement start", got.PlacementStart, "")
	assertDay(t, "placement completed", got.PlacementCompleted, "")
}

func TestResolveExpectedDatesPlacementSynthesis(t *testing.T) {
	got := ResolveExpectedDates(dayPtr(t, "2024-10-20"), domain.PreviewBag{"birth": "2025-01-01"})
	assertDay(t, "birth", got.Birth, "2025-01-01")
	assertDay(t, "placement start", got.PlacementStart, "2025-02-26")
	assertDay(t, "placement completed", got.PlacementCompleted, "2025-03-19")

	withStart := ResolveExpectedDates(dayPtr(t, "2024-10-20"), domain.PreviewBag{
		"birth":          "2025-01-01",
		"placementStart": "2025-03-01",
	})
	assertDay(t, "forecast placement start", withStart.PlacementStart, "2025-03-01")
	assertDay(t, "completed from forecast start", withStart.PlacementCompleted, "2025-03-22")
}

func TestResolveExpectedDatesAliasPriority(t *testing.T) {
	got := ResolveExpectedDates(dayPtr(t, "2026-03-01"), domain.PreviewBag{
		"hormoneTestingFullStart": "not a date",
		"testingStart":            "2026-03-05",
		"ovulation":               "2026-03-10",
		"ovulationExpected":       "2026-03-12T08:30:00Z",
		"due":                     day(t, "2026-05-20"),
		"whelpingExpected":        nil,
		"weaning":                 dayPtr(t, "2026-07-01"),
	})
	assertDay(t, "testing", got.Testing, "2026-03-05")
	assertDay(t, "breeding", got.Breeding, "2026-03-12")
	assertDay(t, "birth", got.Birth, "2026-05-20")
	assertDay(t, "weaned", got.Weaned, "2026-07-01")
}

func TestLockPatchRoundTrip(t *testing.T) {
	lock := day(t, "2026-03-01")
	expected := ResolveExpectedDates(&lock, domain.PreviewBag{
		"ovulation": "2026-03-12",
		"dueDate":   "2026-05-14",
		"weaning":   "2026-07-01",
	})

	var plan domain.BreedingPlan
	LockPatch(lock, expected).Apply(&plan)
	assertDay(t, "ovulation anchor", plan.Anchors.Ovulation, "2026-03-12")
	assertDay(t, "due anchor", plan.Anchors.Due, "2026-05-14")
	assertDay(t, "placement anchor", plan.Anchors.PlacementStart, "2026-07-09")

	again := ResolveExpectedDates(plan.LockedCycleStart, PersistedPreview(plan))
	assertSameExpected(t, again, expected)
}

func TestMergePreviewPrimaryWins(t *testing.T) {
	merged := MergePreview(
		domain.PreviewBag{"a": "primary", "b": nil},
		domain.PreviewBag{"a": "secondary", "b": "kept", "c": "only"},
	)
	if merged["a"] != "primary" || merged["b"] != "kept" || merged["c"] != "only" {
		t.Fatalf("unexpected merge %+v", merged)
	}
}

func TestPreviewAliasesEndWithCanonicalKey(t *testing.T) {
	for _, m := range domain.Milestones[1:] {
		keys := PreviewAliases(m)
		if len(keys) == 0 {
			t.Fatalf("%s has no aliases", m)
		}
		keys[0] = "mutated"
		if PreviewAliases(m)[0] == "mutated" {
			t.Fatalf("PreviewAliases must return a copy")
		}
	}
	if got := PreviewAliases(domain.MilestoneBirth); got[len(got)-1] != KeyExpectedBirthDate {
		t.Fatalf("persisted key should be the last alias, got %v", got)
	}
}
