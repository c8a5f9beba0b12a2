package core

import (
	"time"

	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

// Offsets owned by the resolver. Everything else comes from the forecaster.
const (
	TestingFallbackDays      = 7
	PlacementStartAfterBirth = 56
	PlacementCompletedWindow = 21
)

// Canonical preview keys. A plan's persisted expected fields are folded into
// the preview bag under these names, so they sit last in every alias list
// and act as the fallback when the forecaster is silent.
const (
	KeyExpectedCycleStart         = "expectedCycleStart"
	KeyExpectedTestingStart       = "expectedHormoneTestingStart"
	KeyExpectedBreedDate          = "expectedBreedDate"
	KeyExpectedBirthDate          = "expectedBirthDate"
	KeyExpectedWeaned             = "expectedWeaned"
	KeyExpectedPlacementStart     = "expectedPlacementStart"
	KeyExpectedPlacementCompleted = "expectedPlacementCompleted"
)

// previewAliases lists, per milestone, the keys a forecaster has historically
// used for the same concept. Lookup is left to right; first parseable wins.
var previewAliases = map[domain.Milestone][]string{
	domain.MilestoneTesting: {
		"hormoneTestingFullStart",
		"testingFullStart",
		"hormoneTestingExpected",
		"testingExpected",
		"hormoneTestingStart",
		"testingStart",
		KeyExpectedTestingStart,
	},
	domain.MilestoneBreeding: {
		"ovulationExpected",
		"ovulation",
		"breedingExpected",
		"breedDate",
		"breeding",
		KeyExpectedBreedDate,
	},
	domain.MilestoneBirth: {
		"whelpingExpected",
		"birthExpected",
		"dueDate",
		"due",
		"birth",
		KeyExpectedBirthDate,
	},
	domain.MilestoneWeaned: {
		"weanedExpected",
		"weaningExpected",
		"weaned",
		"weaning",
		KeyExpectedWeaned,
	},
	domain.MilestonePlacementStart: {
		"placementStartExpected",
		"goHomeExpected",
		"placementStart",
		"goHome",
		KeyExpectedPlacementStart,
	},
	domain.MilestonePlacementCompleted: {
		"placementCompletedExpected",
		"goHomeExtendedEnd",
		"placementCompleted",
		"placementEnd",
		KeyExpectedPlacementCompleted,
	},
}

// PreviewAliases returns the ordered alias keys consulted for a milestone.
func PreviewAliases(m domain.Milestone) []string {
	keys := previewAliases[m]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// ResolveExpectedDates resolves one canonical value per milestone from a
// locked cycle start and an alias-keyed preview bag. Without a lock every
// field is absent. Unparseable values are treated as absent.
func ResolveExpectedDates(lockedCycleStart *time.Time, preview domain.PreviewBag) domain.ExpectedDates {
	var out domain.ExpectedDates
	if lockedCycleStart == nil || lockedCycleStart.IsZero() {
		return out
	}
	cycle := dates.Day(*lockedCycleStart)
	out.Cycle = &cycle

	for _, m := range domain.Milestones[1:] {
		out.Set(m, lookup(preview, previewAliases[m]))
	}
	if out.Testing == nil {
		out.Testing = dates.Ptr(dates.AddDays(cycle, TestingFallbackDays))
	}
	if out.PlacementStart == nil && out.Birth != nil {
		out.PlacementStart = dates.Ptr(dates.AddDays(*out.Birth, PlacementStartAfterBirth))
	}
	if out.PlacementCompleted == nil && out.PlacementStart != nil {
		out.PlacementCompleted = dates.Ptr(dates.AddDays(*out.PlacementStart, PlacementCompletedWindow))
	}
	return out
}

func lookup(bag domain.PreviewBag, keys []string) *time.Time {
	for _, key := range keys {
		if v, ok := bag[key]; ok {
			if t, ok := dates.ParseDay(v); ok {
				return &t
			}
		}
	}
	return nil
}

// PersistedPreview exposes a plan's stored expected fields under the
// canonical keys so they can be merged beneath a forecaster preview.
func PersistedPreview(plan domain.BreedingPlan) domain.PreviewBag {
	bag := domain.PreviewBag{}
	put := func(key string, v *time.Time) {
		if v != nil {
			bag[key] = *v
		}
	}
	put(KeyExpectedCycleStart, plan.Expected.Cycle)
	put(KeyExpectedTestingStart, plan.Expected.Testing)
	put(KeyExpectedBreedDate, plan.Expected.Breeding)
	put(KeyExpectedBirthDate, plan.Expected.Birth)
	put(KeyExpectedWeaned, plan.Expected.Weaned)
	put(KeyExpectedPlacementStart, plan.Expected.PlacementStart)
	put(KeyExpectedPlacementCompleted, plan.Expected.PlacementCompleted)
	return bag
}

// MergePreview overlays the forecaster bag on top of the persisted bag.
// Keys present in primary win; absent keys fall back to secondary.
func MergePreview(primary, secondary domain.PreviewBag) domain.PreviewBag {
	out := make(domain.PreviewBag, len(primary)+len(secondary))
	for k, v := range secondary {
		out[k] = v
	}
	for k, v := range primary {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// LockPatch builds the persisted write-back for a lock: the locked date,
// its three anchor mirrors, and the canonical expected fields.
func LockPatch(lockedCycleStart time.Time, expected domain.ExpectedDates) domain.PlanPatch {
	return domain.PlanPatch{
		LockedCycleStart: dates.Ptr(lockedCycleStart),
		Anchors: domain.LockedAnchors{
			Ovulation:      cloneDay(expected.Breeding),
			Due:            cloneDay(expected.Birth),
			PlacementStart: cloneDay(expected.PlacementStart),
		},
		Expected: expected.Clone(),
	}
}

func cloneDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return dates.Ptr(*t)
}
