package core

import (
	"sort"
	"time"

	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

// NextCandidate picks the cycle start a user would most likely lock: the
// pending date when the forecaster reports one, otherwise the earliest
// candidate on or after today. It returns nil when nothing qualifies.
func NextCandidate(projection domain.CycleProjection, today time.Time) *time.Time {
	if projection.Pending != nil && !projection.Pending.IsZero() {
		return dates.Ptr(*projection.Pending)
	}
	today = dates.Day(today)
	candidates := make([]time.Time, 0, len(projection.Candidates))
	for _, c := range projection.Candidates {
		if c.IsZero() {
			continue
		}
		candidates = append(candidates, dates.Day(c))
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
	for _, c := range candidates {
		if !c.Before(today) {
			return dates.Ptr(c)
		}
	}
	return nil
}
