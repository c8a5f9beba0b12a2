package core

import (
	"fmt"
	"time"

	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

// DefaultHorizonMonths is the width of the fallback horizon when nothing is
// plotted: the current month plus the following seventeen.
const DefaultHorizonMonths = 18

// BarKind describes how the renderer should paint a bar.
type BarKind string

// Bar kinds, lowest z-order first.
const (
	BarUnlikely BarKind = "unlikely"
	BarRisky    BarKind = "risky"
	BarCenter   BarKind = "center"
	BarFill     BarKind = "fill"
	BarPoint    BarKind = "point"
)

// Z-order per bar kind. Higher values paint on top.
const (
	ZUnlikely = 1
	ZRisky    = 2
	ZFill     = 3
	ZPoint    = 4
)

// Color overrides for band bars. Fills and points carry no override and
// take the plan color.
const (
	UnlikelyColor = "#9ca3af"
	RiskyColor    = "#f59e0b"
)

// Palette is cycled to color active plans by their selection position.
var Palette = []string{
	"#2563eb",
	"#16a34a",
	"#dc2626",
	"#9333ea",
	"#0891b2",
	"#ea580c",
	"#db2777",
	"#65a30d",
	"#4f46e5",
	"#0d9488",
	"#b45309",
	"#475569",
}

// Bar is one renderable span or point on a row. Exactly one of the
// Start/End pair or Point is set.
type Bar struct {
	PlanID  string     `json:"plan_id"`
	Kind    BarKind    `json:"kind"`
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`
	Point   *time.Time `json:"point,omitempty"`
	Z       int        `json:"z"`
	Color   string     `json:"color,omitempty"`
	Group   string     `json:"group,omitempty"`
	Tooltip string     `json:"tooltip"`
	Min     time.Time  `json:"min"`
	Max     time.Time  `json:"max"`
}

// TimelineRow is a named track of bars.
type TimelineRow struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Bars  []Bar  `json:"bars"`
}

// Horizon bounds the visible timeline, both ends inclusive days.
type Horizon struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Timeline is everything the renderer receives. It is rebuilt from scratch on
// every input change.
type Timeline struct {
	Rows     []TimelineRow                     `json:"rows"`
	Horizon  Horizon                           `json:"horizon"`
	Colors   map[string]string                 `json:"colors"`
	Statuses map[string]domain.LifecycleStatus `json:"statuses"`
	Selected []string                          `json:"selected"`
	// OnSelectedChange is wired to the selection by the caller; the renderer
	// reports user selection through it and never mutates state directly.
	OnSelectedChange func([]string) `json:"-"`
}

// TimelineInput carries one computation pass worth of inputs.
type TimelineInput struct {
	Plans []domain.BreedingPlan
	// Selected is the ordered selection; plans outside it are ignored.
	Selected []string
	// Previews holds the forecaster bag per plan id. Missing entries fall
	// back to the plan's persisted expected fields.
	Previews    map[string]domain.PreviewBag
	Preferences ResolvedPreferences
	Now         time.Time
}

// BuildTimeline produces the rows, horizon and colors for the active plans.
func BuildTimeline(in TimelineInput) Timeline {
	b := newTimelineBuilder(in.Preferences)
	active := ActivePlans(in.Plans, in.Selected)
	colors := AssignColors(active)

	statuses := make(map[string]domain.LifecycleStatus, len(active))
	for _, plan := range active {
		status := DeriveStatus(plan)
		statuses[plan.ID] = status
		preview := MergePreview(in.Previews[plan.ID], PersistedPreview(plan))
		expected := ResolveExpectedDates(plan.LockedCycleStart, preview)
		b.addPlan(plan, status, expected)
	}

	selected := make([]string, 0, len(active))
	for _, plan := range active {
		selected = append(selected, plan.ID)
	}
	return Timeline{
		Rows:     b.rows(),
		Horizon:  b.horizon(in.Now),
		Colors:   colors,
		Statuses: statuses,
		Selected: selected,
	}
}

// ActivePlans returns the selected plans in selection order. Selected ids
// that no longer match a plan are skipped.
func ActivePlans(plans []domain.BreedingPlan, selected []string) []domain.BreedingPlan {
	byID := make(map[string]domain.BreedingPlan, len(plans))
	for _, plan := range plans {
		byID[plan.ID] = plan
	}
	out := make([]domain.BreedingPlan, 0, len(selected))
	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			continue
		}
		plan, ok := byID[id]
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, plan)
	}
	return out
}

// AssignColors gives each active plan the palette entry at its position.
func AssignColors(active []domain.BreedingPlan) map[string]string {
	colors := make(map[string]string, len(active))
	for i, plan := range active {
		colors[plan.ID] = Palette[i%len(Palette)]
	}
	return colors
}

// PhaseRowID and MilestoneRowID name the fixed tracks.
func PhaseRowID(p Phase) string { return "phase:" + string(p) }

// MilestoneRowID names the exact track of a milestone.
func MilestoneRowID(m domain.Milestone) string { return "exact:" + string(m) }

var milestoneLabels = map[domain.Milestone]string{
	domain.MilestoneCycle:              "Cycle start",
	domain.MilestoneTesting:            "Testing",
	domain.MilestoneBreeding:           "Breeding",
	domain.MilestoneBirth:              "Birth",
	domain.MilestoneWeaned:             "Weaned",
	domain.MilestonePlacementStart:     "Placement start",
	domain.MilestonePlacementCompleted: "Placement completed",
}

// MilestoneLabel returns the display name of a milestone.
func MilestoneLabel(m domain.Milestone) string {
	if label, ok := milestoneLabels[m]; ok {
		return label
	}
	return string(m)
}

type timelineBuilder struct {
	prefs    ResolvedPreferences
	order    []string
	labels   map[string]string
	bars     map[string][]Bar
	min, max time.Time
	plotted  bool
}

func newTimelineBuilder(prefs ResolvedPreferences) *timelineBuilder {
	b := &timelineBuilder{
		prefs:  prefs,
		labels: make(map[string]string),
		bars:   make(map[string][]Bar),
	}
	for _, p := range Phases {
		b.declare(PhaseRowID(p.Phase), p.Label)
	}
	for _, m := range domain.Milestones {
		b.declare(MilestoneRowID(m), MilestoneLabel(m)+" (exact)")
	}
	return b
}

func (b *timelineBuilder) declare(id, label string) {
	b.order = append(b.order, id)
	b.labels[id] = label
}

func (b *timelineBuilder) addPlan(plan domain.BreedingPlan, status domain.LifecycleStatus, expected domain.ExpectedDates) {
	name := planLabel(plan)
	for _, phase := range Phases {
		from, to := expected.Get(phase.From), expected.Get(phase.To)
		if from == nil || to == nil || to.Before(*from) {
			continue
		}
		b.addPhase(plan.ID, name, status, phase, *from, *to)
	}
	if plan.LockedCycleStart == nil {
		return
	}
	for _, m := range domain.Milestones {
		if v := expected.Get(m); v != nil {
			b.addExact(plan.ID, name, m, *v)
		}
	}
}

func (b *timelineBuilder) addPhase(planID, name string, status domain.LifecycleStatus, phase PhaseSpec, from, to time.Time) {
	row := PhaseRowID(phase.Phase)
	group := planID + ":" + string(phase.Phase)
	tip := fmt.Sprintf("%s [%s] · %s: %s – %s", name, status, phase.Label, from.Format(dates.DayLayout), to.Format(dates.DayLayout))

	if b.prefs.ShowPhaseBands {
		band := b.prefs.PhaseBands[phase.Phase]
		b.span(row, Bar{PlanID: planID, Kind: BarUnlikely, Z: ZUnlikely, Color: UnlikelyColor, Group: group, Tooltip: tip + " (unlikely)"},
			dates.AddDays(from, band.UnlikelyFrom), dates.AddDays(to, band.UnlikelyTo))
		b.span(row, Bar{PlanID: planID, Kind: BarRisky, Z: ZRisky, Color: RiskyColor, Group: group, Tooltip: tip + " (risky)"},
			dates.AddDays(from, band.RiskyFrom), dates.AddDays(from, band.RiskyTo))
		b.span(row, Bar{PlanID: planID, Kind: BarRisky, Z: ZRisky, Color: RiskyColor, Group: group, Tooltip: tip + " (risky)"},
			dates.AddDays(to, band.RiskyFrom), dates.AddDays(to, band.RiskyTo))
		centerStart, centerEnd := dates.AddDays(from, band.RiskyTo), dates.AddDays(to, band.RiskyFrom)
		if centerStart.Before(centerEnd) {
			b.span(row, Bar{PlanID: planID, Kind: BarCenter, Z: ZFill, Group: group, Tooltip: tip}, centerStart, centerEnd)
		}
	} else {
		b.span(row, Bar{PlanID: planID, Kind: BarFill, Z: ZFill, Group: group, Tooltip: tip}, from, to)
	}
	b.point(row, Bar{PlanID: planID, Kind: BarPoint, Z: ZPoint, Group: group, Tooltip: fmt.Sprintf("%s · %s %s", name, MilestoneLabel(phase.From), from.Format(dates.DayLayout))}, from)
	b.point(row, Bar{PlanID: planID, Kind: BarPoint, Z: ZPoint, Group: group, Tooltip: fmt.Sprintf("%s · %s %s", name, MilestoneLabel(phase.To), to.Format(dates.DayLayout))}, to)
}

func (b *timelineBuilder) addExact(planID, name string, m domain.Milestone, at time.Time) {
	row := MilestoneRowID(m)
	group := planID + ":" + string(m)
	tip := fmt.Sprintf("%s · %s %s", name, MilestoneLabel(m), at.Format(dates.DayLayout))
	if b.prefs.ShowExactBands {
		band := b.prefs.MilestoneBands[m]
		if !band.IsZero() {
			b.span(row, Bar{PlanID: planID, Kind: BarUnlikely, Z: ZUnlikely, Color: UnlikelyColor, Group: group, Tooltip: tip + " (unlikely)"},
				dates.AddDays(at, band.UnlikelyFrom), dates.AddDays(at, band.UnlikelyTo))
			b.span(row, Bar{PlanID: planID, Kind: BarRisky, Z: ZRisky, Color: RiskyColor, Group: group, Tooltip: tip + " (risky)"},
				dates.AddDays(at, band.RiskyFrom), dates.AddDays(at, band.RiskyTo))
		}
	}
	b.point(row, Bar{PlanID: planID, Kind: BarPoint, Z: ZPoint, Group: group, Tooltip: tip}, at)
}

func (b *timelineBuilder) span(row string, bar Bar, start, end time.Time) {
	bar.Start = dates.Ptr(start)
	bar.End = dates.Ptr(end)
	bar.Min, bar.Max = dates.Min(start, end), dates.Max(start, end)
	b.push(row, bar)
}

func (b *timelineBuilder) point(row string, bar Bar, at time.Time) {
	bar.Point = dates.Ptr(at)
	bar.Min, bar.Max = dates.Day(at), dates.Day(at)
	b.push(row, bar)
}

func (b *timelineBuilder) push(row string, bar Bar) {
	if !b.plotted || bar.Min.Before(b.min) {
		b.min = bar.Min
	}
	if !b.plotted || bar.Max.After(b.max) {
		b.max = bar.Max
	}
	b.plotted = true
	b.bars[row] = append(b.bars[row], bar)
}

func (b *timelineBuilder) rows() []TimelineRow {
	out := make([]TimelineRow, 0, len(b.order))
	for _, id := range b.order {
		bars := b.bars[id]
		if bars == nil {
			bars = []Bar{}
		}
		out = append(out, TimelineRow{ID: id, Label: b.labels[id], Bars: bars})
	}
	return out
}

func (b *timelineBuilder) horizon(now time.Time) Horizon {
	if !b.plotted {
		return DefaultHorizon(now)
	}
	return Horizon{Start: dates.StartOfMonth(b.min), End: dates.EndOfMonth(b.max)}
}

// DefaultHorizon is the window shown when no plan has a plotted date.
func DefaultHorizon(now time.Time) Horizon {
	start := dates.StartOfMonth(now)
	return Horizon{Start: start, End: dates.EndOfMonth(dates.AddMonths(start, DefaultHorizonMonths-1))}
}

func planLabel(plan domain.BreedingPlan) string {
	if plan.Name != "" {
		return plan.Name
	}
	return plan.ID
}
