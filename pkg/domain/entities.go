// Package domain defines the persistent breeding-plan records, value types,
// and rule evaluation primitives used by breedcore.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPlan identifies a breeding plan record.
	EntityPlan EntityType = "breeding_plan"
	// EntityPlanEvent identifies an audit event appended to a plan.
	EntityPlanEvent EntityType = "plan_event"
)

// LifecycleStatus is the derived lifecycle state of a breeding plan.
type LifecycleStatus string

// Lifecycle states in the order a plan normally moves through them.
const (
	StatusPlanning      LifecycleStatus = "PLANNING"
	StatusCommitted     LifecycleStatus = "COMMITTED"
	StatusBred          LifecycleStatus = "BRED"
	StatusBirthed       LifecycleStatus = "BIRTHED"
	StatusWeaned        LifecycleStatus = "WEANED"
	StatusHomingStarted LifecycleStatus = "HOMING_STARTED"
	StatusComplete      LifecycleStatus = "COMPLETE"
	// StatusCanceled is the only status that may be stored as an explicit override.
	StatusCanceled LifecycleStatus = "CANCELED"
)

// Terminal reports whether no further lifecycle movement is expected.
func (s LifecycleStatus) Terminal() bool {
	return s == StatusComplete || s == StatusCanceled
}

// Rank orders non-canceled statuses; CANCELED and unknown values rank -1.
func (s LifecycleStatus) Rank() int {
	switch s {
	case StatusPlanning:
		return 0
	case StatusCommitted:
		return 1
	case StatusBred:
		return 2
	case StatusBirthed:
		return 3
	case StatusWeaned:
		return 4
	case StatusHomingStarted:
		return 5
	case StatusComplete:
		return 6
	default:
		return -1
	}
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpectedDates holds one resolved value per milestone. All fields are nil
// unless the owning plan has a locked cycle start.
type ExpectedDates struct {
	Cycle              *time.Time `json:"cycle"`
	Testing            *time.Time `json:"testing"`
	Breeding           *time.Time `json:"breeding"`
	Birth              *time.Time `json:"birth"`
	Weaned             *time.Time `json:"weaned"`
	PlacementStart     *time.Time `json:"placement_start"`
	PlacementCompleted *time.Time `json:"placement_completed"`
}

// IsZero reports whether every milestone is absent.
func (e ExpectedDates) IsZero() bool {
	for _, v := range e.Values() {
		if v != nil {
			return false
		}
	}
	return true
}

// Values lists the milestones in Milestones order.
func (e ExpectedDates) Values() []*time.Time {
	return []*time.Time{e.Cycle, e.Testing, e.Breeding, e.Birth, e.Weaned, e.PlacementStart, e.PlacementCompleted}
}

// Get returns the value for a milestone.
func (e ExpectedDates) Get(m Milestone) *time.Time {
	switch m {
	case MilestoneCycle:
		return e.Cycle
	case MilestoneTesting:
		return e.Testing
	case MilestoneBreeding:
		return e.Breeding
	case MilestoneBirth:
		return e.Birth
	case MilestoneWeaned:
		return e.Weaned
	case MilestonePlacementStart:
		return e.PlacementStart
	case MilestonePlacementCompleted:
		return e.PlacementCompleted
	}
	return nil
}

// Set assigns the value for a milestone.
func (e *ExpectedDates) Set(m Milestone, v *time.Time) {
	switch m {
	case MilestoneCycle:
		e.Cycle = v
	case MilestoneTesting:
		e.Testing = v
	case MilestoneBreeding:
		e.Breeding = v
	case MilestoneBirth:
		e.Birth = v
	case MilestoneWeaned:
		e.Weaned = v
	case MilestonePlacementStart:
		e.PlacementStart = v
	case MilestonePlacementCompleted:
		e.PlacementCompleted = v
	}
}

// Clone deep-copies every milestone pointer.
func (e ExpectedDates) Clone() ExpectedDates {
	var out ExpectedDates
	for _, m := range Milestones {
		out.Set(m, cloneTime(e.Get(m)))
	}
	return out
}

// Milestone names one projected event in a breeding cycle.
type Milestone string

// Milestones in chronological order.
const (
	MilestoneCycle              Milestone = "cycle"
	MilestoneTesting            Milestone = "testing"
	MilestoneBreeding           Milestone = "breeding"
	MilestoneBirth              Milestone = "birth"
	MilestoneWeaned             Milestone = "weaned"
	MilestonePlacementStart     Milestone = "placementStart"
	MilestonePlacementCompleted Milestone = "placementCompleted"
)

// Milestones lists every milestone in chronological order.
var Milestones = []Milestone{
	MilestoneCycle,
	MilestoneTesting,
	MilestoneBreeding,
	MilestoneBirth,
	MilestoneWeaned,
	MilestonePlacementStart,
	MilestonePlacementCompleted,
}

// ActualDates records the user-entered date of each real-world event.
type ActualDates struct {
	CycleStart         *time.Time `json:"cycle_start_actual,omitempty"`
	TestingStart       *time.Time `json:"testing_start_actual,omitempty"`
	Breeding           *time.Time `json:"breeding_actual,omitempty"`
	Birth              *time.Time `json:"birth_actual,omitempty"`
	Weaned             *time.Time `json:"weaned_actual,omitempty"`
	PlacementStart     *time.Time `json:"placement_start_actual,omitempty"`
	PlacementCompleted *time.Time `json:"placement_completed_actual,omitempty"`
	PlanCompleted      *time.Time `json:"plan_completed_actual,omitempty"`
}

// LockedAnchors mirror the expected dates captured at lock time.
type LockedAnchors struct {
	Ovulation      *time.Time `json:"locked_ovulation_date,omitempty"`
	Due            *time.Time `json:"locked_due_date,omitempty"`
	PlacementStart *time.Time `json:"locked_placement_start_date,omitempty"`
}

// IsZero reports whether no anchor is recorded.
func (a LockedAnchors) IsZero() bool {
	return a.Ovulation == nil && a.Due == nil && a.PlacementStart == nil
}

// BreedingPlan is a planned pairing of one dam and one sire through a single
// reproductive cycle.
type BreedingPlan struct {
	Base
	Name             string           `json:"name"`
	Species          string           `json:"species"`
	DamID            *string          `json:"dam_id"`
	SireID           *string          `json:"sire_id"`
	LockedCycleStart *time.Time       `json:"locked_cycle_start"`
	Anchors          LockedAnchors    `json:"anchors"`
	Expected         ExpectedDates    `json:"expected"`
	Actual           ActualDates      `json:"actual"`
	Status           *LifecycleStatus `json:"status,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// Locked reports whether the plan carries a locked cycle start.
func (p BreedingPlan) Locked() bool {
	return p.LockedCycleStart != nil
}

// Clone deep-copies every pointer field.
func (p BreedingPlan) Clone() BreedingPlan {
	out := p
	out.DamID = cloneString(p.DamID)
	out.SireID = cloneString(p.SireID)
	out.LockedCycleStart = cloneTime(p.LockedCycleStart)
	out.Anchors = LockedAnchors{
		Ovulation:      cloneTime(p.Anchors.Ovulation),
		Due:            cloneTime(p.Anchors.Due),
		PlacementStart: cloneTime(p.Anchors.PlacementStart),
	}
	out.Expected = p.Expected.Clone()
	out.Actual = ActualDates{
		CycleStart:         cloneTime(p.Actual.CycleStart),
		TestingStart:       cloneTime(p.Actual.TestingStart),
		Breeding:           cloneTime(p.Actual.Breeding),
		Birth:              cloneTime(p.Actual.Birth),
		Weaned:             cloneTime(p.Actual.Weaned),
		PlacementStart:     cloneTime(p.Actual.PlacementStart),
		PlacementCompleted: cloneTime(p.Actual.PlacementCompleted),
		PlanCompleted:      cloneTime(p.Actual.PlanCompleted),
	}
	if p.Status != nil {
		s := *p.Status
		out.Status = &s
	}
	return out
}

// PlanPatch is the write-back subset of a plan owned by the lock controller.
// A nil LockedCycleStart together with Clear set removes the lock.
type PlanPatch struct {
	LockedCycleStart *time.Time
	Anchors          LockedAnchors
	Expected         ExpectedDates
	Clear            bool
}

// Apply writes the patch onto p.
func (patch PlanPatch) Apply(p *BreedingPlan) {
	if patch.Clear {
		p.LockedCycleStart = nil
		p.Anchors = LockedAnchors{}
		p.Expected = ExpectedDates{}
		return
	}
	p.LockedCycleStart = cloneTime(patch.LockedCycleStart)
	p.Anchors = LockedAnchors{
		Ovulation:      cloneTime(patch.Anchors.Ovulation),
		Due:            cloneTime(patch.Anchors.Due),
		PlacementStart: cloneTime(patch.Anchors.PlacementStart),
	}
	p.Expected = patch.Expected.Clone()
}

// PatchFromPlan captures the current lock subset of p so it can be restored.
func PatchFromPlan(p BreedingPlan) PlanPatch {
	if p.LockedCycleStart == nil {
		return PlanPatch{Clear: true}
	}
	return PlanPatch{
		LockedCycleStart: cloneTime(p.LockedCycleStart),
		Anchors:          p.Clone().Anchors,
		Expected:         p.Expected.Clone(),
	}
}

// EventType classifies audit events appended to a plan.
type EventType string

// Audit event types written by the lock controller.
const (
	EventCycleLocked   EventType = "CYCLE_LOCKED"
	EventCycleUnlocked EventType = "CYCLE_UNLOCKED"
)

// PlanEvent is an append-only audit record attached to a plan.
type PlanEvent struct {
	ID         string         `json:"id"`
	PlanID     string         `json:"plan_id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Label      string         `json:"label"`
	Data       map[string]any `json:"data,omitempty"`
}

// PreviewBag is the alias-keyed projection emitted by a forecasting
// collaborator. Values are date-like (string, time.Time, *time.Time) or nil.
type PreviewBag map[string]any

// CycleProjection lists candidate future cycle starts for one female.
// Pending may hold a date that has not yet been added to Candidates.
type CycleProjection struct {
	Candidates []time.Time `json:"candidates"`
	Pending    *time.Time  `json:"pending,omitempty"`
}

// ReproductiveHistory is the input a forecaster uses to project cycles.
type ReproductiveHistory struct {
	FemaleID    string      `json:"female_id"`
	Species     string      `json:"species"`
	CycleStarts []time.Time `json:"cycle_starts"`
}

// Action enumerates CRUD operations captured in a change.
type Action string

// Supported change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation applied within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var names []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			names = append(names, v.Rule)
		}
	}
	if len(names) == 0 {
		return "transaction blocked by rules"
	}
	return "transaction blocked by rules: " + strings.Join(names, ", ")
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
