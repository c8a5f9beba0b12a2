package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"breedcore/internal/dates"
	"breedcore/internal/logger"
	"breedcore/pkg/domain"
)

// PlanStore is the narrow plan-store surface the lock controller writes
// through. Any returned error is treated as a persist failure.
type PlanStore interface {
	ListPlans(ctx context.Context) ([]domain.BreedingPlan, error)
	GetPlan(ctx context.Context, id string) (domain.BreedingPlan, error)
	UpdatePlan(ctx context.Context, id string, patch domain.PlanPatch) (domain.BreedingPlan, error)
	CreateEvent(ctx context.Context, planID string, event domain.PlanEvent) error
}

// Forecaster is the external cycle-math collaborator. The engine never
// computes cycle length or ovulation timing itself.
type Forecaster interface {
	Preview(ctx context.Context, lockedCycleStart time.Time, species string) (domain.PreviewBag, error)
	ProjectCycles(ctx context.Context, history domain.ReproductiveHistory) (domain.CycleProjection, error)
}

// Notice is a user-visible, non-blocking failure report.
type Notice struct {
	PlanID  string
	Op      string
	Message string
	Err     error
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notice Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, notice Notice) { f(ctx, notice) }

// LockState is the controller-side state of one plan.
type LockState string

// Lock states. PendingPersist is transient while a transition is in flight.
const (
	LockUnlocked       LockState = "unlocked"
	LockLocked         LockState = "locked"
	LockPendingPersist LockState = "pending_persist"
)

// Outcome is the end state of a transition.
type Outcome string

// Transition outcomes.
const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
)

var (
	// ErrEmptyCandidate is returned when Lock is called without a date.
	ErrEmptyCandidate = errors.New("lock requires a candidate cycle start date")
	// ErrPlanNotTracked is returned for a plan the store does not know.
	ErrPlanNotTracked = errors.New("plan not tracked")
)

// PersistError wraps a store failure that caused a transition to roll back.
type PersistError struct {
	Op     string
	PlanID string
	Stage  string
	Err    error
}

func (e PersistError) Error() string {
	return fmt.Sprintf("%s plan %s: %s failed: %v", e.Op, e.PlanID, e.Stage, e.Err)
}

func (e PersistError) Unwrap() error { return e.Err }

// PlanView is what the UI shows for one plan. Expected is non-zero only
// while the displayed plan carries a locked cycle start.
type PlanView struct {
	Plan             domain.BreedingPlan
	State            LockState
	Expected         domain.ExpectedDates
	PendingCandidate *time.Time
}

func (v PlanView) clone() PlanView {
	out := v
	out.Plan = v.Plan.Clone()
	out.Expected = v.Expected.Clone()
	out.PendingCandidate = cloneDay(v.PendingCandidate)
	return out
}

// Transition reports the result of a lock or unlock. On commit Plan is the
// server echo; on rollback it is the restored pre-transition plan.
type Transition struct {
	PlanID   string
	Op       string
	Outcome  Outcome
	Plan     domain.BreedingPlan
	Expected domain.ExpectedDates
	Err      error
}

// LockOption configures a LockController.
type LockOption func(*LockController)

// WithNotifier sets the failure notifier.
func WithNotifier(n Notifier) LockOption { return func(c *LockController) { c.notifier = n } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) LockOption { return func(c *LockController) { c.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) LockOption { return func(c *LockController) { c.log = l } }

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) LockOption { return func(c *LockController) { c.now = now } }

// WithViewObserver registers a callback fired on every view change,
// including the optimistic update made before the store is called.
func WithViewObserver(fn func(PlanView)) LockOption {
	return func(c *LockController) { c.observer = fn }
}

// LockController owns the lock/unlock transition for plans. Transitions for
// the same plan are serialized; different plans proceed independently.
type LockController struct {
	store      PlanStore
	forecaster Forecaster
	notifier   Notifier
	metrics    MetricsRecorder
	log        *logger.Logger
	now        func() time.Time
	observer   func(PlanView)

	mu     sync.Mutex
	views  map[string]PlanView
	guards map[string]*semaphore.Weighted
}

// NewLockController wires a controller to its collaborators. The
// forecaster may be nil, in which case previews are always empty.
func NewLockController(store PlanStore, forecaster Forecaster, opts ...LockOption) *LockController {
	c := &LockController{
		store:      store,
		forecaster: forecaster,
		metrics:    noopRecorder{},
		log:        logger.Discard(),
		now:        time.Now,
		views:      make(map[string]PlanView),
		guards:     make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads every plan from the store, replacing views of plans that
// are not mid-transition and dropping plans that disappeared.
func (c *LockController) Refresh(ctx context.Context) ([]domain.BreedingPlan, error) {
	plans, err := c.store.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	c.mu.Lock()
	seen := make(map[string]struct{}, len(plans))
	for _, plan := range plans {
		seen[plan.ID] = struct{}{}
		if existing, ok := c.views[plan.ID]; ok && existing.State == LockPendingPersist {
			continue
		}
		c.views[plan.ID] = settledView(plan, c.views[plan.ID].PendingCandidate)
	}
	for id, view := range c.views {
		if _, ok := seen[id]; !ok && view.State != LockPendingPersist {
			delete(c.views, id)
		}
	}
	c.mu.Unlock()
	return plans, nil
}

// View returns the current view of a plan.
func (c *LockController) View(planID string) (PlanView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[planID]
	if !ok {
		return PlanView{}, false
	}
	return v.clone(), true
}

// Views returns every tracked view ordered by plan id.
func (c *LockController) Views() []PlanView {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PlanView, 0, len(c.views))
	for _, v := range c.views {
		out = append(out, v.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plan.ID < out[j].Plan.ID })
	return out
}

// SetPendingCandidate records the candidate the user is looking at. It is
// used to restore the lock display if an unlock fails.
func (c *LockController) SetPendingCandidate(planID string, candidate time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[planID]
	if !ok {
		return
	}
	v.PendingCandidate = dates.Ptr(candidate)
	c.views[planID] = v
}

// ProposeCandidate asks the forecaster for the female's projected cycles and
// records the next candidate as pending.
func (c *LockController) ProposeCandidate(ctx context.Context, planID string, history domain.ReproductiveHistory) (*time.Time, error) {
	if c.forecaster == nil {
		return nil, nil
	}
	projection, err := c.forecaster.ProjectCycles(ctx, history)
	if err != nil {
		c.log.WithPlan(planID).WithError(err).Debug("cycle projection unavailable")
		return nil, nil
	}
	next := NextCandidate(projection, dates.Today(c.now))
	if next != nil {
		c.SetPendingCandidate(planID, *next)
	}
	return next, nil
}

// Lock fixes the plan's cycle start at candidate and persists the projected
// milestones. The optimistic view is published before the store is called;
// any store failure restores the previous view exactly and notifies.
func (c *LockController) Lock(ctx context.Context, planID string, candidate *time.Time) (Transition, error) {
	if candidate == nil || candidate.IsZero() {
		return Transition{PlanID: planID, Op: OpLock}, ErrEmptyCandidate
	}
	release, err := c.acquire(ctx, planID)
	if err != nil {
		return Transition{PlanID: planID, Op: OpLock}, err
	}
	defer release()

	started := time.Now()
	before, err := c.current(ctx, planID)
	if err != nil {
		return Transition{PlanID: planID, Op: OpLock}, err
	}
	day := dates.Day(*candidate)
	preview := c.preview(ctx, planID, day, before.Plan.Species)
	expected := ResolveExpectedDates(&day, preview)
	patch := LockPatch(day, expected)

	optimistic := before.clone()
	patch.Apply(&optimistic.Plan)
	optimistic.State = LockPendingPersist
	optimistic.Expected = expected.Clone()
	optimistic.PendingCandidate = dates.Ptr(day)
	c.publish(optimistic)

	if _, err := c.store.UpdatePlan(ctx, planID, patch); err != nil {
		return c.rollback(ctx, OpLock, before, "update", err, started)
	}
	event := domain.PlanEvent{
		PlanID:     planID,
		Type:       domain.EventCycleLocked,
		OccurredAt: c.now().UTC(),
		Label:      "Cycle locked for " + day.Format(dates.DayLayout),
		Data:       eventData(day, expected),
	}
	if err := c.store.CreateEvent(ctx, planID, event); err != nil {
		restore := c.compensate(ctx, before, optimistic.Plan)
		return c.rollback(ctx, OpLock, restore, "audit", err, started)
	}
	return c.commit(ctx, OpLock, planID, optimistic.Plan, day, started), nil
}

// Unlock clears the lock and every projected milestone. If the store
// rejects the clear, the settled view of the still-locked record is
// restored; expected dates derive from its locked cycle start only.
func (c *LockController) Unlock(ctx context.Context, planID string) (Transition, error) {
	release, err := c.acquire(ctx, planID)
	if err != nil {
		return Transition{PlanID: planID, Op: OpUnlock}, err
	}
	defer release()

	started := time.Now()
	before, err := c.current(ctx, planID)
	if err != nil {
		return Transition{PlanID: planID, Op: OpUnlock}, err
	}
	if before.Plan.Locked() {
		before = settledView(before.Plan, before.PendingCandidate)
	}

	optimistic := before.clone()
	domain.PlanPatch{Clear: true}.Apply(&optimistic.Plan)
	optimistic.State = LockPendingPersist
	optimistic.Expected = domain.ExpectedDates{}
	c.publish(optimistic)

	if _, err := c.store.UpdatePlan(ctx, planID, domain.PlanPatch{Clear: true}); err != nil {
		return c.rollback(ctx, OpUnlock, before, "update", err, started)
	}
	event := domain.PlanEvent{
		PlanID:     planID,
		Type:       domain.EventCycleUnlocked,
		OccurredAt: c.now().UTC(),
		Label:      "Cycle unlocked",
	}
	if before.Plan.Locked() {
		event.Data = map[string]any{"previousLockedCycleStart": before.Plan.LockedCycleStart.Format(dates.DayLayout)}
	}
	if err := c.store.CreateEvent(ctx, planID, event); err != nil {
		restore := c.compensate(ctx, before, optimistic.Plan)
		return c.rollback(ctx, OpUnlock, restore, "audit", err, started)
	}
	var anchor time.Time
	if before.PendingCandidate != nil {
		anchor = *before.PendingCandidate
	}
	return c.commit(ctx, OpUnlock, planID, optimistic.Plan, anchor, started), nil
}

func (c *LockController) commit(ctx context.Context, op, planID string, fallback domain.BreedingPlan, candidate time.Time, started time.Time) Transition {
	plan, err := c.store.GetPlan(ctx, planID)
	if err != nil {
		c.log.WithPlan(planID).WithError(err).Warn("refetch after persist failed; keeping local values")
		plan = fallback
	}
	var pending *time.Time
	if !candidate.IsZero() {
		pending = dates.Ptr(candidate)
	}
	view := settledView(plan, pending)
	c.publish(view)
	c.metrics.Observe(ctx, op, true, time.Since(started))
	c.log.WithPlan(planID).WithFields(map[string]any{"op": op, "state": view.State}).Info("cycle transition committed")
	return Transition{PlanID: planID, Op: op, Outcome: OutcomeCommitted, Plan: view.Plan, Expected: view.Expected}
}

func (c *LockController) rollback(ctx context.Context, op string, restore PlanView, stage string, cause error, started time.Time) (Transition, error) {
	planID := restore.Plan.ID
	c.publish(restore)
	perr := PersistError{Op: op, PlanID: planID, Stage: stage, Err: cause}
	c.metrics.Observe(ctx, op, false, time.Since(started))
	c.log.WithPlan(planID).WithError(cause).WithFields(map[string]any{"op": op, "stage": stage}).Warn("cycle transition rolled back")
	if c.notifier != nil {
		c.notifier.Notify(ctx, Notice{PlanID: planID, Op: op, Message: noticeMessage(op), Err: perr})
	}
	return Transition{PlanID: planID, Op: op, Outcome: OutcomeRolledBack, Plan: restore.Plan.Clone(), Expected: restore.Expected.Clone(), Err: perr}, perr
}

// compensate restores the lock subset after the plan write succeeded but
// the audit write did not, and returns the view to roll back to. When the
// restore itself fails the record keeps the written values, so the view is
// settled on what the store holds instead of the pre-transition plan.
func (c *LockController) compensate(ctx context.Context, before PlanView, written domain.BreedingPlan) PlanView {
	planID := before.Plan.ID
	_, err := c.store.UpdatePlan(ctx, planID, domain.PatchFromPlan(before.Plan))
	if err == nil {
		return before
	}
	c.log.WithPlan(planID).WithError(err).Error("restore after failed audit write did not persist")
	plan, gerr := c.store.GetPlan(ctx, planID)
	if gerr != nil {
		c.log.WithPlan(planID).WithError(gerr).Warn("refetch after failed restore; assuming written values")
		plan = written
	}
	return settledView(plan, before.PendingCandidate)
}

func (c *LockController) current(ctx context.Context, planID string) (PlanView, error) {
	c.mu.Lock()
	v, ok := c.views[planID]
	c.mu.Unlock()
	if ok {
		return v.clone(), nil
	}
	plan, err := c.store.GetPlan(ctx, planID)
	if err != nil {
		return PlanView{}, fmt.Errorf("%w: %s: %v", ErrPlanNotTracked, planID, err)
	}
	view := settledView(plan, nil)
	c.publish(view)
	return view.clone(), nil
}

func (c *LockController) preview(ctx context.Context, planID string, day time.Time, species string) domain.PreviewBag {
	if c.forecaster == nil {
		return domain.PreviewBag{}
	}
	bag, err := c.forecaster.Preview(ctx, day, species)
	if err != nil {
		c.log.WithPlan(planID).WithError(err).Debug("forecast preview unavailable")
		return domain.PreviewBag{}
	}
	if bag == nil {
		return domain.PreviewBag{}
	}
	return bag
}

func (c *LockController) publish(view PlanView) {
	c.mu.Lock()
	c.views[view.Plan.ID] = view.clone()
	observer := c.observer
	c.mu.Unlock()
	if observer != nil {
		observer(view.clone())
	}
}

func (c *LockController) acquire(ctx context.Context, planID string) (func(), error) {
	c.mu.Lock()
	guard, ok := c.guards[planID]
	if !ok {
		guard = semaphore.NewWeighted(1)
		c.guards[planID] = guard
	}
	c.mu.Unlock()
	if err := guard.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for in-flight transition on plan %s: %w", planID, err)
	}
	return func() { guard.Release(1) }, nil
}

// settledView derives the display state of a plan the store has confirmed.
// Expected dates come from the persisted fields only.
func settledView(plan domain.BreedingPlan, pending *time.Time) PlanView {
	view := PlanView{Plan: plan.Clone(), State: LockUnlocked, PendingCandidate: cloneDay(pending)}
	if plan.Locked() {
		view.State = LockLocked
		view.Expected = ResolveExpectedDates(plan.LockedCycleStart, PersistedPreview(plan))
		if view.PendingCandidate == nil {
			view.PendingCandidate = cloneDay(plan.LockedCycleStart)
		}
	}
	return view
}

func eventData(day time.Time, expected domain.ExpectedDates) map[string]any {
	data := map[string]any{"lockedCycleStart": day.Format(dates.DayLayout)}
	for _, m := range domain.Milestones {
		if v := expected.Get(m); v != nil {
			data["expected."+string(m)] = v.Format(dates.DayLayout)
		}
	}
	return data
}

func noticeMessage(op string) string {
	if op == OpUnlock {
		return "Could not unlock the cycle. The plan is still locked."
	}
	return "Could not lock the cycle. No changes were saved."
}
