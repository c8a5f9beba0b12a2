// Package memory provides an in-memory implementation of the plan
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"breedcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// BreedingPlan aliases domain.BreedingPlan for in-memory persistence operations.
	BreedingPlan = domain.BreedingPlan
	// PlanEvent aliases domain.PlanEvent.
	PlanEvent = domain.PlanEvent
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	plans  map[string]BreedingPlan
	events map[string][]PlanEvent
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Plans  map[string]BreedingPlan `json:"plans"`
	Events map[string][]PlanEvent  `json:"events"`
}

func newMemoryState() memoryState {
	return memoryState{
		plans:  make(map[string]BreedingPlan),
		events: make(map[string][]PlanEvent),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.plans {
		cloned.plans[k] = v.Clone()
	}
	for k, v := range s.events {
		cloned.events[k] = cloneEvents(v)
	}
	return cloned
}

func cloneEvents(events []PlanEvent) []PlanEvent {
	out := make([]PlanEvent, len(events))
	for i, e := range events {
		out[i] = cloneEvent(e)
	}
	return out
}

func cloneEvent(e PlanEvent) PlanEvent {
	cp := e
	if e.Data != nil {
		cp.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			cp.Data[k] = v
		}
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{Plans: cloned.plans, Events: cloned.events}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{plans: s.Plans, events: s.Events}
	if state.plans == nil {
		state.plans = map[string]BreedingPlan{}
	}
	if state.events == nil {
		state.events = map[string][]PlanEvent{}
	}
	return state.clone()
}

// Store is an in-memory transactional store. Each transaction works on a
// cloned state that only replaces the live state when every rule passes.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the clock used for record timestamps.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = now
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListPlans returns all plans within the snapshot ordered by id.
func (v transactionView) ListPlans() []BreedingPlan {
	return sortedPlans(v.state.plans)
}

// FindPlan returns a plan by id.
func (v transactionView) FindPlan(id string) (BreedingPlan, bool) {
	p, ok := v.state.plans[id]
	if !ok {
		return BreedingPlan{}, false
	}
	return p.Clone(), true
}

// ListEvents returns a plan's events in append order.
func (v transactionView) ListEvents(planID string) []PlanEvent {
	return cloneEvents(v.state.events[planID])
}

func sortedPlans(plans map[string]BreedingPlan) []BreedingPlan {
	out := make([]BreedingPlan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RunInTransaction executes fn against a cloned state, evaluates rules over
// the recorded changes and commits only when nothing blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn with a read-only snapshot of the live state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

// GetPlan returns a plan by id.
func (s *Store) GetPlan(id string) (BreedingPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.plans[id]
	if !ok {
		return BreedingPlan{}, false
	}
	return p.Clone(), true
}

// ListPlans returns every plan ordered by id.
func (s *Store) ListPlans() []BreedingPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedPlans(s.state.plans)
}

// ListEvents returns a plan's audit events in append order.
func (s *Store) ListEvents(planID string) []PlanEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.state.events[planID])
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view of the transaction's working state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindPlan returns a plan from the working state.
func (tx *transaction) FindPlan(id string) (BreedingPlan, bool) {
	p, ok := tx.state.plans[id]
	if !ok {
		return BreedingPlan{}, false
	}
	return p.Clone(), true
}

// CreatePlan stores a new plan within the transaction.
func (tx *transaction) CreatePlan(p BreedingPlan) (BreedingPlan, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.plans[p.ID]; exists {
		return BreedingPlan{}, fmt.Errorf("plan %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.plans[p.ID] = p.Clone()
	tx.recordChange(Change{Entity: domain.EntityPlan, Action: domain.ActionCreate, After: p.Clone()})
	return p.Clone(), nil
}

// UpdatePlan mutates a plan using the provided mutator function.
func (tx *transaction) UpdatePlan(id string, mutator func(*BreedingPlan) error) (BreedingPlan, error) {
	current, ok := tx.state.plans[id]
	if !ok {
		return BreedingPlan{}, fmt.Errorf("plan %q not found", id)
	}
	before := current.Clone()
	current = current.Clone()
	if err := mutator(&current); err != nil {
		return BreedingPlan{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.plans[id] = current.Clone()
	tx.recordChange(Change{Entity: domain.EntityPlan, Action: domain.ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeletePlan removes a plan and its events.
func (tx *transaction) DeletePlan(id string) error {
	current, ok := tx.state.plans[id]
	if !ok {
		return fmt.Errorf("plan %q not found", id)
	}
	delete(tx.state.plans, id)
	delete(tx.state.events, id)
	tx.recordChange(Change{Entity: domain.EntityPlan, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// AppendEvent adds an audit event to an existing plan.
func (tx *transaction) AppendEvent(e PlanEvent) (PlanEvent, error) {
	if _, ok := tx.state.plans[e.PlanID]; !ok {
		return PlanEvent{}, fmt.Errorf("plan %q not found", e.PlanID)
	}
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = tx.now
	}
	tx.state.events[e.PlanID] = append(tx.state.events[e.PlanID], cloneEvent(e))
	tx.recordChange(Change{Entity: domain.EntityPlanEvent, Action: domain.ActionCreate, After: cloneEvent(e)})
	return cloneEvent(e), nil
}
