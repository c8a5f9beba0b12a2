package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreatePlan(BreedingPlan) (BreedingPlan, error)
	UpdatePlan(id string, mutator func(*BreedingPlan) error) (BreedingPlan, error)
	DeletePlan(id string) error
	AppendEvent(PlanEvent) (PlanEvent, error)
	FindPlan(id string) (BreedingPlan, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListPlans() []BreedingPlan
	FindPlan(id string) (BreedingPlan, bool)
	ListEvents(planID string) []PlanEvent
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPlan(id string) (BreedingPlan, bool)
	ListPlans() []BreedingPlan
	ListEvents(planID string) []PlanEvent
}
