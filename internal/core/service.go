package core

import (
	"context"
	"fmt"

	"breedcore/internal/infra/persistence/memory"
	"breedcore/internal/logger"
	"breedcore/pkg/domain"
)

// Service exposes transactional plan operations over a persistent store. It
// satisfies PlanStore so the lock controller can write through it.
type Service struct {
	store domain.PersistentStore
	log   *logger.Logger
}

var _ PlanStore = (*Service)(nil)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger used for rule warnings.
func WithServiceLogger(l *logger.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{store: store, log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// ListPlans returns every plan ordered by id.
func (s *Service) ListPlans(ctx context.Context) ([]domain.BreedingPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPlans(), nil
}

// GetPlan returns a plan or ErrNotFound.
func (s *Service) GetPlan(ctx context.Context, id string) (domain.BreedingPlan, error) {
	if err := ctx.Err(); err != nil {
		return domain.BreedingPlan{}, err
	}
	plan, ok := s.store.GetPlan(id)
	if !ok {
		return domain.BreedingPlan{}, ErrNotFound{Entity: domain.EntityPlan, ID: id}
	}
	return plan, nil
}

// CreatePlan persists a new plan.
func (s *Service) CreatePlan(ctx context.Context, plan domain.BreedingPlan) (domain.BreedingPlan, Result, error) {
	var created domain.BreedingPlan
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreatePlan(plan)
		return err
	})
	s.logResult(created.ID, res)
	return created, res, err
}

// UpdatePlan writes the lock subset of a plan. Rule warnings are logged;
// blocking violations surface as domain.RuleViolationError.
func (s *Service) UpdatePlan(ctx context.Context, id string, patch domain.PlanPatch) (domain.BreedingPlan, error) {
	updated, _, err := s.UpdatePlanDetails(ctx, id, func(p *domain.BreedingPlan) error {
		patch.Apply(p)
		return nil
	})
	return updated, err
}

// UpdatePlanDetails mutates a plan using the provided mutator.
func (s *Service) UpdatePlanDetails(ctx context.Context, id string, mutator func(*domain.BreedingPlan) error) (domain.BreedingPlan, Result, error) {
	var updated domain.BreedingPlan
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindPlan(id); !ok {
			return ErrNotFound{Entity: domain.EntityPlan, ID: id}
		}
		var err error
		updated, err = tx.UpdatePlan(id, mutator)
		return err
	})
	s.logResult(id, res)
	return updated, res, err
}

// CancelPlan stores the CANCELED override on a plan.
func (s *Service) CancelPlan(ctx context.Context, id string) (domain.BreedingPlan, Result, error) {
	return s.UpdatePlanDetails(ctx, id, func(p *domain.BreedingPlan) error {
		status := domain.StatusCanceled
		p.Status = &status
		return nil
	})
}

// DeletePlan removes a plan and its audit trail.
func (s *Service) DeletePlan(ctx context.Context, id string) (Result, error) {
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindPlan(id); !ok {
			return ErrNotFound{Entity: domain.EntityPlan, ID: id}
		}
		return tx.DeletePlan(id)
	})
	return res, err
}

// CreateEvent appends an audit event to a plan.
func (s *Service) CreateEvent(ctx context.Context, planID string, event domain.PlanEvent) error {
	event.PlanID = planID
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindPlan(planID); !ok {
			return ErrNotFound{Entity: domain.EntityPlan, ID: planID}
		}
		_, err := tx.AppendEvent(event)
		return err
	})
	return err
}

// ListEvents returns a plan's audit events in append order.
func (s *Service) ListEvents(ctx context.Context, planID string) ([]domain.PlanEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.store.GetPlan(planID); !ok {
		return nil, ErrNotFound{Entity: domain.EntityPlan, ID: planID}
	}
	return s.store.ListEvents(planID), nil
}

func (s *Service) logResult(planID string, res Result) {
	for _, v := range res.Violations {
		entry := s.log.WithPlan(planID).WithFields(map[string]any{"rule": v.Rule, "severity": v.Severity})
		if v.Severity == domain.SeverityBlock {
			entry.Warn(v.Message)
			continue
		}
		entry.Info(v.Message)
	}
}

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
