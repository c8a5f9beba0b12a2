package core

import "breedcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	BreedingPlan       = domain.BreedingPlan
	PlanEvent          = domain.PlanEvent
	PlanPatch          = domain.PlanPatch
	ExpectedDates      = domain.ExpectedDates
	ActualDates        = domain.ActualDates
	LockedAnchors      = domain.LockedAnchors
	LifecycleStatus    = domain.LifecycleStatus
	Milestone          = domain.Milestone
	PreviewBag         = domain.PreviewBag
	Action             = domain.Action
	Violation          = domain.Violation
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityPlan      = domain.EntityPlan
	EntityPlanEvent = domain.EntityPlanEvent
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
