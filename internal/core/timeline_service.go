package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"breedcore/internal/logger"
	"breedcore/pkg/domain"
)

// PlanLister is the read side of the plan store the timeline needs.
type PlanLister interface {
	ListPlans(ctx context.Context) ([]domain.BreedingPlan, error)
}

// TimelineService runs one timeline computation pass per Build: it loads the
// plans, reconciles the selection, gathers forecaster previews for the
// locked plans and hands everything to BuildTimeline.
type TimelineService struct {
	plans      PlanLister
	forecaster Forecaster
	prefs      ResolvedPreferences
	metrics    MetricsRecorder
	log        *logger.Logger
	now        func() time.Time

	mu        sync.Mutex
	selection *Selection
}

// TimelineOption configures a TimelineService.
type TimelineOption func(*TimelineService)

// WithTimelineMetrics sets the metrics recorder.
func WithTimelineMetrics(m MetricsRecorder) TimelineOption {
	return func(s *TimelineService) { s.metrics = m }
}

// WithTimelineLogger sets the logger.
func WithTimelineLogger(l *logger.Logger) TimelineOption {
	return func(s *TimelineService) { s.log = l }
}

// WithTimelineClock overrides the clock used for the default horizon.
func WithTimelineClock(now func() time.Time) TimelineOption {
	return func(s *TimelineService) { s.now = now }
}

// WithSelection shares an existing selection instead of starting empty.
func WithSelection(sel *Selection) TimelineOption {
	return func(s *TimelineService) {
		if sel != nil {
			s.selection = sel
		}
	}
}

// NewTimelineService wires a timeline pass. forecaster may be nil.
func NewTimelineService(plans PlanLister, forecaster Forecaster, prefs ResolvedPreferences, opts ...TimelineOption) *TimelineService {
	s := &TimelineService{
		plans:      plans,
		forecaster: forecaster,
		prefs:      prefs,
		metrics:    noopRecorder{},
		log:        logger.Discard(),
		now:        time.Now,
		selection:  NewSelection(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selection exposes the ordered selection. It may be toggled from any
// goroutine, including while a Build is in progress.
func (s *TimelineService) Selection() *Selection {
	return s.selection
}

// Build computes a fresh timeline. The returned OnSelectedChange writes
// through to the service's selection.
func (s *TimelineService) Build(ctx context.Context) (Timeline, error) {
	started := time.Now()
	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		s.metrics.Observe(ctx, OpBuildTimeline, false, time.Since(started))
		return Timeline{}, fmt.Errorf("list plans: %w", err)
	}
	ids := make([]string, 0, len(plans))
	for _, plan := range plans {
		ids = append(ids, plan.ID)
	}

	s.mu.Lock()
	s.selection.Sync(ids)
	selected := s.selection.Selected()
	s.mu.Unlock()

	previews := s.previews(ctx, ActivePlans(plans, selected))
	timeline := BuildTimeline(TimelineInput{
		Plans:       plans,
		Selected:    selected,
		Previews:    previews,
		Preferences: s.prefs,
		Now:         s.now(),
	})
	timeline.OnSelectedChange = s.setSelected

	s.metrics.Observe(ctx, OpBuildTimeline, true, time.Since(started))
	s.log.WithFields(map[string]any{"plans": len(plans), "active": len(timeline.Selected), "rows": len(timeline.Rows)}).
		Debug("timeline built")
	return timeline, nil
}

func (s *TimelineService) setSelected(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Set(ids)
}

func (s *TimelineService) previews(ctx context.Context, active []domain.BreedingPlan) map[string]domain.PreviewBag {
	out := make(map[string]domain.PreviewBag, len(active))
	if s.forecaster == nil {
		return out
	}
	for _, plan := range active {
		if plan.LockedCycleStart == nil {
			continue
		}
		bag, err := s.forecaster.Preview(ctx, *plan.LockedCycleStart, plan.Species)
		if err != nil {
			s.log.WithPlan(plan.ID).WithError(err).Debug("forecast preview unavailable")
			continue
		}
		out[plan.ID] = bag
	}
	return out
}
