package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"breedcore/pkg/domain"
)

type listerFunc func(ctx context.Context) ([]domain.BreedingPlan, error)

func (f listerFunc) ListPlans(ctx context.Context) ([]domain.BreedingPlan, error) { return f(ctx) }

func TestTimelineServiceSelectionStability(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		if _, _, err := svc.CreatePlan(ctx, committedPlan(id)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	forecaster := &stubForecaster{bag: standardPreview}
	metrics := NewExpvarMetricsRecorder("")
	timelines := NewTimelineService(svc, forecaster, ResolvedPreferences{},
		WithTimelineClock(fixedClock(day(t, "2026-10-15"))),
		WithTimelineMetrics(metrics),
	)

	tl, err := timelines.Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(tl.Selected) != 5 {
		t.Fatalf("first pass should select every plan, got %v", tl.Selected)
	}
	if forecaster.previews != 0 {
		t.Fatalf("unlocked plans should not be previewed, got %d calls", forecaster.previews)
	}

	tl.OnSelectedChange([]string{"p1", "p2", "p4", "p5"})
	if _, _, err := svc.CreatePlan(ctx, committedPlan("p6")); err != nil {
		t.Fatalf("create: %v", err)
	}
	tl, err = timelines.Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{"p1", "p2", "p4", "p5"}
	if len(tl.Selected) != len(want) {
		t.Fatalf("expected %v, got %v", want, tl.Selected)
	}
	for i := range want {
		if tl.Selected[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, tl.Selected)
		}
	}
	if timelines.Selection().Contains("p6") {
		t.Fatalf("new plan must not be auto-selected")
	}
	if got := metrics.Snapshot().Results[OpBuildTimeline]["success"]; got != 2 {
		t.Fatalf("expected two build metrics, got %d", got)
	}
}

func TestTimelineServiceUsesForecastForLockedPlans(t *testing.T) {
	plan := committedPlan("p1")
	plan.LockedCycleStart = dayPtr(t, "2026-03-01")
	plans := listerFunc(func(context.Context) ([]domain.BreedingPlan, error) {
		return []domain.BreedingPlan{plan}, nil
	})
	forecaster := &stubForecaster{bag: standardPreview}
	tl, err := NewTimelineService(plans, forecaster, ResolvedPreferences{}).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if forecaster.previews != 1 {
		t.Fatalf("expected one preview call, got %d", forecaster.previews)
	}
	birth := rowByID(t, tl, MilestoneRowID(domain.MilestoneBirth))
	if len(birth.Bars) != 1 {
		t.Fatalf("forecast birth should be plotted, got %+v", birth.Bars)
	}
	assertDay(t, "birth", birth.Bars[0].Point, "2026-05-14")

	forecaster.err = errors.New("forecast offline")
	tl, err = NewTimelineService(plans, forecaster, ResolvedPreferences{}).Build(context.Background())
	if err != nil {
		t.Fatalf("forecast failure must not fail the pass: %v", err)
	}
	if bars := rowByID(t, tl, MilestoneRowID(domain.MilestoneBirth)).Bars; len(bars) != 0 {
		t.Fatalf("no birth without forecast or persisted value, got %+v", bars)
	}
}

func TestTimelineServiceListError(t *testing.T) {
	metrics := NewExpvarMetricsRecorder("")
	plans := listerFunc(func(context.Context) ([]domain.BreedingPlan, error) {
		return nil, errors.New("db down")
	})
	_, err := NewTimelineService(plans, nil, ResolvedPreferences{}, WithTimelineMetrics(metrics)).Build(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := metrics.Snapshot().Results[OpBuildTimeline]["error"]; got != 1 {
		t.Fatalf("expected error metric, got %d", got)
	}
}

func TestTimelineServiceSharedSelection(t *testing.T) {
	sel := NewSelection()
	sel.Set([]string{"p2"})
	plans := listerFunc(func(context.Context) ([]domain.BreedingPlan, error) {
		return []domain.BreedingPlan{committedPlan("p1"), committedPlan("p2")}, nil
	})
	svc := NewTimelineService(plans, nil, ResolvedPreferences{}, WithSelection(sel), WithTimelineClock(time.Now))
	tl, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(tl.Selected) != 1 || tl.Selected[0] != "p2" {
		t.Fatalf("shared selection ignored: %v", tl.Selected)
	}
	if svc.Selection() != sel {
		t.Fatalf("selection should be shared")
	}
}

func TestTimelineServiceSelectionToggledDuringBuilds(t *testing.T) {
	plans := []domain.BreedingPlan{committedPlan("p1"), committedPlan("p2"), committedPlan("p3")}
	lister := listerFunc(func(context.Context) ([]domain.BreedingPlan, error) { return plans, nil })
	timelines := NewTimelineService(lister, nil, ResolvedPreferences{}, WithTimelineClock(fixedClock(day(t, "2026-10-15"))))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := timelines.Build(ctx); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			timelines.Selection().Toggle("p2")
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("build: %v", err)
	}

	sel := timelines.Selection()
	if !sel.Touched() {
		t.Fatalf("toggles should mark the selection touched")
	}
	tl, err := timelines.Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, id := range tl.Selected {
		if id != "p1" && id != "p2" && id != "p3" {
			t.Fatalf("unexpected selected id %q", id)
		}
	}
}
