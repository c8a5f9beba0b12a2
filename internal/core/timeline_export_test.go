package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"breedcore/internal/blob"
	memblob "breedcore/internal/infra/blob/memory"
	"breedcore/pkg/domain"
)

func sampleTimeline(t *testing.T) Timeline {
	t.Helper()
	return BuildTimeline(TimelineInput{
		Plans:    []domain.BreedingPlan{lockedPlan(t, "p1", "2026-03-01")},
		Selected: []string{"p1"},
		Previews: map[string]domain.PreviewBag{"p1": standardPreview},
		Now:      day(t, "2026-10-15"),
	})
}

func TestTimelineExportRoundTrip(t *testing.T) {
	store := memblob.New()
	metrics := NewExpvarMetricsRecorder("")
	exporter := NewTimelineExporter(store, metrics, nil)
	ctx := context.Background()
	tl := sampleTimeline(t)

	info, err := exporter.Export(ctx, "spring-2026", tl)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if info.Key != "timelines/spring-2026.json" || info.ContentType != "application/json" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Metadata["plans"] != "1" || info.Metadata["horizon-start"] != "2026-03-01" || info.Metadata["horizon-end"] != "2026-07-31" {
		t.Fatalf("unexpected metadata %+v", info.Metadata)
	}

	loaded, err := exporter.Load(ctx, "spring-2026")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Rows) != len(tl.Rows) || !loaded.Horizon.Start.Equal(tl.Horizon.Start) || loaded.Colors["p1"] != tl.Colors["p1"] {
		t.Fatalf("loaded timeline differs: %+v", loaded.Horizon)
	}
	if loaded.Statuses["p1"] != domain.StatusCommitted {
		t.Fatalf("status lost in export: %v", loaded.Statuses)
	}

	if _, err := exporter.Export(ctx, "spring-2026", tl); err != nil {
		t.Fatalf("re-export should overwrite: %v", err)
	}
	if got := metrics.Snapshot().Results[OpExportTimeline]["success"]; got != 2 {
		t.Fatalf("expected two export metrics, got %d", got)
	}
}

func TestTimelineExportListAndValidation(t *testing.T) {
	store := memblob.New()
	exporter := NewTimelineExporter(store, nil, nil)
	ctx := context.Background()
	tl := sampleTimeline(t)

	for _, name := range []string{"b", "a"} {
		if _, err := exporter.Export(ctx, name, tl); err != nil {
			t.Fatalf("export %s: %v", name, err)
		}
	}
	if _, err := store.Put(ctx, "timelines/nested/c.json", strings.NewReader("{}"), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "other/d.json", strings.NewReader("{}"), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	names, err := exporter.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names %v", names)
	}

	for _, bad := range []string{"", "../escape", "a/b", ".hidden"} {
		if _, err := exporter.Export(ctx, bad, tl); err == nil {
			t.Fatalf("name %q should be rejected", bad)
		}
	}
	if _, err := exporter.Load(ctx, "missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
