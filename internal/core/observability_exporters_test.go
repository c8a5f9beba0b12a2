package core

import (
	"context"
	"encoding/json"
	"expvar"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarMetricsRecorderPublishesSnapshot(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, OpLock, true, 2*time.Millisecond)
	rec.Observe(ctx, OpLock, false, 3*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if snap.Results[OpLock]["success"] != 1 || snap.Results[OpLock]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if snap.DurationsMS[OpLock] != 5 {
		t.Fatalf("expected 5ms total, got %v", snap.DurationsMS[OpLock])
	}
	if len(snap.Results) != 1 {
		t.Fatalf("empty operation names must be ignored: %+v", snap.Results)
	}

	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("recorder not published under %s", rec.Name())
	}
	var decoded ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(v.String()), &decoded); err != nil {
		t.Fatalf("decode expvar: %v", err)
	}
	if decoded.Results[OpLock]["success"] != 1 {
		t.Fatalf("expvar output missing counters: %s", v.String())
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	ctx := context.Background()
	rec.Observe(ctx, OpUnlock, true, 10*time.Millisecond)
	rec.Observe(ctx, OpUnlock, true, 10*time.Millisecond)
	rec.Observe(ctx, OpUnlock, false, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	var histograms int
	for _, mf := range families {
		switch mf.GetName() {
		case "breedcore_operations_total":
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, lp := range m.GetLabel() {
					labels[lp.GetName()] = lp.GetValue()
				}
				counts[labels["operation"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
			}
		case "breedcore_operation_duration_seconds":
			histograms = len(mf.GetMetric())
		}
	}
	if counts["unlock/success"] != 2 || counts["unlock/error"] != 1 {
		t.Fatalf("unexpected counters %v", counts)
	}
	if histograms != 1 {
		t.Fatalf("expected one histogram series, got %d", histograms)
	}
}

func TestMultiRecorderFansOut(t *testing.T) {
	a, b := NewExpvarMetricsRecorder(""), NewExpvarMetricsRecorder("")
	MultiRecorder{a, nil, b}.Observe(context.Background(), OpExportTimeline, true, time.Millisecond)
	if a.Snapshot().Results[OpExportTimeline]["success"] != 1 || b.Snapshot().Results[OpExportTimeline]["success"] != 1 {
		t.Fatalf("observation not fanned out")
	}
}
