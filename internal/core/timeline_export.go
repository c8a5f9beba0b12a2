package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"breedcore/internal/blob"
	"breedcore/internal/logger"
)

// TimelineExportPrefix is the blob key prefix for exported timelines.
const TimelineExportPrefix = "timelines/"

var exportNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// TimelineExporter writes built timelines as JSON documents to blob storage.
type TimelineExporter struct {
	store   blob.Store
	metrics MetricsRecorder
	log     *logger.Logger
}

// NewTimelineExporter wires an exporter to a blob store.
func NewTimelineExporter(store blob.Store, metrics MetricsRecorder, log *logger.Logger) *TimelineExporter {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &TimelineExporter{store: store, metrics: metrics, log: log}
}

// ExportKey returns the blob key used for an export name.
func ExportKey(name string) string {
	return TimelineExportPrefix + name + ".json"
}

// Export stores the timeline under timelines/<name>.json, replacing any
// previous export of the same name.
func (e *TimelineExporter) Export(ctx context.Context, name string, timeline Timeline) (blob.Info, error) {
	started := time.Now()
	if !exportNamePattern.MatchString(name) {
		return blob.Info{}, fmt.Errorf("invalid export name %q", name)
	}
	payload, err := json.MarshalIndent(timeline, "", "  ")
	if err != nil {
		e.metrics.Observe(ctx, OpExportTimeline, false, time.Since(started))
		return blob.Info{}, fmt.Errorf("encode timeline: %w", err)
	}
	info, err := e.store.Put(ctx, ExportKey(name), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"plans":         strconv.Itoa(len(timeline.Selected)),
			"horizon-start": timeline.Horizon.Start.Format(time.DateOnly),
			"horizon-end":   timeline.Horizon.End.Format(time.DateOnly),
		},
		Overwrite: true,
	})
	if err != nil {
		e.metrics.Observe(ctx, OpExportTimeline, false, time.Since(started))
		return blob.Info{}, fmt.Errorf("store timeline %s: %w", name, err)
	}
	e.metrics.Observe(ctx, OpExportTimeline, true, time.Since(started))
	e.log.WithFields(map[string]any{"key": info.Key, "bytes": info.Size, "driver": e.store.Driver()}).Info("timeline exported")
	return info, nil
}

// Load reads a previously exported timeline.
func (e *TimelineExporter) Load(ctx context.Context, name string) (Timeline, error) {
	_, rc, err := e.store.Get(ctx, ExportKey(name))
	if err != nil {
		return Timeline{}, err
	}
	defer func() { _ = rc.Close() }()
	var timeline Timeline
	if err := json.NewDecoder(rc).Decode(&timeline); err != nil {
		return Timeline{}, fmt.Errorf("decode timeline %s: %w", name, err)
	}
	return timeline, nil
}

// List returns the names of every stored export.
func (e *TimelineExporter) List(ctx context.Context) ([]string, error) {
	infos, err := e.store.List(ctx, TimelineExportPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, TimelineExportPrefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	return names, nil
}
