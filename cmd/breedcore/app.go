package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"breedcore/internal/blob"
	"breedcore/internal/config"
	"breedcore/internal/core"
	"breedcore/internal/infra/forecast"
	"breedcore/internal/logger"
)

// Process-wide recorders; both expvar and the default Prometheus registry
// reject duplicate registration.
var (
	expvarRecorder     = sync.OnceValue(func() *core.ExpvarMetricsRecorder { return core.NewExpvarMetricsRecorder("breedcore") })
	prometheusRecorder = sync.OnceValue(func() *core.PrometheusRecorder { return core.NewPrometheusRecorder(prometheus.DefaultRegisterer) })
)

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	store      core.PersistentStore
	service    *core.Service
	forecaster *forecast.Forecaster
	locks      *core.LockController
	timelines  *core.TimelineService
	exporter   *core.TimelineExporter
}

func openApp(ctx context.Context, configFile string, out io.Writer) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	log := logger.New().WithField("component", "breedcore")

	store, err := core.OpenPersistentStore(cfg.Storage(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open plan store: %w", err)
	}
	a := &app{cfg: cfg, log: log, store: store}
	a.service = core.NewService(store, core.WithServiceLogger(log))

	a.forecaster, err = forecast.Load(cfg.SpeciesFile)
	if err != nil {
		a.close()
		return nil, err
	}
	prefs, err := core.LoadPreferenceFile(cfg.PreferencesFile)
	if err != nil {
		a.close()
		return nil, err
	}
	blobs, err := blob.Open(ctx, cfg.Blob())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open export store: %w", err)
	}

	metrics := metricsRecorder(cfg.MetricsBackend)
	warn := color.New(color.FgYellow)
	notify := core.NotifierFunc(func(_ context.Context, n core.Notice) {
		_, _ = warn.Fprintf(out, "! %s\n", n.Message)
	})
	a.locks = core.NewLockController(a.service, a.forecaster,
		core.WithNotifier(notify),
		core.WithMetrics(metrics),
		core.WithLogger(log),
	)
	a.timelines = core.NewTimelineService(a.service, a.forecaster, prefs.Resolve(),
		core.WithTimelineMetrics(metrics),
		core.WithTimelineLogger(log),
	)
	a.exporter = core.NewTimelineExporter(blobs, metrics, log)
	return a, nil
}

func metricsRecorder(backend string) core.MetricsRecorder {
	switch backend {
	case "expvar":
		return expvarRecorder()
	case "prometheus":
		return prometheusRecorder()
	default:
		return core.MultiRecorder{}
	}
}

func (a *app) close() {
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.log.WithError(err).Warn("close plan store")
		}
	}
}
