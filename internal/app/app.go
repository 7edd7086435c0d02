// Package app assembles the service: configuration, observability, the
// analysis pipeline, output routes, and the HTTP surfaces.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-interview-analysis-service/internal/config"
	httpapi "ai-interview-analysis-service/internal/http"
	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability"
	"ai-interview-analysis-service/internal/observability/logging"
	"ai-interview-analysis-service/internal/observability/metrics"
	"ai-interview-analysis-service/internal/output"
	"ai-interview-analysis-service/internal/pipeline"
	"ai-interview-analysis-service/internal/routes"
	"ai-interview-analysis-service/internal/service/analysis"
	analysismock "ai-interview-analysis-service/internal/service/analysis/mock"
	analysisopenai "ai-interview-analysis-service/internal/service/analysis/openai"
	"ai-interview-analysis-service/internal/service/checklist"
	"ai-interview-analysis-service/internal/service/normalize"
	"ai-interview-analysis-service/internal/service/session"
	"ai-interview-analysis-service/internal/spec"
)

// Application holds the assembled service.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config

	dispatcher *routes.Dispatcher
	ingest     *pipeline.IngestWorker
	worker     *pipeline.AnalysisWorker
	api        *httpapi.Server
	obs        *observability.Server
	logger     zerolog.Logger
}

// New builds the full object graph from configuration. Construction is
// fail-fast: a bad product spec or analyzer setup stops the process.
func New(cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	logger := logging.WithComponent("application")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	counters := metrics.NewCounters()

	product, err := spec.Load(cfg.ProductSpecPath)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("productId", product.ProductID).
		Int("checklistItems", len(product.Checklist.Items)).
		Int("routes", len(product.Outputs.Routes)).
		Msg("Product spec loaded")

	store, err := output.NewStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	transcript := output.NewTranscriptLog(cfg.TranscriptFile)

	sessions := session.NewManager()
	cl, err := checklist.NewManager(product.Checklist.Items, m)
	if err != nil {
		return nil, err
	}

	built, err := routes.Build(product)
	if err != nil {
		return nil, err
	}
	dispatcher := routes.NewDispatcher(built, m, counters)

	analyzer, advisor, err := buildAnalyzer(cfg.Analyzer)
	if err != nil {
		return nil, err
	}

	events := pipeline.NewQueue[models.TranscriptEvent](func(depth int) {
		m.SetQueueDepth("events", depth)
	})
	tasks := pipeline.NewQueue[pipeline.AnalysisTask](func(depth int) {
		m.SetQueueDepth("analysis", depth)
	})

	ingest := pipeline.NewIngestWorker(events, tasks, sessions, cl, transcript, store, dispatcher, counters, cfg.Service.InstanceID)
	worker := pipeline.NewAnalysisWorker(tasks, sessions, cl, analyzer, advisor, store, dispatcher, m, counters, cfg.Service.InstanceID)

	api := httpapi.NewServer(httpapi.Deps{
		Sessions:   sessions,
		Checklist:  cl,
		Normalizer: normalize.New(m, counters),
		Events:     events,
		Tasks:      tasks,
		Store:      store,
		Transcript: transcript,
		Dispatcher: dispatcher,
		Metrics:    m,
		Counters:   counters,
		Product:    product,
		InstanceID: cfg.Service.InstanceID,
	})

	return &Application{
		Cfg:        cfg,
		dispatcher: dispatcher,
		ingest:     ingest,
		worker:     worker,
		api:        api,
		obs:        observability.NewServer(cfg.Observability.MetricsAddr, registry),
		logger:     logger,
	}, nil
}

// buildAnalyzer constructs the configured analysis collaborator. The advisor
// reuses the analyzer client when enabled.
func buildAnalyzer(cfg config.AnalyzerConfig) (analysis.Analyzer, analysis.Advisor, error) {
	switch cfg.Provider {
	case "mock":
		mock := analysismock.New()
		if cfg.AdvisorEnabled {
			return mock, mock, nil
		}
		return mock, nil, nil
	case "openai":
		client, err := analysisopenai.NewClient(cfg.APIKey, cfg.Model, cfg.Timeout, analysisopenai.WithBaseURL(cfg.BaseURL))
		if err != nil {
			return nil, nil, err
		}
		if cfg.AdvisorEnabled {
			return client, client, nil
		}
		return client, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown analyzer provider %q", cfg.Provider)
	}
}

// Run serves until the context is canceled, then drains everything.
func (a *Application) Run(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()
	a.logger.Info().
		Str("addr", a.Cfg.Service.Addr()).
		Str("instanceId", a.Cfg.Service.InstanceID).
		Msg("Interview analysis sink starting")

	a.obs.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(a.ingest.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(a.worker.Run(ctx)) })
	g.Go(func() error { return a.api.Start(a.Cfg.Service.Addr()) })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.api.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("API shutdown error")
		}
		if err := a.obs.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("Observability shutdown error")
		}
		if err := a.dispatcher.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Route close error")
		}
		return nil
	})

	err := g.Wait()
	a.logger.Info().Msg("Interview analysis sink stopped")
	return err
}

func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
