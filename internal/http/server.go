// Package http exposes the ingress and control API of the analysis sink.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
	"ai-interview-analysis-service/internal/observability/metrics"
	"ai-interview-analysis-service/internal/output"
	"ai-interview-analysis-service/internal/pipeline"
	"ai-interview-analysis-service/internal/routes"
	"ai-interview-analysis-service/internal/service/checklist"
	"ai-interview-analysis-service/internal/service/normalize"
	"ai-interview-analysis-service/internal/service/session"
	"ai-interview-analysis-service/internal/spec"
)

// Server is the ingress HTTP API. Transcript ingestion is decoupled from
// processing: POST /transcript only normalizes and enqueues.
type Server struct {
	echo       *echo.Echo
	sessions   *session.Manager
	checklist  *checklist.Manager
	normalizer *normalize.Normalizer
	events     *pipeline.Queue[models.TranscriptEvent]
	tasks      *pipeline.Queue[pipeline.AnalysisTask]
	store      *output.Store
	transcript *output.TranscriptLog
	dispatcher *routes.Dispatcher
	metrics    *metrics.Metrics
	counters   *metrics.Counters
	product    *spec.ProductSpec
	instanceID string
	logger     zerolog.Logger
}

// Deps carries the collaborators of the HTTP server.
type Deps struct {
	Sessions   *session.Manager
	Checklist  *checklist.Manager
	Normalizer *normalize.Normalizer
	Events     *pipeline.Queue[models.TranscriptEvent]
	Tasks      *pipeline.Queue[pipeline.AnalysisTask]
	Store      *output.Store
	Transcript *output.TranscriptLog
	Dispatcher *routes.Dispatcher
	Metrics    *metrics.Metrics
	Counters   *metrics.Counters
	Product    *spec.ProductSpec
	InstanceID string
}

// NewServer wires the API routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		sessions:   deps.Sessions,
		checklist:  deps.Checklist,
		normalizer: deps.Normalizer,
		events:     deps.Events,
		tasks:      deps.Tasks,
		store:      deps.Store,
		transcript: deps.Transcript,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		counters:   deps.Counters,
		product:    deps.Product,
		instanceID: deps.InstanceID,
		logger:     logging.WithComponent("http"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.POST("/transcript", s.PostTranscript)
	e.POST("/session/start", s.StartSession)
	e.POST("/session/map-speaker", s.MapSpeaker)
	e.POST("/session/end", s.EndSession)
	e.GET("/session/status", s.SessionStatus)

	e.GET("/analyses", s.ListAnalyses)
	e.GET("/analyses/:session_id", s.GetAnalysis)
	e.DELETE("/analyses/:session_id", s.DeleteAnalysis)

	e.GET("/ui/events", s.UIEvents)
	e.GET("/product-spec", s.ProductSpec)
	e.GET("/health", s.Health)
	e.GET("/stats", s.Stats)

	s.echo = e
	return s
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start runs the listener until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Starting ingress HTTP server")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down ingress HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) dispatchSessionEvent(ctx context.Context, eventType, sessionID string, data any) {
	s.dispatcher.DispatchAll(ctx, routes.Payload{
		EventType:  eventType,
		SessionID:  sessionID,
		InstanceID: s.instanceID,
		SentAt:     time.Now().UTC(),
		Checklist:  s.checklist.Snapshot(),
		Data:       data,
	})
}
