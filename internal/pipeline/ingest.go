package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
	"ai-interview-analysis-service/internal/observability/metrics"
	"ai-interview-analysis-service/internal/output"
	"ai-interview-analysis-service/internal/routes"
	"ai-interview-analysis-service/internal/service/checklist"
	"ai-interview-analysis-service/internal/service/session"
)

// AnalysisTask is one candidate response queued for analysis.
type AnalysisTask struct {
	SessionID string
	Event     models.TranscriptEvent
}

// IngestWorker drains normalized transcript events: it maintains the session
// transcript and checklist, writes the transcript log, and queues candidate
// responses for analysis.
type IngestWorker struct {
	events     *Queue[models.TranscriptEvent]
	analysis   *Queue[AnalysisTask]
	sessions   *session.Manager
	checklist  *checklist.Manager
	transcript *output.TranscriptLog
	store      *output.Store
	dispatcher *routes.Dispatcher
	counters   *metrics.Counters
	instanceID string
	logger     zerolog.Logger
}

// NewIngestWorker wires an ingest worker over its collaborators.
func NewIngestWorker(
	events *Queue[models.TranscriptEvent],
	analysisQueue *Queue[AnalysisTask],
	sessions *session.Manager,
	cl *checklist.Manager,
	transcript *output.TranscriptLog,
	store *output.Store,
	dispatcher *routes.Dispatcher,
	counters *metrics.Counters,
	instanceID string,
) *IngestWorker {
	return &IngestWorker{
		events:     events,
		analysis:   analysisQueue,
		sessions:   sessions,
		checklist:  cl,
		transcript: transcript,
		store:      store,
		dispatcher: dispatcher,
		counters:   counters,
		instanceID: instanceID,
		logger:     logging.WithComponent("ingest"),
	}
}

// Run consumes events until the context is canceled. Per-event failures are
// logged and never stop the loop.
func (w *IngestWorker) Run(ctx context.Context) error {
	for {
		event, err := w.events.Pop(ctx)
		if err != nil {
			return err
		}
		w.process(ctx, event)
	}
}

func (w *IngestWorker) process(ctx context.Context, event models.TranscriptEvent) {
	switch event.EventType {
	case models.EventPartial:
		w.counters.PartialTranscripts.Add(1)

	case models.EventSessionStarted, models.EventSessionStopped:
		// Provider stream lifecycle, distinct from the managed interview
		// session. Recorded, not acted on.
		w.counters.SessionEvents.Add(1)
		w.logger.Info().Str("eventType", event.EventType).Msg("Stream lifecycle event")

	case models.EventError:
		w.counters.ErrorEvents.Add(1)
		w.logger.Warn().
			Interface("error", event.Error).
			Interface("metadata", event.Metadata).
			Msg("Provider error event")

	case models.EventFinal:
		w.counters.FinalTranscripts.Add(1)
		w.processFinal(ctx, event)

	default:
		w.logger.Debug().Str("eventType", event.EventType).Msg("Ignoring event type")
	}
}

func (w *IngestWorker) processFinal(ctx context.Context, event models.TranscriptEvent) {
	if !w.sessions.IsActive() {
		w.logger.Debug().Msg("Final transcript outside a session, dropped")
		return
	}
	if err := w.sessions.AddTranscript(event); err != nil {
		w.logger.Warn().Err(err).Msg("Transcript append rejected")
		return
	}

	role := w.sessions.SpeakerRole(event.SpeakerID)
	w.transcript.Utterance(event, role)

	sess := w.sessions.Session()
	if sess == nil {
		return
	}

	if w.checklist.ApplyHeuristic(event.Text, role) {
		w.counters.ChecklistUpdates.Add(1)
	}

	// The stored snapshot is refreshed on every final so advisor updates
	// between heuristic hits are never left stale on disk.
	snapshot := w.checklist.Snapshot()
	if err := w.store.RefreshChecklist(sess.SessionID, snapshot); err != nil {
		w.logger.Warn().Err(err).Msg("Checklist refresh failed")
	}

	w.dispatcher.DispatchAll(ctx, routes.Payload{
		EventType:  routes.KindTranscript,
		SessionID:  sess.SessionID,
		InstanceID: w.instanceID,
		SentAt:     time.Now().UTC(),
		Checklist:  snapshot,
		Data: map[string]any{
			"text":          event.Text,
			"speaker_id":    event.SpeakerID,
			"role":          role,
			"timestamp_utc": event.TimestampUTC,
		},
	})

	if role == models.RoleCandidate && event.Text != "" {
		w.analysis.Push(AnalysisTask{SessionID: sess.SessionID, Event: event})
	}
}
