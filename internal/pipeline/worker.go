package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
	"ai-interview-analysis-service/internal/observability/metrics"
	"ai-interview-analysis-service/internal/output"
	"ai-interview-analysis-service/internal/routes"
	"ai-interview-analysis-service/internal/service/analysis"
	"ai-interview-analysis-service/internal/service/checklist"
	"ai-interview-analysis-service/internal/service/session"
)

// AnalysisWorker is the single consumer of the analysis queue. One analyzer
// call per task; a failed call drops the task and the loop keeps going, so
// analysis results append in task order.
type AnalysisWorker struct {
	tasks      *Queue[AnalysisTask]
	sessions   *session.Manager
	checklist  *checklist.Manager
	analyzer   analysis.Analyzer
	advisor    analysis.Advisor
	store      *output.Store
	dispatcher *routes.Dispatcher
	metrics    *metrics.Metrics
	counters   *metrics.Counters
	instanceID string
	logger     zerolog.Logger
}

// NewAnalysisWorker wires an analysis worker. advisor may be nil.
func NewAnalysisWorker(
	tasks *Queue[AnalysisTask],
	sessions *session.Manager,
	cl *checklist.Manager,
	analyzer analysis.Analyzer,
	advisor analysis.Advisor,
	store *output.Store,
	dispatcher *routes.Dispatcher,
	m *metrics.Metrics,
	counters *metrics.Counters,
	instanceID string,
) *AnalysisWorker {
	return &AnalysisWorker{
		tasks:      tasks,
		sessions:   sessions,
		checklist:  cl,
		analyzer:   analyzer,
		advisor:    advisor,
		store:      store,
		dispatcher: dispatcher,
		metrics:    m,
		counters:   counters,
		instanceID: instanceID,
		logger:     logging.WithComponent("analysis"),
	}
}

// Run consumes tasks until the context is canceled.
func (w *AnalysisWorker) Run(ctx context.Context) error {
	for {
		task, err := w.tasks.Pop(ctx)
		if err != nil {
			return err
		}
		w.analyze(ctx, task)
	}
}

func (w *AnalysisWorker) analyze(ctx context.Context, task AnalysisTask) {
	sess := w.sessions.Session()
	if sess == nil || sess.SessionID != task.SessionID {
		w.logger.Debug().
			Str("sessionId", task.SessionID).
			Msg("Task for a stale session, dropped")
		return
	}

	sctx := w.sessions.Context()
	req := analysis.Request{
		SessionID:          sess.SessionID,
		CandidateName:      sess.CandidateName,
		QuestionText:       w.sessions.LastInterviewerQuestion(),
		ResponseText:       task.Event.Text,
		SpeakerID:          task.Event.SpeakerID,
		RecentConversation: sctx.RecentConversation,
		ChecklistLabels:    w.checklist.Labels(),
	}

	start := time.Now()
	result, err := w.analyzer.Analyze(ctx, req)
	w.metrics.RecordAnalysis(err, time.Since(start).Seconds())

	// Tool advice is independent of the analysis verdict.
	w.advise(ctx, req)

	if err != nil {
		// The response stays in the session transcript; only its
		// analysis is lost.
		w.counters.AnalysisFailures.Add(1)
		w.logger.Error().Err(err).Str("sessionId", sess.SessionID).Msg("Analysis failed, task dropped")
		return
	}
	w.counters.Analyses.Add(1)

	item := models.AnalysisItem{
		ResponseID:          uuid.NewString(),
		TimestampUTC:        task.Event.TimestampUTC,
		QuestionText:        req.QuestionText,
		ResponseText:        req.ResponseText,
		SpeakerID:           req.SpeakerID,
		RelevanceScore:      result.RelevanceScore,
		ClarityScore:        result.ClarityScore,
		KeyPoints:           orEmpty(result.KeyPoints),
		FollowUpSuggestions: orEmpty(result.FollowUpSuggestions),
		RawModelOutput:      result.Raw,
	}

	seed := models.SessionAnalysis{
		SessionID:     sess.SessionID,
		CandidateName: sess.CandidateName,
		StartedAt:     sess.StartedAt,
		EndedAt:       sess.EndedAt,
	}
	snapshot := w.checklist.Snapshot()
	if err := w.store.Append(seed, item, snapshot); err != nil {
		w.logger.Error().Err(err).Str("sessionId", sess.SessionID).Msg("Analysis persistence failed")
	}

	w.dispatcher.DispatchAll(ctx, routes.Payload{
		EventType:  routes.KindAnalysis,
		SessionID:  sess.SessionID,
		InstanceID: w.instanceID,
		SentAt:     time.Now().UTC(),
		Checklist:  snapshot,
		Data:       item,
	})
}

// advise runs the optional checklist advisor. Advice failures are dropped
// the same way analysis failures are.
func (w *AnalysisWorker) advise(ctx context.Context, req analysis.Request) {
	if w.advisor == nil {
		return
	}
	updates, err := w.advisor.Advise(ctx, req, w.checklist.Snapshot())
	if err != nil {
		w.logger.Warn().Err(err).Msg("Checklist advice failed, ignored")
		return
	}
	for _, u := range updates {
		if w.checklist.Update(u.Item, u.Status, u.Reason, models.SourceTool) {
			w.counters.ChecklistUpdates.Add(1)
		}
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
