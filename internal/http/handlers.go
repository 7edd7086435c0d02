package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/output"
	"ai-interview-analysis-service/internal/routes"
	"ai-interview-analysis-service/internal/service/normalize"
	"ai-interview-analysis-service/internal/service/session"
)

// PostTranscript accepts one transcript event in either wire generation,
// normalizes it, and queues it. The producer is never blocked on processing.
func (s *Server) PostTranscript(c echo.Context) error {
	var req normalize.IngressEvent
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid transcript payload", "details": err.Error()})
	}

	event := s.normalizer.Normalize(req)
	s.counters.EventsReceived.Add(1)
	s.events.Push(event)

	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued", "event_type": event.EventType})
}

// StartSession begins a new interview session. An already active session is
// a conflict, never an implicit rollover.
func (s *Server) StartSession(c echo.Context) error {
	var req struct {
		CandidateName      string `json:"candidate_name"`
		MeetingURL         string `json:"meeting_url"`
		CandidateSpeakerID string `json:"candidate_speaker_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request", "details": err.Error()})
	}
	if strings.TrimSpace(req.CandidateName) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "candidate_name is required"})
	}

	started, err := s.sessions.Start(req.CandidateName, req.MeetingURL)
	if err != nil {
		if errors.Is(err, session.ErrSessionActive) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "a session is already active"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start session", "details": err.Error()})
	}

	s.checklist.Reset()
	s.metrics.SessionsStarted.Inc()
	s.transcript.SessionStarted(started)

	if req.CandidateSpeakerID != "" {
		if err := s.sessions.MapSpeaker(req.CandidateSpeakerID, models.RoleCandidate, req.CandidateName); err != nil {
			s.logger.Warn().Err(err).Msg("Immediate candidate mapping failed")
		}
	}

	// Seed the analysis document so the session is visible to readers
	// before the first analyzed response.
	seed := &models.SessionAnalysis{
		SessionID:      started.SessionID,
		CandidateName:  started.CandidateName,
		StartedAt:      started.StartedAt,
		ChecklistState: s.checklist.Snapshot(),
	}
	if err := s.store.Write(seed); err != nil {
		s.logger.Warn().Err(err).Str("sessionId", started.SessionID).Msg("Analysis document seed failed")
	}

	s.dispatchSessionEvent(c.Request().Context(), routes.KindSessionStarted, started.SessionID, map[string]any{
		"candidate_name": started.CandidateName,
		"started_at":     started.StartedAt,
	})

	return c.JSON(http.StatusCreated, map[string]any{
		"session_id":     started.SessionID,
		"candidate_name": started.CandidateName,
		"started_at":     started.StartedAt,
	})
}

// MapSpeaker binds a diarization speaker id to an interview role.
func (s *Server) MapSpeaker(c echo.Context) error {
	var req struct {
		SpeakerID string `json:"speaker_id"`
		Role      string `json:"role"`
		Name      string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request", "details": err.Error()})
	}
	if strings.TrimSpace(req.SpeakerID) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "speaker_id is required"})
	}

	if err := s.sessions.MapSpeaker(req.SpeakerID, req.Role, req.Name); err != nil {
		switch {
		case errors.Is(err, session.ErrNoActiveSession):
			return c.JSON(http.StatusConflict, map[string]string{"error": "no active session"})
		case errors.Is(err, session.ErrInvalidRole):
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "role must be candidate or interviewer"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to map speaker", "details": err.Error()})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"speaker_id": req.SpeakerID, "role": req.Role})
}

// EndSession ends the active session and finalizes its analysis document.
func (s *Server) EndSession(c echo.Context) error {
	ended := s.sessions.End()
	if ended == nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no active session"})
	}

	s.metrics.SessionsEnded.Inc()
	s.transcript.SessionEnded(*ended)
	s.finalizeDocument(ended.SessionID)
	s.dispatchSessionEvent(c.Request().Context(), routes.KindSessionEnded, ended.SessionID, map[string]any{
		"ended_at":     ended.EndedAt,
		"total_events": len(ended.TranscriptEvents),
	})

	return c.JSON(http.StatusOK, map[string]any{
		"session_id":   ended.SessionID,
		"ended_at":     ended.EndedAt,
		"total_events": len(ended.TranscriptEvents),
	})
}

// finalizeDocument stamps ended_at and the final checklist onto the stored
// analysis document, when one exists. Best effort.
func (s *Server) finalizeDocument(sessionID string) {
	doc, err := s.store.Load(sessionID)
	if err != nil || doc == nil {
		if err != nil {
			s.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Analysis document unreadable at session end")
		}
		return
	}
	if ended := s.sessions.Session(); ended != nil && ended.EndedAt != nil {
		doc.EndedAt = ended.EndedAt
	}
	doc.ChecklistState = s.checklist.Snapshot()
	if err := s.store.Write(doc); err != nil {
		s.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Analysis document finalize failed")
	}
}

// SessionStatus reports the session read model plus the live checklist.
func (s *Server) SessionStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"session":   s.sessions.Context(),
		"checklist": s.checklist.Snapshot(),
	})
}

// ListAnalyses returns the session ids with a stored analysis document.
func (s *Server) ListAnalyses(c echo.Context) error {
	ids, err := s.store.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list analyses", "details": err.Error()})
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"session_ids": ids})
}

// GetAnalysis returns one stored analysis document.
func (s *Server) GetAnalysis(c echo.Context) error {
	doc, err := s.store.Load(c.Param("session_id"))
	if err != nil {
		var readErr *output.ReadError
		if errors.As(err, &readErr) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "analysis document is corrupt", "details": readErr.Reason})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load analysis", "details": err.Error()})
	}
	if doc == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "analysis not found"})
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteAnalysis removes one stored analysis document.
func (s *Server) DeleteAnalysis(c echo.Context) error {
	if err := s.store.Delete(c.Param("session_id")); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete analysis", "details": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// UIEvents serves the buffered payloads of the first ui_stream route.
func (s *Server) UIEvents(c echo.Context) error {
	for _, route := range s.dispatcher.Routes() {
		if ui, ok := route.(*routes.UIStream); ok {
			return c.JSON(http.StatusOK, map[string]any{"events": ui.Recent()})
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "no ui_stream route configured"})
}

// ProductSpec returns the loaded product configuration.
func (s *Server) ProductSpec(c echo.Context) error {
	return c.JSON(http.StatusOK, s.product)
}

// Health reports liveness and the session flag.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"instance_id":    s.instanceID,
		"session_active": s.sessions.IsActive(),
	})
}

// Stats reports the process counters and queue depths.
func (s *Server) Stats(c echo.Context) error {
	snap := s.counters.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"stats":                snap,
		"event_queue_depth":    s.events.Len(),
		"analysis_queue_depth": s.tasks.Len(),
	})
}
