// Package session owns the lifecycle of the single interview session:
// start, speaker-role mapping, transcript accumulation, end.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
)

// Errors for rejected session operations. These are recoverable: the caller
// reports them and the process keeps running.
var (
	ErrSessionActive   = errors.New("a session is already active")
	ErrNoActiveSession = errors.New("no active session")
	ErrInvalidRole     = errors.New("invalid speaker role")
)

// contextTurns bounds how much conversation history the analysis
// collaborator sees.
const contextTurns = 20

// Manager manages one interview session at a time. At most one non-ended
// session exists; starting while one is active is rejected outright.
// Thread-safe: the ingress handlers and the analysis worker both read it.
type Manager struct {
	mu           sync.RWMutex
	session      *models.InterviewSession
	speakerRoles map[string]string
	// Session-scoped logger, rebound at every Start.
	logger zerolog.Logger
}

// NewManager creates a Manager with no active session.
func NewManager() *Manager {
	return &Manager{
		speakerRoles: make(map[string]string),
		logger:       logging.WithComponent("session"),
	}
}

// Start initializes a new interview session. Fails with ErrSessionActive if
// a session is already active; there is no implicit rollover.
func (m *Manager) Start(candidateName, meetingURL string) (models.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.EndedAt == nil {
		return models.InterviewSession{}, ErrSessionActive
	}

	now := time.Now().UTC()
	m.session = &models.InterviewSession{
		SessionID:        newSessionID(now),
		CandidateName:    candidateName,
		MeetingURL:       meetingURL,
		StartedAt:        now,
		SpeakerMappings:  []models.SpeakerMapping{},
		TranscriptEvents: []models.TranscriptEvent{},
	}
	m.speakerRoles = make(map[string]string)
	m.logger = logging.WithSession(m.session.SessionID)

	m.logger.Info().
		Str("candidate", candidateName).
		Msg("Session started")

	return *m.session, nil
}

// End marks the current session as ended and returns it. Returns nil when
// no session exists or it already ended. The ended session stays readable.
func (m *Manager) End() *models.InterviewSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.EndedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	m.session.EndedAt = &now

	m.logger.Info().
		Int("totalEvents", len(m.session.TranscriptEvents)).
		Msg("Session ended")

	ended := m.copySessionLocked()
	return &ended
}

// IsActive reports whether a non-ended session exists.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.session.EndedAt == nil
}

// Session returns a copy of the current session (active or ended), or nil.
func (m *Manager) Session() *models.InterviewSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return nil
	}
	s := m.copySessionLocked()
	return &s
}

// MapSpeaker binds a diarization speaker id to a role. The role set is
// closed; the last mapping for a speaker id wins.
func (m *Manager) MapSpeaker(speakerID, role, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNoActiveSession
	}
	if role != models.RoleCandidate && role != models.RoleInterviewer {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	m.speakerRoles[speakerID] = role

	// Replace any prior mapping for this speaker id.
	mappings := m.session.SpeakerMappings[:0]
	for _, sm := range m.session.SpeakerMappings {
		if sm.SpeakerID != speakerID {
			mappings = append(mappings, sm)
		}
	}
	displayName := name
	if displayName == "" && role == models.RoleCandidate {
		displayName = m.session.CandidateName
	}
	m.session.SpeakerMappings = append(mappings, models.SpeakerMapping{
		SpeakerID: speakerID,
		Role:      role,
		Name:      displayName,
	})

	m.logger.Info().
		Str("speakerId", speakerID).
		Str("role", role).
		Msg("Speaker mapped")
	return nil
}

// CandidateSpeakerID returns the speaker id mapped to the candidate role,
// or "" when not yet mapped.
func (m *Manager) CandidateSpeakerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.candidateSpeakerIDLocked()
}

// SpeakerRole returns the mapped role for a speaker id, or "" when unmapped.
func (m *Manager) SpeakerRole(speakerID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.speakerRoles[speakerID]
}

// AddTranscript appends an event to the session transcript. All event types
// are stored for audit; callers decide which subset feeds downstream.
func (m *Manager) AddTranscript(event models.TranscriptEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNoActiveSession
	}
	m.session.TranscriptEvents = append(m.session.TranscriptEvents, event)
	return nil
}

// RecentTranscripts returns the most recent events, newest last.
func (m *Manager) RecentTranscripts(count int, finalOnly bool) []models.TranscriptEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return nil
	}

	var events []models.TranscriptEvent
	for _, e := range m.session.TranscriptEvents {
		if finalOnly && !e.IsFinal() {
			continue
		}
		events = append(events, e)
	}
	if count > 0 && len(events) > count {
		events = events[len(events)-count:]
	}
	return events
}

// CandidateTranscripts returns events attributable to the speaker currently
// mapped to the candidate role. count <= 0 returns all.
func (m *Manager) CandidateTranscripts(count int, finalOnly bool) []models.TranscriptEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidateID := m.candidateSpeakerIDLocked()
	if candidateID == "" || m.session == nil {
		return nil
	}

	var events []models.TranscriptEvent
	for _, e := range m.session.TranscriptEvents {
		if e.SpeakerID != candidateID {
			continue
		}
		if finalOnly && !e.IsFinal() {
			continue
		}
		events = append(events, e)
	}
	if count > 0 && len(events) > count {
		events = events[len(events)-count:]
	}
	return events
}

// LastInterviewerQuestion returns the most recent final interviewer
// utterance. Linear backward scan; history stays bounded per session.
func (m *Manager) LastInterviewerQuestion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return ""
	}
	for i := len(m.session.TranscriptEvents) - 1; i >= 0; i-- {
		e := m.session.TranscriptEvents[i]
		if e.IsFinal() && e.Text != "" && m.speakerRoles[e.SpeakerID] == models.RoleInterviewer {
			return e.Text
		}
	}
	return ""
}

// Context assembles the read model for the analysis collaborator and the
// status endpoint. Returns a well-defined empty shape when no session exists.
func (m *Manager) Context() models.SessionContext {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return models.SessionContext{
			SpeakerMappings:    map[string]string{},
			RecentConversation: []models.ConversationTurn{},
		}
	}

	finals := 0
	var recent []models.TranscriptEvent
	for _, e := range m.session.TranscriptEvents {
		if e.IsFinal() {
			finals++
			recent = append(recent, e)
		}
	}
	if len(recent) > contextTurns {
		recent = recent[len(recent)-contextTurns:]
	}

	conversation := make([]models.ConversationTurn, 0, len(recent))
	for _, e := range recent {
		role := m.speakerRoles[e.SpeakerID]
		if role == "" {
			role = "unknown"
		}
		conversation = append(conversation, models.ConversationTurn{
			SpeakerID: e.SpeakerID,
			Role:      role,
			Text:      e.Text,
			Timestamp: e.TimestampUTC,
		})
	}

	mappings := make(map[string]string, len(m.speakerRoles))
	for id, role := range m.speakerRoles {
		mappings[id] = role
	}

	startedAt := m.session.StartedAt
	return models.SessionContext{
		SessionActive:      m.session.EndedAt == nil,
		SessionID:          m.session.SessionID,
		CandidateName:      m.session.CandidateName,
		MeetingURL:         m.session.MeetingURL,
		StartedAt:          &startedAt,
		SpeakerMappings:    mappings,
		CandidateSpeakerID: m.candidateSpeakerIDLocked(),
		RecentConversation: conversation,
		TotalEvents:        len(m.session.TranscriptEvents),
		FinalEvents:        finals,
	}
}

func (m *Manager) candidateSpeakerIDLocked() string {
	for id, role := range m.speakerRoles {
		if role == models.RoleCandidate {
			return id
		}
	}
	return ""
}

func (m *Manager) copySessionLocked() models.InterviewSession {
	s := *m.session
	s.SpeakerMappings = append([]models.SpeakerMapping(nil), m.session.SpeakerMappings...)
	s.TranscriptEvents = append([]models.TranscriptEvent(nil), m.session.TranscriptEvents...)
	if m.session.EndedAt != nil {
		ended := *m.session.EndedAt
		s.EndedAt = &ended
	}
	return s
}

// newSessionID builds a unique, time-prefixed session id, e.g.
// "int_20260131_103000_a1b2c3".
func newSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("int_%s_%s", now.Format("20060102_150405"), suffix)
}
