package models

import "time"

// Speaker roles in an interview. Closed set; MapSpeaker rejects anything else.
const (
	RoleCandidate   = "candidate"
	RoleInterviewer = "interviewer"
)

// SpeakerMapping binds a diarization speaker id to an interview role.
type SpeakerMapping struct {
	SpeakerID string `json:"speaker_id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
}

// InterviewSession tracks one interview: metadata, speaker mappings and the
// append-only transcript. EndedAt is nil while the session is active.
type InterviewSession struct {
	SessionID        string            `json:"session_id"`
	CandidateName    string            `json:"candidate_name"`
	MeetingURL       string            `json:"meeting_url"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          *time.Time        `json:"ended_at,omitempty"`
	SpeakerMappings  []SpeakerMapping  `json:"speaker_mappings"`
	TranscriptEvents []TranscriptEvent `json:"transcript_events"`
}

// ConversationTurn is one annotated final utterance in the context read model.
type ConversationTurn struct {
	SpeakerID string    `json:"speaker_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionContext is the read model handed to the analysis collaborator and
// the status endpoint. When no session is active it is returned with
// SessionActive=false and empty collections rather than failing.
type SessionContext struct {
	SessionActive      bool               `json:"session_active"`
	SessionID          string             `json:"session_id,omitempty"`
	CandidateName      string             `json:"candidate_name,omitempty"`
	MeetingURL         string             `json:"meeting_url,omitempty"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	SpeakerMappings    map[string]string  `json:"speaker_mappings"`
	CandidateSpeakerID string             `json:"candidate_speaker_id,omitempty"`
	RecentConversation []ConversationTurn `json:"recent_conversation"`
	TotalEvents        int                `json:"total_events"`
	FinalEvents        int                `json:"final_events"`
}
