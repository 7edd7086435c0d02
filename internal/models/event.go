// Package models defines the data structures for transcript events,
// interview sessions and analysis documents.
package models

import "time"

// Canonical transcript event types (v2 vocabulary).
const (
	EventPartial        = "partial"
	EventFinal          = "final"
	EventSessionStarted = "session_started"
	EventSessionStopped = "session_stopped"
	EventError          = "error"
)

// EventMetadata carries opaque provider details attached to an event.
type EventMetadata struct {
	MeetingID   string         `json:"meeting_id,omitempty"`
	CallID      string         `json:"call_id,omitempty"`
	RawResponse map[string]any `json:"raw_response,omitempty"`
	Provider    string         `json:"provider,omitempty"`
}

// ErrorDetail holds error details for "error" events.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TranscriptEvent is one canonical STT observation. Immutable once
// constructed; owned by whichever queue currently holds it.
type TranscriptEvent struct {
	EventType    string         `json:"event_type"`
	Text         string         `json:"text,omitempty"`
	TimestampUTC time.Time      `json:"timestamp_utc"`
	SpeakerID    string         `json:"speaker_id,omitempty"`
	AudioStartMs *float64       `json:"audio_start_ms,omitempty"`
	AudioEndMs   *float64       `json:"audio_end_ms,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Metadata     *EventMetadata `json:"metadata,omitempty"`
	Error        *ErrorDetail   `json:"error,omitempty"`
}

// IsFinal reports whether the event is a completed utterance.
func (e TranscriptEvent) IsFinal() bool {
	return e.EventType == EventFinal
}
