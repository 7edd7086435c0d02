// Package normalize maps the two historical transcript wire formats into
// the canonical event shape.
package normalize

import (
	"strings"
	"time"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/metrics"
)

// IngressEvent is the loosely-typed wire shape accepted by the transcript
// endpoint. It carries both historical field vocabularies; unknown extra
// fields are ignored by JSON decoding, not rejected.
type IngressEvent struct {
	// Legacy (v1) fields.
	LegacyKind    string `json:"Kind,omitempty"`
	LegacyText    string `json:"Text,omitempty"`
	LegacyTsUtc   string `json:"TsUtc,omitempty"`
	LegacyDetails string `json:"Details,omitempty"`

	// Canonical (v2, diarized) fields.
	EventType    string                `json:"event_type,omitempty"`
	Text         string                `json:"text,omitempty"`
	TimestampUTC string                `json:"timestamp_utc,omitempty"`
	SpeakerID    string                `json:"speaker_id,omitempty"`
	AudioStartMs *float64              `json:"audio_start_ms,omitempty"`
	AudioEndMs   *float64              `json:"audio_end_ms,omitempty"`
	Confidence   *float64              `json:"confidence,omitempty"`
	Metadata     *models.EventMetadata `json:"metadata,omitempty"`
	Error        *models.ErrorDetail   `json:"error,omitempty"`
}

// IsLegacy reports whether the event arrived in the v1 vocabulary.
func (e IngressEvent) IsLegacy() bool {
	return e.LegacyKind != ""
}

// v1 -> v2 event type vocabulary. Unknown kinds pass through lower-cased.
var legacyEventTypes = map[string]string{
	"recognizing":     models.EventPartial,
	"recognized":      models.EventFinal,
	"session_started": models.EventSessionStarted,
	"session_stopped": models.EventSessionStopped,
	"canceled":        models.EventError,
}

// Normalizer converts ingress events to canonical TranscriptEvents and
// counts which wire generation produced them (diagnostic only).
type Normalizer struct {
	metrics  *metrics.Metrics
	counters *metrics.Counters
	now      func() time.Time
}

// New creates a Normalizer reporting into the given metrics and counters.
func New(m *metrics.Metrics, c *metrics.Counters) *Normalizer {
	return &Normalizer{
		metrics:  m,
		counters: c,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Normalize produces exactly one canonical TranscriptEvent from either wire
// shape. No information is lost: legacy error details fold into metadata.
func (n *Normalizer) Normalize(req IngressEvent) models.TranscriptEvent {
	var event models.TranscriptEvent

	if req.IsLegacy() {
		kind := strings.ToLower(req.LegacyKind)
		eventType, ok := legacyEventTypes[kind]
		if !ok {
			eventType = kind
		}

		event = models.TranscriptEvent{
			EventType:    eventType,
			Text:         req.LegacyText,
			TimestampUTC: n.parseTimestamp(req.LegacyTsUtc),
		}
		if req.LegacyDetails != "" {
			event.Metadata = &models.EventMetadata{
				RawResponse: map[string]any{"error_details": req.LegacyDetails},
			}
		}

		n.counters.V1Events.Add(1)
		n.metrics.RecordEventReceived("v1", event.EventType)
		return event
	}

	event = models.TranscriptEvent{
		EventType:    req.EventType,
		Text:         req.Text,
		TimestampUTC: n.parseTimestamp(req.TimestampUTC),
		SpeakerID:    req.SpeakerID,
		AudioStartMs: req.AudioStartMs,
		AudioEndMs:   req.AudioEndMs,
		Confidence:   req.Confidence,
		Metadata:     req.Metadata,
		Error:        req.Error,
	}

	n.counters.V2Events.Add(1)
	n.metrics.RecordEventReceived("v2", event.EventType)
	return event
}

// parseTimestamp keeps the source clock when parseable, otherwise stamps
// arrival time. Source clocks are not trusted to be monotonic.
func (n *Normalizer) parseTimestamp(raw string) time.Time {
	if raw == "" {
		return n.now()
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return n.now()
	}
	return ts.UTC()
}
