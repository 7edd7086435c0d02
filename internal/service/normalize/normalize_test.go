package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/metrics"
)

func newNormalizer() (*Normalizer, *metrics.Counters) {
	c := metrics.NewCounters()
	m := metrics.New(prometheus.NewRegistry())
	return New(m, c), c
}

func TestNormalize_LegacyEventTypes(t *testing.T) {
	tests := []struct {
		kind     string
		expected string
	}{
		{"recognizing", models.EventPartial},
		{"recognized", models.EventFinal},
		{"session_started", models.EventSessionStarted},
		{"session_stopped", models.EventSessionStopped},
		{"canceled", models.EventError},
		{"Recognized", models.EventFinal},
		{"SpeechHypothesis", "speechhypothesis"}, // unknown kinds pass through lower-cased
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			n, _ := newNormalizer()
			event := n.Normalize(IngressEvent{LegacyKind: tt.kind, LegacyText: "hello"})
			if event.EventType != tt.expected {
				t.Errorf("expected event type %q, got %q", tt.expected, event.EventType)
			}
			if event.Text != "hello" {
				t.Errorf("expected text 'hello', got %q", event.Text)
			}
		})
	}
}

func TestNormalize_LegacyDetailsFoldedIntoMetadata(t *testing.T) {
	n, _ := newNormalizer()

	event := n.Normalize(IngressEvent{
		LegacyKind:    "canceled",
		LegacyDetails: "connection reset by provider",
	})

	if event.Metadata == nil {
		t.Fatal("expected metadata for legacy error details")
	}
	if event.Metadata.RawResponse["error_details"] != "connection reset by provider" {
		t.Errorf("unexpected metadata: %+v", event.Metadata.RawResponse)
	}
}

func TestNormalize_CanonicalErrorDetailPassThrough(t *testing.T) {
	n, _ := newNormalizer()

	event := n.Normalize(IngressEvent{
		EventType: models.EventError,
		Error:     &models.ErrorDetail{Code: "4003", Message: "stream closed by provider"},
	})

	if event.EventType != models.EventError {
		t.Errorf("unexpected event type %q", event.EventType)
	}
	if event.Error == nil || event.Error.Code != "4003" {
		t.Errorf("error detail not carried through: %+v", event.Error)
	}
}

func TestNormalize_LegacyTimestamp(t *testing.T) {
	n, _ := newNormalizer()

	event := n.Normalize(IngressEvent{
		LegacyKind:  "recognized",
		LegacyTsUtc: "2026-01-28T20:33:12.3456789Z",
	})

	expected := time.Date(2026, 1, 28, 20, 33, 12, 345678900, time.UTC)
	if !event.TimestampUTC.Equal(expected) {
		t.Errorf("expected timestamp %v, got %v", expected, event.TimestampUTC)
	}
}

func TestNormalize_MissingTimestampStampsArrival(t *testing.T) {
	n, _ := newNormalizer()
	before := time.Now().UTC()

	event := n.Normalize(IngressEvent{EventType: models.EventFinal, Text: "hi"})

	if event.TimestampUTC.Before(before) {
		t.Errorf("expected arrival timestamp, got %v", event.TimestampUTC)
	}
}

func TestNormalize_CanonicalPassThrough(t *testing.T) {
	n, _ := newNormalizer()
	confidence := 0.95
	start := 1234.5

	event := n.Normalize(IngressEvent{
		EventType:    models.EventFinal,
		Text:         "I have five years of Go experience.",
		TimestampUTC: "2026-01-31T10:32:00Z",
		SpeakerID:    "speaker_1",
		Confidence:   &confidence,
		AudioStartMs: &start,
	})

	if event.EventType != models.EventFinal {
		t.Errorf("unexpected event type %q", event.EventType)
	}
	if event.SpeakerID != "speaker_1" {
		t.Errorf("unexpected speaker id %q", event.SpeakerID)
	}
	if event.Confidence == nil || *event.Confidence != 0.95 {
		t.Errorf("unexpected confidence %v", event.Confidence)
	}
	if event.AudioStartMs == nil || *event.AudioStartMs != 1234.5 {
		t.Errorf("unexpected audio start %v", event.AudioStartMs)
	}
}

func TestNormalize_GenerationCounters(t *testing.T) {
	n, c := newNormalizer()

	n.Normalize(IngressEvent{LegacyKind: "recognized"})
	n.Normalize(IngressEvent{EventType: models.EventFinal})
	n.Normalize(IngressEvent{EventType: models.EventPartial})

	snap := c.Snapshot()
	if snap.V1Events != 1 {
		t.Errorf("expected 1 v1 event, got %d", snap.V1Events)
	}
	if snap.V2Events != 2 {
		t.Errorf("expected 2 v2 events, got %d", snap.V2Events)
	}
}

func TestIngressEvent_UnknownFieldsIgnored(t *testing.T) {
	payload := `{
		"event_type": "final",
		"text": "hello",
		"speaker_id": "speaker_0",
		"vendor_extension": {"foo": "bar"}
	}`

	var req IngressEvent
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if req.EventType != "final" || req.SpeakerID != "speaker_0" {
		t.Errorf("unexpected decoded request: %+v", req)
	}
}
