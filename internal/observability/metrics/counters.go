package metrics

import (
	"sync/atomic"
	"time"
)

// Counters tracks service statistics for the stats endpoint. Safe for
// concurrent use; the Prometheus metrics cover scrape-based observability,
// these cover the JSON read model the operator UI polls.
type Counters struct {
	startedAt time.Time

	EventsReceived     atomic.Int64
	PartialTranscripts atomic.Int64
	FinalTranscripts   atomic.Int64
	SessionEvents      atomic.Int64
	ErrorEvents        atomic.Int64
	V1Events           atomic.Int64
	V2Events           atomic.Int64
	Analyses           atomic.Int64
	AnalysisFailures   atomic.Int64
	ChecklistUpdates   atomic.Int64
	DispatchTotal      atomic.Int64
	DispatchFailures   atomic.Int64
}

// NewCounters creates a zeroed counter set stamped with the current time.
func NewCounters() *Counters {
	return &Counters{startedAt: time.Now().UTC()}
}

// CountersSnapshot is a point-in-time JSON view of the counters.
type CountersSnapshot struct {
	EventsReceived     int64     `json:"events_received"`
	PartialTranscripts int64     `json:"partial_transcripts"`
	FinalTranscripts   int64     `json:"final_transcripts"`
	SessionEvents      int64     `json:"session_events"`
	ErrorEvents        int64     `json:"errors"`
	V1Events           int64     `json:"v1_events"`
	V2Events           int64     `json:"v2_events"`
	Analyses           int64     `json:"agent_analyses"`
	AnalysisFailures   int64     `json:"agent_analysis_failures"`
	ChecklistUpdates   int64     `json:"checklist_updates"`
	DispatchTotal      int64     `json:"route_dispatch_total"`
	DispatchFailures   int64     `json:"route_dispatch_failures"`
	StartedAt          time.Time `json:"started_at"`
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		EventsReceived:     c.EventsReceived.Load(),
		PartialTranscripts: c.PartialTranscripts.Load(),
		FinalTranscripts:   c.FinalTranscripts.Load(),
		SessionEvents:      c.SessionEvents.Load(),
		ErrorEvents:        c.ErrorEvents.Load(),
		V1Events:           c.V1Events.Load(),
		V2Events:           c.V2Events.Load(),
		Analyses:           c.Analyses.Load(),
		AnalysisFailures:   c.AnalysisFailures.Load(),
		ChecklistUpdates:   c.ChecklistUpdates.Load(),
		DispatchTotal:      c.DispatchTotal.Load(),
		DispatchFailures:   c.DispatchFailures.Load(),
		StartedAt:          c.startedAt,
	}
}
