// Package routes delivers analysis payloads to the configured output sinks.
// Delivery is best effort per sink: one failing sink never blocks the others
// and never fails the pipeline.
package routes

import (
	"context"
	"fmt"
	"time"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/spec"
)

// Envelope event types. This vocabulary is the wire contract consumed by
// webhook and kafka subscribers.
const (
	KindTranscript     = "transcript"
	KindAnalysis       = "analysis"
	KindSessionStarted = "session_started"
	KindSessionEnded   = "session_ended"
)

// Payload is the envelope delivered to every sink. Every payload carries the
// checklist snapshot current at dispatch time.
type Payload struct {
	EventType  string                `json:"event_type"`
	SessionID  string                `json:"session_id"`
	InstanceID string                `json:"instance_id,omitempty"`
	SentAt     time.Time             `json:"sent_at"`
	Checklist  []models.ChecklistRow `json:"checklist"`
	Data       any                   `json:"data"`
}

// Route is one configured output sink.
type Route interface {
	ID() string
	Type() string

	// Deliver pushes one payload. An error marks this delivery failed;
	// it carries no obligation on future deliveries.
	Deliver(ctx context.Context, payload Payload) error

	Close() error
}

// Build constructs the enabled routes from a validated product spec. Route
// construction is fail-fast: an unbuildable enabled route is a configuration
// error.
func Build(ps *spec.ProductSpec) ([]Route, error) {
	var built []Route
	for _, rc := range ps.Outputs.Routes {
		if !rc.IsEnabled() {
			continue
		}

		var (
			route Route
			err   error
		)
		switch rc.Type {
		case spec.RouteUIStream:
			route = NewUIStream(rc.ID)
		case spec.RouteWebhook:
			route, err = NewWebhook(rc)
		case spec.RouteKafka:
			route, err = NewKafka(rc)
		case spec.RouteTeamsChat, spec.RouteTeamsDM:
			err = fmt.Errorf("route type %q is not implemented", rc.Type)
		default:
			err = fmt.Errorf("unsupported route type %q", rc.Type)
		}
		if err != nil {
			closeAll(built)
			return nil, fmt.Errorf("build route %q: %w", rc.ID, err)
		}
		built = append(built, route)
	}

	if len(built) == 0 {
		return nil, fmt.Errorf("no enabled output routes")
	}
	return built, nil
}

func closeAll(routes []Route) {
	for _, r := range routes {
		_ = r.Close()
	}
}
