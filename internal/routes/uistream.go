package routes

import (
	"context"
	"sync"

	"ai-interview-analysis-service/internal/spec"
)

// uiStreamCapacity bounds the in-memory payload buffer served to UI polls.
const uiStreamCapacity = 100

// UIStream keeps recent payloads in memory for the UI polling endpoint.
// Delivery cannot fail; old payloads are evicted when the buffer is full.
type UIStream struct {
	mu       sync.Mutex
	id       string
	payloads []Payload
}

// NewUIStream creates an in-memory UI stream route.
func NewUIStream(id string) *UIStream {
	return &UIStream{id: id}
}

func (u *UIStream) ID() string   { return u.id }
func (u *UIStream) Type() string { return spec.RouteUIStream }

// Deliver appends the payload to the ring buffer.
func (u *UIStream) Deliver(_ context.Context, payload Payload) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.payloads = append(u.payloads, payload)
	if len(u.payloads) > uiStreamCapacity {
		u.payloads = u.payloads[len(u.payloads)-uiStreamCapacity:]
	}
	return nil
}

// Recent returns the buffered payloads, oldest first.
func (u *UIStream) Recent() []Payload {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Payload(nil), u.payloads...)
}

func (u *UIStream) Close() error { return nil }
