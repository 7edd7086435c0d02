package routes

import (
	"context"

	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
	"ai-interview-analysis-service/internal/observability/metrics"
)

// Dispatcher fans one payload out to every configured route, sequentially
// and failure-tolerant. It never returns an error: per-sink outcomes are the
// result.
type Dispatcher struct {
	routes   []Route
	metrics  *metrics.Metrics
	counters *metrics.Counters
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given routes.
func NewDispatcher(routes []Route, m *metrics.Metrics, c *metrics.Counters) *Dispatcher {
	return &Dispatcher{
		routes:   routes,
		metrics:  m,
		counters: c,
		logger:   logging.WithComponent("dispatcher"),
	}
}

// Routes returns the configured routes.
func (d *Dispatcher) Routes() []Route { return d.routes }

// DispatchAll delivers the payload to every route and reports one result
// per route. Failed sinks are logged and counted; the rest still receive
// the payload.
func (d *Dispatcher) DispatchAll(ctx context.Context, payload Payload) []models.RouteDispatchResult {
	results := make([]models.RouteDispatchResult, 0, len(d.routes))
	for _, route := range d.routes {
		result := models.RouteDispatchResult{
			RouteID:   route.ID(),
			RouteType: route.Type(),
			OK:        true,
		}
		if err := route.Deliver(ctx, payload); err != nil {
			result.OK = false
			result.Detail = err.Error()
			d.logger.Warn().
				Err(err).
				Str("routeId", route.ID()).
				Str("eventType", payload.EventType).
				Msg("Route delivery failed")
			d.counters.DispatchFailures.Add(1)
		}
		d.counters.DispatchTotal.Add(1)
		d.metrics.RecordRouteDispatch(route.Type(), result.OK)
		results = append(results, result)
	}
	return results
}

// Close closes every route, returning the first error encountered.
func (d *Dispatcher) Close() error {
	var first error
	for _, route := range d.routes {
		if err := route.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
