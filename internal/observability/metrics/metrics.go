// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interview_analysis"

// Metrics holds all Prometheus metrics for the service. Constructed once
// and injected into whichever component needs it; there is no package-level
// default instance.
type Metrics struct {
	// Ingress metrics
	EventsReceived    *prometheus.CounterVec // by wire generation (v1/v2)
	TranscriptsByType *prometheus.CounterVec // by canonical event type

	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsEnded   prometheus.Counter

	// Checklist metrics
	ChecklistUpdates *prometheus.CounterVec // by writer source

	// Analysis worker metrics
	AnalysesTotal   prometheus.Counter
	AnalysesFailed  prometheus.Counter
	AnalyzerLatency prometheus.Histogram

	// Route dispatch metrics
	RouteDispatchTotal    *prometheus.CounterVec // by route type
	RouteDispatchFailures *prometheus.CounterVec // by route type

	// Queue metrics
	QueueDepth *prometheus.GaugeVec // by queue name
}

// New creates and registers all metrics against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total transcript events received by wire generation",
		}, []string{"generation"}),
		TranscriptsByType: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_total",
			Help:      "Total canonical transcript events by event type",
		}, []string{"event_type"}),

		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total interview sessions started",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total interview sessions ended",
		}),

		ChecklistUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checklist_updates_total",
			Help:      "Total checklist transitions by writer source",
		}, []string{"source"}),

		AnalysesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total candidate responses analyzed successfully",
		}),
		AnalysesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_failed_total",
			Help:      "Total analysis attempts dropped after collaborator failure",
		}),
		AnalyzerLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analyzer_latency_seconds",
			Help:      "Latency of external analysis collaborator calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		RouteDispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_dispatch_total",
			Help:      "Total route dispatch attempts by route type",
		}, []string{"route_type"}),
		RouteDispatchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_dispatch_failures_total",
			Help:      "Total failed route dispatch attempts by route type",
		}, []string{"route_type"}),

		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current depth of the ingestion queues",
		}, []string{"queue"}),
	}
}

// RecordEventReceived records an accepted ingress event.
func (m *Metrics) RecordEventReceived(generation, eventType string) {
	m.EventsReceived.WithLabelValues(generation).Inc()
	m.TranscriptsByType.WithLabelValues(eventType).Inc()
}

// RecordChecklistUpdate records one checklist transition.
func (m *Metrics) RecordChecklistUpdate(source string) {
	m.ChecklistUpdates.WithLabelValues(source).Inc()
}

// RecordAnalysis records one analyzer call outcome.
func (m *Metrics) RecordAnalysis(err error, latencySeconds float64) {
	m.AnalyzerLatency.Observe(latencySeconds)
	if err != nil {
		m.AnalysesFailed.Inc()
		return
	}
	m.AnalysesTotal.Inc()
}

// RecordRouteDispatch records one per-route dispatch outcome.
func (m *Metrics) RecordRouteDispatch(routeType string, ok bool) {
	m.RouteDispatchTotal.WithLabelValues(routeType).Inc()
	if !ok {
		m.RouteDispatchFailures.WithLabelValues(routeType).Inc()
	}
}

// SetQueueDepth updates the depth gauge for one queue.
func (m *Metrics) SetQueueDepth(queue string, depth int) {
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}
