package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/metrics"
	"ai-interview-analysis-service/internal/output"
	"ai-interview-analysis-service/internal/pipeline"
	"ai-interview-analysis-service/internal/routes"
	"ai-interview-analysis-service/internal/service/checklist"
	"ai-interview-analysis-service/internal/service/normalize"
	"ai-interview-analysis-service/internal/service/session"
	"ai-interview-analysis-service/internal/spec"
)

type testServer struct {
	srv      *Server
	events   *pipeline.Queue[models.TranscriptEvent]
	store    *output.Store
	sessions *session.Manager
	ui       *routes.UIStream
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	c := metrics.NewCounters()
	store, err := output.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	product := &spec.ProductSpec{
		ProductID: "interview-analysis",
		Checklist: spec.Checklist{Items: []spec.ChecklistItem{
			{ID: "golang", Label: "Go experience", Keywords: []string{"golang"}},
		}},
		Outputs: spec.Outputs{Routes: []spec.Route{{ID: "ui", Type: spec.RouteUIStream}}},
	}
	cl, err := checklist.NewManager(product.Checklist.Items, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	built, err := routes.Build(product)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessions := session.NewManager()
	events := pipeline.NewQueue[models.TranscriptEvent](nil)
	tasks := pipeline.NewQueue[pipeline.AnalysisTask](nil)

	srv := NewServer(Deps{
		Sessions:   sessions,
		Checklist:  cl,
		Normalizer: normalize.New(m, c),
		Events:     events,
		Tasks:      tasks,
		Store:      store,
		Transcript: output.NewTranscriptLog(t.TempDir() + "/transcript.txt"),
		Dispatcher: routes.NewDispatcher(built, m, c),
		Metrics:    m,
		Counters:   c,
		Product:    product,
		InstanceID: "default",
	})
	return &testServer{srv: srv, events: events, store: store, sessions: sessions, ui: built[0].(*routes.UIStream)}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	return body
}

func TestPostTranscript_QueuesBothGenerations(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/transcript", `{"Kind": "recognized", "Text": "hello"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["event_type"] != "final" {
		t.Errorf("legacy kind not normalized: %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/transcript", `{"event_type": "partial", "text": "he", "speaker_id": "speaker_0"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	if ts.events.Len() != 2 {
		t.Errorf("expected 2 queued events, got %d", ts.events.Len())
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// End without a session is a conflict.
	if rec := ts.do(t, http.MethodPost, "/session/end", ""); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for end without session, got %d", rec.Code)
	}

	rec := ts.do(t, http.MethodPost, "/session/start", `{"candidate_name": "Jane Doe", "meeting_url": "https://meet.example.com/abc"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sessionID, _ := decodeBody(t, rec)["session_id"].(string)
	if !strings.HasPrefix(sessionID, "int_") {
		t.Errorf("unexpected session id %q", sessionID)
	}

	// Second start while active is a conflict, not a rollover.
	rec = ts.do(t, http.MethodPost, "/session/start", `{"candidate_name": "John Smith"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for start while active, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/session/map-speaker", `{"speaker_id": "speaker_1", "role": "candidate"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/session/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	status := decodeBody(t, rec)
	sess, _ := status["session"].(map[string]any)
	if sess["session_active"] != true {
		t.Errorf("expected active session in status: %v", status)
	}

	rec = ts.do(t, http.MethodPost, "/session/end", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["session_id"] != sessionID {
		t.Errorf("unexpected end response: %s", rec.Body.String())
	}
}

func TestStartSession_SeedsDocumentAndMapping(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/session/start",
		`{"candidate_name": "Jane Doe", "candidate_speaker_id": "speaker_1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	sessionID, _ := decodeBody(t, rec)["session_id"].(string)

	doc, err := ts.store.Load(sessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc == nil {
		t.Fatal("expected seeded analysis document")
	}
	if doc.CandidateName != "Jane Doe" || len(doc.ChecklistState) != 1 {
		t.Errorf("unexpected seed: %+v", doc)
	}
	if len(doc.AnalysisItems) != 0 {
		t.Errorf("seed should have no analysis items, got %d", len(doc.AnalysisItems))
	}

	ctx := ts.sessions.Context()
	if ctx.CandidateSpeakerID != "speaker_1" {
		t.Errorf("candidate speaker not mapped at start: %q", ctx.CandidateSpeakerID)
	}
}

func TestSessionLifecycleDispatchEnvelope(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/session/start", `{"candidate_name": "Jane Doe"}`)
	ts.do(t, http.MethodPost, "/session/end", "")

	recent := ts.ui.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected 2 dispatched payloads, got %d", len(recent))
	}
	if recent[0].EventType != routes.KindSessionStarted {
		t.Errorf("expected session_started, got %q", recent[0].EventType)
	}
	if recent[1].EventType != routes.KindSessionEnded {
		t.Errorf("expected session_ended, got %q", recent[1].EventType)
	}
	for _, p := range recent {
		if p.Checklist == nil {
			t.Errorf("payload %q missing checklist snapshot", p.EventType)
		}
	}
}

func TestStartSession_RequiresCandidateName(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodPost, "/session/start", `{"meeting_url": "x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMapSpeaker_Errors(t *testing.T) {
	ts := newTestServer(t)

	// No session yet.
	rec := ts.do(t, http.MethodPost, "/session/map-speaker", `{"speaker_id": "speaker_1", "role": "candidate"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}

	ts.do(t, http.MethodPost, "/session/start", `{"candidate_name": "Jane Doe"}`)

	rec = ts.do(t, http.MethodPost, "/session/map-speaker", `{"speaker_id": "speaker_1", "role": "moderator"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for invalid role, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/session/map-speaker", `{"role": "candidate"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing speaker id, got %d", rec.Code)
	}
}

func TestAnalysesEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/analyses", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if rec := ts.do(t, http.MethodGet, "/analyses/int_missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	ts.store.Write(&models.SessionAnalysis{SessionID: "int_x", CandidateName: "Jane"})
	rec = ts.do(t, http.MethodGet, "/analyses/int_x", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["session_id"] != "int_x" {
		t.Errorf("unexpected document: %s", rec.Body.String())
	}

	if rec := ts.do(t, http.MethodDelete, "/analyses/int_x", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/analyses/int_x", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHealthAndStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	health := decodeBody(t, rec)
	if health["status"] != "ok" || health["session_active"] != false {
		t.Errorf("unexpected health: %v", health)
	}

	ts.do(t, http.MethodPost, "/transcript", `{"event_type": "partial", "text": "x"}`)
	rec = ts.do(t, http.MethodGet, "/stats", "")
	stats := decodeBody(t, rec)
	inner, _ := stats["stats"].(map[string]any)
	if inner["events_received"].(float64) != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
	if stats["event_queue_depth"].(float64) != 1 {
		t.Errorf("expected queue depth 1: %v", stats)
	}
}

func TestProductSpecAndUIEvents(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/product-spec", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["product_id"] != "interview-analysis" {
		t.Errorf("unexpected product spec: %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/ui/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
