package output

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ai-interview-analysis-service/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func sampleItem(id string, relevance, clarity float64) models.AnalysisItem {
	return models.AnalysisItem{
		ResponseID:          id,
		TimestampUTC:        time.Now().UTC(),
		ResponseText:        "sample response",
		RelevanceScore:      relevance,
		ClarityScore:        clarity,
		KeyPoints:           []string{"point"},
		FollowUpSuggestions: []string{},
	}
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	a := &models.SessionAnalysis{
		SessionID:     "int_20260131_103000_abc123",
		CandidateName: "Jane Doe",
		StartedAt:     time.Now().UTC().Truncate(time.Second),
		AnalysisItems: []models.AnalysisItem{
			sampleItem("r1", 0.8, 0.6),
			sampleItem("r2", 0.6, 0.8),
		},
	}
	if err := s.Write(a); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	got, err := s.Load(a.SessionID)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if got == nil {
		t.Fatal("expected document")
	}
	if got.OverallRelevance == nil || *got.OverallRelevance != 0.7 {
		t.Errorf("unexpected overall relevance %v", got.OverallRelevance)
	}
	if got.TotalResponsesAnalyzed != 2 {
		t.Errorf("unexpected total %d", got.TotalResponsesAnalyzed)
	}

	// The on-disk file carries a _meta block that Load strips.
	raw, _ := os.ReadFile(filepath.Join(s.Dir(), a.SessionID+"_analysis.json"))
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("on-disk document not valid JSON: %v", err)
	}
	if _, ok := onDisk["_meta"]; !ok {
		t.Error("expected _meta block on disk")
	}
}

func TestWrite_EmptyItemsHaveNullScores(t *testing.T) {
	s := newTestStore(t)

	a := &models.SessionAnalysis{SessionID: "int_empty", CandidateName: "Jane"}
	if err := s.Write(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, _ := os.ReadFile(filepath.Join(s.Dir(), "int_empty_analysis.json"))
	if !strings.Contains(string(raw), `"overall_relevance": null`) {
		t.Error("expected null overall_relevance for empty document")
	}
}

func TestLoad_AbsentIsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Load("int_missing")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil for absent document, got %v, %v", got, err)
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "int_bad_analysis.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	_, err := s.Load("int_bad")
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError, got %v", err)
	}
	if readErr.Reason != "malformed JSON" {
		t.Errorf("unexpected reason %q", readErr.Reason)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	s := newTestStore(t)
	doc := `{"session_id": "int_bad2", "analysis_items": [{"response_id": "r1", "relevance_score": 7.5, "clarity_score": 0.5}]}`
	os.WriteFile(filepath.Join(s.Dir(), "int_bad2_analysis.json"), []byte(doc), 0o644)

	_, err := s.Load("int_bad2")
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError for out-of-range score, got %v", err)
	}
}

func TestAppend_PreservesOrder(t *testing.T) {
	s := newTestStore(t)
	seed := models.SessionAnalysis{
		SessionID:     "int_append",
		CandidateName: "Jane Doe",
		StartedAt:     time.Now().UTC(),
	}
	checklist := []models.ChecklistRow{{ID: "golang", Label: "Go", Status: models.ChecklistAnalyzing}}

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := s.Append(seed, sampleItem(id, 0.5, 0.5), checklist); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	got, err := s.Load("int_append")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.AnalysisItems) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got.AnalysisItems))
	}
	for i, id := range []string{"r1", "r2", "r3"} {
		if got.AnalysisItems[i].ResponseID != id {
			t.Errorf("expected %s at index %d, got %s", id, i, got.AnalysisItems[i].ResponseID)
		}
	}
	if len(got.ChecklistState) != 1 || got.ChecklistState[0].Status != models.ChecklistAnalyzing {
		t.Errorf("unexpected checklist state %+v", got.ChecklistState)
	}
}

func TestRefreshChecklist(t *testing.T) {
	s := newTestStore(t)

	// No document yet: refresh is a no-op, not an error.
	if err := s.RefreshChecklist("int_refresh", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seed := models.SessionAnalysis{SessionID: "int_refresh", CandidateName: "Jane"}
	s.Append(seed, sampleItem("r1", 0.5, 0.5), nil)

	updated := []models.ChecklistRow{{ID: "golang", Label: "Go", Status: models.ChecklistComplete}}
	if err := s.RefreshChecklist("int_refresh", updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.Load("int_refresh")
	if len(got.ChecklistState) != 1 || got.ChecklistState[0].Status != models.ChecklistComplete {
		t.Errorf("checklist not refreshed: %+v", got.ChecklistState)
	}
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)
	s.Write(&models.SessionAnalysis{SessionID: "int_b"})
	s.Write(&models.SessionAnalysis{SessionID: "int_a"})

	ids, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "int_a" || ids[1] != "int_b" {
		t.Errorf("unexpected ids %v", ids)
	}

	if err := s.Delete("int_a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete("int_a"); err != nil {
		t.Errorf("double delete should be a no-op, got %v", err)
	}
	ids, _ = s.List()
	if len(ids) != 1 || ids[0] != "int_b" {
		t.Errorf("unexpected ids after delete %v", ids)
	}
}

func TestTranscriptLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.txt")
	tl := NewTranscriptLog(path)

	started := time.Date(2026, 1, 31, 10, 30, 0, 0, time.UTC)
	session := models.InterviewSession{
		SessionID:     "int_20260131_103000_abc123",
		CandidateName: "Jane Doe",
		StartedAt:     started,
	}
	tl.SessionStarted(session)
	tl.Utterance(models.TranscriptEvent{
		EventType:    models.EventFinal,
		Text:         "Hello there.",
		TimestampUTC: started.Add(5 * time.Second),
		SpeakerID:    "speaker_0",
	}, models.RoleInterviewer)
	ended := started.Add(time.Hour)
	session.EndedAt = &ended
	tl.SessionEnded(session)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		"=== Session int_20260131_103000_abc123 started",
		"speaker_0 (interviewer): Hello there.",
		"=== Session int_20260131_103000_abc123 ended",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("transcript missing %q:\n%s", want, text)
		}
	}
}
