package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/service/analysis"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini", time.Second); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewClient("key", "", time.Second); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestAnalyze_ParsesVerdict(t *testing.T) {
	srv := chatServer(t, `{
		"relevance_score": 0.8,
		"clarity_score": 1.7,
		"key_points": ["five years of Go"],
		"follow_up_suggestions": [],
		"reasoning": "solid answer"
	}`)
	defer srv.Close()

	c, err := NewClient("test-key", "gpt-4o-mini", time.Second, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := c.Analyze(context.Background(), analysis.Request{
		ResponseText: "I have five years of Go experience.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RelevanceScore != 0.8 {
		t.Errorf("unexpected relevance %f", res.RelevanceScore)
	}
	// Out-of-range model scores are clamped.
	if res.ClarityScore != 1.0 {
		t.Errorf("expected clamped clarity 1.0, got %f", res.ClarityScore)
	}
	if len(res.KeyPoints) != 1 || res.KeyPoints[0] != "five years of Go" {
		t.Errorf("unexpected key points %v", res.KeyPoints)
	}
}

func TestAnalyze_NonJSONVerdict(t *testing.T) {
	srv := chatServer(t, "Sure! Here is my analysis in prose.")
	defer srv.Close()

	c, _ := NewClient("test-key", "gpt-4o-mini", time.Second, WithBaseURL(srv.URL))
	if _, err := c.Analyze(context.Background(), analysis.Request{ResponseText: "hi"}); err == nil {
		t.Error("expected parse error for non-JSON verdict")
	}
}

func TestAnalyze_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := NewClient("test-key", "gpt-4o-mini", time.Second, WithBaseURL(srv.URL))
	if _, err := c.Analyze(context.Background(), analysis.Request{ResponseText: "hi"}); err == nil {
		t.Error("expected error for upstream failure")
	}
}

func TestAdvise_ParsesUpdates(t *testing.T) {
	srv := chatServer(t, `{"updates": [{"item": "golang", "status": "complete", "reason": "covered"}]}`)
	defer srv.Close()

	c, _ := NewClient("test-key", "gpt-4o-mini", time.Second, WithBaseURL(srv.URL))
	updates, err := c.Advise(context.Background(), analysis.Request{ResponseText: "Go answer"}, []models.ChecklistRow{
		{ID: "golang", Label: "Go", Status: models.ChecklistAnalyzing},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 1 || updates[0].Item != "golang" || updates[0].Status != "complete" {
		t.Errorf("unexpected updates %+v", updates)
	}
}
