// Package mock provides a deterministic analyzer for local runs and tests
// without model credentials. Scores are derived from simple text features so
// repeated runs on the same transcript produce identical output.
package mock

import (
	"context"
	"fmt"
	"strings"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/service/analysis"
)

// Analyzer implements analysis.Analyzer and analysis.Advisor with scripted
// heuristics instead of a model call.
type Analyzer struct{}

// New creates a mock analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze scores a response from its word count and overlap with the
// question. Longer, on-topic responses score higher.
func (a *Analyzer) Analyze(_ context.Context, req analysis.Request) (analysis.Result, error) {
	words := strings.Fields(req.ResponseText)

	// Clarity grows with response length up to ~40 words.
	clarity := float64(len(words)) / 40.0
	if clarity > 1 {
		clarity = 1
	}

	// Relevance is the share of question words echoed in the response.
	relevance := 0.5
	qWords := contentWords(req.QuestionText)
	if len(qWords) > 0 {
		rWords := make(map[string]bool)
		for _, w := range contentWords(req.ResponseText) {
			rWords[w] = true
		}
		hits := 0
		for _, w := range qWords {
			if rWords[w] {
				hits++
			}
		}
		relevance = float64(hits) / float64(len(qWords))
	}

	keyPoints := []string{}
	if len(words) > 0 {
		sentence := req.ResponseText
		if i := strings.IndexAny(sentence, ".!?"); i > 0 {
			sentence = sentence[:i+1]
		}
		keyPoints = append(keyPoints, strings.TrimSpace(sentence))
	}

	followUps := []string{}
	if len(words) < 10 {
		followUps = append(followUps, "Ask the candidate to elaborate with a concrete example.")
	}

	return analysis.Result{
		RelevanceScore:      relevance,
		ClarityScore:        clarity,
		KeyPoints:           keyPoints,
		FollowUpSuggestions: followUps,
		Reasoning:           fmt.Sprintf("Scripted analysis of a %d-word response.", len(words)),
		Raw:                 map[string]any{"analyzer": "mock"},
	}, nil
}

// Advise completes any analyzing checklist item whose label appears in the
// response text.
func (a *Analyzer) Advise(_ context.Context, req analysis.Request, checklist []models.ChecklistRow) ([]analysis.ChecklistUpdate, error) {
	lowered := strings.ToLower(req.ResponseText)

	var updates []analysis.ChecklistUpdate
	for _, row := range checklist {
		if row.Status != models.ChecklistAnalyzing {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(row.Label)) {
			updates = append(updates, analysis.ChecklistUpdate{
				Item:   row.ID,
				Status: models.ChecklistComplete,
				Reason: "response covered the topic",
			})
		}
	}
	return updates, nil
}

func contentWords(text string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?\"'")
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}
