// Package analysis defines the interfaces for response analyzers: the
// collaborators that score candidate responses and advise checklist updates.
package analysis

import (
	"context"

	"ai-interview-analysis-service/internal/models"
)

// Request carries one candidate response plus the conversational context the
// analyzer may use. Scores are expected in [0, 1].
type Request struct {
	SessionID          string
	CandidateName      string
	QuestionText       string
	ResponseText       string
	SpeakerID          string
	RecentConversation []models.ConversationTurn
	ChecklistLabels    []string
}

// Result is the analyzer verdict for one response.
type Result struct {
	RelevanceScore      float64
	ClarityScore        float64
	KeyPoints           []string
	FollowUpSuggestions []string
	Reasoning           string
	Raw                 map[string]any
}

// ChecklistUpdate is one advised checklist transition. Item may be an id or
// a label; invalid advice is discarded by the checklist state machine.
type ChecklistUpdate struct {
	Item   string
	Status string
	Reason string
}

// Analyzer scores one candidate response. Implementations must be safe for
// use from a single worker goroutine; they need not be reentrant.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// Advisor optionally proposes checklist transitions after an analysis.
// Advice failures are non-fatal and independent of the analysis result.
type Advisor interface {
	Advise(ctx context.Context, req Request, checklist []models.ChecklistRow) ([]ChecklistUpdate, error)
}
