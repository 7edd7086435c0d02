package models

import "time"

// Checklist item statuses. Status only advances pending -> analyzing ->
// complete within one session.
const (
	ChecklistPending   = "pending"
	ChecklistAnalyzing = "analyzing"
	ChecklistComplete  = "complete"
)

// Checklist update sources, kept for audit.
const (
	SourceHeuristic = "heuristic"
	SourceTool      = "tool"
)

// ChecklistRow is one row of an ordered, side-effect-free checklist snapshot.
type ChecklistRow struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Source    string     `json:"source,omitempty"`
}

// AnalysisItem is one scored candidate response. Produced once per analyzed
// utterance and never mutated afterwards.
type AnalysisItem struct {
	ResponseID          string         `json:"response_id"`
	TimestampUTC        time.Time      `json:"timestamp_utc"`
	QuestionText        string         `json:"question_text,omitempty"`
	ResponseText        string         `json:"response_text"`
	SpeakerID           string         `json:"speaker_id,omitempty"`
	RelevanceScore      float64        `json:"relevance_score"`
	ClarityScore        float64        `json:"clarity_score"`
	KeyPoints           []string       `json:"key_points"`
	FollowUpSuggestions []string       `json:"follow_up_suggestions"`
	RawModelOutput      map[string]any `json:"raw_model_output,omitempty"`
}

// SessionAnalysis is the durable per-session aggregate persisted by the
// output store. Overall scores are nil when no items exist: 0.0 is a valid
// score and must stay distinguishable from "no data".
type SessionAnalysis struct {
	SessionID              string         `json:"session_id"`
	CandidateName          string         `json:"candidate_name"`
	StartedAt              time.Time      `json:"started_at"`
	EndedAt                *time.Time     `json:"ended_at,omitempty"`
	AnalysisItems          []AnalysisItem `json:"analysis_items"`
	OverallRelevance       *float64       `json:"overall_relevance"`
	OverallClarity         *float64       `json:"overall_clarity"`
	TotalResponsesAnalyzed int            `json:"total_responses_analyzed"`
	ChecklistState         []ChecklistRow `json:"checklist_state"`
}

// ComputeOverallScores recomputes the derived aggregates from the current
// analysis items.
func (a *SessionAnalysis) ComputeOverallScores() {
	if len(a.AnalysisItems) == 0 {
		a.OverallRelevance = nil
		a.OverallClarity = nil
		a.TotalResponsesAnalyzed = 0
		return
	}

	var relevance, clarity float64
	for _, item := range a.AnalysisItems {
		relevance += item.RelevanceScore
		clarity += item.ClarityScore
	}
	n := float64(len(a.AnalysisItems))
	relevance /= n
	clarity /= n

	a.OverallRelevance = &relevance
	a.OverallClarity = &clarity
	a.TotalResponsesAnalyzed = len(a.AnalysisItems)
}

// RouteDispatchResult is the per-sink outcome of one dispatch attempt.
// Dispatch never fails as a whole; a result is produced even on sink failure.
type RouteDispatchResult struct {
	RouteID   string `json:"route_id"`
	RouteType string `json:"route_type"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
}
