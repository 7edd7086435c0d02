// Package openai implements the analysis interfaces on the OpenAI
// chat-completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
	"ai-interview-analysis-service/internal/service/analysis"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the chat-completions endpoint and parses the model's JSON
// verdicts. It implements both analysis.Analyzer and analysis.Advisor.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// NewClient creates a chat-completions analyzer.
func NewClient(apiKey, model string, timeout time.Duration, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai analyzer requires an API key")
	}
	if model == "" {
		return nil, fmt.Errorf("openai analyzer requires a model name")
	}

	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.WithComponent("analyzer.openai"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze scores one candidate response. The model is instructed to answer
// with a single JSON object; anything else is an error surfaced to the worker.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	systemPrompt := `You are an interview analysis assistant. You evaluate a candidate's spoken response to an interview question.

Respond ONLY with valid JSON in this format:
{
  "relevance_score": 0.0,
  "clarity_score": 0.0,
  "key_points": ["array", "of", "strings"],
  "follow_up_suggestions": ["array", "of", "strings"],
  "reasoning": "one short paragraph"
}
Scores are between 0.0 and 1.0. Do not include any other text.`

	userPrompt := fmt.Sprintf(`CANDIDATE: %s

QUESTION: %q

RESPONSE: %q

RECENT CONVERSATION:
%s

TOPICS TO COVER:
%s`,
		req.CandidateName,
		req.QuestionText,
		req.ResponseText,
		formatConversation(req.RecentConversation),
		strings.Join(req.ChecklistLabels, ", "))

	content, err := c.send(ctx, []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return analysis.Result{}, err
	}

	var verdict struct {
		RelevanceScore      float64  `json:"relevance_score"`
		ClarityScore        float64  `json:"clarity_score"`
		KeyPoints           []string `json:"key_points"`
		FollowUpSuggestions []string `json:"follow_up_suggestions"`
		Reasoning           string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return analysis.Result{}, fmt.Errorf("parse analyzer verdict: %w", err)
	}

	return analysis.Result{
		RelevanceScore:      clamp01(verdict.RelevanceScore),
		ClarityScore:        clamp01(verdict.ClarityScore),
		KeyPoints:           verdict.KeyPoints,
		FollowUpSuggestions: verdict.FollowUpSuggestions,
		Reasoning:           verdict.Reasoning,
		Raw:                 map[string]any{"model": c.model, "content": content},
	}, nil
}

// Advise proposes checklist transitions based on the latest exchange.
func (c *Client) Advise(ctx context.Context, req analysis.Request, checklist []models.ChecklistRow) ([]analysis.ChecklistUpdate, error) {
	systemPrompt := `You decide whether interview checklist topics advanced based on the latest exchange. Valid statuses: "analyzing" (topic is being discussed) and "complete" (candidate covered it).

Respond ONLY with valid JSON:
{"updates": [{"item": "item id", "status": "analyzing|complete", "reason": "short reason"}]}
Return an empty updates array when nothing changed.`

	var state strings.Builder
	for _, row := range checklist {
		fmt.Fprintf(&state, "- %s (%s): %s\n", row.ID, row.Label, row.Status)
	}

	userPrompt := fmt.Sprintf(`CHECKLIST:
%s
QUESTION: %q

CANDIDATE RESPONSE: %q`, state.String(), req.QuestionText, req.ResponseText)

	content, err := c.send(ctx, []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, err
	}

	var advice struct {
		Updates []struct {
			Item   string `json:"item"`
			Status string `json:"status"`
			Reason string `json:"reason"`
		} `json:"updates"`
	}
	if err := json.Unmarshal([]byte(content), &advice); err != nil {
		return nil, fmt.Errorf("parse checklist advice: %w", err)
	}

	updates := make([]analysis.ChecklistUpdate, 0, len(advice.Updates))
	for _, u := range advice.Updates {
		updates = append(updates, analysis.ChecklistUpdate{Item: u.Item, Status: u.Status, Reason: u.Reason})
	}
	return updates, nil
}

func (c *Client) send(ctx context.Context, messages []message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Chat completions call failed")
		return "", fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func formatConversation(turns []models.ConversationTurn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, t.Text)
	}
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
