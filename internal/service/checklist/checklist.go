// Package checklist tracks per-session topic coverage as a small forward-only
// state machine driven by transcript heuristics and analyzer tool calls.
package checklist

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
	"ai-interview-analysis-service/internal/observability/metrics"
	"ai-interview-analysis-service/internal/spec"
)

// statusRank orders the lifecycle. Status never moves backward and never
// re-applies at the same rank, so updated_at always reflects a real advance.
var statusRank = map[string]int{
	models.ChecklistPending:   0,
	models.ChecklistAnalyzing: 1,
	models.ChecklistComplete:  2,
}

type item struct {
	id       string
	label    string
	keywords []string

	status    string
	updatedAt *time.Time
	reason    string
	source    string
}

// Manager holds checklist state for the current session. Thread-safe: the
// ingress path applies heuristics while the analysis worker applies tool
// updates.
type Manager struct {
	mu      sync.Mutex
	items   []*item
	byID    map[string]*item
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewManager builds checklist state from the product spec definition.
// Item order is preserved; it drives heuristic match priority.
func NewManager(items []spec.ChecklistItem, m *metrics.Metrics) (*Manager, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("checklist requires at least one item")
	}

	mgr := &Manager{
		byID:    make(map[string]*item, len(items)),
		metrics: m,
		logger:  logging.WithComponent("checklist"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, def := range items {
		if _, dup := mgr.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate checklist item id %q", def.ID)
		}
		keywords := make([]string, 0, len(def.Keywords))
		for _, kw := range def.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			keywords = append(keywords, strings.ToLower(def.Label))
		}
		it := &item{
			id:       def.ID,
			label:    def.Label,
			keywords: keywords,
			status:   models.ChecklistPending,
		}
		mgr.items = append(mgr.items, it)
		mgr.byID[def.ID] = it
	}
	return mgr, nil
}

// Update advances one item, addressed by id or case-insensitive label.
// Returns false without side effects for unknown items, invalid statuses,
// and non-advancing transitions.
func (m *Manager) Update(idOrLabel, status, reason, source string) bool {
	newRank, ok := statusRank[status]
	if !ok {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	it := m.resolveLocked(idOrLabel)
	if it == nil {
		return false
	}
	if newRank <= statusRank[it.status] {
		return false
	}

	now := m.now()
	it.status = status
	it.updatedAt = &now
	it.reason = reason
	it.source = source

	if m.metrics != nil {
		m.metrics.RecordChecklistUpdate(source)
	}
	m.logger.Info().
		Str("item", it.id).
		Str("status", status).
		Str("source", source).
		Msg("Checklist item updated")
	return true
}

// ApplyHeuristic reacts to one final utterance. The first item with a keyword
// hit is the only one considered: a pending item moves to analyzing on any
// speaker, an analyzing item completes only on candidate speech.
func (m *Manager) ApplyHeuristic(text, role string) bool {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return false
	}

	m.mu.Lock()
	matched := m.firstMatchLocked(lowered)
	m.mu.Unlock()
	if matched == "" {
		return false
	}

	status := m.statusOf(matched)
	switch {
	case status == models.ChecklistPending:
		return m.Update(matched, models.ChecklistAnalyzing, "topic mentioned in conversation", models.SourceHeuristic)
	case status == models.ChecklistAnalyzing && role == models.RoleCandidate:
		return m.Update(matched, models.ChecklistComplete, "candidate responded on topic", models.SourceHeuristic)
	}
	return false
}

// Reset returns every item to pending, clearing audit fields. Used when a
// new session starts on a warm process.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range m.items {
		it.status = models.ChecklistPending
		it.updatedAt = nil
		it.reason = ""
		it.source = ""
	}
}

// Snapshot returns the checklist in definition order. The returned rows are
// detached copies.
func (m *Manager) Snapshot() []models.ChecklistRow {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]models.ChecklistRow, 0, len(m.items))
	for _, it := range m.items {
		row := models.ChecklistRow{
			ID:     it.id,
			Label:  it.label,
			Status: it.status,
			Reason: it.reason,
			Source: it.source,
		}
		if it.updatedAt != nil {
			ts := *it.updatedAt
			row.UpdatedAt = &ts
		}
		rows = append(rows, row)
	}
	return rows
}

// Labels returns the item labels in definition order, for prompt assembly.
func (m *Manager) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	labels := make([]string, 0, len(m.items))
	for _, it := range m.items {
		labels = append(labels, it.label)
	}
	return labels
}

func (m *Manager) statusOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.byID[id]; ok {
		return it.status
	}
	return ""
}

func (m *Manager) resolveLocked(idOrLabel string) *item {
	if it, ok := m.byID[idOrLabel]; ok {
		return it
	}
	needle := strings.ToLower(strings.TrimSpace(idOrLabel))
	for _, it := range m.items {
		if strings.ToLower(it.label) == needle {
			return it
		}
	}
	return nil
}

func (m *Manager) firstMatchLocked(loweredText string) string {
	for _, it := range m.items {
		for _, kw := range it.keywords {
			if strings.Contains(loweredText, kw) {
				return it.id
			}
		}
	}
	return ""
}
