// Package output persists per-session analysis documents as JSON files and
// keeps the plain-text transcript log.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
)

const fileSuffix = "_analysis.json"

// ReadError reports a document that exists but cannot be trusted: malformed
// JSON or a schema violation. Absent documents are not errors.
type ReadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis document %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("analysis document %s: %s", e.Path, e.Reason)
}

func (e *ReadError) Unwrap() error { return e.Err }

// document is the on-disk envelope. The _meta block is bookkeeping only and
// is stripped before any schema check.
type document struct {
	models.SessionAnalysis
	Meta *docMeta `json:"_meta,omitempty"`
}

type docMeta struct {
	SavedAt time.Time `json:"saved_at"`
	Writer  string    `json:"writer"`
	Version int       `json:"version"`
}

// Store reads and writes session analysis documents under one directory.
// Writes go through a temp file and rename, so a crashed write never leaves
// a half-written document behind.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger zerolog.Logger
}

// NewStore creates the output directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logging.WithComponent("output"),
	}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string { return s.dir }

// Write persists the full document for a session, recomputing the derived
// aggregates first.
func (s *Store) Write(a *models.SessionAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(a)
}

// Append adds one analysis item to the session document, creating a minimal
// document from the seed when none exists yet. The checklist snapshot is
// replaced wholesale on every append.
func (s *Store) Append(seed models.SessionAnalysis, item models.AnalysisItem, checklist []models.ChecklistRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(seed.SessionID)
	if err != nil {
		return err
	}
	if doc == nil {
		seed.AnalysisItems = nil
		doc = &seed
	}
	doc.AnalysisItems = append(doc.AnalysisItems, item)
	doc.ChecklistState = checklist
	if seed.EndedAt != nil {
		doc.EndedAt = seed.EndedAt
	}
	return s.writeLocked(doc)
}

// RefreshChecklist replaces the checklist snapshot of an existing document.
// No-op when the session has no document yet.
func (s *Store) RefreshChecklist(sessionID string, checklist []models.ChecklistRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(sessionID)
	if err != nil || doc == nil {
		return err
	}
	doc.ChecklistState = checklist
	return s.writeLocked(doc)
}

// Load returns the session document, or nil when none exists. Malformed or
// schema-violating documents come back as a *ReadError.
func (s *Store) Load(sessionID string) (*models.SessionAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(sessionID)
}

// List returns the session ids with a stored document, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list output directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a session document. Deleting an absent document is a no-op.
func (s *Store) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete analysis document: %w", err)
	}
	return nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+fileSuffix)
}

func (s *Store) loadLocked(sessionID string) (*models.SessionAnalysis, error) {
	path := s.path(sessionID)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read analysis document: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ReadError{Path: path, Reason: "malformed JSON", Err: err}
	}
	doc.Meta = nil
	if reason := validate(&doc.SessionAnalysis); reason != "" {
		return nil, &ReadError{Path: path, Reason: reason}
	}
	return &doc.SessionAnalysis, nil
}

func (s *Store) writeLocked(a *models.SessionAnalysis) error {
	a.ComputeOverallScores()
	if a.AnalysisItems == nil {
		a.AnalysisItems = []models.AnalysisItem{}
	}
	if a.ChecklistState == nil {
		a.ChecklistState = []models.ChecklistRow{}
	}

	doc := document{
		SessionAnalysis: *a,
		Meta: &docMeta{
			SavedAt: time.Now().UTC(),
			Writer:  "ai-interview-analysis-service",
			Version: 1,
		},
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis document: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, a.SessionID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp analysis file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp analysis file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp analysis file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(a.SessionID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace analysis document: %w", err)
	}

	s.logger.Debug().
		Str("sessionId", a.SessionID).
		Int("items", len(a.AnalysisItems)).
		Msg("Analysis document written")
	return nil
}

func validate(a *models.SessionAnalysis) string {
	if strings.TrimSpace(a.SessionID) == "" {
		return "missing session_id"
	}
	for i, item := range a.AnalysisItems {
		if item.RelevanceScore < 0 || item.RelevanceScore > 1 {
			return fmt.Sprintf("analysis_items[%d].relevance_score out of range", i)
		}
		if item.ClarityScore < 0 || item.ClarityScore > 1 {
			return fmt.Sprintf("analysis_items[%d].clarity_score out of range", i)
		}
	}
	for i, row := range a.ChecklistState {
		switch row.Status {
		case models.ChecklistPending, models.ChecklistAnalyzing, models.ChecklistComplete:
		default:
			return fmt.Sprintf("checklist_state[%d] has unknown status %q", i, row.Status)
		}
	}
	return ""
}
