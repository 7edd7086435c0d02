package output

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-analysis-service/internal/models"
	"ai-interview-analysis-service/internal/observability/logging"
)

// TranscriptLog appends final utterances to a human-readable text file, one
// line per utterance, with session banners. Best effort: logging failures
// never propagate to the ingress path.
type TranscriptLog struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

// NewTranscriptLog creates a transcript log writing to the given file.
func NewTranscriptLog(path string) *TranscriptLog {
	return &TranscriptLog{
		path:   path,
		logger: logging.WithComponent("transcript"),
	}
}

// SessionStarted writes the opening banner for a session.
func (t *TranscriptLog) SessionStarted(session models.InterviewSession) {
	t.appendLine(fmt.Sprintf("=== Session %s started at %s (candidate: %s) ===",
		session.SessionID,
		session.StartedAt.Format(time.RFC3339),
		session.CandidateName))
}

// SessionEnded writes the closing banner for a session.
func (t *TranscriptLog) SessionEnded(session models.InterviewSession) {
	endedAt := time.Now().UTC()
	if session.EndedAt != nil {
		endedAt = *session.EndedAt
	}
	t.appendLine(fmt.Sprintf("=== Session %s ended at %s ===",
		session.SessionID,
		endedAt.Format(time.RFC3339)))
}

// Utterance writes one final utterance line. The role column shows the
// mapped role or "unknown".
func (t *TranscriptLog) Utterance(event models.TranscriptEvent, role string) {
	if role == "" {
		role = "unknown"
	}
	speaker := event.SpeakerID
	if speaker == "" {
		speaker = "-"
	}
	t.appendLine(fmt.Sprintf("[%s] %s (%s): %s",
		event.TimestampUTC.Format("15:04:05"),
		speaker, role, event.Text))
}

func (t *TranscriptLog) appendLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", t.path).Msg("Transcript log open failed")
		return
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, line); err != nil {
		t.logger.Warn().Err(err).Msg("Transcript log write failed")
	}
}
