// Package audit records terminal loop outcomes for compliance
// record-keeping. The processor notifies the logger exactly once per
// terminal outcome; the logger must never fail the thread.
package audit

import (
	"log/slog"

	"github.com/dshills/guardloop/internal/thread"
)

// Logger receives notifications of terminal thread outcomes.
type Logger interface {
	// LogValidResponse records that a thread completed with a validated
	// response.
	LogValidResponse(th *thread.Thread)
	// LogMaxIterations records that a thread exhausted its iteration budget
	// and returned a flagged best-effort response.
	LogMaxIterations(th *thread.Thread)
}

// SlogLogger writes audit events as structured log records.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger wraps log. A nil log uses slog.Default.
func NewSlogLogger(log *slog.Logger) *SlogLogger {
	if log == nil {
		log = slog.Default()
	}
	return &SlogLogger{log: log}
}

func (l *SlogLogger) LogValidResponse(th *thread.Thread) {
	l.log.Info("audit: valid response",
		"event", "valid_response",
		"thread_id", th.ID,
		"model_id", th.ModelID,
		"iterations", len(th.Iterations),
		"iteration_counter", th.IterationCounter,
		"warning", th.WarningMessage,
	)
}

func (l *SlogLogger) LogMaxIterations(th *thread.Thread) {
	l.log.Warn("audit: max iterations reached",
		"event", "max_iterations",
		"thread_id", th.ID,
		"model_id", th.ModelID,
		"iterations", len(th.Iterations),
		"iteration_counter", th.IterationCounter,
		"max_iterations", th.MaxIterations,
	)
}

// Nop discards all audit events. Useful in tests that assert on processor
// behavior rather than audit output.
type Nop struct{}

func (Nop) LogValidResponse(*thread.Thread) {}
func (Nop) LogMaxIterations(*thread.Thread) {}
