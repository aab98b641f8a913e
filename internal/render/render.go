// Package render produces output from a finished (or suspended) Thread.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/guardloop/internal/thread"
)

// RenderJSON produces a pretty-printed JSON representation of the thread.
// Findings appear in their tagged wire form.
func RenderJSON(th *thread.Thread) ([]byte, error) {
	if th == nil {
		return nil, fmt.Errorf("render: nil thread")
	}
	b, err := json.MarshalIndent(th, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderText produces a terminal-friendly summary of the thread: status,
// final response, warning, and the iteration trail. Every recorded
// iteration number appears in the output.
func RenderText(th *thread.Thread) string {
	if th == nil {
		return ""
	}
	var sb strings.Builder

	fmt.Fprintf(&sb, "Thread %s [%s]\n", th.ID, th.Status)
	fmt.Fprintf(&sb, "Question: %s\n", th.UserPrompt)

	if th.Status == thread.StatusAwaitingUserInput {
		sb.WriteString("\nAwaiting clarification:\n")
		if qs := pendingQuestions(th); len(qs) > 0 {
			for _, q := range qs {
				fmt.Fprintf(&sb, "  - %s\n", q)
			}
		}
	}

	if th.FinalResponse != "" {
		fmt.Fprintf(&sb, "\n%s\n", th.FinalResponse)
	}
	if th.WarningMessage != "" {
		fmt.Fprintf(&sb, "\nWarning: %s\n", th.WarningMessage)
	}

	fmt.Fprintf(&sb, "\nIterations (%d, counter %d/%d):\n",
		len(th.Iterations), th.IterationCounter, th.MaxIterations)
	for _, it := range th.Iterations {
		fmt.Fprintf(&sb, "  #%d %s", it.Number, it.Type)
		if it.Feedback != nil {
			fmt.Fprintf(&sb, " %s/%s", it.Feedback.Decision, it.Feedback.SubKind)
			if it.Feedback.RawOutput != "" {
				fmt.Fprintf(&sb, " (%s)", it.Feedback.RawOutput)
			}
		}
		if it.Clarification != nil {
			fmt.Fprintf(&sb, " (%d exchanges)", len(it.Clarification.Exchanges))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// pendingQuestions returns the clarifying questions from the most recent
// follow-up-question iteration.
func pendingQuestions(th *thread.Thread) []string {
	for i := len(th.Iterations) - 1; i >= 0; i-- {
		fb := th.Iterations[i].Feedback
		if fb != nil && fb.SubKind == thread.SubKindFollowUpQuestion {
			return fb.Questions
		}
	}
	return nil
}
