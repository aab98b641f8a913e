// Package thread defines the conversation-session data model: the Thread,
// its append-only iteration history, and the in-memory Manager that owns all
// live threads.
package thread

import (
	"fmt"
	"time"

	"github.com/dshills/guardloop/internal/finding"
)

// Status is the lifecycle state of a Thread.
type Status string

const (
	StatusProcessing        Status = "PROCESSING"
	StatusAwaitingUserInput Status = "AWAITING_USER_INPUT"
	StatusCompleted         Status = "COMPLETED"
	StatusError             Status = "ERROR"
)

// validStatuses is the set of defined statuses.
var validStatuses = map[Status]bool{
	StatusProcessing:        true,
	StatusAwaitingUserInput: true,
	StatusCompleted:         true,
	StatusError:             true,
}

// IsValid reports whether the status is a defined value.
func (s Status) IsValid() bool { return validStatuses[s] }

// Terminal reports whether a thread in this status will never be mutated
// again.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusError }

// IterationType distinguishes what drove one step of the rewrite loop.
type IterationType string

const (
	// IterationARFeedback is an iteration driven by validation findings.
	IterationARFeedback IterationType = "AR_FEEDBACK"
	// IterationUserClarification is an iteration driven by a user
	// question/answer exchange.
	IterationUserClarification IterationType = "USER_CLARIFICATION"
)

// Decision is the LLM's choice of how to act on a finding.
type Decision string

const (
	DecisionInitial      Decision = "INITIAL"
	DecisionRewrite      Decision = "REWRITE"
	DecisionAskQuestions Decision = "ASK_QUESTIONS"
)

// SubKind refines an AR_FEEDBACK iteration.
type SubKind string

const (
	SubKindInitial          SubKind = "initial"
	SubKindRewriting        SubKind = "rewriting"
	SubKindFollowUpQuestion SubKind = "follow-up-question"
)

// Clarification is one question/answer exchange with the user.
type Clarification struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// ARFeedback is the variant payload of an AR_FEEDBACK iteration.
type ARFeedback struct {
	Findings          []finding.Finding        `json:"findings,omitempty"`
	RawOutput         finding.ValidationOutput `json:"rawOutput,omitempty"`
	ActedFindingIndex int                      `json:"actedFindingIndex"`
	Decision          Decision                 `json:"decision"`
	SubKind           SubKind                  `json:"subKind"`
	Questions         []string                 `json:"questions,omitempty"`
}

// ClarificationData is the variant payload of a USER_CLARIFICATION iteration.
type ClarificationData struct {
	Exchanges           []Clarification           `json:"exchanges"`
	ContextAugmentation string                    `json:"contextAugmentation,omitempty"`
	Revalidation        *finding.ValidationResult `json:"revalidation,omitempty"`
}

// Iteration is one recorded step of the rewrite loop. Exactly one of
// Feedback and Clarification is set, matching Type.
type Iteration struct {
	Number          int           `json:"number"`
	Type            IterationType `json:"type"`
	OriginalAnswer  string        `json:"originalAnswer"`
	RewrittenAnswer string        `json:"rewrittenAnswer"`
	RewritingPrompt string        `json:"rewritingPrompt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`

	Feedback      *ARFeedback        `json:"feedback,omitempty"`
	Clarification *ClarificationData `json:"clarification,omitempty"`
}

// Thread is one end-to-end processing session for a single user prompt,
// including every rewrite attempt. ID, UserPrompt, ModelID, and
// MaxIterations are immutable after creation; everything else is mutated
// only through the Manager by the worker currently processing the thread.
type Thread struct {
	ID         string `json:"id"`
	UserPrompt string `json:"userPrompt"`
	ModelID    string `json:"modelId"`

	Status         Status `json:"status"`
	FinalResponse  string `json:"finalResponse,omitempty"`
	WarningMessage string `json:"warningMessage,omitempty"`

	Iterations       []Iteration `json:"iterations"`
	IterationCounter int         `json:"iterationCounter"`
	MaxIterations    int         `json:"maxIterations"`

	ProcessedFindingIndices map[int]bool      `json:"processedFindingIndices,omitempty"`
	CurrentFindings         []finding.Finding `json:"currentFindings,omitempty"`
	AllClarifications       []Clarification   `json:"allClarifications,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LastAnswer returns the most recent answer text, or "" before the initial
// generation is recorded.
func (t *Thread) LastAnswer() string {
	if len(t.Iterations) == 0 {
		return ""
	}
	return t.Iterations[len(t.Iterations)-1].RewrittenAnswer
}

// AppendIteration appends it to the history after checking the numbering
// invariant: numbers track the iteration counter and must be strictly
// increasing.
func (t *Thread) AppendIteration(it Iteration) error {
	if n := len(t.Iterations); n > 0 && it.Number <= t.Iterations[n-1].Number {
		return fmt.Errorf("thread %s: iteration number %d not after %d",
			t.ID, it.Number, t.Iterations[n-1].Number)
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	t.Iterations = append(t.Iterations, it)
	return nil
}

// Finish transitions the thread to a terminal status. FinalResponse is set
// exactly once; finishing an already-terminal thread is an error.
func (t *Thread) Finish(status Status, finalResponse, warning string) error {
	if !status.Terminal() {
		return fmt.Errorf("thread %s: %s is not a terminal status", t.ID, status)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("thread %s: already terminal (%s)", t.ID, t.Status)
	}
	t.Status = status
	t.FinalResponse = finalResponse
	t.WarningMessage = warning
	return nil
}

// clone returns a deep copy suitable for handing to readers while a worker
// keeps mutating the original.
func (t *Thread) clone() *Thread {
	c := *t
	c.Iterations = append([]Iteration(nil), t.Iterations...)
	c.CurrentFindings = append([]finding.Finding(nil), t.CurrentFindings...)
	c.AllClarifications = append([]Clarification(nil), t.AllClarifications...)
	if t.ProcessedFindingIndices != nil {
		c.ProcessedFindingIndices = make(map[int]bool, len(t.ProcessedFindingIndices))
		for k, v := range t.ProcessedFindingIndices {
			c.ProcessedFindingIndices[k] = v
		}
	}
	return &c
}
