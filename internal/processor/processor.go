// Package processor implements the validate-and-rewrite control loop: it
// takes a thread's user prompt, generates an answer, validates it against
// the guardrail, and iteratively rewrites the answer based on categorized
// findings until it is valid, unanalyzable, or the iteration budget is
// exhausted.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/guardloop/internal/audit"
	"github.com/dshills/guardloop/internal/finding"
	"github.com/dshills/guardloop/internal/thread"
	"github.com/dshills/guardloop/internal/validation"
)

// User-facing terminal messages. Warnings are surfaced verbatim alongside
// the final response.
const (
	// WarningPartialValidation annotates an accepted answer whose claims
	// could not all be translated into logic.
	WarningPartialValidation = "response could not be fully validated: some claims had no logical translation"
	// WarningMaxIterations annotates a best-effort answer returned after the
	// rewrite budget ran out.
	WarningMaxIterations = "response may be unsafe: it could not be fully validated within the iteration budget"
	// MsgTooComplex is the final response of a thread whose content the
	// reasoning engine could not analyze.
	MsgTooComplex = "the question or response is too complex to validate against the policy"
)

// LLMService is the language-model collaborator the loop drives. Underlying
// failures are propagated, never retried here.
type LLMService interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
	GenerateRewritingPrompt(findings []finding.Finding, priorAnswer, question, domain string) string
	GenerateDecision(ctx context.Context, findings []finding.Finding, priorAnswer string) (thread.Decision, []string, error)
}

// AugmentFunc folds clarification exchanges into the original question for
// post-clarification regeneration.
type AugmentFunc func(question string, clarifications []thread.Clarification) string

// Processor orchestrates the loop. All collaborators are injected; the
// thread Manager is the only shared state it touches.
type Processor struct {
	threads   *thread.Manager
	llm       LLMService
	validator validation.Validator
	auditor   audit.Logger
	augment   AugmentFunc
	domain    string
	log       *slog.Logger
}

// Options configures optional Processor behavior.
type Options struct {
	// Domain names the answer domain used for rewriting prompts.
	Domain string
	// Augment overrides how clarification answers are folded into the
	// prompt. Nil uses a plain Q/A append.
	Augment AugmentFunc
	// Log receives per-thread progress records. Nil uses slog.Default.
	Log *slog.Logger
}

// New builds a Processor.
func New(threads *thread.Manager, llm LLMService, v validation.Validator, a audit.Logger, opts Options) *Processor {
	if a == nil {
		a = audit.Nop{}
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	augment := opts.Augment
	if augment == nil {
		augment = defaultAugment
	}
	return &Processor{
		threads:   threads,
		llm:       llm,
		validator: v,
		auditor:   a,
		augment:   augment,
		domain:    opts.Domain,
		log:       log,
	}
}

func defaultAugment(question string, clarifications []thread.Clarification) string {
	out := question
	if len(clarifications) > 0 {
		out += "\n\nAdditional context from the user:\n"
		for _, c := range clarifications {
			out += fmt.Sprintf("Q: %s\nA: %s\n", c.Question, c.Answer)
		}
	}
	return out
}

// Process runs a freshly created thread to a terminal state or to the
// AWAITING_USER_INPUT suspension point. Collaborator failures mark the
// thread ERROR and are returned; they never affect other threads.
func (p *Processor) Process(ctx context.Context, threadID string) error {
	th, err := p.threads.Get(threadID)
	if err != nil {
		return err
	}
	if th.Status != thread.StatusProcessing {
		return fmt.Errorf("processor: thread %s is %s, not processable", threadID, th.Status)
	}
	if len(th.Iterations) > 0 {
		return fmt.Errorf("processor: thread %s already has iterations; use Resume", threadID)
	}

	p.log.Info("processing thread", "thread_id", threadID, "model_id", th.ModelID)

	answer, err := p.llm.GenerateResponse(ctx, th.UserPrompt)
	if err != nil {
		return p.fail(threadID, fmt.Errorf("initial generation failed: %w", err))
	}

	if err := p.threads.Update(threadID, func(t *thread.Thread) error {
		return t.AppendIteration(thread.Iteration{
			Number:          0,
			Type:            thread.IterationARFeedback,
			RewrittenAnswer: answer,
			Feedback: &thread.ARFeedback{
				Decision: thread.DecisionInitial,
				SubKind:  thread.SubKindInitial,
			},
		})
	}); err != nil {
		return err
	}

	return p.loop(ctx, threadID, answer, nil)
}

// Resume continues a thread suspended in AWAITING_USER_INPUT after the user
// supplied clarification answers. The initial generation is not re-run; a
// fresh answer is generated from the clarification-augmented prompt and the
// loop continues from its validation.
func (p *Processor) Resume(ctx context.Context, threadID string, answers []thread.Clarification) error {
	th, err := p.threads.Get(threadID)
	if err != nil {
		return err
	}
	if th.Status != thread.StatusAwaitingUserInput {
		return fmt.Errorf("processor: thread %s is %s, not awaiting input", threadID, th.Status)
	}
	if len(answers) == 0 {
		return fmt.Errorf("processor: thread %s: no clarification answers supplied", threadID)
	}

	if err := p.threads.Update(threadID, func(t *thread.Thread) error {
		t.Status = thread.StatusProcessing
		t.AllClarifications = append(t.AllClarifications, answers...)
		return nil
	}); err != nil {
		return err
	}

	th, err = p.threads.Get(threadID)
	if err != nil {
		return err
	}
	augmented := p.augment(th.UserPrompt, th.AllClarifications)

	answer, err := p.llm.GenerateResponse(ctx, augmented)
	if err != nil {
		return p.fail(threadID, fmt.Errorf("post-clarification generation failed: %w", err))
	}

	result, err := p.validator.Validate(ctx, th.UserPrompt, answer)
	if err != nil {
		return p.fail(threadID, fmt.Errorf("post-clarification validation failed: %w", err))
	}

	prior := th.LastAnswer()
	if err := p.threads.Update(threadID, func(t *thread.Thread) error {
		t.IterationCounter++
		return t.AppendIteration(thread.Iteration{
			Number:          t.IterationCounter,
			Type:            thread.IterationUserClarification,
			OriginalAnswer:  prior,
			RewrittenAnswer: answer,
			Clarification: &thread.ClarificationData{
				Exchanges:           answers,
				ContextAugmentation: augmented,
				Revalidation:        &result,
			},
		})
	}); err != nil {
		return err
	}

	return p.loop(ctx, threadID, answer, &result)
}

// loop drives the validate→classify→branch turns. preValidated, when
// non-nil, is consumed as the first turn's validation result instead of
// calling the validator (the resumption path validates while recording the
// clarification iteration).
func (p *Processor) loop(ctx context.Context, threadID, answer string, preValidated *finding.ValidationResult) error {
	for {
		th, err := p.threads.Get(threadID)
		if err != nil {
			return err
		}

		var result finding.ValidationResult
		if preValidated != nil {
			result = *preValidated
			preValidated = nil
		} else {
			result, err = p.validator.Validate(ctx, th.UserPrompt, answer)
			if err != nil {
				return p.fail(threadID, fmt.Errorf("validation failed: %w", err))
			}
		}

		// A new validation opens a new turn: remember the findings and reset
		// the acted-upon bookkeeping. The initial validation also consumes
		// the first iteration slot, which is why the first rewrite is
		// numbered 2 rather than 1.
		if err := p.threads.Update(threadID, func(t *thread.Thread) error {
			t.CurrentFindings = result.Findings
			t.ProcessedFindingIndices = make(map[int]bool)
			if t.IterationCounter == 0 {
				t.IterationCounter = 1
			}
			return nil
		}); err != nil {
			return err
		}
		th, err = p.threads.Get(threadID)
		if err != nil {
			return err
		}

		switch {
		case result.Output == finding.OutputValid:
			warning := ""
			if onlyNoTranslationsBeside(result) {
				warning = WarningPartialValidation
			}
			return p.completeValid(threadID, answer, warning)

		case result.Output == finding.OutputNoTranslations:
			// Every finding is NO_TRANSLATIONS: nothing in the answer could
			// be formally checked at all. Treated as unverifiable-but-
			// harmless: completed, no warning.
			return p.complete(threadID, answer, "")

		case result.Output == finding.OutputTooComplex:
			p.log.Warn("content too complex to validate", "thread_id", threadID)
			return p.finishError(threadID, MsgTooComplex)
		}

		// Actionable findings remain. Budget first: once the counter reaches
		// the budget, return the flagged best-effort answer instead of
		// failing hard.
		if th.IterationCounter >= th.MaxIterations {
			return p.completeBudget(threadID, answer)
		}

		idx := result.FirstActionable(th.ProcessedFindingIndices)
		if idx < 0 {
			// Defensive: classification guaranteed an actionable kind above.
			return p.completeBudget(threadID, answer)
		}

		// Clarification spends two budget slots: the suspension iteration and
		// the replay Resume records. With room for only one, skip the decision
		// call and spend what remains on a rewrite.
		decision := thread.DecisionRewrite
		var questions []string
		if result.Findings[idx].Output == finding.OutputTranslationAmbiguous && th.IterationCounter+1 < th.MaxIterations {
			decision, questions, err = p.llm.GenerateDecision(ctx, result.Findings, answer)
			if err != nil {
				return p.fail(threadID, fmt.Errorf("decision generation failed: %w", err))
			}
		}

		if decision == thread.DecisionAskQuestions {
			if err := p.suspendForClarification(threadID, answer, result, idx, questions); err != nil {
				return err
			}
			p.log.Info("thread awaiting user input", "thread_id", threadID, "questions", len(questions))
			return nil
		}

		rewritingPrompt := p.llm.GenerateRewritingPrompt(result.Findings, answer, th.UserPrompt, p.domain)
		rewritten, err := p.llm.GenerateResponse(ctx, rewritingPrompt)
		if err != nil {
			return p.fail(threadID, fmt.Errorf("rewrite generation failed: %w", err))
		}

		if err := p.threads.Update(threadID, func(t *thread.Thread) error {
			t.IterationCounter++
			t.ProcessedFindingIndices[idx] = true
			return t.AppendIteration(thread.Iteration{
				Number:          t.IterationCounter,
				Type:            thread.IterationARFeedback,
				OriginalAnswer:  answer,
				RewrittenAnswer: rewritten,
				RewritingPrompt: rewritingPrompt,
				Feedback: &thread.ARFeedback{
					Findings:          result.Findings,
					RawOutput:         result.Output,
					ActedFindingIndex: idx,
					Decision:          thread.DecisionRewrite,
					SubKind:           thread.SubKindRewriting,
				},
			})
		}); err != nil {
			return err
		}

		p.log.Info("answer rewritten", "thread_id", threadID, "finding", result.Findings[idx].Output)
		answer = rewritten
	}
}

// suspendForClarification records the follow-up-question iteration and
// parks the thread until Resume.
func (p *Processor) suspendForClarification(threadID, answer string, result finding.ValidationResult, idx int, questions []string) error {
	return p.threads.Update(threadID, func(t *thread.Thread) error {
		t.IterationCounter++
		t.ProcessedFindingIndices[idx] = true
		t.Status = thread.StatusAwaitingUserInput
		return t.AppendIteration(thread.Iteration{
			Number:          t.IterationCounter,
			Type:            thread.IterationARFeedback,
			OriginalAnswer:  answer,
			RewrittenAnswer: answer,
			Feedback: &thread.ARFeedback{
				Findings:          result.Findings,
				RawOutput:         result.Output,
				ActedFindingIndex: idx,
				Decision:          thread.DecisionAskQuestions,
				SubKind:           thread.SubKindFollowUpQuestion,
				Questions:         questions,
			},
		})
	})
}

// onlyNoTranslationsBeside reports whether the findings next to the VALID
// one are all NO_TRANSLATIONS (the "accepted but not fully formally
// verified" case). A bare VALID returns false.
func onlyNoTranslationsBeside(result finding.ValidationResult) bool {
	sawNoTranslations := false
	for _, f := range result.Findings {
		switch f.Output {
		case finding.OutputValid:
		case finding.OutputNoTranslations:
			sawNoTranslations = true
		default:
			return false
		}
	}
	return sawNoTranslations
}

// complete finishes the thread COMPLETED without auditing.
func (p *Processor) complete(threadID, answer, warning string) error {
	if err := p.threads.Update(threadID, func(t *thread.Thread) error {
		return t.Finish(thread.StatusCompleted, answer, warning)
	}); err != nil {
		return err
	}
	p.log.Info("thread completed", "thread_id", threadID, "warning", warning)
	return nil
}

// completeValid finishes COMPLETED and audits the validated response.
func (p *Processor) completeValid(threadID, answer, warning string) error {
	if err := p.complete(threadID, answer, warning); err != nil {
		return err
	}
	if th, err := p.threads.Get(threadID); err == nil {
		p.auditor.LogValidResponse(th)
	}
	return nil
}

// completeBudget finishes COMPLETED with the unsafe warning and audits the
// budget exhaustion.
func (p *Processor) completeBudget(threadID, answer string) error {
	if err := p.complete(threadID, answer, WarningMaxIterations); err != nil {
		return err
	}
	if th, err := p.threads.Get(threadID); err == nil {
		p.auditor.LogMaxIterations(th)
	}
	return nil
}

// finishError marks the thread ERROR with a user-facing message. Used for
// by-design terminal outcomes (TOO_COMPLEX); returns nil because the loop
// itself did not fail.
func (p *Processor) finishError(threadID, msg string) error {
	return p.threads.Update(threadID, func(t *thread.Thread) error {
		return t.Finish(thread.StatusError, msg, "")
	})
}

// fail marks the thread ERROR after a collaborator failure and returns the
// failure. The error is isolated to this thread.
func (p *Processor) fail(threadID string, cause error) error {
	p.log.Error("thread failed", "thread_id", threadID, "error", cause)
	if err := p.threads.Update(threadID, func(t *thread.Thread) error {
		return t.Finish(thread.StatusError, fmt.Sprintf("processing failed: %v", cause), "")
	}); err != nil {
		return fmt.Errorf("marking thread %s failed: %v (original: %w)", threadID, err, cause)
	}
	return cause
}
