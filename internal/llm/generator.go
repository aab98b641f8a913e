package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/guardloop/internal/domain"
	"github.com/dshills/guardloop/internal/finding"
	"github.com/dshills/guardloop/internal/thread"
)

// Generator produces answers and self-correction prompts through a Provider.
// It implements the LLM collaborator contract the processor depends on.
type Generator struct {
	provider    Provider
	maxTokens   int
	temperature float64
}

// NewGenerator creates a Generator for the named provider and model.
func NewGenerator(providerName, model, region string, maxTokens int, temperature float64) (*Generator, error) {
	p, err := NewProvider(providerName, model, region)
	if err != nil {
		return nil, fmt.Errorf("llm: create provider: %w", err)
	}
	return &Generator{provider: p, maxTokens: maxTokens, temperature: temperature}, nil
}

// NewGeneratorWithProvider wraps an existing Provider. Used by tests and by
// callers that construct providers themselves.
func NewGeneratorWithProvider(p Provider, maxTokens int, temperature float64) *Generator {
	return &Generator{provider: p, maxTokens: maxTokens, temperature: temperature}
}

// answerSystemPrompt frames every generation call. Rewriting instructions
// travel in the user prompt, not here, so the system framing stays stable
// across iterations.
const answerSystemPrompt = "You are a careful assistant answering questions that are checked " +
	"against a formal policy guardrail. Answer directly and concretely. State conditions and " +
	"exceptions explicitly. Do not speculate beyond what the question requires."

// GenerateResponse produces an answer for prompt. Underlying provider
// failures are returned unretried; retry policy belongs to the caller's
// collaborator wrapper, not here.
func (g *Generator) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	text, err := g.provider.Complete(ctx, answerSystemPrompt, prompt, g.maxTokens, g.temperature)
	if err != nil {
		return "", fmt.Errorf("llm: generate response: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// GenerateRewritingPrompt builds the prompt asking the model to fix its
// prior answer based on validation findings. question is the user's original
// question; domainName selects a built-in domain whose addendum is appended
// (unknown names fall back to the general domain).
func (g *Generator) GenerateRewritingPrompt(findings []finding.Finding, priorAnswer, question, domainName string) string {
	var sb strings.Builder

	sb.WriteString("Your previous answer failed a formal policy validation check.\n\n")
	fmt.Fprintf(&sb, "Original question:\n%s\n\n", question)
	fmt.Fprintf(&sb, "Your previous answer:\n%s\n\n", priorAnswer)

	sb.WriteString("Validation findings:\n")
	for i, f := range findings {
		writeFindingFeedback(&sb, i+1, f)
	}
	sb.WriteString("\n")

	sb.WriteString("Rewrite the answer so that it resolves every finding above while still " +
		"answering the original question. Keep everything that was correct. Output only the " +
		"rewritten answer, with no preamble and no commentary.\n")

	dom, err := domain.Load(domainName)
	if err != nil {
		dom, _ = domain.Load("general")
	}
	sb.WriteString("\n")
	sb.WriteString(dom.RewriteAddendum)
	sb.WriteString("\n")

	return sb.String()
}

// writeFindingFeedback renders one finding as corrective feedback. Template
// selection follows the finding kind; detail payloads the template does not
// understand are summarized rather than dumped.
func writeFindingFeedback(sb *strings.Builder, n int, f finding.Finding) {
	switch d := f.Details.(type) {
	case finding.InvalidDetails:
		fmt.Fprintf(sb, "%d. INVALID: the answer contradicts policy rules.\n", n)
		writeRules(sb, "Contradicting rules", d.ContradictingRules)
	case finding.ImpossibleDetails:
		fmt.Fprintf(sb, "%d. IMPOSSIBLE: the premises of the answer cannot all hold under the policy.\n", n)
		writeRules(sb, "Conflicting rules", d.ContradictingRules)
	case finding.SatisfiableDetails:
		fmt.Fprintf(sb, "%d. SATISFIABLE: the answer is only sometimes true; it omits a condition.\n", n)
		writeScenario(sb, "A case where the answer holds", d.ClaimsTrueScenario)
		writeScenario(sb, "A case where the answer fails", d.ClaimsFalseScenario)
		sb.WriteString("   State the distinguishing condition explicitly.\n")
	case finding.TranslationAmbiguousDetails:
		fmt.Fprintf(sb, "%d. AMBIGUOUS: the answer supports multiple conflicting readings.\n", n)
		fmt.Fprintf(sb, "   %d candidate interpretations were found. Restate the answer so only one reading is possible.\n", len(d.Options))
	default:
		fmt.Fprintf(sb, "%d. %s finding.\n", n, f.Output)
	}
}

func writeRules(sb *strings.Builder, label string, rules []finding.Rule) {
	if len(rules) == 0 {
		return
	}
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	fmt.Fprintf(sb, "   %s: %s\n", label, strings.Join(ids, ", "))
}

func writeScenario(sb *strings.Builder, label string, sc *finding.Scenario) {
	if sc == nil || len(sc.Statements) == 0 {
		return
	}
	fmt.Fprintf(sb, "   %s:\n", label)
	for _, st := range sc.Statements {
		text := st.NaturalLanguage
		if text == "" {
			text = st.Logic
		}
		fmt.Fprintf(sb, "     - %s\n", text)
	}
}

// decisionSystemPrompt forces a machine-parseable decision reply.
const decisionSystemPrompt = "You decide how to handle an ambiguous answer. Reply with exactly " +
	"one of:\nREWRITE\nASK_QUESTIONS\nfollowed, for ASK_QUESTIONS, by one clarifying question " +
	"per line. No other text."

// GenerateDecision asks the model whether an ambiguity can be fixed by
// rewriting or needs clarifying questions from the user. A malformed reply
// falls back to REWRITE so a flaky model cannot wedge a thread waiting for
// input it never asked for.
func (g *Generator) GenerateDecision(ctx context.Context, findings []finding.Finding, priorAnswer string) (thread.Decision, []string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The answer below was flagged as ambiguous by a formal validation check.\n\nAnswer:\n%s\n\n", priorAnswer)
	sb.WriteString("Findings:\n")
	for i, f := range findings {
		writeFindingFeedback(&sb, i+1, f)
	}
	sb.WriteString("\nCan the ambiguity be resolved by rewriting alone, or does it require " +
		"asking the user clarifying questions?")

	raw, err := g.provider.Complete(ctx, decisionSystemPrompt, sb.String(), g.maxTokens, 0)
	if err != nil {
		return "", nil, fmt.Errorf("llm: generate decision: %w", err)
	}

	decision, questions := ParseDecision(raw)
	return decision, questions, nil
}

// ParseDecision extracts the decision and any clarifying questions from a
// raw decision reply. Anything unparseable is REWRITE.
func ParseDecision(raw string) (thread.Decision, []string) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) == 0 {
		return thread.DecisionRewrite, nil
	}

	head := strings.ToUpper(strings.TrimSpace(lines[0]))
	switch head {
	case string(thread.DecisionRewrite):
		return thread.DecisionRewrite, nil
	case string(thread.DecisionAskQuestions):
		var questions []string
		for _, line := range lines[1:] {
			if q := strings.TrimSpace(line); q != "" {
				questions = append(questions, q)
			}
		}
		if len(questions) == 0 {
			// ASK_QUESTIONS with nothing to ask is malformed.
			return thread.DecisionRewrite, nil
		}
		return thread.DecisionAskQuestions, questions
	default:
		return thread.DecisionRewrite, nil
	}
}

// BuildAugmentedPrompt folds clarification exchanges into the original
// question for post-clarification regeneration.
func BuildAugmentedPrompt(question string, clarifications []thread.Clarification) string {
	if len(clarifications) == 0 {
		return question
	}
	var sb strings.Builder
	sb.WriteString(question)
	sb.WriteString("\n\nAdditional context from the user:\n")
	for _, c := range clarifications {
		fmt.Fprintf(&sb, "Q: %s\nA: %s\n", c.Question, c.Answer)
	}
	return sb.String()
}
