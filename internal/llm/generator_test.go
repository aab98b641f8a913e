package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/dshills/guardloop/internal/finding"
	"github.com/dshills/guardloop/internal/thread"
)

// scriptProvider returns canned responses in order.
type scriptProvider struct {
	responses []string
	calls     int
}

func (p *scriptProvider) Complete(_ context.Context, _, _ string, _ int, _ float64) (string, error) {
	if p.calls >= len(p.responses) {
		p.calls++
		return "", nil
	}
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}

func TestGenerateResponse_TrimsWhitespace(t *testing.T) {
	g := NewGeneratorWithProvider(&scriptProvider{responses: []string{"  an answer \n"}}, 512, 0.2)
	got, err := g.GenerateResponse(context.Background(), "question")
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if got != "an answer" {
		t.Errorf("GenerateResponse = %q", got)
	}
}

func TestGenerateRewritingPrompt_PerKindTemplates(t *testing.T) {
	g := NewGeneratorWithProvider(&scriptProvider{}, 512, 0.2)
	findings := []finding.Finding{
		{
			Output: finding.OutputInvalid,
			Details: finding.InvalidDetails{
				ContradictingRules: []finding.Rule{{ID: "HR-7"}, {ID: "HR-12"}},
			},
		},
		{
			Output: finding.OutputSatisfiable,
			Details: finding.SatisfiableDetails{
				ClaimsFalseScenario: &finding.Scenario{
					Statements: []finding.Statement{{NaturalLanguage: "employee has under one year of tenure"}},
				},
			},
		},
	}

	prompt := g.GenerateRewritingPrompt(findings, "prior answer", "the question", "hr-policy")

	for _, want := range []string{
		"the question",
		"prior answer",
		"INVALID",
		"HR-7, HR-12",
		"SATISFIABLE",
		"employee has under one year of tenure",
		"Never state an entitlement", // hr-policy domain addendum
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("rewriting prompt missing %q", want)
		}
	}
}

func TestGenerateRewritingPrompt_UnknownDomainFallsBack(t *testing.T) {
	g := NewGeneratorWithProvider(&scriptProvider{}, 512, 0.2)
	prompt := g.GenerateRewritingPrompt(nil, "a", "q", "no-such-domain")
	if !strings.Contains(prompt, "Stay on the original topic") {
		t.Error("unknown domain did not fall back to general addendum")
	}
}

func TestParseDecision(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		want      thread.Decision
		questions int
	}{
		{"rewrite", "REWRITE", thread.DecisionRewrite, 0},
		{"rewrite lowercase", "rewrite", thread.DecisionRewrite, 0},
		{"ask with questions", "ASK_QUESTIONS\nWhich plan tier?\nFull or part time?", thread.DecisionAskQuestions, 2},
		{"ask without questions is malformed", "ASK_QUESTIONS", thread.DecisionRewrite, 0},
		{"garbage", "I think you should probably rewrite it", thread.DecisionRewrite, 0},
		{"empty", "", thread.DecisionRewrite, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, qs := ParseDecision(c.raw)
			if d != c.want {
				t.Errorf("ParseDecision(%q) = %s, want %s", c.raw, d, c.want)
			}
			if len(qs) != c.questions {
				t.Errorf("ParseDecision(%q) questions = %d, want %d", c.raw, len(qs), c.questions)
			}
		})
	}
}

func TestGenerateDecision_FallsBackOnMalformed(t *testing.T) {
	g := NewGeneratorWithProvider(&scriptProvider{responses: []string{"hmm, unclear"}}, 512, 0.2)
	d, qs, err := g.GenerateDecision(context.Background(), nil, "answer")
	if err != nil {
		t.Fatalf("GenerateDecision: %v", err)
	}
	if d != thread.DecisionRewrite || qs != nil {
		t.Errorf("GenerateDecision = %s/%v, want REWRITE with no questions", d, qs)
	}
}

func TestBuildAugmentedPrompt(t *testing.T) {
	if got := BuildAugmentedPrompt("q", nil); got != "q" {
		t.Errorf("BuildAugmentedPrompt with no clarifications = %q", got)
	}
	got := BuildAugmentedPrompt("q", []thread.Clarification{{Question: "Which tier?", Answer: "Gold"}})
	for _, want := range []string{"q", "Which tier?", "Gold"} {
		if !strings.Contains(got, want) {
			t.Errorf("augmented prompt missing %q", want)
		}
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider("nonexistent", "m", ""); err == nil {
		t.Error("NewProvider(nonexistent) succeeded, want error")
	}
}
