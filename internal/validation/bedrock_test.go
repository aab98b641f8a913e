package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/dshills/guardloop/internal/finding"
)

// fakeGuardrailAPI returns a canned ApplyGuardrail output.
type fakeGuardrailAPI struct {
	out  *bedrockruntime.ApplyGuardrailOutput
	err  error
	last *bedrockruntime.ApplyGuardrailInput
}

func (f *fakeGuardrailAPI) ApplyGuardrail(_ context.Context, params *bedrockruntime.ApplyGuardrailInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ApplyGuardrailOutput, error) {
	f.last = params
	return f.out, f.err
}

func assessmentWith(findings ...types.GuardrailAutomatedReasoningFinding) *bedrockruntime.ApplyGuardrailOutput {
	return &bedrockruntime.ApplyGuardrailOutput{
		Assessments: []types.GuardrailAssessment{
			{
				AutomatedReasoningPolicy: &types.GuardrailAutomatedReasoningPolicyAssessment{
					Findings: findings,
				},
			},
		},
	}
}

func TestBedrockValidator_ConvertsAndClassifies(t *testing.T) {
	api := &fakeGuardrailAPI{
		out: assessmentWith(
			&types.GuardrailAutomatedReasoningFindingMemberInvalid{
				Value: types.GuardrailAutomatedReasoningInvalidFinding{
					ContradictingRules: []types.GuardrailAutomatedReasoningRule{
						{Identifier: aws.String("HR-4")},
					},
				},
			},
			&types.GuardrailAutomatedReasoningFindingMemberNoTranslations{
				Value: types.GuardrailAutomatedReasoningNoTranslationsFinding{},
			},
		),
	}
	v := newBedrockValidatorWithAPI(api, "gr-1", "DRAFT")

	result, err := v.Validate(context.Background(), "question", "answer")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Output != finding.OutputInvalid {
		t.Errorf("Output = %s, want INVALID", result.Output)
	}
	if len(result.Findings) != 2 {
		t.Fatalf("len(Findings) = %d, want 2", len(result.Findings))
	}
	d, ok := result.Findings[0].Details.(finding.InvalidDetails)
	if !ok {
		t.Fatalf("Findings[0].Details type = %T", result.Findings[0].Details)
	}
	if len(d.ContradictingRules) != 1 || d.ContradictingRules[0].ID != "HR-4" {
		t.Errorf("ContradictingRules = %+v, want HR-4", d.ContradictingRules)
	}
}

func TestBedrockValidator_SendsPromptAndAnswer(t *testing.T) {
	api := &fakeGuardrailAPI{out: assessmentWith()}
	v := newBedrockValidatorWithAPI(api, "gr-1", "2")

	if _, err := v.Validate(context.Background(), "the question", "the answer"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	in := api.last
	if aws.ToString(in.GuardrailIdentifier) != "gr-1" || aws.ToString(in.GuardrailVersion) != "2" {
		t.Errorf("guardrail = %s/%s, want gr-1/2",
			aws.ToString(in.GuardrailIdentifier), aws.ToString(in.GuardrailVersion))
	}
	if len(in.Content) != 2 {
		t.Fatalf("len(Content) = %d, want 2 (query + guarded answer)", len(in.Content))
	}
}

func TestBedrockValidator_EmptyAssessmentIsValid(t *testing.T) {
	api := &fakeGuardrailAPI{out: &bedrockruntime.ApplyGuardrailOutput{}}
	v := newBedrockValidatorWithAPI(api, "gr-1", "DRAFT")

	result, err := v.Validate(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Output != finding.OutputValid {
		t.Errorf("Output = %s, want VALID for no findings", result.Output)
	}
}

func TestBedrockValidator_PropagatesAPIError(t *testing.T) {
	sentinel := errors.New("throttled")
	api := &fakeGuardrailAPI{err: sentinel}
	v := newBedrockValidatorWithAPI(api, "gr-1", "DRAFT")

	if _, err := v.Validate(context.Background(), "q", "a"); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want wrapped sentinel", err)
	}
}

func TestNewBedrockValidator_RequiresGuardrailID(t *testing.T) {
	if _, err := NewBedrockValidator(context.Background(), "", "DRAFT", ""); err == nil {
		t.Error("NewBedrockValidator with empty guardrail id succeeded")
	}
}
