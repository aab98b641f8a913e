package validation

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/dshills/guardloop/internal/finding"
)

// guardrailAPI is the slice of the Bedrock runtime client this validator
// uses. Narrowed to an interface so tests can substitute a fake.
type guardrailAPI interface {
	ApplyGuardrail(ctx context.Context, params *bedrockruntime.ApplyGuardrailInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ApplyGuardrailOutput, error)
}

// BedrockValidator validates answers against a Bedrock guardrail configured
// with an automated reasoning policy.
type BedrockValidator struct {
	api       guardrailAPI
	guardrail string
	version   string
}

// NewBedrockValidator builds a validator from the default AWS configuration
// chain. region, when non-empty, overrides the chain.
func NewBedrockValidator(ctx context.Context, guardrailID, guardrailVersion, region string) (*BedrockValidator, error) {
	if guardrailID == "" {
		return nil, fmt.Errorf("validation: guardrail id required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("validation: load aws config: %w", err)
	}
	return &BedrockValidator{
		api:       bedrockruntime.NewFromConfig(cfg),
		guardrail: guardrailID,
		version:   guardrailVersion,
	}, nil
}

// newBedrockValidatorWithAPI is the test seam.
func newBedrockValidatorWithAPI(api guardrailAPI, guardrailID, guardrailVersion string) *BedrockValidator {
	return &BedrockValidator{api: api, guardrail: guardrailID, version: guardrailVersion}
}

// Validate sends the prompt as query context and the candidate answer as
// guardrail output content, then classifies the automated reasoning
// findings from the assessment.
func (v *BedrockValidator) Validate(ctx context.Context, prompt, response string) (finding.ValidationResult, error) {
	out, err := v.api.ApplyGuardrail(ctx, &bedrockruntime.ApplyGuardrailInput{
		GuardrailIdentifier: aws.String(v.guardrail),
		GuardrailVersion:    aws.String(v.version),
		Source:              types.GuardrailContentSourceOutput,
		Content: []types.GuardrailContentBlock{
			&types.GuardrailContentBlockMemberText{
				Value: types.GuardrailTextBlock{
					Text: aws.String(prompt),
					Qualifiers: []types.GuardrailContentQualifier{
						types.GuardrailContentQualifierQuery,
					},
				},
			},
			&types.GuardrailContentBlockMemberText{
				Value: types.GuardrailTextBlock{
					Text: aws.String(response),
					Qualifiers: []types.GuardrailContentQualifier{
						types.GuardrailContentQualifierGuardContent,
					},
				},
			},
		},
	})
	if err != nil {
		return finding.ValidationResult{}, fmt.Errorf("validation: apply guardrail: %w", err)
	}

	var findings []finding.Finding
	for _, assessment := range out.Assessments {
		if assessment.AutomatedReasoningPolicy == nil {
			continue
		}
		for _, raw := range assessment.AutomatedReasoningPolicy.Findings {
			f, err := convertFinding(raw)
			if err != nil {
				return finding.ValidationResult{}, err
			}
			findings = append(findings, f)
		}
	}

	return finding.Classify(findings), nil
}

// convertFinding maps one SDK automated-reasoning finding union member to
// the internal variant. Unknown members are rejected explicitly; a new
// finding kind from the service must be handled here deliberately.
func convertFinding(raw types.GuardrailAutomatedReasoningFinding) (finding.Finding, error) {
	switch m := raw.(type) {
	case *types.GuardrailAutomatedReasoningFindingMemberValid:
		return finding.Finding{
			Output: finding.OutputValid,
			Details: finding.ValidDetails{
				Translation:        convertTranslation(m.Value.Translation),
				ClaimsTrueScenario: convertScenario(m.Value.ClaimsTrueScenario),
				SupportingRules:    convertRules(m.Value.SupportingRules),
			},
		}, nil
	case *types.GuardrailAutomatedReasoningFindingMemberInvalid:
		return finding.Finding{
			Output: finding.OutputInvalid,
			Details: finding.InvalidDetails{
				Translation:        convertTranslation(m.Value.Translation),
				ContradictingRules: convertRules(m.Value.ContradictingRules),
			},
		}, nil
	case *types.GuardrailAutomatedReasoningFindingMemberSatisfiable:
		return finding.Finding{
			Output: finding.OutputSatisfiable,
			Details: finding.SatisfiableDetails{
				Translation:         convertTranslation(m.Value.Translation),
				ClaimsTrueScenario:  convertScenario(m.Value.ClaimsTrueScenario),
				ClaimsFalseScenario: convertScenario(m.Value.ClaimsFalseScenario),
			},
		}, nil
	case *types.GuardrailAutomatedReasoningFindingMemberImpossible:
		return finding.Finding{
			Output: finding.OutputImpossible,
			Details: finding.ImpossibleDetails{
				Translation:        convertTranslation(m.Value.Translation),
				ContradictingRules: convertRules(m.Value.ContradictingRules),
			},
		}, nil
	case *types.GuardrailAutomatedReasoningFindingMemberTranslationAmbiguous:
		return finding.Finding{
			Output: finding.OutputTranslationAmbiguous,
			Details: finding.TranslationAmbiguousDetails{
				Options: convertOptions(m.Value.Options),
			},
		}, nil
	case *types.GuardrailAutomatedReasoningFindingMemberTooComplex:
		return finding.Finding{Output: finding.OutputTooComplex, Details: finding.TooComplexDetails{}}, nil
	case *types.GuardrailAutomatedReasoningFindingMemberNoTranslations:
		return finding.Finding{Output: finding.OutputNoTranslations, Details: finding.NoTranslationsDetails{}}, nil
	default:
		return finding.Finding{}, fmt.Errorf("validation: unknown automated reasoning finding type %T", raw)
	}
}

func convertTranslation(t *types.GuardrailAutomatedReasoningTranslation) *finding.Translation {
	if t == nil {
		return nil
	}
	out := &finding.Translation{
		Premises: convertStatements(t.Premises),
		Claims:   convertStatements(t.Claims),
	}
	if t.Confidence != nil {
		out.Confidence = *t.Confidence
	}
	for _, u := range t.UntranslatedPremises {
		out.UntranslatedPremises = append(out.UntranslatedPremises, aws.ToString(u.Text))
	}
	for _, u := range t.UntranslatedClaims {
		out.UntranslatedClaims = append(out.UntranslatedClaims, aws.ToString(u.Text))
	}
	return out
}

func convertStatements(stmts []types.GuardrailAutomatedReasoningStatement) []finding.Statement {
	out := make([]finding.Statement, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, finding.Statement{
			Logic:           aws.ToString(s.Logic),
			NaturalLanguage: aws.ToString(s.NaturalLanguage),
		})
	}
	return out
}

func convertScenario(sc *types.GuardrailAutomatedReasoningScenario) *finding.Scenario {
	if sc == nil {
		return nil
	}
	return &finding.Scenario{Statements: convertStatements(sc.Statements)}
}

func convertRules(rules []types.GuardrailAutomatedReasoningRule) []finding.Rule {
	out := make([]finding.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, finding.Rule{
			ID:            aws.ToString(r.Identifier),
			PolicyVersion: aws.ToString(r.PolicyVersionArn),
		})
	}
	return out
}

func convertOptions(opts []types.GuardrailAutomatedReasoningTranslationOption) []finding.TranslationOption {
	out := make([]finding.TranslationOption, 0, len(opts))
	for _, o := range opts {
		var translations []finding.Translation
		for i := range o.Translations {
			if t := convertTranslation(&o.Translations[i]); t != nil {
				translations = append(translations, *t)
			}
		}
		out = append(out, finding.TranslationOption{Translations: translations})
	}
	return out
}
