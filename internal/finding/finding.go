// Package finding defines the canonical data types for guardrail validation
// evidence: the closed set of validation outcomes, the per-kind evidence
// payloads, and the classification of a raw finding list into an overall
// ValidationResult.
package finding

// ValidationOutput is the kind of one validation finding.
type ValidationOutput string

const (
	OutputValid                ValidationOutput = "VALID"
	OutputInvalid              ValidationOutput = "INVALID"
	OutputSatisfiable          ValidationOutput = "SATISFIABLE"
	OutputImpossible           ValidationOutput = "IMPOSSIBLE"
	OutputTranslationAmbiguous ValidationOutput = "TRANSLATION_AMBIGUOUS"
	OutputTooComplex           ValidationOutput = "TOO_COMPLEX"
	OutputNoTranslations       ValidationOutput = "NO_TRANSLATIONS"
)

// priorities is the fixed urgency order used to pick the single most urgent
// finding out of one validation call. Lower number wins. NO_TRANSLATIONS is
// deliberately 99 — a lone untranslatable claim is near-harmless and must
// never outrank an actionable finding. The exact numbers are load-bearing;
// downstream template selection and UI ordering depend on them.
var priorities = map[ValidationOutput]int{
	OutputTooComplex:           0,
	OutputTranslationAmbiguous: 1,
	OutputImpossible:           2,
	OutputInvalid:              3,
	OutputSatisfiable:          4,
	OutputValid:                6,
	OutputNoTranslations:       99,
}

// Priority returns the urgency ordinal for the output. Unknown outputs sort
// after everything defined.
func (o ValidationOutput) Priority() int {
	p, ok := priorities[o]
	if !ok {
		return 100
	}
	return p
}

// IsValid reports whether the output is one of the defined kinds.
func (o ValidationOutput) IsValid() bool {
	_, ok := priorities[o]
	return ok
}

// Actionable reports whether a finding of this kind can drive a rewrite.
// VALID and NO_TRANSLATIONS require no action; TOO_COMPLEX is terminal and
// cannot be fixed by rewriting.
func (o ValidationOutput) Actionable() bool {
	switch o {
	case OutputInvalid, OutputSatisfiable, OutputImpossible, OutputTranslationAmbiguous:
		return true
	default:
		return false
	}
}

// Statement is one logical statement with its natural-language source.
type Statement struct {
	Logic           string `json:"logic,omitempty"`
	NaturalLanguage string `json:"naturalLanguage,omitempty"`
}

// Rule identifies one policy rule cited by the reasoning engine.
type Rule struct {
	ID            string `json:"id"`
	PolicyVersion string `json:"policyVersion,omitempty"`
}

// Scenario is a concrete assignment under which the claims are all true or
// all false.
type Scenario struct {
	Statements []Statement `json:"statements,omitempty"`
}

// Translation is the logical encoding the engine extracted from prompt and
// answer text.
type Translation struct {
	Premises             []Statement `json:"premises,omitempty"`
	Claims               []Statement `json:"claims,omitempty"`
	UntranslatedPremises []string    `json:"untranslatedPremises,omitempty"`
	UntranslatedClaims   []string    `json:"untranslatedClaims,omitempty"`
	Confidence           float64     `json:"confidence,omitempty"`
}

// TranslationOption is one candidate reading of ambiguous text.
type TranslationOption struct {
	Translations []Translation `json:"translations,omitempty"`
}

// LogicWarning flags premises or claims the engine accepted with caveats.
type LogicWarning struct {
	Type     string      `json:"type,omitempty"`
	Premises []Statement `json:"premises,omitempty"`
	Claims   []Statement `json:"claims,omitempty"`
}

// Details is the kind-specific evidence payload of a Finding. The set of
// implementations is closed; the control loop treats details as opaque except
// for template selection.
type Details interface {
	kind() ValidationOutput
}

// ValidDetails carries the evidence for a VALID finding.
type ValidDetails struct {
	Translation        *Translation  `json:"translation,omitempty"`
	ClaimsTrueScenario *Scenario     `json:"claimsTrueScenario,omitempty"`
	SupportingRules    []Rule        `json:"supportingRules,omitempty"`
	LogicWarning       *LogicWarning `json:"logicWarning,omitempty"`
}

// InvalidDetails carries the rules the answer contradicts.
type InvalidDetails struct {
	Translation        *Translation  `json:"translation,omitempty"`
	ContradictingRules []Rule        `json:"contradictingRules,omitempty"`
	LogicWarning       *LogicWarning `json:"logicWarning,omitempty"`
}

// SatisfiableDetails carries scenarios under which the claims hold and fail.
type SatisfiableDetails struct {
	Translation         *Translation  `json:"translation,omitempty"`
	ClaimsTrueScenario  *Scenario     `json:"claimsTrueScenario,omitempty"`
	ClaimsFalseScenario *Scenario     `json:"claimsFalseScenario,omitempty"`
	LogicWarning        *LogicWarning `json:"logicWarning,omitempty"`
}

// ImpossibleDetails carries the rules that make the premises unsatisfiable.
type ImpossibleDetails struct {
	Translation        *Translation  `json:"translation,omitempty"`
	ContradictingRules []Rule        `json:"contradictingRules,omitempty"`
	LogicWarning       *LogicWarning `json:"logicWarning,omitempty"`
}

// TranslationAmbiguousDetails carries the competing readings of the text.
type TranslationAmbiguousDetails struct {
	Options             []TranslationOption `json:"options,omitempty"`
	DifferenceScenarios []Scenario          `json:"differenceScenarios,omitempty"`
}

// TooComplexDetails is the (empty) payload of a TOO_COMPLEX finding.
type TooComplexDetails struct{}

// NoTranslationsDetails is the (empty) payload of a NO_TRANSLATIONS finding.
type NoTranslationsDetails struct{}

func (ValidDetails) kind() ValidationOutput                { return OutputValid }
func (InvalidDetails) kind() ValidationOutput              { return OutputInvalid }
func (SatisfiableDetails) kind() ValidationOutput          { return OutputSatisfiable }
func (ImpossibleDetails) kind() ValidationOutput           { return OutputImpossible }
func (TranslationAmbiguousDetails) kind() ValidationOutput { return OutputTranslationAmbiguous }
func (TooComplexDetails) kind() ValidationOutput           { return OutputTooComplex }
func (NoTranslationsDetails) kind() ValidationOutput       { return OutputNoTranslations }

// Finding is one categorized unit of validation evidence.
type Finding struct {
	Output  ValidationOutput
	Details Details
}

// ValidationResult is the classified outcome of one validate call: the
// overall status derived from the highest-priority finding present, plus the
// full finding list sorted by priority.
type ValidationResult struct {
	Output   ValidationOutput `json:"output"`
	Findings []Finding        `json:"findings"`
}
