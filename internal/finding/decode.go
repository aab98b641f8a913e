package finding

import (
	"encoding/json"
	"fmt"
)

// The wire form of a finding is a tagged union: a JSON object with exactly
// one key naming the kind, whose value is the kind-specific payload, e.g.
//
//	{"invalid": {"contradictingRules": [{"id": "R-7"}]}}
//
// Unknown keys are rejected outright rather than falling through silently;
// a new finding kind from the guardrail must be added here deliberately.

// tags maps wire keys to outputs. Keys follow the guardrail's camelCase.
var tags = map[string]ValidationOutput{
	"valid":                OutputValid,
	"invalid":              OutputInvalid,
	"satisfiable":          OutputSatisfiable,
	"impossible":           OutputImpossible,
	"translationAmbiguous": OutputTranslationAmbiguous,
	"tooComplex":           OutputTooComplex,
	"noTranslations":       OutputNoTranslations,
}

// wireTag returns the wire key for an output.
func wireTag(o ValidationOutput) string {
	for k, v := range tags {
		if v == o {
			return k
		}
	}
	return ""
}

// UnmarshalJSON decodes the tagged-union wire form into a Finding.
func (f *Finding) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("finding: decode: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("finding: decode: expected exactly one tag key, got %d", len(obj))
	}

	var tag string
	var payload json.RawMessage
	for k, v := range obj {
		tag, payload = k, v
	}

	output, ok := tags[tag]
	if !ok {
		return fmt.Errorf("finding: decode: unknown finding kind %q", tag)
	}

	details, err := decodeDetails(output, payload)
	if err != nil {
		return err
	}
	f.Output = output
	f.Details = details
	return nil
}

// decodeDetails maps each known kind to its variant constructor.
func decodeDetails(output ValidationOutput, payload json.RawMessage) (Details, error) {
	unmarshal := func(v any) error {
		if err := json.Unmarshal(payload, v); err != nil {
			return fmt.Errorf("finding: decode %s payload: %w", output, err)
		}
		return nil
	}

	switch output {
	case OutputValid:
		var d ValidDetails
		return d, unmarshal(&d)
	case OutputInvalid:
		var d InvalidDetails
		return d, unmarshal(&d)
	case OutputSatisfiable:
		var d SatisfiableDetails
		return d, unmarshal(&d)
	case OutputImpossible:
		var d ImpossibleDetails
		return d, unmarshal(&d)
	case OutputTranslationAmbiguous:
		var d TranslationAmbiguousDetails
		return d, unmarshal(&d)
	case OutputTooComplex:
		return TooComplexDetails{}, nil
	case OutputNoTranslations:
		return NoTranslationsDetails{}, nil
	default:
		return nil, fmt.Errorf("finding: decode: no constructor for %q", output)
	}
}

// MarshalJSON encodes the Finding back into its tagged-union wire form.
func (f Finding) MarshalJSON() ([]byte, error) {
	tag := wireTag(f.Output)
	if tag == "" {
		return nil, fmt.Errorf("finding: encode: unknown finding kind %q", f.Output)
	}
	details := f.Details
	if details == nil {
		details = emptyDetails(f.Output)
	}
	return json.Marshal(map[string]Details{tag: details})
}

// emptyDetails returns the zero payload for a kind, so findings constructed
// without evidence still round-trip.
func emptyDetails(output ValidationOutput) Details {
	switch output {
	case OutputValid:
		return ValidDetails{}
	case OutputInvalid:
		return InvalidDetails{}
	case OutputSatisfiable:
		return SatisfiableDetails{}
	case OutputImpossible:
		return ImpossibleDetails{}
	case OutputTranslationAmbiguous:
		return TranslationAmbiguousDetails{}
	case OutputTooComplex:
		return TooComplexDetails{}
	default:
		return NoTranslationsDetails{}
	}
}

// DecodeList parses a JSON array of tagged findings.
func DecodeList(data []byte) ([]Finding, error) {
	var findings []Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}
