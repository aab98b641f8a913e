package finding

import "sort"

// Classify derives the overall validation output from a raw finding list and
// returns the result with findings sorted by priority.
//
// Rules (in order of precedence):
//  1. No findings at all → VALID (nothing to flag).
//  2. Any VALID finding → VALID, regardless of co-occurring findings.
//     NO_TRANSLATIONS alongside VALID means "accepted but not fully
//     formally verified"; the caller decides how to surface that.
//  3. Any TOO_COMPLEX finding → TOO_COMPLEX. Terminal, not retriable.
//  4. Otherwise the minimum priority number among the kinds present wins.
//
// The sort is stable so findings of the same kind keep their guardrail
// order.
func Classify(findings []Finding) ValidationResult {
	if len(findings) == 0 {
		return ValidationResult{Output: OutputValid}
	}

	present := make(map[ValidationOutput]bool, len(findings))
	for _, f := range findings {
		present[f.Output] = true
	}

	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Output.Priority() < sorted[j].Output.Priority()
	})

	switch {
	case present[OutputValid]:
		return ValidationResult{Output: OutputValid, Findings: sorted}
	case present[OutputTooComplex]:
		return ValidationResult{Output: OutputTooComplex, Findings: sorted}
	}

	overall := sorted[0].Output
	return ValidationResult{Output: overall, Findings: sorted}
}

// FirstActionable returns the index of the highest-priority finding that can
// drive a rewrite, skipping indices already acted upon. Returns -1 when no
// actionable finding remains.
func (r ValidationResult) FirstActionable(processed map[int]bool) int {
	for i, f := range r.Findings {
		if processed[i] {
			continue
		}
		if f.Output.Actionable() {
			return i
		}
	}
	return -1
}
