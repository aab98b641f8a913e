// Package domain defines named answer domains that modulate rewriting-prompt
// construction. Each domain contributes a RewriteAddendum appended to the
// rewriting prompt sent to the LLM.
package domain

import (
	"fmt"
	"sort"
)

// Domain describes a subject area the guardrail policy covers.
type Domain struct {
	Name            string
	Description     string
	RewriteAddendum string
}

// builtins is the registry of built-in domains keyed by name.
var builtins = map[string]Domain{
	"general": {
		Name:        "general",
		Description: "Default domain; no subject-specific constraints.",
		RewriteAddendum: "Stay on the original topic. Do not introduce claims about subjects " +
			"the original question did not raise.",
	},
	"hr-policy": {
		Name:        "hr-policy",
		Description: "Employee policy assistant; answers must track the written policy exactly.",
		RewriteAddendum: "Answers describe company policy. Never state an entitlement, " +
			"eligibility condition, or approval threshold that the cited policy rules do not " +
			"support. When a rule depends on tenure, role, or location, state the condition " +
			"explicitly instead of generalizing.",
	},
	"insurance": {
		Name:        "insurance",
		Description: "Coverage and claims assistant; conditional coverage must stay conditional.",
		RewriteAddendum: "Answers describe insurance coverage. Never present conditional " +
			"coverage as unconditional. Preserve waiting periods, exclusions, and deductible " +
			"conditions exactly; dropping a condition is worse than refusing to answer.",
	},
	"finance": {
		Name:        "finance",
		Description: "Financial product assistant; figures and thresholds must be rule-backed.",
		RewriteAddendum: "Answers concern financial products. Every rate, limit, or threshold " +
			"must come from the governing rules; do not extrapolate figures. Flag advice-like " +
			"statements as informational only.",
	},
}

// Load returns the named built-in domain or an error if the name is unknown.
// An empty name selects the general domain.
func Load(name string) (Domain, error) {
	if name == "" {
		name = "general"
	}
	d, ok := builtins[name]
	if !ok {
		return Domain{}, fmt.Errorf("domain: unknown domain %q (known: %v)", name, Names())
	}
	return d, nil
}

// Names returns the sorted list of built-in domain names.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
