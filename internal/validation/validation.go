// Package validation defines the guardrail validation boundary: the
// Validator contract the processor depends on, a Bedrock automated-reasoning
// implementation, and the retry decorator applied at this boundary.
package validation

import (
	"context"

	"github.com/dshills/guardloop/internal/finding"
)

// Validator checks a candidate answer against a formal-logic guardrail and
// returns the classified result. Implementations own their wire format; the
// control loop only ever sees finding.ValidationResult.
type Validator interface {
	Validate(ctx context.Context, prompt, response string) (finding.ValidationResult, error)
}

// Func adapts a function to the Validator interface.
type Func func(ctx context.Context, prompt, response string) (finding.ValidationResult, error)

func (f Func) Validate(ctx context.Context, prompt, response string) (finding.ValidationResult, error) {
	return f(ctx, prompt, response)
}
