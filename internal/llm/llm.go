// Package llm handles LLM provider communication and prompt construction
// for answer generation, rewriting, and clarification decisions.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// NewProvider is the factory for creating LLM providers. It is a
// package-level variable so tests can replace it with a mock without
// modifying the call site. Tests must restore the original value; use
// t.Cleanup to do so safely.
var NewProvider func(providerName, model, region string) (Provider, error) = defaultNewProvider

// defaultNewProvider dispatches to the appropriate provider implementation.
// region is only meaningful for the bedrock provider; the others read API
// keys from the environment.
func defaultNewProvider(providerName, model, region string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic", "":
		return newAnthropicProvider(model)
	case "openai":
		return newOpenAIProvider(model)
	case "google":
		return newGoogleProvider(model)
	case "bedrock":
		return newBedrockProvider(model, region)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", providerName)
	}
}
