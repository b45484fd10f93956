// Package llm abstracts the reasoning backends behind one provider
// interface. The pipeline never assumes a model reasons correctly, only that
// Generate returns text within the configured timeout; everything above this
// package degrades to documented defaults when it doesn't.
package llm

import (
	"context"
	"fmt"

	"github.com/rahulvdev/betedge/config"
)

// Provider is the contract every reasoning backend implements.
type Provider interface {
	// Generate produces a completion for the prompt using the named model.
	// Options may override "temperature" (float64) and "max_tokens" (int).
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens also reports input/output token usage.
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// CalculateCost prices a call from token usage.
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// New creates a provider from configuration. The first configured provider
// entry wins; only the openai type is implemented today.
func New(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}
	for _, p := range cfg.Providers {
		switch p.Type {
		case "openai":
			return NewOpenAI(p), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", p.Type)
		}
	}
	return nil, fmt.Errorf("no valid LLM providers found")
}
