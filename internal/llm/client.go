// Package llm is the boundary to the model service. The pipeline issues
// three kinds of requests through it: classification, vision OCR and
// structured extraction. Responses are free-form text; callers own the
// parsing and every caller has a deterministic fallback when parsing fails.
package llm

import (
	"context"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/config"
)

// Client is a blocking request-response connection to a model service.
type Client interface {
	// Complete sends a text prompt to the chat model and returns the raw
	// response text.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteVision sends an image plus an instruction to the vision model
	// and returns the raw response text.
	CompleteVision(ctx context.Context, image []byte, instruction string) (string, error)
}

// NewClient builds the provider selected by the configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("llm.NewClient: unknown provider %q", cfg.Provider)
	}
}
