package llm

import (
	"context"
	"fmt"

	"lazyrecipes/internal/config"
)

// NewClient returns the text generator for the configured provider.
func NewClient(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	case "openai", "":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
