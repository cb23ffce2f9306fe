package llm

import (
	"context"
	"fmt"

	"meal-shopper/internal/config"
	"meal-shopper/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// NewTextGenerator builds the generator selected by cfg.LLMProvider. The
// returned Closer must be closed by the caller; it is a no-op for Groq.
func NewTextGenerator(ctx context.Context, cfg *config.Config) (TextGenerator, Closer, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.ProviderGroq:
		return NewGroqClient(cfg), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
