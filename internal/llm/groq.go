package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"meal-shopper/internal/config"
	"meal-shopper/internal/shared"

	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// groqClient talks to Groq through its OpenAI-compatible endpoint.
type groqClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) TextGenerator {
	return newGroqClient(cfg, groqBaseURL)
}

func newGroqClient(cfg *config.Config, baseURL string) *groqClient {
	oc := openai.DefaultConfig(cfg.GroqAPIKey)
	oc.BaseURL = baseURL
	oc.HTTPClient = &http.Client{Timeout: 60 * time.Second}

	return &groqClient{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.GroqModel,
		temperature: cfg.LLMTemperature,
	}
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *groqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("groq api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	return ContentResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Model:            c.model,
		},
	}, nil
}
